package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (s *recordingSender) Send(ctx context.Context, title, message string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *recordingSender) Name() string { return s.name }

func TestNotifier_DeliversToAllSenders(t *testing.T) {
	a := &recordingSender{name: "a"}
	b := &recordingSender{name: "b"}
	n := NewNotifier([]Sender{a, b}, nil, testLogger())

	if err := n.Notify(context.Background(), EventResolution, "Market resolved", "details"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(a.titles) != 1 || len(b.titles) != 1 {
		t.Fatalf("deliveries = %d/%d, want 1/1", len(a.titles), len(b.titles))
	}
}

func TestNotifier_FiltersUnlistedEvents(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{EventResolution}, testLogger())

	if err := n.Notify(context.Background(), "startup", "ignored", "ignored"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 0 {
		t.Fatalf("filtered event was delivered %d times", len(s.titles))
	}

	if err := n.Notify(context.Background(), EventResolution, "Market resolved", "details"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.titles) != 1 {
		t.Fatalf("allowed event deliveries = %d, want 1", len(s.titles))
	}
}

func TestNotifier_OneFailureDoesNotStopOthers(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), EventResolution, "Market resolved", "details")
	if err == nil {
		t.Fatal("expected a combined error from the failed sender")
	}
	if !strings.Contains(err.Error(), "bad") {
		t.Fatalf("error = %v, want the failed sender named", err)
	}
	if len(good.titles) != 1 {
		t.Fatalf("healthy sender deliveries = %d, want 1", len(good.titles))
	}
}

func TestTelegramSender_PostsSendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("bot-token", "chat-1")
	s.apiBase = srv.URL

	if err := s.Send(context.Background(), "Market resolved", "0xabc resolved with option 1"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/botbot-token/sendMessage" {
		t.Fatalf("path = %q, want /botbot-token/sendMessage", gotPath)
	}
	if gotBody["chat_id"] != "chat-1" {
		t.Fatalf("chat_id = %q, want chat-1", gotBody["chat_id"])
	}
	if !strings.Contains(gotBody["text"], "Market resolved") {
		t.Fatalf("text = %q, want the title included", gotBody["text"])
	}
}

func TestDiscordSender_FailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "Market resolved", "details")
	if err == nil {
		t.Fatal("expected an error for a 401 webhook response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error = %v, want the status code included", err)
	}
}
