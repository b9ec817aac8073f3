package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bbh233/backend/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startHub runs a hub and an HTTP server exposing it, returning a connected
// client ready to read frames.
func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil, testLogger(), Config{StoreBackend: "memory"})
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return hub, conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return data
}

func TestHub_HelloFrame(t *testing.T) {
	_, conn := startHub(t)

	var hello struct {
		Type    string `json:"type"`
		Payload struct {
			Connected     bool   `json:"connected"`
			Store         string `json:"store"`
			UptimeSeconds int64  `json:"uptime_seconds"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(readFrame(t, conn), &hello); err != nil {
		t.Fatalf("decode hello: %v", err)
	}

	if hello.Type != "relay_status" {
		t.Errorf("hello type = %q, want relay_status", hello.Type)
	}
	if !hello.Payload.Connected {
		t.Error("hello connected = false, want true")
	}
	if hello.Payload.Store != "memory" {
		t.Errorf("hello store = %q, want memory", hello.Payload.Store)
	}
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub, conn := startHub(t)
	readFrame(t, conn) // hello

	event, _ := json.Marshal(domain.ResolutionEvent{
		MarketAddress:      "0x00000000000000000000000000000000000000aa",
		WinningOptionIndex: 2,
	})
	if err := hub.Publish(context.Background(), domain.ResolutionChannel, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var got domain.ResolutionEvent
	if err := json.Unmarshal(readFrame(t, conn), &got); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if got.MarketAddress != "0x00000000000000000000000000000000000000aa" {
		t.Errorf("market = %q, want the published address", got.MarketAddress)
	}
	if got.WinningOptionIndex != 2 {
		t.Errorf("winning index = %d, want 2", got.WinningOptionIndex)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, conn := startHub(t)
	readFrame(t, conn) // hello

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d after close, want 0", hub.clientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_PublishHonoursContext(t *testing.T) {
	// A hub nobody runs: once the broadcast buffer is full, Publish must
	// return the context error instead of blocking forever.
	hub := NewHub(nil, testLogger(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- []byte("x")
	}
	if err := hub.Publish(ctx, domain.ResolutionChannel, []byte("y")); err == nil {
		t.Fatal("publish on cancelled context with full buffer: got nil error")
	}
}
