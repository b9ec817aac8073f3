package handler

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

	"github.com/bbh233/backend/internal/domain"
	"github.com/bbh233/backend/internal/service"
	"github.com/bbh233/backend/internal/store/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newResolutionMux registers the resolution routes the way server.New does,
// backed by a real service over the in-memory store.
func newResolutionMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc := service.NewResolutionService(memory.NewResolutionStore(), nil, nil, nil, testLogger())
	h := NewResolutionHandler(svc, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /resolve-market", h.ResolveMarket)
	mux.HandleFunc("GET /get-resolution/{marketAddress}", h.GetResolution)
	return mux
}

func TestResolveMarket_StoresAndEchoes(t *testing.T) {
	mux := newResolutionMux(t)

	body := `{"marketAddress":"0xABCDEF0123456789abcdef0123456789ABCDEF01","winningOptionIndex":2}`
	req := httptest.NewRequest(http.MethodPost, "/resolve-market", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp struct {
		MarketAddress      string `json:"marketAddress"`
		WinningOptionIndex int64  `json:"winningOptionIndex"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MarketAddress != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Fatalf("echoed address = %q, want lowercased", resp.MarketAddress)
	}
	if resp.WinningOptionIndex != 2 {
		t.Fatalf("echoed index = %d, want 2", resp.WinningOptionIndex)
	}
}

func TestResolveMarket_ThenLookup(t *testing.T) {
	mux := newResolutionMux(t)

	body := `{"marketAddress":"0xAAAA000000000000000000000000000000000001","winningOptionIndex":0}`
	req := httptest.NewRequest(http.MethodPost, "/resolve-market", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/get-resolution/0xAAAA000000000000000000000000000000000001", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("lookup status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		WinningOptionIndex int64 `json:"winningOptionIndex"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.WinningOptionIndex != 0 {
		t.Fatalf("winningOptionIndex = %d, want 0", resp.WinningOptionIndex)
	}
}

func TestResolveMarket_MalformedJSON(t *testing.T) {
	mux := newResolutionMux(t)

	req := httptest.NewRequest(http.MethodPost, "/resolve-market", strings.NewReader(`{"marketAddress":`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestResolveMarket_MissingIndexRejected(t *testing.T) {
	mux := newResolutionMux(t)

	req := httptest.NewRequest(http.MethodPost, "/resolve-market",
		strings.NewReader(`{"marketAddress":"0xAAAA000000000000000000000000000000000001"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing index: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestResolveMarket_MissingAddressRejected(t *testing.T) {
	mux := newResolutionMux(t)

	req := httptest.NewRequest(http.MethodPost, "/resolve-market",
		strings.NewReader(`{"winningOptionIndex":1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing address: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestResolveMarket_NegativeIndexRejected(t *testing.T) {
	mux := newResolutionMux(t)

	req := httptest.NewRequest(http.MethodPost, "/resolve-market",
		strings.NewReader(`{"marketAddress":"0xAAAA000000000000000000000000000000000001","winningOptionIndex":-1}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative index: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetResolution_NotFound(t *testing.T) {
	mux := newResolutionMux(t)

	req := httptest.NewRequest(http.MethodGet, "/get-resolution/0xAAAA000000000000000000000000000000000001", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

type failingService struct{}

func (failingService) Resolve(ctx context.Context, marketAddress string, winningOptionIndex int64) (domain.Resolution, error) {
	return domain.Resolution{}, domain.ErrChainRead
}

func (failingService) Lookup(ctx context.Context, marketAddress string) (domain.Resolution, error) {
	return domain.Resolution{}, domain.ErrChainRead
}

func TestResolveMarket_ServiceFailureIsGeneric500(t *testing.T) {
	h := NewResolutionHandler(failingService{}, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /resolve-market", h.ResolveMarket)

	body := `{"marketAddress":"0xAAAA000000000000000000000000000000000001","winningOptionIndex":1}`
	req := httptest.NewRequest(http.MethodPost, "/resolve-market", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "internal server error" {
		t.Fatalf("error body = %q, want generic message", resp["error"])
	}
}

type fixedService struct {
	res domain.Resolution
}

func (s fixedService) Resolve(ctx context.Context, marketAddress string, winningOptionIndex int64) (domain.Resolution, error) {
	return s.res, nil
}

func (s fixedService) Lookup(ctx context.Context, marketAddress string) (domain.Resolution, error) {
	return s.res, nil
}

func TestGetResolution_ReturnsStoredIndex(t *testing.T) {
	h := NewResolutionHandler(fixedService{res: domain.Resolution{
		MarketAddress:      "0xaaaa000000000000000000000000000000000001",
		WinningOptionIndex: 3,
		StoredAt:           time.Now().UTC(),
	}}, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get-resolution/{marketAddress}", h.GetResolution)

	req := httptest.NewRequest(http.MethodGet, "/get-resolution/0xaaaa000000000000000000000000000000000001", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"winningOptionIndex":3`) {
		t.Fatalf("body = %s, want winningOptionIndex 3", body)
	}
}
