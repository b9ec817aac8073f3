package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bbh233/backend/internal/domain"
)

// ResolutionService is the behavior the resolution endpoints depend on.
type ResolutionService interface {
	Resolve(ctx context.Context, marketAddress string, winningOptionIndex int64) (domain.Resolution, error)
	Lookup(ctx context.Context, marketAddress string) (domain.Resolution, error)
}

// ResolutionHandler serves the resolver write path and the oracle read path.
type ResolutionHandler struct {
	svc    ResolutionService
	logger *slog.Logger
}

// NewResolutionHandler creates a ResolutionHandler.
func NewResolutionHandler(svc ResolutionService, logger *slog.Logger) *ResolutionHandler {
	return &ResolutionHandler{svc: svc, logger: logHandler(logger, "resolution")}
}

// resolveMarketRequest is the body of POST /resolve-market. The index is a
// pointer so an absent field is distinguishable from a literal index 0.
type resolveMarketRequest struct {
	MarketAddress      string `json:"marketAddress"`
	WinningOptionIndex *int64 `json:"winningOptionIndex"`
}

// resolveMarketResponse echoes the pair that was stored.
type resolveMarketResponse struct {
	MarketAddress      string `json:"marketAddress"`
	WinningOptionIndex int64  `json:"winningOptionIndex"`
}

type getResolutionResponse struct {
	WinningOptionIndex int64 `json:"winningOptionIndex"`
}

// ResolveMarket handles POST /resolve-market.
func (h *ResolutionHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	var req resolveMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MarketAddress == "" || req.WinningOptionIndex == nil {
		writeError(w, http.StatusBadRequest, "marketAddress and winningOptionIndex are required")
		return
	}

	res, err := h.svc.Resolve(r.Context(), req.MarketAddress, *req.WinningOptionIndex)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "store resolution failed",
			slog.String("market", req.MarketAddress),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resolveMarketResponse{
		MarketAddress:      res.MarketAddress,
		WinningOptionIndex: res.WinningOptionIndex,
	})
}

// GetResolution handles GET /get-resolution/{marketAddress}.
func (h *ResolutionHandler) GetResolution(w http.ResponseWriter, r *http.Request) {
	addr := pathParam(r, "marketAddress")

	res, err := h.svc.Lookup(r.Context(), addr)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "no resolution found for this market")
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.ErrorContext(r.Context(), "lookup resolution failed",
				slog.String("market", addr),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, getResolutionResponse{WinningOptionIndex: res.WinningOptionIndex})
}
