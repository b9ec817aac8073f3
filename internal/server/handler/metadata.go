package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bbh233/backend/internal/metadata"
)

// MetadataRenderer derives a live token document from chain state.
type MetadataRenderer interface {
	Render(ctx context.Context, marketAddress string, tokenID *big.Int) (metadata.Document, error)
}

// MetadataHandler serves per-token metadata documents.
type MetadataHandler struct {
	renderer MetadataRenderer
	logger   *slog.Logger
}

// NewMetadataHandler creates a MetadataHandler.
func NewMetadataHandler(renderer MetadataRenderer, logger *slog.Logger) *MetadataHandler {
	return &MetadataHandler{renderer: renderer, logger: logHandler(logger, "metadata")}
}

// GetMetadata handles GET /metadata/{marketAddress}/{tokenId}.
//
// Input validation failures are the caller's fault and return 400. Every
// failure past validation returns a generic 500 with the detail logged
// server-side only; a marketplace never sees a partial document.
func (h *MetadataHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	addr := pathParam(r, "marketAddress")
	if !common.IsHexAddress(addr) {
		writeError(w, http.StatusBadRequest, "invalid market address")
		return
	}

	rawToken := pathParam(r, "tokenId")
	tokenID, ok := new(big.Int).SetString(rawToken, 10)
	if !ok || tokenID.Sign() < 0 {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	doc, err := h.renderer.Render(r.Context(), addr, tokenID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "metadata render failed",
			slog.String("market", addr),
			slog.String("token_id", rawToken),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}
