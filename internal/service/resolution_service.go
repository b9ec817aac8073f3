package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/bbh233/backend/internal/domain"
)

// eventResolution is the notifier event type for stored resolutions.
const eventResolution = "resolution"

// resolutionNotifier is the slice of the operator notifier the service uses.
type resolutionNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// EventPublisher is the publish half of the signal bus. The WebSocket hub
// satisfies it directly, so deployments without an external broker still
// feed connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// ResolutionService owns all writes to the resolution store and announces
// stored resolutions to downstream consumers. The bus, archive, and notifier
// are optional; a nil dependency disables that fan-out without affecting the
// store write.
type ResolutionService struct {
	store    domain.ResolutionStore
	bus      EventPublisher
	archive  domain.BlobWriter
	notifier resolutionNotifier
	logger   *slog.Logger
}

// NewResolutionService creates a ResolutionService. store and logger are
// required; bus, archive, and notifier may be nil.
func NewResolutionService(
	store domain.ResolutionStore,
	bus EventPublisher,
	archive domain.BlobWriter,
	notifier resolutionNotifier,
	logger *slog.Logger,
) *ResolutionService {
	return &ResolutionService{
		store:    store,
		bus:      bus,
		archive:  archive,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "resolution_service")),
	}
}

// Resolve validates and stores a winning option index for a market, then
// returns the stored record for the caller to echo. The address key is
// lowercased; re-storing the same pair is an idempotent upsert. Fan-out
// failures are logged and never fail the write.
func (s *ResolutionService) Resolve(ctx context.Context, marketAddress string, winningOptionIndex int64) (domain.Resolution, error) {
	addr := domain.NormalizeAddress(marketAddress)
	if addr == "" {
		return domain.Resolution{}, fmt.Errorf("resolution_service: market address is required: %w", domain.ErrInvalidInput)
	}
	if winningOptionIndex < 0 {
		return domain.Resolution{}, fmt.Errorf("resolution_service: winning option index must be non-negative: %w", domain.ErrInvalidInput)
	}

	res := domain.Resolution{
		MarketAddress:      addr,
		WinningOptionIndex: winningOptionIndex,
		StoredAt:           time.Now().UTC(),
	}

	if err := s.store.Set(ctx, res); err != nil {
		return domain.Resolution{}, fmt.Errorf("resolution_service: store %s: %w", addr, err)
	}

	s.logger.InfoContext(ctx, "resolution stored",
		slog.String("market", addr),
		slog.Int64("winning_option", winningOptionIndex),
	)

	s.announce(ctx, res)

	return res, nil
}

// Lookup returns the stored resolution for a market. domain.ErrNotFound
// passes through untouched; an unresolved market is a normal state, not a
// fault.
func (s *ResolutionService) Lookup(ctx context.Context, marketAddress string) (domain.Resolution, error) {
	addr := domain.NormalizeAddress(marketAddress)
	if addr == "" {
		return domain.Resolution{}, fmt.Errorf("resolution_service: market address is required: %w", domain.ErrInvalidInput)
	}

	res, err := s.store.Get(ctx, addr)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("resolution_service: lookup %s: %w", addr, err)
	}
	return res, nil
}

// announce fans a stored resolution out to the signal bus, the audit
// archive, and operator notifications. Each leg is independent and
// non-fatal.
func (s *ResolutionService) announce(ctx context.Context, res domain.Resolution) {
	event := domain.ResolutionEvent{
		MarketAddress:      res.MarketAddress,
		WinningOptionIndex: res.WinningOptionIndex,
		StoredAt:           res.StoredAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal resolution event failed",
			slog.String("market", res.MarketAddress),
			slog.String("error", err.Error()),
		)
		return
	}

	if s.bus != nil {
		if err := s.bus.Publish(ctx, domain.ResolutionChannel, payload); err != nil {
			s.logger.WarnContext(ctx, "resolution event publish failed",
				slog.String("market", res.MarketAddress),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.archive != nil {
		path := domain.AuditEventPath(res.MarketAddress, res.StoredAt)
		if err := s.archive.Put(ctx, path, bytes.NewReader(payload), "application/json"); err != nil {
			s.logger.WarnContext(ctx, "resolution archive write failed",
				slog.String("market", res.MarketAddress),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		title := "Market resolved"
		message := fmt.Sprintf("Market %s resolved with winning option %d.",
			res.MarketAddress, res.WinningOptionIndex)
		if err := s.notifier.Notify(ctx, eventResolution, title, message); err != nil {
			s.logger.WarnContext(ctx, "resolution notification failed",
				slog.String("market", res.MarketAddress),
				slog.String("error", err.Error()),
			)
		}
	}
}
