// Package app owns the relay's lifecycle. It wires the chain reader, the
// resolution store, the HTTP server, and the optional WebSocket, archive,
// and notification components, then runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	s3blob "github.com/bbh233/backend/internal/blob/s3"
	"github.com/bbh233/backend/internal/config"
	"github.com/bbh233/backend/internal/domain"
	"github.com/bbh233/backend/internal/server"
	"github.com/bbh233/backend/internal/server/handler"
	"github.com/bbh233/backend/internal/server/ws"
	"github.com/bbh233/backend/internal/service"
)

const (
	// compactionInterval is how often the audit compactor checks for a
	// finished month to bundle.
	compactionInterval = 24 * time.Hour

	// compactionLockTTL bounds how long one instance may hold the
	// compaction lock before it expires on its own.
	compactionLockTTL = 15 * time.Minute
)

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the HTTP server and background
// components, and blocks until ctx is cancelled or a component fails. On
// return the caller should invoke Close.
func (a *App) Run(ctx context.Context) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	a.logger.InfoContext(ctx, "starting relay",
		slog.String("store", deps.StoreBackend),
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("ws", a.cfg.WS.Enabled),
		slog.Bool("archive", deps.Archive != nil),
	)

	var hub *ws.Hub
	if a.cfg.WS.Enabled {
		hub = ws.NewHub(deps.Bus, a.logger, ws.Config{
			StoreBackend: deps.StoreBackend,
			StartedAt:    time.Now().UTC(),
		})
	}

	// Events go through Redis when connected so every instance sees them;
	// otherwise the hub itself is the publisher.
	var publisher service.EventPublisher
	switch {
	case deps.Bus != nil:
		publisher = deps.Bus
	case hub != nil:
		publisher = hub
	}

	svc := service.NewResolutionService(deps.Store, publisher, deps.Archive, deps.Notifier, a.logger)

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(deps.StoreBackend),
		Metadata:   handler.NewMetadataHandler(deps.Renderer, a.logger),
		Resolution: handler.NewResolutionHandler(svc, a.logger),
	}

	srv := server.New(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APISecret:       a.cfg.Server.APISecret,
		RateLimit:       a.cfg.RateLimit.Requests,
		RateLimitWindow: a.cfg.RateLimit.Window.Duration,
	}, handlers, hub, deps.Limiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if hub != nil {
		g.Go(func() error { return hub.Run(ctx) })
	}

	if deps.Compactor != nil {
		g.Go(func() error {
			a.runCompactor(ctx, deps.Compactor, deps.CompactionLock)
			return nil
		})
	}

	return g.Wait()
}

// runCompactor periodically bundles the previous month's audit records.
// Compaction failures are logged and retried on the next tick.
func (a *App) runCompactor(ctx context.Context, compactor *s3blob.Compactor, lock domain.LockManager) {
	ticker := time.NewTicker(compactionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.compactPreviousMonth(ctx, compactor, lock)
		}
	}
}

// compactPreviousMonth bundles last month's audit records, holding the
// distributed lock when one is available so only one instance does the work.
func (a *App) compactPreviousMonth(ctx context.Context, compactor *s3blob.Compactor, lock domain.LockManager) {
	month := previousMonth(time.Now().UTC())

	if lock != nil {
		unlock, err := lock.Acquire(ctx, "audit-compaction", compactionLockTTL)
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.DebugContext(ctx, "audit compaction running elsewhere",
				slog.String("month", month.Format("2006-01")),
			)
			return
		}
		if err != nil {
			a.logger.WarnContext(ctx, "audit compaction lock failed",
				slog.String("error", err.Error()),
			)
			return
		}
		defer unlock()
	}

	if _, err := compactor.CompactMonth(ctx, month); err != nil {
		a.logger.WarnContext(ctx, "audit compaction failed",
			slog.String("month", month.Format("2006-01")),
			slog.String("error", err.Error()),
		)
	}
}

// previousMonth returns an instant inside the month before now.
func previousMonth(now time.Time) time.Time {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0)
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down relay")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
