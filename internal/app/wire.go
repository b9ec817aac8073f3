package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/bbh233/backend/internal/blob/s3"
	"github.com/bbh233/backend/internal/cache/redis"
	"github.com/bbh233/backend/internal/chain"
	"github.com/bbh233/backend/internal/config"
	"github.com/bbh233/backend/internal/domain"
	"github.com/bbh233/backend/internal/metadata"
	"github.com/bbh233/backend/internal/notify"
	"github.com/bbh233/backend/internal/store/memory"
	"github.com/bbh233/backend/internal/store/postgres"
)

// Dependencies bundles every concrete dependency the relay needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// StoreBackend is the normalized name of the active resolution store.
	StoreBackend string

	Store    domain.ResolutionStore
	Reader   *chain.Reader
	Renderer *metadata.Renderer

	// Bus is non-nil when Redis is connected; it carries resolution events
	// across instances.
	Bus domain.SignalBus

	// Limiter is non-nil when the rate limit is enabled.
	Limiter domain.RateLimiter

	// CompactionLock is non-nil when Redis is connected; it keeps multiple
	// relay instances from compacting the same month concurrently.
	CompactionLock domain.LockManager

	// Archive and Compactor are non-nil when the S3 audit archive is
	// enabled.
	Archive   domain.BlobWriter
	Compactor *s3blob.Compactor

	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to call
// on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		StoreBackend: strings.ToLower(strings.TrimSpace(cfg.Store.Backend)),
	}

	// --- Chain reader ---
	chainClient, err := chain.New(ctx, chain.ClientConfig{
		RPCURL:      cfg.Chain.RPCURL,
		CallTimeout: cfg.Chain.CallTimeout.Duration,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: chain: %w", err)
	}
	closers = append(closers, chainClient.Close)
	deps.Reader = chain.NewReader(chainClient)

	assets := metadata.DefaultAssets(cfg.Assets.BaseURI, cfg.Assets.Overrides)
	deps.Renderer = metadata.NewRenderer(deps.Reader, assets)

	// --- Redis (store backend, rate limiter, signal bus) ---
	if deps.StoreBackend == "redis" || cfg.RateLimit.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Bus = redis.NewSignalBus(redisClient)
		deps.CompactionLock = redis.NewLockManager(redisClient)
		if cfg.RateLimit.Enabled {
			deps.Limiter = redis.NewRateLimiter(redisClient)
		}
		if deps.StoreBackend == "redis" {
			deps.Store = redis.NewResolutionStore(redisClient)
		}
	}

	// --- Postgres store backend ---
	if deps.StoreBackend == "postgres" {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Store = postgres.NewResolutionStore(pgClient.Pool())
	}

	// Memory is both the default and the fallback name.
	if deps.Store == nil {
		deps.Store = memory.NewResolutionStore()
		deps.StoreBackend = "memory"
	}

	// --- S3 audit archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archive = s3blob.NewWriter(s3Client)
		deps.Compactor = s3blob.NewCompactor(s3Client, logger)
	}

	// --- Operator notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
