// Package config defines the resolution relay configuration and its
// validation rules.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by RELAY_* environment variables.
type Config struct {
	Chain     ChainConfig     `toml:"chain"`
	Server    ServerConfig    `toml:"server"`
	Store     StoreConfig     `toml:"store"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Assets    AssetsConfig    `toml:"assets"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	WS        WSConfig        `toml:"ws"`
	Notify    NotifyConfig    `toml:"notify"`
	S3        S3Config        `toml:"s3"`
	LogLevel  string          `toml:"log_level"`
}

// ChainConfig holds the JSON-RPC endpoint the relay reads market state from.
type ChainConfig struct {
	RPCURL      string   `toml:"rpc_url"`
	CallTimeout duration `toml:"call_timeout"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// APISecret guards POST /resolve-market. Accepts either the plaintext
	// secret or its bcrypt hash. Empty leaves the endpoint open.
	APISecret string `toml:"api_secret"`
}

// StoreConfig selects the resolution store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis", or "postgres".
	Backend string `toml:"backend"`
}

// RedisConfig holds Redis connection parameters, used when redis is the
// store backend and for the rate limiter and signal bus.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	PoolSize int    `toml:"pool_size"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// AssetsConfig controls where tier and outcome images resolve to.
type AssetsConfig struct {
	// BaseURI prefixes every generated asset URI.
	BaseURI string `toml:"base_uri"`

	// Overrides pins individual asset keys to explicit URIs.
	Overrides map[string]string `toml:"overrides"`
}

// RateLimitConfig throttles public endpoints per client IP. Requires Redis.
type RateLimitConfig struct {
	Enabled  bool     `toml:"enabled"`
	Requests int      `toml:"requests"`
	Window   duration `toml:"window"`
}

// WSConfig controls the WebSocket resolution feed.
type WSConfig struct {
	Enabled bool `toml:"enabled"`
}

// NotifyConfig holds operator alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// S3Config holds the audit archive object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// duration wraps time.Duration so the TOML decoder can parse strings like
// "5m" or "30s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values a bare deployment
// starts from. The chain RPC URL carries no default; it must be configured.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			CallTimeout: duration{10 * time.Second},
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Store: StoreConfig{
			Backend: "memory",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Assets: AssetsConfig{
			BaseURI:   "https://assets.bbh233.xyz/positions",
			Overrides: map[string]string{},
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 20,
			Window:   duration{time.Second},
		},
		WS: WSConfig{
			Enabled: false,
		},
		Notify: NotifyConfig{
			Events: []string{"resolution"},
		},
		S3: S3Config{
			Enabled:        false,
			Region:         "us-east-1",
			ForcePathStyle: true,
		},
		LogLevel: "info",
	}
}

// validBackends enumerates the accepted values for Store.Backend.
var validBackends = map[string]bool{
	"memory":   true,
	"redis":    true,
	"postgres": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found. An empty api_secret is
// deliberately not an error; the caller warns and runs the resolver
// endpoint open.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		errs = append(errs, "chain: rpc_url is required")
	}
	if c.Chain.CallTimeout.Duration <= 0 {
		errs = append(errs, "chain: call_timeout must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	backend := strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: memory, redis, postgres)", c.Store.Backend))
	}

	needsRedis := backend == "redis" || c.RateLimit.Enabled
	if needsRedis {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if backend == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if strings.TrimSpace(c.Assets.BaseURI) == "" {
		errs = append(errs, "assets: base_uri must not be empty")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Requests < 1 {
			errs = append(errs, "ratelimit: requests must be >= 1 when enabled")
		}
		if c.RateLimit.Window.Duration <= 0 {
			errs = append(errs, "ratelimit: window must be positive when enabled")
		}
	}

	tgToken := c.Notify.TelegramToken != ""
	tgChat := c.Notify.TelegramChatID != ""
	if tgToken != tgChat {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when enabled")
		}
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
