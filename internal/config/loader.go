package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies RELAY_* environment variable overrides, and
// returns the final Config. An empty path skips the file and configures
// purely from defaults plus the environment. The returned Config has NOT
// been validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env if present; silently ignore when missing.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known RELAY_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Chain.RPCURL, "RELAY_CHAIN_RPC_URL")
	setDuration(&cfg.Chain.CallTimeout, "RELAY_CHAIN_CALL_TIMEOUT")

	setInt(&cfg.Server.Port, "RELAY_SERVER_PORT")
	setStr(&cfg.Server.APISecret, "RELAY_SERVER_API_SECRET")
	setStringSlice(&cfg.Server.CORSOrigins, "RELAY_SERVER_CORS_ORIGINS")

	setStr(&cfg.Store.Backend, "RELAY_STORE_BACKEND")

	setStr(&cfg.Redis.Addr, "RELAY_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "RELAY_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "RELAY_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "RELAY_REDIS_POOL_SIZE")

	setStr(&cfg.Postgres.DSN, "RELAY_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "RELAY_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "RELAY_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "RELAY_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "RELAY_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "RELAY_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "RELAY_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "RELAY_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "RELAY_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "RELAY_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Assets.BaseURI, "RELAY_ASSETS_BASE_URI")

	setBool(&cfg.RateLimit.Enabled, "RELAY_RATELIMIT_ENABLED")
	setInt(&cfg.RateLimit.Requests, "RELAY_RATELIMIT_REQUESTS")
	setDuration(&cfg.RateLimit.Window, "RELAY_RATELIMIT_WINDOW")

	setBool(&cfg.WS.Enabled, "RELAY_WS_ENABLED")

	setStr(&cfg.Notify.TelegramToken, "RELAY_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "RELAY_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "RELAY_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "RELAY_NOTIFY_EVENTS")

	setBool(&cfg.S3.Enabled, "RELAY_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "RELAY_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "RELAY_S3_REGION")
	setStr(&cfg.S3.Bucket, "RELAY_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "RELAY_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "RELAY_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "RELAY_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "RELAY_S3_FORCE_PATH_STYLE")

	setStr(&cfg.LogLevel, "RELAY_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
