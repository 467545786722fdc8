package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies LPBOT_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	normaliseChains(&cfg)

	return &cfg, nil
}

// normaliseChains upper-cases chain keys and lower-cases client types so
// "eth" and "ETH" name the same chain.
func normaliseChains(cfg *Config) {
	chains := make(map[string]ChainConfig, len(cfg.Chains))
	for name, ch := range cfg.Chains {
		ch.Type = strings.ToLower(strings.TrimSpace(ch.Type))
		chains[strings.ToUpper(strings.TrimSpace(name))] = ch
	}
	cfg.Chains = chains
}

// applyEnvOverrides reads well-known LPBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── THORNode ──
	setStr(&cfg.THORNode.URL, "LPBOT_THORNODE_URL")
	setStr(&cfg.THORNode.ClientID, "LPBOT_THORNODE_CLIENT_ID")
	setDuration(&cfg.THORNode.Timeout, "LPBOT_THORNODE_TIMEOUT")
	setInt(&cfg.THORNode.RateLimit, "LPBOT_THORNODE_RATE_LIMIT")
	setDuration(&cfg.THORNode.RateWindow, "LPBOT_THORNODE_RATE_WINDOW")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "LPBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "LPBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "LPBOT_WALLET_KEY_PASSWORD")

	// ── Signer ──
	setStr(&cfg.Signer.URL, "LPBOT_SIGNER_URL")
	setStr(&cfg.Signer.APIKey, "LPBOT_SIGNER_API_KEY")
	setStr(&cfg.Signer.APISecret, "LPBOT_SIGNER_API_SECRET")
	setDuration(&cfg.Signer.Timeout, "LPBOT_SIGNER_TIMEOUT")

	// ── Chains ── only RPC URLs of chains already in the file.
	for name, ch := range cfg.Chains {
		setStr(&ch.RPCURL, "LPBOT_CHAINS_"+strings.ToUpper(name)+"_RPC_URL")
		cfg.Chains[name] = ch
	}

	// ── Coordinator ──
	setDuration(&cfg.Coordinator.ObserveTimeout, "LPBOT_COORDINATOR_OBSERVE_TIMEOUT")
	setStr(&cfg.Coordinator.Observer, "LPBOT_COORDINATOR_OBSERVER")
	setDuration(&cfg.Coordinator.PollInterval, "LPBOT_COORDINATOR_POLL_INTERVAL")
	setDuration(&cfg.Coordinator.Delay, "LPBOT_COORDINATOR_DELAY")
	setDuration(&cfg.Coordinator.LockTTL, "LPBOT_COORDINATOR_LOCK_TTL")

	// ── Valuation ──
	setInt64(&cfg.Valuation.BlocksPerDay, "LPBOT_VALUATION_BLOCKS_PER_DAY")
	setInt64(&cfg.Valuation.FullProtectionBlocks, "LPBOT_VALUATION_FULL_PROTECTION_BLOCKS")

	// ── Supabase ──
	setBool(&cfg.Supabase.Enabled, "LPBOT_SUPABASE_ENABLED")
	setStr(&cfg.Supabase.DSN, "LPBOT_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "LPBOT_SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "LPBOT_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "LPBOT_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "LPBOT_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "LPBOT_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "LPBOT_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "LPBOT_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "LPBOT_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "LPBOT_SUPABASE_POOL_MIN_CONNS")
	setInt(&cfg.Supabase.ConnectRetries, "LPBOT_SUPABASE_CONNECT_RETRIES")
	setBool(&cfg.Supabase.RunMigrations, "LPBOT_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "LPBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "LPBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "LPBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "LPBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "LPBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "LPBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "LPBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.PoolTTL, "LPBOT_REDIS_POOL_TTL")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "LPBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "LPBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "LPBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "LPBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "LPBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "LPBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "LPBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "LPBOT_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "LPBOT_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "LPBOT_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "LPBOT_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RequestsPerMinute, "LPBOT_SERVER_REQUESTS_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "LPBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "LPBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "LPBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "LPBOT_NOTIFY_EVENTS")

	// ── Log ──
	setStr(&cfg.Log.File, "LPBOT_LOG_FILE")

	// ── Top-level ──
	setStr(&cfg.Mode, "LPBOT_MODE")
	setStr(&cfg.LogLevel, "LPBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
