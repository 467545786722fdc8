// Package config defines the top-level configuration for the liquidity bot
// and provides validation helpers.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by LPBOT_* environment variables.
type Config struct {
	THORNode    THORNodeConfig         `toml:"thornode"`
	Wallet      WalletConfig           `toml:"wallet"`
	Signer      SignerConfig           `toml:"signer"`
	Chains      map[string]ChainConfig `toml:"chains"`
	Coordinator CoordinatorConfig      `toml:"coordinator"`
	Valuation   ValuationConfig        `toml:"valuation"`
	Supabase    SupabaseConfig         `toml:"supabase"`
	Redis       RedisConfig            `toml:"redis"`
	S3          S3Config               `toml:"s3"`
	Server      ServerConfig           `toml:"server"`
	Notify      NotifyConfig           `toml:"notify"`
	Log         LogConfig              `toml:"log"`
	Mode        string                 `toml:"mode"`
	LogLevel    string                 `toml:"log_level"`
}

// THORNodeConfig points at the settlement chain's query API.
type THORNodeConfig struct {
	URL      string   `toml:"url"`
	ClientID string   `toml:"client_id"`
	Timeout  duration `toml:"timeout"`
	// RateLimit requests per RateWindow are shared by every process using the
	// same Redis. Ignored when Redis is disabled.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// WalletConfig holds the EVM signing key used by "evm" chains.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// SignerConfig points at the signing daemon used by "remote" chains.
type SignerConfig struct {
	URL       string   `toml:"url"`
	APIKey    string   `toml:"api_key"`
	APISecret string   `toml:"api_secret"`
	Timeout   duration `toml:"timeout"`
}

// Chain client types.
const (
	ChainTypeEVM    = "evm"
	ChainTypeRemote = "remote"
)

// ChainConfig enables one chain, keyed by its ticker (THOR, ETH, BTC...).
type ChainConfig struct {
	Type   string `toml:"type"`
	RPCURL string `toml:"rpc_url"`
}

// Observation strategies.
const (
	ObserverPoll  = "poll"
	ObserverDelay = "delay"
)

// CoordinatorConfig tunes the add/withdraw state machine.
type CoordinatorConfig struct {
	ObserveTimeout duration `toml:"observe_timeout"`
	Observer       string   `toml:"observer"`
	PollInterval   duration `toml:"poll_interval"`
	Delay          duration `toml:"delay"`
	// LockTTL bounds the per-pool lock; it must outlive ObserveTimeout.
	LockTTL duration `toml:"lock_ttl"`
}

// ValuationConfig holds impermanent-loss protection constants.
type ValuationConfig struct {
	BlocksPerDay         int64 `toml:"blocks_per_day"`
	FullProtectionBlocks int64 `toml:"full_protection_blocks"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters for the
// action journal.
type SupabaseConfig struct {
	Enabled        bool   `toml:"enabled"`
	DSN            string `toml:"dsn"`
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	Database       string `toml:"database"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	SSLMode        string `toml:"ssl_mode"`
	PoolMaxConns   int    `toml:"pool_max_conns"`
	PoolMinConns   int    `toml:"pool_min_conns"`
	ConnectRetries int    `toml:"connect_retries"`
	RunMigrations  bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool     `toml:"enabled"`
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	PoolTTL    duration `toml:"pool_ttl"`
}

// S3Config holds S3-compatible object storage parameters for reports and
// journal archives.
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

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	APIKey      string   `toml:"api_key"`
	CORSOrigins []string `toml:"cors_origins"`
	// RequestsPerMinute is the per-client limit on the HTTP API.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// LogConfig adds an optional rotating log file next to stdout.
type LogConfig struct {
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		THORNode: THORNodeConfig{
			URL:        "https://thornode.ninerealms.com",
			ClientID:   "lpbot",
			Timeout:    duration{30 * time.Second},
			RateLimit:  10,
			RateWindow: duration{time.Second},
		},
		Signer: SignerConfig{
			Timeout: duration{30 * time.Second},
		},
		Chains: map[string]ChainConfig{},
		Coordinator: CoordinatorConfig{
			ObserveTimeout: duration{10 * time.Minute},
			Observer:       ObserverPoll,
			PollInterval:   duration{6 * time.Second},
			Delay:          duration{90 * time.Second},
			LockTTL:        duration{15 * time.Minute},
		},
		Valuation: ValuationConfig{
			BlocksPerDay:         14_400,
			FullProtectionBlocks: 1_440_000,
		},
		Supabase: SupabaseConfig{
			Enabled:        false,
			Host:           "localhost",
			Port:           5432,
			Database:       "postgres",
			User:           "postgres",
			SSLMode:        "disable",
			PoolMaxConns:   5,
			PoolMinConns:   1,
			ConnectRetries: 3,
			RunMigrations:  true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
			PoolTTL:    duration{15 * time.Second},
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "lpbot-reports",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:              8000,
			CORSOrigins:       []string{"http://localhost:3000"},
			RequestsPerMinute: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"partial_success"},
		},
		Log: LogConfig{
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve":    true,
	"position": true,
	"add":      true,
	"withdraw": true,
	"report":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ChainNames returns the configured chain tickers, sorted and upper-cased.
func (c *Config) ChainNames() []string {
	names := make([]string, 0, len(c.Chains))
	for name := range c.Chains {
		names = append(names, strings.ToUpper(name))
	}
	sort.Strings(names)
	return names
}

// ChainsOfType reports whether any configured chain uses the client type.
func (c *Config) ChainsOfType(typ string) bool {
	for _, ch := range c.Chains {
		if strings.EqualFold(ch.Type, typ) {
			return true
		}
	}
	return false
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, position, add, withdraw, report)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// THORNode
	if c.THORNode.URL == "" {
		errs = append(errs, "thornode: url must not be empty")
	}
	if c.THORNode.Timeout.Duration <= 0 {
		errs = append(errs, "thornode: timeout must be > 0")
	}

	// Chains
	for name, ch := range c.Chains {
		switch strings.ToLower(ch.Type) {
		case ChainTypeEVM:
			if ch.RPCURL == "" {
				errs = append(errs, fmt.Sprintf("chains.%s: rpc_url is required for evm chains", name))
			}
		case ChainTypeRemote:
		default:
			errs = append(errs, fmt.Sprintf("chains.%s: unknown type %q (valid: evm, remote)", name, ch.Type))
		}
	}
	if c.ChainsOfType(ChainTypeEVM) {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for evm chains")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}
	if c.ChainsOfType(ChainTypeRemote) && c.Signer.URL == "" {
		errs = append(errs, "signer: url is required for remote chains")
	}
	needsChains := c.Mode == "add" || c.Mode == "withdraw"
	if needsChains && len(c.Chains) == 0 {
		errs = append(errs, "chains: at least one chain must be configured for mode "+c.Mode)
	}

	// Coordinator
	if c.Coordinator.ObserveTimeout.Duration <= 0 {
		errs = append(errs, "coordinator: observe_timeout must be > 0")
	}
	switch c.Coordinator.Observer {
	case ObserverPoll:
		if c.Coordinator.PollInterval.Duration <= 0 {
			errs = append(errs, "coordinator: poll_interval must be > 0")
		}
	case ObserverDelay:
		if c.Coordinator.Delay.Duration <= 0 {
			errs = append(errs, "coordinator: delay must be > 0")
		}
	default:
		errs = append(errs, fmt.Sprintf("coordinator: unknown observer %q (valid: poll, delay)", c.Coordinator.Observer))
	}
	if c.Coordinator.LockTTL.Duration <= c.Coordinator.ObserveTimeout.Duration {
		errs = append(errs, "coordinator: lock_ttl must exceed observe_timeout")
	}

	// Valuation
	if c.Valuation.BlocksPerDay <= 0 {
		errs = append(errs, "valuation: blocks_per_day must be > 0")
	}
	if c.Valuation.FullProtectionBlocks <= 0 {
		errs = append(errs, "valuation: full_protection_blocks must be > 0")
	}

	// Supabase
	if c.Supabase.Enabled {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}
	if c.Mode == "report" && !c.Supabase.Enabled {
		errs = append(errs, "supabase: must be enabled for mode report")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	// Server
	if c.Mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
