package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	s3blob "github.com/alanyoungcy/lpbot/internal/blob/s3"
	"github.com/alanyoungcy/lpbot/internal/cache/redis"
	"github.com/alanyoungcy/lpbot/internal/chain/evm"
	"github.com/alanyoungcy/lpbot/internal/chain/remote"
	"github.com/alanyoungcy/lpbot/internal/config"
	"github.com/alanyoungcy/lpbot/internal/crypto"
	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/liquidity"
	"github.com/alanyoungcy/lpbot/internal/notify"
	"github.com/alanyoungcy/lpbot/internal/platform/thornode"
	"github.com/alanyoungcy/lpbot/internal/poolquery"
	"github.com/alanyoungcy/lpbot/internal/server/handler"
	"github.com/alanyoungcy/lpbot/internal/service"
	"github.com/alanyoungcy/lpbot/internal/store/postgres"
	"github.com/alanyoungcy/lpbot/internal/valuation"
	"github.com/alanyoungcy/lpbot/internal/wallet"
)

// Dependencies bundles everything the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Settlement chain
	THORNode    *thornode.Client
	Pools       *poolquery.Adapter
	Wallet      *wallet.Wallet
	Coordinator *liquidity.Coordinator

	// Services
	Liquidity *service.LiquidityService
	Positions *service.PositionService
	Reports   *service.ReportService // nil without postgres

	// Stores (nil when supabase is disabled)
	ActionStore domain.ActionStore
	AuditStore  domain.AuditStore

	// Caches (nil when redis is disabled)
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus
	PoolCache   domain.PoolCache

	// Blob storage (nil when s3 is disabled). The reader serves stored
	// reports over the API.
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// HealthChecks pings every wired backing service.
	HealthChecks map[string]handler.HealthCheck
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	deps := &Dependencies{HealthChecks: map[string]handler.HealthCheck{}}

	// --- PostgreSQL action journal ---
	if cfg.Supabase.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:            cfg.Supabase.DSN,
			Host:           cfg.Supabase.Host,
			Port:           cfg.Supabase.Port,
			Database:       cfg.Supabase.Database,
			User:           cfg.Supabase.User,
			Password:       cfg.Supabase.Password,
			SSLMode:        cfg.Supabase.SSLMode,
			MaxConns:       cfg.Supabase.PoolMaxConns,
			MinConns:       cfg.Supabase.PoolMinConns,
			ConnectRetries: cfg.Supabase.ConnectRetries,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Supabase.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		pool := pgClient.Pool()
		deps.ActionStore = postgres.NewActionStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient, cfg.THORNode.RateLimit, cfg.THORNode.RateWindow.Duration)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.PoolCache = redis.NewPoolCache(redisClient)
		deps.HealthChecks["redis"] = redisClient.Ping
	}

	// --- S3 blob storage ---
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
			return fail(fmt.Errorf("wire: s3: %w", err))
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		if deps.ActionStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.ActionStore, deps.AuditStore)
		}
		deps.HealthChecks["s3"] = s3Client.Health
	}

	// --- Settlement chain ---
	deps.THORNode = thornode.NewClient(cfg.THORNode.URL, cfg.THORNode.ClientID, cfg.THORNode.Timeout.Duration)
	deps.Pools = poolquery.NewAdapter(deps.THORNode, deps.RateLimiter, logger)

	// --- Chain clients ---
	clients, closeChains, err := wireChains(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeChains)

	deps.Wallet, err = wallet.New(logger, clients...)
	if err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}

	// --- Coordinator ---
	var observer liquidity.LegObserver
	switch cfg.Coordinator.Observer {
	case config.ObserverDelay:
		observer = liquidity.DelayObserver{Delay: cfg.Coordinator.Delay.Duration}
	default:
		observer = liquidity.NewPollObserver(deps.THORNode, cfg.Coordinator.PollInterval.Duration, logger)
	}
	deps.Coordinator = liquidity.NewCoordinator(deps.Pools, deps.Wallet, observer, liquidity.Config{
		ObserveTimeout: cfg.Coordinator.ObserveTimeout.Duration,
	}, logger)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Services ---
	deps.Liquidity = service.NewLiquidityService(deps.Coordinator, cfg.Coordinator.LockTTL.Duration, logger).
		WithAlerts(deps.Notifier)
	if deps.LockManager != nil {
		deps.Liquidity.WithLocks(deps.LockManager)
	}
	if deps.ActionStore != nil {
		deps.Liquidity.WithJournal(deps.ActionStore, deps.AuditStore)
	}
	if deps.SignalBus != nil {
		deps.Liquidity.WithBus(deps.SignalBus)
	}

	valuator := valuation.NewValuator(valuation.Params{
		BlocksPerDay:         cfg.Valuation.BlocksPerDay,
		FullProtectionBlocks: cfg.Valuation.FullProtectionBlocks,
	})
	deps.Positions = service.NewPositionService(deps.Pools, valuator, logger)
	if deps.PoolCache != nil {
		deps.Positions.WithPoolCache(deps.PoolCache, cfg.Redis.PoolTTL.Duration)
	}

	if deps.ActionStore != nil {
		deps.Reports = service.NewReportService(deps.ActionStore, deps.BlobWriter, logger)
		if deps.BlobReader != nil {
			deps.Reports.WithReader(deps.BlobReader)
		}
	}

	return deps, cleanup, nil
}

// wireChains builds one client per configured chain in ticker order. EVM
// chains share a single signing key.
func wireChains(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]domain.ChainClient, func(), error) {
	var (
		clients []domain.ChainClient
		closers []func()
		signer  *crypto.TxSigner
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var auth *crypto.HMACAuth
	if cfg.Signer.APIKey != "" {
		auth = &crypto.HMACAuth{Key: cfg.Signer.APIKey, Secret: cfg.Signer.APISecret}
	}

	names := make([]string, 0, len(cfg.Chains))
	for name := range cfg.Chains {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ch := cfg.Chains[name]
		chain := domain.Chain(strings.ToUpper(name))

		switch ch.Type {
		case config.ChainTypeEVM:
			if signer == nil {
				key, err := crypto.LoadKey(crypto.KeyConfig{
					RawPrivateKey:    cfg.Wallet.PrivateKey,
					EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
					KeyPassword:      cfg.Wallet.KeyPassword,
				})
				if err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: wallet key: %w", err)
				}
				if signer, err = crypto.NewTxSigner(key); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: wallet signer: %w", err)
				}
			}
			c, err := evm.Dial(ctx, chain, ch.RPCURL, signer, logger)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: %w", err)
			}
			closers = append(closers, c.Close)
			clients = append(clients, c)

		case config.ChainTypeRemote:
			clients = append(clients, remote.NewClient(chain, cfg.Signer.URL, auth, cfg.Signer.Timeout.Duration, logger))

		default:
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain %s: unknown type %q", name, ch.Type)
		}

		logger.Debug("chain client configured", slog.String("chain", name), slog.String("type", ch.Type))
	}

	return clients, cleanup, nil
}
