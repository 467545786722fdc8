// Package poolquery reads pool, position and vault state from the settlement
// chain and maps transport errors to the liquidity error taxonomy.
package poolquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

const rateLimitKey = "thornode"

// Adapter is the pool query layer used by the coordinator and the position
// service. Every call goes to the source; nothing is cached.
type Adapter struct {
	source  domain.PoolSource
	limiter domain.RateLimiter
	logger  *slog.Logger
}

// NewAdapter creates an Adapter. limiter may be nil.
func NewAdapter(source domain.PoolSource, limiter domain.RateLimiter, logger *slog.Logger) *Adapter {
	return &Adapter{
		source:  source,
		limiter: limiter,
		logger:  logger.With(slog.String("component", "poolquery")),
	}
}

func (a *Adapter) throttle(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx, rateLimitKey); err != nil {
		return fmt.Errorf("poolquery: throttle: %w", err)
	}
	return nil
}

// PoolSnapshot returns fresh pool state. It fails with ErrPoolNotFound when
// the asset has no pool or the pool is suspended. A staged pool is returned
// together with an error matching ErrPoolStaged so the caller can decide.
func (a *Adapter) PoolSnapshot(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error) {
	if err := a.throttle(ctx); err != nil {
		return domain.PoolSnapshot{}, err
	}

	snap, err := a.source.Pool(ctx, asset)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PoolSnapshot{}, fmt.Errorf("poolquery: %s: %w", asset, domain.ErrPoolNotFound)
	}
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("poolquery: pool %s: %w", asset, err)
	}

	switch snap.Status {
	case domain.PoolStatusAvailable:
		return snap, nil
	case domain.PoolStatusStaged:
		return snap, fmt.Errorf("poolquery: %s: %w", asset, domain.ErrPoolStaged)
	default:
		return domain.PoolSnapshot{}, fmt.Errorf("poolquery: %s is %s: %w", asset, snap.Status, domain.ErrPoolNotFound)
	}
}

// PositionRecord looks the position up by rune address first, then by asset
// address, which is how the ledger keys symmetric and asset-only providers.
func (a *Adapter) PositionRecord(ctx context.Context, asset domain.Asset, assetAddress, runeAddress string) (domain.LiquidityPositionRecord, error) {
	if assetAddress == "" && runeAddress == "" {
		return domain.LiquidityPositionRecord{}, fmt.Errorf("poolquery: position %s: no address: %w", asset, domain.ErrInvalidRequest)
	}

	for _, addr := range []string{runeAddress, assetAddress} {
		if addr == "" {
			continue
		}
		if err := a.throttle(ctx); err != nil {
			return domain.LiquidityPositionRecord{}, err
		}

		rec, err := a.source.LiquidityProvider(ctx, asset, addr)
		if errors.Is(err, domain.ErrNotFound) {
			a.logger.Debug("no position under address", slog.String("pool", asset.String()), slog.String("address", addr))
			continue
		}
		if err != nil {
			return domain.LiquidityPositionRecord{}, fmt.Errorf("poolquery: position %s: %w", asset, err)
		}
		if rec.Units.IsZero() && rec.PendingAsset.IsZero() && rec.PendingRune.IsZero() {
			continue
		}
		return rec, nil
	}

	return domain.LiquidityPositionRecord{}, fmt.Errorf("poolquery: position %s: %w", asset, domain.ErrPositionNotFound)
}

// PoolRatio returns the pool's price relation. An empty pool yields
// domain.UndefinedRatio, not an error. A staged pool still has a ratio.
func (a *Adapter) PoolRatio(ctx context.Context, asset domain.Asset) (domain.PoolRatio, error) {
	snap, err := a.PoolSnapshot(ctx, asset)
	if err != nil && !errors.Is(err, domain.ErrPoolStaged) {
		return domain.UndefinedRatio, err
	}
	return snap.Ratio(), nil
}

// InboundAddress returns the vault for chain. The settlement chain itself has
// no inbound vault and must not be asked for one.
func (a *Adapter) InboundAddress(ctx context.Context, chain domain.Chain) (domain.InboundAddress, error) {
	if chain == domain.ChainTHOR {
		return domain.InboundAddress{}, fmt.Errorf("poolquery: %s has no inbound vault: %w", chain, domain.ErrInvalidRequest)
	}
	if err := a.throttle(ctx); err != nil {
		return domain.InboundAddress{}, err
	}

	addrs, err := a.source.InboundAddresses(ctx)
	if err != nil {
		return domain.InboundAddress{}, fmt.Errorf("poolquery: inbound addresses: %w", err)
	}
	for _, in := range addrs {
		if in.Chain == chain {
			if in.Halted {
				return in, fmt.Errorf("poolquery: inbound %s: %w", chain, domain.ErrChainHalted)
			}
			return in, nil
		}
	}
	return domain.InboundAddress{}, fmt.Errorf("poolquery: inbound %s: %w", chain, domain.ErrChainNotConfigured)
}

// BlockHeight returns the settlement chain height used for protection age.
func (a *Adapter) BlockHeight(ctx context.Context) (int64, error) {
	if err := a.throttle(ctx); err != nil {
		return 0, err
	}
	h, err := a.source.LastBlockHeight(ctx)
	if err != nil {
		return 0, fmt.Errorf("poolquery: block height: %w", err)
	}
	return h, nil
}
