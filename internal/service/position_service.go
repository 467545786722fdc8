package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/alanyoungcy/lpbot/internal/valuation"
)

// PoolQuery is the read side of the settlement chain.
type PoolQuery interface {
	PoolSnapshot(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error)
	PositionRecord(ctx context.Context, asset domain.Asset, assetAddress, runeAddress string) (domain.LiquidityPositionRecord, error)
	BlockHeight(ctx context.Context) (int64, error)
}

// PositionService values liquidity positions and serves pool views.
type PositionService struct {
	pools    PoolQuery
	valuator *valuation.Valuator
	cache    domain.PoolCache
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewPositionService creates a PositionService.
func NewPositionService(pools PoolQuery, valuator *valuation.Valuator, logger *slog.Logger) *PositionService {
	return &PositionService{
		pools:    pools,
		valuator: valuator,
		logger:   logger.With(slog.String("component", "position_service")),
	}
}

// WithPoolCache lets Pool serve snapshots up to ttl old. Positions are always
// valued against fresh state.
func (s *PositionService) WithPoolCache(cache domain.PoolCache, ttl time.Duration) *PositionService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// CheckPosition loads the provider's record, the pool and the current block
// height in parallel and values the position. Staged pools are valued too.
func (s *PositionService) CheckPosition(ctx context.Context, asset domain.Asset, assetAddress, runeAddress string) (domain.LiquidityPosition, error) {
	var (
		rec    domain.LiquidityPositionRecord
		snap   domain.PoolSnapshot
		height int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = s.pools.PositionRecord(gctx, asset, assetAddress, runeAddress)
		return err
	})
	g.Go(func() error {
		var err error
		snap, err = s.pools.PoolSnapshot(gctx, asset)
		if errors.Is(err, domain.ErrPoolStaged) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		var err error
		height, err = s.pools.BlockHeight(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("position_service: check %s: %w", asset, err)
	}

	pos, err := s.valuator.ComputePosition(rec, snap, height)
	if err != nil {
		return domain.LiquidityPosition{}, fmt.Errorf("position_service: value %s: %w", asset, err)
	}

	s.logger.DebugContext(ctx, "position valued",
		slog.String("pool", asset.String()),
		slog.String("asset_share", pos.AssetShare.String()),
		slog.String("rune_share", pos.RuneShare.String()),
		slog.String("ilp", pos.ILP.Protection.String()),
	)
	return pos, nil
}

// Pool returns the pool snapshot, from the cache when one is configured and
// fresh. Staged pools are returned without error.
func (s *PositionService) Pool(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error) {
	if s.cache != nil {
		snap, err := s.cache.GetPool(ctx, asset)
		if err == nil {
			return snap, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "pool cache read failed",
				slog.String("pool", asset.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	snap, err := s.pools.PoolSnapshot(ctx, asset)
	if err != nil && !errors.Is(err, domain.ErrPoolStaged) {
		return domain.PoolSnapshot{}, fmt.Errorf("position_service: pool %s: %w", asset, err)
	}

	if s.cache != nil {
		if err := s.cache.SetPool(ctx, snap, s.cacheTTL); err != nil {
			s.logger.WarnContext(ctx, "pool cache write failed",
				slog.String("pool", asset.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return snap, nil
}
