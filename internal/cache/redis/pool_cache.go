package redis

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// PoolCache implements domain.PoolCache using Redis hashes at
// "pool:{CHAIN.SYMBOL}". Depths are stored as settlement-precision base
// units, so a read yields exactly the snapshot that was written.
type PoolCache struct {
	rdb *redis.Client
}

// NewPoolCache creates a PoolCache backed by the given Client.
func NewPoolCache(c *Client) *PoolCache {
	return &PoolCache{rdb: c.Underlying()}
}

func poolKey(asset domain.Asset) string {
	return "pool:" + asset.String()
}

// SetPool stores snap for ttl.
func (pc *PoolCache) SetPool(ctx context.Context, snap domain.PoolSnapshot, ttl time.Duration) error {
	key := poolKey(snap.Asset)
	fields := map[string]interface{}{
		"decimals":    strconv.Itoa(int(snap.Asset.Decimals)),
		"asset_depth": snap.AssetDepth.Base().String(),
		"rune_depth":  snap.RuneDepth.Base().String(),
		"units":       snap.PoolUnits.String(),
		"status":      string(snap.Status),
		"ts":          strconv.FormatInt(snap.FetchedAt.UnixNano(), 10),
	}

	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set pool %s: %w", snap.Asset, err)
	}
	return nil
}

// GetPool returns the cached snapshot for asset, or domain.ErrNotFound.
func (pc *PoolCache) GetPool(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error) {
	vals, err := pc.rdb.HGetAll(ctx, poolKey(asset)).Result()
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: get pool %s: %w", asset, err)
	}
	if len(vals) == 0 {
		return domain.PoolSnapshot{}, domain.ErrNotFound
	}

	dec, err := strconv.ParseInt(vals["decimals"], 10, 32)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: parse pool decimals %s: %w", asset, err)
	}
	asset = asset.WithDecimals(int32(dec))

	assetBase, ok := new(big.Int).SetString(vals["asset_depth"], 10)
	if !ok {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: parse asset depth %s: %q", asset, vals["asset_depth"])
	}
	runeBase, ok := new(big.Int).SetString(vals["rune_depth"], 10)
	if !ok {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: parse rune depth %s: %q", asset, vals["rune_depth"])
	}
	units, err := decimal.NewFromString(vals["units"])
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: parse units %s: %w", asset, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.PoolSnapshot{}, fmt.Errorf("redis: parse ts %s: %w", asset, err)
	}

	return domain.PoolSnapshot{
		Asset:      asset,
		AssetDepth: domain.AmountFromBase(asset.WithDecimals(domain.SettlementDecimals), assetBase),
		RuneDepth:  domain.AmountFromBase(domain.AssetRune, runeBase),
		PoolUnits:  units,
		Status:     domain.PoolStatus(vals["status"]),
		FetchedAt:  time.Unix(0, tsNano),
	}, nil
}

// Compile-time interface check.
var _ domain.PoolCache = (*PoolCache)(nil)
