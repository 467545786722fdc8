package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// WithdrawLiquidityPosition files a single withdraw instruction. It goes out
// on the pool's asset chain when an asset address is given, otherwise on the
// settlement chain. The filing-side address must be the wallet's own address
// on that chain, since the settlement chain identifies the position by its
// sender. With both addresses the rune address rides in the memo.
func (c *Coordinator) WithdrawLiquidityPosition(ctx context.Context, req domain.WithdrawLiquidityRequest) (domain.Outcome, error) {
	out := domain.Outcome{Action: domain.ActionWithdraw, Pool: req.Pool}

	bps, err := req.BasisPoints()
	if err != nil {
		return fail(out, fmt.Errorf("liquidity: %w", err))
	}
	mode, err := req.Mode()
	if err != nil {
		return fail(out, fmt.Errorf("liquidity: %w", err))
	}
	if req.Pool.IsZero() || req.Pool.IsRune() {
		return fail(out, fmt.Errorf("liquidity: withdraw from %q: %w", req.Pool, domain.ErrInvalidRequest))
	}
	out.Mode = mode
	out.Stage = domain.StageValidated

	l := &leg{role: domain.LegRoleRune, chain: domain.ChainTHOR}
	owner, counter := req.RuneAddress, ""
	if req.AssetAddress != "" {
		l.role = domain.LegRoleAsset
		l.chain = req.Pool.Chain
		owner = req.AssetAddress
		if mode == domain.ModeSymmetric {
			counter = req.RuneAddress
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.pools.PoolSnapshot(gctx, req.Pool)
		if err != nil && !errors.Is(err, domain.ErrPoolStaged) {
			return fmt.Errorf("liquidity: withdraw: %w", err)
		}
		return nil
	})
	g.Go(func() error { return c.resolve(gctx, l) })
	if err := g.Wait(); err != nil {
		return fail(out, err)
	}
	if !strings.EqualFold(owner, l.from) {
		return fail(out, fmt.Errorf("liquidity: withdraw: %s address %q is not the wallet's %s address %q: %w",
			l.role, owner, l.chain, l.from, domain.ErrInvalidRequest))
	}
	out.Stage = domain.StageAddressesResolved

	l.amount = withdrawAmount(l)
	l.memo = WithdrawMemo(req.Pool, bps, counter)
	out.Stage = domain.StageMemoBuilt
	c.logger.Debug("withdraw memo built",
		slog.String("pool", req.Pool.String()),
		slog.String("memo", l.memo),
	)

	out.Stage = domain.StageDispatching
	res := c.dispatch(ctx, domain.ActionWithdraw, req.Pool, l)
	out.Legs = append(out.Legs, res)
	if res.Err != nil {
		return fail(out, legErr(res))
	}
	return c.done(out), nil
}

// withdrawAmount is the inbound dust threshold in the chain's gas asset, or
// zero rune for a native deposit.
func withdrawAmount(l *leg) domain.Amount {
	if l.chain == domain.ChainTHOR {
		return domain.ZeroAmount(domain.AssetRune)
	}
	gas := domain.GasAsset(l.chain)
	dust := l.inbound.DustThreshold
	if dust.Asset().IsZero() {
		return domain.ZeroAmount(gas)
	}
	return dust.Convert(gas.Decimals)
}
