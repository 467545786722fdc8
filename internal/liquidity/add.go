package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// AddLiquidityPosition deposits req into its pool.
//
// A symmetric add is two transactions: the asset leg is submitted and
// observed by the settlement chain before the rune leg is submitted. If the
// asset leg fails the rune leg is never attempted. If the rune leg fails after
// the asset leg committed, the outcome is partial_success and the returned
// error is a *domain.PartialError. Amounts are sent exactly as given.
func (c *Coordinator) AddLiquidityPosition(ctx context.Context, req domain.AddLiquidityRequest) (domain.Outcome, error) {
	out := domain.Outcome{Action: domain.ActionAdd, Pool: req.Pool}

	mode, err := req.Validate()
	if err != nil {
		return fail(out, fmt.Errorf("liquidity: %w", err))
	}
	out.Mode = mode
	out.Stage = domain.StageValidated

	var assetLeg, runeLeg *leg
	if req.Asset.IsPositive() {
		assetLeg = &leg{role: domain.LegRoleAsset, chain: req.Pool.Chain, amount: req.Asset}
	}
	if req.Rune.IsPositive() {
		runeLeg = &leg{role: domain.LegRoleRune, chain: domain.ChainTHOR, amount: req.Rune}
	}

	// Pool state and addresses are independent reads.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.pools.PoolSnapshot(gctx, req.Pool)
		if errors.Is(err, domain.ErrPoolStaged) {
			c.logger.Warn("adding to staged pool", slog.String("pool", req.Pool.String()))
			return nil
		}
		if err != nil {
			return fmt.Errorf("liquidity: add: %w", err)
		}
		return nil
	})
	for _, l := range []*leg{assetLeg, runeLeg} {
		if l == nil {
			continue
		}
		g.Go(func() error { return c.resolve(gctx, l) })
	}
	if err := g.Wait(); err != nil {
		return fail(out, err)
	}
	out.Stage = domain.StageAddressesResolved

	switch mode {
	case domain.ModeSymmetric:
		assetLeg.memo = AddMemo(req.Pool, runeLeg.from)
		runeLeg.memo = AddMemo(req.Pool, assetLeg.from)
	case domain.ModeAsymmetricAsset:
		assetLeg.memo = AddMemo(req.Pool, "")
	case domain.ModeAsymmetricRune:
		runeLeg.memo = AddMemo(req.Pool, "")
	}
	out.Stage = domain.StageMemoBuilt
	c.logger.Debug("add memos built",
		slog.String("pool", req.Pool.String()),
		slog.String("mode", string(mode)),
	)

	out.Stage = domain.StageDispatching
	if assetLeg == nil {
		res := c.submitRuneLeg(ctx, req.Pool, runeLeg)
		out.Legs = append(out.Legs, res)
		if res.Err != nil {
			return fail(out, legErr(res))
		}
		return c.done(out), nil
	}

	assetRes := c.submitAssetLeg(ctx, req.Pool, assetLeg)
	out.Legs = append(out.Legs, assetRes)
	if assetRes.Err != nil {
		return fail(out, legErr(assetRes))
	}
	if runeLeg == nil {
		return c.done(out), nil
	}

	out.Stage = domain.StageObserving
	if err := c.awaitObserved(ctx, assetRes); err != nil {
		skipped := runeLeg.result()
		skipped.Err = &domain.LegError{Role: domain.LegRoleRune, Chain: domain.ChainTHOR, Stage: domain.StageObserving, Err: err}
		out.Legs = append(out.Legs, skipped)
		return c.partial(out, assetRes, skipped)
	}

	out.Stage = domain.StageDispatching
	runeRes := c.submitRuneLeg(ctx, req.Pool, runeLeg)
	out.Legs = append(out.Legs, runeRes)
	if runeRes.Err != nil {
		return c.partial(out, assetRes, runeRes)
	}
	return c.done(out), nil
}

// submitAssetLeg must return before submitRuneLeg is called for the same add.
func (c *Coordinator) submitAssetLeg(ctx context.Context, pool domain.Asset, l *leg) domain.LegResult {
	return c.dispatch(ctx, domain.ActionAdd, pool, l)
}

// submitRuneLeg refuses to broadcast once ctx is done so a cancelled add never
// continues into its second leg.
func (c *Coordinator) submitRuneLeg(ctx context.Context, pool domain.Asset, l *leg) domain.LegResult {
	if err := ctx.Err(); err != nil {
		res := l.result()
		res.Err = &domain.LegError{Role: l.role, Chain: l.chain, Stage: domain.StageDispatching, Err: err}
		return res
	}
	return c.dispatch(ctx, domain.ActionAdd, pool, l)
}

// awaitObserved waits for the asset leg under ObserveTimeout. A deadline hit
// inside the wait is reported as ErrObservationTimeout; caller cancellation
// is reported as is.
func (c *Coordinator) awaitObserved(ctx context.Context, assetRes domain.LegResult) error {
	wctx, cancel := context.WithTimeout(ctx, c.cfg.ObserveTimeout)
	defer cancel()

	err := c.observer.WaitObserved(wctx, assetRes)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("asset tx %s after %s: %w", assetRes.TxID, c.cfg.ObserveTimeout, domain.ErrObservationTimeout)
	}
	return err
}

// SizeSymmetricAdd builds a symmetric request for asset with the rune side
// priced at the current pool ratio. It fails on an empty pool.
func (c *Coordinator) SizeSymmetricAdd(ctx context.Context, asset domain.Amount) (domain.AddLiquidityRequest, error) {
	pool := asset.Asset()
	ratio, err := c.pools.PoolRatio(ctx, pool)
	if err != nil {
		return domain.AddLiquidityRequest{}, fmt.Errorf("liquidity: size %s: %w", pool, err)
	}
	if !ratio.Defined {
		return domain.AddLiquidityRequest{}, fmt.Errorf("liquidity: size %s: pool ratio undefined: %w", pool, domain.ErrInvalidRequest)
	}

	runeDisplay := asset.Display().Mul(ratio.AssetToRune).Truncate(domain.AssetRune.Decimals)
	runeAmt, err := domain.NewAmount(domain.AssetRune, runeDisplay)
	if err != nil {
		return domain.AddLiquidityRequest{}, fmt.Errorf("liquidity: size %s: %w", pool, err)
	}
	return domain.AddLiquidityRequest{Pool: pool, Asset: asset, Rune: runeAmt}, nil
}

func (c *Coordinator) done(out domain.Outcome) domain.Outcome {
	out.Stage = domain.StageDone
	out.Status = domain.OutcomeSuccess
	return out
}

func (c *Coordinator) partial(out domain.Outcome, committed, failed domain.LegResult) (domain.Outcome, error) {
	out.Status = domain.OutcomePartialSuccess
	c.logger.Warn("add partially committed",
		slog.String("pool", out.Pool.String()),
		slog.String("asset_tx_id", committed.TxID),
		slog.String("error", failed.Err.Error()),
	)
	return out, &domain.PartialError{Committed: committed, Failed: legErr(failed)}
}
