// Package liquidity orchestrates adding and withdrawing pool liquidity across
// the asset chain and the settlement chain.
package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// PoolReader is the read side the coordinator needs from the pool query
// adapter.
type PoolReader interface {
	PoolSnapshot(ctx context.Context, asset domain.Asset) (domain.PoolSnapshot, error)
	PoolRatio(ctx context.Context, asset domain.Asset) (domain.PoolRatio, error)
	InboundAddress(ctx context.Context, chain domain.Chain) (domain.InboundAddress, error)
}

// Wallet resolves addresses and broadcasts deposits per chain.
type Wallet interface {
	Address(ctx context.Context, chain domain.Chain) (string, error)
	BuildAndBroadcast(ctx context.Context, chain domain.Chain, d domain.Deposit) (string, error)
}

// Config tunes the coordinator.
type Config struct {
	// ObserveTimeout bounds the wait between the asset leg and the rune leg
	// of a symmetric add.
	ObserveTimeout time.Duration
}

// Coordinator runs one add or withdraw per call. It keeps no state between
// calls, never retries and never deduplicates.
type Coordinator struct {
	pools    PoolReader
	wallet   Wallet
	observer LegObserver
	cfg      Config
	now      func() time.Time
	logger   *slog.Logger
}

// NewCoordinator creates a Coordinator. A nil observer means the rune leg
// follows the asset leg without waiting.
func NewCoordinator(pools PoolReader, wallet Wallet, observer LegObserver, cfg Config, logger *slog.Logger) *Coordinator {
	if observer == nil {
		observer = DelayObserver{}
	}
	if cfg.ObserveTimeout <= 0 {
		cfg.ObserveTimeout = 10 * time.Minute
	}
	return &Coordinator{
		pools:    pools,
		wallet:   wallet,
		observer: observer,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "coordinator")),
	}
}

// leg is a planned chain transaction.
type leg struct {
	role    domain.LegRole
	chain   domain.Chain
	amount  domain.Amount
	from    string
	inbound domain.InboundAddress
	memo    string
}

func (l *leg) result() domain.LegResult {
	return domain.LegResult{
		Role:   l.role,
		Chain:  l.chain,
		From:   l.from,
		To:     l.inbound.Address,
		Amount: l.amount,
		Memo:   l.memo,
	}
}

// resolve fills in the leg's sender address and, off the settlement chain,
// its inbound vault. Nothing is attempted on failure, so errors match
// domain.ErrAddressResolutionFailed rather than a leg error.
func (c *Coordinator) resolve(ctx context.Context, l *leg) error {
	addr, err := c.wallet.Address(ctx, l.chain)
	if err != nil {
		return fmt.Errorf("liquidity: %s address on %s: %w: %w", l.role, l.chain, domain.ErrAddressResolutionFailed, err)
	}
	l.from = addr

	if l.chain == domain.ChainTHOR {
		return nil
	}
	in, err := c.pools.InboundAddress(ctx, l.chain)
	if err != nil {
		return fmt.Errorf("liquidity: %s inbound vault on %s: %w: %w", l.role, l.chain, domain.ErrAddressResolutionFailed, err)
	}
	l.inbound = in
	return nil
}

// dispatch broadcasts one leg. Broadcast errors come back as *domain.LegError.
func (c *Coordinator) dispatch(ctx context.Context, action domain.ActionKind, pool domain.Asset, l *leg) domain.LegResult {
	res := l.result()
	res.Attempted = true
	res.SubmittedAt = c.now().UTC()

	txID, err := c.wallet.BuildAndBroadcast(ctx, l.chain, domain.Deposit{
		From:   l.from,
		To:     l.inbound.Address,
		Router: l.inbound.Router,
		Amount: l.amount,
		Memo:   l.memo,
	})
	if err != nil {
		res.Err = &domain.LegError{Role: l.role, Chain: l.chain, Stage: domain.StageDispatching, Err: err}
		c.logger.Error("leg dispatch failed",
			slog.String("action", string(action)),
			slog.String("pool", pool.String()),
			slog.String("role", string(l.role)),
			slog.String("chain", string(l.chain)),
			slog.String("error", err.Error()),
		)
		return res
	}

	res.TxID = txID
	c.logger.Info("leg dispatched",
		slog.String("action", string(action)),
		slog.String("pool", pool.String()),
		slog.String("role", string(l.role)),
		slog.String("chain", string(l.chain)),
		slog.String("amount", l.amount.String()),
		slog.String("tx_id", txID),
	)
	return res
}

// legErr extracts the *domain.LegError of a failed leg result.
func legErr(res domain.LegResult) *domain.LegError {
	var le *domain.LegError
	if errors.As(res.Err, &le) {
		return le
	}
	return &domain.LegError{Role: res.Role, Chain: res.Chain, Stage: domain.StageDispatching, Err: res.Err}
}

// fail marks out as failed at its current stage.
func fail(out domain.Outcome, err error) (domain.Outcome, error) {
	out.Status = domain.OutcomeFailed
	return out, err
}
