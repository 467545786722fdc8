package liquidity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// LegObserver blocks until the settlement chain has seen a submitted leg.
// Implementations must return promptly when ctx is done.
type LegObserver interface {
	WaitObserved(ctx context.Context, leg domain.LegResult) error
}

// PollObserver polls the settlement chain's tx status for the leg.
type PollObserver struct {
	txs      domain.TxObserver
	interval time.Duration
	logger   *slog.Logger
}

// NewPollObserver creates a PollObserver checking every interval.
func NewPollObserver(txs domain.TxObserver, interval time.Duration, logger *slog.Logger) *PollObserver {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PollObserver{
		txs:      txs,
		interval: interval,
		logger:   logger.With(slog.String("component", "leg_observer")),
	}
}

func (o *PollObserver) WaitObserved(ctx context.Context, leg domain.LegResult) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		seen, err := o.txs.InboundObserved(ctx, leg.TxID)
		switch {
		case err != nil && ctx.Err() == nil:
			// Status lookups are reads; keep polling until the deadline.
			o.logger.Warn("tx status lookup failed",
				slog.String("tx_id", leg.TxID),
				slog.String("error", err.Error()),
			)
		case seen:
			o.logger.Debug("inbound observed", slog.String("tx_id", leg.TxID), slog.String("chain", string(leg.Chain)))
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("liquidity: observe %s: %w", leg.TxID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// DelayObserver waits a fixed, conservative delay.
type DelayObserver struct {
	Delay time.Duration
}

func (o DelayObserver) WaitObserved(ctx context.Context, _ domain.LegResult) error {
	if o.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("liquidity: observe delay: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

var (
	_ LegObserver = (*PollObserver)(nil)
	_ LegObserver = DelayObserver{}
)
