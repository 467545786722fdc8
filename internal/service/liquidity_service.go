// Package service wires the liquidity coordinator and the position valuator
// to the process's storage, messaging and alerting infrastructure.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// Coordinator runs liquidity actions.
type Coordinator interface {
	AddLiquidityPosition(ctx context.Context, req domain.AddLiquidityRequest) (domain.Outcome, error)
	WithdrawLiquidityPosition(ctx context.Context, req domain.WithdrawLiquidityRequest) (domain.Outcome, error)
	SizeSymmetricAdd(ctx context.Context, asset domain.Amount) (domain.AddLiquidityRequest, error)
}

// Alerter notifies operators about a finished action.
type Alerter interface {
	NotifyAction(ctx context.Context, rec domain.ActionRecord) error
}

// ActionResult is an outcome together with its journal id.
type ActionResult struct {
	ID      string
	Outcome domain.Outcome
}

// recordTimeout bounds the best-effort bookkeeping after an action.
const recordTimeout = 10 * time.Second

// LiquidityService runs add and withdraw actions under a per-pool lock and
// journals every outcome. Journaling, events and alerts are best-effort:
// their failures are logged and never change what the caller sees.
type LiquidityService struct {
	coord   Coordinator
	locks   domain.LockManager
	lockTTL time.Duration
	actions domain.ActionStore
	audit   domain.AuditStore
	bus     domain.SignalBus
	alerts  Alerter
	logger  *slog.Logger
	now     func() time.Time
}

// NewLiquidityService creates a LiquidityService. lockTTL should outlive the
// coordinator's observation timeout.
func NewLiquidityService(coord Coordinator, lockTTL time.Duration, logger *slog.Logger) *LiquidityService {
	if lockTTL <= 0 {
		lockTTL = 15 * time.Minute
	}
	return &LiquidityService{
		coord:   coord,
		lockTTL: lockTTL,
		logger:  logger.With(slog.String("component", "liquidity_service")),
		now:     time.Now,
	}
}

// WithLocks serialises actions per pool across processes.
func (s *LiquidityService) WithLocks(locks domain.LockManager) *LiquidityService {
	s.locks = locks
	return s
}

// WithJournal persists outcomes and audit entries.
func (s *LiquidityService) WithJournal(actions domain.ActionStore, audit domain.AuditStore) *LiquidityService {
	s.actions = actions
	s.audit = audit
	return s
}

// WithBus publishes an ActionEvent after every action.
func (s *LiquidityService) WithBus(bus domain.SignalBus) *LiquidityService {
	s.bus = bus
	return s
}

// WithAlerts sends outcomes to operators.
func (s *LiquidityService) WithAlerts(alerts Alerter) *LiquidityService {
	s.alerts = alerts
	return s
}

// AddLiquidity runs an add under the pool lock and journals the outcome.
func (s *LiquidityService) AddLiquidity(ctx context.Context, req domain.AddLiquidityRequest) (ActionResult, error) {
	return s.run(ctx, domain.ActionAdd, req.Pool, func(ctx context.Context) (domain.Outcome, error) {
		return s.coord.AddLiquidityPosition(ctx, req)
	})
}

// AddSymmetric sizes the rune side from the current pool ratio, then adds.
func (s *LiquidityService) AddSymmetric(ctx context.Context, asset domain.Amount) (ActionResult, error) {
	req, err := s.coord.SizeSymmetricAdd(ctx, asset)
	if err != nil {
		return ActionResult{}, fmt.Errorf("liquidity_service: size add: %w", err)
	}
	return s.AddLiquidity(ctx, req)
}

// WithdrawLiquidity runs a withdraw under the pool lock and journals the
// outcome.
func (s *LiquidityService) WithdrawLiquidity(ctx context.Context, req domain.WithdrawLiquidityRequest) (ActionResult, error) {
	return s.run(ctx, domain.ActionWithdraw, req.Pool, func(ctx context.Context) (domain.Outcome, error) {
		return s.coord.WithdrawLiquidityPosition(ctx, req)
	})
}

func (s *LiquidityService) run(
	ctx context.Context,
	action domain.ActionKind,
	pool domain.Asset,
	fn func(context.Context) (domain.Outcome, error),
) (ActionResult, error) {
	if s.locks != nil && !pool.IsZero() {
		unlock, err := s.locks.Acquire(ctx, "pool:"+pool.String(), s.lockTTL)
		if err != nil {
			out := domain.Outcome{Action: action, Pool: pool, Status: domain.OutcomeFailed}
			return ActionResult{Outcome: out}, fmt.Errorf("liquidity_service: %s %s: %w", action, pool, err)
		}
		defer unlock()
	}

	out, err := fn(ctx)
	id := uuid.NewString()
	s.record(ctx, id, out, err)

	if err != nil {
		return ActionResult{ID: id, Outcome: out}, fmt.Errorf("liquidity_service: %s %s: %w", action, pool, err)
	}
	return ActionResult{ID: id, Outcome: out}, nil
}

// record journals, publishes and alerts. Requests rejected by validation are
// only logged.
func (s *LiquidityService) record(ctx context.Context, id string, out domain.Outcome, actionErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	logger := s.logger.With(
		slog.String("action_id", id),
		slog.String("action", string(out.Action)),
		slog.String("pool", out.Pool.String()),
		slog.String("status", string(out.Status)),
	)
	switch {
	case domain.IsPartial(actionErr):
		logger.ErrorContext(ctx, "liquidity action partially committed", slog.String("error", actionErr.Error()))
	case actionErr != nil:
		logger.WarnContext(ctx, "liquidity action failed", slog.String("error", actionErr.Error()))
	default:
		logger.InfoContext(ctx, "liquidity action completed", slog.Any("tx_ids", out.TxIDs()))
	}

	if out.Stage == "" {
		return
	}

	rec := domain.NewActionRecord(id, out, actionErr, s.now())

	if s.actions != nil {
		if err := s.actions.Create(ctx, rec); err != nil {
			logger.WarnContext(ctx, "journal action failed", slog.String("error", err.Error()))
		}
	}
	if s.audit != nil {
		if err := s.audit.Log(ctx, "liquidity."+string(out.Action), map[string]any{
			"id":     id,
			"pool":   rec.Pool,
			"mode":   string(rec.Mode),
			"status": string(rec.Status),
			"tx_ids": out.TxIDs(),
		}); err != nil {
			logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		s.publish(ctx, logger, rec, out)
	}
	if s.alerts != nil {
		if err := s.alerts.NotifyAction(ctx, rec); err != nil {
			logger.WarnContext(ctx, "alert failed", slog.String("error", err.Error()))
		}
	}
}

func (s *LiquidityService) publish(ctx context.Context, logger *slog.Logger, rec domain.ActionRecord, out domain.Outcome) {
	evt, err := json.Marshal(domain.ActionEvent{
		ID:         rec.ID,
		Action:     rec.Action,
		Pool:       rec.Pool,
		Mode:       rec.Mode,
		Status:     rec.Status,
		TxIDs:      out.TxIDs(),
		Error:      rec.Error,
		OccurredAt: rec.CreatedAt,
	})
	if err != nil {
		logger.WarnContext(ctx, "marshal action event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelLiquidityAction, evt); err != nil {
		logger.WarnContext(ctx, "publish action event failed", slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, domain.StreamLiquidityAction, evt); err != nil {
		logger.WarnContext(ctx, "append action event failed", slog.String("error", err.Error()))
	}
}
