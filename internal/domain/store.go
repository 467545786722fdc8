package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// LegRecord is the persisted form of one LegResult.
type LegRecord struct {
	Role        LegRole   `json:"role"`
	Chain       Chain     `json:"chain"`
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Amount      string    `json:"amount"`
	Memo        string    `json:"memo"`
	TxID        string    `json:"tx_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempted   bool      `json:"attempted"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// ActionRecord is the journaled form of one liquidity action.
type ActionRecord struct {
	ID        string        `json:"id"`
	Action    ActionKind    `json:"action"`
	Pool      string        `json:"pool"`
	Mode      Mode          `json:"mode"`
	Status    OutcomeStatus `json:"status"`
	Stage     Stage         `json:"stage"`
	Legs      []LegRecord   `json:"legs"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewActionRecord flattens an outcome and its error for storage.
func NewActionRecord(id string, out Outcome, err error, now time.Time) ActionRecord {
	rec := ActionRecord{
		ID:        id,
		Action:    out.Action,
		Pool:      out.Pool.String(),
		Mode:      out.Mode,
		Status:    out.Status,
		Stage:     out.Stage,
		Legs:      make([]LegRecord, 0, len(out.Legs)),
		CreatedAt: now.UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	for _, l := range out.Legs {
		lr := LegRecord{
			Role:        l.Role,
			Chain:       l.Chain,
			From:        l.From,
			To:          l.To,
			Amount:      l.Amount.String(),
			Memo:        l.Memo,
			TxID:        l.TxID,
			Attempted:   l.Attempted,
			SubmittedAt: l.SubmittedAt,
		}
		if l.Err != nil {
			lr.Error = l.Err.Error()
		}
		rec.Legs = append(rec.Legs, lr)
	}
	return rec
}

// ActionStore persists the liquidity action journal.
type ActionStore interface {
	Create(ctx context.Context, rec ActionRecord) error
	GetByID(ctx context.Context, id string) (ActionRecord, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]ActionRecord, error)
	ListByStatus(ctx context.Context, status OutcomeStatus, opts ListOpts) ([]ActionRecord, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
