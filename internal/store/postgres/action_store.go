package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/lpbot/internal/domain"
)

// ActionStore implements domain.ActionStore using PostgreSQL. Legs are kept
// as a JSONB array on the action row.
type ActionStore struct {
	pool *pgxpool.Pool
}

// NewActionStore creates a new ActionStore backed by the given connection pool.
func NewActionStore(pool *pgxpool.Pool) *ActionStore {
	return &ActionStore{pool: pool}
}

// Create journals one finished liquidity action.
func (s *ActionStore) Create(ctx context.Context, rec domain.ActionRecord) error {
	legsJSON, err := json.Marshal(rec.Legs)
	if err != nil {
		return fmt.Errorf("postgres: marshal legs %s: %w", rec.ID, err)
	}

	const query = `
		INSERT INTO liquidity_actions (
			id, action, pool, mode, status, stage, legs, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.pool.Exec(ctx, query,
		rec.ID, string(rec.Action), rec.Pool, string(rec.Mode),
		string(rec.Status), string(rec.Stage), legsJSON, rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create action %s: %w", rec.ID, err)
	}
	return nil
}

const actionSelectCols = `id, action, pool, mode, status, stage, legs, error, created_at`

func scanAction(scanner interface{ Scan(dest ...any) error }) (domain.ActionRecord, error) {
	var rec domain.ActionRecord
	var action, mode, status, stage string
	var legsJSON []byte

	if err := scanner.Scan(
		&rec.ID, &action, &rec.Pool, &mode, &status, &stage,
		&legsJSON, &rec.Error, &rec.CreatedAt,
	); err != nil {
		return domain.ActionRecord{}, err
	}

	rec.Action = domain.ActionKind(action)
	rec.Mode = domain.Mode(mode)
	rec.Status = domain.OutcomeStatus(status)
	rec.Stage = domain.Stage(stage)
	if len(legsJSON) > 0 {
		if err := json.Unmarshal(legsJSON, &rec.Legs); err != nil {
			return domain.ActionRecord{}, fmt.Errorf("unmarshal legs: %w", err)
		}
	}
	return rec, nil
}

// GetByID returns one action or domain.ErrNotFound.
func (s *ActionStore) GetByID(ctx context.Context, id string) (domain.ActionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+actionSelectCols+` FROM liquidity_actions WHERE id = $1`, id)

	rec, err := scanAction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ActionRecord{}, domain.ErrNotFound
		}
		return domain.ActionRecord{}, fmt.Errorf("postgres: get action %s: %w", id, err)
	}
	return rec, nil
}

// ListRecent returns actions newest first.
func (s *ActionStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	query, args := applyListOpts(`SELECT `+actionSelectCols+` FROM liquidity_actions WHERE 1=1`, nil, 1, opts)
	return s.list(ctx, "recent", query, args)
}

// ListByStatus returns actions with the given terminal status, newest first.
// The reconciliation report uses it to find partial successes.
func (s *ActionStore) ListByStatus(ctx context.Context, status domain.OutcomeStatus, opts domain.ListOpts) ([]domain.ActionRecord, error) {
	query, args := applyListOpts(
		`SELECT `+actionSelectCols+` FROM liquidity_actions WHERE status = $1`,
		[]any{string(status)}, 2, opts)
	return s.list(ctx, string(status), query, args)
}

func (s *ActionStore) list(ctx context.Context, what, query string, args []any) ([]domain.ActionRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list %s actions: %w", what, err)
	}
	defer rows.Close()

	var out []domain.ActionRecord
	for rows.Next() {
		rec, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan action: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list %s actions rows: %w", what, err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.ActionStore = (*ActionStore)(nil)
