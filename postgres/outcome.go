package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/ost"
)

const outcomeCols = `id, name, status, target_metric, current_value, x_position, y_position`

func scanOutcome(row pgx.Row) (*ost.Outcome, error) {
	var o ost.Outcome
	if err := row.Scan(&o.ID, &o.Name, &o.Status, &o.TargetMetric, &o.CurrentValue, &o.X, &o.Y); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOutcomes returns all outcomes, ordered by created_at.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListOutcomes(ctx context.Context) ([]ost.Outcome, error) {
	rows, err := s.db.Query(ctx, `SELECT `+outcomeCols+` FROM outcomes ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ost: list outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []ost.Outcome{}
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, fmt.Errorf("ost: scan outcome: %w", err)
		}
		outcomes = append(outcomes, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ost: rows outcomes: %w", err)
	}

	return outcomes, nil
}

// CreateOutcome inserts an outcome.
// If o.ID is empty, a UUID is auto-generated.
func (s *PGStore) CreateOutcome(ctx context.Context, o ost.Outcome) (*ost.Outcome, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = ost.OutcomeOnTrack
	}

	out, err := scanOutcome(s.db.QueryRow(ctx,
		`INSERT INTO outcomes (id, name, status, target_metric, current_value, x_position, y_position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+outcomeCols,
		o.ID, o.Name, o.Status, o.TargetMetric, o.CurrentValue, o.X, o.Y,
	))
	if err != nil {
		return nil, wrapWrite("insert outcome", err)
	}
	return out, nil
}

// UpdateOutcome applies a partial update.
// Returns ErrNotFound if the outcome doesn't exist.
func (s *PGStore) UpdateOutcome(ctx context.Context, id string, p ost.OutcomePatch) (*ost.Outcome, error) {
	var u updateSet
	addIf(&u, "name", p.Name)
	addIf(&u, "status", p.Status)
	addIf(&u, "target_metric", p.TargetMetric)
	addOptional(&u, "current_value", p.CurrentValue)
	addIf(&u, "x_position", p.X)
	addIf(&u, "y_position", p.Y)

	var row pgx.Row
	if u.empty() {
		row = s.db.QueryRow(ctx, `SELECT `+outcomeCols+` FROM outcomes WHERE id = $1`, id)
	} else {
		q, args := u.sql("outcomes", id, outcomeCols)
		row = s.db.QueryRow(ctx, q, args...)
	}

	o, err := scanOutcome(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("ost: outcome %s: %w", id, ost.ErrNotFound)
		}
		return nil, wrapWrite("update outcome", err)
	}
	return o, nil
}

// DeleteOutcome deletes an outcome by its ID.
// Its opportunities are cascade-deleted by the DB.
// No error if the outcome doesn't exist.
func (s *PGStore) DeleteOutcome(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM outcomes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ost: delete outcome: %w", err)
	}
	return nil
}
