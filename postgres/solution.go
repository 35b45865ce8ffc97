package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/ost"
)

const solutionCols = `id, name, status, x_position, y_position, opportunity_id`

func scanSolution(row pgx.Row) (*ost.Solution, error) {
	var sol ost.Solution
	if err := row.Scan(&sol.ID, &sol.Name, &sol.Status, &sol.X, &sol.Y, &sol.OpportunityID); err != nil {
		return nil, err
	}
	return &sol, nil
}

// ListSolutions returns all solutions, ordered by created_at.
func (s *PGStore) ListSolutions(ctx context.Context) ([]ost.Solution, error) {
	rows, err := s.db.Query(ctx, `SELECT `+solutionCols+` FROM solutions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ost: list solutions: %w", err)
	}
	defer rows.Close()

	solutions := []ost.Solution{}
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("ost: scan solution: %w", err)
		}
		solutions = append(solutions, *sol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ost: rows solutions: %w", err)
	}

	return solutions, nil
}

// CreateSolution inserts a solution under its opportunity.
// Returns ErrInvalidParent if the opportunity doesn't exist.
func (s *PGStore) CreateSolution(ctx context.Context, sol ost.Solution) (*ost.Solution, error) {
	if sol.ID == "" {
		sol.ID = uuid.NewString()
	}
	if sol.Status == "" {
		sol.Status = ost.StatusBacklog
	}

	out, err := scanSolution(s.db.QueryRow(ctx,
		`INSERT INTO solutions (id, name, status, x_position, y_position, opportunity_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+solutionCols,
		sol.ID, sol.Name, sol.Status, sol.X, sol.Y, sol.OpportunityID,
	))
	if err != nil {
		return nil, wrapWrite("insert solution", err)
	}
	return out, nil
}

// UpdateSolution applies a partial update.
// Returns ErrNotFound if the solution doesn't exist.
func (s *PGStore) UpdateSolution(ctx context.Context, id string, p ost.SolutionPatch) (*ost.Solution, error) {
	var u updateSet
	addIf(&u, "name", p.Name)
	addIf(&u, "status", p.Status)
	addIf(&u, "x_position", p.X)
	addIf(&u, "y_position", p.Y)
	addIf(&u, "opportunity_id", p.OpportunityID)

	var row pgx.Row
	if u.empty() {
		row = s.db.QueryRow(ctx, `SELECT `+solutionCols+` FROM solutions WHERE id = $1`, id)
	} else {
		q, args := u.sql("solutions", id, solutionCols)
		row = s.db.QueryRow(ctx, q, args...)
	}

	sol, err := scanSolution(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("ost: solution %s: %w", id, ost.ErrNotFound)
		}
		return nil, wrapWrite("update solution", err)
	}
	return sol, nil
}

// DeleteSolution deletes a solution by its ID.
// No error if the solution doesn't exist.
func (s *PGStore) DeleteSolution(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM solutions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ost: delete solution: %w", err)
	}
	return nil
}
