package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/ost"
)

const interviewCols = `id, title, interviewee, conducted_at, notes`

func scanInterview(row pgx.Row) (*ost.Interview, error) {
	var i ost.Interview
	if err := row.Scan(&i.ID, &i.Title, &i.Interviewee, &i.ConductedAt, &i.Notes); err != nil {
		return nil, err
	}
	return &i, nil
}

// ListInterviews returns all interviews, ordered by created_at.
func (s *PGStore) ListInterviews(ctx context.Context) ([]ost.Interview, error) {
	rows, err := s.db.Query(ctx, `SELECT `+interviewCols+` FROM interviews ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ost: list interviews: %w", err)
	}
	defer rows.Close()

	interviews := []ost.Interview{}
	for rows.Next() {
		i, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("ost: scan interview: %w", err)
		}
		interviews = append(interviews, *i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ost: rows interviews: %w", err)
	}

	return interviews, nil
}

// CreateInterview inserts an interview.
func (s *PGStore) CreateInterview(ctx context.Context, i ost.Interview) (*ost.Interview, error) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	out, err := scanInterview(s.db.QueryRow(ctx,
		`INSERT INTO interviews (id, title, interviewee, conducted_at, notes)
		 VALUES ($1, $2, $3, $4, $5) RETURNING `+interviewCols,
		i.ID, i.Title, i.Interviewee, i.ConductedAt, i.Notes,
	))
	if err != nil {
		return nil, wrapWrite("insert interview", err)
	}
	return out, nil
}

// UpdateInterview applies a partial update.
// Returns ErrNotFound if the interview doesn't exist.
func (s *PGStore) UpdateInterview(ctx context.Context, id string, p ost.InterviewPatch) (*ost.Interview, error) {
	var u updateSet
	addIf(&u, "title", p.Title)
	addIf(&u, "interviewee", p.Interviewee)
	addOptional(&u, "conducted_at", p.ConductedAt)
	addIf(&u, "notes", p.Notes)

	var row pgx.Row
	if u.empty() {
		row = s.db.QueryRow(ctx, `SELECT `+interviewCols+` FROM interviews WHERE id = $1`, id)
	} else {
		q, args := u.sql("interviews", id, interviewCols)
		row = s.db.QueryRow(ctx, q, args...)
	}

	i, err := scanInterview(row)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("ost: interview %s: %w", id, ost.ErrNotFound)
		}
		return nil, wrapWrite("update interview", err)
	}
	return i, nil
}

// DeleteInterview deletes an interview and, by cascade, its evidence.
// No error if the interview doesn't exist.
func (s *PGStore) DeleteInterview(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM interviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ost: delete interview: %w", err)
	}
	return nil
}
