package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/ost"
)

// ListEvidence returns all evidence with its interview, ordered by created_at.
func (s *PGStore) ListEvidence(ctx context.Context) ([]ost.Evidence, error) {
	rows, err := s.db.Query(ctx, `
SELECT e.id, e.interview_id, e.type, e.content,
       i.id, i.title, i.interviewee, i.conducted_at, i.notes
FROM evidence e
JOIN interviews i ON i.id = e.interview_id
ORDER BY e.created_at`)
	if err != nil {
		return nil, fmt.Errorf("ost: list evidence: %w", err)
	}
	defer rows.Close()

	evidence := []ost.Evidence{}
	for rows.Next() {
		var e ost.Evidence
		var iv ost.Interview
		if err := rows.Scan(&e.ID, &e.InterviewID, &e.Type, &e.Content,
			&iv.ID, &iv.Title, &iv.Interviewee, &iv.ConductedAt, &iv.Notes); err != nil {
			return nil, fmt.Errorf("ost: scan evidence: %w", err)
		}
		e.Interview = &iv
		evidence = append(evidence, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ost: rows evidence: %w", err)
	}

	return evidence, nil
}

// CreateEvidence inserts evidence for an existing interview.
// Returns ErrInvalidParent if the interview doesn't exist.
func (s *PGStore) CreateEvidence(ctx context.Context, e ost.Evidence) (*ost.Evidence, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var out ost.Evidence
	err := s.db.QueryRow(ctx,
		`INSERT INTO evidence (id, interview_id, type, content) VALUES ($1, $2, $3, $4)
		 RETURNING id, interview_id, type, content`,
		e.ID, e.InterviewID, e.Type, e.Content,
	).Scan(&out.ID, &out.InterviewID, &out.Type, &out.Content)
	if err != nil {
		return nil, wrapWrite("insert evidence", err)
	}
	return &out, nil
}

// UpdateEvidence applies a partial update.
// Returns ErrNotFound if the evidence doesn't exist.
func (s *PGStore) UpdateEvidence(ctx context.Context, id string, p ost.EvidencePatch) (*ost.Evidence, error) {
	var u updateSet
	addIf(&u, "interview_id", p.InterviewID)
	addIf(&u, "type", p.Type)
	addIf(&u, "content", p.Content)

	const cols = `id, interview_id, type, content`
	var out ost.Evidence
	var err error
	if u.empty() {
		err = s.db.QueryRow(ctx, `SELECT `+cols+` FROM evidence WHERE id = $1`, id).
			Scan(&out.ID, &out.InterviewID, &out.Type, &out.Content)
	} else {
		q, args := u.sql("evidence", id, cols)
		err = s.db.QueryRow(ctx, q, args...).Scan(&out.ID, &out.InterviewID, &out.Type, &out.Content)
	}
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("ost: evidence %s: %w", id, ost.ErrNotFound)
		}
		return nil, wrapWrite("update evidence", err)
	}
	return &out, nil
}

// DeleteEvidence deletes evidence and, by cascade, its opportunity links.
// No error if the evidence doesn't exist.
func (s *PGStore) DeleteEvidence(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM evidence WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ost: delete evidence: %w", err)
	}
	return nil
}
