package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/ost"
)

const opportunityCols = `id, name, status, x_position, y_position, outcome_id, parent_id, solution_candidates`

const evidenceLinkSQL = `
SELECT oe.opportunity_id, e.id, e.interview_id, e.type, e.content,
       i.id, i.title, i.interviewee, i.conducted_at, i.notes
FROM opportunity_evidence oe
JOIN evidence e   ON e.id = oe.evidence_id
JOIN interviews i ON i.id = e.interview_id`

func scanOpportunity(row pgx.Row) (*ost.Opportunity, error) {
	var o ost.Opportunity
	if err := row.Scan(&o.ID, &o.Name, &o.Status, &o.X, &o.Y, &o.OutcomeID, &o.ParentID, &o.SolutionCandidates); err != nil {
		return nil, err
	}
	o.EvidenceIDs = []string{}
	return &o, nil
}

// ListOpportunities returns all opportunities with their linked evidence and
// each evidence's interview, ordered by created_at.
func (s *PGStore) ListOpportunities(ctx context.Context) ([]ost.Opportunity, error) {
	rows, err := s.db.Query(ctx, `SELECT `+opportunityCols+` FROM opportunities ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("ost: list opportunities: %w", err)
	}
	defer rows.Close()

	opps := []ost.Opportunity{}
	index := make(map[string]int)
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("ost: scan opportunity: %w", err)
		}
		index[o.ID] = len(opps)
		opps = append(opps, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ost: rows opportunities: %w", err)
	}

	err = s.eachEvidenceLink(ctx, s.db, evidenceLinkSQL+` ORDER BY oe.created_at`, nil, func(oppID string, e ost.Evidence) {
		if i, ok := index[oppID]; ok {
			opps[i].EvidenceIDs = append(opps[i].EvidenceIDs, e.ID)
			opps[i].Evidence = append(opps[i].Evidence, e)
		}
	})
	if err != nil {
		return nil, err
	}

	return opps, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// eachEvidenceLink runs a link query and calls fn per (opportunity, evidence) row.
func (s *PGStore) eachEvidenceLink(ctx context.Context, q querier, sql string, args []any, fn func(string, ost.Evidence)) error {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ost: query evidence links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var oppID string
		var e ost.Evidence
		var iv ost.Interview
		if err := rows.Scan(&oppID, &e.ID, &e.InterviewID, &e.Type, &e.Content,
			&iv.ID, &iv.Title, &iv.Interviewee, &iv.ConductedAt, &iv.Notes); err != nil {
			return fmt.Errorf("ost: scan evidence link: %w", err)
		}
		e.Interview = &iv
		fn(oppID, e)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("ost: rows evidence links: %w", err)
	}
	return nil
}

// getOpportunity fetches one opportunity with its evidence.
func (s *PGStore) getOpportunity(ctx context.Context, q querier, id string) (*ost.Opportunity, error) {
	o, err := scanOpportunity(q.QueryRow(ctx, `SELECT `+opportunityCols+` FROM opportunities WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("ost: opportunity %s: %w", id, ost.ErrNotFound)
		}
		return nil, fmt.Errorf("ost: get opportunity: %w", err)
	}
	err = s.eachEvidenceLink(ctx, q, evidenceLinkSQL+` WHERE oe.opportunity_id = $1 ORDER BY oe.created_at`, []any{id},
		func(_ string, e ost.Evidence) {
			o.EvidenceIDs = append(o.EvidenceIDs, e.ID)
			o.Evidence = append(o.Evidence, e)
		})
	if err != nil {
		return nil, err
	}
	return o, nil
}

// replaceEvidence swaps the linked evidence set of an opportunity.
func replaceEvidence(ctx context.Context, tx pgx.Tx, oppID string, ids []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM opportunity_evidence WHERE opportunity_id = $1`, oppID); err != nil {
		return fmt.Errorf("ost: clear evidence links: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO opportunity_evidence (opportunity_id, evidence_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			oppID, id,
		); err != nil {
			return wrapWrite("link evidence "+id, err)
		}
	}
	return nil
}

const ancestorsSQL = `
WITH RECURSIVE ancestors(id, parent_id) AS (
    SELECT id, parent_id FROM opportunities WHERE id = $1
    UNION
    SELECT o.id, o.parent_id FROM opportunities o JOIN ancestors a ON o.id = a.parent_id
)
SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)`

// checkAncestry rejects making parentID the parent of id when id is already
// one of parentID's ancestors.
func checkAncestry(ctx context.Context, q querier, id, parentID string) error {
	if parentID == id {
		return fmt.Errorf("ost: opportunity %s as its own parent: %w", id, ost.ErrInvalidParent)
	}
	var cycle bool
	if err := q.QueryRow(ctx, ancestorsSQL, parentID, id).Scan(&cycle); err != nil {
		return fmt.Errorf("ost: check ancestry: %w", err)
	}
	if cycle {
		return fmt.Errorf("ost: parent opportunity %s is below %s: %w", parentID, id, ost.ErrCycle)
	}
	return nil
}

// CreateOpportunity inserts an opportunity and its evidence links in one transaction.
// If o.ID is empty, a UUID is auto-generated.
func (s *PGStore) CreateOpportunity(ctx context.Context, o ost.Opportunity) (*ost.Opportunity, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = ost.StatusBacklog
	}
	if o.SolutionCandidates == nil {
		o.SolutionCandidates = []ost.SolutionCandidate{}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ost: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO opportunities (id, name, status, x_position, y_position, outcome_id, parent_id, solution_candidates)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.Name, o.Status, o.X, o.Y, o.OutcomeID, o.ParentID, o.SolutionCandidates,
	); err != nil {
		return nil, wrapWrite("insert opportunity", err)
	}
	if err := replaceEvidence(ctx, tx, o.ID, o.EvidenceIDs); err != nil {
		return nil, err
	}

	out, err := s.getOpportunity(ctx, tx, o.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ost: commit: %w", err)
	}
	return out, nil
}

// UpdateOpportunity applies a partial update. When p.EvidenceIDs is set the
// linked evidence set is replaced in the same transaction.
// Returns ErrNotFound if the opportunity doesn't exist.
func (s *PGStore) UpdateOpportunity(ctx context.Context, id string, p ost.OpportunityPatch) (*ost.Opportunity, error) {
	var u updateSet
	addIf(&u, "name", p.Name)
	addIf(&u, "status", p.Status)
	addIf(&u, "x_position", p.X)
	addIf(&u, "y_position", p.Y)
	addOptional(&u, "outcome_id", p.OutcomeID)
	addOptional(&u, "parent_id", p.ParentID)
	addIf(&u, "solution_candidates", p.SolutionCandidates)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ost: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	if err := tx.QueryRow(ctx, `SELECT 1 FROM opportunities WHERE id = $1 FOR UPDATE`, id).Scan(&exists); err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("ost: opportunity %s: %w", id, ost.ErrNotFound)
		}
		return nil, fmt.Errorf("ost: lock opportunity: %w", err)
	}
	if p.ParentID.Set && p.ParentID.Value != nil {
		if err := checkAncestry(ctx, tx, id, *p.ParentID.Value); err != nil {
			return nil, err
		}
	}

	if !u.empty() {
		q, args := u.sql("opportunities", id, "id")
		var got string
		if err := tx.QueryRow(ctx, q, args...).Scan(&got); err != nil {
			if isNoRows(err) {
				return nil, fmt.Errorf("ost: opportunity %s: %w", id, ost.ErrNotFound)
			}
			return nil, wrapWrite("update opportunity", err)
		}
	}
	if p.EvidenceIDs != nil {
		if err := replaceEvidence(ctx, tx, id, *p.EvidenceIDs); err != nil {
			return nil, err
		}
	}

	out, err := s.getOpportunity(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ost: commit: %w", err)
	}
	return out, nil
}

// DeleteOpportunity deletes an opportunity by its ID.
// Nested opportunities, solutions and evidence links are cascade-deleted by the DB.
// No error if the opportunity doesn't exist.
func (s *PGStore) DeleteOpportunity(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM opportunities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ost: delete opportunity: %w", err)
	}
	return nil
}
