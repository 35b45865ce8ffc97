package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS outcomes (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    status        TEXT NOT NULL DEFAULT 'ON_TRACK',
    target_metric TEXT NOT NULL DEFAULT '',
    current_value DOUBLE PRECISION,
    x_position    DOUBLE PRECISION NOT NULL DEFAULT 0,
    y_position    DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS opportunities (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    status              TEXT NOT NULL DEFAULT 'BACKLOG',
    x_position          DOUBLE PRECISION NOT NULL DEFAULT 0,
    y_position          DOUBLE PRECISION NOT NULL DEFAULT 0,
    outcome_id          TEXT REFERENCES outcomes(id) ON DELETE CASCADE,
    parent_id           TEXT REFERENCES opportunities(id) ON DELETE CASCADE,
    solution_candidates JSONB NOT NULL DEFAULT '[]',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (parent_id IS NULL OR parent_id <> id)
);

CREATE TABLE IF NOT EXISTS solutions (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    status         TEXT NOT NULL DEFAULT 'BACKLOG',
    x_position     DOUBLE PRECISION NOT NULL DEFAULT 0,
    y_position     DOUBLE PRECISION NOT NULL DEFAULT 0,
    opportunity_id TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS interviews (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    interviewee  TEXT NOT NULL DEFAULT '',
    conducted_at TIMESTAMPTZ,
    notes        TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS evidence (
    id           TEXT PRIMARY KEY,
    interview_id TEXT NOT NULL REFERENCES interviews(id) ON DELETE CASCADE,
    type         TEXT NOT NULL,
    content      TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS opportunity_evidence (
    opportunity_id TEXT NOT NULL REFERENCES opportunities(id) ON DELETE CASCADE,
    evidence_id    TEXT NOT NULL REFERENCES evidence(id) ON DELETE CASCADE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (opportunity_id, evidence_id)
);

CREATE INDEX IF NOT EXISTS idx_opportunities_outcome ON opportunities(outcome_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_parent  ON opportunities(parent_id);
CREATE INDEX IF NOT EXISTS idx_solutions_opportunity ON solutions(opportunity_id);
CREATE INDEX IF NOT EXISTS idx_evidence_interview    ON evidence(interview_id);
`

// CreateSchema creates the tree tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops every tree table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS opportunity_evidence, evidence, interviews, solutions, opportunities, outcomes CASCADE;`)
	return err
}
