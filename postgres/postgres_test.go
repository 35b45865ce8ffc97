package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/meikuraledutech/ost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSet(t *testing.T) {
	var u updateSet
	assert.True(t, u.empty())

	addIf(&u, "name", ost.Ptr("n"))
	addIf[float64](&u, "x_position", nil)
	addOptional(&u, "parent_id", ost.Null[string]())
	addOptional(&u, "outcome_id", ost.Optional[string]{})

	q, args := u.sql("opportunities", "p1", "id")
	assert.Equal(t, "UPDATE opportunities SET name = $1, parent_id = $2 WHERE id = $3 RETURNING id", q)
	require.Len(t, args, 3)
	assert.Equal(t, "n", args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, "p1", args[2])
}

func TestWrapWrite(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "solutions_opportunity_id_fkey"}
	assert.ErrorIs(t, wrapWrite("insert solution", fk), ost.ErrInvalidParent)

	other := errors.New("conn closed")
	err := wrapWrite("insert solution", other)
	assert.ErrorIs(t, err, other)
	assert.NotErrorIs(t, err, ost.ErrInvalidParent)
}

// openTestStore connects to OST_TEST_DATABASE_URL and recreates the schema.
func openTestStore(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("OST_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("OST_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, 4)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.DropSchema(ctx))
	require.NoError(t, s.CreateSchema(ctx))
	return s
}

func TestStoreIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	o, err := s.CreateOutcome(ctx, ost.Outcome{Name: "Grow retention", CurrentValue: ost.Ptr(0.1)})
	require.NoError(t, err)
	assert.Equal(t, ost.OutcomeOnTrack, o.Status)

	root, err := s.CreateOpportunity(ctx, ost.Opportunity{Name: "Onboarding", OutcomeID: &o.ID})
	require.NoError(t, err)
	nested, err := s.CreateOpportunity(ctx, ost.Opportunity{Name: "Invites", ParentID: &root.ID})
	require.NoError(t, err)
	sol, err := s.CreateSolution(ctx, ost.Solution{Name: "Guided invite", OpportunityID: nested.ID})
	require.NoError(t, err)

	_, err = s.CreateSolution(ctx, ost.Solution{Name: "orphan", OpportunityID: "missing"})
	assert.ErrorIs(t, err, ost.ErrInvalidParent)

	iv, err := s.CreateInterview(ctx, ost.Interview{Title: "Call"})
	require.NoError(t, err)
	ev, err := s.CreateEvidence(ctx, ost.Evidence{InterviewID: iv.ID, Type: ost.EvidenceQuote, Content: "hard"})
	require.NoError(t, err)

	ids := []string{ev.ID}
	got, err := s.UpdateOpportunity(ctx, root.ID, ost.OpportunityPatch{
		Name:        ost.Ptr("Activation"),
		EvidenceIDs: &ids,
		SolutionCandidates: &[]ost.SolutionCandidate{
			{Title: "Templates", Assumptions: []string{"teams reuse"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Activation", got.Name)
	assert.Equal(t, ids, got.EvidenceIDs)
	require.Len(t, got.Evidence, 1)
	assert.Equal(t, "Call", got.Evidence[0].Interview.Title)
	assert.Equal(t, "Templates", got.SolutionCandidates[0].Title)

	_, err = s.UpdateOpportunity(ctx, root.ID, ost.OpportunityPatch{
		ParentID:  ost.Some(nested.ID),
		OutcomeID: ost.Null[string](),
	})
	assert.ErrorIs(t, err, ost.ErrCycle)
	_, err = s.UpdateOpportunity(ctx, root.ID, ost.OpportunityPatch{ParentID: ost.Some(root.ID)})
	assert.ErrorIs(t, err, ost.ErrInvalidParent)
	_, err = s.UpdateOpportunity(ctx, "missing", ost.OpportunityPatch{EvidenceIDs: &ids})
	assert.ErrorIs(t, err, ost.ErrNotFound)

	moved, err := s.UpdateOpportunity(ctx, nested.ID, ost.OpportunityPatch{
		OutcomeID: ost.Some(o.ID),
		ParentID:  ost.Null[string](),
	})
	require.NoError(t, err)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, o.ID, *moved.OutcomeID)

	cleared, err := s.UpdateOutcome(ctx, o.ID, ost.OutcomePatch{CurrentValue: ost.Null[float64]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.CurrentValue)

	_, err = s.UpdateSolution(ctx, "missing", ost.SolutionPatch{Name: ost.Ptr("x")})
	assert.ErrorIs(t, err, ost.ErrNotFound)

	require.NoError(t, s.DeleteOutcome(ctx, o.ID))
	opps, err := s.ListOpportunities(ctx)
	require.NoError(t, err)
	assert.Empty(t, opps)
	sols, err := s.ListSolutions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sols)
	require.NoError(t, s.DeleteSolution(ctx, sol.ID))

	require.NoError(t, s.DeleteInterview(ctx, iv.ID))
	evs, err := s.ListEvidence(ctx)
	require.NoError(t, err)
	assert.Empty(t, evs)
}
