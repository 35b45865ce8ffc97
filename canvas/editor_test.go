package canvas

import (
	"context"
	"testing"
	"time"

	"github.com/meikuraledutech/ost"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditorDebounces(t *testing.T) {
	s, api, _ := newTestStore(t)
	_, opp, _, _ := seedTree(t, s, api)
	ctx := context.Background()
	e := NewEditor(s, 20*time.Millisecond)
	defer e.Stop()

	for _, name := range []string{"O", "On", "Onb"} {
		require.NoError(t, e.Edit(ctx, opp, ost.OpportunityPatch{Name: ost.Ptr(name)}))
		n, _ := s.Node(opp)
		assert.Equal(t, name, n.Label, "edits show up before they are sent")
	}
	require.NoError(t, e.Edit(ctx, opp, ost.OpportunityPatch{Status: ost.Ptr(ost.StatusDiscovery)}))

	require.Eventually(t, func() bool { return api.count("UpdateOpportunity") == 1 }, time.Second, 5*time.Millisecond)
	// Give a second, stale timer the chance to fire if one survived.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, api.count("UpdateOpportunity"))

	sent := api.lastPatch().(ost.OpportunityPatch)
	assert.Equal(t, "Onb", *sent.Name)
	assert.Equal(t, ost.StatusDiscovery, *sent.Status)
	assert.Empty(t, e.Pending())

	opps, err := api.Store.ListOpportunities(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Onb", opps[0].Name)
}

func TestEditorFlush(t *testing.T) {
	s, api, _ := newTestStore(t)
	outcome, opp, _, _ := seedTree(t, s, api)
	ctx := context.Background()
	e := NewEditor(s, time.Hour)

	require.NoError(t, e.Edit(ctx, outcome, ost.OutcomePatch{Name: ost.Ptr("Retention")}))
	require.NoError(t, e.Edit(ctx, opp, ost.OpportunityPatch{Name: ost.Ptr("Setup")}))
	assert.ElementsMatch(t, []string{outcome, opp}, e.Pending())

	require.NoError(t, e.Flush(ctx))
	assert.Empty(t, e.Pending())
	assert.Equal(t, 1, api.count("UpdateOutcome"))
	assert.Equal(t, 1, api.count("UpdateOpportunity"))
}

func TestEditorStopDropsPending(t *testing.T) {
	s, api, _ := newTestStore(t)
	outcome, _, _, _ := seedTree(t, s, api)
	e := NewEditor(s, 10*time.Millisecond)

	require.NoError(t, e.Edit(context.Background(), outcome, ost.OutcomePatch{Name: ost.Ptr("x")}))
	e.Stop()
	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, api.count("UpdateOutcome"))
}

func TestEditorRejectsBadEdit(t *testing.T) {
	s, api, _ := newTestStore(t)
	outcome, _, _, _ := seedTree(t, s, api)
	e := NewEditor(s, 0)

	assert.ErrorIs(t, e.Edit(context.Background(), outcome, ost.SolutionPatch{}), ost.ErrKindMismatch)
	assert.ErrorIs(t, e.Edit(context.Background(), "missing", ost.OutcomePatch{}), ost.ErrNodeNotFound)
	assert.Empty(t, e.Pending())
}

func TestEditorRejectsCycle(t *testing.T) {
	s, api, _ := newTestStore(t)
	outcome, opp, nested, _ := seedTree(t, s, api)
	e := NewEditor(s, 0)
	defer e.Stop()

	err := e.Edit(context.Background(), opp, ost.OpportunityPatch{ParentID: ost.Some(nested)})
	assert.ErrorIs(t, err, ost.ErrCycle)
	assert.Empty(t, e.Pending())
	assert.Equal(t, []string{outcome}, inbound(s.Edges(), opp))
}

func TestEditorIgnoresTimerFromFlushedEdit(t *testing.T) {
	s, api, _ := newTestStore(t)
	outcome, _, _, _ := seedTree(t, s, api)
	e := NewEditor(s, time.Hour)
	defer e.Stop()
	ctx := context.Background()

	require.NoError(t, e.Edit(ctx, outcome, ost.OutcomePatch{Name: ost.Ptr("first")}))
	require.NoError(t, e.Flush(ctx))
	require.Equal(t, 1, api.count("UpdateOutcome"))

	require.NoError(t, e.Edit(ctx, outcome, ost.OutcomePatch{Name: ost.Ptr("second")}))
	// The first edit's timer firing late must not send the new edit early.
	e.fire(outcome, 1)
	assert.Equal(t, 1, api.count("UpdateOutcome"))
	assert.Equal(t, []string{outcome}, e.Pending())
}
