package ost

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleNodes() []Node {
	return BuildNodes(
		[]Outcome{{ID: "o1", Name: "Grow retention"}},
		[]Opportunity{
			{ID: "p1", Name: "Onboarding", OutcomeID: Ptr("o1")},
			{ID: "p2", Name: "Invites", OutcomeID: Ptr("o1"), ParentID: Ptr("p1")},
			{ID: "p3", Name: "Orphan"},
		},
		[]Solution{{ID: "s1", Name: "Guided setup", OpportunityID: "p2"}},
	)
}

func TestBuildNodesOrderAndLabels(t *testing.T) {
	nodes := sampleNodes()
	var ids, labels []string
	for _, n := range nodes {
		ids = append(ids, n.ID)
		labels = append(labels, n.Label)
	}
	assert.Equal(t, []string{"o1", "p1", "p2", "p3", "s1"}, ids)
	assert.Equal(t, []string{"Grow retention", "Onboarding", "Invites", "Orphan", "Guided setup"}, labels)
}

func TestDeriveEdges(t *testing.T) {
	got := DeriveEdges(sampleNodes())
	want := []Edge{
		{ID: "e-o1-p1", Source: "o1", Target: "p1"},
		{ID: "e-p1-p2", Source: "p1", Target: "p2"},
		{ID: "e-p2-s1", Source: "p2", Target: "s1"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DeriveEdges mismatch (-want +got):\n%s", diff)
	}
}

func TestDeriveEdgesParentWinsOverOutcome(t *testing.T) {
	nodes := sampleNodes()
	inbound := make(map[string][]string)
	for _, e := range DeriveEdges(nodes) {
		inbound[e.Target] = append(inbound[e.Target], e.Source)
	}
	for _, n := range nodes {
		if n.Kind != KindOpportunity {
			continue
		}
		o := n.Opportunity
		switch {
		case o.ParentID != nil:
			assert.Equal(t, []string{*o.ParentID}, inbound[n.ID], "node %s", n.ID)
		case o.OutcomeID != nil:
			assert.Equal(t, []string{*o.OutcomeID}, inbound[n.ID], "node %s", n.ID)
		default:
			assert.Empty(t, inbound[n.ID], "node %s", n.ID)
		}
	}
}

func TestDeriveEdgesEmpty(t *testing.T) {
	edges := DeriveEdges(nil)
	require.NotNil(t, edges)
	assert.Empty(t, edges)
}

func TestChildPosition(t *testing.T) {
	parent := Position{X: 100, Y: 40}
	for n := 0; n < 6; n++ {
		got := ChildPosition(parent, n)
		assert.Equal(t, parent.X+float64(n)*306, got.X, "siblings=%d", n)
		assert.Equal(t, parent.Y+150, got.Y, "siblings=%d", n)
	}
	assert.Equal(t, Position{X: 100, Y: 190}, BelowPosition(parent))
}

func TestNodeApply(t *testing.T) {
	n := OpportunityNode(Opportunity{ID: "p1", Name: "Old", OutcomeID: Ptr("o1")})

	require.NoError(t, n.Apply(OpportunityPatch{Name: Ptr("New"), X: Ptr(12.0)}))
	assert.Equal(t, "New", n.Label)
	assert.Equal(t, Position{X: 12, Y: 0}, n.Position)

	require.NoError(t, n.Apply(OpportunityPatch{ParentID: Some("p0"), OutcomeID: Null[string]()}))
	assert.Equal(t, "p0", n.ParentID())
	assert.Nil(t, n.Opportunity.OutcomeID)

	err := n.Apply(SolutionPatch{Name: Ptr("x")})
	assert.True(t, errors.Is(err, ErrKindMismatch))
	assert.Equal(t, "New", n.Label)
}

func TestNodeReplace(t *testing.T) {
	n := SolutionNode(Solution{ID: "s1", Name: "A", OpportunityID: "p1"})
	require.NoError(t, n.Replace(&Solution{ID: "s1", Name: "B", OpportunityID: "p2", X: 5}))
	assert.Equal(t, "B", n.Label)
	assert.Equal(t, "p2", n.ParentID())
	assert.Equal(t, 5.0, n.Position.X)

	assert.ErrorIs(t, n.Replace(&Outcome{ID: "s1"}), ErrKindMismatch)
}

func TestNodeCloneIsDeep(t *testing.T) {
	n := OpportunityNode(Opportunity{ID: "p1", Name: "A", OutcomeID: Ptr("o1"), EvidenceIDs: []string{"e1"}})
	c := n.Clone()
	c.Opportunity.EvidenceIDs[0] = "changed"
	*c.Opportunity.OutcomeID = "changed"
	assert.Equal(t, "e1", n.Opportunity.EvidenceIDs[0])
	assert.Equal(t, "o1", *n.Opportunity.OutcomeID)
}

func TestOpportunityCloneKeepsEmptySlices(t *testing.T) {
	o := Opportunity{ID: "p1", EvidenceIDs: []string{}, SolutionCandidates: []SolutionCandidate{}}
	c := o.Clone()
	assert.NotNil(t, c.EvidenceIDs)
	assert.NotNil(t, c.SolutionCandidates)
	assert.Nil(t, c.Evidence)

	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"evidenceIds":[]`)
	assert.Contains(t, string(b), `"solutionCandidates":[]`)
}

func TestPatchMerge(t *testing.T) {
	a := OpportunityPatch{Name: Ptr("first"), OutcomeID: Some("o1")}
	b := OpportunityPatch{Name: Ptr("second"), ParentID: Null[string]()}
	got := a.Merge(b).(OpportunityPatch)

	assert.Equal(t, "second", *got.Name)
	assert.Equal(t, "o1", *got.OutcomeID.Value)
	assert.True(t, got.ParentID.Set)
	assert.Nil(t, got.ParentID.Value)

	// A patch of another kind is ignored.
	assert.Equal(t, a, a.Merge(SolutionPatch{Name: Ptr("x")}))
}

func TestOptionalJSON(t *testing.T) {
	b, err := json.Marshal(OpportunityPatch{Name: Ptr("n"), ParentID: Null[string](), OutcomeID: Some("o1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n","parentId":null,"outcomeId":"o1"}`, string(b))

	b, err = json.Marshal(OpportunityPatch{Name: Ptr("n")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"n"}`, string(b))

	var p OpportunityPatch
	require.NoError(t, json.Unmarshal([]byte(`{"parentId":null}`), &p))
	assert.True(t, p.ParentID.Set)
	assert.Nil(t, p.ParentID.Value)
	assert.False(t, p.OutcomeID.Set)
}

func TestIsAcyclic(t *testing.T) {
	assert.True(t, IsAcyclic(nil))
	assert.True(t, IsAcyclic(DeriveEdges(sampleNodes())))
	assert.False(t, IsAcyclic([]Edge{NewEdge("a", "a")}))
	assert.False(t, IsAcyclic([]Edge{NewEdge("a", "b"), NewEdge("b", "c"), NewEdge("c", "a")}))
}

func TestWouldCycle(t *testing.T) {
	edges := DeriveEdges(sampleNodes())

	// p2 hangs under p1; making p1 a child of p2 closes a loop.
	assert.True(t, WouldCycle(edges, "p2", "p1"))
	assert.True(t, WouldCycle(edges, "s1", "p1"))
	assert.True(t, WouldCycle(edges, "p1", "p1"))

	// Moving p2 straight under the outcome replaces its parent edge.
	assert.False(t, WouldCycle(edges, "o1", "p2"))
	assert.False(t, WouldCycle(edges, "p3", "p2"))
}
