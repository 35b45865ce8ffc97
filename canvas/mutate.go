package canvas

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/ost"
)

// Default names for nodes created from the canvas toolbar.
const (
	DefaultOutcomeName     = "New Outcome"
	DefaultOpportunityName = "New Opportunity"
	DefaultSolutionName    = "New Solution"
)

// AddNode creates a node of kind under parentID ("" for none) and inserts it
// once the server has assigned its id. A parent gets its new child one row
// below it, one column to the right of its existing children.
//
// Valid combinations: no parent for an outcome, an outcome parent for an
// opportunity, and an opportunity parent for an opportunity or a solution.
func (s *Store) AddNode(ctx context.Context, kind ost.Kind, parentID string) (ost.Node, error) {
	const op = "add node"

	s.mu.Lock()
	pos := ost.DefaultPosition
	var parentKind ost.Kind
	if parentID != "" {
		p, ok := s.nodes[parentID]
		if !ok {
			s.mu.Unlock()
			err := nodeNotFound(op, parentID)
			s.fail(ctx, op, parentID, err)
			return ost.Node{}, err
		}
		parentKind = p.Kind
		pos = ost.ChildPosition(p.Position, len(s.children(parentID)))
	}
	s.mu.Unlock()

	n, err := newChild(kind, parentKind, parentID, pos)
	if err != nil {
		s.fail(ctx, op, parentID, err)
		return ost.Node{}, err
	}
	return s.insertCreated(ctx, op, n, parentID)
}

// newChild builds the unsaved node for a kind/parent pair.
func newChild(kind, parentKind ost.Kind, parentID string, pos ost.Position) (ost.Node, error) {
	switch {
	case kind == ost.KindOutcome && parentID == "":
		return ost.OutcomeNode(ost.Outcome{
			Name:   DefaultOutcomeName,
			Status: ost.OutcomeOnTrack,
			X:      pos.X,
			Y:      pos.Y,
		}), nil
	case kind == ost.KindOpportunity && parentKind == ost.KindOutcome:
		return ost.OpportunityNode(ost.Opportunity{
			Name:      DefaultOpportunityName,
			Status:    ost.StatusBacklog,
			X:         pos.X,
			Y:         pos.Y,
			OutcomeID: ost.Ptr(parentID),
		}), nil
	case kind == ost.KindOpportunity && parentKind == ost.KindOpportunity:
		return ost.OpportunityNode(ost.Opportunity{
			Name:     DefaultOpportunityName,
			Status:   ost.StatusBacklog,
			X:        pos.X,
			Y:        pos.Y,
			ParentID: ost.Ptr(parentID),
		}), nil
	case kind == ost.KindSolution && parentKind == ost.KindOpportunity:
		return ost.SolutionNode(ost.Solution{
			Name:          DefaultSolutionName,
			Status:        ost.StatusBacklog,
			X:             pos.X,
			Y:             pos.Y,
			OpportunityID: parentID,
		}), nil
	}
	parent := string(parentKind)
	if parentID == "" {
		parent = "no parent"
	}
	return ost.Node{}, fmt.Errorf("ost: %s under %s: %w", kind, parent, ost.ErrInvalidParent)
}

// insertCreated creates n remotely and inserts the server's copy. Nothing is
// inserted on failure, or when the parent left the canvas in the meantime.
func (s *Store) insertCreated(ctx context.Context, op string, n ost.Node, parentID string) (ost.Node, error) {
	s.pending(ctx, op, parentID)
	created, err := s.create(ctx, n)
	if err != nil {
		s.fail(ctx, op, parentID, err)
		return ost.Node{}, err
	}

	s.mu.Lock()
	if parentID != "" {
		if _, ok := s.nodes[parentID]; !ok {
			s.mu.Unlock()
			s.logger.DebugContext(ctx, "parent deleted before create returned", "node", created.ID, "parent", parentID)
			return created.Clone(), nil
		}
	}
	s.insert(created.Clone())
	s.mu.Unlock()

	s.succeed(ctx, op, created.ID)
	return created, nil
}

// UpdateNodeData applies p locally, then sends it. The server's copy replaces
// the local one on success; on failure the canvas is reloaded.
func (s *Store) UpdateNodeData(ctx context.Context, id string, p ost.Patch) error {
	return s.optimistic(ctx, "update node", id, func(n *ost.Node) (ost.Patch, error) {
		return p, n.Apply(p)
	})
}

// UpdateNodePosition moves id locally, then sends the new coordinates.
func (s *Store) UpdateNodePosition(ctx context.Context, id string, pos ost.Position) error {
	return s.optimistic(ctx, "move node", id, func(n *ost.Node) (ost.Patch, error) {
		n.SetPosition(pos)
		return ost.PositionPatch(n.Kind, pos), nil
	})
}

// optimistic runs mutate on the stored node under the lock, then issues the
// patch it returns. Rejected mutations leave the node untouched.
func (s *Store) optimistic(ctx context.Context, op, id string, mutate func(*ost.Node) (ost.Patch, error)) error {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		err := nodeNotFound(op, id)
		s.fail(ctx, op, id, err)
		return err
	}
	work := n.Clone()
	p, err := mutate(&work)
	if err == nil {
		err = s.checkReparent(n, &work)
	}
	if err != nil {
		s.mu.Unlock()
		s.fail(ctx, op, id, err)
		return err
	}
	*n = work
	s.reparent(id)
	g := s.bump(id)
	s.mu.Unlock()

	s.pending(ctx, op, id)
	entity, err := s.update(ctx, id, p)
	if err != nil {
		s.fail(ctx, op, id, err)
		s.reload(ctx)
		return err
	}
	s.confirm(id, g, entity)
	s.succeed(ctx, op, id)
	return nil
}

// checkReparent rejects an edit that moves a node under one of its own
// descendants.
func (s *Store) checkReparent(before, after *ost.Node) error {
	parent := after.ParentID()
	if parent == "" || parent == before.ParentID() {
		return nil
	}
	if ost.WouldCycle(s.edges, parent, after.ID) {
		return fmt.Errorf("ost: move %s under %s: %w", after.ID, parent, ost.ErrCycle)
	}
	return nil
}

// applyLocal applies p to id without a network call. Responses to calls
// dispatched for id before this point are discarded.
func (s *Store) applyLocal(id string, p ost.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nodeNotFound("edit node", id)
	}
	work := n.Clone()
	if err := work.Apply(p); err != nil {
		return err
	}
	if err := s.checkReparent(n, &work); err != nil {
		return err
	}
	*n = work
	s.reparent(id)
	s.bump(id)
	return nil
}

// CreateOpportunityOnDrop creates an opportunity at pos under sourceID, which
// must be an outcome or an opportunity.
func (s *Store) CreateOpportunityOnDrop(ctx context.Context, sourceID string, pos ost.Position) (ost.Node, error) {
	const op = "create opportunity"

	s.mu.Lock()
	src, ok := s.nodes[sourceID]
	var kind ost.Kind
	if ok {
		kind = src.Kind
	}
	s.mu.Unlock()
	if !ok {
		err := nodeNotFound(op, sourceID)
		s.fail(ctx, op, sourceID, err)
		return ost.Node{}, err
	}

	n, err := newChild(ost.KindOpportunity, kind, sourceID, pos)
	if err != nil {
		s.fail(ctx, op, sourceID, err)
		return ost.Node{}, err
	}
	return s.insertCreated(ctx, op, n, sourceID)
}

// PromoteIdeaToSolution turns a candidate stored on an opportunity into a
// solution placed directly below it. The candidate stays on the opportunity.
func (s *Store) PromoteIdeaToSolution(ctx context.Context, c ost.SolutionCandidate, opportunityID string) (ost.Node, error) {
	const op = "promote idea"

	s.mu.Lock()
	opp, ok := s.nodes[opportunityID]
	var (
		kind ost.Kind
		pos  ost.Position
	)
	if ok {
		kind, pos = opp.Kind, ost.BelowPosition(opp.Position)
	}
	s.mu.Unlock()
	if !ok {
		err := nodeNotFound(op, opportunityID)
		s.fail(ctx, op, opportunityID, err)
		return ost.Node{}, err
	}

	n, err := newChild(ost.KindSolution, kind, opportunityID, pos)
	if err != nil {
		s.fail(ctx, op, opportunityID, err)
		return ost.Node{}, err
	}
	if c.Title != "" {
		sol := *n.Solution
		sol.Name = c.Title
		n = ost.SolutionNode(sol)
	}
	return s.insertCreated(ctx, op, n, opportunityID)
}

// LinkEvidenceToOpportunity adds evidenceID to the opportunity's linked set.
// Linking an already linked id does nothing. On success the canvas is
// reloaded so the evidence arrives with its interview.
func (s *Store) LinkEvidenceToOpportunity(ctx context.Context, evidenceID, opportunityID string) error {
	const op = "link evidence"

	s.mu.Lock()
	n, ok := s.nodes[opportunityID]
	var err error
	switch {
	case !ok:
		err = nodeNotFound(op, opportunityID)
	case n.Kind != ost.KindOpportunity:
		err = fmt.Errorf("ost: %s to %s %s: %w", op, n.Kind, opportunityID, ost.ErrKindMismatch)
	}
	if err != nil {
		s.mu.Unlock()
		s.fail(ctx, op, opportunityID, err)
		return err
	}
	if n.Opportunity.HasEvidence(evidenceID) {
		s.mu.Unlock()
		return nil
	}
	ids := append(append([]string{}, n.Opportunity.EvidenceIDs...), evidenceID)
	s.mu.Unlock()

	s.pending(ctx, op, opportunityID)
	if _, err := s.api.UpdateOpportunity(ctx, opportunityID, ost.OpportunityPatch{EvidenceIDs: &ids}); err != nil {
		s.fail(ctx, op, opportunityID, err)
		return err
	}
	s.succeed(ctx, op, opportunityID)
	return s.LoadCanvas(ctx)
}
