package canvas

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/ost"
)

// connectPatch picks the field to set on target so that source becomes its
// parent. Nested opportunities carry parentId only.
func connectPatch(source, target *ost.Node) (ost.Patch, error) {
	switch {
	case target.Kind == ost.KindOpportunity && source.Kind == ost.KindOutcome:
		return ost.OpportunityPatch{
			OutcomeID: ost.Some(source.ID),
			ParentID:  ost.Null[string](),
		}, nil
	case target.Kind == ost.KindOpportunity && source.Kind == ost.KindOpportunity:
		return ost.OpportunityPatch{
			ParentID:  ost.Some(source.ID),
			OutcomeID: ost.Null[string](),
		}, nil
	case target.Kind == ost.KindSolution && source.Kind == ost.KindOpportunity:
		return ost.SolutionPatch{OpportunityID: ost.Ptr(source.ID)}, nil
	}
	return nil, fmt.Errorf("ost: connect %s %s to %s %s: %w",
		source.Kind, source.ID, target.Kind, target.ID, ost.ErrUnsupportedConnection)
}

// OnConnect makes sourceID the structural parent of targetID. The change is
// applied only after the server accepts it; the new edge then replaces the
// target's previous inbound edge. Connections that would close a cycle are
// rejected with ost.ErrCycle before any call is made.
func (s *Store) OnConnect(ctx context.Context, sourceID, targetID string) error {
	const op = "connect"

	s.mu.Lock()
	p, err := s.planConnect(sourceID, targetID)
	if err != nil {
		s.mu.Unlock()
		s.fail(ctx, op, targetID, err)
		return err
	}
	g := s.bump(targetID)
	s.mu.Unlock()

	s.pending(ctx, op, targetID)
	entity, err := s.update(ctx, targetID, p)
	if err != nil {
		s.fail(ctx, op, targetID, err)
		return err
	}

	s.mu.Lock()
	if s.current(targetID, g) {
		n := s.nodes[targetID]
		work := n.Clone()
		if err := work.Apply(p); err == nil {
			*n = work
		}
		s.reparent(targetID)
	}
	s.mu.Unlock()
	s.confirm(targetID, g, entity)

	s.succeed(ctx, op, targetID)
	return nil
}

func (s *Store) planConnect(sourceID, targetID string) (ost.Patch, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("ost: connect %s to itself: %w", sourceID, ost.ErrUnsupportedConnection)
	}
	source, ok := s.nodes[sourceID]
	if !ok {
		return nil, nodeNotFound("connect", sourceID)
	}
	target, ok := s.nodes[targetID]
	if !ok {
		return nil, nodeNotFound("connect", targetID)
	}
	p, err := connectPatch(source, target)
	if err != nil {
		return nil, err
	}
	if ost.WouldCycle(s.edges, sourceID, targetID) {
		return nil, fmt.Errorf("ost: connect %s to %s: %w", sourceID, targetID, ost.ErrCycle)
	}
	return p, nil
}
