package canvas

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/ost"
)

// create issues the create call for n's entity and returns the node built
// from the server's copy.
func (s *Store) create(ctx context.Context, n ost.Node) (ost.Node, error) {
	switch n.Kind {
	case ost.KindOutcome:
		o, err := s.api.CreateOutcome(ctx, *n.Outcome)
		if err != nil {
			return ost.Node{}, err
		}
		return ost.OutcomeNode(*o), nil
	case ost.KindOpportunity:
		o, err := s.api.CreateOpportunity(ctx, *n.Opportunity)
		if err != nil {
			return ost.Node{}, err
		}
		return ost.OpportunityNode(*o), nil
	case ost.KindSolution:
		sol, err := s.api.CreateSolution(ctx, *n.Solution)
		if err != nil {
			return ost.Node{}, err
		}
		return ost.SolutionNode(*sol), nil
	}
	return ost.Node{}, fmt.Errorf("ost: create %s: %w", n.Kind, ost.ErrKindMismatch)
}

// update issues the update call matching p's type. The returned entity is
// nil when the server sent nothing back.
func (s *Store) update(ctx context.Context, id string, p ost.Patch) (any, error) {
	switch pp := p.(type) {
	case ost.OutcomePatch:
		o, err := s.api.UpdateOutcome(ctx, id, pp)
		if err != nil || o == nil {
			return nil, err
		}
		return o, nil
	case ost.OpportunityPatch:
		o, err := s.api.UpdateOpportunity(ctx, id, pp)
		if err != nil || o == nil {
			return nil, err
		}
		return o, nil
	case ost.SolutionPatch:
		sol, err := s.api.UpdateSolution(ctx, id, pp)
		if err != nil || sol == nil {
			return nil, err
		}
		return sol, nil
	}
	return nil, fmt.Errorf("ost: update %s with %T: %w", id, p, ost.ErrKindMismatch)
}

func (s *Store) destroy(ctx context.Context, kind ost.Kind, id string) error {
	switch kind {
	case ost.KindOutcome:
		return s.api.DeleteOutcome(ctx, id)
	case ost.KindOpportunity:
		return s.api.DeleteOpportunity(ctx, id)
	case ost.KindSolution:
		return s.api.DeleteSolution(ctx, id)
	}
	return fmt.Errorf("ost: delete %s %s: %w", kind, id, ost.ErrKindMismatch)
}

// confirm replaces id's entity with the server's copy when generation g is
// still the latest for that node.
func (s *Store) confirm(id string, g uint64, entity any) {
	if entity == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(id, g) {
		s.logger.Debug("discarding stale response", "node", id, "gen", g)
		return
	}
	if err := s.nodes[id].Replace(entity); err != nil {
		s.logger.Warn("server returned wrong entity type", "node", id, "err", err)
		return
	}
	s.reparent(id)
}

// reload resyncs after a failed optimistic call. Its own failure is already
// notified by LoadCanvas.
func (s *Store) reload(ctx context.Context) {
	_ = s.LoadCanvas(ctx)
}

func nodeNotFound(op, id string) error {
	return fmt.Errorf("ost: %s %s: %w", op, id, ost.ErrNodeNotFound)
}
