// Package memory implements ost.Store in process memory. It mirrors the
// cascade and foreign-key behaviour of the postgres store and is used for
// local development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/meikuraledutech/ost"
)

// table keeps rows in insertion order.
type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) del(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })
	return true
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) reset() {
	t.rows = make(map[string]T)
	t.order = nil
}

// Store is an in-memory ost.Store. It is safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	outcomes      *table[ost.Outcome]
	opportunities *table[ost.Opportunity]
	solutions     *table[ost.Solution]
	interviews    *table[ost.Interview]
	evidence      *table[ost.Evidence]
}

var _ ost.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.outcomes = newTable[ost.Outcome]()
	s.opportunities = newTable[ost.Opportunity]()
	s.solutions = newTable[ost.Solution]()
	s.interviews = newTable[ost.Interview]()
	s.evidence = newTable[ost.Evidence]()
}

// CreateSchema is a no-op; the tables always exist.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema discards all data.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// ── Outcomes ─────────────────────────────────────────────────────────

// ListOutcomes returns all outcomes in creation order.
func (s *Store) ListOutcomes(ctx context.Context) ([]ost.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.outcomes.list()
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// CreateOutcome stores o, assigning an id and the ON_TRACK status when missing.
func (s *Store) CreateOutcome(ctx context.Context, o ost.Outcome) (*ost.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o = o.Clone()
	o.ID = newID(o.ID)
	if o.Status == "" {
		o.Status = ost.OutcomeOnTrack
	}
	s.outcomes.put(o.ID, o)
	res := o.Clone()
	return &res, nil
}

// UpdateOutcome applies a partial update. Returns ErrNotFound if the outcome doesn't exist.
func (s *Store) UpdateOutcome(ctx context.Context, id string, p ost.OutcomePatch) (*ost.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes.get(id)
	if !ok {
		return nil, fmt.Errorf("ost: outcome %s: %w", id, ost.ErrNotFound)
	}
	o = o.Clone()
	p.ApplyTo(&o)
	s.outcomes.put(id, o)
	res := o.Clone()
	return &res, nil
}

// DeleteOutcome removes an outcome and everything hanging from it.
func (s *Store) DeleteOutcome(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.outcomes.del(id) {
		return nil
	}
	for _, o := range s.opportunities.list() {
		if o.OutcomeID != nil && *o.OutcomeID == id {
			s.deleteOpportunity(o.ID)
		}
	}
	return nil
}

// ── Opportunities ────────────────────────────────────────────────────

// ListOpportunities returns all opportunities with their linked evidence and interviews.
func (s *Store) ListOpportunities(ctx context.Context) ([]ost.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.opportunities.list()
	for i := range out {
		out[i] = s.withEvidence(out[i])
	}
	return out, nil
}

// withEvidence returns a copy of o with its linked evidence denormalized.
func (s *Store) withEvidence(o ost.Opportunity) ost.Opportunity {
	o = o.Clone()
	o.Evidence = nil
	for _, id := range o.EvidenceIDs {
		e, ok := s.evidence.get(id)
		if !ok {
			continue
		}
		if iv, ok := s.interviews.get(e.InterviewID); ok {
			e.Interview = &iv
		}
		o.Evidence = append(o.Evidence, e)
	}
	return o
}

func (s *Store) checkOpportunityRefs(o *ost.Opportunity) error {
	if o.OutcomeID != nil {
		if _, ok := s.outcomes.get(*o.OutcomeID); !ok {
			return fmt.Errorf("ost: outcome %s: %w", *o.OutcomeID, ost.ErrInvalidParent)
		}
	}
	if o.ParentID != nil {
		if _, ok := s.opportunities.get(*o.ParentID); !ok || *o.ParentID == o.ID {
			return fmt.Errorf("ost: parent opportunity %s: %w", *o.ParentID, ost.ErrInvalidParent)
		}
		if s.hasAncestor(*o.ParentID, o.ID) {
			return fmt.Errorf("ost: parent opportunity %s is below %s: %w", *o.ParentID, o.ID, ost.ErrCycle)
		}
	}
	for _, id := range o.EvidenceIDs {
		if _, ok := s.evidence.get(id); !ok {
			return fmt.Errorf("ost: evidence %s: %w", id, ost.ErrInvalidParent)
		}
	}
	return nil
}

// hasAncestor walks the parentId chain up from id and reports whether it
// reaches ancestor.
func (s *Store) hasAncestor(id, ancestor string) bool {
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		if id == ancestor {
			return true
		}
		seen[id] = true
		o, ok := s.opportunities.get(id)
		if !ok || o.ParentID == nil {
			return false
		}
		id = *o.ParentID
	}
	return false
}

// CreateOpportunity stores o after checking its parent and evidence references.
func (s *Store) CreateOpportunity(ctx context.Context, o ost.Opportunity) (*ost.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o = o.Clone()
	o.ID = newID(o.ID)
	o.Evidence = nil
	o.EvidenceIDs = dedupe(o.EvidenceIDs)
	if o.Status == "" {
		o.Status = ost.StatusBacklog
	}
	if o.SolutionCandidates == nil {
		o.SolutionCandidates = []ost.SolutionCandidate{}
	}
	if err := s.checkOpportunityRefs(&o); err != nil {
		return nil, err
	}
	s.opportunities.put(o.ID, o)
	res := s.withEvidence(o)
	return &res, nil
}

// UpdateOpportunity applies a partial update. Moving an opportunity below one
// of its own descendants fails with ErrCycle.
func (s *Store) UpdateOpportunity(ctx context.Context, id string, p ost.OpportunityPatch) (*ost.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.opportunities.get(id)
	if !ok {
		return nil, fmt.Errorf("ost: opportunity %s: %w", id, ost.ErrNotFound)
	}
	o = o.Clone()
	p.ApplyTo(&o)
	o.EvidenceIDs = dedupe(o.EvidenceIDs)
	if err := s.checkOpportunityRefs(&o); err != nil {
		return nil, err
	}
	s.opportunities.put(id, o)
	res := s.withEvidence(o)
	return &res, nil
}

// DeleteOpportunity removes an opportunity, its nested opportunities and their solutions.
func (s *Store) DeleteOpportunity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteOpportunity(id)
	return nil
}

// deleteOpportunity removes id, its nested opportunities and their solutions.
func (s *Store) deleteOpportunity(id string) {
	if !s.opportunities.del(id) {
		return
	}
	for _, sol := range s.solutions.list() {
		if sol.OpportunityID == id {
			s.solutions.del(sol.ID)
		}
	}
	for _, o := range s.opportunities.list() {
		if o.ParentID != nil && *o.ParentID == id {
			s.deleteOpportunity(o.ID)
		}
	}
}

// ── Solutions ────────────────────────────────────────────────────────

// ListSolutions returns all solutions in creation order.
func (s *Store) ListSolutions(ctx context.Context) ([]ost.Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.solutions.list(), nil
}

// CreateSolution stores sol. Returns ErrInvalidParent if its opportunity doesn't exist.
func (s *Store) CreateSolution(ctx context.Context, sol ost.Solution) (*ost.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.opportunities.get(sol.OpportunityID); !ok {
		return nil, fmt.Errorf("ost: opportunity %s: %w", sol.OpportunityID, ost.ErrInvalidParent)
	}
	sol.ID = newID(sol.ID)
	if sol.Status == "" {
		sol.Status = ost.StatusBacklog
	}
	s.solutions.put(sol.ID, sol)
	return &sol, nil
}

// UpdateSolution applies a partial update. Returns ErrNotFound if the solution doesn't exist.
func (s *Store) UpdateSolution(ctx context.Context, id string, p ost.SolutionPatch) (*ost.Solution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sol, ok := s.solutions.get(id)
	if !ok {
		return nil, fmt.Errorf("ost: solution %s: %w", id, ost.ErrNotFound)
	}
	p.ApplyTo(&sol)
	if _, ok := s.opportunities.get(sol.OpportunityID); !ok {
		return nil, fmt.Errorf("ost: opportunity %s: %w", sol.OpportunityID, ost.ErrInvalidParent)
	}
	s.solutions.put(id, sol)
	return &sol, nil
}

// DeleteSolution removes a solution. No error if it doesn't exist.
func (s *Store) DeleteSolution(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solutions.del(id)
	return nil
}

// ── Interviews ───────────────────────────────────────────────────────

// ListInterviews returns all interviews in creation order.
func (s *Store) ListInterviews(ctx context.Context) ([]ost.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interviews.list(), nil
}

// CreateInterview stores i, assigning an id when missing.
func (s *Store) CreateInterview(ctx context.Context, i ost.Interview) (*ost.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = newID(i.ID)
	s.interviews.put(i.ID, i)
	return &i, nil
}

// UpdateInterview applies a partial update. Returns ErrNotFound if the interview doesn't exist.
func (s *Store) UpdateInterview(ctx context.Context, id string, p ost.InterviewPatch) (*ost.Interview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.interviews.get(id)
	if !ok {
		return nil, fmt.Errorf("ost: interview %s: %w", id, ost.ErrNotFound)
	}
	p.ApplyTo(&i)
	s.interviews.put(id, i)
	return &i, nil
}

// DeleteInterview removes an interview together with its evidence.
func (s *Store) DeleteInterview(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.interviews.del(id) {
		return nil
	}
	for _, e := range s.evidence.list() {
		if e.InterviewID == id {
			s.deleteEvidence(e.ID)
		}
	}
	return nil
}

// ── Evidence ─────────────────────────────────────────────────────────

// ListEvidence returns all evidence in creation order.
func (s *Store) ListEvidence(ctx context.Context) ([]ost.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.evidence.list()
	for i := range out {
		if iv, ok := s.interviews.get(out[i].InterviewID); ok {
			out[i].Interview = &iv
		}
	}
	return out, nil
}

// CreateEvidence stores e. Returns ErrInvalidParent if its interview doesn't exist.
func (s *Store) CreateEvidence(ctx context.Context, e ost.Evidence) (*ost.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.interviews.get(e.InterviewID); !ok {
		return nil, fmt.Errorf("ost: interview %s: %w", e.InterviewID, ost.ErrInvalidParent)
	}
	e.ID = newID(e.ID)
	e.Interview = nil
	s.evidence.put(e.ID, e)
	return &e, nil
}

// UpdateEvidence applies a partial update. Returns ErrNotFound if the evidence doesn't exist.
func (s *Store) UpdateEvidence(ctx context.Context, id string, p ost.EvidencePatch) (*ost.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evidence.get(id)
	if !ok {
		return nil, fmt.Errorf("ost: evidence %s: %w", id, ost.ErrNotFound)
	}
	p.ApplyTo(&e)
	if _, ok := s.interviews.get(e.InterviewID); !ok {
		return nil, fmt.Errorf("ost: interview %s: %w", e.InterviewID, ost.ErrInvalidParent)
	}
	s.evidence.put(id, e)
	return &e, nil
}

// DeleteEvidence removes evidence and unlinks it from every opportunity.
func (s *Store) DeleteEvidence(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteEvidence(id)
	return nil
}

// deleteEvidence removes id and unlinks it from every opportunity.
func (s *Store) deleteEvidence(id string) {
	if !s.evidence.del(id) {
		return
	}
	for _, o := range s.opportunities.list() {
		if !o.HasEvidence(id) {
			continue
		}
		o = o.Clone()
		o.EvidenceIDs = slices.DeleteFunc(o.EvidenceIDs, func(v string) bool { return v == id })
		s.opportunities.put(o.ID, o)
	}
}

func dedupe(ids []string) []string {
	out := []string{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
