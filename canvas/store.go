// Package canvas keeps an in-memory mirror of an opportunity solution tree in
// sync with the remote API.
//
// Local state changes before the network round-trip wherever the server does
// not have to assign an id. A failed optimistic call falls back to a full
// reload; a failed pessimistic call (a create) leaves local state untouched.
// Every outcome is reported to the Notifier and also returned to the caller.
package canvas

import (
	"context"
	"log/slog"
	"sync"

	"github.com/meikuraledutech/ost"
	"golang.org/x/sync/errgroup"
)

// API is the remote system of record the store synchronises with.
type API interface {
	ListOutcomes(ctx context.Context) ([]ost.Outcome, error)
	CreateOutcome(ctx context.Context, o ost.Outcome) (*ost.Outcome, error)
	UpdateOutcome(ctx context.Context, id string, p ost.OutcomePatch) (*ost.Outcome, error)
	DeleteOutcome(ctx context.Context, id string) error

	ListOpportunities(ctx context.Context) ([]ost.Opportunity, error)
	CreateOpportunity(ctx context.Context, o ost.Opportunity) (*ost.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, p ost.OpportunityPatch) (*ost.Opportunity, error)
	DeleteOpportunity(ctx context.Context, id string) error

	ListSolutions(ctx context.Context) ([]ost.Solution, error)
	CreateSolution(ctx context.Context, s ost.Solution) (*ost.Solution, error)
	UpdateSolution(ctx context.Context, id string, p ost.SolutionPatch) (*ost.Solution, error)
	DeleteSolution(ctx context.Context, id string) error
}

// Option configures New.
type Option func(*Store)

// WithNotifier routes notifications to n instead of the logger.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogger sets the logger used by the default notifier.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store is the canvas graph: nodes keyed by id in insertion order, and the
// structural edges between them. It is safe for concurrent use; remote calls
// are made without holding the lock.
type Store struct {
	api      API
	notifier Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	nodes map[string]*ost.Node
	order []string
	edges []ost.Edge

	// gen counts dispatched mutations per node. A response is applied only
	// while its node still exists and no newer mutation has been dispatched.
	gen map[string]uint64

	draggingEvidence bool
}

// New returns an empty store backed by api. Call LoadCanvas to populate it.
func New(api API, opts ...Option) *Store {
	s := &Store{
		api:    api,
		logger: slog.Default(),
		nodes:  make(map[string]*ost.Node),
		gen:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	return s
}

// LoadCanvas replaces the local graph with the server's. The three lists are
// fetched concurrently. On failure the previous graph is kept.
func (s *Store) LoadCanvas(ctx context.Context) error {
	var (
		outcomes      []ost.Outcome
		opportunities []ost.Opportunity
		solutions     []ost.Solution
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		outcomes, err = s.api.ListOutcomes(gctx)
		return err
	})
	g.Go(func() (err error) {
		opportunities, err = s.api.ListOpportunities(gctx)
		return err
	})
	g.Go(func() (err error) {
		solutions, err = s.api.ListSolutions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(ctx, "load canvas", "", err)
		return err
	}

	nodes := ost.BuildNodes(outcomes, opportunities, solutions)
	edges := ost.DeriveEdges(nodes)

	s.mu.Lock()
	s.nodes = make(map[string]*ost.Node, len(nodes))
	s.order = make([]string, 0, len(nodes))
	for i := range nodes {
		s.nodes[nodes[i].ID] = &nodes[i]
		s.order = append(s.order, nodes[i].ID)
	}
	for id := range s.gen {
		if _, ok := s.nodes[id]; !ok {
			delete(s.gen, id)
		}
	}
	s.edges = edges
	s.mu.Unlock()
	return nil
}

// Nodes returns a copy of every node in insertion order.
func (s *Store) Nodes() []ost.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ost.Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id].Clone())
	}
	return out
}

// Node returns a copy of the node with id.
func (s *Store) Node(id string) (ost.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return ost.Node{}, false
	}
	return n.Clone(), true
}

// Edges returns a copy of the edge list.
func (s *Store) Edges() []ost.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ost.Edge(nil), s.edges...)
}

// Children returns the ids of id's direct structural children in insertion order.
func (s *Store) Children(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.children(id)
}

// Descendants returns every node below id, breadth first.
func (s *Store) Descendants(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.descendants(id)
}

// RootOutcome walks id's parent chain up to its outcome. It returns "" when
// the chain is broken or id is not on the canvas.
func (s *Store) RootOutcome(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	for id != "" && !seen[id] {
		seen[id] = true
		n, ok := s.nodes[id]
		if !ok {
			return ""
		}
		if n.Kind == ost.KindOutcome {
			return id
		}
		id = n.ParentID()
	}
	return ""
}

// SetDraggingEvidence records whether evidence is being dragged over the canvas.
func (s *Store) SetDraggingEvidence(v bool) {
	s.mu.Lock()
	s.draggingEvidence = v
	s.mu.Unlock()
}

// DraggingEvidence reports the flag set by SetDraggingEvidence.
func (s *Store) DraggingEvidence() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draggingEvidence
}

func (s *Store) children(id string) []string {
	var out []string
	for _, cid := range s.order {
		if s.nodes[cid].ParentID() == id {
			out = append(out, cid)
		}
	}
	return out
}

func (s *Store) descendants(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range s.children(cur) {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// insert adds n and, when it has a parent, the edge into it.
func (s *Store) insert(n ost.Node) {
	if _, ok := s.nodes[n.ID]; !ok {
		s.order = append(s.order, n.ID)
	}
	s.nodes[n.ID] = &n
	s.reparent(n.ID)
}

// reparent makes the edges into id match its current parent.
func (s *Store) reparent(id string) {
	n, ok := s.nodes[id]
	if !ok {
		return
	}
	edges := s.edges[:0:0]
	for _, e := range s.edges {
		if e.Target != id {
			edges = append(edges, e)
		}
	}
	if parent := n.ParentID(); parent != "" {
		edges = append(edges, ost.NewEdge(parent, id))
	}
	s.edges = edges
}

// remove drops id and every edge touching it.
func (s *Store) remove(id string) {
	delete(s.nodes, id)
	delete(s.gen, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	edges := s.edges[:0:0]
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	s.edges = edges
}

// bump records a dispatched mutation of id and returns its generation.
func (s *Store) bump(id string) uint64 {
	s.gen[id]++
	return s.gen[id]
}

// current reports whether a response for generation g of id may be applied.
func (s *Store) current(id string, g uint64) bool {
	_, ok := s.nodes[id]
	return ok && s.gen[id] == g
}

func (s *Store) pending(ctx context.Context, op, id string) {
	s.notifier.Notify(ctx, Notification{Level: Pending, Op: op, NodeID: id, Message: op})
}

func (s *Store) succeed(ctx context.Context, op, id string) {
	s.notifier.Notify(ctx, Notification{Level: Success, Op: op, NodeID: id, Message: op + " succeeded"})
}

func (s *Store) fail(ctx context.Context, op, id string, err error) {
	s.notifier.Notify(ctx, Notification{Level: Failure, Op: op, NodeID: id, Message: failureMessage(op, err), Err: err})
}
