package ost

import "fmt"

// Kind tags the entity a Node wraps.
type Kind string

const (
	KindOutcome     Kind = "outcome"
	KindOpportunity Kind = "opportunity"
	KindSolution    Kind = "solution"
)

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a canvas vertex. Exactly one of Outcome, Opportunity and Solution is
// set, matching Kind. Label always mirrors the wrapped entity's name.
type Node struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"type"`
	Position Position `json:"position"`
	Label    string   `json:"label"`

	Outcome     *Outcome     `json:"outcome,omitempty"`
	Opportunity *Opportunity `json:"opportunity,omitempty"`
	Solution    *Solution    `json:"solution,omitempty"`
}

// Edge is a directed structural connection between two nodes. Edges are never
// stored; they are derived from the entities' foreign keys.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// NewEdge returns the edge from source to target.
func NewEdge(source, target string) Edge {
	return Edge{ID: fmt.Sprintf("e-%s-%s", source, target), Source: source, Target: target}
}

// OutcomeNode wraps o.
func OutcomeNode(o Outcome) Node {
	n := Node{ID: o.ID, Kind: KindOutcome, Outcome: &o}
	n.sync()
	return n
}

// OpportunityNode wraps o.
func OpportunityNode(o Opportunity) Node {
	n := Node{ID: o.ID, Kind: KindOpportunity, Opportunity: &o}
	n.sync()
	return n
}

// SolutionNode wraps s.
func SolutionNode(s Solution) Node {
	n := Node{ID: s.ID, Kind: KindSolution, Solution: &s}
	n.sync()
	return n
}

// Name returns the wrapped entity's name.
func (n *Node) Name() string {
	switch n.Kind {
	case KindOutcome:
		return n.Outcome.Name
	case KindOpportunity:
		return n.Opportunity.Name
	case KindSolution:
		return n.Solution.Name
	}
	return ""
}

// ParentID returns the id of the node's structural parent, or "" for roots.
func (n *Node) ParentID() string {
	switch n.Kind {
	case KindOpportunity:
		return n.Opportunity.StructuralParent()
	case KindSolution:
		return n.Solution.OpportunityID
	}
	return ""
}

// SetPosition moves the node and its entity together.
func (n *Node) SetPosition(p Position) {
	n.Position = p
	switch n.Kind {
	case KindOutcome:
		n.Outcome.X, n.Outcome.Y = p.X, p.Y
	case KindOpportunity:
		n.Opportunity.X, n.Opportunity.Y = p.X, p.Y
	case KindSolution:
		n.Solution.X, n.Solution.Y = p.X, p.Y
	}
}

// Apply merges p into the wrapped entity and refreshes label and position.
func (n *Node) Apply(p Patch) error {
	if p.Kind() != n.Kind {
		return fmt.Errorf("ost: apply %s patch to %s node %s: %w", p.Kind(), n.Kind, n.ID, ErrKindMismatch)
	}
	switch pp := p.(type) {
	case OutcomePatch:
		pp.ApplyTo(n.Outcome)
	case OpportunityPatch:
		pp.ApplyTo(n.Opportunity)
	case SolutionPatch:
		pp.ApplyTo(n.Solution)
	}
	n.sync()
	return nil
}

// Replace swaps the wrapped entity for a server-confirmed one.
func (n *Node) Replace(entity any) error {
	switch e := entity.(type) {
	case *Outcome:
		if n.Kind != KindOutcome {
			return ErrKindMismatch
		}
		n.Outcome = e
	case *Opportunity:
		if n.Kind != KindOpportunity {
			return ErrKindMismatch
		}
		n.Opportunity = e
	case *Solution:
		if n.Kind != KindSolution {
			return ErrKindMismatch
		}
		n.Solution = e
	default:
		return fmt.Errorf("ost: replace with %T: %w", entity, ErrKindMismatch)
	}
	n.sync()
	return nil
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	if n.Outcome != nil {
		o := n.Outcome.Clone()
		n.Outcome = &o
	}
	if n.Opportunity != nil {
		o := n.Opportunity.Clone()
		n.Opportunity = &o
	}
	if n.Solution != nil {
		s := *n.Solution
		n.Solution = &s
	}
	return n
}

// sync recomputes the derived fields from the wrapped entity.
func (n *Node) sync() {
	switch n.Kind {
	case KindOutcome:
		n.ID = n.Outcome.ID
		n.Position = Position{X: n.Outcome.X, Y: n.Outcome.Y}
	case KindOpportunity:
		n.ID = n.Opportunity.ID
		n.Position = Position{X: n.Opportunity.X, Y: n.Opportunity.Y}
	case KindSolution:
		n.ID = n.Solution.ID
		n.Position = Position{X: n.Solution.X, Y: n.Solution.Y}
	}
	n.Label = n.Name()
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// DeriveEdges computes the structural edges of nodes, in node order.
// An opportunity with a parentId gets an edge from that parent only.
func DeriveEdges(nodes []Node) []Edge {
	edges := []Edge{}
	for _, n := range nodes {
		if parent := n.ParentID(); parent != "" {
			edges = append(edges, NewEdge(parent, n.ID))
		}
	}
	return edges
}

// BuildNodes wraps the three entity lists in canvas order: outcomes first,
// then opportunities, then solutions.
func BuildNodes(outcomes []Outcome, opportunities []Opportunity, solutions []Solution) []Node {
	nodes := make([]Node, 0, len(outcomes)+len(opportunities)+len(solutions))
	for _, o := range outcomes {
		nodes = append(nodes, OutcomeNode(o))
	}
	for _, o := range opportunities {
		nodes = append(nodes, OpportunityNode(o))
	}
	for _, s := range solutions {
		nodes = append(nodes, SolutionNode(s))
	}
	return nodes
}
