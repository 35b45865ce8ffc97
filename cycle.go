package ost

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// IsAcyclic reports whether edges form a DAG.
func IsAcyclic(edges []Edge) bool {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64)
	node := func(id string) int64 {
		if n, ok := ids[id]; ok {
			return n
		}
		n := int64(len(ids))
		ids[id] = n
		g.AddNode(simple.Node(n))
		return n
	}

	for _, e := range edges {
		from, to := node(e.Source), node(e.Target)
		if from == to {
			return false
		}
		if !g.HasEdgeFromTo(from, to) {
			g.SetEdge(g.NewEdge(g.Node(from), g.Node(to)))
		}
	}

	_, err := topo.Sort(g)
	return err == nil
}

// WouldCycle reports whether re-parenting target under source would close a
// cycle. Each node has a single structural parent, so the target's current
// inbound edge is dropped before the new one is added.
func WouldCycle(edges []Edge, source, target string) bool {
	if source == target {
		return true
	}
	next := make([]Edge, 0, len(edges)+1)
	for _, e := range edges {
		if e.Target == target {
			continue
		}
		next = append(next, e)
	}
	next = append(next, NewEdge(source, target))
	return !IsAcyclic(next)
}
