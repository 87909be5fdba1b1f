// Package scheduler implements the topological batching used to order
// schema-path evaluations so that every read dependency is satisfied before
// its dependents run (spec §4.4). kaptinlin-jsonschema has no topological
// sort of its own; this package is written fresh in its small-struct-with-
// methods idiom, the way signadot-tony-format's dedicated cycle-detection
// unit is split out as its own file rather than folded into a general graph
// package.
package scheduler

import "sort"

// Graph is a directed dependency graph over string-identified nodes. An edge
// u -> v means "u depends on v": v must be scheduled into an earlier batch
// than u. Nodes are inserted in a stable order so tie-breaking during
// batching is deterministic (spec §4.4 "ties are broken by insertion order").
type Graph struct {
	order []string
	index map[string]int
	deps  map[string]map[string]bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[string]int), deps: make(map[string]map[string]bool)}
}

// AddNode registers a node if it is not already present. Safe to call
// multiple times for the same id.
func (g *Graph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
	g.deps[id] = make(map[string]bool)
}

// AddEdge records that "from" depends on "to" (to must be scheduled first).
// Both nodes are registered if new.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.deps[from][to] = true
}

// Dependencies returns the direct dependency set of id, in insertion order.
func (g *Graph) Dependencies(id string) []string {
	set := g.deps[id]
	out := make([]string, 0, len(set))
	for _, n := range g.order {
		if set[n] {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every registered node id in insertion order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// CycleError reports a dependency cycle discovered during batching. Paths
// contains one representative cycle, in traversal order (spec §7
// CyclicReadDependency, §4.4 "the returned path list contains one
// representative cycle").
type CycleError struct {
	Paths []string
}

func (e *CycleError) Error() string {
	s := "cyclic dependency: "
	for i, p := range e.Paths {
		if i > 0 {
			s += " -> "
		}
		s += p
	}
	return s
}

// Batches runs Kahn's algorithm over the graph, producing batches such that
// every edge (u -> v, "u depends on v") satisfies batch(v) < batch(u), and no
// edges exist within one batch. Within a batch, ids are sorted by their
// original insertion order for deterministic output. Returns a *CycleError
// if the graph is not a DAG.
func (g *Graph) Batches() ([][]string, error) {
	remaining := make(map[string]map[string]bool, len(g.order))
	for _, n := range g.order {
		cp := make(map[string]bool, len(g.deps[n]))
		for d := range g.deps[n] {
			cp[d] = true
		}
		remaining[n] = cp
	}

	var batches [][]string
	done := make(map[string]bool, len(g.order))

	for len(done) < len(g.order) {
		var ready []string
		for _, n := range g.order {
			if done[n] {
				continue
			}
			if len(remaining[n]) == 0 {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			return nil, &CycleError{Paths: g.findCycle()}
		}
		sort.Slice(ready, func(i, j int) bool { return g.index[ready[i]] < g.index[ready[j]] })
		for _, n := range ready {
			done[n] = true
			delete(remaining, n)
		}
		for n, deps := range remaining {
			for _, r := range ready {
				delete(deps, r)
			}
			remaining[n] = deps
		}
		batches = append(batches, ready)
	}
	return batches, nil
}

// findCycle walks from each undone node, following dependency edges, until it
// revisits a node on the current path. Used only on the error path once
// Batches has already determined the graph is cyclic.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.order))
	var stack []string
	var cyclePath []string

	var visit func(n string) bool
	visit = func(n string) bool {
		color[n] = gray
		stack = append(stack, n)
		for _, d := range g.Dependencies(n) {
			switch color[d] {
			case gray:
				// Found the back-edge; extract the cycle from the stack.
				start := 0
				for i, s := range stack {
					if s == d {
						start = i
						break
					}
				}
				cyclePath = append([]string{}, stack[start:]...)
				return true
			case white:
				if visit(d) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[n] = black
		return false
	}

	for _, n := range g.order {
		if color[n] == white {
			if visit(n) {
				return cyclePath
			}
		}
	}
	return nil
}
