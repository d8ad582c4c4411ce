package graph

import (
	"sort"
	"strings"

	"github.com/vk/queryplango/internal/plan"
)

// Graph is a validated, immutable dependency graph of plan nodes. Build is
// the only constructor; once built, the dependency relation is guaranteed to
// be a DAG with no dangling or self references.
type Graph struct {
	// nodes stores all nodes, keyed by their unique id.
	nodes map[int]plan.Node
	// ids holds every node id in ascending order for deterministic iteration.
	ids []int
	// deps holds each node's dependency set, deduplicated and ascending.
	deps map[int][]int
	// dependents holds the reverse edges (successors), ascending.
	dependents map[int][]int
}

// Build validates a flat node list into a Graph. It is pure: no side
// effects, no retained references to the input slice.
//
// Validation order: unique ids and non-empty text first, then per-node
// dependency references (self and dangling), then a full cycle check. The
// first violation found aborts construction with a typed error from the
// taxonomy in errors.go.
func Build(nodes []plan.Node) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[int]plan.Node, len(nodes)),
		ids:        make([]int, 0, len(nodes)),
		deps:       make(map[int][]int, len(nodes)),
		dependents: make(map[int][]int, len(nodes)),
	}

	// First pass: register nodes, rejecting duplicates and empty questions.
	for _, n := range nodes {
		if _, exists := g.nodes[n.ID]; exists {
			return nil, &DuplicateIDError{ID: n.ID}
		}
		if strings.TrimSpace(n.Text) == "" {
			return nil, &EmptyTextError{ID: n.ID}
		}
		g.nodes[n.ID] = n
		g.ids = append(g.ids, n.ID)
	}
	sort.Ints(g.ids)

	// Second pass: link dependencies. Duplicate entries collapse to set
	// semantics; self and dangling references are rejected.
	for _, id := range g.ids {
		n := g.nodes[id]
		seen := make(map[int]struct{}, len(n.Dependencies))
		for _, dep := range n.Dependencies {
			if dep == id {
				return nil, &SelfDependencyError{ID: id}
			}
			if _, ok := g.nodes[dep]; !ok {
				return nil, &DanglingDependencyError{NodeID: id, DependencyID: dep}
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			g.deps[id] = append(g.deps[id], dep)
		}
		sort.Ints(g.deps[id])
	}

	// Reverse edges. Iterating ids ascending keeps every dependents slice
	// ascending without a separate sort.
	for _, id := range g.ids {
		for _, dep := range g.deps[id] {
			g.dependents[dep] = append(g.dependents[dep], id)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &CyclicDependencyError{Cycle: cycle}
	}

	return g, nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.ids)
}

// IDs returns every node id in ascending order. The returned slice must not
// be modified.
func (g *Graph) IDs() []int {
	return g.ids
}

// Node returns the node with the given id, if present.
func (g *Graph) Node(id int) (plan.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Dependencies returns the ids the given node depends on, deduplicated and
// ascending. Unknown ids yield nil.
func (g *Graph) Dependencies(id int) []int {
	return g.deps[id]
}

// Dependents returns the ids of nodes that depend on the given node,
// ascending. Unknown ids yield nil.
func (g *Graph) Dependents(id int) []int {
	return g.dependents[id]
}

// findCycle runs a depth-first search over the dependency edges, tracking the
// set of nodes on the current traversal path. Revisiting a node on that path
// means a cycle; the returned slice holds the cycle members in detection
// order. Roots iterate in ascending id order so the witness is deterministic.
// Returns nil if the graph is acyclic.
func (g *Graph) findCycle() []int {
	visiting := make(map[int]bool, len(g.ids))
	visited := make(map[int]bool, len(g.ids))
	path := make([]int, 0, len(g.ids))

	var cycle []int
	var visit func(id int) bool
	visit = func(id int) bool {
		visiting[id] = true
		path = append(path, id)
		for _, dep := range g.deps[id] {
			if visiting[dep] {
				// The current path from the first occurrence of dep, in
				// traversal order, is the cycle.
				for i, member := range path {
					if member == dep {
						cycle = append(cycle, path[i:]...)
						break
					}
				}
				return true
			}
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			}
		}
		path = path[:len(path)-1]
		delete(visiting, id)
		visited[id] = true
		return false
	}

	for _, id := range g.ids {
		if !visited[id] {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}
