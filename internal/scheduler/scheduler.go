package scheduler

import (
	"sort"

	"github.com/vk/queryplango/internal/graph"
)

// Source is the view of a dependency graph the scheduler needs. *graph.Graph
// satisfies it. Dependencies and Dependents are expected to return sets
// (no duplicates); duplicate dependency entries are collapsed regardless.
type Source interface {
	// IDs returns every node id.
	IDs() []int
	// Dependencies returns the ids the given node depends on.
	Dependencies(id int) []int
	// Dependents returns the ids of nodes depending on the given node.
	Dependents(id int) []int
}

// Iterator yields execution waves one at a time, in dependency order. It is
// finite and not restartable; create a new Iterator to iterate again.
//
// Usage follows the scanner idiom:
//
//	it := scheduler.Waves(g)
//	for it.Next() {
//	    wave := it.Wave()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	src Source
	// indegree tracks the unresolved-dependency count of every unscheduled
	// node. Scheduled nodes are deleted from the map.
	indegree  map[int]int
	remaining int
	wave      []int
	err       error
}

// Waves returns a lazy wave iterator over src using an iterative variant of
// Kahn's algorithm. Although graph.Build already rules out cycles, the
// iterator re-validates acyclicity, since a Source may be constructed by
// other means: if no node becomes schedulable while unscheduled nodes
// remain, Err reports a graph.CyclicDependencyError naming the stuck ids in
// ascending order.
func Waves(src Source) *Iterator {
	ids := src.IDs()
	it := &Iterator{
		src:       src,
		indegree:  make(map[int]int, len(ids)),
		remaining: len(ids),
	}
	for _, id := range ids {
		seen := make(map[int]struct{})
		for _, dep := range src.Dependencies(id) {
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
		}
		it.indegree[id] = len(seen)
	}
	return it
}

// Next computes the next wave. It returns false when iteration is exhausted
// or has failed; check Err afterwards to distinguish.
func (it *Iterator) Next() bool {
	if it.err != nil || it.remaining == 0 {
		it.wave = nil
		return false
	}

	wave := make([]int, 0, it.remaining)
	for id, deg := range it.indegree {
		if deg == 0 {
			wave = append(wave, id)
		}
	}

	if len(wave) == 0 {
		// No progress possible with nodes left over: a cycle survived
		// whatever validation the Source had.
		stuck := make([]int, 0, len(it.indegree))
		for id := range it.indegree {
			stuck = append(stuck, id)
		}
		sort.Ints(stuck)
		it.err = &graph.CyclicDependencyError{Cycle: stuck}
		it.wave = nil
		return false
	}

	// Ascending id order is the deterministic tie-break within a wave.
	sort.Ints(wave)

	for _, id := range wave {
		delete(it.indegree, id)
		// Each edge decrements exactly once, mirroring the distinct-dependency
		// count in Waves.
		notified := make(map[int]struct{})
		for _, dependent := range it.src.Dependents(id) {
			if _, dup := notified[dependent]; dup {
				continue
			}
			notified[dependent] = struct{}{}
			if _, pending := it.indegree[dependent]; pending {
				it.indegree[dependent]--
			}
		}
	}
	it.remaining -= len(wave)
	it.wave = wave
	return true
}

// Wave returns the wave computed by the last successful call to Next. The
// returned slice is owned by the caller.
func (it *Iterator) Wave() []int {
	return it.wave
}

// Err returns the first error encountered during iteration, if any.
func (it *Iterator) Err() error {
	return it.err
}

// All materializes every wave of src. On a cycle it returns no waves at all,
// only the error.
func All(src Source) ([][]int, error) {
	var waves [][]int
	it := Waves(src)
	for it.Next() {
		waves = append(waves, it.Wave())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return waves, nil
}
