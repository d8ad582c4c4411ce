package scheduler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/queryplango/internal/graph"
	"github.com/vk/queryplango/internal/plan"
)

// build is a test helper that constructs a validated graph or fails the test.
func build(t *testing.T, nodes ...plan.Node) *graph.Graph {
	t.Helper()
	g, err := graph.Build(nodes)
	require.NoError(t, err)
	return g
}

// node is a test helper for building plan nodes tersely.
func node(id int, deps ...int) plan.Node {
	return plan.Node{ID: id, Text: "q", Dependencies: deps, Kind: plan.Single}
}

// fakeSource lets tests feed the scheduler a topology that graph.Build would
// reject, exercising the iterator's own cycle check.
type fakeSource struct {
	ids  []int
	deps map[int][]int
}

func (f *fakeSource) IDs() []int { return f.ids }

func (f *fakeSource) Dependencies(id int) []int { return f.deps[id] }

func (f *fakeSource) Dependents(id int) []int {
	var out []int
	for _, other := range f.ids {
		for _, dep := range f.deps[other] {
			if dep == id {
				out = append(out, other)
			}
		}
	}
	return out
}

func TestWaves(t *testing.T) {
	t.Run("diamond plan partitions into ordered waves", func(t *testing.T) {
		g := build(t,
			node(1),
			node(2),
			node(3, 1),
			node(4, 2, 3),
		)

		waves, err := All(g)
		require.NoError(t, err)

		want := [][]int{{1, 2}, {3}, {4}}
		if diff := cmp.Diff(want, waves); diff != "" {
			t.Errorf("waves mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ties inside a wave break by ascending id", func(t *testing.T) {
		g := build(t,
			node(9),
			node(2),
			node(7),
			node(1),
			node(12, 9, 2, 7, 1),
		)

		waves, err := All(g)
		require.NoError(t, err)

		want := [][]int{{1, 2, 7, 9}, {12}}
		if diff := cmp.Diff(want, waves); diff != "" {
			t.Errorf("waves mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("concatenation contains every node exactly once", func(t *testing.T) {
		g := build(t,
			node(1),
			node(2, 1),
			node(3, 1),
			node(4, 2),
			node(5, 2, 3),
			node(6, 4, 5),
			node(7),
		)

		waves, err := All(g)
		require.NoError(t, err)

		seen := make(map[int]int)
		total := 0
		for _, wave := range waves {
			for _, id := range wave {
				seen[id]++
				total++
			}
		}
		assert.Equal(t, g.Len(), total)
		for _, id := range g.IDs() {
			assert.Equal(t, 1, seen[id], "node %d scheduled %d times", id, seen[id])
		}
	})

	t.Run("every dependency lands in a strictly earlier wave", func(t *testing.T) {
		g := build(t,
			node(1),
			node(2, 1),
			node(3, 1),
			node(4, 2),
			node(5, 2, 3),
			node(6, 4, 5),
		)

		waves, err := All(g)
		require.NoError(t, err)

		waveOf := make(map[int]int)
		for i, wave := range waves {
			for _, id := range wave {
				waveOf[id] = i
			}
		}
		for _, id := range g.IDs() {
			for _, dep := range g.Dependencies(id) {
				assert.Less(t, waveOf[dep], waveOf[id],
					"dependency %d of node %d must be in an earlier wave", dep, id)
			}
		}
	})

	t.Run("iterator is lazy and terminates cleanly", func(t *testing.T) {
		g := build(t, node(1), node(2, 1))

		it := Waves(g)
		require.True(t, it.Next())
		assert.Equal(t, []int{1}, it.Wave())
		require.True(t, it.Next())
		assert.Equal(t, []int{2}, it.Wave())

		assert.False(t, it.Next())
		assert.Nil(t, it.Wave())
		assert.NoError(t, it.Err())

		// Exhausted iterators stay exhausted.
		assert.False(t, it.Next())
	})

	t.Run("empty source yields no waves", func(t *testing.T) {
		g := build(t)

		waves, err := All(g)
		require.NoError(t, err)
		assert.Empty(t, waves)
	})
}

func TestWavesCyclicSource(t *testing.T) {
	t.Run("cyclic source never returns a schedule", func(t *testing.T) {
		src := &fakeSource{
			ids: []int{1, 2},
			deps: map[int][]int{
				1: {2},
				2: {1},
			},
		}

		it := Waves(src)
		assert.False(t, it.Next())

		var cyclic *graph.CyclicDependencyError
		require.ErrorAs(t, it.Err(), &cyclic)
		assert.Equal(t, []int{1, 2}, cyclic.Cycle)

		waves, err := All(src)
		assert.Nil(t, waves)
		assert.Error(t, err)
	})

	t.Run("partially cyclic source schedules nothing past the cycle", func(t *testing.T) {
		src := &fakeSource{
			ids: []int{1, 2, 3, 4},
			deps: map[int][]int{
				2: {3},
				3: {2},
				4: {1},
			},
		}

		it := Waves(src)
		require.True(t, it.Next())
		assert.Equal(t, []int{1}, it.Wave())
		require.True(t, it.Next())
		assert.Equal(t, []int{4}, it.Wave())

		assert.False(t, it.Next())
		var cyclic *graph.CyclicDependencyError
		require.ErrorAs(t, it.Err(), &cyclic)
		assert.Equal(t, []int{2, 3}, cyclic.Cycle)
	})

	t.Run("duplicate dependency entries from a sloppy source collapse", func(t *testing.T) {
		src := &fakeSource{
			ids: []int{1, 2},
			deps: map[int][]int{
				2: {1, 1, 1},
			},
		}

		waves, err := All(src)
		require.NoError(t, err)
		want := [][]int{{1}, {2}}
		if diff := cmp.Diff(want, waves); diff != "" {
			t.Errorf("waves mismatch (-want +got):\n%s", diff)
		}
	})
}
