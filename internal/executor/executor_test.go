package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
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
	return plan.Node{ID: id, Text: fmt.Sprintf("question %d", id), Dependencies: deps, Kind: plan.Single}
}

func merge(id int, deps ...int) plan.Node {
	n := node(id, deps...)
	n.Kind = plan.Merge
	return n
}

// recorder is a spy Answerer. It echoes a canned answer per node, records
// every invocation together with the dependency answers it was handed, fails
// on demand, and tracks how many invocations ran concurrently.
type recorder struct {
	mu      sync.Mutex
	deps    map[int]map[int]string
	failOn  map[int]error
	delay   time.Duration
	current int
	peak    int
}

func newRecorder() *recorder {
	return &recorder{
		deps:   make(map[int]map[int]string),
		failOn: make(map[int]error),
	}
}

func (r *recorder) answer(_ context.Context, n plan.Node, deps map[int]string) (string, error) {
	r.mu.Lock()
	r.current++
	if r.current > r.peak {
		r.peak = r.current
	}
	seen := make(map[int]string, len(deps))
	for id, ans := range deps {
		seen[id] = ans
	}
	r.deps[n.ID] = seen
	err := r.failOn[n.ID]
	delay := r.delay
	r.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	r.mu.Lock()
	r.current--
	r.mu.Unlock()

	if err != nil {
		return "", err
	}
	return fmt.Sprintf("answer-%d", n.ID), nil
}

func (r *recorder) invoked(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.deps[id]
	return ok
}

func (r *recorder) depsSeen(id int) map[int]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deps[id]
}

func (r *recorder) invocations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deps)
}

func (r *recorder) maxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak
}

func TestRun(t *testing.T) {
	t.Run("diamond plan answers every node and feeds merge inputs", func(t *testing.T) {
		g := build(t,
			node(1),
			node(2),
			node(3, 1),
			merge(4, 2, 3),
		)
		rec := newRecorder()
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 4})

		res, err := ex.Run(context.Background())
		require.NoError(t, err)
		require.NotNil(t, res)

		assert.Equal(t, []int{1, 2, 3, 4}, res.Done())
		assert.Empty(t, res.Failed())
		assert.Empty(t, res.Skipped())

		answer, ok := res.Answer(4)
		require.True(t, ok)
		assert.Equal(t, "answer-4", answer)

		// The merge node must see exactly its dependencies' answers,
		// keyed by id, nothing more.
		assert.Equal(t, map[int]string{2: "answer-2", 3: "answer-3"}, rec.depsSeen(4))
		assert.Equal(t, map[int]string{1: "answer-1"}, rec.depsSeen(3))
		assert.Empty(t, rec.depsSeen(1))
		assert.Empty(t, rec.depsSeen(2))
	})

	t.Run("result carries run metadata", func(t *testing.T) {
		g := build(t, node(1))
		ex := New(g, AnswerFunc(newRecorder().answer), Options{})

		res, err := ex.Run(context.Background())
		require.NoError(t, err)

		_, parseErr := uuid.Parse(res.RunID)
		assert.NoError(t, parseErr, "run id should be a uuid, got %q", res.RunID)
		assert.False(t, res.FinishedAt.Before(res.StartedAt))
		assert.GreaterOrEqual(t, res.Duration(), time.Duration(0))
	})

	t.Run("empty plan completes with an empty result", func(t *testing.T) {
		g := build(t)
		rec := newRecorder()

		res, err := New(g, AnswerFunc(rec.answer), Options{}).Run(context.Background())
		require.NoError(t, err)
		assert.Empty(t, res.Nodes)
		assert.Zero(t, rec.invocations())
	})
}

func TestRunFailFast(t *testing.T) {
	t.Run("dependents of a failed node are skipped and never invoked", func(t *testing.T) {
		// --- Arrange ---
		injected := errors.New("model refused to answer")
		g := build(t,
			node(1),
			node(3, 1),
			node(4, 3),
		)
		rec := newRecorder()
		rec.failOn[3] = injected
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 2, Policy: FailFast})

		// --- Act ---
		res, err := ex.Run(context.Background())

		// --- Assert ---
		require.Error(t, err)
		require.NotNil(t, res, "a failed run still reports per-node results")
		assert.EqualError(t, err, "answering node 3 failed: model refused to answer")
		assert.ErrorIs(t, err, injected)

		var nodeErr *NodeExecutionError
		require.ErrorAs(t, err, &nodeErr)
		assert.Equal(t, 3, nodeErr.ID)

		assert.False(t, rec.invoked(4), "fail-fast did not hold: a node downstream of the failure ran")
		require.Contains(t, res.Nodes, 4)
		assert.Equal(t, StateSkipped, res.Nodes[4].State)
		assert.Equal(t, "unresolved dependency 3", res.Nodes[4].Reason)

		assert.Equal(t, []int{3}, res.Failed())
		assert.Equal(t, []int{4}, res.Skipped())
		assert.Equal(t, []int{1}, res.Done())
	})

	t.Run("later waves stop even on chains unrelated to the failure", func(t *testing.T) {
		// --- Arrange ---
		injected := errors.New("boom")
		g := build(t,
			node(1),
			node(2),
			node(3, 2),
		)
		rec := newRecorder()
		rec.failOn[1] = injected
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 2})

		// --- Act ---
		res, err := ex.Run(context.Background())

		// --- Assert ---
		require.Error(t, err)

		// The failing node's wave siblings still finish.
		assert.Equal(t, []int{2}, res.Done())

		assert.False(t, rec.invoked(3))
		require.Contains(t, res.Nodes, 3)
		assert.Equal(t, StateSkipped, res.Nodes[3].State)
		assert.Equal(t, "aborted after node 1 failed", res.Nodes[3].Reason)
	})
}

func TestRunContinue(t *testing.T) {
	t.Run("independent chain keeps running past a failure", func(t *testing.T) {
		// --- Arrange ---
		injected := errors.New("boom")
		g := build(t,
			node(1),
			node(2, 1),
			node(3),
			node(4, 3),
		)
		rec := newRecorder()
		rec.failOn[1] = injected
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 2, Policy: Continue})

		// --- Act ---
		res, err := ex.Run(context.Background())

		// --- Assert ---
		require.Error(t, err)
		assert.ErrorIs(t, err, injected)

		assert.Equal(t, []int{3, 4}, res.Done())
		assert.Equal(t, []int{1}, res.Failed())
		assert.Equal(t, []int{2}, res.Skipped())
		assert.Equal(t, "unresolved dependency 1", res.Nodes[2].Reason)
		assert.True(t, rec.invoked(4), "an unaffected chain should run to completion")
		assert.False(t, rec.invoked(2))
	})

	t.Run("multiple failures aggregate in ascending id order", func(t *testing.T) {
		g := build(t,
			node(2),
			node(5),
			node(7),
		)
		rec := newRecorder()
		rec.failOn[2] = errors.New("first")
		rec.failOn[5] = errors.New("second")
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 3, Policy: Continue})

		res, err := ex.Run(context.Background())
		require.Error(t, err)
		assert.ErrorContains(t, err, "answering node 2 failed: first")
		assert.ErrorContains(t, err, "answering node 5 failed: second")

		msg := err.Error()
		assert.Less(t,
			strings.Index(msg, "answering node 2 failed"),
			strings.Index(msg, "answering node 5 failed"),
			"joined failures should be ordered by node id")

		assert.Equal(t, []int{2, 5}, res.Failed())
		assert.Equal(t, []int{7}, res.Done())
	})
}

func TestRunCancellation(t *testing.T) {
	t.Run("canceled context skips every node", func(t *testing.T) {
		g := build(t,
			node(1),
			node(2, 1),
		)
		rec := newRecorder()
		ex := New(g, AnswerFunc(rec.answer), Options{})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := ex.Run(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, res)

		assert.Zero(t, rec.invocations())
		for id, nodeRes := range res.Nodes {
			assert.Equal(t, StateSkipped, nodeRes.State, "node %d", id)
			assert.Equal(t, "canceled", nodeRes.Reason, "node %d", id)
		}
		assert.Len(t, res.Nodes, 2)
	})
}

func TestRunWorkerBound(t *testing.T) {
	t.Run("wave concurrency stays within the worker limit", func(t *testing.T) {
		g := build(t,
			node(1), node(2), node(3),
			node(4), node(5), node(6),
		)
		rec := newRecorder()
		rec.delay = 10 * time.Millisecond
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 2})

		_, err := ex.Run(context.Background())
		require.NoError(t, err)

		assert.LessOrEqual(t, rec.maxConcurrent(), 2)
		assert.Equal(t, 6, rec.invocations())
	})

	t.Run("non-positive worker counts normalize to serial execution", func(t *testing.T) {
		g := build(t, node(1), node(2), node(3))
		rec := newRecorder()
		rec.delay = 5 * time.Millisecond
		ex := New(g, AnswerFunc(rec.answer), Options{Workers: 0})

		_, err := ex.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, rec.maxConcurrent())
	})
}

func TestProgress(t *testing.T) {
	t.Run("pre-run progress reports every node pending", func(t *testing.T) {
		g := build(t, node(1), node(2, 1))
		ex := New(g, AnswerFunc(newRecorder().answer), Options{})

		p := ex.Progress()
		assert.Equal(t, 2, p.Total)
		assert.Equal(t, 2, p.Pending)
		assert.Zero(t, p.Done)
		assert.Zero(t, p.Failed)
		assert.Zero(t, p.Skipped)
	})

	t.Run("post-run progress accounts for every node", func(t *testing.T) {
		g := build(t,
			node(1),
			node(2, 1),
			node(3),
			node(4, 3),
		)
		rec := newRecorder()
		rec.failOn[1] = errors.New("boom")
		ex := New(g, AnswerFunc(rec.answer), Options{Policy: Continue})

		res, err := ex.Run(context.Background())
		require.Error(t, err)

		p := ex.Progress()
		assert.Equal(t, res.RunID, p.RunID)
		assert.Equal(t, 4, p.Total)
		assert.Equal(t, 2, p.Done)
		assert.Equal(t, 1, p.Failed)
		assert.Equal(t, 1, p.Skipped)
		assert.Zero(t, p.Pending)
	})
}

func TestParsePolicy(t *testing.T) {
	cases := map[string]struct {
		in   string
		want Policy
	}{
		"empty defaults to fail fast": {in: "", want: FailFast},
		"failfast":                    {in: "failfast", want: FailFast},
		"mixed case and padding":      {in: "  FailFast ", want: FailFast},
		"continue":                    {in: "continue", want: Continue},
		"continue upper case":         {in: "CONTINUE", want: Continue},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ParsePolicy(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("unknown policy is rejected", func(t *testing.T) {
		_, err := ParsePolicy("sometimes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown fail policy "sometimes"`)
	})
}
