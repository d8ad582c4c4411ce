package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vk/queryplango/internal/ctxlog"
	"github.com/vk/queryplango/internal/graph"
	"github.com/vk/queryplango/internal/scheduler"
)

// Executor drives a single run of a validated graph. Create one with New and
// call Run exactly once; Progress may be called concurrently with Run.
type Executor struct {
	graph    *graph.Graph
	answerer Answerer
	workers  int
	policy   Policy
	runID    string

	// mu guards results. Every node writes a distinct key, so the lock only
	// serializes map access from sibling goroutines within a wave.
	mu      sync.RWMutex
	results map[int]NodeResult
}

// New returns an Executor over a validated graph. Option values outside
// their valid range normalize per Options.
func New(g *graph.Graph, a Answerer, opts Options) *Executor {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	policy := opts.Policy
	if policy == "" {
		policy = FailFast
	}
	return &Executor{
		graph:    g,
		answerer: a,
		workers:  workers,
		policy:   policy,
		runID:    uuid.NewString(),
		results:  make(map[int]NodeResult, g.Len()),
	}
}

// Run executes the graph wave by wave and returns the complete Result. The
// Result is always non-nil when err is nil or when err reports node
// failures; it is nil only if scheduling itself failed.
//
// The returned error is the first node failure under FailFast, the joined
// node failures under Continue, or ctx.Err() if the run was canceled before
// any node failed.
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	startedAt := time.Now()

	// skipped maps a doomed node to the failed ancestor that doomed it.
	skipped := make(map[int]int)
	var failures []int
	aborted := false
	abortCause := 0
	canceled := false

	it := scheduler.Waves(e.graph)
	waveNum := 0
	for it.Next() {
		wave := it.Wave()
		waveNum++

		if ctx.Err() != nil {
			canceled = true
			break
		}

		// Nodes doomed by an upstream failure are recorded without running.
		runnable := make([]int, 0, len(wave))
		for _, id := range wave {
			if cause, doomed := skipped[id]; doomed {
				logger.Warn("Skipping node due to upstream failure.",
					"node_id", id, "failed_dependency", cause)
				e.setResult(NodeResult{
					ID:     id,
					State:  StateSkipped,
					Reason: fmt.Sprintf("unresolved dependency %d", cause),
				})
				continue
			}
			runnable = append(runnable, id)
		}

		if len(runnable) > 0 {
			logger.Debug("Executing wave.", "wave", waveNum, "nodes", runnable)
			e.runWave(ctx, runnable)
		}

		for _, id := range runnable {
			res, ok := e.result(id)
			if !ok || res.State != StateFailed {
				continue
			}
			failures = append(failures, id)
			e.propagateSkip(id, skipped)
			if e.policy == FailFast && !aborted {
				aborted = true
				abortCause = id
			}
		}

		if ctx.Err() != nil {
			canceled = true
			break
		}
		if aborted {
			break
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("scheduling failed: %w", err)
	}

	// Final sweep: every node the loop never reached is skipped, with the
	// most specific reason available.
	for _, id := range e.graph.IDs() {
		if _, recorded := e.result(id); recorded {
			continue
		}
		var reason string
		switch {
		case hasSkipCause(skipped, id):
			reason = fmt.Sprintf("unresolved dependency %d", skipped[id])
		case canceled:
			reason = "canceled"
		case aborted:
			reason = fmt.Sprintf("aborted after node %d failed", abortCause)
		default:
			reason = "not scheduled"
		}
		logger.Warn("Node skipped.", "node_id", id, "reason", reason)
		e.setResult(NodeResult{ID: id, State: StateSkipped, Reason: reason})
	}

	result := e.snapshot(startedAt, time.Now())

	var runErr error
	switch {
	case len(failures) > 0 && e.policy == FailFast:
		first, _ := e.result(failures[0])
		runErr = first.Err
	case len(failures) > 0:
		sort.Ints(failures)
		errs := make([]error, 0, len(failures))
		for _, id := range failures {
			res, _ := e.result(id)
			errs = append(errs, res.Err)
		}
		runErr = errors.Join(errs...)
	case canceled:
		runErr = ctx.Err()
	}
	return result, runErr
}

// Progress returns a snapshot of the run so far. Safe to call concurrently
// with Run.
func (e *Executor) Progress() Progress {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p := Progress{RunID: e.runID, Total: e.graph.Len()}
	for _, res := range e.results {
		switch res.State {
		case StateDone:
			p.Done++
		case StateFailed:
			p.Failed++
		case StateSkipped:
			p.Skipped++
		}
	}
	p.Pending = p.Total - p.Done - p.Failed - p.Skipped
	return p
}

// runWave executes one wave's nodes on a bounded worker pool and blocks
// until all of them finish. A failing node does not cancel its in-flight
// siblings; the policy is applied only between waves.
func (e *Executor) runWave(ctx context.Context, ids []int) {
	work := make(chan int, len(ids))
	for _, id := range ids {
		work <- id
	}
	close(work)

	workers := min(e.workers, len(ids))
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			for id := range work {
				e.runNode(ctx, workerID, id)
			}
		}(i)
	}
	wg.Wait()
}

// runNode gathers the node's dependency answers, invokes the Answerer, and
// records the outcome.
func (e *Executor) runNode(ctx context.Context, workerID, id int) {
	logger := ctxlog.FromContext(ctx).With("worker_id", workerID, "node_id", id)

	if err := ctx.Err(); err != nil {
		logger.Warn("Context canceled, skipping node execution.")
		e.setResult(NodeResult{ID: id, State: StateSkipped, Reason: "canceled"})
		return
	}

	node, ok := e.graph.Node(id)
	if !ok {
		e.setResult(NodeResult{
			ID:    id,
			State: StateFailed,
			Err:   &NodeExecutionError{ID: id, Err: fmt.Errorf("node %d not in graph", id)},
		})
		return
	}

	deps := e.dependencyAnswers(id)
	logger.Debug("Answering node.", "kind", node.Kind, "dependencies", len(deps))

	answer, err := e.answerer.Answer(ctx, node, deps)
	if err != nil {
		logger.Error("Node answer failed.", "error", err)
		e.setResult(NodeResult{
			ID:    id,
			State: StateFailed,
			Err:   &NodeExecutionError{ID: id, Err: err},
		})
		return
	}

	logger.Debug("Node answered.")
	e.setResult(NodeResult{ID: id, State: StateDone, Answer: answer})
}

// dependencyAnswers collects the answers of the node's dependencies. Wave
// ordering guarantees they all completed before the node runs.
func (e *Executor) dependencyAnswers(id int) map[int]string {
	deps := e.graph.Dependencies(id)
	answers := make(map[int]string, len(deps))

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, dep := range deps {
		if res, ok := e.results[dep]; ok && res.State == StateDone {
			answers[dep] = res.Answer
		}
	}
	return answers
}

// propagateSkip marks every transitive dependent of a failed node as doomed,
// keyed to the root failure. First cause wins when chains overlap.
func (e *Executor) propagateSkip(from int, skipped map[int]int) {
	queue := append([]int(nil), e.graph.Dependents(from)...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, seen := skipped[id]; seen {
			continue
		}
		skipped[id] = from
		queue = append(queue, e.graph.Dependents(id)...)
	}
}

func (e *Executor) setResult(res NodeResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[res.ID] = res
}

func (e *Executor) result(id int) (NodeResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	res, ok := e.results[id]
	return res, ok
}

func (e *Executor) snapshot(startedAt, finishedAt time.Time) *Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	nodes := make(map[int]NodeResult, len(e.results))
	for id, res := range e.results {
		nodes[id] = res
	}
	return &Result{
		RunID:      e.runID,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Nodes:      nodes,
	}
}

// hasSkipCause reports whether id was doomed by an upstream failure; it
// exists so a zero-valued cause id is not mistaken for absence.
func hasSkipCause(skipped map[int]int, id int) bool {
	_, ok := skipped[id]
	return ok
}
