package executor

import (
	"sort"
	"time"
)

// State is the terminal outcome of a single node.
type State string

const (
	// StateDone means the Answerer produced an answer.
	StateDone State = "done"
	// StateFailed means the Answerer returned an error.
	StateFailed State = "failed"
	// StateSkipped means the node was never invoked; Reason says why.
	StateSkipped State = "skipped"
)

// NodeResult is the recorded outcome of one node.
type NodeResult struct {
	ID     int
	State  State
	Answer string
	// Err is non-nil only for failed nodes and is always a *NodeExecutionError.
	Err error
	// Reason is set only for skipped nodes, e.g. "unresolved dependency 3".
	Reason string
}

// Result maps every node of the executed graph to its outcome. It is built
// incrementally during the run and handed to the caller once complete; the
// executor keeps no reference to it afterwards.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Nodes      map[int]NodeResult
}

// Answer returns the answer recorded for the given node id, if that node
// completed successfully.
func (r *Result) Answer(id int) (string, bool) {
	node, ok := r.Nodes[id]
	if !ok || node.State != StateDone {
		return "", false
	}
	return node.Answer, true
}

// Failed returns the ids of failed nodes, ascending.
func (r *Result) Failed() []int {
	return r.idsInState(StateFailed)
}

// Skipped returns the ids of skipped nodes, ascending.
func (r *Result) Skipped() []int {
	return r.idsInState(StateSkipped)
}

// Done returns the ids of successfully answered nodes, ascending.
func (r *Result) Done() []int {
	return r.idsInState(StateDone)
}

// Duration returns the wall-clock span of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) idsInState(state State) []int {
	var ids []int
	for id, node := range r.Nodes {
		if node.State == state {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Progress is a point-in-time snapshot of a run, safe to serve while the
// executor is still working. Served as JSON by the status endpoint.
type Progress struct {
	RunID   string `json:"run_id"`
	Total   int    `json:"total"`
	Pending int    `json:"pending"`
	Done    int    `json:"done"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
}
