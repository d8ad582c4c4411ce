package executor

import "fmt"

// NodeExecutionError wraps a failure returned by the Answerer for a single
// node. Unlike the graph validation taxonomy, the wrapped failure is
// potentially retriable by the caller.
type NodeExecutionError struct {
	ID  int
	Err error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("answering node %d failed: %v", e.ID, e.Err)
}

func (e *NodeExecutionError) Unwrap() error {
	return e.Err
}
