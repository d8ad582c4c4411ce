package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/queryplango/internal/plan"
)

// Answerer is the collaborator capability that resolves a single node. The
// deps mapping carries the already-produced answer of every dependency, keyed
// by node id; for merge nodes the Answerer is responsible for combining them.
// Implementations must be safe for concurrent use, since nodes within a wave
// run in parallel.
type Answerer interface {
	Answer(ctx context.Context, node plan.Node, deps map[int]string) (string, error)
}

// AnswerFunc adapts a plain function to the Answerer interface.
type AnswerFunc func(ctx context.Context, node plan.Node, deps map[int]string) (string, error)

// Answer calls f.
func (f AnswerFunc) Answer(ctx context.Context, node plan.Node, deps map[int]string) (string, error) {
	return f(ctx, node, deps)
}

// Policy selects how the executor reacts to a node failure.
type Policy string

const (
	// FailFast finishes the in-flight wave and then stops; all unexecuted
	// nodes are recorded as skipped. This is the default.
	FailFast Policy = "failfast"
	// Continue keeps executing nodes whose dependency chains contain no
	// failure; only descendants of failed nodes are skipped.
	Continue Policy = "continue"
)

// ParsePolicy converts a config string into a Policy. The empty string maps
// to FailFast.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FailFast):
		return FailFast, nil
	case string(Continue):
		return Continue, nil
	default:
		return "", fmt.Errorf("unknown fail policy %q: must be %q or %q", s, FailFast, Continue)
	}
}

// Options tunes an Executor. The zero value means one worker and FailFast.
type Options struct {
	// Workers bounds how many answer calls may be in flight at once within a
	// wave. Values below 1 normalize to 1.
	Workers int
	// Policy selects the failure reaction; empty means FailFast.
	Policy Policy
}
