// Package answer provides the built-in Answerer implementations and the
// name-based registry the CLI selects them through.
package answer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/queryplango/internal/executor"
	"github.com/vk/queryplango/internal/plan"
)

// Echo is the default Answerer. It answers a single question with its own
// text and a merge node with its dependency answers joined in id order. It
// never fails, which makes it the natural choice for exercising a plan's
// wiring before a real capability is attached.
type Echo struct{}

// Answer implements executor.Answerer.
func (Echo) Answer(_ context.Context, node plan.Node, deps map[int]string) (string, error) {
	if node.Kind == plan.Merge {
		return joinByID(deps), nil
	}
	return node.Text, nil
}

// Static answers each node from the stub recorded in the plan itself. Merge
// nodes without a stub fall back to joining their dependency answers; single
// nodes without a stub are an authoring error.
type Static struct{}

// Answer implements executor.Answerer.
func (Static) Answer(_ context.Context, node plan.Node, deps map[int]string) (string, error) {
	if node.Stub != "" {
		return node.Stub, nil
	}
	if node.Kind == plan.Merge {
		return joinByID(deps), nil
	}
	return "", fmt.Errorf("no stub answer recorded for node %d", node.ID)
}

// New returns the built-in Answerer registered under name. The empty string
// selects Echo.
func New(name string) (executor.Answerer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "echo":
		return Echo{}, nil
	case "static":
		return Static{}, nil
	default:
		return nil, fmt.Errorf("unknown answerer %q: must be %q or %q", name, "echo", "static")
	}
}

// joinByID concatenates dependency answers in ascending id order so merge
// output is deterministic regardless of execution interleaving.
func joinByID(deps map[int]string) string {
	ids := make([]int, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, deps[id])
	}
	return strings.Join(parts, "\n")
}
