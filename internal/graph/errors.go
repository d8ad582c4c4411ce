package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// The validation taxonomy below covers every way a flat node list can fail to
// form a usable DAG. All of these are non-retriable: the plan itself is
// malformed and must be regenerated upstream.

// DuplicateIDError reports two nodes sharing the same id.
type DuplicateIDError struct {
	ID int
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate node id %d", e.ID)
}

// EmptyTextError reports a node with no question text.
type EmptyTextError struct {
	ID int
}

func (e *EmptyTextError) Error() string {
	return fmt.Sprintf("node %d has empty question text", e.ID)
}

// SelfDependencyError reports a node that depends directly on itself.
type SelfDependencyError struct {
	ID int
}

func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("node %d depends on itself", e.ID)
}

// DanglingDependencyError reports a dependency reference to an id that is not
// among the supplied nodes.
type DanglingDependencyError struct {
	NodeID       int
	DependencyID int
}

func (e *DanglingDependencyError) Error() string {
	return fmt.Sprintf("node %d depends on unknown node %d", e.NodeID, e.DependencyID)
}

// CyclicDependencyError reports a dependency cycle. Cycle holds the member
// node ids in detection order.
type CyclicDependencyError struct {
	Cycle []int
}

func (e *CyclicDependencyError) Error() string {
	parts := make([]string, 0, len(e.Cycle)+1)
	for _, id := range e.Cycle {
		parts = append(parts, strconv.Itoa(id))
	}
	if len(e.Cycle) > 0 {
		// Repeat the first member to show the closing edge.
		parts = append(parts, strconv.Itoa(e.Cycle[0]))
	}
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(parts, " -> "))
}

// IsValidation reports whether err belongs to the plan validation taxonomy.
func IsValidation(err error) bool {
	var (
		dup      *DuplicateIDError
		empty    *EmptyTextError
		self     *SelfDependencyError
		dangling *DanglingDependencyError
		cyclic   *CyclicDependencyError
	)
	return errors.As(err, &dup) ||
		errors.As(err, &empty) ||
		errors.As(err, &self) ||
		errors.As(err, &dangling) ||
		errors.As(err, &cyclic)
}
