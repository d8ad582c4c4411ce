package plan

import (
	"fmt"
	"strings"
)

// Kind classifies how a node's answer is produced. It is a closed two-variant
// enumeration: new kinds are rare and every consumer dispatches on the full
// set.
type Kind string

const (
	// Single is a plain sub-question answered on its own.
	Single Kind = "SINGLE"
	// Merge is a node whose answer combines the answers of its dependencies.
	Merge Kind = "MERGE"
)

// kindAliases maps the long-form names emitted by common planner prompts to
// the canonical kinds.
var kindAliases = map[string]Kind{
	"SINGLE":                   Single,
	"SINGLE_QUESTION":          Single,
	"MERGE":                    Merge,
	"MERGE_MULTIPLE_RESPONSES": Merge,
}

// ParseKind converts a wire-format kind string into a Kind. The empty string
// defaults to Single, since planners routinely omit the type for plain
// questions.
func ParseKind(s string) (Kind, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(s))
	if trimmed == "" {
		return Single, nil
	}
	if kind, ok := kindAliases[trimmed]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("unknown query kind %q: must be %q or %q", s, Single, Merge)
}

// Valid reports whether k is one of the canonical kinds.
func (k Kind) Valid() bool {
	return k == Single || k == Merge
}
