package plan

// Node is the format-agnostic representation of a single sub-question in a
// query plan. It is a plain value: construction formats (HCL, JSON) decode
// into it, and the graph package validates a slice of them into a DAG.
type Node struct {
	// ID uniquely identifies the node within its plan.
	ID int
	// Text is the question to answer. Must be non-empty.
	Text string
	// Dependencies lists the ids of nodes whose answers this node needs.
	// Treated as a set; duplicates are collapsed during graph construction.
	Dependencies []int
	// Kind selects between a plain question and a merge of dependency answers.
	Kind Kind
	// Stub is an optional canned answer, used by the static answerer for
	// offline runs. Empty means none.
	Stub string
}
