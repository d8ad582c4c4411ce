// Package graph validates a flat list of plan nodes into an immutable
// dependency DAG.
//
// Build is the single entry point. It enforces the structural invariants a
// query plan must satisfy before it can be scheduled: unique ids, non-empty
// question text, no self references, no references to missing nodes, and no
// dependency cycles. Each violation surfaces as a typed error so callers can
// distinguish the failure modes with errors.As.
//
// A built Graph exposes read-only topology queries (Dependencies, Dependents,
// ascending id iteration) and carries no execution state; scheduling and
// per-node results live in the scheduler and executor packages.
package graph
