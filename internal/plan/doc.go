// Package plan defines the format-agnostic data model for a query plan: a
// flat list of sub-question nodes with integer ids and explicit dependency
// references.
//
// Why a flat list instead of a nested structure?
//
// Dependency links between sub-questions are many-to-many. Nesting nodes
// inside each other would force a single owner per node and make shared
// dependencies awkward to represent. A flat, id-keyed collection keeps every
// node reachable by a cheap lookup and leaves the graph shape to the graph
// package, which validates the references into a DAG.
package plan
