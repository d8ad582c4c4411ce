// Package scheduler partitions a validated dependency graph into execution
// waves: ordered groups of node ids where every dependency of a wave member
// is satisfied by the union of earlier waves, and members of one wave have no
// dependency relation to each other. Waves are therefore safe to execute
// concurrently, wave by wave.
//
// The iteration is lazy and finite in the scanner idiom (Next/Wave/Err) so
// the executor can interleave scheduling with execution; callers that need
// replay should materialize with All.
package scheduler
