// Package executor runs a validated query-plan graph wave by wave, resolving
// each node through an externally supplied Answerer capability.
//
// Ordering is strict: no node starts before every node of every earlier wave
// has finished. Within a wave, nodes run concurrently on a bounded worker
// pool. The executor never interprets answers itself; merge semantics belong
// to the Answerer, which receives the full mapping of dependency answers for
// every node it is asked to resolve.
//
// Failure policy is explicit. Under FailFast (the default) a node failure
// lets in-flight siblings finish, then stops: no later wave starts, and every
// unexecuted node is recorded as skipped. Under Continue, only descendants of
// failed nodes are skipped and independent chains keep executing. In both
// modes every node ends up with exactly one NodeResult; nothing is silently
// swallowed.
package executor
