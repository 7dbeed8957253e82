// Package fusion rewrites a virtual graph by merging linear operator chains
// into single fused nodes.
//
// # How It Works
//
// A pass visits the sandbox in topological order. Each node that has not
// been consumed yet is tried as the head of every pattern in priority order;
// the first pattern whose whole chain matches wins. A chain matches only if
//   - every node has the type (and arity) of its position,
//   - every internal edge has exactly one consumer,
//   - no internal edge is a registered output,
//   - no node other than the tail is a declared graph output.
//
// A failed condition rejects the whole chain. Passes repeat until one makes
// no change, or until the iteration cap is hit, which is reported as an
// IterationLimit error so the caller can discard the sandbox.
//
// Before fusing, each pass elides pass-through operators (Identity, Dropout
// by default) that are safe to splice out.
package fusion
