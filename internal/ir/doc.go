// Package ir holds the graph intermediate representation: operator nodes,
// tensor-carrying edges and the Graph that owns them.
//
// # Ownership
//
// A Graph owns its nodes and edges. Edges refer to nodes by name and never by
// pointer, so removing a node can not leave a dangling reference behind; the
// container drops every arc touching it in the same call.
//
// # Mutation rules
//
// AddNode and AddEdge are build-phase operations and fail with a
// FrozenViolation once the graph is frozen. Everything after that goes
// through Apply, which takes a Patch computed on a detached copy and swaps
// it in as a whole. A Patch either lands completely or not at all, and the
// result is re-verified with an independent topological sort before Apply
// returns.
package ir
