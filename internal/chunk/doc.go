// Package chunk implements Rechunk, a row-batch resizing utility. The
// iterator core hands its output to callers one key/value at a time;
// callers that want fixed-size batches (an executor, a test harness)
// rebatch with this package rather than each inventing their own
// buffering loop.
//
// # Overview
//
// Rechunk flattens whatever batch shape it is given (including ragged or
// empty batches) and regroups rows into fixed-size batches, preserving
// order; a non-positive size is a no-op. spec.md §8 scenario 6 names this
// the "Rechunk" collaborator-side sanity check: it is a pure reshaping
// step with no iterator-protocol semantics of its own.
//
// # Testing
//
// chunk_test.go covers the empty-input, exact-multiple, and
// ragged-remainder cases, plus the size<=0 passthrough.
package chunk
