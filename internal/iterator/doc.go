// Package iterator implements the async key-value iterator family this
// module exists to provide: the iterator protocol (C9), the SST iterator
// (C4), the concat iterator (C5), the merge iterator (C6), and the
// iterator union (C7).
//
// # Overview
//
// Every iterator type here follows the same two-phase step protocol:
// PollNext is synchronous and never performs I/O; if advancing requires
// loading a block or SST, it returns PollPending and the iterator enters
// AwaitingIo, from which exactly one AwaitNext call must complete the I/O
// before any other method may be called. This split exists so a merge
// iterator can poll every child in a tight loop at in-memory speed and
// only pay an async suspension at true I/O boundaries — see spec.md §4.1,
// §9.
//
// # Architecture
//
//	Union[D] (C7, 4-slot sum type)
//	    ├── SSTIterator[D]   (C4: one SST's blocks and entries)
//	    ├── Concat[D]        (C5: an ordered run of non-overlapping SSTs)
//	    ├── Merge[D]         (C6: k-way merge over heterogeneous children)
//	    └── (reserved 4th slot for a future child kind)
//
// A Merge's children are Union values, not a bare interface, so the heap
// comparator and PollNext/AwaitNext calls in the merge hot loop dispatch
// through a type switch over four known concrete types rather than through
// an interface's method table — see "Dispatch" below.
//
// # Directions
//
// Direction is a compile-time type parameter (Forward or Backward); a
// single iterator tree is always parameterized by one Direction, so
// mixing directions is a compile error rather than a runtime check. Each
// Direction supplies its own "less" comparator and its own notion of which
// end of an SST run is the boundary a seek partitions on — see
// Direction.boundaryIsRight and SPEC_FULL.md §12(a) for why forward and
// backward partition on opposite ends.
//
// # Dispatch
//
// Union gives the merge iterator's heap a single concrete type spanning
// up to four heterogeneous child iterator types, so the merge hot loop
// never dispatches through an interface value. The general-purpose
// Iterator interface exists for the outward-facing root of a tree (what a
// scan or compaction driver holds), not for a merge iterator's children.
//
// # State Machine
//
//	Uninitialized --Rewind/Seek--> Valid | Exhausted
//	Valid         --PollNext-----> Valid | Exhausted | AwaitingIo
//	AwaitingIo    --AwaitNext----> Valid | Exhausted
//
// Any error from Rewind, Seek, PollNext, or AwaitNext leaves the iterator
// permanently Exhausted; no further call is expected to succeed, and
// SSTIterator enforces this by rejecting AwaitNext once there is no
// pending I/O to complete (ErrInvalidState).
//
// # Concurrency and Thread Safety
//
// Exactly one task owns an iterator chain at a time (spec.md §5): no type
// in this package synchronizes its own fields. The one exception is
// Merge.Rewind/Seek, which fans out to its children with
// golang.org/x/sync/errgroup and therefore does touch several children
// concurrently — but each child is still only ever touched by that single
// errgroup goroutine, never by two goroutines at once.
//
// # Performance
//
// SSTIterator only pays for a goroutine-plus-channel round trip when a
// Next call actually crosses a block boundary; within a block, PollNext is
// a pointer bump and a slice index. Concat and Merge never copy entries —
// Key and Value return views aliasing the current child's resident block,
// valid until the next Next call.
//
// # Testing
//
// Every iterator type has direct unit coverage plus pgregory.net/rapid
// property tests (order, completeness, seek contract, poll/await
// alternation, statistics additivity — property_test.go) and the six
// end-to-end scenarios named in spec.md §8 (two-SST concat, dedup merge,
// tombstone passthrough, seek into a hole between SSTs, an induced I/O
// error on a specific block load, and Rechunk in internal/chunk).
//
// # Metrics
//
// CollectLocalStatistic drains an iterator's accumulated Local counters
// into a caller-supplied stats.Sink; each Merge.Seek call adds to the
// accumulated merge-seek duration and count, and stats.Sink.Flush folds
// that into exactly one iter_merge_seek_duration histogram observation per
// flush, reported to the process Registry by whatever owns the Sink
// (internal/compaction's Driver, typically).
package iterator
