// Package compaction implements the multi-SST compaction driver (C8): it
// wraps one concat iterator per overlapping SST group in an unordered
// merge, runs the result through a compaction filter, and feeds survivors
// to an output builder gated by a shared memory limiter.
//
// # Overview
//
// A compaction job takes several groups of SSTs — each group already
// non-overlapping internally, so a Concat suffices within a group — and
// produces output SSTs covering the same key space, minus the entries the
// Filter drops; the driver itself removes no versions. Driver is the one
// entry point: construct it with a Filter, a BuilderFactory, an id
// allocator, and a Publisher, then call Run with one iterator.Run per
// group.
//
// # Architecture
//
//	groups[0] --> Concat[Forward] --\
//	groups[1] --> Concat[Forward] ---+--> Merge[Forward] (unordered) --> Filter --> Builder --> Publisher
//	groups[N] --> Concat[Forward] --/
//
// The merge is deliberately unordered: compaction does not need a
// deterministic winner among same-key duplicates the way a read-side scan
// does (spec.md §4.4's rationale), so it uses the lighter heap variant and
// lets the filter and builder see every version, oldest and newest alike.
//
// # Key Range Restriction
//
// Driver.KeyRange optionally bounds the output to [Left, Right]. When set,
// Run positions the merge with Seek instead of Rewind and stops as soon as
// a key compares above Right (Range.aboveRight). Left and Right must be
// built with the epoch sentinels documented on internal/key's boundary
// construction rule, or entries at the range's edges are silently dropped.
//
// # Memory Accounting
//
// When Limiter is set, Run acquires BuilderBytesHint bytes before opening
// each output builder and releases the token when that builder is
// finished (on an OutputCapacity split) or when Run returns, including on
// error — a leaked token would eventually wedge every future Run call that
// shares the same Limiter.
//
// # Concurrency and Thread Safety
//
// A single Driver is not meant to run concurrent Run calls over the same
// Limiter without accounting for their combined memory footprint in the
// limiter's budget, but two Drivers sharing a Limiter and Publisher are
// otherwise independent: Run owns its own merge tree and builder for the
// lifetime of one call, and the MemoryLimiter and sstable.Store underneath
// are both already safe for concurrent use.
//
// # Testing
//
// driver_test.go builds small in-memory SSTs with sstable.NewMemoryBackend
// and a real sstable.Store, so compaction tests exercise the actual block
// codec and cache rather than a mock iterator tree. bench_test.go adds a
// synthetic multi-group compaction benchmark (small/medium/many-small-SST
// shapes) for tracking Run's allocation and CPU cost as group shape
// changes.
//
// # Metrics
//
// Run flushes its merge tree's accumulated statistics (blocks loaded,
// bytes read, cache hits/misses, and — when the KeyRange path takes a
// Seek — the iter_merge_seek_duration histogram sample) to Reg once, at
// the end of the call, via stats.Sink.Flush.
package compaction
