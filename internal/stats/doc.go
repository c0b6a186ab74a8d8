// Package stats implements the local-statistics-plus-sink model that every
// iterator in this module uses to report its work: cheap plain counters
// accumulated per iterator and drained into a Sink by CollectLocalStatistic,
// eventually reaching a process-wide Prometheus Registry.
//
// # Overview
//
// No counter is ever shared live across goroutines during iteration: each
// iterator owns its own Local, increments it with plain (non-atomic) field
// writes because it is only ever touched by the single task that owns the
// iterator chain (see spec.md §5), and merges it into a Sink when
// CollectLocalStatistic is called, resetting it afterward; Close does not
// touch it. This mirrors the teacher's ShardStats pattern
// (atomic counters on a long-lived object) but simplified: because a
// Local's lifetime is scoped to one task, no atomics are needed until the
// numbers are merged into the shared Sink, which does use atomics.
//
// # Concurrency and Thread Safety
//
// Local is not safe for concurrent use and must not be; Sink is, via
// sync/atomic field updates, since a scan and a background compaction may
// each hold a reference to the same Sink and flush independently.
//
// # Metrics
//
// Flush folds a Sink's accumulated counters into a Registry: SST-level
// counts (blocks loaded, bytes read, cache hits/misses) are added directly,
// and an accumulated merge-seek duration becomes exactly one
// iter_merge_seek_duration_seconds histogram observation per Flush call,
// never one observation per individual Seek — see Registry.ObserveMergeSeek.
//
// # Testing
//
// stats_test.go covers Local.Add/Sink.Merge additivity and asserts, via the
// Registry's own Gatherer().Gather() call, that Flush reaches the
// underlying histogram and counters, including the zero-seeks case where no
// spurious observation is recorded.
package stats
