package stats

import (
	"sync/atomic"
	"time"
)

// Local holds the counters a single iterator accumulates during its
// lifetime. It is not safe for concurrent use: per spec.md §5, exactly one
// task owns an iterator chain at a time, so Local needs no synchronization
// until it is merged into a Sink.
type Local struct {
	BlocksLoaded  uint64
	BytesRead     uint64
	CacheHits     uint64
	CacheMisses   uint64
	MergeSeekDur  time.Duration
	MergeSeekCnt  uint64
}

// Add folds o's counters into l. The iterators aggregate through
// Sink.Merge instead; Add is for callers that sum Local values directly.
func (l *Local) Add(o Local) {
	l.BlocksLoaded += o.BlocksLoaded
	l.BytesRead += o.BytesRead
	l.CacheHits += o.CacheHits
	l.CacheMisses += o.CacheMisses
	l.MergeSeekDur += o.MergeSeekDur
	l.MergeSeekCnt += o.MergeSeekCnt
}

// Sink is the aggregation target counters are drained into at iterator
// teardown. It is safe for concurrent use: sibling scan tasks and
// background compaction tasks may each hold their own Sink, but a single
// Sink may also be shared by an entire iterator tree, in which case its
// fields are updated atomically.
type Sink struct {
	blocksLoaded uint64
	bytesRead    uint64
	cacheHits    uint64
	cacheMisses  uint64
	mergeSeekDur int64 // nanoseconds
	mergeSeekCnt uint64
}

// Merge atomically folds l into s. Called by CollectLocalStatistic
// implementations when an iterator (or a child it owns) tears down.
func (s *Sink) Merge(l Local) {
	atomic.AddUint64(&s.blocksLoaded, l.BlocksLoaded)
	atomic.AddUint64(&s.bytesRead, l.BytesRead)
	atomic.AddUint64(&s.cacheHits, l.CacheHits)
	atomic.AddUint64(&s.cacheMisses, l.CacheMisses)
	atomic.AddInt64(&s.mergeSeekDur, int64(l.MergeSeekDur))
	atomic.AddUint64(&s.mergeSeekCnt, l.MergeSeekCnt)
}

// Snapshot returns a point-in-time copy of s's accumulated counters, used
// by the statistics-additivity property test (spec.md §8) to compare
// sum(children) against root.
func (s *Sink) Snapshot() Local {
	return Local{
		BlocksLoaded: atomic.LoadUint64(&s.blocksLoaded),
		BytesRead:    atomic.LoadUint64(&s.bytesRead),
		CacheHits:    atomic.LoadUint64(&s.cacheHits),
		CacheMisses:  atomic.LoadUint64(&s.cacheMisses),
		MergeSeekDur: time.Duration(atomic.LoadInt64(&s.mergeSeekDur)),
		MergeSeekCnt: atomic.LoadUint64(&s.mergeSeekCnt),
	}
}

// Flush drains s into the process-wide Registry, the observability hook
// named in spec.md §6 (iter_merge_seek_duration histogram plus SST-level
// counts). Intended to be called periodically or at scan/compaction
// completion, not per-iterator.
func (s *Sink) Flush(r *Registry) {
	snap := s.Snapshot()
	if r == nil {
		return
	}
	r.blocksLoaded.Add(float64(snap.BlocksLoaded))
	r.bytesRead.Add(float64(snap.BytesRead))
	r.cacheHits.Add(float64(snap.CacheHits))
	r.cacheMisses.Add(float64(snap.CacheMisses))
	if snap.MergeSeekCnt > 0 {
		r.ObserveMergeSeek(snap.MergeSeekDur.Seconds())
	}
}
