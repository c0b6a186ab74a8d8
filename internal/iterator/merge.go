package iterator

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// mergeSubStage mirrors concatSubStage: an explicit record of what
// AwaitNext must resume, rather than a closure-based continuation
// (spec.md §4.4/§9: "store an explicit pending sub-stage enum").
type mergeSubStage uint8

const (
	mergeIdle mergeSubStage = iota
	mergeAwaitingChild
)

// mergeEntry pairs a child with its construction-time index, used for the
// ordered variant's tie-break (spec.md §4.4).
type mergeEntry[D Direction] struct {
	child *Union[D]
	idx   int
}

// mergeHeap is a binary heap keyed to behave as a min-heap under the
// direction's order, breaking ties by construction index only when the
// merge is ordered. It implements container/heap.Interface.
type mergeHeap[D Direction] struct {
	entries []*mergeEntry[D]
	ordered bool
}

func (h *mergeHeap[D]) Len() int { return len(h.entries) }

func (h *mergeHeap[D]) Less(i, j int) bool {
	var d D
	a, b := h.entries[i], h.entries[j]
	ak, bk := a.child.Key(), b.child.Key()
	if d.less(ak, bk) {
		return true
	}
	if d.less(bk, ak) {
		return false
	}
	if !h.ordered {
		return false
	}
	if _, forward := any(d).(Forward); forward {
		return a.idx < b.idx
	}
	return a.idx > b.idx
}

func (h *mergeHeap[D]) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *mergeHeap[D]) Push(x any) { h.entries = append(h.entries, x.(*mergeEntry[D])) }

func (h *mergeHeap[D]) Pop() any {
	old := h.entries
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.entries = old[:n-1]
	return item
}

// Merge is the k-way merge iterator (C6): drives a heterogeneous set of
// Union children under one direction, in either unordered or ordered mode
// (spec.md §4.4).
type Merge[D Direction] struct {
	children []*mergeEntry[D] // full input, stable across rewind/seek
	ordered  bool

	h       mergeHeap[D]
	invalid []*mergeEntry[D]

	subStage    mergeSubStage
	pending     *mergeEntry[D]
	lastKey     key.Encoded
	haveLastKey bool

	local stats.Sink
}

// NewMerge constructs a merge iterator over children. When ordered is
// true, ties on key break by construction index (smaller wins forward,
// larger wins backward) and next() collapses duplicate keys across
// children into a single output — the read-side scan behavior. When
// false, duplicates pass through in arbitrary heap order — the lighter
// compaction-stream behavior.
func NewMerge[D Direction](children []*Union[D], ordered bool) *Merge[D] {
	m := &Merge[D]{ordered: ordered}
	m.children = make([]*mergeEntry[D], len(children))
	for i, c := range children {
		m.children[i] = &mergeEntry[D]{child: c, idx: i}
	}
	m.h.ordered = ordered
	return m
}

// Rewind rewinds every child in parallel (spec.md §4.4: "join-all") and
// rebuilds the heap from those that came back valid.
func (m *Merge[D]) Rewind(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range m.children {
		e := e
		g.Go(func() error { return e.child.Rewind(gctx) })
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("iterator: merge rewind: %w", err)
	}
	m.rebuildHeap()
	return nil
}

// Seek seeks every child in parallel and rebuilds the heap. The wall
// clock duration is recorded as a single merge-seek observation (the
// observability hook named in spec.md §4.4), flushed to the registry via
// CollectLocalStatistic → Sink.Flush.
func (m *Merge[D]) Seek(ctx context.Context, target key.Encoded) error {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range m.children {
		e := e
		g.Go(func() error { return e.child.Seek(gctx, target) })
	}
	err := g.Wait()
	m.local.Merge(stats.Local{MergeSeekDur: time.Since(start), MergeSeekCnt: 1})
	if err != nil {
		return fmt.Errorf("iterator: merge seek: %w", err)
	}
	m.rebuildHeap()
	return nil
}

func (m *Merge[D]) rebuildHeap() {
	m.h.entries = m.h.entries[:0]
	m.invalid = m.invalid[:0]
	for _, e := range m.children {
		if e.child.IsValid() {
			m.h.entries = append(m.h.entries, e)
		} else {
			m.invalid = append(m.invalid, e)
		}
	}
	heap.Init(&m.h)
}

func (m *Merge[D]) requeue(e *mergeEntry[D]) {
	if e.child.IsValid() {
		heap.Push(&m.h, e)
		return
	}
	e.child.CollectLocalStatistic(&m.local)
	m.invalid = append(m.invalid, e)
}

func (m *Merge[D]) fail(err error) error {
	m.h.entries = nil
	m.pending = nil
	m.subStage = mergeIdle
	m.haveLastKey = false
	return fmt.Errorf("iterator: merge: %w", err)
}

// PollNext advances the top of the heap (unordered), or sweeps every
// child currently tied with the heap's top key (ordered), never
// performing I/O synchronously.
func (m *Merge[D]) PollNext(ctx context.Context) (PollResult, error) {
	if m.subStage != mergeIdle {
		return PollReady, ErrInvalidState
	}
	if !m.ordered {
		return m.advanceOne(ctx)
	}
	return m.advanceSweep(ctx)
}

func (m *Merge[D]) advanceOne(ctx context.Context) (PollResult, error) {
	if m.h.Len() == 0 {
		return PollReady, nil
	}
	entry := heap.Pop(&m.h).(*mergeEntry[D])
	res, err := entry.child.PollNext(ctx)
	if err != nil {
		return PollReady, m.fail(err)
	}
	if res == PollPending {
		m.pending = entry
		m.subStage = mergeAwaitingChild
		return PollPending, nil
	}
	m.requeue(entry)
	return PollReady, nil
}

// advanceSweep is the ordered variant's dedup sweep (spec.md §4.4). The
// "same key" check compares raw encoded-key bytes rather than going
// through the versioned comparator, since encoded keys are unique per
// (user key, epoch) pair — see SPEC_FULL.md §12(b).
func (m *Merge[D]) advanceSweep(ctx context.Context) (PollResult, error) {
	if !m.haveLastKey {
		if m.h.Len() == 0 {
			return PollReady, nil
		}
		m.lastKey = append(key.Encoded(nil), m.h.entries[0].child.Key()...)
		m.haveLastKey = true
	}
	for m.h.Len() > 0 && key.Equal(m.h.entries[0].child.Key(), m.lastKey) {
		entry := heap.Pop(&m.h).(*mergeEntry[D])
		res, err := entry.child.PollNext(ctx)
		if err != nil {
			return PollReady, m.fail(err)
		}
		if res == PollPending {
			m.pending = entry
			m.subStage = mergeAwaitingChild
			return PollPending, nil
		}
		m.requeue(entry)
	}
	m.haveLastKey = false
	return PollReady, nil
}

// AwaitNext completes the pending child's I/O. For the ordered variant it
// then continues the dedup sweep to completion in this same call,
// blocking directly on any further child I/O rather than surfacing
// Pending a second time — the sweep is one logical step.
func (m *Merge[D]) AwaitNext(ctx context.Context) error {
	if m.subStage != mergeAwaitingChild || m.pending == nil {
		return ErrInvalidState
	}
	entry := m.pending
	m.pending = nil
	m.subStage = mergeIdle
	if err := entry.child.AwaitNext(ctx); err != nil {
		return m.fail(err)
	}
	m.requeue(entry)
	if !m.ordered {
		return nil
	}
	for m.h.Len() > 0 && key.Equal(m.h.entries[0].child.Key(), m.lastKey) {
		e := heap.Pop(&m.h).(*mergeEntry[D])
		res, err := e.child.PollNext(ctx)
		if err != nil {
			return m.fail(err)
		}
		if res == PollPending {
			if err := e.child.AwaitNext(ctx); err != nil {
				return m.fail(err)
			}
		}
		m.requeue(e)
	}
	m.haveLastKey = false
	return nil
}

func (m *Merge[D]) Next(ctx context.Context) error {
	return next(ctx, m.PollNext, m.AwaitNext)
}

func (m *Merge[D]) Key() key.Encoded {
	return m.h.entries[0].child.Key()
}

func (m *Merge[D]) Value() sstable.ValueView {
	return m.h.entries[0].child.Value()
}

func (m *Merge[D]) IsValid() bool { return m.h.Len() > 0 }

func (m *Merge[D]) CollectLocalStatistic(sink *stats.Sink) {
	for _, e := range m.h.entries {
		e.child.CollectLocalStatistic(&m.local)
	}
	for _, e := range m.invalid {
		e.child.CollectLocalStatistic(&m.local)
	}
	if sink != nil {
		sink.Merge(m.local.Snapshot())
	}
	m.local = stats.Sink{}
}

func (m *Merge[D]) Close() error {
	var firstErr error
	for _, e := range m.children {
		if err := e.child.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
