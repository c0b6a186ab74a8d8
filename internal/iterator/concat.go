package iterator

import (
	"context"
	"fmt"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// concatSubStage records what AwaitNext must resume, per spec.md §4.3:
// the concat iterator never performs I/O synchronously, so PollNext
// records which of the two await paths applies before returning Pending.
type concatSubStage uint8

const (
	concatStageNone concatSubStage = iota
	concatStageInner
	concatStageLoadNextSST
)

// Run is one non-overlapping, direction-sorted sequence of SSTs (spec.md
// §3's precondition on concat's input). NewConcat trusts the caller to
// have built Run correctly; it is the compaction driver's and the
// version's job to group SSTs this way.
type Run struct {
	Descriptors []sstable.Descriptor
	Handles     []*sstable.Handle
}

// Concat is the concat iterator (C5): iterates a run of SSTs as a single
// logical stream, delegating to a concrete Union[D] per-SST child so the
// hot loop never dispatches through an interface.
type Concat[D Direction] struct {
	run Run

	compactionMode bool
	curIdx         int
	child          *Union[D]

	subStage concatSubStage
	local    stats.Sink // accumulates stats released by children swapped out
}

// NewConcat constructs a concat iterator over run. compactionMode is
// threaded to every child SST iterator so a compaction-driven concat
// never lets a bloom filter skip a version.
func NewConcat[D Direction](run Run, compactionMode bool) *Concat[D] {
	c := &Concat[D]{run: run, compactionMode: compactionMode}
	c.buildChild(0)
	return c
}

func (c *Concat[D]) buildChild(idx int) {
	if c.child != nil {
		c.child.CollectLocalStatistic(&c.local)
	}
	if idx < 0 || idx >= len(c.run.Handles) {
		c.child = nil
		return
	}
	c.child = UnionOfSST[D](NewSSTIterator[D](c.run.Handles[idx], c.compactionMode))
}

// Rewind seeks child 0, per spec.md §4.3.
func (c *Concat[D]) Rewind(ctx context.Context) error {
	c.curIdx = 0
	c.buildChild(0)
	if c.child == nil {
		return nil
	}
	if err := c.child.Rewind(ctx); err != nil {
		return fmt.Errorf("iterator: concat rewind sst %d: %w", c.curIdx, err)
	}
	return c.advancePastExhaustedChildren(ctx)
}

// Seek binary searches the run by each SST's boundary key — the right
// (largest) end for forward, the left (smallest) end for backward — per
// spec.md §4.3, taking the last SST whose boundary is not strictly past
// target, then delegates seek to that child.
func (c *Concat[D]) Seek(ctx context.Context, target key.Encoded) error {
	idx := c.partition(target)
	c.curIdx = idx
	c.buildChild(idx)
	if c.child == nil {
		return nil
	}
	if err := c.child.Seek(ctx, target); err != nil {
		return fmt.Errorf("iterator: concat seek sst %d: %w", c.curIdx, err)
	}
	return c.advancePastExhaustedChildren(ctx)
}

func (c *Concat[D]) partition(target key.Encoded) int {
	var d D
	n := len(c.run.Descriptors)
	if n == 0 {
		return 0
	}
	if d.boundaryIsRight() {
		lo, hi := 0, n-1
		for lo < hi {
			mid := (lo + hi) / 2
			if c.boundaryKey(mid, true) != nil && key.Less(mustEncoded(c.boundaryKey(mid, true)), target) {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return lo
	}
	// Backward runs are sorted descending: take the first SST whose left
	// boundary is at or below target.
	lo, hi := 0, n-1
	for lo < hi {
		mid := (lo + hi) / 2
		if c.boundaryKey(mid, false) != nil && key.Less(target, mustEncoded(c.boundaryKey(mid, false))) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// boundaryKey returns the run's left-or-right boundary key for SST idx,
// or nil when that boundary is open (Descriptor.KeyRange.Inf), which
// always matches during seek partitioning per spec.md §9's SST descriptor
// note.
func (c *Concat[D]) boundaryKey(idx int, right bool) *key.Encoded {
	kr := c.run.Descriptors[idx].KeyRange
	if kr.Inf {
		return nil
	}
	if right {
		return &kr.Right
	}
	return &kr.Left
}

func mustEncoded(k *key.Encoded) key.Encoded { return *k }

// advancePastExhaustedChildren moves forward through the run while the
// current child is immediately exhausted (an empty SST, or a seek that
// landed past the last entry of its SST).
func (c *Concat[D]) advancePastExhaustedChildren(ctx context.Context) error {
	for c.child != nil && !c.child.IsValid() {
		nextIdx := c.curIdx + 1
		c.curIdx = nextIdx
		c.buildChild(nextIdx)
		if c.child == nil {
			return nil
		}
		if err := c.child.Rewind(ctx); err != nil {
			return fmt.Errorf("iterator: concat rewind sst %d: %w", c.curIdx, err)
		}
	}
	return nil
}

// PollNext delegates to the active child. A child that becomes exhausted
// promotes this iterator to AwaitingIo with sub-stage "load next SST"
// rather than rewinding the next child synchronously, per spec.md §4.3.
func (c *Concat[D]) PollNext(ctx context.Context) (PollResult, error) {
	if c.child == nil {
		return PollReady, nil
	}
	res, err := c.child.PollNext(ctx)
	if err != nil {
		return PollReady, err
	}
	if res == PollPending {
		c.subStage = concatStageInner
		return PollPending, nil
	}
	if c.child.IsValid() {
		return PollReady, nil
	}
	c.subStage = concatStageLoadNextSST
	return PollPending, nil
}

// AwaitNext dispatches on the sub-stage PollNext recorded.
func (c *Concat[D]) AwaitNext(ctx context.Context) error {
	switch c.subStage {
	case concatStageInner:
		c.subStage = concatStageNone
		if err := c.child.AwaitNext(ctx); err != nil {
			return err
		}
		if c.child.IsValid() {
			return nil
		}
		return c.loadNextSST(ctx)
	case concatStageLoadNextSST:
		c.subStage = concatStageNone
		return c.loadNextSST(ctx)
	default:
		return ErrInvalidState
	}
}

func (c *Concat[D]) loadNextSST(ctx context.Context) error {
	c.child.CollectLocalStatistic(&c.local)
	nextIdx := c.curIdx + 1
	c.curIdx = nextIdx
	c.buildChild(nextIdx)
	if c.child == nil {
		return nil
	}
	if err := c.child.Rewind(ctx); err != nil {
		return fmt.Errorf("iterator: concat rewind sst %d: %w", c.curIdx, err)
	}
	return c.advancePastExhaustedChildren(ctx)
}

func (c *Concat[D]) Next(ctx context.Context) error {
	return next(ctx, c.PollNext, c.AwaitNext)
}

func (c *Concat[D]) Key() key.Encoded {
	return c.child.Key()
}

func (c *Concat[D]) Value() sstable.ValueView {
	return c.child.Value()
}

func (c *Concat[D]) IsValid() bool {
	return c.child != nil && c.child.IsValid()
}

func (c *Concat[D]) CollectLocalStatistic(sink *stats.Sink) {
	if c.child != nil {
		c.child.CollectLocalStatistic(&c.local)
	}
	if sink != nil {
		sink.Merge(c.local.Snapshot())
	}
	c.local = stats.Sink{}
}

func (c *Concat[D]) Close() error {
	if c.child != nil {
		return c.child.Close()
	}
	return nil
}
