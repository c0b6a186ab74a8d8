package iterator

import (
	"context"
	"fmt"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// unionTag discriminates Union's variant. spec.md §4.5 allows up to four
// concrete slots; this module fills three (SST, Concat, Merge) and leaves
// the fourth (unionSlot4) as the unreachable placeholder reserved for a
// future child type without requiring a union-shape change at every call
// site when it is added.
type unionTag uint8

const (
	unionSST unionTag = iota
	unionConcat
	unionMerge
	unionSlot4
)

// Union is the iterator union (C7): a compile-time sum type over up to
// four concrete iterator types sharing a Direction. Every protocol method
// switches on the variant and forwards directly to the concrete value, so
// a Merge's heap holds Union values — never the Iterator interface — and
// the hot path never makes a virtual call (spec.md §4.5, §9).
type Union[D Direction] struct {
	tag    unionTag
	sst    *SSTIterator[D]
	concat *Concat[D]
	merge  *Merge[D]
}

// UnionOfSST wraps an SST iterator (C4) as a union value.
func UnionOfSST[D Direction](it *SSTIterator[D]) *Union[D] {
	return &Union[D]{tag: unionSST, sst: it}
}

// UnionOfConcat wraps a concat iterator (C5) as a union value.
func UnionOfConcat[D Direction](it *Concat[D]) *Union[D] {
	return &Union[D]{tag: unionConcat, concat: it}
}

// UnionOfMerge wraps a merge iterator (C6) as a union value, for merges
// nested inside an outer merge (e.g. one concat-of-L0 run merged
// alongside several single-SST overlapping inputs).
func UnionOfMerge[D Direction](it *Merge[D]) *Union[D] {
	return &Union[D]{tag: unionMerge, merge: it}
}

func (u *Union[D]) unreachable() error {
	return fmt.Errorf("iterator: union slot %d is a placeholder and must never be constructed", u.tag)
}

func (u *Union[D]) Rewind(ctx context.Context) error {
	switch u.tag {
	case unionSST:
		return u.sst.Rewind(ctx)
	case unionConcat:
		return u.concat.Rewind(ctx)
	case unionMerge:
		return u.merge.Rewind(ctx)
	default:
		return u.unreachable()
	}
}

func (u *Union[D]) Seek(ctx context.Context, target key.Encoded) error {
	switch u.tag {
	case unionSST:
		return u.sst.Seek(ctx, target)
	case unionConcat:
		return u.concat.Seek(ctx, target)
	case unionMerge:
		return u.merge.Seek(ctx, target)
	default:
		return u.unreachable()
	}
}

func (u *Union[D]) PollNext(ctx context.Context) (PollResult, error) {
	switch u.tag {
	case unionSST:
		return u.sst.PollNext(ctx)
	case unionConcat:
		return u.concat.PollNext(ctx)
	case unionMerge:
		return u.merge.PollNext(ctx)
	default:
		return PollReady, u.unreachable()
	}
}

func (u *Union[D]) AwaitNext(ctx context.Context) error {
	switch u.tag {
	case unionSST:
		return u.sst.AwaitNext(ctx)
	case unionConcat:
		return u.concat.AwaitNext(ctx)
	case unionMerge:
		return u.merge.AwaitNext(ctx)
	default:
		return u.unreachable()
	}
}

func (u *Union[D]) Next(ctx context.Context) error {
	return next(ctx, u.PollNext, u.AwaitNext)
}

func (u *Union[D]) Key() key.Encoded {
	switch u.tag {
	case unionSST:
		return u.sst.Key()
	case unionConcat:
		return u.concat.Key()
	case unionMerge:
		return u.merge.Key()
	default:
		panic(u.unreachable())
	}
}

func (u *Union[D]) Value() sstable.ValueView {
	switch u.tag {
	case unionSST:
		return u.sst.Value()
	case unionConcat:
		return u.concat.Value()
	case unionMerge:
		return u.merge.Value()
	default:
		panic(u.unreachable())
	}
}

func (u *Union[D]) IsValid() bool {
	switch u.tag {
	case unionSST:
		return u.sst.IsValid()
	case unionConcat:
		return u.concat.IsValid()
	case unionMerge:
		return u.merge.IsValid()
	default:
		return false
	}
}

func (u *Union[D]) CollectLocalStatistic(sink *stats.Sink) {
	switch u.tag {
	case unionSST:
		u.sst.CollectLocalStatistic(sink)
	case unionConcat:
		u.concat.CollectLocalStatistic(sink)
	case unionMerge:
		u.merge.CollectLocalStatistic(sink)
	}
}

func (u *Union[D]) Close() error {
	switch u.tag {
	case unionSST:
		return u.sst.Close()
	case unionConcat:
		return u.concat.Close()
	case unionMerge:
		return u.merge.Close()
	default:
		return nil
	}
}
