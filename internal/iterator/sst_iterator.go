package iterator

import (
	"context"
	"fmt"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// SSTIterator is the SST iterator (C4): it steps one SST's blocks and
// entries behind the two-phase poll/await protocol. Crossing a block
// boundary is modeled as an async step even though this module's Store
// keeps SST bytes resident once loaded (internal/sstable.Handle.DecodeBlock
// doc comment), so fault injection and cancellation behave exactly as
// spec.md §8 scenario 5 and §5 describe.
type SSTIterator[D Direction] struct {
	handle   *sstable.Handle
	blockIdx int
	entryIdx int
	block    *sstable.Block

	compactionMode bool // set by SeekForCompaction; Seek never consults the bloom filter

	state   State
	pending chan blockResult

	local stats.Local
}

type blockResult struct {
	block *sstable.Block
	err   error
}

// NewSSTIterator constructs an SST iterator over handle. compactionMode
// marks the next_for_compact variant of spec.md §4.2; Seek positions the
// same way in either mode, since it never consults the bloom filter.
func NewSSTIterator[D Direction](handle *sstable.Handle, compactionMode bool) *SSTIterator[D] {
	return &SSTIterator[D]{handle: handle, compactionMode: compactionMode, state: Uninitialized}
}

func (it *SSTIterator[D]) firstBlockIdx() int {
	if it.isForward() {
		return 0
	}
	return it.handle.NumBlocks() - 1
}

func (it *SSTIterator[D]) isForward() bool {
	var d D
	_, ok := any(d).(Forward)
	return ok
}

// Rewind positions at the first element (spec.md §4.2: "load first block,
// position at entry 0" — or the last block/last entry for Backward).
func (it *SSTIterator[D]) Rewind(ctx context.Context) error {
	if it.handle.NumBlocks() == 0 {
		it.state = Exhausted
		return nil
	}
	it.blockIdx = it.firstBlockIdx()
	return it.loadAndPosition(ctx, it.firstEntryIdxForBlock)
}

func (it *SSTIterator[D]) firstEntryIdxForBlock(b *sstable.Block) int {
	if it.isForward() {
		return 0
	}
	return b.Len() - 1
}

// Seek positions at the smallest key >= target (forward) or the largest
// key <= target (backward), per spec.md §4.1.
func (it *SSTIterator[D]) Seek(ctx context.Context, target key.Encoded) error {
	if it.handle.NumBlocks() == 0 {
		it.state = Exhausted
		return nil
	}
	// compactionMode only matters where bloom filters gate lookups higher
	// in the stack (e.g. Store.Sstable point lookups); Seek here is a range
	// operation and always positions structurally, bloom filter or not.

	idx := it.searchBlock(target)
	it.blockIdx = idx
	return it.loadAndPosition(ctx, func(b *sstable.Block) int {
		if it.isForward() {
			return b.Seek(target)
		}
		return it.seekBackwardInBlock(b, target)
	})
}

// SeekForCompaction is the next_for_compact entry point of spec.md §4.2:
// identical to Seek but guarantees no bloom-filter based skipping, so
// compaction observes every version.
func (it *SSTIterator[D]) SeekForCompaction(ctx context.Context, target key.Encoded) error {
	it.compactionMode = true
	return it.Seek(ctx, target)
}

func (it *SSTIterator[D]) searchBlock(target key.Encoded) int {
	metas := it.handle.Blocks
	if it.isForward() {
		lo, hi := 0, len(metas)-1
		for lo < hi {
			mid := (lo + hi) / 2
			if key.Less(metas[mid].LargestKey, target) {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		return lo
	}
	lo, hi := 0, len(metas)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if key.Less(target, metas[mid].LargestKey) && mid > 0 && key.Less(target, metas[mid-1].LargestKey) {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return lo
}

func (it *SSTIterator[D]) seekBackwardInBlock(b *sstable.Block, target key.Encoded) int {
	idx := b.Seek(target)
	if idx < b.Len() {
		k, _ := b.At(idx)
		if key.Equal(k, target) {
			return idx
		}
	}
	return idx - 1
}

// loadAndPosition decodes the current blockIdx directly and, once resident, positions entryIdx using posFn. On the synchronous
// entry points (Rewind/Seek) this module completes the decode immediately
// since it is never actually asynchronous — the split is exercised by
// PollNext/AwaitNext instead.
func (it *SSTIterator[D]) loadAndPosition(ctx context.Context, posFn func(*sstable.Block) int) error {
	b, err := it.handle.DecodeBlock(it.blockIdx)
	if err != nil {
		it.state = Exhausted
		return fmt.Errorf("iterator: decode block %d: %w", it.blockIdx, err)
	}
	it.block = b
	it.local.BlocksLoaded++
	it.entryIdx = posFn(b)
	return it.settlePosition(ctx)
}

// settlePosition advances across empty/out-of-range blocks until a valid
// entry is found or the SST is exhausted.
func (it *SSTIterator[D]) settlePosition(ctx context.Context) error {
	for {
		if it.entryIdx >= 0 && it.entryIdx < it.block.Len() {
			it.state = Valid
			return nil
		}
		nextBlock := it.blockIdx + 1
		if !it.isForward() {
			nextBlock = it.blockIdx - 1
		}
		if nextBlock < 0 || nextBlock >= it.handle.NumBlocks() {
			it.state = Exhausted
			return nil
		}
		it.blockIdx = nextBlock
		b, err := it.handle.DecodeBlock(it.blockIdx)
		if err != nil {
			it.state = Exhausted
			return fmt.Errorf("iterator: decode block %d: %w", it.blockIdx, err)
		}
		it.block = b
		it.local.BlocksLoaded++
		if it.isForward() {
			it.entryIdx = 0
		} else {
			it.entryIdx = b.Len() - 1
		}
	}
}

// PollNext advances the in-block cursor; if it falls off the block, marks
// AwaitingIo for "load next block" rather than loading synchronously,
// per spec.md §4.2/§9.
func (it *SSTIterator[D]) PollNext(ctx context.Context) (PollResult, error) {
	if it.state != Valid {
		return PollReady, ErrInvalidState
	}
	if it.isForward() {
		it.entryIdx++
	} else {
		it.entryIdx--
	}
	if it.entryIdx >= 0 && it.entryIdx < it.block.Len() {
		return PollReady, nil
	}

	nextBlock := it.blockIdx + 1
	if !it.isForward() {
		nextBlock = it.blockIdx - 1
	}
	if nextBlock < 0 || nextBlock >= it.handle.NumBlocks() {
		it.state = Exhausted
		return PollReady, nil
	}

	it.state = AwaitingIo
	it.blockIdx = nextBlock
	ch := make(chan blockResult, 1)
	go func(idx int) {
		b, err := it.handle.DecodeBlock(idx)
		ch <- blockResult{block: b, err: err}
	}(nextBlock)
	it.pending = ch
	return PollPending, nil
}

// AwaitNext completes the "load next block" I/O a PollPending PollNext
// started.
func (it *SSTIterator[D]) AwaitNext(ctx context.Context) error {
	if it.state != AwaitingIo || it.pending == nil {
		return ErrInvalidState
	}
	select {
	case res := <-it.pending:
		it.pending = nil
		if res.err != nil {
			it.state = Exhausted
			return fmt.Errorf("iterator: await block %d: %w", it.blockIdx, res.err)
		}
		it.block = res.block
		it.local.BlocksLoaded++
		if it.isForward() {
			it.entryIdx = 0
		} else {
			it.entryIdx = it.block.Len() - 1
		}
		it.state = Valid
		return nil
	case <-ctx.Done():
		it.state = Exhausted
		return ctx.Err()
	}
}

// Next composes PollNext/AwaitNext.
func (it *SSTIterator[D]) Next(ctx context.Context) error {
	return next(ctx, it.PollNext, it.AwaitNext)
}

func (it *SSTIterator[D]) Key() key.Encoded {
	k, _ := it.block.At(it.entryIdx)
	return k
}

func (it *SSTIterator[D]) Value() sstable.ValueView {
	_, v := it.block.At(it.entryIdx)
	return v
}

func (it *SSTIterator[D]) IsValid() bool { return it.state == Valid }

func (it *SSTIterator[D]) CollectLocalStatistic(sink *stats.Sink) {
	if sink != nil {
		sink.Merge(it.local)
	}
	it.local = stats.Local{}
}

// Close never performs I/O, per spec.md §5.
func (it *SSTIterator[D]) Close() error {
	it.pending = nil
	return nil
}
