package compaction

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dreamware/hummock/internal/iterator"
	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// Range restricts compaction output to [Left, Right]; Inf means
// unrestricted, per spec.md §4.6 ("drive it to produce a single ordered
// stream restricted to the key range").
type Range struct {
	Left, Right key.Encoded
	Inf         bool
}

func (r Range) aboveRight(k key.Encoded) bool {
	return !r.Inf && key.Less(r.Right, k)
}

// Driver is the multi-SST compaction driver (C8): spec.md §4.6.
type Driver struct {
	Limiter    *MemoryLimiter
	Filter     Filter
	NewBuilder BuilderFactory
	NextID     func() uint64
	Publisher  Publisher
	Log        *zap.Logger
	Reg        *stats.Registry

	// KeyRange restricts the output stream; the zero value (Inf: false,
	// Left/Right nil) is treated as unrestricted.
	KeyRange Range
	// OutputCapacity is the EstimatedSize threshold at which the driver
	// finishes the current builder and opens a new one. Zero means never
	// split on size (the caller relies on Run completing before the
	// single builder overflows).
	OutputCapacity int
	// BuilderBytesHint sizes each MemoryLimiter.RequireMemory call;
	// callers size it to their builder's expected peak buffer.
	BuilderBytesHint int64
}

// Run drives one compaction: groups is one iterator.Run per overlapping
// SST group (spec.md §4.6's "one merge input per group"). Every group is
// wrapped in a Concat[Forward], all concats are merged unordered (the
// lighter variant compaction uses per spec.md §4.4's rationale), the
// stream is filtered and fed to builders, and the resulting SST
// descriptors are returned. All errors abort compaction and release any
// outstanding memory tokens.
func (d *Driver) Run(ctx context.Context, groups []iterator.Run) ([]sstable.Descriptor, error) {
	children := make([]*iterator.Union[iterator.Forward], 0, len(groups))
	for _, g := range groups {
		concat := iterator.NewConcat[iterator.Forward](g, true)
		children = append(children, iterator.UnionOfConcat[iterator.Forward](concat))
	}
	merge := iterator.NewMerge[iterator.Forward](children, false)

	var out []sstable.Descriptor
	var cur Builder
	var token *Token
	sink := &stats.Sink{}
	defer func() {
		merge.CollectLocalStatistic(sink)
		if d.Reg != nil {
			sink.Flush(d.Reg)
		}
		if token != nil {
			token.Release()
		}
	}()

	flush := func() error {
		if cur == nil {
			return nil
		}
		id, data, meta := cur.Finish(d.NextID())
		h, err := d.Publisher.Publish(ctx, id, data, meta)
		if err != nil {
			return fmt.Errorf("compaction: publish sst %d: %w", id, err)
		}
		out = append(out, sstable.Descriptor{
			ID:       h.ID,
			KeyRange: sstable.KeyRange{Left: h.Smallest, Right: h.Largest},
			FileSize: uint64(h.ByteSize()),
		})
		if token != nil {
			token.Release()
			token = nil
		}
		cur = nil
		if d.Log != nil {
			d.Log.Debug("compaction output sst published", zap.Uint64("id", id), zap.Int("blocks", h.NumBlocks()))
		}
		return nil
	}

	var err error
	if d.KeyRange.Inf || len(d.KeyRange.Left) == 0 {
		err = merge.Rewind(ctx)
	} else {
		err = merge.Seek(ctx, d.KeyRange.Left)
	}
	if err != nil {
		return nil, fmt.Errorf("compaction: position merge: %w", err)
	}

	for merge.IsValid() {
		k := merge.Key()
		if d.KeyRange.aboveRight(k) {
			break
		}
		v := merge.Value()
		if d.Filter == nil || d.Filter.Keep(k, Value{IsDelete: v.IsDelete(), Bytes: v.Bytes}) {
			if cur == nil {
				cur = d.NewBuilder()
				if d.Limiter != nil {
					token, err = d.Limiter.RequireMemory(ctx, d.BuilderBytesHint)
					if err != nil {
						return nil, fmt.Errorf("compaction: acquire builder memory: %w", err)
					}
				}
			}
			cur.Add(k, v)
			if d.OutputCapacity > 0 && cur.EstimatedSize() >= d.OutputCapacity {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		}
		if err := merge.Next(ctx); err != nil {
			return nil, fmt.Errorf("compaction: advance merge: %w", err)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}
