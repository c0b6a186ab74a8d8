package compaction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dreamware/hummock/internal/iterator"
	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

func buildSST(t *testing.T, store *sstable.Store, id uint64, userKeys []string, epoch uint64, deletes map[string]bool) *sstable.Handle {
	t.Helper()
	opts := sstable.DefaultBuilderOptions()
	opts.BlockCapacity = 32
	b := sstable.NewBuilder(opts)
	for _, uk := range userKeys {
		v := sstable.ValueView{Kind: sstable.Put, Bytes: []byte("v-" + uk)}
		if deletes[uk] {
			v = sstable.ValueView{Kind: sstable.Delete}
		}
		b.Add(key.Encode([]byte(uk), epoch), v)
	}
	bid, data, meta := b.Finish(id)
	h, err := store.Publish(context.Background(), bid, data, meta)
	require.NoError(t, err)
	return h
}

func runFromHandle(h *sstable.Handle) iterator.Run {
	return iterator.Run{
		Descriptors: []sstable.Descriptor{{
			ID:       h.ID,
			KeyRange: sstable.KeyRange{Left: h.Smallest, Right: h.Largest},
			FileSize: uint64(h.ByteSize()),
		}},
		Handles: []*sstable.Handle{h},
	}
}

func newTestStore(t *testing.T) *sstable.Store {
	t.Helper()
	store, err := sstable.NewStore(sstable.NewMemoryBackend(), 16, zap.NewNop(), stats.NewRegistry())
	require.NoError(t, err)
	return store
}

func TestDriverRunMergesGroupsAndPublishesOneOutput(t *testing.T) {
	store := newTestStore(t)
	h1 := buildSST(t, store, 1, []string{"a", "c"}, 1, nil)
	h2 := buildSST(t, store, 2, []string{"b", "d"}, 1, nil)

	var nextID uint64 = 100
	d := &Driver{
		Filter:    KeepAll,
		Publisher: store,
		NewBuilder: func() Builder {
			return sstable.NewBuilder(sstable.DefaultBuilderOptions())
		},
		NextID: func() uint64 { nextID++; return nextID },
	}

	out, err := d.Run(context.Background(), []iterator.Run{runFromHandle(h1), runFromHandle(h2)})
	require.NoError(t, err)
	require.Len(t, out, 1)

	merged, err := store.Sstable(context.Background(), out[0].ID)
	require.NoError(t, err)
	require.Equal(t, 4, countEntries(t, merged))
}

func TestDriverRunDropsFilteredTombstones(t *testing.T) {
	store := newTestStore(t)
	h := buildSST(t, store, 1, []string{"a", "b", "c"}, 1, map[string]bool{"b": true})

	var nextID uint64 = 200
	dropDeletes := FilterFunc(func(_ key.Encoded, v Value) bool { return !v.IsDelete })
	d := &Driver{
		Filter:    dropDeletes,
		Publisher: store,
		NewBuilder: func() Builder {
			return sstable.NewBuilder(sstable.DefaultBuilderOptions())
		},
		NextID: func() uint64 { nextID++; return nextID },
	}

	out, err := d.Run(context.Background(), []iterator.Run{runFromHandle(h)})
	require.NoError(t, err)
	require.Len(t, out, 1)

	merged, err := store.Sstable(context.Background(), out[0].ID)
	require.NoError(t, err)
	require.Equal(t, 2, countEntries(t, merged))
}

func TestDriverRunSplitsOutputOnCapacity(t *testing.T) {
	store := newTestStore(t)
	h := buildSST(t, store, 1, []string{"a", "b", "c", "d"}, 1, nil)

	var nextID uint64 = 300
	d := &Driver{
		Filter:    KeepAll,
		Publisher: store,
		NewBuilder: func() Builder {
			return &capacityFakeBuilder{limit: 2}
		},
		NextID:         func() uint64 { nextID++; return nextID },
		OutputCapacity: 1, // the fake reports a huge size once it holds limit entries
	}

	out, err := d.Run(context.Background(), []iterator.Run{runFromHandle(h)})
	require.NoError(t, err)
	require.Greater(t, len(out), 1, "capacity threshold should force multiple output SSTs")
}

func TestDriverRunRestrictsToKeyRange(t *testing.T) {
	store := newTestStore(t)
	h := buildSST(t, store, 1, []string{"a", "b", "c", "d"}, 1, nil)

	var nextID uint64 = 400
	d := &Driver{
		Filter:    KeepAll,
		Publisher: store,
		NewBuilder: func() Builder {
			return sstable.NewBuilder(sstable.DefaultBuilderOptions())
		},
		NextID: func() uint64 { nextID++; return nextID },
		KeyRange: Range{
			// Left uses the maximum epoch so every version of "b" sorts at
			// or after it (epoch descending); Right uses epoch 0 so every
			// version of "c" sorts at or before it.
			Left:  key.Encode([]byte("b"), ^uint64(0)),
			Right: key.Encode([]byte("c"), 0),
		},
	}

	out, err := d.Run(context.Background(), []iterator.Run{runFromHandle(h)})
	require.NoError(t, err)
	require.Len(t, out, 1)

	merged, err := store.Sstable(context.Background(), out[0].ID)
	require.NoError(t, err)
	require.Equal(t, 2, countEntries(t, merged))
}

func TestDriverRunAcquiresAndReleasesMemoryToken(t *testing.T) {
	store := newTestStore(t)
	h := buildSST(t, store, 1, []string{"a"}, 1, nil)

	limiter := NewMemoryLimiter(64)
	var nextID uint64 = 500
	d := &Driver{
		Filter:    KeepAll,
		Publisher: store,
		NewBuilder: func() Builder {
			return sstable.NewBuilder(sstable.DefaultBuilderOptions())
		},
		NextID:           func() uint64 { nextID++; return nextID },
		Limiter:          limiter,
		BuilderBytesHint: 32,
	}

	_, err := d.Run(context.Background(), []iterator.Run{runFromHandle(h)})
	require.NoError(t, err)

	// The token from the completed run must have been released; the full
	// budget should be immediately re-acquirable.
	tok, err := limiter.RequireMemory(context.Background(), 64)
	require.NoError(t, err)
	tok.Release()
}

func TestDriverRunWithKeyRangeEmitsMergeSeekHistogramSample(t *testing.T) {
	store := newTestStore(t)
	h := buildSST(t, store, 1, []string{"a", "b", "c", "d"}, 1, nil)

	reg := stats.NewRegistry()
	var nextID uint64 = 600
	d := &Driver{
		Filter:    KeepAll,
		Publisher: store,
		NewBuilder: func() Builder {
			return sstable.NewBuilder(sstable.DefaultBuilderOptions())
		},
		NextID: func() uint64 { nextID++; return nextID },
		Reg:    reg,
		KeyRange: Range{
			// A bounded KeyRange drives Driver.Run through merge.Seek
			// rather than merge.Rewind.
			Left:  key.Encode([]byte("b"), ^uint64(0)),
			Right: key.Encode([]byte("c"), 0),
		},
	}

	_, err := d.Run(context.Background(), []iterator.Run{runFromHandle(h)})
	require.NoError(t, err)

	mfs, err := reg.Gatherer().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "iter_merge_seek_duration_seconds" {
			continue
		}
		found = true
		require.GreaterOrEqual(t, mf.GetMetric()[0].GetHistogram().GetSampleCount(), uint64(1),
			"Driver.Run exercising Merge.Seek must flush a merge-seek observation to the registry")
	}
	require.True(t, found, "iter_merge_seek_duration_seconds metric family must be present")
}

func countEntries(t *testing.T, h *sstable.Handle) int {
	t.Helper()
	total := 0
	for i := 0; i < h.NumBlocks(); i++ {
		b, err := h.DecodeBlock(i)
		require.NoError(t, err)
		total += b.Len()
	}
	return total
}

// capacityFakeBuilder reports itself full as soon as it holds limit
// entries, forcing the driver's capacity-split path regardless of real byte
// size, per the Builder interface's doc comment on test substitution.
type capacityFakeBuilder struct {
	inner sstable.Builder
	once  bool
	limit int
	count int
}

func (f *capacityFakeBuilder) Add(k key.Encoded, v sstable.ValueView) {
	if !f.once {
		f.inner = *sstable.NewBuilder(sstable.DefaultBuilderOptions())
		f.once = true
	}
	f.inner.Add(k, v)
	f.count++
}

func (f *capacityFakeBuilder) EstimatedSize() int {
	if f.count >= f.limit {
		return 1 << 30
	}
	return 0
}

func (f *capacityFakeBuilder) Finish(id uint64) (uint64, []byte, sstable.BuiltMeta) {
	return f.inner.Finish(id)
}
