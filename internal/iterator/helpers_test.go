package iterator

import (
	"context"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// buildHandle builds an in-memory *sstable.Handle from a small ordered set
// of user keys, the i'th given epoch i+1, split across tiny blocks so most test
// SSTs span several blocks and exercise the block-boundary paths.
func buildHandle(userKeys []string, blockCapacity int) *sstable.Handle {
	opts := sstable.DefaultBuilderOptions()
	opts.BlockCapacity = blockCapacity
	opts.RestartInterval = 2
	b := sstable.NewBuilder(opts)
	for i, uk := range userKeys {
		b.Add(key.Encode([]byte(uk), uint64(i+1)), sstable.ValueView{Kind: sstable.Put, Bytes: []byte("v-" + uk)})
	}
	id, data, meta := b.Finish(1)
	return publishedHandle(id, data, meta)
}

// buildHandleWithEpochs builds a handle where every entry shares the same
// user key set but callers choose the epoch explicitly, used by tests that
// need controlled overlap across SSTs (dedup, tombstones).
func buildHandleWithEpochs(id uint64, entries []struct {
	UserKey string
	Epoch   uint64
	Delete  bool
}, blockCapacity int) *sstable.Handle {
	opts := sstable.DefaultBuilderOptions()
	opts.BlockCapacity = blockCapacity
	opts.RestartInterval = 2
	b := sstable.NewBuilder(opts)
	for _, e := range entries {
		v := sstable.ValueView{Kind: sstable.Put, Bytes: []byte("v-" + e.UserKey)}
		if e.Delete {
			v = sstable.ValueView{Kind: sstable.Delete}
		}
		b.Add(key.Encode([]byte(e.UserKey), e.Epoch), v)
	}
	_, data, meta := b.Finish(id)
	return publishedHandle(id, data, meta)
}

func publishedHandle(id uint64, data []byte, meta sstable.BuiltMeta) *sstable.Handle {
	// Handle has no exported constructor outside the sstable package;
	// Store.Publish is the only public path that builds one, so route
	// through an in-memory store here rather than reaching into
	// unexported fields.
	store, err := sstable.NewStore(sstable.NewMemoryBackend(), 8, nil, stats.NewRegistry())
	if err != nil {
		panic(err)
	}
	h, err := store.Publish(context.Background(), id, data, meta)
	if err != nil {
		panic(err)
	}
	return h
}
