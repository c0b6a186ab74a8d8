package compaction

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/dreamware/hummock/internal/iterator"
	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// buildOverlappingRun constructs numSSTs SSTs, each carrying keysPerSST
// consecutive user keys, so the SSTs within the run do not overlap (a
// Run's precondition). Every run built this way covers the same key
// space, so separate runs overlap one another.
func buildOverlappingRun(b *testing.B, store *sstable.Store, numSSTs, keysPerSST int, nextID *uint64) iterator.Run {
	b.Helper()
	run := iterator.Run{}
	for s := 0; s < numSSTs; s++ {
		opts := sstable.DefaultBuilderOptions()
		opts.BlockCapacity = 4096
		bld := sstable.NewBuilder(opts)
		for i := 0; i < keysPerSST; i++ {
			uk := fmt.Sprintf("key-%08d", s*keysPerSST+i)
			bld.Add(key.Encode([]byte(uk), 1), sstable.ValueView{Kind: sstable.Put, Bytes: []byte(uk)})
		}
		*nextID++
		id, data, meta := bld.Finish(*nextID)
		h, err := store.Publish(context.Background(), id, data, meta)
		if err != nil {
			b.Fatalf("publish sst %d: %v", id, err)
		}
		run.Handles = append(run.Handles, h)
		run.Descriptors = append(run.Descriptors, sstable.Descriptor{
			ID:       h.ID,
			KeyRange: sstable.KeyRange{Left: h.Smallest, Right: h.Largest},
			FileSize: uint64(h.ByteSize()),
		})
	}
	return run
}

// benchmarkDriverRun drives a synthetic multi-group compaction repeatedly,
// one group per run built by buildOverlappingRun; the groups overlap one
// another.
func benchmarkDriverRun(b *testing.B, numGroups, numSSTs, keysPerSST int) {
	store, err := sstable.NewStore(sstable.NewMemoryBackend(), 64, zap.NewNop(), stats.NewRegistry())
	if err != nil {
		b.Fatalf("new store: %v", err)
	}

	var nextID uint64
	groups := make([]iterator.Run, numGroups)
	for g := 0; g < numGroups; g++ {
		groups[g] = buildOverlappingRun(b, store, numSSTs, keysPerSST, &nextID)
	}

	outID := nextID
	d := &Driver{
		Filter:    KeepAll,
		Publisher: store,
		NewBuilder: func() Builder {
			opts := sstable.DefaultBuilderOptions()
			opts.BlockCapacity = 4096
			return sstable.NewBuilder(opts)
		},
		NextID: func() uint64 { outID++; return outID },
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Run(context.Background(), groups); err != nil {
			b.Fatalf("driver run: %v", err)
		}
	}
}

func BenchmarkDriverRunSmall(b *testing.B) {
	benchmarkDriverRun(b, 2, 2, 64)
}

func BenchmarkDriverRunMedium(b *testing.B) {
	benchmarkDriverRun(b, 4, 4, 256)
}

func BenchmarkDriverRunManySmallSSTs(b *testing.B) {
	benchmarkDriverRun(b, 2, 16, 32)
}
