package compaction

import (
	"context"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
)

// Builder is the output-builder collaborator of spec.md §4.7:
// `add(key, value)`, `finish() → (id, data, meta)`. *sstable.Builder
// satisfies this directly; tests may substitute a fake that caps
// EstimatedSize artificially low to exercise the multi-output path.
type Builder interface {
	Add(k key.Encoded, v sstable.ValueView)
	EstimatedSize() int
	Finish(id uint64) (uint64, []byte, sstable.BuiltMeta)
}

// BuilderFactory opens a fresh Builder each time the driver's current
// output SST fills up (spec.md §4.6's "opens a new one").
type BuilderFactory func() Builder

// Publisher persists a finished builder's output. *sstable.Store
// satisfies this directly.
type Publisher interface {
	Publish(ctx context.Context, id uint64, data []byte, meta sstable.BuiltMeta) (*sstable.Handle, error)
}
