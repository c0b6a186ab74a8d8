package sstable

import (
	"fmt"

	bloomfilter "github.com/holiman/bloomfilter/v2"

	"github.com/dreamware/hummock/internal/key"
)

// BuilderOptions are the SST builder's construction options named in
// spec.md §6: block capacity, table capacity, bloom false-positive rate,
// and compression algorithm.
type BuilderOptions struct {
	BlockCapacity   int // bytes, approximate; flush current block once exceeded
	TableCapacity   int // bytes, approximate; caller should open a new SST once exceeded
	RestartInterval int
	BloomFPR        float64
	Compression     Compression
}

// DefaultBuilderOptions returns reasonable defaults modeled on the
// teacher's style of exposing a constructor with sane zero-config
// behavior (compare shard.NewShard).
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		BlockCapacity:   64 * 1024,
		TableCapacity:   64 * 1024 * 1024,
		RestartInterval: 16,
		BloomFPR:        0.01,
		Compression:     CompressionNone,
	}
}

// BuiltMeta is the block index plus table-level summary a Builder produces
// alongside the raw SST bytes, per spec.md §6: per-block largest key and
// offset, a bloom filter, a smallest/largest key summary, and a compression
// marker.
type BuiltMeta struct {
	Blocks       []BlockMeta
	Smallest     key.Encoded
	Largest      key.Encoded
	Compression  Compression
	BloomEncoded []byte
}

// BlockMeta records one block's offset and length within the SST's data
// section, plus its largest key, for binary search during seek.
type BlockMeta struct {
	Offset     int
	Length     int
	LargestKey key.Encoded
}

// Builder accumulates entries into blocks and finishes into a complete SST.
// Builder implements the "SST builder" collaborator of spec.md §4.7: Add,
// Finish.
type Builder struct {
	opts    BuilderOptions
	pending []entry
	pendingBytes int

	data  []byte
	metas []BlockMeta

	smallest key.Encoded
	largest  key.Encoded

	userKeys [][]byte
}

// NewBuilder constructs an empty Builder with the given options.
func NewBuilder(opts BuilderOptions) *Builder {
	return &Builder{opts: opts}
}

// Add appends one entry, flushing the current block if it would exceed
// BlockCapacity. Entries must be added in ascending key order (the
// precondition the builder assumes; this is not validated per-call, as the
// builder is always driven by an already-ordered merge iterator in this
// module).
func (b *Builder) Add(k key.Encoded, v ValueView) {
	b.pending = append(b.pending, entry{k: k, v: v})
	b.pendingBytes += len(k) + len(v.Bytes) + 8
	b.userKeys = append(b.userKeys, append([]byte(nil), k.UserKey()...))

	if b.smallest == nil || key.Less(k, b.smallest) {
		b.smallest = append(key.Encoded(nil), k...)
	}
	if b.largest == nil || key.Less(b.largest, k) {
		b.largest = append(key.Encoded(nil), k...)
	}

	if b.pendingBytes >= b.opts.BlockCapacity {
		b.flush()
	}
}

// EstimatedSize returns the approximate number of bytes the builder has
// accumulated so far, used by the compaction driver to decide when to
// open a new output SST (spec.md §4.6).
func (b *Builder) EstimatedSize() int {
	return len(b.data) + b.pendingBytes
}

func (b *Builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	raw, _, err := encodeBlock(b.pending, restartIntervalOr(b.opts.RestartInterval))
	if err != nil {
		// Encoding failures here indicate a builder-internal invariant
		// violation (unknown value kind), not an I/O error; panicking
		// matches spec.md §7's "precondition" policy.
		panic(fmt.Sprintf("sstable: block encode: %v", err))
	}
	compressed, err := compress(raw, b.opts.Compression)
	if err != nil {
		panic(fmt.Sprintf("sstable: block compress: %v", err))
	}

	meta := BlockMeta{
		Offset:     len(b.data),
		Length:     len(compressed),
		LargestKey: append(key.Encoded(nil), b.pending[len(b.pending)-1].k...),
	}
	b.data = append(b.data, compressed...)
	b.metas = append(b.metas, meta)
	b.pending = nil
	b.pendingBytes = 0
}

// Finish flushes any pending block and returns the completed SST's raw
// byte data plus its meta, per spec.md §4.7's Finish() → (id, data, meta).
// The caller supplies id since id assignment (e.g. from a manifest
// sequence) is outside this package's scope.
func (b *Builder) Finish(id uint64) (uint64, []byte, BuiltMeta) {
	b.flush()

	bloom, _ := bloomfilter.New(uint64(max(len(b.userKeys), 1))*8, 1+uint64(1/max(b.opts.BloomFPR, 0.001)))
	for _, uk := range b.userKeys {
		bloom.Add(bloomfilter.HashBytes(uk))
	}
	var bloomBuf []byte
	if encoded, err := bloom.MarshalBinary(); err == nil {
		bloomBuf = encoded
	}

	meta := BuiltMeta{
		Blocks:       b.metas,
		Smallest:     b.smallest,
		Largest:      b.largest,
		Compression:  b.opts.Compression,
		BloomEncoded: bloomBuf,
	}
	return id, b.data, meta
}

func restartIntervalOr(v int) int {
	if v <= 0 {
		return 16
	}
	return v
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
