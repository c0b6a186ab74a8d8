package sstable

import (
	bloomfilter "github.com/holiman/bloomfilter/v2"

	"github.com/dreamware/hummock/internal/key"
)

// Handle is the immutable, shareable SST descriptor named in spec.md §3:
// smallest/largest key, block index, bloom filter, backing object id.
// Handles are shared by many concurrent iterators; their lifetime is
// governed by Store's cache, never by an individual iterator.
type Handle struct {
	ID          uint64
	Smallest    key.Encoded
	Largest     key.Encoded
	Blocks      []BlockMeta
	Compression Compression
	Bloom       *bloomfilter.Filter // nil if the SST carried no bloom filter

	data []byte // raw, compressed block bytes, indexed by BlockMeta offsets
}

// MayContain reports whether userKey could be present in the SST,
// consulting the bloom filter when available. A false return is a
// definitive negative; a true return is only a probabilistic positive.
func (h *Handle) MayContain(userKey []byte) bool {
	if h.Bloom == nil {
		return true
	}
	return h.Bloom.Contains(bloomfilter.HashBytes(userKey))
}

// NumBlocks returns the number of blocks in the SST.
func (h *Handle) NumBlocks() int { return len(h.Blocks) }

// DecodeBlock decodes the i'th block. This is the one operation the SST
// iterator's AwaitNext treats as its "I/O": in this implementation the
// bytes are already resident in h.data (fetched by Store.Load), so the
// decode is pure CPU work, but the iterator still routes it through the
// poll/await split so a future backend that streams blocks lazily can
// slot in without changing the iterator's state machine.
func (h *Handle) DecodeBlock(i int) (*Block, error) {
	m := h.Blocks[i]
	raw := h.data[m.Offset : m.Offset+m.Length]
	return decodeBlock(raw, 16)
}

// ByteSize returns the resident size of the SST's block data, for
// statistics and memory accounting.
func (h *Handle) ByteSize() int { return len(h.data) }
