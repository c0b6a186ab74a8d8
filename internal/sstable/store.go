package sstable

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	bloomfilter "github.com/holiman/bloomfilter/v2"
	"go.uber.org/zap"

	"github.com/dreamware/hummock/internal/stats"
)

// ErrObjectNotFound is returned by a Backend when the requested object id
// does not exist.
var ErrObjectNotFound = errors.New("sstable: object not found")

// ErrNotCached is returned by Store.Sstable when the handle is not
// currently resident in the cache (the cache-only lookup named in
// spec.md §4.7).
var ErrNotCached = errors.New("sstable: handle not cached")

// Store is the async SST loader collaborator (C3): Load(id, with_prefetch)
// and Sstable(id) from spec.md §4.7, backed by a Backend and an LRU handle
// cache. A single Store is shared by every concurrent scan and compaction
// task in a process; its cache is internally synchronized, matching
// spec.md §5's "the store provides its own internal synchronization".
type Store struct {
	backend Backend
	cache   *lru.Cache[uint64, *Handle]
	log     *zap.Logger
	reg     *stats.Registry
}

// NewStore constructs a Store with the given backend and an LRU handle
// cache holding up to cacheSize SSTs.
func NewStore(backend Backend, cacheSize int, log *zap.Logger, reg *stats.Registry) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c, err := lru.New[uint64, *Handle](max(cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("sstable: new cache: %w", err)
	}
	return &Store{backend: backend, cache: c, log: log, reg: reg}, nil
}

// Sstable returns the cached Handle for id, failing with ErrNotCached if
// absent. It never touches the backend; this is the cache-only variant of
// spec.md §4.7.
func (s *Store) Sstable(_ context.Context, id uint64) (*Handle, error) {
	if h, ok := s.cache.Get(id); ok {
		s.reg.IncCacheHit()
		return h, nil
	}
	s.reg.IncCacheMiss()
	return nil, fmt.Errorf("sstable: sstable %d: %w", id, ErrNotCached)
}

// Load fetches id from the backend if not already cached, decoding its
// trailer into an immutable Handle, which is added to the cache unless
// opts.CachePolicy is NotFill. opts.Prefetch is only recorded in the debug
// log: Load fetches eagerly either way, and Sstable is the separate
// cache-only lookup. Backend errors are retried up to three times with
// exponential backoff (cenkalti/backoff), the retry-around-I/O idiom
// erigon's go.mod pulls in the same library for.
func (s *Store) Load(ctx context.Context, d Descriptor, opts ReadOptions) (*Handle, error) {
	if h, ok := s.cache.Get(d.ID); ok {
		s.reg.IncCacheHit()
		return h, nil
	}
	s.reg.IncCacheMiss()

	var raw []byte
	op := func() error {
		data, err := s.backend.GetObject(ctx, d.ID)
		if err != nil {
			return err
		}
		raw = data
		return nil
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("sstable: load %d: %w", d.ID, err)
	}

	h, err := decodeHandle(d.ID, raw)
	if err != nil {
		return nil, fmt.Errorf("sstable: decode %d: %w", d.ID, err)
	}

	if opts.CachePolicy != NotFill {
		s.cache.Add(d.ID, h)
	}
	s.reg.IncBytesRead(len(raw))
	s.log.Debug("sstable loaded", zap.Uint64("id", d.ID), zap.Int("bytes", len(raw)), zap.Bool("prefetch", opts.Prefetch))
	return h, nil
}

// Publish serializes a Builder's output into a self-describing object
// (block data plus an appended trailer carrying BuiltMeta), writes it to
// the backend, and caches the resulting Handle — the path compaction's
// output builder uses to make a freshly written SST immediately readable
// without a manifest round trip (manifest persistence is a declared
// Non-goal, spec.md §1).
func (s *Store) Publish(ctx context.Context, id uint64, data []byte, meta BuiltMeta) (*Handle, error) {
	trailer := encodeTrailer(meta)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(trailer)))

	object := make([]byte, 0, len(data)+len(trailer)+4)
	object = append(object, data...)
	object = append(object, trailer...)
	object = append(object, lenBuf[:]...)

	if err := s.backend.PutObject(ctx, id, object); err != nil {
		return nil, fmt.Errorf("sstable: publish %d: %w", id, err)
	}

	h := &Handle{
		ID:          id,
		Smallest:    meta.Smallest,
		Largest:     meta.Largest,
		Blocks:      meta.Blocks,
		Compression: meta.Compression,
		data:        data,
	}
	if len(meta.BloomEncoded) > 0 {
		bf := new(bloomfilter.Filter)
		if err := bf.UnmarshalBinary(meta.BloomEncoded); err == nil {
			h.Bloom = bf
		}
	}
	s.cache.Add(id, h)
	return h, nil
}

// decodeHandle parses the trailer Publish appended after an SST's block
// data and reconstructs the immutable Handle.
func decodeHandle(id uint64, raw []byte) (*Handle, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("sstable: truncated object")
	}
	trailerLen := binary.BigEndian.Uint32(raw[len(raw)-4:])
	if int(trailerLen)+4 > len(raw) {
		return nil, fmt.Errorf("sstable: corrupt trailer length")
	}
	dataLen := len(raw) - 4 - int(trailerLen)
	data := raw[:dataLen]
	meta, err := decodeTrailer(raw[dataLen : len(raw)-4])
	if err != nil {
		return nil, err
	}
	h := &Handle{
		ID:          id,
		Smallest:    meta.Smallest,
		Largest:     meta.Largest,
		Blocks:      meta.Blocks,
		Compression: meta.Compression,
		data:        data,
	}
	if len(meta.BloomEncoded) > 0 {
		bf := new(bloomfilter.Filter)
		if err := bf.UnmarshalBinary(meta.BloomEncoded); err == nil {
			h.Bloom = bf
		}
	}
	return h, nil
}
