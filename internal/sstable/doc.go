// Package sstable implements the SST store (C3): block encoding, the
// object backend, and the cache that turns an SST id into a Handle. The
// SST iterator (C4) lives in internal/iterator instead, which imports
// Handle's exported accessors (DecodeBlock, NumBlocks, ByteSize) — this
// package never imports internal/iterator, avoiding a cycle with C7's
// union, which holds a concrete SST-iterator slot.
//
// # Overview
//
// An SST (sorted string table) is an immutable file of sorted key-value
// entries, grouped into blocks with a shared index, bloom filter, and
// compression marker. Store is the async loader that turns an SST id into
// a shared, cached Handle, published once by a builder and
// read by any number of iterators afterward.
//
// # Architecture
//
//	Builder.Add (sorted input) --> Builder.Finish --> (object bytes, BuiltMeta)
//	                                                          │
//	                                                          ▼
//	                                              Store.Publish / Backend.PutObject
//	                                                          │
//	                                                          ▼
//	                                            LRU Handle cache  <-- Store.Load / Backend.GetObject
//	                                                          │
//	                                                          ▼
//	                                            Handle.DecodeBlock (read path, internal/iterator)
//
// Builder and Store never depend on a separate manifest service: the
// object itself is self-describing — compressed block bytes followed by a
// length-prefixed metadata trailer holding the block index, smallest/
// largest keys, and the encoded bloom filter — so a Handle can be fully
// reconstructed from one GetObject call.
//
// # Wire Format
//
// Each block stores its keys in full plus a restart table (one restart
// point every restart-interval entries, which bounds the linear scan an
// in-block seek performs) and is independently checksummed and compressed
// (CompressionNone, CompressionSnappy, or CompressionZstd); a corrupt or
// truncated block fails its own checksum without needing to decode
// neighboring blocks. The object trailer appended by Store.Publish is
// read once, by Store.Load, to populate BuiltMeta/Handle; DecodeBlock
// never re-reads the trailer.
//
// # Thread Safety
//
// A Store is shared by many concurrent callers and is safe for concurrent
// use: its cache is internally synchronized (hashicorp/golang-lru/v2's
// Cache is goroutine-safe) and Handles, once published, are immutable and
// may be read by any number of iterators simultaneously. Builder is the
// opposite: it is single-owner, accumulating one object's blocks before a
// single Finish call, and is never shared across goroutines.
//
// # Errors
//
// Store.Load and Store.Sstable return wrapped I/O or decode errors from the
// backend; block decode failures (checksum mismatch, corrupt framing)
// surface from Handle.DecodeBlock and permanently invalidate whatever
// iterator called it. Store.Load retries a failing Backend.GetObject with
// cenkalti/backoff/v4's exponential backoff before giving up; Store.Sstable
// never retries, since ErrNotCached is a routine "try Load instead" signal,
// not a transient fault.
//
// # Performance
//
// MayContain's bloom filter check reports that an SST cannot hold a user
// key without touching the block index. The SST iterator's seeks,
// SeekForCompaction included, never call it. The LRU cache sizes by handle count, not
// byte size — callers with widely varying SST sizes should size cacheSize
// with that in mind.
//
// # Testing
//
// block_test.go and builder_test.go exercise the block codec and builder
// directly, including the corrupted-checksum path; store_test.go uses an
// in-memory Backend (NewMemoryBackend) so the publish/load round trip and
// the cache-miss-falls-through-to-backend path run without a real object
// store.
//
// # Metrics
//
// Store increments Registry counters for cache hits/misses and bytes read
// on every Load call that carries a non-nil Registry; blocks-loaded is
// tracked per-iterator instead (internal/iterator's SSTIterator.local),
// since it is a read-path cost attributable to one iterator chain, not to
// the Store itself — matching the SST-level counters named in spec.md §6.
package sstable
