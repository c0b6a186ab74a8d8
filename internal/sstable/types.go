package sstable

import "github.com/dreamware/hummock/internal/key"

// ValueKind tags a ValueView as a put or a tombstone.
type ValueKind uint8

const (
	// Put indicates the entry carries a value.
	Put ValueKind = iota
	// Delete indicates the entry is a tombstone; its Bytes are empty.
	Delete
)

// ValueView is the tagged view {Put(bytes) | Delete} named in spec.md §3.
// It is borrowed from the underlying block and is valid only until the
// owning iterator advances.
type ValueView struct {
	Kind  ValueKind
	Bytes []byte
}

// IsDelete reports whether v is a tombstone.
func (v ValueView) IsDelete() bool { return v.Kind == Delete }

// CachePolicy selects how an SST Handle fetched via Store.Load interacts
// with the Store's handle cache, per spec.md §6.
type CachePolicy uint8

const (
	// FillFileCache populates the cache on read (the default).
	FillFileCache CachePolicy = iota
	// Fill is an alias of FillFileCache kept for parity with spec.md's
	// enumeration ({Fill | NotFill | FillFileCache}); both populate the
	// cache in this implementation, which has a single cache tier.
	Fill
	// NotFill reads through without populating the cache.
	NotFill
)

// ReadOptions is the external, wire-relevant options struct named in
// spec.md §6: {prefetch, cache_policy}. Store.Load records Prefetch in its
// debug log and does not otherwise act on it; choosing between Store.Load
// and the cache-only Store.Sstable is left to the caller.
type ReadOptions struct {
	Prefetch    bool
	CachePolicy CachePolicy
}

// KeyRange describes an SST's key boundaries, with Inf marking an open
// (unbounded) side. Used by Descriptor for run construction (spec.md §6)
// and by the concat iterator's seek partitioning, which treats an Inf
// boundary as always-matching.
type KeyRange struct {
	Left  key.Encoded
	Right key.Encoded
	Inf   bool
}

// Descriptor is the SST descriptor used to build runs, per spec.md §6:
// {id, key_range, file_size, table_ids}.
type Descriptor struct {
	ID       uint64
	KeyRange KeyRange
	FileSize uint64
	TableIDs []uint32
}
