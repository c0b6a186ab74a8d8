package compaction

import "github.com/dreamware/hummock/internal/key"

// Filter is the compaction filter predicate of spec.md §4.7: given an
// entry's encoded key (whose Epoch() is the entry's version) and its
// value, it reports whether the entry survives into the output SSTs.
// Tombstones old enough to be safely dropped are the canonical use.
type Filter interface {
	Keep(k key.Encoded, v Value) bool
}

// Value is the filter-facing view of an entry: kind plus bytes, decoupled
// from sstable.ValueView so the filter contract does not depend on
// sstable's types (the driver converts at the call site where it already
// holds an sstable.ValueView).
type Value struct {
	IsDelete bool
	Bytes    []byte
}

// FilterFunc adapts a plain function to Filter.
type FilterFunc func(k key.Encoded, v Value) bool

func (f FilterFunc) Keep(k key.Encoded, v Value) bool { return f(k, v) }

// KeepAll is the identity filter: every entry survives, so the output keeps
// every version and tombstone of its inputs.
var KeepAll Filter = FilterFunc(func(key.Encoded, Value) bool { return true })
