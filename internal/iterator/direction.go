package iterator

import "github.com/dreamware/hummock/internal/key"

// Direction parameterizes every multi-child iterator type in this package
// (Concat, Merge, Union) at compile time, per spec.md §4.1: "Direction is
// a compile-time parameter... Mixing directions in one tree is forbidden;
// constructors enforce it structurally." Forward and Backward are the only
// implementations; a Go type parameter constrained to this interface, used
// as a zero-value receiver, makes mixing directions within one generic
// instantiation a compile error rather than a runtime check.
type Direction interface {
	// less reports whether a sorts strictly before b in this direction's
	// iteration order.
	less(a, b key.Encoded) bool
	// boundaryIsRight reports whether Concat.Seek should partition the run
	// by comparing the seek key against each SST's right (largest) key
	// rather than its left (smallest) key: true for Forward, false for
	// Backward, per spec.md §4.3's concrete algorithm ("right end for
	// forward, left end for backward") — the resolution of the open
	// question in spec.md §9, see SPEC_FULL.md §12.
	boundaryIsRight() bool
}

// Forward orders keys ascending under the versioned comparator (C1).
type Forward struct{}

func (Forward) less(a, b key.Encoded) bool { return key.Less(a, b) }
func (Forward) boundaryIsRight() bool      { return true }

// Backward orders keys descending under the versioned comparator.
type Backward struct{}

func (Backward) less(a, b key.Encoded) bool { return key.Less(b, a) }
func (Backward) boundaryIsRight() bool      { return false }
