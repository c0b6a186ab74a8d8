package iterator

import (
	"context"
	"errors"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// State is the iterator state machine named in spec.md §3: Uninitialized,
// Valid, Exhausted, AwaitingIo.
type State uint8

const (
	Uninitialized State = iota
	Valid
	Exhausted
	AwaitingIo
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Valid:
		return "valid"
	case Exhausted:
		return "exhausted"
	case AwaitingIo:
		return "awaiting_io"
	default:
		return "unknown"
	}
}

// PollResult is the outcome of PollNext: either the step completed
// (PollReady, iterator is Valid or Exhausted) or I/O is required
// (PollPending, iterator is AwaitingIo and AwaitNext must be called next).
type PollResult uint8

const (
	PollReady PollResult = iota
	PollPending
)

// ErrInvalidState is a contract violation per spec.md §3 invariant 1: a
// caller invoked PollNext while the iterator was not Valid (or while a
// Merge still awaits a child), or invoked AwaitNext without a preceding
// PollPending. Key and Value return no error and must not be called on
// an iterator that is not Valid. These are
// programmer errors, not I/O failures — callers should treat them as
// panics-in-waiting during development, but this module returns them as
// errors so tests can assert on the contract without crashing the process.
var ErrInvalidState = errors.New("iterator: invalid state for operation")

// Iterator is the outward-facing protocol every concrete iterator type in
// this package implements: C9 from spec.md §4.1. It is used as an
// interface only at the root of a tree (what a caller — a scan or the
// compaction driver — holds); children inside a Merge are held as
// concrete Union values, never as this interface, to keep the hot loop
// free of dynamic dispatch (spec.md §9).
type Iterator interface {
	// Rewind positions the iterator at its first element.
	Rewind(ctx context.Context) error
	// Seek positions at the smallest key >= target (forward) or largest
	// key <= target (backward).
	Seek(ctx context.Context, target key.Encoded) error
	// PollNext attempts to advance without performing I/O. A PollPending
	// result promotes the iterator to AwaitingIo; exactly one AwaitNext
	// must follow before any other call.
	PollNext(ctx context.Context) (PollResult, error)
	// AwaitNext completes the I/O a PollPending PollNext started.
	AwaitNext(ctx context.Context) error
	// Next advances one step, awaiting internally if PollNext returns
	// PollPending.
	Next(ctx context.Context) error
	// Key returns the current key. Valid only when IsValid is true.
	Key() key.Encoded
	// Value returns the current value view. Valid only when IsValid is true.
	Value() sstable.ValueView
	// IsValid reports whether the iterator is positioned on an element.
	IsValid() bool
	// CollectLocalStatistic drains this iterator's accumulated counters
	// into sink.
	CollectLocalStatistic(sink *stats.Sink)
	// Close releases resources. Dropping the root iterator aborts all
	// pending awaits (spec.md §5); Close never performs I/O.
	Close() error
}

// next is the shared Next() convenience every concrete type composes from
// its own PollNext/AwaitNext: if PollNext is pending, await it; otherwise
// the step already completed.
func next(ctx context.Context, poll func(context.Context) (PollResult, error), await func(context.Context) error) error {
	res, err := poll(ctx)
	if err != nil {
		return err
	}
	if res == PollPending {
		return await(ctx)
	}
	return nil
}
