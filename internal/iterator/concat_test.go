package iterator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

func runOf(t *testing.T, handles ...*sstable.Handle) Run {
	t.Helper()
	run := Run{}
	for i, h := range handles {
		run.Handles = append(run.Handles, h)
		run.Descriptors = append(run.Descriptors, sstable.Descriptor{
			ID:       uint64(i),
			KeyRange: sstable.KeyRange{Left: h.Smallest, Right: h.Largest},
			FileSize: uint64(h.ByteSize()),
		})
	}
	return run
}

func drainConcat(t *testing.T, c *Concat[Forward]) []string {
	t.Helper()
	ctx := context.Background()
	var got []string
	for c.IsValid() {
		got = append(got, string(c.Key().UserKey()))
		require.NoError(t, c.Next(ctx))
	}
	return got
}

func TestConcatTwoSSTsVisitedInOrder(t *testing.T) {
	h1 := buildHandle([]string{"a", "b"}, 64)
	h2 := buildHandle([]string{"c", "d"}, 64)
	run := runOf(t, h1, h2)

	c := NewConcat[Forward](run, false)
	require.NoError(t, c.Rewind(context.Background()))
	require.Equal(t, []string{"a", "b", "c", "d"}, drainConcat(t, c))
}

func TestConcatSeekIntoHoleBetweenSSTsLandsOnNextSST(t *testing.T) {
	// "b" .. "c" hole: nothing covers user keys strictly between them, so
	// a seek that lands in the gap must resolve to the next SST's first
	// key (the named "seek into hole" scenario).
	h1 := buildHandle([]string{"a", "b"}, 64)
	h2 := buildHandle([]string{"e", "f"}, 64)
	run := runOf(t, h1, h2)

	c := NewConcat[Forward](run, false)
	require.NoError(t, c.Seek(context.Background(), key.Encode([]byte("c"), 0)))
	require.True(t, c.IsValid())
	require.Equal(t, "e", string(c.Key().UserKey()))
}

func TestConcatTwoSSTSeekFromMidFirstSSTCrossesIntoSecond(t *testing.T) {
	h1 := buildHandle([]string{"k001", "k002", "k003"}, 64)
	h2 := buildHandle([]string{"k004", "k005"}, 64)
	run := runOf(t, h1, h2)

	c := NewConcat[Forward](run, false)
	// Max epoch sentinel: since epoch sorts descending, this guarantees
	// the seek lands at or before every stored version of "k003", so the
	// real k003@3 entry (which has a lower, non-max epoch) compares as
	// "greater than" the target and is included.
	require.NoError(t, c.Seek(context.Background(), key.Encode([]byte("k003"), ^uint64(0))))
	require.Equal(t, []string{"k003", "k004", "k005"}, drainConcat(t, c))
}

func TestConcatSeekPastLastSSTExhausts(t *testing.T) {
	h1 := buildHandle([]string{"a", "b"}, 64)
	run := runOf(t, h1)

	c := NewConcat[Forward](run, false)
	require.NoError(t, c.Seek(context.Background(), key.Encode([]byte("z"), 0)))
	require.False(t, c.IsValid())
}

func TestConcatSkipsEmptySSTInRun(t *testing.T) {
	h1 := buildHandle([]string{"a"}, 64)
	empty := buildHandle(nil, 64)
	h2 := buildHandle([]string{"b"}, 64)
	run := runOf(t, h1, empty, h2)

	c := NewConcat[Forward](run, false)
	require.NoError(t, c.Rewind(context.Background()))
	require.Equal(t, []string{"a", "b"}, drainConcat(t, c))
}

func TestConcatBackwardVisitsReversed(t *testing.T) {
	h1 := buildHandle([]string{"a", "b"}, 64)
	h2 := buildHandle([]string{"c", "d"}, 64)
	// A backward run lists its SSTs in descending key order.
	run := runOf(t, h2, h1)

	c := NewConcat[Backward](run, false)
	ctx := context.Background()
	require.NoError(t, c.Rewind(ctx))
	var got []string
	for c.IsValid() {
		got = append(got, string(c.Key().UserKey()))
		require.NoError(t, c.Next(ctx))
	}
	require.Equal(t, []string{"d", "c", "b", "a"}, got)
}

func TestConcatCollectLocalStatisticDrainsCurrentAndPastChildren(t *testing.T) {
	h1 := buildHandle([]string{"a"}, 1)
	h2 := buildHandle([]string{"b"}, 1)
	run := runOf(t, h1, h2)

	c := NewConcat[Forward](run, false)
	ctx := context.Background()
	require.NoError(t, c.Rewind(ctx))
	require.NoError(t, c.Next(ctx)) // crosses into the second SST

	var sink stats.Sink
	c.CollectLocalStatistic(&sink)
	snap := sink.Snapshot()
	require.GreaterOrEqual(t, snap.BlocksLoaded, uint64(2))
}
