package iterator

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dreamware/hummock/internal/key"
	"github.com/dreamware/hummock/internal/sstable"
	"github.com/dreamware/hummock/internal/stats"
)

// genHandle builds a handle from a small set of distinct user keys, each
// given a distinct ascending epoch so every entry is a unique encoded key.
func genHandle(t *rapid.T, label string) (*sstable.Handle, []string) {
	n := rapid.IntRange(0, 6).Draw(t, label+"_n")
	keys := make([]string, 0, n)
	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		uk := rapid.StringMatching(`[a-f]`).Draw(t, label+"_key")
		if seen[uk] {
			continue
		}
		seen[uk] = true
		keys = append(keys, uk)
	}
	sort.Strings(keys)
	return buildHandle(keys, 32), keys
}

// TestMergeUnorderedPropertyCompletenessAndOrder verifies the unordered
// merge's contract: every entry from every child is observed
// exactly once (completeness) and output never goes strictly backward
// under the direction's order (order).
func TestMergeUnorderedPropertyCompletenessAndOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numChildren := rapid.IntRange(0, 4).Draw(rt, "num_children")
		var unions []*Union[Forward]
		total := 0
		for i := 0; i < numChildren; i++ {
			h, keys := genHandle(rt, "child")
			total += len(keys)
			unions = append(unions, UnionOfSST[Forward](NewSSTIterator[Forward](h, false)))
		}

		m := NewMerge[Forward](unions, false)
		ctx := context.Background()
		require.NoError(t, m.Rewind(ctx))

		var out []key.Encoded
		for m.IsValid() {
			out = append(out, append(key.Encoded(nil), m.Key()...))
			require.NoError(t, m.Next(ctx))
		}

		require.Len(t, out, total, "unordered merge must emit exactly one output per input entry")
		for i := 1; i < len(out); i++ {
			require.False(t, key.Less(out[i], out[i-1]), "merge output must never regress under the direction's order")
		}
	})
}

// TestMergeOrderedPropertyDedupsExactDuplicateEncodedKeys checks that when
// two children share an identical encoded key, ordered mode collapses it
// to a single output, and the resulting stream is strictly increasing
// (no duplicate survives).
func TestMergeOrderedPropertyDedupsExactDuplicateEncodedKeys(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[a-d]`), func(s string) string { return s }).Draw(rt, "keys")
		sort.Strings(keys)
		if len(keys) == 0 {
			return
		}

		h1 := buildHandle(keys, 32)
		h2 := buildHandle(keys, 32) // identical keys and epochs: full overlap

		m := NewMerge[Forward]([]*Union[Forward]{
			UnionOfSST[Forward](NewSSTIterator[Forward](h1, false)),
			UnionOfSST[Forward](NewSSTIterator[Forward](h2, false)),
		}, true)
		ctx := context.Background()
		require.NoError(t, m.Rewind(ctx))

		var out []string
		for m.IsValid() {
			out = append(out, string(m.Key().UserKey()))
			require.NoError(t, m.Next(ctx))
		}

		require.Equal(t, keys, out, "fully overlapping children must dedup to exactly the shared key set")
	})
}

// TestMergeSeekContractPositionsAtOrAfterTarget checks Seek's contract: the
// resulting position, if valid, is never strictly before the seek target.
func TestMergeSeekContractPositionsAtOrAfterTarget(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h, keys := genHandle(rt, "run")
		if len(keys) == 0 {
			return
		}
		targetIdx := rapid.IntRange(0, len(keys)-1).Draw(rt, "target_idx")
		target := key.Encode([]byte(keys[targetIdx]), ^uint64(0))

		m := NewMerge[Forward]([]*Union[Forward]{UnionOfSST[Forward](NewSSTIterator[Forward](h, false))}, true)
		ctx := context.Background()
		require.NoError(t, m.Seek(ctx, target))

		if m.IsValid() {
			require.False(t, key.Less(m.Key(), target), "seek must never land strictly before the target")
		}
	})
}

// TestSSTIteratorPollAwaitAlternationNeverSkipsAwait checks the two-phase
// protocol invariant directly on an SST iterator: a PollPending result
// always promotes to AwaitingIo, and AwaitNext always returns the iterator
// to Valid or Exhausted, never leaving it stuck AwaitingIo.
func TestSSTIteratorPollAwaitAlternationNeverSkipsAwait(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h, keys := genHandle(rt, "run")
		if len(keys) < 2 {
			return
		}
		// Force a block boundary on every entry so PollNext reliably
		// returns PollPending at least once during the scan.
		h = buildHandle(keys, 1)

		it := NewSSTIterator[Forward](h, false)
		ctx := context.Background()
		require.NoError(t, it.Rewind(ctx))

		sawPending := false
		for it.IsValid() {
			res, err := it.PollNext(ctx)
			require.NoError(t, err)
			if res == PollPending {
				sawPending = true
				require.Equal(t, AwaitingIo, it.state)
				require.NoError(t, it.AwaitNext(ctx))
				require.Contains(t, []State{Valid, Exhausted}, it.state)
			}
		}
		require.True(t, sawPending, "single-entry blocks should force at least one pending/await alternation")
	})
}

// TestMergeStatisticsAdditivityProperty checks that the statistics the root
// merge reports after a full drain equal the sum of what each child would
// report draining the same blocks on its own: CollectLocalStatistic must
// forward, never inflate or drop, a child's counters.
func TestMergeStatisticsAdditivityProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numChildren := rapid.IntRange(1, 4).Draw(rt, "num_children")
		var handles []*sstable.Handle
		for i := 0; i < numChildren; i++ {
			h, keys := genHandle(rt, "child")
			if len(keys) == 0 {
				return
			}
			handles = append(handles, h)
		}

		ctx := context.Background()

		var wantSink stats.Sink
		for _, h := range handles {
			solo := NewSSTIterator[Forward](h, false)
			require.NoError(t, solo.Rewind(ctx))
			for solo.IsValid() {
				require.NoError(t, solo.Next(ctx))
			}
			solo.CollectLocalStatistic(&wantSink)
		}
		want := wantSink.Snapshot()

		var unions []*Union[Forward]
		for _, h := range handles {
			unions = append(unions, UnionOfSST[Forward](NewSSTIterator[Forward](h, false)))
		}
		m := NewMerge[Forward](unions, false)
		require.NoError(t, m.Rewind(ctx))
		for m.IsValid() {
			require.NoError(t, m.Next(ctx))
		}

		var gotSink stats.Sink
		m.CollectLocalStatistic(&gotSink)
		got := gotSink.Snapshot()

		require.Equal(t, want.BlocksLoaded, got.BlocksLoaded, "blocks loaded must be additive across children")
		require.Equal(t, want, got, "the full counter set reported at the root must equal the sum over children")
	})
}
