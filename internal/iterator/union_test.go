package iterator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnionOfSSTDispatchesToConcreteSST(t *testing.T) {
	h := buildHandle([]string{"a", "b"}, 64)
	u := UnionOfSST[Forward](NewSSTIterator[Forward](h, false))
	ctx := context.Background()

	require.NoError(t, u.Rewind(ctx))
	require.True(t, u.IsValid())
	require.Equal(t, "a", string(u.Key().UserKey()))
	require.NoError(t, u.Next(ctx))
	require.Equal(t, "b", string(u.Key().UserKey()))
	require.NoError(t, u.Close())
}

func TestUnionOfConcatDispatchesToConcreteConcat(t *testing.T) {
	h1 := buildHandle([]string{"a"}, 64)
	h2 := buildHandle([]string{"b"}, 64)
	run := runOf(t, h1, h2)
	u := UnionOfConcat[Forward](NewConcat[Forward](run, false))
	ctx := context.Background()

	require.NoError(t, u.Rewind(ctx))
	require.True(t, u.IsValid())
	require.Equal(t, "a", string(u.Key().UserKey()))
}

func TestUnionOfMergeDispatchesToConcreteMerge(t *testing.T) {
	h1 := buildHandle([]string{"a"}, 64)
	inner := NewMerge[Forward]([]*Union[Forward]{sstUnion(t, h1)}, true)
	u := UnionOfMerge[Forward](inner)
	ctx := context.Background()

	require.NoError(t, u.Rewind(ctx))
	require.True(t, u.IsValid())
	require.Equal(t, "a", string(u.Key().UserKey()))
}

func TestUnionUnreachableSlotPanicsOnKeyAndValue(t *testing.T) {
	u := &Union[Forward]{tag: unionSlot4}
	require.Panics(t, func() { u.Key() })
	require.Panics(t, func() { u.Value() })
	require.False(t, u.IsValid())

	_, err := u.PollNext(context.Background())
	require.Error(t, err)
	require.Error(t, u.AwaitNext(context.Background()))
	require.Error(t, u.Rewind(context.Background()))
	require.NoError(t, u.Close())
}
