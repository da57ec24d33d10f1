package prison_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/prison/pkg/prison"
)

func Test_GuardRef_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k, err := a.Insert(5)
	require.NoError(t, err)

	g, err := a.GuardRef(k)
	require.NoError(t, err)
	assert.Equal(t, 5, *g.Val())

	g.Release()
	g.Release() // must not panic or double-decrement activeRefs

	assert.Equal(t, int64(0), a.Stats().ActiveRefs)
}

func Test_GuardMut_MutatesThroughValPointer(t *testing.T) {
	t.Parallel()

	a := prison.New[string]()
	k, err := a.Insert("before")
	require.NoError(t, err)

	g, err := a.GuardMut(k)
	require.NoError(t, err)
	*g.Val() = "after"
	g.Release()

	v, err := a.CloneVal(k)
	require.NoError(t, err)
	assert.Equal(t, "after", v)
}

func Test_GuardManyRefIdx_AcquiresAllOrNone(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	for i := 0; i < 3; i++ {
		_, err := a.Insert(i * 10)
		require.NoError(t, err)
	}

	mg, err := a.GuardManyMutIdx([]uint32{1})
	require.NoError(t, err)

	_, err = a.GuardManyRefIdx([]uint32{0, 1, 2})
	require.Error(t, err)
	assert.Equal(t, int64(1), a.Stats().ActiveRefs)

	mg.Release()

	g, err := a.GuardManyRefIdx([]uint32{0, 1, 2})
	require.NoError(t, err)
	vals := g.Vals()
	assert.Equal(t, []int{0, 10, 20}, []int{*vals[0], *vals[1], *vals[2]})
	g.Release()
}

func Test_GuardManyMutIdx_RejectsDuplicateBeforeAcquiring(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	for i := 0; i < 2; i++ {
		_, err := a.Insert(i)
		require.NoError(t, err)
	}

	_, err := a.GuardManyMutIdx([]uint32{0, 0})
	require.Error(t, err)
	assert.Equal(t, int64(0), a.Stats().ActiveRefs)
}
