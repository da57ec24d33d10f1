package prison_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/prison/pkg/prison"
)

/* -------------------------------------------------------------------------
   basic visit round-trip
   ------------------------------------------------------------------------- */

func Test_VisitRoundTrip(t *testing.T) {
	t.Parallel()

	a := prison.New[string]()

	k0, err := a.Insert("Hello, ")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), k0.Index())
	assert.Equal(t, uint32(0), k0.Generation())

	k1, err := a.Insert("World!")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), k1.Index())

	err = a.VisitMutIdx(1, func(v *string) error {
		*v = "Rust!!"
		return nil
	})
	require.NoError(t, err)

	var result string
	err = a.VisitRef(k0, func(av *string) error {
		return a.VisitRefIdx(1, func(bv *string) error {
			result = *av + *bv
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, Rust!!", result)
}

/* -------------------------------------------------------------------------
   reallocation blocked while guarded
   ------------------------------------------------------------------------- */

type myStruct struct{ N int }

func Test_ReallocationBlockedWhileGuarded(t *testing.T) {
	t.Parallel()

	a := prison.WithCapacity[myStruct](2)
	k0, err := a.Insert(myStruct{N: 1})
	require.NoError(t, err)
	_, err = a.Insert(myStruct{N: 2})
	require.NoError(t, err)

	g, err := a.GuardMut(k0)
	require.NoError(t, err)

	_, err = a.GuardMut(k0)
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindExclusiveAlreadyHeld}))

	_, err = a.GuardRefIdx(0)
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindExclusiveAlreadyHeld}))

	g.Release()

	err = a.VisitMut(k0, func(v *myStruct) error {
		_, insertErr := a.Insert(myStruct{N: 3})
		assert.True(t, errors.Is(insertErr, &prison.Error{Kind: prison.KindAnyReferenceOutstanding}))
		return nil
	})
	require.NoError(t, err)
}

/* -------------------------------------------------------------------------
   remove advances generation
   ------------------------------------------------------------------------- */

func Test_RemoveAdvancesGeneration(t *testing.T) {
	t.Parallel()

	a := prison.New[string]()

	k, err := a.Insert("a")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), k.Generation())

	v, err := a.Remove(k)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	assert.Equal(t, uint32(1), a.Stats().Generation)

	k2, err := a.Insert("b")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), k2.Index())
	assert.Equal(t, uint32(1), k2.Generation())

	assert.False(t, a.IsValidKey(k))
	_, err = a.CloneVal(k)
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindGenerationMismatch}))
}

/* -------------------------------------------------------------------------
   non-top free reuse does not leak
   ------------------------------------------------------------------------- */

func Test_NonTopFreeReuseDoesNotLeak(t *testing.T) {
	t.Parallel()

	a := prison.WithCapacity[int](4)
	keys := make([]prison.Key, 4)
	for i := 0; i < 4; i++ {
		k, err := a.InsertAt(uint32(i), i)
		require.NoError(t, err)
		keys[i] = k
	}

	_, err := a.Remove(keys[2])
	require.NoError(t, err)
	_, err = a.Remove(keys[0])
	require.NoError(t, err)

	assert.Equal(t, 2, a.Stats().FreeListLen)

	_, err = a.InsertAt(2, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Stats().FreeListLen)
}

/* -------------------------------------------------------------------------
   batched visit detects duplicates
   ------------------------------------------------------------------------- */

func Test_BatchedVisitDetectsDuplicates(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	for i := 0; i < 3; i++ {
		_, err := a.Insert(i)
		require.NoError(t, err)
	}

	statsBefore := a.Stats()

	err := a.VisitManyMutIdx([]uint32{0, 1, 0}, func(vs []*int) error {
		t.Fatal("callback must not run when the batch contains a duplicate")
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindDuplicateIndex}))
	if diff := cmp.Diff(statsBefore, a.Stats()); diff != "" {
		t.Errorf("stats changed after a rejected batch (-before +after):\n%s", diff)
	}
}

/* -------------------------------------------------------------------------
   clone bypasses refcount
   ------------------------------------------------------------------------- */

func Test_CloneBypassesRefcount(t *testing.T) {
	t.Parallel()

	a := prison.New[string]()
	k, err := a.Insert("foo")
	require.NoError(t, err)

	g, err := a.GuardMut(k)
	require.NoError(t, err)

	v, err := a.CloneVal(k)
	require.NoError(t, err)
	assert.Equal(t, "foo", v)

	g.Release()
}

/* -------------------------------------------------------------------------
   insert/remove round trip
   ------------------------------------------------------------------------- */

func Test_InsertRemoveRoundTrip(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k, err := a.Insert(99)
	require.NoError(t, err)

	v, err := a.Remove(k)
	require.NoError(t, err)
	assert.Equal(t, 99, v)
}

/* -------------------------------------------------------------------------
   clear idempotence
   ------------------------------------------------------------------------- */

func Test_ClearIsIdempotent(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	for i := 0; i < 5; i++ {
		_, err := a.Insert(i)
		require.NoError(t, err)
	}

	require.NoError(t, a.Clear())
	assert.Equal(t, 0, a.Len())

	require.NoError(t, a.Clear())
	assert.Equal(t, 0, a.Len())
}

/* -------------------------------------------------------------------------
   grow-under-references rejected, grow-without-references succeeds
   ------------------------------------------------------------------------- */

func Test_GrowGatedOnActiveRefs(t *testing.T) {
	t.Parallel()

	a := prison.WithCapacity[int](1)
	k, err := a.Insert(1)
	require.NoError(t, err)

	err = a.VisitRef(k, func(v *int) error {
		_, insertErr := a.Insert(2)
		assert.True(t, errors.Is(insertErr, &prison.Error{Kind: prison.KindAnyReferenceOutstanding}))
		return nil
	})
	require.NoError(t, err)

	_, err = a.Insert(2)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Len())
}

/* -------------------------------------------------------------------------
   Re-entrancy: structural mutation within a visit on an unreferenced slot
   ------------------------------------------------------------------------- */

func Test_Reentrancy_RemoveUnreferencedSlotDuringVisit(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k0, err := a.Insert(10)
	require.NoError(t, err)
	k1, err := a.Insert(20)
	require.NoError(t, err)

	err = a.VisitRef(k0, func(v *int) error {
		removed, rErr := a.Remove(k1)
		require.NoError(t, rErr)
		assert.Equal(t, 20, removed)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Len())
}

func Test_Reentrancy_VisitWithinVisit(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k0, err := a.Insert(1)
	require.NoError(t, err)
	k1, err := a.Insert(2)
	require.NoError(t, err)

	sum := 0
	err = a.VisitRef(k0, func(outer *int) error {
		return a.VisitRef(k1, func(inner *int) error {
			sum = *outer + *inner
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sum)
}

/* -------------------------------------------------------------------------
   Gate predicate errors
   ------------------------------------------------------------------------- */

func Test_VisitMut_RejectsWhileSharedOutstanding(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k, err := a.Insert(7)
	require.NoError(t, err)

	g, err := a.GuardRef(k)
	require.NoError(t, err)

	err = a.VisitMut(k, func(v *int) error { return nil })
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindSharedOutstanding}))

	g.Release()

	err = a.VisitMut(k, func(v *int) error { return nil })
	require.NoError(t, err)
}

func Test_Remove_RejectsWhileReferenced(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k, err := a.Insert(7)
	require.NoError(t, err)

	g, err := a.GuardRef(k)
	require.NoError(t, err)

	_, err = a.Remove(k)
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindExtantReferenceOnSlot}))

	g.Release()
	_, err = a.Remove(k)
	require.NoError(t, err)
}

func Test_ValidateKey_IndexOutOfRange(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	_, err := a.Remove(prison.Key{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, &prison.Error{Kind: prison.KindIndexOutOfRange}))
}

func Test_VisitMut_PanicStillReleases(t *testing.T) {
	t.Parallel()

	a := prison.New[int]()
	k, err := a.Insert(1)
	require.NoError(t, err)

	func() {
		defer func() { _ = recover() }()
		_ = a.VisitMut(k, func(v *int) error {
			panic("boom")
		})
	}()

	assert.Equal(t, int64(0), a.Stats().ActiveRefs)

	err = a.VisitMut(k, func(v *int) error { return nil })
	require.NoError(t, err)
}
