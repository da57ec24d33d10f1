package prison_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/prison/pkg/prison"
)

func Test_Cell_SetTakeRoundTrip(t *testing.T) {
	t.Parallel()

	c := prison.NewCell[string]()
	assert.False(t, c.IsOccupied())

	require.NoError(t, c.Set("hello"))
	assert.True(t, c.IsOccupied())

	v, err := c.Take()
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
	assert.False(t, c.IsOccupied())
}

func Test_Cell_VisitMutExcludesGuardRef(t *testing.T) {
	t.Parallel()

	c := prison.NewCellWithValue(10)

	err := c.VisitMut(func(v *int) error {
		_, refErr := c.GuardRef()
		assert.Error(t, refErr)
		*v = 20
		return nil
	})
	require.NoError(t, err)

	v, err := c.CloneVal()
	require.NoError(t, err)
	assert.Equal(t, 20, v)
}

func Test_Cell_GuardRefAllowsConcurrentShared(t *testing.T) {
	t.Parallel()

	c := prison.NewCellWithValue("x")

	g1, err := c.GuardRef()
	require.NoError(t, err)
	g2, err := c.GuardRef()
	require.NoError(t, err)

	assert.Equal(t, "x", *g1.Val())
	assert.Equal(t, "x", *g2.Val())

	g1.Release()
	g2.Release()

	assert.True(t, c.IsUnreferenced())
}

func Test_Cell_TakeRejectsWhenReferenced(t *testing.T) {
	t.Parallel()

	c := prison.NewCellWithValue(1)
	g, err := c.GuardRef()
	require.NoError(t, err)

	_, err = c.Take()
	require.Error(t, err)

	g.Release()
	_, err = c.Take()
	require.NoError(t, err)
}
