package wisptable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intHash(k int) uint64 { return uint64(k) * 2654435761 }
func intEq(a, b int) bool  { return a == b }

func TestTableSetGetDelete(t *testing.T) {
	tab := New[int, string](intHash, intEq)

	inserted := tab.Set(1, "a")
	assert.True(t, inserted)
	inserted = tab.Set(1, "b")
	assert.False(t, inserted, "overwrite should not report a new insert")

	v, ok := tab.Get(1)
	require.True(t, ok)
	assert.Equal(t, "b", v)

	assert.True(t, tab.Delete(1))
	_, ok = tab.Get(1)
	assert.False(t, ok)
	assert.False(t, tab.Delete(1), "deleting twice reports no-op")
}

func TestTableInsertionOrderSurvivesDeletes(t *testing.T) {
	tab := New[int, int](intHash, intEq)
	for i := 0; i < 10; i++ {
		tab.Set(i, i*i)
	}
	tab.Delete(3)
	tab.Delete(7)

	var order []int
	it := tab.NewIterator()
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		order = append(order, k)
	}
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 8, 9}, order)
}

func TestTableIteratorDetectsModification(t *testing.T) {
	tab := New[int, int](intHash, intEq)
	tab.Set(1, 1)
	tab.Set(2, 2)

	it := tab.NewIterator()
	_, _, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	tab.Set(3, 3)

	_, _, _, err = it.Next()
	assert.ErrorIs(t, err, ErrModified)
}

func TestTableGrowsAndReclaimsTombstones(t *testing.T) {
	tab := New[int, int](intHash, intEq)
	for i := 0; i < 100; i++ {
		tab.Set(i, i)
	}
	assert.Equal(t, 100, tab.Len())

	for i := 0; i < 50; i++ {
		tab.Delete(i)
	}
	assert.Equal(t, 50, tab.Len())

	for i := 100; i < 150; i++ {
		tab.Set(i, i)
	}
	for i := 50; i < 150; i++ {
		v, ok := tab.Get(i)
		require.True(t, ok, "key %d should be present", i)
		assert.Equal(t, i, v)
	}
	for i := 0; i < 50; i++ {
		_, ok := tab.Get(i)
		assert.False(t, ok, "key %d should have been deleted", i)
	}
}
