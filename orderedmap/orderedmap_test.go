package orderedmap_test

import (
	"fmt"
	"testing"

	"github.com/pb33f/assetforge/orderedmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedMap(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		m := orderedmap.New[string, int]()
		assert.Equal(t, m.Len(), 0)
		assert.Nil(t, m.First())
	})

	t.Run("First()", func(t *testing.T) {
		const mapSize = 100
		m := orderedmap.New[string, int]()
		for i := 0; i < mapSize; i++ {
			m.Set(fmt.Sprintf("foobar_%d", i), i)
		}
		assert.Equal(t, m.Len(), mapSize)

		var i int
		for pair := m.First(); pair != nil; pair = pair.Next() {
			assert.Equal(t, fmt.Sprintf("foobar_%d", i), pair.Key())
			assert.Equal(t, i, pair.Value())
			i++
			require.LessOrEqual(t, i, mapSize)
		}
		assert.Equal(t, mapSize, i)
	})

	t.Run("GetOrZero()", func(t *testing.T) {
		m := orderedmap.New[string, int]()
		m.Set("key", 1000)
		assert.Equal(t, 1000, m.GetOrZero("key"))
		assert.Equal(t, 0, m.GetOrZero("bogus"))
	})

	t.Run("FromPairs()", func(t *testing.T) {
		m := orderedmap.FromPairs(
			orderedmap.NewPair("a", 1),
			orderedmap.NewPair("b", 2),
		)
		assert.Equal(t, 2, m.Len())
		assert.Equal(t, "a", m.First().Key())
	})
}

func TestOrderedSet(t *testing.T) {
	t.Run("InsertionOrderPreserved", func(t *testing.T) {
		s := orderedmap.NewSet[string]()
		assert.True(t, s.TryInsertAtEnd("c"))
		assert.True(t, s.TryInsertAtEnd("a"))
		assert.True(t, s.TryInsertAtEnd("b"))
		assert.Equal(t, []string{"c", "a", "b"}, s.Items())
	})

	t.Run("DuplicatesRejected", func(t *testing.T) {
		s := orderedmap.NewSet[int]()
		assert.True(t, s.TryInsertAtEnd(1))
		assert.False(t, s.TryInsertAtEnd(1))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("InsertAtIndex", func(t *testing.T) {
		s := orderedmap.SetFromSlice([]int{1, 3})
		assert.True(t, s.TryInsertAt(1, 2))
		assert.Equal(t, []int{1, 2, 3}, s.Items())
		assert.False(t, s.TryInsertAt(0, 2))
		assert.False(t, s.TryInsertAt(9, 4))
	})

	t.Run("Remove", func(t *testing.T) {
		s := orderedmap.SetFromSlice([]int{1, 2, 3})
		assert.True(t, s.Remove(2))
		assert.False(t, s.Remove(2))
		assert.Equal(t, []int{1, 3}, s.Items())
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		s := orderedmap.SetFromSlice([]int{1, 2})
		clone := s.Clone()
		clone.Remove(1)
		assert.Equal(t, []int{1, 2}, s.Items())
		assert.Equal(t, []int{2}, clone.Items())
		assert.False(t, s.Equal(clone))
		assert.True(t, s.Equal(s.Clone()))
	})
}
