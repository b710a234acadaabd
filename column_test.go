package foreman

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnPushStampsTicks(t *testing.T) {
	c := newColumn(reflect.TypeFor[Position](), 4)

	row := c.push(5)
	assert.Equal(t, 0, row)
	added, ok := c.addedTick(row)
	require.True(t, ok)
	changed, ok := c.changedTick(row)
	require.True(t, ok)
	assert.Equal(t, uint32(5), added)
	assert.Equal(t, uint32(5), changed)
}

func TestColumnMutStampsChanged(t *testing.T) {
	c := newColumn(reflect.TypeFor[Position](), 4)
	row := c.push(1)

	p := (*Position)(c.ptrMut(row, 9))
	p.X = 2.5

	changed, _ := c.changedTick(row)
	added, _ := c.addedTick(row)
	assert.Equal(t, uint32(9), changed)
	assert.Equal(t, uint32(1), added, "mutation must not touch the added tick")
	assert.LessOrEqual(t, added, changed)
}

func TestColumnSwapRemoveKeepsRowsParallel(t *testing.T) {
	c := newColumn(reflect.TypeFor[Health](), 4)

	for i := 0; i < 3; i++ {
		row := c.push(uint32(i + 1))
		c.setValue(row, reflect.ValueOf(Health{Current: i, Max: 100}))
	}

	// Remove the first row: the last row's data and stamps move into slot 0.
	c.swapRemove(0)
	require.Equal(t, 2, c.len())

	moved := (*Health)(c.ptr(0))
	assert.Equal(t, 2, moved.Current)
	added, _ := c.addedTick(0)
	assert.Equal(t, uint32(3), added)

	// Removing the final row needs no swap.
	c.swapRemove(1)
	c.swapRemove(0)
	assert.Equal(t, 0, c.len())
}

func TestColumnOutOfBounds(t *testing.T) {
	c := newColumn(reflect.TypeFor[Position](), 2)
	c.push(1)

	assert.Nil(t, c.ptr(5))
	assert.Nil(t, c.ptr(-1))
	_, ok := c.addedTick(5)
	assert.False(t, ok)
	_, ok = c.changedTick(5)
	assert.False(t, ok)
}

func TestColumnGrowPreservesData(t *testing.T) {
	c := newColumn(reflect.TypeFor[Position](), 2)
	for i := 0; i < 20; i++ {
		row := c.push(1)
		c.setValue(row, reflect.ValueOf(Position{X: float64(i)}))
	}
	for i := 0; i < 20; i++ {
		p := (*Position)(c.ptr(i))
		assert.Equal(t, float64(i), p.X)
	}
}

func TestColumnPointerComponentsStayReachable(t *testing.T) {
	type Holder struct {
		Data *int
	}
	c := newColumn(reflect.TypeFor[Holder](), 2)
	v := 42
	row := c.push(1)
	c.setValue(row, reflect.ValueOf(Holder{Data: &v}))

	h := (*Holder)(c.ptr(row))
	require.NotNil(t, h.Data)
	assert.Equal(t, 42, *h.Data)

	// The vacated slot is zeroed on removal so the pointer is released.
	c.swapRemove(row)
	assert.Equal(t, 0, c.len())
}

func TestArchetypeRowsStayParallel(t *testing.T) {
	posID := MustComponentID[Position]()
	velID := MustComponentID[Velocity]()
	sig := singleMask(posID)
	sig.Mark(uint32(velID))

	ids := []ComponentID{posID, velID}
	if velID < posID {
		ids = []ComponentID{velID, posID}
	}
	a, err := newArchetype(1, sig, ids, 4)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		e := Entity{ID: uint32(i), Version: 1}
		row := a.allocateRow(e, 1)
		assert.Equal(t, i, row)
	}
	require.Equal(t, 4, a.len())
	for _, c := range a.columns {
		assert.Equal(t, a.len(), c.len())
	}

	swapped, ok := a.removeRow(1)
	require.True(t, ok)
	assert.Equal(t, uint32(3), swapped.ID)
	for _, c := range a.columns {
		assert.Equal(t, a.len(), c.len())
	}

	// Removing the last row reports no swap.
	_, ok = a.removeRow(a.len() - 1)
	assert.False(t, ok)
}
