package foreman

import (
	"github.com/TheBitDrifter/mask"
)

type archetypeID uint32

// archetype groups the entities that share one component signature. Component
// data lives in one column per signature element; all columns and the entity
// roster stay row-parallel through every structural change.
type archetype struct {
	id       archetypeID
	mask     mask.Mask
	types    []ComponentID // sorted ascending
	columns  []*column
	slots    [MaxComponentTypes]int8 // ComponentID → column index, -1 if absent
	entities []Entity
}

func newArchetype(id archetypeID, signature mask.Mask, types []ComponentID, capacity int) (*archetype, error) {
	a := &archetype{
		id:       id,
		mask:     signature,
		types:    types,
		columns:  make([]*column, len(types)),
		entities: make([]Entity, 0, capacity),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	for i, cid := range types {
		t := registry.typeOf(cid)
		if t == nil {
			return nil, ArchetypeCreationError{Reason: "unregistered component type in signature"}
		}
		a.columns[i] = newColumn(t, capacity)
		a.slots[cid] = int8(i)
	}
	return a, nil
}

// Mask returns the archetype's signature mask.
func (a *archetype) Mask() mask.Mask {
	return a.mask
}

func (a *archetype) len() int {
	return len(a.entities)
}

func (a *archetype) column(id ComponentID) *column {
	slot := a.slots[id]
	if slot < 0 {
		return nil
	}
	return a.columns[slot]
}

func (a *archetype) contains(id ComponentID) bool {
	return a.slots[id] >= 0
}

// allocateRow grows the roster and every column by one zeroed row stamped
// with tick, returning the new row index. Callers write component data next.
func (a *archetype) allocateRow(e Entity, tick uint32) int {
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for _, c := range a.columns {
		c.push(tick)
	}
	return row
}

// removeRow swap-removes a row from the roster and every column. It returns
// the entity that was moved into the vacated slot so the caller can fix its
// directory entry, or ok=false when the removed row was the last one.
func (a *archetype) removeRow(row int) (Entity, bool) {
	last := len(a.entities) - 1
	a.entities[row] = a.entities[last]
	a.entities = a.entities[:last]
	for _, c := range a.columns {
		c.swapRemove(row)
	}
	if row < last {
		return a.entities[row], true
	}
	return Entity{}, false
}

// reserveRows pre-grows the roster and columns for n additional rows.
func (a *archetype) reserveRows(n int) {
	need := len(a.entities) + n
	if cap(a.entities) < need {
		grown := make([]Entity, len(a.entities), need)
		copy(grown, a.entities)
		a.entities = grown
	}
	for _, c := range a.columns {
		c.grow(need)
	}
}

// bytes reports the archetype's storage footprint for memory stats.
func (a *archetype) bytes() int {
	total := cap(a.entities) * 8
	for _, c := range a.columns {
		total += c.bytes()
	}
	return total
}
