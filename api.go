package foreman

import (
	"unsafe"
)

// Typed component access. Strong typing is reintroduced at this boundary: the
// registry maps T to its ComponentID and the archetype maps the ID to a
// column, so the pointer handed back is always the row of the right type.

// Get returns a pointer to the entity's component of type T for reading.
// Writes through the returned pointer bypass change detection; use GetMut
// when the mutation should be visible to Changed filters.
func Get[T any](w *World, e Entity) (*T, error) {
	cid, err := RegisterComponent[T]()
	if err != nil {
		return nil, err
	}
	loc, ok := w.index.lookup(e)
	if !ok {
		return nil, EntityNotFoundError{Entity: e}
	}
	col := w.archetypes[loc.Archetype].column(cid)
	if col == nil {
		return nil, ComponentNotFoundError{Component: cid}
	}
	return (*T)(col.ptr(loc.Row)), nil
}

// GetMut returns a mutable pointer to the entity's component of type T and
// stamps the row's changed tick with the current world tick.
func GetMut[T any](w *World, e Entity) (*T, error) {
	cid, err := RegisterComponent[T]()
	if err != nil {
		return nil, err
	}
	loc, ok := w.index.lookup(e)
	if !ok {
		return nil, EntityNotFoundError{Entity: e}
	}
	col := w.archetypes[loc.Archetype].column(cid)
	if col == nil {
		return nil, ComponentNotFoundError{Component: cid}
	}
	return (*T)(col.ptrMut(loc.Row, w.tick)), nil
}

// Has reports whether the entity currently holds a component of type T.
func Has[T any](w *World, e Entity) bool {
	cid, err := RegisterComponent[T]()
	if err != nil {
		return false
	}
	return w.HasComponent(e, cid)
}

// Add attaches a component value of type T to the entity, migrating it to the
// matching archetype.
func Add[T any](w *World, e Entity, value T) error {
	return w.AddComponent(e, value)
}

// Remove detaches the component of type T from the entity.
func Remove[T any](w *World, e Entity) error {
	cid, err := RegisterComponent[T]()
	if err != nil {
		return err
	}
	return w.RemoveComponent(e, cid)
}

// columnSlice views a column's rows as a typed slice. Only valid until the
// next structural change of the archetype.
func columnSlice[T any](c *column) []T {
	if c.rows == 0 {
		return nil
	}
	return unsafe.Slice((*T)(c.base), c.rows)
}
