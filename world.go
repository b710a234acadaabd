package foreman

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/TheBitDrifter/mask"
	"github.com/rs/zerolog"
)

// transitionKey caches archetype edges so repeated add/remove of the same
// component on the same source archetype resolves in O(1).
type transitionKey struct {
	src archetypeID
	cid ComponentID
	add bool
}

// World owns the archetypes, the entity directory, and the frame tick. All
// structural edits and component access go through it.
type World struct {
	index       *entityIndex
	archetypes  []*archetype
	bySignature map[mask.Mask]archetypeID
	transitions map[transitionKey]archetypeID
	tick        uint32
	locks       int
	hooks       lifecycleHooks
	log         zerolog.Logger
}

// NewWorld creates an empty world whose archetype 0 holds entities with no
// components. The tick starts at 1 so freshly spawned rows register as added
// on the first change-filtered iteration.
func NewWorld() *World {
	w := &World{
		index:       newEntityIndex(Config.InitialEntityCapacity, Config.MaxEntities),
		archetypes:  make([]*archetype, 0, 32),
		bySignature: make(map[mask.Mask]archetypeID, 32),
		transitions: make(map[transitionKey]archetypeID, 128),
		tick:        1,
		log:         Config.Logger(),
	}
	if _, err := w.getOrCreateArchetype(mask.Mask{}, nil); err != nil {
		// The empty archetype has no columns to allocate; this cannot fail.
		panic(err)
	}
	return w
}

// Tick returns the current frame counter.
func (w *World) Tick() uint32 {
	return w.tick
}

// IncrementTick advances the frame counter. The executor calls this exactly
// once per frame, before the first stage. Stamps are not rewritten on 32-bit
// wrap-around: a query whose last run predates the wrap matches nothing on
// its next filtered iteration, and after that rows whose stamps predate the
// wrap compare above the query's last-run tick and keep matching Added and
// Changed until the counter climbs past them again.
func (w *World) IncrementTick() {
	w.tick++
}

// EntityCount returns the number of live entities.
func (w *World) EntityCount() int {
	return w.index.count()
}

// ArchetypeCount returns the number of archetypes, including the empty one.
func (w *World) ArchetypeCount() int {
	return len(w.archetypes)
}

// Locked reports whether a query iteration currently forbids structural edits.
func (w *World) Locked() bool {
	return w.locks > 0
}

func (w *World) addLock() {
	w.locks++
}

func (w *World) popLock() {
	if w.locks > 0 {
		w.locks--
	}
}

// Spawn creates an entity holding the given component values. The archetype
// is derived from the value types; passing two values of the same type fails.
func (w *World) Spawn(components ...any) (Entity, error) {
	if w.Locked() {
		return Entity{}, LockedWorldError{}
	}
	ids, values, sig, err := w.resolveBundle(components)
	if err != nil {
		return Entity{}, err
	}
	arch, err := w.getOrCreateArchetype(sig, ids)
	if err != nil {
		return Entity{}, err
	}
	e, err := w.index.allocate()
	if err != nil {
		return Entity{}, err
	}
	row := arch.allocateRow(e, w.tick)
	for i, cid := range ids {
		arch.column(cid).setValue(row, values[i])
	}
	if err := w.index.updateLocation(e, EntityLocation{Archetype: arch.id, Row: row}); err != nil {
		return Entity{}, err
	}
	w.hooks.emitSpawned(e)
	return e, nil
}

// SpawnBatch creates n entities sharing one component bundle shape. The
// archetype is resolved once and rows are reserved up front, so the cost is
// O(n) in the batch size.
func (w *World) SpawnBatch(n int, components ...any) ([]Entity, error) {
	if w.Locked() {
		return nil, LockedWorldError{}
	}
	if n <= 0 {
		return nil, nil
	}
	ids, values, sig, err := w.resolveBundle(components)
	if err != nil {
		return nil, err
	}
	arch, err := w.getOrCreateArchetype(sig, ids)
	if err != nil {
		return nil, err
	}
	arch.reserveRows(n)
	entities := make([]Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := w.index.allocate()
		if err != nil {
			return entities, err
		}
		row := arch.allocateRow(e, w.tick)
		for j, cid := range ids {
			arch.column(cid).setValue(row, values[j])
		}
		if err := w.index.updateLocation(e, EntityLocation{Archetype: arch.id, Row: row}); err != nil {
			return entities, err
		}
		entities = append(entities, e)
		w.hooks.emitSpawned(e)
	}
	return entities, nil
}

// Despawn removes an entity and frees its handle. Stale handles fail with
// EntityNotFoundError and have no side effect.
func (w *World) Despawn(e Entity) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	loc, ok := w.index.lookup(e)
	if !ok {
		return EntityNotFoundError{Entity: e}
	}
	arch := w.archetypes[loc.Archetype]
	if swapped, ok := arch.removeRow(loc.Row); ok {
		if err := w.index.updateLocation(swapped, EntityLocation{Archetype: arch.id, Row: loc.Row}); err != nil {
			return err
		}
	}
	if err := w.index.release(e); err != nil {
		return err
	}
	w.hooks.emitDespawned(e)
	return nil
}

// AddComponent moves the entity to the archetype that also holds the value's
// type and writes the value. Existing components keep their tick history; the
// new one is stamped with the current tick.
func (w *World) AddComponent(e Entity, value any) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	if value == nil {
		return fmt.Errorf("nil component value")
	}
	rv := reflect.ValueOf(value)
	cid, err := ComponentIDFor(rv.Type())
	if err != nil {
		return err
	}
	loc, ok := w.index.lookup(e)
	if !ok {
		return EntityNotFoundError{Entity: e}
	}
	src := w.archetypes[loc.Archetype]
	if src.contains(cid) {
		return ComponentExistsError{Component: cid}
	}
	dst, err := w.transitionTarget(src, cid, true)
	if err != nil {
		return err
	}
	row, err := w.moveRow(e, src, loc.Row, dst, cid)
	if err != nil {
		return err
	}
	col := dst.column(cid)
	col.setValue(row, rv)
	col.setTicks(row, w.tick, w.tick)
	w.hooks.emitComponentAdded(e, cid)
	return nil
}

// RemoveComponent moves the entity to the archetype without the given type.
// The removed value is destroyed with the vacated row.
func (w *World) RemoveComponent(e Entity, cid ComponentID) error {
	if w.Locked() {
		return LockedWorldError{}
	}
	loc, ok := w.index.lookup(e)
	if !ok {
		return EntityNotFoundError{Entity: e}
	}
	src := w.archetypes[loc.Archetype]
	if !src.contains(cid) {
		return ComponentNotFoundError{Component: cid}
	}
	dst, err := w.transitionTarget(src, cid, false)
	if err != nil {
		return err
	}
	if _, err := w.moveRow(e, src, loc.Row, dst, cid); err != nil {
		return err
	}
	w.hooks.emitComponentRemoved(e, cid)
	return nil
}

// HasComponent reports whether the entity's archetype contains the type.
func (w *World) HasComponent(e Entity, cid ComponentID) bool {
	loc, ok := w.index.lookup(e)
	if !ok {
		return false
	}
	return w.archetypes[loc.Archetype].contains(cid)
}

// GetComponent returns a copy of the entity's component boxed as an interface.
// Typed access goes through the generic Get and GetMut functions.
func (w *World) GetComponent(e Entity, cid ComponentID) (any, error) {
	loc, ok := w.index.lookup(e)
	if !ok {
		return nil, EntityNotFoundError{Entity: e}
	}
	col := w.archetypes[loc.Archetype].column(cid)
	if col == nil {
		return nil, ComponentNotFoundError{Component: cid}
	}
	return col.value(loc.Row), nil
}

// Location resolves a handle to its storage location; ok is false for stale
// handles.
func (w *World) Location(e Entity) (EntityLocation, bool) {
	return w.index.lookup(e)
}

// FlushCommands drains a command buffer, applying commands in record order.
// A command that fails (a stale handle recorded earlier in the frame, for
// example) is logged and skipped; the remaining commands still apply. The
// joined failures are returned for callers that want them.
func (w *World) FlushCommands(buf *CommandBuffer) error {
	var failed []error
	for i, cmd := range buf.commands {
		if err := cmd.apply(w); err != nil {
			applyErr := CommandApplyError{Index: i, Err: err}
			w.log.Warn().Err(applyErr).Msg("deferred command failed, continuing")
			failed = append(failed, applyErr)
		}
	}
	buf.commands = buf.commands[:0]
	return errors.Join(failed...)
}

// Clear despawns everything and drops all archetypes, keeping the tick and
// registered callbacks.
func (w *World) Clear() {
	w.index.clear()
	w.archetypes = w.archetypes[:0]
	w.bySignature = make(map[mask.Mask]archetypeID, 32)
	w.transitions = make(map[transitionKey]archetypeID, 128)
	if _, err := w.getOrCreateArchetype(mask.Mask{}, nil); err != nil {
		panic(err)
	}
}

// MemoryStats summarizes the world's storage footprint.
type MemoryStats struct {
	EntityIndexBytes int
	ArchetypeBytes   int
	TotalBytes       int
}

// MemoryStats reports an estimate of current memory use.
func (w *World) MemoryStats() MemoryStats {
	stats := MemoryStats{EntityIndexBytes: w.index.bytes()}
	for _, a := range w.archetypes {
		stats.ArchetypeBytes += a.bytes()
	}
	stats.TotalBytes = stats.EntityIndexBytes + stats.ArchetypeBytes
	return stats
}

// resolveBundle maps component values to sorted IDs plus the signature mask.
func (w *World) resolveBundle(components []any) ([]ComponentID, []reflect.Value, mask.Mask, error) {
	var sig mask.Mask
	ids := make([]ComponentID, len(components))
	order := make([]int, len(components))
	for i, c := range components {
		if c == nil {
			return nil, nil, sig, fmt.Errorf("nil component in bundle")
		}
		cid, err := ComponentIDFor(reflect.TypeOf(c))
		if err != nil {
			return nil, nil, sig, err
		}
		for j := 0; j < i; j++ {
			if ids[j] == cid {
				return nil, nil, sig, ComponentExistsError{Component: cid}
			}
		}
		ids[i] = cid
		order[i] = i
		sig.Mark(uint32(cid))
	}
	sort.Slice(order, func(x, y int) bool { return ids[order[x]] < ids[order[y]] })
	sortedIDs := make([]ComponentID, len(ids))
	values := make([]reflect.Value, len(ids))
	for i, o := range order {
		sortedIDs[i] = ids[o]
		values[i] = reflect.ValueOf(components[o])
	}
	return sortedIDs, values, sig, nil
}

// getOrCreateArchetype interns an archetype by signature mask. Signatures are
// canonical because component IDs arrive sorted.
func (w *World) getOrCreateArchetype(sig mask.Mask, types []ComponentID) (*archetype, error) {
	if id, ok := w.bySignature[sig]; ok {
		return w.archetypes[id], nil
	}
	id := archetypeID(len(w.archetypes))
	created, err := newArchetype(id, sig, types, Config.InitialArchetypeCapacity)
	if err != nil {
		return nil, err
	}
	w.archetypes = append(w.archetypes, created)
	w.bySignature[sig] = id
	return created, nil
}

// transitionTarget resolves the destination archetype for adding or removing
// one component, consulting the transition cache first.
func (w *World) transitionTarget(src *archetype, cid ComponentID, add bool) (*archetype, error) {
	key := transitionKey{src: src.id, cid: cid, add: add}
	if id, ok := w.transitions[key]; ok {
		return w.archetypes[id], nil
	}

	sig := src.mask
	var types []ComponentID
	if add {
		sig.Mark(uint32(cid))
		types = make([]ComponentID, 0, len(src.types)+1)
		inserted := false
		for _, t := range src.types {
			if !inserted && cid < t {
				types = append(types, cid)
				inserted = true
			}
			types = append(types, t)
		}
		if !inserted {
			types = append(types, cid)
		}
	} else {
		sig.Unmark(uint32(cid))
		types = make([]ComponentID, 0, len(src.types)-1)
		for _, t := range src.types {
			if t != cid {
				types = append(types, t)
			}
		}
	}

	dst, err := w.getOrCreateArchetype(sig, types)
	if err != nil {
		return nil, err
	}
	w.transitions[key] = dst.id
	return dst, nil
}

// moveRow migrates an entity's row from src to dst, copying every shared
// column with its tick history, then swap-removes the source row and fixes
// both directory entries. For additions the changed component id is the new
// column (written by the caller); for removals it is the dropped one.
func (w *World) moveRow(e Entity, src *archetype, srcRow int, dst *archetype, changed ComponentID) (int, error) {
	dstRow := dst.allocateRow(e, w.tick)
	for _, cid := range src.types {
		if cid == changed && !dst.contains(cid) {
			continue
		}
		from := src.column(cid)
		to := dst.column(cid)
		to.copyRowFrom(dstRow, from, srcRow)
		added, _ := from.addedTick(srcRow)
		changedTick, _ := from.changedTick(srcRow)
		to.setTicks(dstRow, added, changedTick)
	}
	if swapped, ok := src.removeRow(srcRow); ok {
		if err := w.index.updateLocation(swapped, EntityLocation{Archetype: src.id, Row: srcRow}); err != nil {
			return 0, err
		}
	}
	if err := w.index.updateLocation(e, EntityLocation{Archetype: dst.id, Row: dstRow}); err != nil {
		return 0, err
	}
	return dstRow, nil
}
