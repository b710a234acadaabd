package foreman

// Lifecycle callbacks fire after the corresponding structural edit has
// committed. Callbacks must not perform structural edits synchronously; they
// may record commands on a buffer for the next flush.

// SpawnCallback observes entity creation.
type SpawnCallback func(Entity)

// DespawnCallback observes entity destruction.
type DespawnCallback func(Entity)

// ComponentCallback observes a component being added to or removed from an
// entity.
type ComponentCallback func(Entity, ComponentID)

type lifecycleHooks struct {
	spawned          []SpawnCallback
	despawned        []DespawnCallback
	componentAdded   []ComponentCallback
	componentRemoved []ComponentCallback
}

// OnSpawned registers a callback invoked after each successful spawn.
func (w *World) OnSpawned(cb SpawnCallback) {
	w.hooks.spawned = append(w.hooks.spawned, cb)
}

// OnDespawned registers a callback invoked after each successful despawn.
func (w *World) OnDespawned(cb DespawnCallback) {
	w.hooks.despawned = append(w.hooks.despawned, cb)
}

// OnComponentAdded registers a callback invoked after a component addition commits.
func (w *World) OnComponentAdded(cb ComponentCallback) {
	w.hooks.componentAdded = append(w.hooks.componentAdded, cb)
}

// OnComponentRemoved registers a callback invoked after a component removal commits.
func (w *World) OnComponentRemoved(cb ComponentCallback) {
	w.hooks.componentRemoved = append(w.hooks.componentRemoved, cb)
}

func (h *lifecycleHooks) emitSpawned(e Entity) {
	for _, cb := range h.spawned {
		cb(e)
	}
}

func (h *lifecycleHooks) emitDespawned(e Entity) {
	for _, cb := range h.despawned {
		cb(e)
	}
}

func (h *lifecycleHooks) emitComponentAdded(e Entity, id ComponentID) {
	for _, cb := range h.componentAdded {
		cb(e, id)
	}
}

func (h *lifecycleHooks) emitComponentRemoved(e Entity, id ComponentID) {
	for _, cb := range h.componentRemoved {
		cb(e, id)
	}
}
