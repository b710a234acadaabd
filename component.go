package foreman

import (
	"reflect"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// ComponentID identifies a registered component type. IDs are dense bit
// indices into signature masks, assigned deterministically in registration
// order for a single process run.
type ComponentID uint32

// MaxComponentTypes is the number of distinct component types a process may
// register, bounded by the signature mask width.
const MaxComponentTypes = 64

// componentRegistry is the process-wide type table. The world holds no type
// state of its own; two worlds in one process share component IDs.
type componentRegistry struct {
	mu       sync.RWMutex
	typeToID map[reflect.Type]ComponentID
	types    []reflect.Type
}

var registry = &componentRegistry{
	typeToID: make(map[reflect.Type]ComponentID, MaxComponentTypes),
}

// RegisterComponent registers T and returns its ComponentID. Registering the
// same type twice returns the existing ID.
func RegisterComponent[T any]() (ComponentID, error) {
	return registry.register(reflect.TypeFor[T]())
}

// ComponentIDFor returns the ComponentID for a runtime type, registering it
// if needed.
func ComponentIDFor(t reflect.Type) (ComponentID, error) {
	return registry.register(t)
}

// MustComponentID is RegisterComponent for contexts where the component limit
// is a programming error (query construction, access declarations).
func MustComponentID[T any]() ComponentID {
	id, err := RegisterComponent[T]()
	if err != nil {
		panic(bark.AddTrace(err))
	}
	return id
}

func (r *componentRegistry) register(t reflect.Type) (ComponentID, error) {
	r.mu.RLock()
	id, ok := r.typeToID[t]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.typeToID[t]; ok {
		return id, nil
	}
	if len(r.types) >= MaxComponentTypes {
		return 0, ComponentLimitError{Limit: MaxComponentTypes}
	}
	id = ComponentID(len(r.types))
	r.typeToID[t] = id
	r.types = append(r.types, t)
	return id, nil
}

func (r *componentRegistry) typeOf(id ComponentID) reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.types) {
		return nil
	}
	return r.types[id]
}

// componentName formats a ComponentID for error messages.
func componentName(id ComponentID) string {
	t := registry.typeOf(id)
	if t == nil {
		return "<unregistered>"
	}
	return t.String()
}
