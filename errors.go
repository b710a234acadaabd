package foreman

import "fmt"

// EntityNotFoundError is returned when a handle is stale or was never allocated.
type EntityNotFoundError struct {
	Entity Entity
}

func (e EntityNotFoundError) Error() string {
	return fmt.Sprintf("entity not found: id=%d version=%d", e.Entity.ID, e.Entity.Version)
}

// EntityCapacityError is returned when the entity directory is full.
type EntityCapacityError struct {
	Capacity int
}

func (e EntityCapacityError) Error() string {
	return fmt.Sprintf("entity capacity exhausted (%d)", e.Capacity)
}

// ComponentExistsError is returned when adding a component the entity already has.
type ComponentExistsError struct {
	Component ComponentID
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component already exists on entity: %s", componentName(e.Component))
}

// ComponentNotFoundError is returned when a component is absent from the
// entity's archetype.
type ComponentNotFoundError struct {
	Component ComponentID
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component does not exist on entity: %s", componentName(e.Component))
}

// ComponentLimitError is returned when registering more component types than
// the signature mask can hold.
type ComponentLimitError struct {
	Limit int
}

func (e ComponentLimitError) Error() string {
	return fmt.Sprintf("component type limit reached (%d)", e.Limit)
}

// LockedWorldError is returned when a structural edit is attempted while a
// query iteration holds the world locked.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "world is currently locked"
}

// ArchetypeCreationError is returned when archetype storage cannot be allocated.
type ArchetypeCreationError struct {
	Reason string
}

func (e ArchetypeCreationError) Error() string {
	return fmt.Sprintf("archetype creation failed: %s", e.Reason)
}

// ScheduleCycleError is returned when user-declared stage dependencies form a cycle.
type ScheduleCycleError struct {
	Stages []string
}

func (e ScheduleCycleError) Error() string {
	return fmt.Sprintf("schedule stage dependency cycle detected: %v", e.Stages)
}

// ScheduleConflictError is returned when two systems placed in the same
// user-declared stage have conflicting access.
type ScheduleConflictError struct {
	Stage   string
	SystemA string
	SystemB string
}

func (e ScheduleConflictError) Error() string {
	return fmt.Sprintf("systems %q and %q conflict within stage %q", e.SystemA, e.SystemB, e.Stage)
}

// UnknownStageError is returned when a system is added to a stage that was
// never declared.
type UnknownStageError struct {
	Stage string
}

func (e UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage: %q", e.Stage)
}

// SystemFailureError wraps an error returned by a system; it terminates the frame.
type SystemFailureError struct {
	System string
	Err    error
}

func (e SystemFailureError) Error() string {
	return fmt.Sprintf("system %q failed: %v", e.System, e.Err)
}

func (e SystemFailureError) Unwrap() error {
	return e.Err
}

// CommandApplyError wraps a deferred command that failed at flush. Flushing
// logs these and continues with the remaining commands.
type CommandApplyError struct {
	Index int
	Err   error
}

func (e CommandApplyError) Error() string {
	return fmt.Sprintf("command %d failed to apply: %v", e.Index, e.Err)
}

func (e CommandApplyError) Unwrap() error {
	return e.Err
}

// QueryConflictError describes a malformed query: the same component type
// fetched twice, or a Mut declaration for a type the query does not fetch.
// Queries panic with this at construction, never at iteration.
type QueryConflictError struct {
	Component ComponentID
}

func (e QueryConflictError) Error() string {
	return fmt.Sprintf("query declares conflicting access to component: %s", componentName(e.Component))
}
