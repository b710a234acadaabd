package foreman

// Command is a deferred structural edit recorded during system execution and
// applied to the world at a stage boundary.
type Command interface {
	apply(*World) error
}

// CommandBuffer holds an ordered list of deferred structural edits. Buffers
// are private to one system instance and never shared across goroutines; the
// executor flushes them into the world between stages.
type CommandBuffer struct {
	commands []Command
}

// NewCommandBuffer creates an empty command buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Len returns the number of recorded commands.
func (b *CommandBuffer) Len() int {
	return len(b.commands)
}

// Spawn records an entity creation. The closure runs against the world at
// flush time and performs the actual spawn.
func (b *CommandBuffer) Spawn(fn func(*World) error) {
	b.commands = append(b.commands, spawnCommand{fn: fn})
}

// Despawn records an entity destruction.
func (b *CommandBuffer) Despawn(e Entity) {
	b.commands = append(b.commands, despawnCommand{entity: e})
}

// Add records a component addition. The value is held type-erased until flush.
func (b *CommandBuffer) Add(e Entity, value any) {
	b.commands = append(b.commands, addCommand{entity: e, value: value})
}

// Remove records a component removal.
func (b *CommandBuffer) Remove(e Entity, cid ComponentID) {
	b.commands = append(b.commands, removeCommand{entity: e, cid: cid})
}

// Enqueue records an arbitrary command.
func (b *CommandBuffer) Enqueue(cmd Command) {
	b.commands = append(b.commands, cmd)
}

type spawnCommand struct {
	fn func(*World) error
}

func (c spawnCommand) apply(w *World) error {
	return c.fn(w)
}

type despawnCommand struct {
	entity Entity
}

func (c despawnCommand) apply(w *World) error {
	return w.Despawn(c.entity)
}

type addCommand struct {
	entity Entity
	value  any
}

func (c addCommand) apply(w *World) error {
	return w.AddComponent(c.entity, c.value)
}

type removeCommand struct {
	entity Entity
	cid    ComponentID
}

func (c removeCommand) apply(w *World) error {
	return w.RemoveComponent(c.entity, c.cid)
}
