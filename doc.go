/*
Package foreman provides an archetype-based Entity-Component-System (ECS) runtime
for games and simulations.

Foreman stores entities with identical component sets together in archetypes
(Structure-of-Arrays layout), tracks per-row change ticks for change detection,
and schedules systems into parallel stages based on their declared component
access.

Core Concepts:

  - Entity: A generational handle that represents a simulation object.
  - Component: A data value attached to an entity.
  - Archetype: A collection of entities sharing the same component types.
  - Query: A cached way to iterate entities with specific component combinations.
  - System: A unit of logic with declared read/write access, run once per frame.
  - Stage: A set of systems proven non-conflicting, eligible to run in parallel.

Basic Usage:

	// Create a world
	world := foreman.Factory.NewWorld()

	// Spawn entities
	e, _ := world.Spawn(Position{X: 1}, Velocity{X: 2})

	// Query entities and process them
	query := foreman.NewQuery2[Position, Velocity](world, foreman.Mut[Position]())
	for query.Next() {
		pos, vel := query.Get()
		pos.X += vel.X
	}

	// Or drive systems through a schedule
	schedule := foreman.Factory.NewSchedule()
	schedule.AddSystem(movementSystem)
	plan, _ := schedule.Build()
	exec := foreman.Factory.NewExecutor(plan)
	exec.ExecuteFrameParallel(world)

Structural edits (spawn, despawn, add/remove component) are forbidden while a
query iterates; record them on a CommandBuffer instead and they are applied at
the next stage boundary.

Foreman is the scheduling and storage core for the Bappa Framework but also
works as a standalone library.
*/
package foreman
