package foreman

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlannerNoConflictsSingleStage(t *testing.T) {
	posID := MustComponentID[Position]()
	velID := MustComponentID[Velocity]()

	graph := newDependencyGraph([]Access{
		NewAccess().Read(posID),
		NewAccess().Read(velID),
	})
	assert.Len(t, graph.stages, 1, "independent systems share one stage")
	assert.Len(t, graph.stages[0].systems, 2)
}

func TestPlannerWriteConflictSequential(t *testing.T) {
	posID := MustComponentID[Position]()
	velID := MustComponentID[Velocity]()

	graph := newDependencyGraph([]Access{
		NewAccess().Read(posID).Write(velID),
		NewAccess().Read(velID),
	})
	assert.Len(t, graph.stages, 2, "conflicting systems split into stages")
}

func TestPlannerChainCriticalPath(t *testing.T) {
	posID := MustComponentID[Position]()
	velID := MustComponentID[Velocity]()
	healthID := MustComponentID[Health]()

	// A chain: sys0 writes pos, sys1 reads pos writes vel, sys2 reads vel.
	graph := newDependencyGraph([]Access{
		NewAccess().Write(posID),
		NewAccess().Read(posID).Write(velID),
		NewAccess().Read(velID).Write(healthID),
	})
	require.Len(t, graph.stages, 3)
	assert.Equal(t, []int{0, 1, 2}, graph.criticalPath)
	for i := 0; i < 3; i++ {
		assert.True(t, graph.isCritical(i))
	}
}

func TestPlannerDiamond(t *testing.T) {
	aID := MustComponentID[TagA]()
	bID := MustComponentID[TagB]()
	cID := MustComponentID[TagC]()
	posID := MustComponentID[Position]()
	velID := MustComponentID[Velocity]()

	// sys0 writes A, sys1 writes B (parallel); sys2 reads A writes C;
	// sys3 reads B writes Pos; sys4 reads C and Pos.
	accesses := []Access{
		NewAccess().Write(aID),
		NewAccess().Write(bID),
		NewAccess().Read(aID).Write(cID),
		NewAccess().Read(bID).Write(posID),
		NewAccess().Read(cID).Read(posID).Write(velID),
	}
	graph := newDependencyGraph(accesses)
	assert.LessOrEqual(t, len(graph.stages), 3)

	// Every pair within a stage must be conflict-free.
	for _, stage := range graph.stages {
		for i := 0; i < len(stage.systems); i++ {
			for j := i + 1; j < len(stage.systems); j++ {
				a, b := stage.systems[i], stage.systems[j]
				assert.False(t, accesses[a].ConflictsWith(accesses[b]),
					"stage holds conflicting systems %d and %d", a, b)
			}
		}
	}

	// Dependencies respect stage order: sys2 runs after sys0.
	stageOf := map[int]int{}
	for s, stage := range graph.stages {
		for _, idx := range stage.systems {
			stageOf[idx] = s
		}
	}
	assert.Less(t, stageOf[0], stageOf[2])
	assert.Less(t, stageOf[1], stageOf[3])
	assert.Less(t, stageOf[2], stageOf[4])
	assert.Less(t, stageOf[3], stageOf[4])
}

func TestPlannerEverySystemPlaced(t *testing.T) {
	posID := MustComponentID[Position]()

	// Ten systems all writing the same component: ten sequential stages.
	accesses := make([]Access, 10)
	for i := range accesses {
		accesses[i] = NewAccess().Write(posID)
	}
	graph := newDependencyGraph(accesses)

	placed := 0
	for _, stage := range graph.stages {
		placed += len(stage.systems)
	}
	assert.Equal(t, 10, placed)
	assert.Len(t, graph.stages, 10)
}

func TestPlannerEmpty(t *testing.T) {
	graph := newDependencyGraph(nil)
	assert.Empty(t, graph.stages)
	assert.Empty(t, graph.criticalPath)
}
