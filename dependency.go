package foreman

// Stage planning from access declarations. Systems form a DAG: an edge runs
// from an earlier-submitted system to a later one iff their accesses
// conflict. Kahn's sort assigns each system a depth (longest predecessor
// chain); systems sharing a depth and pairwise non-conflicting form a stage,
// with a secondary pass placing the leftovers into the next compatible stage.
// The longest chain through the DAG is flagged as the critical path for
// priority scheduling.

type executionStage struct {
	systems []int
	depth   int
}

type dependencyGraph struct {
	stages       []executionStage
	criticalPath []int
	adjacency    [][]int
}

func newDependencyGraph(accesses []Access) *dependencyGraph {
	adjacency := buildAdjacency(accesses)
	stages := buildStages(accesses, adjacency)
	return &dependencyGraph{
		stages:       stages,
		criticalPath: findCriticalPath(stages, adjacency),
		adjacency:    adjacency,
	}
}

func buildAdjacency(accesses []Access) [][]int {
	adjacency := make([][]int, len(accesses))
	for i := range accesses {
		for j := i + 1; j < len(accesses); j++ {
			if accesses[i].ConflictsWith(accesses[j]) {
				adjacency[i] = append(adjacency[i], j)
			}
		}
	}
	return adjacency
}

func buildStages(accesses []Access, adjacency [][]int) []executionStage {
	n := len(accesses)
	if n == 0 {
		return nil
	}

	inDegree := make([]int, n)
	for _, edges := range adjacency {
		for _, target := range edges {
			inDegree[target]++
		}
	}

	depths := make([]int, n)
	queue := make([]int, 0, n)
	for idx, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, idx)
		}
	}

	sorted := make([]int, 0, n)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)
		for _, neighbor := range adjacency[node] {
			inDegree[neighbor]--
			if d := depths[node] + 1; d > depths[neighbor] {
				depths[neighbor] = d
			}
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
			}
		}
	}

	maxDepth := 0
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}

	var stages []executionStage
	for depth := 0; depth <= maxDepth; depth++ {
		var stage []int
		for _, idx := range sorted {
			if depths[idx] != depth {
				continue
			}
			if conflictsWithAny(accesses, idx, stage) {
				continue
			}
			stage = append(stage, idx)
		}
		if len(stage) > 0 {
			stages = append(stages, executionStage{systems: stage, depth: depth})
		}
	}

	return placeLeftovers(stages, accesses, sorted, depths)
}

func conflictsWithAny(accesses []Access, idx int, stage []int) bool {
	for _, existing := range stage {
		if accesses[idx].ConflictsWith(accesses[existing]) {
			return true
		}
	}
	return false
}

// placeLeftovers assigns systems that conflicted with a sibling at their
// depth into the first compatible stage at or after it, creating new stages
// when nothing fits.
func placeLeftovers(stages []executionStage, accesses []Access, sorted, depths []int) []executionStage {
	assigned := make(map[int]bool)
	for _, s := range stages {
		for _, idx := range s.systems {
			assigned[idx] = true
		}
	}
	var unassigned []int
	for _, idx := range sorted {
		if !assigned[idx] {
			unassigned = append(unassigned, idx)
		}
	}

	for len(unassigned) > 0 {
		var remaining []int
		for _, idx := range unassigned {
			placed := false
			for s := range stages {
				if stages[s].depth < depths[idx] {
					continue
				}
				if conflictsWithAny(accesses, idx, stages[s].systems) {
					continue
				}
				stages[s].systems = append(stages[s].systems, idx)
				placed = true
				break
			}
			if !placed {
				remaining = append(remaining, idx)
			}
		}
		if len(remaining) == len(unassigned) && len(remaining) > 0 {
			idx := remaining[0]
			remaining = remaining[1:]
			depth := 0
			if len(stages) > 0 {
				depth = stages[len(stages)-1].depth + 1
			}
			stages = append(stages, executionStage{systems: []int{idx}, depth: depth})
		}
		unassigned = remaining
	}
	return stages
}

// findCriticalPath backtracks from the deepest system, stepping to the
// deepest predecessor each time, yielding the longest dependency chain.
func findCriticalPath(stages []executionStage, adjacency [][]int) []int {
	if len(stages) == 0 {
		return nil
	}

	deepest := 0
	maxDepth := 0
	for _, stage := range stages {
		if stage.depth >= maxDepth && len(stage.systems) > 0 {
			maxDepth = stage.depth
			deepest = stage.systems[0]
		}
	}

	depthOf := make(map[int]int)
	for _, stage := range stages {
		for _, idx := range stage.systems {
			depthOf[idx] = stage.depth
		}
	}

	reverse := make(map[int][]int)
	for from, targets := range adjacency {
		for _, to := range targets {
			reverse[to] = append(reverse[to], from)
		}
	}

	path := []int{deepest}
	current := deepest
	for {
		preds := reverse[current]
		if len(preds) == 0 {
			break
		}
		current = preds[0]
		for _, p := range preds[1:] {
			if depthOf[p] > depthOf[current] {
				current = p
			}
		}
		path = append(path, current)
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (g *dependencyGraph) isCritical(idx int) bool {
	for _, c := range g.criticalPath {
		if c == idx {
			return true
		}
	}
	return false
}
