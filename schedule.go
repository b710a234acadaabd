package foreman

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"
)

// Schedule collects systems and builds an execution plan. Two modes:
//
//   - Automatic: AddSystem submits systems in order and Build derives stages
//     from their access declarations via the dependency planner.
//   - Named stages: AddStage/AddSystemToStage declare an explicit stage DAG
//     with AddStageDependency edges; Build topologically sorts the stages and
//     validates that systems sharing a stage never conflict.
//
// Mixing both modes in one schedule is not supported; AddSystem after
// AddStage reports an error at Build.
type Schedule struct {
	systems      []System
	stageNames   []string
	stageSystems map[string][]int
	stageAfter   map[string][]string // stage → stages it must run after
	autoCount    int
}

// NewSchedule creates an empty schedule builder.
func NewSchedule() *Schedule {
	return &Schedule{
		stageSystems: make(map[string][]int),
		stageAfter:   make(map[string][]string),
	}
}

// AddSystem appends a system for automatic stage derivation.
func (s *Schedule) AddSystem(sys System) *Schedule {
	s.systems = append(s.systems, sys)
	s.autoCount++
	return s
}

// AddStage declares a named stage. Declaration order breaks ties in the
// topological stage order.
func (s *Schedule) AddStage(name string) *Schedule {
	if _, ok := s.stageSystems[name]; !ok {
		s.stageNames = append(s.stageNames, name)
		s.stageSystems[name] = nil
	}
	return s
}

// AddStageDependency declares that stage after must run after stage before.
func (s *Schedule) AddStageDependency(after, before string) *Schedule {
	s.stageAfter[after] = append(s.stageAfter[after], before)
	return s
}

// AddSystemToStage places a system in a declared stage.
func (s *Schedule) AddSystemToStage(name string, sys System) error {
	if _, ok := s.stageSystems[name]; !ok {
		return UnknownStageError{Stage: name}
	}
	s.systems = append(s.systems, sys)
	s.stageSystems[name] = append(s.stageSystems[name], len(s.systems)-1)
	return nil
}

// Build produces the execution plan.
func (s *Schedule) Build() (*Plan, error) {
	if len(s.stageNames) > 0 && s.autoCount > 0 {
		return nil, fmt.Errorf("schedule mixes AddSystem with named stages")
	}
	accesses := make([]Access, len(s.systems))
	for i, sys := range s.systems {
		accesses[i] = sys.Access()
	}
	if len(s.stageNames) > 0 {
		return s.buildNamed(accesses)
	}
	return s.buildAuto(accesses)
}

func (s *Schedule) buildAuto(accesses []Access) (*Plan, error) {
	graph := newDependencyGraph(accesses)
	plan := &Plan{systems: s.systems, accesses: accesses, graph: graph}
	for i, stage := range graph.stages {
		plan.stages = append(plan.stages, PlanStage{
			Name:    fmt.Sprintf("stage-%d", i),
			Systems: stage.systems,
			depth:   stage.depth,
		})
	}
	plan.critical = make(map[int]bool, len(graph.criticalPath))
	for _, idx := range graph.criticalPath {
		plan.critical[idx] = true
	}
	logPlan(plan)
	return plan, nil
}

func (s *Schedule) buildNamed(accesses []Access) (*Plan, error) {
	order, err := s.sortStages()
	if err != nil {
		return nil, err
	}

	plan := &Plan{systems: s.systems, accesses: accesses, critical: map[int]bool{}}
	for depth, name := range order {
		members := s.stageSystems[name]
		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				if accesses[members[i]].ConflictsWith(accesses[members[j]]) {
					return nil, ScheduleConflictError{
						Stage:   name,
						SystemA: s.systems[members[i]].Name(),
						SystemB: s.systems[members[j]].Name(),
					}
				}
			}
		}
		plan.stages = append(plan.stages, PlanStage{Name: name, Systems: members, depth: depth})
	}
	logPlan(plan)
	return plan, nil
}

// sortStages topologically orders the named stages, preserving declaration
// order among unblocked stages.
func (s *Schedule) sortStages() ([]string, error) {
	inDegree := make(map[string]int, len(s.stageNames))
	forward := make(map[string][]string, len(s.stageNames))
	for _, name := range s.stageNames {
		inDegree[name] = 0
	}
	for after, befores := range s.stageAfter {
		if _, ok := inDegree[after]; !ok {
			return nil, UnknownStageError{Stage: after}
		}
		for _, before := range befores {
			if _, ok := inDegree[before]; !ok {
				return nil, UnknownStageError{Stage: before}
			}
			forward[before] = append(forward[before], after)
			inDegree[after]++
		}
	}

	var order []string
	ready := make([]string, 0, len(s.stageNames))
	for _, name := range s.stageNames {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, next := range forward[name] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	if len(order) != len(s.stageNames) {
		var cyclic []string
		for _, name := range s.stageNames {
			if inDegree[name] > 0 {
				cyclic = append(cyclic, name)
			}
		}
		return nil, ScheduleCycleError{Stages: cyclic}
	}
	return order, nil
}

// PlanStage is a set of systems proven pairwise non-conflicting.
type PlanStage struct {
	Name    string
	Systems []int
	depth   int
}

// Plan is a built schedule: stages in execution order plus the conflict graph
// metadata the executor's priority scheduling consumes.
type Plan struct {
	systems  []System
	accesses []Access
	stages   []PlanStage
	critical map[int]bool
	graph    *dependencyGraph
}

// StageCount returns the number of stages.
func (p *Plan) StageCount() int {
	return len(p.stages)
}

// Stages returns the planned stages in execution order.
func (p *Plan) Stages() []PlanStage {
	return p.stages
}

// SystemName resolves a plan system index to its name.
func (p *Plan) SystemName(idx int) string {
	return p.systems[idx].Name()
}

// IsCritical reports whether a system lies on the critical path.
func (p *Plan) IsCritical(idx int) bool {
	return p.critical[idx]
}

// String renders the plan as a readable stage listing.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "execution plan (%d stages):\n", len(p.stages))
	for i, stage := range p.stages {
		fmt.Fprintf(&b, "  %s (%d systems)\n", stageLabel(stage, i), len(stage.Systems))
		for _, idx := range stage.Systems {
			marker := ""
			if p.critical[idx] {
				marker = " [critical]"
			}
			fmt.Fprintf(&b, "    - %s%s\n", p.systems[idx].Name(), marker)
		}
	}
	return b.String()
}

// Graphviz renders the plan as a DOT graph: one cluster per stage, edges for
// the access conflicts that forced the ordering.
func (p *Plan) Graphviz() string {
	g := dot.NewGraph(dot.Directed)
	nodes := make([]dot.Node, len(p.systems))
	for i, stage := range p.stages {
		cluster := g.Subgraph(stageLabel(stage, i), dot.ClusterOption{})
		for _, idx := range stage.Systems {
			n := cluster.Node(p.systems[idx].Name())
			if p.critical[idx] {
				n.Attr("color", "red")
			}
			nodes[idx] = n
		}
	}
	if p.graph != nil {
		for from, targets := range p.graph.adjacency {
			for _, to := range targets {
				g.Edge(nodes[from], nodes[to])
			}
		}
	}
	return g.String()
}

func stageLabel(stage PlanStage, i int) string {
	if stage.Name != "" {
		return stage.Name
	}
	return fmt.Sprintf("stage-%d", i)
}

func logPlan(p *Plan) {
	logger := Config.Logger()
	logger.Debug().
		Int("stages", len(p.stages)).
		Int("systems", len(p.systems)).
		Msg("schedule built")
}
