package foreman

import (
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Priority orders task dispatch within a stage.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	default:
		return "low"
	}
}

// Executor drives frames over a built plan: tick increment, stage execution,
// and command-buffer flushing at stage boundaries. Each system owns a private
// command buffer so recording stays lock-free in parallel stages.
type Executor struct {
	plan    *Plan
	stats   []*executionStats
	buffers []*CommandBuffer
	workers int
	log     zerolog.Logger

	frames     int
	frameTotal time.Duration
	lastFrame  time.Duration
}

// NewExecutor creates an executor for the plan.
func NewExecutor(plan *Plan) *Executor {
	e := &Executor{
		plan:    plan,
		stats:   make([]*executionStats, len(plan.systems)),
		buffers: make([]*CommandBuffer, len(plan.systems)),
		workers: Config.Workers,
		log:     Config.Logger(),
	}
	for i := range plan.systems {
		e.stats[i] = &executionStats{}
		e.buffers[i] = NewCommandBuffer()
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// ExecuteFrame runs one frame sequentially: the tick advances, each stage's
// systems run in submission order, and every stage's command buffers flush
// before the next stage begins.
func (e *Executor) ExecuteFrame(w *World) error {
	frameStart := time.Now()
	w.IncrementTick()
	for _, stage := range e.plan.stages {
		for _, idx := range stage.Systems {
			if err := e.runSystem(idx, w); err != nil {
				return err
			}
		}
		e.flushStage(w, stage)
	}
	e.recordFrame(time.Since(frameStart))
	return nil
}

// ExecuteFrameParallel runs one frame with each stage's systems fanned out
// across the worker pool. Dispatch order within a stage follows priority
// (critical path first), then estimated cost, largest first. A failing system
// aborts the frame at the next safe point: already-dispatched systems finish,
// no further systems start, and later stages do not run.
func (e *Executor) ExecuteFrameParallel(w *World) error {
	frameStart := time.Now()
	w.IncrementTick()
	for _, stage := range e.plan.stages {
		if err := e.runStageParallel(stage, w); err != nil {
			return err
		}
		e.flushStage(w, stage)
	}
	e.recordFrame(time.Since(frameStart))
	return nil
}

func (e *Executor) runStageParallel(stage PlanStage, w *World) error {
	order := e.scheduleStage(stage)
	if len(order) == 0 {
		return nil
	}
	if len(order) == 1 {
		return e.runSystem(order[0], w)
	}

	var aborted atomic.Bool
	var once sync.Once
	var firstErr error

	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := e.workers
	if workers > len(order) {
		workers = len(order)
	}
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if aborted.Load() {
					continue
				}
				if err := e.runSystem(idx, w); err != nil {
					once.Do(func() { firstErr = err })
					aborted.Store(true)
				}
			}
		}()
	}
	for _, idx := range order {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()
	return firstErr
}

// scheduleStage orders a stage's systems for dispatch: priority first, then
// estimated cost descending so long tasks start early.
func (e *Executor) scheduleStage(stage PlanStage) []int {
	order := append([]int(nil), stage.Systems...)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		pa, pb := e.assignPriority(a, stage.depth), e.assignPriority(b, stage.depth)
		if pa != pb {
			return pa > pb
		}
		return e.stats[a].estimatedCost() > e.stats[b].estimatedCost()
	})
	return order
}

// assignPriority derives a task's priority from the critical path and
// execution history.
func (e *Executor) assignPriority(idx, depth int) Priority {
	if e.plan.critical[idx] {
		return PriorityCritical
	}
	if stats := e.stats[idx]; stats.runs > 0 {
		if stats.mean() > time.Millisecond {
			return PriorityHigh
		}
		if stats.mean() < 100*time.Microsecond {
			return PriorityLow
		}
	}
	if depth == 0 {
		return PriorityHigh
	}
	return PriorityNormal
}

func (e *Executor) runSystem(idx int, w *World) (err error) {
	sys := e.plan.systems[idx]
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = SystemFailureError{
				System: sys.Name(),
				Err:    fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
		e.stats[idx].record(time.Since(start))
	}()
	if runErr := sys.Run(w, e.buffers[idx]); runErr != nil {
		return SystemFailureError{System: sys.Name(), Err: runErr}
	}
	return nil
}

// flushStage applies every command buffer recorded by the stage's systems, in
// submission order. Apply failures were already logged by the world; the
// frame continues.
func (e *Executor) flushStage(w *World, stage PlanStage) {
	members := append([]int(nil), stage.Systems...)
	sort.Ints(members)
	for _, idx := range members {
		buf := e.buffers[idx]
		if buf.Len() == 0 {
			continue
		}
		if err := w.FlushCommands(buf); err != nil {
			e.log.Warn().Err(err).Str("system", e.plan.systems[idx].Name()).
				Msg("deferred commands failed during flush")
		}
	}
}

func (e *Executor) recordFrame(d time.Duration) {
	e.frames++
	e.frameTotal += d
	e.lastFrame = d
}

// Profile returns the executor's timing snapshot.
func (e *Executor) Profile() ProfileSummary {
	summary := ProfileSummary{
		Frames:     e.frames,
		StageCount: len(e.plan.stages),
		LastFrame:  e.lastFrame,
	}
	if e.frames > 0 {
		summary.AvgFrame = e.frameTotal / time.Duration(e.frames)
	}
	for i, sys := range e.plan.systems {
		stats := e.stats[i]
		summary.Systems = append(summary.Systems, SystemProfile{
			Name: sys.Name(),
			Runs: stats.runs,
			Min:  stats.min,
			Avg:  stats.mean(),
			Max:  stats.max,
			Last: stats.last,
		})
	}
	return summary
}
