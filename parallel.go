package foreman

import (
	"unsafe"

	"golang.org/x/sync/errgroup"
)

// tileByteBudget bounds a tile's per-component slice so inner loops stay
// within a small fixed footprint the compiler can vectorize.
const tileByteBudget = 32

func tileRows(itemSize uintptr) int {
	if itemSize == 0 {
		return tileByteBudget
	}
	n := int(tileByteBudget / itemSize)
	if n < 1 {
		return 1
	}
	return n
}

// forEachParallel fans the query's rows out across the worker pool. Each
// archetype is split into contiguous row ranges; workers receive disjoint
// ranges, apply the Added/Changed filters, stamp declared writes, and invoke
// visit per row. The world stays locked for the duration, so visit must not
// perform structural edits directly.
func (q *queryCore) forEachParallel(visit func(a *archetype, cols []*column, row int)) error {
	q.refresh()
	filterTick := q.lastRun
	workers := Config.Workers
	if workers < 1 {
		workers = 1
	}

	q.world.addLock()
	defer func() {
		q.lastRun = q.world.tick
		q.world.popLock()
	}()

	var g errgroup.Group
	g.SetLimit(workers)
	tick := q.world.tick

	for _, id := range q.matched {
		a := q.world.archetypes[id]
		n := a.len()
		if n == 0 {
			continue
		}
		cols := make([]*column, len(q.fetch))
		for i, cid := range q.fetch {
			cols[i] = a.column(cid)
		}
		addedCols := make([]*column, len(q.added))
		for i, cid := range q.added {
			addedCols[i] = a.column(cid)
		}
		changedCols := make([]*column, len(q.changed))
		for i, cid := range q.changed {
			changedCols[i] = a.column(cid)
		}

		chunk := (n + workers - 1) / workers
		if chunk < 1 {
			chunk = 1
		}
		for start := 0; start < n; start += chunk {
			end := start + chunk
			if end > n {
				end = n
			}
			arch, s, e := a, start, end
			g.Go(func() error {
				for row := s; row < e; row++ {
					if !rowPassesCols(addedCols, changedCols, row, filterTick) {
						continue
					}
					for i, col := range cols {
						if q.writes[i] {
							col.markChanged(row, tick)
						}
					}
					visit(arch, cols, row)
				}
				return nil
			})
		}
	}
	return g.Wait()
}

func rowPassesCols(addedCols, changedCols []*column, row int, filterTick uint32) bool {
	for _, col := range addedCols {
		tick, ok := col.addedTick(row)
		if !ok || tick <= filterTick {
			return false
		}
	}
	for _, col := range changedCols {
		tick, ok := col.changedTick(row)
		if !ok || tick <= filterTick {
			return false
		}
	}
	return true
}

// chunks visits each non-empty matched archetype once with its bound columns.
// Declared writes stamp every row up front; Added/Changed row filters do not
// apply to chunk iteration.
func (q *queryCore) chunks(fn func(a *archetype, cols []*column)) {
	q.refresh()
	q.world.addLock()
	defer q.world.popLock()

	tick := q.world.tick
	for _, id := range q.matched {
		a := q.world.archetypes[id]
		if a.len() == 0 {
			continue
		}
		cols := make([]*column, len(q.fetch))
		for i, cid := range q.fetch {
			cols[i] = a.column(cid)
			if q.writes[i] {
				for row := 0; row < a.len(); row++ {
					cols[i].markChanged(row, tick)
				}
			}
		}
		fn(a, cols)
	}
}

// Chunk1 is one archetype's rows viewed as parallel slices.
type Chunk1[A any] struct {
	Entities []Entity
	A        []A
}

// Tiles subdivides the chunk into fixed-size tiles sized to the tile byte
// budget of A.
func (c Chunk1[A]) Tiles(fn func(Chunk1[A])) {
	var a A
	step := tileRows(unsafe.Sizeof(a))
	for s := 0; s < len(c.Entities); s += step {
		e := min(s+step, len(c.Entities))
		fn(Chunk1[A]{Entities: c.Entities[s:e], A: c.A[s:e]})
	}
}

// Chunk2 is one archetype's rows viewed as parallel slices.
type Chunk2[A, B any] struct {
	Entities []Entity
	A        []A
	B        []B
}

// Tiles subdivides the chunk into fixed-size tiles sized to the tile byte
// budget of the largest component.
func (c Chunk2[A, B]) Tiles(fn func(Chunk2[A, B])) {
	var a A
	var b B
	step := tileRows(max(unsafe.Sizeof(a), unsafe.Sizeof(b)))
	for s := 0; s < len(c.Entities); s += step {
		e := min(s+step, len(c.Entities))
		fn(Chunk2[A, B]{Entities: c.Entities[s:e], A: c.A[s:e], B: c.B[s:e]})
	}
}

// Chunk3 is one archetype's rows viewed as parallel slices.
type Chunk3[A, B, C any] struct {
	Entities []Entity
	A        []A
	B        []B
	C        []C
}

// Tiles subdivides the chunk into fixed-size tiles sized to the tile byte
// budget of the largest component.
func (c Chunk3[A, B, C]) Tiles(fn func(Chunk3[A, B, C])) {
	var a A
	var b B
	var cc C
	step := tileRows(max(unsafe.Sizeof(a), unsafe.Sizeof(b), unsafe.Sizeof(cc)))
	for s := 0; s < len(c.Entities); s += step {
		e := min(s+step, len(c.Entities))
		fn(Chunk3[A, B, C]{Entities: c.Entities[s:e], A: c.A[s:e], B: c.B[s:e], C: c.C[s:e]})
	}
}
