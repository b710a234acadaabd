package foreman

import (
	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
)

// QueryOption narrows or annotates a query beyond its fetched component
// types.
type QueryOption func(*queryOptions)

type queryOptions struct {
	with    []ComponentID
	without []ComponentID
	added   []ComponentID
	changed []ComponentID
	muts    []ComponentID
}

// With matches only archetypes containing T without fetching it.
func With[T any]() QueryOption {
	id := MustComponentID[T]()
	return func(o *queryOptions) { o.with = append(o.with, id) }
}

// Without excludes archetypes containing T.
func Without[T any]() QueryOption {
	id := MustComponentID[T]()
	return func(o *queryOptions) { o.without = append(o.without, id) }
}

// Added keeps only rows whose T was added after the query's previous
// completed iteration.
func Added[T any]() QueryOption {
	id := MustComponentID[T]()
	return func(o *queryOptions) { o.added = append(o.added, id) }
}

// Changed keeps only rows whose T was written through mutable access after
// the query's previous completed iteration.
func Changed[T any]() QueryOption {
	id := MustComponentID[T]()
	return func(o *queryOptions) { o.changed = append(o.changed, id) }
}

// Mut declares that the query writes T. Rows yielded by the query have T's
// changed tick stamped with the current world tick. T must be one of the
// query's fetched type parameters.
func Mut[T any]() QueryOption {
	id := MustComponentID[T]()
	return func(o *queryOptions) { o.muts = append(o.muts, id) }
}

// queryCore is the shared engine behind the typed query cursors: archetype
// matching with an incrementally revalidated cache, row iteration with
// change-detection filters, and write stamping.
type queryCore struct {
	world   *World
	include mask.Mask
	exclude mask.Mask
	fetch   []ComponentID
	writes  []bool // parallel to fetch
	added   []ComponentID
	changed []ComponentID

	matched   []archetypeID
	lastCount int
	lastRun   uint32

	// iteration state
	filterTick  uint32
	arch        *archetype
	fetchCols   []*column
	addedCols   []*column
	changedCols []*column
	matchIdx    int
	row         int
	active      bool
}

func (q *queryCore) init(w *World, fetch []ComponentID, opts []QueryOption) {
	var o queryOptions
	for _, opt := range opts {
		opt(&o)
	}

	for i, a := range fetch {
		for j := 0; j < i; j++ {
			if fetch[j] == a {
				panic(bark.AddTrace(QueryConflictError{Component: a}))
			}
		}
	}
	q.world = w
	q.fetch = fetch
	q.writes = make([]bool, len(fetch))
	for _, m := range o.muts {
		found := false
		for i, f := range fetch {
			if f == m {
				q.writes[i] = true
				found = true
			}
		}
		if !found {
			panic(bark.AddTrace(QueryConflictError{Component: m}))
		}
	}
	for _, id := range fetch {
		q.include.Mark(uint32(id))
	}
	for _, id := range o.with {
		q.include.Mark(uint32(id))
	}
	for _, id := range o.added {
		q.include.Mark(uint32(id))
	}
	for _, id := range o.changed {
		q.include.Mark(uint32(id))
	}
	for _, id := range o.without {
		q.exclude.Mark(uint32(id))
	}
	q.added = o.added
	q.changed = o.changed
	q.fetchCols = make([]*column, len(fetch))
	q.addedCols = make([]*column, len(o.added))
	q.changedCols = make([]*column, len(o.changed))
	q.refresh()
}

// refresh revalidates the matched-archetype cache. Archetypes are only ever
// appended, so when the count grew only the new tail is tested.
func (q *queryCore) refresh() {
	count := len(q.world.archetypes)
	if count == q.lastCount {
		return
	}
	for id := q.lastCount; id < count; id++ {
		if q.matches(q.world.archetypes[id]) {
			q.matched = append(q.matched, archetypeID(id))
		}
	}
	q.lastCount = count
}

func (q *queryCore) matches(a *archetype) bool {
	if !a.mask.ContainsAll(q.include) {
		return false
	}
	return q.exclude == (mask.Mask{}) || a.mask.ContainsNone(q.exclude)
}

// begin opens an iteration: the cache is revalidated, the change-filter
// threshold is captured, and the world is locked against structural edits.
func (q *queryCore) begin() {
	q.refresh()
	q.filterTick = q.lastRun
	q.world.addLock()
	q.active = true
	q.arch = nil
	q.matchIdx = 0
	q.row = -1
}

// close ends an iteration: the last-run tick advances to the current world
// tick and the world lock is released. next calls it automatically on
// exhaustion; callers breaking early must call it themselves (the typed
// cursors expose it as Close).
func (q *queryCore) close() {
	if !q.active {
		return
	}
	q.active = false
	q.lastRun = q.world.tick
	q.world.popLock()
}

// next advances to the next row passing every filter, stamping declared
// writes. It returns false, closing the iteration, when no rows remain.
func (q *queryCore) next() bool {
	if !q.active {
		q.begin()
	}
	for {
		q.row++
		if q.arch == nil || q.row >= q.arch.len() {
			if !q.advanceArchetype() {
				q.close()
				return false
			}
			continue
		}
		if !q.rowPasses(q.row) {
			continue
		}
		for i, col := range q.fetchCols {
			if q.writes[i] {
				col.markChanged(q.row, q.world.tick)
			}
		}
		return true
	}
}

func (q *queryCore) advanceArchetype() bool {
	for q.matchIdx < len(q.matched) {
		a := q.world.archetypes[q.matched[q.matchIdx]]
		q.matchIdx++
		if a.len() == 0 {
			continue
		}
		q.arch = a
		q.row = -1
		q.bindColumns(a)
		return true
	}
	return false
}

func (q *queryCore) bindColumns(a *archetype) {
	for i, id := range q.fetch {
		q.fetchCols[i] = a.column(id)
	}
	for i, id := range q.added {
		q.addedCols[i] = a.column(id)
	}
	for i, id := range q.changed {
		q.changedCols[i] = a.column(id)
	}
}

// rowPasses applies the Added and Changed row filters using the threshold
// captured when the iteration began.
func (q *queryCore) rowPasses(row int) bool {
	for _, col := range q.addedCols {
		tick, ok := col.addedTick(row)
		if !ok || tick <= q.filterTick {
			return false
		}
	}
	for _, col := range q.changedCols {
		tick, ok := col.changedTick(row)
		if !ok || tick <= q.filterTick {
			return false
		}
	}
	return true
}

func (q *queryCore) entity() Entity {
	return q.arch.entities[q.row]
}

func (q *queryCore) fetchPtr(i int) unsafePointer {
	return q.fetchCols[i].ptr(q.row)
}

// count tallies rows passing the filters without consuming change-detection
// state and without stamping writes.
func (q *queryCore) count() int {
	q.refresh()
	total := 0
	if len(q.added) == 0 && len(q.changed) == 0 {
		for _, id := range q.matched {
			total += q.world.archetypes[id].len()
		}
		return total
	}
	for _, id := range q.matched {
		a := q.world.archetypes[id]
		if a.len() == 0 {
			continue
		}
		q.bindColumns(a)
		saved := q.filterTick
		q.filterTick = q.lastRun
		for row := 0; row < a.len(); row++ {
			if q.rowPasses(row) {
				total++
			}
		}
		q.filterTick = saved
	}
	if q.active && q.arch != nil {
		q.bindColumns(q.arch)
	}
	return total
}
