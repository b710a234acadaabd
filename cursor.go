package foreman

import "unsafe"

type unsafePointer = unsafe.Pointer

// Typed query cursors. Each cursor caches its matched archetypes, iterates
// archetype by archetype and row by row, and hands back typed pointers into
// the current row. Construct once and reuse across frames; the archetype
// cache revalidates itself incrementally.
//
// A cursor locks the world while an iteration is open. Next releases the lock
// when it returns false; callers that stop early must call Close.

// Query1 iterates entities holding component A.
type Query1[A any] struct {
	core queryCore
}

// NewQuery1 builds a cursor over entities with component A.
func NewQuery1[A any](w *World, opts ...QueryOption) *Query1[A] {
	q := &Query1[A]{}
	q.core.init(w, []ComponentID{MustComponentID[A]()}, opts)
	return q
}

// Next advances to the next matching row, returning false when exhausted.
func (q *Query1[A]) Next() bool {
	return q.core.next()
}

// Get returns the current row's component.
func (q *Query1[A]) Get() *A {
	return (*A)(q.core.fetchPtr(0))
}

// Entity returns the current row's entity handle.
func (q *Query1[A]) Entity() Entity {
	return q.core.entity()
}

// Close ends an iteration early, releasing the world lock.
func (q *Query1[A]) Close() {
	q.core.close()
}

// Count tallies matching rows without consuming change-detection state.
func (q *Query1[A]) Count() int {
	return q.core.count()
}

// ForEach runs fn for every matching row and closes the iteration.
func (q *Query1[A]) ForEach(fn func(Entity, *A)) {
	for q.Next() {
		fn(q.Entity(), q.Get())
	}
}

// ForEachParallel fans matching rows out across the worker pool. See
// queryCore.forEachParallel for the chunking strategy.
func (q *Query1[A]) ForEachParallel(fn func(Entity, *A)) error {
	return q.core.forEachParallel(func(a *archetype, cols []*column, row int) {
		fn(a.entities[row], (*A)(cols[0].ptr(row)))
	})
}

// Chunks visits each matched archetype as parallel typed slices, suitable for
// vectorizable loops. Added/Changed row filters do not apply to chunk
// iteration; declared writes stamp every visited row.
func (q *Query1[A]) Chunks(fn func(Chunk1[A])) {
	q.core.chunks(func(a *archetype, cols []*column) {
		fn(Chunk1[A]{
			Entities: a.entities,
			A:        columnSlice[A](cols[0]),
		})
	})
}

// Query2 iterates entities holding components A and B.
type Query2[A, B any] struct {
	core queryCore
}

// NewQuery2 builds a cursor over entities with components A and B.
func NewQuery2[A, B any](w *World, opts ...QueryOption) *Query2[A, B] {
	q := &Query2[A, B]{}
	q.core.init(w, []ComponentID{MustComponentID[A](), MustComponentID[B]()}, opts)
	return q
}

func (q *Query2[A, B]) Next() bool {
	return q.core.next()
}

// Get returns the current row's components.
func (q *Query2[A, B]) Get() (*A, *B) {
	return (*A)(q.core.fetchPtr(0)), (*B)(q.core.fetchPtr(1))
}

func (q *Query2[A, B]) Entity() Entity {
	return q.core.entity()
}

func (q *Query2[A, B]) Close() {
	q.core.close()
}

func (q *Query2[A, B]) Count() int {
	return q.core.count()
}

func (q *Query2[A, B]) ForEach(fn func(Entity, *A, *B)) {
	for q.Next() {
		a, b := q.Get()
		fn(q.Entity(), a, b)
	}
}

func (q *Query2[A, B]) ForEachParallel(fn func(Entity, *A, *B)) error {
	return q.core.forEachParallel(func(a *archetype, cols []*column, row int) {
		fn(a.entities[row], (*A)(cols[0].ptr(row)), (*B)(cols[1].ptr(row)))
	})
}

func (q *Query2[A, B]) Chunks(fn func(Chunk2[A, B])) {
	q.core.chunks(func(a *archetype, cols []*column) {
		fn(Chunk2[A, B]{
			Entities: a.entities,
			A:        columnSlice[A](cols[0]),
			B:        columnSlice[B](cols[1]),
		})
	})
}

// Query3 iterates entities holding components A, B and C.
type Query3[A, B, C any] struct {
	core queryCore
}

// NewQuery3 builds a cursor over entities with components A, B and C.
func NewQuery3[A, B, C any](w *World, opts ...QueryOption) *Query3[A, B, C] {
	q := &Query3[A, B, C]{}
	q.core.init(w, []ComponentID{
		MustComponentID[A](), MustComponentID[B](), MustComponentID[C](),
	}, opts)
	return q
}

func (q *Query3[A, B, C]) Next() bool {
	return q.core.next()
}

func (q *Query3[A, B, C]) Get() (*A, *B, *C) {
	return (*A)(q.core.fetchPtr(0)), (*B)(q.core.fetchPtr(1)), (*C)(q.core.fetchPtr(2))
}

func (q *Query3[A, B, C]) Entity() Entity {
	return q.core.entity()
}

func (q *Query3[A, B, C]) Close() {
	q.core.close()
}

func (q *Query3[A, B, C]) Count() int {
	return q.core.count()
}

func (q *Query3[A, B, C]) ForEach(fn func(Entity, *A, *B, *C)) {
	for q.Next() {
		a, b, c := q.Get()
		fn(q.Entity(), a, b, c)
	}
}

func (q *Query3[A, B, C]) ForEachParallel(fn func(Entity, *A, *B, *C)) error {
	return q.core.forEachParallel(func(a *archetype, cols []*column, row int) {
		fn(a.entities[row], (*A)(cols[0].ptr(row)), (*B)(cols[1].ptr(row)), (*C)(cols[2].ptr(row)))
	})
}

func (q *Query3[A, B, C]) Chunks(fn func(Chunk3[A, B, C])) {
	q.core.chunks(func(a *archetype, cols []*column) {
		fn(Chunk3[A, B, C]{
			Entities: a.entities,
			A:        columnSlice[A](cols[0]),
			B:        columnSlice[B](cols[1]),
			C:        columnSlice[C](cols[2]),
		})
	})
}

// Query4 iterates entities holding components A, B, C and D.
type Query4[A, B, C, D any] struct {
	core queryCore
}

// NewQuery4 builds a cursor over entities with components A, B, C and D.
func NewQuery4[A, B, C, D any](w *World, opts ...QueryOption) *Query4[A, B, C, D] {
	q := &Query4[A, B, C, D]{}
	q.core.init(w, []ComponentID{
		MustComponentID[A](), MustComponentID[B](), MustComponentID[C](), MustComponentID[D](),
	}, opts)
	return q
}

func (q *Query4[A, B, C, D]) Next() bool {
	return q.core.next()
}

func (q *Query4[A, B, C, D]) Get() (*A, *B, *C, *D) {
	return (*A)(q.core.fetchPtr(0)), (*B)(q.core.fetchPtr(1)),
		(*C)(q.core.fetchPtr(2)), (*D)(q.core.fetchPtr(3))
}

func (q *Query4[A, B, C, D]) Entity() Entity {
	return q.core.entity()
}

func (q *Query4[A, B, C, D]) Close() {
	q.core.close()
}

func (q *Query4[A, B, C, D]) Count() int {
	return q.core.count()
}

func (q *Query4[A, B, C, D]) ForEach(fn func(Entity, *A, *B, *C, *D)) {
	for q.Next() {
		a, b, c, d := q.Get()
		fn(q.Entity(), a, b, c, d)
	}
}
