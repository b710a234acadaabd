package foreman

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFilters(t *testing.T) {
	w := NewWorld()

	_, err := w.Spawn(TagA{}, TagB{})
	require.NoError(t, err)
	_, err = w.Spawn(TagA{})
	require.NoError(t, err)
	_, err = w.Spawn(TagB{})
	require.NoError(t, err)

	tests := []struct {
		name string
		n    int
	}{
		{"A", 2},
		{"A with B", 1},
		{"A without B", 1},
	}

	counts := []int{
		NewQuery1[TagA](w).Count(),
		NewQuery1[TagA](w, With[TagB]()).Count(),
		NewQuery1[TagA](w, Without[TagB]()).Count(),
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.n, counts[i])
		})
	}
}

func TestQueryIterationYieldsAllRows(t *testing.T) {
	w := NewWorld()
	for i := 0; i < 10; i++ {
		_, err := w.Spawn(Position{X: float64(i)}, Velocity{X: 1})
		require.NoError(t, err)
	}
	_, err := w.Spawn(Position{X: 100})
	require.NoError(t, err)

	q := NewQuery2[Position, Velocity](w)
	var xs []float64
	for q.Next() {
		pos, vel := q.Get()
		assert.Equal(t, 1.0, vel.X)
		xs = append(xs, pos.X)
	}
	require.Len(t, xs, 10)
	sort.Float64s(xs)
	for i, x := range xs {
		assert.Equal(t, float64(i), x)
	}
}

func TestQueryDoubleIterationSameMultiset(t *testing.T) {
	w := NewWorld()
	_, err := w.SpawnBatch(20, Position{X: 1})
	require.NoError(t, err)
	_, err = w.SpawnBatch(5, Position{X: 2}, Velocity{})
	require.NoError(t, err)

	collect := func(q *Query1[Position]) []float64 {
		var xs []float64
		for q.Next() {
			xs = append(xs, q.Get().X)
		}
		sort.Float64s(xs)
		return xs
	}

	q := NewQuery1[Position](w)
	first := collect(q)
	second := collect(q)
	assert.Equal(t, first, second)
}

func TestQueryEntityMarker(t *testing.T) {
	w := NewWorld()
	e, err := w.Spawn(Position{X: 7})
	require.NoError(t, err)

	q := NewQuery1[Position](w)
	require.True(t, q.Next())
	assert.Equal(t, e, q.Entity())
	q.Close()
}

func TestQueryCacheUpdatesIncrementally(t *testing.T) {
	w := NewWorld()
	_, err := w.Spawn(Position{})
	require.NoError(t, err)

	q := NewQuery1[Position](w)
	assert.Equal(t, 1, q.Count())
	matchedBefore := len(q.core.matched)

	// A new archetype appears after the query was built.
	_, err = w.Spawn(Position{}, Health{})
	require.NoError(t, err)

	assert.Equal(t, 2, q.Count())
	assert.Greater(t, len(q.core.matched), matchedBefore)

	// Archetypes that cannot match are not added.
	_, err = w.Spawn(Health{})
	require.NoError(t, err)
	assert.Equal(t, 2, q.Count())
}

func TestQueryChangeDetectionAcrossFrames(t *testing.T) {
	w := NewWorld()
	e, err := w.Spawn(Position{})
	require.NoError(t, err)

	q := NewQuery1[Position](w, Changed[Position]())

	countHits := func() int {
		n := 0
		for q.Next() {
			n++
		}
		return n
	}

	// Frame 1: the component was added this frame, so it counts as changed.
	w.IncrementTick()
	assert.Equal(t, 1, countHits())

	// Frame 2: untouched, no hits.
	w.IncrementTick()
	assert.Equal(t, 0, countHits())

	// Frame 3: mutated through GetMut, one hit.
	w.IncrementTick()
	_, err = GetMut[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, 1, countHits())
}

func TestQueryAddedFiresExactlyOnce(t *testing.T) {
	w := NewWorld()
	e, err := w.Spawn(Position{})
	require.NoError(t, err)

	q := NewQuery1[Position](w, Added[Position]())
	countHits := func() int {
		n := 0
		for q.Next() {
			n++
		}
		return n
	}

	w.IncrementTick()
	assert.Equal(t, 1, countHits())

	// Mutation does not re-trigger Added.
	w.IncrementTick()
	_, err = GetMut[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, 0, countHits())

	// Migrating to another archetype keeps the added tick.
	w.IncrementTick()
	require.NoError(t, Add(w, e, Health{}))
	assert.Equal(t, 0, countHits())

	// A fresh instance of the component fires again.
	w.IncrementTick()
	require.NoError(t, Remove[Position](w, e))
	require.NoError(t, Add(w, e, Position{}))
	assert.Equal(t, 1, countHits())
}

func TestQueryMutStampsOnYield(t *testing.T) {
	w := NewWorld()
	_, err := w.Spawn(Position{}, Velocity{X: 1})
	require.NoError(t, err)

	writer := NewQuery2[Position, Velocity](w, Mut[Position]())
	reader := NewQuery1[Position](w, Changed[Position]())

	// Drain the spawn-time change so only the write is visible.
	w.IncrementTick()
	for reader.Next() {
	}

	w.IncrementTick()
	for writer.Next() {
		pos, vel := writer.Get()
		pos.X += vel.X
	}

	w.IncrementTick()
	hits := 0
	for reader.Next() {
		hits++
	}
	assert.Equal(t, 1, hits, "write through a Mut query must trip Changed")
}

func TestQueryReadDoesNotTripChanged(t *testing.T) {
	w := NewWorld()
	_, err := w.Spawn(Position{})
	require.NoError(t, err)

	readOnly := NewQuery1[Position](w)
	reader := NewQuery1[Position](w, Changed[Position]())

	w.IncrementTick()
	for reader.Next() {
	}

	w.IncrementTick()
	for readOnly.Next() {
	}

	w.IncrementTick()
	hits := 0
	for reader.Next() {
		hits++
	}
	assert.Equal(t, 0, hits)
}

func TestQueryDuplicateFetchPanics(t *testing.T) {
	w := NewWorld()
	assert.Panics(t, func() {
		NewQuery2[Position, Position](w)
	})
}

func TestQueryMutOfUnfetchedPanics(t *testing.T) {
	w := NewWorld()
	assert.Panics(t, func() {
		NewQuery1[Position](w, Mut[Velocity]())
	})
}

func TestQueryMissingColumnIsNonMatch(t *testing.T) {
	w := NewWorld()
	_, err := w.Spawn(Position{})
	require.NoError(t, err)

	q := NewQuery2[Position, Velocity](w)
	assert.Equal(t, 0, q.Count())
	assert.False(t, q.Next())
}

func TestQueryForEachParallel(t *testing.T) {
	w := NewWorld()
	const n = 10_000
	_, err := w.SpawnBatch(n, Position{}, Velocity{X: 1})
	require.NoError(t, err)
	_, err = w.SpawnBatch(100, Position{}, Velocity{X: 1}, Health{})
	require.NoError(t, err)

	q := NewQuery2[Position, Velocity](w, Mut[Position]())
	var mu sync.Mutex
	visited := 0
	err = q.ForEachParallel(func(_ Entity, pos *Position, vel *Velocity) {
		pos.X += vel.X
		mu.Lock()
		visited++
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, n+100, visited)

	sum := 0.0
	check := NewQuery1[Position](w)
	for check.Next() {
		sum += check.Get().X
	}
	assert.Equal(t, float64(n+100), sum)
}

func TestQueryChunksAndTiles(t *testing.T) {
	w := NewWorld()
	_, err := w.SpawnBatch(100, Position{X: 1}, Velocity{X: 2})
	require.NoError(t, err)

	q := NewQuery2[Position, Velocity](w)
	rows := 0
	tiles := 0
	q.Chunks(func(c Chunk2[Position, Velocity]) {
		require.Equal(t, len(c.Entities), len(c.A))
		require.Equal(t, len(c.Entities), len(c.B))
		c.Tiles(func(tile Chunk2[Position, Velocity]) {
			tiles++
			for i := range tile.A {
				tile.A[i].X += tile.B[i].X
				rows++
			}
		})
	})
	assert.Equal(t, 100, rows)
	assert.Greater(t, tiles, 1)

	p, _ := Get[Position](w, Entity{ID: 0, Version: 1})
	assert.Equal(t, 3.0, p.X)
}
