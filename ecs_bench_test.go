package foreman

import (
	"testing"
)

type benchPosition struct {
	X, Y, Z float64
}

type benchVelocity struct {
	X, Y, Z float64
}

func BenchmarkSpawn(b *testing.B) {
	w := NewWorld()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := w.Spawn(benchPosition{}, benchVelocity{X: 1}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSpawnBatch(b *testing.B) {
	for i := 0; i < b.N; i++ {
		w := NewWorld()
		if _, err := w.SpawnBatch(10_000, benchPosition{}, benchVelocity{X: 1}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQueryIterate(b *testing.B) {
	w := NewWorld()
	if _, err := w.SpawnBatch(100_000, benchPosition{}, benchVelocity{X: 1}); err != nil {
		b.Fatal(err)
	}
	q := NewQuery2[benchPosition, benchVelocity](w, Mut[benchPosition]())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for q.Next() {
			pos, vel := q.Get()
			pos.X += vel.X
		}
	}
}

func BenchmarkQueryChunks(b *testing.B) {
	w := NewWorld()
	if _, err := w.SpawnBatch(100_000, benchPosition{}, benchVelocity{X: 1}); err != nil {
		b.Fatal(err)
	}
	q := NewQuery2[benchPosition, benchVelocity](w, Mut[benchPosition]())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Chunks(func(c Chunk2[benchPosition, benchVelocity]) {
			for j := range c.A {
				c.A[j].X += c.B[j].X
			}
		})
	}
}

func BenchmarkQueryParallel(b *testing.B) {
	w := NewWorld()
	if _, err := w.SpawnBatch(100_000, benchPosition{}, benchVelocity{X: 1}); err != nil {
		b.Fatal(err)
	}
	q := NewQuery2[benchPosition, benchVelocity](w, Mut[benchPosition]())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := q.ForEachParallel(func(_ Entity, pos *benchPosition, vel *benchVelocity) {
			pos.X += vel.X
		}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAddRemoveComponent(b *testing.B) {
	w := NewWorld()
	entities, err := w.SpawnBatch(1, benchPosition{})
	if err != nil {
		b.Fatal(err)
	}
	e := entities[0]
	velID := MustComponentID[benchVelocity]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := w.AddComponent(e, benchVelocity{}); err != nil {
			b.Fatal(err)
		}
		if err := w.RemoveComponent(e, velID); err != nil {
			b.Fatal(err)
		}
	}
}
