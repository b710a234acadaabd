// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"log"

	foreman "github.com/TheBitDrifter/foreman"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	rounds := 50
	iters := 1000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(rounds, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := foreman.NewWorld()
		query := foreman.NewQuery2[comp1, comp2](w, foreman.Mut[comp1]())
		buf := foreman.NewCommandBuffer()

		for range iters {
			if _, err := w.SpawnBatch(numEntities, comp1{}, comp2{V: 1, W: 2}); err != nil {
				log.Fatal(err)
			}
			for query.Next() {
				c1, c2 := query.Get()
				c1.V += c2.V
				c1.W += c2.W
				buf.Despawn(query.Entity())
			}
			if err := w.FlushCommands(buf); err != nil {
				log.Fatal(err)
			}
		}
	}
}
