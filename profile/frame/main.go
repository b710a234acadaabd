// Profiling:
// go build ./profile/frame
// go tool pprof -http=":8000" -nodefraction=0.001 ./frame cpu.pprof

package main

import (
	"log"

	foreman "github.com/TheBitDrifter/foreman"
	"github.com/pkg/profile"
)

type position struct {
	X, Y, Z float64
}

type velocity struct {
	X, Y, Z float64
}

type health struct {
	Current, Max int
}

func main() {
	p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	run(100_000, 1000)
	p.Stop()
}

func run(numEntities, frames int) {
	w := foreman.NewWorld()
	if _, err := w.SpawnBatch(numEntities, position{}, velocity{X: 1, Y: 1}, health{Current: 100, Max: 100}); err != nil {
		log.Fatal(err)
	}

	posID := foreman.MustComponentID[position]()
	velID := foreman.MustComponentID[velocity]()
	healthID := foreman.MustComponentID[health]()

	movementQuery := foreman.NewQuery2[position, velocity](w, foreman.Mut[position]())
	movement := foreman.NewSystem("movement", foreman.NewAccess().Read(velID).Write(posID),
		func(w *foreman.World, _ *foreman.CommandBuffer) error {
			return movementQuery.ForEachParallel(func(_ foreman.Entity, pos *position, vel *velocity) {
				pos.X += vel.X
				pos.Y += vel.Y
			})
		})

	regenQuery := foreman.NewQuery1[health](w, foreman.Mut[health]())
	regen := foreman.NewSystem("regen", foreman.NewAccess().Write(healthID),
		func(w *foreman.World, _ *foreman.CommandBuffer) error {
			for regenQuery.Next() {
				hp := regenQuery.Get()
				if hp.Current < hp.Max {
					hp.Current++
				}
			}
			return nil
		})

	plan, err := foreman.NewSchedule().AddSystem(movement).AddSystem(regen).Build()
	if err != nil {
		log.Fatal(err)
	}
	exec := foreman.NewExecutor(plan)

	for range frames {
		if err := exec.ExecuteFrameParallel(w); err != nil {
			log.Fatal(err)
		}
	}
	log.Println(exec.Profile().AvgFrame)
}
