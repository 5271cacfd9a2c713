//go:build property
// +build property

package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/sym"
)

// randomApp builds four tasks over two resources. Task 0 uses both so
// every resource has an accessor.
func randomApp(prios []uint8, uses []uint8) *ir.AppSpec {
	app := &ir.AppSpec{
		Name: "random",
		Resources: []ir.ResourceSpec{
			{ID: 0, Name: "R0", Width: 32},
			{ID: 1, Name: "R1", Width: 32},
		},
	}
	for i := 0; i < 4; i++ {
		mask := uses[i] % 4
		if i == 0 {
			mask = 3
		}
		var rs []ir.ResourceID
		for r := 0; r < 2; r++ {
			if mask&(1<<r) != 0 {
				rs = append(rs, ir.ResourceID(r))
			}
		}
		app.Tasks = append(app.Tasks, ir.TaskSpec{
			ID:        ir.TaskID(i),
			Name:      fmt.Sprintf("T%d", i),
			Priority:  ir.Priority(prios[i]%4 + 1),
			Resources: rs,
		})
	}
	return app
}

func claimAll(ctx *Context, names []string) {
	if len(names) == 0 {
		ctx.WrappingAdd(sym.Const(1), sym.Const(1))
		return
	}
	ctx.Claim(names[0], func(c *Cell, ctx *Context) {
		c.Set(ctx.WrappingAdd(c.Get(), sym.ConstOf(1, 32)))
		claimAll(ctx, names[1:])
		c.Set(ctx.WrappingAdd(c.Get(), sym.ConstOf(1, 32)))
	})
}

func randomBodies(app *ir.AppSpec) Bodies {
	bodies := Bodies{}
	for _, task := range app.Tasks {
		var names []string
		for _, r := range task.Resources {
			names = append(names, app.Resource(r).Name)
		}
		bodies[task.Name] = func(ctx *Context) { claimAll(ctx, names) }
	}
	return bodies
}

// TestCeilingSoundness checks the two scheduling invariants on random
// applications and arrival patterns.
// Property: a task starts only above the ceiling of every held resource,
// and only above the priority of every frame it preempts.
func TestCeilingSoundness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("no start below a held ceiling or an equal frame", prop.ForAll(
		func(prios, uses, ats, tasks []uint8) bool {
			app := randomApp(prios, uses)
			holders := map[string]int{}
			var running []ir.Priority
			ok := true
			var e *Engine
			obs := ObserverFunc(func(rec ir.TraceRecord) {
				id, _ := e.Dispatch().Lookup(rec.Task)
				prio := app.Task(id).Priority
				switch rec.Kind {
				case ir.TraceStart:
					for name, n := range holders {
						r, _ := app.ResourceByName(name)
						if n > 0 && e.Table().Ceiling(r.ID) >= prio {
							ok = false
						}
					}
					for _, p := range running {
						if p >= prio {
							ok = false
						}
					}
					running = append(running, prio)
				case ir.TraceFinish:
					running = running[:len(running)-1]
				case ir.TraceEnter:
					holders[rec.Resource]++
				case ir.TraceExit:
					holders[rec.Resource]--
				}
			})

			var err error
			e, err = New(app, randomBodies(app), WithLogger(quiet), WithObserver(obs))
			if err != nil {
				return false
			}
			n := min(len(ats), len(tasks))
			for i := 0; i < n; i++ {
				e.Schedule(int64(ats[i]%24), ir.TaskID(tasks[i]%4))
			}
			if err := e.RunUntilIdle(context.Background()); err != nil {
				return false
			}
			return ok && len(e.Results()) == n && e.Threshold() == ir.IdlePriority
		},
		gen.SliceOfN(4, gen.UInt8()),
		gen.SliceOfN(4, gen.UInt8()),
		gen.SliceOfN(8, gen.UInt8()),
		gen.SliceOfN(8, gen.UInt8()),
	))

	properties.TestingRun(t)
}
