package harness

import (
	"context"

	"github.com/roach88/rtfm/internal/apps"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
)

// Measure replays each vector alone, from a cycle counter at zero, and
// keeps the timing points of the vector's own activation. A vector whose
// replay does not reproduce its outcome is an error.
func Measure(ctx context.Context, app *apps.App, vectors []ir.TestVector, opts ...Option) ([]ir.Measurement, error) {
	o := newOptions(opts)
	table, err := resource.Build(app.Spec)
	if err != nil {
		return nil, err
	}

	out := make([]ir.Measurement, 0, len(vectors))
	for _, v := range vectors {
		outcome, records, err := replay(ctx, app, v, o)
		if err != nil {
			return nil, err
		}
		if err := checkReproduced(v, outcome); err != nil {
			return nil, err
		}
		m := ir.Measurement{VectorID: v.ID, Task: v.Task, Outcome: outcome, Events: timingPoints(app.Spec, table, v.Task, records)}
		out = append(out, m)
		o.logger.Debug("vector measured", "vector", v.ID, "task", v.Task, "events", len(m.Events))
	}
	return out, nil
}

// timingPoints keeps the start, enter, exit and finish records of the
// first activation of task.
func timingPoints(app *ir.AppSpec, table *resource.Table, task string, records []ir.TraceRecord) []ir.MeasureEvent {
	spec, _ := app.TaskByName(task)
	events := []ir.MeasureEvent{}
	depth := 0
	for _, r := range records {
		if r.Task != task {
			continue
		}
		ev := ir.MeasureEvent{Kind: r.Kind, Cycle: r.Cycle, Ceiling: spec.Priority}
		switch r.Kind {
		case ir.TraceStart:
			depth++
			if depth > 1 {
				continue
			}
		case ir.TraceFinish:
			depth--
			if depth > 0 {
				continue
			}
		case ir.TraceEnter, ir.TraceExit:
			if depth != 1 {
				continue
			}
			res, _ := app.ResourceByName(r.Resource)
			ev.Resource = r.Resource
			ev.Ceiling = table.Ceiling(res.ID)
		default:
			continue
		}
		ev.Seq = len(events)
		events = append(events, ev)
		if r.Kind == ir.TraceFinish {
			break
		}
	}
	return events
}
