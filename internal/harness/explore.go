package harness

import (
	"context"
	"fmt"

	"github.com/roach88/rtfm/internal/apps"
	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
	"github.com/roach88/rtfm/internal/sym"
)

// ExploreStats summarizes the exploration of one task.
type ExploreStats struct {
	Task       string `json:"task"`
	Runs       int    `json:"runs"`       // body executions
	Paths      int    `json:"paths"`      // vectors emitted
	Faults     int    `json:"faults"`     // vectors with a fault outcome
	Suppressed int    `json:"suppressed"` // fault branches pruned at reported sites
	Aborted    int    `json:"aborted"`    // runs dropped without an outcome
}

// Report is the exploration of every task of an application.
type Report struct {
	App      string             `json:"app"`
	AppHash  string             `json:"app_hash"`
	Vectors  []ir.TestVector    `json:"vectors"`
	Stats    []ExploreStats     `json:"stats"`
	Warnings []resource.Warning `json:"warnings,omitempty"`
}

// Explore enumerates the feasible paths of one task. The vectors come out
// in depth-first order, which is stable for a given body but not part of
// the contract.
func Explore(ctx context.Context, app *apps.App, task string, opts ...Option) ([]ir.TestVector, *ExploreStats, error) {
	o := newOptions(opts)
	vectors, stats, _, err := explore(ctx, app, task, o)
	return vectors, stats, err
}

// ExploreApp explores every task in declaration order and reports
// declared resources no reachable path claims.
func ExploreApp(ctx context.Context, app *apps.App, opts ...Option) (*Report, error) {
	o := newOptions(opts)

	table, err := resource.Build(app.Spec)
	if err != nil {
		return nil, err
	}
	hash, err := ir.AppHash(app.Spec)
	if err != nil {
		return nil, err
	}

	report := &Report{App: app.Spec.Name, AppHash: hash, Vectors: []ir.TestVector{}}
	claimed := make(map[ir.TaskID]map[ir.ResourceID]bool)
	for _, t := range app.Spec.Tasks {
		vectors, stats, seen, err := explore(ctx, app, t.Name, o)
		if err != nil {
			return nil, fmt.Errorf("explore %s: %w", t.Name, err)
		}
		report.Vectors = append(report.Vectors, vectors...)
		report.Stats = append(report.Stats, *stats)
		claimed[t.ID] = seen
	}

	report.Warnings = table.UnclaimedWarnings(claimed)
	for _, w := range report.Warnings {
		o.logger.Warn("declared resource never claimed", "task", w.Task, "resource", w.Resource)
	}
	return report, nil
}

func explore(ctx context.Context, app *apps.App, task string, o *options) ([]ir.TestVector, *ExploreStats, map[ir.ResourceID]bool, error) {
	spec, ok := app.Spec.TaskByName(task)
	if !ok {
		return nil, nil, nil, fmt.Errorf("unknown task %q", task)
	}

	stats := &ExploreStats{Task: task}
	vectors := []ir.TestVector{}
	claimed := make(map[ir.ResourceID]bool)
	reported := make(map[string]bool)
	isReported := func(site string) bool { return reported[site] }

	stack := []sym.Alternative{{}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		alt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if alt.FaultSite != "" && reported[alt.FaultSite] {
			stats.Suppressed++
			continue
		}

		path := sym.NewPath(
			sym.WithPrefix(alt.Prefix),
			sym.WithReported(isReported),
			sym.WithSolver(o.solver),
			sym.WithMaxDecisions(o.maxDecisions),
		)
		e, err := engine.New(app.Spec, app.Bodies,
			engine.WithPath(path),
			engine.WithLogger(o.logger),
			engine.WithMaxCycles(o.maxCycles),
		)
		if err != nil {
			return nil, nil, nil, err
		}

		vars := make([]sym.Value, len(spec.Resources))
		for i, rid := range spec.Resources {
			r := app.Spec.Resource(rid)
			vars[i] = path.NewVar(r.Name, r.Width)
			if err := e.SetValue(r.Name, vars[i]); err != nil {
				return nil, nil, nil, err
			}
		}

		stats.Runs++
		out, abort, err := runPath(e, spec.ID)
		stack = append(stack, path.Alternatives()...)
		stats.Suppressed += path.Suppressed()
		for rid := range e.Claimed()[spec.ID] {
			claimed[rid] = true
		}

		switch {
		case err != nil && engine.IsBudgetError(err):
			stats.Aborted++
			o.logger.Warn("path exceeded cycle budget", "task", task, "path", path.Decisions())
			continue
		case err != nil:
			return nil, nil, nil, err
		case abort != nil:
			switch abort.Reason {
			case sym.AbortSuppressed:
			case sym.AbortAssumption:
				o.logger.Debug("path violates assumption", "task", task, "path", path.Decisions(), "site", abort.Site)
			default:
				stats.Aborted++
				o.logger.Warn("path aborted", "task", task, "path", path.Decisions(), "reason", abort.Reason, "site", abort.Site)
			}
			continue
		}

		if out.Fault != nil {
			if reported[out.Fault.Location] {
				stats.Suppressed++
				continue
			}
			reported[out.Fault.Location] = true
		}

		model, err := path.Model()
		if err != nil {
			stats.Aborted++
			o.logger.Warn("no model for path", "task", task, "error", err)
			continue
		}

		v := ir.TestVector{
			App:         app.Spec.Name,
			Task:        task,
			Path:        path.Decisions(),
			PathID:      ir.PathID(app.Spec.Name, task, path.Decisions()),
			Assignments: make([]ir.Assignment, len(vars)),
			Outcome:     out,
		}
		for i, rid := range spec.Resources {
			v.Assignments[i] = ir.Assignment{Resource: app.Spec.Resource(rid).Name, Value: sym.Eval(vars[i], model)}
		}
		v.ID = ir.MustVectorID(v)

		vectors = append(vectors, v)
		stats.Paths++
		if out.Fault != nil {
			stats.Faults++
		}
		o.logger.Debug("path explored", "task", task, "path", v.Path, "outcome", v.Outcome.String())
	}

	o.logger.Info("task explored",
		"task", task,
		"paths", stats.Paths,
		"faults", stats.Faults,
		"suppressed", stats.Suppressed)
	return vectors, stats, claimed, nil
}

// runPath invokes one activation and converts a path abort into a value.
func runPath(e *engine.Engine, task ir.TaskID) (out ir.Outcome, abort *sym.Abort, err error) {
	defer func() {
		if r := recover(); r != nil {
			a, ok := r.(*sym.Abort)
			if !ok {
				panic(r)
			}
			abort = a
		}
	}()
	out, err = e.Invoke(task)
	if err != nil {
		return ir.Outcome{}, nil, err
	}
	return runOutcome(out, e.Results()), nil, nil
}

// runOutcome is the outcome of an invoked activation together with the
// activations it pended: its own fault if it faulted, otherwise the first
// fault of a pended activation in completion order.
func runOutcome(out ir.Outcome, results []engine.Result) ir.Outcome {
	if out.Fault != nil {
		return out
	}
	for _, r := range results {
		if r.Outcome.Fault != nil {
			return r.Outcome
		}
	}
	return out
}
