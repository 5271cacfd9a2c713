package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/rtfm/internal/apps"
	"github.com/roach88/rtfm/internal/compiler"
	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/sym"
)

// ResolveApp returns the application a scenario runs: the built-in one,
// or its bodies paired with the scenario's own declaration.
func ResolveApp(s *Scenario) (*apps.App, error) {
	if s.Spec == "" {
		return apps.Lookup(s.App)
	}
	spec, err := compiler.LoadApp(s.Spec)
	if err != nil {
		return nil, fmt.Errorf("load spec %s: %w", s.Spec, err)
	}
	return apps.WithSpec(s.App, spec)
}

// Run executes a scenario on the concrete scheduler until nothing is
// pending and the schedule is exhausted, then evaluates its assertions.
//
// Failed assertions are reported in the result. An error means the
// scenario could not run: unknown app, task or resource, or an exhausted
// cycle budget.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	o := newOptions(opts)
	app, err := ResolveApp(s)
	if err != nil {
		return nil, err
	}

	maxCycles := o.maxCycles
	if s.MaxCycles > 0 {
		maxCycles = s.MaxCycles
	}
	rec := engine.NewRecorder()
	engineOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithObserver(rec),
		engine.WithLabel(s.Name),
		engine.WithMaxCycles(maxCycles),
	}
	for _, obs := range o.observers {
		engineOpts = append(engineOpts, engine.WithObserver(obs))
	}
	e, err := engine.New(app.Spec, app.Bodies, engineOpts...)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := e.SetValue(name, sym.Const(s.Values[name])); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}
	for i, step := range s.Schedule {
		id, ok := e.Dispatch().Lookup(step.Task)
		if !ok {
			return nil, fmt.Errorf("scenario %s: schedule[%d]: unknown task %q", s.Name, i, step.Task)
		}
		e.Schedule(step.At, id)
	}

	o.logger.Info("scenario starting", "scenario", s.Name, "app", app.Spec.Name, "activations", len(s.Schedule))
	if err := e.RunUntilIdle(ctx); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult()
	result.Trace = rec.Records()
	result.Activations = e.Results()
	for _, r := range app.Spec.Resources {
		v, _ := e.Value(r.Name)
		result.Final[r.Name] = v.Uint32()
	}

	for _, msg := range EvaluateAssertions(result, s.Assertions) {
		result.AddError(msg)
	}
	o.logger.Info("scenario finished", "scenario", s.Name, "pass", result.Pass, "events", len(result.Trace))
	return result, nil
}
