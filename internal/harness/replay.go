package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/rtfm/internal/apps"
	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/sym"
)

// ErrOutcomeMismatch is wrapped by replays whose outcome differs from the
// recorded one.
var ErrOutcomeMismatch = errors.New("outcome mismatch")

// Replay runs the vector's task once on the concrete scheduler with the
// vector's assignments and returns the observed outcome. A fault in an
// activation the task pended counts as the outcome of the vector.
func Replay(ctx context.Context, app *apps.App, v ir.TestVector, opts ...Option) (ir.Outcome, error) {
	o := newOptions(opts)
	out, _, err := replay(ctx, app, v, o)
	return out, err
}

// Mismatch is a vector whose replay did not reproduce its outcome.
type Mismatch struct {
	Vector   ir.TestVector `json:"vector"`
	Observed ir.Outcome    `json:"observed"`
}

// ReplayAll replays every vector and returns those that did not reproduce.
func ReplayAll(ctx context.Context, app *apps.App, vectors []ir.TestVector, opts ...Option) ([]Mismatch, error) {
	o := newOptions(opts)
	mismatches := []Mismatch{}
	for _, v := range vectors {
		out, _, err := replay(ctx, app, v, o)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", v.ID, err)
		}
		if !out.Equal(v.Outcome) {
			o.logger.Warn("replay mismatch",
				"vector", v.ID,
				"task", v.Task,
				"recorded", v.Outcome.String(),
				"observed", out.String())
			mismatches = append(mismatches, Mismatch{Vector: v, Observed: out})
		}
	}
	return mismatches, nil
}

// replay runs one vector and also returns the recorded trace.
func replay(ctx context.Context, app *apps.App, v ir.TestVector, o *options) (ir.Outcome, []ir.TraceRecord, error) {
	if err := ctx.Err(); err != nil {
		return ir.Outcome{}, nil, err
	}
	if v.App != "" && v.App != app.Spec.Name {
		return ir.Outcome{}, nil, fmt.Errorf("vector of app %q replayed on %q", v.App, app.Spec.Name)
	}

	rec := engine.NewRecorder()
	e, err := engine.New(app.Spec, app.Bodies,
		engine.WithLogger(o.logger),
		engine.WithObserver(rec),
		engine.WithLabel(v.ID),
		engine.WithMaxCycles(o.maxCycles),
	)
	if err != nil {
		return ir.Outcome{}, nil, err
	}
	for _, a := range v.Assignments {
		if err := e.SetValue(a.Resource, sym.Const(a.Value)); err != nil {
			return ir.Outcome{}, nil, err
		}
	}

	id, ok := e.Dispatch().Lookup(v.Task)
	if !ok {
		return ir.Outcome{}, nil, fmt.Errorf("unknown task %q", v.Task)
	}
	out, err := e.Invoke(id)
	if err != nil {
		return ir.Outcome{}, nil, err
	}
	return runOutcome(out, e.Results()), rec.Records(), nil
}

// checkReproduced wraps ErrOutcomeMismatch when out differs from the
// vector's recorded outcome.
func checkReproduced(v ir.TestVector, out ir.Outcome) error {
	if out.Equal(v.Outcome) {
		return nil
	}
	return fmt.Errorf("vector %s: %w: recorded %s, observed %s", v.ID, ErrOutcomeMismatch, v.Outcome, out)
}
