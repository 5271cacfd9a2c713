package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/rtfm/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []ir.TraceRecord
	Final        map[string]uint32
}

// toCanonicalMap drops the label, which repeats the scenario name, and
// empty optional fields.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, rec := range s.Trace {
		m := map[string]any{
			"seq":   rec.Seq,
			"cycle": rec.Cycle,
			"kind":  string(rec.Kind),
			"task":  rec.Task,
			"level": rec.Level,
		}
		if rec.Resource != "" {
			m["resource"] = rec.Resource
		}
		if rec.Detail != "" {
			m["detail"] = rec.Detail
		}
		trace[i] = m
	}
	final := make(map[string]any, len(s.Final))
	for k, v := range s.Final {
		final[k] = v
	}
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"final":         final,
	}
}

// RunWithGolden runs a scenario and compares its trace and final values
// with testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, opts...)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Trace: result.Trace, Final: result.Final}
	data, err := ir.MarshalCanonical(snapshot.toCanonicalMap())
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
