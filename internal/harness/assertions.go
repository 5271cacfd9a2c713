package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rtfm/internal/ir"
)

// AssertionError is a failed assertion with the trace it was checked
// against.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []ir.TraceRecord
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, rec := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] @%d %s\n", rec.Seq, rec.Cycle, formatEvent(rec))
	}
	return buf.String()
}

// formatEvent renders a record as "kind task" or "kind task resource",
// the form trace_order events are written in.
func formatEvent(rec ir.TraceRecord) string {
	if rec.Resource != "" {
		return fmt.Sprintf("%s %s %s", rec.Kind, rec.Task, rec.Resource)
	}
	return fmt.Sprintf("%s %s", rec.Kind, rec.Task)
}

// assertTraceOrder checks that the events appear in order. Other events
// may come in between.
func assertTraceOrder(trace []ir.TraceRecord, a Assertion) error {
	next := 0
	for _, rec := range trace {
		if next < len(a.Events) && formatEvent(rec) == normalizeEvent(a.Events[next]) {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: strings.Join(a.Events, ", "),
		Actual:   fmt.Sprintf("%q not found after %d matched events", a.Events[next], next),
		Trace:    trace,
	}
}

func normalizeEvent(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func assertPreempts(trace []ir.TraceRecord, a Assertion) error {
	for _, rec := range trace {
		if rec.Kind == ir.TracePreempt && rec.Task == a.Preempted && rec.Detail == a.Task {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertPreempts,
		Expected: fmt.Sprintf("%s preempts %s", a.Task, a.Preempted),
		Actual:   "no such preemption in trace",
		Trace:    trace,
	}
}

// assertNeverConcurrent checks that claims of a resource never overlap,
// or that none of the tasks is started while another one is unfinished.
// A preempted activation counts as active.
func assertNeverConcurrent(trace []ir.TraceRecord, a Assertion) error {
	if a.Resource != "" {
		holder := ""
		for _, rec := range trace {
			if rec.Resource != a.Resource {
				continue
			}
			switch rec.Kind {
			case ir.TraceEnter:
				if holder != "" {
					return &AssertionError{
						Type:     AssertNeverConcurrent,
						Expected: fmt.Sprintf("claims of %s never overlap", a.Resource),
						Actual:   fmt.Sprintf("%s entered %s held by %s at seq %d", rec.Task, a.Resource, holder, rec.Seq),
						Trace:    trace,
					}
				}
				holder = rec.Task
			case ir.TraceExit:
				holder = ""
			}
		}
		return nil
	}

	watched := make(map[string]bool, len(a.Tasks))
	for _, t := range a.Tasks {
		watched[t] = true
	}
	active := make(map[string]int)
	for _, rec := range trace {
		if !watched[rec.Task] {
			continue
		}
		switch rec.Kind {
		case ir.TraceStart:
			for other, n := range active {
				if n > 0 && other != rec.Task {
					return &AssertionError{
						Type:     AssertNeverConcurrent,
						Expected: fmt.Sprintf("%s never active at the same time", strings.Join(a.Tasks, ", ")),
						Actual:   fmt.Sprintf("%s started at seq %d while %s was active", rec.Task, rec.Seq, other),
						Trace:    trace,
					}
				}
			}
			active[rec.Task]++
		case ir.TraceFinish:
			active[rec.Task]--
		}
	}
	return nil
}

func assertFinalValue(result *Result, a Assertion) error {
	got, ok := result.Final[a.Resource]
	if !ok {
		return fmt.Errorf("final_value: unknown resource %q", a.Resource)
	}
	if got != *a.Value {
		return &AssertionError{
			Type:     AssertFinalValue,
			Expected: fmt.Sprintf("%s = %d", a.Resource, *a.Value),
			Actual:   fmt.Sprintf("%s = %d", a.Resource, got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertMaxThreshold checks that no task ran above the given level,
// counting priorities raised by claims.
func assertMaxThreshold(trace []ir.TraceRecord, a Assertion) error {
	var highest ir.Priority
	var at ir.TraceRecord
	for _, rec := range trace {
		if rec.Kind == ir.TracePend {
			continue
		}
		if rec.Level > highest {
			highest, at = rec.Level, rec
		}
	}
	if highest <= ir.Priority(*a.Value) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMaxThreshold,
		Expected: fmt.Sprintf("level at most %d", *a.Value),
		Actual:   fmt.Sprintf("level %d at %s (seq %d)", highest, formatEvent(at), at.Seq),
		Trace:    trace,
	}
}

// EvaluateAssertions returns one message per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertPreempts:
			err = assertPreempts(result.Trace, a)
		case AssertNeverConcurrent:
			err = assertNeverConcurrent(result.Trace, a)
		case AssertFinalValue:
			err = assertFinalValue(result, a)
		case AssertMaxThreshold:
			err = assertMaxThreshold(result.Trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}
