package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtfm/internal/ir"
)

func rec(seq int64, kind ir.TraceKind, task, resource string, level ir.Priority) ir.TraceRecord {
	return ir.TraceRecord{Seq: seq, Kind: kind, Task: task, Resource: resource, Level: level}
}

// A holds X when B arrives; B runs on release.
var sampleTrace = []ir.TraceRecord{
	rec(1, ir.TraceStart, "A", "", 1),
	rec(2, ir.TraceEnter, "A", "X", 3),
	rec(3, ir.TracePend, "B", "", 3),
	rec(4, ir.TraceExit, "A", "X", 3),
	{Seq: 5, Kind: ir.TracePreempt, Task: "A", Level: 1, Detail: "B"},
	rec(6, ir.TraceStart, "B", "", 3),
	rec(7, ir.TraceEnter, "B", "X", 3),
	rec(8, ir.TraceExit, "B", "X", 3),
	rec(9, ir.TraceFinish, "B", "", 3),
	rec(10, ir.TraceResume, "A", "", 1),
	rec(11, ir.TraceFinish, "A", "", 1),
}

func u32(v uint32) *uint32 { return &v }

func TestFormatEvent(t *testing.T) {
	assert.Equal(t, "start A", formatEvent(sampleTrace[0]))
	assert.Equal(t, "enter A X", formatEvent(sampleTrace[1]))
}

func TestAssertTraceOrder(t *testing.T) {
	ok := Assertion{Type: AssertTraceOrder, Events: []string{"enter A X", "start  B", "finish A"}}
	assert.NoError(t, assertTraceOrder(sampleTrace, ok))

	wrong := Assertion{Type: AssertTraceOrder, Events: []string{"start B", "exit A X"}}
	err := assertTraceOrder(sampleTrace, wrong)
	require.Error(t, err)

	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertTraceOrder, ae.Type)
	assert.Contains(t, ae.Actual, `"exit A X" not found after 1`)
	assert.Contains(t, err.Error(), "Full trace:")
	assert.Contains(t, err.Error(), "[2] @0 enter A X")
}

func TestAssertPreempts(t *testing.T) {
	assert.NoError(t, assertPreempts(sampleTrace, Assertion{Task: "B", Preempted: "A"}))
	assert.Error(t, assertPreempts(sampleTrace, Assertion{Task: "A", Preempted: "B"}))
}

func TestAssertNeverConcurrent(t *testing.T) {
	assert.NoError(t, assertNeverConcurrent(sampleTrace, Assertion{Resource: "X"}))

	// preempted A is still active when B starts
	err := assertNeverConcurrent(sampleTrace, Assertion{Tasks: []string{"A", "B"}})
	assert.ErrorContains(t, err, "B started at seq 6 while A was active")

	overlapping := []ir.TraceRecord{
		rec(1, ir.TraceEnter, "A", "X", 1),
		rec(2, ir.TraceEnter, "B", "X", 2),
		rec(3, ir.TraceExit, "B", "X", 2),
		rec(4, ir.TraceExit, "A", "X", 1),
	}
	err = assertNeverConcurrent(overlapping, Assertion{Resource: "X"})
	assert.ErrorContains(t, err, "B entered X held by A")
}

func TestAssertFinalValue(t *testing.T) {
	result := NewResult()
	result.Final["X"] = 13

	assert.NoError(t, assertFinalValue(result, Assertion{Resource: "X", Value: u32(13)}))
	assert.ErrorContains(t, assertFinalValue(result, Assertion{Resource: "X", Value: u32(12)}), "X = 13")
	assert.ErrorContains(t, assertFinalValue(result, Assertion{Resource: "Y", Value: u32(0)}), "unknown resource")
}

func TestAssertMaxThreshold(t *testing.T) {
	assert.NoError(t, assertMaxThreshold(sampleTrace, Assertion{Value: u32(3)}))

	err := assertMaxThreshold(sampleTrace, Assertion{Value: u32(2)})
	assert.ErrorContains(t, err, "level 3 at enter A X")
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace
	result.Final["X"] = 13

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertPreempts, Task: "B", Preempted: "A"},
		{Type: AssertFinalValue, Resource: "X", Value: u32(13)},
		{Type: AssertMaxThreshold, Value: u32(1)},
		{Type: "eventually"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "max_threshold")
	assert.Contains(t, errs[1], `unknown assertion type "eventually"`)
}
