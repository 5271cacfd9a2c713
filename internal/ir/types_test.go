package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFieldNaming(t *testing.T) {
	v := TestVector{
		PathID:      "p",
		Assignments: []Assignment{{Resource: "X", Value: 1}},
		Outcome:     Faulted(FaultOverflow, "a.go:1"),
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"path_id"`)
	assert.Contains(t, string(data), `"assignments"`)
	assert.NotContains(t, string(data), `"pathId"`)
}

func TestResourceMax(t *testing.T) {
	assert.Equal(t, uint64(255), ResourceSpec{Width: 8}.Max())
	assert.Equal(t, uint64(1), ResourceSpec{Width: 1}.Max())
	assert.Equal(t, uint64(4294967295), ResourceSpec{Width: 32}.Max())
}

func TestAppLookups(t *testing.T) {
	app := &AppSpec{
		Resources: []ResourceSpec{{ID: 0, Name: "X", Width: 32}},
		Tasks:     []TaskSpec{{ID: 0, Name: "A", Priority: 1, Resources: []ResourceID{0}}},
	}

	task, ok := app.TaskByName("A")
	require.True(t, ok)
	assert.True(t, task.Uses(0))
	assert.False(t, task.Uses(1))

	_, ok = app.TaskByName("B")
	assert.False(t, ok)

	r, ok := app.ResourceByName("X")
	require.True(t, ok)
	assert.Equal(t, "X", app.Resource(r.ID).Name)

	assert.Panics(t, func() { app.Task(5) })
}

func TestOutcomeEqual(t *testing.T) {
	assert.True(t, OK().Equal(OK()))
	assert.True(t, Faulted(FaultOverflow, "a:1").Equal(Faulted(FaultOverflow, "a:1")))
	assert.False(t, Faulted(FaultOverflow, "a:1").Equal(Faulted(FaultOverflow, "a:2")))
	assert.False(t, OK().Equal(Faulted(FaultUnderflow, "a:1")))
	assert.Equal(t, "fault overflow at a:1", Faulted(FaultOverflow, "a:1").String())
}
