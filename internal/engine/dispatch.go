package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/rtfm/internal/ir"
)

// Body is a task entry function. It must be free of side effects other
// than through its claims, and loop-bounded, so exploration terminates.
type Body func(ctx *Context)

// Bodies binds task names to entry functions.
type Bodies map[string]Body

// Task is one row of the dispatch table.
type Task struct {
	Spec ir.TaskSpec
	Body Body
}

// DispatchTable binds every declared task to its priority, entry function
// and resource list. Immutable after construction.
type DispatchTable struct {
	tasks  []Task
	byName map[string]ir.TaskID
}

// NewDispatchTable pairs declarations with bodies. Every declared task
// needs a body and every body a declaration.
func NewDispatchTable(app *ir.AppSpec, bodies Bodies) (*DispatchTable, error) {
	d := &DispatchTable{
		tasks:  make([]Task, len(app.Tasks)),
		byName: make(map[string]ir.TaskID, len(app.Tasks)),
	}
	for i, spec := range app.Tasks {
		body, ok := bodies[spec.Name]
		if !ok || body == nil {
			return nil, &RuntimeError{Code: ErrCodeMissingBody, Message: "declared task has no body", Task: spec.Name}
		}
		d.tasks[i] = Task{Spec: spec, Body: body}
		d.byName[spec.Name] = spec.ID
	}

	var extra []string
	for name := range bodies {
		if _, ok := d.byName[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &RuntimeError{
			Code:    ErrCodeUnknownTask,
			Message: fmt.Sprintf("bodies without declaration: %v", extra),
			Task:    extra[0],
		}
	}
	return d, nil
}

// Task returns the row of a task.
func (d *DispatchTable) Task(id ir.TaskID) *Task {
	return &d.tasks[id]
}

// Lookup resolves a task name.
func (d *DispatchTable) Lookup(name string) (ir.TaskID, bool) {
	id, ok := d.byName[name]
	return id, ok
}

// Len returns the number of tasks.
func (d *DispatchTable) Len() int {
	return len(d.tasks)
}
