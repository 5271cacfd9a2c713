// Package resource derives the static resource descriptor table: for every
// shared resource the set of tasks declared to access it and its priority
// ceiling.
package resource

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/rtfm/internal/ir"
)

// Descriptor is the static metadata of one resource.
type Descriptor struct {
	Spec      ir.ResourceSpec
	Ceiling   ir.Priority
	Accessors []ir.TaskID // ascending
}

// Table is the resource descriptor table. It is read-only after Build.
type Table struct {
	app         *ir.AppSpec
	descriptors []Descriptor
}

// Build validates the declaration and computes every ceiling. All
// configuration errors are returned together.
func Build(app *ir.AppSpec) (*Table, error) {
	var errs []error

	taskNames := map[string]bool{}
	for i, t := range app.Tasks {
		if int(t.ID) != i {
			errs = append(errs, &ConfigError{Code: ErrCodeDuplicate, Task: t.Name,
				Message: fmt.Sprintf("task id %d does not match position %d", t.ID, i)})
		}
		if taskNames[t.Name] {
			errs = append(errs, &ConfigError{Code: ErrCodeDuplicate, Task: t.Name, Message: "duplicate task name"})
		}
		taskNames[t.Name] = true
		if t.Priority < 1 {
			errs = append(errs, &ConfigError{Code: ErrCodePriority, Task: t.Name,
				Message: fmt.Sprintf("priority %d must be at least 1", t.Priority)})
		}
	}

	resNames := map[string]bool{}
	for i, r := range app.Resources {
		if int(r.ID) != i {
			errs = append(errs, &ConfigError{Code: ErrCodeDuplicate, Resource: r.Name,
				Message: fmt.Sprintf("resource id %d does not match position %d", r.ID, i)})
		}
		if resNames[r.Name] {
			errs = append(errs, &ConfigError{Code: ErrCodeDuplicate, Resource: r.Name, Message: "duplicate resource name"})
		}
		resNames[r.Name] = true
		if r.Width < 1 || r.Width > ir.MaxWidth {
			errs = append(errs, &ConfigError{Code: ErrCodeWidth, Resource: r.Name,
				Message: fmt.Sprintf("width %d outside 1..%d", r.Width, ir.MaxWidth)})
		} else if uint64(r.Init) > r.Max() {
			errs = append(errs, &ConfigError{Code: ErrCodeWidth, Resource: r.Name,
				Message: fmt.Sprintf("initial value %d does not fit in %d bits", r.Init, r.Width)})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	t := &Table{app: app, descriptors: make([]Descriptor, len(app.Resources))}
	for i, r := range app.Resources {
		t.descriptors[i] = Descriptor{Spec: r}
	}

	for _, task := range app.Tasks {
		seen := map[ir.ResourceID]bool{}
		for _, rid := range task.Resources {
			if int(rid) < 0 || int(rid) >= len(app.Resources) {
				errs = append(errs, &ConfigError{Code: ErrCodeUnknownResource, Task: task.Name,
					Message: fmt.Sprintf("resource id %d is not declared", rid)})
				continue
			}
			if seen[rid] {
				continue
			}
			seen[rid] = true
			d := &t.descriptors[rid]
			d.Accessors = append(d.Accessors, task.ID)
			d.Ceiling = max(d.Ceiling, task.Priority)
		}
	}

	for i := range t.descriptors {
		d := &t.descriptors[i]
		if len(d.Accessors) == 0 {
			errs = append(errs, &ConfigError{Code: ErrCodeNoAccessor, Resource: d.Spec.Name,
				Message: "resource is not declared by any task"})
			continue
		}
		sort.Slice(d.Accessors, func(a, b int) bool { return d.Accessors[a] < d.Accessors[b] })
		errs = append(errs, t.checkReentrantShare(d)...)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return t, nil
}

// checkReentrantShare rejects equal-priority tasks sharing a resource when
// either may be re-triggered. Such tasks access the resource without a
// claim, which is only sound if they can never be pending at once.
func (t *Table) checkReentrantShare(d *Descriptor) []error {
	var errs []error
	for i, a := range d.Accessors {
		ta := t.app.Task(a)
		for _, b := range d.Accessors[i+1:] {
			tb := t.app.Task(b)
			if ta.Priority == tb.Priority && (ta.Reentrant || tb.Reentrant) {
				errs = append(errs, &ConfigError{
					Code:     ErrCodeReentrantShare,
					Task:     ta.Name + "," + tb.Name,
					Resource: d.Spec.Name,
					Message:  fmt.Sprintf("tasks of equal priority %d share the resource and one is re-entrant", ta.Priority),
				})
			}
		}
	}
	return errs
}

// App returns the declaration the table was built from.
func (t *Table) App() *ir.AppSpec {
	return t.app
}

// Ceiling returns the priority ceiling of r.
func (t *Table) Ceiling(r ir.ResourceID) ir.Priority {
	return t.descriptors[r].Ceiling
}

// Descriptor returns the descriptor of r.
func (t *Table) Descriptor(r ir.ResourceID) Descriptor {
	return t.descriptors[r]
}

// Accessors returns the tasks declared to access r, ascending.
func (t *Table) Accessors(r ir.ResourceID) []ir.TaskID {
	return append([]ir.TaskID(nil), t.descriptors[r].Accessors...)
}

// Descriptors returns all descriptors in resource id order.
func (t *Table) Descriptors() []Descriptor {
	out := make([]Descriptor, len(t.descriptors))
	copy(out, t.descriptors)
	return out
}

// Shared reports whether r is accessed by tasks of more than one priority,
// that is, whether claiming it can ever need a threshold raise.
func (t *Table) Shared(r ir.ResourceID) bool {
	d := t.descriptors[r]
	for _, id := range d.Accessors {
		if t.app.Task(id).Priority != d.Ceiling {
			return true
		}
	}
	return false
}
