package compiler

import (
	"fmt"
	"math"
	"sort"

	"cuelang.org/go/cue"

	"github.com/roach88/rtfm/internal/ir"
)

// DefaultWidth is the width of a resource declared without one.
const DefaultWidth = 32

// CompileApp parses a CUE value into an AppSpec.
//
// The CUE value should be the app struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`app: { name: "x", ... }`)
//	spec, err := CompileApp(v.LookupPath(cue.ParsePath("app")))
func CompileApp(v cue.Value) (*ir.AppSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{Field: "name", Message: "name is required", Pos: v.Pos()}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	if name == "" {
		return nil, &CompileError{Field: "name", Message: "name must not be empty", Pos: nameVal.Pos()}
	}

	spec := &ir.AppSpec{Name: name}

	spec.Resources, err = parseResources(v)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]ir.ResourceID, len(spec.Resources))
	for _, r := range spec.Resources {
		byName[r.Name] = r.ID
	}

	spec.Tasks, err = parseTasks(v, byName)
	if err != nil {
		return nil, err
	}
	if len(spec.Tasks) == 0 {
		return nil, &CompileError{Field: "tasks", Message: "at least one task is required", Pos: v.Pos()}
	}

	return spec, nil
}

// field is one struct member, kept for sorting by label.
type field struct {
	label string
	value cue.Value
}

// sortedFields returns the members of the struct at path in label order.
func sortedFields(v cue.Value, path string) ([]field, error) {
	sv := v.LookupPath(cue.ParsePath(path))
	if !sv.Exists() {
		return nil, nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []field
	for iter.Next() {
		out = append(out, field{label: iter.Label(), value: iter.Value()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].label < out[j].label })
	return out, nil
}

// parseResources extracts resource declarations. Resources are optional:
// an application of independent tasks declares none.
func parseResources(v cue.Value) ([]ir.ResourceSpec, error) {
	fields, err := sortedFields(v, "resources")
	if err != nil {
		return nil, err
	}

	resources := make([]ir.ResourceSpec, 0, len(fields))
	for i, f := range fields {
		path := "resources." + f.label

		width, err := intField(f.value, "width", path, DefaultWidth)
		if err != nil {
			return nil, err
		}
		if width < 1 || width > ir.MaxWidth {
			return nil, &CompileError{
				Field:   path + ".width",
				Message: fmt.Sprintf("width %d outside 1..%d", width, ir.MaxWidth),
				Pos:     f.value.LookupPath(cue.ParsePath("width")).Pos(),
			}
		}

		init, err := intField(f.value, "init", path, 0)
		if err != nil {
			return nil, err
		}
		if init < 0 || init > math.MaxUint32 {
			return nil, &CompileError{
				Field:   path + ".init",
				Message: fmt.Sprintf("initial value %d is not an unsigned 32-bit integer", init),
				Pos:     f.value.LookupPath(cue.ParsePath("init")).Pos(),
			}
		}

		resources = append(resources, ir.ResourceSpec{
			ID:    ir.ResourceID(i),
			Name:  f.label,
			Width: int(width),
			Init:  uint32(init),
		})
	}
	return resources, nil
}

// parseTasks extracts task declarations and resolves resource names.
func parseTasks(v cue.Value, resources map[string]ir.ResourceID) ([]ir.TaskSpec, error) {
	fields, err := sortedFields(v, "tasks")
	if err != nil {
		return nil, err
	}

	tasks := make([]ir.TaskSpec, 0, len(fields))
	for i, f := range fields {
		path := "tasks." + f.label

		if !f.value.LookupPath(cue.ParsePath("priority")).Exists() {
			return nil, &CompileError{Field: path + ".priority", Message: "priority is required", Pos: f.value.Pos()}
		}
		prio, err := intField(f.value, "priority", path, 0)
		if err != nil {
			return nil, err
		}

		interarrival, err := intField(f.value, "interarrival", path, 0)
		if err != nil {
			return nil, err
		}
		if interarrival < 0 {
			return nil, &CompileError{
				Field:   path + ".interarrival",
				Message: "interarrival must not be negative",
				Pos:     f.value.LookupPath(cue.ParsePath("interarrival")).Pos(),
			}
		}

		task := ir.TaskSpec{
			ID:           ir.TaskID(i),
			Name:         f.label,
			Priority:     ir.Priority(prio),
			Interarrival: interarrival,
		}

		if rv := f.value.LookupPath(cue.ParsePath("reentrant")); rv.Exists() {
			task.Reentrant, err = rv.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
		}

		task.Resources, err = parseTaskResources(f.value, path, resources)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}
	return tasks, nil
}

func parseTaskResources(v cue.Value, path string, resources map[string]ir.ResourceID) ([]ir.ResourceID, error) {
	lv := v.LookupPath(cue.ParsePath("resources"))
	if !lv.Exists() {
		return nil, nil
	}
	iter, err := lv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var ids []ir.ResourceID
	seen := map[string]bool{}
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		id, ok := resources[name]
		if !ok {
			return nil, &CompileError{
				Field:   path + ".resources",
				Message: fmt.Sprintf("resource %q is not declared", name),
				Pos:     iter.Value().Pos(),
			}
		}
		if seen[name] {
			return nil, &CompileError{
				Field:   path + ".resources",
				Message: fmt.Sprintf("resource %q listed twice", name),
				Pos:     iter.Value().Pos(),
			}
		}
		seen[name] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// intField reads an optional integer member. Floats are rejected.
func intField(v cue.Value, name, path string, def int64) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return def, nil
	}
	switch fv.IncompleteKind() {
	case cue.IntKind:
	case cue.FloatKind, cue.NumberKind:
		return 0, &CompileError{
			Field:   path + "." + name,
			Message: "float values are not allowed, use int",
			Pos:     fv.Pos(),
		}
	default:
		return 0, &CompileError{
			Field:   path + "." + name,
			Message: fmt.Sprintf("expected int, got %v", fv.IncompleteKind()),
			Pos:     fv.Pos(),
		}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}
