// Package apps holds the built-in applications: CUE declarations embedded
// in the binary plus the Go task bodies that implement them.
package apps

import (
	"embed"
	"fmt"
	"sort"

	"github.com/roach88/rtfm/internal/compiler"
	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/ir"
)

//go:embed cue/*.cue
var declarations embed.FS

// App is a declaration together with its bodies.
type App struct {
	Spec        *ir.AppSpec
	Bodies      engine.Bodies
	Description string
}

type entry struct {
	description string
	bodies      func() engine.Bodies
}

var registry = map[string]entry{
	"resource": {
		description: "nested claims, a data-dependent loop and a two-way branch",
		bodies:      resourceBodies,
	},
	"shared": {
		description: "equal-priority tasks sharing a value with an assertion and a saturating update",
		bodies:      sharedBodies,
	},
	"loop": {
		description: "loop bounded by a symbolic value",
		bodies:      loopBodies,
	},
	"preempt": {
		description: "three priorities contending for one resource",
		bodies:      preemptBodies,
	},
}

// Names returns the built-in application names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup compiles the embedded declaration of a built-in application.
func Lookup(name string) (*App, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (available: %v)", name, Names())
	}
	file := "cue/" + name + ".cue"
	src, err := declarations.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read declaration: %w", err)
	}
	spec, err := compiler.CompileSource(file, src)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", file, err)
	}
	return &App{Spec: spec, Bodies: e.bodies(), Description: e.description}, nil
}

// WithSpec pairs the bodies of a built-in application with a declaration
// loaded elsewhere, e.g. one that changes priorities or widths.
func WithSpec(name string, spec *ir.AppSpec) (*App, error) {
	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown app %q (available: %v)", name, Names())
	}
	return &App{Spec: spec, Bodies: e.bodies(), Description: e.description}, nil
}
