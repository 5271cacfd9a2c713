package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rtfm/internal/ir"
)

func compile(t *testing.T, src string) (*ir.AppSpec, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileApp(v.LookupPath(cue.ParsePath("app")))
}

func TestCompileAppBasic(t *testing.T) {
	spec, err := compile(t, `
		app: {
			name: "resource"
			resources: {
				Y: { width: 8, init: 7 }
				X: {}
			}
			tasks: {
				EXTI2: { priority: 3, resources: ["Y"], interarrival: 100 }
				EXTI1: { priority: 1, resources: ["X", "Y"] }
				EXTI3: { priority: 2, resources: ["X"], reentrant: true }
			}
		}
	`)
	require.NoError(t, err)

	assert.Equal(t, "resource", spec.Name)
	assert.Equal(t, []ir.ResourceSpec{
		{ID: 0, Name: "X", Width: 32, Init: 0},
		{ID: 1, Name: "Y", Width: 8, Init: 7},
	}, spec.Resources, "sorted label order, default width")

	require.Len(t, spec.Tasks, 3)
	assert.Equal(t, ir.TaskSpec{ID: 0, Name: "EXTI1", Priority: 1, Resources: []ir.ResourceID{0, 1}}, spec.Tasks[0])
	assert.Equal(t, ir.TaskSpec{ID: 1, Name: "EXTI2", Priority: 3, Resources: []ir.ResourceID{1}, Interarrival: 100}, spec.Tasks[1])
	assert.True(t, spec.Tasks[2].Reentrant)
}

func TestCompileAppDeterministic(t *testing.T) {
	a, err := compile(t, `app: { name: "d", resources: { A: {}, B: {} }, tasks: { T: { priority: 1, resources: ["B", "A"] } } }`)
	require.NoError(t, err)
	b, err := compile(t, `app: { tasks: { T: { resources: ["B", "A"], priority: 1 } }, resources: { B: {}, A: {} }, name: "d" }`)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	ha, err := ir.AppHash(a)
	require.NoError(t, err)
	hb, err := ir.AppHash(b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
}

func TestCompileAppErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
		msg   string
	}{
		{
			name:  "missing name",
			src:   `app: { tasks: { T: { priority: 1 } } }`,
			field: "name",
			msg:   "required",
		},
		{
			name:  "no tasks",
			src:   `app: { name: "x" }`,
			field: "tasks",
			msg:   "at least one task",
		},
		{
			name:  "missing priority",
			src:   `app: { name: "x", tasks: { T: { resources: [] } } }`,
			field: "tasks.T.priority",
			msg:   "required",
		},
		{
			name:  "float priority",
			src:   `app: { name: "x", tasks: { T: { priority: 1.5 } } }`,
			field: "tasks.T.priority",
			msg:   "float",
		},
		{
			name:  "string width",
			src:   `app: { name: "x", resources: { X: { width: "8" } }, tasks: { T: { priority: 1, resources: ["X"] } } }`,
			field: "resources.X.width",
			msg:   "expected int",
		},
		{
			name:  "width too large",
			src:   `app: { name: "x", resources: { X: { width: 64 } }, tasks: { T: { priority: 1, resources: ["X"] } } }`,
			field: "resources.X.width",
			msg:   "outside 1..32",
		},
		{
			name:  "negative init",
			src:   `app: { name: "x", resources: { X: { init: -1 } }, tasks: { T: { priority: 1, resources: ["X"] } } }`,
			field: "resources.X.init",
			msg:   "unsigned",
		},
		{
			name:  "unknown resource",
			src:   `app: { name: "x", tasks: { T: { priority: 1, resources: ["Q"] } } }`,
			field: "tasks.T.resources",
			msg:   `"Q" is not declared`,
		},
		{
			name:  "resource listed twice",
			src:   `app: { name: "x", resources: { X: {} }, tasks: { T: { priority: 1, resources: ["X", "X"] } } }`,
			field: "tasks.T.resources",
			msg:   "listed twice",
		},
		{
			name:  "negative interarrival",
			src:   `app: { name: "x", tasks: { T: { priority: 1, interarrival: -5 } } }`,
			field: "tasks.T.interarrival",
			msg:   "negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compile(t, tt.src)
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
			assert.Contains(t, ce.Message, tt.msg)
		})
	}
}

func TestCompileSourcePosition(t *testing.T) {
	src := []byte("app: {\n\tname: \"x\"\n\ttasks: {\n\t\tT: {priority: 1.5}\n\t}\n}\n")
	_, err := CompileSource("bad.cue", src)
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 4, ce.Pos.Line())
	assert.Contains(t, err.Error(), "bad.cue:4:")
}

func TestCompileSourceNoApp(t *testing.T) {
	_, err := CompileSource("empty.cue", []byte(`other: 1`))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNoApp, le.Code)
}

func TestLoadApp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.cue"), []byte(`
package split

app: {
	name: "split"
	resources: X: {width: 16}
}
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.cue"), []byte(`
package split

app: tasks: {
	A: {priority: 1, resources: ["X"]}
	B: {priority: 2, resources: ["X"]}
}
`), 0o644))

	spec, err := LoadApp(dir)
	require.NoError(t, err)
	assert.Equal(t, "split", spec.Name)
	assert.Len(t, spec.Tasks, 2)
	assert.Equal(t, 16, spec.Resources[0].Width)
}

func TestLoadAppErrors(t *testing.T) {
	_, err := LoadApp(filepath.Join(t.TempDir(), "missing"))
	var le *LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNotFound, le.Code)

	_, err = LoadApp(t.TempDir())
	require.True(t, errors.As(err, &le))
	assert.Equal(t, ErrCodeNoFiles, le.Code)
}
