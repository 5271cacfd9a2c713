package engine

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/sym"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// preemptApp declares A:1, B:3, C:2 all sharing X, so ceiling(X) = 3.
func preemptApp() *ir.AppSpec {
	return &ir.AppSpec{
		Name:      "preempt",
		Resources: []ir.ResourceSpec{{ID: 0, Name: "X", Width: 32}},
		Tasks: []ir.TaskSpec{
			{ID: 0, Name: "A", Priority: 1, Resources: []ir.ResourceID{0}},
			{ID: 1, Name: "B", Priority: 3, Resources: []ir.ResourceID{0}},
			{ID: 2, Name: "C", Priority: 2, Resources: []ir.ResourceID{0}},
		},
	}
}

func addTo(resource string, n uint32, times int) Body {
	return func(ctx *Context) {
		ctx.Claim(resource, func(x *Cell, ctx *Context) {
			v := x.Get()
			for i := 0; i < times; i++ {
				v = ctx.Add(v, sym.Const(n))
			}
			x.Set(v)
		})
	}
}

func preemptBodies() Bodies {
	return Bodies{
		"A": addTo("X", 1, 3),
		"B": addTo("X", 10, 1),
		"C": addTo("X", 100, 1),
	}
}

// nestedApp declares EXTI1:1 using X and Y, EXTI2:3 using Y, EXTI3:2
// using X, giving ceilings X=2 and Y=3.
func nestedApp() *ir.AppSpec {
	return &ir.AppSpec{
		Name: "nested",
		Resources: []ir.ResourceSpec{
			{ID: 0, Name: "X", Width: 32},
			{ID: 1, Name: "Y", Width: 32},
		},
		Tasks: []ir.TaskSpec{
			{ID: 0, Name: "EXTI1", Priority: 1, Resources: []ir.ResourceID{0, 1}},
			{ID: 1, Name: "EXTI2", Priority: 3, Resources: []ir.ResourceID{1}},
			{ID: 2, Name: "EXTI3", Priority: 2, Resources: []ir.ResourceID{0}},
		},
	}
}

func newEngine(t *testing.T, app *ir.AppSpec, bodies Bodies, opts ...Option) (*Engine, *Recorder) {
	t.Helper()
	rec := NewRecorder()
	opts = append([]Option{WithLogger(quiet), WithObserver(rec)}, opts...)
	e, err := New(app, bodies, opts...)
	require.NoError(t, err)
	return e, rec
}

func taskID(t *testing.T, e *Engine, name string) ir.TaskID {
	t.Helper()
	id, ok := e.Dispatch().Lookup(name)
	require.True(t, ok, "task %s", name)
	return id
}

// events renders records as "kind task[ resource]" for order assertions.
func events(records []ir.TraceRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		s := fmt.Sprintf("%s %s", r.Kind, r.Task)
		if r.Resource != "" {
			s += " " + r.Resource
		}
		out = append(out, s)
	}
	return out
}

func indexOf(t *testing.T, evs []string, ev string) int {
	t.Helper()
	for i, e := range evs {
		if e == ev {
			return i
		}
	}
	t.Fatalf("event %q not in trace:\n%s", ev, strings.Join(evs, "\n"))
	return -1
}
