package engine

import (
	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/sym"
)

// Context is the activation record of a running task. It carries the
// current priority, raised inside claims, and the evaluation path, and is
// the handle task bodies use for claims and resource arithmetic.
//
// Every arithmetic or comparison method costs one cycle and is a
// preemption point.
type Context struct {
	e        *Engine
	task     *Task
	priority ir.Priority
	path     *sym.Path
	seq      int64
}

// Task returns the declaration of the running task.
func (c *Context) Task() ir.TaskSpec {
	return c.task.Spec
}

// Priority returns the current priority of the activation: its static
// priority, or the ceiling of the outermost raising claim it holds.
func (c *Context) Priority() ir.Priority {
	return c.priority
}

// Claim runs f with exclusive access to the named resource.
func (c *Context) Claim(resource string, f func(cell *Cell, ctx *Context)) {
	spec, ok := c.e.app.ResourceByName(resource)
	if !ok {
		misuse("claim", "unknown resource %q", resource)
	}
	c.tick()
	c.e.locks.Claim(c, spec.ID, f)
}

// Pend activates another task from inside a body, the software equivalent
// of an interrupt request.
func (c *Context) Pend(task string) {
	id, ok := c.e.dispatch.Lookup(task)
	if !ok {
		misuse("pend", "unknown task %q", task)
	}
	c.e.pend(id)
	c.tick()
}

func (c *Context) tick() {
	c.e.tick(c)
}

func (c *Context) arith(op sym.ArithOp, a, b sym.Value) sym.Value {
	v := c.path.Arith(op, a, b, sym.Caller(2))
	c.tick()
	return v
}

func (c *Context) cmp(op sym.CmpOp, a, b sym.Value) bool {
	r := c.path.Cmp(op, a, b, sym.Caller(2))
	c.tick()
	return r
}

// Add is checked addition; overflow is a fault.
func (c *Context) Add(a, b sym.Value) sym.Value { return c.arith(sym.OpAdd, a, b) }

// Sub is checked subtraction; underflow is a fault.
func (c *Context) Sub(a, b sym.Value) sym.Value { return c.arith(sym.OpSub, a, b) }

func (c *Context) WrappingAdd(a, b sym.Value) sym.Value   { return c.arith(sym.OpWrappingAdd, a, b) }
func (c *Context) WrappingSub(a, b sym.Value) sym.Value   { return c.arith(sym.OpWrappingSub, a, b) }
func (c *Context) SaturatingAdd(a, b sym.Value) sym.Value { return c.arith(sym.OpSaturatingAdd, a, b) }
func (c *Context) SaturatingSub(a, b sym.Value) sym.Value { return c.arith(sym.OpSaturatingSub, a, b) }
func (c *Context) Min(a, b sym.Value) sym.Value           { return c.arith(sym.OpMin, a, b) }
func (c *Context) Max(a, b sym.Value) sym.Value           { return c.arith(sym.OpMax, a, b) }

// MulConst is checked multiplication by a constant.
func (c *Context) MulConst(a sym.Value, k uint32) sym.Value {
	v := c.path.MulConst(a, k, sym.Caller(1))
	c.tick()
	return v
}

func (c *Context) Lt(a, b sym.Value) bool { return c.cmp(sym.Lt, a, b) }
func (c *Context) Le(a, b sym.Value) bool { return c.cmp(sym.Le, a, b) }
func (c *Context) Gt(a, b sym.Value) bool { return c.cmp(sym.Gt, a, b) }
func (c *Context) Ge(a, b sym.Value) bool { return c.cmp(sym.Ge, a, b) }
func (c *Context) Eq(a, b sym.Value) bool { return c.cmp(sym.Eq, a, b) }
func (c *Context) Ne(a, b sym.Value) bool { return c.cmp(sym.Ne, a, b) }

// Assert faults the activation when cond is false.
func (c *Context) Assert(cond bool) {
	c.path.Assert(cond, sym.Caller(1))
}

// Assume states a precondition on the inputs. Exploration drops the paths
// that violate it without emitting a vector; concrete runs ignore it.
func (c *Context) Assume(cond bool) {
	c.path.Assume(cond, sym.Caller(1))
}
