package engine

import (
	"fmt"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/roach88/rtfm/internal/resource"
	"github.com/roach88/rtfm/internal/sym"
)

// LockManager implements the immediate priority-ceiling protocol.
type LockManager struct {
	table     *resource.Table
	threshold *Threshold
	owners    []*Context
}

func newLockManager(table *resource.Table, threshold *Threshold) *LockManager {
	return &LockManager{
		table:     table,
		threshold: threshold,
		owners:    make([]*Context, len(table.Descriptors())),
	}
}

// Claim grants ctx exclusive access to r for the duration of f.
//
// If ctx already runs at or above the ceiling of r no other accessor can
// preempt it and access is granted directly. Otherwise the threshold is
// raised to the ceiling first. Either way the grant ends when f returns or
// unwinds: the cell is revoked and the threshold restored to its exact
// prior value.
func (l *LockManager) Claim(ctx *Context, r ir.ResourceID, f func(cell *Cell, ctx *Context)) {
	if !ctx.task.Spec.Uses(r) {
		misuse("claim", "task %s does not declare resource %s", ctx.task.Spec.Name, l.table.Descriptor(r).Spec.Name)
	}
	if owner := l.owners[r]; owner != nil {
		misuse("claim", "resource %s is already held by %s", l.table.Descriptor(r).Spec.Name, owner.task.Spec.Name)
	}

	ceiling := l.table.Ceiling(r)
	entry := ctx.priority
	raised := entry < ceiling
	var prior ir.Priority
	if raised {
		prior = l.threshold.Raise(ceiling)
		ctx.priority = ceiling
	}

	l.owners[r] = ctx
	ctx.e.noteClaim(ctx.task.Spec.ID, r)
	cell := &Cell{ctx: ctx, r: r, live: true}
	ctx.e.emit(ir.TraceEnter, ctx, r, "")

	func() {
		defer func() {
			ctx.e.emit(ir.TraceExit, ctx, r, "")
			cell.live = false
			l.owners[r] = nil
			ctx.priority = entry
			if raised {
				l.threshold.Restore(prior)
			}
		}()
		f(cell, ctx)
	}()

	if raised {
		// the release lowered the mask; anything it unblocked runs now
		ctx.tick()
	}
}

// Owner returns the activation holding r, or nil.
func (l *LockManager) Owner(r ir.ResourceID) *Context {
	return l.owners[r]
}

// Cell is scoped access to a claimed resource value. It is valid only
// inside the Claim callback that produced it.
type Cell struct {
	ctx  *Context
	r    ir.ResourceID
	live bool
}

// Get returns the current value.
func (c *Cell) Get() sym.Value {
	c.check("get")
	return c.ctx.e.values[c.r]
}

// Set stores v. Untyped constants take the resource width.
func (c *Cell) Set(v sym.Value) {
	c.check("set")
	spec := c.ctx.e.table.Descriptor(c.r).Spec
	switch {
	case v.Width() == 0:
		k := v.Uint32()
		if uint64(k) > spec.Max() {
			misuse("set", "constant %d does not fit resource %s", k, spec.Name)
		}
		v = sym.ConstOf(k, spec.Width)
	case v.Width() != spec.Width:
		misuse("set", "value of width %d stored into %d-bit resource %s", v.Width(), spec.Width, spec.Name)
	}
	c.ctx.e.values[c.r] = v
}

// Resource returns the declaration of the claimed resource.
func (c *Cell) Resource() ir.ResourceSpec {
	return c.ctx.e.table.Descriptor(c.r).Spec
}

func (c *Cell) check(op string) {
	if !c.live {
		misuse(op, "%s", fmt.Sprintf("cell of %s used after its claim ended", c.Resource().Name))
	}
}
