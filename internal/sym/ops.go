package sym

import (
	"math/bits"

	"github.com/roach88/rtfm/internal/ir"
)

// ArithOp selects an arithmetic operation.
type ArithOp int

const (
	OpAdd ArithOp = iota // checked
	OpSub                // checked
	OpWrappingAdd
	OpWrappingSub
	OpSaturatingAdd
	OpSaturatingSub
	OpMin
	OpMax
)

// CmpOp selects a comparison.
type CmpOp int

const (
	Lt CmpOp = iota
	Le
	Gt
	Ge
	Eq
	Ne
)

// Arith applies op to a and b. Checked operations raise a *Fault on the
// outcome where the result leaves the width; wrapping and saturating ones
// split the path silently when both outcomes are feasible.
func (p *Path) Arith(op ArithOp, a, b Value, site string) Value {
	w := unify(a, b)
	limit := int64(maxOf(w))
	sum := a.e.add(b.e)
	diff := a.e.sub(b.e)
	over := lt(constExpr(limit), sum) // a + b > max
	under := lt(diff, constExpr(0))   // a - b < 0

	switch op {
	case OpAdd:
		if p.decide(over, site, true) {
			panic(&Fault{Kind: ir.FaultOverflow, Site: site})
		}
		return Value{e: sum, width: w}
	case OpSub:
		if p.decide(under, site, true) {
			panic(&Fault{Kind: ir.FaultUnderflow, Site: site})
		}
		return Value{e: diff, width: w}
	case OpWrappingAdd:
		if p.decide(over.Not(), site, false) {
			return Value{e: sum, width: w}
		}
		return Value{e: sum.plus(-(limit + 1)), width: w}
	case OpWrappingSub:
		if p.decide(under.Not(), site, false) {
			return Value{e: diff, width: w}
		}
		return Value{e: diff.plus(limit + 1), width: w}
	case OpSaturatingAdd:
		if p.decide(over.Not(), site, false) {
			return Value{e: sum, width: w}
		}
		return Value{e: constExpr(limit), width: w}
	case OpSaturatingSub:
		if p.decide(under.Not(), site, false) {
			return Value{e: diff, width: w}
		}
		return Value{e: constExpr(0), width: w}
	case OpMin:
		if p.decide(le(a.e, b.e), site, false) {
			return Value{e: a.e, width: w}
		}
		return Value{e: b.e, width: w}
	case OpMax:
		if p.decide(le(b.e, a.e), site, false) {
			return Value{e: a.e, width: w}
		}
		return Value{e: b.e, width: w}
	}
	panic("sym: unknown arithmetic op")
}

// MulConst multiplies a by k, raising a *Fault when the product leaves the
// width of a.
func (p *Path) MulConst(a Value, k uint32, site string) Value {
	w := a.width
	if w == 0 {
		w = ir.MaxWidth
	}
	limit := maxOf(w)
	if c, ok := a.Concrete(); ok {
		hi, lo := bits.Mul64(uint64(c), uint64(k))
		if hi != 0 || lo > limit {
			panic(&Fault{Kind: ir.FaultOverflow, Site: site})
		}
		return Value{e: constExpr(int64(lo)), width: w}
	}
	prod := a.e.scale(int64(k))
	if p.decide(lt(constExpr(int64(limit)), prod), site, true) {
		panic(&Fault{Kind: ir.FaultOverflow, Site: site})
	}
	return Value{e: prod, width: w}
}

// Cmp evaluates a comparison, forking the path when both outcomes are
// feasible.
func (p *Path) Cmp(op CmpOp, a, b Value, site string) bool {
	unify(a, b)
	var c Constraint
	switch op {
	case Lt:
		c = lt(a.e, b.e)
	case Le:
		c = le(a.e, b.e)
	case Gt:
		c = lt(b.e, a.e)
	case Ge:
		c = le(b.e, a.e)
	case Eq:
		c = eq(a.e, b.e)
	case Ne:
		c = ne(a.e, b.e)
	default:
		panic("sym: unknown comparison")
	}
	return p.decide(c, site, false)
}

// Assert raises an assertion *Fault when cond is false.
func (p *Path) Assert(cond bool, site string) {
	if !cond {
		panic(&Fault{Kind: ir.FaultAssertion, Site: site})
	}
}

// Assume restricts the path to inputs satisfying cond. A symbolic path on
// which cond is false is dropped with an AbortAssumption; the concrete
// path ignores assumptions.
func (p *Path) Assume(cond bool, site string) {
	if !cond && !p.concrete {
		panic(&Abort{Reason: AbortAssumption, Site: site})
	}
}

// Add is checked addition attributed to the caller's source line.
func (p *Path) Add(a, b Value) Value { return p.Arith(OpAdd, a, b, Caller(1)) }

// Sub is checked subtraction attributed to the caller's source line.
func (p *Path) Sub(a, b Value) Value { return p.Arith(OpSub, a, b, Caller(1)) }

// WrappingAdd adds modulo 2^width.
func (p *Path) WrappingAdd(a, b Value) Value { return p.Arith(OpWrappingAdd, a, b, Caller(1)) }

// Less reports a < b.
func (p *Path) Less(a, b Value) bool { return p.Cmp(Lt, a, b, Caller(1)) }
