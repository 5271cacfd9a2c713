package sym

import (
	"fmt"

	"github.com/roach88/rtfm/internal/ir"
)

// Value is an unsigned resource value of a fixed bit width. A width of
// zero marks an untyped constant that adopts the width of the other
// operand.
type Value struct {
	e     Expr
	width int
}

// Const returns an untyped constant.
func Const(v uint32) Value {
	return Value{e: constExpr(int64(v))}
}

// ConstOf returns a constant of the given width. It panics if v does not
// fit.
func ConstOf(v uint32, width int) Value {
	checkWidth(width)
	if uint64(v) > maxOf(width) {
		panic(fmt.Sprintf("sym: %d does not fit in %d bits", v, width))
	}
	return Value{e: constExpr(int64(v)), width: width}
}

// Width returns the bit width, or 0 for an untyped constant.
func (v Value) Width() int {
	return v.width
}

// Expr returns the underlying expression.
func (v Value) Expr() Expr {
	return v.e
}

// Concrete returns the value if it does not depend on any variable.
func (v Value) Concrete() (uint32, bool) {
	if !v.e.IsConst() {
		return 0, false
	}
	return uint32(v.e.k), true
}

// Uint32 returns the concrete value. It panics on a symbolic value.
func (v Value) Uint32() uint32 {
	c, ok := v.Concrete()
	if !ok {
		panic("sym: value is symbolic: " + v.e.String())
	}
	return c
}

func (v Value) String() string {
	return v.e.String()
}

func checkWidth(width int) {
	if width < 1 || width > ir.MaxWidth {
		panic(fmt.Sprintf("sym: width %d outside 1..%d", width, ir.MaxWidth))
	}
}

func maxOf(width int) uint64 {
	return (uint64(1) << width) - 1
}

// unify returns the width two operands share.
func unify(a, b Value) int {
	switch {
	case a.width == 0 && b.width == 0:
		return ir.MaxWidth
	case a.width == 0:
		return b.width
	case b.width == 0, a.width == b.width:
		return a.width
	}
	panic(fmt.Sprintf("sym: width mismatch %d and %d", a.width, b.width))
}
