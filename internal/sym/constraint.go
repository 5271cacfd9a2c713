package sym

import "fmt"

type rel uint8

const (
	relLE rel = iota // e <= 0
	relEQ            // e == 0
	relNE            // e != 0
)

// Constraint is a normalized relation between an expression and zero.
type Constraint struct {
	e   Expr
	rel rel
}

// le returns the constraint a <= b.
func le(a, b Expr) Constraint { return Constraint{e: a.sub(b), rel: relLE} }

// lt returns the constraint a < b.
func lt(a, b Expr) Constraint { return Constraint{e: a.sub(b).plus(1), rel: relLE} }

func eq(a, b Expr) Constraint { return Constraint{e: a.sub(b), rel: relEQ} }

func ne(a, b Expr) Constraint { return Constraint{e: a.sub(b), rel: relNE} }

// Not returns the complement of c.
func (c Constraint) Not() Constraint {
	switch c.rel {
	case relLE:
		// !(e <= 0)  <=>  -e + 1 <= 0
		return Constraint{e: c.e.neg().plus(1), rel: relLE}
	case relEQ:
		return Constraint{e: c.e, rel: relNE}
	default:
		return Constraint{e: c.e, rel: relEQ}
	}
}

// IsConst reports whether the constraint has no variables.
func (c Constraint) IsConst() bool {
	return c.e.IsConst()
}

// Holds evaluates the constraint under a model.
func (c Constraint) Holds(m Model) bool {
	return c.test(c.e.eval(m))
}

func (c Constraint) test(x int64) bool {
	switch c.rel {
	case relLE:
		return x <= 0
	case relEQ:
		return x == 0
	default:
		return x != 0
	}
}

func (c Constraint) String() string {
	op := map[rel]string{relLE: "<=", relEQ: "==", relNE: "!="}[c.rel]
	return fmt.Sprintf("%s %s 0", c.e, op)
}
