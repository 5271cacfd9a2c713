package sym

import (
	"fmt"
	"math"
	"strings"
)

// Var identifies a symbolic variable within a Path.
type Var int

type term struct {
	v Var
	c int64
}

// maxCoef bounds coefficients of symbolic terms so sums over 32-bit
// domains stay far from int64 overflow.
const maxCoef = 1 << 24

// Expr is an affine expression sum(c_i * v_i) + k. Terms are sorted by
// variable and never carry a zero coefficient. Expr values are immutable.
type Expr struct {
	terms []term
	k     int64
}

func constExpr(k int64) Expr {
	return Expr{k: k}
}

func varExpr(v Var) Expr {
	return Expr{terms: []term{{v: v, c: 1}}}
}

// IsConst reports whether the expression has no variables.
func (e Expr) IsConst() bool {
	return len(e.terms) == 0
}

// Const returns the constant part.
func (e Expr) Const() int64 {
	return e.k
}

func (e Expr) add(o Expr) Expr {
	out := Expr{k: e.k + o.k}
	i, j := 0, 0
	for i < len(e.terms) || j < len(o.terms) {
		switch {
		case j >= len(o.terms) || (i < len(e.terms) && e.terms[i].v < o.terms[j].v):
			out.terms = append(out.terms, e.terms[i])
			i++
		case i >= len(e.terms) || o.terms[j].v < e.terms[i].v:
			out.terms = append(out.terms, o.terms[j])
			j++
		default:
			c := e.terms[i].c + o.terms[j].c
			if c != 0 {
				out.terms = append(out.terms, term{v: e.terms[i].v, c: checkCoef(c)})
			}
			i++
			j++
		}
	}
	return out
}

func (e Expr) scale(m int64) Expr {
	if m == 0 {
		return Expr{}
	}
	out := Expr{k: mulConst(e.k, m), terms: make([]term, len(e.terms))}
	for i, t := range e.terms {
		out.terms[i] = term{v: t.v, c: checkCoef(t.c * m)}
	}
	return out
}

func (e Expr) neg() Expr {
	return e.scale(-1)
}

func (e Expr) sub(o Expr) Expr {
	return e.add(o.neg())
}

func (e Expr) plus(k int64) Expr {
	return Expr{terms: e.terms, k: e.k + k}
}

// checkCoef aborts the path when a coefficient leaves the solver's range.
func checkCoef(c int64) int64 {
	if c > maxCoef || c < -maxCoef {
		panic(&Abort{Reason: AbortRange})
	}
	return c
}

// mulConst multiplies constant terms, aborting the path on int64 overflow.
func mulConst(k, m int64) int64 {
	p := k * m
	if k != 0 && (p/k != m || (k == -1 && m == math.MinInt64) || (m == -1 && k == math.MinInt64)) {
		panic(&Abort{Reason: AbortRange})
	}
	return p
}

// eval evaluates the expression under a model.
func (e Expr) eval(m Model) int64 {
	sum := e.k
	for _, t := range e.terms {
		sum += t.c * m[t.v]
	}
	return sum
}

// Vars returns the variables of the expression in ascending order.
func (e Expr) Vars() []Var {
	out := make([]Var, len(e.terms))
	for i, t := range e.terms {
		out[i] = t.v
	}
	return out
}

func (e Expr) format(names []string) string {
	if e.IsConst() {
		return fmt.Sprintf("%d", e.k)
	}
	var b strings.Builder
	for i, t := range e.terms {
		name := fmt.Sprintf("v%d", t.v)
		if int(t.v) < len(names) {
			name = names[t.v]
		}
		switch {
		case i == 0 && t.c == 1:
			b.WriteString(name)
		case i == 0 && t.c == -1:
			b.WriteString("-" + name)
		case i == 0:
			fmt.Fprintf(&b, "%d*%s", t.c, name)
		case t.c == 1:
			b.WriteString(" + " + name)
		case t.c == -1:
			b.WriteString(" - " + name)
		case t.c < 0:
			fmt.Fprintf(&b, " - %d*%s", -t.c, name)
		default:
			fmt.Fprintf(&b, " + %d*%s", t.c, name)
		}
	}
	switch {
	case e.k > 0:
		fmt.Fprintf(&b, " + %d", e.k)
	case e.k < 0:
		fmt.Fprintf(&b, " - %d", -e.k)
	}
	return b.String()
}

func (e Expr) String() string {
	return e.format(nil)
}
