package sym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byteDomains(n int) []Domain {
	d := make([]Domain, n)
	for i := range d {
		d[i] = Domain{Lo: 0, Hi: 255}
	}
	return d
}

func TestIntervalSolverBasic(t *testing.T) {
	x := varExpr(0)

	tests := []struct {
		name   string
		cs     []Constraint
		status Status
		model  int64
	}{
		{"unconstrained", nil, Sat, 0},
		{"lower bound", []Constraint{lt(constExpr(9), x)}, Sat, 10},
		{"overflow boundary", []Constraint{lt(constExpr(255), x.plus(1))}, Sat, 255},
		{"empty range", []Constraint{lt(x, constExpr(10)), lt(constExpr(20), x)}, Unsat, 0},
		{"equality", []Constraint{eq(x, constExpr(42))}, Sat, 42},
		{"disequality at edge", []Constraint{ne(x, constExpr(0))}, Sat, 1},
		{"disequality empties", []Constraint{le(x, constExpr(0)), ne(x, constExpr(0))}, Unsat, 0},
		{"beyond domain", []Constraint{lt(constExpr(255), x)}, Unsat, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, st := Interval{}.Solve(byteDomains(1), tt.cs)
			require.Equal(t, tt.status, st)
			if st == Sat {
				assert.Equal(t, tt.model, m[0])
			}
		})
	}
}

func TestIntervalSolverTwoVariables(t *testing.T) {
	x, y := varExpr(0), varExpr(1)

	// x + y == 300, x < y
	cs := []Constraint{eq(x.add(y), constExpr(300)), lt(x, y)}
	m, st := Interval{}.Solve(byteDomains(2), cs)
	require.Equal(t, Sat, st)
	for _, c := range cs {
		assert.True(t, c.Holds(m), "model %v violates %s", m, c)
	}
	assert.Equal(t, int64(45), m[0], "lowest x with y <= 255 and x < y")
}

func TestIntervalSolverBudget(t *testing.T) {
	x, y := varExpr(0), varExpr(1)
	wide := []Domain{{Lo: 0, Hi: 1 << 32}, {Lo: 0, Hi: 1 << 32}}

	// 2x - 2y == 1 has no integer solution; propagation alone cannot see it.
	cs := []Constraint{eq(x.scale(2).sub(y.scale(2)), constExpr(1))}
	_, st := Interval{Budget: 50}.Solve(wide, cs)
	assert.Equal(t, Unknown, st)
}

func TestConstraintNot(t *testing.T) {
	x := varExpr(0)
	c := lt(x, constExpr(10))
	m := Model{10}

	assert.False(t, c.Holds(m))
	assert.True(t, c.Not().Holds(m))
	assert.True(t, eq(x, constExpr(3)).Not().Holds(m))
	assert.False(t, ne(x, constExpr(10)).Holds(m))
}

func TestFloorCeilDiv(t *testing.T) {
	assert.Equal(t, int64(-2), floorDiv(-3, 2))
	assert.Equal(t, int64(1), floorDiv(3, 2))
	assert.Equal(t, int64(-1), ceilDiv(-3, 2))
	assert.Equal(t, int64(2), ceilDiv(3, 2))
	assert.Equal(t, int64(2), ceilDiv(-3, -2))
	assert.Equal(t, int64(1), floorDiv(-3, -2))
}
