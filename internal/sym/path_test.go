package sym

import (
	"strings"
	"testing"

	"github.com/roach88/rtfm/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type explored struct {
	decisions string
	inputs    []uint32
	fault     *Fault
}

// exploreBody enumerates every path of body the way the harness does:
// depth-first over alternatives, one report per fault site.
func exploreBody(t *testing.T, widths []int, body func(p *Path, in []Value)) ([]explored, int) {
	t.Helper()

	reported := map[string]bool{}
	suppressed := 0
	var out []explored

	stack := []Alternative{{}}
	for len(stack) > 0 {
		alt := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if alt.FaultSite != "" && reported[alt.FaultSite] {
			suppressed++
			continue
		}

		p := NewPath(WithPrefix(alt.Prefix), WithReported(func(s string) bool { return reported[s] }))
		in := make([]Value, len(widths))
		for i, w := range widths {
			in[i] = p.NewVar(string(rune('a'+i)), w)
		}

		fault, abort := guard(func() { body(p, in) })
		stack = append(stack, p.Alternatives()...)
		suppressed += p.Suppressed()
		if abort != nil {
			continue
		}
		if fault != nil {
			if reported[fault.Site] {
				suppressed++
				continue
			}
			reported[fault.Site] = true
		}

		m, err := p.Model()
		require.NoError(t, err)
		inputs := make([]uint32, len(in))
		for i, v := range in {
			inputs[i] = Eval(v, m)
		}
		out = append(out, explored{decisions: p.Decisions(), inputs: inputs, fault: fault})
	}
	return out, suppressed
}

func guard(f func()) (fault *Fault, abort *Abort) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case *Fault:
				fault = v
			case *Abort:
				abort = v
			default:
				panic(r)
			}
		}
	}()
	f()
	return nil, nil
}

func faults(runs []explored) []explored {
	var out []explored
	for _, r := range runs {
		if r.fault != nil {
			out = append(out, r)
		}
	}
	return out
}

func TestSingleBranchYieldsTwoPaths(t *testing.T) {
	runs, _ := exploreBody(t, []int{32}, func(p *Path, in []Value) {
		if p.Less(in[0], Const(10)) {
			return
		}
	})

	require.Len(t, runs, 2)
	assert.Empty(t, faults(runs))

	var below, above int
	for _, r := range runs {
		if r.inputs[0] < 10 {
			below++
		} else {
			above++
		}
	}
	assert.Equal(t, 1, below)
	assert.Equal(t, 1, above)
}

func TestBoundedIncrementHasNoFault(t *testing.T) {
	runs, _ := exploreBody(t, []int{8}, func(p *Path, in []Value) {
		x := in[0]
		if p.Less(x, Const(10)) {
			x = p.Add(x, Const(1))
		}
		_ = x
	})

	assert.Len(t, runs, 2)
	assert.Empty(t, faults(runs))
}

func TestUnboundedIncrementFaultsAtMax(t *testing.T) {
	runs, _ := exploreBody(t, []int{8}, func(p *Path, in []Value) {
		_ = p.Add(in[0], Const(1))
	})

	require.Len(t, runs, 2)
	f := faults(runs)
	require.Len(t, f, 1)
	assert.Equal(t, ir.FaultOverflow, f[0].fault.Kind)
	assert.Equal(t, uint32(255), f[0].inputs[0])
	assert.True(t, strings.HasPrefix(f[0].fault.Site, "path_test.go:"), f[0].fault.Site)
}

func TestUnderflowFault(t *testing.T) {
	runs, _ := exploreBody(t, []int{8, 8}, func(p *Path, in []Value) {
		_ = p.Sub(in[0], in[1])
	})

	f := faults(runs)
	require.Len(t, f, 1)
	assert.Equal(t, ir.FaultUnderflow, f[0].fault.Kind)
	assert.Less(t, f[0].inputs[0], f[0].inputs[1])
}

func TestLoopFaultReportedOnce(t *testing.T) {
	runs, suppressed := exploreBody(t, []int{32, 8}, func(p *Path, in []Value) {
		x, y := in[0], in[1]
		if p.Less(x, Const(10)) {
			for i := uint32(0); p.Less(Const(i), x); i++ {
				y = p.Add(y, Const(1))
			}
		}
	})

	assert.Len(t, faults(runs), 1, "one report per fault site")
	assert.Len(t, runs, 12, "x >= 10, ten loop counts, one fault")
	assert.Positive(t, suppressed, "later faults at the same site are suppressed")
}

func TestWrappingAddSplitsWithoutFault(t *testing.T) {
	var results []Value
	var paths []*Path
	runs, _ := exploreBody(t, []int{8}, func(p *Path, in []Value) {
		results = append(results, p.WrappingAdd(in[0], Const(1)))
		paths = append(paths, p)
	})

	require.Len(t, runs, 2)
	assert.Empty(t, faults(runs))

	for i, r := range runs {
		m, err := paths[i].Model()
		require.NoError(t, err)
		want := uint32((uint64(r.inputs[0]) + 1) & 0xff)
		assert.Equal(t, want, Eval(results[i], m))
	}
}

func TestForcedPrefixReplaysPath(t *testing.T) {
	body := func(p *Path, in []Value) {
		if p.Less(in[0], Const(10)) {
			p.Less(in[0], Const(5))
		}
	}

	runs, _ := exploreBody(t, []int{8}, body)
	require.Len(t, runs, 3)

	for _, r := range runs {
		prefix := make([]bool, len(r.decisions))
		for i, c := range r.decisions {
			prefix[i] = c == '1'
		}
		p := NewPath(WithPrefix(prefix))
		in := []Value{p.NewVar("a", 8)}
		body(p, in)
		assert.Equal(t, r.decisions, p.Decisions())
		assert.Empty(t, p.Alternatives(), "a fully forced path discovers nothing new")
	}
}

func TestDecisionBudgetAborts(t *testing.T) {
	p := NewPath(WithMaxDecisions(3))
	x := p.NewVar("x", 8)
	_, abort := guard(func() {
		for i := uint32(0); i < 10; i++ {
			p.Less(x, Const(i))
		}
	})
	require.NotNil(t, abort)
	assert.Equal(t, AbortBudget, abort.Reason)
}

func TestConcretePath(t *testing.T) {
	p := Concrete()

	v := p.Add(ConstOf(254, 8), Const(1))
	assert.Equal(t, uint32(255), v.Uint32())
	assert.Equal(t, 8, v.Width())

	fault, _ := guard(func() { p.Add(v, Const(1)) })
	require.NotNil(t, fault)
	assert.Equal(t, ir.FaultOverflow, fault.Kind)

	assert.Equal(t, uint32(0), p.WrappingAdd(v, Const(1)).Uint32())
	assert.Equal(t, uint32(255), p.Arith(OpSaturatingAdd, v, Const(9), "x").Uint32())
	assert.Equal(t, uint32(0), p.Arith(OpSaturatingSub, ConstOf(3, 8), Const(9), "x").Uint32())
	assert.Equal(t, uint32(3), p.Arith(OpMin, ConstOf(3, 8), Const(9), "x").Uint32())
	assert.Equal(t, uint32(9), p.Arith(OpMax, ConstOf(3, 8), Const(9), "x").Uint32())
	assert.Equal(t, uint32(254), p.Arith(OpWrappingSub, ConstOf(1, 8), Const(3), "x").Uint32())
	assert.True(t, p.Cmp(Ge, Const(3), Const(3), "x"))
	assert.False(t, p.Cmp(Ne, Const(3), Const(3), "x"))
}

func TestMulConst(t *testing.T) {
	p := Concrete()
	assert.Equal(t, uint32(200), p.MulConst(ConstOf(100, 8), 2, "x").Uint32())

	fault, _ := guard(func() { p.MulConst(ConstOf(200, 8), 2, "m") })
	require.NotNil(t, fault)
	assert.Equal(t, "m", fault.Site)

	runs, _ := exploreBody(t, []int{8}, func(p *Path, in []Value) {
		_ = p.MulConst(in[0], 3, "mul")
	})
	f := faults(runs)
	require.Len(t, f, 1)
	assert.Equal(t, uint32(86), f[0].inputs[0], "smallest x with 3x > 255")
}

func TestAssertFault(t *testing.T) {
	runs, _ := exploreBody(t, []int{32}, func(p *Path, in []Value) {
		p.Assert(p.Cmp(Gt, in[0], Const(0), "cmp"), "assert")
	})

	f := faults(runs)
	require.Len(t, f, 1)
	assert.Equal(t, ir.FaultAssertion, f[0].fault.Kind)
	assert.Equal(t, uint32(0), f[0].inputs[0])
}

func TestAssumeRemovesFaultOutsidePrecondition(t *testing.T) {
	body := func(assume bool) func(p *Path, in []Value) {
		return func(p *Path, in []Value) {
			if assume {
				p.Assume(p.Cmp(Lt, in[0], Const(8), "pre"), "assume")
			}
			_ = p.Arith(OpAdd, in[0], Const(248), "add")
		}
	}

	runs, _ := exploreBody(t, []int{8}, body(false))
	require.Len(t, faults(runs), 1)
	assert.Equal(t, uint32(8), faults(runs)[0].inputs[0])

	runs, _ = exploreBody(t, []int{8}, body(true))
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].fault)
	assert.Less(t, runs[0].inputs[0], uint32(8))
}

func TestAssume(t *testing.T) {
	_, abort := guard(func() { NewPath().Assume(false, "site") })
	require.NotNil(t, abort)
	assert.Equal(t, AbortAssumption, abort.Reason)
	assert.Equal(t, "site", abort.Site)

	assert.NotPanics(t, func() { NewPath().Assume(true, "site") })
	assert.NotPanics(t, func() { Concrete().Assume(false, "site") })
}

func TestSymbolicValueOnConcretePathPanics(t *testing.T) {
	x := NewPath().NewVar("x", 8)
	assert.Panics(t, func() { Concrete().Less(x, Const(1)) })
	assert.Panics(t, func() { Concrete().NewVar("y", 8) })
}
