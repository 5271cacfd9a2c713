//go:build property
// +build property

package sym

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestIntervalModelsSatisfyConstraints checks that every model the solver
// returns satisfies the constraints and the variable domains.
// Property: Solve(cs) == (m, Sat) => all c in cs hold under m
func TestIntervalModelsSatisfyConstraints(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sat models satisfy every constraint", prop.ForAll(
		func(ca, cb []int8, ks []int16, rels []uint8) bool {
			n := min(len(ca), len(cb), len(ks), len(rels))
			cs := make([]Constraint, 0, n)
			for i := 0; i < n; i++ {
				e := varExpr(0).scale(int64(ca[i])).add(varExpr(1).scale(int64(cb[i]))).plus(int64(ks[i]))
				cs = append(cs, Constraint{e: e, rel: rel(rels[i] % 3)})
			}

			m, st := Interval{}.Solve(byteDomains(2), cs)
			if st != Sat {
				return true
			}
			for _, c := range cs {
				if !c.Holds(m) {
					return false
				}
			}
			return m[0] >= 0 && m[0] <= 255 && m[1] >= 0 && m[1] <= 255
		},
		gen.SliceOfN(4, gen.Int8()),
		gen.SliceOfN(4, gen.Int8()),
		gen.SliceOfN(4, gen.Int16()),
		gen.SliceOfN(4, gen.UInt8()),
	))

	properties.TestingRun(t)
}

// TestIntervalUnsatIsSound checks Unsat answers against brute force over
// one byte variable.
// Property: Solve(cs) == Unsat => no x in [0,255] satisfies cs
func TestIntervalUnsatIsSound(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("unsat has no witness", prop.ForAll(
		func(cs8 []int8, ks []int16, rels []uint8) bool {
			n := min(len(cs8), len(ks), len(rels))
			cs := make([]Constraint, 0, n)
			for i := 0; i < n; i++ {
				e := varExpr(0).scale(int64(cs8[i])).plus(int64(ks[i]))
				cs = append(cs, Constraint{e: e, rel: rel(rels[i] % 3)})
			}

			_, st := Interval{}.Solve(byteDomains(1), cs)
			if st != Unsat {
				return true
			}
			for x := int64(0); x <= 255; x++ {
				all := true
				for _, c := range cs {
					if !c.Holds(Model{x}) {
						all = false
						break
					}
				}
				if all {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, gen.Int8()),
		gen.SliceOfN(3, gen.Int16()),
		gen.SliceOfN(3, gen.UInt8()),
	))

	properties.TestingRun(t)
}
