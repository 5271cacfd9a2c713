package sym

import (
	"fmt"
	"strings"
)

// DefaultMaxDecisions bounds the decisions of one path.
const DefaultMaxDecisions = 4096

// Alternative is a decision prefix that leads to an unexplored path.
// FaultSite is set when the last decision of the prefix enters a fault.
type Alternative struct {
	Prefix    []bool
	FaultSite string
}

// Path is the evaluation state of one execution. It is not safe for
// concurrent use; the concrete path returned by Concrete is, because it
// never records anything.
type Path struct {
	solver       Solver
	domains      []Domain
	names        []string
	constraints  []Constraint
	forced       []bool
	decisions    []bool
	alternatives []Alternative
	reported     func(site string) bool
	suppressed   int
	maxDecisions int
	concrete     bool
}

// PathOption configures a Path.
type PathOption func(*Path)

// WithSolver replaces the default interval solver.
func WithSolver(s Solver) PathOption {
	return func(p *Path) {
		p.solver = s
	}
}

// WithPrefix forces the first decisions of the path.
func WithPrefix(prefix []bool) PathOption {
	return func(p *Path) {
		p.forced = prefix
	}
}

// WithReported installs the fault-site filter. A fault branch at a site
// for which reported returns true is not explored again.
func WithReported(reported func(site string) bool) PathOption {
	return func(p *Path) {
		p.reported = reported
	}
}

// WithMaxDecisions bounds the decisions of the path.
func WithMaxDecisions(n int) PathOption {
	return func(p *Path) {
		p.maxDecisions = n
	}
}

// NewPath returns an empty symbolic path.
func NewPath(opts ...PathOption) *Path {
	p := &Path{
		solver:       Interval{},
		reported:     func(string) bool { return false },
		maxDecisions: DefaultMaxDecisions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var concretePath = &Path{concrete: true}

// Concrete returns the path used for concrete execution. Every value
// passed through it must be constant.
func Concrete() *Path {
	return concretePath
}

// NewVar declares a fresh variable ranging over all values of the width.
func (p *Path) NewVar(name string, width int) Value {
	if p.concrete {
		panic("sym: variables cannot be declared on the concrete path")
	}
	checkWidth(width)
	v := Var(len(p.domains))
	p.domains = append(p.domains, Domain{Lo: 0, Hi: int64(maxOf(width))})
	p.names = append(p.names, name)
	return Value{e: varExpr(v), width: width}
}

// Decisions returns the decision string, '1' for taken and '0' for not.
func (p *Path) Decisions() string {
	var b strings.Builder
	for _, d := range p.decisions {
		if d {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Alternatives returns the unexplored prefixes discovered by this run.
func (p *Path) Alternatives() []Alternative {
	return p.alternatives
}

// Suppressed returns how many fault branches were skipped because their
// site had already been reported.
func (p *Path) Suppressed() int {
	return p.suppressed
}

// Constraints returns the path condition.
func (p *Path) Constraints() []Constraint {
	return p.constraints
}

// Names returns the variable names in declaration order.
func (p *Path) Names() []string {
	return p.names
}

// Model solves the path condition. Values are indexed by Var.
func (p *Path) Model() (Model, error) {
	m, st := p.solver.Solve(p.domains, p.constraints)
	if st != Sat {
		return nil, fmt.Errorf("path %q: solver returned %s", p.Decisions(), st)
	}
	return m, nil
}

// Eval returns the value of v under m.
func Eval(v Value, m Model) uint32 {
	return uint32(v.e.eval(m))
}

func (p *Path) feasible(c Constraint) bool {
	cs := make([]Constraint, len(p.constraints)+1)
	copy(cs, p.constraints)
	cs[len(cs)-1] = c
	_, st := p.solver.Solve(p.domains, cs)
	// Unknown keeps the branch; a later Model call reports it.
	return st != Unsat
}

// decide evaluates c on the current path and returns its truth value.
//
// If c is constant it is evaluated directly and nothing is recorded.
// Otherwise the decision is either forced by the prefix or chosen here,
// in which case the untaken outcome, when feasible, becomes an
// Alternative. The preferred outcome is taken first: true for branches,
// false when fault is set, so that the fault path is explored later.
func (p *Path) decide(c Constraint, site string, fault bool) bool {
	if c.IsConst() {
		return c.test(c.e.k)
	}
	if p.concrete {
		panic("sym: symbolic value on the concrete path at " + site)
	}

	idx := len(p.decisions)
	if idx < len(p.forced) {
		return p.commit(c, p.forced[idx])
	}
	if idx >= p.maxDecisions {
		panic(&Abort{Reason: AbortBudget, Site: site})
	}

	canTrue := p.feasible(c)
	canFalse := p.feasible(c.Not())

	if fault && canTrue && p.reported(site) {
		canTrue = false
		p.suppressed++
		if !canFalse {
			panic(&Abort{Reason: AbortSuppressed, Site: site})
		}
	}

	prefer := !fault
	switch {
	case canTrue && canFalse:
		alt := Alternative{Prefix: append(p.prefixCopy(), !prefer)}
		if fault {
			alt.FaultSite = site
		}
		p.alternatives = append(p.alternatives, alt)
		return p.commit(c, prefer)
	case canTrue:
		return p.commit(c, true)
	case canFalse:
		return p.commit(c, false)
	}
	panic(&Abort{Reason: AbortInfeasible, Site: site})
}

func (p *Path) commit(c Constraint, taken bool) bool {
	if taken {
		p.constraints = append(p.constraints, c)
	} else {
		p.constraints = append(p.constraints, c.Not())
	}
	p.decisions = append(p.decisions, taken)
	return taken
}

func (p *Path) prefixCopy() []bool {
	out := make([]bool, len(p.decisions), len(p.decisions)+1)
	copy(out, p.decisions)
	return out
}
