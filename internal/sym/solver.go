package sym

// Status is the result of a satisfiability query.
type Status int

const (
	Unsat Status = iota
	Sat
	Unknown
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Domain is the closed integer range a variable may take.
type Domain struct {
	Lo, Hi int64
}

func (d Domain) empty() bool { return d.Lo > d.Hi }

// Model assigns a value to every variable, indexed by Var.
type Model []int64

// Solver decides satisfiability of a constraint conjunction over bounded
// variables and produces a model when satisfiable.
type Solver interface {
	Solve(domains []Domain, cs []Constraint) (Model, Status)
}

// DefaultBudget is the node budget of the interval solver.
const DefaultBudget = 20000

// maxRounds caps bound propagation per search node. Slow convergence is
// left to bisection.
const maxRounds = 64

// Interval is a bounded solver for linear constraints: interval bound
// propagation with bisection search. Lower halves are searched first, so
// models are small and deterministic. It reports Unknown when the node
// budget runs out.
type Interval struct {
	Budget int
}

// Solve implements Solver.
func (s Interval) Solve(domains []Domain, cs []Constraint) (Model, Status) {
	budget := s.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	d := make([]Domain, len(domains))
	copy(d, domains)
	return search(d, cs, &budget)
}

func search(d []Domain, cs []Constraint, budget *int) (Model, Status) {
	if *budget <= 0 {
		return nil, Unknown
	}
	*budget--

	if !propagate(d, cs) {
		return nil, Unsat
	}

	m := make(Model, len(d))
	for i, dom := range d {
		m[i] = dom.Lo
	}
	split := -1
	for _, c := range cs {
		if c.Holds(m) {
			continue
		}
		for _, t := range c.e.terms {
			if d[t.v].Lo < d[t.v].Hi {
				split = int(t.v)
				break
			}
		}
		if split < 0 {
			// every variable of a violated constraint is fixed
			return nil, Unsat
		}
		break
	}
	if split < 0 {
		return m, Sat
	}

	mid := d[split].Lo + (d[split].Hi-d[split].Lo)/2
	left := make([]Domain, len(d))
	copy(left, d)
	left[split].Hi = mid
	model, st := search(left, cs, budget)
	if st == Sat {
		return model, st
	}

	right := make([]Domain, len(d))
	copy(right, d)
	right[split].Lo = mid + 1
	model, st2 := search(right, cs, budget)
	if st2 == Sat {
		return model, st2
	}
	if st == Unknown || st2 == Unknown {
		return nil, Unknown
	}
	return nil, Unsat
}

// propagate narrows domains in place. It returns false when some domain
// becomes empty or a variable-free constraint is violated.
func propagate(d []Domain, cs []Constraint) bool {
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, c := range cs {
			if c.e.IsConst() {
				if !c.test(c.e.k) {
					return false
				}
				continue
			}
			var ok, ch bool
			switch c.rel {
			case relLE:
				ok, ch = narrowLE(d, c.e)
			case relEQ:
				ok, ch = narrowLE(d, c.e)
				if ok {
					var ch2 bool
					ok, ch2 = narrowLE(d, c.e.neg())
					ch = ch || ch2
				}
			case relNE:
				ok, ch = narrowNE(d, c.e)
			}
			if !ok {
				return false
			}
			changed = changed || ch
		}
		if !changed {
			return true
		}
	}
	return true
}

// narrowLE applies e <= 0 to each variable of e.
func narrowLE(d []Domain, e Expr) (ok, changed bool) {
	minSum := e.k
	for _, t := range e.terms {
		minSum += minTerm(d, t)
	}
	if minSum > 0 {
		return false, false
	}
	for _, t := range e.terms {
		// t.c * x <= -(minSum - minTerm(t))
		bound := -(minSum - minTerm(d, t))
		dom := &d[t.v]
		if t.c > 0 {
			hi := floorDiv(bound, t.c)
			if hi < dom.Hi {
				dom.Hi = hi
				changed = true
			}
		} else {
			lo := ceilDiv(bound, t.c)
			if lo > dom.Lo {
				dom.Lo = lo
				changed = true
			}
		}
		if dom.empty() {
			return false, changed
		}
	}
	return true, changed
}

// narrowNE trims a single-variable disequality at the domain edges.
func narrowNE(d []Domain, e Expr) (ok, changed bool) {
	if len(e.terms) != 1 {
		return true, false
	}
	t := e.terms[0]
	// t.c * x + k != 0
	if (-e.k)%t.c != 0 {
		return true, false
	}
	x := -e.k / t.c
	dom := &d[t.v]
	if x == dom.Lo {
		dom.Lo++
		changed = true
	} else if x == dom.Hi {
		dom.Hi--
		changed = true
	}
	return !dom.empty(), changed
}

func minTerm(d []Domain, t term) int64 {
	if t.c > 0 {
		return t.c * d[t.v].Lo
	}
	return t.c * d[t.v].Hi
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) == (b < 0)) {
		q++
	}
	return q
}
