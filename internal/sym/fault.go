package sym

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/roach88/rtfm/internal/ir"
)

// Fault is raised, as a panic value, by an operation that overflows,
// underflows or fails an assertion on the current path.
type Fault struct {
	Kind ir.FaultKind
	Site string // file:line of the operation in the task body
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at %s", f.Kind, f.Site)
}

// Outcome converts the fault to a path outcome.
func (f *Fault) Outcome() ir.Outcome {
	return ir.Faulted(f.Kind, f.Site)
}

// AbortReason says why exploration of a path stopped without an outcome.
type AbortReason string

const (
	// AbortSuppressed: the path can only continue into a fault whose site
	// was already reported.
	AbortSuppressed AbortReason = "suppressed"

	// AbortInfeasible: no branch outcome is satisfiable.
	AbortInfeasible AbortReason = "infeasible"

	// AbortBudget: the path exceeded its decision budget.
	AbortBudget AbortReason = "decision budget exceeded"

	// AbortRange: a symbolic expression grew past what the solver can
	// represent.
	AbortRange AbortReason = "expression out of range"

	// AbortAssumption: the path violates an assumed precondition. It is
	// not a failure of the body and is dropped without a vector.
	AbortAssumption AbortReason = "assumption violated"
)

// Abort is raised, as a panic value, when a path must be dropped.
type Abort struct {
	Reason AbortReason
	Site   string
}

func (a *Abort) Error() string {
	if a.Site == "" {
		return "path aborted: " + string(a.Reason)
	}
	return fmt.Sprintf("path aborted at %s: %s", a.Site, a.Reason)
}

// AsFault reports whether err is a *Fault.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Caller returns the file:line of the function skip frames above the
// caller of Caller.
func Caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
