package harness

import (
	"github.com/roach88/rtfm/internal/engine"
	"github.com/roach88/rtfm/internal/ir"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	Trace []ir.TraceRecord `json:"trace"`

	Errors []string `json:"errors,omitempty"`

	// Final holds every resource value after the run.
	Final map[string]uint32 `json:"final"`

	// Activations lists finished activations in completion order.
	Activations []engine.Result `json:"activations"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []ir.TraceRecord{},
		Errors: []string{},
		Final:  make(map[string]uint32),
	}
}

// AddError records a failed assertion.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
