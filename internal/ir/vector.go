package ir

// OutcomeKind classifies how a path ended.
type OutcomeKind string

const (
	OutcomeOK    OutcomeKind = "ok"
	OutcomeFault OutcomeKind = "fault"
)

// FaultKind classifies an arithmetic or assertion fault.
type FaultKind string

const (
	FaultOverflow  FaultKind = "overflow"
	FaultUnderflow FaultKind = "underflow"
	FaultAssertion FaultKind = "assertion"
)

// Fault describes a fault and the source location that raised it.
type Fault struct {
	Kind     FaultKind `json:"kind"`
	Location string    `json:"location"` // file:line
}

// Outcome is the observed result of running one path.
type Outcome struct {
	Kind  OutcomeKind `json:"kind"`
	Fault *Fault      `json:"fault,omitempty"`
}

// OK is the outcome of a path that completed normally.
func OK() Outcome {
	return Outcome{Kind: OutcomeOK}
}

// Faulted returns a fault outcome.
func Faulted(kind FaultKind, location string) Outcome {
	return Outcome{Kind: OutcomeFault, Fault: &Fault{Kind: kind, Location: location}}
}

// Equal reports whether two outcomes are identical.
func (o Outcome) Equal(other Outcome) bool {
	if o.Kind != other.Kind {
		return false
	}
	if o.Fault == nil || other.Fault == nil {
		return o.Fault == nil && other.Fault == nil
	}
	return *o.Fault == *other.Fault
}

func (o Outcome) String() string {
	if o.Fault == nil {
		return string(o.Kind)
	}
	return string(o.Kind) + " " + string(o.Fault.Kind) + " at " + o.Fault.Location
}

// Assignment is the concrete value of one resource at task entry.
type Assignment struct {
	Resource string `json:"resource"`
	Value    uint32 `json:"value"`
}

// TestVector reproduces one feasible path of one task. Immutable once
// recorded.
type TestVector struct {
	ID          string       `json:"id"` // content-addressed, see VectorID
	App         string       `json:"app"`
	Task        string       `json:"task"`
	Path        string       `json:"path"`    // branch decisions, '1' taken / '0' not taken
	PathID      string       `json:"path_id"` // see PathID
	Assignments []Assignment `json:"assignments"`
	Outcome     Outcome      `json:"outcome"`
}

// Value returns the assigned value of a resource.
func (v TestVector) Value(resource string) (uint32, bool) {
	for _, a := range v.Assignments {
		if a.Resource == resource {
			return a.Value, true
		}
	}
	return 0, false
}
