package ir

// MeasureEvent is one timing point of a measured activation. Enter and
// exit events carry the ceiling of the claimed resource; start and finish
// events carry the task priority.
type MeasureEvent struct {
	Seq      int       `json:"seq"`
	Kind     TraceKind `json:"kind"`
	Resource string    `json:"resource,omitempty"`
	Ceiling  Priority  `json:"ceiling"`
	Cycle    int64     `json:"cycle"`
}

// Measurement is the timing trace of one test vector replayed alone from
// a cycle counter reset to zero.
type Measurement struct {
	VectorID string         `json:"vector_id"`
	Task     string         `json:"task"`
	Outcome  Outcome        `json:"outcome"`
	Events   []MeasureEvent `json:"events"`
}
