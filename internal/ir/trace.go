package ir

// TraceKind names a scheduler event.
type TraceKind string

const (
	TraceStart   TraceKind = "start"   // activation begins running
	TraceEnter   TraceKind = "enter"   // claim granted
	TraceExit    TraceKind = "exit"    // claim released, before unmask
	TraceFinish  TraceKind = "finish"  // activation returned
	TracePend    TraceKind = "pend"    // activation recorded pending
	TracePreempt TraceKind = "preempt" // running frame interrupted
	TraceResume  TraceKind = "resume"  // interrupted frame continues
	TraceFault   TraceKind = "fault"   // activation aborted by a fault
)

// TraceRecord is one scheduler event. Level carries the priority for
// start and finish events and the threshold inside the claim for enter and
// exit events.
type TraceRecord struct {
	Seq      int64     `json:"seq"`
	Cycle    int64     `json:"cycle"`
	Kind     TraceKind `json:"kind"`
	Task     string    `json:"task"`
	Resource string    `json:"resource,omitempty"`
	Level    Priority  `json:"level"`
	Label    string    `json:"label,omitempty"` // vector or scenario the event belongs to
	Detail   string    `json:"detail,omitempty"`
}
