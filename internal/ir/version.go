package ir

const (
	// SchemaVersion is the version of the persisted vector format.
	SchemaVersion = "1"

	// EngineVersion is the scheduler version recorded with each run.
	EngineVersion = "0.1.0"
)
