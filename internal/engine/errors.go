package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error detected while building or running the engine.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
	Task    string
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeMissingBody: a declared task has no body.
	ErrCodeMissingBody RuntimeErrorCode = "MISSING_BODY"

	// ErrCodeUnknownTask: a body or activation names an undeclared task.
	ErrCodeUnknownTask RuntimeErrorCode = "UNKNOWN_TASK"

	// ErrCodeCycleBudget: execution ran past the configured cycle budget.
	ErrCodeCycleBudget RuntimeErrorCode = "CYCLE_BUDGET"

	// ErrCodeBusy: Invoke was called while a frame is running.
	ErrCodeBusy RuntimeErrorCode = "BUSY"
)

func (e *RuntimeError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBudgetError reports whether err is a cycle budget error.
func IsBudgetError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCycleBudget
	}
	return false
}

func newBudgetError(task string, cycles, limit int64) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCycleBudget,
		Message: fmt.Sprintf("cycle budget exceeded (%d > %d)", cycles, limit),
		Task:    task,
		Details: map[string]string{
			"cycles":     fmt.Sprintf("%d", cycles),
			"max_cycles": fmt.Sprintf("%d", limit),
		},
	}
}

// ProtocolError is raised, as a panic value, on lock protocol misuse:
// claiming an undeclared resource, claiming a held resource, restoring a
// threshold out of order, or touching a cell after its claim ended. These
// are programming errors; the scoped Claim API makes most of them
// unrepresentable.
type ProtocolError struct {
	Op      string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("lock protocol misuse in %s: %s", e.Op, e.Message)
}

func misuse(op, format string, args ...any) {
	panic(&ProtocolError{Op: op, Message: fmt.Sprintf(format, args...)})
}
