package resource

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	ErrCodeNoAccessor      ErrorCode = "E_NO_ACCESSOR"
	ErrCodeUnknownResource ErrorCode = "E_UNKNOWN_RESOURCE"
	ErrCodePriority        ErrorCode = "E_PRIORITY"
	ErrCodeDuplicate       ErrorCode = "E_DUPLICATE"
	ErrCodeWidth           ErrorCode = "E_WIDTH"
	ErrCodeReentrantShare  ErrorCode = "E_REENTRANT_SHARE"
)

// ConfigError is a fatal declaration error found before scheduling starts.
type ConfigError struct {
	Code     ErrorCode
	Task     string
	Resource string
	Message  string
}

func (e *ConfigError) Error() string {
	switch {
	case e.Task != "" && e.Resource != "":
		return fmt.Sprintf("%s: %s (task=%s, resource=%s)", e.Code, e.Message, e.Task, e.Resource)
	case e.Task != "":
		return fmt.Sprintf("%s: %s (task=%s)", e.Code, e.Message, e.Task)
	case e.Resource != "":
		return fmt.Sprintf("%s: %s (resource=%s)", e.Code, e.Message, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err wraps a ConfigError with the code.
func IsConfigError(err error, code ErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
