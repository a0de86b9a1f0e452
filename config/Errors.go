package config

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error reports an invalid configuration field. Configuration errors are
// fatal: callers abort startup instead of running degraded.
type Error struct {
	Field  string
	Reason string
}

// Error satisfies the error interface
func (e *Error) Error() string {
	return "invalid config field " + e.Field + ": " + e.Reason
}

func newError(field, format string, args ...interface{}) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigError returns whether err, or the error it wraps, is a
// configuration error.
func IsConfigError(err error) bool {
	var configErr *Error
	return errors.As(err, &configErr)
}
