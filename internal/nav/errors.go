package nav

import (
	"errors"
	"fmt"
)

// ErrConfig is matched by every configuration failure, so callers can test
// with errors.Is regardless of which component rejected the input.
var ErrConfig = errors.New("configuration error")

// ConfigError reports a rejected construction parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NewConfigError is a convenience for building a *ConfigError with a
// formatted reason.
func NewConfigError(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
