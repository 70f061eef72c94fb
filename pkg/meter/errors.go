package meter

import (
	"errors"
	"fmt"
)

// ErrInterrupted signals an operator-initiated cancellation. It is a clean
// termination, not a device or usage fault.
var ErrInterrupted = errors.New("interrupted")

// BadArgumentError reports a value rejected by a property's domain, or a
// set targeting a read-only property.
type BadArgumentError struct {
	Property string
	Value    string
	Message  string
}

func (e *BadArgumentError) Error() string {
	if e.Property == "" {
		return fmt.Sprintf("bad argument: %s", e.Message)
	}
	return fmt.Sprintf("bad argument %s=%q: %s", e.Property, e.Value, e.Message)
}

// UsageError reports a malformed command line or remote request.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return "usage: " + e.Message
}

// ConfigError reports an invalid configuration value, detected before any
// device traffic.
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s=%v: %s", e.Field, e.Value, e.Message)
}

// DeviceError reports a transport-level failure or a fault reported by the
// instrument itself.
type DeviceError struct {
	Cmd string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device command %q: %v", e.Cmd, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsExpected reports whether err belongs to the modeled error taxonomy.
// The remote session drops the offending client but keeps serving for
// expected errors; anything else terminates the service.
func IsExpected(err error) bool {
	if err == nil {
		return false
	}

	var badArg *BadArgumentError
	var usage *UsageError
	var config *ConfigError
	var device *DeviceError

	return errors.As(err, &badArg) ||
		errors.As(err, &usage) ||
		errors.As(err, &config) ||
		errors.As(err, &device) ||
		errors.Is(err, ErrInterrupted)
}
