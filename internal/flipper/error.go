package flipper

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceNotFound is returned when no serial port matches the discovery patterns
	// or the configured port does not exist
	ErrDeviceNotFound = errors.New("device not found")

	// ErrPortOpen is returned when the serial port exists but cannot be opened
	ErrPortOpen = errors.New("opening serial port failed")

	// ErrPortBusy is returned when the serial port is held by another process
	ErrPortBusy = errors.New("serial port busy")

	// ErrPermissionDenied is returned when the user is not allowed to open the serial port
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRemoteNotFound is returned when the device reports the remote file as missing
	ErrRemoteNotFound = errors.New("remote file not found")
)

// ConfigError is a custom error type for configuration errors
type ConfigError struct {
	msg string
}

func NewConfigError(msg string) *ConfigError {
	return &ConfigError{msg}
}

func (e *ConfigError) Error() string {
	return e.msg
}

// ResponseError carries the raw device response of a failed command, so the operator
// can see what the device actually printed.
type ResponseError struct {
	Command  string
	Response string
	Err      error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Err.Error())
}

func (e *ResponseError) Unwrap() error {
	return e.Err
}
