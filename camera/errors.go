package camera

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is generated when Start is called while an
	// acquisition session is active.  The running session is unaffected.
	ErrAlreadyRunning = errors.New("camera: acquisition already running")

	// ErrNotRunning is generated when a frame is polled outside a session
	ErrNotRunning = errors.New("camera: acquisition not running")

	// ErrNoFrame indicates a poll timed out without a new frame becoming
	// available.  It is an expected outcome, not a fault; callers retry.
	ErrNoFrame = errors.New("camera: no frame available yet")

	// ErrTriggerUnavailable is generated when the external trigger I/O
	// device cannot be reached.  It never prevents camera-only operation.
	ErrTriggerUnavailable = errors.New("trigger: device unavailable")
)

// HardwareUnavailableError indicates the camera could not be found or the
// driver failed to initialize.  Fatal to session start.
type HardwareUnavailableError struct {
	Cause error
}

func (e *HardwareUnavailableError) Error() string {
	return fmt.Sprintf("camera: hardware unavailable: %v", e.Cause)
}

func (e *HardwareUnavailableError) Unwrap() error { return e.Cause }

// InvalidConfigurationError rejects a configuration before a session is
// created.  Recoverable; the operator corrects the named field and retries.
type InvalidConfigurationError struct {
	// Field is the name of the offending configuration field
	Field string

	// Reason says what is wrong with it
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("camera: invalid configuration: %s: %s", e.Field, e.Reason)
}

// DeviceError is an unrecoverable mid-session hardware fault.  The worker
// loop terminates on it and the session is marked faulted; the operator
// must start a new session.
type DeviceError struct {
	// Op is the adapter operation that faulted
	Op string

	// Cause is the underlying driver error
	Cause error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera: device error during %s: %v", e.Op, e.Cause)
}

func (e *DeviceError) Unwrap() error { return e.Cause }
