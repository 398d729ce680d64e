// ABOUTME: Sentinel errors shared by device backends
// ABOUTME: Backends wrap these so callers can match with errors.Is
package device

import "errors"

var (
	// ErrNotOpen is returned when an operation needs an open device.
	ErrNotOpen = errors.New("device not open")

	// ErrAlreadyStarted is returned by Start on a playing device.
	ErrAlreadyStarted = errors.New("device already started")

	// ErrNilCallback is returned by Start when no callback is supplied.
	ErrNilCallback = errors.New("nil callback")

	// ErrBadSetup is returned by Open for unusable setup parameters.
	ErrBadSetup = errors.New("invalid device setup")

	// ErrUnknownDevice is returned by a Type for names it did not report.
	ErrUnknownDevice = errors.New("unknown device name")
)
