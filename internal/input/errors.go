package input

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionUnavailable is returned when no connection to the native
	// input subsystem could be opened.
	ErrSessionUnavailable = errors.New("input session unavailable")

	// ErrUnsupportedKey is returned when the active backend has no code for a key.
	ErrUnsupportedKey = errors.New("key not supported by backend")

	// ErrUnsupportedButton is returned when a button has no mapping or its raw
	// code does not fit the backend's code width.
	ErrUnsupportedButton = errors.New("button not supported by backend")

	// ErrNativeCall is returned when a native injection call reports failure.
	ErrNativeCall = errors.New("native input call failed")

	// ErrPointerState is returned when the pointer position or button state
	// could not be read.
	ErrPointerState = errors.New("pointer state unavailable")

	// ErrWheelTooLarge is returned when a wheel event exceeds the notch limit.
	ErrWheelTooLarge = errors.New("wheel delta exceeds notch limit")

	// ErrUnsupportedPlatform is returned by backends on platforms without an
	// injection implementation.
	ErrUnsupportedPlatform = errors.New("input injection not supported on this platform")

	ErrEmptyKeyName      = errors.New("empty key name")
	ErrUnknownKeyName    = errors.New("unknown key name")
	ErrUnknownButtonName = errors.New("unknown button name")
	ErrInvalidEvent      = errors.New("invalid event")
)

// SimulateError is the single error type returned by Simulator.Simulate.
// Its message does not distinguish causes; Unwrap exposes the cause for
// logging and errors.Is checks.
type SimulateError struct {
	Event Event
	err   error
}

func (e *SimulateError) Error() string {
	return fmt.Sprintf("could not simulate %s", e.Event)
}

func (e *SimulateError) Unwrap() error {
	return e.err
}

func nativeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNativeCall, op, err)
}
