package input

import "fmt"

// ButtonMask is the set of pointer buttons held down.
type ButtonMask uint8

const (
	MaskLeft ButtonMask = 1 << iota
	MaskRight
	MaskMiddle
	MaskOther
)

// Point is a pointer position in native integer coordinates.
type Point struct {
	X, Y int32
}

// PointerState is a snapshot of the pointer read immediately before use.
// It is never cached: the pointer can be moved by other programs at any time.
type PointerState struct {
	Point
	Buttons ButtonMask
}

// Locator reads pointer state from the backend. Implementations must be safe
// for concurrent use.
type Locator interface {
	PointerState() (PointerState, error)
}

// LocatorFunc adapts a function to the Locator interface.
type LocatorFunc func() (PointerState, error)

// PointerState calls f.
func (f LocatorFunc) PointerState() (PointerState, error) {
	return f()
}

// queryPointer reads the pointer through l. A failed or missing locator
// yields the zero state and an error wrapping ErrPointerState.
func queryPointer(l Locator) (PointerState, error) {
	if l == nil {
		return PointerState{}, fmt.Errorf("%w: backend has no locator", ErrPointerState)
	}
	st, err := l.PointerState()
	if err != nil {
		return PointerState{}, fmt.Errorf("%w: %w", ErrPointerState, err)
	}
	return st, nil
}

// dragKind picks the motion kind for the held buttons. Left wins over
// right, right over the rest.
func dragKind(held ButtonMask) MotionKind {
	switch {
	case held&MaskLeft != 0:
		return MotionDragLeft
	case held&MaskRight != 0:
		return MotionDragRight
	case held&(MaskMiddle|MaskOther) != 0:
		return MotionDragOther
	default:
		return MotionMove
	}
}
