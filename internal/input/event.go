// Package input synthesizes keyboard and mouse events at the operating
// system level.
//
// An Event describes one abstract action. A Simulator turns it into native
// calls on a Backend: it opens a short lived Session, lets the Translator
// issue the calls, flushes and releases the session before returning.
// Backends are selected at build time (X11 via XTEST on Linux and the BSDs,
// CoreGraphics on macOS, SendInput on Windows).
package input

import "fmt"

// EventKind tags the variant held by an Event.
type EventKind uint8

const (
	KindKeyPress EventKind = iota + 1
	KindKeyRelease
	KindButtonPress
	KindButtonRelease
	KindPointerMove
	KindWheel
)

func (k EventKind) String() string {
	switch k {
	case KindKeyPress:
		return "key_press"
	case KindKeyRelease:
		return "key_release"
	case KindButtonPress:
		return "button_press"
	case KindButtonRelease:
		return "button_release"
	case KindPointerMove:
		return "pointer_move"
	case KindWheel:
		return "wheel"
	default:
		return "unknown"
	}
}

// Event is a tagged union. Only the fields belonging to Kind are meaningful;
// use the constructors rather than filling the struct by hand.
type Event struct {
	Kind   EventKind
	Key    Key
	Button Button

	// PointerMove, absolute screen coordinates.
	X, Y float64

	// Wheel, in notches or pixels depending on the backend.
	DeltaX, DeltaY int64
}

func KeyPress(k Key) Event         { return Event{Kind: KindKeyPress, Key: k} }
func KeyRelease(k Key) Event       { return Event{Kind: KindKeyRelease, Key: k} }
func ButtonPress(b Button) Event   { return Event{Kind: KindButtonPress, Button: b} }
func ButtonRelease(b Button) Event { return Event{Kind: KindButtonRelease, Button: b} }

func PointerMove(x, y float64) Event {
	return Event{Kind: KindPointerMove, X: x, Y: y}
}

func Wheel(deltaX, deltaY int64) Event {
	return Event{Kind: KindWheel, DeltaX: deltaX, DeltaY: deltaY}
}

func (e Event) String() string {
	switch e.Kind {
	case KindKeyPress, KindKeyRelease:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Key)
	case KindButtonPress, KindButtonRelease:
		return fmt.Sprintf("%s(%s)", e.Kind, e.Button)
	case KindPointerMove:
		return fmt.Sprintf("%s(%g, %g)", e.Kind, e.X, e.Y)
	case KindWheel:
		return fmt.Sprintf("%s(%d, %d)", e.Kind, e.DeltaX, e.DeltaY)
	default:
		return fmt.Sprintf("event(%d)", uint8(e.Kind))
	}
}
