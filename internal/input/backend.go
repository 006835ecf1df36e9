package input

// NativeCode is a backend specific key, button or pseudo-button code.
type NativeCode uint32

// noCode marks a Key without a native equivalent in a code table.
const noCode = ^NativeCode(0)

// MotionKind selects between a plain pointer move and a drag on backends
// that model them as different event types.
type MotionKind uint8

const (
	MotionMove MotionKind = iota
	MotionDragLeft
	MotionDragRight
	MotionDragOther
)

func (k MotionKind) String() string {
	switch k {
	case MotionMove:
		return "move"
	case MotionDragLeft:
		return "drag_left"
	case MotionDragRight:
		return "drag_right"
	case MotionDragOther:
		return "drag_other"
	default:
		return "unknown"
	}
}

// CodeTable maps abstract identifiers into a backend's code space.
type CodeTable interface {
	KeyCode(k Key) (NativeCode, bool)
	ButtonCode(b Button) (NativeCode, bool)
}

// WheelCoder is implemented by code tables of backends that express wheel
// notches as presses of pseudo-buttons.
type WheelCoder interface {
	WheelButton(dir ScrollDirection) (NativeCode, bool)
}

// ScrollDirection is the direction of one wheel notch.
type ScrollDirection uint8

const (
	ScrollUp ScrollDirection = iota
	ScrollDown
	ScrollLeft
	ScrollRight
)

func (d ScrollDirection) String() string {
	switch d {
	case ScrollUp:
		return "up"
	case ScrollDown:
		return "down"
	case ScrollLeft:
		return "left"
	case ScrollRight:
		return "right"
	default:
		return "none"
	}
}

// Caps describes behaviour that changes how events are translated.
type Caps struct {
	// DragEvents is set when pointer motion with a held button must be
	// posted as a drag event rather than a plain move.
	DragEvents bool
}

// Session is an open connection to the native input subsystem. It is owned
// by a single call and never shared.
type Session interface {
	FakeKey(code NativeCode, pressed bool) error
	FakeButton(code NativeCode, pressed bool) error
	FakeMotion(x, y int32, kind MotionKind) error
	// Flush pushes buffered requests to the subsystem and waits for them
	// to be processed.
	Flush() error
	Close() error
}

// Scroller is implemented by sessions with a native scroll primitive. The
// session converts the deltas into its own unit and fails when either axis
// does not fit the accepted width.
type Scroller interface {
	FakeScroll(deltaX, deltaY int64) error
}

// RelativeMover is implemented by sessions that can move the pointer by an
// offset without knowing its position.
type RelativeMover interface {
	FakeRelativeMotion(dx, dy int32) error
}

// Backend is one operating system's input injection subsystem.
type Backend interface {
	Name() string
	Codes() CodeTable
	Caps() Caps
	// Open acquires a session for one simulate call.
	Open() (Session, error)
	// Locator returns the long lived pointer query handle. It may be nil
	// when the backend cannot report pointer state.
	Locator() Locator
}
