package input

import "fmt"

// DefaultMaxWheelNotches bounds the press/release pairs a single wheel event
// may expand to on backends without a native scroll call.
const DefaultMaxWheelNotches = 1000

// Translator turns one Event into native calls on an open Session.
type Translator struct {
	codes    CodeTable
	caps     Caps
	locator  Locator
	maxWheel uint64
}

// NewTranslator builds a translator for backend b. maxWheel of 0 disables
// the wheel notch limit.
func NewTranslator(b Backend, maxWheel uint64) *Translator {
	return &Translator{
		codes:    b.Codes(),
		caps:     b.Caps(),
		locator:  b.Locator(),
		maxWheel: maxWheel,
	}
}

// Translate issues the native calls for ev. Validation happens before the
// first call, so an unmapped key or button never reaches the session.
func (t *Translator) Translate(ev Event, s Session) error {
	switch ev.Kind {
	case KindKeyPress, KindKeyRelease:
		return t.key(ev.Key, ev.Kind == KindKeyPress, s)
	case KindButtonPress, KindButtonRelease:
		return t.button(ev.Button, ev.Kind == KindButtonPress, s)
	case KindPointerMove:
		return t.move(sanitizeCoord(ev.X), sanitizeCoord(ev.Y), s)
	case KindWheel:
		return t.wheel(ev.DeltaX, ev.DeltaY, s)
	default:
		return fmt.Errorf("%w: kind %d", ErrInvalidEvent, uint8(ev.Kind))
	}
}

func (t *Translator) key(k Key, pressed bool, s Session) error {
	code, ok := t.codes.KeyCode(k)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedKey, k)
	}
	if err := s.FakeKey(code, pressed); err != nil {
		return nativeErr("key", err)
	}
	return nil
}

func (t *Translator) button(b Button, pressed bool, s Session) error {
	code, ok := t.codes.ButtonCode(b)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedButton, b)
	}
	if err := s.FakeButton(code, pressed); err != nil {
		return nativeErr("button", err)
	}
	return nil
}

func (t *Translator) move(x, y int32, s Session) error {
	kind, err := t.motionKind()
	if err != nil {
		return err
	}
	if err := s.FakeMotion(x, y, kind); err != nil {
		return nativeErr("motion", err)
	}
	return nil
}

// motionKind queries held buttons only on backends that distinguish drags.
func (t *Translator) motionKind() (MotionKind, error) {
	if !t.caps.DragEvents {
		return MotionMove, nil
	}
	st, err := queryPointer(t.locator)
	if err != nil {
		return MotionMove, err
	}
	return dragKind(st.Buttons), nil
}

func (t *Translator) wheel(dx, dy int64, s Session) error {
	if sc, ok := s.(Scroller); ok {
		if err := sc.FakeScroll(dx, dy); err != nil {
			return nativeErr("scroll", err)
		}
		return nil
	}

	wc, ok := t.codes.(WheelCoder)
	if !ok {
		return fmt.Errorf("%w: backend has no wheel support", ErrUnsupportedButton)
	}
	nx, ny := abs64(dx), abs64(dy)
	if t.maxWheel > 0 && (nx > t.maxWheel || ny > t.maxWheel || nx+ny > t.maxWheel) {
		return fmt.Errorf("%w: %d, %d", ErrWheelTooLarge, dx, dy)
	}

	xdir, ydir := ScrollLeft, ScrollDown
	if dx > 0 {
		xdir = ScrollRight
	}
	if dy > 0 {
		ydir = ScrollUp
	}
	xcode, okx := wc.WheelButton(xdir)
	ycode, oky := wc.WheelButton(ydir)
	if (nx > 0 && !okx) || (ny > 0 && !oky) {
		return fmt.Errorf("%w: no wheel button", ErrUnsupportedButton)
	}

	if err := notches(s, xcode, nx); err != nil {
		return err
	}
	return notches(s, ycode, ny)
}

// notches sends n press/release pairs and stops at the first failure.
func notches(s Session, code NativeCode, n uint64) error {
	for i := uint64(0); i < n; i++ {
		if err := s.FakeButton(code, true); err != nil {
			return nativeErr("wheel press", err)
		}
		if err := s.FakeButton(code, false); err != nil {
			return nativeErr("wheel release", err)
		}
	}
	return nil
}
