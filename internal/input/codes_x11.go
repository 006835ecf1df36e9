package input

// X servers using the evdev driver offset kernel codes by 8.
const x11KeycodeOffset = 8

// X11 core button numbers, including the wheel pseudo-buttons.
const (
	x11ButtonLeft   NativeCode = 1
	x11ButtonMiddle NativeCode = 2
	x11ButtonRight  NativeCode = 3
	x11WheelUp      NativeCode = 4
	x11WheelDown    NativeCode = 5
	x11WheelLeft    NativeCode = 6
	x11WheelRight   NativeCode = 7
)

type x11Table struct{}

// X11Codes returns the XTEST code table.
func X11Codes() CodeTable { return x11Table{} }

// KeyCode rejects keys whose keycode does not fit the one byte the core
// protocol allows.
func (x11Table) KeyCode(k Key) (NativeCode, bool) {
	code, ok := EvdevCode(k)
	if !ok {
		return 0, false
	}
	kc := uint32(code) + x11KeycodeOffset
	if kc > 255 {
		return 0, false
	}
	return NativeCode(kc), true
}

func (x11Table) ButtonCode(b Button) (NativeCode, bool) {
	switch {
	case b.IsLeft():
		return x11ButtonLeft, true
	case b.IsMiddle():
		return x11ButtonMiddle, true
	case b.IsRight():
		return x11ButtonRight, true
	}
	raw, ok := b.Raw()
	if !ok || raw <= 0 || raw > 255 {
		return 0, false
	}
	return NativeCode(raw), true
}

func (x11Table) WheelButton(dir ScrollDirection) (NativeCode, bool) {
	switch dir {
	case ScrollUp:
		return x11WheelUp, true
	case ScrollDown:
		return x11WheelDown, true
	case ScrollLeft:
		return x11WheelLeft, true
	case ScrollRight:
		return x11WheelRight, true
	}
	return 0, false
}
