//go:build windows

package input

import (
	"fmt"
	"math"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procSendInput        = user32.NewProc("SendInput")
	procGetCursorPos     = user32.NewProc("GetCursorPos")
	procGetAsyncKeyState = user32.NewProc("GetAsyncKeyState")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
)

const (
	INPUT_MOUSE    = 0
	INPUT_KEYBOARD = 1

	KEYEVENTF_EXTENDEDKEY = 0x0001
	KEYEVENTF_KEYUP       = 0x0002

	MOUSEEVENTF_MOVE        = 0x0001
	MOUSEEVENTF_LEFTDOWN    = 0x0002
	MOUSEEVENTF_LEFTUP      = 0x0004
	MOUSEEVENTF_RIGHTDOWN   = 0x0008
	MOUSEEVENTF_RIGHTUP     = 0x0010
	MOUSEEVENTF_MIDDLEDOWN  = 0x0020
	MOUSEEVENTF_MIDDLEUP    = 0x0040
	MOUSEEVENTF_XDOWN       = 0x0080
	MOUSEEVENTF_XUP         = 0x0100
	MOUSEEVENTF_WHEEL       = 0x0800
	MOUSEEVENTF_HWHEEL      = 0x1000
	MOUSEEVENTF_VIRTUALDESK = 0x4000
	MOUSEEVENTF_ABSOLUTE    = 0x8000

	XBUTTON1    = 0x0001
	XBUTTON2    = 0x0002
	WHEEL_DELTA = 120

	SM_XVIRTUALSCREEN  = 76
	SM_YVIRTUALSCREEN  = 77
	SM_CXVIRTUALSCREEN = 78
	SM_CYVIRTUALSCREEN = 79

	VK_LBUTTON = 0x01
	VK_RBUTTON = 0x02
	VK_MBUTTON = 0x04
)

type MOUSEINPUT struct {
	Dx          int32
	Dy          int32
	MouseData   uint32
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

type KEYBDINPUT struct {
	WVk         uint16
	WScan       uint16
	DwFlags     uint32
	Time        uint32
	DwExtraInfo uintptr
}

// mouseINPUT and keybdINPUT are the two arms of the INPUT union. The
// keyboard arm is padded to the size of the larger mouse arm.
type mouseINPUT struct {
	Type uint32
	Mi   MOUSEINPUT
}

type keybdINPUT struct {
	Type uint32
	Ki   KEYBDINPUT
	_    [8]byte
}

type windowsBackend struct{}

func (windowsBackend) Name() string     { return "windows" }
func (windowsBackend) Codes() CodeTable { return WindowsCodes() }
func (windowsBackend) Caps() Caps       { return Caps{} }
func (windowsBackend) Locator() Locator { return LocatorFunc(cursorState) }

// Open checks that SendInput can be resolved. The session itself holds no
// OS resource.
func (windowsBackend) Open() (Session, error) {
	if err := procSendInput.Find(); err != nil {
		return nil, err
	}
	return windowsSession{}, nil
}

func cursorState() (PointerState, error) {
	var pt struct{ X, Y int32 }
	r, _, err := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if r == 0 {
		return PointerState{}, fmt.Errorf("GetCursorPos: %w", err)
	}
	st := PointerState{Point: Point{X: pt.X, Y: pt.Y}}
	if keyDown(VK_LBUTTON) {
		st.Buttons |= MaskLeft
	}
	if keyDown(VK_RBUTTON) {
		st.Buttons |= MaskRight
	}
	if keyDown(VK_MBUTTON) {
		st.Buttons |= MaskMiddle
	}
	return st, nil
}

func keyDown(vk uintptr) bool {
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return r&0x8000 != 0
}

func systemMetric(index uintptr) int64 {
	r, _, _ := procGetSystemMetrics.Call(index)
	return int64(int32(r))
}

type windowsSession struct{}

func sendMouse(mi MOUSEINPUT) error {
	in := mouseINPUT{Type: INPUT_MOUSE, Mi: mi}
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func (windowsSession) FakeKey(code NativeCode, pressed bool) error {
	in := keybdINPUT{Type: INPUT_KEYBOARD, Ki: KEYBDINPUT{WVk: uint16(code &^ winExtendedKey)}}
	if code&winExtendedKey != 0 {
		in.Ki.DwFlags |= KEYEVENTF_EXTENDEDKEY
	}
	if !pressed {
		in.Ki.DwFlags |= KEYEVENTF_KEYUP
	}
	n, _, err := procSendInput.Call(1, uintptr(unsafe.Pointer(&in)), unsafe.Sizeof(in))
	if n != 1 {
		return fmt.Errorf("SendInput: %w", err)
	}
	return nil
}

func (windowsSession) FakeButton(code NativeCode, pressed bool) error {
	var mi MOUSEINPUT
	switch code {
	case winButtonLeft:
		mi.DwFlags = pick(pressed, MOUSEEVENTF_LEFTDOWN, MOUSEEVENTF_LEFTUP)
	case winButtonRight:
		mi.DwFlags = pick(pressed, MOUSEEVENTF_RIGHTDOWN, MOUSEEVENTF_RIGHTUP)
	case winButtonMiddle:
		mi.DwFlags = pick(pressed, MOUSEEVENTF_MIDDLEDOWN, MOUSEEVENTF_MIDDLEUP)
	case winButtonX1, winButtonX2:
		mi.DwFlags = pick(pressed, MOUSEEVENTF_XDOWN, MOUSEEVENTF_XUP)
		mi.MouseData = XBUTTON1
		if code == winButtonX2 {
			mi.MouseData = XBUTTON2
		}
	default:
		return fmt.Errorf("unknown button code %d", code)
	}
	return sendMouse(mi)
}

// FakeMotion maps virtual desktop pixels onto the 0..65535 range SendInput
// expects for absolute moves.
func (windowsSession) FakeMotion(x, y int32, _ MotionKind) error {
	left, top := systemMetric(SM_XVIRTUALSCREEN), systemMetric(SM_YVIRTUALSCREEN)
	width, height := systemMetric(SM_CXVIRTUALSCREEN), systemMetric(SM_CYVIRTUALSCREEN)
	if width <= 1 || height <= 1 {
		return fmt.Errorf("virtual screen size %dx%d", width, height)
	}
	return sendMouse(MOUSEINPUT{
		Dx:      normalize(int64(x)-left, width),
		Dy:      normalize(int64(y)-top, height),
		DwFlags: MOUSEEVENTF_MOVE | MOUSEEVENTF_ABSOLUTE | MOUSEEVENTF_VIRTUALDESK,
	})
}

func (windowsSession) FakeRelativeMotion(dx, dy int32) error {
	return sendMouse(MOUSEINPUT{Dx: dx, Dy: dy, DwFlags: MOUSEEVENTF_MOVE})
}

// FakeScroll sends deltas in notches, horizontal first. Each axis is scaled
// by WHEEL_DELTA and must still fit int32.
func (windowsSession) FakeScroll(deltaX, deltaY int64) error {
	const limit = math.MaxInt32 / WHEEL_DELTA
	if deltaX > limit || deltaX < -limit || deltaY > limit || deltaY < -limit {
		return fmt.Errorf("scroll delta (%d, %d) out of range", deltaX, deltaY)
	}
	if deltaX != 0 {
		if err := sendMouse(MOUSEINPUT{
			MouseData: uint32(int32(deltaX * WHEEL_DELTA)),
			DwFlags:   MOUSEEVENTF_HWHEEL,
		}); err != nil {
			return err
		}
	}
	if deltaY != 0 {
		return sendMouse(MOUSEINPUT{
			MouseData: uint32(int32(deltaY * WHEEL_DELTA)),
			DwFlags:   MOUSEEVENTF_WHEEL,
		})
	}
	return nil
}

func (windowsSession) Flush() error { return nil }
func (windowsSession) Close() error { return nil }

func normalize(v, size int64) int32 {
	n := v * 65535 / (size - 1)
	switch {
	case n < 0:
		return 0
	case n > 65535:
		return 65535
	}
	return int32(n)
}

func pick(cond bool, a, b uint32) uint32 {
	if cond {
		return a
	}
	return b
}

func nativeBackend(string) (Backend, error) {
	return windowsBackend{}, nil
}
