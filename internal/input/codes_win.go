package input

// winExtendedKey is or'ed into virtual key codes that need
// KEYEVENTF_EXTENDEDKEY when sent.
const winExtendedKey NativeCode = 0x100

// Windows virtual key codes in Key order.
var windowsKeys = [...]NativeCode{
	0xA4,                  // Alt
	0xA5 | winExtendedKey, // AltGr
	0x08,                  // Backspace
	0x14,                  // CapsLock
	0xA2,                  // ControlLeft
	0xA3 | winExtendedKey, // ControlRight
	0x2E | winExtendedKey, // Delete
	0x28 | winExtendedKey, // DownArrow
	0x23 | winExtendedKey, // End
	0x1B,                  // Escape
	0x70,                  // F1
	0x71,                  // F2
	0x72,                  // F3
	0x73,                  // F4
	0x74,                  // F5
	0x75,                  // F6
	0x76,                  // F7
	0x77,                  // F8
	0x78,                  // F9
	0x79,                  // F10
	0x7A,                  // F11
	0x7B,                  // F12
	0x24 | winExtendedKey, // Home
	0x25 | winExtendedKey, // LeftArrow
	0x5B | winExtendedKey, // MetaLeft
	0x5C | winExtendedKey, // MetaRight
	0x22 | winExtendedKey, // PageDown
	0x21 | winExtendedKey, // PageUp
	0x0D,                  // Return
	0x27 | winExtendedKey, // RightArrow
	0xA0,                  // ShiftLeft
	0xA1,                  // ShiftRight
	0x20,                  // Space
	0x09,                  // Tab
	0x26 | winExtendedKey, // UpArrow
	0x2C | winExtendedKey, // PrintScreen
	0x91,                  // ScrollLock
	0x13,                  // Pause
	0x90 | winExtendedKey, // NumLock
	0xC0,                  // BackQuote
	0x31,                  // Num1
	0x32,                  // Num2
	0x33,                  // Num3
	0x34,                  // Num4
	0x35,                  // Num5
	0x36,                  // Num6
	0x37,                  // Num7
	0x38,                  // Num8
	0x39,                  // Num9
	0x30,                  // Num0
	0xBD,                  // Minus
	0xBB,                  // Equal
	0x51,                  // Q
	0x57,                  // W
	0x45,                  // E
	0x52,                  // R
	0x54,                  // T
	0x59,                  // Y
	0x55,                  // U
	0x49,                  // I
	0x4F,                  // O
	0x50,                  // P
	0xDB,                  // LeftBracket
	0xDD,                  // RightBracket
	0x41,                  // A
	0x53,                  // S
	0x44,                  // D
	0x46,                  // F
	0x47,                  // G
	0x48,                  // H
	0x4A,                  // J
	0x4B,                  // K
	0x4C,                  // L
	0xBA,                  // Semicolon
	0xDE,                  // Quote
	0xDC,                  // BackSlash
	0xE2,                  // IntlBackslash
	0x5A,                  // Z
	0x58,                  // X
	0x43,                  // C
	0x56,                  // V
	0x42,                  // B
	0x4E,                  // N
	0x4D,                  // M
	0xBC,                  // Comma
	0xBE,                  // Dot
	0xBF,                  // Slash
	0x2D | winExtendedKey, // Insert
	0x0D | winExtendedKey, // KpReturn
	0x6D,                  // KpMinus
	0x6B,                  // KpPlus
	0x6A,                  // KpMultiply
	0x6F | winExtendedKey, // KpDivide
	0x60,                  // Kp0
	0x61,                  // Kp1
	0x62,                  // Kp2
	0x63,                  // Kp3
	0x64,                  // Kp4
	0x65,                  // Kp5
	0x66,                  // Kp6
	0x67,                  // Kp7
	0x68,                  // Kp8
	0x69,                  // Kp9
	0x6E,                  // KpDelete
	noCode,                // Function
}

var _ = [1]struct{}{}[len(windowsKeys)-int(keyCount)]

// Windows mouse button codes. They select the MOUSEEVENTF flags and the
// XBUTTON data word in the session.
const (
	winButtonLeft NativeCode = iota + 1
	winButtonRight
	winButtonMiddle
	winButtonX1
	winButtonX2
)

type windowsTable struct{}

// WindowsCodes returns the SendInput code table.
func WindowsCodes() CodeTable { return windowsTable{} }

func (windowsTable) KeyCode(k Key) (NativeCode, bool) {
	if !k.Valid() || windowsKeys[k] == noCode {
		return 0, false
	}
	return windowsKeys[k], true
}

func (windowsTable) ButtonCode(b Button) (NativeCode, bool) {
	switch {
	case b.IsLeft():
		return winButtonLeft, true
	case b.IsRight():
		return winButtonRight, true
	case b.IsMiddle():
		return winButtonMiddle, true
	}
	raw, ok := b.Raw()
	if !ok {
		return 0, false
	}
	switch raw {
	case 1:
		return winButtonX1, true
	case 2:
		return winButtonX2, true
	}
	return 0, false
}
