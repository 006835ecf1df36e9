package input

// Carbon virtual key codes (HIToolbox/Events.h) in Key order. Keys without
// an Apple keyboard equivalent are noCode.
var darwinKeys = [...]NativeCode{
	58,     // Alt
	61,     // AltGr
	51,     // Backspace
	57,     // CapsLock
	59,     // ControlLeft
	62,     // ControlRight
	117,    // Delete
	125,    // DownArrow
	119,    // End
	53,     // Escape
	122,    // F1
	120,    // F2
	99,     // F3
	118,    // F4
	96,     // F5
	97,     // F6
	98,     // F7
	100,    // F8
	101,    // F9
	109,    // F10
	103,    // F11
	111,    // F12
	115,    // Home
	123,    // LeftArrow
	55,     // MetaLeft
	54,     // MetaRight
	121,    // PageDown
	116,    // PageUp
	36,     // Return
	124,    // RightArrow
	56,     // ShiftLeft
	60,     // ShiftRight
	49,     // Space
	48,     // Tab
	126,    // UpArrow
	noCode, // PrintScreen
	noCode, // ScrollLock
	noCode, // Pause
	noCode, // NumLock
	50,     // BackQuote
	18,     // Num1
	19,     // Num2
	20,     // Num3
	21,     // Num4
	23,     // Num5
	22,     // Num6
	26,     // Num7
	28,     // Num8
	25,     // Num9
	29,     // Num0
	27,     // Minus
	24,     // Equal
	12,     // Q
	13,     // W
	14,     // E
	15,     // R
	17,     // T
	16,     // Y
	32,     // U
	34,     // I
	31,     // O
	35,     // P
	33,     // LeftBracket
	30,     // RightBracket
	0,      // A
	1,      // S
	2,      // D
	3,      // F
	5,      // G
	4,      // H
	38,     // J
	40,     // K
	37,     // L
	41,     // Semicolon
	39,     // Quote
	42,     // BackSlash
	10,     // IntlBackslash
	6,      // Z
	7,      // X
	8,      // C
	9,      // V
	11,     // B
	45,     // N
	46,     // M
	43,     // Comma
	47,     // Dot
	44,     // Slash
	114,    // Insert
	76,     // KpReturn
	78,     // KpMinus
	69,     // KpPlus
	67,     // KpMultiply
	75,     // KpDivide
	82,     // Kp0
	83,     // Kp1
	84,     // Kp2
	85,     // Kp3
	86,     // Kp4
	87,     // Kp5
	88,     // Kp6
	89,     // Kp7
	91,     // Kp8
	92,     // Kp9
	65,     // KpDelete
	63,     // Function
}

var _ = [1]struct{}{}[len(darwinKeys)-int(keyCount)]

type darwinTable struct{}

// DarwinCodes returns the CoreGraphics code table.
func DarwinCodes() CodeTable { return darwinTable{} }

func (darwinTable) KeyCode(k Key) (NativeCode, bool) {
	if !k.Valid() || darwinKeys[k] == noCode {
		return 0, false
	}
	return darwinKeys[k], true
}

// ButtonCode returns the CGMouseButton number. Left and right are the only
// buttons with dedicated event types, everything else is an "other" button.
func (darwinTable) ButtonCode(b Button) (NativeCode, bool) {
	switch {
	case b.IsLeft():
		return 0, true
	case b.IsRight():
		return 1, true
	case b.IsMiddle():
		return 2, true
	}
	raw, ok := b.Raw()
	if !ok || raw < 0 || raw > int64(^uint32(0)) {
		return 0, false
	}
	return NativeCode(raw), true
}
