package input

// evdevKeys holds the Linux kernel input event codes (linux/input-event-codes.h)
// in Key order. X11 keycodes are derived from it.
var evdevKeys = [...]uint16{
	56,  // Alt
	100, // AltGr
	14,  // Backspace
	58,  // CapsLock
	29,  // ControlLeft
	97,  // ControlRight
	111, // Delete
	108, // DownArrow
	107, // End
	1,   // Escape
	59,  // F1
	60,  // F2
	61,  // F3
	62,  // F4
	63,  // F5
	64,  // F6
	65,  // F7
	66,  // F8
	67,  // F9
	68,  // F10
	87,  // F11
	88,  // F12
	102, // Home
	105, // LeftArrow
	125, // MetaLeft
	126, // MetaRight
	109, // PageDown
	104, // PageUp
	28,  // Return
	106, // RightArrow
	42,  // ShiftLeft
	54,  // ShiftRight
	57,  // Space
	15,  // Tab
	103, // UpArrow
	99,  // PrintScreen
	70,  // ScrollLock
	119, // Pause
	69,  // NumLock
	41,  // BackQuote
	2,   // Num1
	3,   // Num2
	4,   // Num3
	5,   // Num4
	6,   // Num5
	7,   // Num6
	8,   // Num7
	9,   // Num8
	10,  // Num9
	11,  // Num0
	12,  // Minus
	13,  // Equal
	16,  // Q
	17,  // W
	18,  // E
	19,  // R
	20,  // T
	21,  // Y
	22,  // U
	23,  // I
	24,  // O
	25,  // P
	26,  // LeftBracket
	27,  // RightBracket
	30,  // A
	31,  // S
	32,  // D
	33,  // F
	34,  // G
	35,  // H
	36,  // J
	37,  // K
	38,  // L
	39,  // Semicolon
	40,  // Quote
	43,  // BackSlash
	86,  // IntlBackslash
	44,  // Z
	45,  // X
	46,  // C
	47,  // V
	48,  // B
	49,  // N
	50,  // M
	51,  // Comma
	52,  // Dot
	53,  // Slash
	110, // Insert
	96,  // KpReturn
	74,  // KpMinus
	78,  // KpPlus
	55,  // KpMultiply
	98,  // KpDivide
	82,  // Kp0
	79,  // Kp1
	80,  // Kp2
	81,  // Kp3
	75,  // Kp4
	76,  // Kp5
	77,  // Kp6
	71,  // Kp7
	72,  // Kp8
	73,  // Kp9
	83,  // KpDelete
	464, // Function
}

var _ = [1]struct{}{}[len(evdevKeys)-int(keyCount)]

// EvdevCode returns the kernel input event code of k.
func EvdevCode(k Key) (uint16, bool) {
	if !k.Valid() {
		return 0, false
	}
	return evdevKeys[k], true
}
