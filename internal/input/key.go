package input

import (
	"fmt"
	"strings"
)

// Key identifies a physical or logical keyboard key independent of any
// backend's scan codes.
type Key uint16

// The order of these constants is the row order of every code table.
const (
	KeyAlt Key = iota
	KeyAltGr
	KeyBackspace
	KeyCapsLock
	KeyControlLeft
	KeyControlRight
	KeyDelete
	KeyDownArrow
	KeyEnd
	KeyEscape
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
	KeyHome
	KeyLeftArrow
	KeyMetaLeft
	KeyMetaRight
	KeyPageDown
	KeyPageUp
	KeyReturn
	KeyRightArrow
	KeyShiftLeft
	KeyShiftRight
	KeySpace
	KeyTab
	KeyUpArrow
	KeyPrintScreen
	KeyScrollLock
	KeyPause
	KeyNumLock
	KeyBackQuote
	KeyNum1
	KeyNum2
	KeyNum3
	KeyNum4
	KeyNum5
	KeyNum6
	KeyNum7
	KeyNum8
	KeyNum9
	KeyNum0
	KeyMinus
	KeyEqual
	KeyQ
	KeyW
	KeyE
	KeyR
	KeyT
	KeyY
	KeyU
	KeyI
	KeyO
	KeyP
	KeyLeftBracket
	KeyRightBracket
	KeyA
	KeyS
	KeyD
	KeyF
	KeyG
	KeyH
	KeyJ
	KeyK
	KeyL
	KeySemicolon
	KeyQuote
	KeyBackSlash
	KeyIntlBackslash
	KeyZ
	KeyX
	KeyC
	KeyV
	KeyB
	KeyN
	KeyM
	KeyComma
	KeyDot
	KeySlash
	KeyInsert
	KeyKpReturn
	KeyKpMinus
	KeyKpPlus
	KeyKpMultiply
	KeyKpDivide
	KeyKp0
	KeyKp1
	KeyKp2
	KeyKp3
	KeyKp4
	KeyKp5
	KeyKp6
	KeyKp7
	KeyKp8
	KeyKp9
	KeyKpDelete
	KeyFunction

	keyCount
)

var keyNames = [...]string{
	"Alt",
	"AltGr",
	"Backspace",
	"CapsLock",
	"ControlLeft",
	"ControlRight",
	"Delete",
	"DownArrow",
	"End",
	"Escape",
	"F1",
	"F2",
	"F3",
	"F4",
	"F5",
	"F6",
	"F7",
	"F8",
	"F9",
	"F10",
	"F11",
	"F12",
	"Home",
	"LeftArrow",
	"MetaLeft",
	"MetaRight",
	"PageDown",
	"PageUp",
	"Return",
	"RightArrow",
	"ShiftLeft",
	"ShiftRight",
	"Space",
	"Tab",
	"UpArrow",
	"PrintScreen",
	"ScrollLock",
	"Pause",
	"NumLock",
	"BackQuote",
	"Num1",
	"Num2",
	"Num3",
	"Num4",
	"Num5",
	"Num6",
	"Num7",
	"Num8",
	"Num9",
	"Num0",
	"Minus",
	"Equal",
	"Q",
	"W",
	"E",
	"R",
	"T",
	"Y",
	"U",
	"I",
	"O",
	"P",
	"LeftBracket",
	"RightBracket",
	"A",
	"S",
	"D",
	"F",
	"G",
	"H",
	"J",
	"K",
	"L",
	"Semicolon",
	"Quote",
	"BackSlash",
	"IntlBackslash",
	"Z",
	"X",
	"C",
	"V",
	"B",
	"N",
	"M",
	"Comma",
	"Dot",
	"Slash",
	"Insert",
	"KpReturn",
	"KpMinus",
	"KpPlus",
	"KpMultiply",
	"KpDivide",
	"Kp0",
	"Kp1",
	"Kp2",
	"Kp3",
	"Kp4",
	"Kp5",
	"Kp6",
	"Kp7",
	"Kp8",
	"Kp9",
	"KpDelete",
	"Function",
}

// Fails to compile when keyNames and the Key constants disagree in length.
var _ = [1]struct{}{}[len(keyNames)-int(keyCount)]

// keyAliases holds the short spellings accepted by ParseKey in addition to
// the canonical names. Keys are lower case.
var keyAliases = map[string]Key{
	"alt":       KeyAlt,
	"option":    KeyAlt,
	"opt":       KeyAlt,
	"lalt":      KeyAlt,
	"ralt":      KeyAltGr,
	"ctrl":      KeyControlLeft,
	"control":   KeyControlLeft,
	"lctrl":     KeyControlLeft,
	"rctrl":     KeyControlRight,
	"shift":     KeyShiftLeft,
	"lshift":    KeyShiftLeft,
	"rshift":    KeyShiftRight,
	"cmd":       KeyMetaLeft,
	"command":   KeyMetaLeft,
	"win":       KeyMetaLeft,
	"windows":   KeyMetaLeft,
	"super":     KeyMetaLeft,
	"meta":      KeyMetaLeft,
	"enter":     KeyReturn,
	"cr":        KeyReturn,
	"esc":       KeyEscape,
	"del":       KeyDelete,
	"bs":        KeyBackspace,
	"ins":       KeyInsert,
	"up":        KeyUpArrow,
	"down":      KeyDownArrow,
	"left":      KeyLeftArrow,
	"right":     KeyRightArrow,
	"pgup":      KeyPageUp,
	"pgdn":      KeyPageDown,
	"pagedown":  KeyPageDown,
	"pageup":    KeyPageUp,
	"prtsc":     KeyPrintScreen,
	"caps":      KeyCapsLock,
	"fn":        KeyFunction,
	"0":         KeyNum0,
	"1":         KeyNum1,
	"2":         KeyNum2,
	"3":         KeyNum3,
	"4":         KeyNum4,
	"5":         KeyNum5,
	"6":         KeyNum6,
	"7":         KeyNum7,
	"8":         KeyNum8,
	"9":         KeyNum9,
	"`":         KeyBackQuote,
	"-":         KeyMinus,
	"=":         KeyEqual,
	"[":         KeyLeftBracket,
	"]":         KeyRightBracket,
	";":         KeySemicolon,
	"'":         KeyQuote,
	"\\":        KeyBackSlash,
	",":         KeyComma,
	".":         KeyDot,
	"/":         KeySlash,
	"period":    KeyDot,
	"backtick":  KeyBackQuote,
	"backslash": KeyBackSlash,
}

var keysByName = func() map[string]Key {
	m := make(map[string]Key, int(keyCount)+len(keyAliases))
	for k := Key(0); k < keyCount; k++ {
		m[strings.ToLower(keyNames[k])] = k
	}
	for alias, k := range keyAliases {
		m[alias] = k
	}
	return m
}()

// String returns the canonical name of the key.
func (k Key) String() string {
	if k < keyCount {
		return keyNames[k]
	}
	return fmt.Sprintf("Key(%d)", uint16(k))
}

// Valid reports whether k is a member of the key set.
func (k Key) Valid() bool {
	return k < keyCount
}

// IsModifier reports whether k is a modifier key.
func (k Key) IsModifier() bool {
	switch k {
	case KeyAlt, KeyAltGr, KeyControlLeft, KeyControlRight,
		KeyShiftLeft, KeyShiftRight, KeyMetaLeft, KeyMetaRight, KeyFunction:
		return true
	}
	return false
}

// ParseKey resolves a key name. Canonical names and the usual short
// spellings ("ctrl", "esc", "pgup", "a", "1", "-") are accepted in any case.
func ParseKey(name string) (Key, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, ErrEmptyKeyName
	}
	if k, ok := keysByName[strings.ToLower(trimmed)]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKeyName, name)
}

// AllKeys returns every key in declaration order.
func AllKeys() []Key {
	keys := make([]Key, keyCount)
	for i := range keys {
		keys[i] = Key(i)
	}
	return keys
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKeyName, uint16(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
