package input

import (
	"fmt"
	"strconv"
	"strings"
)

type buttonKind uint8

const (
	buttonLeft buttonKind = iota + 1
	buttonMiddle
	buttonRight
	buttonUnknown
)

// Button is a pointer button. The zero value is not a valid button.
type Button struct {
	kind buttonKind
	raw  int64
}

var (
	ButtonLeft   = Button{kind: buttonLeft}
	ButtonMiddle = Button{kind: buttonMiddle}
	ButtonRight  = Button{kind: buttonRight}
)

// UnknownButton wraps a device specific button number. Whether raw is usable
// depends on the backend's code width.
func UnknownButton(raw int64) Button {
	return Button{kind: buttonUnknown, raw: raw}
}

// Raw returns the device specific number and true for buttons created with
// UnknownButton.
func (b Button) Raw() (int64, bool) {
	return b.raw, b.kind == buttonUnknown
}

// IsLeft, IsMiddle and IsRight identify the named buttons.
func (b Button) IsLeft() bool   { return b.kind == buttonLeft }
func (b Button) IsMiddle() bool { return b.kind == buttonMiddle }
func (b Button) IsRight() bool  { return b.kind == buttonRight }

// Valid reports whether b was built from one of the constructors.
func (b Button) Valid() bool {
	return b.kind >= buttonLeft && b.kind <= buttonUnknown
}

func (b Button) String() string {
	switch b.kind {
	case buttonLeft:
		return "left"
	case buttonMiddle:
		return "middle"
	case buttonRight:
		return "right"
	case buttonUnknown:
		return strconv.FormatInt(b.raw, 10)
	default:
		return "invalid"
	}
}

// ParseButton accepts "left", "middle", "right" (or "l", "m", "r") and
// decimal numbers for device specific buttons.
func ParseButton(name string) (Button, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	switch s {
	case "left", "l", "primary":
		return ButtonLeft, nil
	case "middle", "m", "center", "wheel":
		return ButtonMiddle, nil
	case "right", "r", "secondary":
		return ButtonRight, nil
	case "":
		return Button{}, fmt.Errorf("%w: empty name", ErrUnknownButtonName)
	}
	raw, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Button{}, fmt.Errorf("%w: %q", ErrUnknownButtonName, name)
	}
	return UnknownButton(raw), nil
}

// MarshalText implements encoding.TextMarshaler.
func (b Button) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, ErrUnknownButtonName
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Button) UnmarshalText(text []byte) error {
	parsed, err := ParseButton(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
