package input

import (
	"errors"
	"math"
	"testing"
)

func TestSanitizeCoord(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want int32
	}{
		{"nan", math.NaN(), 0},
		{"positive infinity", math.Inf(1), 0},
		{"negative infinity", math.Inf(-1), 0},
		{"round up", 5.7, 6},
		{"round down", 2.4, 2},
		{"half away from zero", 5.5, 6},
		{"negative half away from zero", -5.5, -6},
		{"huge", 1e30, math.MaxInt32},
		{"huge negative", -1e30, math.MinInt32},
		{"int32 max", math.MaxInt32, math.MaxInt32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeCoord(tt.in); got != tt.want {
				t.Errorf("sanitizeCoord(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAddClamped(t *testing.T) {
	if got := addClamped(math.MaxInt32-1, 10); got != math.MaxInt32 {
		t.Errorf("Expected saturation at MaxInt32, got %d", got)
	}
	if got := addClamped(math.MinInt32+1, -10); got != math.MinInt32 {
		t.Errorf("Expected saturation at MinInt32, got %d", got)
	}
	if got := addClamped(100, -5); got != 95 {
		t.Errorf("Expected 95, got %d", got)
	}
}

func TestAbs64(t *testing.T) {
	if got := abs64(math.MinInt64); got != 1<<63 {
		t.Errorf("abs64(MinInt64) = %d, want %d", got, uint64(1)<<63)
	}
	if got := abs64(-3); got != 3 {
		t.Errorf("abs64(-3) = %d, want 3", got)
	}
}

func TestDragKind(t *testing.T) {
	tests := []struct {
		held ButtonMask
		want MotionKind
	}{
		{0, MotionMove},
		{MaskLeft, MotionDragLeft},
		{MaskRight, MotionDragRight},
		{MaskLeft | MaskRight, MotionDragLeft},
		{MaskMiddle, MotionDragOther},
		{MaskOther, MotionDragOther},
		{MaskRight | MaskMiddle, MotionDragRight},
	}
	for _, tt := range tests {
		if got := dragKind(tt.held); got != tt.want {
			t.Errorf("dragKind(%04b) = %s, want %s", tt.held, got, tt.want)
		}
	}
}

func TestQueryPointerFailure(t *testing.T) {
	boom := errors.New("boom")
	st, err := queryPointer(LocatorFunc(func() (PointerState, error) {
		return PointerState{Point: Point{X: 5, Y: 5}}, boom
	}))
	if !errors.Is(err, ErrPointerState) {
		t.Fatalf("Expected ErrPointerState, got %v", err)
	}
	if st != (PointerState{}) {
		t.Errorf("Expected zero state on failure, got %+v", st)
	}
	if _, err := queryPointer(nil); !errors.Is(err, ErrPointerState) {
		t.Errorf("Expected ErrPointerState for nil locator, got %v", err)
	}
}

func TestEvdevTableComplete(t *testing.T) {
	seen := make(map[uint16]Key)
	for _, k := range AllKeys() {
		code, ok := EvdevCode(k)
		if !ok || code == 0 {
			t.Errorf("Key %s has no evdev code", k)
			continue
		}
		if prev, dup := seen[code]; dup {
			t.Errorf("Keys %s and %s share evdev code %d", prev, k, code)
		}
		seen[code] = k
	}
	if _, ok := EvdevCode(keyCount); ok {
		t.Error("Expected no code for out of range key")
	}
}

func TestX11KeyCodes(t *testing.T) {
	table := X11Codes()
	for _, k := range AllKeys() {
		code, ok := table.KeyCode(k)
		if k == KeyFunction {
			if ok {
				t.Errorf("Expected Function to be unmapped on X11, got %d", code)
			}
			continue
		}
		if !ok {
			t.Errorf("Key %s unmapped on X11", k)
			continue
		}
		if code < 8 || code > 255 {
			t.Errorf("Key %s keycode %d outside 8..255", k, code)
		}
	}
	if code, _ := table.KeyCode(KeyA); code != 38 {
		t.Errorf("Expected KeyA to be keycode 38, got %d", code)
	}
}

func TestDarwinKeyCodes(t *testing.T) {
	unmapped := map[Key]bool{KeyPrintScreen: true, KeyScrollLock: true, KeyPause: true, KeyNumLock: true}
	table := DarwinCodes()
	seen := make(map[NativeCode]Key)
	for _, k := range AllKeys() {
		code, ok := table.KeyCode(k)
		if ok == unmapped[k] {
			t.Errorf("Key %s mapped = %t, want %t", k, ok, !unmapped[k])
			continue
		}
		if !ok {
			continue
		}
		if prev, dup := seen[code]; dup {
			t.Errorf("Keys %s and %s share code %d", prev, k, code)
		}
		seen[code] = k
	}
	if code, ok := table.KeyCode(KeyA); !ok || code != 0 {
		t.Errorf("Expected KeyA to be code 0, got %d (%t)", code, ok)
	}
}

func TestWindowsKeyCodes(t *testing.T) {
	table := WindowsCodes()
	seen := make(map[NativeCode]Key)
	for _, k := range AllKeys() {
		code, ok := table.KeyCode(k)
		if k == KeyFunction {
			if ok {
				t.Errorf("Expected Function to be unmapped on Windows")
			}
			continue
		}
		if !ok {
			t.Errorf("Key %s unmapped on Windows", k)
			continue
		}
		if prev, dup := seen[code]; dup {
			t.Errorf("Keys %s and %s share code %#x", prev, k, code)
		}
		seen[code] = k
	}

	ret, _ := table.KeyCode(KeyReturn)
	kpRet, _ := table.KeyCode(KeyKpReturn)
	if ret&winExtendedKey != 0 || kpRet&winExtendedKey == 0 {
		t.Errorf("Expected only KpReturn to be extended, got %#x and %#x", ret, kpRet)
	}
	if ret&^winExtendedKey != kpRet&^winExtendedKey {
		t.Errorf("Expected Return and KpReturn to share VK_RETURN")
	}
}

func TestButtonCodes(t *testing.T) {
	tests := []struct {
		name   string
		table  CodeTable
		button Button
		want   NativeCode
		ok     bool
	}{
		{"x11 left", X11Codes(), ButtonLeft, 1, true},
		{"x11 middle", X11Codes(), ButtonMiddle, 2, true},
		{"x11 right", X11Codes(), ButtonRight, 3, true},
		{"x11 raw 8", X11Codes(), UnknownButton(8), 8, true},
		{"x11 raw 255", X11Codes(), UnknownButton(255), 255, true},
		{"x11 raw 256", X11Codes(), UnknownButton(256), 0, false},
		{"x11 raw 0", X11Codes(), UnknownButton(0), 0, false},
		{"x11 raw negative", X11Codes(), UnknownButton(-1), 0, false},
		{"darwin left", DarwinCodes(), ButtonLeft, 0, true},
		{"darwin right", DarwinCodes(), ButtonRight, 1, true},
		{"darwin middle", DarwinCodes(), ButtonMiddle, 2, true},
		{"darwin raw", DarwinCodes(), UnknownButton(5), 5, true},
		{"darwin raw too wide", DarwinCodes(), UnknownButton(1 << 32), 0, false},
		{"windows x1", WindowsCodes(), UnknownButton(1), winButtonX1, true},
		{"windows x2", WindowsCodes(), UnknownButton(2), winButtonX2, true},
		{"windows raw 3", WindowsCodes(), UnknownButton(3), 0, false},
		{"zero button", X11Codes(), Button{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.table.ButtonCode(tt.button)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("ButtonCode(%s) = %d, %t; want %d, %t", tt.button, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"ctrl", KeyControlLeft},
		{"Ctrl", KeyControlLeft},
		{"ControlRight", KeyControlRight},
		{"a", KeyA},
		{"A", KeyA},
		{"1", KeyNum1},
		{"esc", KeyEscape},
		{" Return ", KeyReturn},
		{"enter", KeyReturn},
		{"cmd", KeyMetaLeft},
		{"/", KeySlash},
		{"f12", KeyF12},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		if err != nil {
			t.Errorf("ParseKey(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKey(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKey(""); !errors.Is(err, ErrEmptyKeyName) {
		t.Errorf("Expected ErrEmptyKeyName, got %v", err)
	}
	if _, err := ParseKey("hyper"); !errors.Is(err, ErrUnknownKeyName) {
		t.Errorf("Expected ErrUnknownKeyName, got %v", err)
	}
}

func TestKeyNamesRoundTrip(t *testing.T) {
	for _, k := range AllKeys() {
		got, err := ParseKey(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKey(%q) = %s, %v; want %s", k.String(), got, err, k)
		}
	}
	if keyCount.Valid() {
		t.Error("Expected keyCount to be invalid")
	}
}

func TestParseButton(t *testing.T) {
	tests := []struct {
		in   string
		want Button
	}{
		{"left", ButtonLeft},
		{"R", ButtonRight},
		{"middle", ButtonMiddle},
		{"8", UnknownButton(8)},
		{"-3", UnknownButton(-3)},
	}
	for _, tt := range tests {
		got, err := ParseButton(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseButton(%q) = %s, %v; want %s", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseButton("thumb"); !errors.Is(err, ErrUnknownButtonName) {
		t.Errorf("Expected ErrUnknownButtonName, got %v", err)
	}
}

func TestParseChord(t *testing.T) {
	c, err := ParseChord("Ctrl+Shift+T")
	if err != nil {
		t.Fatalf("ParseChord error: %v", err)
	}
	if len(c) != 3 || c[0] != KeyControlLeft || c[1] != KeyShiftLeft || c[2] != KeyT {
		t.Fatalf("Unexpected chord %v", c)
	}
	if c.String() != "ControlLeft+ShiftLeft+T" {
		t.Errorf("Unexpected chord string %q", c.String())
	}

	evs := c.Events()
	want := []Event{
		KeyPress(KeyControlLeft), KeyPress(KeyShiftLeft), KeyPress(KeyT),
		KeyRelease(KeyT), KeyRelease(KeyShiftLeft), KeyRelease(KeyControlLeft),
	}
	if len(evs) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(evs))
	}
	for i := range want {
		if evs[i] != want[i] {
			t.Errorf("Event %d = %s, want %s", i, evs[i], want[i])
		}
	}

	for _, bad := range []string{"", "Ctrl+", "Ctrl+Nope"} {
		if _, err := ParseChord(bad); err == nil {
			t.Errorf("Expected error for chord %q", bad)
		}
	}
}

func TestEventString(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{KeyPress(KeyA), "key_press(A)"},
		{ButtonRelease(UnknownButton(9)), "button_release(9)"},
		{PointerMove(1.5, 2), "pointer_move(1.5, 2)"},
		{Wheel(-1, 3), "wheel(-1, 3)"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
