//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation -framework ApplicationServices

#include <stdbool.h>
#include <stdint.h>
#include <CoreGraphics/CoreGraphics.h>
#include <CoreFoundation/CoreFoundation.h>

// Sources cross into Go as integers so the Ref never becomes a Go pointer.
static uintptr_t vinputSourceCreate(void) {
    return (uintptr_t)CGEventSourceCreate(kCGEventSourceStateHIDSystemState);
}

static void vinputSourceRelease(uintptr_t src) {
    CFRelease((CGEventSourceRef)src);
}

static bool vinputLocation(double *x, double *y) {
    CGEventRef event = CGEventCreate(NULL);
    if (event == NULL) {
        return false;
    }
    CGPoint p = CGEventGetLocation(event);
    CFRelease(event);
    *x = p.x;
    *y = p.y;
    return true;
}

static bool vinputButtonDown(uint32_t button) {
    return CGEventSourceButtonState(kCGEventSourceStateCombinedSessionState, (CGMouseButton)button);
}

static bool vinputPostKey(uintptr_t src, uint16_t code, bool down) {
    CGEventRef event = CGEventCreateKeyboardEvent((CGEventSourceRef)src, (CGKeyCode)code, down);
    if (event == NULL) {
        return false;
    }
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}

static bool vinputPostMouse(uintptr_t src, uint32_t type, double x, double y, uint32_t button) {
    CGEventRef event = CGEventCreateMouseEvent((CGEventSourceRef)src, (CGEventType)type, CGPointMake(x, y), (CGMouseButton)button);
    if (event == NULL) {
        return false;
    }
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}

// CGEventCreateScrollWheelEvent is variadic and cannot be called from Go.
static bool vinputPostScroll(uintptr_t src, int32_t dy, int32_t dx) {
    CGEventRef event = CGEventCreateScrollWheelEvent((CGEventSourceRef)src, kCGScrollEventUnitPixel, 2, dy, dx);
    if (event == NULL) {
        return false;
    }
    CGEventPost(kCGHIDEventTap, event);
    CFRelease(event);
    return true;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
)

var errEventCreate = errors.New("CoreGraphics could not create event")

type darwinBackend struct {
	locator darwinLocator
}

func newDarwinBackend() *darwinBackend {
	return &darwinBackend{}
}

func (b *darwinBackend) Name() string     { return "darwin" }
func (b *darwinBackend) Codes() CodeTable { return DarwinCodes() }
func (b *darwinBackend) Caps() Caps       { return Caps{DragEvents: true} }
func (b *darwinBackend) Locator() Locator { return b.locator }

func (b *darwinBackend) Open() (Session, error) {
	src := C.vinputSourceCreate()
	if src == 0 {
		return nil, errors.New("CGEventSourceCreate failed")
	}
	return &darwinSession{src: src}, nil
}

// darwinLocator reads the pointer through a throwaway event, which needs no
// connection state.
type darwinLocator struct{}

func (darwinLocator) PointerState() (PointerState, error) {
	var x, y C.double
	if !C.vinputLocation(&x, &y) {
		return PointerState{}, errEventCreate
	}
	st := PointerState{Point: Point{X: sanitizeCoord(float64(x)), Y: sanitizeCoord(float64(y))}}
	if C.vinputButtonDown(C.kCGMouseButtonLeft) {
		st.Buttons |= MaskLeft
	}
	if C.vinputButtonDown(C.kCGMouseButtonRight) {
		st.Buttons |= MaskRight
	}
	if C.vinputButtonDown(C.kCGMouseButtonCenter) {
		st.Buttons |= MaskMiddle
	}
	return st, nil
}

type darwinSession struct {
	src C.uintptr_t
}

func (s *darwinSession) FakeKey(code NativeCode, pressed bool) error {
	if code > math.MaxUint16 {
		return fmt.Errorf("key code %d out of range", code)
	}
	if !C.vinputPostKey(s.src, C.uint16_t(code), C.bool(pressed)) {
		return errEventCreate
	}
	return nil
}

// FakeButton posts the press at the current pointer location, which
// CoreGraphics requires for every mouse event.
func (s *darwinSession) FakeButton(code NativeCode, pressed bool) error {
	var x, y C.double
	if !C.vinputLocation(&x, &y) {
		return errEventCreate
	}
	var typ C.uint32_t
	switch {
	case code == 0 && pressed:
		typ = C.kCGEventLeftMouseDown
	case code == 0:
		typ = C.kCGEventLeftMouseUp
	case code == 1 && pressed:
		typ = C.kCGEventRightMouseDown
	case code == 1:
		typ = C.kCGEventRightMouseUp
	case pressed:
		typ = C.kCGEventOtherMouseDown
	default:
		typ = C.kCGEventOtherMouseUp
	}
	if !C.vinputPostMouse(s.src, typ, x, y, C.uint32_t(code)) {
		return errEventCreate
	}
	return nil
}

func (s *darwinSession) FakeMotion(x, y int32, kind MotionKind) error {
	var typ C.uint32_t
	var button C.uint32_t
	switch kind {
	case MotionDragLeft:
		typ, button = C.kCGEventLeftMouseDragged, C.kCGMouseButtonLeft
	case MotionDragRight:
		typ, button = C.kCGEventRightMouseDragged, C.kCGMouseButtonRight
	case MotionDragOther:
		typ, button = C.kCGEventOtherMouseDragged, C.kCGMouseButtonCenter
	default:
		typ, button = C.kCGEventMouseMoved, C.kCGMouseButtonLeft
	}
	if !C.vinputPostMouse(s.src, typ, C.double(x), C.double(y), button) {
		return errEventCreate
	}
	return nil
}

// FakeScroll posts one pixel unit scroll event. Both axes must fit int32.
func (s *darwinSession) FakeScroll(deltaX, deltaY int64) error {
	if deltaX < math.MinInt32 || deltaX > math.MaxInt32 || deltaY < math.MinInt32 || deltaY > math.MaxInt32 {
		return fmt.Errorf("scroll delta (%d, %d) does not fit int32", deltaX, deltaY)
	}
	if !C.vinputPostScroll(s.src, C.int32_t(deltaY), C.int32_t(deltaX)) {
		return errEventCreate
	}
	return nil
}

// Flush is a no-op: CGEventPost hands events to the window server before
// returning.
func (s *darwinSession) Flush() error { return nil }

func (s *darwinSession) Close() error {
	if s.src != 0 {
		C.vinputSourceRelease(s.src)
		s.src = 0
	}
	return nil
}

func nativeBackend(string) (Backend, error) {
	return newDarwinBackend(), nil
}
