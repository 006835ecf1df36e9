//go:build linux || freebsd || openbsd || netbsd

package input

import (
	"fmt"
	"math"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"
)

// x11Backend injects through the XTEST extension. Every session dials its
// own connection; the locator keeps one connection for queries only and
// dials it again after a failure.
type x11Backend struct {
	display string
	dial    func(display string) (*xgb.Conn, error)

	mu      sync.Mutex
	locConn *xgb.Conn
	locRoot xproto.Window
}

func newX11Backend(display string) *x11Backend {
	return &x11Backend{display: display, dial: xgb.NewConnDisplay}
}

func (b *x11Backend) Name() string     { return "x11" }
func (b *x11Backend) Codes() CodeTable { return X11Codes() }
func (b *x11Backend) Caps() Caps       { return Caps{} }

func (b *x11Backend) Open() (Session, error) {
	c, err := b.dial(b.display)
	if err != nil {
		return nil, err
	}
	if err := xtest.Init(c); err != nil {
		c.Close()
		return nil, fmt.Errorf("XTEST extension: %w", err)
	}
	return &x11Session{conn: c, root: xproto.Setup(c).DefaultScreen(c).Root}, nil
}

func (b *x11Backend) Locator() Locator {
	return LocatorFunc(b.pointerState)
}

func (b *x11Backend) pointerState() (PointerState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.locConn == nil {
		c, err := b.dial(b.display)
		if err != nil {
			return PointerState{}, err
		}
		b.locConn, b.locRoot = c, xproto.Setup(c).DefaultScreen(c).Root
	}
	reply, err := xproto.QueryPointer(b.locConn, b.locRoot).Reply()
	if err != nil {
		// The server may have gone away; start over on the next query
		b.locConn.Close()
		b.locConn = nil
		return PointerState{}, err
	}
	st := PointerState{Point: Point{X: int32(reply.RootX), Y: int32(reply.RootY)}}
	if reply.Mask&xproto.KeyButMaskButton1 != 0 {
		st.Buttons |= MaskLeft
	}
	if reply.Mask&xproto.KeyButMaskButton2 != 0 {
		st.Buttons |= MaskMiddle
	}
	if reply.Mask&xproto.KeyButMaskButton3 != 0 {
		st.Buttons |= MaskRight
	}
	return st, nil
}

type x11Session struct {
	conn *xgb.Conn
	root xproto.Window
}

func (s *x11Session) fake(typ byte, detail byte, root xproto.Window, x, y int16) error {
	return xtest.FakeInputChecked(s.conn, typ, detail, xproto.TimeCurrentTime, root, x, y, 0).Check()
}

func (s *x11Session) FakeKey(code NativeCode, pressed bool) error {
	if code > math.MaxUint8 {
		return fmt.Errorf("keycode %d does not fit a byte", code)
	}
	typ := byte(xproto.KeyRelease)
	if pressed {
		typ = xproto.KeyPress
	}
	return s.fake(typ, byte(code), xproto.WindowNone, 0, 0)
}

func (s *x11Session) FakeButton(code NativeCode, pressed bool) error {
	if code > math.MaxUint8 {
		return fmt.Errorf("button %d does not fit a byte", code)
	}
	typ := byte(xproto.ButtonRelease)
	if pressed {
		typ = xproto.ButtonPress
	}
	return s.fake(typ, byte(code), xproto.WindowNone, 0, 0)
}

// FakeMotion moves to root window coordinates. XTEST carries INT16 values.
func (s *x11Session) FakeMotion(x, y int32, _ MotionKind) error {
	return s.fake(xproto.MotionNotify, 0, s.root, clamp16(x), clamp16(y))
}

// FakeRelativeMotion uses detail 1, which XTEST defines as relative motion.
func (s *x11Session) FakeRelativeMotion(dx, dy int32) error {
	return s.fake(xproto.MotionNotify, 1, xproto.WindowNone, clamp16(dx), clamp16(dy))
}

// Flush waits for a reply, which guarantees every earlier request has been
// processed by the server.
func (s *x11Session) Flush() error {
	_, err := xproto.GetInputFocus(s.conn).Reply()
	return err
}

func (s *x11Session) Close() error {
	s.conn.Close()
	return nil
}

func clamp16(v int32) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

func nativeBackend(display string) (Backend, error) {
	return newX11Backend(display), nil
}
