package input

import (
	"fmt"
	"time"
)

// Outcome describes one finished Simulate call.
type Outcome struct {
	Backend  string
	Event    Event
	Err      error
	Duration time.Duration
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithMaxWheelNotches sets the largest wheel delta, summed over both axes,
// that is expanded into button presses. 0 removes the limit.
func WithMaxWheelNotches(n uint64) Option {
	return func(s *Simulator) { s.maxWheel = n }
}

// WithObserver registers fn to be called after every Simulate. fn runs on
// the calling goroutine.
func WithObserver(fn func(Outcome)) Option {
	return func(s *Simulator) { s.observer = fn }
}

// Simulator is the entry point for synthesizing input. It holds no session
// between calls and is safe for concurrent use.
type Simulator struct {
	backend  Backend
	tr       *Translator
	maxWheel uint64
	observer func(Outcome)
}

// New returns a Simulator injecting through b.
func New(b Backend, opts ...Option) *Simulator {
	s := &Simulator{
		backend:  b,
		maxWheel: DefaultMaxWheelNotches,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tr = NewTranslator(b, s.maxWheel)
	return s
}

// Backend returns the backend the simulator injects through.
func (s *Simulator) Backend() Backend {
	return s.backend
}

// Simulate synthesizes ev. Any failure is reported as a *SimulateError.
// There are no retries and no rollback: a wheel event that fails midway
// leaves the notches already sent in effect.
func (s *Simulator) Simulate(ev Event) error {
	start := time.Now()
	err := withSession(s.backend, func(sess Session) error {
		return s.tr.Translate(ev, sess)
	})
	if err != nil {
		err = &SimulateError{Event: ev, err: err}
	}
	if s.observer != nil {
		s.observer(Outcome{
			Backend:  s.backend.Name(),
			Event:    ev,
			Err:      err,
			Duration: time.Since(start),
		})
	}
	return err
}

// MoveRelative moves the pointer by (dx, dy) and returns the position read
// before the move. The position is only read when wantStart is set or the
// backend has no relative move primitive; otherwise the zero Point is
// returned. On a backend with a native primitive a failed read does not
// prevent the move.
func (s *Simulator) MoveRelative(dx, dy int32, wantStart bool) (Point, error) {
	var start Point
	err := withSession(s.backend, func(sess Session) error {
		rm, native := sess.(RelativeMover)
		if native {
			if wantStart {
				if st, err := queryPointer(s.backend.Locator()); err == nil {
					start = st.Point
				}
			}
			if err := rm.FakeRelativeMotion(dx, dy); err != nil {
				return nativeErr("relative motion", err)
			}
			return nil
		}

		st, err := queryPointer(s.backend.Locator())
		if err != nil {
			return err
		}
		start = st.Point
		kind := MotionMove
		if s.backend.Caps().DragEvents {
			kind = dragKind(st.Buttons)
		}
		x, y := addClamped(st.X, dx), addClamped(st.Y, dy)
		if err := sess.FakeMotion(x, y, kind); err != nil {
			return nativeErr("motion", err)
		}
		return nil
	})
	if err != nil {
		return start, fmt.Errorf("could not move pointer by (%d, %d): %w", dx, dy, err)
	}
	return start, nil
}

// Pointer reads the current pointer position and held buttons.
func (s *Simulator) Pointer() (PointerState, error) {
	return queryPointer(s.backend.Locator())
}

// Tap presses and releases k.
func (s *Simulator) Tap(k Key) error {
	if err := s.Simulate(KeyPress(k)); err != nil {
		return err
	}
	return s.Simulate(KeyRelease(k))
}

// Click presses and releases b.
func (s *Simulator) Click(b Button) error {
	if err := s.Simulate(ButtonPress(b)); err != nil {
		return err
	}
	return s.Simulate(ButtonRelease(b))
}

// Supports reports whether the backend has a code for k.
func (s *Simulator) Supports(k Key) bool {
	_, ok := s.backend.Codes().KeyCode(k)
	return ok
}
