// Package inputtest provides a recording input backend for tests and dry
// runs.
package inputtest

import (
	"errors"
	"fmt"
	"sync"

	"vinput/internal/input"
)

// Op names a native call made on a Recorder.
type Op string

const (
	OpOpen     Op = "open"
	OpKey      Op = "key"
	OpButton   Op = "button"
	OpMotion   Op = "motion"
	OpRelative Op = "relative"
	OpScroll   Op = "scroll"
	OpFlush    Op = "flush"
	OpClose    Op = "close"
)

// Call is one recorded native call. Only the fields of Op are set.
type Call struct {
	Op      Op
	Code    input.NativeCode
	Pressed bool
	X, Y    int32
	Kind    input.MotionKind
	DX, DY  int64
}

func (c Call) String() string {
	switch c.Op {
	case OpKey, OpButton:
		return fmt.Sprintf("%s(%d, %t)", c.Op, c.Code, c.Pressed)
	case OpMotion:
		return fmt.Sprintf("%s(%d, %d, %s)", c.Op, c.X, c.Y, c.Kind)
	case OpRelative, OpScroll:
		return fmt.Sprintf("%s(%d, %d)", c.Op, c.DX, c.DY)
	default:
		return string(c.Op)
	}
}

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("injected failure")

type failure struct {
	op  Op
	nth int
	err error
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCodes sets the code table. The default is the X11 table.
func WithCodes(t input.CodeTable) Option {
	return func(r *Recorder) { r.codes = t }
}

// WithName sets the backend name.
func WithName(name string) Option {
	return func(r *Recorder) { r.name = name }
}

// WithDragEvents makes the backend report drag support.
func WithDragEvents() Option {
	return func(r *Recorder) { r.caps.DragEvents = true }
}

// WithRelativeMotion gives sessions a native relative move primitive.
func WithRelativeMotion() Option {
	return func(r *Recorder) { r.relative = true }
}

// WithScroll gives sessions a native scroll primitive.
func WithScroll() Option {
	return func(r *Recorder) { r.scroll = true }
}

// WithPointer sets the initial pointer state.
func WithPointer(st input.PointerState) Option {
	return func(r *Recorder) { r.pointer = st }
}

// WithLogf logs every native call through logf, for dry runs.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(r *Recorder) { r.logf = logf }
}

// Recorder is an input.Backend that records native calls instead of
// injecting them. Motion calls update the recorded pointer position so
// relative moves can be observed.
type Recorder struct {
	name     string
	codes    input.CodeTable
	caps     input.Caps
	relative bool
	scroll   bool
	logf     func(format string, args ...any)

	mu          sync.Mutex
	calls       []Call
	counts      map[Op]int
	failures    []failure
	openErr     error
	pointerErr  error
	pointer     input.PointerState
	open        int
	maxOpen     int
	openedTotal int
}

// NewRecorder returns a Recorder configured by opts.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		name:   "recorder",
		codes:  input.X11Codes(),
		counts: make(map[Op]int),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FailOpen makes every following Open fail with err.
func (r *Recorder) FailOpen(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openErr = err
}

// FailOn makes the nth call (1-based, counted from now) of op fail with
// err, or ErrInjected when err is nil.
func (r *Recorder) FailOn(op Op, nth int, err error) {
	if err == nil {
		err = ErrInjected
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure{op: op, nth: r.counts[op] + nth, err: err})
}

// FailPointer makes pointer queries fail with err. nil restores them.
func (r *Recorder) FailPointer(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointerErr = err
}

// SetPointer replaces the pointer state.
func (r *Recorder) SetPointer(st input.PointerState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointer = st
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Injected returns the recorded calls minus session bookkeeping
// (open, flush and close).
func (r *Recorder) Injected() []Call {
	var out []Call
	for _, c := range r.Calls() {
		switch c.Op {
		case OpOpen, OpFlush, OpClose:
			continue
		}
		out = append(out, c)
	}
	return out
}

// Count returns how many times op was called.
func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[op]
}

// MaxOpen returns the largest number of sessions open at the same time.
func (r *Recorder) MaxOpen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxOpen
}

// OpenNow returns the number of sessions currently open.
func (r *Recorder) OpenNow() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// Reset forgets recorded calls and injected failures.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.counts = make(map[Op]int)
	r.failures = nil
	r.openErr = nil
	r.pointerErr = nil
}

func (r *Recorder) Name() string           { return r.name }
func (r *Recorder) Codes() input.CodeTable { return r.codes }
func (r *Recorder) Caps() input.Caps       { return r.caps }

func (r *Recorder) Locator() input.Locator {
	return input.LocatorFunc(func() (input.PointerState, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.pointerErr != nil {
			return input.PointerState{}, r.pointerErr
		}
		return r.pointer, nil
	})
}

func (r *Recorder) Open() (input.Session, error) {
	r.mu.Lock()
	if r.openErr != nil {
		err := r.openErr
		r.mu.Unlock()
		return nil, err
	}
	if err := r.recordLocked(Call{Op: OpOpen}); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.open++
	r.openedTotal++
	if r.open > r.maxOpen {
		r.maxOpen = r.open
	}
	id := r.openedTotal
	r.mu.Unlock()

	base := &session{r: r, id: id}
	switch {
	case r.relative && r.scroll:
		return relScrollSession{base}, nil
	case r.relative:
		return relSession{base}, nil
	case r.scroll:
		return scrollSession{base}, nil
	default:
		return base, nil
	}
}

// recordLocked appends c and returns the injected failure for it, if any.
func (r *Recorder) recordLocked(c Call) error {
	r.counts[c.Op]++
	r.calls = append(r.calls, c)
	if r.logf != nil {
		r.logf("%s: %s", r.name, c)
	}
	n := r.counts[c.Op]
	for _, f := range r.failures {
		if f.op == c.Op && f.nth == n {
			return f.err
		}
	}
	return nil
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	err := r.recordLocked(c)
	if err != nil {
		return err
	}
	switch c.Op {
	case OpMotion:
		r.pointer.X, r.pointer.Y = c.X, c.Y
	case OpRelative:
		r.pointer.X += int32(c.DX)
		r.pointer.Y += int32(c.DY)
	}
	return nil
}

type session struct {
	r      *Recorder
	id     int
	closed bool
}

func (s *session) FakeKey(code input.NativeCode, pressed bool) error {
	return s.r.record(Call{Op: OpKey, Code: code, Pressed: pressed})
}

func (s *session) FakeButton(code input.NativeCode, pressed bool) error {
	return s.r.record(Call{Op: OpButton, Code: code, Pressed: pressed})
}

func (s *session) FakeMotion(x, y int32, kind input.MotionKind) error {
	return s.r.record(Call{Op: OpMotion, X: x, Y: y, Kind: kind})
}

func (s *session) Flush() error {
	return s.r.record(Call{Op: OpFlush})
}

func (s *session) Close() error {
	if s.closed {
		return fmt.Errorf("session %d closed twice", s.id)
	}
	s.closed = true
	s.r.mu.Lock()
	s.r.open--
	s.r.mu.Unlock()
	return s.r.record(Call{Op: OpClose})
}

type relSession struct{ *session }

func (s relSession) FakeRelativeMotion(dx, dy int32) error {
	return s.r.record(Call{Op: OpRelative, DX: int64(dx), DY: int64(dy)})
}

type scrollSession struct{ *session }

func (s scrollSession) FakeScroll(dx, dy int64) error {
	return s.r.record(Call{Op: OpScroll, DX: dx, DY: dy})
}

type relScrollSession struct{ *session }

func (s relScrollSession) FakeRelativeMotion(dx, dy int32) error {
	return relSession(s).FakeRelativeMotion(dx, dy)
}

func (s relScrollSession) FakeScroll(dx, dy int64) error {
	return scrollSession(s).FakeScroll(dx, dy)
}
