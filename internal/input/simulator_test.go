package input_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"vinput/internal/input"
	"vinput/internal/input/inputtest"
)

func TestSimulateKeyPressRelease(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	if err := sim.Simulate(input.KeyPress(input.KeyA)); err != nil {
		t.Fatalf("KeyPress failed: %v", err)
	}
	if err := sim.Simulate(input.KeyRelease(input.KeyA)); err != nil {
		t.Fatalf("KeyRelease failed: %v", err)
	}

	want := []inputtest.Call{
		{Op: inputtest.OpOpen},
		{Op: inputtest.OpKey, Code: 38, Pressed: true},
		{Op: inputtest.OpFlush},
		{Op: inputtest.OpClose},
		{Op: inputtest.OpOpen},
		{Op: inputtest.OpKey, Code: 38, Pressed: false},
		{Op: inputtest.OpFlush},
		{Op: inputtest.OpClose},
	}
	assertCalls(t, rec.Calls(), want)
}

func TestSimulateEveryKey(t *testing.T) {
	tables := []struct {
		name  string
		codes input.CodeTable
	}{
		{"x11", input.X11Codes()},
		{"darwin", input.DarwinCodes()},
		{"windows", input.WindowsCodes()},
	}
	for _, tt := range tables {
		t.Run(tt.name, func(t *testing.T) {
			rec := inputtest.NewRecorder(inputtest.WithCodes(tt.codes))
			sim := input.New(rec)

			mapped := 0
			for _, k := range input.AllKeys() {
				rec.Reset()
				code, ok := tt.codes.KeyCode(k)
				pressErr := sim.Simulate(input.KeyPress(k))
				releaseErr := sim.Simulate(input.KeyRelease(k))

				if !ok {
					if !errors.Is(pressErr, input.ErrUnsupportedKey) || !errors.Is(releaseErr, input.ErrUnsupportedKey) {
						t.Errorf("%s: expected ErrUnsupportedKey, got %v / %v", k, pressErr, releaseErr)
					}
					if n := len(rec.Injected()); n != 0 {
						t.Errorf("%s: expected no native calls, got %v", k, rec.Injected())
					}
					continue
				}

				mapped++
				if pressErr != nil || releaseErr != nil {
					t.Errorf("%s: unexpected errors %v / %v", k, pressErr, releaseErr)
					continue
				}
				got := rec.Injected()
				want := []inputtest.Call{
					{Op: inputtest.OpKey, Code: code, Pressed: true},
					{Op: inputtest.OpKey, Code: code, Pressed: false},
				}
				if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
					t.Errorf("%s: expected %v, got %v", k, want, got)
				}
			}
			if mapped == 0 {
				t.Error("Expected at least one mapped key")
			}
		})
	}
}

func TestSimulateUnmappedKey(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	err := sim.Simulate(input.KeyPress(input.KeyFunction))
	if !errors.Is(err, input.ErrUnsupportedKey) {
		t.Fatalf("Expected ErrUnsupportedKey, got %v", err)
	}
	var serr *input.SimulateError
	if !errors.As(err, &serr) {
		t.Fatalf("Expected *SimulateError, got %T", err)
	}
	if serr.Error() != "could not simulate key_press(Function)" {
		t.Errorf("Unexpected message %q", serr.Error())
	}
	if n := len(rec.Injected()); n != 0 {
		t.Errorf("Expected no native calls, got %d", n)
	}
	if rec.OpenNow() != 0 {
		t.Errorf("Expected session to be released")
	}
}

func TestSimulateUnsupportedButton(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	for _, raw := range []int64{0, 256, -7} {
		err := sim.Simulate(input.ButtonPress(input.UnknownButton(raw)))
		if !errors.Is(err, input.ErrUnsupportedButton) {
			t.Errorf("raw %d: Expected ErrUnsupportedButton, got %v", raw, err)
		}
	}
	if n := len(rec.Injected()); n != 0 {
		t.Errorf("Expected no native calls, got %d", n)
	}

	if err := sim.Simulate(input.ButtonPress(input.UnknownButton(9))); err != nil {
		t.Fatalf("Expected raw button 9 to work, got %v", err)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{{Op: inputtest.OpButton, Code: 9, Pressed: true}})
}

func TestSimulatePointerMoveSanitizes(t *testing.T) {
	tests := []struct {
		name         string
		x, y         float64
		wantX, wantY int32
	}{
		{"nan and fraction", math.NaN(), 5.7, 0, 6},
		{"huge", 1e30, -1e30, math.MaxInt32, math.MinInt32},
		{"infinity", math.Inf(1), 10.2, 0, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := inputtest.NewRecorder()
			if err := input.New(rec).Simulate(input.PointerMove(tt.x, tt.y)); err != nil {
				t.Fatalf("PointerMove failed: %v", err)
			}
			assertCalls(t, rec.Injected(), []inputtest.Call{
				{Op: inputtest.OpMotion, X: tt.wantX, Y: tt.wantY, Kind: input.MotionMove},
			})
		})
	}
}

func TestSimulatePointerMoveDrag(t *testing.T) {
	rec := inputtest.NewRecorder(
		inputtest.WithCodes(input.DarwinCodes()),
		inputtest.WithDragEvents(),
		inputtest.WithPointer(input.PointerState{Buttons: input.MaskRight}),
	)
	sim := input.New(rec)

	if err := sim.Simulate(input.PointerMove(10, 20)); err != nil {
		t.Fatalf("PointerMove failed: %v", err)
	}
	rec.SetPointer(input.PointerState{})
	if err := sim.Simulate(input.PointerMove(11, 21)); err != nil {
		t.Fatalf("PointerMove failed: %v", err)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{
		{Op: inputtest.OpMotion, X: 10, Y: 20, Kind: input.MotionDragRight},
		{Op: inputtest.OpMotion, X: 11, Y: 21, Kind: input.MotionMove},
	})

	rec.FailPointer(errors.New("no display"))
	err := sim.Simulate(input.PointerMove(1, 1))
	if !errors.Is(err, input.ErrPointerState) {
		t.Fatalf("Expected ErrPointerState, got %v", err)
	}
	if n := len(rec.Injected()); n != 2 {
		t.Errorf("Expected no motion after failed query, got %d calls", n)
	}
}

func TestSimulateWheelDecomposition(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	if err := sim.Simulate(input.Wheel(3, -2)); err != nil {
		t.Fatalf("Wheel failed: %v", err)
	}

	var want []inputtest.Call
	for i := 0; i < 3; i++ {
		want = append(want,
			inputtest.Call{Op: inputtest.OpButton, Code: 7, Pressed: true},
			inputtest.Call{Op: inputtest.OpButton, Code: 7, Pressed: false})
	}
	for i := 0; i < 2; i++ {
		want = append(want,
			inputtest.Call{Op: inputtest.OpButton, Code: 5, Pressed: true},
			inputtest.Call{Op: inputtest.OpButton, Code: 5, Pressed: false})
	}
	assertCalls(t, rec.Injected(), want)
	if rec.Count(inputtest.OpOpen) != 1 {
		t.Errorf("Expected one session for the whole wheel event, got %d", rec.Count(inputtest.OpOpen))
	}
}

func TestSimulateWheelDirections(t *testing.T) {
	tests := []struct {
		dx, dy int64
		codes  []input.NativeCode
	}{
		{0, 1, []input.NativeCode{4}},
		{0, -1, []input.NativeCode{5}},
		{-1, 0, []input.NativeCode{6}},
		{1, 0, []input.NativeCode{7}},
		{0, 0, nil},
	}
	for _, tt := range tests {
		rec := inputtest.NewRecorder()
		if err := input.New(rec).Simulate(input.Wheel(tt.dx, tt.dy)); err != nil {
			t.Fatalf("Wheel(%d, %d) failed: %v", tt.dx, tt.dy, err)
		}
		var want []inputtest.Call
		for _, c := range tt.codes {
			want = append(want,
				inputtest.Call{Op: inputtest.OpButton, Code: c, Pressed: true},
				inputtest.Call{Op: inputtest.OpButton, Code: c, Pressed: false})
		}
		assertCalls(t, rec.Injected(), want)
	}
}

func TestSimulateWheelAbortsOnFailure(t *testing.T) {
	rec := inputtest.NewRecorder()
	rec.FailOn(inputtest.OpButton, 3, nil)
	sim := input.New(rec)

	err := sim.Simulate(input.Wheel(0, 5))
	if !errors.Is(err, input.ErrNativeCall) {
		t.Fatalf("Expected ErrNativeCall, got %v", err)
	}
	if n := rec.Count(inputtest.OpButton); n != 3 {
		t.Errorf("Expected wheel to stop after the failing call, got %d button calls", n)
	}
	if rec.Count(inputtest.OpFlush) != 1 || rec.Count(inputtest.OpClose) != 1 {
		t.Errorf("Expected flush and close after failure")
	}
}

func TestSimulateWheelLimit(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec, input.WithMaxWheelNotches(10))

	if err := sim.Simulate(input.Wheel(6, 5)); !errors.Is(err, input.ErrWheelTooLarge) {
		t.Fatalf("Expected ErrWheelTooLarge, got %v", err)
	}
	if err := sim.Simulate(input.Wheel(math.MinInt64, 0)); !errors.Is(err, input.ErrWheelTooLarge) {
		t.Fatalf("Expected ErrWheelTooLarge, got %v", err)
	}
	if n := len(rec.Injected()); n != 0 {
		t.Errorf("Expected no native calls, got %d", n)
	}

	unlimited := input.New(rec, input.WithMaxWheelNotches(0))
	if err := unlimited.Simulate(input.Wheel(0, 1500)); err != nil {
		t.Fatalf("Expected unlimited wheel, got %v", err)
	}
	if n := rec.Count(inputtest.OpButton); n != 3000 {
		t.Errorf("Expected 3000 button calls, got %d", n)
	}
}

func TestSimulateNativeScroll(t *testing.T) {
	rec := inputtest.NewRecorder(inputtest.WithScroll())
	if err := input.New(rec).Simulate(input.Wheel(-4, 9)); err != nil {
		t.Fatalf("Wheel failed: %v", err)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{{Op: inputtest.OpScroll, DX: -4, DY: 9}})
}

func TestSimulateSessionUnavailable(t *testing.T) {
	rec := inputtest.NewRecorder()
	rec.FailOpen(errors.New("cannot open display"))
	sim := input.New(rec)

	events := []input.Event{
		input.KeyPress(input.KeyA),
		input.ButtonPress(input.ButtonLeft),
		input.PointerMove(1, 1),
		input.Wheel(1, 1),
	}
	for _, ev := range events {
		if err := sim.Simulate(ev); !errors.Is(err, input.ErrSessionUnavailable) {
			t.Errorf("%s: Expected ErrSessionUnavailable, got %v", ev, err)
		}
	}
	if n := len(rec.Calls()); n != 0 {
		t.Errorf("Expected no calls at all, got %v", rec.Calls())
	}
}

func TestSimulateFlushFailure(t *testing.T) {
	rec := inputtest.NewRecorder()
	rec.FailOn(inputtest.OpFlush, 1, nil)

	err := input.New(rec).Simulate(input.KeyPress(input.KeyB))
	if !errors.Is(err, input.ErrNativeCall) || !errors.Is(err, inputtest.ErrInjected) {
		t.Fatalf("Expected flush failure, got %v", err)
	}
	if rec.Count(inputtest.OpClose) != 1 {
		t.Errorf("Expected session to be closed after flush failure")
	}
}

func TestSimulateNoCoalescing(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)
	for i := 0; i < 3; i++ {
		if err := sim.Simulate(input.KeyPress(input.KeyShiftLeft)); err != nil {
			t.Fatalf("KeyPress failed: %v", err)
		}
	}
	if n := rec.Count(inputtest.OpKey); n != 3 {
		t.Errorf("Expected 3 key calls, got %d", n)
	}
	if n := rec.Count(inputtest.OpOpen); n != 3 {
		t.Errorf("Expected 3 sessions, got %d", n)
	}
}

func TestSimulateOneSessionPerCall(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)
	for i := 0; i < 5; i++ {
		if err := sim.Simulate(input.KeyPress(input.KeyC)); err != nil {
			t.Fatalf("KeyPress failed: %v", err)
		}
	}
	if rec.MaxOpen() != 1 {
		t.Errorf("Expected at most one open session, got %d", rec.MaxOpen())
	}
	if rec.OpenNow() != 0 {
		t.Errorf("Expected all sessions released, got %d open", rec.OpenNow())
	}
}

func TestSimulateConcurrent(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sim.Simulate(input.KeyPress(input.KeyD)); err != nil {
				t.Errorf("KeyPress failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if rec.Count(inputtest.OpOpen) != 16 || rec.Count(inputtest.OpClose) != 16 {
		t.Errorf("Expected 16 sessions opened and closed, got %d/%d",
			rec.Count(inputtest.OpOpen), rec.Count(inputtest.OpClose))
	}
	if rec.OpenNow() != 0 {
		t.Errorf("Expected all sessions released")
	}
}

func TestObserver(t *testing.T) {
	rec := inputtest.NewRecorder()
	var got []input.Outcome
	sim := input.New(rec, input.WithObserver(func(o input.Outcome) {
		got = append(got, o)
	}))

	_ = sim.Simulate(input.KeyPress(input.KeyE))
	_ = sim.Simulate(input.KeyPress(input.KeyFunction))

	if len(got) != 2 {
		t.Fatalf("Expected 2 outcomes, got %d", len(got))
	}
	if got[0].Err != nil || got[0].Backend != "recorder" {
		t.Errorf("Unexpected first outcome %+v", got[0])
	}
	if !errors.Is(got[1].Err, input.ErrUnsupportedKey) {
		t.Errorf("Expected second outcome to carry ErrUnsupportedKey, got %v", got[1].Err)
	}
}

func TestMoveRelativeNative(t *testing.T) {
	rec := inputtest.NewRecorder(
		inputtest.WithRelativeMotion(),
		inputtest.WithPointer(input.PointerState{Point: input.Point{X: 100, Y: 200}}),
	)
	sim := input.New(rec)

	start, err := sim.MoveRelative(10, -5, true)
	if err != nil {
		t.Fatalf("MoveRelative failed: %v", err)
	}
	if start != (input.Point{X: 100, Y: 200}) {
		t.Errorf("Expected start (100, 200), got %+v", start)
	}
	st, _ := sim.Pointer()
	if st.Point != (input.Point{X: 110, Y: 195}) {
		t.Errorf("Expected pointer at (110, 195), got %+v", st.Point)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{{Op: inputtest.OpRelative, DX: 10, DY: -5}})

	start, err = sim.MoveRelative(1, 1, false)
	if err != nil {
		t.Fatalf("MoveRelative failed: %v", err)
	}
	if start != (input.Point{}) {
		t.Errorf("Expected zero start when not requested, got %+v", start)
	}

	rec.FailPointer(errors.New("gone"))
	start, err = sim.MoveRelative(1, 1, true)
	if err != nil {
		t.Fatalf("Expected move despite failed query, got %v", err)
	}
	if start != (input.Point{}) {
		t.Errorf("Expected zero start after failed query, got %+v", start)
	}
}

func TestMoveRelativeAbsoluteFallback(t *testing.T) {
	rec := inputtest.NewRecorder(
		inputtest.WithCodes(input.DarwinCodes()),
		inputtest.WithDragEvents(),
		inputtest.WithPointer(input.PointerState{Point: input.Point{X: 50, Y: 60}, Buttons: input.MaskLeft}),
	)
	sim := input.New(rec)

	start, err := sim.MoveRelative(-10, 15, false)
	if err != nil {
		t.Fatalf("MoveRelative failed: %v", err)
	}
	if start != (input.Point{X: 50, Y: 60}) {
		t.Errorf("Expected start (50, 60), got %+v", start)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{
		{Op: inputtest.OpMotion, X: 40, Y: 75, Kind: input.MotionDragLeft},
	})

	rec.SetPointer(input.PointerState{Point: input.Point{X: math.MaxInt32 - 1, Y: 0}})
	if _, err := sim.MoveRelative(10, 0, false); err != nil {
		t.Fatalf("MoveRelative failed: %v", err)
	}
	calls := rec.Injected()
	if last := calls[len(calls)-1]; last.X != math.MaxInt32 {
		t.Errorf("Expected saturated X, got %d", last.X)
	}

	rec.FailPointer(errors.New("gone"))
	start, err = sim.MoveRelative(1, 1, true)
	if !errors.Is(err, input.ErrPointerState) {
		t.Fatalf("Expected ErrPointerState, got %v", err)
	}
	if start != (input.Point{}) {
		t.Errorf("Expected zero start, got %+v", start)
	}
}

func TestTapAndClick(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	if err := sim.Tap(input.KeyEscape); err != nil {
		t.Fatalf("Tap failed: %v", err)
	}
	if err := sim.Click(input.ButtonRight); err != nil {
		t.Fatalf("Click failed: %v", err)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{
		{Op: inputtest.OpKey, Code: 9, Pressed: true},
		{Op: inputtest.OpKey, Code: 9, Pressed: false},
		{Op: inputtest.OpButton, Code: 3, Pressed: true},
		{Op: inputtest.OpButton, Code: 3, Pressed: false},
	})
}

func TestChordReleasesOnFailure(t *testing.T) {
	rec := inputtest.NewRecorder()
	sim := input.New(rec)

	// Function has no X11 code, so the third press fails.
	err := sim.Chord(input.Chord{input.KeyControlLeft, input.KeyAlt, input.KeyFunction})
	if !errors.Is(err, input.ErrUnsupportedKey) {
		t.Fatalf("Expected ErrUnsupportedKey, got %v", err)
	}
	assertCalls(t, rec.Injected(), []inputtest.Call{
		{Op: inputtest.OpKey, Code: 37, Pressed: true},
		{Op: inputtest.OpKey, Code: 64, Pressed: true},
		{Op: inputtest.OpKey, Code: 64, Pressed: false},
		{Op: inputtest.OpKey, Code: 37, Pressed: false},
	})
}

func assertCalls(t *testing.T, got, want []inputtest.Call) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected %d calls, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Call %d = %s, want %s", i, got[i], want[i])
		}
	}
}
