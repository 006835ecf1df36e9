// Package script runs Lua input scripts against a Simulator.
//
// Scripts see a global table "input":
//
//	input.tap("A")
//	input.chord("ControlLeft+C")
//	input.move(100, 200)
//	input.click("left")
//	input.scroll(0, -3)
//	input.sleep(50)
//
// Only the base, table, string and math libraries are opened.
package script

import (
	"context"
	"errors"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"vinput/internal/input"
)

// DefaultTimeout bounds a whole script run.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when a script runs past its timeout.
var ErrTimeout = errors.New("script: timeout exceeded")

// Runner executes scripts. Each run gets a fresh Lua state.
type Runner struct {
	sim     *input.Simulator
	timeout time.Duration
}

// NewRunner creates a runner injecting through sim. A zero timeout selects
// DefaultTimeout.
func NewRunner(sim *input.Simulator, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{sim: sim, timeout: timeout}
}

// RunString executes code.
func (r *Runner) RunString(ctx context.Context, code string) error {
	return r.run(ctx, func(L *lua.LState) error { return L.DoString(code) })
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	return r.run(ctx, func(L *lua.LState) error { return L.DoFile(path) })
}

func (r *Runner) run(ctx context.Context, do func(*lua.LState) error) (err error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibraries(L)
	L.SetContext(ctx)
	newModule(r.sim).register(L)

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("lua panic: %v", p)
		}
	}()
	if err := do(L); err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
		case ctx.Err() != nil:
			return fmt.Errorf("script: %w", ctx.Err())
		}
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// openSafeLibraries opens only the Lua libraries without host access.
func openSafeLibraries(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// dofile and loadfile reach the file system
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
}
