package script

import (
	"time"

	lua "github.com/yuin/gopher-lua"

	"vinput/internal/input"
)

// module implements the "input" global.
type module struct {
	sim *input.Simulator
}

func newModule(sim *input.Simulator) *module {
	return &module{sim: sim}
}

func (m *module) register(L *lua.LState) {
	mod := L.NewTable()

	L.SetField(mod, "key_down", L.NewFunction(m.keyDown))
	L.SetField(mod, "key_up", L.NewFunction(m.keyUp))
	L.SetField(mod, "tap", L.NewFunction(m.tap))
	L.SetField(mod, "chord", L.NewFunction(m.chord))
	L.SetField(mod, "button_down", L.NewFunction(m.buttonDown))
	L.SetField(mod, "button_up", L.NewFunction(m.buttonUp))
	L.SetField(mod, "click", L.NewFunction(m.click))
	L.SetField(mod, "move", L.NewFunction(m.move))
	L.SetField(mod, "move_rel", L.NewFunction(m.moveRel))
	L.SetField(mod, "scroll", L.NewFunction(m.scroll))
	L.SetField(mod, "pointer", L.NewFunction(m.pointer))
	L.SetField(mod, "supports", L.NewFunction(m.supports))
	L.SetField(mod, "sleep", L.NewFunction(m.sleep))

	L.SetGlobal("input", mod)
}

func checkKey(L *lua.LState, n int) input.Key {
	k, err := input.ParseKey(L.CheckString(n))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return k
}

// optButton defaults to the left button.
func optButton(L *lua.LState, n int) input.Button {
	b, err := input.ParseButton(L.OptString(n, "left"))
	if err != nil {
		L.ArgError(n, err.Error())
	}
	return b
}

// key_down(name)
func (m *module) keyDown(L *lua.LState) int {
	if err := m.sim.Simulate(input.KeyPress(checkKey(L, 1))); err != nil {
		L.RaiseError("key_down: %v", err)
	}
	return 0
}

// key_up(name)
func (m *module) keyUp(L *lua.LState) int {
	if err := m.sim.Simulate(input.KeyRelease(checkKey(L, 1))); err != nil {
		L.RaiseError("key_up: %v", err)
	}
	return 0
}

// tap(name)
func (m *module) tap(L *lua.LState) int {
	if err := m.sim.Tap(checkKey(L, 1)); err != nil {
		L.RaiseError("tap: %v", err)
	}
	return 0
}

// chord("ControlLeft+C")
func (m *module) chord(L *lua.LState) int {
	c, err := input.ParseChord(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	if err := m.sim.Chord(c); err != nil {
		L.RaiseError("chord: %v", err)
	}
	return 0
}

// button_down([name])
func (m *module) buttonDown(L *lua.LState) int {
	if err := m.sim.Simulate(input.ButtonPress(optButton(L, 1))); err != nil {
		L.RaiseError("button_down: %v", err)
	}
	return 0
}

// button_up([name])
func (m *module) buttonUp(L *lua.LState) int {
	if err := m.sim.Simulate(input.ButtonRelease(optButton(L, 1))); err != nil {
		L.RaiseError("button_up: %v", err)
	}
	return 0
}

// click([name])
func (m *module) click(L *lua.LState) int {
	if err := m.sim.Click(optButton(L, 1)); err != nil {
		L.RaiseError("click: %v", err)
	}
	return 0
}

// move(x, y)
func (m *module) move(L *lua.LState) int {
	x, y := float64(L.CheckNumber(1)), float64(L.CheckNumber(2))
	if err := m.sim.Simulate(input.PointerMove(x, y)); err != nil {
		L.RaiseError("move: %v", err)
	}
	return 0
}

// move_rel(dx, dy) -> start_x, start_y
func (m *module) moveRel(L *lua.LState) int {
	dx, dy := L.CheckInt(1), L.CheckInt(2)
	start, err := m.sim.MoveRelative(int32(dx), int32(dy), true)
	if err != nil {
		L.RaiseError("move_rel: %v", err)
	}
	L.Push(lua.LNumber(start.X))
	L.Push(lua.LNumber(start.Y))
	return 2
}

// scroll(dx, dy)
func (m *module) scroll(L *lua.LState) int {
	dx, dy := L.CheckInt64(1), L.CheckInt64(2)
	if err := m.sim.Simulate(input.Wheel(dx, dy)); err != nil {
		L.RaiseError("scroll: %v", err)
	}
	return 0
}

// pointer() -> x, y, {buttons}
func (m *module) pointer(L *lua.LState) int {
	st, err := m.sim.Pointer()
	if err != nil {
		L.RaiseError("pointer: %v", err)
	}
	buttons := L.NewTable()
	for _, b := range []struct {
		mask input.ButtonMask
		name string
	}{
		{input.MaskLeft, "left"},
		{input.MaskRight, "right"},
		{input.MaskMiddle, "middle"},
		{input.MaskOther, "other"},
	} {
		L.SetField(buttons, b.name, lua.LBool(st.Buttons&b.mask != 0))
	}
	L.Push(lua.LNumber(st.X))
	L.Push(lua.LNumber(st.Y))
	L.Push(buttons)
	return 3
}

// supports(name) -> bool
func (m *module) supports(L *lua.LState) int {
	L.Push(lua.LBool(m.sim.Supports(checkKey(L, 1))))
	return 1
}

// sleep(ms)
func (m *module) sleep(L *lua.LState) int {
	ms := L.CheckInt(1)
	if ms < 0 {
		L.ArgError(1, "duration must be non-negative")
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
	case <-L.Context().Done():
		L.RaiseError("sleep: %v", L.Context().Err())
	}
	return 0
}
