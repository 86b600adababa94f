// Package scripting runs user supplied Lua force fields.
package scripting

import (
	"errors"
	"fmt"
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

// ExertFunc is the global the script must define.
const ExertFunc = "exert"

var (
	ErrNoExertFunc = errors.New("scripting: script does not define exert(body)")
	ErrBadResult   = errors.New("scripting: exert must return two finite numbers")
)

// LuaForce is a force source driven by a Lua chunk. The chunk defines
//
//	function exert(body) return fx, fy end
//
// where body has the fields name, mass, x, y, vx, vy and t, the simulated
// time in seconds. Each component owns its own VM; a VM is only touched from
// the simulation goroutine.
type LuaForce struct {
	sim.Base
	source string
	name   string

	vm      *lua.LState
	fn      lua.LValue
	physics *physics.PhysicsManager
}

func NewLuaForce(name, source string) *LuaForce {
	return &LuaForce{name: name, source: source}
}

// LoadLuaForce reads the chunk from path.
func LoadLuaForce(path string) (*LuaForce, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script %s: %w", path, err)
	}
	return NewLuaForce(path, string(data)), nil
}

func (f *LuaForce) Name() string { return f.name }

func (f *LuaForce) Source() string { return f.source }

func (f *LuaForce) Setup() error {
	f.vm = lua.NewState(lua.Options{SkipOpenLibs: true})
	// only the pure libraries; scripts get no io or os access
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
	} {
		if err := f.vm.CallByParam(lua.P{Fn: f.vm.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("lua force %s: open %s: %w", f.name, lib.name, err)
		}
	}

	if err := f.vm.DoString(f.source); err != nil {
		return fmt.Errorf("lua force %s: %w", f.name, err)
	}
	fn := f.vm.GetGlobal(ExertFunc)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("lua force %s: %w", f.name, ErrNoExertFunc)
	}
	f.fn = fn
	if env := f.Environment(); env != nil {
		f.physics, _ = sim.TryGet[*physics.PhysicsManager](env)
	}
	return nil
}

func (f *LuaForce) Teardown() {
	if f.vm != nil {
		f.vm.Close()
	}
	f.vm = nil
	f.fn = nil
	f.physics = nil
}

func (f *LuaForce) ExertForce(rb *physics.RigidBody) error {
	body := f.vm.NewTable()
	pos, vel := rb.Position(), rb.Velocity()
	body.RawSetString("mass", lua.LNumber(rb.Mass()))
	body.RawSetString("x", lua.LNumber(pos.X))
	body.RawSetString("y", lua.LNumber(pos.Y))
	body.RawSetString("vx", lua.LNumber(vel.X))
	body.RawSetString("vy", lua.LNumber(vel.Y))
	var elapsed float64
	if f.physics != nil {
		elapsed = f.physics.Elapsed()
	}
	body.RawSetString("t", lua.LNumber(elapsed))
	if o := f.Object(); o != nil {
		body.RawSetString("name", lua.LString(o.Name()))
	}

	if err := f.vm.CallByParam(lua.P{Fn: f.fn, NRet: 2, Protect: true}, body); err != nil {
		return fmt.Errorf("lua force %s: %w", f.name, err)
	}
	fx, fy := f.vm.Get(-2), f.vm.Get(-1)
	f.vm.Pop(2)

	nx, okx := fx.(lua.LNumber)
	ny, oky := fy.(lua.LNumber)
	force := geom.V(float64(nx), float64(ny))
	if !okx || !oky || !force.IsFinite() {
		return fmt.Errorf("lua force %s: %w: got %s, %s", f.name, ErrBadResult, fx.Type(), fy.Type())
	}
	rb.ApplyForce(force)
	return nil
}
