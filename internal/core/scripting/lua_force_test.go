package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/sim"
)

func newWorld(t *testing.T) *sim.Environment {
	t.Helper()
	env := sim.NewEnvironment()
	require.NoError(t, env.Attach(physics.NewPhysicsManager(physics.WithStep(0.5))))
	require.NoError(t, env.Setup())
	t.Cleanup(func() { _ = env.Destroy() })
	return env
}

func spawn(t *testing.T, env *sim.Environment, force *LuaForce) (*physics.RigidBody, error) {
	t.Helper()
	rb, err := physics.NewRigidBody(physics.Circle(1, 1))
	require.NoError(t, err)
	_, err = env.NewObject("satellite", sim.NewTransform(geom.Vec2{}, 0), rb, force)
	return rb, err
}

func TestLuaForceAppliesReturnedForce(t *testing.T) {
	env := newWorld(t)
	rb, err := spawn(t, env, NewLuaForce("drift", `
		function exert(body)
			assert(body.name == "satellite")
			return body.mass * 2, -body.t
		end
	`))
	require.NoError(t, err)

	require.NoError(t, env.Advance())
	assert.InDelta(t, 1.0, rb.Velocity().X, 1e-12)
	assert.InDelta(t, 0.0, rb.Velocity().Y, 1e-12)

	require.NoError(t, env.Advance())
	assert.InDelta(t, 2.0, rb.Velocity().X, 1e-12)
	assert.InDelta(t, -0.25, rb.Velocity().Y, 1e-12)
}

func TestLuaForceSetupErrors(t *testing.T) {
	env := newWorld(t)

	_, err := spawn(t, env, NewLuaForce("empty", `x = 1`))
	require.ErrorIs(t, err, ErrNoExertFunc)

	_, err = spawn(t, env, NewLuaForce("broken", `function exert(`))
	require.Error(t, err)

	_, err = spawn(t, env, NewLuaForce("sandbox", `os.exit(1)`))
	require.Error(t, err, "os is not opened")
}

func TestLuaForceStepErrors(t *testing.T) {
	cases := map[string]string{
		"runtime": `function exert(body) error("boom") end`,
		"nil":     `function exert(body) end`,
		"string":  `function exert(body) return "a", 1 end`,
		"nan":     `function exert(body) return 0/0, 0 end`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			env := newWorld(t)
			_, err := spawn(t, env, NewLuaForce(name, src))
			require.NoError(t, err)
			require.Error(t, env.Advance())
		})
	}

	env := newWorld(t)
	_, err := spawn(t, env, NewLuaForce("nil", `function exert(body) end`))
	require.NoError(t, err)
	require.ErrorIs(t, env.Advance(), ErrBadResult)
}

func TestLoadLuaForce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wind.lua")
	require.NoError(t, os.WriteFile(path, []byte(`function exert(b) return 1, 0 end`), 0o644))

	f, err := LoadLuaForce(path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Name())

	_, err = LoadLuaForce(filepath.Join(t.TempDir(), "missing.lua"))
	require.Error(t, err)
}
