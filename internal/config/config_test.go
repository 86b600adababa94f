package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sophysics.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[simulation]
dt = 0.01
steps_per_frame = 4
frames = 120

[logging]
level = "debug"
format = "json"

[stream]
enabled = true
address = ":9000"
write_timeout = "250ms"

[camera]
units_per_pixel = 0.05
position = [10.0, -5.0]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.01, cfg.Simulation.DT)
	assert.Equal(t, 4, cfg.Simulation.StepsPerFrame)
	assert.Equal(t, 120, cfg.Simulation.Frames)
	assert.Equal(t, 1.0, cfg.Simulation.GravityConstant, "unset keys keep their default")
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Stream.Enabled)
	assert.Equal(t, ":9000", cfg.Stream.Address)
	assert.Equal(t, "/frames", cfg.Stream.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Stream.WriteTimeout)
	assert.Equal(t, [2]float64{10, -5}, cfg.Camera.Position)
	assert.Equal(t, 1280, cfg.Camera.Width)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "[simulation\ndt = 1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidateJoinsFailures(t *testing.T) {
	cfg := Default()
	cfg.Simulation.DT = -1
	cfg.Logging.Format = "xml"
	cfg.Camera.UnitsPerPixel = 0
	cfg.Trail.Alpha = 300

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"simulation.dt", "logging.format", "camera.units_per_pixel", "trail.alpha"} {
		assert.Contains(t, err.Error(), key)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 4)
}

func TestResolve(t *testing.T) {
	t.Setenv(EnvPath, "/etc/sophysics.toml")
	assert.Equal(t, "local.toml", Resolve("local.toml"))
	assert.Equal(t, "/etc/sophysics.toml", Resolve(""))

	t.Setenv(EnvPath, "")
	cfg, err := LoadOrDefault(Resolve(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "sophysics.toml"))
	require.NoError(t, err)
	want := Default()
	want.Simulation.Scripts = []string{}
	assert.Equal(t, want, cfg)
}
