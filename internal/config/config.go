package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// EnvPath names the environment variable that overrides the config path.
const EnvPath = "SOPHYSICS_CONFIG"

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Logging    LoggingConfig    `toml:"logging"`
	Stream     StreamConfig     `toml:"stream"`
	Camera     CameraConfig     `toml:"camera"`
	Trail      TrailConfig      `toml:"trail"`
}

type SimulationConfig struct {
	DT              float64  `toml:"dt"`
	StepsPerFrame   int      `toml:"steps_per_frame"`
	Paused          bool     `toml:"paused"`
	GravityConstant float64  `toml:"gravity_constant"`
	Frames          int      `toml:"frames"`      // frames run per scene by the CLI
	Parallelism     int      `toml:"parallelism"` // scenes simulated at once, 0 = one per CPU
	Scripts         []string `toml:"scripts"`     // Lua force scripts attached to every body
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type StreamConfig struct {
	Enabled      bool          `toml:"enabled"`
	Address      string        `toml:"address"`
	Path         string        `toml:"path"`
	Buffer       int           `toml:"buffer"`
	WriteTimeout time.Duration `toml:"write_timeout"`
	FrameRate    int           `toml:"frame_rate"` // frames per second while streaming
}

type CameraConfig struct {
	Width         int        `toml:"width"`
	Height        int        `toml:"height"`
	UnitsPerPixel float64    `toml:"units_per_pixel"`
	Position      [2]float64 `toml:"position"`
}

type TrailConfig struct {
	MaxPoints int     `toml:"max_points"`
	Thickness float64 `toml:"thickness"`
	Alpha     int     `toml:"alpha"`
	Layer     int     `toml:"layer"`
}

// Load reads the TOML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve picks the config path: the flag value, then $SOPHYSICS_CONFIG.
// An empty result means the defaults are used.
func Resolve(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv(EnvPath)
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			DT:              1.0 / 60.0,
			StepsPerFrame:   1,
			GravityConstant: 1.0,
			Frames:          600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Stream: StreamConfig{
			Address:      "127.0.0.1:8080",
			Path:         "/frames",
			Buffer:       16,
			WriteTimeout: 5 * time.Second,
			FrameRate:    60,
		},
		Camera: CameraConfig{
			Width:         1280,
			Height:        720,
			UnitsPerPixel: 1.0 / 80.0,
		},
		Trail: TrailConfig{
			MaxPoints: 256,
			Thickness: 1,
			Alpha:     128,
		},
	}
}

// Validate returns every invalid value joined.
func (c *Config) Validate() error {
	var errs []error
	bad := func(key string, v any) {
		errs = append(errs, fmt.Errorf("config: invalid %s: %v", key, v))
	}
	if !finite(c.Simulation.DT) || c.Simulation.DT < 0 {
		bad("simulation.dt", c.Simulation.DT)
	}
	if c.Simulation.StepsPerFrame < 0 {
		bad("simulation.steps_per_frame", c.Simulation.StepsPerFrame)
	}
	if !finite(c.Simulation.GravityConstant) {
		bad("simulation.gravity_constant", c.Simulation.GravityConstant)
	}
	if c.Simulation.Frames < 0 {
		bad("simulation.frames", c.Simulation.Frames)
	}
	if c.Simulation.Parallelism < 0 {
		bad("simulation.parallelism", c.Simulation.Parallelism)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		bad("logging.format", c.Logging.Format)
	}
	if c.Stream.Enabled && c.Stream.Address == "" {
		bad("stream.address", `""`)
	}
	if c.Stream.FrameRate < 0 {
		bad("stream.frame_rate", c.Stream.FrameRate)
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		bad("camera size", fmt.Sprintf("%dx%d", c.Camera.Width, c.Camera.Height))
	}
	if !finite(c.Camera.UnitsPerPixel) || c.Camera.UnitsPerPixel <= 0 {
		bad("camera.units_per_pixel", c.Camera.UnitsPerPixel)
	}
	if !finite(c.Camera.Position[0]) || !finite(c.Camera.Position[1]) {
		bad("camera.position", c.Camera.Position)
	}
	if c.Trail.MaxPoints < 2 {
		bad("trail.max_points", c.Trail.MaxPoints)
	}
	if c.Trail.Alpha < 0 || c.Trail.Alpha > 255 {
		bad("trail.alpha", c.Trail.Alpha)
	}
	return errors.Join(errs...)
}

func finite(f float64) bool { return f == f && f-f == 0 }
