// Package runner builds simulation environments from scenes and drives them.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zeusync/sophysics/internal/config"
	"github.com/zeusync/sophysics/internal/core/behaviors"
	"github.com/zeusync/sophysics/internal/core/events/bus"
	"github.com/zeusync/sophysics/internal/core/geom"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/render"
	"github.com/zeusync/sophysics/internal/core/scripting"
	"github.com/zeusync/sophysics/internal/core/sim"
	"github.com/zeusync/sophysics/internal/scene"
	"github.com/zeusync/sophysics/pkg/concurrent"
)

var ErrInvalidFrameRate = errors.New("runner: frame rate must be positive")

// Job names a scene to simulate.
type Job struct {
	Name  string
	Scene *scene.Scene
}

// JobFromFile loads the scene at path into a job named after the path.
func JobFromFile(path string) (Job, error) {
	s, err := scene.LoadFile(path)
	if err != nil {
		return Job{}, err
	}
	return Job{Name: path, Scene: s}, nil
}

// Summary reports the state of one simulation after a run.
type Summary struct {
	Name    string
	Frames  int
	Steps   uint64
	Objects int
	Digest  uint64
	Elapsed time.Duration
}

type script struct {
	name   string
	source string
}

type Runner struct {
	cfg     *config.Config
	log     log.Log
	scripts []script
}

// New reads the configured Lua scripts up front so a missing file fails
// before any environment is built.
func New(cfg *config.Config, logger log.Log) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, log: logger}
	for _, path := range cfg.Simulation.Scripts {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read script %s: %w", path, err)
		}
		r.scripts = append(r.scripts, script{name: path, source: string(data)})
	}
	return r, nil
}

// Simulation is one live environment built from a scene.
type Simulation struct {
	Name    string
	Env     *sim.Environment
	Loader  *scene.Loader
	Camera  *render.Camera
	updater *sim.Updater
	frames  int
}

// Build sets up a fresh environment and loads s into it. Frames rendered by
// the camera go to sinks.
func (r *Runner) Build(job Job, sinks ...render.FrameSink) (*Simulation, error) {
	cfg := r.cfg
	env := sim.NewEnvironment(sim.WithLogger(r.log.With(log.String("scene", job.Name))))

	ts, err := sim.NewTimeSettings(cfg.Simulation.DT, cfg.Simulation.StepsPerFrame, cfg.Simulation.Paused)
	if err != nil {
		return nil, err
	}
	cam, err := render.NewCamera(cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.UnitsPerPixel)
	if err != nil {
		return nil, err
	}
	cam.Position = geom.V(cfg.Camera.Position[0], cfg.Camera.Position[1])
	for _, sink := range sinks {
		cam.AddSink(sink)
	}
	loader := scene.NewLoader(
		scene.WithStyle(scene.Style{
			TrailMaxPoints: cfg.Trail.MaxPoints,
			TrailThickness: cfg.Trail.Thickness,
			TrailAlpha:     uint8(cfg.Trail.Alpha),
			TrailLayer:     cfg.Trail.Layer,
		}),
		scene.WithGravitationalConstant(cfg.Simulation.GravityConstant),
	)

	for _, c := range []sim.Component{
		ts,
		physics.NewPhysicsManager(physics.WithStep(cfg.Simulation.DT)),
		behaviors.NewAttractionManager(cfg.Simulation.GravityConstant),
		cam,
		loader,
	} {
		if err := env.Attach(c); err != nil {
			return nil, err
		}
	}
	if len(r.scripts) > 0 {
		if _, err := bus.Listen(env.Events(), r.attachScripts); err != nil {
			return nil, err
		}
	}

	if err := env.Setup(); err != nil {
		_ = env.Destroy()
		return nil, fmt.Errorf("scene %s: %w", job.Name, err)
	}
	if err := loader.Load(job.Scene); err != nil {
		_ = env.Destroy()
		return nil, fmt.Errorf("scene %s: %w", job.Name, err)
	}
	return &Simulation{
		Name:    job.Name,
		Env:     env,
		Loader:  loader,
		Camera:  cam,
		updater: sim.NewUpdater(env),
	}, nil
}

func (r *Runner) attachScripts(e scene.SceneLoadedEvent) error {
	var errs error
	for _, o := range e.Objects {
		for _, s := range r.scripts {
			errs = errors.Join(errs, o.Attach(scripting.NewLuaForce(s.name, s.source)))
		}
	}
	return errs
}

// Frame runs one frame.
func (s *Simulation) Frame() error {
	if err := s.updater.Frame(); err != nil {
		return fmt.Errorf("scene %s frame %d: %w", s.Name, s.frames, err)
	}
	s.frames++
	return nil
}

// Run runs n frames, checking ctx between frames.
func (s *Simulation) Run(ctx context.Context, n int) error {
	for range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Frame(); err != nil {
			return err
		}
	}
	return nil
}

// Play runs frames at fps until ctx is done or a frame fails. A cancelled
// context is a normal stop.
func (s *Simulation) Play(ctx context.Context, fps int) error {
	if fps <= 0 {
		return ErrInvalidFrameRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Frame(); err != nil {
				return err
			}
		}
	}
}

func (s *Simulation) Summary() (Summary, error) {
	digest, err := scene.Digest(scene.Save(s.Env))
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Name:    s.Name,
		Frames:  s.frames,
		Steps:   s.Env.Steps(),
		Objects: s.Env.ObjectCount(),
		Digest:  digest,
	}, nil
}

func (s *Simulation) Close() error { return s.Env.Destroy() }

// Run simulates every job for the configured number of frames, several at a
// time, and returns their summaries in job order. Environments share nothing,
// so each one stays on its own goroutine for its whole life.
func (r *Runner) Run(ctx context.Context, jobs ...Job) ([]Summary, error) {
	frames := r.cfg.Simulation.Frames
	return concurrent.Map(ctx, jobs, r.cfg.Simulation.Parallelism, func(ctx context.Context, job Job) (Summary, error) {
		started := time.Now()
		s, err := r.Build(job)
		if err != nil {
			return Summary{}, err
		}
		defer func() {
			if err := s.Close(); err != nil {
				r.log.Warn("destroy environment", log.String("scene", job.Name), log.Error(err))
			}
		}()
		if err := s.Run(ctx, frames); err != nil {
			return Summary{}, err
		}
		sum, err := s.Summary()
		if err != nil {
			return Summary{}, err
		}
		sum.Elapsed = time.Since(started)
		r.log.Info("scene finished",
			log.String("scene", job.Name),
			log.Int("frames", sum.Frames),
			log.Int("objects", sum.Objects),
			log.Uint64("digest", sum.Digest),
			log.Duration("elapsed", sum.Elapsed))
		return sum, nil
	})
}
