package scene

import (
	"errors"
	"fmt"

	"github.com/zeusync/sophysics/internal/core/behaviors"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/core/physics"
	"github.com/zeusync/sophysics/internal/core/render"
	"github.com/zeusync/sophysics/internal/core/sim"
)

var (
	ErrNoPhysics  = errors.New("scene: environment has no physics manager")
	ErrNoSnapshot = errors.New("scene: nothing loaded yet")
)

// SceneLoadedEvent is raised after a scene replaced the loaded bodies.
type SceneLoadedEvent struct {
	Scene   *Scene
	Objects []*sim.SimObject
}

// Loader is the environment component that turns scenes into objects. A load
// is all-or-nothing: an invalid scene leaves the environment untouched.
type Loader struct {
	sim.Base
	style    Style
	g        float64
	snapshot *Scene
	log      log.Log
}

type LoaderOption func(*Loader)

func WithStyle(s Style) LoaderOption {
	return func(l *Loader) { l.style = s }
}

// WithGravitationalConstant sets G for the attraction manager the loader
// creates when the environment has none.
func WithGravitationalConstant(g float64) LoaderOption {
	return func(l *Loader) { l.g = g }
}

func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		style: DefaultStyle(),
		g:     behaviors.DefaultGravitationalConstant,
		log:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Setup() error {
	if env := l.Environment(); env != nil {
		l.log = env.Logger().With(log.String("component", "scene"))
	}
	return nil
}

func (l *Loader) Teardown() { l.snapshot = nil }

// Snapshot returns a copy of the last loaded scene, or nil.
func (l *Loader) Snapshot() *Scene {
	if l.snapshot == nil {
		return nil
	}
	return l.snapshot.Clone()
}

// Load validates s, then replaces the bodies of any previous load with the
// bodies of s and applies its time and camera settings. The origin is set
// only when exactly one body carries the origin id.
//
// The previous bodies are destroyed only once every new body is set up, so a
// failed load leaves the environment as it was. Once the new bodies are in,
// the load completes: listener errors raised while applying settings are
// logged, and an error from a SceneLoadedEvent listener is returned after the
// scene is in place.
func (l *Loader) Load(s *Scene) error {
	env := l.Environment()
	if env == nil || !l.IsSetUp() {
		return sim.ErrNotLive
	}
	if err := s.Validate(); err != nil {
		l.log.Warn("scene rejected", log.Error(err))
		return fmt.Errorf("load scene: %w", err)
	}
	if !sim.Has[*physics.PhysicsManager](env) {
		return ErrNoPhysics
	}

	built := make([]*sim.SimObject, 0, len(s.Bodies))
	rollback := func() {
		for _, o := range built {
			_ = o.Destroy()
		}
	}
	for _, b := range s.Bodies {
		o, err := NewCelestialBody(b, l.style)
		if err != nil {
			rollback()
			return fmt.Errorf("load scene: %w", err)
		}
		built = append(built, o)
	}
	if err := l.prepare(env, s); err != nil {
		rollback()
		return fmt.Errorf("load scene: %w", err)
	}

	previous := l.loaded(env)
	for i, o := range built {
		err := env.AddObject(o)
		var serr *sim.SetupError
		if errors.As(err, &serr) {
			rollback()
			return fmt.Errorf("load scene: body %q: %w", s.Bodies[i].ID, err)
		}
		if err != nil {
			l.log.Warn("object added listener failed", log.String("body", s.Bodies[i].ID), log.Error(err))
		}
	}
	l.destroy(previous)
	l.applySettings(env, s)

	var origin *physics.RigidBody
	if i, ok := s.OriginBody(); ok {
		origin, _ = sim.TryGet[*physics.RigidBody](built[i])
	} else if s.OriginID != nil {
		l.log.Warn("scene origin ignored", log.String("origin_id", *s.OriginID))
	}
	if frames, ok := sim.TryGet[*behaviors.ReferenceFrameManager](env); ok {
		if err := frames.SetOrigin(origin); err != nil {
			l.log.Warn("origin changed listener failed", log.Error(err))
		}
	}

	l.snapshot = s.Clone()
	l.log.Info("scene loaded", log.Int("bodies", len(built)))
	return sim.Raise(l, SceneLoadedEvent{Scene: l.Snapshot(), Objects: built})
}

// Revert reloads the scene of the last successful load.
func (l *Loader) Revert() error {
	if l.snapshot == nil {
		return ErrNoSnapshot
	}
	return l.Load(l.snapshot.Clone())
}

// prepare attaches the environment components a scene needs. It runs before
// anything is replaced.
func (l *Loader) prepare(env *sim.Environment, s *Scene) error {
	if !sim.Has[*behaviors.AttractionManager](env) {
		if err := env.Attach(behaviors.NewAttractionManager(l.g)); err != nil {
			return err
		}
	}
	if s.TimeSettings != nil && !sim.Has[*sim.TimeSettings](env) {
		if err := env.Attach(sim.DefaultTimeSettings()); err != nil {
			return err
		}
	}
	return nil
}

// loaded returns every object built from a scene body.
func (l *Loader) loaded(env *sim.Environment) []*sim.SimObject {
	var out []*sim.SimObject
	for _, o := range env.Objects() {
		if sim.Has[*Descriptor](o) {
			out = append(out, o)
		}
	}
	return out
}

func (l *Loader) destroy(objects []*sim.SimObject) {
	for _, o := range objects {
		if err := o.Destroy(); err != nil {
			l.log.Warn("destroy scene body", log.String("name", o.Name()), log.Error(err))
		}
	}
}

// applySettings copies validated settings over; only listener errors remain
// possible and those are logged.
func (l *Loader) applySettings(env *sim.Environment, s *Scene) {
	if ts := s.TimeSettings; ts != nil {
		if settings, ok := sim.TryGet[*sim.TimeSettings](env); ok {
			if ts.DT != nil {
				settings.DT = *ts.DT
			}
			if ts.StepsPerFrame != nil {
				settings.StepsPerFrame = *ts.StepsPerFrame
			}
			if ts.Paused != nil {
				if err := settings.SetPaused(*ts.Paused); err != nil {
					l.log.Warn("pause listener failed", log.Error(err))
				}
			}
		}
	}
	if cs := s.CameraSettings; cs != nil {
		cam, ok := sim.TryGet[*render.Camera](env)
		if !ok {
			l.log.Debug("camera settings ignored, no camera")
			return
		}
		if cs.UnitsPerPixel != nil {
			if err := cam.SetUnitsPerPixel(*cs.UnitsPerPixel); err != nil {
				l.log.Warn("camera settings", log.Error(err))
			}
		}
		if cs.Position != nil {
			cam.Position = cs.Position.Vec()
		}
	}
}

// Save snapshots env into a scene. Body ids are preserved; the origin id is
// recorded when the origin is a scene body.
func Save(env *sim.Environment) *Scene {
	s := &Scene{Bodies: []Body{}}
	if ts, ok := sim.TryGet[*sim.TimeSettings](env); ok {
		s.TimeSettings = &TimeSettings{
			DT:            ptr(ts.DT),
			StepsPerFrame: ptr(ts.StepsPerFrame),
			Paused:        ptr(ts.Paused()),
		}
	}
	if cam, ok := sim.TryGet[*render.Camera](env); ok {
		s.CameraSettings = &CameraSettings{
			UnitsPerPixel: ptr(cam.UnitsPerPixel()),
			Position:      ptr(PointOf(cam.Position)),
		}
	}

	var origin *physics.RigidBody
	if frames, ok := sim.TryGet[*behaviors.ReferenceFrameManager](env); ok {
		origin = frames.Origin()
	}
	for _, o := range env.Objects() {
		b, ok := bodyOf(o)
		if !ok {
			continue
		}
		s.Bodies = append(s.Bodies, b)
		if origin != nil && origin.Object() == o {
			s.OriginID = ptr(b.ID)
		}
	}
	return s
}
