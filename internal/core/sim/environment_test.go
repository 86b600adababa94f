package sim

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/sophysics/internal/core/events/bus"
)

func TestEnvironmentSetupOrder(t *testing.T) {
	var calls []string
	env := NewEnvironment()
	require.NoError(t, env.Attach(newSpy("env", &calls)))
	o, err := NewSimObject("obj", newSpy("obj", &calls))
	require.NoError(t, err)
	require.NoError(t, env.AddObject(o))
	assert.Empty(t, calls)

	require.NoError(t, env.Setup())
	assert.Equal(t, []string{"env.setup", "obj.setup"}, calls)
}

func TestEnvironmentRequiresSetup(t *testing.T) {
	env := NewEnvironment()
	require.ErrorIs(t, env.Advance(), ErrNotSetUp)
	require.ErrorIs(t, env.Update(), ErrNotSetUp)
	require.ErrorIs(t, env.Render(), ErrNotSetUp)
}

func TestAddObjectErrors(t *testing.T) {
	env := liveEnv(t)
	require.ErrorIs(t, env.AddObject(nil), ErrNilObject)

	o, err := env.NewObject("a")
	require.NoError(t, err)
	require.ErrorIs(t, env.AddObject(o), ErrObjectAttached)

	other := liveEnv(t)
	require.ErrorIs(t, other.AddObject(o), ErrObjectAttached)
	require.ErrorIs(t, other.DestroyAfterStep(o), ErrNotInEnvironment)

	require.NoError(t, o.Destroy())
	require.ErrorIs(t, other.AddObject(o), ErrObjectDestroyed)
}

func TestAdvanceAndRenderCounts(t *testing.T) {
	env := liveEnv(t)
	var advances, renders, updates int
	var steps []uint64
	_, err := bus.Listen(env.Events(), func(e AdvanceEvent) error {
		advances++
		steps = append(steps, e.Step)
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Listen(env.Events(), func(UpdateEvent) error { updates++; return nil })
	require.NoError(t, err)
	_, err = bus.Listen(env.Events(), func(RenderEvent) error { renders++; return nil })
	require.NoError(t, err)

	for range 3 {
		require.NoError(t, env.Advance())
	}
	require.NoError(t, env.Render())

	assert.Equal(t, 3, advances)
	assert.Equal(t, 1, renders)
	assert.Zero(t, updates)
	assert.Equal(t, []uint64{0, 1, 2}, steps)
	assert.EqualValues(t, 3, env.Steps())
}

func TestDeferredDestructionRunsOnce(t *testing.T) {
	for _, times := range []int{0, 1, 5} {
		env := liveEnv(t)
		p := newSpy("p", nil)
		o, err := env.NewObject("obj", p)
		require.NoError(t, err)

		aliveDuringStep := false
		sub, err := bus.Listen(env.Events(), func(AdvanceEvent) error {
			for range times {
				require.NoError(t, o.DestroyAfterStep())
			}
			aliveDuringStep = !o.IsDestroyed() && !p.IsDestroyed()
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, env.Advance())
		require.NoError(t, sub.Cancel())
		assert.True(t, aliveDuringStep)

		if times == 0 {
			assert.False(t, o.IsDestroyed())
			assert.Equal(t, 1, env.ObjectCount())
			continue
		}
		assert.True(t, o.IsDestroyed())
		assert.Equal(t, 1, p.teardowns, "scheduled %d times", times)
		assert.Zero(t, env.ObjectCount())
		assert.False(t, env.IsScheduledForDestruction(o))

		require.NoError(t, env.Advance())
		assert.Equal(t, 1, p.teardowns)
	}
}

func TestDestroyScheduledDuringTeardown(t *testing.T) {
	env := liveEnv(t)
	second, err := env.NewObject("second")
	require.NoError(t, err)

	first, err := env.NewObject("first")
	require.NoError(t, err)
	first.Transform().OnDestroy(func() {
		_ = second.DestroyAfterStep()
	})

	require.NoError(t, first.DestroyAfterStep())
	assert.True(t, env.IsScheduledForDestruction(first))
	require.NoError(t, env.Advance())

	assert.True(t, first.IsDestroyed())
	assert.True(t, second.IsDestroyed())
	assert.Zero(t, env.ObjectCount())
}

func TestEnvironmentDestroy(t *testing.T) {
	var calls []string
	env := NewEnvironment()
	require.NoError(t, env.Attach(newSpy("e1", &calls)))
	require.NoError(t, env.Attach(newSpy("e2", &calls)))
	o, err := env.NewObject("obj", newSpy("o", &calls), &ticker{})
	require.NoError(t, err)
	require.NoError(t, env.Setup())
	calls = nil

	require.NoError(t, env.Destroy())
	assert.Equal(t, []string{"o.teardown", "e2.teardown", "e1.teardown"}, calls)
	assert.True(t, o.IsDestroyed())
	assert.Zero(t, env.Events().Len())
	assert.Zero(t, env.Len())
	assert.True(t, env.IsDestroyed())

	require.NoError(t, env.Destroy())
	require.ErrorIs(t, env.Advance(), ErrEnvironmentDestroyed)
	require.ErrorIs(t, env.Setup(), ErrEnvironmentDestroyed)
	require.ErrorIs(t, env.Attach(newSpy("late", nil)), ErrEnvironmentDestroyed)
}

func TestObjectLookupAndQuery(t *testing.T) {
	env := liveEnv(t)
	a, err := env.NewObject("a", &ticker{})
	require.NoError(t, err)
	b, err := env.NewObject("b", newSpy("p", nil))
	require.NoError(t, err)

	got, ok := env.Object(a.ID())
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = env.Object(uuid.New())
	assert.False(t, ok)

	assert.Equal(t, []*SimObject{a}, env.Query(TagOf[Updatable]()))
	assert.Equal(t, []*SimObject{b}, env.Query(TagOf[*spy]()))
	assert.Len(t, env.Query(TagOf[*Transform]()), 2)
	assert.Empty(t, env.Query(TagOf[*spy](), TagOf[Updatable]()))

	var added, removed int
	_, err = bus.Listen(env.Events(), func(ObjectAddedEvent) error { added++; return nil })
	require.NoError(t, err)
	_, err = bus.Listen(env.Events(), func(ObjectDestroyedEvent) error { removed++; return nil })
	require.NoError(t, err)

	c, err := env.NewObject("c")
	require.NoError(t, err)
	require.NoError(t, c.Destroy())
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []*SimObject{a, b}, env.Objects())
}
