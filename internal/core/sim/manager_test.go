package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type layered interface {
	Layer() int
}

type layerManager struct {
	Manager[layered]
}

func newLayerManager() *layerManager {
	m := &layerManager{}
	m.SetOrder(func(a, b layered) bool { return a.Layer() < b.Layer() })
	return m
}

type layerItem struct {
	Base
	layer int
}

func (l *layerItem) Layer() int { return l.layer }

func (l *layerItem) Setup() error {
	_, err := Manage[*layerManager](l)
	return err
}

func (l *layerItem) Teardown() {}

func TestManagerOrdersByLayer(t *testing.T) {
	env := NewEnvironment()
	m := newLayerManager()
	require.NoError(t, env.Attach(m))
	require.NoError(t, env.Setup())
	t.Cleanup(func() { _ = env.Destroy() })

	items := []*layerItem{{layer: 2}, {layer: 1}, {layer: 3}, {layer: 1}}
	for _, it := range items {
		_, err := env.NewObject("item", it)
		require.NoError(t, err)
	}

	assert.Equal(t, []layered{items[1], items[3], items[0], items[2]}, m.Managed())

	require.NoError(t, items[1].Object().Destroy())
	assert.Equal(t, []layered{items[3], items[0], items[2]}, m.Managed())
	assert.False(t, m.IsManaged(items[1]))

	items[2].layer = 0
	m.Reorder()
	assert.Equal(t, []layered{items[2], items[3], items[0]}, m.Managed())
}

func TestManagerTypeCheck(t *testing.T) {
	m := newLayerManager()
	err := m.AttachManageable(newSpy("p", nil))
	var te *ManageableTypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, m.ManagedType(), te.Want)

	it := &layerItem{layer: 1}
	require.NoError(t, m.AttachManageable(it))
	require.ErrorIs(t, m.AttachManageable(it), ErrAlreadyManaged)
	require.NoError(t, m.DetachManageable(it))
	require.ErrorIs(t, m.DetachManageable(it), ErrNotManaged)
	assert.Zero(t, m.ManagedLen())
}

func TestManageWithoutManager(t *testing.T) {
	env := liveEnv(t)
	it := &layerItem{layer: 1}
	_, err := env.NewObject("item", it)

	var nf *ComponentNotFoundError
	require.ErrorAs(t, err, &nf)
	var se *SetupError
	require.ErrorAs(t, err, &se)
	assert.True(t, it.IsDestroyed())

	_, err = Manage[*layerManager](&layerItem{})
	require.ErrorIs(t, err, ErrNotLive)
}

func TestTryManage(t *testing.T) {
	env := liveEnv(t)
	o, err := env.NewObject("o")
	require.NoError(t, err)

	it := &layerItem{layer: 1}
	_, ok, err := TryManage[*layerManager](o.Transform())
	require.NoError(t, err)
	assert.False(t, ok)

	m := newLayerManager()
	require.NoError(t, env.Attach(m))
	require.NoError(t, o.Attach(it))
	got, ok, err := TryManage[*layerManager](o.Transform())
	require.Error(t, err, "transform is not layered")
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 1, m.ManagedLen())
}
