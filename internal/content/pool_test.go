package content_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/content"
	"github.com/wanderlens/arsync/internal/registry"
	"github.com/wanderlens/arsync/internal/testutil"
	"github.com/wanderlens/arsync/pkg/core"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]core.MarkerDescriptor{
		{Name: "A", Content: core.ContentRef{ID: "a"}, Title: "Alpha"},
		{Name: "B", Content: core.ContentRef{ID: "b"}, Title: "Beta"},
		{Name: "C", Content: core.ContentRef{ID: "c"}, Title: "Gamma"},
		{Name: "Empty", Title: "No content"},
	})
	require.NoError(t, err)
	return reg
}

func poseAt(x, y, z float32) core.Pose {
	return core.Pose{Position: mgl32.Vec3{x, y, z}, Rotation: mgl32.QuatIdent()}
}

func TestShow_CreatesAndShows(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	inst, evicted, err := pool.Show("A", poseAt(1, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, evicted)
	assert.True(t, inst.Visible)
	assert.Equal(t, "a", inst.Content.ID)
	assert.InDelta(t, 0.1, inst.Pose.Position.Y(), 1e-6)
	assert.Equal(t, []string{"a"}, host.VisibleContent())
	assert.Equal(t, []string{"A"}, pool.Visible())
}

func TestShow_ReusesInstance(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	first, _, err := pool.Show("A", poseAt(0, 0, 0))
	require.NoError(t, err)
	require.NoError(t, pool.Hide("A"))
	second, _, err := pool.Show("A", poseAt(2, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, first.Handle, second.Handle)
	assert.Equal(t, 1, host.Instantiated)
	assert.InDelta(t, 2, host.PoseOf(second.Handle).Position.X(), 1e-6)
}

func TestShow_UnknownAndMissingContent(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	_, _, err := pool.Show("Z", poseAt(0, 0, 0))
	assert.ErrorIs(t, err, core.ErrUnknownMarker)

	_, _, err = pool.Show("Empty", poseAt(0, 0, 0))
	assert.ErrorIs(t, err, core.ErrMissingContent)

	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 0, host.Alive())
}

func TestShow_InstantiateFailure(t *testing.T) {
	host := testutil.NewHost()
	host.FailInstantiate["a"] = true
	pool := content.New(host, newRegistry(t), content.Options{})

	_, _, err := pool.Show("A", poseAt(0, 0, 0))
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.False(t, pool.Has("A"))
}

func TestShow_SingleActiveEvictsBeforeShowing(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{SingleActive: true})

	_, _, err := pool.Show("A", poseAt(0, 0, 0))
	require.NoError(t, err)
	_, evicted, err := pool.Show("B", poseAt(1, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, evicted)
	assert.False(t, pool.Has("A"))
	assert.Equal(t, []string{"B"}, pool.Visible())
	assert.Equal(t, 1, host.Alive())
	host.RequireAtMostOneVisible(t)
}

func TestShow_SingleActiveKeepsHiddenInstances(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{SingleActive: true})

	_, _, err := pool.Show("A", poseAt(0, 0, 0))
	require.NoError(t, err)
	require.NoError(t, pool.Hide("A"))
	_, evicted, err := pool.Show("B", poseAt(0, 0, 0))
	require.NoError(t, err)

	assert.Empty(t, evicted)
	assert.True(t, pool.Has("A"))
}

func TestShow_MultiActive(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	for _, m := range []string{"A", "B", "C"} {
		_, evicted, err := pool.Show(m, poseAt(0, 0, 0))
		require.NoError(t, err)
		assert.Empty(t, evicted)
	}
	assert.Equal(t, []string{"A", "B", "C"}, pool.Visible())
	assert.Equal(t, 3, host.MaxVisible())
}

func TestPlace_Rotation(t *testing.T) {
	tilted := core.Pose{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0}),
	}
	ref := core.ContentRef{ID: "a"}

	preserve := content.New(nil, nil, content.Options{})
	placed := preserve.Place(tilted, ref)
	assert.True(t, placed.Rotation.ApproxEqual(mgl32.QuatIdent()))
	// up axis of a frame rotated 90 degrees about X points along +Z
	assert.InDelta(t, 0.1, placed.Position.Z(), 1e-5)
	assert.InDelta(t, 0, placed.Position.Y(), 1e-5)

	follow := content.New(nil, nil, content.Options{FollowRotation: true, UpOffset: 0.5})
	placed = follow.Place(tilted, ref)
	assert.True(t, placed.Rotation.ApproxEqual(tilted.Rotation))
	assert.InDelta(t, 0.5, placed.Position.Z(), 1e-5)
}

func TestDefaultRotation(t *testing.T) {
	assert.Equal(t, mgl32.QuatIdent(), content.DefaultRotation(core.ContentRef{}))

	q := content.DefaultRotation(core.ContentRef{DefaultRotation: [4]float32{0, 0, 2, 0}})
	assert.True(t, q.ApproxEqual(mgl32.Quat{W: 0, V: mgl32.Vec3{0, 1, 0}}))
}

func TestUpdateAndHide_NoInstance(t *testing.T) {
	pool := content.New(testutil.NewHost(), newRegistry(t), content.Options{})

	assert.ErrorIs(t, pool.Update("A", poseAt(0, 0, 0)), core.ErrNoInstance)
	assert.ErrorIs(t, pool.Hide("A"), core.ErrNoInstance)
}

func TestUpdate_KeepsVisibility(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	inst, _, err := pool.Show("A", poseAt(0, 0, 0))
	require.NoError(t, err)
	require.NoError(t, pool.Hide("A"))
	require.NoError(t, pool.Update("A", poseAt(3, 0, 0)))

	got, ok := pool.Get("A")
	require.True(t, ok)
	assert.False(t, got.Visible)
	assert.InDelta(t, 3, host.PoseOf(inst.Handle).Position.X(), 1e-6)
}

func TestRemove_Idempotent(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	_, _, err := pool.Show("A", poseAt(0, 0, 0))
	require.NoError(t, err)

	existed, err := pool.Remove("A")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = pool.Remove("A")
	require.NoError(t, err)
	assert.False(t, existed)
	assert.Equal(t, 0, host.Alive())
}

func TestReset(t *testing.T) {
	host := testutil.NewHost()
	pool := content.New(host, newRegistry(t), content.Options{})

	for _, m := range []string{"A", "B"} {
		_, _, err := pool.Show(m, poseAt(0, 0, 0))
		require.NoError(t, err)
	}
	require.NoError(t, pool.Hide("B"))

	require.NoError(t, pool.Reset())
	assert.Equal(t, 0, pool.Len())
	assert.Equal(t, 0, host.Alive())
	assert.Empty(t, pool.Visible())
	require.NoError(t, pool.Reset())
}
