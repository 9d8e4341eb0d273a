package app

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/gekko3d/airspace/viewrt/rt/gpu"
	"github.com/gekko3d/airspace/viewrt/rt/input"
)

const (
	testW = 1280
	testH = 720
)

var testBoundary = core.Boundary{Min: mgl32.Vec3{-500, 0, -500}, Max: mgl32.Vec3{500, 300, 500}}

type recorder struct {
	selected []string
	placed   []mgl32.Vec3
}

func (r *recorder) listener() ListenerFuncs {
	return ListenerFuncs{
		OnEntitySelected: func(id string) { r.selected = append(r.selected, id) },
		OnPositionChosen: func(p mgl32.Vec3) { r.placed = append(r.placed, p) },
	}
}

func newTestEngine(t *testing.T) (*Engine, *gpu.HeadlessBackend, *recorder) {
	t.Helper()
	backend := gpu.NewHeadlessBackend(testW, testH)
	rec := &recorder{}
	opts := OptionsFromConfig(airspace.DefaultConfig())
	opts.Listener = rec.listener()
	e := NewEngine(opts, backend, airspace.NewNopLogger())
	require.NoError(t, e.Mount(testBoundary, testW, testH))
	return e, backend, rec
}

func sampleSnapshot() core.Snapshot {
	return core.Snapshot{
		{ID: "r1", Category: core.CategoryRadar, Position: mgl32.Vec3{0, 0, 0}, DetectionRange: 300},
		{ID: "u1", Category: core.CategoryUAV, Position: mgl32.Vec3{200, 120, -150}},
		{ID: "c1", Category: core.CategoryOpticalCamera, Position: mgl32.Vec3{-250, 0, 250}},
	}
}

func ndcClick(x, y float32) input.Click {
	view := input.Viewport{Width: testW, Height: testH}
	return input.Click{
		X:    (x + 1) / 2 * testW,
		Y:    (1 - y) / 2 * testH,
		View: view,
	}
}

func TestEngineMountBuildsStaticScene(t *testing.T) {
	e, backend, _ := newTestEngine(t)

	require.Len(t, e.Scene().Objects, 2)
	ground := e.Scene().Objects[0]
	assert.Equal(t, core.KindGround, ground.Kind)
	assert.False(t, ground.Pickable)

	grid := e.Scene().Objects[1]
	assert.Equal(t, core.KindGrid, grid.Kind)
	assert.False(t, grid.Pickable)
	assert.InDelta(t, 0.1, grid.Transform.Position.Y(), 1e-6)
	gb := grid.WorldAABB()
	assert.InDelta(t, 1000, gb[1].X()-gb[0].X(), 1)

	aabb := ground.WorldAABB()
	assert.InDelta(t, -500, aabb[0].X(), 1e-3)
	assert.InDelta(t, 500, aabb[1].Z(), 1e-3)
	assert.InDelta(t, 0, aabb[1].Y(), 1e-3)

	_, ok := e.Scene().Ambient()
	assert.True(t, ok)
	sun, ok := e.Scene().Sun()
	require.True(t, ok)
	assert.Equal(t, float32(0.8), sun.Intensity)
	assert.Equal(t, core.RGB(0x87CEEB), e.Scene().Background)

	assert.Equal(t, testW, backend.Width)
	assert.Len(t, backend.Geometries, 2)
}

func TestEngineMountErrors(t *testing.T) {
	e, _, _ := newTestEngine(t)
	assert.ErrorIs(t, e.Mount(testBoundary, testW, testH), ErrAlreadyMounted)

	other := NewEngine(OptionsFromConfig(airspace.DefaultConfig()), gpu.NewHeadlessBackend(1, 1), nil)
	bad := core.Boundary{Min: mgl32.Vec3{10, 0, 0}, Max: mgl32.Vec3{0, 0, 10}}
	assert.ErrorIs(t, other.Mount(bad, 100, 100), core.ErrInvalidBoundary)
	assert.False(t, other.Mounted())
}

func TestEngineMountFailureLeavesNothing(t *testing.T) {
	backend := gpu.NewHeadlessBackend(testW, testH)
	backend.FailCreateGeometry = func(*core.MeshData) error { return errors.New("no memory") }
	e := NewEngine(OptionsFromConfig(airspace.DefaultConfig()), backend, nil)

	require.Error(t, e.Mount(testBoundary, testW, testH))
	assert.False(t, e.Mounted())
	assert.Nil(t, e.Scene())
	assert.Empty(t, backend.Geometries)
	assert.Empty(t, backend.Materials)
	assert.ErrorIs(t, e.Tick(0.016), ErrNotMounted)

	backend.FailCreateGeometry = nil
	require.NoError(t, e.Mount(testBoundary, testW, testH))
	assert.True(t, e.Mounted())
}

func TestEngineGridFailureReleasesGround(t *testing.T) {
	backend := gpu.NewHeadlessBackend(testW, testH)
	backend.FailCreateGeometry = func(m *core.MeshData) error {
		// the ground is a single quad; anything larger is the grid
		if len(m.Vertices) > 4 {
			return errors.New("no memory")
		}
		return nil
	}
	e := NewEngine(OptionsFromConfig(airspace.DefaultConfig()), backend, nil)

	require.ErrorContains(t, e.Mount(testBoundary, testW, testH), "grid")
	assert.False(t, e.Mounted())
	assert.Empty(t, backend.Geometries)
	assert.Empty(t, backend.Materials)
	assert.Zero(t, e.Stats().Resources.LiveGeometries())
}

func TestEngineReconcileTracksEverySnapshotEntity(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())

	if diff := cmp.Diff([]string{"c1", "r1", "u1"}, e.Registry().IDs()); diff != "" {
		t.Errorf("tracked ids mismatch (-want +got):\n%s", diff)
	}
	st := e.Stats()
	assert.Equal(t, 3, st.Entities)
	assert.Equal(t, 1, st.Overlays)
	// ground + grid + three entities + one range ring
	assert.Equal(t, 6, st.Objects)
	assert.Equal(t, 6, st.Resources.LiveGeometries())
	assert.Equal(t, 6, st.Resources.LiveMaterials())
	assert.Len(t, backend.Geometries, 6)

	for _, id := range e.Registry().IDs() {
		obj, ok := e.Registry().Lookup(id)
		require.True(t, ok)
		assert.True(t, e.Scene().Contains(obj), id)
		assert.Equal(t, id, obj.Tag)
	}

	ring, ok := e.Registry().Overlay("r1")
	require.True(t, ok)
	assert.True(t, ring.Transparent)
	assert.False(t, ring.Pickable)
	assert.Equal(t, float32(1), ring.Transform.Position.Y())
	assert.InDelta(t, 300, ring.WorldAABB()[1].X(), 1e-2)
}

func TestEngineReconcileIsIdempotent(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	snap := sampleSnapshot()

	e.SetSnapshot(snap)
	first := e.Stats()
	e.SetSnapshot(snap)
	e.SetSnapshot(snap)
	again := e.Stats()

	assert.Equal(t, first.Objects, again.Objects)
	assert.Equal(t, first.Resources.LiveGeometries(), again.Resources.LiveGeometries())
	assert.Equal(t, first.Resources.LiveMaterials(), again.Resources.LiveMaterials())
	assert.Equal(t, again.Resources.GeometriesCreated-again.Resources.GeometriesDisposed, len(backend.Geometries))

	e.SetSnapshot(nil)
	assert.Equal(t, 0, e.Stats().Entities)
	assert.Len(t, e.Scene().Objects, 2)
	assert.Len(t, backend.Geometries, 2)
	assert.Len(t, backend.Materials, 2)
}

func TestEngineSkipsInvalidAndDuplicateEntities(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetSnapshot(core.Snapshot{
		{ID: "a", Category: core.CategoryUAV, Position: mgl32.Vec3{1, 2, 3}},
		{ID: "", Category: core.CategoryUAV},
		{ID: "lost", Category: core.CategoryRadar, Position: core.MissingPosition(), DetectionRange: 100},
		{ID: "a", Category: core.CategoryRadar, Position: mgl32.Vec3{9, 9, 9}},
		{ID: "b", Category: core.CategoryGPSJammer, Position: mgl32.Vec3{0, 0, 50}},
	})

	assert.Equal(t, []string{"a", "b"}, e.Registry().IDs())
	a, _ := e.Registry().Lookup("a")
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, a.Transform.Position)
	assert.Equal(t, 0, e.Stats().Overlays)
}

func TestEngineEntityFailureDisposesPartialResources(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	calls := 0
	backend.FailCreateGeometry = func(*core.MeshData) error {
		calls++
		if calls == 2 {
			return errors.New("buffer allocation failed")
		}
		return nil
	}
	// r1 mesh succeeds, its ring fails; u1 and c1 follow normally.
	e.SetSnapshot(sampleSnapshot())

	assert.Equal(t, []string{"c1", "u1"}, e.Registry().IDs())
	st := e.Stats()
	// ground and grid stay, plus the two entities that built
	assert.Equal(t, 4, st.Resources.LiveGeometries())
	assert.Equal(t, 4, st.Resources.LiveMaterials())
	assert.Len(t, backend.Geometries, 4)
	assert.Len(t, backend.Materials, 4)
}

func TestEngineSelectionHighlight(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())
	e.SetSelection("u1")

	intensity := func(id string) float32 {
		obj, ok := e.Registry().Lookup(id)
		require.True(t, ok)
		return backend.Materials[gpu.MaterialID(obj.MaterialID)].EmissiveIntensity
	}
	assert.Equal(t, float32(0.5), intensity("u1"))
	assert.Equal(t, float32(0.2), intensity("r1"))

	e.SetSelection("")
	assert.Equal(t, float32(0.3), intensity("u1"))
}

func TestEngineClickSelectsEntity(t *testing.T) {
	e, _, rec := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())

	e.Handle(ndcClick(0, 0))
	e.Handle(ndcClick(0.9, 0.9))

	assert.Equal(t, []string{"r1", ""}, rec.selected)
	assert.Empty(t, rec.placed)
	// the engine reports selection but does not apply it itself
	assert.Equal(t, "", e.Selection())
}

func TestEngineEmptyClickClearsPriorSelection(t *testing.T) {
	e, _, rec := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())
	e.SetSelection("r1")

	e.Handle(ndcClick(0.9, 0.9))
	assert.Equal(t, []string{""}, rec.selected)
	// still highlighted until the application feeds the change back
	assert.Equal(t, "r1", e.Selection())
}

func TestEngineSetStateRebuildsOnce(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.SetState(sampleSnapshot(), "r1")
	before := e.Profiler().Counts["rebuilds"]
	created := e.Stats().Resources.GeometriesCreated

	e.SetState(sampleSnapshot()[1:], "")
	assert.Equal(t, before+1, e.Profiler().Counts["rebuilds"])
	assert.Equal(t, created+2, e.Stats().Resources.GeometriesCreated)
	assert.Equal(t, "", e.Selection())
	assert.Equal(t, []string{"c1", "u1"}, e.Registry().IDs())
}

func TestEngineDeploymentClick(t *testing.T) {
	e, _, rec := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())
	e.SetDeploymentMode(core.DeploymentMode{Enabled: true, DeviceCategory: core.CategoryRadar})

	e.Handle(ndcClick(0, 0))
	require.Len(t, rec.placed, 1)
	assert.Empty(t, rec.selected)
	assert.InDelta(t, 10, rec.placed[0].Y(), 1e-4)
	assert.InDelta(t, 0, rec.placed[0].X(), 1e-2)
	assert.InDelta(t, 0, rec.placed[0].Z(), 1e-2)

	pos, ok := e.PendingPosition()
	require.True(t, ok)
	assert.Equal(t, rec.placed[0], pos)

	// a click above the horizon misses the ground and changes nothing
	e.Handle(ndcClick(0, 1))
	assert.Len(t, rec.placed, 1)

	e.SetDeploymentMode(core.DeploymentMode{})
	_, ok = e.PendingPosition()
	assert.False(t, ok)
}

func TestEngineTickRendersQueuedInput(t *testing.T) {
	e, backend, _ := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())
	e.Post(input.Resize{Width: 640, Height: 480})

	require.NoError(t, e.Tick(1.0/60))
	assert.Equal(t, 640, backend.Width)
	assert.Equal(t, 1, backend.Frames)
	require.NotEmpty(t, backend.LastFrame.Items)
	assert.Equal(t, core.KindGround, backend.LastFrame.Items[0].Kind)
	assert.Equal(t, core.KindGrid, backend.LastFrame.Items[1].Kind)
	last := backend.LastFrame.Items[len(backend.LastFrame.Items)-1]
	assert.True(t, last.Transparent)
	assert.Equal(t, 1, e.Stats().Frames)
	assert.Contains(t, e.Profiler().GetStatsString(), "render")
}

func TestEngineDragAndScrollMoveCamera(t *testing.T) {
	e, _, _ := newTestEngine(t)
	cam := e.Camera()
	az, dist := cam.Azimuth(), cam.Distance()
	view := input.Viewport{Width: testW, Height: testH}

	e.Post(input.PointerMove{DX: 100, Dragging: true, Button: input.ButtonLeft, View: view})
	e.Post(input.Scroll{Notches: 2, View: view})
	for range 300 {
		require.NoError(t, e.Tick(1.0/60))
	}
	assert.NotEqual(t, az, cam.Azimuth())
	assert.InDelta(t, dist*0.95*0.95, cam.Distance(), 1)

	target := cam.Target
	az = cam.Azimuth()
	e.Handle(input.PointerMove{DX: 50, Dragging: true, Button: input.ButtonLeft, Mods: input.ModShift, View: view})
	for range 300 {
		require.NoError(t, e.Tick(1.0/60))
	}
	assert.InDelta(t, az, cam.Azimuth(), 1e-5)
	assert.Greater(t, target.Sub(cam.Target).Len(), float32(1))
}

func TestEngineRotateRespectsPolarClamp(t *testing.T) {
	e, _, _ := newTestEngine(t)
	view := input.Viewport{Width: testW, Height: testH}
	// drag far upward to push the camera below the horizon
	e.Handle(input.PointerMove{DY: -5000, Dragging: true, Button: input.ButtonLeft, View: view})
	for range 600 {
		require.NoError(t, e.Tick(1.0/60))
	}
	assert.LessOrEqual(t, e.Camera().Polar(), math32.Pi/2-0.1+1e-5)
	assert.Greater(t, e.Camera().Position().Y(), float32(0))
}

func TestEnginePanKeepsCameraAboveGround(t *testing.T) {
	e, _, _ := newTestEngine(t)
	view := input.Viewport{Width: testW, Height: testH}
	for range 40 {
		e.Handle(input.PointerMove{DY: -200, Dragging: true, Button: input.ButtonRight, View: view})
		for range 30 {
			require.NoError(t, e.Tick(1.0/60))
		}
	}
	cam := e.Camera()
	assert.GreaterOrEqual(t, cam.Target.Y(), float32(0))
	assert.Greater(t, cam.Position().Y(), float32(0))
}

func TestEngineUnmountReleasesEverything(t *testing.T) {
	e, backend, rec := newTestEngine(t)
	e.SetSnapshot(sampleSnapshot())
	e.Post(ndcClick(0, 0))

	require.NoError(t, e.Unmount())
	assert.True(t, backend.Released)
	assert.Empty(t, backend.Geometries)
	assert.Empty(t, backend.Materials)
	st := e.Stats()
	assert.Zero(t, st.Resources.LiveGeometries())
	assert.Zero(t, st.Resources.LiveMaterials())

	// nothing reaches the listener once teardown began
	e.Handle(ndcClick(0, 0))
	assert.ErrorIs(t, e.Tick(0.016), ErrClosed)
	assert.Empty(t, rec.selected)

	assert.ErrorIs(t, e.Unmount(), ErrClosed)
	assert.ErrorIs(t, e.Mount(testBoundary, testW, testH), ErrClosed)
}

func TestChanListenerKeepsNewestWhenFull(t *testing.T) {
	l := NewChanListener(2)
	l.EntitySelected("a")
	l.EntitySelected("b")
	l.EntitySelected("")
	assert.Equal(t, 1, l.Dropped)
	assert.Equal(t, Event{Kind: EventEntitySelected, EntityID: "b"}, <-l.C)
	assert.Equal(t, Event{Kind: EventEntitySelected, EntityID: ""}, <-l.C, "the clearing click must not be lost")

	unbuffered := NewChanListener(0)
	unbuffered.PositionChosen(mgl32.Vec3{1, 2, 3})
	unbuffered.PositionChosen(mgl32.Vec3{4, 5, 6})
	assert.Equal(t, mgl32.Vec3{4, 5, 6}, (<-unbuffered.C).Position)
}

func TestEngineSelectionSurvivesFullListener(t *testing.T) {
	backend := gpu.NewHeadlessBackend(testW, testH)
	events := NewChanListener(1)
	opts := OptionsFromConfig(airspace.DefaultConfig())
	opts.Listener = events
	e := NewEngine(opts, backend, nil)
	require.NoError(t, e.Mount(testBoundary, testW, testH))
	e.SetSnapshot(sampleSnapshot())

	e.Handle(ndcClick(0, 0))
	e.Handle(ndcClick(0.9, 0.9))
	assert.Equal(t, Event{Kind: EventEntitySelected, EntityID: ""}, <-events.C)
}
