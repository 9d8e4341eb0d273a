// Package app drives the airspace view: it owns the scene, reconciles it
// against entity snapshots, routes input to the camera and picker, and
// renders frames through a gpu.Backend.
package app

import (
	"errors"
	"fmt"
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/catalog"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/gekko3d/airspace/viewrt/rt/editor"
	"github.com/gekko3d/airspace/viewrt/rt/gpu"
	"github.com/gekko3d/airspace/viewrt/rt/input"
)

var (
	ErrNotMounted     = errors.New("engine is not mounted")
	ErrAlreadyMounted = errors.New("engine is already mounted")
	ErrClosed         = errors.New("engine is closed")
)

// pixels of middle-button drag per zoom step
const dollyDragPixels = 10

type Options struct {
	Camera   airspace.CameraConfig
	Scene    airspace.SceneConfig
	Deploy   airspace.DeployConfig
	Listener Listener
}

func OptionsFromConfig(cfg airspace.Config) Options {
	return Options{
		Camera: cfg.Camera,
		Scene:  cfg.Scene,
		Deploy: cfg.Deploy,
	}
}

type EngineStats struct {
	Entities  int
	Overlays  int
	Objects   int
	Resources gpu.Stats
	Frames    int
}

// Engine is not safe for concurrent use. Everything except Post runs on the
// goroutine that drives Tick.
type Engine struct {
	opts     Options
	backend  gpu.Backend
	log      airspace.Logger
	listener Listener

	res      *gpu.ResourceManager
	registry *Registry
	scene    *core.Scene
	camera   *core.OrbitCamera
	picker   *editor.Picker
	ground   meshHandle
	grid     meshHandle
	boundary core.Boundary

	snapshot   core.Snapshot
	selected   string
	mode       core.DeploymentMode
	pending    mgl32.Vec3
	hasPending bool

	queue    input.Queue
	inbox    []input.Message
	frame    gpu.Frame
	profiler *Profiler
	frames   int

	width, height int
	mounted       bool
	closed        bool
}

func NewEngine(opts Options, backend gpu.Backend, log airspace.Logger) *Engine {
	log = airspace.OrNop(log)
	return &Engine{
		opts:     opts,
		backend:  backend,
		log:      log,
		listener: opts.Listener,
		res:      gpu.NewResourceManager(backend, log),
		profiler: NewProfiler(),
	}
}

func (e *Engine) Mounted() bool { return e.mounted }

// Mount builds the static scene for boundary in a w x h viewport and runs a
// first reconciliation with whatever snapshot was already set. On error
// nothing stays allocated.
func (e *Engine) Mount(boundary core.Boundary, w, h int) error {
	switch {
	case e.closed:
		return ErrClosed
	case e.mounted:
		return ErrAlreadyMounted
	}
	if err := boundary.Validate(); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	w, h = max(w, 1), max(h, 1)

	sc := e.opts.Scene
	scene := core.NewScene()
	sky := core.RGB(sc.SkyColor)
	scene.Background = sky
	scene.Fog = core.Fog{Color: [3]float32{sky[0], sky[1], sky[2]}, Near: sc.FogNear, Far: sc.FogFar}
	scene.Lights = []core.Light{
		{Kind: core.LightAmbient, Color: [3]float32{1, 1, 1}, Intensity: sc.AmbientIntensity},
		{Kind: core.LightDirectional, Color: [3]float32{1, 1, 1}, Intensity: sc.SunIntensity, Position: mgl32.Vec3{1000, 2000, 1000}},
	}

	size, center := boundary.Size(), boundary.Center()
	ground, err := newMeshHandle(e.res, "ground", core.KindGround,
		core.PlaneGeometry(size.X(), size.Z()), catalog.GroundMaterial(sc.GroundColor))
	if err != nil {
		return fmt.Errorf("mount: ground: %w", err)
	}
	ground.Object.Transform = core.Placed(mgl32.Vec3{center.X(), 0, center.Z()},
		mgl32.QuatRotate(-math32.Pi/2, mgl32.Vec3{1, 0, 0}))
	scene.AddObject(ground.Object)

	gridDesc, gridMat := catalog.Grid(max(size.X(), size.Z()))
	grid, err := newMeshHandle(e.res, "grid", core.KindGrid, gridDesc, gridMat)
	if err != nil {
		disposeHandle(e.res, e.log, ground)
		return fmt.Errorf("mount: grid: %w", err)
	}
	grid.Object.Transform = core.Placed(mgl32.Vec3{center.X(), catalog.GridHeight, center.Z()}, mgl32.QuatIdent())
	scene.AddObject(grid.Object)

	cc := e.opts.Camera
	cam := core.NewOrbitCamera(core.OrbitOptions{
		FovDegrees:    cc.FovDegrees,
		Near:          cc.Near,
		Far:           cc.Far,
		Position:      mgl32.Vec3(cc.Position),
		Target:        mgl32.Vec3{center.X(), 0, center.Z()},
		DampingFactor: cc.DampingFactor,
		MaxPolar:      math32.Pi/2 - cc.PolarMargin,
		RotateSpeed:   cc.RotateSpeed,
		PanSpeed:      cc.PanSpeed,
		MinDistance:   cc.MinDistance,
		MaxDistance:   cc.MaxDistance,
		GroundY:       0,
	})
	cam.SetAspect(w, h)

	e.scene = scene
	e.camera = cam
	e.ground = ground
	e.grid = grid
	e.boundary = boundary
	e.registry = NewRegistry(scene, e.res, e.log)
	e.picker = &editor.Picker{
		Camera:   cam,
		Scene:    scene,
		Ground:   ground.Object,
		Altitude: e.opts.Deploy.Altitude,
	}
	e.width, e.height = w, h
	e.backend.Resize(w, h)
	e.mounted = true

	e.log.Infof("mounted boundary %v..%v at %dx%d", boundary.Min, boundary.Max, w, h)
	e.reconcile()
	return nil
}

// Unmount tears the scene down and releases the backend. No listener call
// happens once it has started, and the engine cannot be mounted again.
func (e *Engine) Unmount() error {
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	e.listener = nil
	e.queue.Drain(nil)

	if e.mounted {
		e.mounted = false
		n := e.registry.Clear()
		for _, h := range []meshHandle{e.ground, e.grid} {
			if e.scene.RemoveObject(h.Object) {
				disposeHandle(e.res, e.log, h)
			}
		}
		e.log.Debugf("unmount: removed %d entities", n)
		e.scene, e.camera, e.picker, e.registry = nil, nil, nil, nil
		e.hasPending = false
	}
	if left := e.res.DisposeAll(); left > 0 {
		e.log.Warnf("unmount: %d resources were not tracked by the scene", left)
	}

	if err := e.backend.Release(); err != nil {
		return fmt.Errorf("unmount: release backend: %w", err)
	}
	return nil
}

// SetSnapshot replaces the entity list and rebuilds the entity objects.
func (e *Engine) SetSnapshot(s core.Snapshot) {
	e.SetState(s, e.selected)
}

// SetState replaces the snapshot and the selection together with a single
// rebuild.
func (e *Engine) SetState(s core.Snapshot, selected string) {
	e.snapshot = slices.Clone(s)
	e.selected = selected
	if e.mounted {
		e.reconcile()
	}
}

// SetSelection changes the highlighted entity. "" clears it.
func (e *Engine) SetSelection(id string) {
	e.selected = id
	if e.mounted {
		e.reconcile()
	}
}

func (e *Engine) Selection() string { return e.selected }

// SetDeploymentMode switches click handling. Leaving deployment mode
// forgets the pending placement.
func (e *Engine) SetDeploymentMode(mode core.DeploymentMode) {
	e.mode = mode
	if !mode.Enabled {
		e.hasPending = false
		e.pending = mgl32.Vec3{}
	}
}

func (e *Engine) DeploymentMode() core.DeploymentMode { return e.mode }

// PendingPosition is the last placement chosen in deployment mode.
func (e *Engine) PendingPosition() (mgl32.Vec3, bool) {
	return e.pending, e.hasPending
}

func (e *Engine) Camera() *core.OrbitCamera { return e.camera }
func (e *Engine) Scene() *core.Scene        { return e.scene }
func (e *Engine) Registry() *Registry       { return e.registry }
func (e *Engine) Profiler() *Profiler       { return e.profiler }

// Post queues a message for the next Tick. Safe from any goroutine.
func (e *Engine) Post(msg input.Message) {
	e.queue.Push(msg)
}

// Handle applies one input message immediately.
func (e *Engine) Handle(msg input.Message) {
	if !e.mounted {
		return
	}
	switch m := msg.(type) {
	case input.Resize:
		e.Resize(m.Width, m.Height)
	case input.PointerMove:
		if m.Dragging {
			e.drag(m)
		}
	case input.Scroll:
		e.camera.Dolly(math32.Pow(e.opts.Camera.ZoomStep, m.Notches))
	case input.Click:
		e.click(m)
	}
}

func (e *Engine) drag(m input.PointerMove) {
	h := float32(m.View.Height)
	if h <= 0 {
		h = float32(e.height)
	}
	switch {
	case m.Button == input.ButtonRight, m.Button == input.ButtonLeft && m.Mods.Has(input.ModShift):
		e.camera.Pan(m.DX, m.DY, h)
	case m.Button == input.ButtonLeft:
		e.camera.Rotate(m.DX, m.DY, h)
	case m.Button == input.ButtonMiddle:
		e.camera.Dolly(math32.Pow(e.opts.Camera.ZoomStep, -m.DY/dollyDragPixels))
	}
}

func (e *Engine) click(m input.Click) {
	ndc, ok := m.View.NDC(m.X, m.Y)
	if !ok {
		ndc, ok = input.ToNDC(m.X, m.Y, e.width, e.height)
		if !ok {
			return
		}
	}
	res := e.picker.Resolve(ndc, e.mode)
	e.log.Debugf("click %v -> %v %q %v", ndc, res.Kind, res.EntityID, res.Position)
	switch res.Kind {
	case editor.Selection:
		if e.listener != nil {
			e.listener.EntitySelected(res.EntityID)
		}
	case editor.Position:
		e.pending, e.hasPending = res.Position, true
		if e.listener != nil {
			e.listener.PositionChosen(res.Position)
		}
	}
}

// Resize updates the camera aspect and the drawing surface. Empty sizes, as
// reported for minimised windows, are ignored.
func (e *Engine) Resize(w, h int) {
	if w <= 0 || h <= 0 || !e.mounted {
		return
	}
	e.width, e.height = w, h
	e.camera.SetAspect(w, h)
	e.backend.Resize(w, h)
}

// Tick drains queued input, advances the camera by dt seconds and renders.
func (e *Engine) Tick(dt float32) error {
	if e.closed {
		return ErrClosed
	}
	if !e.mounted {
		return ErrNotMounted
	}
	p := e.profiler
	p.BeginScope("input")
	e.inbox = e.queue.Drain(e.inbox[:0])
	for _, msg := range e.inbox {
		e.Handle(msg)
	}
	clear(e.inbox)
	p.EndScope("input")

	e.camera.Update(dt)

	p.BeginScope("build")
	e.frame.Build(e.scene, e.camera)
	p.EndScope("build")

	p.BeginScope("render")
	err := e.backend.Render(&e.frame)
	p.EndScope("render")
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	e.frames++
	p.SetCount("frames", e.frames)
	p.SetCount("draw items", len(e.frame.Items))
	p.SetCount("objects", len(e.scene.Objects))
	return nil
}

func (e *Engine) Stats() EngineStats {
	st := EngineStats{Resources: e.res.Stats(), Frames: e.frames}
	if e.mounted {
		st.Entities = e.registry.Len()
		st.Overlays = e.registry.Overlays()
		st.Objects = len(e.scene.Objects)
	}
	return st
}

// reconcile rebuilds every entity object from the current snapshot and
// selection. The previous objects and their resources are released first.
func (e *Engine) reconcile() {
	e.profiler.BeginScope("reconcile")
	defer e.profiler.EndScope("reconcile")

	e.registry.Clear()
	for _, ent := range e.snapshot {
		if !ent.Valid() {
			e.log.Warnf("skipping entity %q (%v): missing id or position", ent.ID, ent.Category)
			continue
		}
		if _, dup := e.registry.Lookup(ent.ID); dup {
			e.log.Warnf("skipping duplicate entity %q", ent.ID)
			continue
		}
		if err := e.buildEntity(ent, ent.ID == e.selected); err != nil {
			e.log.Warnf("entity %q: %v", ent.ID, err)
		}
	}
	e.profiler.SetCount("entities", e.registry.Len())
	e.profiler.SetCount("pickable", len(e.registry.Pickables()))
	e.profiler.AddCount("rebuilds", 1)
}

func (e *Engine) buildEntity(ent core.Entity, selected bool) error {
	tmpl := catalog.TemplateFor(ent.Category)
	mesh, err := newMeshHandle(e.res, ent.ID, core.KindEntity, tmpl.Geometry, tmpl.Material(selected))
	if err != nil {
		return err
	}
	mesh.Object.Transform = core.Placed(ent.Position, tmpl.Rotation)
	mesh.Object.Tag = ent.ID
	mesh.Object.Pickable = true

	var overlay *meshHandle
	if ot, ok := catalog.OverlayFor(ent); ok {
		h, err := newMeshHandle(e.res, ent.ID+"/range", core.KindOverlay, ot.Geometry, ot.Material)
		if err != nil {
			disposeHandle(e.res, e.log, mesh)
			return fmt.Errorf("range overlay: %w", err)
		}
		h.Object.Transform = core.Placed(mgl32.Vec3{ent.Position.X(), e.opts.Scene.OverlayHeight, ent.Position.Z()}, ot.Rotation)
		h.Object.Tag = ent.ID
		overlay = &h
	}

	if err := e.registry.Insert(ent.ID, mesh, overlay); err != nil {
		disposeHandle(e.res, e.log, mesh)
		if overlay != nil {
			disposeHandle(e.res, e.log, *overlay)
		}
		return err
	}
	return nil
}

// newMeshHandle creates the geometry and material for one object. A failed
// material creation releases the geometry again.
func newMeshHandle(res *gpu.ResourceManager, name string, kind core.ObjectKind, desc core.GeometryDescriptor, mat core.Material) (meshHandle, error) {
	gid, mesh, err := res.NewGeometry(desc)
	if err != nil {
		return meshHandle{}, err
	}
	mid, err := res.NewMaterial(mat)
	if err != nil {
		_ = res.DisposeGeometry(gid)
		return meshHandle{}, err
	}
	obj := core.NewObject(name, kind)
	obj.GeometryID = string(gid)
	obj.MaterialID = string(mid)
	obj.Transparent = mat.Transparent
	obj.SetMesh(mesh)
	return meshHandle{Object: obj, Geometry: gid, Material: mid}, nil
}
