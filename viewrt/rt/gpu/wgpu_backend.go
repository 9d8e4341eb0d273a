package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// WGPUBackend renders to a GLFW window surface through WebGPU.
type WGPUBackend struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration
	Meshes   *MeshRenderPass

	log       airspace.Logger
	geometry  map[GeometryID]*gpuMesh
	materials map[MaterialID]core.Material
	released  bool
}

// NewWGPUBackend initialises the graphics context for window. When any step
// fails, everything created so far is released and the error is returned.
func NewWGPUBackend(window *glfw.Window, log airspace.Logger) (*WGPUBackend, error) {
	b := &WGPUBackend{
		log:       airspace.OrNop(log),
		geometry:  make(map[GeometryID]*gpuMesh),
		materials: make(map[MaterialID]core.Material),
	}
	if err := b.init(window); err != nil {
		b.Release()
		return nil, fmt.Errorf("init graphics context: %w", err)
	}
	return b, nil
}

func (b *WGPUBackend) init(window *glfw.Window) error {
	b.Instance = wgpu.CreateInstance(nil)
	if b.Instance == nil {
		return errors.New("create instance")
	}

	b.Surface = b.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))
	if b.Surface == nil {
		return errors.New("create surface")
	}

	adapter, err := b.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: b.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("request adapter: %w", err)
	}
	b.Adapter = adapter

	b.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return fmt.Errorf("request device: %w", err)
	}
	b.Queue = b.Device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := b.Surface.GetCapabilities(adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return errors.New("surface reports no usable formats")
	}
	b.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	b.Surface.Configure(adapter, b.Device, b.Config)

	b.Meshes, err = NewMeshRenderPass(b.Device, b.Config.Format)
	if err != nil {
		return fmt.Errorf("mesh pass: %w", err)
	}
	b.log.Debugf("graphics context ready: %dx%d format %v", b.Config.Width, b.Config.Height, b.Config.Format)
	return nil
}

func (b *WGPUBackend) CreateGeometry(id GeometryID, mesh *core.MeshData) error {
	if b.released {
		return ErrReleased
	}
	if _, ok := b.geometry[id]; ok {
		return fmt.Errorf("geometry %s already exists", id)
	}
	gm, err := newGPUMesh(b.Device, mesh)
	if err != nil {
		return err
	}
	b.geometry[id] = gm
	return nil
}

func (b *WGPUBackend) DestroyGeometry(id GeometryID) error {
	gm, ok := b.geometry[id]
	if !ok {
		return fmt.Errorf("geometry %s not resident", id)
	}
	delete(b.geometry, id)
	gm.release()
	return nil
}

// Materials live in instance data; nothing is allocated on the device.
func (b *WGPUBackend) CreateMaterial(id MaterialID, m core.Material) error {
	if b.released {
		return ErrReleased
	}
	b.materials[id] = m
	return nil
}

func (b *WGPUBackend) DestroyMaterial(id MaterialID) error {
	if _, ok := b.materials[id]; !ok {
		return fmt.Errorf("material %s not resident", id)
	}
	delete(b.materials, id)
	return nil
}

func (b *WGPUBackend) Resize(w, h int) {
	if b.released || w <= 0 || h <= 0 {
		return
	}
	b.Config.Width = uint32(w)
	b.Config.Height = uint32(h)
	b.Surface.Configure(b.Adapter, b.Device, b.Config)
}

func (b *WGPUBackend) Render(frame *Frame) error {
	if b.released {
		return ErrReleased
	}
	if err := b.Meshes.Update(b.Queue, frame, b.geometry, b.materials); err != nil {
		return fmt.Errorf("update mesh pass: %w", err)
	}

	nextTexture, err := b.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("get current texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("create view: %w", err)
	}
	defer view.Release()

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	c := frame.Clear
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: 1},
		}},
	})
	b.Meshes.Draw(pass)
	if err := pass.End(); err != nil {
		return fmt.Errorf("mesh pass end: %w", err)
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("encoder finish: %w", err)
	}
	defer cmd.Release()
	b.Queue.Submit(cmd)
	b.Surface.Present()
	return nil
}

// Release frees resident geometry and the context in reverse creation order.
// It is safe on a partially initialised backend.
func (b *WGPUBackend) Release() error {
	if b.released {
		return ErrReleased
	}
	b.released = true
	if n := len(b.geometry); n > 0 {
		b.log.Warnf("releasing context with %d geometries still resident", n)
	}
	for id, gm := range b.geometry {
		gm.release()
		delete(b.geometry, id)
	}
	clear(b.materials)

	if b.Meshes != nil {
		b.Meshes.Release()
		b.Meshes = nil
	}
	if b.Queue != nil {
		b.Queue.Release()
		b.Queue = nil
	}
	if b.Device != nil {
		b.Device.Release()
		b.Device = nil
	}
	if b.Adapter != nil {
		b.Adapter.Release()
		b.Adapter = nil
	}
	if b.Surface != nil {
		b.Surface.Release()
		b.Surface = nil
	}
	if b.Instance != nil {
		b.Instance.Release()
		b.Instance = nil
	}
	return nil
}
