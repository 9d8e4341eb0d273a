package gpu

import (
	"fmt"

	"github.com/gekko3d/airspace/viewrt/rt/core"
)

// HeadlessBackend keeps resources in memory and counts frames. It is strict:
// duplicate creates, unknown destroys and use after Release are errors.
type HeadlessBackend struct {
	Geometries map[GeometryID]int
	Materials  map[MaterialID]core.Material
	Width      int
	Height     int
	Frames     int
	LastFrame  Frame
	Released   bool

	// Destroys counts backend destroy calls that reached the backend.
	Destroys int

	// Optional failure hooks.
	FailCreateGeometry func(mesh *core.MeshData) error
	FailDestroy        func(id string) error
}

func NewHeadlessBackend(width, height int) *HeadlessBackend {
	return &HeadlessBackend{
		Geometries: make(map[GeometryID]int),
		Materials:  make(map[MaterialID]core.Material),
		Width:      width,
		Height:     height,
	}
}

func (b *HeadlessBackend) CreateGeometry(id GeometryID, mesh *core.MeshData) error {
	if b.Released {
		return ErrReleased
	}
	if _, ok := b.Geometries[id]; ok {
		return fmt.Errorf("geometry %s already exists", id)
	}
	if b.FailCreateGeometry != nil {
		if err := b.FailCreateGeometry(mesh); err != nil {
			return err
		}
	}
	b.Geometries[id] = len(mesh.Indices)
	return nil
}

func (b *HeadlessBackend) DestroyGeometry(id GeometryID) error {
	b.Destroys++
	if _, ok := b.Geometries[id]; !ok {
		return fmt.Errorf("geometry %s: double destroy", id)
	}
	delete(b.Geometries, id)
	if b.FailDestroy != nil {
		return b.FailDestroy(string(id))
	}
	return nil
}

func (b *HeadlessBackend) CreateMaterial(id MaterialID, m core.Material) error {
	if b.Released {
		return ErrReleased
	}
	if _, ok := b.Materials[id]; ok {
		return fmt.Errorf("material %s already exists", id)
	}
	b.Materials[id] = m
	return nil
}

func (b *HeadlessBackend) DestroyMaterial(id MaterialID) error {
	b.Destroys++
	if _, ok := b.Materials[id]; !ok {
		return fmt.Errorf("material %s: double destroy", id)
	}
	delete(b.Materials, id)
	if b.FailDestroy != nil {
		return b.FailDestroy(string(id))
	}
	return nil
}

func (b *HeadlessBackend) Resize(width, height int) {
	if width > 0 && height > 0 {
		b.Width, b.Height = width, height
	}
}

func (b *HeadlessBackend) Render(frame *Frame) error {
	if b.Released {
		return ErrReleased
	}
	for _, it := range frame.Items {
		if _, ok := b.Geometries[it.Geometry]; !ok {
			return fmt.Errorf("frame references unknown geometry %s", it.Geometry)
		}
		if _, ok := b.Materials[it.Material]; !ok {
			return fmt.Errorf("frame references unknown material %s", it.Material)
		}
	}
	b.Frames++
	b.LastFrame = *frame
	b.LastFrame.Items = append([]DrawItem(nil), frame.Items...)
	return nil
}

func (b *HeadlessBackend) Release() error {
	if b.Released {
		return ErrReleased
	}
	b.Released = true
	return nil
}
