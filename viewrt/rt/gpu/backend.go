// Package gpu owns graphics resources: the Backend abstraction over the
// graphics context, the ResourceManager that pairs every create with exactly
// one destroy, and the per-frame draw list.
package gpu

import (
	"errors"

	"github.com/gekko3d/airspace/viewrt/rt/core"
)

type GeometryID string
type MaterialID string

var (
	ErrAlreadyDisposed = errors.New("resource is not live (already disposed or never created)")
	ErrReleased        = errors.New("graphics context released")
)

// Backend is the graphics context. Implementations need not be safe for
// concurrent use; the engine drives them from the frame loop only.
type Backend interface {
	CreateGeometry(id GeometryID, mesh *core.MeshData) error
	DestroyGeometry(id GeometryID) error
	CreateMaterial(id MaterialID, m core.Material) error
	DestroyMaterial(id MaterialID) error
	Resize(width, height int)
	Render(frame *Frame) error
	Release() error
}
