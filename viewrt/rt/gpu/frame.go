package gpu

import (
	"slices"

	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

type DrawItem struct {
	Geometry    GeometryID
	Material    MaterialID
	Model       mgl32.Mat4
	Kind        core.ObjectKind
	Transparent bool
	// Distance from the camera to the world AABB centre.
	Distance float32
}

// Frame is everything a backend needs to draw one image.
type Frame struct {
	ViewProj  mgl32.Mat4
	CameraPos mgl32.Vec3
	Clear     [4]float32
	Fog       core.Fog
	Ambient   core.Light
	Sun       core.Light
	Items     []DrawItem

	visible []*core.Object
}

// Build fills f from the scene as seen by cam, reusing its slices. Objects
// outside the view frustum are dropped. Items are ordered for drawing without
// a depth buffer: ground first, then the grid, then opaque objects far to
// near, then
// transparent ones far to near.
func (f *Frame) Build(scene *core.Scene, cam *core.OrbitCamera) {
	f.ViewProj = cam.ViewProjection()
	f.CameraPos = cam.Position()
	f.Clear = scene.Background
	f.Fog = scene.Fog
	f.Ambient, _ = scene.Ambient()
	f.Sun, _ = scene.Sun()

	f.visible = scene.Visible(f.visible, core.ExtractFrustum(f.ViewProj))
	f.Items = f.Items[:0]
	for _, obj := range f.visible {
		aabb := obj.WorldAABB()
		center := aabb[0].Add(aabb[1]).Mul(0.5)
		f.Items = append(f.Items, DrawItem{
			Geometry:    GeometryID(obj.GeometryID),
			Material:    MaterialID(obj.MaterialID),
			Model:       obj.Transform.ObjectToWorld(),
			Kind:        obj.Kind,
			Transparent: obj.Transparent,
			Distance:    center.Sub(f.CameraPos).Len(),
		})
	}
	slices.SortStableFunc(f.Items, compareDrawOrder)
}

func drawLayer(it DrawItem) int {
	switch {
	case it.Kind == core.KindGround:
		return 0
	case it.Kind == core.KindGrid:
		return 1
	case it.Transparent:
		return 3
	}
	return 2
}

func compareDrawOrder(a, b DrawItem) int {
	if la, lb := drawLayer(a), drawLayer(b); la != lb {
		return la - lb
	}
	switch {
	case a.Distance > b.Distance:
		return -1
	case a.Distance < b.Distance:
		return 1
	}
	return 0
}
