// Package catalog maps entity categories to procedural mesh templates.
package catalog

import (
	"image/color"

	"github.com/chewxy/math32"
	"github.com/gekko3d/airspace/viewrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/colornames"
)

const (
	// HighlightIntensity replaces the template emissive intensity of the selected entity.
	HighlightIntensity float32 = 0.5

	OverlayOpacity  float32 = 0.1
	OverlaySegments         = 32

	// GridCells is the number of reference grid cells per side.
	GridCells = 50
	// GridHeight lifts the grid off the ground plane.
	GridHeight float32 = 0.1
)

type Template struct {
	Geometry          core.GeometryDescriptor
	BaseColor         [4]float32
	Emissive          [3]float32
	EmissiveIntensity float32
	// Rotation orients the mesh in world space.
	Rotation mgl32.Quat
}

// Material builds the entity material. Highlighting is the caller's decision.
func (t Template) Material(highlighted bool) core.Material {
	m := core.NewMaterial(t.BaseColor, t.Emissive, t.EmissiveIntensity)
	if highlighted {
		m.EmissiveIntensity = HighlightIntensity
	}
	return m
}

// TemplateFor never fails: unrecognised categories get a neutral grey box.
func TemplateFor(c core.Category) Template {
	switch c {
	case core.CategoryRadar:
		// cone flipped tip-down
		return glowing(core.ConeGeometry(20, 40, 8), colornames.Blue, 0.2,
			mgl32.QuatRotate(math32.Pi, mgl32.Vec3{1, 0, 0}))
	case core.CategoryOpticalCamera:
		return glowing(core.BoxGeometry(30, 20, 30), colornames.Lime, 0.2, mgl32.QuatIdent())
	case core.CategoryRadioDetector:
		return glowing(core.CylinderGeometry(15, 15, 40, 16), colornames.Magenta, 0.2, mgl32.QuatIdent())
	case core.CategoryUAV:
		return glowing(core.SphereGeometry(15, 16), colornames.Red, 0.3, mgl32.QuatIdent())
	}
	return Template{
		Geometry:  core.BoxGeometry(20, 20, 20),
		BaseColor: toLinear(colornames.Gray),
		Rotation:  mgl32.QuatIdent(),
	}
}

func glowing(g core.GeometryDescriptor, c color.RGBA, intensity float32, rot mgl32.Quat) Template {
	base := toLinear(c)
	return Template{
		Geometry:          g,
		BaseColor:         base,
		Emissive:          [3]float32{base[0], base[1], base[2]},
		EmissiveIntensity: intensity,
		Rotation:          rot,
	}
}

type OverlayTemplate struct {
	Geometry core.GeometryDescriptor
	Material core.Material
	// Rotation lays the ring flat on the ground.
	Rotation mgl32.Quat
}

// OverlayFor returns the detection-range disc for sensor entities with a usable range.
func OverlayFor(e core.Entity) (OverlayTemplate, bool) {
	if !e.Category.IsSensor() || !e.HasDetectionRange() {
		return OverlayTemplate{}, false
	}
	m := core.NewMaterial(TemplateFor(e.Category).BaseColor, [3]float32{}, 0)
	m.Opacity = OverlayOpacity
	m.Transparent = true
	m.DoubleSided = true
	m.Unlit = true
	return OverlayTemplate{
		Geometry: core.RingGeometry(0, e.DetectionRange, OverlaySegments),
		Material: m,
		Rotation: mgl32.QuatRotate(-math32.Pi/2, mgl32.Vec3{1, 0, 0}),
	}, true
}

// GroundMaterial is the matte ground plane material for the given 0xRRGGBB colour.
func GroundMaterial(hex uint32) core.Material {
	return core.NewMaterial(core.RGB(hex), [3]float32{}, 0)
}

// toLinear decodes a named sRGB colour. Alpha is already linear.
// Grid returns the reference grid covering a side x side square. Lines are
// a twentieth of a cell wide.
func Grid(side float32) (core.GeometryDescriptor, core.Material) {
	cell := side / GridCells
	m := core.NewMaterial(core.RGB(0x888888), [3]float32{}, 0)
	m.Unlit = true
	m.DoubleSided = true
	return core.GridGeometry(side, GridCells, cell/20), m
}

func toLinear(c color.RGBA) [4]float32 {
	return [4]float32{
		core.SRGBToLinear(float32(c.R) / 255),
		core.SRGBToLinear(float32(c.G) / 255),
		core.SRGBToLinear(float32(c.B) / 255),
		float32(c.A) / 255,
	}
}
