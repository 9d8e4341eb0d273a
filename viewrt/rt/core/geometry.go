package core

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

type Shape uint8

const (
	ShapeBox Shape = iota
	ShapeCone
	ShapeCylinder
	ShapeSphere
	ShapeRing
	ShapePlane
	ShapeGrid
)

func (s Shape) String() string {
	switch s {
	case ShapeBox:
		return "box"
	case ShapeCone:
		return "cone"
	case ShapeCylinder:
		return "cylinder"
	case ShapeSphere:
		return "sphere"
	case ShapeRing:
		return "ring"
	case ShapePlane:
		return "plane"
	case ShapeGrid:
		return "grid"
	}
	return fmt.Sprintf("Shape(%d)", uint8(s))
}

// GeometryDescriptor is a procedural mesh recipe. Which fields apply depends on Shape:
//
//	Box:      Width, Height, Depth
//	Cone:     Radius (base), Height, Segments
//	Cylinder: RadiusTop, Radius (bottom), Height, Segments
//	Sphere:   Radius, Segments
//	Ring:     InnerRadius, Radius (outer), Segments; lies in the XY plane
//	Plane:    Width, Height; lies in the XY plane
//	Grid:     Width (side), Segments (cells per side), Depth (line width); lies in the XZ plane
type GeometryDescriptor struct {
	Shape       Shape
	Width       float32
	Height      float32
	Depth       float32
	Radius      float32
	RadiusTop   float32
	InnerRadius float32
	Segments    int
}

func BoxGeometry(w, h, d float32) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapeBox, Width: w, Height: h, Depth: d}
}

func ConeGeometry(radius, height float32, segments int) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapeCone, Radius: radius, Height: height, Segments: segments}
}

func CylinderGeometry(radiusTop, radiusBottom, height float32, segments int) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapeCylinder, RadiusTop: radiusTop, Radius: radiusBottom, Height: height, Segments: segments}
}

func SphereGeometry(radius float32, segments int) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapeSphere, Radius: radius, Segments: segments}
}

func RingGeometry(inner, outer float32, segments int) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapeRing, InnerRadius: inner, Radius: outer, Segments: segments}
}

func PlaneGeometry(w, h float32) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapePlane, Width: w, Height: h}
}

func GridGeometry(side float32, cells int, lineWidth float32) GeometryDescriptor {
	return GeometryDescriptor{Shape: ShapeGrid, Width: side, Segments: cells, Depth: lineWidth}
}

// Vertex matches the WGSL vertex input (location 0 position, location 1 normal).
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
}

// MeshData is CPU-side triangle data. Front faces wind counter-clockwise.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint16
	Bounds   [2]mgl32.Vec3
}

func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

func (m *MeshData) Triangle(i int) (a, b, c mgl32.Vec3) {
	a = mgl32.Vec3(m.Vertices[m.Indices[i*3]].Pos)
	b = mgl32.Vec3(m.Vertices[m.Indices[i*3+1]].Pos)
	c = mgl32.Vec3(m.Vertices[m.Indices[i*3+2]].Pos)
	return a, b, c
}

const maxVertices = 1 << 16

// Build generates the mesh. It fails for non-positive dimensions or meshes too
// large for 16-bit indices.
func (g GeometryDescriptor) Build() (*MeshData, error) {
	b := &meshBuilder{}
	switch g.Shape {
	case ShapeBox:
		if g.Width <= 0 || g.Height <= 0 || g.Depth <= 0 {
			return nil, fmt.Errorf("box: dimensions must be positive, got %vx%vx%v", g.Width, g.Height, g.Depth)
		}
		b.box(g.Width*0.5, g.Height*0.5, g.Depth*0.5)
	case ShapeCone:
		if g.Radius <= 0 || g.Height <= 0 {
			return nil, fmt.Errorf("cone: radius and height must be positive")
		}
		b.cylinder(0, g.Radius, g.Height, segmentsOr(g.Segments, 8))
	case ShapeCylinder:
		if g.Radius < 0 || g.RadiusTop < 0 || g.Radius+g.RadiusTop <= 0 || g.Height <= 0 {
			return nil, fmt.Errorf("cylinder: invalid radii %v/%v or height %v", g.RadiusTop, g.Radius, g.Height)
		}
		b.cylinder(g.RadiusTop, g.Radius, g.Height, segmentsOr(g.Segments, 16))
	case ShapeSphere:
		if g.Radius <= 0 {
			return nil, fmt.Errorf("sphere: radius must be positive")
		}
		b.sphere(g.Radius, segmentsOr(g.Segments, 16))
	case ShapeRing:
		if g.Radius <= 0 || g.InnerRadius < 0 || g.InnerRadius >= g.Radius {
			return nil, fmt.Errorf("ring: invalid radii %v..%v", g.InnerRadius, g.Radius)
		}
		b.ring(g.InnerRadius, g.Radius, segmentsOr(g.Segments, 32))
	case ShapePlane:
		if g.Width <= 0 || g.Height <= 0 {
			return nil, fmt.Errorf("plane: dimensions must be positive")
		}
		b.plane(g.Width*0.5, g.Height*0.5)
	case ShapeGrid:
		if g.Width <= 0 || g.Depth <= 0 || g.Segments < 1 {
			return nil, fmt.Errorf("grid: invalid side %v, line width %v or cells %d", g.Width, g.Depth, g.Segments)
		}
		b.grid(g.Width*0.5, g.Depth*0.5, g.Segments)
	default:
		return nil, fmt.Errorf("unknown shape %v", g.Shape)
	}
	if len(b.vertices) >= maxVertices {
		return nil, fmt.Errorf("%v: %d vertices exceed 16-bit index range", g.Shape, len(b.vertices))
	}
	return b.finish(), nil
}

func segmentsOr(n, def int) int {
	if n < 3 {
		return def
	}
	return n
}

type meshBuilder struct {
	vertices []Vertex
	indices  []uint16
}

func (b *meshBuilder) add(pos, normal mgl32.Vec3) uint16 {
	b.vertices = append(b.vertices, Vertex{Pos: pos, Normal: normal})
	return uint16(len(b.vertices) - 1)
}

func (b *meshBuilder) tri(i0, i1, i2 uint16) {
	b.indices = append(b.indices, i0, i1, i2)
}

func (b *meshBuilder) finish() *MeshData {
	inf := float32(1e20)
	minB := mgl32.Vec3{inf, inf, inf}
	maxB := mgl32.Vec3{-inf, -inf, -inf}
	for _, v := range b.vertices {
		for k := 0; k < 3; k++ {
			minB[k] = min(minB[k], v.Pos[k])
			maxB[k] = max(maxB[k], v.Pos[k])
		}
	}
	return &MeshData{Vertices: b.vertices, Indices: b.indices, Bounds: [2]mgl32.Vec3{minB, maxB}}
}

// face emits one quad with normal n spanned by u and v, where u x v = n.
func (b *meshBuilder) face(half, n, u, v mgl32.Vec3) {
	mul := func(a, h mgl32.Vec3) mgl32.Vec3 { return mgl32.Vec3{a[0] * h[0], a[1] * h[1], a[2] * h[2]} }
	c := mul(n, half)
	hu, hv := mul(u, half), mul(v, half)
	i0 := b.add(c.Sub(hu).Sub(hv), n)
	i1 := b.add(c.Add(hu).Sub(hv), n)
	i2 := b.add(c.Add(hu).Add(hv), n)
	i3 := b.add(c.Sub(hu).Add(hv), n)
	b.tri(i0, i1, i2)
	b.tri(i0, i2, i3)
}

func (b *meshBuilder) box(hx, hy, hz float32) {
	half := mgl32.Vec3{hx, hy, hz}
	b.face(half, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	b.face(half, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0})
	b.face(half, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1})
	b.face(half, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1})
	b.face(half, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0})
	b.face(half, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0})
}

// cylinder is centred on the origin along Y. A zero top radius makes a cone.
func (b *meshBuilder) cylinder(rTop, rBottom, height float32, segments int) {
	halfH := height * 0.5
	slope := (rBottom - rTop) / height
	step := 2 * math32.Pi / float32(segments)

	// Side: two rows (top, bottom), seam duplicated so normals stay continuous.
	base := uint16(len(b.vertices))
	for row := 0; row < 2; row++ {
		y, r := halfH, rTop
		if row == 1 {
			y, r = -halfH, rBottom
		}
		for j := 0; j <= segments; j++ {
			theta := float32(j) * step
			s, c := math32.Sin(theta), math32.Cos(theta)
			n := mgl32.Vec3{s, slope, c}.Normalize()
			b.add(mgl32.Vec3{r * s, y, r * c}, n)
		}
	}
	stride := uint16(segments + 1)
	for j := uint16(0); j < uint16(segments); j++ {
		a := base + j
		bb := base + stride + j
		c := base + stride + j + 1
		d := base + j + 1
		if rTop > 0 {
			b.tri(a, bb, d)
		}
		b.tri(bb, c, d)
	}

	if rTop > 0 {
		b.cap(rTop, halfH, segments, true)
	}
	if rBottom > 0 {
		b.cap(rBottom, -halfH, segments, false)
	}
}

func (b *meshBuilder) cap(r, y float32, segments int, top bool) {
	n := mgl32.Vec3{0, 1, 0}
	if !top {
		n = mgl32.Vec3{0, -1, 0}
	}
	step := 2 * math32.Pi / float32(segments)
	center := b.add(mgl32.Vec3{0, y, 0}, n)
	first := uint16(len(b.vertices))
	for j := 0; j <= segments; j++ {
		theta := float32(j) * step
		b.add(mgl32.Vec3{r * math32.Sin(theta), y, r * math32.Cos(theta)}, n)
	}
	for j := uint16(0); j < uint16(segments); j++ {
		if top {
			b.tri(center, first+j, first+j+1)
		} else {
			b.tri(center, first+j+1, first+j)
		}
	}
}

func (b *meshBuilder) sphere(r float32, segments int) {
	rows := segments
	cols := segments
	base := uint16(len(b.vertices))
	for i := 0; i <= rows; i++ {
		polar := math32.Pi * float32(i) / float32(rows)
		sp, cp := math32.Sin(polar), math32.Cos(polar)
		for j := 0; j <= cols; j++ {
			az := 2 * math32.Pi * float32(j) / float32(cols)
			n := mgl32.Vec3{sp * math32.Sin(az), cp, sp * math32.Cos(az)}
			b.add(n.Mul(r), n)
		}
	}
	stride := uint16(cols + 1)
	for i := uint16(0); i < uint16(rows); i++ {
		for j := uint16(0); j < uint16(cols); j++ {
			a := base + i*stride + j
			bb := base + (i+1)*stride + j
			c := base + (i+1)*stride + j + 1
			d := base + i*stride + j + 1
			if i != 0 {
				b.tri(a, bb, d)
			}
			if i != uint16(rows-1) {
				b.tri(bb, c, d)
			}
		}
	}
}

func (b *meshBuilder) ring(inner, outer float32, segments int) {
	n := mgl32.Vec3{0, 0, 1}
	step := 2 * math32.Pi / float32(segments)
	base := uint16(len(b.vertices))
	for j := 0; j <= segments; j++ {
		theta := float32(j) * step
		c, s := math32.Cos(theta), math32.Sin(theta)
		b.add(mgl32.Vec3{inner * c, inner * s, 0}, n)
		b.add(mgl32.Vec3{outer * c, outer * s, 0}, n)
	}
	for j := uint16(0); j < uint16(segments); j++ {
		i0, o0 := base+2*j, base+2*j+1
		i1, o1 := base+2*j+2, base+2*j+3
		b.tri(i0, o0, o1)
		if inner > 0 {
			b.tri(i0, o1, i1)
		}
	}
}

func (b *meshBuilder) plane(hw, hh float32) {
	n := mgl32.Vec3{0, 0, 1}
	i0 := b.add(mgl32.Vec3{-hw, -hh, 0}, n)
	i1 := b.add(mgl32.Vec3{hw, -hh, 0}, n)
	i2 := b.add(mgl32.Vec3{hw, hh, 0}, n)
	i3 := b.add(mgl32.Vec3{-hw, hh, 0}, n)
	b.tri(i0, i1, i2)
	b.tri(i0, i2, i3)
}

// grid lays cells+1 strips along each axis, facing +Y.
func (b *meshBuilder) grid(half, lw float32, cells int) {
	up := mgl32.Vec3{0, 1, 0}
	strip := func(x0, z0, x1, z1 float32) {
		i0 := b.add(mgl32.Vec3{x0, 0, z0}, up)
		i1 := b.add(mgl32.Vec3{x0, 0, z1}, up)
		i2 := b.add(mgl32.Vec3{x1, 0, z1}, up)
		i3 := b.add(mgl32.Vec3{x1, 0, z0}, up)
		b.tri(i0, i1, i2)
		b.tri(i0, i2, i3)
	}
	step := 2 * half / float32(cells)
	for i := 0; i <= cells; i++ {
		t := -half + float32(i)*step
		strip(-half, t-lw, half, t+lw)
		strip(t-lw, -half, t+lw, half)
	}
}
