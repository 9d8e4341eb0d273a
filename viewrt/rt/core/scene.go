package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

type ObjectKind uint8

const (
	KindGround ObjectKind = iota
	KindEntity
	KindOverlay
	KindGrid
)

func (k ObjectKind) String() string {
	switch k {
	case KindGround:
		return "ground"
	case KindEntity:
		return "entity"
	case KindOverlay:
		return "overlay"
	case KindGrid:
		return "grid"
	}
	return "unknown"
}

// Object is one node of the retained scene. Geometry and material are handles
// owned elsewhere; the object only references them.
type Object struct {
	Name       string
	Kind       ObjectKind
	Transform  Transform
	GeometryID string
	MaterialID string
	// Mesh is the CPU copy used for picking; LocalBounds is its AABB.
	Mesh        *MeshData
	LocalBounds [2]mgl32.Vec3
	// Tag carries the entity id for picking.
	Tag         string
	Pickable    bool
	Transparent bool
}

func NewObject(name string, kind ObjectKind) *Object {
	return &Object{
		Name:      name,
		Kind:      kind,
		Transform: NewTransform(),
	}
}

// SetMesh attaches the CPU mesh and adopts its bounds.
func (o *Object) SetMesh(m *MeshData) {
	o.Mesh = m
	if m != nil {
		o.LocalBounds = m.Bounds
	}
}

func (o *Object) WorldAABB() [2]mgl32.Vec3 {
	return TransformAABB(o.LocalBounds, o.Transform.ObjectToWorld())
}

type Scene struct {
	Background [4]float32
	Fog        Fog
	Lights     []Light
	Objects    []*Object
}

func NewScene() *Scene {
	return &Scene{
		Objects: []*Object{},
	}
}

func (s *Scene) AddObject(obj *Object) {
	s.Objects = append(s.Objects, obj)
}

// RemoveObject detaches obj and reports whether it was present.
func (s *Scene) RemoveObject(obj *Object) bool {
	for i, o := range s.Objects {
		if o == obj {
			s.Objects = append(s.Objects[:i], s.Objects[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Scene) Contains(obj *Object) bool {
	for _, o := range s.Objects {
		if o == obj {
			return true
		}
	}
	return false
}

// Visible appends to dst the objects whose world AABB intersects the frustum.
func (s *Scene) Visible(dst []*Object, planes [6]mgl32.Vec4) []*Object {
	dst = dst[:0]
	for _, obj := range s.Objects {
		if AABBInFrustum(obj.WorldAABB(), planes) {
			dst = append(dst, obj)
		}
	}
	return dst
}

func (s *Scene) Ambient() (Light, bool) {
	return s.findLight(LightAmbient)
}

func (s *Scene) Sun() (Light, bool) {
	return s.findLight(LightDirectional)
}

func (s *Scene) findLight(kind LightKind) (Light, bool) {
	for _, l := range s.Lights {
		if l.Kind == kind {
			return l, true
		}
	}
	return Light{}, false
}
