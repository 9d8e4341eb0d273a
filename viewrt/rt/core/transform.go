package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an object: scale, then rotate, then translate. It is a
// value; objects own their copy.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Placed is an identity-scale transform at pos with rotation rot.
func Placed(pos mgl32.Vec3, rot mgl32.Quat) Transform {
	t := NewTransform()
	t.Position = pos
	t.Rotation = rot
	return t
}

func (t Transform) ObjectToWorld() mgl32.Mat4 {
	s := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
	return mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(s)
}

// WorldToObject inverts each factor instead of the whole matrix; the
// rotation must be a unit quaternion.
func (t Transform) WorldToObject() mgl32.Mat4 {
	s := mgl32.Scale3D(1/t.Scale.X(), 1/t.Scale.Y(), 1/t.Scale.Z())
	return s.
		Mul4(t.Rotation.Conjugate().Mat4()).
		Mul4(mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z()))
}

func (t Transform) Point(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, t.ObjectToWorld())
}

// InversePoint and InverseDir map world space into object space.
func (t Transform) InversePoint(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, t.WorldToObject())
}

func (t Transform) InverseDir(d mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformNormal(d, t.WorldToObject())
}

// TransformAABB returns the world box enclosing local after m. Each output
// axis takes the min and max contribution of every input axis.
func TransformAABB(local [2]mgl32.Vec3, m mgl32.Mat4) [2]mgl32.Vec3 {
	var lo, hi mgl32.Vec3
	for i := 0; i < 3; i++ {
		lo[i], hi[i] = m.At(i, 3), m.At(i, 3)
		for j := 0; j < 3; j++ {
			a := m.At(i, j) * local[0][j]
			b := m.At(i, j) * local[1][j]
			lo[i] += min(a, b)
			hi[i] += max(a, b)
		}
	}
	return [2]mgl32.Vec3{lo, hi}
}
