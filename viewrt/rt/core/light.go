package core

import "github.com/go-gl/mathgl/mgl32"

type LightKind uint8

const (
	LightAmbient LightKind = iota
	LightDirectional
)

// Light is a white-or-tinted light. Directional lights shine from Position
// toward the origin.
type Light struct {
	Kind      LightKind
	Color     [3]float32
	Intensity float32
	Position  mgl32.Vec3
}

// Direction is the normalised vector a directional light travels along.
func (l Light) Direction() mgl32.Vec3 {
	if l.Position.Len() == 0 {
		return mgl32.Vec3{0, -1, 0}
	}
	return l.Position.Mul(-1).Normalize()
}

type Fog struct {
	Color [3]float32
	Near  float32
	Far   float32
}
