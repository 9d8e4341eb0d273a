package core

import "github.com/chewxy/math32"

// Material is the shading state of one object. Colours are linear RGBA in [0,1].
type Material struct {
	BaseColor         [4]float32
	Emissive          [3]float32
	EmissiveIntensity float32
	Opacity           float32
	Transparent       bool
	DoubleSided       bool
	// Unlit materials ignore scene lights and output BaseColor directly.
	Unlit bool
}

func NewMaterial(baseColor [4]float32, emissive [3]float32, intensity float32) Material {
	return Material{
		BaseColor:         baseColor,
		Emissive:          emissive,
		EmissiveIntensity: intensity,
		Opacity:           1.0,
	}
}

// DefaultMaterial is opaque lit white.
func DefaultMaterial() Material {
	return NewMaterial([4]float32{1, 1, 1, 1}, [3]float32{}, 0)
}

// RGB converts an sRGB 0xRRGGBB value to an opaque linear colour.
func RGB(hex uint32) [4]float32 {
	return [4]float32{
		SRGBToLinear(float32((hex>>16)&0xff) / 255),
		SRGBToLinear(float32((hex>>8)&0xff) / 255),
		SRGBToLinear(float32(hex&0xff) / 255),
		1,
	}
}

// SRGBToLinear decodes one sRGB channel in [0,1].
func SRGBToLinear(v float32) float32 {
	if v <= 0.04045 {
		return v / 12.92
	}
	return math32.Pow((v+0.055)/1.055, 2.4)
}

// Color returns the colour the shader should receive: alpha carries Opacity
// for transparent materials.
func (m Material) Color() [4]float32 {
	c := m.BaseColor
	if m.Transparent {
		c[3] = m.Opacity
	}
	return c
}
