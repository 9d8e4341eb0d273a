package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSRGBToLinear(t *testing.T) {
	assert.Equal(t, float32(0), SRGBToLinear(0))
	assert.Equal(t, float32(1), SRGBToLinear(1))
	assert.InDelta(t, 0.214041, SRGBToLinear(0.5), 1e-5)
	assert.InDelta(t, 0.0031308, SRGBToLinear(0.04045), 1e-6, "linear segment below the knee")
}

func TestRGBDecodesHex(t *testing.T) {
	assert.Equal(t, [4]float32{1, 1, 1, 1}, RGB(0xFFFFFF))

	sky := RGB(0x87CEEB)
	assert.InDelta(t, SRGBToLinear(0x87/255.0), sky[0], 1e-6)
	assert.Less(t, sky[0], float32(0x87)/255, "mid tones get darker once decoded")
	assert.Equal(t, float32(1), sky[3])
}

func TestTransparentColorCarriesOpacity(t *testing.T) {
	m := NewMaterial(RGB(0x0000FF), [3]float32{}, 0)
	m.Transparent = true
	m.Opacity = 0.1
	assert.Equal(t, float32(0.1), m.Color()[3])

	m.Transparent = false
	assert.Equal(t, float32(1), m.Color()[3])
}
