package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"

	"github.com/gekko3d/airspace/viewrt/rt/input"
)

func TestMapButton(t *testing.T) {
	b, ok := mapButton(glfw.MouseButtonRight)
	assert.True(t, ok)
	assert.Equal(t, input.ButtonRight, b)

	_, ok = mapButton(glfw.MouseButton4)
	assert.False(t, ok)
}

func TestMapMods(t *testing.T) {
	m := mapMods(glfw.ModShift | glfw.ModAlt)
	assert.True(t, m.Has(input.ModShift))
	assert.True(t, m.Has(input.ModAlt))
	assert.False(t, m.Has(input.ModControl))
	assert.Zero(t, mapMods(0))
}

func TestCursorFor(t *testing.T) {
	assert.Equal(t, glfw.CrosshairCursor, cursorFor(true))
	assert.Equal(t, glfw.HandCursor, cursorFor(false))
}
