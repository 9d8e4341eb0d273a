// Package input turns raw pointer and window callbacks into discrete messages
// so the engine never depends on a windowing toolkit's event model.
package input

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

type Button uint8

const (
	ButtonLeft Button = iota
	ButtonRight
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	}
	return fmt.Sprintf("Button(%d)", uint8(b))
}

type Modifier uint8

const (
	ModShift Modifier = 1 << iota
	ModControl
	ModAlt
)

func (m Modifier) Has(flag Modifier) bool { return m&flag != 0 }

// Message is one of PointerDown, PointerMove, PointerUp, Click, Scroll or Resize.
type Message interface {
	isMessage()
}

// Viewport is the container size in pixels when the event happened.
type Viewport struct {
	Width  int
	Height int
}

type PointerDown struct {
	X, Y   float32
	Button Button
	Mods   Modifier
	View   Viewport
}

// PointerMove reports cursor motion. Button and Dragging are set while a
// button is held.
type PointerMove struct {
	X, Y     float32
	DX, DY   float32
	Dragging bool
	Button   Button
	Mods     Modifier
	View     Viewport
}

type PointerUp struct {
	X, Y   float32
	Button Button
	View   Viewport
}

// Click is a primary-button press and release without meaningful movement.
type Click struct {
	X, Y float32
	View Viewport
}

// Scroll carries wheel notches; positive values scroll up (zoom in).
type Scroll struct {
	Notches float32
	View    Viewport
}

type Resize struct {
	Width  int
	Height int
}

func (PointerDown) isMessage() {}
func (PointerMove) isMessage() {}
func (PointerUp) isMessage()   {}
func (Click) isMessage()       {}
func (Scroll) isMessage()      {}
func (Resize) isMessage()      {}

// ToNDC maps a pixel position inside a w x h viewport to normalized device
// coordinates, +Y up. It reports false for an empty viewport.
func ToNDC(x, y float32, w, h int) (mgl32.Vec2, bool) {
	if w <= 0 || h <= 0 {
		return mgl32.Vec2{}, false
	}
	return mgl32.Vec2{
		x/float32(w)*2 - 1,
		-(y/float32(h))*2 + 1,
	}, true
}

func (v Viewport) NDC(x, y float32) (mgl32.Vec2, bool) {
	return ToNDC(x, y, v.Width, v.Height)
}
