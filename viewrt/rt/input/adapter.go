package input

import (
	"github.com/chewxy/math32"
)

// DefaultClickSlop is how far, in pixels, the pointer may travel between
// press and release and still count as a click.
const DefaultClickSlop float32 = 4

// Adapter converts raw callbacks into messages passed to emit. It is driven
// from the windowing thread only.
type Adapter struct {
	ClickSlop float32

	emit   func(Message)
	view   Viewport
	x, y   float32
	known  bool
	down   bool
	button Button
	mods   Modifier
	downX  float32
	downY  float32
	travel float32
}

func NewAdapter(emit func(Message)) *Adapter {
	return &Adapter{ClickSlop: DefaultClickSlop, emit: emit}
}

func (a *Adapter) Viewport() Viewport { return a.view }

// SetSize records the current container size and emits a Resize.
func (a *Adapter) SetSize(w, h int) {
	a.view = Viewport{Width: w, Height: h}
	a.emit(Resize{Width: w, Height: h})
}

func (a *Adapter) CursorMoved(x, y float32) {
	if !a.known {
		a.x, a.y, a.known = x, y, true
	}
	dx, dy := x-a.x, y-a.y
	a.x, a.y = x, y
	if a.down {
		a.travel = max(a.travel, math32.Hypot(x-a.downX, y-a.downY))
	}
	a.emit(PointerMove{
		X: x, Y: y, DX: dx, DY: dy,
		Dragging: a.down,
		Button:   a.button,
		Mods:     a.mods,
		View:     a.view,
	})
}

// ButtonChanged handles press and release. Only one button is tracked at a
// time; presses of other buttons during a drag are ignored.
func (a *Adapter) ButtonChanged(b Button, pressed bool, mods Modifier) {
	if pressed {
		if a.down {
			return
		}
		a.down, a.button, a.mods = true, b, mods
		a.downX, a.downY, a.travel = a.x, a.y, 0
		a.emit(PointerDown{X: a.x, Y: a.y, Button: b, Mods: mods, View: a.view})
		return
	}
	if !a.down || b != a.button {
		return
	}
	a.down = false
	a.emit(PointerUp{X: a.x, Y: a.y, Button: b, View: a.view})
	if b == ButtonLeft && a.travel < a.ClickSlop {
		a.emit(Click{X: a.x, Y: a.y, View: a.view})
	}
}

func (a *Adapter) Scrolled(notches float32) {
	if notches == 0 {
		return
	}
	a.emit(Scroll{Notches: notches, View: a.view})
}
