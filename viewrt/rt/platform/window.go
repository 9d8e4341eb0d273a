// Package platform owns the GLFW window and forwards its callbacks to an
// input.Adapter.
package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/airspace"
	"github.com/gekko3d/airspace/viewrt/rt/input"
)

type Window struct {
	*glfw.Window
	adapter  *input.Adapter
	attached bool
	cursors  map[glfw.StandardCursor]*glfw.Cursor
}

// Open initialises GLFW and creates a resizable window without a client API
// so a WebGPU surface can be attached. Must be called from the main goroutine.
func Open(cfg airspace.WindowConfig) (*Window, error) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	return &Window{Window: win}, nil
}

// FramebufferSize is the drawable size in pixels.
func (w *Window) FramebufferSize() (int, int) {
	return w.GetFramebufferSize()
}

// Attach routes window callbacks into a. Cursor positions are rescaled to
// framebuffer pixels so they share units with Resize messages.
func (w *Window) Attach(a *input.Adapter) {
	w.adapter = a
	w.attached = true

	fbw, fbh := w.GetFramebufferSize()
	a.SetSize(fbw, fbh)

	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		a.SetSize(width, height)
	})
	w.SetCursorPosCallback(func(win *glfw.Window, xpos, ypos float64) {
		sx, sy := w.pixelScale()
		a.CursorMoved(float32(xpos)*sx, float32(ypos)*sy)
	})
	w.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		b, ok := mapButton(button)
		if !ok || action == glfw.Repeat {
			return
		}
		a.ButtonChanged(b, action == glfw.Press, mapMods(mods))
	})
	w.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		a.Scrolled(float32(yoff))
	})
}

// Detach removes every input callback, including a key callback set by the
// caller. Safe to call twice.
func (w *Window) Detach() {
	if !w.attached {
		return
	}
	w.attached = false
	w.SetFramebufferSizeCallback(nil)
	w.SetCursorPosCallback(nil)
	w.SetMouseButtonCallback(nil)
	w.SetScrollCallback(nil)
	w.SetKeyCallback(nil)
	w.adapter = nil
}

// SetDeploymentCursor shows a crosshair while placing devices and a hand
// otherwise.
func (w *Window) SetDeploymentCursor(deploying bool) {
	shape := cursorFor(deploying)
	c, ok := w.cursors[shape]
	if !ok {
		if w.cursors == nil {
			w.cursors = make(map[glfw.StandardCursor]*glfw.Cursor)
		}
		c = glfw.CreateStandardCursor(shape)
		w.cursors[shape] = c
	}
	w.SetCursor(c)
}

// Close detaches callbacks, destroys the window and terminates GLFW.
func (w *Window) Close() {
	w.Detach()
	w.SetCursor(nil)
	for shape, c := range w.cursors {
		c.Destroy()
		delete(w.cursors, shape)
	}
	w.Destroy()
	glfw.Terminate()
}

func (w *Window) pixelScale() (float32, float32) {
	ww, wh := w.GetSize()
	fw, fh := w.GetFramebufferSize()
	if ww <= 0 || wh <= 0 {
		return 1, 1
	}
	return float32(fw) / float32(ww), float32(fh) / float32(wh)
}

func cursorFor(deploying bool) glfw.StandardCursor {
	if deploying {
		return glfw.CrosshairCursor
	}
	return glfw.HandCursor
}

func mapButton(b glfw.MouseButton) (input.Button, bool) {
	switch b {
	case glfw.MouseButtonLeft:
		return input.ButtonLeft, true
	case glfw.MouseButtonRight:
		return input.ButtonRight, true
	case glfw.MouseButtonMiddle:
		return input.ButtonMiddle, true
	}
	return 0, false
}

func mapMods(m glfw.ModifierKey) input.Modifier {
	var out input.Modifier
	if m&glfw.ModShift != 0 {
		out |= input.ModShift
	}
	if m&glfw.ModControl != 0 {
		out |= input.ModControl
	}
	if m&glfw.ModAlt != 0 {
		out |= input.ModAlt
	}
	return out
}
