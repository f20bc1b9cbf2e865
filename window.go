package portals

import (
	"errors"
	"fmt"
)

// ErrViewportUnresolved is returned when a camera's window does not exist or
// has no drawable area (minimized).
var ErrViewportUnresolved = errors.New("viewport unresolved")

type WindowId uint32

const PrimaryWindow WindowId = 0

type Window struct {
	Title          string
	PhysicalWidth  int
	PhysicalHeight int
	Focused        bool
	CursorLocked   bool
	CursorVisible  bool
}

// SetCursorLock locks the cursor to the window and hides it, or releases it.
func (w *Window) SetCursorLock(locked bool) {
	w.CursorLocked = locked
	w.CursorVisible = !locked
}

// Windows is the registry of live windows, keyed by WindowId.
type Windows struct {
	windows map[WindowId]*Window
}

func NewWindows() *Windows {
	return &Windows{windows: make(map[WindowId]*Window)}
}

func (ws *Windows) Add(id WindowId, w *Window) {
	ws.windows[id] = w
}

func (ws *Windows) Remove(id WindowId) {
	delete(ws.windows, id)
}

func (ws *Windows) Get(id WindowId) (*Window, bool) {
	w, ok := ws.windows[id]
	return w, ok
}

func (ws *Windows) Primary() (*Window, bool) {
	return ws.Get(PrimaryWindow)
}

// ViewportSize returns the physical pixel size of the window the camera is attached to.
func (ws *Windows) ViewportSize(cam *Camera) (Extent, error) {
	w, ok := ws.windows[cam.Window]
	if !ok {
		return Extent{}, fmt.Errorf("camera %q: window %d: %w", cam.Label, cam.Window, ErrViewportUnresolved)
	}
	if w.PhysicalWidth <= 0 || w.PhysicalHeight <= 0 {
		return Extent{}, fmt.Errorf("camera %q: window %d is %dx%d: %w",
			cam.Label, cam.Window, w.PhysicalWidth, w.PhysicalHeight, ErrViewportUnresolved)
	}
	return Extent{Width: uint32(w.PhysicalWidth), Height: uint32(w.PhysicalHeight)}, nil
}
