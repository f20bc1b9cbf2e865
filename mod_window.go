package portals

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowModule opens the primary GLFW window and keeps the Windows and Input
// resources in sync with it.
type WindowModule struct {
	Config WindowConfig
}

type platformWindows struct {
	handles    map[WindowId]*glfw.Window
	cursorMode map[WindowId]int
}

var keyToGlfw = map[Key]glfw.Key{
	KeyW:       glfw.KeyW,
	KeyA:       glfw.KeyA,
	KeyS:       glfw.KeyS,
	KeyD:       glfw.KeyD,
	KeyQ:       glfw.KeyQ,
	KeyE:       glfw.KeyE,
	KeySpace:   glfw.KeySpace,
	KeyEscape:  glfw.KeyEscape,
	KeyTab:     glfw.KeyTab,
	KeyEnter:   glfw.KeyEnter,
	KeyShift:   glfw.KeyLeftShift,
	KeyControl: glfw.KeyLeftControl,
	KeyF1:      glfw.KeyF1,
}

var mouseToGlfw = map[Key]glfw.MouseButton{
	MouseButtonLeft:  glfw.MouseButtonLeft,
	MouseButtonRight: glfw.MouseButtonRight,
}

func (m WindowModule) Install(app *App, cmd *Commands) {
	cfg := m.Config.withDefaults()

	// GLFW must be driven from the main thread.
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	handle, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		panic(err)
	}

	fbWidth, fbHeight := handle.GetFramebufferSize()
	windows := NewWindows()
	windows.Add(PrimaryWindow, &Window{
		Title:          cfg.Title,
		PhysicalWidth:  fbWidth,
		PhysicalHeight: fbHeight,
		CursorVisible:  true,
	})

	cmd.AddResources(
		windows,
		&Input{},
		&platformWindows{
			handles:    map[WindowId]*glfw.Window{PrimaryWindow: handle},
			cursorMode: map[WindowId]int{PrimaryWindow: glfw.CursorNormal},
		},
	)

	app.UseSystem(System(windowEventsSystem).InStage(Prelude))
	app.UseSystem(System(windowCursorSystem).InStage(PostUpdate))
}

func windowEventsSystem(cmd *Commands, pw *platformWindows, windows *Windows, input *Input) {
	glfw.PollEvents()

	for id, handle := range pw.handles {
		w, ok := windows.Get(id)
		if !ok {
			continue
		}
		if handle.ShouldClose() && id == PrimaryWindow {
			cmd.Exit()
		}

		w.PhysicalWidth, w.PhysicalHeight = handle.GetFramebufferSize()
		w.Focused = handle.GetAttrib(glfw.Focused) == glfw.True
	}

	primary, ok := pw.handles[PrimaryWindow]
	if !ok {
		return
	}
	for key, glfwKey := range keyToGlfw {
		input.SetKey(key, primary.GetKey(glfwKey) == glfw.Press)
	}
	for key, btn := range mouseToGlfw {
		input.SetKey(key, primary.GetMouseButton(btn) == glfw.Press)
	}
	input.MoveMouse(primary.GetCursorPos())
}

// windowCursorSystem applies cursor lock and visibility requested during the frame.
func windowCursorSystem(pw *platformWindows, windows *Windows) {
	for id, handle := range pw.handles {
		w, ok := windows.Get(id)
		if !ok {
			continue
		}
		mode := glfw.CursorNormal
		switch {
		case w.CursorLocked:
			mode = glfw.CursorDisabled
		case !w.CursorVisible:
			mode = glfw.CursorHidden
		}
		if pw.cursorMode[id] != mode {
			handle.SetInputMode(glfw.CursorMode, mode)
			pw.cursorMode[id] = mode
		}
	}
}

// CloseWindows destroys the windows opened by WindowModule and shuts GLFW down.
func CloseWindows(app *App) {
	pw, ok := Resource[platformWindows](app)
	if !ok {
		return
	}
	for id, handle := range pw.handles {
		handle.Destroy()
		delete(pw.handles, id)
	}
	glfw.Terminate()
}
