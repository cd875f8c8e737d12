package applier

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowState is the shared GLFW window resource.
type WindowState struct {
	windowGlfw *glfw.Window
	Width      int
	Height     int
	Title      string
}

// CursorState is the authoritative simulation-side cursor position in
// window coordinates. (0,0) until the first cursor event.
type CursorState struct {
	X float64
	Y float64
}

// Input carries the camera movement keys sampled once per frame.
type Input struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
}

// WindowModule creates the GLFW window and publishes WindowState,
// CursorState and Input resources. Its poll system runs in Prelude so every
// later stage sees this frame's events.
type WindowModule struct {
	Width  int
	Height int
	Title  string
}

func NewWindowModule(width, height int, title string) WindowModule {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Applier"
	}
	return WindowModule{Width: width, Height: height, Title: title}
}

func (mod WindowModule) Install(app *App, cmd *Commands) {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // no OpenGL context, the surface is wgpu's
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(mod.Width, mod.Height, mod.Title, nil, nil)
	if err != nil {
		panic(err)
	}

	cmd.AddResources(
		&WindowState{
			windowGlfw: win,
			Width:      mod.Width,
			Height:     mod.Height,
			Title:      mod.Title,
		},
		&CursorState{},
		&Input{},
	)

	app.UseSystem(
		System(windowEventsSystem).
			InStage(Prelude),
	)
}

func windowEventsSystem(state *WindowState, cursor *CursorState, input *Input, cmd *Commands) {
	if state.windowGlfw == nil {
		return
	}
	if state.windowGlfw.ShouldClose() {
		cmd.Quit()
		return
	}
	glfw.PollEvents()

	cursor.X, cursor.Y = state.windowGlfw.GetCursorPos()

	w, h := state.windowGlfw.GetFramebufferSize()
	state.Width = w
	state.Height = h

	input.Forward = state.windowGlfw.GetKey(glfw.KeyW) == glfw.Press
	input.Backward = state.windowGlfw.GetKey(glfw.KeyS) == glfw.Press
	input.Left = state.windowGlfw.GetKey(glfw.KeyA) == glfw.Press
	input.Right = state.windowGlfw.GetKey(glfw.KeyD) == glfw.Press
}
