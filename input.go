package portals

type Key int

const (
	KeyW Key = iota
	KeyA
	KeyS
	KeyD
	KeyQ
	KeyE
	KeySpace
	KeyEscape
	KeyTab
	KeyEnter
	KeyShift
	KeyControl
	KeyF1
	MouseButtonLeft
	MouseButtonRight
	keyCount
)

// Input holds keyboard and mouse state sampled once per frame.
type Input struct {
	Pressed      [keyCount]bool
	JustPressed  [keyCount]bool
	JustReleased [keyCount]bool

	MouseX, MouseY           float64
	MouseDeltaX, MouseDeltaY float64
}

// SetKey records the key state for this frame and derives the edge flags.
func (input *Input) SetKey(key Key, down bool) {
	input.JustPressed[key] = down && !input.Pressed[key]
	input.JustReleased[key] = !down && input.Pressed[key]
	input.Pressed[key] = down
}

// MoveMouse records the cursor position; the delta is relative to the last call.
func (input *Input) MoveMouse(x, y float64) {
	input.MouseDeltaX = x - input.MouseX
	input.MouseDeltaY = y - input.MouseY
	input.MouseX = x
	input.MouseY = y
}
