package portals

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Flycam marks the camera driven by keyboard and mouse.
type Flycam struct{}

type FlycamOptions struct {
	Yaw         float32 // degrees
	Pitch       float32 // degrees
	Sensitivity float32
	Speed       float32
	BoostSpeed  float32
	Enabled     bool

	wasFocused bool
}

type FlycamModule struct {
	Config FlycamConfig
}

func (m FlycamModule) Install(app *App, cmd *Commands) {
	cfg := m.Config.withDefaults()
	cmd.AddResources(&FlycamOptions{
		Sensitivity: cfg.Sensitivity,
		Speed:       cfg.Speed,
		BoostSpeed:  cfg.BoostSpeed,
		Enabled:     true,
	})

	app.UseSystem(System(FlycamCursorSystem).InStage(Update).Label("flycam_cursor"))
	app.UseSystem(System(FlycamMovementSystem).InStage(Update).After("flycam_cursor"))
	app.UseSystem(System(FlycamLookSystem).InStage(Update).After("flycam_cursor"))
}

// FlycamMovementSystem moves along the camera's own axes: W/S forward, A/D
// sideways, Space/Control up and down. Shift boosts the speed.
func FlycamMovementSystem(cmd *Commands, input *Input, t *Time, options *FlycamOptions) {
	if !options.Enabled {
		return
	}

	axis := func(pos, neg Key) float32 {
		var v float32
		if input.Pressed[pos] {
			v++
		}
		if input.Pressed[neg] {
			v--
		}
		return v
	}
	move := mgl32.Vec3{axis(KeyD, KeyA), axis(KeyW, KeyS), axis(KeySpace, KeyControl)}
	if move.Len() == 0 {
		return
	}

	speed := options.Speed
	if input.Pressed[KeyShift] {
		speed = options.BoostSpeed
	}
	move = move.Normalize().Mul(speed * t.DeltaSeconds())

	MakeQuery2[Transform, Flycam](cmd).Map(func(eid EntityId, tr *Transform, _ *Flycam) bool {
		diff := tr.Forward().Mul(move.Y()).
			Add(tr.Right().Mul(move.X())).
			Add(tr.Up().Mul(move.Z()))
		tr.Translation = tr.Translation.Add(diff)
		return true
	})
}

// FlycamLookSystem turns the camera with the mouse. Pitch is clamped short of
// straight up and down.
func FlycamLookSystem(cmd *Commands, input *Input, t *Time, options *FlycamOptions) {
	if !options.Enabled {
		return
	}
	dx, dy := float32(input.MouseDeltaX), float32(input.MouseDeltaY)
	if dx == 0 && dy == 0 {
		return
	}

	dt := t.DeltaSeconds()
	options.Yaw -= dx * options.Sensitivity * dt
	options.Pitch += dy * options.Sensitivity * dt
	options.Pitch = mgl32.Clamp(options.Pitch, -89.0, 89.9)

	rotation := mgl32.QuatRotate(mgl32.DegToRad(options.Yaw), mgl32.Vec3{0, 1, 0}).
		Mul(mgl32.QuatRotate(mgl32.DegToRad(options.Pitch), mgl32.Vec3{-1, 0, 0}))

	MakeQuery2[Transform, Flycam](cmd).Map(func(eid EntityId, tr *Transform, _ *Flycam) bool {
		tr.Rotation = rotation
		return true
	})
}

// FlycamCursorSystem locks the cursor while the primary window has focus, and
// Escape toggles the controller together with the cursor lock.
func FlycamCursorSystem(input *Input, windows *Windows, options *FlycamOptions) {
	w, ok := windows.Primary()
	if !ok {
		return
	}

	if w.Focused != options.wasFocused {
		w.SetCursorLock(w.Focused)
		options.wasFocused = w.Focused
	}

	if input.JustPressed[KeyEscape] {
		options.Enabled = !options.Enabled
		w.SetCursorLock(!w.CursorLocked)
	}
}
