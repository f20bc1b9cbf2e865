package portals

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type Projection struct {
	FovY float32 // radians
	Near float32
	Far  float32
}

func DefaultProjection() Projection {
	return Projection{FovY: math.Pi / 4, Near: 0.1, Far: 1000}
}

// Matrix returns a perspective projection with depth mapped to [0, 1].
func (p Projection) Matrix(aspect float32) mgl32.Mat4 {
	return depthZeroToOne.Mul4(mgl32.Perspective(p.FovY, aspect, p.Near, p.Far))
}

// depthZeroToOne remaps clip-space z from [-w, w] to [0, w].
var depthZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera renders the scene from its entity's Transform. Without a
// RenderToTexture component it draws to its window's surface.
type Camera struct {
	Label      string
	Window     WindowId
	Projection Projection
	ClearColor [4]float32
	Active     bool
}

func NewCamera(label string) Camera {
	return Camera{
		Label:      label,
		Window:     PrimaryWindow,
		Projection: DefaultProjection(),
		ClearColor: [4]float32{0.4, 0.4, 0.4, 1},
		Active:     true,
	}
}

// ViewProjection combines the camera transform with its projection for a target of the given size.
func (c *Camera) ViewProjection(t Transform, size Extent) mgl32.Mat4 {
	aspect := float32(1)
	if size.Height > 0 {
		aspect = float32(size.Width) / float32(size.Height)
	}
	return c.Projection.Matrix(aspect).Mul4(t.Matrix().Inv())
}
