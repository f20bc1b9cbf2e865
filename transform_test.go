package portals

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransform_Axes(t *testing.T) {
	tr := IdentityTransform()
	assert.Equal(t, mgl32.Vec3{0, 0, -1}, tr.Forward())
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, tr.Right())
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, tr.Up())
}

func TestTransform_LookingAt(t *testing.T) {
	tr := TransformFromXYZ(-2, 2.5, 5).LookingAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})

	want := mgl32.Vec3{2, -2.5, -5}.Normalize()
	fwd := tr.Forward()
	assert.InDeltaSlice(t, want[:], fwd[:], 1e-5, "forward %v, want %v", fwd, want)
	assert.InDelta(t, 0, tr.Right().Y(), 1e-5, "no roll")

	// Degenerate targets leave the rotation alone.
	same := tr.LookingAt(tr.Translation, mgl32.Vec3{0, 1, 0})
	assert.Equal(t, tr.Rotation, same.Rotation)
}

func TestTransform_Matrix(t *testing.T) {
	tr := TransformFromXYZ(1, 2, 3)
	tr.Scale = mgl32.Vec3{2, 2, 2}
	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.Equal(t, mgl32.Vec4{3, 2, 3, 1}, p)
}

func TestQuatFromEulerXYZ(t *testing.T) {
	q := QuatFromEulerXYZ(0, math.Pi/2, 0)
	v := q.Rotate(mgl32.Vec3{0, 0, -1})
	assert.InDelta(t, -1, v.X(), 1e-5, "got %v", v)
	assert.InDelta(t, 0, v.Y(), 1e-5, "got %v", v)
	assert.InDelta(t, 0, v.Z(), 1e-5, "got %v", v)
}

func TestCamera_ViewProjectionDepthRange(t *testing.T) {
	cam := NewCamera("main")
	tr := IdentityTransform()
	vp := cam.ViewProjection(tr, Extent{Width: 1280, Height: 720})

	near := vp.Mul4x1(mgl32.Vec4{0, 0, -cam.Projection.Near, 1})
	far := vp.Mul4x1(mgl32.Vec4{0, 0, -cam.Projection.Far, 1})
	assert.InDelta(t, 0, near.Z()/near.W(), 1e-4)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-4)
}

func TestMeshes(t *testing.T) {
	meshes := NewMeshes()
	a := meshes.Add(PlaneMesh(5))
	b := meshes.Add(PlaneMesh(5))
	assert.NotEqual(t, a, b)

	m, ok := meshes.Get(a)
	require.True(t, ok)
	assert.Equal(t, [3]float32{5, 0, 5}, m.Size)

	_, ok = meshes.Get(MeshHandle{})
	assert.False(t, ok)
}

func TestMesh_Geometry(t *testing.T) {
	plane := PlaneMesh(2).Geometry()
	require.Len(t, plane, 6)
	for _, v := range plane {
		assert.Equal(t, float32(0), v.Position[1])
		assert.InDelta(t, 1, math.Abs(float64(v.Position[0])), 1e-6)
	}

	// Front faces wind counter-clockwise when seen from +Y.
	a, b, c := mgl32.Vec3(plane[0].Position), mgl32.Vec3(plane[1].Position), mgl32.Vec3(plane[2].Position)
	normal := b.Sub(a).Cross(c.Sub(a))
	assert.Greater(t, normal.Y(), float32(0))

	assert.Len(t, CubeMesh(1).Geometry(), 36)
	assert.Len(t, BoxMesh(1, 2, 3).Geometry(), 36)
}
