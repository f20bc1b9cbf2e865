package portals

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform places an entity in the world. The local forward axis is -Z, up is +Y.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3
}

func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

func TransformFromXYZ(x, y, z float32) Transform {
	t := IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

// LookingAt returns a copy rotated so that Forward points at target.
func (t Transform) LookingAt(target, up mgl32.Vec3) Transform {
	forward := target.Sub(t.Translation)
	if forward.Len() == 0 {
		return t
	}
	forward = forward.Normalize()
	right := forward.Cross(up)
	if right.Len() == 0 {
		return t
	}
	right = right.Normalize()
	trueUp := right.Cross(forward)

	rot := mgl32.Mat4FromCols(
		right.Vec4(0),
		trueUp.Vec4(0),
		forward.Mul(-1).Vec4(0),
		mgl32.Vec4{0, 0, 0, 1},
	)
	t.Rotation = mgl32.Mat4ToQuat(rot).Normalize()
	return t
}

// QuatFromEulerXYZ composes rotations about X, then Y, then Z (intrinsic), in radians.
func QuatFromEulerXYZ(x, y, z float32) mgl32.Quat {
	qx := mgl32.QuatRotate(x, mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(y, mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(z, mgl32.Vec3{0, 0, 1})
	return qx.Mul(qy).Mul(qz).Normalize()
}

func (t Transform) Matrix() mgl32.Mat4 {
	return mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z()).
		Mul4(t.Rotation.Mat4()).
		Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

func (t Transform) Forward() mgl32.Vec3 { return t.Rotation.Rotate(mgl32.Vec3{0, 0, -1}) }
func (t Transform) Right() mgl32.Vec3   { return t.Rotation.Rotate(mgl32.Vec3{1, 0, 0}) }
func (t Transform) Up() mgl32.Vec3      { return t.Rotation.Rotate(mgl32.Vec3{0, 1, 0}) }

func vec3(a [3]float32) mgl32.Vec3 { return mgl32.Vec3(a) }
