package view

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// Camera describes the viewer. Camera space looks along +Z with +Y up and
// +X to the right.
type Camera struct {
	Position r3.Vector `json:"position"`

	// Rotation from camera space to world space. Its columns are the right,
	// up and forward directions in world space.
	Orientation mgl64.Mat3 `json:"orientation"`

	// Vertical field of view in radians.
	FOV float64 `json:"fov"`

	// Clip distances along the view direction.
	Near float64 `json:"near"`
	Far  float64 `json:"far"`

	// Viewport width over height.
	Aspect float64 `json:"aspect"`
}

// LookAt returns the orientation of a camera at eye looking at target.
func LookAt(eye, target, up r3.Vector) mgl64.Mat3 {
	forward := target.Sub(eye).Normalize()
	right := up.Cross(forward).Normalize()
	if right.Norm() == 0 {
		right = forward.Ortho()
	}
	trueUp := forward.Cross(right)

	return mgl64.Mat3FromCols(vec(right), vec(trueUp), vec(forward))
}

// OrientationFromQuat returns the camera orientation described by a unit
// quaternion.
func OrientationFromQuat(q mgl64.Quat) mgl64.Mat3 {
	return q.Normalize().Mat4().Mat3()
}

// Right returns the camera right direction in world space.
func (c Camera) Right() r3.Vector {
	return vector(c.Orientation.Col(0))
}

// Up returns the camera up direction in world space.
func (c Camera) Up() r3.Vector {
	return vector(c.Orientation.Col(1))
}

// Forward returns the view direction in world space.
func (c Camera) Forward() r3.Vector {
	return vector(c.Orientation.Col(2))
}

// ToWorld rotates a camera-space direction into world space.
func (c Camera) ToWorld(v r3.Vector) r3.Vector {
	return vector(c.Orientation.Mul3x1(vec(v)))
}

func vec(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func vector(v mgl64.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
