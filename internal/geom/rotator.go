package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Rotator is an orientation expressed as pitch (about Y), yaw (about Z) and
// roll (about X) in degrees. Yaw 0 faces +X.
type Rotator struct {
	Pitch float64 `json:"pitch" yaml:"pitch"`
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Roll  float64 `json:"roll" yaml:"roll"`
}

// RotatorFromDirection builds the orientation that faces along dir with no roll.
// A zero direction yields the zero rotator.
func RotatorFromDirection(dir Vec3) Rotator {
	if dir.Len() < 1e-8 {
		return Rotator{}
	}
	yaw := math.Atan2(dir[1], dir[0]) * radToDeg
	pitch := math.Atan2(dir[2], math.Hypot(dir[0], dir[1])) * radToDeg
	return Rotator{Pitch: pitch, Yaw: yaw}
}

// Quat converts r to a unit quaternion.
func (r Rotator) Quat() mgl64.Quat {
	sp, cp := math.Sincos(r.Pitch * degToRad / 2)
	sy, cy := math.Sincos(r.Yaw * degToRad / 2)
	sr, cr := math.Sincos(r.Roll * degToRad / 2)
	return mgl64.Quat{
		W: cr*cp*cy + sr*sp*sy,
		V: mgl64.Vec3{
			cr*sp*sy - sr*cp*cy,
			-cr*sp*cy - sr*cp*sy,
			cr*cp*sy - sr*sp*cy,
		},
	}
}

// RotatorFromQuat is the inverse of Rotator.Quat, including the gimbal-lock
// cases at ±90° pitch.
func RotatorFromQuat(q mgl64.Quat) Rotator {
	x, y, z, w := q.V[0], q.V[1], q.V[2], q.W
	const threshold = 0.4999995

	singularity := z*x - w*y
	yawY := 2 * (w*z + x*y)
	yawX := 1 - 2*(y*y+z*z)
	yaw := math.Atan2(yawY, yawX) * radToDeg

	switch {
	case singularity < -threshold:
		return Rotator{Pitch: -90, Yaw: yaw, Roll: NormalizeAxis(-yaw - 2*math.Atan2(x, w)*radToDeg)}
	case singularity > threshold:
		return Rotator{Pitch: 90, Yaw: yaw, Roll: NormalizeAxis(yaw - 2*math.Atan2(x, w)*radToDeg)}
	}
	return Rotator{
		Pitch: math.Asin(2*singularity) * radToDeg,
		Yaw:   yaw,
		Roll:  math.Atan2(-2*(w*x+y*z), 1-2*(x*x+y*y)) * radToDeg,
	}
}

// SlerpRotator spherically interpolates between a and b along the shortest arc.
func SlerpRotator(a, b Rotator, alpha float64) Rotator {
	qa, qb := a.Quat(), b.Quat()
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	return RotatorFromQuat(mgl64.QuatSlerp(qa, qb, alpha).Normalize())
}

// Equals reports whether a and b describe the same orientation within tol
// degrees on each axis.
func (r Rotator) Equals(o Rotator, tol float64) bool {
	return math.Abs(NormalizeAxis(r.Pitch-o.Pitch)) <= tol &&
		math.Abs(NormalizeAxis(r.Yaw-o.Yaw)) <= tol &&
		math.Abs(NormalizeAxis(r.Roll-o.Roll)) <= tol
}
