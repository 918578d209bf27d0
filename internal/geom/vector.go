// Package geom holds the vector, rotation and scalar helpers shared by the
// road network, the movement model and the map view.
//
// Distances are in centimetres and angles in degrees throughout.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a world-space position or direction.
type Vec3 = mgl64.Vec3

// Point is the serialisable form of a Vec3 used in scenario files.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Vec converts p to a Vec3.
func (p Point) Vec() Vec3 { return Vec3{p.X, p.Y, p.Z} }

// PointOf converts v to its serialisable form.
func PointOf(v Vec3) Point { return Point{X: v[0], Y: v[1], Z: v[2]} }

// Distance returns the euclidean distance between a and b.
func Distance(a, b Vec3) float64 { return a.Sub(b).Len() }

// Distance2D returns the distance between a and b in the ground plane.
func Distance2D(a, b Vec3) float64 { return math.Hypot(a[0]-b[0], a[1]-b[1]) }

// SafeNormal returns v scaled to unit length, or the zero vector when v is too
// short to normalise.
func SafeNormal(v Vec3) Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return Vec3{}
	}
	return v.Mul(1 / l)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b Vec3, alpha float64) Vec3 {
	return a.Add(b.Sub(a).Mul(alpha))
}

// NearlyEqual reports whether a and b are within tol of each other on every axis.
func NearlyEqual(a, b Vec3, tol float64) bool {
	return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol && math.Abs(a[2]-b[2]) <= tol
}
