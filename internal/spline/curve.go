// Package spline implements the parametric curve that road segments and
// junction transitions are built on: a cubic Hermite spline queried by
// arc length rather than by its raw input key.
package spline

import "github.com/AudomaroDuran/Ai27Simulator/internal/geom"

// Space selects whether positions are expressed relative to the curve's
// origin or in world coordinates.
type Space int

const (
	Local Space = iota
	World
)

// Curve is the read-only arc-length capability consumed by roads, junctions
// and movement. All queries are side-effect free.
type Curve interface {
	// Length is the total arc length; zero for empty or single-point curves.
	Length() float64
	// LocationAtDistance returns the position d along the curve. d is clamped
	// to [0, Length].
	LocationAtDistance(d float64, space Space) geom.Vec3
	RotationAtDistance(d float64, space Space) geom.Rotator
	// TangentAtDistance returns the unnormalised derivative at d.
	TangentAtDistance(d float64, space Space) geom.Vec3
	// FindClosestInputKey projects a world position onto the curve and
	// returns its input key.
	FindClosestInputKey(world geom.Vec3) float64
	DistanceAtInputKey(key float64) float64
}

// MutableCurve is a Curve whose control points can be edited. Edits take
// effect after Rebuild.
type MutableCurve interface {
	Curve
	ClearPoints()
	AddPoint(pos geom.Vec3, space Space)
	SetTangent(index int, tangent geom.Vec3, space Space)
	Rebuild()
}

// ClosestPoint returns the world position on c nearest to world and its
// distance along c.
func ClosestPoint(c Curve, world geom.Vec3) (geom.Vec3, float64) {
	key := c.FindClosestInputKey(world)
	d := c.DistanceAtInputKey(key)
	return c.LocationAtDistance(d, World), d
}
