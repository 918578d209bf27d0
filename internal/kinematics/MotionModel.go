// Package kinematics defines the MotionModel interface that governs how a
// vehicle's speed moves toward its target each tick, along with the built-in
// implementation and the display unit conversions.
//
// Adding a new model requires only implementing MotionModel and registering
// it in the discriminator in the vehicle package. The movement state never
// needs to change.
package kinematics

// MotionModel is the speed contract every kinematics implementation must
// satisfy. Distances are in centimetres, speeds in cm/s and time in seconds.
type MotionModel interface {
	// VMax returns the cruising speed the vehicle accelerates toward.
	VMax() float64

	// WithVMax returns a copy of the model with a new cruising speed.
	WithVMax(v float64) MotionModel

	// Approach returns the speed after dt seconds of heading from v toward
	// target. It never overshoots target.
	Approach(v, target, dt float64) float64

	// BrakingDistance returns the distance needed to stop from v.
	BrakingDistance(v float64) float64
}
