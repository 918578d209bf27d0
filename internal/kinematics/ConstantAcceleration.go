package kinematics

import (
	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
)

// ConstantModelName is the discriminator string for the Constant model.
const ConstantModelName = "constant"

// Defaults for ConstantAcceleration, in cm/s and cm/s².
const (
	DefaultVMax = 8000.0
	DefaultAAcc = 500.0
	DefaultADcc = 1000.0
)

// ConstantAcceleration implements MotionModel with fixed, linear
// acceleration and deceleration rates. This is the default model.
//
// Discriminator: "model": "constant"
type ConstantAcceleration struct {
	AAcc    float64 `json:"a_acc" yaml:"a_acc"` // cm/s²
	ADcc    float64 `json:"a_dcc" yaml:"a_dcc"` // cm/s², positive
	VMaxVal float64 `json:"v_max" yaml:"v_max"` // cm/s
}

// DefaultConstant returns the stock vehicle model.
func DefaultConstant() ConstantAcceleration {
	return ConstantAcceleration{AAcc: DefaultAAcc, ADcc: DefaultADcc, VMaxVal: DefaultVMax}
}

func (c ConstantAcceleration) VMax() float64 { return c.VMaxVal }

func (c ConstantAcceleration) WithVMax(v float64) MotionModel {
	c.VMaxVal = ClampSpeed(v)
	return c
}

// Approach moves v toward target at AAcc when speeding up and ADcc when
// slowing down. A non-positive rate reaches target immediately.
func (c ConstantAcceleration) Approach(v, target, dt float64) float64 {
	if target > v {
		return geom.InterpConstantTo(v, target, dt, c.AAcc)
	}
	return geom.InterpConstantTo(v, target, dt, c.ADcc)
}

// BrakingDistance is v²/2·ADcc. A non-positive rate stops on the spot, as
// in Approach.
func (c ConstantAcceleration) BrakingDistance(v float64) float64 {
	if c.ADcc <= 0 {
		return 0
	}
	return (v * v) / (2 * c.ADcc)
}
