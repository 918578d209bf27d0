package vehicle

import (
	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/movement"
)

// Log is a point-in-time snapshot of a vehicle.
type Log struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name,omitempty" yaml:"name,omitempty"`
	Road     string             `json:"road,omitempty" yaml:"road,omitempty"`
	Junction string             `json:"junction,omitempty" yaml:"junction,omitempty"`
	State    State              `json:"state" yaml:"state"`
	Moving   bool               `json:"moving" yaml:"moving"`
	Distance float64            `json:"distance" yaml:"distance"`
	Progress float64            `json:"progress" yaml:"progress"` // percent of the current curve
	Speed    float64            `json:"speed" yaml:"speed"`       // cm/s
	SpeedKmh float64            `json:"speed_kmh" yaml:"speed_kmh"`
	Stopping float64            `json:"stopping_distance" yaml:"stopping_distance"` // cm to brake to a halt
	Location geom.Point         `json:"location" yaml:"location"`
	Rotation geom.Rotator       `json:"rotation" yaml:"rotation"`
	Blend    movement.BlendKind `json:"blend" yaml:"blend"`
}

// Snapshot returns the vehicle's current state.
func (v *Vehicle) Snapshot() Log {
	l := Log{
		ID:       v.ID,
		Name:     v.Name,
		State:    v.State(),
		Moving:   v.Movement.IsMoving(),
		Distance: v.Movement.Distance(),
		Progress: v.Movement.ProgressPercent(),
		Speed:    v.Movement.Speed(),
		SpeedKmh: v.Movement.SpeedKmh(),
		Stopping: v.Movement.StoppingDistance(),
		Location: geom.PointOf(v.pose.Location),
		Rotation: v.pose.Rotation,
		Blend:    v.Movement.ActiveBlend(),
	}
	if seg := v.Movement.Segment(); seg != nil {
		l.Road = seg.ID
	}
	if v.crossing != nil {
		l.Junction = v.crossing.Intersection.Name
		l.Road = v.crossing.Target.ID
	}
	return l
}
