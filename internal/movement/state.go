// Package movement advances a single agent along a curve by arc length and
// masks discontinuities with short rotation or position blends whenever the
// agent is moved onto a different curve.
package movement

import (
	"log"
	"math"

	"github.com/AudomaroDuran/Ai27Simulator/internal/event"
	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/kinematics"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
)

// SpeedNotifyThresholdKmh is the change in speed that triggers SpeedChanged.
const SpeedNotifyThresholdKmh = 5.0

// Pose is a world transform.
type Pose struct {
	Location geom.Vec3    `json:"location"`
	Rotation geom.Rotator `json:"rotation"`
}

// TransformSink receives the agent's world transform once per tick and after
// every curve switch.
type TransformSink interface {
	SetWorldTransform(loc geom.Vec3, rot geom.Rotator)
}

// State is the per-agent movement component. It is driven by Advance from a
// single goroutine; it shares no mutable state with other agents.
type State struct {
	Model     kinematics.MotionModel
	AutoMove  bool
	LoopAtEnd bool

	Logger *log.Logger
	Sink   TransformSink

	// ReachedEnd fires once when the agent arrives at the end of a
	// non-looping curve.
	ReachedEnd event.Delegate[event.Signal]
	// SpeedChanged carries the new speed in km/h.
	SpeedChanged event.Delegate[float64]

	segment  *road.Segment
	curve    spline.Curve
	distance float64
	speed    float64
	moving   bool

	// endSignalled suppresses repeat ReachedEnd broadcasts while parked.
	endSignalled    bool
	lastNotifiedKmh float64

	pose Pose
	rot  rotationBlend
	pos  positionBlend
}

// New returns a movement state with the default motion model.
func New() *State {
	return &State{
		Model:    kinematics.DefaultConstant(),
		AutoMove: true,
	}
}

func (s *State) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// Segment is the road being followed, or nil on a raw curve.
func (s *State) Segment() *road.Segment { return s.segment }

// Curve is the curve being followed.
func (s *State) Curve() spline.Curve { return s.curve }

// Distance is the arc-length position on the current curve.
func (s *State) Distance() float64 { return s.distance }

// Speed is the current speed in cm/s.
func (s *State) Speed() float64 { return s.speed }

// SpeedKmh is the current speed in km/h.
func (s *State) SpeedKmh() float64 { return kinematics.InternalToKmh(s.speed) }

// MaxSpeed is the cruising speed in cm/s.
func (s *State) MaxSpeed() float64 { return s.Model.VMax() }

// IsMoving reports whether the agent is heading for its cruising speed.
func (s *State) IsMoving() bool { return s.moving }

// IsFollowing reports whether the agent is moving along a curve.
func (s *State) IsFollowing() bool { return s.curve != nil && s.moving }

// Pose is the last published world transform.
func (s *State) Pose() Pose { return s.pose }

// ActiveBlend reports which blend, if any, currently owns the pose.
func (s *State) ActiveBlend() BlendKind {
	switch {
	case s.pos.active:
		return BlendPosition
	case s.rot.active:
		return BlendRotation
	}
	return BlendNone
}

// ProgressPercent is the share of the current curve already travelled.
func (s *State) ProgressPercent() float64 {
	if s.curve == nil || s.curve.Length() <= 0 {
		return 0
	}
	return s.distance / s.curve.Length() * 100
}

// RemainingDistance is the arc length left on the current curve.
func (s *State) RemainingDistance() float64 {
	if s.curve == nil {
		return 0
	}
	return math.Max(0, s.curve.Length()-s.distance)
}

// StoppingDistance is how far the agent would travel braking from its
// current speed.
func (s *State) StoppingDistance() float64 { return s.Model.BrakingDistance(s.speed) }

// SetMaxSpeed sets the cruising speed, clamped to [0, MaxSpeedLimit].
func (s *State) SetMaxSpeed(v float64) {
	s.Model = s.Model.WithVMax(v)
}

// SetMaxSpeedKmh sets the cruising speed in km/h.
func (s *State) SetMaxSpeedKmh(kmh float64) {
	s.SetMaxSpeed(kinematics.KmhToInternal(kmh))
}

// SetCurrentSpeed sets the instantaneous speed, clamped to [0, MaxSpeed].
func (s *State) SetCurrentSpeed(v float64) {
	s.speed = geom.Clamp(v, 0, s.MaxSpeed())
}

// Stop makes the agent decelerate to a halt.
func (s *State) Stop() { s.moving = false }

// Resume makes the agent accelerate again. It reports false when there is no
// curve to follow.
func (s *State) Resume() bool {
	if s.curve == nil {
		s.logf("warning: movement: resume without a curve ignored")
		return false
	}
	s.moving = true
	s.endSignalled = false
	return true
}

// Place puts the agent on seg at distance d without any blending, as when it
// first spawns. The agent does not start moving.
func (s *State) Place(seg *road.Segment, d float64) bool {
	if seg == nil || seg.Curve() == nil {
		s.logf("warning: movement: cannot place agent on a missing road")
		return false
	}
	s.segment = seg
	s.curve = seg.Curve()
	s.distance = geom.Clamp(d, 0, s.curve.Length())
	s.rot, s.pos = rotationBlend{}, positionBlend{}
	s.endSignalled = false
	s.applyCurvePose()
	s.publish()
	return true
}

// SetDistance moves the agent along its current curve.
func (s *State) SetDistance(d float64) {
	if s.curve == nil {
		return
	}
	s.distance = geom.Clamp(d, 0, s.curve.Length())
	if s.distance < s.curve.Length() {
		s.endSignalled = false
	}
	if !s.pos.active {
		s.applyCurvePose()
		s.publish()
	}
}

// Advance runs one simulation tick of dt seconds.
func (s *State) Advance(dt float64) {
	if dt <= 0 || s.curve == nil || !s.AutoMove {
		return
	}

	target := 0.0
	if s.moving {
		target = s.Model.VMax()
	}
	s.speed = s.Model.Approach(s.speed, target, dt)
	s.distance += s.speed * dt

	length := s.curve.Length()
	if s.distance >= length {
		if s.LoopAtEnd && length > 0 {
			s.distance = 0
		} else {
			s.distance = length
			s.speed = 0
			s.moving = false
			if !s.endSignalled {
				s.endSignalled = true
				s.ReachedEnd.Broadcast(event.Signal{})
			}
			return
		}
	}

	if !s.pos.active {
		s.applyCurvePose()
	}
	if s.rot.active && !s.pos.active {
		s.advanceRotationBlend(dt)
	}
	if s.pos.active {
		s.advancePositionBlend(dt)
	}
	s.publish()
	s.notifySpeed()
}

func (s *State) applyCurvePose() {
	s.pose = Pose{
		Location: s.curve.LocationAtDistance(s.distance, spline.World),
		Rotation: s.curve.RotationAtDistance(s.distance, spline.World),
	}
}

func (s *State) publish() {
	if s.Sink != nil {
		s.Sink.SetWorldTransform(s.pose.Location, s.pose.Rotation)
	}
}

func (s *State) notifySpeed() {
	kmh := s.SpeedKmh()
	if math.Abs(kmh-s.lastNotifiedKmh) > SpeedNotifyThresholdKmh {
		s.lastNotifiedKmh = kmh
		s.SpeedChanged.Broadcast(kmh)
	}
}
