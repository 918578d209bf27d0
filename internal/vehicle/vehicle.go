// Package vehicle drives a movement state through the road network: it
// decides where to go at the end of each road and carries the agent across
// intersections on generated transition curves.
package vehicle

import (
	"log"
	"math/rand"

	"github.com/AudomaroDuran/Ai27Simulator/internal/event"
	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/junction"
	"github.com/AudomaroDuran/Ai27Simulator/internal/movement"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
	"github.com/AudomaroDuran/Ai27Simulator/internal/transition"
)

// IntersectionFinder locates the intersection nearest to a point, strictly
// within radius. It returns nil when there is none.
type IntersectionFinder interface {
	NearestIntersection(p geom.Vec3, radius float64) *junction.Intersection
}

// State describes what a vehicle is doing.
type State string

const (
	StateStationary State = "stationary"
	StateFollowing  State = "following"
	StateCrossing   State = "crossing"
	StateStopped    State = "stopped"
)

// Config holds a vehicle's transition behaviour.
type Config struct {
	InitialSpeedKmh  float64
	AutoTransition   bool
	Mode             transition.Mode
	UseIntersections bool
	SearchRadius     float64
}

// DefaultConfig returns the stock vehicle behaviour.
func DefaultConfig() Config {
	return Config{
		InitialSpeedKmh:  60,
		AutoTransition:   true,
		Mode:             transition.Random,
		UseIntersections: true,
		SearchRadius:     1000,
	}
}

// Crossing is an intersection traversal in progress.
type Crossing struct {
	Intersection *junction.Intersection
	Target       *road.Segment
	Curve        spline.Curve
}

// Vehicle is an agent following roads. It is not safe for concurrent use.
type Vehicle struct {
	ID   string
	Name string
	Config

	Movement *movement.State
	Logger   *log.Logger

	// JunctionEntered carries the intersection name.
	JunctionEntered event.Delegate[string]
	// RoadChanged carries the new road ID.
	RoadChanged event.Delegate[string]

	finder   IntersectionFinder
	rng      *rand.Rand
	onEnd    func()
	crossing *Crossing
	pose     movement.Pose
	started  bool
}

// New creates a vehicle with its own movement state. finder may be nil, in
// which case only road adjacency is used. rng may be nil.
func New(id string, cfg Config, finder IntersectionFinder, rng *rand.Rand) *Vehicle {
	v := &Vehicle{
		ID:       id,
		Name:     id,
		Config:   cfg,
		Movement: movement.New(),
		finder:   finder,
		rng:      rng,
	}
	v.Movement.Sink = v
	v.Movement.SetMaxSpeedKmh(cfg.InitialSpeedKmh)
	v.onEnd = v.handleRoadEnd
	v.Movement.ReachedEnd.Add(func(event.Signal) { v.onEnd() })
	return v
}

// SetLogger routes the vehicle's and its movement state's logs to l.
func (v *Vehicle) SetLogger(l *log.Logger) {
	v.Logger = l
	v.Movement.Logger = l
}

func (v *Vehicle) logf(format string, args ...any) {
	if v.Logger != nil {
		v.Logger.Printf("vehicle %s: "+format, append([]any{v.ID}, args...)...)
	}
}

// SetWorldTransform implements movement.TransformSink.
func (v *Vehicle) SetWorldTransform(loc geom.Vec3, rot geom.Rotator) {
	v.pose = movement.Pose{Location: loc, Rotation: rot}
}

// Pose is the vehicle's world transform.
func (v *Vehicle) Pose() movement.Pose { return v.pose }

// Spawn places the vehicle on seg at distance d, stationary.
func (v *Vehicle) Spawn(seg *road.Segment, d float64) bool {
	v.abandonCrossing()
	v.started = false
	return v.Movement.Place(seg, d)
}

// Reassign moves the vehicle onto seg with the usual connection detection
// and blending, abandoning any crossing in progress.
func (v *Vehicle) Reassign(seg *road.Segment, maintainSpeed bool) movement.SwitchResult {
	v.abandonCrossing()
	res := v.Movement.SwitchToSegment(seg, maintainSpeed)
	if res.Performed {
		v.started = true
		v.RoadChanged.Broadcast(seg.ID)
	}
	return res
}

func (v *Vehicle) abandonCrossing() {
	if c := v.crossing; c != nil {
		c.Intersection.ReleaseCurve(c.Curve)
	}
	v.crossing = nil
	v.onEnd = v.handleRoadEnd
}

// Start sets off at the configured initial speed.
func (v *Vehicle) Start() bool {
	v.Movement.SetMaxSpeedKmh(v.InitialSpeedKmh)
	return v.Resume()
}

// Resume sets off again at the current cruising speed.
func (v *Vehicle) Resume() bool {
	if !v.Movement.Resume() {
		return false
	}
	v.started = true
	return true
}

// Tick advances the vehicle by dt seconds.
func (v *Vehicle) Tick(dt float64) { v.Movement.Advance(dt) }

// Crossing reports the intersection traversal in progress, if any.
func (v *Vehicle) Crossing() (Crossing, bool) {
	if v.crossing == nil {
		return Crossing{}, false
	}
	return *v.crossing, true
}

// State summarises what the vehicle is doing. A vehicle is stationary until
// it first sets off.
func (v *Vehicle) State() State {
	switch {
	case v.crossing != nil:
		return StateCrossing
	case v.Movement.Curve() == nil || !v.started:
		return StateStationary
	case v.Movement.IsMoving():
		return StateFollowing
	}
	return StateStopped
}

// handleRoadEnd picks the next road when the current one runs out: first
// through a nearby intersection, then through the road's own adjacency.
func (v *Vehicle) handleRoadEnd() {
	if !v.AutoTransition {
		return
	}
	current := v.Movement.Segment()
	if current == nil {
		return
	}

	if v.UseIntersections && v.finder != nil {
		if in := v.finder.NearestIntersection(current.EndPoint(), v.SearchRadius); in != nil {
			if v.enterIntersection(in, current) {
				return
			}
		}
	}

	next, ok := transition.Choose(current.RoadsAtEnd(), v.Mode, v.rng)
	if !ok {
		v.logf("dead end at road %s", current.ID)
		return
	}
	if v.Movement.SwitchToSegment(next, true).Performed {
		v.RoadChanged.Broadcast(next.ID)
	}
}

// enterIntersection starts a crossing of in. It reports false when no exit
// can be chosen or no curve can be built, leaving the caller to fall back
// to adjacency.
func (v *Vehicle) enterIntersection(in *junction.Intersection, current *road.Segment) bool {
	next, ok := in.ChooseNextRoad(current, v.Mode, v.rng)
	if !ok {
		return false
	}
	curve, err := in.GenerateTransitionCurve(current, next)
	if err != nil {
		v.logf("warning: %v", err)
		return false
	}

	v.crossing = &Crossing{Intersection: in, Target: next, Curve: curve}
	v.onEnd = v.handleCurveComplete
	v.Movement.SwitchToCurve(curve, true)
	v.JunctionEntered.Broadcast(in.Name)
	return true
}

// handleCurveComplete finishes a crossing and restores the road-end handler.
func (v *Vehicle) handleCurveComplete() {
	c := v.crossing
	v.crossing = nil
	v.onEnd = v.handleRoadEnd
	if c == nil {
		return
	}

	res := v.Movement.SwitchToSegment(c.Target, true)
	c.Intersection.ReleaseCurve(c.Curve)
	if res.Performed {
		v.RoadChanged.Broadcast(c.Target.ID)
	}
}
