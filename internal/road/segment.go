// Package road defines the road segment: one curve plus road metadata and an
// adjacency list to neighbouring segments.
package road

import (
	"log"
	"math"

	"github.com/samber/lo"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
)

// Defaults applied by New.
const (
	DefaultName        = "Road"
	DefaultWidth       = 800.0 // cm
	DefaultLanes       = 2
	DefaultSpeedLimit  = 80.0 // km/h
	DefaultOnRoadSlack = 500.0
)

// Connection is an explicit, end-tagged link from one segment to another.
// AtStart refers to the owning segment's start, not the peer's.
type Connection struct {
	Peer    *Segment
	AtStart bool
}

// Segment is a drivable road: an owned curve with metadata and adjacency.
// Adjacency is edited during network construction and only read while the
// simulation runs.
type Segment struct {
	ID         string
	Name       string
	Width      float64 // cm
	Lanes      int
	SpeedLimit float64 // km/h
	Highway    bool
	RiskZone   bool

	Logger *log.Logger

	curve       spline.Curve
	connections []Connection
	linked      []*Segment // untagged, symmetric
}

// New returns a segment with default metadata that owns curve.
func New(id string, curve spline.Curve) *Segment {
	return &Segment{
		ID:         id,
		Name:       DefaultName,
		Width:      DefaultWidth,
		Lanes:      DefaultLanes,
		SpeedLimit: DefaultSpeedLimit,
		curve:      curve,
	}
}

func (s *Segment) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// Curve returns the owned curve, or nil when none is bound.
func (s *Segment) Curve() spline.Curve {
	if s == nil {
		return nil
	}
	return s.curve
}

// SetCurve replaces the owned curve.
func (s *Segment) SetCurve(c spline.Curve) { s.curve = c }

// Length returns the arc length of the road, or 0 without a curve.
func (s *Segment) Length() float64 {
	if s.Curve() == nil {
		return 0
	}
	return s.curve.Length()
}

// LocationAt returns the world position d along the road.
func (s *Segment) LocationAt(d float64) geom.Vec3 {
	if s.Curve() == nil {
		return geom.Vec3{}
	}
	return s.curve.LocationAtDistance(d, spline.World)
}

// RotationAt returns the world orientation d along the road.
func (s *Segment) RotationAt(d float64) geom.Rotator {
	if s.Curve() == nil {
		return geom.Rotator{}
	}
	return s.curve.RotationAtDistance(d, spline.World)
}

// TangentAt returns the curve derivative d along the road.
func (s *Segment) TangentAt(d float64) geom.Vec3 {
	if s.Curve() == nil {
		return geom.Vec3{}
	}
	return s.curve.TangentAtDistance(d, spline.World)
}

// LocationAtTime returns the position at normalised time t in [0,1].
func (s *Segment) LocationAtTime(t float64) geom.Vec3 {
	return s.LocationAt(geom.Clamp(t, 0, 1) * s.Length())
}

// StartPoint is the world position at distance 0.
func (s *Segment) StartPoint() geom.Vec3 { return s.LocationAt(0) }

// EndPoint is the world position at the end of the road.
func (s *Segment) EndPoint() geom.Vec3 { return s.LocationAt(s.Length()) }

// ClosestPoint projects p onto the road and returns the point and its
// distance along the road.
func (s *Segment) ClosestPoint(p geom.Vec3) (geom.Vec3, float64) {
	if s.Curve() == nil {
		return geom.Vec3{}, 0
	}
	return spline.ClosestPoint(s.curve, p)
}

// IsOnRoad reports whether p lies within half the road width plus tolerance
// of the centreline, seen from above. Elevation is ignored.
func (s *Segment) IsOnRoad(p geom.Vec3, tolerance float64) bool {
	if s.Curve() == nil {
		return false
	}
	closest, _ := s.ClosestPoint(p)
	return geom.Distance2D(p, closest) <= s.Width/2+tolerance
}

// ConnectToRoad links other at this segment's start (atStart) or end. The
// peer is mirrored into both segments' untagged adjacency. Nil peers,
// self-links and duplicates are ignored and reported as false.
func (s *Segment) ConnectToRoad(other *Segment, atStart bool) bool {
	if other == nil {
		s.logf("warning: road %s: connect to nil road ignored", s.ID)
		return false
	}
	if other == s {
		s.logf("warning: road %s: cannot connect to itself", s.ID)
		return false
	}
	if lo.ContainsBy(s.connections, func(c Connection) bool { return c.Peer == other && c.AtStart == atStart }) {
		return false
	}
	s.connections = append(s.connections, Connection{Peer: other, AtStart: atStart})
	s.link(other)
	other.link(s)
	return true
}

func (s *Segment) link(other *Segment) {
	if !lo.Contains(s.linked, other) {
		s.linked = append(s.linked, other)
	}
}

// Connections returns a copy of the explicit, tagged connections.
func (s *Segment) Connections() []Connection {
	return append([]Connection(nil), s.connections...)
}

// ConnectedRoads returns every peer in the untagged adjacency set.
func (s *Segment) ConnectedRoads() []*Segment {
	return append([]*Segment(nil), s.linked...)
}

// RoadsAtStart returns peers explicitly connected at this segment's start.
func (s *Segment) RoadsAtStart() []*Segment {
	return lo.FilterMap(s.connections, func(c Connection, _ int) (*Segment, bool) {
		return c.Peer, c.AtStart
	})
}

// RoadsAtEnd returns peers explicitly connected at this segment's end, then
// any untagged peer with no explicit connection, which is assumed to sit at
// the end.
func (s *Segment) RoadsAtEnd() []*Segment {
	out := lo.FilterMap(s.connections, func(c Connection, _ int) (*Segment, bool) {
		return c.Peer, !c.AtStart
	})
	for _, peer := range s.linked {
		tagged := lo.ContainsBy(s.connections, func(c Connection) bool { return c.Peer == peer })
		if !tagged && !lo.Contains(out, peer) {
			out = append(out, peer)
		}
	}
	return out
}

// MeshSlice is one sampled piece of the road surface between two distances.
type MeshSlice struct {
	StartDistance float64
	EndDistance   float64
	StartLeft     geom.Vec3
	StartRight    geom.Vec3
	EndLeft       geom.Vec3
	EndRight      geom.Vec3
}

// DefaultMeshStep is the sampling interval used when none is given.
const DefaultMeshStep = 1000.0

// MeshSegments cuts the road surface into floor(length/step) equal slices,
// at least one, so no slice is shorter than step unless the road is.
func (s *Segment) MeshSegments(step float64) []MeshSlice {
	if step <= 0 {
		step = DefaultMeshStep
	}
	length := s.Length()
	if length <= 0 {
		return nil
	}
	count := max(1, int(math.Floor(length/step)))
	slices := make([]MeshSlice, 0, count)
	for i := 0; i < count; i++ {
		d0 := float64(i) / float64(count) * length
		d1 := float64(i+1) / float64(count) * length
		l0, r0 := s.edgesAt(d0)
		l1, r1 := s.edgesAt(d1)
		slices = append(slices, MeshSlice{
			StartDistance: d0, EndDistance: d1,
			StartLeft: l0, StartRight: r0,
			EndLeft: l1, EndRight: r1,
		})
	}
	return slices
}

// edgesAt returns the left and right road edges at distance d.
func (s *Segment) edgesAt(d float64) (geom.Vec3, geom.Vec3) {
	c := s.LocationAt(d)
	t := geom.SafeNormal(s.TangentAt(d))
	n := geom.Vec3{-t[1], t[0], 0}.Mul(s.Width / 2)
	return c.Add(n), c.Sub(n)
}
