// Package junction models named intersections joining several road segments
// and synthesises the short transition curves vehicles use to cross them.
package junction

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"slices"

	"github.com/samber/lo"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
	"github.com/AudomaroDuran/Ai27Simulator/internal/transition"
)

// DefaultRadius controls the tangent magnitude of generated curves.
const DefaultRadius = 500.0

var (
	ErrNilSegment   = errors.New("nil road segment")
	ErrNotConnected = errors.New("road is not connected to intersection")
)

// ConnectionPoint binds one end of a road segment to the intersection. Angle
// and Point are derived by UpdateConnectionPoints.
type ConnectionPoint struct {
	Segment   *road.Segment
	AtStart   bool
	Direction Direction

	Angle float64   // bearing from the intersection centre, [0, 360)
	Point geom.Vec3 // world position of the bound end
}

// Intersection is a named junction. Its connection list stays sorted by
// angle after every mutation that goes through its methods.
type Intersection struct {
	Name   string
	Radius float64
	Kind   Kind

	Logger *log.Logger

	location    geom.Vec3
	connections []ConnectionPoint
	curves      []*spline.Spline
}

// New returns an intersection at location with the default radius and kind.
func New(name string, location geom.Vec3) *Intersection {
	return &Intersection{
		Name:     name,
		Radius:   DefaultRadius,
		Kind:     FourWay,
		location: location,
	}
}

func (in *Intersection) logf(format string, args ...any) {
	if in.Logger != nil {
		in.Logger.Printf(format, args...)
	}
}

// Location returns the intersection centre.
func (in *Intersection) Location() geom.Vec3 { return in.location }

// SetLocation moves the intersection and rederives connection angles.
func (in *Intersection) SetLocation(p geom.Vec3) {
	in.location = p
	in.UpdateConnectionPoints()
}

// AddConnection binds seg at its start or end and rederives the connection
// list.
func (in *Intersection) AddConnection(seg *road.Segment, atStart bool, dir Direction) error {
	if seg == nil {
		return fmt.Errorf("intersection %q: %w", in.Name, ErrNilSegment)
	}
	in.connections = append(in.connections, ConnectionPoint{Segment: seg, AtStart: atStart, Direction: dir})
	in.UpdateConnectionPoints()
	return nil
}

// Connections returns a copy of the angle-sorted connection list.
func (in *Intersection) Connections() []ConnectionPoint {
	return slices.Clone(in.connections)
}

// UpdateConnectionPoints resolves each connection's world point and bearing,
// then sorts the list by ascending angle. Entries without a segment keep
// their previous derived values.
func (in *Intersection) UpdateConnectionPoints() {
	for i := range in.connections {
		cp := &in.connections[i]
		if cp.Segment == nil {
			continue
		}
		if cp.AtStart {
			cp.Point = cp.Segment.StartPoint()
		} else {
			cp.Point = cp.Segment.EndPoint()
		}
		cp.Angle = geom.BearingDegrees(in.location, cp.Point)
	}
	slices.SortStableFunc(in.connections, func(a, b ConnectionPoint) int {
		switch {
		case a.Angle < b.Angle:
			return -1
		case a.Angle > b.Angle:
			return 1
		}
		return 0
	})
}

// connectionFor returns the first connection bound to seg, for in-place
// edits.
func (in *Intersection) connectionFor(seg *road.Segment) *ConnectionPoint {
	if seg == nil {
		return nil
	}
	for i := range in.connections {
		if in.connections[i].Segment == seg {
			return &in.connections[i]
		}
	}
	return nil
}

// FindConnection returns a copy of the first connection bound to seg.
func (in *Intersection) FindConnection(seg *road.Segment) (ConnectionPoint, bool) {
	if cp := in.connectionFor(seg); cp != nil {
		return *cp, true
	}
	return ConnectionPoint{}, false
}

// SetDirection changes the traffic direction of seg's connection.
func (in *Intersection) SetDirection(seg *road.Segment, dir Direction) bool {
	cp := in.connectionFor(seg)
	if cp == nil {
		return false
	}
	cp.Direction = dir
	return true
}

// OutgoingRoads lists the roads a vehicle arriving on incoming may leave by.
// A road that is not connected here has no exits.
func (in *Intersection) OutgoingRoads(incoming *road.Segment) []*road.Segment {
	if in.connectionFor(incoming) == nil {
		in.logf("warning: intersection %q: road %s is not connected", in.Name, segmentID(incoming))
		return nil
	}
	return lo.FilterMap(in.connections, func(cp ConnectionPoint, _ int) (*road.Segment, bool) {
		return cp.Segment, cp.Segment != nil && cp.Segment != incoming && cp.Direction.AllowsExit()
	})
}

// ChooseNextRoad picks one of incoming's outgoing roads with mode.
func (in *Intersection) ChooseNextRoad(incoming *road.Segment, mode transition.Mode, rng *rand.Rand) (*road.Segment, bool) {
	return transition.Choose(in.OutgoingRoads(incoming), mode, rng)
}

// GenerateTransitionCurve builds a fresh two-point curve from from's
// connection point to to's. End tangents follow the direction of travel and
// are scaled by the intersection radius. The caller owns the curve until it
// is handed back through ReleaseCurve.
func (in *Intersection) GenerateTransitionCurve(from, to *road.Segment) (*spline.Spline, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("intersection %q: %w", in.Name, ErrNilSegment)
	}
	fromCP := in.connectionFor(from)
	if fromCP == nil {
		return nil, fmt.Errorf("intersection %q: from road %s: %w", in.Name, from.ID, ErrNotConnected)
	}
	toCP := in.connectionFor(to)
	if toCP == nil {
		return nil, fmt.Errorf("intersection %q: to road %s: %w", in.Name, to.ID, ErrNotConnected)
	}

	// Travel leaves "from" through its bound end and enters "to" through its
	// bound end; a start binding runs against the curve direction.
	var startTan, endTan geom.Vec3
	if fromCP.AtStart {
		startTan = from.TangentAt(0).Mul(-1)
	} else {
		startTan = from.TangentAt(from.Length())
	}
	if toCP.AtStart {
		endTan = to.TangentAt(0)
	} else {
		endTan = to.TangentAt(to.Length()).Mul(-1)
	}

	c := spline.New(geom.Vec3{})
	c.AddPoint(fromCP.Point, spline.World)
	c.AddPoint(toCP.Point, spline.World)
	c.SetTangent(0, geom.SafeNormal(startTan).Mul(in.Radius), spline.World)
	c.SetTangent(1, geom.SafeNormal(endTan).Mul(in.Radius), spline.World)
	c.Rebuild()

	in.curves = append(in.curves, c)
	return c, nil
}

// ReleaseCurve disposes of a generated curve. It reports false for curves
// this intersection does not track.
func (in *Intersection) ReleaseCurve(c spline.Curve) bool {
	idx := slices.IndexFunc(in.curves, func(s *spline.Spline) bool { return spline.Curve(s) == c })
	if idx < 0 {
		return false
	}
	in.curves = slices.Delete(in.curves, idx, idx+1)
	return true
}

// ActiveCurves is the number of generated curves not yet released.
func (in *Intersection) ActiveCurves() int { return len(in.curves) }

func segmentID(s *road.Segment) string {
	if s == nil {
		return "<nil>"
	}
	return s.ID
}
