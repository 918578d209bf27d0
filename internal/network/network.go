// Package network owns the road segments and intersections of a scenario,
// builds them from their serialisable form and answers the spatial queries
// vehicles and views need.
package network

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/paulmach/orb"
	"github.com/samber/lo"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/junction"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
)

var (
	ErrDuplicateRoad         = errors.New("duplicate road id")
	ErrDuplicateIntersection = errors.New("duplicate intersection name")
	ErrUnknownRoad           = errors.New("unknown road")
)

// Network is a registry of roads and intersections. Roads and intersections
// keep the order they were added in. It is built once and then only read.
type Network struct {
	Logger *log.Logger

	roads         []*road.Segment
	roadMap       map[string]*road.Segment
	intersections []*junction.Intersection
	junctionMap   map[string]*junction.Intersection
}

// New returns an empty network.
func New() *Network {
	return &Network{
		roadMap:     make(map[string]*road.Segment),
		junctionMap: make(map[string]*junction.Intersection),
	}
}

// Build constructs a network from data. Every road is created before any
// connection is resolved, so connections may refer forward. logger may be
// nil.
func Build(data Data, logger *log.Logger) (*Network, error) {
	n := New()
	n.Logger = logger

	for _, rd := range data.Roads {
		seg, err := newSegment(rd)
		if err != nil {
			return nil, err
		}
		seg.Logger = logger
		if err := n.AddRoad(seg); err != nil {
			return nil, err
		}
	}
	for _, rd := range data.Roads {
		seg := n.roadMap[rd.ID]
		for _, l := range rd.Connections {
			peer, err := n.lookup(l.Road)
			if err != nil {
				return nil, fmt.Errorf("road %q connection: %w", rd.ID, err)
			}
			seg.ConnectToRoad(peer, l.AtStart)
		}
	}

	for i, jd := range data.Intersections {
		in, err := n.newIntersection(i, jd)
		if err != nil {
			return nil, err
		}
		in.Logger = logger
		if err := n.AddIntersection(in); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func newSegment(rd Road) (*road.Segment, error) {
	if rd.ID == "" {
		return nil, errors.New("road with empty id")
	}
	if len(rd.Points) < 2 {
		return nil, fmt.Errorf("road %q: needs at least 2 points, got %d", rd.ID, len(rd.Points))
	}
	if len(rd.Tangents) > 0 && len(rd.Tangents) != len(rd.Points) {
		return nil, fmt.Errorf("road %q: %d tangents for %d points", rd.ID, len(rd.Tangents), len(rd.Points))
	}

	c := spline.New(rd.Origin.Vec())
	for _, p := range rd.Points {
		c.AddPoint(p.Vec(), spline.Local)
	}
	for i, t := range rd.Tangents {
		c.SetTangent(i, t.Vec(), spline.Local)
	}
	c.Rebuild()

	seg := road.New(rd.ID, c)
	if rd.Name != "" {
		seg.Name = rd.Name
	}
	if rd.Width > 0 {
		seg.Width = rd.Width
	}
	if rd.Lanes > 0 {
		seg.Lanes = rd.Lanes
	}
	if rd.SpeedLimit > 0 {
		seg.SpeedLimit = rd.SpeedLimit
	}
	seg.Highway = rd.Highway
	seg.RiskZone = rd.RiskZone
	return seg, nil
}

func (n *Network) newIntersection(i int, jd Intersection) (*junction.Intersection, error) {
	name := jd.Name
	if name == "" {
		name = fmt.Sprintf("Intersection_%d", i)
	}
	kind, err := junction.ParseKind(jd.Type)
	if err != nil {
		return nil, fmt.Errorf("intersection %q: %w", name, err)
	}

	in := junction.New(name, jd.Location.Vec())
	in.Kind = kind
	if jd.Radius > 0 {
		in.Radius = jd.Radius
	}
	for _, l := range jd.Connections {
		dir, err := junction.ParseDirection(l.Direction)
		if err != nil {
			return nil, fmt.Errorf("intersection %q road %q: %w", name, l.Road, err)
		}
		seg, err := n.lookup(l.Road)
		if err != nil {
			return nil, fmt.Errorf("intersection %q: %w", name, err)
		}
		if err := in.AddConnection(seg, l.AtStart, dir); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (n *Network) lookup(id string) (*road.Segment, error) {
	seg, ok := n.roadMap[id]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownRoad, id)
	}
	return seg, nil
}

func (n *Network) logf(format string, args ...any) {
	if n.Logger != nil {
		n.Logger.Printf(format, args...)
	}
}

// AddRoad registers seg. Road IDs must be unique.
func (n *Network) AddRoad(seg *road.Segment) error {
	if seg == nil {
		return junction.ErrNilSegment
	}
	if _, exists := n.roadMap[seg.ID]; exists {
		return fmt.Errorf("%w %q", ErrDuplicateRoad, seg.ID)
	}
	n.roads = append(n.roads, seg)
	n.roadMap[seg.ID] = seg
	return nil
}

// AddIntersection registers in. Intersection names must be unique.
func (n *Network) AddIntersection(in *junction.Intersection) error {
	if _, exists := n.junctionMap[in.Name]; exists {
		return fmt.Errorf("%w %q", ErrDuplicateIntersection, in.Name)
	}
	n.intersections = append(n.intersections, in)
	n.junctionMap[in.Name] = in
	return nil
}

// Road looks up a road by ID.
func (n *Network) Road(id string) (*road.Segment, bool) {
	seg, ok := n.roadMap[id]
	return seg, ok
}

// Roads returns every road in insertion order.
func (n *Network) Roads() []*road.Segment {
	return append([]*road.Segment(nil), n.roads...)
}

// Intersection looks up an intersection by name.
func (n *Network) Intersection(name string) (*junction.Intersection, bool) {
	in, ok := n.junctionMap[name]
	return in, ok
}

// Intersections returns every intersection in insertion order.
func (n *Network) Intersections() []*junction.Intersection {
	return append([]*junction.Intersection(nil), n.intersections...)
}

// NearestIntersection returns the intersection whose centre is closest to p
// and strictly less than radius away, or nil.
func (n *Network) NearestIntersection(p geom.Vec3, radius float64) *junction.Intersection {
	var best *junction.Intersection
	bestDist := radius
	for _, in := range n.intersections {
		if d := geom.Distance(p, in.Location()); d < bestDist {
			best, bestDist = in, d
		}
	}
	return best
}

// Successors lists the roads a vehicle leaving the end of seg can take: the
// exits of the intersection within radius of its end when there are any,
// otherwise the road's own end adjacency. This is the choice a vehicle makes
// with intersections enabled.
func (n *Network) Successors(seg *road.Segment, radius float64) []*road.Segment {
	if seg == nil {
		return nil
	}
	if in := n.ExitJunction(seg, radius); in != nil {
		return lo.Uniq(in.OutgoingRoads(seg))
	}
	return seg.RoadsAtEnd()
}

// ExitJunction returns the intersection a vehicle at the end of seg would
// cross, or nil when it would follow road adjacency instead.
func (n *Network) ExitJunction(seg *road.Segment, radius float64) *junction.Intersection {
	if seg == nil {
		return nil
	}
	in := n.NearestIntersection(seg.EndPoint(), radius)
	if in == nil {
		return nil
	}
	if _, ok := in.FindConnection(seg); !ok {
		return nil
	}
	if len(in.OutgoingRoads(seg)) == 0 {
		return nil
	}
	return in
}

// Snap is a point projected onto the nearest road.
type Snap struct {
	Road     *road.Segment
	Point    geom.Vec3
	Distance float64 // along the road
	Offset   float64 // from the query point to Point, in the ground plane
}

// SnapToRoad projects p onto every road and returns the closest projection.
// It reports false when the network has no roads.
func (n *Network) SnapToRoad(p geom.Vec3) (Snap, bool) {
	best := Snap{Offset: math.Inf(1)}
	for _, seg := range n.roads {
		if seg.Curve() == nil {
			continue
		}
		pt, d := seg.ClosestPoint(p)
		if off := geom.Distance2D(p, pt); off < best.Offset {
			best = Snap{Road: seg, Point: pt, Distance: d, Offset: off}
		}
	}
	return best, best.Road != nil
}

// SnapOnRoad is SnapToRoad restricted to points that lie on the snapped
// road's surface, widened by tolerance.
func (n *Network) SnapOnRoad(p geom.Vec3, tolerance float64) (Snap, bool) {
	s, ok := n.SnapToRoad(p)
	if !ok || !s.Road.IsOnRoad(p, tolerance) {
		return Snap{}, false
	}
	return s, true
}

// Bounds is the ground-plane bounding box of every road and intersection.
// An empty network has an empty bound at the origin.
func (n *Network) Bounds() orb.Bound {
	var b orb.Bound
	first := true
	extend := func(o orb.Bound) {
		if first {
			b, first = o, false
			return
		}
		b = b.Union(o)
	}
	for _, seg := range n.roads {
		if seg.Curve() != nil {
			extend(seg.Bound())
		}
	}
	for _, in := range n.intersections {
		loc := in.Location()
		extend(orb.Point{loc[0], loc[1]}.Bound().Pad(in.Radius))
	}
	return b
}
