package network

import (
	"bytes"
	"log"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/junction"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
)

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func straight(id string, from, to geom.Point) Road {
	return Road{ID: id, Points: []geom.Point{from, to}}
}

// crossroads is a four-arm junction at the origin with two incoming and two
// outgoing arms, plus a spur joined to the end of east_out.
func crossroads() Data {
	spur := straight("spur", pt(10000, 0), pt(10000, 5000))
	spur.Name = "Spur Rd"
	spur.Width = 600
	spur.Lanes = 1
	spur.SpeedLimit = 30
	spur.RiskZone = true

	east := straight("east_out", pt(600, 0), pt(10000, 0))
	east.Connections = []RoadLink{{Road: "spur"}}

	return Data{
		Roads: []Road{
			straight("west_in", pt(-10000, 0), pt(-600, 0)),
			east,
			straight("north_out", pt(0, 600), pt(0, 10000)),
			straight("south_in", pt(0, -10000), pt(0, -600)),
			spur,
		},
		Intersections: []Intersection{{
			Name:     "Main & 1st",
			Location: pt(0, 0),
			Connections: []JunctionLink{
				{Road: "west_in", Direction: "incoming"},
				{Road: "east_out", AtStart: true, Direction: "outgoing"},
				{Road: "north_out", AtStart: true, Direction: "outgoing"},
				{Road: "south_in", Direction: "incoming"},
			},
		}},
	}
}

func mustBuild(t *testing.T, data Data) *Network {
	t.Helper()
	n, err := Build(data, nil)
	require.NoError(t, err)
	return n
}

func TestBuild(t *testing.T) {
	t.Parallel()
	n := mustBuild(t, crossroads())

	ids := make([]string, 0)
	for _, r := range n.Roads() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"west_in", "east_out", "north_out", "south_in", "spur"}, ids)

	west, ok := n.Road("west_in")
	require.True(t, ok)
	assert.Equal(t, road.DefaultName, west.Name)
	assert.Equal(t, road.DefaultWidth, west.Width)
	assert.InDelta(t, 9400, west.Length(), 1e-6)

	spur, _ := n.Road("spur")
	assert.Equal(t, "Spur Rd", spur.Name)
	assert.Equal(t, 600.0, spur.Width)
	assert.Equal(t, 1, spur.Lanes)
	assert.Equal(t, 30.0, spur.SpeedLimit)
	assert.True(t, spur.RiskZone)

	east, _ := n.Road("east_out")
	assert.Equal(t, []*road.Segment{spur}, east.RoadsAtEnd())
	assert.Contains(t, spur.ConnectedRoads(), east)

	in, ok := n.Intersection("Main & 1st")
	require.True(t, ok)
	assert.Equal(t, junction.FourWay, in.Kind)
	assert.Equal(t, junction.DefaultRadius, in.Radius)
	assert.Len(t, in.Connections(), 4)
}

func TestBuildOriginAndTangents(t *testing.T) {
	t.Parallel()
	n := mustBuild(t, Data{Roads: []Road{{
		ID:       "curved",
		Origin:   pt(1000, 1000),
		Points:   []geom.Point{pt(0, 0), pt(5000, 0)},
		Tangents: []geom.Point{pt(5000, 5000), pt(5000, -5000)},
	}}})
	seg, _ := n.Road("curved")
	assert.True(t, geom.NearlyEqual(geom.Vec3{1000, 1000, 0}, seg.StartPoint(), 1e-6))
	assert.True(t, geom.NearlyEqual(geom.Vec3{6000, 1000, 0}, seg.EndPoint(), 1e-6))
	assert.Greater(t, seg.Length(), 5000.0)
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		data    Data
		target  error
		message string
	}{
		{
			name:   "duplicate road",
			data:   Data{Roads: []Road{straight("a", pt(0, 0), pt(1, 0)), straight("a", pt(0, 0), pt(1, 0))}},
			target: ErrDuplicateRoad,
		},
		{
			name: "unknown connection",
			data: Data{Roads: []Road{{
				ID: "a", Points: []geom.Point{pt(0, 0), pt(1, 0)},
				Connections: []RoadLink{{Road: "ghost"}},
			}}},
			target: ErrUnknownRoad,
		},
		{
			name: "unknown intersection road",
			data: Data{
				Roads:         []Road{straight("a", pt(0, 0), pt(1, 0))},
				Intersections: []Intersection{{Name: "x", Connections: []JunctionLink{{Road: "ghost"}}}},
			},
			target: ErrUnknownRoad,
		},
		{
			name: "duplicate intersection",
			data: Data{
				Roads:         []Road{straight("a", pt(0, 0), pt(1, 0))},
				Intersections: []Intersection{{Name: "x"}, {Name: "x"}},
			},
			target: ErrDuplicateIntersection,
		},
		{
			name:    "too few points",
			data:    Data{Roads: []Road{{ID: "a", Points: []geom.Point{pt(0, 0)}}}},
			message: "needs at least 2 points",
		},
		{
			name: "tangent count",
			data: Data{Roads: []Road{{
				ID: "a", Points: []geom.Point{pt(0, 0), pt(1, 0)},
				Tangents: []geom.Point{pt(1, 0)},
			}}},
			message: "1 tangents for 2 points",
		},
		{
			name: "bad direction",
			data: Data{
				Roads:         []Road{straight("a", pt(0, 0), pt(1, 0))},
				Intersections: []Intersection{{Name: "x", Connections: []JunctionLink{{Road: "a", Direction: "sideways"}}}},
			},
			message: `unknown connection direction "sideways"`,
		},
		{
			name: "bad type",
			data: Data{
				Roads:         []Road{straight("a", pt(0, 0), pt(1, 0))},
				Intersections: []Intersection{{Name: "x", Type: "spaghetti"}},
			},
			message: `unknown intersection type "spaghetti"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.data, nil)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.ErrorContains(t, err, tt.message)
			}
		})
	}
}

func TestNearestIntersection(t *testing.T) {
	t.Parallel()
	data := crossroads()
	data.Intersections = append(data.Intersections, Intersection{Name: "far", Location: pt(20000, 0)})
	n := mustBuild(t, data)

	assert.Equal(t, "Main & 1st", n.NearestIntersection(geom.Vec3{-600, 0, 0}, 1000).Name)
	assert.Nil(t, n.NearestIntersection(geom.Vec3{-600, 0, 0}, 600), "radius is exclusive")
	assert.Equal(t, "far", n.NearestIntersection(geom.Vec3{19000, 0, 0}, 1e9).Name)
	assert.Nil(t, New().NearestIntersection(geom.Vec3{}, 1e9))
}

func TestSuccessors(t *testing.T) {
	t.Parallel()
	n := mustBuild(t, crossroads())
	west, _ := n.Road("west_in")
	east, _ := n.Road("east_out")
	north, _ := n.Road("north_out")
	spur, _ := n.Road("spur")

	assert.ElementsMatch(t, []*road.Segment{east, north}, n.Successors(west, 1000))
	assert.Empty(t, n.Successors(west, 500), "junction out of range and no adjacency")
	assert.Equal(t, []*road.Segment{spur}, n.Successors(east, 1000))
	assert.Equal(t, []*road.Segment{east}, n.Successors(spur, 1000), "untagged peers count as end connections")
	assert.Nil(t, n.Successors(nil, 1000))
}

func TestSnapToRoad(t *testing.T) {
	t.Parallel()
	n := mustBuild(t, crossroads())

	s, ok := n.SnapToRoad(geom.Vec3{-5000, 300, 0})
	require.True(t, ok)
	assert.Equal(t, "west_in", s.Road.ID)
	assert.InDelta(t, 5000, s.Distance, 1)
	assert.InDelta(t, 300, s.Offset, 1)
	assert.True(t, geom.NearlyEqual(geom.Vec3{-5000, 0, 0}, s.Point, 1))

	_, ok = n.SnapOnRoad(geom.Vec3{-5000, 300, 0}, 0)
	assert.True(t, ok)
	_, ok = n.SnapOnRoad(geom.Vec3{-5000, 800, 0}, 0)
	assert.False(t, ok)
	_, ok = n.SnapOnRoad(geom.Vec3{-5000, 800, 0}, road.DefaultOnRoadSlack)
	assert.True(t, ok)

	_, ok = New().SnapToRoad(geom.Vec3{})
	assert.False(t, ok)
}

func TestBounds(t *testing.T) {
	t.Parallel()
	n := mustBuild(t, crossroads())
	b := n.Bounds()
	assert.InDeltaSlice(t, []float64{-10400, -10400}, []float64{b.Min.X(), b.Min.Y()}, 1e-6)
	assert.InDeltaSlice(t, []float64{10400, 10400}, []float64{b.Max.X(), b.Max.Y()}, 1e-6)
	assert.True(t, b.Contains(orb.Point{0, 0}))
	assert.True(t, New().Bounds().IsZero())
}

func TestValidate(t *testing.T) {
	t.Parallel()
	data := crossroads()
	data.Roads = append(data.Roads,
		straight("gap", pt(10000, 5000), pt(20000, 5000)),
		straight("backwards", pt(30000, 5000), pt(20000, 5000)),
	)
	data.Roads[4].Connections = []RoadLink{{Road: "gap"}}
	data.Roads[5].Connections = []RoadLink{{Road: "backwards"}}
	data.Intersections = append(data.Intersections, Intersection{
		Name:     "cul-de-sac",
		Location: pt(-20000, 0),
		Connections: []JunctionLink{
			{Road: "west_in", AtStart: true, Direction: "incoming"},
		},
	})
	data.Roads = append(data.Roads, straight("island", pt(0, 50000), pt(1000, 50000)))
	data.Roads[4].Connections = append(data.Roads[4].Connections, RoadLink{Road: "island"})

	var buf bytes.Buffer
	n, err := Build(data, log.New(&buf, "", 0))
	require.NoError(t, err)
	issues := n.Validate(1000)

	find := func(kind IssueKind, subject string) bool {
		for _, is := range issues {
			if is.Kind == kind && is.Subject == subject {
				return true
			}
		}
		return false
	}
	assert.True(t, find(IssueDeadEnd, "north_out"))
	assert.False(t, find(IssueDeadEnd, "west_in"))
	assert.False(t, find(IssueDeadEnd, "east_out"))
	assert.True(t, find(IssueReverse, "gap"))
	assert.True(t, find(IssueGap, "spur"), "spur's end is far from island")
	assert.False(t, find(IssueGap, "east_out"))
	assert.True(t, find(IssueFarConnection, "cul-de-sac"))
	assert.True(t, find(IssueNoExit, "cul-de-sac"))
	assert.Contains(t, buf.String(), "validate: dead_end north_out")
}
