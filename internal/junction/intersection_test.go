package junction

import (
	"bytes"
	"log"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
	"github.com/AudomaroDuran/Ai27Simulator/internal/transition"
)

type crossroads struct {
	in                    *Intersection
	westIn, eastOut       *road.Segment
	northOut, southTwoWay *road.Segment
}

func line(id string, from, to geom.Vec3) *road.Segment {
	return road.New(id, spline.FromPoints(geom.Vec3{}, spline.World, from, to))
}

func newCrossroads(t *testing.T) crossroads {
	t.Helper()
	c := crossroads{
		in:          New("Main & 1st", geom.Vec3{}),
		westIn:      line("west_in", geom.Vec3{-10000, 0, 0}, geom.Vec3{-600, 0, 0}),
		eastOut:     line("east_out", geom.Vec3{600, 0, 0}, geom.Vec3{10000, 0, 0}),
		northOut:    line("north_out", geom.Vec3{0, 600, 0}, geom.Vec3{0, 10000, 0}),
		southTwoWay: line("south", geom.Vec3{0, -10000, 0}, geom.Vec3{0, -600, 0}),
	}
	require.NoError(t, c.in.AddConnection(c.westIn, false, Incoming))
	require.NoError(t, c.in.AddConnection(c.eastOut, true, Outgoing))
	require.NoError(t, c.in.AddConnection(c.northOut, true, Outgoing))
	require.NoError(t, c.in.AddConnection(c.southTwoWay, false, Bidirectional))
	return c
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	in := New("x", geom.Vec3{1, 2, 3})
	assert.Equal(t, DefaultRadius, in.Radius)
	assert.Equal(t, FourWay, in.Kind)
	assert.Equal(t, geom.Vec3{1, 2, 3}, in.Location())
}

func TestUpdateConnectionPointsSortsByAngle(t *testing.T) {
	t.Parallel()
	c := newCrossroads(t)

	cps := c.in.Connections()
	require.Len(t, cps, 4)
	ids := lo.Map(cps, func(cp ConnectionPoint, _ int) string { return cp.Segment.ID })
	assert.Equal(t, []string{"east_out", "north_out", "west_in", "south"}, ids)

	angles := lo.Map(cps, func(cp ConnectionPoint, _ int) float64 { return cp.Angle })
	assert.InDeltaSlice(t, []float64{0, 90, 180, 270}, angles, 1e-9)
	assert.True(t, geom.NearlyEqual(geom.Vec3{-600, 0, 0}, cps[2].Point, 1e-9))

	t.Run("moving the intersection rederives angles", func(t *testing.T) {
		c.in.SetLocation(geom.Vec3{0, -20000, 0})
		cps := c.in.Connections()
		for i, cp := range cps {
			assert.GreaterOrEqual(t, cp.Angle, 0.0)
			assert.Less(t, cp.Angle, 360.0)
			if i > 0 {
				assert.LessOrEqual(t, cps[i-1].Angle, cp.Angle)
			}
		}
		assert.Equal(t, "east_out", cps[0].Segment.ID)
		assert.Equal(t, "west_in", cps[3].Segment.ID)
	})

	t.Run("nil segment is rejected", func(t *testing.T) {
		assert.ErrorIs(t, c.in.AddConnection(nil, true, Outgoing), ErrNilSegment)
	})
}

func TestOutgoingRoads(t *testing.T) {
	t.Parallel()
	c := newCrossroads(t)

	out := c.in.OutgoingRoads(c.westIn)
	assert.Equal(t, []*road.Segment{c.eastOut, c.northOut, c.southTwoWay}, out)

	// Incoming-only roads are never exits.
	assert.NotContains(t, c.in.OutgoingRoads(c.southTwoWay), c.westIn)

	t.Run("unconnected road has no exits", func(t *testing.T) {
		var buf bytes.Buffer
		c.in.Logger = log.New(&buf, "", 0)
		stranger := line("stranger", geom.Vec3{}, geom.Vec3{1, 0, 0})
		assert.Empty(t, c.in.OutgoingRoads(stranger))
		assert.Contains(t, buf.String(), "not connected")
	})

	t.Run("choose next road", func(t *testing.T) {
		next, ok := c.in.ChooseNextRoad(c.westIn, transition.First, nil)
		require.True(t, ok)
		assert.Same(t, c.eastOut, next)

		next, ok = c.in.ChooseNextRoad(c.westIn, transition.Last, nil)
		require.True(t, ok)
		assert.Same(t, c.southTwoWay, next)
	})

	t.Run("direction can be changed", func(t *testing.T) {
		require.True(t, c.in.SetDirection(c.southTwoWay, Incoming))
		assert.Equal(t, []*road.Segment{c.eastOut, c.northOut}, c.in.OutgoingRoads(c.westIn))
	})
}

func TestGenerateTransitionCurve(t *testing.T) {
	t.Parallel()
	c := newCrossroads(t)

	t.Run("left turn follows travel direction", func(t *testing.T) {
		curve, err := c.in.GenerateTransitionCurve(c.westIn, c.northOut)
		require.NoError(t, err)
		assert.True(t, geom.NearlyEqual(geom.Vec3{-600, 0, 0}, curve.LocationAtDistance(0, spline.World), 1e-9))
		assert.True(t, geom.NearlyEqual(geom.Vec3{0, 600, 0}, curve.LocationAtDistance(curve.Length(), spline.World), 1e-6))
		assert.InDelta(t, 0, curve.RotationAtDistance(0, spline.World).Yaw, 1e-6)
		assert.InDelta(t, 90, curve.RotationAtDistance(curve.Length(), spline.World).Yaw, 1e-6)
		assert.InDelta(t, c.in.Radius, curve.TangentAtDistance(0, spline.World).Len(), 1e-6)
	})

	t.Run("end-bound target is entered against its direction", func(t *testing.T) {
		curve, err := c.in.GenerateTransitionCurve(c.westIn, c.southTwoWay)
		require.NoError(t, err)
		assert.InDelta(t, -90, curve.RotationAtDistance(curve.Length(), spline.World).Yaw, 1e-6)
	})

	t.Run("each call yields an independent curve", func(t *testing.T) {
		before := c.in.ActiveCurves()
		a, err := c.in.GenerateTransitionCurve(c.westIn, c.eastOut)
		require.NoError(t, err)
		b, err := c.in.GenerateTransitionCurve(c.westIn, c.eastOut)
		require.NoError(t, err)
		assert.NotSame(t, a, b)
		assert.Equal(t, before+2, c.in.ActiveCurves())

		assert.True(t, c.in.ReleaseCurve(a))
		assert.False(t, c.in.ReleaseCurve(a))
		assert.Equal(t, before+1, c.in.ActiveCurves())
	})

	t.Run("missing connection fails", func(t *testing.T) {
		stranger := line("stranger", geom.Vec3{}, geom.Vec3{1, 0, 0})
		_, err := c.in.GenerateTransitionCurve(c.westIn, stranger)
		assert.ErrorIs(t, err, ErrNotConnected)
		_, err = c.in.GenerateTransitionCurve(nil, c.eastOut)
		assert.ErrorIs(t, err, ErrNilSegment)
	})
}

func TestTextEncodings(t *testing.T) {
	t.Parallel()
	var d Direction
	require.NoError(t, d.UnmarshalText([]byte("Outgoing")))
	assert.Equal(t, Outgoing, d)
	require.NoError(t, d.UnmarshalText(nil))
	assert.Equal(t, Bidirectional, d)
	assert.Error(t, d.UnmarshalText([]byte("up")))

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("roundabout")))
	assert.Equal(t, Roundabout, k)
	b, err := ThreeWay.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "three_way", string(b))
}
