package spline

import (
	"math"
	"sort"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
)

// DefaultStepsPerSegment is the number of reparameterisation samples taken
// per spline segment.
const DefaultStepsPerSegment = 10

type controlPoint struct {
	pos    geom.Vec3 // local space
	arrive geom.Vec3
	leave  geom.Vec3
	user   bool // tangent set explicitly; auto tangents leave it alone
}

type reparamEntry struct {
	dist float64
	key  float64
}

// Spline is a cubic Hermite curve through a list of control points. Input key
// i corresponds to control point i; arc-length queries go through a
// reparameterisation table built by Rebuild.
//
// A Spline is not safe for concurrent mutation, but once built all queries
// are read-only.
type Spline struct {
	// Origin translates local positions into world space.
	Origin geom.Vec3

	StepsPerSegment int

	points []controlPoint
	cum    []float64 // arc length at the start of each control point
	table  []reparamEntry
	length float64
}

var _ MutableCurve = (*Spline)(nil)

// New returns an empty spline positioned at origin.
func New(origin geom.Vec3) *Spline {
	return &Spline{Origin: origin, StepsPerSegment: DefaultStepsPerSegment}
}

// FromPoints builds a spline through pts with automatic tangents.
func FromPoints(origin geom.Vec3, space Space, pts ...geom.Vec3) *Spline {
	s := New(origin)
	for _, p := range pts {
		s.AddPoint(p, space)
	}
	s.Rebuild()
	return s
}

func (s *Spline) toLocal(p geom.Vec3, space Space) geom.Vec3 {
	if space == World {
		return p.Sub(s.Origin)
	}
	return p
}

func (s *Spline) fromLocal(p geom.Vec3, space Space) geom.Vec3 {
	if space == World {
		return p.Add(s.Origin)
	}
	return p
}

// ClearPoints removes every control point.
func (s *Spline) ClearPoints() {
	s.points = s.points[:0]
}

// AddPoint appends a control point with an automatic tangent.
func (s *Spline) AddPoint(pos geom.Vec3, space Space) {
	s.points = append(s.points, controlPoint{pos: s.toLocal(pos, space)})
}

// SetTangent fixes both the arrive and leave tangent of point index. Out of
// range indices are ignored. Tangents are directions, so space does not
// change them under a translation-only origin.
func (s *Spline) SetTangent(index int, tangent geom.Vec3, _ Space) {
	if index < 0 || index >= len(s.points) {
		return
	}
	p := &s.points[index]
	p.arrive, p.leave, p.user = tangent, tangent, true
}

// NumPoints returns the number of control points.
func (s *Spline) NumPoints() int { return len(s.points) }

// PointAt returns control point i.
func (s *Spline) PointAt(i int, space Space) geom.Vec3 {
	if i < 0 || i >= len(s.points) {
		return geom.Vec3{}
	}
	return s.fromLocal(s.points[i].pos, space)
}

// Rebuild recomputes automatic tangents, segment lengths and the
// arc-length table.
func (s *Spline) Rebuild() {
	if s.StepsPerSegment <= 0 {
		s.StepsPerSegment = DefaultStepsPerSegment
	}
	s.autoTangents()

	n := len(s.points)
	s.cum = make([]float64, n)
	s.table = s.table[:0]
	s.length = 0
	if n < 2 {
		return
	}

	s.table = append(s.table, reparamEntry{dist: 0, key: 0})
	for i := 0; i < n-1; i++ {
		for j := 1; j <= s.StepsPerSegment; j++ {
			t := float64(j) / float64(s.StepsPerSegment)
			s.table = append(s.table, reparamEntry{
				dist: s.cum[i] + s.segmentLength(i, 0, t),
				key:  float64(i) + t,
			})
		}
		s.cum[i+1] = s.table[len(s.table)-1].dist
	}
	s.length = s.cum[n-1]
}

func (s *Spline) autoTangents() {
	n := len(s.points)
	for i := range s.points {
		if s.points[i].user {
			continue
		}
		var t geom.Vec3
		switch {
		case n < 2:
		case i == 0:
			t = s.points[1].pos.Sub(s.points[0].pos)
		case i == n-1:
			t = s.points[n-1].pos.Sub(s.points[n-2].pos)
		default:
			t = s.points[i+1].pos.Sub(s.points[i-1].pos).Mul(0.5)
		}
		s.points[i].arrive, s.points[i].leave = t, t
	}
}

// Length implements Curve.
func (s *Spline) Length() float64 { return s.length }

// segment splits an input key into a segment index and local parameter.
func (s *Spline) segment(key float64) (int, float64) {
	last := len(s.points) - 1
	key = geom.Clamp(key, 0, float64(last))
	i := int(math.Floor(key))
	if i >= last {
		return last - 1, 1
	}
	return i, key - float64(i)
}

func (s *Spline) evalKey(key float64) geom.Vec3 {
	switch len(s.points) {
	case 0:
		return geom.Vec3{}
	case 1:
		return s.points[0].pos
	}
	i, t := s.segment(key)
	a, b := s.points[i], s.points[i+1]
	t2, t3 := t*t, t*t*t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return a.pos.Mul(h00).Add(a.leave.Mul(h10)).Add(b.pos.Mul(h01)).Add(b.arrive.Mul(h11))
}

func (s *Spline) derivKey(key float64) geom.Vec3 {
	if len(s.points) < 2 {
		return geom.Vec3{}
	}
	i, t := s.segment(key)
	return s.segmentDeriv(i, t)
}

func (s *Spline) segmentDeriv(i int, t float64) geom.Vec3 {
	a, b := s.points[i], s.points[i+1]
	t2 := t * t
	d00 := 6*t2 - 6*t
	d10 := 3*t2 - 4*t + 1
	d01 := -6*t2 + 6*t
	d11 := 3*t2 - 2*t
	return a.pos.Mul(d00).Add(a.leave.Mul(d10)).Add(b.pos.Mul(d01)).Add(b.arrive.Mul(d11))
}

// Five-point Gauss-Legendre abscissae and weights on [-1, 1].
var (
	glNodes   = [5]float64{0, -0.5384693101056831, 0.5384693101056831, -0.9061798459386640, 0.9061798459386640}
	glWeights = [5]float64{0.5688888888888889, 0.4786286704993665, 0.4786286704993665, 0.2369268850561891, 0.2369268850561891}
)

// segmentLength integrates the speed of segment i over [t0, t1].
func (s *Spline) segmentLength(i int, t0, t1 float64) float64 {
	if t1 <= t0 {
		return 0
	}
	half := (t1 - t0) / 2
	mid := (t1 + t0) / 2
	var sum float64
	for k := range glNodes {
		sum += glWeights[k] * s.segmentDeriv(i, mid+half*glNodes[k]).Len()
	}
	return sum * half
}

// keyAtDistance maps an arc length to an input key through the table.
func (s *Spline) keyAtDistance(d float64) float64 {
	if len(s.table) == 0 {
		return 0
	}
	d = geom.Clamp(d, 0, s.length)
	idx := sort.Search(len(s.table), func(k int) bool { return s.table[k].dist >= d })
	if idx == 0 {
		return s.table[0].key
	}
	if idx >= len(s.table) {
		return s.table[len(s.table)-1].key
	}
	lo, hi := s.table[idx-1], s.table[idx]
	span := hi.dist - lo.dist
	if span <= 0 {
		return hi.key
	}
	return lo.key + (hi.key-lo.key)*(d-lo.dist)/span
}

// LocationAtDistance implements Curve.
func (s *Spline) LocationAtDistance(d float64, space Space) geom.Vec3 {
	return s.fromLocal(s.evalKey(s.keyAtDistance(d)), space)
}

// TangentAtDistance implements Curve.
func (s *Spline) TangentAtDistance(d float64, _ Space) geom.Vec3 {
	return s.derivKey(s.keyAtDistance(d))
}

// RotationAtDistance implements Curve. The curve has no roll.
func (s *Spline) RotationAtDistance(d float64, space Space) geom.Rotator {
	return geom.RotatorFromDirection(s.TangentAtDistance(d, space))
}

// DistanceAtInputKey implements Curve.
func (s *Spline) DistanceAtInputKey(key float64) float64 {
	if len(s.points) < 2 {
		return 0
	}
	i, t := s.segment(key)
	return s.cum[i] + s.segmentLength(i, 0, t)
}

const (
	closestSamples    = 16
	closestIterations = 40
)

// FindClosestInputKey implements Curve. Each segment is sampled coarsely and
// the best sample is refined by golden-section search.
func (s *Spline) FindClosestInputKey(world geom.Vec3) float64 {
	if len(s.points) < 2 {
		return 0
	}
	p := world.Sub(s.Origin)
	dist2 := func(key float64) float64 {
		d := s.evalKey(key).Sub(p)
		return d.Dot(d)
	}

	bestKey, best := 0.0, math.Inf(1)
	for i := 0; i < len(s.points)-1; i++ {
		for j := 0; j <= closestSamples; j++ {
			key := float64(i) + float64(j)/closestSamples
			if d := dist2(key); d < best {
				best, bestKey = d, key
			}
		}
	}

	const invPhi = 0.6180339887498949
	step := 1.0 / closestSamples
	lo := math.Max(0, bestKey-step)
	hi := math.Min(float64(len(s.points)-1), bestKey+step)
	a := hi - invPhi*(hi-lo)
	b := lo + invPhi*(hi-lo)
	fa, fb := dist2(a), dist2(b)
	for loopN := 0; loopN < closestIterations; loopN++ {
		if fa < fb {
			hi, b, fb = b, a, fa
			a = hi - invPhi*(hi-lo)
			fa = dist2(a)
		} else {
			lo, a, fa = a, b, fb
			b = lo + invPhi*(hi-lo)
			fb = dist2(b)
		}
	}
	key := (lo + hi) / 2
	if dist2(key) > best {
		return bestKey
	}
	return key
}
