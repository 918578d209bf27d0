package road

import (
	"math"

	"github.com/paulmach/orb"
)

// LineString samples the centreline every step centimetres and projects it
// onto the ground plane. It always includes both endpoints.
func (s *Segment) LineString(step float64) orb.LineString {
	if step <= 0 {
		step = DefaultMeshStep
	}
	length := s.Length()
	if s.Curve() == nil {
		return nil
	}
	n := int(math.Ceil(length/step)) + 1
	ls := make(orb.LineString, 0, n)
	for i := 0; i < n; i++ {
		p := s.LocationAt(math.Min(float64(i)*step, length))
		ls = append(ls, orb.Point{p[0], p[1]})
	}
	return ls
}

// Bound is the ground-plane bounding box of the road, widened by half the
// road width on every side.
func (s *Segment) Bound() orb.Bound {
	b := s.LineString(DefaultMeshStep).Bound()
	return b.Pad(s.Width / 2)
}
