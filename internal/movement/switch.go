package movement

import (
	"fmt"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/road"
	"github.com/AudomaroDuran/Ai27Simulator/internal/spline"
)

const (
	// ConnectionTolerance is the largest endpoint separation still treated
	// as a connection, and the smallest gap treated as a teleport.
	ConnectionTolerance = 500.0
	// MinBlendGap is the gap below which position is not blended.
	MinBlendGap = 1.0
)

// ConnectionKind is the result of matching one road's end to another road.
type ConnectionKind int

const (
	ConnectionNone ConnectionKind = iota
	// ConnectionStart means the next road begins where the previous ended.
	ConnectionStart
	// ConnectionReverse means the next road ends where the previous ended.
	// Reverse traversal is not supported.
	ConnectionReverse
)

func (c ConnectionKind) String() string {
	switch c {
	case ConnectionNone:
		return "none"
	case ConnectionStart:
		return "start"
	case ConnectionReverse:
		return "reverse"
	}
	return fmt.Sprintf("ConnectionKind(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c ConnectionKind) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// SwitchResult describes what a curve switch did.
type SwitchResult struct {
	Performed     bool           `json:"performed"`
	Connection    ConnectionKind `json:"connection"`
	StartDistance float64        `json:"start_distance"`
	Gap           float64        `json:"gap"`
	Blend         BlendKind      `json:"blend"`
	LargeGap      bool           `json:"large_gap"`
}

// DetectConnection matches prev's end point against next's start, then its
// end. It returns where on next the bound point lies.
func DetectConnection(prev, next *road.Segment) (float64, ConnectionKind) {
	if prev == nil || next == nil {
		return 0, ConnectionNone
	}
	end := prev.EndPoint()
	if geom.Distance(end, next.StartPoint()) < ConnectionTolerance {
		return 0, ConnectionStart
	}
	if geom.Distance(end, next.EndPoint()) < ConnectionTolerance {
		return next.Length(), ConnectionReverse
	}
	return 0, ConnectionNone
}

// SwitchToSegment moves the agent onto seg. When coming from another road
// the start distance is taken from DetectConnection; a reverse connection is
// reported but the agent starts at distance 0.
func (s *State) SwitchToSegment(seg *road.Segment, maintainSpeed bool) SwitchResult {
	if seg == nil || seg.Curve() == nil {
		s.logf("warning: movement: switch to missing road ignored")
		return SwitchResult{}
	}

	start, kind := 0.0, ConnectionNone
	if s.segment != nil {
		start, kind = DetectConnection(s.segment, seg)
		switch kind {
		case ConnectionReverse:
			s.logf("warning: movement: road %s joins %s at its end; reverse traversal unsupported, starting at 0", s.segment.ID, seg.ID)
			start = 0
		case ConnectionNone:
			s.logf("movement: no connection from road %s to %s, starting at 0", s.segment.ID, seg.ID)
		}
	}

	res := s.switchCurve(seg.Curve(), start, maintainSpeed)
	s.segment = seg
	res.Connection = kind
	return res
}

// SwitchToCurve moves the agent onto a raw curve, such as a junction
// transition, starting at distance 0.
func (s *State) SwitchToCurve(c spline.Curve, maintainSpeed bool) SwitchResult {
	if c == nil {
		s.logf("warning: movement: switch to missing curve ignored")
		return SwitchResult{}
	}
	s.segment = nil
	return s.switchCurve(c, 0, maintainSpeed)
}

// switchCurve replaces the curve and arms exactly one blend. Any blend still
// running from an earlier switch is discarded.
func (s *State) switchCurve(c spline.Curve, start float64, maintainSpeed bool) SwitchResult {
	s.curve = c
	s.distance = geom.Clamp(start, 0, c.Length())
	if !maintainSpeed {
		s.speed = 0
	}

	target := Pose{
		Location: c.LocationAtDistance(s.distance, spline.World),
		Rotation: c.RotationAtDistance(s.distance, spline.World),
	}
	gap := geom.Distance(s.pose.Location, target.Location)
	res := SwitchResult{Performed: true, StartDistance: s.distance, Gap: gap}

	s.rot, s.pos = rotationBlend{}, positionBlend{}
	if gap > MinBlendGap && gap < ConnectionTolerance {
		s.pos = positionBlend{
			active:    true,
			remaining: PositionBlendDuration,
			duration:  PositionBlendDuration,
			from:      s.pose,
			to:        target,
		}
		res.Blend = BlendPosition
	} else {
		s.rot = rotationBlend{
			active:    true,
			remaining: RotationBlendDuration,
			duration:  RotationBlendDuration,
			from:      s.pose.Rotation,
			to:        target.Rotation,
		}
		res.Blend = BlendRotation
		if gap >= ConnectionTolerance {
			res.LargeGap = true
			s.logf("warning: movement: large gap of %.0f on curve switch, agent will teleport", gap)
		}
		// Location snaps to the curve now. Rotation is left at the old
		// heading on purpose: the blend turns it from there, so the first
		// published pose never jumps to the new tangent.
		s.pose.Location = target.Location
		s.publish()
	}

	s.moving = true
	s.endSignalled = false
	return res
}
