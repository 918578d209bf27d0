package movement

import (
	"fmt"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
)

// Blend durations in seconds.
const (
	PositionBlendDuration = 0.3
	RotationBlendDuration = 0.5

	// blendEpsilon absorbs float drift when dt steps sum to the duration.
	blendEpsilon = 1e-6
)

// BlendKind names the blend that owns the pose after a switch.
type BlendKind int

const (
	BlendNone BlendKind = iota
	BlendRotation
	BlendPosition
)

func (b BlendKind) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendRotation:
		return "rotation"
	case BlendPosition:
		return "position"
	}
	return fmt.Sprintf("BlendKind(%d)", int(b))
}

// MarshalText implements encoding.TextMarshaler.
func (b BlendKind) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *BlendKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*b = BlendNone
	case "rotation":
		*b = BlendRotation
	case "position":
		*b = BlendPosition
	default:
		return fmt.Errorf("unknown blend %q", text)
	}
	return nil
}

type rotationBlend struct {
	active    bool
	remaining float64
	duration  float64
	from, to  geom.Rotator
}

type positionBlend struct {
	active    bool
	remaining float64
	duration  float64
	from, to  Pose
}

func blendAlpha(remaining, duration float64) float64 {
	if duration <= 0 {
		return 1
	}
	return geom.SmoothStep(geom.Clamp(1-remaining/duration, 0, 1))
}

func (s *State) advanceRotationBlend(dt float64) {
	b := &s.rot
	b.remaining -= dt
	if b.remaining <= blendEpsilon {
		b.active = false
		s.pose.Rotation = b.to
		return
	}
	s.pose.Rotation = geom.SlerpRotator(b.from, b.to, blendAlpha(b.remaining, b.duration))
}

// advancePositionBlend owns the whole pose while active. On expiry it snaps
// to the target and leaves the next tick to resume curve following.
func (s *State) advancePositionBlend(dt float64) {
	b := &s.pos
	b.remaining -= dt
	if b.remaining <= blendEpsilon {
		b.active = false
		s.pose = b.to
		return
	}
	alpha := blendAlpha(b.remaining, b.duration)
	s.pose = Pose{
		Location: geom.Lerp(b.from.Location, b.to.Location, alpha),
		Rotation: geom.SlerpRotator(b.from.Rotation, b.to.Rotation, alpha),
	}
}
