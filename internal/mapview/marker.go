package mapview

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
)

// MarkerKind is what a marker stands for.
type MarkerKind int

const (
	Origin MarkerKind = iota
	Destination
	Custom
)

func (k MarkerKind) String() string {
	switch k {
	case Origin:
		return "Origin"
	case Destination:
		return "Destination"
	case Custom:
		return "Marker"
	}
	return fmt.Sprintf("MarkerKind(%d)", int(k))
}

// MarkerState is the interaction state of a marker.
type MarkerState int

const (
	Idle MarkerState = iota
	Hovered
	Dragging
	Invalid
)

func (s MarkerState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Hovered:
		return "hovered"
	case Dragging:
		return "dragging"
	case Invalid:
		return "invalid"
	}
	return fmt.Sprintf("MarkerState(%d)", int(s))
}

// Marker is a point of interest on the map. Road and Distance are set when
// the position was snapped onto a road.
type Marker struct {
	ID        string
	Kind      MarkerKind
	State     MarkerState
	Position  orb.Point
	Valid     bool
	Draggable bool
	Visible   bool
	Label     string

	Road     string
	Distance float64
}

// Snap is a validated marker position.
type Snap struct {
	Position orb.Point
	Road     string
	Distance float64
}

// Validator decides where a marker dropped at p may rest.
type Validator interface {
	Validate(p orb.Point) (Snap, bool)
}

// RoadValidator snaps positions onto the nearest road surface of a network.
type RoadValidator struct {
	Network *network.Network
	// Tolerance widens every road for the on-road test, cm.
	Tolerance float64
}

func (v RoadValidator) Validate(p orb.Point) (Snap, bool) {
	if v.Network == nil {
		return Snap{}, false
	}
	s, ok := v.Network.SnapOnRoad(geom.Vec3{p[0], p[1], 0}, v.Tolerance)
	if !ok {
		return Snap{}, false
	}
	return Snap{Position: orb.Point{s.Point[0], s.Point[1]}, Road: s.Road.ID, Distance: s.Distance}, true
}

// MarkerEvent identifies a marker and where it is.
type MarkerEvent struct {
	ID       string
	Position orb.Point
}

// StateChange is the payload of MarkerStateChanged.
type StateChange struct {
	ID       string
	Old, New MarkerState
}

// ZoomChange is the payload of ZoomChanged.
type ZoomChange struct {
	Old, New float64
}
