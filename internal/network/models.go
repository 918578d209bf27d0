package network

import "github.com/AudomaroDuran/Ai27Simulator/internal/geom"

// RoadLink is an end-tagged connection from a road to a peer road.
type RoadLink struct {
	Road    string `json:"road" yaml:"road"`
	AtStart bool   `json:"at_start" yaml:"at_start"`
}

// Road is the serialisable form of a road segment. Points are relative to
// Origin. Tangents is optional; when present it must have one entry per point.
// Zero metadata fields take the road defaults.
type Road struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name,omitempty" yaml:"name,omitempty"`
	Width      float64 `json:"width,omitempty" yaml:"width,omitempty"` // cm
	Lanes      int     `json:"lanes,omitempty" yaml:"lanes,omitempty"`
	SpeedLimit float64 `json:"speed_limit,omitempty" yaml:"speed_limit,omitempty"` // km/h
	Highway    bool    `json:"highway,omitempty" yaml:"highway,omitempty"`
	RiskZone   bool    `json:"risk_zone,omitempty" yaml:"risk_zone,omitempty"`

	Origin      geom.Point   `json:"origin" yaml:"origin"`
	Points      []geom.Point `json:"points" yaml:"points"`
	Tangents    []geom.Point `json:"tangents,omitempty" yaml:"tangents,omitempty"`
	Connections []RoadLink   `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// JunctionLink binds one end of a road to an intersection. Direction is one
// of "incoming", "outgoing" or "bidirectional"; empty means bidirectional.
type JunctionLink struct {
	Road      string `json:"road" yaml:"road"`
	AtStart   bool   `json:"at_start" yaml:"at_start"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
}

// Intersection is the serialisable form of an intersection. Type is one of
// "two_way", "three_way", "four_way", "roundabout" or "custom"; empty means
// four_way.
type Intersection struct {
	Name        string         `json:"name" yaml:"name"`
	Location    geom.Point     `json:"location" yaml:"location"`
	Radius      float64        `json:"radius,omitempty" yaml:"radius,omitempty"` // cm
	Type        string         `json:"type,omitempty" yaml:"type,omitempty"`
	Connections []JunctionLink `json:"connections" yaml:"connections"`
}

// Data is the serialisable input representation of a road network.
type Data struct {
	Roads         []Road         `json:"roads" yaml:"roads"`
	Intersections []Intersection `json:"intersections,omitempty" yaml:"intersections,omitempty"`
}
