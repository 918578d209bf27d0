package junction

import (
	"fmt"
	"strings"
)

// Direction tags the traffic flow a connection point allows relative to the
// intersection.
type Direction int

const (
	Incoming Direction = iota
	Outgoing
	Bidirectional
)

var directionNames = map[Direction]string{
	Incoming:      "incoming",
	Outgoing:      "outgoing",
	Bidirectional: "bidirectional",
}

func (d Direction) String() string {
	if s, ok := directionNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// ParseDirection reads a direction name. The empty string means
// Bidirectional.
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Bidirectional, nil
	}
	for k, v := range directionNames {
		if v == s {
			return k, nil
		}
	}
	return Bidirectional, fmt.Errorf("unknown connection direction %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(b []byte) error {
	parsed, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AllowsExit reports whether traffic may leave the intersection onto a road
// with this direction.
func (d Direction) AllowsExit() bool { return d == Outgoing || d == Bidirectional }

// Kind is the descriptive layout of an intersection. It does not change
// behaviour.
type Kind int

const (
	TwoWay Kind = iota
	ThreeWay
	FourWay
	Roundabout
	Custom
)

var kindNames = map[Kind]string{
	TwoWay:     "two_way",
	ThreeWay:   "three_way",
	FourWay:    "four_way",
	Roundabout: "roundabout",
	Custom:     "custom",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// ParseKind reads an intersection type name. The empty string means
// FourWay.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FourWay, nil
	}
	for key, v := range kindNames {
		if v == s {
			return key, nil
		}
	}
	return FourWay, fmt.Errorf("unknown intersection type %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
