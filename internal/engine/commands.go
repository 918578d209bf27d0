package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
)

// CommandKind selects what a Command does.
type CommandKind string

const (
	CommandStop     CommandKind = "stop"
	CommandResume   CommandKind = "resume"
	CommandSetSpeed CommandKind = "set_speed"
	CommandReassign CommandKind = "reassign"
)

var (
	ErrUnknownVehicle = errors.New("unknown vehicle")
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is an external control instruction for a running simulation. An
// empty Vehicle applies it to every vehicle.
type Command struct {
	Vehicle  string      `json:"vehicle,omitempty" yaml:"vehicle,omitempty"`
	Kind     CommandKind `json:"command" yaml:"command"`
	SpeedKmh float64     `json:"speed_kmh,omitempty" yaml:"speed_kmh,omitempty"`
	Road     string      `json:"road,omitempty" yaml:"road,omitempty"`
}

func (c Command) String() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	switch c.Kind {
	case CommandSetSpeed:
		fmt.Fprintf(&b, " %.0f km/h", c.SpeedKmh)
	case CommandReassign:
		fmt.Fprintf(&b, " %s", c.Road)
	}
	return b.String()
}

// Apply executes cmd. The command is recorded as an event in the next log
// row.
func (s *Simulation) Apply(cmd Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets := s.vehicles
	if cmd.Vehicle != "" {
		sv, ok := s.byID[cmd.Vehicle]
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownVehicle, cmd.Vehicle)
		}
		targets = []*simVehicle{sv}
	}

	switch cmd.Kind {
	case CommandStop:
		for _, sv := range targets {
			sv.Movement.Stop()
		}
	case CommandResume:
		for _, sv := range targets {
			sv.departed = true
			sv.Resume()
		}
	case CommandSetSpeed:
		if cmd.SpeedKmh < 0 {
			return fmt.Errorf("set_speed: negative speed %.1f", cmd.SpeedKmh)
		}
		for _, sv := range targets {
			sv.InitialSpeedKmh = cmd.SpeedKmh
			sv.Movement.SetMaxSpeedKmh(cmd.SpeedKmh)
		}
	case CommandReassign:
		seg, ok := s.net.Road(cmd.Road)
		if !ok {
			return fmt.Errorf("reassign: %w %q", network.ErrUnknownRoad, cmd.Road)
		}
		for _, sv := range targets {
			sv.departed = true
			sv.Reassign(seg, true)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd.Kind)
	}

	for _, sv := range targets {
		s.pending = append(s.pending, Event{Vehicle: sv.ID, Kind: EventCommand, Subject: cmd.String()})
	}
	s.logf("simulation %s: applied %s to %d vehicle(s)", s.meta.SimulationID, cmd, len(targets))
	return nil
}
