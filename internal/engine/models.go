package engine

import (
	"log"
	"math/rand"
	"sync"

	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
)

// SimulationMeta holds the identity and timing parameters for a simulation run.
type SimulationMeta struct {
	SimulationID string  `json:"simulation_id" yaml:"simulation_id"`
	RunTime      float64 `json:"run_time" yaml:"run_time"`   // seconds
	TimeStep     float64 `json:"time_step" yaml:"time_step"` // seconds
	// Seed drives every vehicle's transition choices. Runs with the same
	// seed and input are identical.
	Seed int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// SimulationInput is the serialisable input to the engine.
type SimulationInput struct {
	Meta     SimulationMeta `json:"simulation_meta" yaml:"simulation_meta"`
	Network  network.Data   `json:"network" yaml:"network"`
	Vehicles []vehicle.Spec `json:"vehicles" yaml:"vehicles"`
}

// EventKind names something that happened to a vehicle during a step.
type EventKind string

const (
	EventDeparted        EventKind = "departed"
	EventJunctionEntered EventKind = "junction_entered"
	EventRoadChanged     EventKind = "road_changed"
	EventSpeedChanged    EventKind = "speed_changed"
	EventStopped         EventKind = "stopped"
	EventCommand         EventKind = "command"
)

// Event is a discrete vehicle event. Subject is the road, intersection or
// command involved; Value carries a speed in km/h where relevant.
type Event struct {
	Vehicle string    `json:"vehicle" yaml:"vehicle"`
	Kind    EventKind `json:"kind" yaml:"kind"`
	Subject string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	Value   float64   `json:"value,omitempty" yaml:"value,omitempty"`
}

// SimulationLogRow is the state of all vehicles at a single simulation timestep.
type SimulationLogRow struct {
	Timestamp   float64       `json:"timestamp" yaml:"timestamp"` // seconds
	VehicleLogs []vehicle.Log `json:"vehicle_logs" yaml:"vehicle_logs"`
	Events      []Event       `json:"events,omitempty" yaml:"events,omitempty"`
}

// SimulationLog is the complete output of a simulation run.
type SimulationLog struct {
	Meta   SimulationMeta     `json:"simulation_meta" yaml:"simulation_meta"`
	Output []SimulationLogRow `json:"output" yaml:"output"`
}

// simVehicle is a vehicle enriched with its departure schedule.
type simVehicle struct {
	*vehicle.Vehicle
	departureDelay float64
	departed       bool
	lastState      vehicle.State
}

// Simulation engine state. Step, Apply and Snapshot may be called from
// different goroutines.
type Simulation struct {
	Logger *log.Logger

	mu       sync.RWMutex
	meta     SimulationMeta
	net      *network.Network
	vehicles []*simVehicle
	byID     map[string]*simVehicle
	rng      *rand.Rand
	curTime  float64
	pending  []Event
}
