// Package engine implements the vehicle simulation loop.
//
// The simulation advances in fixed timesteps. Each step has two passes:
//
//  1. Motion pass - every departed vehicle advances along its current road or
//     transition curve, choosing its next road when it reaches an end.
//
//  2. Departure pass - vehicles whose departure delay has elapsed set off, so
//     they start moving on the following step.
//
// Each step produces a log row holding a snapshot of every vehicle and the
// events raised while it ran.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
)

// timeEpsilon absorbs float drift when comparing accumulated time.
const timeEpsilon = 1e-9

var ErrInvalidTimeStep = errors.New("time_step must be positive")

// NewSimulation constructs a Simulation from a SimulationInput, building the
// network and spawning each vehicle parked on its starting road. logger may
// be nil.
func NewSimulation(input SimulationInput, logger *log.Logger) (*Simulation, error) {
	meta := input.Meta
	if meta.TimeStep <= 0 {
		return nil, fmt.Errorf("simulation %q: %w", meta.SimulationID, ErrInvalidTimeStep)
	}
	if meta.RunTime < 0 {
		return nil, fmt.Errorf("simulation %q: run_time must not be negative", meta.SimulationID)
	}
	if meta.SimulationID == "" {
		meta.SimulationID = uuid.NewString()
	}

	net, err := network.Build(input.Network, logger)
	if err != nil {
		return nil, fmt.Errorf("building network: %w", err)
	}

	s := &Simulation{
		Logger: logger,
		meta:   meta,
		net:    net,
		byID:   make(map[string]*simVehicle, len(input.Vehicles)),
		rng:    rand.New(rand.NewSource(meta.Seed)),
	}
	for i, spec := range input.Vehicles {
		if err := s.addVehicle(i, spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Simulation) addVehicle(i int, spec vehicle.Spec) error {
	seg, ok := s.net.Road(spec.StartingRoad)
	if !ok {
		return fmt.Errorf("vehicle %d (%q): %w %q", i, spec.ID, network.ErrUnknownRoad, spec.StartingRoad)
	}
	if spec.StartDistance < 0 || spec.StartDistance > seg.Length() {
		return fmt.Errorf("vehicle %q: start_distance %.0f outside road %q of length %.0f", spec.ID, spec.StartDistance, seg.ID, seg.Length())
	}

	v := vehicle.FromSpec(spec, s.net, s.rng)
	if _, exists := s.byID[v.ID]; exists {
		return fmt.Errorf("vehicle %q already exists", v.ID)
	}
	v.SetLogger(s.Logger)
	if !v.Spawn(seg, spec.StartDistance) {
		return fmt.Errorf("vehicle %q: cannot spawn on road %q", v.ID, seg.ID)
	}

	sv := &simVehicle{Vehicle: v, departureDelay: spec.DepartureDelay}
	sv.lastState = v.State()
	s.subscribe(sv)
	s.vehicles = append(s.vehicles, sv)
	s.byID[v.ID] = sv
	return nil
}

// subscribe forwards a vehicle's delegates into the pending event list.
func (s *Simulation) subscribe(sv *simVehicle) {
	id := sv.ID
	sv.JunctionEntered.Add(func(name string) {
		s.pending = append(s.pending, Event{Vehicle: id, Kind: EventJunctionEntered, Subject: name})
	})
	sv.RoadChanged.Add(func(road string) {
		s.pending = append(s.pending, Event{Vehicle: id, Kind: EventRoadChanged, Subject: road})
	})
	sv.Movement.SpeedChanged.Add(func(kmh float64) {
		s.pending = append(s.pending, Event{Vehicle: id, Kind: EventSpeedChanged, Value: kmh})
	})
}

func (s *Simulation) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// Meta returns the run parameters, with any generated ID filled in.
func (s *Simulation) Meta() SimulationMeta { return s.meta }

// Network returns the road network the vehicles drive on. It must not be
// modified while the simulation runs.
func (s *Simulation) Network() *network.Network { return s.net }

// Time is the current simulation time in seconds.
func (s *Simulation) Time() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.curTime
}

// Finished reports whether the run time has elapsed. A zero run time never
// finishes.
func (s *Simulation) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta.RunTime > 0 && s.curTime+s.meta.TimeStep > s.meta.RunTime+timeEpsilon
}

// Run executes the full simulation and returns the log. The first row is the
// initial state at t=0.
func (s *Simulation) Run() (SimulationLog, error) {
	if s.meta.RunTime <= 0 {
		return SimulationLog{}, fmt.Errorf("simulation %q: batch runs need a positive run_time", s.meta.SimulationID)
	}
	out := SimulationLog{Meta: s.meta}
	out.Output = append(out.Output, s.Step(0))
	steps := int(math.Floor(s.meta.RunTime/s.meta.TimeStep + timeEpsilon))
	for loopN := 0; loopN < steps; loopN++ {
		out.Output = append(out.Output, s.Step(s.meta.TimeStep))
	}
	return out, nil
}

// Step advances the simulation by dt seconds and returns the resulting log
// row. A zero dt only processes departures.
func (s *Simulation) Step(dt float64) SimulationLogRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step(dt)
}

func (s *Simulation) step(dt float64) SimulationLogRow {
	if dt > 0 {
		s.curTime += dt
	}

	// Pass 1: motion.
	for _, sv := range s.vehicles {
		if sv.departed {
			sv.Tick(dt)
		}
	}

	// Pass 2: hold each vehicle until its departure delay has elapsed.
	for _, sv := range s.vehicles {
		if sv.departed || s.curTime+timeEpsilon < sv.departureDelay {
			continue
		}
		sv.departed = true
		if sv.Start() {
			s.pending = append(s.pending, Event{Vehicle: sv.ID, Kind: EventDeparted, Subject: sv.Movement.Segment().ID})
		}
	}

	for _, sv := range s.vehicles {
		state := sv.State()
		if state == vehicle.StateStopped && sv.lastState != vehicle.StateStopped {
			subject := ""
			if seg := sv.Movement.Segment(); seg != nil {
				subject = seg.ID
			}
			s.pending = append(s.pending, Event{Vehicle: sv.ID, Kind: EventStopped, Subject: subject})
		}
		sv.lastState = state
	}

	row := SimulationLogRow{Timestamp: s.curTime, VehicleLogs: s.snapshot(), Events: s.pending}
	s.pending = nil
	return row
}

// Snapshot returns the current state of every vehicle without advancing.
func (s *Simulation) Snapshot() SimulationLogRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SimulationLogRow{Timestamp: s.curTime, VehicleLogs: s.snapshot()}
}

func (s *Simulation) snapshot() []vehicle.Log {
	logs := make([]vehicle.Log, len(s.vehicles))
	for i, sv := range s.vehicles {
		logs[i] = sv.Snapshot()
	}
	return logs
}

// RunRealtime advances the simulation by one time step every interval of
// wall-clock time until ctx is cancelled or the run time elapses, passing
// each row to report.
func (s *Simulation) RunRealtime(ctx context.Context, interval time.Duration, report func(SimulationLogRow)) error {
	if report != nil {
		report(s.Step(0))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.Finished() {
				s.logf("simulation %s: run time %.1fs reached", s.meta.SimulationID, s.meta.RunTime)
				return nil
			}
			row := s.Step(s.meta.TimeStep)
			if report != nil {
				report(row)
			}
		}
	}
}

// RunJSON is the primary entry point for the CLI and WASM targets.
// It accepts a JSON-encoded SimulationInput, runs the simulation, and returns a
// JSON-encoded SimulationLog.
func RunJSON(jsonInput string) (string, error) {
	var input SimulationInput
	if err := json.Unmarshal([]byte(jsonInput), &input); err != nil {
		return "", fmt.Errorf("invalid input JSON: %w", err)
	}
	simLog, err := RunInput(input, nil)
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(simLog)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}

// RunInput builds and runs a simulation in batch mode.
func RunInput(input SimulationInput, logger *log.Logger) (SimulationLog, error) {
	sim, err := NewSimulation(input, logger)
	if err != nil {
		return SimulationLog{}, err
	}
	return sim.Run()
}
