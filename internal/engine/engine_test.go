package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/kinematics"
	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
	"github.com/AudomaroDuran/Ai27Simulator/internal/transition"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
)

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func road(id string, from, to geom.Point) network.Road {
	return network.Road{ID: id, Points: []geom.Point{from, to}}
}

// quick has near-instant acceleration so distances are easy to predict.
var quick = kinematics.ConstantAcceleration{AAcc: 1e6, ADcc: 1e6}

func crossroadsInput() SimulationInput {
	return SimulationInput{
		Meta: SimulationMeta{SimulationID: "test", RunTime: 5, TimeStep: 0.1, Seed: 3},
		Network: network.Data{
			Roads: []network.Road{
				road("west_in", pt(-10000, 0), pt(-600, 0)),
				road("east_out", pt(600, 0), pt(10000, 0)),
				road("north_out", pt(0, 600), pt(0, 10000)),
				road("south_in", pt(0, -10000), pt(0, -600)),
			},
			Intersections: []network.Intersection{{
				Name: "Main & 1st",
				Connections: []network.JunctionLink{
					{Road: "west_in", Direction: "incoming"},
					{Road: "east_out", AtStart: true, Direction: "outgoing"},
					{Road: "north_out", AtStart: true, Direction: "outgoing"},
					{Road: "south_in", Direction: "incoming"},
				},
			}},
		},
		Vehicles: []vehicle.Spec{
			{ID: "car-1", StartingRoad: "west_in", StartDistance: 8000, InitialSpeedKmh: 36, TransitionMode: transition.First, Kinem: quick},
			{ID: "car-2", StartingRoad: "south_in", InitialSpeedKmh: 36, DepartureDelay: 1, Kinem: quick},
			{ID: "car-3", StartingRoad: "north_out", StartDistance: 9000, InitialSpeedKmh: 36, Kinem: quick},
		},
	}
}

func eventsOf(l SimulationLog, id string, kind EventKind) []Event {
	var out []Event
	for _, row := range l.Output {
		for _, e := range row.Events {
			if e.Vehicle == id && e.Kind == kind {
				out = append(out, e)
			}
		}
	}
	return out
}

func vehicleAt(row SimulationLogRow, id string) vehicle.Log {
	for _, v := range row.VehicleLogs {
		if v.ID == id {
			return v
		}
	}
	return vehicle.Log{}
}

func TestRun(t *testing.T) {
	t.Parallel()
	sim, err := NewSimulation(crossroadsInput(), nil)
	require.NoError(t, err)
	out, err := sim.Run()
	require.NoError(t, err)

	require.Len(t, out.Output, 51)
	assert.Equal(t, 0.0, out.Output[0].Timestamp)
	assert.InDelta(t, 5.0, out.Output[50].Timestamp, 1e-9)
	assert.Equal(t, "test", out.Meta.SimulationID)

	t.Run("crossing", func(t *testing.T) {
		entered := eventsOf(out, "car-1", EventJunctionEntered)
		require.Len(t, entered, 1)
		assert.Equal(t, "Main & 1st", entered[0].Subject)
		changed := eventsOf(out, "car-1", EventRoadChanged)
		require.Len(t, changed, 1)
		assert.Equal(t, "east_out", changed[0].Subject, "first mode takes the lowest bearing exit")

		last := vehicleAt(out.Output[50], "car-1")
		assert.Equal(t, "east_out", last.Road)
		assert.Equal(t, vehicle.StateFollowing, last.State)
		assert.True(t, last.Moving)
		assert.InDelta(t, 36, last.SpeedKmh, 1e-6)
	})

	t.Run("departure delay", func(t *testing.T) {
		early := vehicleAt(out.Output[5], "car-2")
		assert.Equal(t, vehicle.StateStationary, early.State)
		assert.Zero(t, early.Distance)

		departed := eventsOf(out, "car-2", EventDeparted)
		require.Len(t, departed, 1)
		assert.Equal(t, "south_in", departed[0].Subject)
		assert.Equal(t, vehicle.StateFollowing, vehicleAt(out.Output[11], "car-2").State)
		assert.Greater(t, vehicleAt(out.Output[50], "car-2").Distance, 3000.0)
	})

	t.Run("dead end", func(t *testing.T) {
		stopped := eventsOf(out, "car-3", EventStopped)
		require.Len(t, stopped, 1)
		assert.Equal(t, "north_out", stopped[0].Subject)
		last := vehicleAt(out.Output[50], "car-3")
		assert.Equal(t, vehicle.StateStopped, last.State)
		assert.InDelta(t, 9400, last.Distance, 1e-6)
	})
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()
	input := crossroadsInput()
	for i := range input.Vehicles {
		input.Vehicles[i].TransitionMode = transition.Random
	}
	a, err := RunInput(input, nil)
	require.NoError(t, err)
	b, err := RunInput(input, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewSimulationErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*SimulationInput)
		target  error
		message string
	}{
		{name: "time step", mutate: func(in *SimulationInput) { in.Meta.TimeStep = 0 }, target: ErrInvalidTimeStep},
		{name: "negative run time", mutate: func(in *SimulationInput) { in.Meta.RunTime = -1 }, message: "run_time"},
		{name: "unknown road", mutate: func(in *SimulationInput) { in.Vehicles[0].StartingRoad = "ghost" }, target: network.ErrUnknownRoad},
		{name: "duplicate id", mutate: func(in *SimulationInput) { in.Vehicles[1].ID = "car-1" }, message: `vehicle "car-1" already exists`},
		{name: "start distance", mutate: func(in *SimulationInput) { in.Vehicles[0].StartDistance = 1e6 }, message: "start_distance"},
		{name: "network", mutate: func(in *SimulationInput) { in.Network.Roads[0].Points = nil }, message: "building network"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := crossroadsInput()
			tt.mutate(&input)
			_, err := NewSimulation(input, nil)
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
			if tt.message != "" {
				assert.ErrorContains(t, err, tt.message)
			}
		})
	}
}

func TestGeneratedIDs(t *testing.T) {
	t.Parallel()
	input := crossroadsInput()
	input.Meta.SimulationID = ""
	input.Vehicles[0].ID = ""
	sim, err := NewSimulation(input, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sim.Meta().SimulationID)
	assert.NotEmpty(t, sim.Snapshot().VehicleLogs[0].ID)
}

func TestRunJSON(t *testing.T) {
	t.Parallel()
	in, err := json.Marshal(map[string]any{
		"simulation_meta": map[string]any{"simulation_id": "json", "run_time": 1, "time_step": 0.5},
		"network": map[string]any{
			"roads": []any{map[string]any{
				"id":     "a",
				"points": []any{map[string]any{"x": 0, "y": 0}, map[string]any{"x": 100000, "y": 0}},
			}},
		},
		"vehicles": []any{map[string]any{
			"id":            "car",
			"starting_road": "a",
			"kinematics":    map[string]any{"model": "constant", "a_acc": 1000, "a_dcc": 1000, "v_max": 2000},
		}},
	})
	require.NoError(t, err)

	out, err := RunJSON(string(in))
	require.NoError(t, err)

	var l SimulationLog
	require.NoError(t, json.Unmarshal([]byte(out), &l))
	require.Len(t, l.Output, 3)
	assert.Equal(t, "json", l.Meta.SimulationID)
	car := l.Output[2].VehicleLogs[0]
	assert.Equal(t, "car", car.ID)
	assert.InDelta(t, 1000, car.Speed, 1e-6)
	assert.InDelta(t, 750, car.Distance, 1e-6)

	_, err = RunJSON("{")
	assert.ErrorContains(t, err, "invalid input JSON")
}

func TestApply(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	sim, err := NewSimulation(crossroadsInput(), log.New(&buf, "", 0))
	require.NoError(t, err)
	sim.Step(0)
	sim.Step(0.1)

	require.NoError(t, sim.Apply(Command{Vehicle: "car-1", Kind: CommandStop}))
	row := sim.Step(0.1)
	car := vehicleAt(row, "car-1")
	assert.False(t, car.Moving)
	assert.Equal(t, vehicle.StateStopped, car.State)
	require.NotEmpty(t, row.Events)
	assert.Equal(t, Event{Vehicle: "car-1", Kind: EventCommand, Subject: "stop"}, row.Events[0])

	require.NoError(t, sim.Apply(Command{Kind: CommandSetSpeed, SpeedKmh: 72}))
	require.NoError(t, sim.Apply(Command{Vehicle: "car-1", Kind: CommandResume}))
	sim.Step(0.1)
	assert.InDelta(t, 72, vehicleAt(sim.Snapshot(), "car-1").SpeedKmh, 1e-6)

	require.NoError(t, sim.Apply(Command{Vehicle: "car-2", Kind: CommandReassign, Road: "east_out"}))
	car2 := vehicleAt(sim.Step(0.1), "car-2")
	assert.Equal(t, "east_out", car2.Road)
	assert.True(t, car2.Moving)

	assert.ErrorIs(t, sim.Apply(Command{Vehicle: "ghost", Kind: CommandStop}), ErrUnknownVehicle)
	assert.ErrorIs(t, sim.Apply(Command{Kind: "fly"}), ErrUnknownCommand)
	assert.ErrorIs(t, sim.Apply(Command{Kind: CommandReassign, Road: "ghost"}), network.ErrUnknownRoad)
	assert.Error(t, sim.Apply(Command{Kind: CommandSetSpeed, SpeedKmh: -5}))
	assert.Contains(t, buf.String(), "applied set_speed 72 km/h to 3 vehicle(s)")
}

func TestRunRealtime(t *testing.T) {
	t.Parallel()

	t.Run("stops at run time", func(t *testing.T) {
		input := crossroadsInput()
		input.Meta.RunTime = 0.05
		input.Meta.TimeStep = 0.01
		sim, err := NewSimulation(input, nil)
		require.NoError(t, err)

		var rows []SimulationLogRow
		err = sim.RunRealtime(context.Background(), time.Millisecond, func(r SimulationLogRow) { rows = append(rows, r) })
		require.NoError(t, err)
		assert.Len(t, rows, 6)
		assert.True(t, sim.Finished())
	})

	t.Run("cancelled", func(t *testing.T) {
		input := crossroadsInput()
		input.Meta.RunTime = 0
		sim, err := NewSimulation(input, nil)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		err = sim.RunRealtime(ctx, time.Millisecond, nil)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
		assert.Greater(t, sim.Time(), 0.0)
		assert.False(t, sim.Finished())

		_, err = sim.Run()
		assert.ErrorContains(t, err, "positive run_time")
	})
}
