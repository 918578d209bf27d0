package stream

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
	"github.com/AudomaroDuran/Ai27Simulator/internal/geom"
	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
)

func newSim(t *testing.T, runTime float64) *engine.Simulation {
	t.Helper()
	sim, err := engine.NewSimulation(engine.SimulationInput{
		Meta: engine.SimulationMeta{SimulationID: "stream", RunTime: runTime, TimeStep: 0.1},
		Network: network.Data{Roads: []network.Road{{
			ID:     "a",
			Points: []geom.Point{{X: 0, Y: 0}, {X: 100000, Y: 0}},
		}}},
		Vehicles: []vehicle.Spec{{ID: "car", StartingRoad: "a", InitialSpeedKmh: 36}},
	}, nil)
	require.NoError(t, err)
	return sim
}

func wsURL(httpURL, query string) string {
	u := "ws" + strings.TrimPrefix(httpURL, "http")
	if query != "" {
		u += "?" + query
	}
	return u
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, f Format) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, messageType(f), kind)
	frame, err := Decode(data, f)
	require.NoError(t, err)
	return frame
}

func TestHubJSON(t *testing.T) {
	t.Parallel()
	sim := newSim(t, 0)
	hub := NewHub(sim, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv.URL, ""))
	snap := readFrame(t, conn, FormatJSON)
	assert.Equal(t, FrameRow, snap.Type)
	require.NotNil(t, snap.Row)
	require.Len(t, snap.Row.VehicleLogs, 1)
	assert.Equal(t, "car", snap.Row.VehicleLogs[0].ID)
	assert.Equal(t, 1, hub.Clients())

	sim.Step(0)
	hub.Broadcast(sim.Step(0.1))
	row := readFrame(t, conn, FormatJSON)
	require.NotNil(t, row.Row)
	assert.InDelta(t, 0.1, row.Row.Timestamp, 1e-9)
	assert.InDelta(t, 36, row.Row.VehicleLogs[0].SpeedKmh, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"vehicle": "car", "command": "stop"}`)))
	ack := readFrame(t, conn, FormatJSON)
	assert.Equal(t, FrameAck, ack.Type)
	require.NotNil(t, ack.Command)
	assert.Equal(t, engine.CommandStop, ack.Command.Kind)
	assert.False(t, sim.Snapshot().VehicleLogs[0].Moving)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"vehicle": "ghost", "command": "stop"}`)))
	rejected := readFrame(t, conn, FormatJSON)
	assert.Equal(t, FrameError, rejected.Type)
	assert.Contains(t, rejected.Error, "unknown vehicle")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{}`)))
	empty := readFrame(t, conn, FormatJSON)
	assert.Equal(t, FrameError, empty.Type)
	assert.Equal(t, ErrEmptyCommand.Error(), empty.Error)
}

func TestHubProto(t *testing.T) {
	t.Parallel()
	sim := newSim(t, 0)
	hub := NewHub(sim, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv.URL, "format=proto"))
	snap := readFrame(t, conn, FormatProto)
	require.NotNil(t, snap.Row)
	assert.Equal(t, "car", snap.Row.VehicleLogs[0].ID)

	cmd, err := structpb.NewStruct(map[string]any{"command": "set_speed", "speed_kmh": 50})
	require.NoError(t, err)
	payload, err := proto.Marshal(cmd)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, payload))

	ack := readFrame(t, conn, FormatProto)
	assert.Equal(t, FrameAck, ack.Type)
	require.NotNil(t, ack.Command)
	assert.Equal(t, engine.CommandSetSpeed, ack.Command.Kind)
	assert.Equal(t, 50.0, ack.Command.SpeedKmh)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0xff, 0x01}))
	bad := readFrame(t, conn, FormatProto)
	assert.Equal(t, FrameError, bad.Type)
}

func TestHubRejectsUnknownFormat(t *testing.T) {
	t.Parallel()
	hub := NewHub(newSim(t, 0), nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv.URL, "format=xml"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubDropsClosedClients(t *testing.T) {
	t.Parallel()
	sim := newSim(t, 0)
	hub := NewHub(sim, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, wsURL(srv.URL, ""))
	readFrame(t, conn, FormatJSON)
	require.Equal(t, 1, hub.Clients())

	conn.Close()
	assert.Eventually(t, func() bool {
		hub.Broadcast(sim.Snapshot())
		return hub.Clients() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()
	frame := Frame{
		Type: FrameRow,
		Row: &engine.SimulationLogRow{
			Timestamp:   2.5,
			VehicleLogs: []vehicle.Log{{ID: "car", Road: "a", State: vehicle.StateFollowing, Distance: 120, Moving: true}},
			Events:      []engine.Event{{Vehicle: "car", Kind: engine.EventDeparted, Subject: "a"}},
		},
	}
	for _, f := range []Format{FormatJSON, FormatProto} {
		data, err := Encode(frame, f)
		require.NoError(t, err)
		got, err := Decode(data, f)
		require.NoError(t, err)
		assert.Equal(t, frame, got, string(f))
	}
}

func TestServer(t *testing.T) {
	t.Parallel()
	s := NewServer(newSim(t, 0), 5*time.Millisecond, nil)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + l.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	resp, err := http.Get(base + "/meta")
	require.NoError(t, err)
	var meta engine.SimulationMeta
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	resp.Body.Close()
	assert.Equal(t, "stream", meta.SimulationID)

	conn := dial(t, wsURL(base+Path, ""))
	var latest float64
	for loopN := 0; loopN < 4; loopN++ {
		f := readFrame(t, conn, FormatJSON)
		require.NotNil(t, f.Row)
		latest = max(latest, f.Row.Timestamp)
	}
	assert.Greater(t, latest, 0.0)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerStopsWhenFinished(t *testing.T) {
	t.Parallel()
	s := NewServer(newSim(t, 0.3), time.Millisecond, nil)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Serve(context.Background(), l) }()
	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, s.Sim.Finished())
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after the run time")
	}
}
