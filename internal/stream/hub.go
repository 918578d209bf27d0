// Package stream serves a running simulation over WebSocket. Every client
// receives each log row as a frame and may send control commands back.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
)

// Format is the wire encoding a client asked for with ?format=.
type Format string

const (
	// FormatJSON sends text frames holding a JSON Frame.
	FormatJSON Format = "json"
	// FormatProto sends binary frames holding a protobuf Struct with the same
	// fields as the JSON Frame.
	FormatProto Format = "proto"
)

// FrameType tags a Frame.
type FrameType string

const (
	FrameRow   FrameType = "row"
	FrameAck   FrameType = "ack"
	FrameError FrameType = "error"
)

// Frame is one server message.
type Frame struct {
	Type    FrameType                `json:"type"`
	Row     *engine.SimulationLogRow `json:"row,omitempty"`
	Command *engine.Command          `json:"command,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

// Controller is the simulation side of the hub.
type Controller interface {
	Apply(engine.Command) error
	Snapshot() engine.SimulationLogRow
}

// Hub tracks connected clients and fans frames out to them.
type Hub struct {
	Logger *log.Logger

	mu       sync.Mutex
	clients  map[*websocket.Conn]Format
	upgrader websocket.Upgrader
	sim      Controller
}

// NewHub returns a hub bound to sim. logger may be nil.
func NewHub(sim Controller, logger *log.Logger) *Hub {
	return &Hub{
		Logger:  logger,
		clients: make(map[*websocket.Conn]Format),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sim: sim,
	}
}

func (h *Hub) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

func (h *Hub) add(conn *websocket.Conn, f Format) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = f
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends row to every client. Clients that fail are dropped.
func (h *Hub) Broadcast(row engine.SimulationLogRow) {
	frame := Frame{Type: FrameRow, Row: &row}
	payloads := map[Format][]byte{}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, f := range h.clients {
		payload, ok := payloads[f]
		if !ok {
			var err error
			if payload, err = Encode(frame, f); err != nil {
				h.logf("stream: failed to encode frame: %v", err)
				return
			}
			payloads[f] = payload
		}
		if err := conn.WriteMessage(messageType(f), payload); err != nil {
			h.logf("stream: failed to write to client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

// send writes a frame to one client.
func (h *Hub) send(conn *websocket.Conn, f Format, frame Frame) error {
	payload, err := Encode(frame, f)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return conn.WriteMessage(messageType(f), payload)
}

// Handler upgrades the request, sends the current snapshot and then applies
// every command the client sends until it disconnects.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := Format(r.URL.Query().Get("format"))
		switch f {
		case "":
			f = FormatJSON
		case FormatJSON, FormatProto:
		default:
			http.Error(w, fmt.Sprintf("unknown format %q", f), http.StatusBadRequest)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logf("stream: websocket upgrade failed: %v", err)
			return
		}
		h.add(conn, f)
		defer h.remove(conn)

		snap := h.sim.Snapshot()
		if err := h.send(conn, f, Frame{Type: FrameRow, Row: &snap}); err != nil {
			h.logf("stream: failed to send snapshot: %v", err)
			return
		}

		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logf("stream: read error: %v", err)
				}
				return
			}

			reply := h.handleCommand(kind, data)
			if err := h.send(conn, f, reply); err != nil {
				h.logf("stream: failed to reply: %v", err)
				return
			}
		}
	}
}

func (h *Hub) handleCommand(kind int, data []byte) Frame {
	cmd, err := DecodeCommand(kind, data)
	if err != nil {
		h.logf("stream: unable to decode command: %v", err)
		return Frame{Type: FrameError, Error: err.Error()}
	}
	if err := h.sim.Apply(cmd); err != nil {
		h.logf("stream: command %s rejected: %v", cmd, err)
		return Frame{Type: FrameError, Command: &cmd, Error: err.Error()}
	}
	return Frame{Type: FrameAck, Command: &cmd}
}

func messageType(f Format) int {
	if f == FormatProto {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

// Encode serialises a frame. The protobuf form is the JSON object carried
// in a google.protobuf.Struct.
func Encode(frame Frame, f Format) ([]byte, error) {
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshaling frame: %w", err)
	}
	if f != FormatProto {
		return data, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}
	return proto.Marshal(s)
}

// Decode is the inverse of Encode.
func Decode(data []byte, f Format) (Frame, error) {
	var frame Frame
	if f == FormatProto {
		var err error
		if data, err = protoToJSON(data); err != nil {
			return frame, err
		}
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return frame, fmt.Errorf("decoding frame: %w", err)
	}
	return frame, nil
}

var ErrEmptyCommand = errors.New("empty command")

// DecodeCommand reads a command from a text (JSON) or binary (protobuf
// Struct) message.
func DecodeCommand(messageType int, data []byte) (engine.Command, error) {
	var cmd engine.Command
	if messageType == websocket.BinaryMessage {
		var err error
		if data, err = protoToJSON(data); err != nil {
			return cmd, err
		}
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return cmd, fmt.Errorf("decoding command: %w", err)
	}
	if cmd.Kind == "" {
		return cmd, ErrEmptyCommand
	}
	return cmd, nil
}

func protoToJSON(data []byte) ([]byte, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding protobuf struct: %w", err)
	}
	return json.Marshal(s.AsMap())
}
