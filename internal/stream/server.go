package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
)

// Path is where the hub is mounted.
const Path = "/ws"

// Server runs a simulation in real time and streams it to WebSocket
// clients.
type Server struct {
	Sim      *engine.Simulation
	Interval time.Duration
	Logger   *log.Logger

	hub *Hub
}

// NewServer returns a server that steps sim once per interval.
func NewServer(sim *engine.Simulation, interval time.Duration, logger *log.Logger) *Server {
	return &Server{Sim: sim, Interval: interval, Logger: logger, hub: NewHub(sim, logger)}
}

// Hub returns the client hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler serves the hub at Path and the simulation metadata at /meta.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(Path, s.hub.Handler())
	mux.HandleFunc("/meta", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Sim.Meta()); err != nil {
			s.logf("stream: failed to write meta: %v", err)
		}
	})
	return mux
}

// Serve listens on l until ctx is cancelled or the simulation finishes, and
// then shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	simErr := make(chan error, 1)
	go func() {
		simErr <- s.Sim.RunRealtime(ctx, s.Interval, s.hub.Broadcast)
		cancel()
	}()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(l) }()
	s.logf("streaming simulation %s on ws://%s%s", s.Sim.Meta().SimulationID, l.Addr(), Path)

	select {
	case err := <-serveErr:
		cancel()
		<-simErr
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}
	if err := <-simErr; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func (s *Server) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// ListenAndServe is Serve on a new TCP listener at addr.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}
