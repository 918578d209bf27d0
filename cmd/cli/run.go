package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/samber/lo"

	"github.com/AudomaroDuran/Ai27Simulator/internal/config"
	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
	"github.com/AudomaroDuran/Ai27Simulator/internal/graph"
	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
	"github.com/AudomaroDuran/Ai27Simulator/internal/stream"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
	"github.com/AudomaroDuran/Ai27Simulator/internal/viewer"
)

type globalOptions struct {
	verbose     bool
	inputFormat string
	radius      float64
}

func (o *globalOptions) logger() *log.Logger {
	if !o.verbose {
		return nil
	}
	return log.New(os.Stderr, "", log.LstdFlags)
}

func (o *globalOptions) searchRadius() float64 {
	if o.radius > 0 {
		return o.radius
	}
	return vehicle.DefaultConfig().SearchRadius
}

// load reads the scenario at path, or JSON from stdin when path is "-".
func (o *globalOptions) load(path string) (engine.SimulationInput, error) {
	if path != "-" && o.inputFormat == "" {
		return config.Load(path)
	}

	f := config.FormatJSON
	if o.inputFormat != "" {
		var err error
		if f, err = config.ParseFormat(o.inputFormat); err != nil {
			return engine.SimulationInput{}, err
		}
	}

	var r io.Reader = os.Stdin
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return engine.SimulationInput{}, fmt.Errorf("reading scenario: %w", err)
		}
		defer file.Close()
		r = file
	}
	return config.Read(r, f)
}

func runBatch(opts *globalOptions, path, output, format string) error {
	input, err := opts.load(path)
	if err != nil {
		return err
	}

	f, err := outputFormat(output, format)
	if err != nil {
		return err
	}

	simLog, err := engine.RunInput(input, opts.logger())
	if err != nil {
		return fmt.Errorf("simulation error: %w", err)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer file.Close()
		w = file
	}
	return config.Write(w, simLog, f)
}

// outputFormat resolves the log format from the flag, then the output file
// extension, falling back to JSON.
func outputFormat(output, format string) (config.Format, error) {
	if format != "" {
		return config.ParseFormat(format)
	}
	if output != "" {
		if f, err := config.FormatOf(output); err == nil {
			return f, nil
		}
	}
	return config.FormatJSON, nil
}

func runValidate(opts *globalOptions, path string, strict bool) error {
	input, err := opts.load(path)
	if err != nil {
		return err
	}
	sim, err := engine.NewSimulation(input, opts.logger())
	if err != nil {
		return err
	}

	net := sim.Network()
	radius := opts.searchRadius()
	issues := net.Validate(radius)

	if len(input.Vehicles) > 0 {
		g, err := graph.FromNetwork(net, radius)
		if err != nil {
			return fmt.Errorf("building road graph: %w", err)
		}
		starts := lo.Uniq(lo.Map(input.Vehicles, func(s vehicle.Spec, _ int) string { return s.StartingRoad }))
		for _, id := range g.Unreachable(starts) {
			issues = append(issues, network.Issue{
				Kind:    network.IssueUnreachable,
				Subject: id,
				Message: "no vehicle can reach it from its starting road",
			})
		}
	}

	printValidationReport(os.Stdout, issues, fmt.Sprintf("%d roads, %d intersections, %d vehicles",
		len(net.Roads()), len(net.Intersections()), len(input.Vehicles)))
	if strict && len(issues) > 0 {
		return fmt.Errorf("%d issue(s) found", len(issues))
	}
	return nil
}

func printValidationReport(w io.Writer, issues []network.Issue, summary string) {
	if len(issues) > 0 {
		fmt.Fprintf(w, "ISSUES (%d):\n", len(issues))
		for _, is := range issues {
			fmt.Fprintf(w, "  [%s] %s: %s\n", is.Kind, is.Subject, is.Message)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Result: WARNINGS (%s)\n", summary)
		return
	}
	fmt.Fprintf(w, "Result: VALID (%s)\n", summary)
}

func runRoute(opts *globalOptions, path, from, to string) error {
	input, err := opts.load(path)
	if err != nil {
		return err
	}
	net, err := network.Build(input.Network, opts.logger())
	if err != nil {
		return err
	}
	g, err := graph.FromNetwork(net, opts.searchRadius())
	if err != nil {
		return fmt.Errorf("building road graph: %w", err)
	}
	route, err := g.GetShortestPath(from, to)
	if err != nil {
		return err
	}
	edges, err := g.RouteEdges(route)
	if err != nil {
		return err
	}
	last, err := g.GetNode(to)
	if err != nil {
		return err
	}
	printRoute(os.Stdout, route, edges, last, g.TripLength(route))
	return nil
}

// printRoute lists each hop, measured from the start of its road, then the
// destination road itself.
func printRoute(w io.Writer, route graph.PathInfo, edges []graph.Edge, last graph.Node, trip float64) {
	fmt.Fprintf(w, "Route: %s\n", strings.Join(route.Route, " → "))
	for _, e := range edges {
		line := fmt.Sprintf("  %s → %s  %.1f m", e.U, e.V, e.Length/100)
		if e.Via != "" {
			line += "  via " + e.Via
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  %s  %.1f m\n", last.ID, last.Length/100)
	fmt.Fprintf(w, "Trip length: %.1f m\n", trip/100)
}

// runGraph writes the road graph vehicles would drive on.
func runGraph(opts *globalOptions, path, output, format string) error {
	input, err := opts.load(path)
	if err != nil {
		return err
	}
	f, err := outputFormat(output, format)
	if err != nil {
		return err
	}
	net, err := network.Build(input.Network, opts.logger())
	if err != nil {
		return err
	}
	g, err := graph.FromNetwork(net, opts.searchRadius())
	if err != nil {
		return fmt.Errorf("building road graph: %w", err)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output: %w", err)
		}
		defer file.Close()
		w = file
	}
	return config.Write(w, g.Data(), f)
}

func runServe(opts *globalOptions, path, addr string, interval time.Duration) error {
	input, err := opts.load(path)
	if err != nil {
		return err
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)
	sim, err := engine.NewSimulation(input, opts.logger())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return stream.NewServer(sim, interval, logger).ListenAndServe(ctx, addr)
}

func runView(opts *globalOptions, path string, interval time.Duration) error {
	input, err := opts.load(path)
	if err != nil {
		return err
	}
	// Logging would draw over the screen.
	sim, err := engine.NewSimulation(input, nil)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	defer screen.Fini()

	v, err := viewer.New(screen, sim, nil)
	if err != nil {
		return err
	}
	v.Interval = interval

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := v.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
