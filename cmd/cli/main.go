// Command ai27sim runs spline road network scenarios. A scenario is a YAML or
// JSON engine.SimulationInput; "-" or no argument reads JSON from stdin.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AudomaroDuran/Ai27Simulator/internal/viewer"
)

func main() {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:          "ai27sim",
		Short:        "Spline road network traffic simulator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	rootCmd.PersistentFlags().StringVar(&opts.inputFormat, "input-format", "", "scenario format (yaml or json); defaults to the file extension")
	rootCmd.PersistentFlags().Float64Var(&opts.radius, "radius", 0, "intersection search radius in cm (default: the vehicle default)")

	rootCmd.AddCommand(runCmd(&opts))
	rootCmd.AddCommand(validateCmd(&opts))
	rootCmd.AddCommand(routeCmd(&opts))
	rootCmd.AddCommand(graphCmd(&opts))
	rootCmd.AddCommand(serveCmd(&opts))
	rootCmd.AddCommand(viewCmd(&opts))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd(opts *globalOptions) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "Run a scenario in batch mode and write the simulation log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBatch(opts, scenarioArg(args), output, format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the log to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "log format (yaml or json); defaults to the output extension, else json")
	return cmd
}

func validateCmd(opts *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [scenario]",
		Short: "Check a scenario for dead ends, gaps and unreachable roads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runValidate(opts, scenarioArg(args), strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any issue is found")
	return cmd
}

func routeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "route scenario from-road to-road",
		Short: "Print the shortest road route between two roads",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRoute(opts, args[0], args[1], args[2])
		},
	}
}

func graphCmd(opts *globalOptions) *cobra.Command {
	var output, format string

	cmd := &cobra.Command{
		Use:   "graph [scenario]",
		Short: "Write the road graph (roads and the continuations between them)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runGraph(opts, scenarioArg(args), output, format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "", "graph format (yaml or json); defaults to the output extension, else json")
	return cmd
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var (
		addr     string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve [scenario]",
		Short: "Run a scenario in real time and stream it over WebSocket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runServe(opts, scenarioArg(args), addr, interval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "HTTP listen address")
	cmd.Flags().DurationVarP(&interval, "interval", "i", 100*time.Millisecond, "wall-clock time per simulation step")
	return cmd
}

func viewCmd(opts *globalOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "view [scenario]",
		Short: "Watch a scenario run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runView(opts, args[0], interval)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", viewer.DefaultInterval, "wall-clock time per simulation step")
	return cmd
}

func scenarioArg(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}
