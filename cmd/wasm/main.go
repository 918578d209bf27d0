//go:build js && wasm

// Command wasm exposes the simulator to the browser via WebAssembly.
// After loading, it registers two global JavaScript functions:
//
//	runSimulation(scenario, format?) -> jsonString
//	validateScenario(scenario, format?) -> jsonString
//
// scenario is a SimulationInput in format ("json" by default, or "yaml").
// runSimulation returns the SimulationLog and validateScenario the list of
// network issues, both as JSON. Failures return {error: message}.
package main

import (
	"strings"
	"syscall/js"

	"github.com/AudomaroDuran/Ai27Simulator/internal/config"
	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
	"github.com/AudomaroDuran/Ai27Simulator/internal/network"
	"github.com/AudomaroDuran/Ai27Simulator/internal/vehicle"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("validateScenario", js.FuncOf(validateScenario))
	select {} // keep the WASM module alive until the page is closed
}

func parseArgs(args []js.Value) (engine.SimulationInput, error) {
	f := config.FormatJSON
	if len(args) > 1 && args[1].Type() == js.TypeString {
		var err error
		if f, err = config.ParseFormat(args[1].String()); err != nil {
			return engine.SimulationInput{}, err
		}
	}
	return config.Parse([]byte(args[0].String()), f)
}

func encode(v any) any {
	var b strings.Builder
	if err := config.Write(&b, v, config.FormatJSON); err != nil {
		return map[string]any{"error": err.Error()}
	}
	return b.String()
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}
	input, err := parseArgs(args)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	simLog, err := engine.RunInput(input, nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return encode(simLog)
}

func validateScenario(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}
	input, err := parseArgs(args)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	net, err := network.Build(input.Network, nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	issues := net.Validate(vehicle.DefaultConfig().SearchRadius)
	if issues == nil {
		issues = []network.Issue{}
	}
	return encode(issues)
}
