// Package config reads scenario files and writes simulation output in YAML
// or JSON.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AudomaroDuran/Ai27Simulator/internal/engine"
)

// Format is a serialisation format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultTimeStep is used when a scenario omits time_step.
const DefaultTimeStep = 0.1

var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat accepts "yaml", "yml" or "json", in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownFormat, s)
}

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%s: no file extension: %w", path, ErrUnknownFormat)
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Load reads the scenario at path. The format follows the file extension.
func Load(path string) (engine.SimulationInput, error) {
	f, err := FormatOf(path)
	if err != nil {
		return engine.SimulationInput{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("reading scenario: %w", err)
	}
	in, err := Parse(data, f)
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

// Read decodes a scenario from r.
func Read(r io.Reader, f Format) (engine.SimulationInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return engine.SimulationInput{}, fmt.Errorf("reading scenario: %w", err)
	}
	return Parse(data, f)
}

// Parse decodes a scenario and fills in defaults. Unknown keys are rejected.
func Parse(data []byte, f Format) (engine.SimulationInput, error) {
	var in engine.SimulationInput
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil && !errors.Is(err, io.EOF) {
			return in, fmt.Errorf("parsing YAML scenario: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return in, fmt.Errorf("parsing JSON scenario: %w", err)
		}
	default:
		return in, fmt.Errorf("%w %q", ErrUnknownFormat, f)
	}
	applyDefaults(&in)
	return in, nil
}

func applyDefaults(in *engine.SimulationInput) {
	if in.Meta.TimeStep == 0 {
		in.Meta.TimeStep = DefaultTimeStep
	}
}

// Write encodes v to w. JSON output is indented.
func Write(w io.Writer, v any, f Format) error {
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, f)
}
