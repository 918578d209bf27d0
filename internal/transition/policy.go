// Package transition selects the next road a vehicle takes when several are
// available.
package transition

import (
	"fmt"
	"math/rand"
	"strings"
)

// Mode is a selection strategy.
type Mode int

const (
	Random Mode = iota
	First
	Last
)

func (m Mode) String() string {
	switch m {
	case Random:
		return "random"
	case First:
		return "first"
	case Last:
		return "last"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads a mode name. The empty string means Random.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "random":
		return Random, nil
	case "first":
		return First, nil
	case "last":
		return Last, nil
	}
	return Random, fmt.Errorf("unknown transition mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Choose picks one candidate according to mode. It reports false when there
// are no candidates. A nil rng falls back to the package-level source.
func Choose[T any](candidates []T, mode Mode, rng *rand.Rand) (T, bool) {
	var zero T
	if len(candidates) == 0 {
		return zero, false
	}
	switch mode {
	case First:
		return candidates[0], true
	case Last:
		return candidates[len(candidates)-1], true
	}
	if rng == nil {
		return candidates[rand.Intn(len(candidates))], true
	}
	return candidates[rng.Intn(len(candidates))], true
}
