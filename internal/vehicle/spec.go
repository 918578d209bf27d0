package vehicle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/AudomaroDuran/Ai27Simulator/internal/kinematics"
	"github.com/AudomaroDuran/Ai27Simulator/internal/transition"
)

// Spec is the static definition of a vehicle in a scenario.
// The speed physics are encapsulated by Kinem; adding a model only requires
// implementing kinematics.MotionModel and registering it in decodeKinematics.
type Spec struct {
	ID            string  `json:"id" yaml:"id"`
	Name          string  `json:"name,omitempty" yaml:"name,omitempty"`
	StartingRoad  string  `json:"starting_road" yaml:"starting_road"`
	StartDistance float64 `json:"start_distance,omitempty" yaml:"start_distance,omitempty"` // cm

	InitialSpeedKmh  float64         `json:"initial_speed_kmh,omitempty" yaml:"initial_speed_kmh,omitempty"`
	AutoTransition   *bool           `json:"auto_transition,omitempty" yaml:"auto_transition,omitempty"`
	TransitionMode   transition.Mode `json:"transition_mode" yaml:"transition_mode"`
	UseIntersections *bool           `json:"use_intersections,omitempty" yaml:"use_intersections,omitempty"`
	SearchRadius     float64         `json:"intersection_search_radius,omitempty" yaml:"intersection_search_radius,omitempty"`
	LoopAtEnd        bool            `json:"loop_at_end,omitempty" yaml:"loop_at_end,omitempty"`

	// DepartureDelay is the number of simulation-seconds the vehicle waits
	// parked on its starting road before setting off. Zero = immediate.
	DepartureDelay float64 `json:"departure_delay,omitempty" yaml:"departure_delay,omitempty"` // seconds

	Kinem kinematics.MotionModel `json:"-" yaml:"-"` // set by the unmarshalers; nil means the default model
}

// kinematicsDisc is the minimum structure needed to read the model
// discriminator.
type kinematicsDisc struct {
	Model string `json:"model" yaml:"model"`
}

// constantKinematics is the full "constant" object, discriminator included,
// so strict decoding accepts the model key.
type constantKinematics struct {
	Model                           string `json:"model" yaml:"model"`
	kinematics.ConstantAcceleration `yaml:",inline"`
}

// decodeKinematics resolves the "model" discriminator and decodes the whole
// object into that model. readModel may ignore unknown keys; decode must not.
//
// Supported models:
//   - "constant": fixed a_acc / a_dcc rates.
func decodeKinematics(id string, readModel, decode func(any) error) (kinematics.MotionModel, error) {
	var disc kinematicsDisc
	if err := readModel(&disc); err != nil {
		return nil, fmt.Errorf("vehicle %q: reading kinematics model discriminator: %w", id, err)
	}
	switch disc.Model {
	case kinematics.ConstantModelName, "":
		k := constantKinematics{ConstantAcceleration: kinematics.DefaultConstant()}
		if err := decode(&k); err != nil {
			return nil, fmt.Errorf("vehicle %q: parsing constant kinematics: %w", id, err)
		}
		return k.ConstantAcceleration, nil
	}
	return nil, fmt.Errorf("vehicle %q: unknown kinematics model %q", id, disc.Model)
}

// strictJSON decodes data into v, rejecting keys v has no field for.
func strictJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// UnmarshalJSON implements json.Unmarshaler. The optional "kinematics"
// object must carry a "model" discriminator key. Unknown keys are rejected.
func (s *Spec) UnmarshalJSON(data []byte) error {
	type plain Spec
	var aux struct {
		plain
		Kinem json.RawMessage `json:"kinematics"`
	}
	if err := strictJSON(data, &aux); err != nil {
		return err
	}
	*s = Spec(aux.plain)
	if len(aux.Kinem) == 0 {
		return nil
	}
	k, err := decodeKinematics(s.ID,
		func(v any) error { return json.Unmarshal(aux.Kinem, v) },
		func(v any) error { return strictJSON(aux.Kinem, v) })
	if err != nil {
		return err
	}
	s.Kinem = k
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler with the same rules as
// UnmarshalJSON. Node.Decode does not inherit the decoder's KnownFields
// setting, so mapping keys are checked here.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	type plain Spec
	type specYAML struct {
		plain `yaml:",inline"`
		Kinem yaml.Node `yaml:"kinematics"`
	}
	if err := checkYAMLKeys(node, reflect.TypeOf((*specYAML)(nil)).Elem()); err != nil {
		return err
	}
	var aux specYAML
	if err := node.Decode(&aux); err != nil {
		return err
	}
	*s = Spec(aux.plain)
	if aux.Kinem.Kind == 0 {
		return nil
	}
	k, err := decodeKinematics(s.ID, aux.Kinem.Decode, func(v any) error {
		if err := checkYAMLKeys(&aux.Kinem, reflect.TypeOf(v).Elem()); err != nil {
			return err
		}
		return aux.Kinem.Decode(v)
	})
	if err != nil {
		return err
	}
	s.Kinem = k
	return nil
}

// checkYAMLKeys fails on the first key of a mapping node that names no
// field of the struct type t.
func checkYAMLKeys(node *yaml.Node, t reflect.Type) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	known := yamlFields(t)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if key.Value == "<<" {
			continue
		}
		if !known[key.Value] {
			return fmt.Errorf("line %d: field %s not found in vehicle", key.Line, key.Value)
		}
	}
	return nil
}

// yamlFields lists the mapping keys a struct type decodes, following
// inline fields.
func yamlFields(t reflect.Type) map[string]bool {
	fields := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, opts, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		switch {
		case name == "-":
		case strings.Contains(opts, "inline") && f.Type.Kind() == reflect.Struct:
			for k := range yamlFields(f.Type) {
				fields[k] = true
			}
		case !f.IsExported():
		case name == "":
			fields[strings.ToLower(f.Name)] = true
		default:
			fields[name] = true
		}
	}
	return fields
}

// Config derives the runtime behaviour, filling in defaults.
func (s Spec) Config() Config {
	cfg := DefaultConfig()
	if s.InitialSpeedKmh > 0 {
		cfg.InitialSpeedKmh = s.InitialSpeedKmh
	}
	if s.SearchRadius > 0 {
		cfg.SearchRadius = s.SearchRadius
	}
	cfg.AutoTransition = lo.FromPtrOr(s.AutoTransition, true)
	cfg.UseIntersections = lo.FromPtrOr(s.UseIntersections, true)
	cfg.Mode = s.TransitionMode
	return cfg
}

// FromSpec builds a vehicle from its definition. A missing ID is replaced
// with a random UUID. The vehicle still has to be spawned on a road.
func FromSpec(s Spec, finder IntersectionFinder, rng *rand.Rand) *Vehicle {
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	v := New(id, s.Config(), finder, rng)
	if s.Name != "" {
		v.Name = s.Name
	}
	if s.Kinem != nil {
		v.Movement.Model = s.Kinem
		// An explicit v_max stands in for a missing initial speed.
		if s.InitialSpeedKmh <= 0 && s.Kinem.VMax() > 0 {
			v.InitialSpeedKmh = kinematics.InternalToKmh(s.Kinem.VMax())
		}
	}
	v.Movement.SetMaxSpeedKmh(v.InitialSpeedKmh)
	v.Movement.LoopAtEnd = s.LoopAtEnd
	return v
}
