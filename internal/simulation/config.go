package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lao-tseu-is-alive/go-flock-control/internal/logging"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchema string

const configSchemaURL = "config.schema.json"

// OrbitConfig makes a control point circle around its configured position.
type OrbitConfig struct {
	Radius       float64 `json:"radius" yaml:"radius"`
	AngularSpeed float64 `json:"angularSpeed" yaml:"angularSpeed"` // rad/s
	Phase        float64 `json:"phase,omitempty" yaml:"phase,omitempty"`
	Axis         string  `json:"axis,omitempty" yaml:"axis,omitempty"` // "xy" (default), "xz" or "yz"
}

// ControlPointConfig is a static control point, or the centre of an orbit.
type ControlPointConfig struct {
	Position geometry.Vector3D `json:"position" yaml:"position"`
	Orbit    *OrbitConfig      `json:"orbit,omitempty" yaml:"orbit,omitempty"`
}

type Config struct {
	// Population
	Population  int               `json:"population" yaml:"population"`
	SpawnCenter geometry.Vector3D `json:"spawnCenter" yaml:"spawnCenter"`
	SpawnRadius float64           `json:"spawnRadius" yaml:"spawnRadius"`
	Seed        uint64            `json:"seed" yaml:"seed"` // 0 picks a random seed

	// Solver
	Workers        int           `json:"workers" yaml:"workers"`
	NeighborRadius float64       `json:"neighborRadius" yaml:"neighborRadius"` // 0 means every agent is a neighbour
	Weights        flock.Weights `json:"weights" yaml:"weights"`

	// Movement
	MaxSpeed      float64 `json:"maxSpeed" yaml:"maxSpeed"`
	SteeringAccel float64 `json:"steeringAccel" yaml:"steeringAccel"`

	ControlPoints []ControlPointConfig `json:"controlPoints" yaml:"controlPoints"`

	// Driver
	TickRate  int     `json:"tickRate" yaml:"tickRate"` // ticks per second
	LogLevel  string  `json:"logLevel" yaml:"logLevel"`
	ViewScale float64 `json:"viewScale" yaml:"viewScale"` // pixels per world unit in the viewer
}

func DefaultConfig() *Config {
	return &Config{
		Population:    60,
		SpawnRadius:   25,
		Workers:       1,
		Weights:       flock.DefaultWeights(),
		MaxSpeed:      12,
		SteeringAccel: 30,
		ControlPoints: []ControlPointConfig{
			{
				Position: geometry.Vector3D{},
				Orbit:    &OrbitConfig{Radius: 40, AngularSpeed: 0.4, Axis: "xy"},
			},
			{
				Position: geometry.Vector3D{X: 70, Y: -40},
			},
		},
		TickRate:  60,
		LogLevel:  "info",
		ViewScale: 4,
	}
}

// Validate checks the invariants the schema cannot express and reports
// every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Population < 0 {
		errs = append(errs, fmt.Errorf("population must be >= 0, got %d", c.Population))
	}
	if c.SpawnRadius < 0 || !c.SpawnCenter.IsFinite() {
		errs = append(errs, fmt.Errorf("invalid spawn area %v radius %v", c.SpawnCenter, c.SpawnRadius))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Workers))
	}
	if c.NeighborRadius < 0 {
		errs = append(errs, fmt.Errorf("neighborRadius must be >= 0, got %v", c.NeighborRadius))
	}
	if err := c.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxSpeed <= 0 {
		errs = append(errs, fmt.Errorf("maxSpeed must be > 0, got %v", c.MaxSpeed))
	}
	if c.SteeringAccel < 0 {
		errs = append(errs, fmt.Errorf("steeringAccel must be >= 0, got %v", c.SteeringAccel))
	}
	for i, cp := range c.ControlPoints {
		if !cp.Position.IsFinite() {
			errs = append(errs, fmt.Errorf("control point %d: non-finite position %v", i, cp.Position))
		}
		if cp.Orbit == nil {
			continue
		}
		if cp.Orbit.Radius < 0 {
			errs = append(errs, fmt.Errorf("control point %d: orbit radius must be >= 0", i))
		}
		if _, err := orbitAxes(cp.Orbit.Axis); err != nil {
			errs = append(errs, fmt.Errorf("control point %d: %w", i, err))
		}
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tickRate must be > 0, got %d", c.TickRate))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadConfig reads a JSON or YAML (by extension) config file, validates it
// against the embedded schema and overlays it on DefaultConfig.
func LoadConfig(configFile string) (*Config, error) {
	raw, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config yaml: %w", err)
		}
	}
	return ParseConfig(raw)
}

// ParseConfig validates a JSON document and overlays it on DefaultConfig.
func ParseConfig(raw []byte) (*Config, error) {
	sch, err := jsonschema.CompileString(configSchemaURL, configSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if fields, ok := doc.(map[string]interface{}); ok {
		if _, set := fields["controlPoints"]; set {
			// encoding/json decodes array elements into the existing backing
			// array, which would leak default orbits into user points.
			cfg.ControlPoints = nil
		}
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// yamlToJSON re-encodes a YAML document as JSON so both formats go through
// the same schema.
func yamlToJSON(raw []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(doc)
}
