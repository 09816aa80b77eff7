package flock

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidArgument marks inputs the solver refuses: non-finite weights,
// positions or velocities, and duplicate agent ids.
var ErrInvalidArgument = errors.New("invalid argument")

// Weights scale the five steering terms before they are summed.
// Any finite value is accepted; a negative weight inverts its behaviour.
type Weights struct {
	Separation float64 `json:"separationWeight" yaml:"separationWeight"`
	Alignment  float64 `json:"alignmentWeight" yaml:"alignmentWeight"`
	Cohesion   float64 `json:"cohesionWeight" yaml:"cohesionWeight"`
	Random     float64 `json:"randomWeight" yaml:"randomWeight"`
	Control    float64 `json:"controlWeight" yaml:"controlWeight"`
}

// DefaultWeights returns a balanced set that keeps a flock together around
// its control points while still spreading out.
func DefaultWeights() Weights {
	return Weights{
		Separation: 5.0,
		Alignment:  1.25,
		Cohesion:   3.5,
		Random:     0.2,
		Control:    0.1,
	}
}

// Validate returns ErrInvalidArgument when any weight is NaN or infinite.
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"separation", w.Separation},
		{"alignment", w.Alignment},
		{"cohesion", w.Cohesion},
		{"random", w.Random},
		{"control", w.Control},
	}
	for _, n := range named {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return fmt.Errorf("%s weight %v is not finite: %w", n.name, n.value, ErrInvalidArgument)
		}
	}
	return nil
}
