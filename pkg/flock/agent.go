// Package flock computes control-point flocking steering for a snapshot of agents.
//
// Each tick the caller hands the Solver the current agents (position and
// velocity) and control points, and gets back one steering vector per agent.
// The solver never mutates its inputs and keeps no state between passes other
// than its jitter source; applying the steering (clamping, acceleration,
// integration) belongs to the caller, see package kinematics.
package flock

import (
	"fmt"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
)

// AgentID is the caller-chosen stable handle of an agent.
type AgentID string

// Agent is the read-only state of a flocker for one pass.
type Agent struct {
	ID       AgentID
	Position geometry.Vector3D
	Velocity geometry.Vector3D
}

// ControlPoint is a point the flock gathers around. Each agent is attracted
// to its nearest control point only.
type ControlPoint struct {
	Position geometry.Vector3D
}

// Result maps every agent to its steering vector for the tick it was computed.
type Result map[AgentID]geometry.Vector3D

// Terms is the per-agent breakdown of one pass. Steering is the weighted sum
// of the five other fields.
type Terms struct {
	Separation geometry.Vector3D
	Alignment  geometry.Vector3D
	Cohesion   geometry.Vector3D
	Control    geometry.Vector3D
	Random     geometry.Vector3D
	Steering   geometry.Vector3D
}

func validateSnapshot(agents []Agent, controls []ControlPoint) error {
	seen := make(map[AgentID]struct{}, len(agents))
	for i, a := range agents {
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("agent %d: duplicate id %q: %w", i, a.ID, ErrInvalidArgument)
		}
		seen[a.ID] = struct{}{}
		if !a.Position.IsFinite() {
			return fmt.Errorf("agent %q: non-finite position %v: %w", a.ID, a.Position, ErrInvalidArgument)
		}
		if !a.Velocity.IsFinite() {
			return fmt.Errorf("agent %q: non-finite velocity %v: %w", a.ID, a.Velocity, ErrInvalidArgument)
		}
	}
	for i, c := range controls {
		if !c.Position.IsFinite() {
			return fmt.Errorf("control point %d: non-finite position %v: %w", i, c.Position, ErrInvalidArgument)
		}
	}
	return nil
}
