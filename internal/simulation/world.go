package simulation

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/kinematics"
	"go.uber.org/zap"
)

// AgentState is the published state of one flocker.
type AgentState struct {
	ID       flock.AgentID     `json:"id"`
	Position geometry.Vector3D `json:"position"`
	Velocity geometry.Vector3D `json:"velocity"`
	Steering geometry.Vector3D `json:"steering"` // solver output of the last tick, before clamping
}

// Snapshot is a copy of the world after a tick; it shares no memory with it.
type Snapshot struct {
	RunID         uuid.UUID           `json:"runId"`
	Tick          uint64              `json:"tick"`
	Elapsed       time.Duration       `json:"elapsedNs"`
	Weights       flock.Weights       `json:"weights"`
	Agents        []AgentState        `json:"agents"`
	ControlPoints []geometry.Vector3D `json:"controlPoints"`

	Centroid  geometry.Vector3D `json:"centroid"`
	Spread    float64           `json:"spread"` // mean distance to the centroid
	MeanSpeed float64           `json:"meanSpeed"`
}

// World owns the flock and runs the tick loop: move the control points,
// freeze a snapshot, solve, then steer and integrate every body.
// A World is not safe for concurrent use; WorldActor serializes access.
type World struct {
	logger  *zap.Logger
	solver  *flock.Solver
	weights flock.Weights
	runID   uuid.UUID

	ids    []flock.AgentID
	bodies []*kinematics.Body
	paths  []ControlPath

	// Reused between ticks.
	agents   []flock.Agent
	controls []flock.ControlPoint
	steering []geometry.Vector3D

	tick    uint64
	elapsed time.Duration
}

// NewWorld spawns cfg.Population flockers uniformly inside the spawn sphere.
// With a non-zero cfg.Seed both the spawn and the jitter are reproducible.
func NewWorld(cfg *Config, logger *zap.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		rng    *rand.Rand
		jitter flock.Jitter
	)
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed>>32|cfg.Seed<<32))
		jitter = flock.NewSeededJitter(cfg.Seed)
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		jitter = flock.NewJitter()
	}

	w := &World{
		logger: logger,
		solver: flock.NewSolver(
			flock.WithJitter(jitter),
			flock.WithWorkers(cfg.Workers),
			flock.WithNeighborRadius(cfg.NeighborRadius),
		),
		weights:  cfg.Weights,
		runID:    uuid.New(),
		ids:      make([]flock.AgentID, cfg.Population),
		bodies:   make([]*kinematics.Body, cfg.Population),
		agents:   make([]flock.Agent, cfg.Population),
		steering: make([]geometry.Vector3D, cfg.Population),
	}

	for i := range w.bodies {
		// cube root keeps the density uniform over the ball
		r := cfg.SpawnRadius * math.Cbrt(rng.Float64())
		pos := cfg.SpawnCenter.Add(geometry.RandomUnit(rng).Mul(r))
		b := kinematics.NewBody(pos, cfg.MaxSpeed, cfg.SteeringAccel)
		b.Velocity = geometry.RandomUnit(rng).Mul(rng.Float64() * cfg.MaxSpeed / 2)
		w.ids[i] = flock.AgentID(fmt.Sprintf("Flocker-%03d", i))
		w.bodies[i] = b
	}

	for i, cp := range cfg.ControlPoints {
		p, err := NewControlPath(cp)
		if err != nil {
			return nil, fmt.Errorf("control point %d: %w", i, err)
		}
		w.paths = append(w.paths, p)
		w.controls = append(w.controls, flock.ControlPoint{Position: p.At(0)})
	}

	logger.Info("world created",
		zap.String("run_id", w.runID.String()),
		zap.Int("population", cfg.Population),
		zap.Int("control_points", len(w.controls)),
		zap.Float64("neighbor_radius", cfg.NeighborRadius),
		zap.Uint64("seed", cfg.Seed))
	return w, nil
}

// Step advances the world by dt and returns the resulting snapshot.
func (w *World) Step(dt time.Duration) (*Snapshot, error) {
	if dt < 0 {
		return nil, fmt.Errorf("negative tick duration %v", dt)
	}

	w.elapsed += dt
	secs := w.elapsed.Seconds()
	for i, p := range w.paths {
		w.controls[i].Position = p.At(secs)
	}
	for i, b := range w.bodies {
		w.agents[i] = flock.Agent{ID: w.ids[i], Position: b.Position, Velocity: b.Velocity}
	}

	steering, err := w.solver.Solve(w.agents, w.controls, w.weights)
	if err != nil {
		w.elapsed -= dt
		for i, p := range w.paths {
			w.controls[i].Position = p.At(w.elapsed.Seconds())
		}
		return nil, fmt.Errorf("tick %d: %w", w.tick+1, err)
	}
	for i, b := range w.bodies {
		s := steering[w.ids[i]]
		w.steering[i] = s
		b.Steer(s)
		b.Integrate(dt)
	}
	w.tick++

	snap := w.Snapshot()
	w.logger.Debug("tick",
		zap.Uint64("tick", snap.Tick),
		zap.Duration("dt", dt),
		zap.Float64("spread", snap.Spread),
		zap.Float64("mean_speed", snap.MeanSpeed))
	return snap, nil
}

// SetWeights replaces the weights used from the next tick on.
func (w *World) SetWeights(weights flock.Weights) error {
	if err := weights.Validate(); err != nil {
		return err
	}
	w.weights = weights
	w.logger.Info("weights updated",
		zap.Float64("separation", weights.Separation),
		zap.Float64("alignment", weights.Alignment),
		zap.Float64("cohesion", weights.Cohesion),
		zap.Float64("random", weights.Random),
		zap.Float64("control", weights.Control))
	return nil
}

func (w *World) Weights() flock.Weights { return w.weights }
func (w *World) RunID() uuid.UUID       { return w.runID }
func (w *World) Tick() uint64           { return w.tick }
func (w *World) Population() int        { return len(w.bodies) }

// Snapshot copies the current state.
func (w *World) Snapshot() *Snapshot {
	snap := &Snapshot{
		RunID:         w.runID,
		Tick:          w.tick,
		Elapsed:       w.elapsed,
		Weights:       w.weights,
		Agents:        make([]AgentState, len(w.bodies)),
		ControlPoints: make([]geometry.Vector3D, len(w.controls)),
	}
	for i, c := range w.controls {
		snap.ControlPoints[i] = c.Position
	}

	var sum geometry.Vector3D
	speed := 0.0
	for i, b := range w.bodies {
		snap.Agents[i] = AgentState{
			ID:       w.ids[i],
			Position: b.Position,
			Velocity: b.Velocity,
			Steering: w.steering[i],
		}
		sum = sum.Add(b.Position)
		speed += b.Speed()
	}
	if n := float64(len(w.bodies)); n > 0 {
		snap.Centroid = sum.Mul(1 / n)
		snap.MeanSpeed = speed / n
		spread := 0.0
		for _, a := range snap.Agents {
			spread += a.Position.DistanceTo(snap.Centroid)
		}
		snap.Spread = spread / n
	}
	return snap
}
