package flock

import (
	"math"
	"slices"
	"sync"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
	"golang.org/x/sync/errgroup"
)

// minParallelAgents is the population below which a pass stays on the
// calling goroutine even when several workers are configured.
const minParallelAgents = 64

// Solver computes steering for a flock. A Solver holds no per-pass state and
// may be shared between goroutines and reused across ticks.
type Solver struct {
	jitter         Jitter
	workers        int
	neighborRadius float64
	grids          sync.Pool
}

// Option configures a Solver.
type Option func(*Solver)

// WithJitter sets the source of the random term. A nil source disables it.
func WithJitter(j Jitter) Option {
	return func(s *Solver) {
		if j == nil {
			j = ZeroJitter{}
		}
		s.jitter = j
	}
}

// WithWorkers splits each pass over n goroutines. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(s *Solver) {
		s.workers = max(n, 1)
	}
}

// WithNeighborRadius restricts separation, alignment and cohesion to agents
// strictly closer than r. Zero, negative or non-finite r keeps the default
// where every other agent is a neighbour.
func WithNeighborRadius(r float64) Option {
	return func(s *Solver) {
		if r > 0 && !math.IsInf(r, 1) {
			s.neighborRadius = r
		} else {
			s.neighborRadius = 0
		}
	}
}

// NewSolver returns a sequential, unbounded-neighbourhood solver with an
// unseeded jitter source, adjusted by opts.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		jitter:  NewJitter(),
		workers: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NeighborRadius returns the configured cutoff, 0 when unbounded.
func (s *Solver) NeighborRadius() float64 { return s.neighborRadius }

var defaultSolver = NewSolver()

// Solve runs one pass with a shared default Solver.
func Solve(agents []Agent, controls []ControlPoint, w Weights) (Result, error) {
	return defaultSolver.Solve(agents, controls, w)
}

// Solve returns the steering vector of every agent for the current tick.
// An empty agent slice yields an empty result. Non-finite inputs and
// duplicate ids are rejected with ErrInvalidArgument.
func (s *Solver) Solve(agents []Agent, controls []ControlPoint, w Weights) (Result, error) {
	terms, err := s.pass(agents, controls, w)
	if err != nil {
		return nil, err
	}
	res := make(Result, len(agents))
	for i, a := range agents {
		res[a.ID] = terms[i].Steering
	}
	return res, nil
}

// SolveTerms is Solve with every individual term exposed.
func (s *Solver) SolveTerms(agents []Agent, controls []ControlPoint, w Weights) (map[AgentID]Terms, error) {
	terms, err := s.pass(agents, controls, w)
	if err != nil {
		return nil, err
	}
	res := make(map[AgentID]Terms, len(agents))
	for i, a := range agents {
		res[a.ID] = terms[i]
	}
	return res, nil
}

// pass computes the terms of every agent, aligned with the agents slice.
func (s *Solver) pass(agents []Agent, controls []ControlPoint, w Weights) ([]Terms, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := validateSnapshot(agents, controls); err != nil {
		return nil, err
	}

	out := make([]Terms, len(agents))
	if len(agents) == 0 {
		return out, nil
	}

	p := &snapshot{
		agents:   agents,
		controls: controls,
		weights:  w,
		random:   s.jitter.Frame(),
	}
	if s.neighborRadius > 0 {
		p.bounded = true
		p.radiusSq = s.neighborRadius * s.neighborRadius
		g := s.acquireGrid()
		defer s.grids.Put(g)
		// Agents too far out for the grid fall back to the full scan.
		if g.rebuild(agents) {
			p.grid = g
		}
	}

	if s.workers <= 1 || len(agents) < minParallelAgents {
		var scratch []int
		for i := range agents {
			out[i] = p.agentTerms(i, &scratch)
		}
		return out, nil
	}

	// Every worker reads the same frozen snapshot and writes only its own
	// slots of out, so no locking is needed.
	chunk := (len(agents) + s.workers - 1) / s.workers
	var eg errgroup.Group
	for start := 0; start < len(agents); start += chunk {
		end := min(start+chunk, len(agents))
		eg.Go(func() error {
			var scratch []int
			for i := start; i < end; i++ {
				out[i] = p.agentTerms(i, &scratch)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Solver) acquireGrid() *grid {
	if g, ok := s.grids.Get().(*grid); ok && g.cellSize == s.neighborRadius {
		return g
	}
	return newGrid(s.neighborRadius)
}

// snapshot is the frozen input of one pass.
type snapshot struct {
	agents   []Agent
	controls []ControlPoint
	weights  Weights
	random   func(AgentID) geometry.Vector3D

	// grid is nil in the unbounded mode and when the agents cannot be
	// bucketed.
	bounded  bool
	grid     *grid
	radiusSq float64
}

func (p *snapshot) agentTerms(i int, scratch *[]int) Terms {
	self := p.agents[i]

	var sepSum, velSum, posSum geometry.Vector3D
	neighbors := 0
	visit := func(other Agent) {
		d := self.Position.Sub(other.Position)
		if dSq := d.LenSqr(); dSq != 0 {
			// d.Normalize() / |d|^2 written as d / |d|^3
			inv := 1 / (dSq * math.Sqrt(dSq))
			if !math.IsInf(inv, 0) {
				sepSum = sepSum.Add(d.Mul(inv))
			}
		}
		velSum = velSum.Add(other.Velocity)
		posSum = posSum.Add(other.Position)
		neighbors++
	}

	if p.grid == nil {
		for j, other := range p.agents {
			if j == i {
				continue
			}
			if !p.bounded || self.Position.DistanceSquaredTo(other.Position) < p.radiusSq {
				visit(other)
			}
		}
	} else {
		// Sorting keeps the summation order identical to the unbounded scan.
		*scratch = p.grid.nearby((*scratch)[:0], self.Position)
		slices.Sort(*scratch)
		for _, j := range *scratch {
			if j == i {
				continue
			}
			other := p.agents[j]
			if self.Position.DistanceSquaredTo(other.Position) < p.radiusSq {
				visit(other)
			}
		}
	}

	t := Terms{Separation: sepSum}
	if neighbors > 0 {
		n := float64(neighbors)
		t.Alignment = velSum.Mul(1 / n).Normalize()
		t.Cohesion = posSum.Mul(1 / n).Sub(self.Position).Normalize()
	}
	t.Control = p.controlPull(self.Position)
	t.Random = p.random(self.ID)

	w := p.weights
	t.Steering = t.Separation.Mul(w.Separation).
		Add(t.Alignment.Mul(w.Alignment)).
		Add(t.Cohesion.Mul(w.Cohesion)).
		Add(t.Random.Mul(w.Random)).
		Add(t.Control.Mul(w.Control))
	return t
}

// controlPull returns the offset from pos to the nearest control point.
// Ties go to the first point in iteration order.
func (p *snapshot) controlPull(pos geometry.Vector3D) geometry.Vector3D {
	nearest := -1
	nearestSq := math.Inf(1)
	for k, c := range p.controls {
		if dSq := c.Position.DistanceSquaredTo(pos); dSq < nearestSq {
			nearestSq = dSq
			nearest = k
		}
	}
	if nearest < 0 {
		return geometry.Zero
	}
	return p.controls[nearest].Position.Sub(pos)
}
