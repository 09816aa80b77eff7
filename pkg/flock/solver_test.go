package flock

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

func vec(x, y, z float64) geometry.Vector3D { return geometry.Vector3D{X: x, Y: y, Z: z} }

func unitWeights() Weights {
	return Weights{Separation: 1, Alignment: 1, Cohesion: 1, Random: 1, Control: 1}
}

func requireVecNear(t *testing.T, want, got geometry.Vector3D, msgAndArgs ...any) {
	t.Helper()
	require.InDelta(t, want.X, got.X, tolerance, msgAndArgs...)
	require.InDelta(t, want.Y, got.Y, tolerance, msgAndArgs...)
	require.InDelta(t, want.Z, got.Z, tolerance, msgAndArgs...)
}

func randomFlock(r *rand.Rand, n int, spread float64) []Agent {
	agents := make([]Agent, n)
	for i := range agents {
		agents[i] = Agent{
			ID:       AgentID(fmt.Sprintf("a-%03d", i)),
			Position: vec(r.Float64()*spread, r.Float64()*spread, r.Float64()*spread),
			Velocity: vec(r.Float64()*2-1, r.Float64()*2-1, r.Float64()*2-1),
		}
	}
	return agents
}

func TestSolve_EmptyAgents(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	res, err := s.Solve(nil, []ControlPoint{{Position: vec(1, 2, 3)}}, unitWeights())
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Empty(t, res)
}

func TestSolve_SingleAgentOnlyJitter(t *testing.T) {
	s := NewSolver(WithJitter(NewSeededJitter(42)))
	agents := []Agent{{ID: "solo", Position: vec(3, -2, 1), Velocity: vec(1, 1, 1)}}

	terms, err := s.SolveTerms(agents, nil, unitWeights())
	require.NoError(t, err)

	got := terms["solo"]
	require.True(t, got.Separation.IsZero())
	require.True(t, got.Alignment.IsZero())
	require.True(t, got.Cohesion.IsZero())
	require.True(t, got.Control.IsZero())
	require.InDelta(t, 1, got.Random.Len(), tolerance)
	requireVecNear(t, got.Random, got.Steering)
}

func TestSolve_CoincidentAgents(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{
		{ID: "a", Position: vec(1, 1, 1), Velocity: vec(1, 0, 0)},
		{ID: "b", Position: vec(1, 1, 1), Velocity: vec(0, 1, 0)},
	}
	terms, err := s.SolveTerms(agents, nil, unitWeights())
	require.NoError(t, err)

	for id, tr := range terms {
		require.True(t, tr.Separation.IsZero(), "agent %s separation", id)
		require.True(t, tr.Separation.IsFinite(), "agent %s separation", id)
		// Still a neighbour for alignment, but the cohesion offset is zero.
		require.InDelta(t, 1, tr.Alignment.Len(), tolerance)
		require.True(t, tr.Cohesion.IsZero())
	}
}

func TestSolve_SeparationInverseSquare(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	tests := []struct {
		name  string
		other geometry.Vector3D
		want  geometry.Vector3D
	}{
		{"distance 1 on +x", vec(1, 0, 0), vec(-1, 0, 0)},
		{"distance 2 on +x", vec(2, 0, 0), vec(-0.25, 0, 0)},
		{"distance 0.5 on -y", vec(0, -0.5, 0), vec(0, 4, 0)},
		{"distance 3 on +z", vec(0, 0, 3), vec(0, 0, -1.0/9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := []Agent{
				{ID: "me", Position: geometry.Zero},
				{ID: "other", Position: tt.other},
			}
			terms, err := s.SolveTerms(agents, nil, unitWeights())
			require.NoError(t, err)
			requireVecNear(t, tt.want, terms["me"].Separation)
		})
	}
}

func TestSolve_AlignmentAndCohesionAreUnitOrZero(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	r := rand.New(rand.NewPCG(3, 4))
	agents := randomFlock(r, 25, 100)
	// Large and tiny velocities must not change the magnitude of the terms.
	agents[0].Velocity = vec(1e6, -3e5, 2e4)
	agents[1].Velocity = vec(1e-6, 0, 0)

	terms, err := s.SolveTerms(agents, nil, unitWeights())
	require.NoError(t, err)
	for id, tr := range terms {
		for name, v := range map[string]geometry.Vector3D{"alignment": tr.Alignment, "cohesion": tr.Cohesion} {
			l := v.Len()
			require.Truef(t, l == 0 || math.Abs(l-1) < 1e-9, "agent %s %s length %v", id, name, l)
		}
	}
}

func TestSolve_AlignmentZeroWhenVelocitiesCancel(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{
		{ID: "me", Position: geometry.Zero},
		{ID: "left", Position: vec(-1, 0, 0), Velocity: vec(2, 0, 0)},
		{ID: "right", Position: vec(1, 0, 0), Velocity: vec(-2, 0, 0)},
	}
	terms, err := s.SolveTerms(agents, nil, unitWeights())
	require.NoError(t, err)
	require.True(t, terms["me"].Alignment.IsZero())
	require.True(t, terms["me"].Cohesion.IsZero())
}

func TestSolve_CohesionPointsToOthersCentroid(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{
		{ID: "me", Position: geometry.Zero},
		{ID: "b", Position: vec(10, 10, 0)},
		{ID: "c", Position: vec(10, -10, 0)},
	}
	terms, err := s.SolveTerms(agents, nil, unitWeights())
	require.NoError(t, err)
	requireVecNear(t, vec(1, 0, 0), terms["me"].Cohesion)
}

func TestSolve_ControlVectorIsNotNormalized(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{{ID: "me", Position: vec(1, 1, 1)}}
	controls := []ControlPoint{{Position: vec(3, 4, 7)}} // offset (2, 3, 6), length 7

	terms, err := s.SolveTerms(agents, controls, unitWeights())
	require.NoError(t, err)
	requireVecNear(t, vec(2, 3, 6), terms["me"].Control)
	require.InDelta(t, 7, terms["me"].Control.Len(), tolerance)
}

func TestSolve_NearestControlPoint(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{{ID: "me", Position: geometry.Zero}}

	t.Run("closer point wins regardless of order", func(t *testing.T) {
		for _, controls := range [][]ControlPoint{
			{{Position: vec(0, 5, 0)}, {Position: vec(3, 0, 0)}},
			{{Position: vec(3, 0, 0)}, {Position: vec(0, 5, 0)}},
		} {
			terms, err := s.SolveTerms(agents, controls, unitWeights())
			require.NoError(t, err)
			requireVecNear(t, vec(3, 0, 0), terms["me"].Control)
		}
	})

	t.Run("ties go to the first point", func(t *testing.T) {
		controls := []ControlPoint{{Position: vec(0, 0, -4)}, {Position: vec(4, 0, 0)}}
		terms, err := s.SolveTerms(agents, controls, unitWeights())
		require.NoError(t, err)
		requireVecNear(t, vec(0, 0, -4), terms["me"].Control)
	})

	t.Run("no control points", func(t *testing.T) {
		terms, err := s.SolveTerms(agents, nil, unitWeights())
		require.NoError(t, err)
		require.True(t, terms["me"].Control.IsZero())
	})
}

func TestSolve_ThreeInARowScenario(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{
		{ID: "left", Position: vec(0, 0, 0)},
		{ID: "middle", Position: vec(1, 0, 0)},
		{ID: "right", Position: vec(2, 0, 0)},
	}
	controls := []ControlPoint{{Position: vec(10, 0, 0)}}

	terms, err := s.SolveTerms(agents, controls, unitWeights())
	require.NoError(t, err)

	requireVecNear(t, geometry.Zero, terms["middle"].Separation)
	// 1/1 + 1/4 pushing away from the others.
	requireVecNear(t, vec(-1.25, 0, 0), terms["left"].Separation)
	requireVecNear(t, vec(1.25, 0, 0), terms["right"].Separation)

	for id, want := range map[AgentID]float64{"left": 10, "middle": 9, "right": 8} {
		requireVecNear(t, vec(want, 0, 0), terms[id].Control, "agent %s", id)
	}

	// Zero velocities everywhere: alignment is zero.
	for id, tr := range terms {
		require.True(t, tr.Alignment.IsZero(), "agent %s", id)
	}
	requireVecNear(t, vec(1, 0, 0), terms["left"].Cohesion)
	requireVecNear(t, geometry.Zero, terms["middle"].Cohesion)
	requireVecNear(t, vec(-1, 0, 0), terms["right"].Cohesion)

	res, err := s.Solve(agents, controls, unitWeights())
	require.NoError(t, err)
	requireVecNear(t, vec(-1.25+1+10, 0, 0), res["left"])
	requireVecNear(t, vec(9, 0, 0), res["middle"])
	requireVecNear(t, vec(1.25-1+8, 0, 0), res["right"])
}

func TestSolve_WeightsCombine(t *testing.T) {
	s := NewSolver(WithJitter(NewSeededJitter(9)))
	r := rand.New(rand.NewPCG(5, 6))
	agents := randomFlock(r, 12, 20)
	controls := []ControlPoint{{Position: vec(50, 0, 0)}, {Position: vec(-50, 10, 5)}}
	w := Weights{Separation: 2, Alignment: -0.5, Cohesion: 3, Random: 0.25, Control: 0.01}

	terms, err := s.SolveTerms(agents, controls, w)
	require.NoError(t, err)
	for id, tr := range terms {
		want := tr.Separation.Mul(2).
			Add(tr.Alignment.Mul(-0.5)).
			Add(tr.Cohesion.Mul(3)).
			Add(tr.Random.Mul(0.25)).
			Add(tr.Control.Mul(0.01))
		requireVecNear(t, want, tr.Steering, "agent %s", id)
	}
}

func TestSolve_Idempotent(t *testing.T) {
	s := NewSolver(WithJitter(NewJitter()))
	r := rand.New(rand.NewPCG(11, 12))
	agents := randomFlock(r, 30, 50)
	controls := []ControlPoint{{Position: vec(25, 25, 25)}}

	first, err := s.SolveTerms(agents, controls, unitWeights())
	require.NoError(t, err)
	second, err := s.SolveTerms(agents, controls, unitWeights())
	require.NoError(t, err)

	for id, a := range first {
		b := second[id]
		require.Equal(t, a.Separation, b.Separation)
		require.Equal(t, a.Alignment, b.Alignment)
		require.Equal(t, a.Cohesion, b.Cohesion)
		require.Equal(t, a.Control, b.Control)
	}
}

func TestSolve_DoesNotMutateInputs(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 1))
	agents := randomFlock(r, 10, 10)
	controls := []ControlPoint{{Position: vec(1, 2, 3)}}
	agentsCopy := append([]Agent(nil), agents...)
	controlsCopy := append([]ControlPoint(nil), controls...)

	_, err := NewSolver().Solve(agents, controls, unitWeights())
	require.NoError(t, err)
	require.Equal(t, agentsCopy, agents)
	require.Equal(t, controlsCopy, controls)
}

func TestSolve_InvalidArguments(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	good := []Agent{{ID: "a"}, {ID: "b", Position: vec(1, 0, 0)}}

	tests := []struct {
		name     string
		agents   []Agent
		controls []ControlPoint
		weights  Weights
	}{
		{"NaN weight", good, nil, Weights{Cohesion: math.NaN()}},
		{"Inf weight", good, nil, Weights{Control: math.Inf(-1)}},
		{"NaN position", []Agent{{ID: "a", Position: vec(math.NaN(), 0, 0)}}, nil, unitWeights()},
		{"Inf velocity", []Agent{{ID: "a", Velocity: vec(0, math.Inf(1), 0)}}, nil, unitWeights()},
		{"Inf control point", good, []ControlPoint{{Position: vec(0, 0, math.Inf(1))}}, unitWeights()},
		{"duplicate id", []Agent{{ID: "a"}, {ID: "a", Position: vec(1, 1, 1)}}, nil, unitWeights()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Solve(tt.agents, tt.controls, tt.weights)
			require.ErrorIs(t, err, ErrInvalidArgument)
			require.Nil(t, res)
		})
	}
}

func TestSolve_NegativeWeightInvertsBehaviour(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}))
	agents := []Agent{{ID: "me"}}
	controls := []ControlPoint{{Position: vec(4, 0, 0)}}

	res, err := s.Solve(agents, controls, Weights{Control: -1})
	require.NoError(t, err)
	requireVecNear(t, vec(-4, 0, 0), res["me"])
}

func TestSolve_ParallelMatchesSequential(t *testing.T) {
	r := rand.New(rand.NewPCG(21, 22))
	agents := randomFlock(r, 257, 200)
	controls := []ControlPoint{{Position: vec(0, 0, 0)}, {Position: vec(200, 200, 200)}}
	w := DefaultWeights()

	seq, err := NewSolver(WithJitter(NewSeededJitter(77))).Solve(agents, controls, w)
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 7} {
		t.Run(fmt.Sprintf("%d workers", workers), func(t *testing.T) {
			par, err := NewSolver(WithJitter(NewSeededJitter(77)), WithWorkers(workers)).Solve(agents, controls, w)
			require.NoError(t, err)
			require.Equal(t, seq, par)
		})
	}
}

func TestSolve_NeighborRadius(t *testing.T) {
	s := NewSolver(WithJitter(ZeroJitter{}), WithNeighborRadius(5))
	agents := []Agent{
		{ID: "me", Position: geometry.Zero},
		{ID: "near", Position: vec(2, 0, 0), Velocity: vec(0, 1, 0)},
		{ID: "far", Position: vec(0, 0, 50), Velocity: vec(1, 0, 0)},
		{ID: "edge", Position: vec(-5, 0, 0), Velocity: vec(0, 0, 1)}, // exactly on the radius: excluded
	}
	controls := []ControlPoint{{Position: vec(0, 0, 100)}}

	terms, err := s.SolveTerms(agents, controls, unitWeights())
	require.NoError(t, err)

	me := terms["me"]
	requireVecNear(t, vec(-0.25, 0, 0), me.Separation)
	requireVecNear(t, vec(0, 1, 0), me.Alignment)
	requireVecNear(t, vec(1, 0, 0), me.Cohesion)
	// Control search ignores the radius.
	requireVecNear(t, vec(0, 0, 100), me.Control)

	far := terms["far"]
	require.True(t, far.Separation.IsZero())
	require.True(t, far.Alignment.IsZero())
	require.True(t, far.Cohesion.IsZero())
}

func TestSolve_NeighborRadiusMatchesBruteForce(t *testing.T) {
	const radius = 15.0
	r := rand.New(rand.NewPCG(31, 32))
	agents := randomFlock(r, 150, 60)
	// Spread some agents into negative cells too.
	for i := 0; i < len(agents); i += 3 {
		agents[i].Position = agents[i].Position.Mul(-1)
	}
	w := unitWeights()
	w.Random = 0

	terms, err := NewSolver(WithJitter(ZeroJitter{}), WithNeighborRadius(radius)).SolveTerms(agents, nil, w)
	require.NoError(t, err)

	for i, self := range agents {
		var sep, vel, pos geometry.Vector3D
		n := 0
		for j, other := range agents {
			if i == j || self.Position.DistanceSquaredTo(other.Position) >= radius*radius {
				continue
			}
			d := self.Position.Sub(other.Position)
			if d.LenSqr() != 0 {
				sep = sep.Add(d.Normalize().Mul(1 / d.LenSqr()))
			}
			vel = vel.Add(other.Velocity)
			pos = pos.Add(other.Position)
			n++
		}
		got := terms[self.ID]
		require.InDelta(t, sep.X, got.Separation.X, 1e-6)
		require.InDelta(t, sep.Y, got.Separation.Y, 1e-6)
		require.InDelta(t, sep.Z, got.Separation.Z, 1e-6)
		if n == 0 {
			require.True(t, got.Alignment.IsZero())
			require.True(t, got.Cohesion.IsZero())
			continue
		}
		requireVecNear(t, vel.Mul(1/float64(n)).Normalize(), got.Alignment)
		requireVecNear(t, pos.Mul(1/float64(n)).Sub(self.Position).Normalize(), got.Cohesion)
	}
}

func TestSolve_NeighborRadiusBeyondGridRange(t *testing.T) {
	agents := []Agent{
		{ID: "a", Position: vec(1e19, 0, 0), Velocity: vec(0, 0, 1)},
		{ID: "b", Position: vec(1e19, 0, 0), Velocity: vec(0, 0, 3)},
		{ID: "c", Position: vec(0, 0, 0), Velocity: vec(1, 0, 0)},
	}
	w := unitWeights()
	w.Random = 0

	unbounded, err := NewSolver(WithJitter(ZeroJitter{})).SolveTerms(agents, nil, w)
	require.NoError(t, err)
	cutoff, err := NewSolver(WithJitter(ZeroJitter{}), WithNeighborRadius(1)).SolveTerms(agents, nil, w)
	require.NoError(t, err)

	// a and b are coincident, so the radius keeps them as neighbours.
	requireVecNear(t, vec(0, 0, 1), cutoff["a"].Alignment)
	requireVecNear(t, vec(0, 0, 1), cutoff["b"].Alignment)
	require.True(t, cutoff["c"].Alignment.IsZero())
	require.True(t, cutoff["c"].Cohesion.IsZero())
	// The unbounded pass also counts c.
	require.NotEqual(t, unbounded["b"].Alignment, cutoff["b"].Alignment)
}

func TestWithNeighborRadius_IgnoresInvalid(t *testing.T) {
	for _, r := range []float64{0, -3, math.Inf(1), math.NaN()} {
		require.Zero(t, NewSolver(WithNeighborRadius(r)).NeighborRadius(), "radius %v", r)
	}
	require.Equal(t, 2.5, NewSolver(WithNeighborRadius(2.5)).NeighborRadius())
}

func TestPackageSolve(t *testing.T) {
	res, err := Solve([]Agent{{ID: "x"}}, nil, Weights{})
	require.NoError(t, err)
	require.Equal(t, Result{"x": geometry.Zero}, res)
}

func BenchmarkSolver_Solve(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 2))
	agents := randomFlock(r, 500, 300)
	controls := []ControlPoint{{Position: vec(150, 150, 150)}, {Position: vec(0, 0, 0)}}
	w := DefaultWeights()

	for _, tc := range []struct {
		name string
		s    *Solver
	}{
		{"sequential", NewSolver(WithJitter(NewSeededJitter(1)))},
		{"parallel-4", NewSolver(WithJitter(NewSeededJitter(1)), WithWorkers(4))},
		{"radius-30", NewSolver(WithJitter(NewSeededJitter(1)), WithNeighborRadius(30))},
	} {
		b.Run(tc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := tc.s.Solve(agents, controls, w); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
