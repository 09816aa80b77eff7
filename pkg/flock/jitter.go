package flock

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
)

// Jitter supplies the random unit vector term.
type Jitter interface {
	// Frame is called once per solve pass. The returned function yields the
	// vector for one agent and must be safe for concurrent use.
	Frame() func(id AgentID) geometry.Vector3D
}

// ZeroJitter never perturbs the flock.
type ZeroJitter struct{}

func (ZeroJitter) Frame() func(AgentID) geometry.Vector3D {
	return func(AgentID) geometry.Vector3D { return geometry.Zero }
}

// SeededJitter draws a fresh uniform unit vector per agent per frame.
// The vector only depends on the seed, the frame number and the agent id,
// so a replay with the same seed reproduces the same flock no matter how
// agents are ordered or split across workers.
type SeededJitter struct {
	seed  uint64
	frame atomic.Uint64
}

// NewSeededJitter returns a reproducible jitter source.
func NewSeededJitter(seed uint64) *SeededJitter {
	return &SeededJitter{seed: seed}
}

// NewJitter returns a jitter source with a random seed.
func NewJitter() *SeededJitter {
	return NewSeededJitter(rand.Uint64())
}

// Seed returns the seed the source was built with.
func (j *SeededJitter) Seed() uint64 { return j.seed }

func (j *SeededJitter) Frame() func(AgentID) geometry.Vector3D {
	frame := j.frame.Add(1)
	return func(id AgentID) geometry.Vector3D {
		r := rand.New(rand.NewPCG(j.seed^xxhash.Sum64String(string(id)), frame))
		return geometry.RandomUnit(r)
	}
}
