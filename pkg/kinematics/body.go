// Package kinematics moves a point mass from a steering input without a
// physics engine: the steering is clamped to unit length, scaled into an
// acceleration, and integrated with explicit Euler steps.
package kinematics

import (
	"time"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
)

// Body is a steerable point mass.
type Body struct {
	Position geometry.Vector3D
	Velocity geometry.Vector3D

	MaxSpeed      float64 // |Velocity| never exceeds this after Integrate
	SteeringAccel float64 // acceleration produced by a unit steering input

	steering     geometry.Vector3D
	acceleration geometry.Vector3D
}

// NewBody returns a body at rest at pos.
func NewBody(pos geometry.Vector3D, maxSpeed, steeringAccel float64) *Body {
	return &Body{
		Position:      pos,
		MaxSpeed:      maxSpeed,
		SteeringAccel: steeringAccel,
	}
}

// Steer sets the input for the next Integrate. Inputs longer than 1 are
// clamped to unit length, shorter ones are kept as partial throttle.
func (b *Body) Steer(input geometry.Vector3D) {
	b.steering = input.ClampLen(1)
	b.acceleration = b.steering.Mul(b.SteeringAccel)
}

// Steering returns the clamped input set by the last Steer.
func (b *Body) Steering() geometry.Vector3D { return b.steering }

// Integrate advances the body by dt and clears the pending input.
func (b *Body) Integrate(dt time.Duration) {
	if secs := dt.Seconds(); secs > 0 {
		b.Velocity = b.Velocity.Add(b.acceleration.Mul(secs)).ClampLen(b.MaxSpeed)
		b.Position = b.Position.Add(b.Velocity.Mul(secs))
	}
	b.steering = geometry.Zero
	b.acceleration = geometry.Zero
}

// Speed returns the length of the velocity.
func (b *Body) Speed() float64 { return b.Velocity.Len() }
