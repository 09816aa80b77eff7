package simulation

import (
	"fmt"
	"math"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
)

var (
	axisX = geometry.Vector3D{X: 1}
	axisY = geometry.Vector3D{Y: 1}
	axisZ = geometry.Vector3D{Z: 1}
)

// ControlPath moves a control point over time. A zero Radius keeps it at
// Center; a zero AngularSpeed parks it on the circle at Phase.
type ControlPath struct {
	Center       geometry.Vector3D
	Radius       float64
	AngularSpeed float64 // rad/s
	Phase        float64 // rad
	u, v         geometry.Vector3D
}

// NewControlPath builds the path described by cfg.
func NewControlPath(cfg ControlPointConfig) (ControlPath, error) {
	p := ControlPath{Center: cfg.Position}
	if cfg.Orbit == nil {
		return p, nil
	}
	axes, err := orbitAxes(cfg.Orbit.Axis)
	if err != nil {
		return ControlPath{}, err
	}
	p.Radius = cfg.Orbit.Radius
	p.AngularSpeed = cfg.Orbit.AngularSpeed
	p.Phase = cfg.Orbit.Phase
	p.u, p.v = axes[0], axes[1]
	return p, nil
}

// At returns the position after elapsed seconds.
func (p ControlPath) At(elapsed float64) geometry.Vector3D {
	if p.Radius == 0 {
		return p.Center
	}
	theta := p.Phase + p.AngularSpeed*elapsed
	return p.Center.
		Add(p.u.Mul(p.Radius * math.Cos(theta))).
		Add(p.v.Mul(p.Radius * math.Sin(theta)))
}

func orbitAxes(plane string) ([2]geometry.Vector3D, error) {
	switch plane {
	case "", "xy":
		return [2]geometry.Vector3D{axisX, axisY}, nil
	case "xz":
		return [2]geometry.Vector3D{axisX, axisZ}, nil
	case "yz":
		return [2]geometry.Vector3D{axisY, axisZ}, nil
	default:
		return [2]geometry.Vector3D{}, fmt.Errorf("unknown orbit axis %q", plane)
	}
}
