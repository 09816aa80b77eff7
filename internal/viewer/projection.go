package viewer

import (
	"image/color"
	"math"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/geometry"
)

// Camera maps world XY onto the screen. Z only tints the flockers.
type Camera struct {
	Center geometry.Vector3D
	Scale  float64 // pixels per world unit
	Width  int
	Height int
}

// Project returns the screen position of p; y grows downwards on screen.
func (c Camera) Project(p geometry.Vector3D) (x, y float32) {
	d := p.Sub(c.Center)
	return float32(float64(c.Width)/2 + d.X*c.Scale),
		float32(float64(c.Height)/2 - d.Y*c.Scale)
}

// Unproject is the inverse of Project on the z = Center.Z plane.
func (c Camera) Unproject(x, y float64) geometry.Vector3D {
	return geometry.Vector3D{
		X: c.Center.X + (x-float64(c.Width)/2)/c.Scale,
		Y: c.Center.Y - (y-float64(c.Height)/2)/c.Scale,
		Z: c.Center.Z,
	}
}

// Heading is the screen angle of v, matching Project's flipped y axis.
func Heading(v geometry.Vector3D) float64 {
	return math.Atan2(-v.Y, v.X)
}

// depthTint brightens flockers above the camera plane and dims those below.
func depthTint(z, span float64) color.RGBA {
	t := 0.5
	if span > 0 {
		t = max(0, min(1, 0.5+z/(2*span)))
	}
	return color.RGBA{
		R: uint8(60 + 100*t),
		G: uint8(120 + 100*t),
		B: 255,
		A: 255,
	}
}
