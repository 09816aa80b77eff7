package ui

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const sliderHeight = 10

// Slider edits a float between Min and Max by dragging.
type Slider struct {
	Label    string
	Value    float64
	Min, Max float64
	X, Y     float64
	W, H     float64

	// OnChange is called with the new value after every drag step.
	OnChange func(float64)
}

func NewSlider(x, y, w float64, label string, min, max, value float64) *Slider {
	s := &Slider{Label: label, Min: min, Max: max, X: x, Y: y, W: w, H: sliderHeight}
	s.Set(value)
	return s
}

// Set clamps v into range and reports whether the value changed.
func (s *Slider) Set(v float64) bool {
	v = max(s.Min, min(s.Max, v))
	if v == s.Value {
		return false
	}
	s.Value = v
	return true
}

// Ratio is the filled fraction of the track.
func (s *Slider) Ratio() float64 {
	if s.Max == s.Min {
		return 0
	}
	return (s.Value - s.Min) / (s.Max - s.Min)
}

// DragTo sets the value from a cursor x coordinate.
func (s *Slider) DragTo(mx float64) {
	if s.W <= 0 {
		return
	}
	if s.Set(s.Min+(mx-s.X)/s.W*(s.Max-s.Min)) && s.OnChange != nil {
		s.OnChange(s.Value)
	}
}

func (s *Slider) Update() {
	mx, my := ebiten.CursorPosition()
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) && inside(s.X, s.Y, s.W, s.H, mx, my) {
		s.DragTo(float64(mx))
	}
}

func (s *Slider) Draw(screen *ebiten.Image) {
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s: %.2f", s.Label, s.Value), int(s.X), int(s.Y)-16)
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W), float32(s.H), trackColor, true)
	vector.FillRect(screen, float32(s.X), float32(s.Y), float32(s.W*s.Ratio()), float32(s.H), fillColor, true)
}

func (s *Slider) Height() float64 { return s.H + 25 }

func (s *Slider) MoveTo(x, y float64) { s.X, s.Y = x, y }
