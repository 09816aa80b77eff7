// Package ui holds the few immediate-mode widgets the flock viewer needs:
// sliders, checkboxes and buttons stacked in a scrollable panel.
package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// Widget is anything the Panel can stack.
type Widget interface {
	Update()
	Draw(screen *ebiten.Image)
	// Height is the vertical space taken, label included.
	Height() float64
	// MoveTo places the widget body; the label is drawn above it.
	MoveTo(x, y float64)
}

var (
	trackColor  = color.RGBA{R: 80, G: 80, B: 80, A: 255}
	fillColor   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	borderColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	checkColor  = color.RGBA{R: 100, G: 200, B: 100, A: 255}
)

func inside(x, y, w, h float64, px, py int) bool {
	fx, fy := float64(px), float64(py)
	return fx >= x && fx <= x+w && fy >= y && fy <= y+h
}

// press turns a held mouse button into a single click.
type press struct{ held bool }

func (p *press) clicked(over bool) bool {
	if over && ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		if p.held {
			return false
		}
		p.held = true
		return true
	}
	p.held = false
	return false
}
