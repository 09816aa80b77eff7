package ui

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	titleHeight   = 30
	sectionHeight = 25
	labelSpace    = 18
	margin        = 10
	scrollStep    = 20
)

// row is either a section header or a widget.
type row struct {
	title  string
	widget Widget
}

func (r row) height() float64 {
	if r.widget == nil {
		return sectionHeight
	}
	return r.widget.Height()
}

// Panel stacks sections and widgets vertically and scrolls with the wheel.
type Panel struct {
	Title         string
	X, Y          float64
	Width, Height float64
	ScrollOffset  float64

	BGColor      color.RGBA
	BorderColor  color.RGBA
	SectionColor color.RGBA

	rows []row
}

func NewPanel(title string, x, y, width, height float64) *Panel {
	return &Panel{
		Title:        title,
		X:            x,
		Y:            y,
		Width:        width,
		Height:       height,
		BGColor:      color.RGBA{R: 40, G: 40, B: 45, A: 230},
		BorderColor:  color.RGBA{R: 100, G: 100, B: 110, A: 255},
		SectionColor: color.RGBA{R: 60, G: 60, B: 70, A: 255},
	}
}

func (p *Panel) AddSection(title string) {
	p.rows = append(p.rows, row{title: title})
}

// Add appends any widget, placing it below the previous rows.
func (p *Panel) Add(w Widget) {
	p.rows = append(p.rows, row{widget: w})
	p.layout()
}

func (p *Panel) AddSlider(label string, min, max, value float64, onChange func(float64)) *Slider {
	s := NewSlider(0, 0, p.Width-2*margin, label, min, max, value)
	s.OnChange = onChange
	p.Add(s)
	return s
}

func (p *Panel) AddCheckbox(label string, value bool, onToggle func(bool)) *Checkbox {
	c := NewCheckbox(0, 0, label, value)
	c.OnToggle = onToggle
	p.Add(c)
	return c
}

// ContentHeight is the height of every row plus the title.
func (p *Panel) ContentHeight() float64 {
	h := float64(titleHeight)
	for _, r := range p.rows {
		h += r.height()
	}
	return h
}

// Scroll moves the content by dy rows of scrollStep pixels, clamped so the
// last row stays reachable.
func (p *Panel) Scroll(dy float64) {
	maxOffset := max(0, p.ContentHeight()-p.Height)
	p.ScrollOffset = max(0, min(maxOffset, p.ScrollOffset-dy*scrollStep))
	p.layout()
}

// layout moves every widget to its scrolled position.
func (p *Panel) layout() {
	y := p.Y + titleHeight - p.ScrollOffset
	for _, r := range p.rows {
		if r.widget != nil {
			r.widget.MoveTo(p.X+margin, y+labelSpace)
		}
		y += r.height()
	}
}

func (p *Panel) visible(y, h float64) bool {
	return y+h > p.Y+titleHeight && y < p.Y+p.Height
}

func (p *Panel) Update() {
	mx, my := ebiten.CursorPosition()
	if _, dy := ebiten.Wheel(); dy != 0 && inside(p.X, p.Y, p.Width, p.Height, mx, my) {
		p.Scroll(dy)
	}
	y := p.Y + titleHeight - p.ScrollOffset
	for _, r := range p.rows {
		if r.widget != nil && p.visible(y, r.height()) {
			r.widget.Update()
		}
		y += r.height()
	}
}

func (p *Panel) Draw(screen *ebiten.Image) {
	vector.FillRect(screen, float32(p.X), float32(p.Y), float32(p.Width), float32(p.Height), p.BGColor, true)
	vector.StrokeRect(screen, float32(p.X), float32(p.Y), float32(p.Width), float32(p.Height), 2, p.BorderColor, true)
	ebitenutil.DebugPrintAt(screen, p.Title, int(p.X+margin), int(p.Y+5))

	y := p.Y + titleHeight - p.ScrollOffset
	for _, r := range p.rows {
		h := r.height()
		if p.visible(y, h) {
			if r.widget == nil {
				vector.FillRect(screen, float32(p.X+5), float32(y), float32(p.Width-10), 20, p.SectionColor, true)
				ebitenutil.DebugPrintAt(screen, r.title, int(p.X+margin), int(y+3))
			} else {
				r.widget.Draw(screen)
			}
		}
		y += h
	}
}
