// Package viewer renders a running flock with ebiten and lets the user
// retune the steering weights while it flies.
package viewer

import (
	"context"
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/lao-tseu-is-alive/go-flock-control/internal/simulation"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/flock"
	"github.com/lao-tseu-is-alive/go-flock-control/pkg/ui"
	"github.com/tochemey/goakt/v3/actor"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/durationpb"
)

const (
	ScreenWidth  = 1024
	ScreenHeight = 768
	panelWidth   = 260
)

var (
	controlColor  = color.RGBA{R: 255, G: 180, B: 40, A: 255}
	steeringColor = color.RGBA{R: 255, G: 80, B: 80, A: 160}
)

// Game implements ebiten.Game on top of a WorldActor.
type Game struct {
	ctx      context.Context
	logger   *zap.Logger
	worldPID *actor.PID

	snapshotCh <-chan *simulation.Snapshot
	lastState  *simulation.Snapshot
	tick       time.Duration

	camera   Camera
	panel    *ui.Panel
	sliders  map[string]*ui.Slider
	reset    *ui.Button
	pauseBox *ui.Checkbox
	paused   bool
	follow   bool
	steering bool

	// Timing instrumentation
	updateAvg float64 // Rolling average in ms
	drawAvg   float64
}

// NewGame wires the viewer to an already spawned WorldActor and the channel
// it publishes snapshots on.
func NewGame(ctx context.Context, cfg *simulation.Config, worldPID *actor.PID,
	snapshotCh <-chan *simulation.Snapshot, initial *simulation.Snapshot, logger *zap.Logger) *Game {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Game{
		ctx:        ctx,
		logger:     logger,
		worldPID:   worldPID,
		snapshotCh: snapshotCh,
		lastState:  initial,
		tick:       time.Second / time.Duration(cfg.TickRate),
		camera:     Camera{Scale: cfg.ViewScale, Width: ScreenWidth, Height: ScreenHeight},
		sliders:    make(map[string]*ui.Slider),
		follow:     true,
	}

	g.panel = ui.NewPanel("Steering weights", 10, 10, panelWidth, ScreenHeight-60)
	g.panel.AddSection("Flock")
	w := cfg.Weights
	g.addWeight("separationWeight", "Separation", 0, 20, w.Separation)
	g.addWeight("alignmentWeight", "Alignment", 0, 5, w.Alignment)
	g.addWeight("cohesionWeight", "Cohesion", 0, 10, w.Cohesion)
	g.addWeight("randomWeight", "Random", 0, 2, w.Random)
	g.addWeight("controlWeight", "Control", 0, 1, w.Control)

	g.panel.AddSection("View")
	g.panel.AddSlider("Zoom", 0.5, 20, cfg.ViewScale, func(v float64) { g.camera.Scale = v })
	g.pauseBox = g.panel.AddCheckbox("Pause", false, func(v bool) { g.paused = v })
	g.panel.AddCheckbox("Follow centroid", true, func(v bool) { g.follow = v })
	g.panel.AddCheckbox("Show steering", false, func(v bool) { g.steering = v })

	g.reset = ui.NewButton(10, ScreenHeight-40, 120, 28, "Reset weights", func() {
		g.applyWeights(w)
	})
	return g
}

// addWeight widens [lo, hi] when the configured value falls outside it.
func (g *Game) addWeight(field, label string, lo, hi, value float64) {
	g.sliders[field] = g.panel.AddSlider(label, min(lo, value), max(hi, value), value, func(float64) {
		g.send(simulation.WeightsToStruct(g.currentWeights()))
	})
}

func (g *Game) currentWeights() flock.Weights {
	return flock.Weights{
		Separation: g.sliders["separationWeight"].Value,
		Alignment:  g.sliders["alignmentWeight"].Value,
		Cohesion:   g.sliders["cohesionWeight"].Value,
		Random:     g.sliders["randomWeight"].Value,
		Control:    g.sliders["controlWeight"].Value,
	}
}

func (g *Game) applyWeights(w flock.Weights) {
	g.sliders["separationWeight"].Set(w.Separation)
	g.sliders["alignmentWeight"].Set(w.Alignment)
	g.sliders["cohesionWeight"].Set(w.Cohesion)
	g.sliders["randomWeight"].Set(w.Random)
	g.sliders["controlWeight"].Set(w.Control)
	g.send(simulation.WeightsToStruct(w))
}

func (g *Game) send(msg proto.Message) {
	if err := actor.Tell(g.ctx, g.worldPID, msg); err != nil {
		g.logger.Warn("message to world dropped", zap.Error(err))
	}
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.updateAvg = g.updateAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	g.panel.Update()
	g.reset.Update()
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.pauseBox.Toggle()
	}

	select {
	case snap := <-g.snapshotCh:
		g.lastState = snap
	default:
		// keep the previous frame
	}
	if g.follow && g.lastState != nil {
		g.camera.Center = g.lastState.Centroid
	}

	if !g.paused {
		g.send(durationpb.New(g.tick))
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.drawAvg = g.drawAvg*0.95 + float64(time.Since(start).Microseconds())/1000.0*0.05
	}()

	snap := g.lastState
	if snap != nil {
		span := max(snap.Spread, 1)
		for _, cp := range snap.ControlPoints {
			x, y := g.camera.Project(cp)
			vector.StrokeCircle(screen, x, y, 8, 2, controlColor, true)
			vector.StrokeLine(screen, x-5, y, x+5, y, 1, controlColor, true)
			vector.StrokeLine(screen, x, y-5, x, y+5, 1, controlColor, true)
		}
		for _, a := range snap.Agents {
			g.drawFlocker(screen, a, depthTint(a.Position.Z-g.camera.Center.Z, span))
		}
	}

	g.panel.Draw(screen)
	g.reset.Draw(screen)
	g.drawStats(screen)
}

// drawFlocker draws a triangle pointing along the velocity.
func (g *Game) drawFlocker(screen *ebiten.Image, a simulation.AgentState, clr color.RGBA) {
	x, y := g.camera.Project(a.Position)
	angle := Heading(a.Velocity)
	r, gr, b := float32(clr.R)/255, float32(clr.G)/255, float32(clr.B)/255
	vertex := func(length, theta float64) ebiten.Vertex {
		return ebiten.Vertex{
			DstX: x + float32(length*math.Cos(angle+theta)),
			DstY: y + float32(length*math.Sin(angle+theta)),
			SrcX: 1, SrcY: 1,
			ColorR: r, ColorG: gr, ColorB: b, ColorA: 1,
		}
	}
	vertices := []ebiten.Vertex{vertex(6, 0), vertex(5, 2.5), vertex(5, -2.5)}
	screen.DrawTriangles(vertices, []uint16{0, 1, 2}, whiteImage, &ebiten.DrawTrianglesOptions{})

	if g.steering && !a.Steering.IsZero() {
		s := a.Steering.ClampLen(1).Mul(20 / g.camera.Scale)
		sx, sy := g.camera.Project(a.Position.Add(s))
		vector.StrokeLine(screen, x, y, sx, sy, 1, steeringColor, true)
	}
}

func (g *Game) drawStats(screen *ebiten.Image) {
	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nUpdate: %.2fms\nDraw:   %.2fms",
		ebiten.ActualFPS(), ebiten.ActualTPS(), g.updateAvg, g.drawAvg)
	if s := g.lastState; s != nil {
		msg += fmt.Sprintf("\n\nTick:    %d\nTime:    %s\nAgents:  %d\nSpread:  %.1f\nSpeed:   %.2f",
			s.Tick, s.Elapsed.Truncate(time.Millisecond), len(s.Agents), s.Spread, s.MeanSpeed)
	}
	if g.paused {
		msg += "\n\nPAUSED (space)"
	}
	ebitenutil.DebugPrintAt(screen, msg, ScreenWidth-170, 10)
}

func (g *Game) Layout(int, int) (int, int) { return ScreenWidth, ScreenHeight }

var whiteImage = ebiten.NewImage(3, 3)

func init() {
	whiteImage.Fill(color.White)
}
