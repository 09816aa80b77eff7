package simulation

import (
	"fmt"
	"time"

	"github.com/lao-tseu-is-alive/go-flock-control/pkg/flock"
	"github.com/tochemey/goakt/v3/actor"
	"github.com/tochemey/goakt/v3/goaktpb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// WorldActor drives a World from its mailbox.
//
//   - *durationpb.Duration advances the world by that much and publishes a snapshot.
//   - *structpb.Struct updates the weights; missing fields keep their value.
//   - *emptypb.Empty asks for the current status (see StatusFromStruct).
type WorldActor struct {
	world      *World
	snapshotCh chan<- *Snapshot

	// --- Benchmark Stats ---
	ticks       int
	dropped     int
	lastLogTime time.Time
}

var _ actor.Actor = (*WorldActor)(nil)

// NewWorldActor wraps world. snapshotCh may be nil for a headless run.
func NewWorldActor(world *World, snapshotCh chan<- *Snapshot) *WorldActor {
	return &WorldActor{
		world:       world,
		snapshotCh:  snapshotCh,
		lastLogTime: time.Now(),
	}
}

func (w *WorldActor) PreStart(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World %s holds %d flockers", w.world.RunID(), w.world.Population())
	return nil
}

func (w *WorldActor) Receive(ctx *actor.ReceiveContext) {
	switch msg := ctx.Message().(type) {
	case *goaktpb.PostStart:
		ctx.Logger().Infof("%s started", ctx.Self().Name())

	case *durationpb.Duration:
		if err := msg.CheckValid(); err != nil {
			ctx.Logger().Errorf("invalid tick: %v", err)
			return
		}
		snap, err := w.world.Step(msg.AsDuration())
		if err != nil {
			ctx.Logger().Errorf("tick failed: %v", err)
			return
		}
		w.ticks++
		w.pushSnapshot(snap)
		w.logBenchmarks(ctx)

	case *structpb.Struct:
		weights, err := WeightsFromStruct(w.world.Weights(), msg)
		if err == nil {
			err = w.world.SetWeights(weights)
		}
		if err != nil {
			ctx.Logger().Errorf("weights rejected: %v", err)
		}

	case *emptypb.Empty:
		ctx.Response(statusStruct(w.world))

	default:
		ctx.Unhandled()
	}
}

func (w *WorldActor) PostStop(ctx *actor.Context) error {
	ctx.ActorSystem().Logger().Infof("World %s stopped after %d ticks", w.world.RunID(), w.world.Tick())
	return nil
}

func (w *WorldActor) logBenchmarks(ctx *actor.ReceiveContext) {
	if time.Since(w.lastLogTime) >= time.Second {
		ctx.Logger().Infof("TICK RATE: %d/sec (dropped snapshots: %d) | Flockers: %d",
			w.ticks, w.dropped, w.world.Population())
		w.ticks = 0
		w.dropped = 0
		w.lastLogTime = time.Now()
	}
}

func (w *WorldActor) pushSnapshot(snap *Snapshot) {
	if w.snapshotCh == nil {
		return
	}
	select {
	case w.snapshotCh <- snap:
	default:
		// consumer busy, skip frame
		w.dropped++
	}
}

var weightFields = []struct {
	name string
	ptr  func(*flock.Weights) *float64
}{
	{"separationWeight", func(w *flock.Weights) *float64 { return &w.Separation }},
	{"alignmentWeight", func(w *flock.Weights) *float64 { return &w.Alignment }},
	{"cohesionWeight", func(w *flock.Weights) *float64 { return &w.Cohesion }},
	{"randomWeight", func(w *flock.Weights) *float64 { return &w.Random }},
	{"controlWeight", func(w *flock.Weights) *float64 { return &w.Control }},
}

// WeightsToStruct encodes w with the same field names as the config file.
func WeightsToStruct(w flock.Weights) *structpb.Struct {
	fields := make(map[string]*structpb.Value, len(weightFields))
	for _, f := range weightFields {
		fields[f.name] = structpb.NewNumberValue(*f.ptr(&w))
	}
	return &structpb.Struct{Fields: fields}
}

// WeightsFromStruct applies the numeric fields of s on top of base.
// Unknown or non-numeric fields are an error.
func WeightsFromStruct(base flock.Weights, s *structpb.Struct) (flock.Weights, error) {
	known := make(map[string]*float64, len(weightFields))
	for _, f := range weightFields {
		known[f.name] = f.ptr(&base)
	}
	for name, v := range s.GetFields() {
		dst, ok := known[name]
		if !ok {
			return base, fmt.Errorf("%w: unknown weight %q", flock.ErrInvalidArgument, name)
		}
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok {
			return base, fmt.Errorf("%w: weight %q is not a number", flock.ErrInvalidArgument, name)
		}
		*dst = n.NumberValue
	}
	return base, base.Validate()
}

// Status is what a WorldActor answers to an *emptypb.Empty request.
type Status struct {
	Tick       uint64
	Elapsed    time.Duration
	Population int
	Weights    flock.Weights
}

func statusStruct(w *World) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"tick":       structpb.NewNumberValue(float64(w.Tick())),
		"elapsedNs":  structpb.NewNumberValue(float64(w.elapsed)),
		"population": structpb.NewNumberValue(float64(w.Population())),
		"weights":    structpb.NewStructValue(WeightsToStruct(w.Weights())),
	}}
}

// StatusFromStruct decodes a status reply.
func StatusFromStruct(s *structpb.Struct) (Status, error) {
	f := s.GetFields()
	weights, err := WeightsFromStruct(flock.Weights{}, f["weights"].GetStructValue())
	if err != nil {
		return Status{}, err
	}
	return Status{
		Tick:       uint64(f["tick"].GetNumberValue()),
		Elapsed:    time.Duration(f["elapsedNs"].GetNumberValue()),
		Population: int(f["population"].GetNumberValue()),
		Weights:    weights,
	}, nil
}
