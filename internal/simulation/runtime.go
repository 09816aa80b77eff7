package simulation

import (
	"context"
	"fmt"
	"os"

	"github.com/lao-tseu-is-alive/go-flock-control/internal/logging"
	"github.com/tochemey/goakt/v3/actor"
	golog "github.com/tochemey/goakt/v3/log"
	"go.uber.org/zap"
)

// Runtime is a started actor system hosting one WorldActor.
type Runtime struct {
	System actor.ActorSystem
	PID    *actor.PID
	World  *World
}

// Start builds the World from cfg and spawns its actor. Snapshots go to
// snapshotCh, which may be nil. quiet silences the actor system's own log.
func Start(ctx context.Context, cfg *Config, logger *zap.Logger, snapshotCh chan<- *Snapshot, quiet bool) (*Runtime, error) {
	world, err := NewWorld(cfg, logger)
	if err != nil {
		return nil, err
	}

	var actorLog golog.Logger = golog.DiscardLogger
	if !quiet {
		actorLog = golog.New(logging.ActorLevel(cfg.LogLevel), os.Stderr)
	}
	system, err := actor.NewActorSystem("FlockWorld",
		actor.WithLogger(actorLog),
		actor.WithActorInitMaxRetries(3))
	if err != nil {
		return nil, fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := system.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start actor system: %w", err)
	}

	pid, err := system.Spawn(ctx, "world", NewWorldActor(world, snapshotCh))
	if err != nil {
		_ = system.Stop(ctx)
		return nil, fmt.Errorf("failed to spawn world: %w", err)
	}
	return &Runtime{System: system, PID: pid, World: world}, nil
}

func (r *Runtime) Stop(ctx context.Context) error {
	return r.System.Stop(ctx)
}
