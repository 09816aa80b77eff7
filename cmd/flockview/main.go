// Command flockview opens a window on a running flock and lets the steering
// weights be tuned live.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flock-control/internal/logging"
	"github.com/lao-tseu-is-alive/go-flock-control/internal/simulation"
	"github.com/lao-tseu-is-alive/go-flock-control/internal/viewer"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "", "JSON or YAML config file (defaults are used when empty)")
	flag.Parse()

	cfg := simulation.DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = simulation.LoadConfig(*configFile); err != nil {
			log.Fatal(err)
		}
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	snapshots := make(chan *simulation.Snapshot, 10) // Buffer to avoid blocking
	rt, err := simulation.Start(ctx, cfg, logger, snapshots, false)
	if err != nil {
		logger.Fatal("failed to start world", zap.Error(err))
	}
	defer func() { _ = rt.Stop(ctx) }()

	// read before the first tick, the actor has not touched the world yet
	initial := rt.World.Snapshot()
	game := viewer.NewGame(ctx, cfg, rt.PID, snapshots, initial, logger)

	ebiten.SetWindowSize(viewer.ScreenWidth, viewer.ScreenHeight)
	ebiten.SetWindowTitle("Flock control")
	ebiten.SetTPS(cfg.TickRate)
	if err := ebiten.RunGame(game); err != nil {
		logger.Error("viewer stopped", zap.Error(err))
	}
}
