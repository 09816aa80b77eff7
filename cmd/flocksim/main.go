// Command flocksim runs a flock without a window for a fixed number of ticks
// and logs how it evolves.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lao-tseu-is-alive/go-flock-control/internal/logging"
	"github.com/lao-tseu-is-alive/go-flock-control/internal/simulation"
	"github.com/tochemey/goakt/v3/actor"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/durationpb"
)

func main() {
	configFile := flag.String("config", "", "JSON or YAML config file (defaults are used when empty)")
	ticks := flag.Int("ticks", 600, "number of ticks to simulate")
	out := flag.String("out", "", "write the final snapshot as JSON to this file")
	realtime := flag.Bool("realtime", false, "pace ticks at the configured tick rate")
	flag.Parse()

	if err := run(*configFile, *ticks, *out, *realtime); err != nil {
		fmt.Fprintln(os.Stderr, "flocksim:", err)
		os.Exit(1)
	}
}

func run(configFile string, ticks int, out string, realtime bool) error {
	cfg := simulation.DefaultConfig()
	if configFile != "" {
		var err error
		if cfg, err = simulation.LoadConfig(configFile); err != nil {
			return err
		}
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snapshots := make(chan *simulation.Snapshot, 1)
	rt, err := simulation.Start(ctx, cfg, logger, snapshots, false)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Stop(context.Background()); err != nil {
			logger.Warn("actor system stop failed", zap.Error(err))
		}
	}()

	dt := time.Second / time.Duration(cfg.TickRate)
	var pace <-chan time.Time
	if realtime {
		ticker := time.NewTicker(dt)
		defer ticker.Stop()
		pace = ticker.C
	}

	started := time.Now()
	var last *simulation.Snapshot
	for i := 0; i < ticks; i++ {
		if pace != nil {
			select {
			case <-pace:
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			logger.Info("interrupted", zap.Int("ticks_done", i))
			break
		}
		if err := actor.Tell(ctx, rt.PID, durationpb.New(dt)); err != nil {
			return fmt.Errorf("tick %d: %w", i+1, err)
		}
		select {
		case last = <-snapshots:
		case <-ctx.Done():
			continue
		case <-time.After(10 * time.Second):
			return fmt.Errorf("tick %d: no snapshot from world", i+1)
		}
		if last.Tick%uint64(cfg.TickRate) == 0 {
			logSnapshot(logger, last)
		}
	}

	if last == nil {
		return nil
	}
	logger.Info("run finished",
		zap.String("run_id", last.RunID.String()),
		zap.Uint64("ticks", last.Tick),
		zap.Duration("simulated", last.Elapsed),
		zap.Duration("wall", time.Since(started)))
	logSnapshot(logger, last)

	if out != "" {
		raw, err := json.MarshalIndent(last, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := os.WriteFile(out, raw, 0o644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	return nil
}

func logSnapshot(logger *zap.Logger, s *simulation.Snapshot) {
	logger.Info("flock",
		zap.Uint64("tick", s.Tick),
		zap.Duration("elapsed", s.Elapsed),
		zap.Stringer("centroid", s.Centroid),
		zap.Float64("spread", s.Spread),
		zap.Float64("mean_speed", s.MeanSpeed))
}
