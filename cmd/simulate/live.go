package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
)

// ticksPerCheck is how many engine ticks run between cancellation checks
const ticksPerCheck = 1000

func runLive(ctx context.Context, args []string, cfg *config.Config, logger *zap.Logger) error {
	defaults := cfg.Engine.MatchConfig()

	fs := flag.NewFlagSet("live", flag.ContinueOnError)
	formationA := fs.String("a", defaults.FormationA.String(), "team A formation")
	formationB := fs.String("b", defaults.FormationB.String(), "team B formation")
	turns := fs.Int("turns", defaults.MaxTurns, "turns before full time")
	seed := fs.Uint64("seed", cfg.Engine.Seed, "random seed, 0 uses 1")
	out := fs.String("out", "match.log", "event log destination (.gz compresses)")
	maxTicks := fs.Int("max-ticks", 1_000_000, "abort after this many ticks")
	narrate := fs.Bool("narrate", false, "print the narrative log at full time")
	asJSON := fs.Bool("json", false, "print the final snapshot as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := match.ParseFormation(*formationA)
	if err != nil {
		return err
	}
	b, err := match.ParseFormation(*formationB)
	if err != nil {
		return err
	}
	if *seed == 0 {
		*seed = 1
	}

	wc, err := replay.CreateLog(*out)
	if err != nil {
		return err
	}
	mc := match.Config{FormationA: a, FormationB: b, MaxTurns: *turns}.Normalize()
	w, err := replay.NewWriter(wc, mc.FormationA, mc.FormationB)
	if err != nil {
		wc.Close()
		return err
	}

	engine := match.NewEngine(mc,
		match.WithRandom(match.NewRandom(*seed)),
		match.WithLogger(logger),
		match.WithEventSink(w.Sink()),
	)
	engine.Start()

	ticks := 0
	for engine.Phase() != match.PhaseFullTime {
		if err := ctx.Err(); err != nil {
			wc.Close()
			return err
		}
		if ticks >= *maxTicks {
			wc.Close()
			return fmt.Errorf("live: no full time after %d ticks", ticks)
		}
		n := engine.Advance(min(ticksPerCheck, *maxTicks-ticks))
		if n == 0 {
			wc.Close()
			return fmt.Errorf("live: engine stopped in phase %s", engine.Phase())
		}
		ticks += n
	}

	if err := errors.Join(w.Err(), wc.Close()); err != nil {
		return fmt.Errorf("failed to write %s: %w", *out, err)
	}

	final := engine.Snapshot()
	logger.Info("match recorded",
		zap.String("path", *out),
		zap.Int("events", w.Events()),
		zap.Int("ticks", final.MatchTime),
	)

	if *asJSON {
		return printJSON(final)
	}
	if *narrate {
		for i := len(final.Log) - 1; i >= 0; i-- {
			entry := final.Log[i]
			fmt.Printf("[%5.1fs] %-6s %s\n", float64(entry.Time)*match.TickSeconds, entry.Kind, entry.Message)
		}
	}
	fmt.Printf("%s vs %s: %d - %d after %d turns (%d ticks, %d events -> %s)\n",
		mc.FormationA, mc.FormationB, final.Score.A, final.Score.B, final.Turn, final.MatchTime, w.Events(), *out)
	return nil
}
