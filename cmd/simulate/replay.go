package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/replay"
)

func runReplay(ctx context.Context, args []string, cfg *config.Config, logger *zap.Logger) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	path := fs.String("log", "", "event log to replay (.gz supported)")
	steps := fs.Bool("steps", false, "print every playback step")
	asJSON := fs.Bool("json", false, "print the final state as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" && fs.NArg() > 0 {
		*path = fs.Arg(0)
	}
	if *path == "" {
		return fmt.Errorf("replay: -log is required")
	}

	rc, err := replay.OpenLog(*path)
	if err != nil {
		return err
	}
	defer rc.Close()

	pm, err := replay.NewParser(logger).Parse(rc)
	if err != nil {
		return err
	}

	var state replay.State
	if *steps {
		// Step with a virtual clock that always lands after the settle window.
		p := replay.NewPlayback(pm, cfg.Replay.Delays)
		now := time.Now()
		for !p.Done() {
			if err := ctx.Err(); err != nil {
				return err
			}
			applied, err := p.Step(now)
			if err != nil {
				return err
			}
			for _, ev := range applied {
				fmt.Printf("%4d  %-10s %s\n", ev.Line, ev.Timing(), ev.Raw)
			}
			now = p.ReadyAt()
		}
		state = p.State()
	} else {
		state = replay.Fold(pm)
	}

	if *asJSON {
		return printJSON(state)
	}

	fmt.Printf("%s vs %s, %d events (%d lines skipped)\n", pm.FormationA, pm.FormationB, len(pm.Events), pm.Skipped)
	fmt.Printf("  score    T1 %d - %d T2\n", state.Score.T1, state.Score.T2)
	fmt.Printf("  half %d, turn %d, ended %t\n", state.Half, state.Turn, state.Ended)
	if state.BallOwnerID != "" {
		fmt.Printf("  ball     %s\n", state.BallOwnerID)
	}
	return nil
}
