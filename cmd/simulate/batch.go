package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/batch"
	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/match"
)

// overrideFlags collects repeated -override TEAM:SLOT=ATK/DEF/SPD values
type overrideFlags [2]map[match.Slot]match.Stats

func (o *overrideFlags) String() string {
	var parts []string
	for t, slots := range o {
		for slot, s := range slots {
			parts = append(parts, fmt.Sprintf("%s:%s=%d/%d/%d", match.Team(t), slot, s.Atk, s.Def, s.Spd))
		}
	}
	return strings.Join(parts, ",")
}

func (o *overrideFlags) Set(v string) error {
	teamPart, rest, ok := strings.Cut(v, ":")
	if !ok {
		return fmt.Errorf("override %q: want TEAM:SLOT=ATK/DEF/SPD", v)
	}
	slotPart, statsPart, ok := strings.Cut(rest, "=")
	if !ok {
		return fmt.Errorf("override %q: want TEAM:SLOT=ATK/DEF/SPD", v)
	}

	var team match.Team
	if err := team.UnmarshalText([]byte(teamPart)); err != nil {
		return fmt.Errorf("override %q: %w", v, err)
	}
	slot, err := match.ParseSlot(slotPart)
	if err != nil {
		return fmt.Errorf("override %q: %w", v, err)
	}
	var s match.Stats
	if _, err := fmt.Sscanf(statsPart, "%d/%d/%d", &s.Atk, &s.Def, &s.Spd); err != nil {
		return fmt.Errorf("override %q: stats: %w", v, err)
	}

	if o[team] == nil {
		o[team] = make(map[match.Slot]match.Stats)
	}
	o[team][slot] = s.Clamp()
	return nil
}

func runBatch(ctx context.Context, args []string, cfg *config.Config, logger *zap.Logger) error {
	defaults := cfg.Batch.BatchDefaults()

	var overrides overrideFlags
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	formationA := fs.String("a", "3-3", "team A formation (2-4, 3-3, 4-2)")
	formationB := fs.String("b", "3-3", "team B formation (2-4, 3-3, 4-2)")
	matches := fs.Int("matches", defaults.NumMatches, "number of matches [100, 100000]")
	turns := fs.Int("turns", defaults.TurnsPerMatch, "turns per match [5, 50]")
	seed := fs.Uint64("seed", defaults.Seed, "random seed, 0 picks one")
	workers := fs.Int("workers", defaults.Workers, "parallel workers, 0 uses every CPU")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	quiet := fs.Bool("quiet", false, "suppress progress output")
	fs.Var(&overrides, "override", "pin stats, e.g. A:FW1=90/50/80 (repeatable)")
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

	sim := batch.NewSimulator(batch.Config{
		FormationA:    a,
		FormationB:    b,
		NumMatches:    *matches,
		TurnsPerMatch: *turns,
		Overrides:     overrides,
		Seed:          *seed,
		Workers:       *workers,
	}, logger)
	run := sim.Config()

	var progress func(batch.Result)
	if !*quiet {
		progress = func(r batch.Result) {
			fmt.Fprintf(os.Stderr, "\rsimulated %d/%d matches", r.TotalMatches, run.NumMatches)
		}
	}
	res, err := sim.Run(ctx, progress)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return err
	}

	if *asJSON {
		return printJSON(res)
	}

	fmt.Printf("%s vs %s, %d matches of %d turns (seed %d)\n",
		run.FormationA, run.FormationB, res.TotalMatches, run.TurnsPerMatch, run.Seed)
	fmt.Printf("  team A wins  %6d  %5.1f%%  %.2f goals/match\n", res.WinsA, res.WinRate(match.TeamA)*100, res.GoalsPerMatch(match.TeamA))
	fmt.Printf("  team B wins  %6d  %5.1f%%  %.2f goals/match\n", res.WinsB, res.WinRate(match.TeamB)*100, res.GoalsPerMatch(match.TeamB))
	fmt.Printf("  draws        %6d  %5.1f%%\n", res.Draws, res.DrawRate()*100)
	return nil
}
