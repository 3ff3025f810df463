package batch

import (
	"runtime"

	"github.com/petstriker/matchsim/internal/match"
)

// Bounds of the batch configuration surface.
const (
	MinMatches      = 100
	MaxMatches      = 100000
	MinTurns        = 5
	MaxTurns        = 50
	DefaultMatches  = 1000
	DefaultTurns    = 10
	minChunkMatches = 100
)

// Config describes one batch run.
type Config struct {
	FormationA    match.Formation
	FormationB    match.Formation
	NumMatches    int
	TurnsPerMatch int
	// Overrides pins the stats of individual players per team; everyone else
	// draws random stats for every match.
	Overrides [2]map[match.Slot]match.Stats
	// Seed makes a run reproducible. Zero picks a random seed.
	Seed    uint64
	Workers int
}

// Normalize clamps every field to its documented bounds. Formations other
// than the presets become 3-3.
func (c Config) Normalize() Config {
	out := c
	out.FormationA = c.FormationA.Normalize()
	out.FormationB = c.FormationB.Normalize()
	out.NumMatches = min(max(c.NumMatches, MinMatches), MaxMatches)
	out.TurnsPerMatch = min(max(c.TurnsPerMatch, MinTurns), MaxTurns)
	for t := range c.Overrides {
		if c.Overrides[t] == nil {
			continue
		}
		out.Overrides[t] = make(map[match.Slot]match.Stats, len(c.Overrides[t]))
		for slot, stats := range c.Overrides[t] {
			out.Overrides[t][slot] = stats.Clamp()
		}
	}
	if out.Workers <= 0 {
		out.Workers = runtime.GOMAXPROCS(0)
	}
	return out
}

// ChunkSize is the number of matches per unit of parallel work and per
// progress report.
func (c Config) ChunkSize() int {
	return max(minChunkMatches, c.NumMatches/10)
}
