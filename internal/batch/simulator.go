package batch

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/petstriker/matchsim/internal/match"
)

// chunkSeedStride spreads chunk seeds so neighbouring chunks do not share
// PCG streams.
const chunkSeedStride = 0x9e3779b97f4a7c15

// Simulator runs batches of independent matches.
type Simulator struct {
	cfg    Config
	logger *zap.Logger
}

// NewSimulator creates a simulator for cfg. The config is normalized.
func NewSimulator(cfg Config, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.Normalize()
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	return &Simulator{cfg: cfg, logger: logger}
}

// Config returns the normalized configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// RunBatch plays n matches sequentially on rng. n is not clamped.
func (s *Simulator) RunBatch(rng match.Random, n int) Result {
	var res Result
	for range n {
		res.record(PlayMatch(s.cfg, s.cfg.TurnsPerMatch, rng))
	}
	return res
}

// Run plays the configured number of matches across the worker pool. Each
// chunk owns a random stream derived from the seed, so the result does not
// depend on the number of workers. progress, if set, receives the cumulative
// result after every finished chunk.
func (s *Simulator) Run(ctx context.Context, progress func(Result)) (Result, error) {
	chunk := s.cfg.ChunkSize()
	chunks := (s.cfg.NumMatches + chunk - 1) / chunk

	s.logger.Debug("Starting batch",
		zap.Int("matches", s.cfg.NumMatches),
		zap.Int("turns", s.cfg.TurnsPerMatch),
		zap.Int("chunks", chunks),
		zap.Int("workers", s.cfg.Workers),
		zap.Uint64("seed", s.cfg.Seed),
	)

	var (
		mu    sync.Mutex
		total Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i := range chunks {
		size := min(chunk, s.cfg.NumMatches-i*chunk)
		seed := s.cfg.Seed + uint64(i)*chunkSeedStride
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := s.RunBatch(match.NewRandom(seed), size)

			mu.Lock()
			defer mu.Unlock()
			total = total.Merge(res)
			if progress != nil {
				progress(total)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return total, fmt.Errorf("batch interrupted after %d matches: %w", total.TotalMatches, err)
	}

	s.logger.Info("Batch complete",
		zap.Int("matches", total.TotalMatches),
		zap.Int("wins_a", total.WinsA),
		zap.Int("wins_b", total.WinsB),
		zap.Int("draws", total.Draws),
	)
	return total, nil
}
