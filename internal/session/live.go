package session

import (
	"bytes"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
)

// LiveMatch drives one engine on a ticker and publishes a snapshot after
// every tick
type LiveMatch struct {
	ID         string
	CreateTime time.Time
	Seed       uint64

	engine   *match.Engine
	interval time.Duration
	record   bytes.Buffer
	recorder *replay.Writer
	hub      *hub[*match.MatchState]
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	logger   *zap.Logger
}

func newLiveMatch(id string, cfg match.Config, seed uint64, interval time.Duration, buffer int, logger *zap.Logger) *LiveMatch {
	lm := &LiveMatch{
		ID:         id,
		CreateTime: time.Now(),
		Seed:       seed,
		interval:   interval,
		hub:        newHub[*match.MatchState](buffer),
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("match_id", id)),
	}
	lm.engine = match.NewEngine(cfg,
		match.WithRandom(match.NewRandom(seed)),
		match.WithLogger(lm.logger),
		match.WithEventSink(lm.recordEvent),
	)
	lm.resetRecording()
	return lm
}

// recordEvent runs inside engine calls, with lm.mu held
func (lm *LiveMatch) recordEvent(ev match.Event) {
	lm.recorder.Record(ev)
}

func (lm *LiveMatch) resetRecording() {
	lm.record.Reset()
	cfg := lm.engine.Config()
	w, err := replay.NewWriter(&lm.record, cfg.FormationA, cfg.FormationB)
	if err != nil {
		// bytes.Buffer writes do not fail.
		lm.logger.Error("failed to start match recording", zap.Error(err))
		return
	}
	lm.recorder = w
}

func (lm *LiveMatch) run(ctx context.Context) {
	defer close(lm.done)
	ticker := time.NewTicker(lm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lm.mu.Lock()
			if !lm.engine.Running() || lm.engine.Advance(1) == 0 {
				lm.mu.Unlock()
				continue
			}
			snap := lm.engine.Snapshot()
			lm.hub.publish(snap)
			lm.mu.Unlock()

			if snap.Phase == match.PhaseFullTime {
				lm.logger.Info("match finished",
					zap.Int("score_a", snap.Score.A),
					zap.Int("score_b", snap.Score.B),
					zap.Int("ticks", snap.MatchTime),
				)
			}
		}
	}
}

// Start kicks off or resumes the match. Starting a finished match replays
// it from a fresh lineup.
func (lm *LiveMatch) Start() *match.MatchState {
	return lm.apply(func(e *match.Engine) error {
		if e.Phase() == match.PhaseFullTime {
			e.Reset()
			lm.resetRecording()
		}
		e.Start()
		return nil
	})
}

// Stop pauses the ticker-driven advance
func (lm *LiveMatch) Stop() *match.MatchState {
	return lm.apply(func(e *match.Engine) error {
		e.Stop()
		return nil
	})
}

// Reset replaces the match with a fresh lineup and clears the recording
func (lm *LiveMatch) Reset() *match.MatchState {
	return lm.apply(func(e *match.Engine) error {
		e.Reset()
		lm.resetRecording()
		return nil
	})
}

// Step performs n manual ticks (at least one)
func (lm *LiveMatch) Step(n int) (*match.MatchState, error) {
	var stepErr error
	snap := lm.apply(func(e *match.Engine) error {
		switch e.Phase() {
		case match.PhaseIdle:
			stepErr = ErrNotStarted
			return stepErr
		case match.PhaseFullTime:
			stepErr = ErrMatchOver
			return stepErr
		}
		for range max(n, 1) {
			if !e.Step() {
				break
			}
		}
		return nil
	})
	return snap, stepErr
}

// apply runs fn and publishes the resulting snapshot under lm.mu, so
// subscribers see snapshots in the order the engine produced them.
func (lm *LiveMatch) apply(fn func(*match.Engine) error) *match.MatchState {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	err := fn(lm.engine)
	snap := lm.engine.Snapshot()
	if err == nil {
		lm.hub.publish(snap)
	}
	return snap
}

// Snapshot returns a copy of the current state
func (lm *LiveMatch) Snapshot() *match.MatchState {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.engine.Snapshot()
}

// Config returns the normalized match configuration
func (lm *LiveMatch) Config() match.Config {
	return lm.engine.Config()
}

// EventLog returns the event log recorded since the last reset
func (lm *LiveMatch) EventLog() string {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.record.String()
}

// Subscribe streams snapshots. The returned function ends the subscription.
func (lm *LiveMatch) Subscribe() (<-chan *match.MatchState, func()) {
	return lm.hub.subscribe()
}

// Subscribers returns the number of open subscriptions
func (lm *LiveMatch) Subscribers() int {
	return lm.hub.count()
}

// Finished reports whether the match reached full time
func (lm *LiveMatch) Finished() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.engine.Phase() == match.PhaseFullTime
}

func (lm *LiveMatch) close() {
	if lm.cancel != nil {
		lm.cancel()
		<-lm.done
	}
	lm.hub.close()
}
