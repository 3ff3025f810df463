package session

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
)

// Manager tracks live matches and replay sessions
type Manager struct {
	matches map[string]*LiveMatch
	replays map[string]*ReplaySession
	mu      sync.RWMutex

	engine  config.EngineConfig
	replay  config.ReplayConfig
	limits  config.SessionConfig
	parser  *replay.Parser
	now     func() time.Time
	baseCtx context.Context
	stop    context.CancelFunc
	logger  *zap.Logger
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock replaces time.Now for replay settle windows
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a session manager
func NewManager(cfg *config.Config, logger *zap.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		matches: make(map[string]*LiveMatch),
		replays: make(map[string]*ReplaySession),
		engine:  cfg.Engine,
		replay:  cfg.Replay,
		limits:  cfg.Session,
		parser:  replay.NewParser(logger),
		now:     time.Now,
		baseCtx: ctx,
		stop:    cancel,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// DefaultMatchConfig is the match config built from the engine section
func (m *Manager) DefaultMatchConfig() match.Config {
	return m.engine.MatchConfig()
}

// CreateMatch registers a live match and starts its ticker. A zero seed
// falls back to the configured seed, then to a random one.
func (m *Manager) CreateMatch(cfg match.Config, seed uint64) (*LiveMatch, error) {
	if seed == 0 {
		seed = m.engine.Seed
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = m.engine.MaxTurns
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.matches) >= m.limits.MaxLiveMatches {
		return nil, fmt.Errorf("failed to create match: %w", ErrCapacity)
	}

	lm := newLiveMatch(uuid.New().String(), cfg, seed, m.engine.TickInterval, m.limits.SubscriberBuffer, m.logger)
	ctx, cancel := context.WithCancel(m.baseCtx)
	lm.cancel = cancel
	go lm.run(ctx)
	m.matches[lm.ID] = lm

	mc := lm.Config()
	m.logger.Info("match created",
		zap.String("match_id", lm.ID),
		zap.String("formation_a", mc.FormationA.String()),
		zap.String("formation_b", mc.FormationB.String()),
		zap.Int("max_turns", mc.MaxTurns),
		zap.Uint64("seed", seed),
	)
	return lm, nil
}

// GetMatch retrieves a live match
func (m *Manager) GetMatch(id string) (*LiveMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lm, ok := m.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	return lm, nil
}

// RemoveMatch stops a live match and closes its subscribers
func (m *Manager) RemoveMatch(id string) error {
	m.mu.Lock()
	lm, ok := m.matches[id]
	delete(m.matches, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("match %s: %w", id, ErrNotFound)
	}
	lm.close()
	m.logger.Info("match removed", zap.String("match_id", id))
	return nil
}

// GetAllMatches returns live matches ordered by creation time
func (m *Manager) GetAllMatches() []*LiveMatch {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*LiveMatch, 0, len(m.matches))
	for _, lm := range m.matches {
		out = append(out, lm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreateTime.Before(out[j].CreateTime) })
	return out
}

// GetActiveMatchCount returns the number of matches that have not reached
// full time
func (m *Manager) GetActiveMatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, lm := range m.matches {
		if !lm.Finished() {
			count++
		}
	}
	return count
}

// LoadReplay parses a log and registers a replay session for it
func (m *Manager) LoadReplay(r io.Reader) (*ReplaySession, error) {
	pm, err := m.parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event log: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.replays) >= m.limits.MaxReplays {
		return nil, fmt.Errorf("failed to load replay: %w", ErrCapacity)
	}

	rs := newReplaySession(uuid.New().String(), pm, m.replay.Delays, m.replay.TickInterval, m.limits.SubscriberBuffer, m.now, m.logger)
	ctx, cancel := context.WithCancel(m.baseCtx)
	rs.cancel = cancel
	go rs.run(ctx)
	m.replays[rs.ID] = rs

	m.logger.Info("replay loaded",
		zap.String("replay_id", rs.ID),
		zap.Int("events", len(pm.Events)),
		zap.Int("skipped", pm.Skipped),
		zap.String("formation_a", pm.FormationA.String()),
		zap.String("formation_b", pm.FormationB.String()),
	)
	return rs, nil
}

// ReplayMatch opens a replay of the log a live match has recorded so far
func (m *Manager) ReplayMatch(matchID string) (*ReplaySession, error) {
	lm, err := m.GetMatch(matchID)
	if err != nil {
		return nil, err
	}
	return m.LoadReplay(strings.NewReader(lm.EventLog()))
}

// GetReplay retrieves a replay session
func (m *Manager) GetReplay(id string) (*ReplaySession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.replays[id]
	if !ok {
		return nil, fmt.Errorf("replay %s: %w", id, ErrNotFound)
	}
	return rs, nil
}

// RemoveReplay stops a replay session
func (m *Manager) RemoveReplay(id string) error {
	m.mu.Lock()
	rs, ok := m.replays[id]
	delete(m.replays, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("replay %s: %w", id, ErrNotFound)
	}
	rs.close()
	m.logger.Info("replay removed", zap.String("replay_id", id))
	return nil
}

// Counts returns the number of registered matches and replays
func (m *Manager) Counts() (matches, replays int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matches), len(m.replays)
}

// CloseAll stops every session. The manager stays usable.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	matches := m.matches
	replays := m.replays
	m.matches = make(map[string]*LiveMatch)
	m.replays = make(map[string]*ReplaySession)
	m.mu.Unlock()

	for _, lm := range matches {
		lm.close()
	}
	for _, rs := range replays {
		rs.close()
	}
	m.logger.Info("sessions closed",
		zap.Int("matches", len(matches)),
		zap.Int("replays", len(replays)),
	)
}

// Shutdown closes every session and cancels the manager context
func (m *Manager) Shutdown() {
	m.CloseAll()
	m.stop()
}
