package session

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
)

const shortLog = `33 vs 42
startMatch
startHalf 1
startTurn 1
wonKickoff T1-F2
passBall T1-F2 T1-D1
shotGoal T1-D1 T2-G
endTurn 1
endHalf 1
endMatch
`

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig(t *testing.T, tick time.Duration) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Engine.TickInterval = tick
	cfg.Engine.Seed = 42
	cfg.Replay.TickInterval = time.Hour
	cfg.Session.MaxLiveMatches = 2
	cfg.Session.MaxReplays = 2
	return cfg
}

func newTestManager(t *testing.T, tick time.Duration, opts ...Option) *Manager {
	t.Helper()
	m := NewManager(testConfig(t, tick), zaptest.NewLogger(t), opts...)
	t.Cleanup(m.Shutdown)
	return m
}

func TestManagerMatchLifecycle(t *testing.T) {
	m := newTestManager(t, time.Hour)

	lm, err := m.CreateMatch(m.DefaultMatchConfig(), 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), lm.Seed)
	assert.Equal(t, match.PhaseIdle, lm.Snapshot().Phase)

	got, err := m.GetMatch(lm.ID)
	require.NoError(t, err)
	assert.Same(t, lm, got)
	assert.Len(t, m.GetAllMatches(), 1)
	assert.Equal(t, 1, m.GetActiveMatchCount())

	require.NoError(t, m.RemoveMatch(lm.ID))
	_, err = m.GetMatch(lm.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.RemoveMatch(lm.ID), ErrNotFound)
}

func TestManagerCapacity(t *testing.T) {
	m := newTestManager(t, time.Hour)

	for range 2 {
		_, err := m.CreateMatch(m.DefaultMatchConfig(), 1)
		require.NoError(t, err)
	}
	_, err := m.CreateMatch(m.DefaultMatchConfig(), 1)
	assert.ErrorIs(t, err, ErrCapacity)

	for range 2 {
		_, err := m.LoadReplay(strings.NewReader(shortLog))
		require.NoError(t, err)
	}
	_, err = m.LoadReplay(strings.NewReader(shortLog))
	assert.ErrorIs(t, err, ErrCapacity)

	matches, replays := m.Counts()
	assert.Equal(t, 2, matches)
	assert.Equal(t, 2, replays)
}

func TestLiveMatchManualStepping(t *testing.T) {
	m := newTestManager(t, time.Hour)
	lm, err := m.CreateMatch(match.Config{MaxTurns: 5}, 7)
	require.NoError(t, err)

	_, err = lm.Step(1)
	assert.ErrorIs(t, err, ErrNotStarted)

	snap := lm.Start()
	assert.True(t, snap.Running)
	assert.Equal(t, match.PhaseKickoffContest, snap.Phase)

	snap, err = lm.Step(5)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.MatchTime)

	snap = lm.Stop()
	assert.False(t, snap.Running)

	snap, err = lm.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 6, snap.MatchTime)

	snap = lm.Reset()
	assert.Equal(t, match.PhaseIdle, snap.Phase)
	assert.Equal(t, "33 vs 33\n", lm.EventLog())
}

func TestLiveMatchPublishesInTickOrder(t *testing.T) {
	cfg := testConfig(t, time.Hour)
	cfg.Session.SubscriberBuffer = 512
	m := NewManager(cfg, zaptest.NewLogger(t))
	t.Cleanup(m.Shutdown)

	lm, err := m.CreateMatch(match.Config{MaxTurns: 50}, 3)
	require.NoError(t, err)
	snaps, unsubscribe := lm.Subscribe()
	defer unsubscribe()
	lm.Start()
	lm.Stop()
	for range 2 {
		assert.Zero(t, (<-snaps).MatchTime)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				_, _ = lm.Step(1)
			}
		}()
	}
	wg.Wait()
	unsubscribe()

	last, received := 0, 0
	for snap := range snaps {
		require.Greater(t, snap.MatchTime, last, "snapshot delivered out of order")
		last = snap.MatchTime
		received++
	}
	assert.Positive(t, received)
	assert.Equal(t, last, received, "one snapshot per tick, none missing")
}

func TestLiveMatchRunsToFullTime(t *testing.T) {
	m := newTestManager(t, time.Millisecond)
	lm, err := m.CreateMatch(match.Config{MaxTurns: 2}, 11)
	require.NoError(t, err)

	snaps, unsubscribe := lm.Subscribe()
	defer unsubscribe()
	assert.Equal(t, 1, lm.Subscribers())

	lm.Start()
	select {
	case snap := <-snaps:
		assert.True(t, snap.Running)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot published after start")
	}

	require.Eventually(t, lm.Finished, 20*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, m.GetActiveMatchCount())

	_, err = lm.Step(1)
	assert.ErrorIs(t, err, ErrMatchOver)

	log := lm.EventLog()
	assert.True(t, strings.HasPrefix(log, "33 vs 33\n"))
	assert.Contains(t, log, "endMatch")

	rs, err := m.ReplayMatch(lm.ID)
	require.NoError(t, err)
	final := replay.Fold(rs.Match())
	assert.True(t, final.Ended)
	assert.Equal(t, 2, final.Turn)
	snap := lm.Snapshot()
	assert.Equal(t, snap.Score.A, final.Score.T2)
	assert.Equal(t, snap.Score.B, final.Score.T1)
}

func TestReplaySessionControl(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := newTestManager(t, time.Hour, WithClock(clock.Now))

	rs, err := m.LoadReplay(strings.NewReader(shortLog))
	require.NoError(t, err)

	frame := rs.Frame()
	assert.Equal(t, 0, frame.Index)
	assert.Equal(t, 9, frame.Total)

	frame, err = rs.Control(ReplayStep)
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Index)
	assert.Len(t, frame.Applied, 3)

	frame, err = rs.Control(ReplayStep)
	require.NoError(t, err)
	assert.Equal(t, "T1-F2", frame.State.BallOwnerID)

	_, err = rs.Control(ReplayStep)
	assert.ErrorIs(t, err, replay.ErrSettling)

	clock.Advance(time.Second)
	frame, err = rs.Control(ReplayStep)
	require.NoError(t, err)
	assert.Equal(t, "T1-D1", frame.State.BallOwnerID)

	frame, err = rs.Control(ReplayBack)
	require.NoError(t, err)
	assert.Equal(t, "T1-F2", frame.State.BallOwnerID)

	frame, err = rs.Control(ReplayPlay)
	require.NoError(t, err)
	assert.True(t, frame.Playing)

	frame, err = rs.Control(ReplayPause)
	require.NoError(t, err)
	assert.False(t, frame.Playing)

	frame, err = rs.Control(ReplayReset)
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Index)

	_, err = rs.Control("rewind")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	require.NoError(t, m.RemoveReplay(rs.ID))
	_, err = m.GetReplay(rs.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaySessionAutoPlay(t *testing.T) {
	cfg := testConfig(t, time.Hour)
	cfg.Replay.TickInterval = time.Millisecond
	cfg.Replay.Delays = replay.Delays{}
	m := NewManager(cfg, zaptest.NewLogger(t))
	t.Cleanup(m.Shutdown)

	rs, err := m.LoadReplay(strings.NewReader(shortLog))
	require.NoError(t, err)

	_, err = rs.Control(ReplayPlay)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return rs.Frame().Done }, 5*time.Second, time.Millisecond)

	frame := rs.Frame()
	assert.False(t, frame.Playing)
	assert.True(t, frame.State.Ended)
	assert.Equal(t, 1, frame.State.Score.T2)
}

func TestCloseAllEndsSubscriptions(t *testing.T) {
	m := newTestManager(t, time.Hour)
	lm, err := m.CreateMatch(m.DefaultMatchConfig(), 3)
	require.NoError(t, err)
	rs, err := m.LoadReplay(strings.NewReader(shortLog))
	require.NoError(t, err)

	snaps, _ := lm.Subscribe()
	frames, _ := rs.Subscribe()

	m.CloseAll()

	_, ok := <-snaps
	assert.False(t, ok)
	_, ok = <-frames
	assert.False(t, ok)

	matches, replays := m.Counts()
	assert.Zero(t, matches)
	assert.Zero(t, replays)
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	h := newHub[int](1)
	slow, _ := h.subscribe()
	fast, unsubscribe := h.subscribe()

	h.publish(1)
	assert.Equal(t, 1, <-fast)
	h.publish(2)
	h.publish(3)

	assert.Equal(t, 1, <-slow)
	assert.Equal(t, 2, <-fast)
	select {
	case v := <-slow:
		t.Fatalf("slow subscriber received %d after its buffer filled", v)
	default:
	}

	unsubscribe()
	unsubscribe()
	_, ok := <-fast
	assert.False(t, ok)
	assert.Equal(t, 1, h.count())

	h.close()
	late, _ := h.subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
