package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestPlaybackBatchesInstantEvents(t *testing.T) {
	p := NewPlayback(parseSample(t), DefaultDelays())

	applied, err := p.Step(t0)
	require.NoError(t, err)
	require.Len(t, applied, 3, "startMatch, startHalf and startTurn settle together")
	assert.Equal(t, 3, p.Index())

	applied, err = p.Step(t0)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, "T1-F2", p.State().BallOwnerID)
}

func TestPlaybackRejectsStepsWhileSettling(t *testing.T) {
	p := NewPlayback(parseSample(t), DefaultDelays())
	_, err := p.Step(t0)
	require.NoError(t, err)
	_, err = p.Step(t0) // wonKickoff opens a 500ms window
	require.NoError(t, err)

	before := p.State()
	_, err = p.Step(t0.Add(100 * time.Millisecond))
	assert.ErrorIs(t, err, ErrSettling)
	assert.Equal(t, before, p.State())
	assert.Equal(t, t0.Add(500*time.Millisecond), p.ReadyAt())

	_, err = p.Step(t0.Add(500 * time.Millisecond))
	assert.NoError(t, err)
}

func TestPlaybackGoalHoldsLonger(t *testing.T) {
	pm := parseSample(t)
	p := NewPlayback(pm, DefaultDelays())
	now := t0
	for pm.Events[p.Index()].Type != "shotGoal" {
		_, err := p.Step(now)
		require.NoError(t, err)
		now = now.Add(time.Second)
	}
	_, err := p.Step(now)
	require.NoError(t, err)
	assert.Equal(t, 1, p.State().Score.T2)

	_, err = p.Step(now.Add(1999 * time.Millisecond))
	assert.ErrorIs(t, err, ErrSettling)
	_, err = p.Step(now.Add(2 * time.Second))
	assert.NoError(t, err)
}

func TestPlaybackStepThroughMatchesFold(t *testing.T) {
	pm := parseSample(t)
	p := NewPlayback(pm, DefaultDelays())

	now := t0
	for !p.Done() {
		_, err := p.Step(now)
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}
	assert.Equal(t, Fold(pm), p.State())

	_, err := p.Step(now)
	assert.ErrorIs(t, err, ErrFinished)

	p.Reset()
	assert.Equal(t, NewState(pm), p.State())
	for !p.Done() {
		_, err := p.Step(now)
		require.NoError(t, err)
		now = now.Add(time.Hour)
	}
	assert.Equal(t, Fold(pm).Score, p.State().Score)
}

func TestPlaybackPlayPause(t *testing.T) {
	p := NewPlayback(parseSample(t), DefaultDelays())

	applied, err := p.Tick(t0)
	require.NoError(t, err)
	assert.Nil(t, applied, "paused playback does not advance")

	p.Play()
	assert.True(t, p.Playing())
	applied, err = p.Tick(t0)
	require.NoError(t, err)
	assert.Len(t, applied, 3)

	_, _ = p.Tick(t0)
	assert.Equal(t, 4, p.Index())
	applied, err = p.Tick(t0.Add(100 * time.Millisecond))
	require.NoError(t, err)
	assert.Nil(t, applied, "settling ticks are ignored")

	p.Pause()
	applied, _ = p.Tick(t0.Add(time.Hour))
	assert.Nil(t, applied)
	assert.Equal(t, 4, p.Index())
	assert.Equal(t, t0.Add(500*time.Millisecond), p.ReadyAt(), "pause keeps the open window")

	p.Play()
	now := t0
	for p.Playing() {
		now = now.Add(10 * time.Second)
		_, err := p.Tick(now)
		require.NoError(t, err)
	}
	assert.True(t, p.Done())
}

func TestPlaybackBack(t *testing.T) {
	p := NewPlayback(parseSample(t), DefaultDelays())
	assert.ErrorIs(t, p.Back(), ErrNoHistory)

	_, err := p.Step(t0)
	require.NoError(t, err)
	_, err = p.Step(t0)
	require.NoError(t, err)
	require.Equal(t, "T1-F2", p.State().BallOwnerID)

	require.NoError(t, p.Back())
	assert.Equal(t, 3, p.Index())
	assert.Empty(t, p.State().BallOwnerID)

	_, err = p.Step(t0.Add(time.Millisecond))
	assert.NoError(t, err, "back closes the delay window")
}
