package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryPhaseHasSuccessors(t *testing.T) {
	for _, p := range Phases {
		if p == PhaseFullTime {
			assert.Empty(t, Successors(p))
			continue
		}
		assert.NotEmpty(t, Successors(p), "phase %s is a dead end", p)
		for _, next := range Successors(p) {
			assert.Contains(t, Phases, next)
		}
	}
}

func TestInPlayPhasesCanRecover(t *testing.T) {
	for _, p := range Phases {
		if p == PhaseIdle || p == PhaseFullTime || p == PhaseDFBuildup {
			continue
		}
		assert.Contains(t, Successors(p), PhaseDFBuildup, "phase %s", p)
		assert.Contains(t, Successors(p), PhaseFullTime, "phase %s", p)
	}
}

func TestPhaseMachine(t *testing.T) {
	ctx := context.Background()
	m := newPhaseMachine(PhaseIdle)

	require.NoError(t, m.move(ctx, PhaseKickoffContest))
	require.NoError(t, m.move(ctx, PhaseDFBuildup))
	require.NoError(t, m.move(ctx, PhaseDFBuildup), "staying put is not a transition")
	assert.Equal(t, PhaseDFBuildup, m.current())

	err := m.move(ctx, PhaseGoalCelebration)
	require.Error(t, err)
	assert.Equal(t, PhaseDFBuildup, m.current())

	m.reset(PhaseIdle)
	assert.Equal(t, PhaseIdle, m.current())
}

func TestPhaseTimeouts(t *testing.T) {
	assert.Equal(t, KickoffTimeout, PhaseKickoffContest.Timeout())
	assert.Zero(t, PhaseShooting.Timeout())
	assert.Equal(t, -1, PhaseIdle.Timeout())
	assert.Equal(t, -1, PhaseFullTime.Timeout())
}
