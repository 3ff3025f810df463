package match

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const maxMatchTicks = 50000

func TestNewEngineIsIdle(t *testing.T) {
	e := NewEngine(Config{FormationA: Formation24, FormationB: Formation42})
	s := e.Snapshot()

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.False(t, e.Running())
	assert.Len(t, s.Players, 14)
	assert.NotNil(t, s.Goalkeeper(TeamA))
	assert.NotNil(t, s.Goalkeeper(TeamB))
	assert.Equal(t, DefaultMaxTurns, s.MaxTurns)
	assert.False(t, e.Step(), "idle matches do not tick")
}

func TestEngineStartEmitsOpeningEvents(t *testing.T) {
	var events []Event
	e := NewEngine(Config{}, WithEventSink(func(ev Event) { events = append(events, ev) }))
	e.Start()

	require.Len(t, events, 3)
	assert.Equal(t, EventStartMatch, events[0].Type)
	assert.Equal(t, EventStartHalf, events[1].Type)
	assert.Equal(t, Event{Type: EventStartTurn, Params: []string{"1"}}, events[2])
	assert.Equal(t, PhaseKickoffContest, e.Phase())
	assert.True(t, e.Running())
}

func TestEngineStopHaltsAdvance(t *testing.T) {
	e := NewEngine(Config{})
	e.Start()
	require.Equal(t, 10, e.Advance(10))

	e.Stop()
	before := e.Snapshot().MatchTime
	assert.Zero(t, e.Advance(10))
	assert.Equal(t, before, e.Snapshot().MatchTime)

	assert.True(t, e.Step(), "manual steps work while stopped")
	assert.Equal(t, before+1, e.Snapshot().MatchTime)
}

func TestEngineSnapshotIsIsolated(t *testing.T) {
	e := NewEngine(Config{})
	e.Start()
	e.Advance(5)

	snap := e.Snapshot()
	snap.Players[0].Pos = Vec{X: -1, Y: -1}
	snap.Score.A = 99
	assert.NotEqual(t, snap.Players[0].Pos, e.Snapshot().Players[0].Pos)
	assert.Zero(t, e.Snapshot().Score.A)
}

func TestEngineInvariantsHoldEveryTick(t *testing.T) {
	for _, seed := range []uint64{1, 2, 3, 42, 1337} {
		e := NewEngine(
			Config{FormationA: Formation33, FormationB: Formation42, MaxTurns: 10},
			WithRandom(NewRandom(seed)),
			WithLogger(zaptest.NewLogger(t)),
		)
		e.Start()
		prev := e.Phase()
		for tick := 0; tick < maxMatchTicks && e.Running(); tick++ {
			e.Step()
			s := e.Snapshot()

			holders := 0
			for _, p := range s.Players {
				if p.HasBall {
					holders++
					assert.Equal(t, p.ID, s.Ball.OwnerID)
				}
				assert.GreaterOrEqual(t, p.Rage, 0.0)
				assert.LessOrEqual(t, p.Rage, p.MaxRage)
			}
			assert.LessOrEqual(t, holders, 1)
			if holders == 0 {
				assert.Empty(t, s.Ball.OwnerID)
			}
			assert.LessOrEqual(t, len(s.Log), LogCapacity)

			if s.Phase != prev {
				assert.True(t, slices.Contains(Successors(prev), s.Phase),
					"seed %d: %s -> %s is not a legal transition", seed, prev, s.Phase)
				prev = s.Phase
			}
		}
		assert.Equal(t, PhaseFullTime, e.Phase(), "seed %d never reached full time", seed)
		assert.Equal(t, 10, e.Snapshot().Turn)
	}
}

func TestEngineScoreMatchesGoalEvents(t *testing.T) {
	goals := Score{}
	e := NewEngine(Config{MaxTurns: 30}, WithRandom(NewRandom(99)), WithEventSink(func(ev Event) {
		if ev.Type != EventShotGoal {
			return
		}
		var team Team
		require.NoError(t, team.UnmarshalText([]byte(ev.Params[0][:2])))
		goals.add(team)
	}))
	e.Start()
	e.Advance(maxMatchTicks)

	require.Equal(t, PhaseFullTime, e.Phase())
	assert.Equal(t, goals, e.Snapshot().Score)
}

func TestEngineMinimumRandomIsAllInterceptions(t *testing.T) {
	var lost int
	e := NewEngine(Config{MaxTurns: 6}, WithRandom(minRandom()), WithEventSink(func(ev Event) {
		if ev.Type == EventLostBall {
			lost++
		}
	}))
	e.Start()
	e.Advance(maxMatchTicks)

	s := e.Snapshot()
	assert.Equal(t, PhaseFullTime, s.Phase)
	assert.Equal(t, Score{}, s.Score)
	assert.Equal(t, 6, lost)
	assert.False(t, e.Running())
}

func TestEngineLogIsCappedNewestFirst(t *testing.T) {
	e := NewEngine(Config{MaxTurns: 40}, WithRandom(NewRandom(5)))
	e.Start()
	e.Advance(maxMatchTicks)

	log := e.Snapshot().Log
	require.Len(t, log, LogCapacity)
	for i := 1; i < len(log); i++ {
		assert.Greater(t, log[i-1].Seq, log[i].Seq)
	}
}

func TestEngineResetAndRestart(t *testing.T) {
	e := NewEngine(Config{MaxTurns: 5}, WithRandom(NewRandom(11)))
	e.Start()
	e.Advance(maxMatchTicks)
	require.Equal(t, PhaseFullTime, e.Phase())
	assert.False(t, e.Step())

	e.Reset()
	s := e.Snapshot()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Zero(t, s.Turn)
	assert.Equal(t, Score{}, s.Score)
	assert.Empty(t, s.Log)

	e.Start()
	assert.Equal(t, PhaseKickoffContest, e.Phase())
}

func TestEngineRecoversWhenHolderIsMissing(t *testing.T) {
	e := NewEngine(Config{}, WithLogger(zaptest.NewLogger(t)))
	e.Start()

	// Force a phase whose actor is absent.
	e.state.setPhase(PhaseShooting)
	e.phases.reset(PhaseShooting)
	e.state.ClearBall(Vec{X: 200, Y: 300})
	e.state.AttackingTeam = TeamB

	require.True(t, e.Step())
	s := e.Snapshot()
	assert.Equal(t, PhaseDFBuildup, s.Phase)
	holder := s.BallHolder()
	require.NotNil(t, holder)
	assert.Equal(t, RoleDF, holder.Role)
	assert.Equal(t, TeamB, holder.Team)
}

func TestRestartIndex(t *testing.T) {
	assert.Equal(t, 2, RestartIndex(Formation33))
	assert.Equal(t, 1, RestartIndex(Formation42))
	assert.Equal(t, 2, RestartIndex(Formation24))
}

func TestEnginePhasesResolveWithinTimeout(t *testing.T) {
	for _, seed := range []uint64{7, 99, 2024} {
		e := NewEngine(Config{MaxTurns: 6}, WithRandom(NewRandom(seed)))
		e.Start()
		for tick := 0; tick < maxMatchTicks && e.Running(); tick++ {
			e.Step()
			s := e.Snapshot()
			if limit := s.Phase.Timeout(); limit >= 0 {
				require.LessOrEqual(t, s.PhaseTimer, limit+1,
					"seed %d: %s held for %d ticks", seed, s.Phase, s.PhaseTimer)
			}
		}
		assert.Equal(t, PhaseFullTime, e.Phase())
	}
}

func TestDuelUsesContactDefender(t *testing.T) {
	var events []Event
	e := NewEngine(Config{MaxTurns: 10},
		WithRandom(minRandom()),
		WithLogger(zaptest.NewLogger(t)),
		WithEventSink(func(ev Event) { events = append(events, ev) }),
	)
	e.Start()

	fw := e.state.Player("T1-F1")
	near, far := e.state.Player("T2-D1"), e.state.Player("T2-D3")
	fw.Pos = Vec{X: 200, Y: 250}
	near.Pos = Vec{X: 205, Y: 245}
	far.Pos = Vec{X: 380, Y: 40}
	e.state.GiveBall(fw.ID)
	e.state.AttackingTeam = TeamA
	e.state.DuelDefenderID = far.ID
	e.state.setPhase(PhaseDuel)
	e.phases.reset(PhaseDuel)
	events = nil

	require.True(t, e.Step())
	i := slices.IndexFunc(events, func(ev Event) bool {
		return ev.Type == EventDuelSuccess || ev.Type == EventDuelFailed
	})
	require.GreaterOrEqual(t, i, 0, "no duel event in %v", events)
	assert.Equal(t, []string{fw.ID, far.ID}, events[i].Params)
	assert.Empty(t, e.Snapshot().DuelDefenderID)
}
