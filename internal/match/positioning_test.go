package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveTowards(t *testing.T) {
	from := Vec{X: 0, Y: 0}

	assert.Equal(t, Vec{X: 3, Y: 4}, MoveTowards(from, Vec{X: 3, Y: 4}, 5), "snaps when in reach")

	step := MoveTowards(from, Vec{X: 30, Y: 40}, 5)
	assert.InDelta(t, 3.0, step.X, 1e-9)
	assert.InDelta(t, 4.0, step.Y, 1e-9)

	assert.Equal(t, from, MoveTowards(from, from, 0))
}

func TestInScoringZone(t *testing.T) {
	assert.True(t, InScoringZone(Vec{Y: 50}, TeamA, 0))
	assert.False(t, InScoringZone(Vec{Y: 550}, TeamA, 0))
	assert.True(t, InScoringZone(Vec{Y: 550}, TeamB, 0))
	assert.True(t, InScoringZone(Vec{Y: 110}, TeamA, 20), "margin widens the zone")
}

func TestIdleTargetStaysOnPitch(t *testing.T) {
	p := testPlayer("T1-D1", TeamA, RoleDF, Stats{})
	p.Base = Vec{X: 5, Y: 595}
	for tick := 0; tick < 200; tick++ {
		target := IdleTarget(p, Vec{X: 0, Y: PitchHeight}, tick)
		assert.GreaterOrEqual(t, target.X, FieldMargin)
		assert.LessOrEqual(t, target.Y, PitchHeight-FieldMargin)
	}
}

func TestAssignMarkingRebuildsOnForwardCountChange(t *testing.T) {
	defenders := []*Player{
		{ID: "T1-D2", Index: 2},
		{ID: "T1-D1", Index: 1},
	}
	forwards := []*Player{{ID: "T2-F1", Index: 1}}

	var m Marking
	AssignMarking(&m, defenders, forwards, "")
	assert.Equal(t, map[string]string{"T1-D1": "T2-F1", "T1-D2": "T2-F1"}, m.Assignments)

	// Same count: cached assignments survive.
	AssignMarking(&m, defenders, []*Player{{ID: "T2-F9", Index: 1}}, "")
	assert.Equal(t, "T2-F1", m.Assignments["T1-D1"])

	forwards = append(forwards, &Player{ID: "T2-F2", Index: 2})
	AssignMarking(&m, defenders, forwards, "")
	assert.Equal(t, 2, m.ForwardCount)
	assert.Equal(t, "T2-F2", m.Assignments["T1-D2"])
}

func TestAssignMarkingSkipsBallHolder(t *testing.T) {
	defenders := []*Player{{ID: "T1-D1", Index: 1}, {ID: "T1-D2", Index: 2}, {ID: "T1-D3", Index: 3}}
	forwards := []*Player{{ID: "T2-F1", Index: 1}, {ID: "T2-F2", Index: 2}, {ID: "T2-F3", Index: 3}}

	var m Marking
	AssignMarking(&m, defenders, forwards, "T2-F2")
	assert.Equal(t, map[string]string{"T1-D1": "T2-F1", "T1-D2": "T2-F3", "T1-D3": "T2-F1"}, m.Assignments)

	// A new holder rebuilds the cache even though the count is unchanged.
	AssignMarking(&m, defenders, forwards, "T2-F1")
	for _, fw := range m.Assignments {
		assert.NotEqual(t, "T2-F1", fw)
	}

	// A lone forward is still marked while he holds the ball.
	AssignMarking(&m, defenders, forwards[:1], "T2-F1")
	assert.Equal(t, "T2-F1", m.Assignments["T1-D2"])
}

func TestSeparatePushesStackedTargetsApart(t *testing.T) {
	defenders := []*Player{{ID: "T1-D1", Index: 1}, {ID: "T1-D2", Index: 2}}
	targets := map[string]Vec{
		"T1-D1": {X: 200, Y: 300},
		"T1-D2": {X: 200, Y: 300},
	}
	separate(defenders, targets)
	assert.InDelta(t, MinDefenderSeparation, targets["T1-D1"].Dist(targets["T1-D2"]), 1e-9)
	assert.Equal(t, 300.0, targets["T1-D1"].Y)
}

func TestDefenderTargetsCoverEveryDefender(t *testing.T) {
	s := NewMatchState(Config{FormationA: Formation42, FormationB: Formation24}, NewRandom(7))
	s.GiveBall(PlayerID(TeamB, RoleFW, 1))

	targets := DefenderTargets(s, TeamA)
	require.Len(t, targets, 4)
	for id, target := range targets {
		assert.Equal(t, clampToPitch(target, 0), target, id)
	}
	assert.Equal(t, 4, s.Marking[TeamA].ForwardCount)
}

func TestDefenderTargetsCommitNearestToHolder(t *testing.T) {
	s := NewMatchState(Config{FormationA: Formation33, FormationB: Formation33}, NewRandom(3))
	fw := s.Player(PlayerID(TeamB, RoleFW, 1))
	fw.Pos = Vec{X: 60, Y: 420}
	s.GiveBall(fw.ID)

	d1 := s.Player(PlayerID(TeamA, RoleDF, 1))
	targets := DefenderTargets(s, TeamA)

	// D1 sits on the left, nearest to the holder: it commits toward him.
	want := Vec{
		X: fw.Pos.X*CommitBlend + d1.Base.X*(1-CommitBlend),
		Y: fw.Pos.Y*CommitBlend + d1.Base.Y*(1-CommitBlend),
	}
	assert.InDelta(t, want.X, targets[d1.ID].X, MinDefenderSeparation)
	assert.InDelta(t, want.Y, targets[d1.ID].Y, MinDefenderSeparation)
}

func TestSupportTargetNeverCrossesMidline(t *testing.T) {
	a := &Player{Team: TeamA, Base: Vec{X: 100, Y: 350}}
	b := &Player{Team: TeamB, Base: Vec{X: 100, Y: 150}}
	assert.Equal(t, MidlineY, SupportTarget(a).Y)
	assert.Equal(t, 230.0, SupportTarget(b).Y)
}
