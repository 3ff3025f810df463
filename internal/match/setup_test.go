package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMatchStateLayout(t *testing.T) {
	s := NewMatchState(Config{FormationA: Formation24, FormationB: Formation33}, NewRandom(1))

	assert.Len(t, s.TeamPlayers(TeamA, RoleDF), 2)
	assert.Len(t, s.TeamPlayers(TeamA, RoleFW), 4)
	assert.Len(t, s.TeamPlayers(TeamB, RoleDF), 3)
	assert.Len(t, s.TeamPlayers(TeamB, RoleGK), 1)

	gkA, gkB := s.Goalkeeper(TeamA), s.Goalkeeper(TeamB)
	assert.Equal(t, "T1-G", gkA.ID)
	assert.Equal(t, PitchHeight-gkA.Base.Y, gkB.Base.Y, "team B mirrors team A")

	names := map[string]bool{}
	for _, p := range s.Players {
		assert.False(t, names[p.Name], "duplicate name %s", p.Name)
		names[p.Name] = true
		assert.Equal(t, p.Stats, p.Stats.Clamp())
		assert.Equal(t, SkillTypeForRole(p.Role), p.Skill.Type)
		assert.Equal(t, p.Base, p.Pos)
	}
}

func TestNewMatchStateOverrides(t *testing.T) {
	cfg := Config{
		Overrides: [2]map[Slot]Stats{
			{{Role: RoleFW, Index: 2}: {Atk: 120, Def: 10, Spd: 70}},
		},
	}
	s := NewMatchState(cfg, NewRandom(1))
	fw := s.Player("T1-F2")
	require.NotNil(t, fw)
	assert.Equal(t, Stats{Atk: MaxStat, Def: MinStat, Spd: 70}, fw.Stats)
}

func TestParseSlot(t *testing.T) {
	slot, err := ParseSlot("fw3")
	require.NoError(t, err)
	assert.Equal(t, Slot{Role: RoleFW, Index: 3}, slot)
	assert.Equal(t, "FW3", slot.String())

	slot, err = ParseSlot("GK")
	require.NoError(t, err)
	assert.Equal(t, "GK", slot.String())

	for _, bad := range []string{"", "XX1", "DF0", "FWx"} {
		_, err := ParseSlot(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseFormation(t *testing.T) {
	f, err := ParseFormation("3-3")
	require.NoError(t, err)
	assert.Equal(t, Formation33, f)

	f, err = ParseFormation("42")
	require.NoError(t, err)
	assert.Equal(t, Formation42, f)
	assert.True(t, f.IsPreset())

	for _, bad := range []string{"4-4-2", "9-9", "0-7", "5-1", "x-y", ""} {
		_, err = ParseFormation(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfigNormalizeCoercesFormations(t *testing.T) {
	cfg := Config{
		FormationA: Formation{Defenders: 9, Forwards: 9},
		FormationB: Formation{Defenders: 0, Forwards: 7},
	}.Normalize()
	assert.Equal(t, Formation33, cfg.FormationA)
	assert.Equal(t, Formation33, cfg.FormationB)
	assert.Equal(t, Formation33, Formation{}.Normalize())
	assert.Equal(t, Formation24, Formation24.Normalize())

	e := NewEngine(Config{
		FormationA: Formation{Defenders: 9, Forwards: 9},
		FormationB: Formation42,
	})
	s := e.Snapshot()
	assert.Equal(t, [2]Formation{Formation33, Formation42}, s.Formations)
	assert.Len(t, s.Players, 14)
}
