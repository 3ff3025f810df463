package match

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot addresses a player position within a team: GK, DF1, FW3.
type Slot struct {
	Role  Role
	Index int
}

func (s Slot) String() string {
	if s.Role == RoleGK {
		return string(RoleGK)
	}
	return string(s.Role) + strconv.Itoa(s.Index)
}

// ParseSlot accepts "GK", "DF2", "FW1" (case-insensitive).
func ParseSlot(s string) (Slot, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == string(RoleGK) {
		return Slot{Role: RoleGK}, nil
	}
	if len(s) < 3 {
		return Slot{}, fmt.Errorf("invalid slot %q", s)
	}
	role := Role(s[:2])
	if role != RoleDF && role != RoleFW {
		return Slot{}, fmt.Errorf("invalid slot role %q", s)
	}
	idx, err := strconv.Atoi(s[2:])
	if err != nil || idx < 1 {
		return Slot{}, fmt.Errorf("invalid slot index %q", s)
	}
	return Slot{Role: role, Index: idx}, nil
}

// Config describes a live match.
type Config struct {
	FormationA Formation
	FormationB Formation
	MaxTurns   int
	// Overrides replaces the random stats of the addressed players, per team.
	Overrides [2]map[Slot]Stats
}

// Normalize clamps the turn limit and every override. Formations other than
// the presets become 3-3.
func (c Config) Normalize() Config {
	out := c
	out.FormationA = c.FormationA.Normalize()
	out.FormationB = c.FormationB.Normalize()
	if out.MaxTurns <= 0 {
		out.MaxTurns = DefaultMaxTurns
	}
	for t := range c.Overrides {
		if c.Overrides[t] == nil {
			continue
		}
		out.Overrides[t] = make(map[Slot]Stats, len(c.Overrides[t]))
		for slot, stats := range c.Overrides[t] {
			out.Overrides[t][slot] = stats.Clamp()
		}
	}
	return out
}

// Formation returns the formation of team t.
func (c Config) Formation(t Team) Formation {
	if t == TeamB {
		return c.FormationB
	}
	return c.FormationA
}

// BasePosition is the formation position of a player. Defenders and forwards
// are spread evenly across the pitch width.
func BasePosition(t Team, role Role, index, count int) Vec {
	var x, y float64
	switch role {
	case RoleGK:
		x, y = PitchWidth/2, PitchHeight-50
	case RoleDF:
		x, y = PitchWidth*float64(index)/float64(count+1), PitchHeight-150
	default:
		x, y = PitchWidth*float64(index)/float64(count+1), PitchHeight/2+80
	}
	if t == TeamB {
		y = PitchHeight - y
	}
	return Vec{X: x, Y: y}
}

// RestartIndex is the index of the forward who contests kickoffs and takes
// restarts: the middle forward of the line.
func RestartIndex(f Formation) int {
	return (f.Forwards + 1) / 2
}

// NewMatchState builds the players of both teams from cfg. The match starts
// idle with the ball loose at the center spot.
func NewMatchState(cfg Config, rng Random) *MatchState {
	cfg = cfg.Normalize()
	names := append([]string(nil), petNames...)
	s := &MatchState{
		Phase:      PhaseIdle,
		Ball:       Ball{Pos: Vec{X: PitchWidth / 2, Y: PitchHeight / 2}},
		MaxTurns:   cfg.MaxTurns,
		Formations: [2]Formation{cfg.FormationA, cfg.FormationB},
	}
	for _, t := range []Team{TeamA, TeamB} {
		f := cfg.Formation(t)
		s.Players = append(s.Players, newPlayer(t, Slot{Role: RoleGK}, 1, cfg.Overrides[t], &names, rng))
		for i := 1; i <= f.Defenders; i++ {
			s.Players = append(s.Players, newPlayer(t, Slot{Role: RoleDF, Index: i}, f.Defenders, cfg.Overrides[t], &names, rng))
		}
		for i := 1; i <= f.Forwards; i++ {
			s.Players = append(s.Players, newPlayer(t, Slot{Role: RoleFW, Index: i}, f.Forwards, cfg.Overrides[t], &names, rng))
		}
	}
	return s
}

func newPlayer(t Team, slot Slot, count int, overrides map[Slot]Stats, names *[]string, rng Random) Player {
	stats, ok := overrides[slot]
	if !ok {
		stats = RandomStats(rng)
	}
	pos := BasePosition(t, slot.Role, slot.Index, count)
	return Player{
		ID:         PlayerID(t, slot.Role, slot.Index),
		Name:       drawName(names, rng),
		Role:       slot.Role,
		Team:       t,
		Index:      slot.Index,
		Stats:      stats,
		Pos:        pos,
		Base:       pos,
		HP:         DefaultMaxHP,
		MaxHP:      DefaultMaxHP,
		Stamina:    DefaultMaxStamina,
		MaxStamina: DefaultMaxStamina,
		MaxRage:    DefaultMaxRage,
		Skill:      SkillForRole(slot.Role, rng),
	}
}

// drawName removes and returns a random name from the pool.
func drawName(names *[]string, rng Random) string {
	pool := *names
	if len(pool) == 0 {
		return fmt.Sprintf("Pet%03d", rng.IntN(1000))
	}
	i := rng.IntN(len(pool))
	name := pool[i]
	pool[i] = pool[len(pool)-1]
	*names = pool[:len(pool)-1]
	return name
}
