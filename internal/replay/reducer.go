package replay

import (
	"math"
	"strconv"

	"github.com/petstriker/matchsim/internal/match"
)

// Score is keyed by the net the ball went into: a goal by a team 1 player
// is recorded in T2.
type Score struct {
	T1 int `json:"t1"`
	T2 int `json:"t2"`
}

// PlayerState is a player as reconstructed from the log
type PlayerState struct {
	ID         string     `json:"id"`
	Team       match.Team `json:"team"`
	Role       match.Role `json:"role"`
	Index      int        `json:"index"`
	Stamina    float64    `json:"stamina"`
	MaxStamina float64    `json:"maxStamina"`
	Rage       float64    `json:"rage"`
	MaxRage    float64    `json:"maxRage"`
	HasBall    bool       `json:"hasBall"`
	Pos        match.Vec  `json:"pos"`
}

// State is the replayed match after some prefix of the events
type State struct {
	FormationA  match.Formation `json:"formationA"`
	FormationB  match.Formation `json:"formationB"`
	Half        int             `json:"half"`
	Turn        int             `json:"turn"`
	Score       Score           `json:"score"`
	Players     []PlayerState   `json:"players"`
	BallOwnerID string          `json:"ballOwnerId,omitempty"`
	Ended       bool            `json:"ended"`
	Applied     int             `json:"applied"`
}

// NewState lays out both teams in formation with nobody on the ball
func NewState(pm *ParsedMatch) State {
	s := State{FormationA: pm.FormationA, FormationB: pm.FormationB, Half: 1}
	for _, t := range []match.Team{match.TeamA, match.TeamB} {
		f := s.formation(t)
		s.Players = append(s.Players, newPlayerState(t, match.RoleGK, 0))
		for i := 1; i <= f.Defenders; i++ {
			s.Players = append(s.Players, newPlayerState(t, match.RoleDF, i))
		}
		for i := 1; i <= f.Forwards; i++ {
			s.Players = append(s.Players, newPlayerState(t, match.RoleFW, i))
		}
	}
	s.layout()
	return s
}

func newPlayerState(t match.Team, role match.Role, index int) PlayerState {
	return PlayerState{
		ID:         match.PlayerID(t, role, index),
		Team:       t,
		Role:       role,
		Index:      index,
		Stamina:    match.DefaultMaxStamina,
		MaxStamina: match.DefaultMaxStamina,
		MaxRage:    match.DefaultMaxRage,
	}
}

func (s *State) formation(t match.Team) match.Formation {
	if t == match.TeamB {
		return s.FormationB
	}
	return s.FormationA
}

func (s *State) clone() State {
	cp := *s
	cp.Players = append([]PlayerState(nil), s.Players...)
	return cp
}

// Player returns the player with id, or nil
func (s *State) Player(id string) *PlayerState {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Holder returns the player on the ball, or nil
func (s *State) Holder() *PlayerState {
	if s.BallOwnerID == "" {
		return nil
	}
	return s.Player(s.BallOwnerID)
}

func (s *State) giveBall(id string) {
	s.BallOwnerID = ""
	for i := range s.Players {
		p := &s.Players[i]
		p.HasBall = p.ID == id
		if p.HasBall {
			s.BallOwnerID = id
		}
	}
}

// layout recomputes every position from the formation and possession
func (s *State) layout() {
	var holding *match.Team
	if h := s.Holder(); h != nil {
		t := h.Team
		holding = &t
	}
	for i := range s.Players {
		p := &s.Players[i]
		p.Pos = TacticalPosition(p.Team, p.Role, p.Index, s.formation(p.Team), holding)
		if p.HasBall {
			p.Pos.Y += attackStep(p.Team) * 20
		}
	}
}

// attackStep is -1 for team 1, which attacks toward y = 0
func attackStep(t match.Team) float64 {
	if t == match.TeamA {
		return -1
	}
	return 1
}

// TacticalPosition places a player from its role, index and formation. The
// side holding the ball pushes up; the other side drops back. holding is nil
// when the ball is loose.
func TacticalPosition(t match.Team, role match.Role, index int, f match.Formation, holding *match.Team) match.Vec {
	var x, y float64
	switch role {
	case match.RoleGK:
		x, y = match.PitchWidth/2, match.PitchHeight-40
	case match.RoleDF:
		x, y = match.PitchWidth/float64(f.Defenders+1)*float64(index), match.PitchHeight-120
	default:
		x, y = match.PitchWidth/float64(f.Forwards+1)*float64(index), match.PitchHeight/2+80
	}
	if t == match.TeamB {
		y = match.PitchHeight - y
	}
	if holding == nil || role == match.RoleGK {
		return match.Vec{X: x, Y: y}
	}

	shift := 0.0
	switch {
	case *holding == t && role == match.RoleFW:
		shift = 120
	case *holding == t:
		shift = 60
	case role == match.RoleFW:
		shift = -40
	}
	return match.Vec{X: x, Y: y + attackStep(t)*shift}
}

// Apply returns the state after ev. s is not modified.
func Apply(s State, ev Event) State {
	next := s.clone()
	next.Applied++

	switch ev.Type {
	case match.EventStartHalf:
		next.Half = atoiOr(ev.Param(0), 1)
	case match.EventStartTurn:
		next.Turn = atoiOr(ev.Param(0), 0)
	case match.EventEndMatch:
		next.Ended = true
	case match.EventWonKickoff, match.EventDuelSuccess:
		next.giveBall(ev.Param(0))
	case match.EventPassBall, match.EventLostBall, match.EventShotFailed, match.EventDuelFailed:
		next.giveBall(ev.Param(1))
	case match.EventShotGoal:
		if scorer, err := ParsePlayerID(ev.Param(0)); err == nil {
			if scorer.Team == match.TeamA {
				next.Score.T2++
			} else {
				next.Score.T1++
			}
		}
		next.giveBall("")
	case match.EventDecrementStamina:
		if p := next.Player(ev.Param(0)); p != nil {
			if _, current, err := ParseMeter(ev.Param(1)); err == nil {
				p.Stamina = clampMeter(current, p.Stamina, p.MaxStamina)
			}
		}
	case match.EventIncrementRage:
		if p := next.Player(ev.Param(0)); p != nil {
			if _, current, err := ParseMeter(ev.Param(1)); err == nil {
				p.Rage = clampMeter(current, p.Rage, p.MaxRage)
			}
		}
	}

	if ev.ChangesPossession() {
		next.layout()
	}
	return next
}

// Fold applies every event of pm in order to a fresh state
func Fold(pm *ParsedMatch) State {
	s := NewState(pm)
	for _, ev := range pm.Events {
		s = Apply(s, ev)
	}
	return s
}

// clampMeter bounds a logged meter reading to [0, hi]. Non-numeric readings
// keep the previous value.
func clampMeter(v, prev, hi float64) float64 {
	if math.IsNaN(v) {
		return prev
	}
	return min(max(v, 0), hi)
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
