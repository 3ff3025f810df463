package batch

import "github.com/petstriker/matchsim/internal/match"

// Roster is the lineup of both teams for one match.
type Roster [2][]*match.Player

// NewRoster builds both lineups. Players without an override draw random
// stats.
func NewRoster(cfg Config, rng match.Random) Roster {
	var r Roster
	for _, t := range []match.Team{match.TeamA, match.TeamB} {
		f := cfg.FormationA
		if t == match.TeamB {
			f = cfg.FormationB
		}
		r[t] = append(r[t], newSimPlayer(t, match.Slot{Role: match.RoleGK}, cfg.Overrides[t], rng))
		for i := 1; i <= f.Defenders; i++ {
			r[t] = append(r[t], newSimPlayer(t, match.Slot{Role: match.RoleDF, Index: i}, cfg.Overrides[t], rng))
		}
		for i := 1; i <= f.Forwards; i++ {
			r[t] = append(r[t], newSimPlayer(t, match.Slot{Role: match.RoleFW, Index: i}, cfg.Overrides[t], rng))
		}
	}
	return r
}

func newSimPlayer(t match.Team, slot match.Slot, overrides map[match.Slot]match.Stats, rng match.Random) *match.Player {
	stats, ok := overrides[slot]
	if !ok {
		stats = match.RandomStats(rng)
	}
	return &match.Player{
		ID:      match.PlayerID(t, slot.Role, slot.Index),
		Role:    slot.Role,
		Team:    t,
		Index:   slot.Index,
		Stats:   stats,
		MaxRage: match.DefaultMaxRage,
		Skill:   match.Skill{Type: match.SkillTypeForRole(slot.Role)},
	}
}

func (r Roster) players(t match.Team, role match.Role) []*match.Player {
	var out []*match.Player
	for _, p := range r[t] {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

func (r Roster) goalkeeper(t match.Team) *match.Player {
	gks := r.players(t, match.RoleGK)
	if len(gks) == 0 {
		return nil
	}
	return gks[0]
}

// TurnResult is the outcome of one turn. Scorer is nil when the turn ended
// without a goal.
type TurnResult struct {
	Scorer        *match.Team
	NextAttacking match.Team
}

// SimulateTurn plays one attacking sequence: a 50/50 kickoff that the side in
// possession keeps or loses, an interception check on the buildup pass, one
// encounter per defending defender, then the shot. Only rage and skill state
// of the roster players change.
func SimulateTurn(r Roster, attacking match.Team, rng match.Random) TurnResult {
	for _, team := range r {
		for _, p := range team {
			p.AddRage(match.RagePerTurn)
		}
	}

	side := attacking
	if !match.Roll(rng, 0.5) {
		side = attacking.Opponent()
	}
	if match.Roll(rng, match.InterceptionChance) {
		side = side.Opponent()
	}
	return attack(r, side, rng)
}

// attack runs a forward line against the opposing defenders and goalkeeper.
func attack(r Roster, side match.Team, rng match.Random) TurnResult {
	stopped := TurnResult{NextAttacking: side.Opponent()}
	forwards := r.players(side, match.RoleFW)
	defenders := r.players(side.Opponent(), match.RoleDF)
	gk := r.goalkeeper(side.Opponent())
	if len(forwards) == 0 || gk == nil {
		return stopped
	}

	tackle := match.TackleChance(len(defenders), len(forwards))
	bonus := 0.0
	for _, d := range defenders {
		if match.Roll(rng, tackle) {
			return stopped
		}
		if len(forwards) > 1 && match.Roll(rng, match.PassAttemptChance) {
			if match.Roll(rng, match.ForwardPassChance) {
				bonus += match.GoalBonusAfterPass
				continue
			}
			return stopped
		}
		fw := forwards[rng.IntN(len(forwards))]
		res := match.Duel(fw, d, rng)
		spend(fw)
		spend(d)
		if !res.AttackerWins {
			return stopped
		}
	}

	shooter := forwards[rng.IntN(len(forwards))]
	res := match.Shot(shooter, gk, bonus, rng)
	spend(shooter)
	spend(gk)
	if !res.Goal {
		return stopped
	}
	scorer := side
	return TurnResult{Scorer: &scorer, NextAttacking: side.Opponent()}
}

func spend(p *match.Player) {
	if p.SkillActive {
		p.ConsumeSkill()
	}
}

// PlayMatch runs turns turns on a fresh roster and returns the score.
func PlayMatch(cfg Config, turns int, rng match.Random) match.Score {
	r := NewRoster(cfg, rng)
	attacking := match.TeamB
	if rng.Float64() >= 0.5 {
		attacking = match.TeamA
	}
	var score match.Score
	for range turns {
		res := SimulateTurn(r, attacking, rng)
		if res.Scorer != nil {
			if *res.Scorer == match.TeamA {
				score.A++
			} else {
				score.B++
			}
		}
		attacking = res.NextAttacking
	}
	return score
}
