package match

import (
	"math"
	"sort"
)

// MoveTowards steps from current toward target by at most step. When the
// target is within reach the result is exactly the target.
func MoveTowards(current, target Vec, step float64) Vec {
	dist := current.Dist(target)
	if dist <= step || dist == 0 {
		return target
	}
	ratio := step / dist
	return Vec{
		X: current.X + (target.X-current.X)*ratio,
		Y: current.Y + (target.Y-current.Y)*ratio,
	}
}

// MoveCap is the per-tick movement budget for a player.
func MoveCap(base float64, spd int, divisor float64) float64 {
	return base + float64(spd)/divisor
}

func clampToPitch(v Vec, margin float64) Vec {
	return Vec{
		X: clampFloat(v.X, margin, PitchWidth-margin),
		Y: clampFloat(v.Y, margin, PitchHeight-margin),
	}
}

// attackDir is -1 for team A (attacks toward y=0) and +1 for team B.
func attackDir(t Team) float64 {
	if t == TeamA {
		return -1
	}
	return 1
}

// GoalY is the y of the goal line team t attacks.
func GoalY(t Team) float64 {
	if t == TeamA {
		return GoalLineB
	}
	return GoalLineA
}

// OwnGoalY is the y of the goal line team t defends.
func OwnGoalY(t Team) float64 {
	return GoalY(t.Opponent())
}

// InScoringZone reports whether pos is inside the scoring zone team t attacks.
// margin widens the zone toward the midline.
func InScoringZone(pos Vec, t Team, margin float64) bool {
	if t == TeamA {
		return pos.Y < PenaltyDepth+margin
	}
	return pos.Y > PitchHeight-PenaltyDepth-margin
}

// IdleTarget wobbles sinusoidally around the base position with a small pull
// toward the ball.
func IdleTarget(p *Player, ball Vec, matchTime int) Vec {
	t := float64(matchTime) * TickSeconds
	wobble := Vec{
		X: math.Sin(t*0.5+p.Base.X) * IdleWobble,
		Y: math.Cos(t*0.4+p.Base.Y) * IdleWobble,
	}
	return clampToPitch(Vec{
		X: p.Base.X + wobble.X + (ball.X-p.Base.X)*BallInfluence,
		Y: p.Base.Y + wobble.Y + (ball.Y-p.Base.Y)*BallInfluence,
	}, FieldMargin)
}

// ForwardTarget pushes forwards into the attacking third with lateral spread
// while their team holds the ball and drops them into their own half otherwise.
func ForwardTarget(p *Player, ball Vec, holder *Player, matchTime int) Vec {
	if holder == nil {
		return IdleTarget(p, ball, matchTime)
	}
	t := float64(matchTime) * TickSeconds
	if holder.Team == p.Team {
		third := PitchHeight * 0.35
		if p.Team == TeamB {
			third = PitchHeight * 0.65
		}
		y := math.Min(p.Pos.Y, third)
		if p.Team == TeamB {
			y = math.Max(p.Pos.Y, third)
		}
		spread := math.Sin(t+float64(p.Index)) * ForwardSpread
		return clampToPitch(Vec{X: p.Base.X + spread, Y: y}, 60)
	}
	ownHalf := PitchHeight * 0.65
	if p.Team == TeamB {
		ownHalf = PitchHeight * 0.35
	}
	return clampToPitch(Vec{X: p.Base.X + (ball.X-PitchWidth/2)*0.2, Y: ownHalf}, 60)
}

// AssignMarking pairs defenders with opposing forwards by index, skipping
// holderID, who is left to the committing defender. A lone forward is marked
// even when he holds the ball. The cache is only rebuilt when the opposing
// forward count or the excluded holder differs from the one it was computed
// for.
func AssignMarking(m *Marking, defenders, forwards []*Player, holderID string) {
	if m.Assignments != nil && m.ForwardCount == len(forwards) && m.Excluded == holderID {
		return
	}
	ds := sortedByIndex(defenders)
	fs := make([]*Player, 0, len(forwards))
	for _, f := range sortedByIndex(forwards) {
		if f.ID != holderID {
			fs = append(fs, f)
		}
	}
	if len(fs) == 0 {
		fs = sortedByIndex(forwards)
	}
	m.ForwardCount = len(forwards)
	m.Excluded = holderID
	m.Assignments = make(map[string]string, len(ds))
	if len(fs) == 0 {
		return
	}
	for i, d := range ds {
		m.Assignments[d.ID] = fs[i%len(fs)].ID
	}
}

func sortedByIndex(ps []*Player) []*Player {
	out := append([]*Player(nil), ps...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// DefenderTargets computes targets for all defenders of team t. The defender
// nearest an opposing ball-holding forward commits toward him; the others
// hold their marking assignments. Targets closer than MinDefenderSeparation
// are pushed apart.
func DefenderTargets(s *MatchState, t Team) map[string]Vec {
	defenders := s.TeamPlayers(t, RoleDF)
	forwards := s.TeamPlayers(t.Opponent(), RoleFW)
	m := &s.Marking[t]

	holder := s.BallHolder()
	var committed *Player
	excluded := ""
	if holder != nil && holder.Team != t && holder.Role == RoleFW {
		committed = nearest(holder.Pos, defenders, "")
		excluded = holder.ID
	}
	AssignMarking(m, defenders, forwards, excluded)

	ownGoal := OwnGoalY(t)
	targets := make(map[string]Vec, len(defenders))
	for _, d := range defenders {
		switch {
		case committed != nil && d.ID == committed.ID:
			targets[d.ID] = Vec{
				X: holder.Pos.X*CommitBlend + d.Base.X*(1-CommitBlend),
				Y: holder.Pos.Y*CommitBlend + d.Base.Y*(1-CommitBlend),
			}
		default:
			fw := s.Player(m.Assignments[d.ID])
			if fw == nil {
				targets[d.ID] = IdleTarget(d, s.Ball.Pos, s.MatchTime)
				continue
			}
			targets[d.ID] = clampToPitch(Vec{X: fw.Pos.X, Y: (fw.Pos.Y + ownGoal) / 2}, 50)
		}
	}
	separate(defenders, targets)
	return targets
}

// separate pushes apart targets that sit closer than MinDefenderSeparation.
func separate(defenders []*Player, targets map[string]Vec) {
	ds := sortedByIndex(defenders)
	for pass := 0; pass < 3; pass++ {
		for i := 0; i < len(ds); i++ {
			for j := i + 1; j < len(ds); j++ {
				a, b := targets[ds[i].ID], targets[ds[j].ID]
				d := a.Dist(b)
				if d >= MinDefenderSeparation {
					continue
				}
				push := (MinDefenderSeparation - d) / 2
				dx, dy := b.X-a.X, b.Y-a.Y
				if d == 0 {
					dx, dy, d = 1, 0, 1
				}
				ux, uy := dx/d, dy/d
				targets[ds[i].ID] = clampToPitch(Vec{X: a.X - ux*push, Y: a.Y - uy*push}, 0)
				targets[ds[j].ID] = clampToPitch(Vec{X: b.X + ux*push, Y: b.Y + uy*push}, 0)
			}
		}
	}
}

// SupportTarget pushes a defender up behind its own attacking forwards,
// never past the midline.
func SupportTarget(p *Player) Vec {
	if p.Team == TeamA {
		return Vec{X: p.Base.X, Y: math.Max(p.Base.Y-80, MidlineY)}
	}
	return Vec{X: p.Base.X, Y: math.Min(p.Base.Y+80, MidlineY)}
}
