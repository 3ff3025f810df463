package match

// DuelResult is the outcome of a forward/defender contest.
type DuelResult struct {
	AttackerScore float64
	DefenderScore float64
	AttackerWins  bool
}

// Duel contests a ball carrier against a defender. The attacker draw is taken
// before the defender draw.
func Duel(attacker, defender *Player, rng Random) DuelResult {
	a := float64(attacker.Stats.Atk)
	if attacker.SkillActive && attacker.Skill.Type == SkillAttack {
		a += DuelSkillBonus
	}
	d := float64(defender.Stats.Def)
	if defender.SkillActive && defender.Skill.Type == SkillDefense {
		d += DuelSkillBonus
	}
	a += uniform(rng, DuelRollSpan)
	d += uniform(rng, DuelRollSpan)
	return DuelResult{AttackerScore: a, DefenderScore: d, AttackerWins: a > d}
}

// ShotResult is the outcome of a shot against a goalkeeper.
type ShotResult struct {
	ShooterScore float64
	KeeperScore  float64
	Goal         bool
}

// Shot resolves a shot. bonus is the accumulated pass bonus (0.05 per
// completed forward pass), scaled by 100.
func Shot(shooter, keeper *Player, bonus float64, rng Random) ShotResult {
	s := float64(shooter.Stats.Atk)
	if shooter.SkillActive && shooter.Skill.Type == SkillAttack {
		s += ShotSkillBonus
	}
	k := float64(keeper.Stats.Def)
	if keeper.SkillActive {
		k += ShotSkillBonus
	}
	s += uniform(rng, ShotRollSpan) + bonus*100
	k += uniform(rng, SaveRollSpan)
	return ShotResult{ShooterScore: s, KeeperScore: k, Goal: s > k}
}

// TackleChance is the probability a defender dispossesses a carrier given the
// defending side's defender count and the attacking side's forward count.
func TackleChance(defenderCount, forwardCount int) float64 {
	diff := defenderCount - forwardCount
	switch {
	case diff > 0:
		return min(MaxTackleChance, BaseTackleChance+float64(diff)*TacklePerExtraDF)
	case diff < 0:
		return max(MinTackleChance, BaseTackleChance-float64(-diff)*BreakthroughPerFW)
	default:
		return BaseTackleChance
	}
}

// KickoffContest races the two restart forwards. Team A's draw is taken first.
// It returns the winning team.
func KickoffContest(a, b *Player, rng Random) Team {
	scoreA := float64(a.Stats.Atk+a.Stats.Spd)/2 + uniform(rng, KickoffRollSpan)
	scoreB := float64(b.Stats.Atk+b.Stats.Spd)/2 + uniform(rng, KickoffRollSpan)
	if scoreA > scoreB {
		return a.Team
	}
	return b.Team
}

// Roll reports whether a uniform draw falls below p.
func Roll(rng Random, p float64) bool {
	return rng.Float64() < p
}

// consumeIfUsed spends an active skill that took part in a resolution.
func consumeIfUsed(p *Player, kind SkillType) bool {
	if !p.SkillActive {
		return false
	}
	if kind != "" && p.Skill.Type != kind {
		return false
	}
	p.ConsumeSkill()
	return true
}
