package match

// scriptedRandom replays fixed draws and then repeats the fallback values.
type scriptedRandom struct {
	floats        []float64
	ints          []int
	fallbackFloat float64
	fallbackInt   int
}

func (r *scriptedRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return r.fallbackFloat
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRandom) IntN(n int) int {
	v := r.fallbackInt
	if len(r.ints) > 0 {
		v = r.ints[0]
		r.ints = r.ints[1:]
	}
	if v >= n {
		return n - 1
	}
	return v
}

// minRandom always draws the lowest value.
func minRandom() *scriptedRandom {
	return &scriptedRandom{}
}

func testPlayer(id string, team Team, role Role, stats Stats) *Player {
	return &Player{
		ID:      id,
		Team:    team,
		Role:    role,
		Stats:   stats,
		MaxRage: DefaultMaxRage,
		Skill:   Skill{Type: SkillTypeForRole(role)},
	}
}
