package batch

import "github.com/petstriker/matchsim/internal/match"

// Result aggregates a batch. Results of sub-batches combine with Merge in
// any order.
type Result struct {
	WinsA        int `json:"winsA"`
	WinsB        int `json:"winsB"`
	Draws        int `json:"draws"`
	GoalsA       int `json:"goalsA"`
	GoalsB       int `json:"goalsB"`
	TotalMatches int `json:"totalMatches"`
}

// Merge adds two results field by field.
func (r Result) Merge(o Result) Result {
	return Result{
		WinsA:        r.WinsA + o.WinsA,
		WinsB:        r.WinsB + o.WinsB,
		Draws:        r.Draws + o.Draws,
		GoalsA:       r.GoalsA + o.GoalsA,
		GoalsB:       r.GoalsB + o.GoalsB,
		TotalMatches: r.TotalMatches + o.TotalMatches,
	}
}

// record adds one finished match.
func (r *Result) record(score match.Score) {
	r.TotalMatches++
	r.GoalsA += score.A
	r.GoalsB += score.B
	switch {
	case score.A > score.B:
		r.WinsA++
	case score.B > score.A:
		r.WinsB++
	default:
		r.Draws++
	}
}

// WinRate returns the share of matches won by t, in [0, 1].
func (r Result) WinRate(t match.Team) float64 {
	if r.TotalMatches == 0 {
		return 0
	}
	wins := r.WinsA
	if t == match.TeamB {
		wins = r.WinsB
	}
	return float64(wins) / float64(r.TotalMatches)
}

// DrawRate returns the share of drawn matches.
func (r Result) DrawRate() float64 {
	if r.TotalMatches == 0 {
		return 0
	}
	return float64(r.Draws) / float64(r.TotalMatches)
}

// GoalsPerMatch returns the average goals of t per match.
func (r Result) GoalsPerMatch(t match.Team) float64 {
	if r.TotalMatches == 0 {
		return 0
	}
	goals := r.GoalsA
	if t == match.TeamB {
		goals = r.GoalsB
	}
	return float64(goals) / float64(r.TotalMatches)
}
