package match

import "maps"

// LogKind tags narrative log entries.
type LogKind string

const (
	LogInfo   LogKind = "info"
	LogAction LogKind = "action"
	LogGoal   LogKind = "goal"
	LogSkill  LogKind = "skill"
	LogDuel   LogKind = "duel"
	LogPass   LogKind = "pass"
)

// LogEntry is one line of the narrative log.
type LogEntry struct {
	Seq     int     `json:"seq"`
	Time    int     `json:"time"`
	Message string  `json:"message"`
	Kind    LogKind `json:"kind"`
}

// Score holds goals per team.
type Score struct {
	A int `json:"a"`
	B int `json:"b"`
}

// For returns the tally of a team.
func (s Score) For(t Team) int {
	if t == TeamB {
		return s.B
	}
	return s.A
}

func (s *Score) add(t Team) {
	if t == TeamB {
		s.B++
		return
	}
	s.A++
}

// Marking caches which opposing forward each defender marks. It is rebuilt
// whenever the opposing forward count or the excluded ball holder it was
// computed for changes.
type Marking struct {
	ForwardCount int               `json:"forwardCount"`
	Excluded     string            `json:"excluded,omitempty"`
	Assignments  map[string]string `json:"assignments"`
}

// MatchState is the whole observable state of a live match.
type MatchState struct {
	Phase           Phase           `json:"phase"`
	Players         []Player        `json:"players"`
	Ball            Ball            `json:"ball"`
	Score           Score           `json:"score"`
	Log             []LogEntry      `json:"log"`
	AttackingTeam   Team            `json:"attackingTeam"`
	PhaseTimer      int             `json:"phaseTimer"`
	MatchTime       int             `json:"matchTime"`
	Turn            int             `json:"turn"`
	MaxTurns        int             `json:"maxTurns"`
	LastScoringTeam *Team           `json:"lastScoringTeam,omitempty"`
	ShotBonus       float64         `json:"shotBonus"`
	Encountered     map[string]bool `json:"encountered,omitempty"`
	DuelDefenderID  string          `json:"duelDefenderId,omitempty"`
	Marking         [2]Marking      `json:"marking"`
	Formations      [2]Formation    `json:"formations"`
	Running         bool            `json:"running"`
	logSeq          int
}

// Clone returns a deep copy that shares nothing with s.
func (s *MatchState) Clone() *MatchState {
	cp := *s
	cp.Players = append([]Player(nil), s.Players...)
	cp.Log = append([]LogEntry(nil), s.Log...)
	cp.Encountered = maps.Clone(s.Encountered)
	for i := range s.Marking {
		cp.Marking[i].Assignments = maps.Clone(s.Marking[i].Assignments)
	}
	if s.LastScoringTeam != nil {
		t := *s.LastScoringTeam
		cp.LastScoringTeam = &t
	}
	return &cp
}

// Player returns the player with id, or nil.
func (s *MatchState) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// BallHolder returns the player flagged with the ball, or nil.
func (s *MatchState) BallHolder() *Player {
	for i := range s.Players {
		if s.Players[i].HasBall {
			return &s.Players[i]
		}
	}
	return nil
}

// TeamPlayers returns pointers to the players of team t with role r.
// An empty role matches every role.
func (s *MatchState) TeamPlayers(t Team, r Role) []*Player {
	out := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		p := &s.Players[i]
		if p.Team == t && (r == "" || p.Role == r) {
			out = append(out, p)
		}
	}
	return out
}

// Goalkeeper returns the goalkeeper of team t, or nil.
func (s *MatchState) Goalkeeper(t Team) *Player {
	gks := s.TeamPlayers(t, RoleGK)
	if len(gks) == 0 {
		return nil
	}
	return gks[0]
}

// GiveBall hands possession to id. An empty or unknown id leaves the ball loose.
func (s *MatchState) GiveBall(id string) {
	s.Ball.OwnerID = ""
	for i := range s.Players {
		p := &s.Players[i]
		p.HasBall = p.ID == id
		if p.HasBall {
			s.Ball.OwnerID = id
			s.Ball.Pos = p.Pos
		}
	}
}

// ClearBall leaves the ball loose at pos.
func (s *MatchState) ClearBall(pos Vec) {
	s.GiveBall("")
	s.Ball.Pos = pos
}

// AddLog pushes an entry at the head of the narrative log, dropping the oldest
// entry beyond LogCapacity.
func (s *MatchState) AddLog(kind LogKind, message string) {
	s.logSeq++
	entry := LogEntry{Seq: s.logSeq, Time: s.MatchTime, Message: message, Kind: kind}
	if len(s.Log) >= LogCapacity {
		s.Log = s.Log[:LogCapacity-1]
	}
	s.Log = append([]LogEntry{entry}, s.Log...)
}

func (s *MatchState) setPhase(p Phase) {
	s.Phase = p
	s.PhaseTimer = 0
}

func nearest(from Vec, candidates []*Player, exclude string) *Player {
	var best *Player
	bestDist := 0.0
	for _, c := range candidates {
		if c.ID == exclude {
			continue
		}
		d := from.Dist(c.Pos)
		if best == nil || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
