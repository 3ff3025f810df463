package replay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/petstriker/matchsim/internal/match"
)

// Event is one parsed line of an event log
type Event struct {
	Type   match.EventType `json:"type"`
	Params []string        `json:"params"`
	Raw    string          `json:"raw"`
	Line   int             `json:"line"`
}

// Param returns the i-th parameter or "" when absent
func (e Event) Param(i int) string {
	if i < 0 || i >= len(e.Params) {
		return ""
	}
	return e.Params[i]
}

// Timing classifies how long an event holds the replay before the next one
type Timing int

const (
	// TimingInstant events change meters or counters only and are batched
	TimingInstant Timing = iota
	// TimingPositional events move the ball and need a settle delay
	TimingPositional
	// TimingGoal is the celebration after a goal
	TimingGoal
	// TimingKeeperReturn is a goalkeeper gaining the ball while everyone
	// returns to formation
	TimingKeeperReturn
)

func (t Timing) String() string {
	switch t {
	case TimingInstant:
		return "instant"
	case TimingPositional:
		return "positional"
	case TimingGoal:
		return "goal"
	case TimingKeeperReturn:
		return "keeper_return"
	default:
		return "unknown"
	}
}

// Timing returns the timing category of the event
func (e Event) Timing() Timing {
	switch e.Type {
	case match.EventWonKickoff, match.EventPassBall, match.EventLostBall,
		match.EventDuelSuccess, match.EventDuelFailed:
		return TimingPositional
	case match.EventShotGoal:
		return TimingGoal
	case match.EventShotFailed:
		return TimingKeeperReturn
	default:
		return TimingInstant
	}
}

// ChangesPossession reports whether the event moves the ball
func (e Event) ChangesPossession() bool {
	switch e.Type {
	case match.EventWonKickoff, match.EventPassBall, match.EventLostBall,
		match.EventShotGoal, match.EventShotFailed,
		match.EventDuelSuccess, match.EventDuelFailed:
		return true
	default:
		return false
	}
}

var knownEvents = func() map[match.EventType]bool {
	m := make(map[match.EventType]bool, len(match.EventTypes))
	for _, t := range match.EventTypes {
		m[t] = true
	}
	return m
}()

// IsKnown reports whether t belongs to the event-log vocabulary
func IsKnown(t match.EventType) bool {
	return knownEvents[t]
}

// PlayerRef is a decoded player id
type PlayerRef struct {
	Team  match.Team
	Role  match.Role
	Index int
}

// ID renders the reference back into the log grammar
func (r PlayerRef) ID() string {
	return match.PlayerID(r.Team, r.Role, r.Index)
}

var playerIDPattern = regexp.MustCompile(`^(T[12])-([GDF])(\d*)$`)

// ParsePlayerID decodes T{1|2}-{G|D|F}{index}. The goalkeeper has index 0
func ParsePlayerID(id string) (PlayerRef, error) {
	m := playerIDPattern.FindStringSubmatch(id)
	if m == nil {
		return PlayerRef{}, fmt.Errorf("invalid player id %q", id)
	}
	ref := PlayerRef{Team: match.TeamA}
	if m[1] == "T2" {
		ref.Team = match.TeamB
	}
	switch m[2] {
	case "G":
		ref.Role = match.RoleGK
	case "D":
		ref.Role = match.RoleDF
	default:
		ref.Role = match.RoleFW
	}
	if m[3] != "" {
		idx, err := strconv.Atoi(m[3])
		if err != nil {
			return PlayerRef{}, fmt.Errorf("invalid player index in %q: %w", id, err)
		}
		ref.Index = idx
	}
	return ref, nil
}

// ParseMeter decodes a stamina or rage parameter "<delta>|<current>"
func ParseMeter(v string) (delta, current float64, err error) {
	d, c, ok := strings.Cut(v, "|")
	if !ok {
		return 0, 0, fmt.Errorf("invalid meter %q: missing separator", v)
	}
	if delta, err = strconv.ParseFloat(d, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid meter delta %q: %w", v, err)
	}
	if current, err = strconv.ParseFloat(c, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid meter value %q: %w", v, err)
	}
	return delta, current, nil
}

// FallbackFormation is used for formation tokens that are not a preset
var FallbackFormation = match.Formation42

// ParseFormationToken decodes "42" as four defenders and two forwards.
// Anything else, including non-preset splits such as "99", yields
// FallbackFormation
func ParseFormationToken(tok string) match.Formation {
	tok = strings.TrimSpace(tok)
	if len(tok) != 2 || tok[0] < '0' || tok[0] > '9' || tok[1] < '0' || tok[1] > '9' {
		return FallbackFormation
	}
	f := match.Formation{Defenders: int(tok[0] - '0'), Forwards: int(tok[1] - '0')}
	if !f.IsPreset() {
		return FallbackFormation
	}
	return f
}

// FormatFormationToken is the inverse of ParseFormationToken
func FormatFormationToken(f match.Formation) string {
	return strconv.Itoa(f.Defenders) + strconv.Itoa(f.Forwards)
}
