package match

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Team identifies one side of the match.
type Team int

const (
	TeamA Team = iota
	TeamB
)

func (t Team) String() string {
	switch t {
	case TeamA:
		return "A"
	case TeamB:
		return "B"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the team as "A" or "B" in snapshots.
func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts "A", "B", "T1" or "T2".
func (t *Team) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "A", "T1":
		*t = TeamA
	case "B", "T2":
		*t = TeamB
	default:
		return fmt.Errorf("unknown team %q", string(b))
	}
	return nil
}

// Code returns the event-log team code (T1 or T2).
func (t Team) Code() string {
	if t == TeamB {
		return "T2"
	}
	return "T1"
}

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == TeamA {
		return TeamB
	}
	return TeamA
}

// Role is a player's position on the pitch.
type Role string

const (
	RoleGK Role = "GK"
	RoleDF Role = "DF"
	RoleFW Role = "FW"
)

// Code returns the event-log role letter.
func (r Role) Code() string {
	switch r {
	case RoleGK:
		return "G"
	case RoleDF:
		return "D"
	default:
		return "F"
	}
}

// Stats are the three player attributes used by every resolution formula.
type Stats struct {
	Atk int `json:"atk"`
	Def int `json:"def"`
	Spd int `json:"spd"`
}

// Clamp bounds every stat to [MinStat, MaxStat].
func (s Stats) Clamp() Stats {
	return Stats{
		Atk: clampInt(s.Atk, MinStat, MaxStat),
		Def: clampInt(s.Def, MinStat, MaxStat),
		Spd: clampInt(s.Spd, MinStat, MaxStat),
	}
}

// RandomStats draws each stat uniformly from [MinStat, MaxStat].
func RandomStats(rng Random) Stats {
	span := MaxStat - MinStat + 1
	return Stats{
		Atk: MinStat + rng.IntN(span),
		Def: MinStat + rng.IntN(span),
		Spd: MinStat + rng.IntN(span),
	}
}

// Vec is a point on the pitch.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dist returns the euclidean distance between two points.
func (v Vec) Dist(o Vec) float64 {
	return math.Hypot(o.X-v.X, o.Y-v.Y)
}

// SkillType selects which resolution a skill boosts.
type SkillType string

const (
	SkillAttack  SkillType = "attack"
	SkillDefense SkillType = "defense"
	SkillGK      SkillType = "gk"
)

// Skill is a player's rage-triggered bonus.
type Skill struct {
	Name   string    `json:"name"`
	Emoji  string    `json:"emoji"`
	Type   SkillType `json:"type"`
	Effect string    `json:"effect"`
}

var attackSkills = []Skill{
	{Name: "Fireball Shot", Emoji: "🔥", Type: SkillAttack, Effect: "Increases goal chance by 50%"},
	{Name: "Thunder Strike", Emoji: "⚡", Type: SkillAttack, Effect: "Guaranteed bypass one defender"},
	{Name: "Speed Burst", Emoji: "💨", Type: SkillAttack, Effect: "Double speed for 3 seconds"},
	{Name: "Power Shot", Emoji: "💥", Type: SkillAttack, Effect: "Unstoppable shot"},
}

var defenseSkills = []Skill{
	{Name: "Iron Wall", Emoji: "🛡️", Type: SkillDefense, Effect: "Guaranteed tackle success"},
	{Name: "Freeze Zone", Emoji: "❄️", Type: SkillDefense, Effect: "Slow down attacker"},
	{Name: "Mirror Block", Emoji: "🪞", Type: SkillDefense, Effect: "Reflect attack power"},
	{Name: "Shield Bash", Emoji: "🔰", Type: SkillDefense, Effect: "Stun attacker briefly"},
}

var gkSkills = []Skill{
	{Name: "Super Save", Emoji: "🧤", Type: SkillGK, Effect: "Guaranteed save"},
	{Name: "Time Freeze", Emoji: "⏱️", Type: SkillGK, Effect: "Stop time briefly"},
}

var petNames = []string{
	"Fluffy", "Shadow", "Luna", "Max", "Bella", "Charlie", "Milo", "Coco",
	"Rocky", "Buddy", "Duke", "Bear", "Tucker", "Jack", "Leo", "Zeus",
	"Toby", "Oscar", "Finn", "Murphy", "Rusty", "Scout", "Rex", "Bruno",
	"Spike", "Flash", "Storm", "Blaze", "Thunder", "Rocket", "Ace", "Dash",
	"Hunter", "Tank", "Bolt", "Ghost", "Ninja", "Fang", "Wolf", "Tiger",
}

// SkillForRole draws a skill from the role's catalogue.
func SkillForRole(role Role, rng Random) Skill {
	var pool []Skill
	switch role {
	case RoleGK:
		pool = gkSkills
	case RoleFW:
		pool = attackSkills
	default:
		pool = defenseSkills
	}
	return pool[rng.IntN(len(pool))]
}

// SkillTypeForRole is the skill type every player of a role carries.
func SkillTypeForRole(role Role) SkillType {
	switch role {
	case RoleGK:
		return SkillGK
	case RoleFW:
		return SkillAttack
	default:
		return SkillDefense
	}
}

// Player is one participant on the pitch.
type Player struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Role        Role    `json:"role"`
	Team        Team    `json:"team"`
	Index       int     `json:"index"`
	Stats       Stats   `json:"stats"`
	Pos         Vec     `json:"pos"`
	Base        Vec     `json:"base"`
	HP          float64 `json:"hp"`
	MaxHP       float64 `json:"maxHp"`
	Stamina     float64 `json:"stamina"`
	MaxStamina  float64 `json:"maxStamina"`
	Rage        float64 `json:"rage"`
	MaxRage     float64 `json:"maxRage"`
	HasBall     bool    `json:"hasBall"`
	Skill       Skill   `json:"skill"`
	SkillActive bool    `json:"skillActive"`
	Dashing     bool    `json:"dashing"`
}

// PlayerID builds the log-grammar id: T1-G, T1-D2, T2-F3.
func PlayerID(team Team, role Role, index int) string {
	if role == RoleGK {
		return team.Code() + "-G"
	}
	return team.Code() + "-" + role.Code() + strconv.Itoa(index)
}

// AddRage accrues rage, clamped to [0, MaxRage], and activates the skill at max.
func (p *Player) AddRage(amount float64) {
	p.Rage = clampFloat(p.Rage+amount, 0, p.MaxRage)
	p.SkillActive = p.Rage >= p.MaxRage
}

// ConsumeSkill resets rage once an active skill has been spent.
func (p *Player) ConsumeSkill() {
	p.Rage = 0
	p.SkillActive = false
}

// Ball is the match ball. OwnerID is empty when loose.
type Ball struct {
	Pos     Vec    `json:"pos"`
	OwnerID string `json:"ownerId,omitempty"`
}

// Formation is the defender/forward split; the goalkeeper is implicit.
type Formation struct {
	Defenders int `json:"defenders"`
	Forwards  int `json:"forwards"`
}

// Preset formations accepted on the configuration surface.
var (
	Formation24 = Formation{Defenders: 2, Forwards: 4}
	Formation33 = Formation{Defenders: 3, Forwards: 3}
	Formation42 = Formation{Defenders: 4, Forwards: 2}
)

func (f Formation) String() string {
	return fmt.Sprintf("%d-%d", f.Defenders, f.Forwards)
}

// Normalize coerces anything other than a preset to 3-3.
func (f Formation) Normalize() Formation {
	if !f.IsPreset() {
		return Formation33
	}
	return f
}

// ParseFormation accepts "3-3" or "33". Only the presets are valid.
func ParseFormation(s string) (Formation, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(digits) != 2 || digits[0] < '0' || digits[0] > '9' || digits[1] < '0' || digits[1] > '9' {
		return Formation{}, fmt.Errorf("invalid formation %q", s)
	}
	f := Formation{Defenders: int(digits[0] - '0'), Forwards: int(digits[1] - '0')}
	if !f.IsPreset() {
		return Formation{}, fmt.Errorf("unsupported formation %q: want 2-4, 3-3 or 4-2", s)
	}
	return f, nil
}

// IsPreset reports whether f is one of 2-4, 3-3, 4-2.
func (f Formation) IsPreset() bool {
	return f == Formation24 || f == Formation33 || f == Formation42
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
