package match

// Pitch geometry. Team A defends the bottom goal line (y = PitchHeight).
const (
	PitchWidth   = 400.0
	PitchHeight  = 600.0
	MidlineY     = PitchHeight / 2
	GoalLineA    = PitchHeight - 10 // goal team A defends
	GoalLineB    = 10.0             // goal team B defends
	PenaltyDepth = 100.0            // scoring zone depth from the goal line
	FieldMargin  = 30.0
)

// Movement.
const (
	BaseSpeed             = 1.5
	FastSpeed             = 2.5
	DashSpeed             = 8.0
	DashTicks             = 5
	IdleWobble            = 8.0
	BallInfluence         = 0.15
	CommitBlend           = 0.7 // share of the holder position in a committing defender's target
	MinDefenderSeparation = 40.0
	TackleDistance        = 30.0
	KickoffReachRadius    = 20.0
	SettleRadius          = 10.0
	ForwardSpread         = 20.0
)

// Resolution.
const (
	DuelRollSpan       = 40.0
	DuelSkillBonus     = 30.0
	ShotRollSpan       = 50.0
	SaveRollSpan       = 30.0
	ShotSkillBonus     = 50.0
	KickoffRollSpan    = 50.0
	BaseTackleChance   = 0.5
	TacklePerExtraDF   = 0.13
	BreakthroughPerFW  = 0.10
	MaxTackleChance    = 0.85
	MinTackleChance    = 0.25
	InterceptionChance = 0.12
	PassAttemptChance  = 0.4
	ForwardPassChance  = 0.8
	GoalBonusAfterPass = 0.05
	RagePerTick        = 0.2
	RagePerTurn        = 10.0
	DefaultMaxRage     = 100.0
	DefaultMaxStamina  = 100.0
	DefaultMaxHP       = 100.0
	MinStat            = 40
	MaxStat            = 99
)

// Phase timeouts, in ticks since phase entry.
const (
	KickoffTimeout      = 90
	BuildupTimeout      = 120
	BuildupPassWindow   = 60.0 // distance to the midline that allows the forward pass
	AttackTimeout       = 200
	BreakthroughTimeout = 40
	SaveHoldTicks       = 40
	CelebrationTicks    = 60
	ResetTimeout        = 80
)

// LogCapacity bounds the narrative log.
const LogCapacity = 50

// DefaultMaxTurns applies when a live match is created without a turn limit.
const DefaultMaxTurns = 20

// TickSeconds is the nominal duration of a tick. It drives the idle wobble clock.
const TickSeconds = 0.05
