package match

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"

	"go.uber.org/zap"
)

// Engine runs one live match. It is not safe for concurrent use; callers that
// share an engine across goroutines (session.LiveMatch) serialize access.
type Engine struct {
	cfg    Config
	rng    Random
	logger *zap.Logger
	sink   EventSink
	phases *phaseMachine
	state  *MatchState

	// pending holds events produced by the tick in progress. They reach the
	// sink only after the tick is committed.
	pending []Event
}

// Option configures an Engine.
type Option func(*Engine)

// WithRandom sets the random source. The default is a PCG stream seeded with 1.
func WithRandom(rng Random) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithLogger sets the logger used for recovery diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithEventSink registers a receiver for event-log events.
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// NewEngine creates an idle match from cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.Normalize(),
		rng:    NewRandom(1),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.state = NewMatchState(e.cfg, e.rng)
	e.phases = newPhaseMachine(PhaseIdle)
	return e
}

// Config returns the normalized configuration of the match.
func (e *Engine) Config() Config {
	return e.cfg
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *MatchState {
	return e.state.Clone()
}

// Phase returns the current phase.
func (e *Engine) Phase() Phase {
	return e.state.Phase
}

// Running reports whether Advance moves the match.
func (e *Engine) Running() bool {
	return e.state.Running
}

// Start kicks off an idle match or resumes a stopped one. Starting a finished
// match resets it first.
func (e *Engine) Start() {
	if e.state.Phase == PhaseFullTime {
		e.Reset()
	}
	if e.state.Phase != PhaseIdle {
		e.state.Running = true
		return
	}

	next := e.state.Clone()
	next.Running = true
	next.Turn = 0
	next.AttackingTeam = TeamA
	next.AddLog(LogInfo, fmt.Sprintf("Kick-off! %s vs %s, first to the ball takes it.",
		next.Formations[TeamA], next.Formations[TeamB]))
	e.emit(EventStartMatch)
	e.emit(EventStartHalf, "1")
	e.emit(EventStartTurn, "1")
	e.transition(next, PhaseKickoffContest)
	e.commit(next)
}

// Stop pauses the match. The state is kept.
func (e *Engine) Stop() {
	e.state.Running = false
}

// Reset replaces the match with a fresh one built from the same config. The
// random stream continues.
func (e *Engine) Reset() {
	e.state = NewMatchState(e.cfg, e.rng)
	e.phases.reset(PhaseIdle)
	e.pending = nil
}

// Advance steps a running match n times. It stops early at full time and
// returns the number of ticks performed.
func (e *Engine) Advance(n int) int {
	done := 0
	for ; done < n && e.state.Running; done++ {
		if !e.Step() {
			break
		}
	}
	return done
}

// Step performs exactly one tick, regardless of Running. It returns false
// when the match is idle or over.
func (e *Engine) Step() bool {
	if e.state.Phase == PhaseIdle || e.state.Phase == PhaseFullTime {
		return false
	}
	next := e.state.Clone()
	next.MatchTime++
	next.PhaseTimer++
	e.accrueRage(next)

	switch next.Phase {
	case PhaseKickoffContest:
		e.kickoff(next)
	case PhaseDFBuildup:
		e.buildup(next)
	case PhaseDFPassing:
		e.passing(next)
	case PhaseFWAttacking:
		e.attacking(next)
	case PhaseDuel:
		e.duel(next)
	case PhaseFWBreakthrough:
		e.breakthrough(next)
	case PhaseShooting:
		e.shooting(next)
	case PhaseSave:
		e.save(next)
	case PhaseGoalCelebration:
		e.celebration(next)
	case PhaseResetToCenter:
		e.resetToCenter(next)
	}

	if next.Phase == PhaseFullTime {
		next.Running = false
	}
	e.commit(next)
	return true
}

func (e *Engine) commit(next *MatchState) {
	e.state = next
	events := e.pending
	e.pending = nil
	if e.sink == nil {
		return
	}
	for _, ev := range events {
		e.sink(ev)
	}
}

func (e *Engine) emit(t EventType, params ...string) {
	e.pending = append(e.pending, Event{Type: t, Params: params})
}

// transition moves s to next through the phase machine. A move the table
// does not allow is replaced by recovery.
func (e *Engine) transition(s *MatchState, next Phase) {
	if err := e.phases.move(context.Background(), next); err != nil {
		e.logger.Warn("illegal phase transition",
			zap.String("from", string(s.Phase)),
			zap.String("to", string(next)),
			zap.Error(err),
		)
		e.recover(s, "illegal transition")
		return
	}
	s.setPhase(next)
}

// recover hands the ball to the defender nearest the current holder, or the
// nearest attacking-side defender when nobody holds it, and restarts the
// buildup.
func (e *Engine) recover(s *MatchState, reason string) {
	holder := s.BallHolder()
	team := s.AttackingTeam
	from := s.Ball.Pos
	if holder != nil {
		team = holder.Team
		from = holder.Pos
	}
	df := nearest(from, s.TeamPlayers(team, RoleDF), "")
	e.logger.Debug("phase recovery",
		zap.String("phase", string(s.Phase)),
		zap.String("reason", reason),
		zap.Stringer("team", team),
	)
	if df == nil {
		// Formations are normalized, so this only happens on a corrupted state.
		s.ClearBall(Vec{X: PitchWidth / 2, Y: PitchHeight / 2})
	} else {
		if holder != nil && holder.ID != df.ID {
			e.emit(EventPassBall, holder.ID, df.ID)
		} else if holder == nil {
			e.emit(EventWonKickoff, df.ID)
		}
		s.GiveBall(df.ID)
	}
	s.AttackingTeam = team
	s.ShotBonus = 0
	s.Encountered = nil
	s.DuelDefenderID = ""
	e.phases.reset(PhaseDFBuildup)
	s.setPhase(PhaseDFBuildup)
}

func (e *Engine) accrueRage(s *MatchState) {
	for i := range s.Players {
		p := &s.Players[i]
		wasActive := p.SkillActive
		p.AddRage(RagePerTick)
		if p.SkillActive && !wasActive {
			s.AddLog(LogSkill, fmt.Sprintf("%s %s is charged: %s ready!", p.Skill.Emoji, p.Name, p.Skill.Name))
			e.emit(EventIncrementRage, p.ID, formatMeter(RagePerTick, p.Rage))
		}
	}
}

// spend consumes p's skill if it took part in a resolution.
func (e *Engine) spend(s *MatchState, p *Player, kind SkillType) {
	before := p.Rage
	if !consumeIfUsed(p, kind) {
		return
	}
	s.AddLog(LogSkill, fmt.Sprintf("%s %s unleashes %s!", p.Skill.Emoji, p.Name, p.Skill.Name))
	e.emit(EventIncrementRage, p.ID, formatMeter(-before, p.Rage))
}

func formatMeter(delta, current float64) string {
	return strconv.FormatFloat(delta, 'f', 1, 64) + "|" + strconv.FormatFloat(current, 'f', 1, 64)
}

func (e *Engine) pass(s *MatchState, from, to *Player) {
	s.AddLog(LogPass, fmt.Sprintf("%s passes to %s.", from.Name, to.Name))
	e.emit(EventPassBall, from.ID, to.ID)
	s.GiveBall(to.ID)
}

// turnover hands the ball to winner after a defensive stop and flips the
// attacking side.
func (e *Engine) turnover(s *MatchState, loser, winner *Player) {
	e.emit(EventLostBall, loser.ID, winner.ID)
	s.GiveBall(winner.ID)
	s.AttackingTeam = winner.Team
	s.ShotBonus = 0
	s.Encountered = nil
	for i := range s.Players {
		s.Players[i].Dashing = false
	}
}

// endTurn counts a finished turn. It reports true when the turn limit ended
// the match.
func (e *Engine) endTurn(s *MatchState) bool {
	s.Turn++
	e.emit(EventEndTurn, strconv.Itoa(s.Turn))
	if s.Turn < s.MaxTurns {
		e.emit(EventStartTurn, strconv.Itoa(s.Turn+1))
		return false
	}
	s.AddLog(LogInfo, fmt.Sprintf("Full time! Team A %d - %d Team B.", s.Score.A, s.Score.B))
	e.emit(EventEndHalf, "1")
	e.emit(EventEndMatch)
	e.transition(s, PhaseFullTime)
	return true
}

// restartForward is the forward of team t who contests kickoffs.
func restartForward(s *MatchState, t Team) *Player {
	return s.Player(PlayerID(t, RoleFW, RestartIndex(s.Formations[t])))
}

// carrier returns the holder if it is a player of the attacking side with
// role r, nil otherwise.
func carrier(s *MatchState, r Role) *Player {
	h := s.BallHolder()
	if h == nil || h.Team != s.AttackingTeam || h.Role != r {
		return nil
	}
	return h
}

func (e *Engine) kickoff(s *MatchState) {
	a, b := restartForward(s, TeamA), restartForward(s, TeamB)
	if a == nil || b == nil {
		e.recover(s, "kickoff contestant missing")
		return
	}
	center := Vec{X: PitchWidth / 2, Y: PitchHeight / 2}
	s.Ball.Pos = center
	for _, p := range []*Player{a, b} {
		p.Pos = MoveTowards(p.Pos, center, MoveCap(BaseSpeed, p.Stats.Spd, 60))
	}
	e.reposition(s, a.ID, b.ID)

	reached := a.Pos.Dist(center) < KickoffReachRadius || b.Pos.Dist(center) < KickoffReachRadius
	if !reached && s.PhaseTimer <= KickoffTimeout {
		return
	}

	winner := a
	if KickoffContest(a, b, e.rng) == TeamB {
		winner = b
	}
	s.AddLog(LogAction, fmt.Sprintf("%s (Team %s) wins the kickoff!", winner.Name, winner.Team))
	e.emit(EventWonKickoff, winner.ID)
	s.GiveBall(winner.ID)
	s.AttackingTeam = winner.Team

	df := nearest(winner.Pos, s.TeamPlayers(winner.Team, RoleDF), "")
	if df == nil {
		e.recover(s, "no defender to receive kickoff")
		return
	}
	e.pass(s, winner, df)
	e.transition(s, PhaseDFBuildup)
}

func (e *Engine) buildup(s *MatchState) {
	h := carrier(s, RoleDF)
	if h == nil {
		e.recover(s, "buildup without defender in possession")
		return
	}
	target := Vec{X: h.Pos.X, Y: MidlineY + attackDir(h.Team)*20}
	h.Pos = MoveTowards(h.Pos, target, MoveCap(BaseSpeed, h.Stats.Spd, 80))
	s.Ball.Pos = h.Pos
	e.reposition(s)

	ready := false
	for _, fw := range s.TeamPlayers(h.Team, RoleFW) {
		if (h.Team == TeamA && fw.Pos.Y < PitchHeight*0.4) || (h.Team == TeamB && fw.Pos.Y > PitchHeight*0.6) {
			ready = true
			break
		}
	}
	nearMid := math.Abs(h.Pos.Y-MidlineY) < BuildupPassWindow
	if (nearMid && ready) || s.PhaseTimer > BuildupTimeout {
		e.transition(s, PhaseDFPassing)
	}
}

func (e *Engine) passing(s *MatchState) {
	h := carrier(s, RoleDF)
	if h == nil {
		e.recover(s, "pass without defender in possession")
		return
	}
	forwards := s.TeamPlayers(h.Team, RoleFW)
	i := pick(e.rng, len(forwards))
	if i < 0 {
		e.recover(s, "no forward to pass to")
		return
	}
	target := forwards[i]

	if Roll(e.rng, InterceptionChance) {
		thieves := s.TeamPlayers(h.Team.Opponent(), RoleFW)
		if j := pick(e.rng, len(thieves)); j >= 0 {
			thief := thieves[j]
			s.AddLog(LogAction, fmt.Sprintf("%s intercepts the pass meant for %s!", thief.Name, target.Name))
			e.turnover(s, h, thief)
			if e.endTurn(s) {
				return
			}
			if df := nearest(thief.Pos, s.TeamPlayers(thief.Team, RoleDF), ""); df != nil {
				e.pass(s, thief, df)
			}
			e.transition(s, PhaseDFBuildup)
			return
		}
	}

	e.pass(s, h, target)
	s.ShotBonus = 0
	s.Encountered = map[string]bool{}
	e.transition(s, PhaseFWAttacking)
}

func (e *Engine) attacking(s *MatchState) {
	h := carrier(s, RoleFW)
	if h == nil {
		e.recover(s, "attack without forward in possession")
		return
	}
	goal := Vec{X: PitchWidth / 2, Y: GoalY(h.Team)}
	h.Pos = MoveTowards(h.Pos, goal, MoveCap(BaseSpeed, h.Stats.Spd, 60))
	s.Ball.Pos = h.Pos
	e.reposition(s)

	if InScoringZone(h.Pos, h.Team, 0) {
		e.transition(s, PhaseShooting)
		return
	}

	defenders := s.TeamPlayers(h.Team.Opponent(), RoleDF)
	slices.SortStableFunc(defenders, func(a, b *Player) int {
		return cmp.Compare(h.Pos.Dist(a.Pos), h.Pos.Dist(b.Pos))
	})
	for _, d := range defenders {
		if s.Encountered[d.ID] || h.Pos.Dist(d.Pos) >= TackleDistance {
			continue
		}
		e.contact(s, h, d, len(defenders))
		return
	}

	if s.PhaseTimer > AttackTimeout {
		s.AddLog(LogAction, fmt.Sprintf("%s is running out of time and shoots from distance!", h.Name))
		e.transition(s, PhaseShooting)
	}
}

// contact resolves a carrier meeting a defender: tackle, pass or duel.
func (e *Engine) contact(s *MatchState, h, d *Player, defenderCount int) {
	forwards := s.TeamPlayers(h.Team, RoleFW)
	if Roll(e.rng, TackleChance(defenderCount, len(forwards))) {
		s.AddLog(LogDuel, fmt.Sprintf("%s tackles %s and wins the ball!", d.Name, h.Name))
		e.turnover(s, h, d)
		if e.endTurn(s) {
			return
		}
		e.transition(s, PhaseDFBuildup)
		return
	}

	mates := slices.DeleteFunc(forwards, func(p *Player) bool { return p.ID == h.ID })
	if len(mates) > 0 && Roll(e.rng, PassAttemptChance) {
		mate := mates[pick(e.rng, len(mates))]
		if Roll(e.rng, ForwardPassChance) {
			e.pass(s, h, mate)
			s.ShotBonus += GoalBonusAfterPass
			if s.Encountered == nil {
				s.Encountered = map[string]bool{}
			}
			s.Encountered[d.ID] = true
			return
		}
		s.AddLog(LogAction, fmt.Sprintf("%s cuts out the pass from %s to %s!", d.Name, h.Name, mate.Name))
		e.turnover(s, h, d)
		if e.endTurn(s) {
			return
		}
		e.transition(s, PhaseDFBuildup)
		return
	}

	s.AddLog(LogDuel, fmt.Sprintf("%s takes on %s!", h.Name, d.Name))
	s.DuelDefenderID = d.ID
	e.transition(s, PhaseDuel)
}

func (e *Engine) duel(s *MatchState) {
	h := carrier(s, RoleFW)
	if h == nil {
		e.recover(s, "duel without forward in possession")
		return
	}
	d := duelDefender(s, h)
	s.DuelDefenderID = ""
	if d == nil {
		e.transition(s, PhaseFWBreakthrough)
		return
	}

	res := Duel(h, d, e.rng)
	e.spend(s, h, SkillAttack)
	e.spend(s, d, SkillDefense)
	if !res.AttackerWins {
		s.AddLog(LogDuel, fmt.Sprintf("%s stops %s (%.0f vs %.0f)!", d.Name, h.Name, res.DefenderScore, res.AttackerScore))
		e.emit(EventDuelFailed, h.ID, d.ID)
		e.turnover(s, h, d)
		if e.endTurn(s) {
			return
		}
		e.transition(s, PhaseDFBuildup)
		return
	}

	s.AddLog(LogDuel, fmt.Sprintf("%s beats %s (%.0f vs %.0f)!", h.Name, d.Name, res.AttackerScore, res.DefenderScore))
	e.emit(EventDuelSuccess, h.ID, d.ID)
	if s.Encountered == nil {
		s.Encountered = map[string]bool{}
	}
	s.Encountered[d.ID] = true
	h.Dashing = true
	h.Pos = clampToPitch(Vec{X: h.Pos.X, Y: h.Pos.Y + attackDir(h.Team)*DashSpeed*DashTicks}, FieldMargin)
	s.Ball.Pos = h.Pos
	e.transition(s, PhaseFWBreakthrough)
}

// duelDefender is the defender met in contact, or the nearest defender not
// yet beaten when the contact defender is gone.
func duelDefender(s *MatchState, h *Player) *Player {
	if d := s.Player(s.DuelDefenderID); d != nil && d.Team != h.Team && d.Role == RoleDF && !s.Encountered[d.ID] {
		return d
	}
	candidates := slices.DeleteFunc(s.TeamPlayers(h.Team.Opponent(), RoleDF), func(p *Player) bool {
		return s.Encountered[p.ID]
	})
	return nearest(h.Pos, candidates, "")
}

func (e *Engine) breakthrough(s *MatchState) {
	h := carrier(s, RoleFW)
	if h == nil {
		e.recover(s, "breakthrough without forward in possession")
		return
	}
	goal := Vec{X: PitchWidth / 2, Y: GoalY(h.Team)}
	h.Pos = MoveTowards(h.Pos, goal, MoveCap(FastSpeed, h.Stats.Spd, 50))
	h.Dashing = s.PhaseTimer <= DashTicks
	s.Ball.Pos = h.Pos
	e.reposition(s)

	if InScoringZone(h.Pos, h.Team, 20) || s.PhaseTimer > BreakthroughTimeout {
		e.transition(s, PhaseShooting)
	}
}

func (e *Engine) shooting(s *MatchState) {
	h := s.BallHolder()
	if h == nil || h.Team != s.AttackingTeam {
		e.recover(s, "shot without attacking holder")
		return
	}
	gk := s.Goalkeeper(h.Team.Opponent())
	if gk == nil {
		e.recover(s, "no goalkeeper to face the shot")
		return
	}

	res := Shot(h, gk, s.ShotBonus, e.rng)
	e.spend(s, h, SkillAttack)
	e.spend(s, gk, "")
	s.ShotBonus = 0
	s.Encountered = nil
	h.Dashing = false
	s.AddLog(LogAction, fmt.Sprintf("%s shoots!", h.Name))

	if res.Goal {
		s.Score.add(h.Team)
		scorer := h.Team
		s.LastScoringTeam = &scorer
		s.AddLog(LogGoal, fmt.Sprintf("GOAL! %s scores for Team %s! %d - %d", h.Name, h.Team, s.Score.A, s.Score.B))
		e.emit(EventShotGoal, h.ID, gk.ID)
		s.ClearBall(Vec{X: PitchWidth / 2, Y: GoalY(h.Team)})
		if e.endTurn(s) {
			return
		}
		e.transition(s, PhaseGoalCelebration)
		return
	}

	s.AddLog(LogAction, fmt.Sprintf("%s saves the shot from %s!", gk.Name, h.Name))
	e.emit(EventShotFailed, h.ID, gk.ID)
	s.GiveBall(gk.ID)
	if e.endTurn(s) {
		return
	}
	e.transition(s, PhaseSave)
}

func (e *Engine) save(s *MatchState) {
	gk := s.BallHolder()
	if gk == nil || gk.Role != RoleGK {
		e.recover(s, "save without goalkeeper in possession")
		return
	}
	e.reposition(s)
	if s.PhaseTimer <= SaveHoldTicks {
		return
	}
	df := nearest(gk.Pos, s.TeamPlayers(gk.Team, RoleDF), "")
	if df == nil {
		e.recover(s, "no defender to receive the goal kick")
		return
	}
	e.pass(s, gk, df)
	s.AttackingTeam = gk.Team
	e.transition(s, PhaseDFBuildup)
}

func (e *Engine) celebration(s *MatchState) {
	e.reposition(s)
	if s.PhaseTimer <= CelebrationTicks {
		return
	}
	conceding := s.AttackingTeam.Opponent()
	if s.LastScoringTeam != nil {
		conceding = s.LastScoringTeam.Opponent()
	}
	fw := restartForward(s, conceding)
	if fw == nil {
		e.recover(s, "no restart forward")
		return
	}
	s.GiveBall(fw.ID)
	s.AttackingTeam = conceding
	e.emit(EventWonKickoff, fw.ID)
	e.transition(s, PhaseResetToCenter)
}

func (e *Engine) resetToCenter(s *MatchState) {
	fw := carrier(s, RoleFW)
	if fw == nil {
		e.recover(s, "restart without forward in possession")
		return
	}
	center := Vec{X: PitchWidth / 2, Y: PitchHeight / 2}
	settled := true
	for i := range s.Players {
		p := &s.Players[i]
		p.Dashing = false
		target := p.Base
		if p.ID == fw.ID {
			target = center
		}
		if p.Pos.Dist(target) > SettleRadius {
			settled = false
		}
		p.Pos = MoveTowards(p.Pos, target, FastSpeed)
	}
	s.Ball.Pos = fw.Pos

	if !settled && s.PhaseTimer <= ResetTimeout {
		return
	}
	df := nearest(fw.Pos, s.TeamPlayers(fw.Team, RoleDF), "")
	if df == nil {
		e.recover(s, "no defender to receive the restart")
		return
	}
	s.AddLog(LogInfo, fmt.Sprintf("Play resumes. Team %s restarts.", fw.Team))
	e.pass(s, fw, df)
	e.transition(s, PhaseDFBuildup)
}

// reposition moves every player without the ball toward its heuristic
// target. Players listed in skip are left alone.
func (e *Engine) reposition(s *MatchState, skip ...string) {
	holder := s.BallHolder()
	defenderTargets := [2]map[string]Vec{
		DefenderTargets(s, TeamA),
		DefenderTargets(s, TeamB),
	}
	for i := range s.Players {
		p := &s.Players[i]
		if p.HasBall || slices.Contains(skip, p.ID) {
			continue
		}
		divisor := 100.0
		var target Vec
		switch p.Role {
		case RoleGK:
			target = Vec{X: clampFloat(s.Ball.Pos.X, PitchWidth/2-60, PitchWidth/2+60), Y: p.Base.Y}
		case RoleFW:
			target = ForwardTarget(p, s.Ball.Pos, holder, s.MatchTime)
		default:
			if holder != nil && holder.Team == p.Team && holder.Role == RoleFW {
				target = SupportTarget(p)
			} else {
				target = defenderTargets[p.Team][p.ID]
				if holder != nil && holder.Team != p.Team {
					divisor = 80
				}
			}
		}
		p.Pos = MoveTowards(p.Pos, target, MoveCap(BaseSpeed, p.Stats.Spd, divisor))
	}
}
