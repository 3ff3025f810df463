package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
)

// Phase is a state of the match state machine.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseKickoffContest  Phase = "kickoff_contest"
	PhaseDFBuildup       Phase = "df_buildup"
	PhaseDFPassing       Phase = "df_passing"
	PhaseFWAttacking     Phase = "fw_attacking"
	PhaseDuel            Phase = "duel"
	PhaseFWBreakthrough  Phase = "fw_breakthrough"
	PhaseShooting        Phase = "shooting"
	PhaseSave            Phase = "save"
	PhaseGoalCelebration Phase = "goal_celebration"
	PhaseResetToCenter   Phase = "reset_to_center"
	PhaseFullTime        Phase = "full_time"
)

// Phases lists every phase in cycle order.
var Phases = []Phase{
	PhaseIdle,
	PhaseKickoffContest,
	PhaseDFBuildup,
	PhaseDFPassing,
	PhaseFWAttacking,
	PhaseDuel,
	PhaseFWBreakthrough,
	PhaseShooting,
	PhaseSave,
	PhaseGoalCelebration,
	PhaseResetToCenter,
	PhaseFullTime,
}

// Timeout returns the tick bound after which a phase is forced to resolve.
// Zero means the phase resolves on its first tick; -1 means it never ends on
// its own (idle, full_time).
func (p Phase) Timeout() int {
	switch p {
	case PhaseKickoffContest:
		return KickoffTimeout
	case PhaseDFBuildup:
		return BuildupTimeout
	case PhaseFWAttacking:
		return AttackTimeout
	case PhaseFWBreakthrough:
		return BreakthroughTimeout
	case PhaseSave:
		return SaveHoldTicks
	case PhaseGoalCelebration:
		return CelebrationTicks
	case PhaseResetToCenter:
		return ResetTimeout
	case PhaseDFPassing, PhaseDuel, PhaseShooting:
		return 0
	default:
		return -1
	}
}

// transitions is the legal successor table. Every in-play phase may fall back
// to df_buildup (recovery) and to full_time (turn limit).
var transitions = map[Phase][]Phase{
	PhaseIdle:            {PhaseKickoffContest},
	PhaseKickoffContest:  {PhaseDFBuildup, PhaseFullTime},
	PhaseDFBuildup:       {PhaseDFPassing, PhaseFullTime},
	PhaseDFPassing:       {PhaseDFBuildup, PhaseFWAttacking, PhaseFullTime},
	PhaseFWAttacking:     {PhaseDFBuildup, PhaseShooting, PhaseDuel, PhaseFullTime},
	PhaseDuel:            {PhaseDFBuildup, PhaseFWBreakthrough, PhaseFullTime},
	PhaseFWBreakthrough:  {PhaseDFBuildup, PhaseShooting, PhaseFullTime},
	PhaseShooting:        {PhaseDFBuildup, PhaseGoalCelebration, PhaseSave, PhaseFullTime},
	PhaseSave:            {PhaseDFBuildup, PhaseFullTime},
	PhaseGoalCelebration: {PhaseDFBuildup, PhaseResetToCenter, PhaseFullTime},
	PhaseResetToCenter:   {PhaseDFBuildup, PhaseFullTime},
	PhaseFullTime:        {},
}

// Successors returns the legal next phases of p.
func Successors(p Phase) []Phase {
	return append([]Phase(nil), transitions[p]...)
}

func enterEvent(p Phase) string {
	return "enter_" + string(p)
}

// phaseMachine guards phase changes against the transition table.
type phaseMachine struct {
	fsm *fsm.FSM
}

func newPhaseMachine(initial Phase) *phaseMachine {
	sources := make(map[Phase][]string)
	for from, tos := range transitions {
		for _, to := range tos {
			sources[to] = append(sources[to], string(from))
		}
	}

	events := make(fsm.Events, 0, len(sources))
	for to, src := range sources {
		events = append(events, fsm.EventDesc{Name: enterEvent(to), Src: src, Dst: string(to)})
	}
	return &phaseMachine{fsm: fsm.NewFSM(string(initial), events, fsm.Callbacks{})}
}

// move validates and records the transition to next.
func (m *phaseMachine) move(ctx context.Context, next Phase) error {
	if Phase(m.fsm.Current()) == next {
		return nil
	}
	if err := m.fsm.Event(ctx, enterEvent(next)); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return nil
		}
		return fmt.Errorf("phase %s -> %s: %w", m.fsm.Current(), next, err)
	}
	return nil
}

func (m *phaseMachine) reset(p Phase) {
	m.fsm.SetState(string(p))
}

func (m *phaseMachine) current() Phase {
	return Phase(m.fsm.Current())
}
