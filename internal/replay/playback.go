package replay

import (
	"errors"
	"time"
)

var (
	// ErrSettling is returned when a step arrives before the previous event
	// has settled
	ErrSettling = errors.New("replay: previous event still settling")
	// ErrFinished is returned when every event has been applied
	ErrFinished = errors.New("replay: no more events")
	// ErrNoHistory is returned by Back at the start of the log
	ErrNoHistory = errors.New("replay: already at the first event")
)

// Delays maps each timing category to its settle delay
type Delays struct {
	Instant      time.Duration `mapstructure:"instant"`
	Positional   time.Duration `mapstructure:"positional"`
	Goal         time.Duration `mapstructure:"goal"`
	KeeperReturn time.Duration `mapstructure:"keeper_return"`
}

// DefaultDelays are the settle delays used when none are configured
func DefaultDelays() Delays {
	return Delays{
		Instant:      0,
		Positional:   500 * time.Millisecond,
		Goal:         2 * time.Second,
		KeeperReturn: 3 * time.Second,
	}
}

// For returns the delay of a timing category
func (d Delays) For(t Timing) time.Duration {
	switch t {
	case TimingPositional:
		return d.Positional
	case TimingGoal:
		return d.Goal
	case TimingKeeperReturn:
		return d.KeeperReturn
	default:
		return d.Instant
	}
}

type checkpoint struct {
	state State
	index int
}

// Playback steps through a parsed match one event at a time. A step is
// refused while the previous event's delay window is open. Playback is not
// safe for concurrent use.
type Playback struct {
	match   *ParsedMatch
	delays  Delays
	state   State
	index   int
	history []checkpoint
	playing bool
	readyAt time.Time
}

// NewPlayback creates a playback positioned before the first event
func NewPlayback(pm *ParsedMatch, delays Delays) *Playback {
	p := &Playback{match: pm, delays: delays}
	p.Reset()
	return p
}

// Match returns the parsed log being played
func (p *Playback) Match() *ParsedMatch {
	return p.match
}

// State returns the current replay state
func (p *Playback) State() State {
	return p.state.clone()
}

// Index returns the number of events applied so far
func (p *Playback) Index() int {
	return p.index
}

// Len returns the number of events in the log
func (p *Playback) Len() int {
	return len(p.match.Events)
}

// Done reports whether the log is exhausted or the match has ended
func (p *Playback) Done() bool {
	return p.index >= len(p.match.Events) || p.state.Ended
}

// Playing reports whether Tick auto-advances
func (p *Playback) Playing() bool {
	return p.playing
}

// ReadyAt returns when the next step will be accepted
func (p *Playback) ReadyAt() time.Time {
	return p.readyAt
}

// Play enables auto-advance
func (p *Playback) Play() {
	if !p.Done() {
		p.playing = true
	}
}

// Pause disables auto-advance. An open delay window stays open
func (p *Playback) Pause() {
	p.playing = false
}

// Reset rewinds to the initial formation state
func (p *Playback) Reset() {
	p.state = NewState(p.match)
	p.index = 0
	p.history = nil
	p.playing = false
	p.readyAt = time.Time{}
}

// Step applies the next event at now. A run of consecutive instant events is
// applied together. It returns the applied events.
func (p *Playback) Step(now time.Time) ([]Event, error) {
	if p.Done() {
		p.playing = false
		return nil, ErrFinished
	}
	if now.Before(p.readyAt) {
		return nil, ErrSettling
	}

	p.history = append(p.history, checkpoint{state: p.state, index: p.index})

	events := p.match.Events
	first := events[p.index]
	applied := []Event{first}
	p.state = Apply(p.state, first)
	p.index++
	if first.Timing() == TimingInstant {
		for p.index < len(events) && events[p.index].Timing() == TimingInstant && !p.state.Ended {
			p.state = Apply(p.state, events[p.index])
			applied = append(applied, events[p.index])
			p.index++
		}
	}

	p.readyAt = now.Add(p.delays.For(first.Timing()))
	if p.Done() {
		p.playing = false
	}
	return applied, nil
}

// Tick advances a playing replay when its delay window has closed. It is a
// no-op while paused or settling.
func (p *Playback) Tick(now time.Time) ([]Event, error) {
	if !p.playing {
		return nil, nil
	}
	events, err := p.Step(now)
	if errors.Is(err, ErrSettling) || errors.Is(err, ErrFinished) {
		return nil, nil
	}
	return events, err
}

// Back undoes the last step and closes the delay window
func (p *Playback) Back() error {
	if len(p.history) == 0 {
		return ErrNoHistory
	}
	last := p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	p.state = last.state
	p.index = last.index
	p.readyAt = time.Time{}
	return nil
}
