package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/petstriker/matchsim/internal/replay"
)

// ReplayCommand is a playback control verb
type ReplayCommand string

const (
	ReplayStep  ReplayCommand = "step"
	ReplayPlay  ReplayCommand = "play"
	ReplayPause ReplayCommand = "pause"
	ReplayReset ReplayCommand = "reset"
	ReplayBack  ReplayCommand = "back"
)

// ReplayFrame is what a replay session reports after each change
type ReplayFrame struct {
	ReplayID string         `json:"replayId"`
	Index    int            `json:"index"`
	Total    int            `json:"total"`
	Playing  bool           `json:"playing"`
	Done     bool           `json:"done"`
	State    replay.State   `json:"state"`
	Applied  []replay.Event `json:"applied,omitempty"`
}

// ReplaySession owns one playback and advances it on a ticker while playing
type ReplaySession struct {
	ID         string
	CreateTime time.Time

	playback *replay.Playback
	hub      *hub[*ReplayFrame]
	now      func() time.Time
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	logger   *zap.Logger
}

func newReplaySession(id string, pm *replay.ParsedMatch, delays replay.Delays, interval time.Duration, buffer int, now func() time.Time, logger *zap.Logger) *ReplaySession {
	return &ReplaySession{
		ID:         id,
		CreateTime: now(),
		playback:   replay.NewPlayback(pm, delays),
		hub:        newHub[*ReplayFrame](buffer),
		now:        now,
		interval:   interval,
		done:       make(chan struct{}),
		logger:     logger.With(zap.String("replay_id", id)),
	}
}

func (rs *ReplaySession) run(ctx context.Context) {
	defer close(rs.done)
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rs.mu.Lock()
			applied, err := rs.playback.Tick(rs.now())
			if err != nil || len(applied) == 0 {
				rs.mu.Unlock()
				continue
			}
			rs.hub.publish(rs.frameLocked(applied))
			rs.mu.Unlock()
		}
	}
}

// Control applies a command. Step returns replay.ErrSettling while the
// previous event has not settled and replay.ErrFinished at the end of the log.
func (rs *ReplaySession) Control(cmd ReplayCommand) (*ReplayFrame, error) {
	rs.mu.Lock()
	var (
		applied []replay.Event
		err     error
	)
	switch cmd {
	case ReplayStep:
		applied, err = rs.playback.Step(rs.now())
	case ReplayPlay:
		rs.playback.Play()
	case ReplayPause:
		rs.playback.Pause()
	case ReplayReset:
		rs.playback.Reset()
	case ReplayBack:
		err = rs.playback.Back()
	default:
		err = ErrUnknownCommand
	}
	frame := rs.frameLocked(applied)
	if err == nil {
		rs.hub.publish(frame)
	}
	rs.mu.Unlock()

	if err != nil {
		return frame, err
	}
	rs.logger.Debug("replay command applied",
		zap.String("command", string(cmd)),
		zap.Int("index", frame.Index),
	)
	return frame, nil
}

// Frame returns the current replay frame
func (rs *ReplaySession) Frame() *ReplayFrame {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.frameLocked(nil)
}

// Match returns the parsed log behind the session
func (rs *ReplaySession) Match() *replay.ParsedMatch {
	return rs.playback.Match()
}

// Subscribe streams frames produced by commands and by the play ticker
func (rs *ReplaySession) Subscribe() (<-chan *ReplayFrame, func()) {
	return rs.hub.subscribe()
}

func (rs *ReplaySession) frameLocked(applied []replay.Event) *ReplayFrame {
	return &ReplayFrame{
		ReplayID: rs.ID,
		Index:    rs.playback.Index(),
		Total:    rs.playback.Len(),
		Playing:  rs.playback.Playing(),
		Done:     rs.playback.Done(),
		State:    rs.playback.State(),
		Applied:  applied,
	}
}

func (rs *ReplaySession) close() {
	if rs.cancel != nil {
		rs.cancel()
		<-rs.done
	}
	rs.hub.close()
}
