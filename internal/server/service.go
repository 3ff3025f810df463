package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/petstriker/matchsim/internal/batch"
	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/session"
)

// matchServer implements MatchServiceServer on top of the session manager
type matchServer struct {
	sessions *session.Manager
	batch    config.BatchConfig
	logger   *zap.Logger
}

// NewMatchServer creates the gRPC control service
func NewMatchServer(cfg *config.Config, sessions *session.Manager, logger *zap.Logger) *matchServer {
	return &matchServer{
		sessions: sessions,
		batch:    cfg.Batch,
		logger:   logger,
	}
}

var _ MatchServiceServer = (*matchServer)(nil)

type matchView struct {
	MatchID     string            `json:"matchId"`
	Seed        string            `json:"seed,omitempty"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	Subscribers int               `json:"subscribers"`
	State       *match.MatchState `json:"state"`
	EventLog    string            `json:"eventLog,omitempty"`
}

func newMatchView(lm *session.LiveMatch, state *match.MatchState) matchView {
	return matchView{
		MatchID:     lm.ID,
		Seed:        formatSeed(lm.Seed),
		CreatedAt:   lm.CreateTime.UTC().Format(time.RFC3339Nano),
		Subscribers: lm.Subscribers(),
		State:       state,
	}
}

// CreateMatch registers a live match. Formations default to the engine
// section of the configuration.
func (s *matchServer) CreateMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	defaults := s.sessions.DefaultMatchConfig()

	cfg, err := matchConfigFrom(f, defaults)
	if err != nil {
		return nil, toStatus(err)
	}
	seed, err := f.Seed("seed")
	if err != nil {
		return nil, toStatus(err)
	}

	lm, err := s.sessions.CreateMatch(cfg, seed)
	if err != nil {
		return nil, toStatus(err)
	}

	state := lm.Snapshot()
	if f.Bool("autoStart") {
		state = lm.Start()
	}
	return s.respond(newMatchView(lm, state))
}

func matchConfigFrom(f fields, defaults match.Config) (match.Config, error) {
	var (
		cfg = defaults
		err error
	)
	if cfg.FormationA, err = f.Formation("formationA", defaults.FormationA); err != nil {
		return cfg, err
	}
	if cfg.FormationB, err = f.Formation("formationB", defaults.FormationB); err != nil {
		return cfg, err
	}
	maxTurns, err := f.Int("maxTurns")
	if err != nil {
		return cfg, err
	}
	if maxTurns > 0 {
		cfg.MaxTurns = maxTurns
	}
	if cfg.Overrides, err = f.Overrides("overrides"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ControlMatch applies start, stop, step or reset to a live match
func (s *matchServer) ControlMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	lm, err := s.sessions.GetMatch(f.String("matchId"))
	if err != nil {
		return nil, toStatus(err)
	}

	var state *match.MatchState
	switch cmd := strings.ToLower(f.String("command")); cmd {
	case "start":
		state = lm.Start()
	case "stop":
		state = lm.Stop()
	case "reset":
		state = lm.Reset()
	case "step":
		ticks, err := f.Int("ticks")
		if err != nil {
			return nil, toStatus(err)
		}
		if state, err = lm.Step(ticks); err != nil {
			return nil, toStatus(err)
		}
	default:
		return nil, toStatus(invalidf("unknown match command %q", cmd))
	}

	s.logger.Debug("match command applied",
		zap.String("match_id", lm.ID),
		zap.String("command", f.String("command")),
		zap.String("phase", string(state.Phase)),
	)
	return s.respond(newMatchView(lm, state))
}

// GetMatch returns the current snapshot, and the recorded event log when
// includeLog is set
func (s *matchServer) GetMatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	lm, err := s.sessions.GetMatch(f.String("matchId"))
	if err != nil {
		return nil, toStatus(err)
	}
	view := newMatchView(lm, lm.Snapshot())
	if f.Bool("includeLog") {
		view.EventLog = lm.EventLog()
	}
	return s.respond(view)
}

type batchView struct {
	batch.Result
	Seed          string  `json:"seed"`
	FormationA    string  `json:"formationA"`
	FormationB    string  `json:"formationB"`
	TurnsPerMatch int     `json:"turnsPerMatch"`
	WinRateA      float64 `json:"winRateA"`
	WinRateB      float64 `json:"winRateB"`
	DrawRate      float64 `json:"drawRate"`
	GoalsPerA     float64 `json:"goalsPerMatchA"`
	GoalsPerB     float64 `json:"goalsPerMatchB"`
}

// RunBatch runs a Monte-Carlo batch to completion or until the call is
// cancelled
func (s *matchServer) RunBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	cfg := s.batch.BatchDefaults()

	var err error
	if cfg.FormationA, err = f.Formation("formationA", match.Formation33); err != nil {
		return nil, toStatus(err)
	}
	if cfg.FormationB, err = f.Formation("formationB", match.Formation33); err != nil {
		return nil, toStatus(err)
	}
	for key, dst := range map[string]*int{
		"numMatches":    &cfg.NumMatches,
		"turnsPerMatch": &cfg.TurnsPerMatch,
		"workers":       &cfg.Workers,
	} {
		n, err := f.Int(key)
		if err != nil {
			return nil, toStatus(err)
		}
		if n != 0 {
			*dst = n
		}
	}
	seed, err := f.Seed("seed")
	if err != nil {
		return nil, toStatus(err)
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if cfg.Overrides, err = f.Overrides("overrides"); err != nil {
		return nil, toStatus(err)
	}

	sim := batch.NewSimulator(cfg, s.logger)
	res, err := sim.Run(ctx, nil)
	if err != nil {
		return nil, toStatus(err)
	}

	run := sim.Config()
	return s.respond(batchView{
		Result:        res,
		Seed:          formatSeed(run.Seed),
		FormationA:    run.FormationA.String(),
		FormationB:    run.FormationB.String(),
		TurnsPerMatch: run.TurnsPerMatch,
		WinRateA:      res.WinRate(match.TeamA),
		WinRateB:      res.WinRate(match.TeamB),
		DrawRate:      res.DrawRate(),
		GoalsPerA:     res.GoalsPerMatch(match.TeamA),
		GoalsPerB:     res.GoalsPerMatch(match.TeamB),
	})
}

type replayView struct {
	ReplayID   string               `json:"replayId"`
	FormationA string               `json:"formationA"`
	FormationB string               `json:"formationB"`
	Skipped    int                  `json:"skipped"`
	Frame      *session.ReplayFrame `json:"frame"`
}

// LoadReplay opens a replay session from log text, or from the recording of
// a live match when matchId is given
func (s *matchServer) LoadReplay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)

	var (
		rs  *session.ReplaySession
		err error
	)
	if id := f.String("matchId"); id != "" {
		rs, err = s.sessions.ReplayMatch(id)
	} else {
		text, ok := f["log"].(string)
		if !ok || strings.TrimSpace(text) == "" {
			return nil, toStatus(invalidf("log or matchId is required"))
		}
		rs, err = s.sessions.LoadReplay(strings.NewReader(text))
	}
	if err != nil {
		return nil, toStatus(err)
	}

	pm := rs.Match()
	return s.respond(replayView{
		ReplayID:   rs.ID,
		FormationA: pm.FormationA.String(),
		FormationB: pm.FormationB.String(),
		Skipped:    pm.Skipped,
		Frame:      rs.Frame(),
	})
}

// StepReplay applies step, play, pause, reset or back to a replay session
func (s *matchServer) StepReplay(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := requestFields(req)
	rs, err := s.sessions.GetReplay(f.String("replayId"))
	if err != nil {
		return nil, toStatus(err)
	}

	cmd := session.ReplayCommand(strings.ToLower(f.String("command")))
	if cmd == "" {
		cmd = session.ReplayStep
	}
	frame, err := rs.Control(cmd)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.respond(frame)
}

func (s *matchServer) respond(v interface{}) (*structpb.Struct, error) {
	out, err := structFromValue(v)
	if err != nil {
		s.logger.Error("failed to build response", zap.Error(err))
		return nil, toStatus(err)
	}
	return out, nil
}

func formatSeed(seed uint64) string {
	return strconv.FormatUint(seed, 10)
}
