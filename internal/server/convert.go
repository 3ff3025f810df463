package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
	"github.com/petstriker/matchsim/internal/session"
)

var errInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errInvalidArgument, fmt.Sprintf(format, args...))
}

// toStatus maps domain errors onto gRPC status codes
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, errInvalidArgument), errors.Is(err, session.ErrUnknownCommand):
		code = codes.InvalidArgument
	case errors.Is(err, session.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, session.ErrCapacity):
		code = codes.ResourceExhausted
	case errors.Is(err, session.ErrNotStarted),
		errors.Is(err, session.ErrMatchOver),
		errors.Is(err, replay.ErrFinished),
		errors.Is(err, replay.ErrNoHistory):
		code = codes.FailedPrecondition
	case errors.Is(err, replay.ErrSettling):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// structFromValue converts a JSON-tagged value into a protobuf Struct
func structFromValue(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return structpb.NewStruct(payload)
}

// fields reads typed values out of a request Struct
type fields map[string]interface{}

func requestFields(in *structpb.Struct) fields {
	if in == nil {
		return fields{}
	}
	return fields(in.AsMap())
}

func (f fields) String(key string) string {
	if s, ok := f[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func (f fields) Bool(key string) bool {
	b, _ := f[key].(bool)
	return b
}

// Int accepts numbers and numeric strings. Missing keys yield 0.
func (f fields) Int(key string) (int, error) {
	switch v := f[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, invalidf("%s must be an integer", key)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, invalidf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, invalidf("%s must be an integer", key)
	}
}

// Seed accepts a non-negative number or a decimal string. Strings carry the
// full 64 bits; JSON numbers lose precision past 2^53.
func (f fields) Seed(key string) (uint64, error) {
	switch v := f[key].(type) {
	case nil:
		return 0, nil
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, invalidf("%s must be a non-negative integer", key)
		}
		return uint64(v), nil
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, invalidf("%s must be a non-negative integer", key)
		}
		return n, nil
	default:
		return 0, invalidf("%s must be a non-negative integer", key)
	}
}

// Formation parses a formation field, falling back when absent
func (f fields) Formation(key string, fallback match.Formation) (match.Formation, error) {
	s := f.String(key)
	if s == "" {
		return fallback, nil
	}
	formation, err := match.ParseFormation(s)
	if err != nil {
		return match.Formation{}, invalidf("%s: %v", key, err)
	}
	return formation, nil
}

// Overrides decodes {"A": {"FW1": {"atk": 90}}} into per-team stat
// overrides. Missing stats default to the midpoint of the stat range.
func (f fields) Overrides(key string) ([2]map[match.Slot]match.Stats, error) {
	var out [2]map[match.Slot]match.Stats
	raw, ok := f[key]
	if !ok || raw == nil {
		return out, nil
	}
	teams, ok := raw.(map[string]interface{})
	if !ok {
		return out, invalidf("%s must be an object keyed by team", key)
	}
	for teamKey, slotsRaw := range teams {
		var team match.Team
		if err := team.UnmarshalText([]byte(teamKey)); err != nil {
			return out, invalidf("%s: %v", key, err)
		}
		slots, ok := slotsRaw.(map[string]interface{})
		if !ok {
			return out, invalidf("%s.%s must be an object keyed by slot", key, teamKey)
		}
		if out[team] == nil {
			out[team] = make(map[match.Slot]match.Stats, len(slots))
		}
		for slotKey, statsRaw := range slots {
			slot, err := match.ParseSlot(slotKey)
			if err != nil {
				return out, invalidf("%s.%s: %v", key, teamKey, err)
			}
			sf, ok := statsRaw.(map[string]interface{})
			if !ok {
				return out, invalidf("%s.%s.%s must be an object", key, teamKey, slotKey)
			}
			stats, err := fields(sf).stats()
			if err != nil {
				return out, err
			}
			out[team][slot] = stats
		}
	}
	return out, nil
}

func (f fields) stats() (match.Stats, error) {
	mid := (match.MinStat + match.MaxStat) / 2
	read := func(key string) (int, error) {
		if _, ok := f[key]; !ok {
			return mid, nil
		}
		return f.Int(key)
	}
	atk, err := read("atk")
	if err != nil {
		return match.Stats{}, err
	}
	def, err := read("def")
	if err != nil {
		return match.Stats{}, err
	}
	spd, err := read("spd")
	if err != nil {
		return match.Stats{}, err
	}
	return match.Stats{Atk: atk, Def: def, Spd: spd}.Clamp(), nil
}
