package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/petstriker/matchsim/internal/batch"
	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
)

// Config is the root configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Replay  ReplayConfig  `mapstructure:"replay"`
	Session SessionConfig `mapstructure:"session"`
}

// ServerConfig holds listener settings
type ServerConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the control service
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// HTTPConfig configures the snapshot stream listener
type HTTPConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig selects log level and encoding
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EngineConfig configures live matches
type EngineConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	MaxTurns     int           `mapstructure:"max_turns"`
	FormationA   string        `mapstructure:"formation_a"`
	FormationB   string        `mapstructure:"formation_b"`
	// Seed fixes the random stream of new matches. Zero seeds each match
	// randomly.
	Seed uint64 `mapstructure:"seed"`
}

// BatchConfig holds batch defaults
type BatchConfig struct {
	NumMatches    int    `mapstructure:"num_matches"`
	TurnsPerMatch int    `mapstructure:"turns_per_match"`
	Workers       int    `mapstructure:"workers"`
	Seed          uint64 `mapstructure:"seed"`
}

// ReplayConfig holds replay settle delays
type ReplayConfig struct {
	Delays       replay.Delays `mapstructure:"delays"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// SessionConfig bounds the live registry
type SessionConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
	MaxLiveMatches   int `mapstructure:"max_live_matches"`
	MaxReplays       int `mapstructure:"max_replays"`
}

// EnvPrefix prefixes environment overrides, e.g. MATCHSIM_LOGGING_LEVEL
const EnvPrefix = "MATCHSIM"

// Load reads the configuration file at path, applies environment overrides
// and clamps the result. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.shutdown_timeout", 5*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("engine.tick_interval", 50*time.Millisecond)
	v.SetDefault("engine.max_turns", match.DefaultMaxTurns)
	v.SetDefault("engine.formation_a", "3-3")
	v.SetDefault("engine.formation_b", "3-3")
	v.SetDefault("engine.seed", 0)

	v.SetDefault("batch.num_matches", batch.DefaultMatches)
	v.SetDefault("batch.turns_per_match", batch.DefaultTurns)
	v.SetDefault("batch.workers", 0)
	v.SetDefault("batch.seed", 0)

	d := replay.DefaultDelays()
	v.SetDefault("replay.delays.instant", d.Instant)
	v.SetDefault("replay.delays.positional", d.Positional)
	v.SetDefault("replay.delays.goal", d.Goal)
	v.SetDefault("replay.delays.keeper_return", d.KeeperReturn)
	v.SetDefault("replay.tick_interval", 100*time.Millisecond)

	v.SetDefault("session.subscriber_buffer", 16)
	v.SetDefault("session.max_live_matches", 64)
	v.SetDefault("session.max_replays", 64)
}

// Normalize clamps out-of-range values to their documented bounds
func (c *Config) Normalize() {
	if c.Server.GRPC.MaxConcurrentStreams <= 0 {
		c.Server.GRPC.MaxConcurrentStreams = 100
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Logging.Level = "info"
	}
	if c.Engine.TickInterval <= 0 {
		c.Engine.TickInterval = 50 * time.Millisecond
	}
	if c.Engine.MaxTurns <= 0 {
		c.Engine.MaxTurns = match.DefaultMaxTurns
	}
	c.Batch.NumMatches = min(max(c.Batch.NumMatches, batch.MinMatches), batch.MaxMatches)
	c.Batch.TurnsPerMatch = min(max(c.Batch.TurnsPerMatch, batch.MinTurns), batch.MaxTurns)
	if c.Batch.Workers < 0 {
		c.Batch.Workers = 0
	}
	for _, d := range []*time.Duration{
		&c.Replay.Delays.Instant,
		&c.Replay.Delays.Positional,
		&c.Replay.Delays.Goal,
		&c.Replay.Delays.KeeperReturn,
	} {
		if *d < 0 {
			*d = 0
		}
	}
	if c.Replay.TickInterval <= 0 {
		c.Replay.TickInterval = 100 * time.Millisecond
	}
	if c.Session.SubscriberBuffer <= 0 {
		c.Session.SubscriberBuffer = 16
	}
	if c.Session.MaxLiveMatches <= 0 {
		c.Session.MaxLiveMatches = 64
	}
	if c.Session.MaxReplays <= 0 {
		c.Session.MaxReplays = 64
	}
}

// MatchConfig builds the live match config from the engine section. Formations
// that fail to parse fall back to 3-3.
func (e EngineConfig) MatchConfig() match.Config {
	return match.Config{
		FormationA: parseFormationOr(e.FormationA, match.Formation33),
		FormationB: parseFormationOr(e.FormationB, match.Formation33),
		MaxTurns:   e.MaxTurns,
	}
}

// BatchDefaults returns a batch config seeded from the batch section
func (b BatchConfig) BatchDefaults() batch.Config {
	return batch.Config{
		NumMatches:    b.NumMatches,
		TurnsPerMatch: b.TurnsPerMatch,
		Workers:       b.Workers,
		Seed:          b.Seed,
	}
}

func parseFormationOr(s string, fallback match.Formation) match.Formation {
	f, err := match.ParseFormation(s)
	if err != nil {
		return fallback
	}
	return f
}
