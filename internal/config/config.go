// Package config loads the server settings from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultAPIAddr         = ":8080"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultIdleTimeout     = 10 * time.Minute
	defaultTurnDurationSec = 30
	defaultVotingSec       = 30
	defaultRoundsPerVoting = 2
	defaultSweepInterval   = time.Minute
	defaultTurnTick        = time.Second
)

var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

type Config struct {
	APIAddr        string   `yaml:"apiAddr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`

	// RedisAddr selects the store; empty keeps rooms in memory.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	RoomIdleTimeout   time.Duration `yaml:"roomIdleTimeout"`
	TurnDurationSec   int           `yaml:"turnDurationSec"`
	VotingDurationSec int           `yaml:"votingDurationSec"`
	RoundsPerVoting   int           `yaml:"roundsPerVoting"`
	SweepInterval     time.Duration `yaml:"sweepInterval"`
	TurnTick          time.Duration `yaml:"turnTick"`

	// WordsFile replaces the embedded word lists when set.
	WordsFile string `yaml:"wordsFile"`
}

func Default() Config {
	return Config{
		APIAddr:           defaultAPIAddr,
		AllowedOrigins:    defaultAllowedOrigins,
		LogLevel:          defaultLogLevel,
		LogFormat:         defaultLogFormat,
		RoomIdleTimeout:   defaultIdleTimeout,
		TurnDurationSec:   defaultTurnDurationSec,
		VotingDurationSec: defaultVotingSec,
		RoundsPerVoting:   defaultRoundsPerVoting,
		SweepInterval:     defaultSweepInterval,
		TurnTick:          defaultTurnTick,
	}
}

// Load starts from the defaults, applies CONFIG_FILE when set and lets
// environment variables override both.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.APIAddr = envOr("API_ADDR", cfg.APIAddr)
	cfg.AllowedOrigins = envCSV("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envOr("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envOr("LOG_FORMAT", cfg.LogFormat)
	cfg.RoomIdleTimeout = envDuration("ROOM_IDLE_TIMEOUT", cfg.RoomIdleTimeout)
	cfg.TurnDurationSec = envInt("TURN_DURATION_SEC", cfg.TurnDurationSec)
	cfg.VotingDurationSec = envInt("VOTING_DURATION_SEC", cfg.VotingDurationSec)
	cfg.RoundsPerVoting = envInt("ROUNDS_PER_VOTING", cfg.RoundsPerVoting)
	cfg.SweepInterval = envDuration("SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.TurnTick = envDuration("TURN_TICK", cfg.TurnTick)
	cfg.WordsFile = envOr("WORDS_FILE", cfg.WordsFile)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) TurnDuration() time.Duration {
	return time.Duration(c.TurnDurationSec) * time.Second
}

func (c Config) VotingWindow() time.Duration {
	return time.Duration(c.VotingDurationSec) * time.Second
}

func (c Config) validate() error {
	switch {
	case c.APIAddr == "":
		return fmt.Errorf("config: apiAddr is empty")
	case c.RoomIdleTimeout <= 0:
		return fmt.Errorf("config: roomIdleTimeout must be positive, got %s", c.RoomIdleTimeout)
	case c.TurnDurationSec <= 1:
		return fmt.Errorf("config: turnDurationSec must be greater than 1, got %d", c.TurnDurationSec)
	case c.VotingDurationSec <= 0:
		return fmt.Errorf("config: votingDurationSec must be positive, got %d", c.VotingDurationSec)
	case c.RoundsPerVoting <= 0:
		return fmt.Errorf("config: roundsPerVoting must be positive, got %d", c.RoundsPerVoting)
	case c.SweepInterval <= 0 || c.TurnTick <= 0:
		return fmt.Errorf("config: sweepInterval and turnTick must be positive")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt keeps def when the variable is unset or not a number.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid integer, using default")
		return def
	}
	return i
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Dur("default", def).Msg("invalid duration, using default")
		return def
	}
	return d
}

func envCSV(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
