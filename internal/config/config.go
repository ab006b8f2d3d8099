package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/flagpole/c2/internal/contest"
)

// Ownership modes.
const (
	ModeRandom   = "random"
	ModeHardware = "hardware"
)

type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Ownership OwnershipConfig `yaml:"ownership"`
	Teams     contest.Teams   `yaml:"teams"`
	Server    ServerConfig    `yaml:"server"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Log       LogConfig       `yaml:"log"`
}

type SessionConfig struct {
	Duration time.Duration `yaml:"duration"`
	Tick     time.Duration `yaml:"tick"`
}

type OwnershipConfig struct {
	Mode         string        `yaml:"mode"`
	Probability  float64       `yaml:"probability"`
	Seed         int64         `yaml:"seed"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type ServerConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BroadcastConfig struct {
	Throttle         time.Duration `yaml:"throttle"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	MaxConns         int           `yaml:"max_conns"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Duration: 5 * time.Minute,
			Tick:     time.Second,
		},
		Ownership: OwnershipConfig{
			Mode:         ModeRandom,
			Probability:  0.25,
			PollInterval: 50 * time.Millisecond,
		},
		Teams: contest.DefaultTeams,
		Server: ServerConfig{
			Port: 8080,
			Host: "127.0.0.1",
		},
		Broadcast: BroadcastConfig{
			Throttle:         100 * time.Millisecond,
			SnapshotInterval: 5 * time.Second,
			MaxConns:         64,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", contest.ErrConfig, path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", contest.ErrConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Validate reports the first invalid setting as a contest config error.
func (c *Config) Validate() error {
	if c.Session.Duration <= 0 {
		return contest.Invalid("session.duration", "must be positive")
	}
	if c.Session.Tick <= 0 {
		return contest.Invalid("session.tick", "must be positive")
	}

	switch c.Ownership.Mode {
	case ModeRandom:
		if c.Ownership.Probability <= 0 || c.Ownership.Probability > 1 {
			return contest.Invalid("ownership.probability", "must be in (0, 1]")
		}
	case ModeHardware:
		if c.Ownership.PollInterval <= 0 {
			return contest.Invalid("ownership.poll_interval", "must be positive")
		}
	default:
		return contest.Invalid("ownership.mode", fmt.Sprintf("unknown mode %q", c.Ownership.Mode))
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return contest.Invalid("server.port", "must be in 0..65535")
	}
	if c.Broadcast.Throttle <= 0 {
		return contest.Invalid("broadcast.throttle", "must be positive")
	}
	if c.Broadcast.SnapshotInterval <= 0 {
		return contest.Invalid("broadcast.snapshot_interval", "must be positive")
	}
	if c.Broadcast.MaxConns <= 0 {
		return contest.Invalid("broadcast.max_conns", "must be positive")
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return contest.Invalid("log.level", err.Error())
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return contest.Invalid("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	return nil
}

// Addr is the status feed listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
