// Package config loads runtime settings: built-in defaults, then an optional
// YAML file, then a .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is everything cmd/holdco needs to start.
type Config struct {
	Seed       int64  `yaml:"seed"`
	Rounds     int    `yaml:"rounds"`
	Difficulty string `yaml:"difficulty"`
	HoldcoName string `yaml:"holdco_name"`

	DBPath   string `yaml:"db"`
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Seconds between simulated phases in serve mode.
	TickSeconds int `yaml:"tick_seconds"`
	SaveEvery   int `yaml:"save_every"`

	AnthropicKey string `yaml:"-"`
	AdminKey     string `yaml:"-"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Seed:        1,
		Rounds:      20,
		Difficulty:  "normal",
		HoldcoName:  "Holdco",
		DBPath:      "data/holdco.db",
		Port:        "8080",
		LogLevel:    "info",
		TickSeconds: 2,
		SaveEvery:   4,
	}
}

// Load builds a Config. A missing file at path is not an error; an empty
// path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env never overrides variables already set in the environment.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HOLDCO_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("HOLDCO_SEED: %w", err)
		}
		c.Seed = n
	}
	if v := os.Getenv("HOLDCO_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HOLDCO_ROUNDS: %w", err)
		}
		c.Rounds = n
	}
	if v := os.Getenv("HOLDCO_DIFFICULTY"); v != "" {
		c.Difficulty = strings.ToLower(v)
	}
	if v := os.Getenv("HOLDCO_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("HOLDCO_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("HOLDCO_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	c.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.AdminKey = os.Getenv("HOLDCO_ADMIN_KEY")
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	if c.Rounds != 10 && c.Rounds != 20 {
		return fmt.Errorf("rounds must be 10 or 20, got %d", c.Rounds)
	}
	switch c.Difficulty {
	case "easy", "normal":
	default:
		return fmt.Errorf("unknown difficulty %q", c.Difficulty)
	}
	if c.TickSeconds <= 0 {
		return fmt.Errorf("tick_seconds must be positive")
	}
	return nil
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
