// Package config loads prepquiz settings from defaults, an optional YAML
// file, and PREPQUIZ_* environment variables. Command-line flags are
// applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/prepquiz/internal/api"
	"github.com/abhisek/prepquiz/internal/llm"
	"github.com/abhisek/prepquiz/internal/quiz"
)

// Question sources.
const (
	SourceBackend = "backend"
	SourceLLM     = "llm"
)

// Config holds all prepquiz configuration.
type Config struct {
	API  APIConfig  `yaml:"api"`
	User UserConfig `yaml:"user"`

	// DB is the SQLite file path. Empty selects store.DefaultDBPath.
	DB string `yaml:"db"`

	// Source selects where questions come from: "backend" or "llm".
	Source string `yaml:"source"`

	// Grading selects the answer comparison: "exact" or "normalized".
	Grading string `yaml:"grading"`

	Log LogConfig  `yaml:"log"`
	LLM llm.Config `yaml:"llm"`
}

// APIConfig points at the placement-training backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// UserConfig preselects the learner so the login screen can be skipped.
type UserConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// File receives logs while the TUI owns the terminal.
	// Empty selects DefaultLogPath.
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Default returns a Config with every field at its default.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: api.DefaultBaseURL,
			Timeout: 30 * time.Second,
		},
		Source:  SourceBackend,
		Grading: "exact",
		Log:     LogConfig{Level: "info"},
		LLM:     llm.DefaultConfig(),
	}
}

// Load builds a Config from defaults, the YAML file at path, and the
// environment. An empty path reads DefaultPath and tolerates its absence;
// an explicit path must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// No config file is fine.
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func parse(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.BaseURL = getEnv("PREPQUIZ_API_URL", c.API.BaseURL)
	c.API.Timeout = getEnvAsDuration("PREPQUIZ_API_TIMEOUT", c.API.Timeout)
	c.User.ID = getEnv("PREPQUIZ_USER", c.User.ID)
	c.User.Name = getEnv("PREPQUIZ_USER_NAME", c.User.Name)
	c.DB = getEnv("PREPQUIZ_DB", c.DB)
	c.Source = getEnv("PREPQUIZ_SOURCE", c.Source)
	c.Grading = getEnv("PREPQUIZ_GRADING", c.Grading)
	c.Log.File = getEnv("PREPQUIZ_LOG_FILE", c.Log.File)
	c.Log.Level = getEnv("PREPQUIZ_LOG_LEVEL", c.Log.Level)
	c.LLM.ApplyEnv()
	c.LLM.Retry.MaxAttempts = getEnvAsInt("PREPQUIZ_LLM_MAX_ATTEMPTS", c.LLM.Retry.MaxAttempts)
}

// Validate checks the fields that do not depend on the selected source.
// LLM credentials are checked only when the LLM source is built.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("invalid api.timeout: %s", c.API.Timeout)
	}
	switch c.Source {
	case SourceBackend, SourceLLM:
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", c.Source, SourceBackend, SourceLLM)
	}
	if _, err := quiz.GraderFor(c.Grading); err != nil {
		return err
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// Grader returns the configured answer grader.
func (c Config) Grader() quiz.Grader {
	g, err := quiz.GraderFor(c.Grading)
	if err != nil {
		return quiz.ExactMatch
	}
	return g
}

// Dir returns the prepquiz config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prepquiz")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".prepquiz")
	}
	return filepath.Join(home, ".config", "prepquiz")
}

// DefaultPath returns the config file read when --config is not given.
// PREPQUIZ_CONFIG overrides it.
func DefaultPath() string {
	if p := os.Getenv("PREPQUIZ_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultLogPath returns the log file used while the TUI runs.
func DefaultLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "prepquiz", "prepquiz.log")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "prepquiz.log")
	}
	return filepath.Join(home, ".local", "state", "prepquiz", "prepquiz.log")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
