// Package config resolves mapsim settings from the config file, MAPSIM_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config holds the resolved simulator settings.
type Config struct {
	// LogLevel is a zerolog level name.
	LogLevel string
	// DefaultDuration is used by animate steps that leave duration out.
	DefaultDuration time.Duration
	// Debounce delays a watched re-run after the scenario file changes.
	Debounce time.Duration
	// NoColor disables colored console output.
	NoColor bool
	// Verbose adds stack traces to reported panics.
	Verbose bool
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		LogLevel:        "info",
		DefaultDuration: 300 * time.Millisecond,
		Debounce:        100 * time.Millisecond,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log-level: %w", err)
	}
	if c.DefaultDuration < 0 {
		return fmt.Errorf("default-duration must not be negative")
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive")
	}
	return nil
}

// Logger builds a console logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: c.NoColor}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// ApplyEnvConfig applies MAPSIM_* environment variables, skipping settings
// whose flag was set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	return applyEnv(cfg, changed, os.Getenv)
}

func applyEnv(cfg *Config, changed map[string]bool, getenv func(string) string) error {
	s := newSetter(changed)

	s.setString("log-level", getenv("MAPSIM_LOG_LEVEL"), &cfg.LogLevel)
	if err := s.setDuration("default-duration", getenv("MAPSIM_DEFAULT_DURATION"), &cfg.DefaultDuration); err != nil {
		return err
	}
	if err := s.setDuration("debounce", getenv("MAPSIM_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}
	if err := s.setBoolFromString("no-color", getenv("MAPSIM_NO_COLOR"), &cfg.NoColor); err != nil {
		return err
	}
	return s.setBoolFromString("verbose", getenv("MAPSIM_VERBOSE"), &cfg.Verbose)
}

// setter applies values only when the matching flag was not set explicitly.
type setter struct {
	changed map[string]bool
}

func newSetter(changed map[string]bool) *setter {
	return &setter{changed: changed}
}

func (s *setter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *setter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *setter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

func (s *setter) setBoolFromString(flag, value string, dst *bool) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = b
	return nil
}
