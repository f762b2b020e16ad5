package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with durations as strings.
type FileConfig struct {
	LogLevel        string `toml:"log_level"`
	DefaultDuration string `toml:"default_duration"`
	Debounce        string `toml:"debounce"`
	NoColor         *bool  `toml:"no_color"`
	Verbose         *bool  `toml:"verbose"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.mapsim/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".mapsim", "config.toml")
	}
	return ""
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ApplyFileConfig copies file settings into cfg, skipping settings whose
// flag was set explicitly.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	if err := s.setDuration("default-duration", fc.DefaultDuration, &cfg.DefaultDuration); err != nil {
		return err
	}
	if err := s.setDuration("debounce", fc.Debounce, &cfg.Debounce); err != nil {
		return err
	}
	s.setBool("no-color", fc.NoColor, &cfg.NoColor)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)
	return nil
}

// Resolve loads the config file, then applies the environment and
// validates the result. An empty path selects the default path, which may
// be missing; an explicit path must exist. changed holds the names of flags
// set on the command line.
func Resolve(cfg *Config, path string, changed map[string]bool) error {
	if path == "" {
		path = DefaultConfigPath()
	} else if !FileExists(path) {
		return fmt.Errorf("config file %s not found", path)
	}
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}
