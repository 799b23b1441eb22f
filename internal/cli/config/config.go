// Package config loads the codequest CLI settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8080"
	DefaultTimeout   = 90 * time.Second
	DefaultStatePath = "configs/cli_state.json"
	DefaultLanguage  = "c++"
)

// Config holds CLI configuration. Submit and run block until grading finishes,
// so Timeout must cover a full judge round trip.
type Config struct {
	BaseURL   string        `yaml:"baseURL"`
	Timeout   time.Duration `yaml:"timeout"`
	StatePath string        `yaml:"tokenStatePath"`
	// Language is used by submit and run when no lang= is given.
	Language string `yaml:"defaultLanguage"`
	// SourceDir resolves relative file= paths.
	SourceDir  string `yaml:"sourceDir"`
	PrettyJSON *bool  `yaml:"prettyJSON"`
}

// Load reads path and applies defaults. A missing file yields the defaults.
// ${VAR} references are expanded from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config file failed: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields a flag override may also set.
func (c Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid baseURL %q", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// ResolveSource maps a file= argument to a path, relative to SourceDir.
func (c Config) ResolveSource(path string) string {
	if path == "" || c.SourceDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.SourceDir, path)
}

func applyDefaults(cfg *Config) {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.StatePath == "" {
		cfg.StatePath = DefaultStatePath
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
}
