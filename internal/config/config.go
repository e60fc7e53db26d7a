// Package config loads scorecard.yaml.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"scorecard/internal/scoring"
)

var (
	// ErrInvalidCap is returned when an achievement cap is not positive.
	ErrInvalidCap = errors.New("achievement cap must be positive")
	// ErrInvalidStep is returned when the leverage improvement step is not positive.
	ErrInvalidStep = errors.New("leverage improvement step must be positive")
	// ErrInvalidTolerance is returned when the weight tolerance is negative.
	ErrInvalidTolerance = errors.New("weight tolerance cannot be negative")
	// ErrInvalidLogLevel is returned for an unknown logging level.
	ErrInvalidLogLevel = errors.New("invalid logging level")
)

// FileName is the config file looked up in a workspace.
const FileName = "scorecard.yaml"

// Config is the scorecard.yaml document.
type Config struct {
	// Logging level
	Logging string `yaml:"logging" default:"info"`

	Achievement struct {
		OrgCap      float64 `yaml:"org_cap" default:"200"`
		EmployeeCap float64 `yaml:"employee_cap" default:"200"`
	} `yaml:"achievement"`

	Leverage struct {
		CompositeWeight string  `yaml:"composite_weight" default:"direct"`
		ImprovementStep float64 `yaml:"improvement_step" default:"10"`
	} `yaml:"leverage"`

	Weights struct {
		Tolerance float64 `yaml:"tolerance" default:"0.01"`
	} `yaml:"weights"`
}

// Default returns a config with every default applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	return cfg, nil
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = FileName
	}

	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Logging {
	case "panic", "fatal", "error", "warn", "warning", "info", "debug", "trace":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging)
	}
	if c.Achievement.OrgCap <= 0 {
		return fmt.Errorf("%w: org_cap=%g", ErrInvalidCap, c.Achievement.OrgCap)
	}
	if c.Achievement.EmployeeCap <= 0 {
		return fmt.Errorf("%w: employee_cap=%g", ErrInvalidCap, c.Achievement.EmployeeCap)
	}
	if _, err := scoring.ParseCompositeMode(c.Leverage.CompositeWeight); err != nil {
		return err
	}
	if c.Leverage.ImprovementStep <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidStep, c.Leverage.ImprovementStep)
	}
	if c.Weights.Tolerance < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidTolerance, c.Weights.Tolerance)
	}
	return nil
}

// ScoringOptions converts the config into engine options.
func (c *Config) ScoringOptions() scoring.Options {
	mode, err := scoring.ParseCompositeMode(c.Leverage.CompositeWeight)
	if err != nil {
		mode = scoring.CompositeDirect
	}
	return scoring.Options{
		OrgCap:      c.Achievement.OrgCap,
		EmployeeCap: c.Achievement.EmployeeCap,
		Leverage: scoring.LeverageOptions{
			Mode:            mode,
			ImprovementStep: c.Leverage.ImprovementStep,
		},
	}
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
