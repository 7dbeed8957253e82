package app

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultTarget is the kernel target used when none is configured.
const DefaultTarget = "cpu"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPath   string // hcl file or directory holding the graph
	KernelsPath string // hcl kernel manifests, optional

	Target        string
	NoFusion      bool
	MaxIterations int
	PrintFormat   string

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("ModelPath is a required configuration field and cannot be empty")
	}
	if cfg.Target == "" {
		cfg.Target = DefaultTarget
	}
	if cfg.MaxIterations < 0 {
		return nil, fmt.Errorf("MaxIterations must not be negative, got %d", cfg.MaxIterations)
	}

	cfg.PrintFormat = strings.ToLower(cfg.PrintFormat)
	switch cfg.PrintFormat {
	case "":
		cfg.PrintFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid PrintFormat %q: must be 'text' or 'json'", cfg.PrintFormat)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid LogFormat %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}
