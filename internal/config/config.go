// Package config defines process configuration and how it is loaded.
package config

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/okian/vqs/internal/domain/ranking"
	"github.com/okian/vqs/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format" validate:"omitempty,oneof=text json"`

	// MetricsAddr, when set, serves /metrics and /healthz, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`

	// DBPath points at a SQLite candidate store.
	DBPath string `koanf:"db_path" validate:"excluded_with=CandidatesFile"`

	// CandidatesFile points at a YAML or JSON candidate file.
	CandidatesFile string `koanf:"candidates_file"`

	// DefaultLimit is used when the caller gives no limit.
	DefaultLimit int `koanf:"default_limit" validate:"gte=1,ltefield=MaxLimit"`

	// MaxLimit caps the caller supplied limit.
	MaxLimit int `koanf:"max_limit" validate:"gte=1"`

	// RetrievalLimit bounds how many candidates are fetched per keyword.
	RetrievalLimit int `koanf:"retrieval_limit" validate:"gte=1"`

	// WorkerCount sets the number of keyword workers; 0 means one per CPU.
	WorkerCount int `koanf:"worker_count" validate:"gte=0"`

	// QueueSize bounds the in-memory keyword job queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	Scoring Scoring `koanf:"scoring"`
}

// Scoring holds the scoring heuristics and how ties are ranked.
type Scoring struct {
	scoring.Config `koanf:",squash"`

	// TieBreak orders equal scores: views, recency or none.
	TieBreak string `koanf:"tie_break" validate:"omitempty,oneof=views recency none"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		DefaultLimit:   100,
		MaxLimit:       500,
		RetrievalLimit: 1000,
		WorkerCount:    runtime.NumCPU(),
		QueueSize:      1024,
		Scoring: Scoring{
			Config:   scoring.DefaultConfig(),
			TieBreak: string(ranking.TieBreakViews),
		},
	}
}

// TieBreak returns the parsed tie-break strategy.
func (c *Config) TieBreak() ranking.TieBreak {
	tb, err := ranking.ParseTieBreak(c.Scoring.TieBreak)
	if err != nil {
		return ranking.TieBreakViews
	}
	return tb
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the scoring heuristics.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Scoring.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
