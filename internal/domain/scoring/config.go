package scoring

import (
	"fmt"
	"math"
)

// Default composite weights and curve shape.
const (
	defaultEngagementWeight = 0.35
	defaultVelocityWeight   = 0.25
	defaultAuthorityWeight  = 0.25
	defaultQualityWeight    = 0.15
	defaultCurveSteepness   = 12
	defaultCurveCenter      = 0.5
	defaultConfidence       = 0.5

	weightSumTolerance = 1e-9
)

// Breakpoint maps a threshold to the multiplier applied up to it.
type Breakpoint struct {
	Threshold  float64 `koanf:"threshold" json:"threshold"`
	Multiplier float64 `koanf:"multiplier" json:"multiplier"`
}

// Table is an ordered list of breakpoints with a multiplier for values past
// the last threshold.
type Table struct {
	Steps    []Breakpoint `koanf:"steps" json:"steps"`
	Fallback float64      `koanf:"fallback" json:"fallback"`
}

// Below returns the multiplier of the first step whose threshold is strictly
// greater than x.
func (t Table) Below(x float64) float64 {
	for _, s := range t.Steps {
		if x < s.Threshold {
			return s.Multiplier
		}
	}
	return t.Fallback
}

// AtMost returns the multiplier of the first step whose threshold is greater
// than or equal to x.
func (t Table) AtMost(x float64) float64 {
	for _, s := range t.Steps {
		if x <= s.Threshold {
			return s.Multiplier
		}
	}
	return t.Fallback
}

func (t Table) validate(name string) error {
	if !positive(t.Fallback) {
		return fmt.Errorf("%w: %s fallback must be positive and finite", ErrInvalidConfig, name)
	}
	prev := math.Inf(-1)
	for i, s := range t.Steps {
		if !positive(s.Multiplier) {
			return fmt.Errorf("%w: %s step %d multiplier must be positive and finite", ErrInvalidConfig, name, i)
		}
		if !isFinite(s.Threshold) {
			return fmt.Errorf("%w: %s step %d threshold must be finite", ErrInvalidConfig, name, i)
		}
		if s.Threshold <= prev {
			return fmt.Errorf("%w: %s thresholds must be strictly increasing (step %d)", ErrInvalidConfig, name, i)
		}
		prev = s.Threshold
	}
	return nil
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func positive(x float64) bool {
	return isFinite(x) && x > 0
}

func unit(x float64) bool {
	return isFinite(x) && x >= 0 && x <= 1
}

// Config holds the tunable heuristics of the scoring engine. The defaults
// were tuned by hand and carry no ground truth.
type Config struct {
	EngagementWeight float64 `koanf:"engagement_weight" json:"engagementWeight"`
	VelocityWeight   float64 `koanf:"velocity_weight" json:"velocityWeight"`
	AuthorityWeight  float64 `koanf:"authority_weight" json:"authorityWeight"`
	QualityWeight    float64 `koanf:"quality_weight" json:"qualityWeight"`

	// ChannelSize scales engagement by subscriber count (strict upper bounds).
	ChannelSize Table `koanf:"channel_size" json:"channelSize"`
	// Recency scales velocity by age in hours (inclusive upper bounds).
	Recency Table `koanf:"recency" json:"recency"`

	CurveSteepness    float64 `koanf:"curve_steepness" json:"curveSteepness"`
	CurveCenter       float64 `koanf:"curve_center" json:"curveCenter"`
	DefaultConfidence float64 `koanf:"default_confidence" json:"defaultConfidence"`
}

// DefaultConfig returns the stock weights, tables and curve.
func DefaultConfig() Config {
	return Config{
		EngagementWeight: defaultEngagementWeight,
		VelocityWeight:   defaultVelocityWeight,
		AuthorityWeight:  defaultAuthorityWeight,
		QualityWeight:    defaultQualityWeight,
		ChannelSize: Table{
			Steps: []Breakpoint{
				{Threshold: 1_000, Multiplier: 1.5},
				{Threshold: 10_000, Multiplier: 1.3},
				{Threshold: 100_000, Multiplier: 1.1},
				{Threshold: 1_000_000, Multiplier: 1.0},
				{Threshold: 10_000_000, Multiplier: 0.9},
			},
			Fallback: 0.8,
		},
		Recency: Table{
			Steps: []Breakpoint{
				{Threshold: 24, Multiplier: 2.0},
				{Threshold: 168, Multiplier: 1.5},
				{Threshold: 720, Multiplier: 1.2},
				{Threshold: 8760, Multiplier: 0.8},
			},
			Fallback: 0.5,
		},
		CurveSteepness:    defaultCurveSteepness,
		CurveCenter:       defaultCurveCenter,
		DefaultConfidence: defaultConfidence,
	}
}

// Validate reports whether c can drive the engine.
func (c Config) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"engagement", c.EngagementWeight},
		{"velocity", c.VelocityWeight},
		{"authority", c.AuthorityWeight},
		{"quality", c.QualityWeight},
	}
	sum := 0.0
	for _, w := range weights {
		if !isFinite(w.value) || w.value < 0 {
			return fmt.Errorf("%w: %s weight must be non-negative", ErrInvalidConfig, w.name)
		}
		sum += w.value
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: weights must sum to 1.0, got %g", ErrInvalidConfig, sum)
	}
	if err := c.ChannelSize.validate("channel_size"); err != nil {
		return err
	}
	if err := c.Recency.validate("recency"); err != nil {
		return err
	}
	if !positive(c.CurveSteepness) {
		return fmt.Errorf("%w: curve_steepness must be positive and finite", ErrInvalidConfig)
	}
	if !unit(c.CurveCenter) {
		return fmt.Errorf("%w: curve_center must be within [0,1]", ErrInvalidConfig)
	}
	if !unit(c.DefaultConfidence) {
		return fmt.Errorf("%w: default_confidence must be within [0,1]", ErrInvalidConfig)
	}
	return nil
}
