package scoring

import (
	"math"

	"github.com/okian/vqs/internal/domain/model"
)

const maxScore = 100

// Composer folds normalized metrics into a 0-100 score.
type Composer struct {
	engagement float64
	velocity   float64
	authority  float64
	quality    float64
	steepness  float64
	center     float64
}

// NewComposer builds a composer from the scoring config.
func NewComposer(cfg Config) Composer {
	return Composer{
		engagement: cfg.EngagementWeight,
		velocity:   cfg.VelocityWeight,
		authority:  cfg.AuthorityWeight,
		quality:    cfg.QualityWeight,
		steepness:  cfg.CurveSteepness,
		center:     cfg.CurveCenter,
	}
}

// Composite returns the weighted sum of n, in [0,1] for valid weights.
func (c Composer) Composite(n model.NormalizedMetrics) float64 {
	return c.engagement*n.Engagement +
		c.velocity*n.Velocity +
		c.authority*n.Authority +
		c.quality*n.Quality
}

// Curve reshapes a composite through a logistic centred on the configured
// midpoint. It is monotonic, so ordering is preserved.
func (c Composer) Curve(raw float64) float64 {
	return 1 / (1 + math.Exp(-c.steepness*(raw-c.center)))
}

// Compose returns the final integer score for n.
func (c Composer) Compose(n model.NormalizedMetrics) int {
	score := int(math.Round(c.Curve(c.Composite(n)) * maxScore))
	switch {
	case score < 0:
		return 0
	case score > maxScore:
		return maxScore
	}
	return score
}
