package scoring

import (
	"math"

	"github.com/okian/vqs/internal/domain/model"
)

// flatValue is assigned when a metric carries no spread across the batch.
const flatValue = 0.5

// span is the observed range of one metric over a batch.
type span struct {
	min float64
	max float64
}

func newSpan() span {
	return span{min: math.Inf(1), max: math.Inf(-1)}
}

func (s *span) observe(x float64) {
	s.min = math.Min(s.min, x)
	s.max = math.Max(s.max, x)
}

func (s span) scale(x float64) float64 {
	if s.max == s.min {
		return flatValue
	}
	return clamp01((x - s.min) / (s.max - s.min))
}

// Normalize rescales each metric to [0,1] relative to the batch it belongs to.
// A metric whose values are all equal maps to 0.5 for every video.
func Normalize(raws []model.RawMetrics) []model.NormalizedMetrics {
	if len(raws) == 0 {
		return []model.NormalizedMetrics{}
	}

	eng, vel, auth, qual := newSpan(), newSpan(), newSpan(), newSpan()
	for _, r := range raws {
		eng.observe(r.Engagement)
		vel.observe(r.Velocity)
		auth.observe(r.Authority)
		qual.observe(r.Quality)
	}

	out := make([]model.NormalizedMetrics, len(raws))
	for i, r := range raws {
		out[i] = model.NormalizedMetrics{
			Engagement: eng.scale(r.Engagement),
			Velocity:   vel.scale(r.Velocity),
			Authority:  auth.scale(r.Authority),
			Quality:    qual.scale(r.Quality),
		}
	}
	return out
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
