package scoring

import (
	"math"
	"time"

	"github.com/okian/vqs/internal/domain/model"
)

// Engagement shape.
const (
	rateScale         = 10_000 // per-view rates are read per 10k views
	rateLogCeiling    = 4      // log10(1 + 10000) ~ 4
	likeShare         = 0.75
	commentShare      = 0.25
	velocityLogCeil   = 6 // log10(1 + 1M views/hour)
	authorityLogCeil  = 8 // log10(100M subscribers)
	verifiedBoost     = 1.2
	confidenceLift    = 0.2
	lengthShare       = 0.6
	confidenceShare   = 0.4
	maxMetric         = 1.0
	minDivisor        = 1.0
	shortsMaxSeconds  = 180
	longDecayFrom     = 0.8
	longDecayFloor    = 0.2
	tooShortLengthFit = 0.3
)

// Length windows in seconds.
const (
	goldenMin  = 15
	goldenMax  = 45
	goodMin    = 10
	goodMax    = 60
	shortMin   = 5
	goldenFit  = 1.0
	goodFit    = 0.8
	shortFit   = 0.6
	longWindow = shortsMaxSeconds - goodMax
)

// Extractor derives raw metrics from a single candidate.
type Extractor struct {
	channelSize       Table
	recency           Table
	defaultConfidence float64
}

// NewExtractor builds an extractor from the scoring config.
func NewExtractor(cfg Config) Extractor {
	return Extractor{
		channelSize:       cfg.ChannelSize,
		recency:           cfg.Recency,
		defaultConfidence: cfg.DefaultConfidence,
	}
}

// Extract computes the four raw metrics of v as seen at now. Missing or
// negative counters read as zero.
func (e Extractor) Extract(v model.CandidateVideo, now time.Time) model.RawMetrics {
	return model.RawMetrics{
		Engagement: e.Engagement(v),
		Velocity:   e.Velocity(v, now),
		Authority:  Authority(v),
		Quality:    e.Quality(v),
	}
}

// Engagement scores like and comment rates, boosted for small channels.
func (e Extractor) Engagement(v model.CandidateVideo) float64 {
	views := math.Max(minDivisor, nonNegative(v.Views))
	likeRate := math.Log10(1+nonNegative(v.Likes)/views*rateScale) / rateLogCeiling
	commentRate := math.Log10(1+nonNegative(v.CommentCount)/views*rateScale) / rateLogCeiling

	blended := likeShare*likeRate + commentShare*commentRate
	subs := math.Max(minDivisor, nonNegative(v.SubscriberCount))
	return math.Min(maxMetric, blended*e.channelSize.Below(subs))
}

// Velocity scores views per hour since publication, weighted by recency.
func (e Extractor) Velocity(v model.CandidateVideo, now time.Time) float64 {
	hours := math.Max(minDivisor, now.Sub(v.PublishedAt).Hours())
	viewsPerHour := nonNegative(v.Views) / hours
	weight := e.recency.AtMost(hours)
	return math.Min(maxMetric, math.Log10(1+viewsPerHour)/velocityLogCeil*weight)
}

// Authority scores channel size on a log scale, boosted for verified channels.
func Authority(v model.CandidateVideo) float64 {
	subs := math.Max(minDivisor, nonNegative(v.SubscriberCount))
	a := math.Log10(subs) / authorityLogCeil
	if v.ChannelVerified {
		a *= verifiedBoost
	}
	return math.Min(maxMetric, a)
}

// Quality blends format fit with classification confidence.
func (e Extractor) Quality(v model.CandidateVideo) float64 {
	conf := v.Confidence(e.defaultConfidence)
	if math.IsNaN(conf) || conf < 0 {
		conf = 0
	}
	return lengthShare*LengthFit(v.DurationSeconds) + confidenceShare*math.Min(maxMetric, conf+confidenceLift)
}

// LengthFit rates a duration against the short-form golden window. Past 60s
// the fit decays linearly and bottoms out at the Shorts length cap.
func LengthFit(seconds float64) float64 {
	switch {
	case seconds >= goldenMin && seconds <= goldenMax:
		return goldenFit
	case seconds >= goodMin && seconds <= goodMax:
		return goodFit
	case seconds >= shortMin && seconds < goodMin:
		return shortFit
	case seconds > goodMax:
		decayed := longDecayFrom - (longDecayFrom-longDecayFloor)*(seconds-goodMax)/longWindow
		return math.Max(longDecayFloor, decayed)
	default:
		return tooShortLengthFit
	}
}

func nonNegative(n int64) float64 {
	if n < 0 {
		return 0
	}
	return float64(n)
}

// finite reports whether every metric is a real number.
func finite(m model.RawMetrics) bool {
	for _, x := range [...]float64{m.Engagement, m.Velocity, m.Authority, m.Quality} {
		if !isFinite(x) {
			return false
		}
	}
	return true
}
