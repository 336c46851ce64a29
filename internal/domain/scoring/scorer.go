// Package scoring turns candidate videos into comparable Video Quality Scores.
//
// A batch flows through three stages: every candidate is reduced to four raw
// metrics, the metrics are min-max normalized against the batch, and the
// normalized metrics are weighted and reshaped into an integer 0-100 score.
package scoring

import (
	"fmt"
	"time"

	"github.com/okian/vqs/internal/domain/model"
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithConfig replaces the default weights, tables and curve.
func WithConfig(cfg Config) Option {
	return func(s *Scorer) {
		s.cfg = cfg
	}
}

// WithClock sets the time source used to age videos.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// Rejection records a candidate excluded from scoring.
type Rejection struct {
	Index   int
	VideoID string
	Err     error
}

// Scorer scores candidate batches. It holds no mutable state and is safe to
// share between goroutines.
type Scorer struct {
	cfg       Config
	now       func() time.Time
	extractor Extractor
	composer  Composer
}

// New creates a scorer, validating its configuration.
func New(opts ...Option) (Scorer, error) {
	s := Scorer{
		cfg: DefaultConfig(),
		now: time.Now,
	}

	// Apply all options
	for _, opt := range opts {
		opt(&s)
	}

	if err := s.cfg.Validate(); err != nil {
		return Scorer{}, err
	}
	s.extractor = NewExtractor(s.cfg)
	s.composer = NewComposer(s.cfg)
	return s, nil
}

// Config returns the configuration the scorer was built with.
func (s Scorer) Config() Config {
	return s.cfg
}

// Score scores every candidate against the rest of the batch. The clock is
// read once so the whole batch shares the same reference time. Candidates
// whose metrics cannot be computed are returned as rejections and take no
// part in normalization.
func (s Scorer) Score(videos []model.CandidateVideo) ([]model.ScoredVideo, []Rejection) {
	if len(videos) == 0 {
		return []model.ScoredVideo{}, nil
	}

	now := s.now()
	kept := make([]model.CandidateVideo, 0, len(videos))
	raws := make([]model.RawMetrics, 0, len(videos))
	var rejected []Rejection
	for i, v := range videos {
		raw := s.extractor.Extract(v, now)
		if !finite(raw) {
			rejected = append(rejected, Rejection{
				Index:   i,
				VideoID: v.VideoID,
				Err:     fmt.Errorf("%w: video %s: %+v", ErrComputationFault, v.VideoID, raw),
			})
			continue
		}
		kept = append(kept, v)
		raws = append(raws, raw)
	}

	norms := Normalize(raws)
	scored := make([]model.ScoredVideo, len(kept))
	for i := range kept {
		scored[i] = model.ScoredVideo{
			CandidateVideo: kept[i],
			Raw:            raws[i],
			Normalized:     norms[i],
			Score:          s.composer.Compose(norms[i]),
		}
	}
	return scored, rejected
}
