// Package fixtures generates synthetic candidate batches with realistic
// channel and engagement profiles.
package fixtures

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vqs/internal/domain/model"
	"github.com/okian/vqs/pkg/logger"
)

// Profile describes one kind of generated video.
type Profile string

// Profiles picked from when generating a batch.
const (
	ProfileViral   Profile = "viral"   // small channel, huge fresh engagement
	ProfileSteady  Profile = "steady"  // large verified channel, moderate engagement
	ProfileNiche   Profile = "niche"   // small audience, strong like ratio
	ProfileStale   Profile = "stale"   // old video with decayed velocity
	ProfileLowFit  Profile = "low-fit" // long video, weak classification
	ProfileFresh   Profile = "fresh"   // minutes old, few views
	ProfileUnrated Profile = "unrated" // no classifier opinion
)

var profiles = []Profile{
	ProfileViral, ProfileSteady, ProfileNiche, ProfileStale,
	ProfileLowFit, ProfileFresh, ProfileUnrated,
}

// Config controls generation.
type Config struct {
	Keyword string
	Count   int
	// Seed makes a batch reproducible. Batches with the same seed, count and
	// reference time are identical.
	Seed    uint64
	Now     time.Time
	Workers int
}

// Stats summarizes a generated batch.
type Stats struct {
	Generated int
	Profiles  map[Profile]int
	Duration  time.Duration
}

// Generate creates cfg.Count candidates for cfg.Keyword. Work is spread over
// cfg.Workers goroutines; output order only depends on the index.
func Generate(ctx context.Context, cfg Config) ([]model.CandidateVideo, Stats, error) {
	start := time.Now()
	if cfg.Count < 0 {
		return nil, Stats{}, fmt.Errorf("count must not be negative: %d", cfg.Count)
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	workerCount := cfg.Workers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	workerCount = min(workerCount, max(cfg.Count, 1))

	logger.Get().Debug(ctx, "generating candidates",
		logger.String("keyword", cfg.Keyword),
		logger.Int("count", cfg.Count),
		logger.Int("workers", workerCount))

	type result struct {
		index   int
		video   model.CandidateVideo
		profile Profile
		err     error
	}

	videos := make([]model.CandidateVideo, cfg.Count)
	results := make(chan result, cfg.Count)
	perWorker := cfg.Count / workerCount

	for w := 0; w < workerCount; w++ {
		from := w * perWorker
		to := from + perWorker
		if w == workerCount-1 {
			to = cfg.Count // last worker takes the remainder
		}

		go func(from, to int) {
			for i := from; i < to; i++ {
				select {
				case <-ctx.Done():
					results <- result{index: i, err: ctx.Err()}
					return
				default:
					v, p := generateOne(cfg, i)
					results <- result{index: i, video: v, profile: p}
				}
			}
		}(from, to)
	}

	stats := Stats{Profiles: make(map[Profile]int)}
	for i := 0; i < cfg.Count; i++ {
		select {
		case <-ctx.Done():
			return nil, Stats{}, fmt.Errorf("generation cancelled: %w", ctx.Err())
		case r := <-results:
			if r.err != nil {
				return nil, Stats{}, fmt.Errorf("generate candidate %d: %w", r.index, r.err)
			}
			videos[r.index] = r.video
			stats.Profiles[r.profile]++
		}
	}

	stats.Generated = len(videos)
	stats.Duration = time.Since(start)
	logger.Get().Info(ctx, "generated candidates",
		logger.String("keyword", cfg.Keyword),
		logger.Int("count", stats.Generated),
		logger.Duration("duration", stats.Duration))
	return videos, stats, nil
}

// generateOne builds the candidate at index i from its own random stream.
func generateOne(cfg Config, i int) (model.CandidateVideo, Profile) {
	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
	p := profiles[rng.IntN(len(profiles))]

	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(cfg.Keyword+"/"+strconv.FormatUint(cfg.Seed, 10)+"/"+strconv.Itoa(i)))
	v := model.CandidateVideo{
		VideoID:           id.String(),
		CollectionKeyword: cfg.Keyword,
	}

	between := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	hoursAgo := func(lo, hi float64) time.Time {
		return cfg.Now.Add(-time.Duration(between(lo, hi) * float64(time.Hour))).Truncate(time.Second)
	}
	ratio := func(views int64, lo, hi float64) int64 { return int64(float64(views) * between(lo, hi)) }
	conf := func(lo, hi float64) *float64 {
		c := between(lo, hi)
		return &c
	}

	switch p {
	case ProfileViral:
		v.Views = int64(between(500_000, 5_000_000))
		v.Likes = ratio(v.Views, 0.06, 0.12)
		v.CommentCount = ratio(v.Views, 0.002, 0.006)
		v.SubscriberCount = int64(between(1_000, 80_000))
		v.PublishedAt = hoursAgo(6, 48)
		v.DurationSeconds = between(12, 35)
		v.ClassificationConfidence = conf(0.8, 1)
	case ProfileSteady:
		v.Views = int64(between(50_000, 400_000))
		v.Likes = ratio(v.Views, 0.02, 0.05)
		v.CommentCount = ratio(v.Views, 0.0005, 0.002)
		v.SubscriberCount = int64(between(500_000, 5_000_000))
		v.ChannelVerified = true
		v.PublishedAt = hoursAgo(72, 720)
		v.DurationSeconds = between(25, 58)
		v.ClassificationConfidence = conf(0.6, 0.95)
	case ProfileNiche:
		v.Views = int64(between(2_000, 20_000))
		v.Likes = ratio(v.Views, 0.1, 0.2)
		v.CommentCount = ratio(v.Views, 0.01, 0.03)
		v.SubscriberCount = int64(between(200, 9_000))
		v.PublishedAt = hoursAgo(24, 240)
		v.DurationSeconds = between(15, 45)
		v.ClassificationConfidence = conf(0.7, 1)
	case ProfileStale:
		v.Views = int64(between(100_000, 2_000_000))
		v.Likes = ratio(v.Views, 0.01, 0.04)
		v.CommentCount = ratio(v.Views, 0.0002, 0.001)
		v.SubscriberCount = int64(between(20_000, 600_000))
		v.PublishedAt = hoursAgo(4_000, 20_000)
		v.DurationSeconds = between(20, 60)
		v.ClassificationConfidence = conf(0.5, 0.9)
	case ProfileLowFit:
		v.Views = int64(between(5_000, 80_000))
		v.Likes = ratio(v.Views, 0.005, 0.02)
		v.CommentCount = ratio(v.Views, 0.0001, 0.001)
		v.SubscriberCount = int64(between(1_000, 150_000))
		v.PublishedAt = hoursAgo(48, 2_000)
		v.DurationSeconds = between(90, 240)
		v.ClassificationConfidence = conf(0.05, 0.4)
	case ProfileFresh:
		v.Views = int64(between(50, 3_000))
		v.Likes = ratio(v.Views, 0.03, 0.15)
		v.CommentCount = ratio(v.Views, 0.005, 0.02)
		v.SubscriberCount = int64(between(100, 200_000))
		v.PublishedAt = hoursAgo(0.05, 3)
		v.DurationSeconds = between(10, 40)
		v.ClassificationConfidence = conf(0.5, 1)
	default: // unrated
		v.Views = int64(between(1_000, 300_000))
		v.Likes = ratio(v.Views, 0.01, 0.08)
		v.CommentCount = ratio(v.Views, 0.0005, 0.005)
		v.SubscriberCount = int64(between(500, 1_000_000))
		v.ChannelVerified = rng.IntN(4) == 0
		v.PublishedAt = hoursAgo(12, 1_500)
		v.DurationSeconds = between(15, 75)
	}
	v.DurationSeconds = float64(int(v.DurationSeconds*10)) / 10
	return v, p
}
