// Package model contains domain models passed between layers.
package model

import "time"

// CandidateVideo is a short-form video retrieved for a keyword.
// Scoring treats it as read-only input.
type CandidateVideo struct {
	VideoID         string    `json:"videoId" validate:"required"`
	Views           int64     `json:"views"`
	Likes           int64     `json:"likes"`
	CommentCount    int64     `json:"commentCount"`
	SubscriberCount int64     `json:"subscriberCount"`
	ChannelVerified bool      `json:"channelVerified"`
	PublishedAt     time.Time `json:"publishedAt"`
	DurationSeconds float64   `json:"durationSeconds"`
	// ClassificationConfidence is nil when the classifier gave no opinion.
	ClassificationConfidence *float64 `json:"classificationConfidence,omitempty"`
	CollectionKeyword        string   `json:"collectionKeyword"`
}

// Confidence returns the classification confidence, or def when absent.
func (v CandidateVideo) Confidence(def float64) float64 {
	if v.ClassificationConfidence == nil {
		return def
	}
	return *v.ClassificationConfidence
}

// RawMetrics holds the unbounded per-video signals before normalization.
type RawMetrics struct {
	Engagement float64 `json:"engagement"`
	Velocity   float64 `json:"velocity"`
	Authority  float64 `json:"authority"`
	Quality    float64 `json:"quality"`
}

// NormalizedMetrics holds the four signals rescaled to [0,1] against a batch.
type NormalizedMetrics struct {
	Engagement float64 `json:"engagement"`
	Velocity   float64 `json:"velocity"`
	Authority  float64 `json:"authority"`
	Quality    float64 `json:"quality"`
}

// ScoredVideo is a candidate enriched with its metrics, score and rank.
type ScoredVideo struct {
	CandidateVideo
	Raw        RawMetrics        `json:"rawMetrics"`
	Normalized NormalizedMetrics `json:"normalizedMetrics"`
	Score      int               `json:"score"`
	// Rank is zero until the batch has been ranked.
	Rank int `json:"rank"`
}

// Distribution counts scores per quality bucket.
type Distribution struct {
	Excellent int `json:"excellent"` // >= 80
	Good      int `json:"good"`      // 60-79
	Average   int `json:"average"`   // 40-59
	Poor      int `json:"poor"`      // < 40
}

// BatchStats summarizes the scores of a full scored batch.
type BatchStats struct {
	Count        int          `json:"count"`
	AverageScore int          `json:"averageScore"`
	HighestScore int          `json:"highestScore"`
	LowestScore  int          `json:"lowestScore"`
	MedianScore  int          `json:"medianScore"`
	Distribution Distribution `json:"distribution"`
}
