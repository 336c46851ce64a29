// Package source retrieves candidate videos for a keyword from local stores.
package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/okian/vqs/internal/domain/model"
)

// Retriever returns the candidates collected for keyword, in retrieval order,
// at most limit of them. A limit of zero or less means no limit.
type Retriever interface {
	Retrieve(ctx context.Context, keyword string, limit int) ([]model.CandidateVideo, error)
	// Name identifies the source in logs and metrics.
	Name() string
}

// Record is the serialized shape of a candidate in files and rows.
type Record struct {
	VideoID                  string   `yaml:"videoId" json:"videoId"`
	Views                    int64    `yaml:"views" json:"views"`
	Likes                    int64    `yaml:"likes" json:"likes"`
	CommentCount             int64    `yaml:"commentCount" json:"commentCount"`
	SubscriberCount          int64    `yaml:"subscriberCount" json:"subscriberCount"`
	ChannelVerified          bool     `yaml:"channelVerified" json:"channelVerified"`
	PublishedAt              string   `yaml:"publishedAt" json:"publishedAt"`
	DurationSeconds          float64  `yaml:"durationSeconds" json:"durationSeconds"`
	ClassificationConfidence *float64 `yaml:"classificationConfidence,omitempty" json:"classificationConfidence,omitempty"`
	CollectionKeyword        string   `yaml:"collectionKeyword" json:"collectionKeyword"`
}

// Candidate converts r, parsing the publish time in any common layout.
// Times without a zone are read as UTC.
func (r Record) Candidate() (model.CandidateVideo, error) {
	published, err := parseTime(r.PublishedAt)
	if err != nil {
		return model.CandidateVideo{}, fmt.Errorf("%w: video %q: published_at %q: %w", ErrDecode, r.VideoID, r.PublishedAt, err)
	}
	return model.CandidateVideo{
		VideoID:                  strings.TrimSpace(r.VideoID),
		Views:                    r.Views,
		Likes:                    r.Likes,
		CommentCount:             r.CommentCount,
		SubscriberCount:          r.SubscriberCount,
		ChannelVerified:          r.ChannelVerified,
		PublishedAt:              published,
		DurationSeconds:          r.DurationSeconds,
		ClassificationConfidence: r.ClassificationConfidence,
		CollectionKeyword:        r.CollectionKeyword,
	}, nil
}

// RecordOf is the inverse of Record.Candidate.
func RecordOf(v model.CandidateVideo) Record {
	r := Record{
		VideoID:                  v.VideoID,
		Views:                    v.Views,
		Likes:                    v.Likes,
		CommentCount:             v.CommentCount,
		SubscriberCount:          v.SubscriberCount,
		ChannelVerified:          v.ChannelVerified,
		DurationSeconds:          v.DurationSeconds,
		ClassificationConfidence: v.ClassificationConfidence,
		CollectionKeyword:        v.CollectionKeyword,
	}
	if !v.PublishedAt.IsZero() {
		r.PublishedAt = v.PublishedAt.UTC().Format(time.RFC3339)
	}
	return r
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// matches reports whether a candidate collected for collected belongs to
// keyword. Candidates without a collection keyword match every keyword.
func matches(collected, keyword string) bool {
	collected = strings.TrimSpace(collected)
	return collected == "" || strings.EqualFold(collected, strings.TrimSpace(keyword))
}
