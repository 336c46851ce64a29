// Package ranking orders scored batches and summarizes their score spread.
package ranking

import (
	"fmt"
	"slices"
	"strings"

	"github.com/okian/vqs/internal/domain/model"
)

// TieBreak decides the order of videos sharing a score.
type TieBreak string

const (
	// TieBreakViews puts the more viewed video first.
	TieBreakViews TieBreak = "views"
	// TieBreakRecency puts the more recently published video first.
	TieBreakRecency TieBreak = "recency"
	// TieBreakNone keeps the batch order.
	TieBreakNone TieBreak = "none"
)

// ParseTieBreak resolves a tie-break by name. An empty name selects views.
func ParseTieBreak(name string) (TieBreak, error) {
	switch tb := TieBreak(strings.ToLower(strings.TrimSpace(name))); tb {
	case "":
		return TieBreakViews, nil
	case TieBreakViews, TieBreakRecency, TieBreakNone:
		return tb, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTieBreak, name)
	}
}

func (tb TieBreak) compare(a, b model.ScoredVideo) int {
	switch tb {
	case TieBreakViews:
		return compareDesc(a.Views, b.Views)
	case TieBreakRecency:
		return b.PublishedAt.Compare(a.PublishedAt)
	}
	return 0
}

func compareDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// Rank sorts a copy of scored by descending score, assigns 1-based ranks over
// the whole batch and returns the top limit entries. A limit of zero or less,
// or one larger than the batch, returns every video. Ties fall back to the
// batch order once the tie-break is exhausted.
func Rank(scored []model.ScoredVideo, limit int, tieBreak TieBreak) []model.ScoredVideo {
	ranked := slices.Clone(scored)
	if ranked == nil {
		ranked = []model.ScoredVideo{}
	}

	slices.SortStableFunc(ranked, func(a, b model.ScoredVideo) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return tieBreak.compare(a, b)
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}
