package ranking

import (
	"math"
	"slices"

	"github.com/okian/vqs/internal/domain/model"
)

// Bucket lower bounds.
const (
	excellentFrom = 80
	goodFrom      = 60
	averageFrom   = 40
)

// Summarize computes batch statistics over every scored video. Pass the full
// batch, not the truncated ranking. An empty batch yields zeroed stats.
func Summarize(scored []model.ScoredVideo) *model.BatchStats {
	stats := &model.BatchStats{}
	if len(scored) == 0 {
		return stats
	}

	scores := make([]int, len(scored))
	sum := 0
	for i, v := range scored {
		scores[i] = v.Score
		sum += v.Score
		switch {
		case v.Score >= excellentFrom:
			stats.Distribution.Excellent++
		case v.Score >= goodFrom:
			stats.Distribution.Good++
		case v.Score >= averageFrom:
			stats.Distribution.Average++
		default:
			stats.Distribution.Poor++
		}
	}
	slices.Sort(scores)

	n := len(scores)
	stats.Count = n
	stats.AverageScore = int(math.Round(float64(sum) / float64(n)))
	stats.LowestScore = scores[0]
	stats.HighestScore = scores[n-1]
	stats.MedianScore = median(scores)
	return stats
}

// median expects sorted, non-empty input.
func median(sorted []int) int {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return int(math.Round(float64(sorted[mid-1]+sorted[mid]) / 2))
}
