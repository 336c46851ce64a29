package ranking_test

import (
	"testing"

	"github.com/okian/vqs/internal/domain/model"
	"github.com/okian/vqs/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

func scores(s ...int) []model.ScoredVideo {
	out := make([]model.ScoredVideo, len(s))
	for i, v := range s {
		out[i] = video("v", v, 0, 0)
	}
	return out
}

func TestSummarize(t *testing.T) {
	Convey("Given an empty batch", t, func() {
		stats := ranking.Summarize(nil)

		Convey("Then stats should be zeroed", func() {
			So(stats, ShouldNotBeNil)
			So(*stats, ShouldResemble, model.BatchStats{})
		})
	})

	Convey("Given an odd-sized batch", t, func() {
		stats := ranking.Summarize(scores(90, 10, 65, 40, 77))

		Convey("Then the summary should cover every video", func() {
			So(stats.Count, ShouldEqual, 5)
			So(stats.HighestScore, ShouldEqual, 90)
			So(stats.LowestScore, ShouldEqual, 10)
			So(stats.MedianScore, ShouldEqual, 65)
			So(stats.AverageScore, ShouldEqual, 56) // 282 / 5 = 56.4
		})

		Convey("And the buckets should partition the batch", func() {
			d := stats.Distribution
			So(d, ShouldResemble, model.Distribution{Excellent: 1, Good: 2, Average: 1, Poor: 1})
			So(d.Excellent+d.Good+d.Average+d.Poor, ShouldEqual, stats.Count)
		})
	})

	Convey("Given an even-sized batch", t, func() {
		stats := ranking.Summarize(scores(50, 61, 20, 80))

		Convey("Then the median should round the two middle values", func() {
			So(stats.MedianScore, ShouldEqual, 56)  // (50 + 61) / 2 = 55.5
			So(stats.AverageScore, ShouldEqual, 53) // 211 / 4 = 52.75
		})
	})

	Convey("Given scores on the bucket edges", t, func() {
		stats := ranking.Summarize(scores(80, 79, 60, 59, 40, 39))

		Convey("Then each edge should land in the upper bucket", func() {
			So(stats.Distribution, ShouldResemble, model.Distribution{Excellent: 1, Good: 2, Average: 2, Poor: 1})
		})
	})

	Convey("Given a ranked and truncated batch", t, func() {
		full := scores(95, 85, 30, 20)
		top := ranking.Rank(full, 2, ranking.TieBreakNone)
		stats := ranking.Summarize(full)

		Convey("Then stats should still describe the full batch", func() {
			So(top, ShouldHaveLength, 2)
			So(stats.Count, ShouldEqual, 4)
			So(stats.LowestScore, ShouldEqual, 20)
		})
	})
}
