package source

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const insertVideo = `
INSERT INTO videos (video_id, collection_keyword, views, likes, comment_count, subscriber_count,
                    channel_verified, published_at, duration_seconds, classification_confidence)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func TestSQLiteSource_Retrieve(t *testing.T) {
	Convey("Given a database with videos for two keywords", t, func() {
		ctx := context.Background()
		s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "videos.db"))
		So(err, ShouldBeNil)
		Reset(func() { _ = s.Close() })

		rows := [][]any{
			{"a1", "Cooking", 1000, 100, 10, 5000, 1, "2026-02-28T12:00:00Z", 30.0, 0.9},
			{"b1", "travel", 2000, 50, 5, 800, 0, "2026-02-20 08:30:00", 45.0, nil},
			{"a2", "cooking", 500, 20, 1, 100, 0, "2026-01-15T00:00:00Z", 90.0, nil},
			{"a3", "COOKING", 10, 1, 0, 10, 0, "", 12.0, 0.4},
		}
		for _, r := range rows {
			_, err := s.db.ExecContext(ctx, insertVideo, r...)
			So(err, ShouldBeNil)
		}

		Convey("When retrieving a keyword in another case", func() {
			videos, err := s.Retrieve(ctx, "cooking", 0)

			Convey("Then matching rows come back in insertion order", func() {
				So(err, ShouldBeNil)
				So(len(videos), ShouldEqual, 3)
				So(videos[0].VideoID, ShouldEqual, "a1")
				So(videos[1].VideoID, ShouldEqual, "a2")
				So(videos[2].VideoID, ShouldEqual, "a3")
			})

			Convey("Then columns map onto the candidate", func() {
				v := videos[0]
				So(v.Views, ShouldEqual, 1000)
				So(v.Likes, ShouldEqual, 100)
				So(v.CommentCount, ShouldEqual, 10)
				So(v.SubscriberCount, ShouldEqual, 5000)
				So(v.ChannelVerified, ShouldBeTrue)
				So(v.DurationSeconds, ShouldEqual, 30.0)
				So(v.PublishedAt.Equal(time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(v.ClassificationConfidence, ShouldNotBeNil)
				So(*v.ClassificationConfidence, ShouldEqual, 0.9)
			})

			Convey("Then a NULL confidence stays absent", func() {
				So(videos[1].ClassificationConfidence, ShouldBeNil)
			})

			Convey("Then an empty publish time is the zero time", func() {
				So(videos[2].PublishedAt.IsZero(), ShouldBeTrue)
			})
		})

		Convey("When a limit is given", func() {
			videos, err := s.Retrieve(ctx, "cooking", 2)

			Convey("Then only the first rows are returned", func() {
				So(err, ShouldBeNil)
				So(len(videos), ShouldEqual, 2)
				So(videos[1].VideoID, ShouldEqual, "a2")
			})
		})

		Convey("When the keyword has no rows", func() {
			videos, err := s.Retrieve(ctx, "gardening", 10)

			Convey("Then the result is empty", func() {
				So(err, ShouldBeNil)
				So(videos, ShouldBeEmpty)
			})
		})

		Convey("When a row carries an unreadable publish time", func() {
			_, err := s.db.ExecContext(ctx, insertVideo, "bad", "travel", 1, 1, 1, 1, 0, "not a date", 10.0, nil)
			So(err, ShouldBeNil)

			_, err = s.Retrieve(ctx, "travel", 0)

			Convey("Then retrieval fails", func() {
				So(errors.Is(err, ErrRetrieve), ShouldBeTrue)
				So(errors.Is(err, ErrDecode), ShouldBeTrue)
			})
		})
	})
}
