package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/okian/vqs/internal/domain/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS videos (
    video_id                  TEXT NOT NULL DEFAULT '',
    collection_keyword        TEXT NOT NULL DEFAULT '',
    views                     INTEGER NOT NULL DEFAULT 0,
    likes                     INTEGER NOT NULL DEFAULT 0,
    comment_count             INTEGER NOT NULL DEFAULT 0,
    subscriber_count          INTEGER NOT NULL DEFAULT 0,
    channel_verified          INTEGER NOT NULL DEFAULT 0,
    published_at              TEXT NOT NULL DEFAULT '',
    duration_seconds          REAL NOT NULL DEFAULT 0,
    classification_confidence REAL
);

CREATE INDEX IF NOT EXISTS idx_videos_keyword ON videos(collection_keyword COLLATE NOCASE);
`

const selectByKeyword = `
SELECT video_id, collection_keyword, views, likes, comment_count, subscriber_count,
       channel_verified, published_at, duration_seconds, classification_confidence
FROM videos
WHERE collection_keyword = ? COLLATE NOCASE OR collection_keyword = ''
ORDER BY rowid
LIMIT ?`

// videoRow mirrors one row of the videos table.
type videoRow struct {
	VideoID                  string          `db:"video_id"`
	CollectionKeyword        string          `db:"collection_keyword"`
	Views                    int64           `db:"views"`
	Likes                    int64           `db:"likes"`
	CommentCount             int64           `db:"comment_count"`
	SubscriberCount          int64           `db:"subscriber_count"`
	ChannelVerified          bool            `db:"channel_verified"`
	PublishedAt              string          `db:"published_at"`
	DurationSeconds          float64         `db:"duration_seconds"`
	ClassificationConfidence sql.NullFloat64 `db:"classification_confidence"`
}

func (r videoRow) record() Record {
	rec := Record{
		VideoID:           r.VideoID,
		Views:             r.Views,
		Likes:             r.Likes,
		CommentCount:      r.CommentCount,
		SubscriberCount:   r.SubscriberCount,
		ChannelVerified:   r.ChannelVerified,
		PublishedAt:       r.PublishedAt,
		DurationSeconds:   r.DurationSeconds,
		CollectionKeyword: r.CollectionKeyword,
	}
	if r.ClassificationConfidence.Valid {
		c := r.ClassificationConfidence.Float64
		rec.ClassificationConfidence = &c
	}
	return rec
}

// SQLiteSource reads candidates collected by an upstream crawler from a
// SQLite database. It never writes rows.
type SQLiteSource struct {
	db   *sqlx.DB
	path string
}

// OpenSQLite opens the database at path and makes sure the videos table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteSource, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &SQLiteSource{db: db, path: path}, nil
}

// Name implements Retriever.
func (s *SQLiteSource) Name() string { return "sqlite" }

// Retrieve implements Retriever. Keywords match case-insensitively and rows
// come back in insertion order.
func (s *SQLiteSource) Retrieve(ctx context.Context, keyword string, limit int) ([]model.CandidateVideo, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	var rows []videoRow
	if err := s.db.SelectContext(ctx, &rows, selectByKeyword, keyword, limit); err != nil {
		return nil, fmt.Errorf("%w: sqlite %s: %w", ErrRetrieve, s.path, err)
	}

	videos := make([]model.CandidateVideo, 0, len(rows))
	for _, r := range rows {
		v, err := r.record().Candidate()
		if err != nil {
			return nil, fmt.Errorf("%w: sqlite %s: %w", ErrRetrieve, s.path, err)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// Close closes the database.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}
