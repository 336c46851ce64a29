package queue

import (
	"time"

	"github.com/okian/vqs/internal/domain/types"
)

// Job asks a worker to search and rank one keyword.
type Job struct {
	ID         string
	Keyword    string
	Limit      int
	Index      int // position of the keyword in the originating batch
	EnqueuedAt time.Time
	Reply      chan<- Reply
}

// Reply carries the outcome of a Job back to its submitter.
type Reply struct {
	JobID  string
	Index  int
	Result types.Result
}
