package queue

import (
	"errors"

	"github.com/okian/vqs/internal/domain/types"
)

// Sentinel kinds for queue errors.
var (
	ErrQueueFull = errors.New("queue full")
	ErrAbandoned = errors.New("job abandoned during shutdown")
)

func abandonedResult(keyword string) types.Result {
	return types.Failed(keyword, ErrAbandoned.Error())
}
