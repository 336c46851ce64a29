package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrEmptyBatch       = errors.New("empty candidate batch")
	ErrMalformedRecord  = errors.New("malformed candidate record")
	ErrComputationFault = errors.New("metric computation fault")
	ErrInvalidConfig    = errors.New("invalid scoring config")
)
