package ranking

import "errors"

// ErrUnknownTieBreak is returned for an unsupported tie-break name.
var ErrUnknownTieBreak = errors.New("unknown tie-break strategy")
