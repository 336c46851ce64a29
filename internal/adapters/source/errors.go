package source

import "errors"

// Sentinel kinds for source errors.
var (
	ErrRetrieve      = errors.New("retrieve candidates")
	ErrDecode        = errors.New("decode candidate")
	ErrUnknownFormat = errors.New("unknown candidate file format")
)
