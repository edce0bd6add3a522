package seeding

import "errors"

// Sentinel kinds for seeding errors.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMalformedRow  = errors.New("malformed row")
)
