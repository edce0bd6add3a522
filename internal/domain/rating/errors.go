package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrInvalidPair      = errors.New("invalid pair")
	ErrConcurrentUpdate = errors.New("rating update kept conflicting")
)
