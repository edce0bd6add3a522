package pairing

import "errors"

// Sentinel kinds for pairing errors.
var (
	ErrEmpty         = errors.New("no candidates to sample from")
	ErrInvalidPolicy = errors.New("invalid sampling policy")
)
