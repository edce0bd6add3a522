package matchmaking

import "errors"

// Sentinel kinds for matchmaking errors.
var (
	ErrInsufficientPopulation = errors.New("fewer than two rated seasons")
	ErrInvalidSession         = errors.New("invalid session")
	ErrRecordPair             = errors.New("failed to record shown pair")
	ErrInvalidConfig          = errors.New("invalid matchmaking config")
)
