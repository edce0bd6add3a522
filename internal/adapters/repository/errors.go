package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrRatingNotFound = errors.New("rating not found")
	ErrSeasonNotFound = errors.New("season not found")
	ErrConflict       = errors.New("concurrent rating update conflict")
	ErrInvalidLimit   = errors.New("invalid standings limit")
	ErrSamePair       = errors.New("winner and loser are the same season")
)
