package repository

import (
	"time"

	"github.com/okian/qbduel/internal/domain/model"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithIndexSeed fixes the seed used for standings index priorities.
func WithIndexSeed(seed uint64) Option {
	return func(s *MemoryStore) {
		s.seed = seed
	}
}

// WithClock overrides the clock used to stamp sessions.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSeasons preloads seasons with their initial ratings.
func WithSeasons(seasons ...model.SeededSeason) Option {
	return func(s *MemoryStore) {
		s.preload = append(s.preload, seasons...)
	}
}
