package service

import (
	"math/rand/v2"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/domain/matchmaking"
	"github.com/okian/qbduel/internal/domain/rating"
	"github.com/okian/qbduel/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the backing store. Without it Start uses an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithMatchmakingConfig sets the pair selection configuration.
func WithMatchmakingConfig(cfg matchmaking.Config) Option {
	return func(s *Service) {
		s.matchCfg = cfg
	}
}

// WithRatingConfig sets the rating update configuration.
func WithRatingConfig(cfg rating.Config) Option {
	return func(s *Service) {
		s.ratingCfg = cfg
	}
}

// WithMaxStandingsLimit caps the page size of standings queries.
func WithMaxStandingsLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxStandingsLimit = limit
		}
	}
}

// WithRandSource fixes the random source used for pair selection.
func WithRandSource(src rand.Source) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
