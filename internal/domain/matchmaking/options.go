package matchmaking

import (
	"math/rand/v2"
	"time"

	"github.com/okian/qbduel/pkg/logger"
)

// Option applies a configuration option to the Selector.
type Option func(*Selector)

// WithConfig replaces the selection configuration.
func WithConfig(cfg Config) Option {
	return func(s *Selector) {
		s.cfg = cfg
	}
}

// WithSource sets the random source used for all draws. Sources are not
// safe for concurrent use, so the Selector serialises access to it.
func WithSource(src rand.Source) Option {
	return func(s *Selector) {
		if src != nil {
			s.src = src
		}
	}
}

// WithClock overrides the clock used to stamp shown pairs.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}
