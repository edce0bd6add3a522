package rating

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/pkg/logger"
	"github.com/okian/qbduel/pkg/metrics"
)

// DefaultMaxAttempts bounds the read-compute-commit cycles per vote.
const DefaultMaxAttempts = 3

// Store is what the updater needs from the backing store.
type Store interface {
	GetRating(ctx context.Context, id int64) (model.Rating, error)
	repository.ResultWriter
}

// Config holds the updater's numeric knobs.
type Config struct {
	K           float64
	MaxAttempts int
}

// DefaultConfig returns K=32 and three attempts.
func DefaultConfig() Config {
	return Config{K: DefaultK, MaxAttempts: DefaultMaxAttempts}
}

// Updater applies vote outcomes to ratings.
type Updater struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithConfig overrides the numeric configuration. Non-positive fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(u *Updater) {
		if cfg.K > 0 {
			u.cfg.K = cfg.K
		}
		if cfg.MaxAttempts > 0 {
			u.cfg.MaxAttempts = cfg.MaxAttempts
		}
	}
}

// WithClock overrides the clock used to stamp votes.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		if now != nil {
			u.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUpdater constructs an Updater over store.
func NewUpdater(store Store, opts ...Option) *Updater {
	u := &Updater{
		store: store,
		cfg:   DefaultConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.logger == nil {
		u.logger = logger.Named("rating")
	}
	return u
}

// Apply records the vote and moves both ratings in one atomic commit.
//
// Only repository.ErrConflict is retried, each time from a fresh read. Every
// other error is returned wrapped but otherwise untouched.
func (u *Updater) Apply(ctx context.Context, v model.Vote) (model.Result, error) {
	const op = "rating.apply"
	if v.Winner <= 0 || v.Loser <= 0 {
		return model.Result{}, fmt.Errorf("%s: %w: missing season id", op, ErrInvalidPair)
	}
	if v.Winner == v.Loser {
		return model.Result{}, fmt.Errorf("%s: %w: winner equals loser", op, ErrInvalidPair)
	}
	if v.CastAt.IsZero() {
		v.CastAt = u.now()
	}

	var lastErr error
	for attempt := 1; attempt <= u.cfg.MaxAttempts; attempt++ {
		res, err := u.attempt(ctx, v)
		if err == nil {
			metrics.RecordVoteApplied()
			metrics.RecordRatingDelta(res.Winner.Delta())
			metrics.RecordRatingDelta(res.Loser.Delta())
			return res, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return model.Result{}, fmt.Errorf("%s: %w", op, err)
		}
		lastErr = err
		metrics.RecordRatingConflict()
		u.logger.Debug(ctx, "rating update conflicted; retrying",
			logger.Int("attempt", attempt),
			logger.Int64("winner", v.Winner),
			logger.Int64("loser", v.Loser),
		)
	}
	u.logger.Warn(ctx, "rating update gave up after conflicts",
		logger.Int("attempts", u.cfg.MaxAttempts),
		logger.Int64("winner", v.Winner),
		logger.Int64("loser", v.Loser),
	)
	return model.Result{}, fmt.Errorf("%s: %w: %w", op, ErrConcurrentUpdate, lastErr)
}

func (u *Updater) attempt(ctx context.Context, v model.Vote) (model.Result, error) {
	w, err := u.store.GetRating(ctx, v.Winner)
	if err != nil {
		return model.Result{}, err
	}
	l, err := u.store.GetRating(ctx, v.Loser)
	if err != nil {
		return model.Result{}, err
	}

	newW, newL := NewRatings(w.Score, l.Score, u.cfg.K)
	err = u.store.CommitResult(ctx, v,
		model.RatingUpdate{EntityID: v.Winner, OldScore: w.Score, OldVotes: w.VoteCount, NewScore: newW},
		model.RatingUpdate{EntityID: v.Loser, OldScore: l.Score, OldVotes: l.VoteCount, NewScore: newL},
	)
	if err != nil {
		return model.Result{}, err
	}
	return model.Result{
		Winner: model.RatingChange{ID: v.Winner, Old: w.Score, New: newW},
		Loser:  model.RatingChange{ID: v.Loser, Old: l.Score, New: newL},
	}, nil
}

// K returns the volatility constant in use.
func (u *Updater) K() float64 { return u.cfg.K }
