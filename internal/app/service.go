// Package service wires the stores and the matchmaking and rating engines
// into the operations the HTTP API and CLI need.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/domain/matchmaking"
	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/internal/domain/rating"
	"github.com/okian/qbduel/pkg/logger"
	"github.com/okian/qbduel/pkg/metrics"
)

// Standings page defaults.
const (
	DefaultStandingsLimit    = 100
	DefaultMaxStandingsLimit = 500
)

// Matchup is a selected pair with both seasons loaded.
type Matchup struct {
	A model.Season
	B model.Season
}

// Reveal is one side of a decided vote.
type Reveal struct {
	Season model.Season
	Change model.RatingChange
}

// Outcome is the result of a vote with both seasons revealed.
type Outcome struct {
	Winner Reveal
	Loser  Reveal
}

// Distribution summarises the current ratings.
type Distribution struct {
	Count      int
	Mean       float64
	StdDev     float64
	Median     float64
	P10        float64
	P25        float64
	P75        float64
	P90        float64
	Min        float64
	Max        float64
	TotalVotes int
}

// Service implements the API dependencies for the comparison engine.
type Service struct {
	mu sync.RWMutex

	store    repository.Store
	selector *matchmaking.Selector
	updater  *rating.Updater

	matchCfg          matchmaking.Config
	ratingCfg         rating.Config
	maxStandingsLimit int
	source            rand.Source

	started bool
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		matchCfg:          matchmaking.DefaultConfig(),
		ratingCfg:         rating.DefaultConfig(),
		maxStandingsLimit: DefaultMaxStandingsLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engines over the store and checks the store is reachable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory store")
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("service.start: %w", err)
	}

	selOpts := []matchmaking.Option{
		matchmaking.WithConfig(s.matchCfg),
		matchmaking.WithLogger(s.logger.Named("matchmaking")),
	}
	if s.source != nil {
		selOpts = append(selOpts, matchmaking.WithSource(s.source))
	}
	sel, err := matchmaking.NewSelector(s.store, selOpts...)
	if err != nil {
		return fmt.Errorf("service.start: %w", err)
	}
	s.selector = sel
	s.updater = rating.NewUpdater(s.store,
		rating.WithConfig(s.ratingCfg),
		rating.WithLogger(s.logger.Named("rating")),
	)

	s.started = true
	s.logger.Info(ctx, "comparison service started",
		logger.Int("recencyWindow", s.matchCfg.RecencyWindow),
		logger.Float64("tolerance", s.matchCfg.Tolerance),
		logger.Float64("kFactor", s.updater.K()),
	)
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "comparison service stopped")
}

func (s *Service) engines() (repository.Store, *matchmaking.Selector, *rating.Updater, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, nil, ErrNotStarted
	}
	return s.store, s.selector, s.updater, nil
}

// Ready reports whether the store answers.
func (s *Service) Ready(ctx context.Context) error {
	store, _, _, err := s.engines()
	if err != nil {
		return err
	}
	return store.Ping(ctx)
}

// EnsureSession returns id when it names a known session, otherwise it
// registers and returns a fresh one. The bool reports whether a new id was issued.
func (s *Service) EnsureSession(ctx context.Context, id string) (string, bool, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return "", false, err
	}
	if _, perr := uuid.Parse(id); perr == nil {
		ok, err := store.SessionExists(ctx, id)
		if err != nil {
			return "", false, fmt.Errorf("service.ensure_session: %w", err)
		}
		if ok {
			return id, false, nil
		}
	}
	fresh := uuid.NewString()
	if err := store.CreateSession(ctx, fresh); err != nil {
		return "", false, fmt.Errorf("service.ensure_session: %w", err)
	}
	return fresh, true, nil
}

// SelectPair picks and records the next pair for session.
func (s *Service) SelectPair(ctx context.Context, session string) (model.Pair, error) {
	_, sel, _, err := s.engines()
	if err != nil {
		return model.Pair{}, err
	}
	return sel.SelectPair(ctx, session)
}

// Matchup selects the next pair for session and loads both seasons.
func (s *Service) Matchup(ctx context.Context, session string) (Matchup, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return Matchup{}, err
	}
	pair, err := s.SelectPair(ctx, session)
	if err != nil {
		return Matchup{}, err
	}
	seasons, err := store.Seasons(ctx, pair.A, pair.B)
	if err != nil {
		return Matchup{}, fmt.Errorf("service.matchup: %w", err)
	}
	a, okA := seasons[pair.A]
	b, okB := seasons[pair.B]
	if !okA || !okB {
		return Matchup{}, fmt.Errorf("service.matchup: %w", repository.ErrSeasonNotFound)
	}
	return Matchup{A: a, B: b}, nil
}

// ApplyResult applies a decided vote from session.
func (s *Service) ApplyResult(ctx context.Context, session string, winner, loser int64) (model.Result, error) {
	_, _, upd, err := s.engines()
	if err != nil {
		return model.Result{}, err
	}
	return upd.Apply(ctx, model.Vote{Session: session, Winner: winner, Loser: loser})
}

// Vote applies a vote after checking both seasons exist and returns both
// seasons revealed with their rating changes.
func (s *Service) Vote(ctx context.Context, session string, winner, loser int64) (Outcome, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return Outcome{}, err
	}
	if winner == loser {
		return Outcome{}, fmt.Errorf("service.vote: %w: winner equals loser", rating.ErrInvalidPair)
	}
	seasons, err := store.Seasons(ctx, winner, loser)
	if err != nil {
		return Outcome{}, fmt.Errorf("service.vote: %w", err)
	}
	w, okW := seasons[winner]
	l, okL := seasons[loser]
	if !okW || !okL {
		return Outcome{}, fmt.Errorf("service.vote: %w", repository.ErrSeasonNotFound)
	}

	res, err := s.ApplyResult(ctx, session, winner, loser)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Winner: Reveal{Season: w, Change: res.Winner},
		Loser:  Reveal{Season: l, Change: res.Loser},
	}, nil
}

// Standings returns a page of the leaderboard. A zero limit means the
// default page size; limits above the configured maximum are clamped.
func (s *Service) Standings(ctx context.Context, q model.StandingsQuery) (model.StandingsPage, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return model.StandingsPage{}, err
	}
	if q.Limit == 0 {
		q.Limit = DefaultStandingsLimit
	}
	if q.Limit > s.maxStandingsLimit {
		q.Limit = s.maxStandingsLimit
	}
	if q.Limit < 0 || q.Offset < 0 {
		return model.StandingsPage{}, fmt.Errorf("service.standings: %w", repository.ErrInvalidLimit)
	}
	return store.Standings(ctx, q)
}

// Rank returns the global standing of one season.
func (s *Service) Rank(ctx context.Context, id int64) (model.Standing, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return model.Standing{}, err
	}
	return store.Rank(ctx, id)
}

// Distribution computes summary statistics over all current ratings.
func (s *Service) Distribution(ctx context.Context) (Distribution, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return Distribution{}, err
	}
	population, err := store.ListRated(ctx)
	if err != nil {
		return Distribution{}, fmt.Errorf("service.distribution: %w", err)
	}
	metrics.UpdatePopulation(len(population))
	if len(population) == 0 {
		return Distribution{}, nil
	}

	scores := make([]float64, len(population))
	votes := 0
	for i, e := range population {
		scores[i] = e.Rating.Score
		votes += e.Rating.VoteCount
	}
	sort.Float64s(scores)

	d := Distribution{
		Count:      len(scores),
		Mean:       stat.Mean(scores, nil),
		Median:     stat.Quantile(0.5, stat.Empirical, scores, nil),
		P10:        stat.Quantile(0.1, stat.Empirical, scores, nil),
		P25:        stat.Quantile(0.25, stat.Empirical, scores, nil),
		P75:        stat.Quantile(0.75, stat.Empirical, scores, nil),
		P90:        stat.Quantile(0.9, stat.Empirical, scores, nil),
		Min:        scores[0],
		Max:        scores[len(scores)-1],
		TotalVotes: votes / 2,
	}
	if len(scores) > 1 {
		d.StdDev = stat.StdDev(scores, nil)
	}
	return d, nil
}

// Seed replaces every season with the given population.
func (s *Service) Seed(ctx context.Context, seasons []model.SeededSeason) (int, error) {
	store, _, _, err := s.engines()
	if err != nil {
		return 0, err
	}
	n, err := store.ReplaceSeasons(ctx, seasons)
	if err != nil {
		return 0, fmt.Errorf("service.seed: %w", err)
	}
	s.logger.Info(ctx, "population replaced", logger.Int("seasons", n))
	return n, nil
}

// IsNotFound reports whether err means a season does not exist. A missing
// rating for an existing season is an integrity fault, not a lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrSeasonNotFound)
}
