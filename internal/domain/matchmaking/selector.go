// Package matchmaking picks the next pair of seasons a session is asked to compare.
package matchmaking

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/internal/domain/pairing"
	"github.com/okian/qbduel/pkg/logger"
	"github.com/okian/qbduel/pkg/metrics"
)

// Defaults for Config.
const (
	DefaultRecencyWindow = 20
	DefaultTolerance     = 50.0
	DefaultMaxRedraws    = 3
)

// Config tunes pair selection.
type Config struct {
	// RecencyWindow is how many of the session's latest pairs count as recent.
	RecencyWindow int
	// Tolerance is the widest rating gap preferred between the two sides.
	Tolerance float64
	// MaxRedraws bounds opponent redraws when the first side is drawn twice.
	MaxRedraws int
	Policy     pairing.Policy
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		RecencyWindow: DefaultRecencyWindow,
		Tolerance:     DefaultTolerance,
		MaxRedraws:    DefaultMaxRedraws,
		Policy:        pairing.DefaultPolicy(),
	}
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.RecencyWindow < 0 {
		return fmt.Errorf("%w: recency window %d", ErrInvalidConfig, c.RecencyWindow)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("%w: tolerance %v", ErrInvalidConfig, c.Tolerance)
	}
	if c.MaxRedraws < 0 {
		return fmt.Errorf("%w: max redraws %d", ErrInvalidConfig, c.MaxRedraws)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Store is what the selector reads from and appends to.
type Store interface {
	ListRated(ctx context.Context) ([]model.RatedEntity, error)
	repository.HistoryLog
}

// Selector chooses pairs for sessions. It is safe for concurrent use.
type Selector struct {
	store  Store
	cfg    Config
	now    func() time.Time
	logger logger.Logger

	src rand.Source
	rng *rand.Rand
}

// NewSelector constructs a Selector over store.
func NewSelector(store Store, opts ...Option) (*Selector, error) {
	s := &Selector{
		store: store,
		cfg:   DefaultConfig(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	if s.src == nil {
		s.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	s.rng = rand.New(&lockedSource{src: s.src})
	if s.logger == nil {
		s.logger = logger.Named("matchmaking")
	}
	return s, nil
}

// SelectPair returns the next pair to show to session and records it in the
// session's history before returning.
func (s *Selector) SelectPair(ctx context.Context, session string) (model.Pair, error) {
	const op = "matchmaking.select_pair"
	start := time.Now()
	defer func() {
		metrics.RecordSelectionLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if session == "" {
		return model.Pair{}, fmt.Errorf("%s: %w: empty session", op, ErrInvalidSession)
	}

	var (
		recent     []model.ShownPair
		population []model.RatedEntity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = s.store.RecentPairs(gctx, session, s.cfg.RecencyWindow)
		return err
	})
	g.Go(func() error {
		var err error
		population, err = s.store.ListRated(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	if distinctIDs(population) < 2 {
		return model.Pair{}, fmt.Errorf("%s: %w: %d seasons", op, ErrInsufficientPopulation, len(population))
	}

	pool := s.freshPool(ctx, population, recent)
	pair, err := s.draw(ctx, pool)
	if err != nil {
		return model.Pair{}, fmt.Errorf("%s: %w", op, err)
	}

	shown := model.ShownPair{Session: session, A: pair.A, B: pair.B, ShownAt: s.now()}
	if err := s.store.RecordPair(ctx, shown); err != nil {
		metrics.RecordErrorByComponent("matchmaking", "record_pair")
		return model.Pair{}, fmt.Errorf("%s: %w: %w", op, ErrRecordPair, err)
	}
	metrics.RecordPairServed()
	return pair, nil
}

// freshPool drops seasons the session saw recently, unless fewer than two
// would remain.
func (s *Selector) freshPool(ctx context.Context, population []model.RatedEntity, recent []model.ShownPair) []model.RatedEntity {
	if len(recent) == 0 {
		return population
	}
	seen := make(map[int64]struct{}, 2*len(recent))
	for _, p := range recent {
		seen[p.A] = struct{}{}
		seen[p.B] = struct{}{}
	}
	fresh := make([]model.RatedEntity, 0, len(population))
	for _, e := range population {
		if _, ok := seen[e.ID]; !ok {
			fresh = append(fresh, e)
		}
	}
	if distinctIDs(fresh) >= 2 {
		return fresh
	}
	metrics.RecordFreshnessFallback()
	s.logger.Debug(ctx, "too few fresh seasons; using full population",
		logger.Int("fresh", len(fresh)),
		logger.Int("population", len(population)),
	)
	return population
}

func (s *Selector) draw(ctx context.Context, pool []model.RatedEntity) (model.Pair, error) {
	idx, err := pairing.Sample(s.rng, s.cfg.Policy.Weights(pool))
	if err != nil {
		return model.Pair{}, err
	}
	a := pool[idx]

	rest := make([]model.RatedEntity, 0, len(pool)-1)
	rest = append(rest, pool[:idx]...)
	rest = append(rest, pool[idx+1:]...)

	candidates := pairing.WithinTolerance(rest, a.Rating.Score, s.cfg.Tolerance)
	if len(candidates) == 0 {
		metrics.RecordToleranceFallback()
		candidates = rest
	}

	b, err := s.cfg.Policy.Draw(s.rng, candidates)
	if err != nil {
		return model.Pair{}, err
	}
	for i := 0; b.ID == a.ID && i < s.cfg.MaxRedraws; i++ {
		metrics.RecordRedraw()
		if b, err = s.cfg.Policy.Draw(s.rng, candidates); err != nil {
			return model.Pair{}, err
		}
	}
	if b.ID == a.ID {
		id, ok := lowestOtherID(pool, a.ID)
		if !ok {
			return model.Pair{}, ErrInsufficientPopulation
		}
		s.logger.Warn(ctx, "redraws exhausted; taking lowest distinct id",
			logger.Int64("a", a.ID),
			logger.Int64("b", id),
		)
		return model.Pair{A: a.ID, B: id}, nil
	}
	return model.Pair{A: a.ID, B: b.ID}, nil
}

func distinctIDs(entities []model.RatedEntity) int {
	seen := make(map[int64]struct{}, len(entities))
	for _, e := range entities {
		seen[e.ID] = struct{}{}
	}
	return len(seen)
}

func lowestOtherID(entities []model.RatedEntity, exclude int64) (int64, bool) {
	var (
		best  int64
		found bool
	)
	for _, e := range entities {
		if e.ID == exclude {
			continue
		}
		if !found || e.ID < best {
			best, found = e.ID, true
		}
	}
	return best, found
}

// lockedSource serialises access to a rand.Source.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}
