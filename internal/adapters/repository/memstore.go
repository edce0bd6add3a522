package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/pkg/metrics"
)

// record is one season plus its rating state.
type record struct {
	season model.Season
	rating model.Rating
}

// MemoryStore keeps everything in process memory behind a single lock.
// Every multi-entity write happens inside one critical section, which gives
// CommitResult the same all-or-nothing behavior as a database transaction.
type MemoryStore struct {
	mu       sync.RWMutex
	root     *node
	byID     map[int64]*record
	history  map[string][]model.ShownPair
	votes    []model.Vote
	sessions map[string]time.Time
	nextID   int64

	seed    uint64
	rng     *rand.Rand
	now     func() time.Time
	preload []model.SeededSeason
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byID:     make(map[int64]*record),
		history:  make(map[string][]model.ShownPair),
		sessions: make(map[string]time.Time),
		seed:     rand.Uint64(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	if len(s.preload) > 0 {
		s.replaceLocked(s.preload)
		s.preload = nil
	}
	return s
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// ListRated implements EntityStore.
func (s *MemoryStore) ListRated(ctx context.Context) ([]model.RatedEntity, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RatedEntity, 0, len(s.byID))
	walk(s.root, func(id int64) bool {
		out = append(out, model.RatedEntity{ID: id, Rating: s.byID[id].rating})
		return true
	})
	return out, nil
}

// GetRating implements EntityStore.
func (s *MemoryStore) GetRating(ctx context.Context, id int64) (model.Rating, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Rating{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "rating_not_found")
		return model.Rating{}, fmt.Errorf("season %d: %w", id, ErrRatingNotFound)
	}
	return rec.rating, nil
}

// SetRating implements EntityStore.
func (s *MemoryStore) SetRating(ctx context.Context, id int64, expected model.Rating, newScore float64, incrementVotes bool) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(id, expected); err != nil {
		return err
	}
	votes := 0
	if incrementVotes {
		votes = 1
	}
	s.applyLocked(id, newScore, votes)
	return nil
}

// Seasons implements EntityStore.
func (s *MemoryStore) Seasons(ctx context.Context, ids ...int64) (map[int64]model.Season, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]model.Season, len(ids))
	for _, id := range ids {
		if rec, ok := s.byID[id]; ok {
			out[id] = rec.season
		}
	}
	return out, nil
}

// RecentPairs implements HistoryLog.
func (s *MemoryStore) RecentPairs(ctx context.Context, session string, limit int) ([]model.ShownPair, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[session]
	n := min(limit, len(h))
	out := make([]model.ShownPair, 0, n)
	for i := len(h) - 1; i >= len(h)-n; i-- {
		out = append(out, h[i])
	}
	return out, nil
}

// RecordPair implements HistoryLog.
func (s *MemoryStore) RecordPair(ctx context.Context, p model.ShownPair) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[p.Session] = append(s.history[p.Session], p)
	return nil
}

// CommitResult implements ResultWriter.
func (s *MemoryStore) CommitResult(ctx context.Context, v model.Vote, winner, loser model.RatingUpdate) error {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return err
	}
	if winner.EntityID == loser.EntityID {
		return ErrSamePair
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate both writes before touching anything.
	for _, u := range [2]model.RatingUpdate{winner, loser} {
		if err := s.checkLocked(u.EntityID, model.Rating{Score: u.OldScore, VoteCount: u.OldVotes}); err != nil {
			return err
		}
	}
	s.applyLocked(winner.EntityID, winner.NewScore, 1)
	s.applyLocked(loser.EntityID, loser.NewScore, 1)
	s.votes = append(s.votes, v)
	return nil
}

// SessionExists implements SessionStore.
func (s *MemoryStore) SessionExists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[id]
	return ok, nil
}

// CreateSession implements SessionStore.
func (s *MemoryStore) CreateSession(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = s.now()
	}
	return nil
}

// Standings implements StandingsReader. Rows are ordered by score desc then
// id asc; rank is the global position within the filtered ordering.
func (s *MemoryStore) Standings(ctx context.Context, q model.StandingsQuery) (model.StandingsPage, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return model.StandingsPage{}, err
	}
	if q.Limit < 1 || q.Offset < 0 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return model.StandingsPage{}, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	page := model.StandingsPage{Standings: make([]model.Standing, 0, q.Limit)}
	pos := 0
	walk(s.root, func(id int64) bool {
		rec := s.byID[id]
		if q.Year != 0 && rec.season.Year != q.Year {
			return true
		}
		if q.Team != "" && !strings.EqualFold(rec.season.Team, q.Team) {
			return true
		}
		if pos >= q.Offset && len(page.Standings) < q.Limit {
			page.Standings = append(page.Standings, model.Standing{
				Rank:   pos + 1,
				Season: rec.season,
				Rating: rec.rating,
			})
		}
		pos++
		return true
	})
	page.Total = pos
	page.Years, page.Teams = s.filterOptionsLocked()
	return page, nil
}

// Rank implements StandingsReader.
func (s *MemoryStore) Rank(ctx context.Context, id int64) (model.Standing, error) {
	defer observeQuery(time.Now())
	if err := ctx.Err(); err != nil {
		return model.Standing{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Standing{}, fmt.Errorf("season %d: %w", id, ErrSeasonNotFound)
	}
	return model.Standing{
		Rank:   position(s.root, id, rec.rating.Score) + 1,
		Season: rec.season,
		Rating: rec.rating,
	}, nil
}

// ReplaceSeasons implements Seeder.
func (s *MemoryStore) ReplaceSeasons(ctx context.Context, seasons []model.SeededSeason) (int, error) {
	defer observeUpdate(time.Now())
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replaceLocked(seasons), nil
}

// Votes returns a copy of every recorded vote.
func (s *MemoryStore) Votes() []model.Vote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Vote, len(s.votes))
	copy(out, s.votes)
	return out
}

func (s *MemoryStore) replaceLocked(seasons []model.SeededSeason) int {
	s.root = nil
	s.byID = make(map[int64]*record, len(seasons))
	s.history = make(map[string][]model.ShownPair)
	s.votes = nil
	s.nextID = 0
	for _, ss := range seasons {
		season := ss.Season
		if season.ID == 0 {
			season.ID = s.nextID + 1
		}
		s.nextID = max(s.nextID, season.ID)
		if old, ok := s.byID[season.ID]; ok {
			s.root = deleteNode(s.root, season.ID, old.rating.Score)
		}
		s.byID[season.ID] = &record{season: season, rating: model.Rating{Score: ss.InitialRating}}
		s.root = insert(s.root, season.ID, ss.InitialRating, s.rng.Uint64())
	}
	metrics.UpdatePopulation(len(s.byID))
	return len(s.byID)
}

func (s *MemoryStore) checkLocked(id int64, expected model.Rating) error {
	rec, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("season %d: %w", id, ErrRatingNotFound)
	}
	if rec.rating != expected {
		return fmt.Errorf("season %d: %w", id, ErrConflict)
	}
	return nil
}

func (s *MemoryStore) applyLocked(id int64, score float64, votes int) {
	rec := s.byID[id]
	s.root = deleteNode(s.root, id, rec.rating.Score)
	rec.rating.Score = score
	rec.rating.VoteCount += votes
	s.root = insert(s.root, id, score, s.rng.Uint64())
}

func (s *MemoryStore) filterOptionsLocked() ([]int, []string) {
	yearSet := make(map[int]struct{})
	teamSet := make(map[string]struct{})
	for _, rec := range s.byID {
		yearSet[rec.season.Year] = struct{}{}
		teamSet[rec.season.Team] = struct{}{}
	}
	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	teams := make([]string, 0, len(teamSet))
	for t := range teamSet {
		teams = append(teams, t)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	sort.Strings(teams)
	return years, teams
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}
