package rating

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	_ = logger.Init()
	os.Exit(m.Run())
}

func population(scores ...float64) []model.SeededSeason {
	out := make([]model.SeededSeason, len(scores))
	for i, sc := range scores {
		out[i] = model.SeededSeason{
			Season:        model.Season{ID: int64(i + 1), PlayerName: "QB", Year: 2020, Team: "KC"},
			InitialRating: sc,
		}
	}
	return out
}

// scriptedStore fails CommitResult with the queued errors before delegating.
type scriptedStore struct {
	*repository.MemoryStore
	mu       sync.Mutex
	failures []error
	reads    int
	commits  int
}

func (s *scriptedStore) GetRating(ctx context.Context, id int64) (model.Rating, error) {
	s.mu.Lock()
	s.reads++
	s.mu.Unlock()
	return s.MemoryStore.GetRating(ctx, id)
}

func (s *scriptedStore) CommitResult(ctx context.Context, v model.Vote, w, l model.RatingUpdate) error {
	s.mu.Lock()
	s.commits++
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.MemoryStore.CommitResult(ctx, v, w, l)
}

// barrierStore holds the first two commits until both callers have read
// their ratings, forcing the second one onto a stale snapshot.
type barrierStore struct {
	*repository.MemoryStore
	arrived int32
	wg      sync.WaitGroup
}

func newBarrierStore(s *repository.MemoryStore) *barrierStore {
	b := &barrierStore{MemoryStore: s}
	b.wg.Add(2)
	return b
}

func (b *barrierStore) CommitResult(ctx context.Context, v model.Vote, w, l model.RatingUpdate) error {
	if atomic.AddInt32(&b.arrived, 1) <= 2 {
		b.wg.Done()
		b.wg.Wait()
	}
	return b.MemoryStore.CommitResult(ctx, v, w, l)
}

func TestExpected(t *testing.T) {
	Convey("Given two ratings", t, func() {
		Convey("Equal ratings expect an even result", func() {
			So(Expected(1500, 1500), ShouldEqual, 0.5)
		})

		Convey("A 200-point favourite expects about 0.76", func() {
			So(Expected(1600, 1400), ShouldAlmostEqual, 0.7597, 0.0001)
			So(Expected(1400, 1600), ShouldAlmostEqual, 0.2403, 0.0001)
		})

		Convey("Expectations of both sides sum to one", func() {
			So(Expected(1732, 1288)+Expected(1288, 1732), ShouldAlmostEqual, 1.0, 1e-12)
		})
	})
}

func TestNewRatings(t *testing.T) {
	Convey("Given the default K", t, func() {
		Convey("Equal ratings move by half of K", func() {
			w, l := NewRatings(1500, 1500, DefaultK)
			So(w, ShouldEqual, 1516)
			So(l, ShouldEqual, 1484)
		})

		Convey("A favourite winning gains little", func() {
			w, l := NewRatings(1600, 1400, DefaultK)
			So(w, ShouldEqual, 1608)
			So(l, ShouldEqual, 1392)
		})

		Convey("An upset moves both ratings sharply", func() {
			w, l := NewRatings(1400, 1600, DefaultK)
			So(w, ShouldEqual, 1424)
			So(l, ShouldEqual, 1576)
		})

		Convey("Results are whole numbers and bounded by K", func() {
			for _, pair := range [][2]float64{{1203, 1871}, {1999, 1000}, {1517, 1483}} {
				w, l := NewRatings(pair[0], pair[1], DefaultK)
				So(w, ShouldEqual, math.Trunc(w))
				So(l, ShouldEqual, math.Trunc(l))
				So(w-pair[0], ShouldBeBetweenOrEqual, 0, DefaultK)
				So(pair[1]-l, ShouldBeBetweenOrEqual, 0, DefaultK)
			}
		})
	})
}

func TestUpdaterApply(t *testing.T) {
	Convey("Given an updater over a store with three seasons at 1500", t, func() {
		ctx := context.Background()
		fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
		mem := repository.NewMemoryStore(repository.WithSeasons(population(1500, 1500, 1500)...))
		store := &scriptedStore{MemoryStore: mem}
		u := NewUpdater(store, WithClock(func() time.Time { return fixed }))

		Convey("When a vote is applied", func() {
			res, err := u.Apply(ctx, model.Vote{Session: "s1", Winner: 1, Loser: 2})

			Convey("Then both ratings move and the vote is stamped and recorded", func() {
				So(err, ShouldBeNil)
				So(res.Winner, ShouldResemble, model.RatingChange{ID: 1, Old: 1500, New: 1516})
				So(res.Loser, ShouldResemble, model.RatingChange{ID: 2, Old: 1500, New: 1484})

				w, _ := mem.GetRating(ctx, 1)
				l, _ := mem.GetRating(ctx, 2)
				So(w, ShouldResemble, model.Rating{Score: 1516, VoteCount: 1})
				So(l, ShouldResemble, model.Rating{Score: 1484, VoteCount: 1})

				votes := mem.Votes()
				So(votes, ShouldHaveLength, 1)
				So(votes[0].CastAt.Equal(fixed), ShouldBeTrue)
				So(votes[0].Session, ShouldEqual, "s1")
			})
		})

		Convey("When winner equals loser", func() {
			_, err := u.Apply(ctx, model.Vote{Winner: 2, Loser: 2})

			Convey("Then it fails before touching the store", func() {
				So(errors.Is(err, ErrInvalidPair), ShouldBeTrue)
				So(store.reads, ShouldEqual, 0)
				So(store.commits, ShouldEqual, 0)
			})
		})

		Convey("When an id is missing", func() {
			_, err := u.Apply(ctx, model.Vote{Winner: 0, Loser: 2})

			Convey("Then the pair is rejected", func() {
				So(errors.Is(err, ErrInvalidPair), ShouldBeTrue)
				So(store.reads, ShouldEqual, 0)
			})
		})

		Convey("When the loser has no rating", func() {
			_, err := u.Apply(ctx, model.Vote{Winner: 1, Loser: 99})

			Convey("Then the not-found error propagates without retry", func() {
				So(errors.Is(err, repository.ErrRatingNotFound), ShouldBeTrue)
				So(store.commits, ShouldEqual, 0)
				w, _ := mem.GetRating(ctx, 1)
				So(w.Score, ShouldEqual, 1500)
			})
		})

		Convey("When the first commit conflicts", func() {
			store.failures = []error{repository.ErrConflict}
			res, err := u.Apply(ctx, model.Vote{Winner: 3, Loser: 1})

			Convey("Then it retries from a fresh read and succeeds", func() {
				So(err, ShouldBeNil)
				So(res.Winner.New, ShouldEqual, 1516)
				So(store.commits, ShouldEqual, 2)
				So(store.reads, ShouldEqual, 4)
			})
		})

		Convey("When every attempt conflicts", func() {
			store.failures = []error{repository.ErrConflict, repository.ErrConflict, repository.ErrConflict}
			_, err := u.Apply(ctx, model.Vote{Winner: 1, Loser: 2})

			Convey("Then it gives up with a concurrent-update error and changes nothing", func() {
				So(errors.Is(err, ErrConcurrentUpdate), ShouldBeTrue)
				So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
				So(store.commits, ShouldEqual, DefaultMaxAttempts)
				So(mem.Votes(), ShouldBeEmpty)
			})
		})

		Convey("When the store fails with a non-conflict error", func() {
			boom := errors.New("disk on fire")
			store.failures = []error{boom}
			_, err := u.Apply(ctx, model.Vote{Winner: 1, Loser: 2})

			Convey("Then the error is returned without retry", func() {
				So(errors.Is(err, boom), ShouldBeTrue)
				So(store.commits, ShouldEqual, 1)
			})
		})

		Convey("When a custom config is supplied", func() {
			u := NewUpdater(store, WithConfig(Config{K: 16, MaxAttempts: 1}))
			store.failures = []error{repository.ErrConflict}
			_, err := u.Apply(ctx, model.Vote{Winner: 1, Loser: 2})
			So(errors.Is(err, ErrConcurrentUpdate), ShouldBeTrue)

			res, err := u.Apply(ctx, model.Vote{Winner: 1, Loser: 2})
			So(err, ShouldBeNil)
			So(res.Winner.New, ShouldEqual, 1508)
		})
	})
}

func TestUpdaterConcurrency(t *testing.T) {
	Convey("Given votes on disjoint pairs applied concurrently", t, func() {
		ctx := context.Background()
		scores := make([]float64, 20)
		for i := range scores {
			scores[i] = 1500
		}
		mem := repository.NewMemoryStore(repository.WithSeasons(population(scores...)...))
		u := NewUpdater(mem)

		var wg sync.WaitGroup
		errs := make(chan error, 10)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(w, l int64) {
				defer wg.Done()
				_, err := u.Apply(ctx, model.Vote{Winner: w, Loser: l})
				errs <- err
			}(int64(2*i+1), int64(2*i+2))
		}
		wg.Wait()
		close(errs)

		Convey("Then every vote lands exactly once", func() {
			for err := range errs {
				So(err, ShouldBeNil)
			}
			for id := int64(1); id <= 20; id++ {
				r, err := mem.GetRating(ctx, id)
				So(err, ShouldBeNil)
				So(r.VoteCount, ShouldEqual, 1)
				if id%2 == 1 {
					So(r.Score, ShouldEqual, 1516)
				} else {
					So(r.Score, ShouldEqual, 1484)
				}
			}
			So(mem.Votes(), ShouldHaveLength, 10)
		})
	})

	Convey("Given two votes sharing a winner that race on stale reads", t, func() {
		ctx := context.Background()
		mem := repository.NewMemoryStore(repository.WithSeasons(population(1500, 1500, 1500)...))
		u := NewUpdater(newBarrierStore(mem))

		var wg sync.WaitGroup
		var errA, errB error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errA = u.Apply(ctx, model.Vote{Winner: 1, Loser: 2})
		}()
		go func() {
			defer wg.Done()
			_, errB = u.Apply(ctx, model.Vote{Winner: 1, Loser: 3})
		}()
		wg.Wait()

		Convey("Then the result equals some sequential ordering with no lost update", func() {
			So(errA, ShouldBeNil)
			So(errB, ShouldBeNil)

			a, _ := mem.GetRating(ctx, 1)
			b, _ := mem.GetRating(ctx, 2)
			c, _ := mem.GetRating(ctx, 3)
			So(a, ShouldResemble, model.Rating{Score: 1531, VoteCount: 2})
			So(b.Score+c.Score, ShouldEqual, 1484+1485)
			So(b.VoteCount, ShouldEqual, 1)
			So(c.VoteCount, ShouldEqual, 1)
			So(mem.Votes(), ShouldHaveLength, 2)
		})
	})
}
