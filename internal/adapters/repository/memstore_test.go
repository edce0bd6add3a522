package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/qbduel/internal/domain/model"
)

func seeded(scores ...float64) []model.SeededSeason {
	out := make([]model.SeededSeason, len(scores))
	for i, sc := range scores {
		out[i] = model.SeededSeason{
			Season: model.Season{
				ID:         int64(i + 1),
				PlayerName: fmt.Sprintf("QB %d", i+1),
				Year:       2000 + i%3,
				Team:       []string{"KC", "BUF", "GB"}[i%3],
			},
			InitialRating: sc,
		}
	}
	return out
}

func TestMemoryStore_ListRated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithIndexSeed(1), WithSeasons(seeded(1500, 1700, 1600)...))

	got, err := store.ListRated(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(got))
	}
	wantOrder := []int64{2, 3, 1}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("position %d: expected id %d, got %d", i, id, got[i].ID)
		}
	}
}

func TestMemoryStore_GetRatingNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetRating(context.Background(), 42)
	if !errors.Is(err, ErrRatingNotFound) {
		t.Fatalf("expected ErrRatingNotFound, got %v", err)
	}
}

func TestMemoryStore_SetRating(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithSeasons(seeded(1500, 1600)...))

	if err := store.SetRating(ctx, 1, model.Rating{Score: 1500}, 1516, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, err := store.GetRating(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Score != 1516 || r.VoteCount != 1 {
		t.Errorf("expected 1516/1, got %v/%d", r.Score, r.VoteCount)
	}

	// The old expectation is now stale.
	err = store.SetRating(ctx, 1, model.Rating{Score: 1500}, 1530, true)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Same score but a different vote count is still stale.
	err = store.SetRating(ctx, 1, model.Rating{Score: 1516, VoteCount: 0}, 1530, true)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on vote count mismatch, got %v", err)
	}

	if err := store.SetRating(ctx, 1, model.Rating{Score: 1516, VoteCount: 1}, 1520, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, _ = store.GetRating(ctx, 1)
	if r.Score != 1520 || r.VoteCount != 1 {
		t.Errorf("expected 1520/1, got %v/%d", r.Score, r.VoteCount)
	}
}

func TestMemoryStore_CommitResultAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithSeasons(seeded(1500, 1500)...))
	vote := model.Vote{Session: "s1", Winner: 1, Loser: 2}

	// Loser expectation is stale: nothing may change.
	err := store.CommitResult(ctx, vote,
		model.RatingUpdate{EntityID: 1, OldScore: 1500, NewScore: 1516},
		model.RatingUpdate{EntityID: 2, OldScore: 1499, NewScore: 1484},
	)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	w, _ := store.GetRating(ctx, 1)
	if w.Score != 1500 || w.VoteCount != 0 {
		t.Errorf("winner must be untouched, got %v/%d", w.Score, w.VoteCount)
	}
	if n := len(store.Votes()); n != 0 {
		t.Errorf("expected no votes recorded, got %d", n)
	}

	err = store.CommitResult(ctx, vote,
		model.RatingUpdate{EntityID: 1, OldScore: 1500, NewScore: 1516},
		model.RatingUpdate{EntityID: 2, OldScore: 1500, NewScore: 1484},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, _ = store.GetRating(ctx, 1)
	l, _ := store.GetRating(ctx, 2)
	if w.Score != 1516 || w.VoteCount != 1 || l.Score != 1484 || l.VoteCount != 1 {
		t.Errorf("unexpected ratings after commit: %+v %+v", w, l)
	}
	if n := len(store.Votes()); n != 1 {
		t.Errorf("expected one vote recorded, got %d", n)
	}
}

func TestMemoryStore_CommitResultSamePair(t *testing.T) {
	store := NewMemoryStore(WithSeasons(seeded(1500)...))
	u := model.RatingUpdate{EntityID: 1, OldScore: 1500, NewScore: 1516}
	err := store.CommitResult(context.Background(), model.Vote{Winner: 1, Loser: 1}, u, u)
	if !errors.Is(err, ErrSamePair) {
		t.Fatalf("expected ErrSamePair, got %v", err)
	}
}

func TestMemoryStore_History(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	for i := range 5 {
		p := model.ShownPair{Session: "s1", A: int64(i), B: int64(i + 10), ShownAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.RecordPair(ctx, p); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	_ = store.RecordPair(ctx, model.ShownPair{Session: "other", A: 99, B: 98})

	got, err := store.RecentPairs(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(got))
	}
	for i, want := range []int64{4, 3, 2} {
		if got[i].A != want {
			t.Errorf("position %d: expected A=%d, got %d", i, want, got[i].A)
		}
	}

	all, _ := store.RecentPairs(ctx, "s1", 100)
	if len(all) != 5 {
		t.Errorf("expected all 5 pairs, got %d", len(all))
	}
	none, _ := store.RecentPairs(ctx, "unknown", 20)
	if len(none) != 0 {
		t.Errorf("expected no pairs for unknown session, got %d", len(none))
	}
}

func TestMemoryStore_Standings(t *testing.T) {
	ctx := context.Background()
	// Years cycle 2000, 2001, 2002; teams cycle KC, BUF, GB.
	store := NewMemoryStore(WithSeasons(seeded(1500, 1800, 1650, 1700, 1500, 1900)...))

	page, err := store.Standings(ctx, model.StandingsQuery{Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 6 {
		t.Errorf("expected total 6, got %d", page.Total)
	}
	wantIDs := []int64{6, 2, 4}
	for i, st := range page.Standings {
		if st.Season.ID != wantIDs[i] || st.Rank != i+1 {
			t.Errorf("row %d: expected id %d rank %d, got id %d rank %d", i, wantIDs[i], i+1, st.Season.ID, st.Rank)
		}
	}
	if len(page.Years) != 3 || page.Years[0] != 2002 {
		t.Errorf("expected years desc starting at 2002, got %v", page.Years)
	}
	if len(page.Teams) != 3 || page.Teams[0] != "BUF" {
		t.Errorf("expected teams asc starting at BUF, got %v", page.Teams)
	}

	// Offset keeps global ranks.
	page, _ = store.Standings(ctx, model.StandingsQuery{Limit: 10, Offset: 4})
	if len(page.Standings) != 2 || page.Standings[0].Rank != 5 {
		t.Fatalf("expected two rows starting at rank 5, got %+v", page.Standings)
	}
	// Ties on score break by id.
	if page.Standings[0].Season.ID != 1 || page.Standings[1].Season.ID != 5 {
		t.Errorf("expected tie broken by id asc, got %d then %d", page.Standings[0].Season.ID, page.Standings[1].Season.ID)
	}

	// Team filter, case-insensitive.
	page, _ = store.Standings(ctx, model.StandingsQuery{Team: "buf", Limit: 10})
	if page.Total != 2 {
		t.Errorf("expected 2 BUF seasons, got %d", page.Total)
	}

	// Year filter.
	page, _ = store.Standings(ctx, model.StandingsQuery{Year: 2002, Limit: 10})
	if page.Total != 2 || page.Standings[0].Season.ID != 6 {
		t.Errorf("unexpected 2002 page: %+v", page)
	}

	if _, err := store.Standings(ctx, model.StandingsQuery{Limit: 0}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestMemoryStore_RankFollowsUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithSeasons(seeded(1500, 1600, 1700)...))

	st, err := store.Rank(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Rank != 3 {
		t.Errorf("expected rank 3, got %d", st.Rank)
	}

	if err := store.SetRating(ctx, 1, model.Rating{Score: 1500}, 1800, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, _ = store.Rank(ctx, 1)
	if st.Rank != 1 {
		t.Errorf("expected rank 1 after update, got %d", st.Rank)
	}

	if _, err := store.Rank(ctx, 404); !errors.Is(err, ErrSeasonNotFound) {
		t.Errorf("expected ErrSeasonNotFound, got %v", err)
	}
}

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.SessionExists(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("expected unknown session, got %v %v", ok, err)
	}
	if err := store.CreateSession(ctx, "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, _ = store.SessionExists(ctx, "abc")
	if !ok {
		t.Error("expected session to exist")
	}
}

func TestMemoryStore_ReplaceSeasonsClearsState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithSeasons(seeded(1500, 1600)...))
	_ = store.RecordPair(ctx, model.ShownPair{Session: "s", A: 1, B: 2})

	n, err := store.ReplaceSeasons(ctx, seeded(1400, 1450, 1475))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 inserted, got %d", n)
	}
	pairs, _ := store.RecentPairs(ctx, "s", 10)
	if len(pairs) != 0 {
		t.Errorf("expected history cleared, got %d", len(pairs))
	}
	r, _ := store.GetRating(ctx, 3)
	if r.Score != 1475 || r.VoteCount != 0 {
		t.Errorf("unexpected rating %+v", r)
	}
}

func TestMemoryStore_ConcurrentDisjointUpdates(t *testing.T) {
	ctx := context.Background()
	scores := make([]float64, 200)
	for i := range scores {
		scores[i] = 1500
	}
	store := NewMemoryStore(WithSeasons(seeded(scores...)...))

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 200; i += 2 {
		wg.Add(1)
		go func(w, l int64) {
			defer wg.Done()
			errs <- store.CommitResult(ctx, model.Vote{Winner: w, Loser: l},
				model.RatingUpdate{EntityID: w, OldScore: 1500, NewScore: 1516},
				model.RatingUpdate{EntityID: l, OldScore: 1500, NewScore: 1484},
			)
		}(int64(i+1), int64(i+2))
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	list, _ := store.ListRated(ctx)
	for _, e := range list {
		if e.Rating.VoteCount != 1 {
			t.Fatalf("entity %d: expected one vote, got %d", e.ID, e.Rating.VoteCount)
		}
	}
	if list[0].Rating.Score != 1516 || list[len(list)-1].Rating.Score != 1484 {
		t.Errorf("unexpected ordering after updates")
	}
}
