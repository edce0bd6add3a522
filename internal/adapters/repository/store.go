// Package repository defines the storage contracts the engine consumes and an
// in-memory implementation of them.
package repository

import (
	"context"

	"github.com/okian/qbduel/internal/domain/model"
)

// EntityStore exposes seasons and their current ratings.
type EntityStore interface {
	// ListRated returns every season with its rating. A season without a
	// rating is an integrity violation and yields ErrRatingNotFound.
	ListRated(ctx context.Context) ([]model.RatedEntity, error)

	// GetRating returns the rating for one season or ErrRatingNotFound.
	GetRating(ctx context.Context, id int64) (model.Rating, error)

	// SetRating writes newScore only while the stored rating still equals
	// expected, optionally bumping the vote count. Returns ErrConflict otherwise.
	SetRating(ctx context.Context, id int64, expected model.Rating, newScore float64, incrementVotes bool) error

	// Seasons returns the static records for the given ids. Unknown ids are
	// absent from the result map.
	Seasons(ctx context.Context, ids ...int64) (map[int64]model.Season, error)
}

// HistoryLog is the append-only record of pairs shown to sessions.
type HistoryLog interface {
	// RecentPairs returns up to limit pairs for session, most recent first.
	RecentPairs(ctx context.Context, session string, limit int) ([]model.ShownPair, error)
	// RecordPair appends a shown pair.
	RecordPair(ctx context.Context, p model.ShownPair) error
}

// ResultWriter commits a vote and both rating writes as one unit.
type ResultWriter interface {
	// CommitResult records the vote and applies both conditional updates, or
	// nothing at all. A stale update yields ErrConflict.
	CommitResult(ctx context.Context, v model.Vote, winner, loser model.RatingUpdate) error
}

// SessionStore tracks anonymous sessions.
type SessionStore interface {
	SessionExists(ctx context.Context, id string) (bool, error)
	CreateSession(ctx context.Context, id string) error
}

// StandingsReader serves the ranked leaderboard.
type StandingsReader interface {
	Standings(ctx context.Context, q model.StandingsQuery) (model.StandingsPage, error)
	// Rank returns the global standing of one season or ErrSeasonNotFound.
	Rank(ctx context.Context, id int64) (model.Standing, error)
}

// Seeder replaces the season population with freshly seeded records.
type Seeder interface {
	// ReplaceSeasons drops all seasons, ratings, votes and history and inserts
	// the given seasons with their initial ratings. Returns the number inserted.
	ReplaceSeasons(ctx context.Context, seasons []model.SeededSeason) (int, error)
}

// Store bundles every contract a backing store provides.
type Store interface {
	EntityStore
	HistoryLog
	ResultWriter
	SessionStore
	StandingsReader
	Seeder

	Ping(ctx context.Context) error
	Close() error
}
