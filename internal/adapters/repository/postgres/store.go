// Package postgres implements the repository contracts on PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/qbduel/internal/adapters/repository"
	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/pkg/metrics"
)

//go:embed schema.sql
var schema embed.FS

// Store is a pgx-backed repository.Store.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.open: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.open: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("postgres.migrate: %w", err)
	}
	return nil
}

// Ping implements repository.Store.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close implements repository.Store.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const seasonColumns = `s.id, s.player_name, s.year, s.team, s.headshot_url,
	s.games_played, s.pass_attempts, s.completions, s.passing_yards, s.touchdowns,
	s.interceptions, s.passer_rating, s.rush_attempts, s.rush_yards, s.rush_touchdowns,
	s.sacks, s.fumbles, s.wins, s.losses`

func seasonDest(m *model.Season) []any {
	st := &m.Stats
	return []any{
		&m.ID, &m.PlayerName, &m.Year, &m.Team, &m.HeadshotURL,
		&st.GamesPlayed, &st.PassAttempts, &st.Completions, &st.PassingYards, &st.Touchdowns,
		&st.Interceptions, &st.PasserRating, &st.RushAttempts, &st.RushYards, &st.RushTouchdowns,
		&st.Sacks, &st.Fumbles, &m.Wins, &m.Losses,
	}
}

// ListRated implements repository.EntityStore.
func (s *Store) ListRated(ctx context.Context) ([]model.RatedEntity, error) {
	defer observeQuery(time.Now())
	rows, err := s.pool.Query(ctx, `
		SELECT s.id, r.elo_score, r.vote_count
		FROM qb_seasons s
		LEFT JOIN elo_ratings r ON r.season_id = s.id
		ORDER BY r.elo_score DESC NULLS LAST, s.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres.list_rated: %w", err)
	}
	defer rows.Close()

	var out []model.RatedEntity
	for rows.Next() {
		var (
			id    int64
			score *float64
			votes *int
		)
		if err := rows.Scan(&id, &score, &votes); err != nil {
			return nil, fmt.Errorf("postgres.list_rated: %w", err)
		}
		if score == nil || votes == nil {
			metrics.RecordErrorByComponent("repository", "rating_not_found")
			return nil, fmt.Errorf("season %d: %w", id, repository.ErrRatingNotFound)
		}
		out = append(out, model.RatedEntity{ID: id, Rating: model.Rating{Score: *score, VoteCount: *votes}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.list_rated: %w", err)
	}
	return out, nil
}

// GetRating implements repository.EntityStore.
func (s *Store) GetRating(ctx context.Context, id int64) (model.Rating, error) {
	defer observeQuery(time.Now())
	var r model.Rating
	err := s.pool.QueryRow(ctx,
		`SELECT elo_score, vote_count FROM elo_ratings WHERE season_id = $1`, id,
	).Scan(&r.Score, &r.VoteCount)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "rating_not_found")
		return model.Rating{}, fmt.Errorf("season %d: %w", id, repository.ErrRatingNotFound)
	}
	if err != nil {
		return model.Rating{}, fmt.Errorf("postgres.get_rating: %w", err)
	}
	return r, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SetRating implements repository.EntityStore.
func (s *Store) SetRating(ctx context.Context, id int64, expected model.Rating, newScore float64, incrementVotes bool) error {
	defer observeUpdate(time.Now())
	inc := 0
	if incrementVotes {
		inc = 1
	}
	return casUpdate(ctx, s.pool, id, expected, newScore, inc)
}

func casUpdate(ctx context.Context, q querier, id int64, expected model.Rating, newScore float64, inc int) error {
	tag, err := q.Exec(ctx, `
		UPDATE elo_ratings
		SET elo_score = $2, vote_count = vote_count + $3, updated_at = now()
		WHERE season_id = $1 AND elo_score = $4 AND vote_count = $5`,
		id, newScore, inc, expected.Score, expected.VoteCount)
	if err != nil {
		return fmt.Errorf("postgres.set_rating: %w", classify(err))
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM elo_ratings WHERE season_id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("postgres.set_rating: %w", err)
	}
	if !exists {
		return fmt.Errorf("season %d: %w", id, repository.ErrRatingNotFound)
	}
	metrics.RecordErrorByComponent("repository", "conflict")
	return fmt.Errorf("season %d: %w", id, repository.ErrConflict)
}

// Seasons implements repository.EntityStore.
func (s *Store) Seasons(ctx context.Context, ids ...int64) (map[int64]model.Season, error) {
	defer observeQuery(time.Now())
	out := make(map[int64]model.Season, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+seasonColumns+` FROM qb_seasons s WHERE s.id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres.seasons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.Season
		if err := rows.Scan(seasonDest(&m)...); err != nil {
			return nil, fmt.Errorf("postgres.seasons: %w", err)
		}
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.seasons: %w", err)
	}
	return out, nil
}

// RecentPairs implements repository.HistoryLog.
func (s *Store) RecentPairs(ctx context.Context, session string, limit int) ([]model.ShownPair, error) {
	defer observeQuery(time.Now())
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT session_id, season_a_id, season_b_id, shown_at
		FROM matchup_history
		WHERE session_id = $1
		ORDER BY shown_at DESC, id DESC
		LIMIT $2`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres.recent_pairs: %w", err)
	}
	defer rows.Close()

	var out []model.ShownPair
	for rows.Next() {
		var p model.ShownPair
		if err := rows.Scan(&p.Session, &p.A, &p.B, &p.ShownAt); err != nil {
			return nil, fmt.Errorf("postgres.recent_pairs: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres.recent_pairs: %w", err)
	}
	return out, nil
}

// RecordPair implements repository.HistoryLog.
func (s *Store) RecordPair(ctx context.Context, p model.ShownPair) error {
	defer observeUpdate(time.Now())
	shownAt := p.ShownAt
	if shownAt.IsZero() {
		shownAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matchup_history(session_id, season_a_id, season_b_id, shown_at)
		VALUES ($1, $2, $3, $4)`, p.Session, p.A, p.B, shownAt)
	if err != nil {
		return fmt.Errorf("postgres.record_pair: %w", err)
	}
	return nil
}

// CommitResult implements repository.ResultWriter: both conditional rating
// updates and the vote insert share one transaction.
func (s *Store) CommitResult(ctx context.Context, v model.Vote, winner, loser model.RatingUpdate) error {
	defer observeUpdate(time.Now())
	if winner.EntityID == loser.EntityID {
		return repository.ErrSamePair
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("postgres.commit_result: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // safe if already committed

	// Lock rows in id order so opposite-direction votes on one pair queue
	// instead of deadlocking.
	updates := [2]model.RatingUpdate{winner, loser}
	if updates[1].EntityID < updates[0].EntityID {
		updates[0], updates[1] = updates[1], updates[0]
	}
	for _, u := range updates {
		expected := model.Rating{Score: u.OldScore, VoteCount: u.OldVotes}
		if err := casUpdate(ctx, tx, u.EntityID, expected, u.NewScore, 1); err != nil {
			return err
		}
	}
	castAt := v.CastAt
	if castAt.IsZero() {
		castAt = time.Now()
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO votes(session_id, winner_id, loser_id, created_at)
		VALUES ($1, $2, $3, $4)`, v.Session, v.Winner, v.Loser, castAt); err != nil {
		return fmt.Errorf("postgres.commit_result: %w", classify(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.commit_result: %w", classify(err))
	}
	return nil
}

// SessionExists implements repository.SessionStore.
func (s *Store) SessionExists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("postgres.session_exists: %w", err)
	}
	return ok, nil
}

// CreateSession implements repository.SessionStore.
func (s *Store) CreateSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO sessions(id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return fmt.Errorf("postgres.create_session: %w", err)
	}
	return nil
}

const standingsFilter = `($1::int = 0 OR s.year = $1) AND ($2::text = '' OR lower(s.team) = lower($2))`

// Standings implements repository.StandingsReader.
func (s *Store) Standings(ctx context.Context, q model.StandingsQuery) (model.StandingsPage, error) {
	defer observeQuery(time.Now())
	if q.Limit < 1 || q.Offset < 0 {
		return model.StandingsPage{}, repository.ErrInvalidLimit
	}
	team := strings.TrimSpace(q.Team)

	page := model.StandingsPage{Standings: make([]model.Standing, 0, q.Limit)}
	if err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM qb_seasons s JOIN elo_ratings r ON r.season_id = s.id
		WHERE `+standingsFilter, q.Year, team).Scan(&page.Total); err != nil {
		return model.StandingsPage{}, fmt.Errorf("postgres.standings: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+seasonColumns+`, r.elo_score, r.vote_count
		FROM qb_seasons s JOIN elo_ratings r ON r.season_id = s.id
		WHERE `+standingsFilter+`
		ORDER BY r.elo_score DESC, s.id ASC
		LIMIT $3 OFFSET $4`, q.Year, team, q.Limit, q.Offset)
	if err != nil {
		return model.StandingsPage{}, fmt.Errorf("postgres.standings: %w", err)
	}
	defer rows.Close()
	for i := 0; rows.Next(); i++ {
		st := model.Standing{Rank: q.Offset + i + 1}
		dest := append(seasonDest(&st.Season), &st.Rating.Score, &st.Rating.VoteCount)
		if err := rows.Scan(dest...); err != nil {
			return model.StandingsPage{}, fmt.Errorf("postgres.standings: %w", err)
		}
		page.Standings = append(page.Standings, st)
	}
	if err := rows.Err(); err != nil {
		return model.StandingsPage{}, fmt.Errorf("postgres.standings: %w", err)
	}

	if page.Years, page.Teams, err = s.filterOptions(ctx); err != nil {
		return model.StandingsPage{}, err
	}
	return page, nil
}

func (s *Store) filterOptions(ctx context.Context) ([]int, []string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT year FROM qb_seasons ORDER BY year DESC`)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres.filter_options: %w", err)
	}
	years, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, nil, fmt.Errorf("postgres.filter_options: %w", err)
	}
	rows, err = s.pool.Query(ctx, `SELECT DISTINCT team FROM qb_seasons ORDER BY team ASC`)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres.filter_options: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, nil, fmt.Errorf("postgres.filter_options: %w", err)
	}
	return years, teams, nil
}

// Rank implements repository.StandingsReader.
func (s *Store) Rank(ctx context.Context, id int64) (model.Standing, error) {
	defer observeQuery(time.Now())
	var st model.Standing
	dest := append(seasonDest(&st.Season), &st.Rating.Score, &st.Rating.VoteCount, &st.Rank)
	err := s.pool.QueryRow(ctx, `
		SELECT `+seasonColumns+`, r.elo_score, r.vote_count,
			(SELECT count(*) FROM elo_ratings o
			 WHERE o.elo_score > r.elo_score
			    OR (o.elo_score = r.elo_score AND o.season_id < r.season_id)) + 1
		FROM qb_seasons s JOIN elo_ratings r ON r.season_id = s.id
		WHERE s.id = $1`, id).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Standing{}, fmt.Errorf("season %d: %w", id, repository.ErrSeasonNotFound)
	}
	if err != nil {
		return model.Standing{}, fmt.Errorf("postgres.rank: %w", err)
	}
	return st, nil
}

// ReplaceSeasons implements repository.Seeder in a single transaction.
func (s *Store) ReplaceSeasons(ctx context.Context, seasons []model.SeededSeason) (int, error) {
	defer observeUpdate(time.Now())
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("postgres.replace_seasons: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // safe if already committed

	if _, err := tx.Exec(ctx,
		`TRUNCATE votes, matchup_history, elo_ratings, qb_seasons RESTART IDENTITY CASCADE`); err != nil {
		return 0, fmt.Errorf("postgres.replace_seasons: %w", err)
	}

	for _, ss := range seasons {
		m := ss.Season
		st := m.Stats
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO qb_seasons(
				id, player_name, year, team, headshot_url,
				games_played, pass_attempts, completions, passing_yards, touchdowns,
				interceptions, passer_rating, rush_attempts, rush_yards, rush_touchdowns,
				sacks, fumbles, wins, losses)
			VALUES (COALESCE($1, nextval(pg_get_serial_sequence('qb_seasons', 'id'))),
				$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			RETURNING id`,
			nullableID(m.ID), m.PlayerName, m.Year, m.Team, m.HeadshotURL,
			st.GamesPlayed, st.PassAttempts, st.Completions, st.PassingYards, st.Touchdowns,
			st.Interceptions, st.PasserRating, st.RushAttempts, st.RushYards, st.RushTouchdowns,
			st.Sacks, st.Fumbles, m.Wins, m.Losses,
		).Scan(&id)
		if err != nil {
			return 0, fmt.Errorf("postgres.replace_seasons: %s %d: %w", m.PlayerName, m.Year, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO elo_ratings(season_id, elo_score, vote_count) VALUES ($1, $2, 0)`,
			id, ss.InitialRating); err != nil {
			return 0, fmt.Errorf("postgres.replace_seasons: %w", err)
		}
	}

	// Explicit ids bypass the sequence; move it past the highest one.
	if _, err := tx.Exec(ctx, `
		SELECT setval(pg_get_serial_sequence('qb_seasons', 'id'), COALESCE(MAX(id), 0) + 1, false)
		FROM qb_seasons`); err != nil {
		return 0, fmt.Errorf("postgres.replace_seasons: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres.replace_seasons: %w", err)
	}
	metrics.UpdatePopulation(len(seasons))
	return len(seasons), nil
}

func nullableID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// SQLSTATE codes for transactions Postgres aborted in favour of a concurrent one.
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// classify marks aborted-transaction errors as repository.ErrConflict so the
// rating updater retries them like a failed compare-and-swap.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			metrics.RecordErrorByComponent("repository", "conflict")
			return fmt.Errorf("%w: sqlstate %s: %w", repository.ErrConflict, pgErr.Code, err)
		}
	}
	return err
}

func observeQuery(start time.Time) {
	metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeUpdate(start time.Time) {
	metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
}
