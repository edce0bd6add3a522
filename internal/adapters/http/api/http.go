// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/qbduel/internal/adapters/repository"
	service "github.com/okian/qbduel/internal/app"
	"github.com/okian/qbduel/internal/domain/matchmaking"
	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/internal/domain/rating"
	"github.com/okian/qbduel/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// EnsureSession validates id or issues a fresh session.
	EnsureSession(ctx context.Context, id string) (string, bool, error)

	Matchup(ctx context.Context, session string) (service.Matchup, error)
	Vote(ctx context.Context, session string, winner, loser int64) (service.Outcome, error)

	// Read operations expose leaderboard data.
	Standings(ctx context.Context, q model.StandingsQuery) (model.StandingsPage, error)
	Rank(ctx context.Context, id int64) (model.Standing, error)
	Distribution(ctx context.Context) (service.Distribution, error)

	Ready(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	sessions         *SessionMiddleware
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	matchupHandler   *MatchupHandler
	voteHandler      *VoteHandler
	standingsHandler *StandingsHandler
	rankHandler      *RankHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	o := options{logger: logger.Named("api")}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		sessions:         NewSessionMiddleware(deps, o.secureCookies, o.logger),
		healthHandler:    NewHealthHandler(deps),
		statsHandler:     NewStatsHandler(deps, o.logger),
		matchupHandler:   NewMatchupHandler(deps, o.logger),
		voteHandler:      NewVoteHandler(deps, o.logger),
		standingsHandler: NewStandingsHandler(deps, o.logger),
		rankHandler:      NewRankHandler(deps, o.logger),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/readyz", MetricsMiddleware(s.healthHandler.HandleReady, "readyz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api", func(r chi.Router) {
		r.With(s.sessions.Handler).Get("/matchup", MetricsMiddleware(s.matchupHandler.HandleGetMatchup, "matchup"))
		r.With(s.sessions.Handler).Post("/vote", MetricsMiddleware(s.voteHandler.HandlePostVote, "vote"))
		r.Get("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
		r.Get("/seasons/{id}/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	})
}

// NewRouter returns a chi router with the common middleware chain and all
// API routes registered.
func NewRouter(ctx context.Context, deps Dependencies, opts ...Option) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	NewServer(deps, opts...).Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeEngineError maps an engine error to its HTTP status. Anything
// unrecognised is reported as a retryable failure without internals.
func writeEngineError(ctx context.Context, w http.ResponseWriter, log logger.Logger, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, rating.ErrInvalidPair),
		errors.Is(err, repository.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err)
	case isUnavailable(err):
		log.Warn(ctx, "engine unavailable", logger.String("op", op), logger.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    "try_again",
			Message: "not enough seasons to compare yet",
		})
	default:
		log.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:    "try_again",
			Message: "something went wrong, please try again",
		})
	}
}

// isNotFound translates upstream not-found errors to 404.
func isNotFound(err error) bool {
	return service.IsNotFound(err)
}

// isUnavailable reports errors that mean the engine cannot serve yet.
func isUnavailable(err error) bool {
	return errors.Is(err, matchmaking.ErrInsufficientPopulation) || errors.Is(err, service.ErrNotStarted)
}
