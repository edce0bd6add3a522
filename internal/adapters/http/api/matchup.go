package api

import (
	"net/http"

	"github.com/okian/qbduel/pkg/logger"
)

// MatchupHandler serves the next pair to compare.
type MatchupHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewMatchupHandler creates a new matchup handler.
func NewMatchupHandler(deps Dependencies, log logger.Logger) *MatchupHandler {
	return &MatchupHandler{deps: deps, logger: log}
}

// HandleGetMatchup handles GET /api/matchup requests.
func (h *MatchupHandler) HandleGetMatchup(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matchup"
	ctx := r.Context()
	session, ok := SessionFrom(ctx)
	if !ok {
		writeEngineError(ctx, w, h.logger, op, ErrNoSession)
		return
	}
	m, err := h.deps.Matchup(ctx, session)
	if err != nil {
		writeEngineError(ctx, w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matchupResponse{
		SeasonA: newSeasonView(m.A),
		SeasonB: newSeasonView(m.B),
	})
}
