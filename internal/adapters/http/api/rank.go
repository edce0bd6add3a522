// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/qbduel/pkg/logger"
)

// RankHandler handles rank requests.
type RankHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies, log logger.Logger) *RankHandler {
	return &RankHandler{deps: deps, logger: log}
}

// HandleGetRank handles GET /api/seasons/{id}/rank requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	st, err := h.deps.Rank(r.Context(), id)
	if err != nil {
		writeEngineError(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rankResponse{
		Rank:      st.Rank,
		Season:    newStandingView(st),
		EloScore:  int(st.Rating.Score),
		VoteCount: st.Rating.VoteCount,
	})
}
