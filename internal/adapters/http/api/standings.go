// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/qbduel/internal/domain/model"
	"github.com/okian/qbduel/pkg/logger"
)

// StandingsHandler handles leaderboard requests.
type StandingsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps Dependencies, log logger.Logger) *StandingsHandler {
	return &StandingsHandler{deps: deps, logger: log}
}

// HandleGetStandings handles GET /api/standings?year=&team=&limit=&offset= requests.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"
	q, err := parseStandingsQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	page, err := h.deps.Standings(r.Context(), q)
	if err != nil {
		writeEngineError(r.Context(), w, h.logger, op, err)
		return
	}

	resp := standingsResponse{
		Standings: make([]standingView, 0, len(page.Standings)),
		Total:     page.Total,
		Filters:   filtersView{Years: page.Years, Teams: page.Teams},
	}
	if resp.Filters.Years == nil {
		resp.Filters.Years = []int{}
	}
	if resp.Filters.Teams == nil {
		resp.Filters.Teams = []string{}
	}
	for _, st := range page.Standings {
		resp.Standings = append(resp.Standings, newStandingView(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseStandingsQuery(r *http.Request) (model.StandingsQuery, error) {
	values := r.URL.Query()
	var q model.StandingsQuery
	ints := []struct {
		name string
		dst  *int
	}{
		{"year", &q.Year},
		{"limit", &q.Limit},
		{"offset", &q.Offset},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(values.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return model.StandingsQuery{}, fmt.Errorf("%w: invalid %s", ErrBadRequest, p.name)
		}
		*p.dst = n
	}
	q.Team = strings.TrimSpace(values.Get("team"))
	return q, nil
}
