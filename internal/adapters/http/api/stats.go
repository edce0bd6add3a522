// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/okian/qbduel/pkg/logger"
)

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps Dependencies, log logger.Logger) *StatsHandler {
	return &StatsHandler{deps: deps, logger: log}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	d, err := h.deps.Distribution(r.Context())
	if err != nil {
		writeEngineError(r.Context(), w, h.logger, "api.get_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Count:      d.Count,
		Mean:       d.Mean,
		StdDev:     d.StdDev,
		Median:     d.Median,
		P10:        d.P10,
		P25:        d.P25,
		P75:        d.P75,
		P90:        d.P90,
		Min:        d.Min,
		Max:        d.Max,
		TotalVotes: d.TotalVotes,
	})
}
