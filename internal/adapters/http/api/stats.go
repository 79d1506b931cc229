// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// StatsProvider exposes a snapshot of the ingestion service's counters:
// invocation and failure totals, the configured writer knobs, and the sink
// record count when the sink can report one.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the service snapshot for operators and smoke tests.
// Per-invocation detail lives in the invocation responses and the metrics
// registry; this endpoint is the cheap aggregate view.
type StatsHandler struct {
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{statsProvider: statsProvider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.statsProvider.GetStats())
}
