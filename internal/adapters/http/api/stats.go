// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
)

// statsServiceName identifies this service in the stats payload so
// aggregated scrapes can tell the sources apart.
const statsServiceName = "agon-competition"

// StatsProvider exposes the runtime counters surfaced on /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves the competition service statistics.
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
	stats := map[string]interface{}{"service": statsServiceName}
	for k, v := range h.statsProvider.GetStats() {
		stats[k] = v
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(stats)
}
