// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// CompetitionHandler handles competition state requests.
type CompetitionHandler struct {
	deps Dependencies
}

// NewCompetitionHandler creates a new competition handler.
func NewCompetitionHandler(deps Dependencies) *CompetitionHandler {
	return &CompetitionHandler{deps: deps}
}

// HandleState handles GET /competition/state requests. The answer is never
// an error: a degraded or stale snapshot is flagged in the body instead.
func (h *CompetitionHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.CompetitionSnapshot(r.Context()))
}

// HandleCharacter handles GET /competition/character requests.
func (h *CompetitionHandler) HandleCharacter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	view, err := h.deps.ActiveCharacter(r.Context())
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
