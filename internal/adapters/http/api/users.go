// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strings"
)

// UsersHandler handles per-user read requests.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// HandleUser handles GET /users/{address}/eligibility and
// GET /users/{address}/conversations requests.
func (h *UsersHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	address, resource := parts[0], parts[1]

	switch resource {
	case "eligibility":
		view, err := h.deps.Eligibility(r.Context(), address)
		if err != nil {
			status, code := statusFor(err)
			writeError(w, status, code, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case "conversations":
		view, err := h.deps.Conversations(r.Context(), address)
		if err != nil {
			status, code := statusFor(err)
			writeError(w, status, code, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		http.NotFound(w, r)
	}
}
