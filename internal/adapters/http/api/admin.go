// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okian/agon/internal/domain/model"
)

// AdminHandler handles the operator surface: cache control, epoch
// advancement and character installation. All routes require the bearer
// token configured at startup; an empty token disables the surface.
type AdminHandler struct {
	deps  Dependencies
	token string
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies, token string) *AdminHandler {
	return &AdminHandler{deps: deps, token: token}
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	presented, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.token)) == 1
}

// Handle dispatches POST /admin/* requests.
func (h *AdminHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
		return
	}

	switch strings.TrimPrefix(r.URL.Path, "/admin/") {
	case "cache/invalidate":
		h.handleInvalidate(w, r)
	case "epoch/advance":
		h.handleAdvance(w, r)
	case "character":
		h.handleSetCharacter(w, r)
	default:
		http.NotFound(w, r)
	}
}

// invalidateRequest targets one address or the whole cache.
type invalidateRequest struct {
	Address string `json:"address"`
	All     bool   `json:"all"`
}

func (h *AdminHandler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	switch {
	case req.All:
		h.deps.InvalidateAll()
	case model.ValidAddress(req.Address):
		h.deps.InvalidateUser(req.Address)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "invalidated"})
}

func (h *AdminHandler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	result, err := h.deps.AdvanceEpoch(r.Context())
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// characterRequest mirrors the OpenAPI schema for POST /admin/character.
type characterRequest struct {
	Name   string `json:"name"`
	Task   string `json:"task"`
	Traits []struct {
		Name      string `json:"name"`
		Intensity int    `json:"intensity"`
	} `json:"traits"`
}

func (h *AdminHandler) handleSetCharacter(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	c := model.Character{Name: req.Name, Task: req.Task}
	for _, t := range req.Traits {
		c.Traits = append(c.Traits, model.Trait{Name: t.Name, Intensity: t.Intensity})
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if err := h.deps.SetCharacter(r.Context(), c); err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "character_set"})
}
