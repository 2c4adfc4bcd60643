// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// EvaluationsHandler handles evaluation submissions.
type EvaluationsHandler struct {
	deps Dependencies
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps Dependencies) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps}
}

// evaluationRequest mirrors the OpenAPI schema for POST /evaluations.
type evaluationRequest struct {
	ConversationID string `json:"conversation_id"`
	Address        string `json:"address"`
}

func (e evaluationRequest) validate() error {
	switch {
	case strings.TrimSpace(e.ConversationID) == "":
		return errors.New("missing conversation_id")
	case strings.TrimSpace(e.Address) == "":
		return errors.New("missing address")
	}
	return nil
}

// HandlePost handles POST /evaluations requests.
func (h *EvaluationsHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	accepted, err := h.deps.SubmitForEvaluation(r.Context(), req.ConversationID, req.Address)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	if !accepted {
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
