// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	app "github.com/okian/agon/internal/app"
	"github.com/okian/agon/internal/domain/model"
	"github.com/okian/agon/internal/epoch"
)

// Read shapes returned by the service layer.
type (
	Snapshot          = app.Snapshot
	CharacterView     = app.CharacterView
	ConversationsView = app.ConversationsView
	EligibilityView   = app.EligibilityView
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Read operations serve cached competition state.
	CompetitionSnapshot(ctx context.Context) Snapshot
	ActiveCharacter(ctx context.Context) (CharacterView, error)
	Eligibility(ctx context.Context, address string) (EligibilityView, error)
	Conversations(ctx context.Context, address string) (ConversationsView, error)

	// SubmitForEvaluation queues a conversation for async scoring.
	// Returns false on backpressure.
	SubmitForEvaluation(ctx context.Context, conversationID, address string) (bool, error)

	// Operator surface.
	SetCharacter(ctx context.Context, c model.Character) error
	AdvanceEpoch(ctx context.Context) (epoch.Result, error)
	InvalidateUser(address string)
	InvalidateAll()
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	competitionHandler *CompetitionHandler
	usersHandler       *UsersHandler
	evaluationsHandler *EvaluationsHandler
	adminHandler       *AdminHandler
}

// NewServer creates a new API server with all handlers. adminToken guards
// the admin routes; empty disables them.
func NewServer(deps Dependencies, statsProvider StatsProvider, adminToken string) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		competitionHandler: NewCompetitionHandler(deps),
		usersHandler:       NewUsersHandler(deps),
		evaluationsHandler: NewEvaluationsHandler(deps),
		adminHandler:       NewAdminHandler(deps, adminToken),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/competition/state", MetricsMiddleware(s.competitionHandler.HandleState, "competition_state"))
	mux.HandleFunc("/competition/character", MetricsMiddleware(s.competitionHandler.HandleCharacter, "competition_character"))
	mux.HandleFunc("/users/", MetricsMiddleware(s.usersHandler.HandleUser, "users"))
	mux.HandleFunc("/evaluations", MetricsMiddleware(s.evaluationsHandler.HandlePost, "evaluations"))
	mux.HandleFunc("/admin/", MetricsMiddleware(s.adminHandler.Handle, "admin"))
}

type ackResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
