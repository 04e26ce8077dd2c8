// Package api implements the HTTP layer for the psychosocial assessment
// engine. Handlers are methods on *Server. Each handler file is responsible
// for one resource group and only imports the dependencies it actually uses.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/notify"
	"github.com/unomed/psi-backend/internal/store"
	"github.com/unomed/psi-backend/internal/worker"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// BaseURL is used to construct the portal access link in invites.
	// e.g. "https://app.unomed.com.br"
	BaseURL string

	// Env is "production", "staging", or "development".
	Env string

	// TokenTTLDays is the portal link lifetime applied when a send request
	// does not specify one.
	TokenTTLDays int

	// AlertRecipients is the HR inbox list that receives high-risk alerts
	// raised during response submission.
	AlertRecipients []string
}

// Server holds all shared dependencies. Each handler file attaches methods to
// this type and uses only the fields it needs.
type Server struct {
	// q handles all single-query reads. Injected directly — no repo wrapper.
	q db.Querier

	// store handles multi-step atomic writes.
	store *store.Store

	// notifier delivers the portal invite after a token is issued.
	notifier notify.Sender

	// worker enqueues freshly created alert work items for same-cycle
	// dispatch.
	worker worker.Enqueuer

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	q db.Querier,
	st *store.Store,
	notifier notify.Sender,
	enqueuer worker.Enqueuer,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		q:        q,
		store:    st,
		notifier: notifier,
		worker:   enqueuer,
		cfg:      cfg,
		logger:   logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// ── API v1 ────────────────────────────────────────────────────────────────
	r.Route("/api", func(r chi.Router) {

		// Questionnaire templates.
		r.Post("/templates", s.handleCreateTemplate)

		// Assessment lifecycle — HR-facing.
		r.Post("/assessments", s.handleScheduleAssessment)
		r.Route("/assessments/{assessmentID}", func(r chi.Router) {
			r.Get("/", s.handleGetAssessment)
			r.Post("/send", s.handleSendAssessment)
			r.Post("/cancel", s.handleCancelAssessment)
			r.Get("/reminders", s.handleListAssessmentReminders)
		})

		// Respondent portal — no auth (opaque access token in the link).
		r.Get("/portal/{templateID}", s.handleOpenPortal)
		r.Post("/portal/{templateID}/responses", s.handleSubmitResponses)

		// Action plans.
		r.Post("/action-plans", s.handleCreateActionPlan)

		// Per-tenant risk configuration.
		r.Route("/companies/{companyID}/risk-config", func(r chi.Router) {
			r.Get("/", s.handleGetRiskConfig)
			r.Put("/", s.handlePutRiskConfig)
		})
	})

	return r
}
