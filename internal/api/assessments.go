package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/notify"
	"github.com/unomed/psi-backend/internal/recurrence"
	"github.com/unomed/psi-backend/internal/reminder"
	"github.com/unomed/psi-backend/internal/store"
)

// dateLayout is the wire format for due/scheduled dates. Times of day are not
// part of the scheduling model.
const dateLayout = "2006-01-02"

// ─── RESPONSE SHAPES ─────────────────────────────────────────────────────────

// assessmentResponse flattens db.AssessmentInstance into a clean JSON
// structure. Result fields are omitted until the instance completes.
type assessmentResponse struct {
	ID               string          `json:"id"`
	CompanyID        string          `json:"company_id"`
	EmployeeID       string          `json:"employee_id"`
	EmployeeName     string          `json:"employee_name"`
	EmployeeEmail    string          `json:"employee_email"`
	TemplateID       string          `json:"template_id"`
	Status           string          `json:"status"`
	ScheduledDate    string          `json:"scheduled_date"`
	Recurrence       string          `json:"recurrence,omitempty"`
	CompletedAt      string          `json:"completed_at,omitempty"`
	OverallScore     *int16          `json:"overall_score,omitempty"`
	RiskTier         string          `json:"risk_tier,omitempty"`
	DominantCategory string          `json:"dominant_category,omitempty"`
	CategoryScores   json.RawMessage `json:"category_scores,omitempty"`
}

func toAssessmentResponse(a db.AssessmentInstance) assessmentResponse {
	resp := assessmentResponse{
		ID:            a.ID.String(),
		CompanyID:     a.CompanyID.String(),
		EmployeeID:    a.EmployeeID.String(),
		EmployeeName:  a.EmployeeName,
		EmployeeEmail: a.EmployeeEmail,
		TemplateID:    a.TemplateID.String(),
		Status:        string(a.Status),
		ScheduledDate: a.ScheduledDate.Format(dateLayout),
		Recurrence:    a.Recurrence.String,
	}
	if a.CompletedAt.Valid {
		resp.CompletedAt = a.CompletedAt.Time.UTC().Format(time.RFC3339)
	}
	if a.OverallScore.Valid {
		score := a.OverallScore.Int16
		resp.OverallScore = &score
	}
	resp.RiskTier = a.RiskTier.String
	resp.DominantCategory = a.DominantCategory.String
	if a.CategoryScores.Valid {
		resp.CategoryScores = json.RawMessage(a.CategoryScores.RawMessage)
	}
	return resp
}

// ─── POST /api/assessments ───────────────────────────────────────────────────

type scheduleAssessmentRequest struct {
	CompanyID     string   `json:"company_id"`
	EmployeeID    string   `json:"employee_id"`
	EmployeeName  string   `json:"employee_name"`
	EmployeeEmail string   `json:"employee_email"`
	TemplateID    string   `json:"template_id"`
	ScheduledDate string   `json:"scheduled_date"`
	Recurrence    string   `json:"recurrence"` // optional per-instance override
	Recipients    []string `json:"recipients"` // reminder recipients, usually HR
}

// handleScheduleAssessment creates a Scheduled instance together with its
// due-date reminders.
func (s *Server) handleScheduleAssessment(w http.ResponseWriter, r *http.Request) {
	var req scheduleAssessmentRequest
	if !decode(w, r, &req) {
		return
	}

	companyID, err := parseUUID(req.CompanyID)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid company_id")
		return
	}
	employeeID, err := parseUUID(req.EmployeeID)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid employee_id")
		return
	}
	templateID, err := parseUUID(req.TemplateID)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid template_id")
		return
	}
	if strings.TrimSpace(req.EmployeeName) == "" {
		respondErr(w, http.StatusBadRequest, "employee_name is required")
		return
	}
	if strings.TrimSpace(req.EmployeeEmail) == "" {
		respondErr(w, http.StatusBadRequest, "employee_email is required")
		return
	}
	scheduledDate, err := time.Parse(dateLayout, req.ScheduledDate)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "scheduled_date must be YYYY-MM-DD")
		return
	}
	if req.Recurrence != "" {
		if _, err := recurrence.ParseUnit(req.Recurrence); err != nil {
			respondErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	inst, err := s.store.ScheduleAssessment(r.Context(), store.ScheduleAssessmentParams{
		CompanyID:     companyID,
		EmployeeID:    employeeID,
		EmployeeName:  strings.TrimSpace(req.EmployeeName),
		EmployeeEmail: strings.TrimSpace(req.EmployeeEmail),
		TemplateID:    templateID,
		ScheduledDate: scheduledDate,
		Recurrence:    req.Recurrence,
		Recipients:    req.Recipients,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("schedule assessment: %w", err))
		return
	}

	respond(w, http.StatusCreated, toAssessmentResponse(inst))
}

// ─── GET /api/assessments/:assessmentID ──────────────────────────────────────

func (s *Server) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment id")
		return
	}

	inst, err := s.q.GetAssessmentByID(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "assessment not found")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get assessment: %w", err))
		return
	}

	respond(w, http.StatusOK, toAssessmentResponse(inst))
}

// ─── POST /api/assessments/:assessmentID/send ────────────────────────────────

type sendAssessmentRequest struct {
	// TTLDays overrides the configured link lifetime. Zero uses the default.
	TTLDays int `json:"ttl_days"`
}

type sendAssessmentResponse struct {
	Assessment assessmentResponse `json:"assessment"`
	PortalURL  string             `json:"portal_url"`
	ExpiresAt  string             `json:"expires_at"`
}

// handleSendAssessment issues a fresh single-use portal link and emails it to
// the respondent. Re-sending an already-sent instance issues a new link; a
// completed or cancelled instance is rejected with 409.
//
// Invite delivery failure does not fail the request — the token is already
// persisted and the send can simply be repeated.
func (s *Server) handleSendAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment id")
		return
	}

	// Body is optional — an empty POST uses the configured TTL.
	var req sendAssessmentRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}

	ttl := req.TTLDays
	if ttl <= 0 {
		ttl = s.cfg.TokenTTLDays
	}

	sent, err := s.store.SendAssessment(r.Context(), store.SendAssessmentParams{
		AssessmentID: id,
		TTLDays:      ttl,
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		respondErr(w, http.StatusNotFound, "assessment not found")
		return
	case errors.Is(err, store.ErrNotSendable):
		respondErr(w, http.StatusConflict, "assessment is completed or cancelled")
		return
	case err != nil:
		s.respondInternalErr(w, r, fmt.Errorf("send assessment: %w", err))
		return
	}

	portalURL := notify.PortalURL(
		s.cfg.BaseURL,
		sent.Assessment.TemplateID,
		sent.Assessment.EmployeeID,
		sent.Assessment.ID,
		sent.Token.Token,
	)

	s.logAndIgnoreNotifyErr(r, s.notifier.SendInvite(r.Context(), notify.InviteParams{
		To:           sent.Assessment.EmployeeEmail,
		EmployeeName: sent.Assessment.EmployeeName,
		PortalURL:    portalURL,
		ExpiresAt:    sent.Token.ExpiresAt,
	}), "assessment invite")

	respond(w, http.StatusOK, sendAssessmentResponse{
		Assessment: toAssessmentResponse(sent.Assessment),
		PortalURL:  portalURL,
		ExpiresAt:  sent.Token.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// ─── POST /api/assessments/:assessmentID/cancel ──────────────────────────────

// handleCancelAssessment transitions a scheduled or sent instance to
// Cancelled. The conditional update matches no row for terminal instances, so
// the handler distinguishes "gone" from "already closed" with a follow-up
// read.
func (s *Server) handleCancelAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment id")
		return
	}

	inst, err := s.q.CancelAssessment(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := s.q.GetAssessmentByID(r.Context(), id); errors.Is(getErr, sql.ErrNoRows) {
			respondErr(w, http.StatusNotFound, "assessment not found")
			return
		}
		respondErr(w, http.StatusConflict, "assessment is already completed or cancelled")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("cancel assessment: %w", err))
		return
	}

	respond(w, http.StatusOK, toAssessmentResponse(inst))
}

// ─── GET /api/assessments/:assessmentID/reminders ────────────────────────────

type reminderResponse struct {
	ID           string `json:"id"`
	ReminderType string `json:"reminder_type"`
	LeadDays     int16  `json:"lead_days"`
	FireAt       string `json:"fire_at"`
	Title        string `json:"title"`
	Priority     string `json:"priority"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	SentAt       string `json:"sent_at,omitempty"`
}

func (s *Server) handleListAssessmentReminders(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "assessmentID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment id")
		return
	}

	items, err := s.q.ListRemindersByEntity(r.Context(), db.ListRemindersByEntityParams{
		EntityType: string(reminder.EntityAssessment),
		EntityID:   id,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("list reminders: %w", err))
		return
	}

	resp := make([]reminderResponse, len(items))
	for i, item := range items {
		resp[i] = reminderResponse{
			ID:           item.ID.String(),
			ReminderType: string(item.ReminderType),
			LeadDays:     item.LeadDays,
			FireAt:       item.FireAt.UTC().Format(time.RFC3339),
			Title:        item.Title,
			Priority:     string(item.Priority),
			Status:       string(item.Status),
			ErrorMessage: item.ErrorMessage.String,
		}
		if item.SentAt.Valid {
			resp[i].SentAt = item.SentAt.Time.UTC().Format(time.RFC3339)
		}
	}

	respond(w, http.StatusOK, map[string]any{"reminders": resp})
}
