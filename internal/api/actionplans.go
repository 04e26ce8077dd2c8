package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/store"
)

// ─── POST /api/action-plans ──────────────────────────────────────────────────

type createActionPlanRequest struct {
	CompanyID    string   `json:"company_id"`
	AssessmentID string   `json:"assessment_id"` // optional link to the triggering assessment
	Title        string   `json:"title"`
	DueDate      string   `json:"due_date"`
	Recipients   []string `json:"recipients"`
}

type createActionPlanResponse struct {
	ID           string `json:"id"`
	CompanyID    string `json:"company_id"`
	AssessmentID string `json:"assessment_id,omitempty"`
	Title        string `json:"title"`
	DueDate      string `json:"due_date"`
	Status       string `json:"status"`
}

// handleCreateActionPlan registers a mitigation action plan and schedules its
// overdue reminders in the same transaction.
func (s *Server) handleCreateActionPlan(w http.ResponseWriter, r *http.Request) {
	var req createActionPlanRequest
	if !decode(w, r, &req) {
		return
	}

	companyID, err := parseUUID(req.CompanyID)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid company_id")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondErr(w, http.StatusBadRequest, "title is required")
		return
	}
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		respondErr(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}

	var assessmentID uuid.NullUUID
	if req.AssessmentID != "" {
		id, err := parseUUID(req.AssessmentID)
		if err != nil {
			respondErr(w, http.StatusBadRequest, "invalid assessment_id")
			return
		}
		assessmentID = uuid.NullUUID{UUID: id, Valid: true}
	}

	plan, err := s.store.CreateActionPlan(r.Context(), store.CreateActionPlanParams{
		CompanyID:    companyID,
		AssessmentID: assessmentID,
		Title:        strings.TrimSpace(req.Title),
		DueDate:      dueDate,
		Recipients:   req.Recipients,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create action plan: %w", err))
		return
	}

	resp := createActionPlanResponse{
		ID:        plan.ID.String(),
		CompanyID: plan.CompanyID.String(),
		Title:     plan.Title,
		DueDate:   plan.DueDate.Format(dateLayout),
		Status:    plan.Status,
	}
	if plan.AssessmentID.Valid {
		resp.AssessmentID = plan.AssessmentID.UUID.String()
	}

	respond(w, http.StatusCreated, resp)
}
