package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/scoring"
	"github.com/unomed/psi-backend/internal/store"
	"github.com/unomed/psi-backend/internal/token"
	"github.com/unomed/psi-backend/internal/worker"
)

// portalParams are the components every portal link carries. All four are
// mandatory; a link with any of them missing is rejected before the token is
// ever looked up.
type portalParams struct {
	TemplateID   uuid.UUID
	EmployeeID   uuid.UUID
	AssessmentID uuid.UUID
	Token        string
}

// parsePortalParams validates the link structure. Returns false after writing
// a 400 when any component is missing or malformed.
func parsePortalParams(w http.ResponseWriter, r *http.Request) (portalParams, bool) {
	var p portalParams
	var err error

	p.TemplateID, err = parseUUID(chi.URLParam(r, "templateID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid template id")
		return p, false
	}

	q := r.URL.Query()
	if q.Get("employee") == "" || q.Get("assessment") == "" || q.Get("token") == "" {
		respondErr(w, http.StatusBadRequest, "employee, assessment and token parameters are required")
		return p, false
	}
	p.EmployeeID, err = parseUUID(q.Get("employee"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid employee parameter")
		return p, false
	}
	p.AssessmentID, err = parseUUID(q.Get("assessment"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid assessment parameter")
		return p, false
	}
	p.Token = q.Get("token")
	return p, true
}

// respondTokenErr maps the token validation failures onto distinct status
// codes so the portal frontend can show the right message for an expired link
// versus a consumed one.
func respondTokenErr(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, token.ErrNotFound):
		respondErr(w, http.StatusNotFound, "link inválido")
	case errors.Is(err, token.ErrMismatch):
		respondErr(w, http.StatusForbidden, "link não corresponde a esta avaliação")
	case errors.Is(err, token.ErrExpired):
		respondErr(w, http.StatusGone, "link expirado, solicite um novo ao RH")
	case errors.Is(err, token.ErrAlreadyUsed):
		respondErr(w, http.StatusConflict, "esta avaliação já foi respondida")
	default:
		return false
	}
	return true
}

// ─── GET /api/portal/:templateID ─────────────────────────────────────────────

type portalQuestionResponse struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt"`
	Category string `json:"category"`
	Position int16  `json:"position"`
}

type openPortalResponse struct {
	TemplateID   string                   `json:"template_id"`
	TemplateName string                   `json:"template_name"`
	ScaleMax     int16                    `json:"scale_max"`
	EmployeeName string                   `json:"employee_name"`
	Questions    []portalQuestionResponse `json:"questions"`
}

// handleOpenPortal serves the questionnaire to a respondent following their
// access link. The token is checked here but not redeemed — redemption
// happens atomically at submission, so merely opening the page never burns
// the link.
func (s *Server) handleOpenPortal(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePortalParams(w, r)
	if !ok {
		return
	}

	tok, err := s.q.GetAccessToken(r.Context(), p.Token)
	if errors.Is(err, sql.ErrNoRows) {
		respondTokenErr(w, token.ErrNotFound)
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("open portal: get token: %w", err))
		return
	}

	rec := token.Record{
		AssessmentID: tok.AssessmentID,
		EmployeeID:   tok.EmployeeID,
		ExpiresAt:    tok.ExpiresAt,
	}
	if tok.RedeemedAt.Valid {
		rec.RedeemedAt = tok.RedeemedAt.Time
	}
	if err := token.Check(rec, p.AssessmentID, p.EmployeeID, time.Now()); err != nil {
		if !respondTokenErr(w, err) {
			s.respondInternalErr(w, r, err)
		}
		return
	}

	inst, err := s.q.GetAssessmentByID(r.Context(), p.AssessmentID)
	if errors.Is(err, sql.ErrNoRows) {
		respondErr(w, http.StatusNotFound, "avaliação não encontrada")
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("open portal: get assessment: %w", err))
		return
	}
	if inst.TemplateID != p.TemplateID {
		respondErr(w, http.StatusForbidden, "link não corresponde a esta avaliação")
		return
	}
	if inst.Status.Terminal() {
		respondErr(w, http.StatusConflict, "esta avaliação já foi encerrada")
		return
	}

	tpl, err := s.q.GetTemplateByID(r.Context(), inst.TemplateID)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("open portal: get template: %w", err))
		return
	}
	questions, err := s.q.ListQuestionsByTemplate(r.Context(), inst.TemplateID)
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("open portal: list questions: %w", err))
		return
	}

	resp := openPortalResponse{
		TemplateID:   tpl.ID.String(),
		TemplateName: tpl.Name,
		ScaleMax:     tpl.ScaleMax,
		EmployeeName: inst.EmployeeName,
		Questions:    make([]portalQuestionResponse, len(questions)),
	}
	for i, qu := range questions {
		resp.Questions[i] = portalQuestionResponse{
			ID:       qu.ID.String(),
			Prompt:   qu.Prompt,
			Category: qu.Category,
			Position: qu.Position,
		}
	}

	respond(w, http.StatusOK, resp)
}

// ─── POST /api/portal/:templateID/responses ──────────────────────────────────

type submitResponsesRequest struct {
	// Answers maps question id to the raw scale value.
	Answers map[string]int `json:"answers"`
}

type submitResponsesResponse struct {
	Assessment     assessmentResponse      `json:"assessment"`
	CategoryScores []scoring.CategoryScore `json:"category_scores"`
	OverallScore   int                     `json:"overall_score"`
	RiskTier       string                  `json:"risk_tier"`
	NextScheduled  *assessmentResponse     `json:"next_scheduled,omitempty"`
}

// handleSubmitResponses runs the completion pipeline: token redemption,
// scoring, classification, terminal transition, and recurrence-driven
// creation of the next instance — all in one transaction. A freshly raised
// high-risk alert is handed to the dispatcher for same-cycle delivery.
func (s *Server) handleSubmitResponses(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePortalParams(w, r)
	if !ok {
		return
	}

	var req submitResponsesRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Answers) == 0 {
		respondErr(w, http.StatusBadRequest, "answers must not be empty")
		return
	}

	result, err := s.store.CompleteAssessment(r.Context(), store.CompleteAssessmentParams{
		AssessmentID:    p.AssessmentID,
		EmployeeID:      p.EmployeeID,
		Token:           p.Token,
		Answers:         req.Answers,
		AlertRecipients: s.cfg.AlertRecipients,
	})
	switch {
	case respondTokenErrIf(w, err):
		return
	case errors.Is(err, scoring.ErrIncompleteResponse):
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, scoring.ErrNoCategories):
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrNotCompletable):
		respondErr(w, http.StatusConflict, "esta avaliação já foi encerrada")
		return
	case errors.Is(err, scoring.ErrInvalidAnswer):
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.respondInternalErr(w, r, fmt.Errorf("submit responses: %w", err))
		return
	}

	// Same-cycle alert delivery. Enqueue failure is not fatal — the poller
	// recovers the item on its next pass.
	if result.AlertItem != nil && s.worker != nil {
		if err := s.worker.Enqueue(r.Context(), result.AlertItem.ID); err != nil {
			if !errors.Is(err, worker.ErrQueueFull) {
				s.logger.Warn("submit responses: alert enqueue failed",
					"item_id", result.AlertItem.ID,
					"error", err,
					logField(r),
				)
			}
		}
	}

	resp := submitResponsesResponse{
		Assessment:     toAssessmentResponse(result.Assessment),
		CategoryScores: result.Scores,
		OverallScore:   result.Classification.OverallScore,
		RiskTier:       string(result.Classification.Tier),
	}
	if result.NextAssessment != nil {
		next := toAssessmentResponse(*result.NextAssessment)
		resp.NextScheduled = &next
	}

	respond(w, http.StatusOK, resp)
}

// respondTokenErrIf is respondTokenErr that tolerates a nil error.
func respondTokenErrIf(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	return respondTokenErr(w, err)
}
