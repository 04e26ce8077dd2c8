package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/unomed/psi-backend/internal/store"
)

// ─── POST /api/templates ─────────────────────────────────────────────────────

type createTemplateQuestion struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category"`
	Weight   int16  `json:"weight"` // zero defaults to 1
}

type createTemplateRequest struct {
	Name      string                   `json:"name"`
	ScaleMax  int16                    `json:"scale_max"`
	Questions []createTemplateQuestion `json:"questions"`
}

type createTemplateResponse struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	ScaleMax  int16                    `json:"scale_max"`
	Version   int32                    `json:"version"`
	Questions []portalQuestionResponse `json:"questions"`
}

// handleCreateTemplate registers a questionnaire with its full question list.
// A questionnaire is immutable once created; changes mean a new template.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if !decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		respondErr(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.ScaleMax < 2 {
		respondErr(w, http.StatusBadRequest, "scale_max must be at least 2")
		return
	}
	if len(req.Questions) == 0 {
		respondErr(w, http.StatusBadRequest, "questions must not be empty")
		return
	}

	questions := make([]store.QuestionInput, len(req.Questions))
	for i, qu := range req.Questions {
		if strings.TrimSpace(qu.Prompt) == "" {
			respondErr(w, http.StatusBadRequest, fmt.Sprintf("question %d: prompt is required", i+1))
			return
		}
		if strings.TrimSpace(qu.Category) == "" {
			respondErr(w, http.StatusBadRequest, fmt.Sprintf("question %d: category is required", i+1))
			return
		}
		if qu.Weight < 0 {
			respondErr(w, http.StatusBadRequest, fmt.Sprintf("question %d: weight must not be negative", i+1))
			return
		}
		weight := qu.Weight
		if weight == 0 {
			weight = 1
		}
		questions[i] = store.QuestionInput{
			Prompt:   strings.TrimSpace(qu.Prompt),
			Category: strings.TrimSpace(qu.Category),
			Weight:   weight,
		}
	}

	created, err := s.store.CreateTemplate(r.Context(), store.CreateTemplateParams{
		Name:      strings.TrimSpace(req.Name),
		ScaleMax:  req.ScaleMax,
		Questions: questions,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("create template: %w", err))
		return
	}

	resp := createTemplateResponse{
		ID:        created.Template.ID.String(),
		Name:      created.Template.Name,
		ScaleMax:  created.Template.ScaleMax,
		Version:   created.Template.Version,
		Questions: make([]portalQuestionResponse, len(created.Questions)),
	}
	for i, qu := range created.Questions {
		resp.Questions[i] = portalQuestionResponse{
			ID:       qu.ID.String(),
			Prompt:   qu.Prompt,
			Category: qu.Category,
			Position: qu.Position,
		}
	}

	respond(w, http.StatusCreated, resp)
}
