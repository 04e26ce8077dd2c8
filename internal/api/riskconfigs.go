package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/recurrence"
	"github.com/unomed/psi-backend/internal/scoring"
)

// ─── SHAPES ──────────────────────────────────────────────────────────────────

type riskConfigResponse struct {
	CompanyID          string `json:"company_id"`
	LowThreshold       int16  `json:"low_threshold"`
	MediumThreshold    int16  `json:"medium_threshold"`
	DefaultRecurrence  string `json:"default_recurrence"`
	LowRecurrence      string `json:"low_recurrence,omitempty"`
	MediumRecurrence   string `json:"medium_recurrence,omitempty"`
	HighRecurrence     string `json:"high_recurrence,omitempty"`
	CriticalRecurrence string `json:"critical_recurrence,omitempty"`

	// Defaults is true when no tenant-specific configuration exists and the
	// built-in thresholds are in effect.
	Defaults bool `json:"defaults,omitempty"`
}

func toRiskConfigResponse(row db.RiskConfigRow) riskConfigResponse {
	return riskConfigResponse{
		CompanyID:          row.CompanyID.String(),
		LowThreshold:       row.LowThreshold,
		MediumThreshold:    row.MediumThreshold,
		DefaultRecurrence:  string(row.DefaultRecurrence),
		LowRecurrence:      row.LowRecurrence.String,
		MediumRecurrence:   row.MediumRecurrence.String,
		HighRecurrence:     row.HighRecurrence.String,
		CriticalRecurrence: row.CriticalRecurrence.String,
	}
}

// ─── GET /api/companies/:companyID/risk-config ───────────────────────────────

// handleGetRiskConfig returns the tenant's classification thresholds and
// recurrence policy. A tenant without stored configuration gets the built-in
// defaults, flagged as such.
func (s *Server) handleGetRiskConfig(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseUUID(chi.URLParam(r, "companyID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid company id")
		return
	}

	row, err := s.q.GetRiskConfig(r.Context(), companyID)
	if errors.Is(err, sql.ErrNoRows) {
		def := scoring.DefaultRiskConfig()
		respond(w, http.StatusOK, riskConfigResponse{
			CompanyID:         companyID.String(),
			LowThreshold:      int16(def.LowThreshold),
			MediumThreshold:   int16(def.MediumThreshold),
			DefaultRecurrence: string(recurrence.UnitNone),
			Defaults:          true,
		})
		return
	}
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("get risk config: %w", err))
		return
	}

	respond(w, http.StatusOK, toRiskConfigResponse(row))
}

// ─── PUT /api/companies/:companyID/risk-config ───────────────────────────────

type putRiskConfigRequest struct {
	LowThreshold       int16  `json:"low_threshold"`
	MediumThreshold    int16  `json:"medium_threshold"`
	DefaultRecurrence  string `json:"default_recurrence"`
	LowRecurrence      string `json:"low_recurrence"`
	MediumRecurrence   string `json:"medium_recurrence"`
	HighRecurrence     string `json:"high_recurrence"`
	CriticalRecurrence string `json:"critical_recurrence"`
}

// handlePutRiskConfig upserts the tenant configuration. Thresholds must keep
// the low < medium ordering; the critical boundary is fixed and not
// configurable.
func (s *Server) handlePutRiskConfig(w http.ResponseWriter, r *http.Request) {
	companyID, err := parseUUID(chi.URLParam(r, "companyID"))
	if err != nil {
		respondErr(w, http.StatusBadRequest, "invalid company id")
		return
	}

	var req putRiskConfigRequest
	if !decode(w, r, &req) {
		return
	}

	cfg := scoring.RiskConfig{
		LowThreshold:    int(req.LowThreshold),
		MediumThreshold: int(req.MediumThreshold),
	}
	if err := cfg.Validate(); err != nil {
		respondErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.DefaultRecurrence == "" {
		req.DefaultRecurrence = string(recurrence.UnitNone)
	}
	if _, err := recurrence.ParseUnit(req.DefaultRecurrence); err != nil {
		respondErr(w, http.StatusBadRequest, "default_recurrence: "+err.Error())
		return
	}
	tierOverride := func(field, value string) (sql.NullString, bool) {
		if value == "" {
			return sql.NullString{}, true
		}
		if _, err := recurrence.ParseUnit(value); err != nil {
			respondErr(w, http.StatusBadRequest, field+": "+err.Error())
			return sql.NullString{}, false
		}
		return sql.NullString{String: value, Valid: true}, true
	}

	low, ok := tierOverride("low_recurrence", req.LowRecurrence)
	if !ok {
		return
	}
	medium, ok := tierOverride("medium_recurrence", req.MediumRecurrence)
	if !ok {
		return
	}
	high, ok := tierOverride("high_recurrence", req.HighRecurrence)
	if !ok {
		return
	}
	critical, ok := tierOverride("critical_recurrence", req.CriticalRecurrence)
	if !ok {
		return
	}

	row, err := s.q.UpsertRiskConfig(r.Context(), db.UpsertRiskConfigParams{
		CompanyID:          companyID,
		LowThreshold:       req.LowThreshold,
		MediumThreshold:    req.MediumThreshold,
		DefaultRecurrence:  req.DefaultRecurrence,
		LowRecurrence:      low,
		MediumRecurrence:   medium,
		HighRecurrence:     high,
		CriticalRecurrence: critical,
	})
	if err != nil {
		s.respondInternalErr(w, r, fmt.Errorf("upsert risk config: %w", err))
		return
	}

	respond(w, http.StatusOK, toRiskConfigResponse(row))
}
