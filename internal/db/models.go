package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/unomed/psi-backend/internal/assessment"
	"github.com/unomed/psi-backend/internal/recurrence"
	"github.com/unomed/psi-backend/internal/reminder"
	"github.com/unomed/psi-backend/internal/scoring"
)

// Row structs mirror the schema one to one. Enum-ish columns scan directly
// into the domain string types (their underlying kind is string), so callers
// never juggle a parallel set of db enums.

type QuestionnaireTemplate struct {
	ID        uuid.UUID
	Name      string
	ScaleMax  int16
	Version   int32
	CreatedAt time.Time
}

type Question struct {
	ID         uuid.UUID
	TemplateID uuid.UUID
	Prompt     string
	Category   string
	Weight     int16
	Position   int16
}

type RiskConfigRow struct {
	CompanyID          uuid.UUID
	LowThreshold       int16
	MediumThreshold    int16
	DefaultRecurrence  recurrence.Unit
	LowRecurrence      sql.NullString
	MediumRecurrence   sql.NullString
	HighRecurrence     sql.NullString
	CriticalRecurrence sql.NullString
	UpdatedAt          time.Time
}

// Config converts the row to a validated scoring.RiskConfig, falling back to
// the defaults when the stored thresholds violate the ordering invariant.
func (r RiskConfigRow) Config() scoring.RiskConfig {
	return scoring.RiskConfig{
		LowThreshold:    int(r.LowThreshold),
		MediumThreshold: int(r.MediumThreshold),
	}.Sanitize()
}

// Policy converts the row's recurrence columns to a recurrence.Policy.
// NULL tier overrides are simply absent from the map.
func (r RiskConfigRow) Policy() recurrence.Policy {
	byTier := make(map[scoring.RiskTier]recurrence.Unit, 4)
	for tier, col := range map[scoring.RiskTier]sql.NullString{
		scoring.TierLow:      r.LowRecurrence,
		scoring.TierMedium:   r.MediumRecurrence,
		scoring.TierHigh:     r.HighRecurrence,
		scoring.TierCritical: r.CriticalRecurrence,
	} {
		if col.Valid {
			byTier[tier] = recurrence.Unit(col.String)
		}
	}
	return recurrence.Policy{Default: r.DefaultRecurrence, ByTier: byTier}
}

type AssessmentInstance struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	EmployeeID       uuid.UUID
	EmployeeName     string
	EmployeeEmail    string
	TemplateID       uuid.UUID
	Status           assessment.Status
	ScheduledDate    time.Time
	Recurrence       sql.NullString // per-instance override; NULL = use policy
	CompletedAt      sql.NullTime
	Responses        pqtype.NullRawMessage
	CategoryScores   pqtype.NullRawMessage
	OverallScore     sql.NullInt16
	RiskTier         sql.NullString
	DominantCategory sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type AccessToken struct {
	Token        string
	AssessmentID uuid.UUID
	EmployeeID   uuid.UUID
	ExpiresAt    time.Time
	RedeemedAt   sql.NullTime
	CreatedAt    time.Time
}

type ReminderWorkItem struct {
	ID           uuid.UUID
	EntityType   reminder.EntityType
	EntityID     uuid.UUID
	ReminderType reminder.Type
	LeadDays     int16
	FireAt       time.Time
	Recipients   []string
	Title        string
	Body         string
	Priority     reminder.Priority
	Status       reminder.Status
	ErrorMessage sql.NullString
	CreatedAt    time.Time
	SentAt       sql.NullTime
}

type ActionPlan struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	AssessmentID uuid.NullUUID
	Title        string
	DueDate      time.Time
	Status       string
	CreatedAt    time.Time
}
