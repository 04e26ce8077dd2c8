package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const assessmentColumns = `id, company_id, employee_id, employee_name,
	employee_email, template_id, status, scheduled_date, recurrence,
	completed_at, responses, category_scores, overall_score, risk_tier,
	dominant_category, created_at, updated_at`

func scanAssessment(row *sql.Row) (AssessmentInstance, error) {
	var a AssessmentInstance
	err := row.Scan(
		&a.ID, &a.CompanyID, &a.EmployeeID, &a.EmployeeName,
		&a.EmployeeEmail, &a.TemplateID, &a.Status, &a.ScheduledDate, &a.Recurrence,
		&a.CompletedAt, &a.Responses, &a.CategoryScores, &a.OverallScore, &a.RiskTier,
		&a.DominantCategory, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

const createAssessment = `
INSERT INTO assessment_instances (
	company_id, employee_id, employee_name, employee_email,
	template_id, scheduled_date, recurrence
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + assessmentColumns

type CreateAssessmentParams struct {
	CompanyID     uuid.UUID
	EmployeeID    uuid.UUID
	EmployeeName  string
	EmployeeEmail string
	TemplateID    uuid.UUID
	ScheduledDate time.Time
	Recurrence    sql.NullString
}

func (q *Queries) CreateAssessment(ctx context.Context, arg CreateAssessmentParams) (AssessmentInstance, error) {
	return scanAssessment(q.db.QueryRowContext(ctx, createAssessment,
		arg.CompanyID, arg.EmployeeID, arg.EmployeeName, arg.EmployeeEmail,
		arg.TemplateID, arg.ScheduledDate, arg.Recurrence,
	))
}

const getAssessmentByID = `
SELECT ` + assessmentColumns + `
FROM assessment_instances
WHERE id = $1
`

func (q *Queries) GetAssessmentByID(ctx context.Context, id uuid.UUID) (AssessmentInstance, error) {
	return scanAssessment(q.db.QueryRowContext(ctx, getAssessmentByID, id))
}

const markAssessmentSent = `
UPDATE assessment_instances
SET status = 'sent', updated_at = now()
WHERE id = $1 AND status = 'scheduled'
RETURNING ` + assessmentColumns

// MarkAssessmentSent is a conditional transition: it only succeeds from
// scheduled. sql.ErrNoRows means the instance is missing or not in a state
// that allows sending.
func (q *Queries) MarkAssessmentSent(ctx context.Context, id uuid.UUID) (AssessmentInstance, error) {
	return scanAssessment(q.db.QueryRowContext(ctx, markAssessmentSent, id))
}

const cancelAssessment = `
UPDATE assessment_instances
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status IN ('scheduled', 'sent')
RETURNING ` + assessmentColumns

// CancelAssessment only succeeds from scheduled or sent — a completed
// instance cannot be cancelled. sql.ErrNoRows signals an illegal transition.
func (q *Queries) CancelAssessment(ctx context.Context, id uuid.UUID) (AssessmentInstance, error) {
	return scanAssessment(q.db.QueryRowContext(ctx, cancelAssessment, id))
}

const completeAssessment = `
UPDATE assessment_instances
SET status            = 'completed',
	completed_at      = $2,
	responses         = $3,
	category_scores   = $4,
	overall_score     = $5,
	risk_tier         = $6,
	dominant_category = $7,
	updated_at        = now()
WHERE id = $1 AND status IN ('scheduled', 'sent')
RETURNING ` + assessmentColumns

type CompleteAssessmentParams struct {
	ID               uuid.UUID
	CompletedAt      time.Time
	Responses        pqtype.NullRawMessage
	CategoryScores   pqtype.NullRawMessage
	OverallScore     int16
	RiskTier         string
	DominantCategory string
}

// CompleteAssessment is the terminal conditional transition. It writes the
// validated response payload alongside the computed scores in the same
// statement so a completed row is never missing its results.
func (q *Queries) CompleteAssessment(ctx context.Context, arg CompleteAssessmentParams) (AssessmentInstance, error) {
	return scanAssessment(q.db.QueryRowContext(ctx, completeAssessment,
		arg.ID, arg.CompletedAt, arg.Responses, arg.CategoryScores,
		arg.OverallScore, arg.RiskTier, arg.DominantCategory,
	))
}
