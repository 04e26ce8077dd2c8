package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const actionPlanColumns = `id, company_id, assessment_id, title, due_date, status, created_at`

func scanActionPlan(row *sql.Row) (ActionPlan, error) {
	var p ActionPlan
	err := row.Scan(&p.ID, &p.CompanyID, &p.AssessmentID, &p.Title, &p.DueDate, &p.Status, &p.CreatedAt)
	return p, err
}

const createActionPlan = `
INSERT INTO action_plans (company_id, assessment_id, title, due_date)
VALUES ($1, $2, $3, $4)
RETURNING ` + actionPlanColumns

type CreateActionPlanParams struct {
	CompanyID    uuid.UUID
	AssessmentID uuid.NullUUID
	Title        string
	DueDate      time.Time
}

func (q *Queries) CreateActionPlan(ctx context.Context, arg CreateActionPlanParams) (ActionPlan, error) {
	return scanActionPlan(q.db.QueryRowContext(ctx, createActionPlan,
		arg.CompanyID, arg.AssessmentID, arg.Title, arg.DueDate))
}

const getActionPlanByID = `
SELECT ` + actionPlanColumns + `
FROM action_plans
WHERE id = $1
`

func (q *Queries) GetActionPlanByID(ctx context.Context, id uuid.UUID) (ActionPlan, error) {
	return scanActionPlan(q.db.QueryRowContext(ctx, getActionPlanByID, id))
}
