package db

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const riskConfigColumns = `company_id, low_threshold, medium_threshold,
	default_recurrence, low_recurrence, medium_recurrence, high_recurrence,
	critical_recurrence, updated_at`

func scanRiskConfig(row *sql.Row) (RiskConfigRow, error) {
	var r RiskConfigRow
	err := row.Scan(
		&r.CompanyID, &r.LowThreshold, &r.MediumThreshold,
		&r.DefaultRecurrence, &r.LowRecurrence, &r.MediumRecurrence,
		&r.HighRecurrence, &r.CriticalRecurrence, &r.UpdatedAt,
	)
	return r, err
}

const getRiskConfig = `
SELECT ` + riskConfigColumns + `
FROM risk_configs
WHERE company_id = $1
`

func (q *Queries) GetRiskConfig(ctx context.Context, companyID uuid.UUID) (RiskConfigRow, error) {
	return scanRiskConfig(q.db.QueryRowContext(ctx, getRiskConfig, companyID))
}

const upsertRiskConfig = `
INSERT INTO risk_configs (
	company_id, low_threshold, medium_threshold, default_recurrence,
	low_recurrence, medium_recurrence, high_recurrence, critical_recurrence,
	updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (company_id) DO UPDATE SET
	low_threshold       = EXCLUDED.low_threshold,
	medium_threshold    = EXCLUDED.medium_threshold,
	default_recurrence  = EXCLUDED.default_recurrence,
	low_recurrence      = EXCLUDED.low_recurrence,
	medium_recurrence   = EXCLUDED.medium_recurrence,
	high_recurrence     = EXCLUDED.high_recurrence,
	critical_recurrence = EXCLUDED.critical_recurrence,
	updated_at          = now()
RETURNING ` + riskConfigColumns

type UpsertRiskConfigParams struct {
	CompanyID          uuid.UUID
	LowThreshold       int16
	MediumThreshold    int16
	DefaultRecurrence  string
	LowRecurrence      sql.NullString
	MediumRecurrence   sql.NullString
	HighRecurrence     sql.NullString
	CriticalRecurrence sql.NullString
}

func (q *Queries) UpsertRiskConfig(ctx context.Context, arg UpsertRiskConfigParams) (RiskConfigRow, error) {
	return scanRiskConfig(q.db.QueryRowContext(ctx, upsertRiskConfig,
		arg.CompanyID, arg.LowThreshold, arg.MediumThreshold, arg.DefaultRecurrence,
		arg.LowRecurrence, arg.MediumRecurrence, arg.HighRecurrence, arg.CriticalRecurrence,
	))
}
