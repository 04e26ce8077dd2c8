package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const accessTokenColumns = `token, assessment_id, employee_id, expires_at, redeemed_at, created_at`

func scanAccessToken(row *sql.Row) (AccessToken, error) {
	var t AccessToken
	err := row.Scan(&t.Token, &t.AssessmentID, &t.EmployeeID, &t.ExpiresAt, &t.RedeemedAt, &t.CreatedAt)
	return t, err
}

const insertAccessToken = `
INSERT INTO access_tokens (token, assessment_id, employee_id, expires_at)
VALUES ($1, $2, $3, $4)
RETURNING ` + accessTokenColumns

type InsertAccessTokenParams struct {
	Token        string
	AssessmentID uuid.UUID
	EmployeeID   uuid.UUID
	ExpiresAt    time.Time
}

func (q *Queries) InsertAccessToken(ctx context.Context, arg InsertAccessTokenParams) (AccessToken, error) {
	return scanAccessToken(q.db.QueryRowContext(ctx, insertAccessToken,
		arg.Token, arg.AssessmentID, arg.EmployeeID, arg.ExpiresAt))
}

const getAccessToken = `
SELECT ` + accessTokenColumns + `
FROM access_tokens
WHERE token = $1
`

func (q *Queries) GetAccessToken(ctx context.Context, tokenValue string) (AccessToken, error) {
	return scanAccessToken(q.db.QueryRowContext(ctx, getAccessToken, tokenValue))
}

const redeemAccessToken = `
UPDATE access_tokens
SET redeemed_at = now()
WHERE token = $1 AND redeemed_at IS NULL
RETURNING ` + accessTokenColumns

// RedeemAccessToken is the single-redemption compare-and-swap: the WHERE
// clause only matches an unredeemed row, so of two concurrent redemptions
// exactly one gets the row back and the loser sees sql.ErrNoRows. Binding and
// expiry must be checked before calling this (token.Check).
func (q *Queries) RedeemAccessToken(ctx context.Context, tokenValue string) (AccessToken, error) {
	return scanAccessToken(q.db.QueryRowContext(ctx, redeemAccessToken, tokenValue))
}
