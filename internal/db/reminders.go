package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const reminderColumns = `id, entity_type, entity_id, reminder_type, lead_days,
	fire_at, recipients, title, body, priority, status, error_message,
	created_at, sent_at`

func scanReminderRow(row *sql.Row) (ReminderWorkItem, error) {
	var r ReminderWorkItem
	err := row.Scan(
		&r.ID, &r.EntityType, &r.EntityID, &r.ReminderType, &r.LeadDays,
		&r.FireAt, pq.Array(&r.Recipients), &r.Title, &r.Body, &r.Priority,
		&r.Status, &r.ErrorMessage, &r.CreatedAt, &r.SentAt,
	)
	return r, err
}

const insertReminder = `
INSERT INTO reminder_work_items (
	entity_type, entity_id, reminder_type, lead_days, fire_at,
	recipients, title, body, priority
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (entity_type, entity_id, reminder_type, lead_days) DO NOTHING
RETURNING ` + reminderColumns

type InsertReminderParams struct {
	EntityType   string
	EntityID     uuid.UUID
	ReminderType string
	LeadDays     int16
	FireAt       time.Time
	Recipients   []string
	Title        string
	Body         string
	Priority     string
}

// InsertReminder creates one work item. A duplicate (entity, type, lead-time)
// slot hits ON CONFLICT DO NOTHING, which returns zero rows and surfaces as
// sql.ErrNoRows — callers treat that as an idempotent no-op, not an error.
func (q *Queries) InsertReminder(ctx context.Context, arg InsertReminderParams) (ReminderWorkItem, error) {
	return scanReminderRow(q.db.QueryRowContext(ctx, insertReminder,
		arg.EntityType, arg.EntityID, arg.ReminderType, arg.LeadDays, arg.FireAt,
		pq.Array(arg.Recipients), arg.Title, arg.Body, arg.Priority,
	))
}

const listDueReminders = `
SELECT ` + reminderColumns + `
FROM reminder_work_items
WHERE status = 'scheduled' AND fire_at <= $1
ORDER BY fire_at
`

func (q *Queries) ListDueReminders(ctx context.Context, now time.Time) ([]ReminderWorkItem, error) {
	return q.listReminders(ctx, listDueReminders, now)
}

const listRemindersByEntity = `
SELECT ` + reminderColumns + `
FROM reminder_work_items
WHERE entity_type = $1 AND entity_id = $2
ORDER BY fire_at
`

type ListRemindersByEntityParams struct {
	EntityType string
	EntityID   uuid.UUID
}

func (q *Queries) ListRemindersByEntity(ctx context.Context, arg ListRemindersByEntityParams) ([]ReminderWorkItem, error) {
	return q.listReminders(ctx, listRemindersByEntity, arg.EntityType, arg.EntityID)
}

func (q *Queries) listReminders(ctx context.Context, query string, args ...any) ([]ReminderWorkItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReminderWorkItem
	for rows.Next() {
		var r ReminderWorkItem
		if err := rows.Scan(
			&r.ID, &r.EntityType, &r.EntityID, &r.ReminderType, &r.LeadDays,
			&r.FireAt, pq.Array(&r.Recipients), &r.Title, &r.Body, &r.Priority,
			&r.Status, &r.ErrorMessage, &r.CreatedAt, &r.SentAt,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const claimReminderSent = `
UPDATE reminder_work_items
SET status = 'sent', sent_at = now()
WHERE id = $1 AND status = 'scheduled'
RETURNING ` + reminderColumns

// ClaimReminderSent is the dispatcher's at-most-once commit point. The
// conditional update only matches a scheduled row, so when several dispatcher
// instances race on the same item exactly one claim succeeds; the rest see
// sql.ErrNoRows and skip the item.
func (q *Queries) ClaimReminderSent(ctx context.Context, id uuid.UUID) (ReminderWorkItem, error) {
	return scanReminderRow(q.db.QueryRowContext(ctx, claimReminderSent, id))
}

const markReminderFailed = `
UPDATE reminder_work_items
SET status = 'failed', error_message = $2
WHERE id = $1
RETURNING ` + reminderColumns

type MarkReminderFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// MarkReminderFailed records a delivery failure with the error detail
// retained for operator review. It is called after a successful claim, so it
// matches on id alone.
func (q *Queries) MarkReminderFailed(ctx context.Context, arg MarkReminderFailedParams) (ReminderWorkItem, error) {
	return scanReminderRow(q.db.QueryRowContext(ctx, markReminderFailed, arg.ID, arg.ErrorMessage))
}
