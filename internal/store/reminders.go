package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/reminder"
)

// ─── INPUT TYPES ─────────────────────────────────────────────────────────────

// ScheduleRemindersParams describes one due entity whose lead-time reminders
// should exist.
type ScheduleRemindersParams struct {
	EntityType reminder.EntityType
	EntityID   uuid.UUID
	Type       reminder.Type
	EntityName string // used in the rendered notification body
	DueDate    time.Time
	Recipients []string
	Now        time.Time // zero value means time.Now()
}

// CreateActionPlanParams creates an action plan together with its lead-time
// reminders.
type CreateActionPlanParams struct {
	CompanyID    uuid.UUID
	AssessmentID uuid.NullUUID // optional link back to the triggering assessment
	Title        string
	DueDate      time.Time
	Recipients   []string
}

// ─── METHODS ─────────────────────────────────────────────────────────────────

// ScheduleReminders creates the pending work items for a due entity. Lead
// times already elapsed are skipped; slots that already exist are left alone
// (the unique constraint turns duplicates into no-ops), so invoking this
// twice for the same entity yields the same item set, not double the count.
//
// Returns the number of newly created items.
func (s *Store) ScheduleReminders(ctx context.Context, p ScheduleRemindersParams) (int, error) {
	var created int
	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		var err error
		created, err = scheduleReminderSlots(ctx, q, p)
		return err
	})
	return created, err
}

// scheduleReminderSlots is the transaction body shared with the assessment
// flows, which create reminders inside their own larger transactions.
func scheduleReminderSlots(ctx context.Context, q db.Querier, p ScheduleRemindersParams) (int, error) {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	content := reminder.Render(p.Type, p.EntityName, p.DueDate)

	created := 0
	for _, slot := range reminder.FireTimes(p.EntityType, p.DueDate, now) {
		_, err := q.InsertReminder(ctx, db.InsertReminderParams{
			EntityType:   string(p.EntityType),
			EntityID:     p.EntityID,
			ReminderType: string(p.Type),
			LeadDays:     int16(slot.LeadDays),
			FireAt:       slot.At,
			Recipients:   p.Recipients,
			Title:        content.Title,
			Body:         content.Body,
			Priority:     string(content.Priority),
		})
		if errors.Is(err, sql.ErrNoRows) {
			// Slot already exists from a previous invocation — idempotent no-op.
			continue
		}
		if err != nil {
			return created, fmt.Errorf("schedule reminders: insert %d-day slot: %w", slot.LeadDays, err)
		}
		created++
	}
	return created, nil
}

// CreateActionPlan atomically creates the plan row and its lead-time
// reminders ({14, 7, 3, 1} days before due).
func (s *Store) CreateActionPlan(ctx context.Context, p CreateActionPlanParams) (db.ActionPlan, error) {
	var plan db.ActionPlan

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		created, err := q.CreateActionPlan(ctx, db.CreateActionPlanParams{
			CompanyID:    p.CompanyID,
			AssessmentID: p.AssessmentID,
			Title:        p.Title,
			DueDate:      p.DueDate,
		})
		if err != nil {
			return fmt.Errorf("CreateActionPlan: insert plan: %w", err)
		}
		plan = created

		_, err = scheduleReminderSlots(ctx, q, ScheduleRemindersParams{
			EntityType: reminder.EntityActionPlan,
			EntityID:   created.ID,
			Type:       reminder.TypeActionPlanOverdue,
			EntityName: created.Title,
			DueDate:    created.DueDate,
			Recipients: p.Recipients,
		})
		if err != nil {
			return fmt.Errorf("CreateActionPlan: %w", err)
		}
		return nil
	})
	if err != nil {
		return db.ActionPlan{}, err
	}
	return plan, nil
}
