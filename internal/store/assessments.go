package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/unomed/psi-backend/internal/assessment"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/recurrence"
	"github.com/unomed/psi-backend/internal/reminder"
	"github.com/unomed/psi-backend/internal/scoring"
	"github.com/unomed/psi-backend/internal/token"
)

// ─── INPUT / OUTPUT TYPES ────────────────────────────────────────────────────

// ScheduleAssessmentParams creates a new Scheduled instance with its
// lead-time reminders.
type ScheduleAssessmentParams struct {
	CompanyID     uuid.UUID
	EmployeeID    uuid.UUID
	EmployeeName  string
	EmployeeEmail string
	TemplateID    uuid.UUID
	ScheduledDate time.Time
	Recurrence    string // optional per-instance override; empty = use policy
	Recipients    []string
}

// SendAssessmentParams issues the access link for an instance.
type SendAssessmentParams struct {
	AssessmentID uuid.UUID
	TTLDays      int // non-positive falls back to token.DefaultTTLDays
}

// SentAssessment is the result of SendAssessment: the (possibly transitioned)
// instance plus the freshly issued token to embed in the portal link.
type SentAssessment struct {
	Assessment db.AssessmentInstance
	Token      db.AccessToken
}

// CompleteAssessmentParams carries a respondent's submission.
type CompleteAssessmentParams struct {
	AssessmentID uuid.UUID
	EmployeeID   uuid.UUID
	Token        string
	Answers      map[string]int

	// AlertRecipients receives the high-risk alert when the result tier is
	// high or critical. Usually the HR inbox list.
	AlertRecipients []string

	Now time.Time // zero value means time.Now()
}

// CompletionResult is everything the completion pipeline produced.
type CompletionResult struct {
	Assessment     db.AssessmentInstance
	Scores         []scoring.CategoryScore
	Classification scoring.Classification

	// NextAssessment is the automatically created Scheduled instance when the
	// recurrence policy yields a next-due date; nil otherwise.
	NextAssessment *db.AssessmentInstance

	// AlertItem is the immediate high_risk_alert work item, set when the tier
	// reached high/critical and the item was newly created. Callers can hand
	// its ID to the dispatcher for same-cycle delivery.
	AlertItem *db.ReminderWorkItem
}

// ─── ERRORS ──────────────────────────────────────────────────────────────────

// ErrNotSendable is returned by SendAssessment for instances that are already
// completed or cancelled — a link must never be issued for a closed instance.
var ErrNotSendable = errors.New("store: assessment is not in a sendable state")

// ErrNotCompletable is returned when the completion update matches no row:
// the instance is already completed or was cancelled. The token redemption in
// the same transaction rolls back, so the respondent's link stays valid if
// this was a cancellation race.
var ErrNotCompletable = errors.New("store: assessment is not in a completable state")

// ─── METHODS ─────────────────────────────────────────────────────────────────

// ScheduleAssessment atomically creates the instance and its assessment_due
// reminders.
func (s *Store) ScheduleAssessment(ctx context.Context, p ScheduleAssessmentParams) (db.AssessmentInstance, error) {
	var inst db.AssessmentInstance

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		override := sql.NullString{String: p.Recurrence, Valid: p.Recurrence != ""}
		if override.Valid {
			if _, err := recurrence.ParseUnit(p.Recurrence); err != nil {
				return fmt.Errorf("ScheduleAssessment: %w", err)
			}
		}

		created, err := q.CreateAssessment(ctx, db.CreateAssessmentParams{
			CompanyID:     p.CompanyID,
			EmployeeID:    p.EmployeeID,
			EmployeeName:  p.EmployeeName,
			EmployeeEmail: p.EmployeeEmail,
			TemplateID:    p.TemplateID,
			ScheduledDate: p.ScheduledDate,
			Recurrence:    override,
		})
		if err != nil {
			return fmt.Errorf("ScheduleAssessment: create instance: %w", err)
		}
		inst = created

		_, err = scheduleReminderSlots(ctx, q, ScheduleRemindersParams{
			EntityType: reminder.EntityAssessment,
			EntityID:   created.ID,
			Type:       reminder.TypeAssessmentDue,
			EntityName: created.EmployeeName,
			DueDate:    created.ScheduledDate,
			Recipients: p.Recipients,
		})
		if err != nil {
			return fmt.Errorf("ScheduleAssessment: %w", err)
		}
		return nil
	})
	if err != nil {
		return db.AssessmentInstance{}, err
	}
	return inst, nil
}

// SendAssessment issues a fresh single-use access token for the instance and
// transitions Scheduled → Sent. Re-sending an already-sent instance issues a
// new token without touching the status (the old link stays valid until its
// own expiry or redemption). Completed and cancelled instances return
// ErrNotSendable.
func (s *Store) SendAssessment(ctx context.Context, p SendAssessmentParams) (SentAssessment, error) {
	var out SentAssessment

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		inst, err := q.GetAssessmentByID(ctx, p.AssessmentID)
		if err != nil {
			return fmt.Errorf("SendAssessment: get instance: %w", err)
		}

		switch inst.Status {
		case assessment.StatusScheduled:
			inst, err = q.MarkAssessmentSent(ctx, inst.ID)
			if err != nil {
				return fmt.Errorf("SendAssessment: mark sent: %w", err)
			}
		case assessment.StatusSent:
			// Re-send: keep the status, just issue another link.
		default:
			return ErrNotSendable
		}

		issued, err := token.Issue(inst.ID, inst.EmployeeID, p.TTLDays, time.Now())
		if err != nil {
			return fmt.Errorf("SendAssessment: %w", err)
		}

		stored, err := q.InsertAccessToken(ctx, db.InsertAccessTokenParams{
			Token:        issued.Value,
			AssessmentID: issued.AssessmentID,
			EmployeeID:   issued.EmployeeID,
			ExpiresAt:    issued.ExpiresAt,
		})
		if err != nil {
			return fmt.Errorf("SendAssessment: store token: %w", err)
		}

		out = SentAssessment{Assessment: inst, Token: stored}
		return nil
	})

	if errors.Is(err, ErrNotSendable) {
		return SentAssessment{}, ErrNotSendable
	}
	if err != nil {
		return SentAssessment{}, err
	}
	return out, nil
}

// CompleteAssessment runs the whole completion pipeline in one serializable
// transaction:
//
//  1. Load the token and check binding + expiry + redemption (token.Check).
//  2. Load the template and aggregate/classify the answers — validation
//     failures abort before any state mutation.
//  3. Redeem the token (conditional update; the CAS loser gets
//     token.ErrAlreadyUsed).
//  4. Transition the instance to Completed with payload and computed scores.
//  5. Resolve the recurrence unit (instance override, else tenant policy for
//     the tier) and, when it is not none, create the next Scheduled instance
//     with its reassessment_due reminders.
//  6. On a high or critical tier, create an immediate high_risk_alert work
//     item for the HR recipients.
//
// Any failure rolls the whole thing back, including the token redemption.
func (s *Store) CompleteAssessment(ctx context.Context, p CompleteAssessmentParams) (CompletionResult, error) {
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}

	var result CompletionResult

	err := s.withTx(ctx, func(ctx context.Context, q db.Querier) error {
		// 1. Token lookup and checks.
		tok, err := q.GetAccessToken(ctx, p.Token)
		if errors.Is(err, sql.ErrNoRows) {
			return token.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("CompleteAssessment: get token: %w", err)
		}

		rec := token.Record{
			AssessmentID: tok.AssessmentID,
			EmployeeID:   tok.EmployeeID,
			ExpiresAt:    tok.ExpiresAt,
		}
		if tok.RedeemedAt.Valid {
			rec.RedeemedAt = tok.RedeemedAt.Time
		}
		if err := token.Check(rec, p.AssessmentID, p.EmployeeID, now); err != nil {
			return err
		}

		// 2. Load instance, template, questions; validate and score.
		inst, err := q.GetAssessmentByID(ctx, p.AssessmentID)
		if err != nil {
			return fmt.Errorf("CompleteAssessment: get instance: %w", err)
		}
		if err := assessment.CanTransition(inst.Status, assessment.StatusCompleted); err != nil {
			return ErrNotCompletable
		}

		tpl, err := q.GetTemplateByID(ctx, inst.TemplateID)
		if err != nil {
			return fmt.Errorf("CompleteAssessment: get template: %w", err)
		}
		questions, err := q.ListQuestionsByTemplate(ctx, inst.TemplateID)
		if err != nil {
			return fmt.Errorf("CompleteAssessment: list questions: %w", err)
		}

		scoringTpl := scoring.Template{
			ScaleMax:  int(tpl.ScaleMax),
			Questions: make([]scoring.Question, len(questions)),
		}
		for i, qu := range questions {
			scoringTpl.Questions[i] = scoring.Question{
				ID:       qu.ID.String(),
				Category: qu.Category,
				Weight:   int(qu.Weight),
			}
		}

		scores, err := scoring.AggregateScores(scoringTpl, p.Answers)
		if err != nil {
			return err
		}

		cfgRow, err := q.GetRiskConfig(ctx, inst.CompanyID)
		var cfg scoring.RiskConfig
		var policy recurrence.Policy
		switch {
		case errors.Is(err, sql.ErrNoRows):
			cfg = scoring.DefaultRiskConfig()
		case err != nil:
			return fmt.Errorf("CompleteAssessment: get risk config: %w", err)
		default:
			cfg = cfgRow.Config()
			policy = cfgRow.Policy()
		}

		classification, err := scoring.Classify(scores, cfg)
		if err != nil {
			return err
		}

		// 3. Redeem — first writer wins, the loser rolls back here.
		if _, err := q.RedeemAccessToken(ctx, p.Token); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return token.ErrAlreadyUsed
			}
			return fmt.Errorf("CompleteAssessment: redeem token: %w", err)
		}

		// 4. Terminal transition with payload and results.
		responsesJSON, err := json.Marshal(p.Answers)
		if err != nil {
			return fmt.Errorf("CompleteAssessment: marshal responses: %w", err)
		}
		scoresJSON, err := json.Marshal(scores)
		if err != nil {
			return fmt.Errorf("CompleteAssessment: marshal scores: %w", err)
		}

		completed, err := q.CompleteAssessment(ctx, db.CompleteAssessmentParams{
			ID:               inst.ID,
			CompletedAt:      now,
			Responses:        pqtype.NullRawMessage{RawMessage: responsesJSON, Valid: true},
			CategoryScores:   pqtype.NullRawMessage{RawMessage: scoresJSON, Valid: true},
			OverallScore:     int16(classification.OverallScore),
			RiskTier:         string(classification.Tier),
			DominantCategory: classification.DominantCategory,
		})
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotCompletable
		}
		if err != nil {
			return fmt.Errorf("CompleteAssessment: complete instance: %w", err)
		}

		result = CompletionResult{
			Assessment:     completed,
			Scores:         scores,
			Classification: classification,
		}

		// 5. Recurrence: instance override wins over the tenant policy.
		unit := policy.Resolve(classification.Tier)
		if inst.Recurrence.Valid {
			unit = recurrence.Unit(inst.Recurrence.String)
		}

		if nextDue, ok := recurrence.NextDue(now, unit); ok {
			next, err := q.CreateAssessment(ctx, db.CreateAssessmentParams{
				CompanyID:     inst.CompanyID,
				EmployeeID:    inst.EmployeeID,
				EmployeeName:  inst.EmployeeName,
				EmployeeEmail: inst.EmployeeEmail,
				TemplateID:    inst.TemplateID,
				ScheduledDate: nextDue,
				Recurrence:    inst.Recurrence,
			})
			if err != nil {
				return fmt.Errorf("CompleteAssessment: create next instance: %w", err)
			}
			result.NextAssessment = &next

			_, err = scheduleReminderSlots(ctx, q, ScheduleRemindersParams{
				EntityType: reminder.EntityAssessment,
				EntityID:   next.ID,
				Type:       reminder.TypeReassessmentDue,
				EntityName: next.EmployeeName,
				DueDate:    next.ScheduledDate,
				Recipients: p.AlertRecipients,
				Now:        now,
			})
			if err != nil {
				return fmt.Errorf("CompleteAssessment: %w", err)
			}
		}

		// 6. High-risk alert, fired on the next dispatch cycle. The unique
		//    slot (entity, high_risk_alert, lead 0) makes this idempotent too.
		if classification.Tier.AtLeast(scoring.TierHigh) && len(p.AlertRecipients) > 0 {
			alert := reminder.Render(reminder.TypeHighRiskAlert, inst.EmployeeName, now)
			item, err := q.InsertReminder(ctx, db.InsertReminderParams{
				EntityType:   string(reminder.EntityAssessment),
				EntityID:     inst.ID,
				ReminderType: string(reminder.TypeHighRiskAlert),
				LeadDays:     0,
				FireAt:       now,
				Recipients:   p.AlertRecipients,
				Title:        alert.Title,
				Body:         alert.Body,
				Priority:     string(alert.Priority),
			})
			switch {
			case errors.Is(err, sql.ErrNoRows):
				// Alert slot already exists — nothing new to dispatch.
			case err != nil:
				return fmt.Errorf("CompleteAssessment: insert high-risk alert: %w", err)
			default:
				result.AlertItem = &item
			}
		}

		return nil
	})

	if err != nil {
		return CompletionResult{}, err
	}
	return result, nil
}
