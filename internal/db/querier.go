package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Querier is the full query surface. Handlers and the worker depend on this
// interface rather than *Queries so tests can inject fakes.
type Querier interface {
	// Templates
	CreateTemplate(ctx context.Context, arg CreateTemplateParams) (QuestionnaireTemplate, error)
	GetTemplateByID(ctx context.Context, id uuid.UUID) (QuestionnaireTemplate, error)
	CreateQuestion(ctx context.Context, arg CreateQuestionParams) (Question, error)
	ListQuestionsByTemplate(ctx context.Context, templateID uuid.UUID) ([]Question, error)

	// Risk configs
	GetRiskConfig(ctx context.Context, companyID uuid.UUID) (RiskConfigRow, error)
	UpsertRiskConfig(ctx context.Context, arg UpsertRiskConfigParams) (RiskConfigRow, error)

	// Assessment instances
	CreateAssessment(ctx context.Context, arg CreateAssessmentParams) (AssessmentInstance, error)
	GetAssessmentByID(ctx context.Context, id uuid.UUID) (AssessmentInstance, error)
	MarkAssessmentSent(ctx context.Context, id uuid.UUID) (AssessmentInstance, error)
	CancelAssessment(ctx context.Context, id uuid.UUID) (AssessmentInstance, error)
	CompleteAssessment(ctx context.Context, arg CompleteAssessmentParams) (AssessmentInstance, error)

	// Access tokens
	InsertAccessToken(ctx context.Context, arg InsertAccessTokenParams) (AccessToken, error)
	GetAccessToken(ctx context.Context, tokenValue string) (AccessToken, error)
	RedeemAccessToken(ctx context.Context, tokenValue string) (AccessToken, error)

	// Reminder work items
	InsertReminder(ctx context.Context, arg InsertReminderParams) (ReminderWorkItem, error)
	ListDueReminders(ctx context.Context, now time.Time) ([]ReminderWorkItem, error)
	ListRemindersByEntity(ctx context.Context, arg ListRemindersByEntityParams) ([]ReminderWorkItem, error)
	ClaimReminderSent(ctx context.Context, id uuid.UUID) (ReminderWorkItem, error)
	MarkReminderFailed(ctx context.Context, arg MarkReminderFailedParams) (ReminderWorkItem, error)

	// Action plans
	CreateActionPlan(ctx context.Context, arg CreateActionPlanParams) (ActionPlan, error)
	GetActionPlanByID(ctx context.Context, id uuid.UUID) (ActionPlan, error)
}

var _ Querier = (*Queries)(nil)
