// Package reminder computes reminder fire-times for due entities and renders
// the notification content for each reminder type. Persistence and delivery
// live elsewhere (store and worker); everything here is pure.
package reminder

import (
	"fmt"
	"time"
)

// ─── ENUMS ────────────────────────────────────────────────────────────────────

// EntityType identifies what kind of record a work item belongs to.
type EntityType string

const (
	EntityAssessment EntityType = "assessment"
	EntityActionPlan EntityType = "action_plan"
)

// Type is the notification vocabulary. Each type carries a fixed priority and
// title template; only the body varies per entity.
type Type string

const (
	TypeAssessmentDue     Type = "assessment_due"
	TypeReassessmentDue   Type = "reassessment_due"
	TypeActionPlanOverdue Type = "action_plan_overdue"
	TypeHighRiskAlert     Type = "high_risk_alert"
)

// Status is the delivery state of a work item. Scheduled items are pending;
// sent and failed are terminal — a work item is never reused after reaching
// either.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
)

// Priority is the fixed urgency attached to a reminder type.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Priority returns the fixed priority for the type: high for overdue action
// plans and risk alerts, medium for due-date reminders.
func (t Type) Priority() Priority {
	switch t {
	case TypeActionPlanOverdue, TypeHighRiskAlert:
		return PriorityHigh
	}
	return PriorityMedium
}

// Title returns the fixed title template for the type.
func (t Type) Title() string {
	switch t {
	case TypeAssessmentDue:
		return "Avaliação psicossocial agendada"
	case TypeReassessmentDue:
		return "Reavaliação psicossocial agendada"
	case TypeActionPlanOverdue:
		return "Plano de ação com prazo próximo"
	case TypeHighRiskAlert:
		return "Alerta: risco psicossocial elevado"
	}
	return "Notificação"
}

// Valid reports whether t is a known reminder type.
func (t Type) Valid() bool {
	switch t {
	case TypeAssessmentDue, TypeReassessmentDue, TypeActionPlanOverdue, TypeHighRiskAlert:
		return true
	}
	return false
}

// ─── LEAD TIMES ───────────────────────────────────────────────────────────────

// Lead-time tables, in days before the due date. Assessments get a shorter
// runway than action plans, which need time for corrective work.
var (
	assessmentLeadDays = []int{7, 3, 1}
	actionPlanLeadDays = []int{14, 7, 3, 1}
)

// LeadDays returns a copy of the lead-time table for the entity type.
func LeadDays(e EntityType) []int {
	var src []int
	switch e {
	case EntityActionPlan:
		src = actionPlanLeadDays
	default:
		src = assessmentLeadDays
	}
	out := make([]int, len(src))
	copy(out, src)
	return out
}

// FireTime is one computed reminder slot: how many days before due, and the
// absolute instant it should fire.
type FireTime struct {
	LeadDays int
	At       time.Time
}

// FireTimes computes the reminder slots for an entity due at due, evaluated
// at now. A slot is included only when its fire-time is strictly in the
// future — lead times that have already elapsed are silently skipped, so a
// past-due reminder is never created. Every returned fire-time is ≤ due.
func FireTimes(e EntityType, due, now time.Time) []FireTime {
	leads := LeadDays(e)
	out := make([]FireTime, 0, len(leads))
	for _, d := range leads {
		at := due.AddDate(0, 0, -d)
		if !at.After(now) {
			continue
		}
		out = append(out, FireTime{LeadDays: d, At: at})
	}
	return out
}

// ─── RENDERING ────────────────────────────────────────────────────────────────

// Content is a rendered notification ready for delivery.
type Content struct {
	Title    string
	Body     string
	Priority Priority
}

// Render produces the notification content for a reminder. entityName is the
// human label of the owning entity (employee name, plan title); due is the
// owning entity's due date.
func Render(t Type, entityName string, due time.Time) Content {
	dueStr := due.Format("02/01/2006")

	var body string
	switch t {
	case TypeAssessmentDue:
		body = fmt.Sprintf("A avaliação psicossocial de %s está agendada para %s. Garanta que o link de acesso foi enviado.", entityName, dueStr)
	case TypeReassessmentDue:
		body = fmt.Sprintf("A reavaliação de %s, definida pela periodicidade de risco, está agendada para %s.", entityName, dueStr)
	case TypeActionPlanOverdue:
		body = fmt.Sprintf("O plano de ação %q vence em %s. Ações pendentes devem ser concluídas antes do prazo.", entityName, dueStr)
	case TypeHighRiskAlert:
		body = fmt.Sprintf("A avaliação de %s resultou em nível de risco elevado em %s. Recomenda-se abrir um plano de ação.", entityName, dueStr)
	default:
		body = fmt.Sprintf("Notificação referente a %s (%s).", entityName, dueStr)
	}

	return Content{
		Title:    t.Title(),
		Body:     body,
		Priority: t.Priority(),
	}
}
