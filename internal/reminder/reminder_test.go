package reminder_test

import (
	"testing"
	"time"

	"github.com/unomed/psi-backend/internal/reminder"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ─── FireTimes ───────────────────────────────────────────────────────────────

func TestFireTimes_AssessmentAllInFuture(t *testing.T) {
	due := date(2025, time.June, 20)
	now := date(2025, time.June, 1)

	slots := reminder.FireTimes(reminder.EntityAssessment, due, now)
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}

	want := []reminder.FireTime{
		{LeadDays: 7, At: date(2025, time.June, 13)},
		{LeadDays: 3, At: date(2025, time.June, 17)},
		{LeadDays: 1, At: date(2025, time.June, 19)},
	}
	for i := range want {
		if slots[i].LeadDays != want[i].LeadDays || !slots[i].At.Equal(want[i].At) {
			t.Errorf("slots[%d] = %+v, want %+v", i, slots[i], want[i])
		}
	}
}

func TestFireTimes_ActionPlanHasFourLeads(t *testing.T) {
	due := date(2025, time.July, 30)
	now := date(2025, time.July, 1)

	slots := reminder.FireTimes(reminder.EntityActionPlan, due, now)
	if len(slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(slots))
	}
	if slots[0].LeadDays != 14 {
		t.Errorf("first lead = %d, want 14", slots[0].LeadDays)
	}
}

func TestFireTimes_ElapsedLeadsSilentlySkipped(t *testing.T) {
	due := date(2025, time.June, 10)
	now := date(2025, time.June, 8) // 7-day and 3-day slots already passed

	slots := reminder.FireTimes(reminder.EntityAssessment, due, now)
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1", len(slots))
	}
	if slots[0].LeadDays != 1 {
		t.Errorf("remaining lead = %d, want 1", slots[0].LeadDays)
	}
}

func TestFireTimes_DueTodayOrPastYieldsNothing(t *testing.T) {
	now := date(2025, time.June, 10)
	for _, due := range []time.Time{now, date(2025, time.June, 1)} {
		if slots := reminder.FireTimes(reminder.EntityAssessment, due, now); len(slots) != 0 {
			t.Errorf("due=%s: got %d slots, want 0", due.Format("2006-01-02"), len(slots))
		}
	}
}

func TestFireTimes_NeverAfterDueDate(t *testing.T) {
	due := date(2025, time.September, 15)
	now := date(2025, time.August, 1)
	for _, e := range []reminder.EntityType{reminder.EntityAssessment, reminder.EntityActionPlan} {
		for _, slot := range reminder.FireTimes(e, due, now) {
			if slot.At.After(due) {
				t.Errorf("%s: fire-time %s after due date", e, slot.At)
			}
		}
	}
}

func TestFireTimes_BoundaryExactlyAtNowIsSkipped(t *testing.T) {
	due := date(2025, time.June, 10)
	now := date(2025, time.June, 3) // the 7-day slot is exactly now — not strictly future

	slots := reminder.FireTimes(reminder.EntityAssessment, due, now)
	for _, slot := range slots {
		if slot.LeadDays == 7 {
			t.Error("slot exactly at now must be skipped")
		}
	}
}

// ─── Type metadata ───────────────────────────────────────────────────────────

func TestType_Priority(t *testing.T) {
	tests := []struct {
		typ  reminder.Type
		want reminder.Priority
	}{
		{reminder.TypeAssessmentDue, reminder.PriorityMedium},
		{reminder.TypeReassessmentDue, reminder.PriorityMedium},
		{reminder.TypeActionPlanOverdue, reminder.PriorityHigh},
		{reminder.TypeHighRiskAlert, reminder.PriorityHigh},
	}
	for _, tt := range tests {
		if got := tt.typ.Priority(); got != tt.want {
			t.Errorf("%s priority = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestType_TitleIsFixedAndNonEmpty(t *testing.T) {
	for _, typ := range []reminder.Type{
		reminder.TypeAssessmentDue,
		reminder.TypeReassessmentDue,
		reminder.TypeActionPlanOverdue,
		reminder.TypeHighRiskAlert,
	} {
		if typ.Title() == "" {
			t.Errorf("%s has empty title", typ)
		}
		if !typ.Valid() {
			t.Errorf("%s reported invalid", typ)
		}
	}
	if reminder.Type("sms_blast").Valid() {
		t.Error("unknown type reported valid")
	}
}

func TestRender(t *testing.T) {
	c := reminder.Render(reminder.TypeHighRiskAlert, "Maria Souza", date(2025, time.March, 10))
	if c.Title != reminder.TypeHighRiskAlert.Title() {
		t.Errorf("title = %q", c.Title)
	}
	if c.Priority != reminder.PriorityHigh {
		t.Errorf("priority = %q, want high", c.Priority)
	}
	if c.Body == "" {
		t.Error("body is empty")
	}
}
