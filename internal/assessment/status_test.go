package assessment_test

import (
	"errors"
	"testing"

	"github.com/unomed/psi-backend/internal/assessment"
)

func TestCanTransition(t *testing.T) {
	type move struct{ from, to assessment.Status }

	legal := []move{
		{assessment.StatusScheduled, assessment.StatusSent},
		{assessment.StatusScheduled, assessment.StatusCompleted}, // sent is optional
		{assessment.StatusScheduled, assessment.StatusCancelled},
		{assessment.StatusSent, assessment.StatusCompleted},
		{assessment.StatusSent, assessment.StatusCancelled},
	}
	for _, m := range legal {
		if err := assessment.CanTransition(m.from, m.to); err != nil {
			t.Errorf("%s → %s: unexpected error %v", m.from, m.to, err)
		}
	}

	illegal := []move{
		{assessment.StatusCompleted, assessment.StatusCancelled}, // completed cannot be cancelled
		{assessment.StatusCompleted, assessment.StatusScheduled},
		{assessment.StatusCompleted, assessment.StatusSent},
		{assessment.StatusCancelled, assessment.StatusScheduled},
		{assessment.StatusCancelled, assessment.StatusCompleted},
		{assessment.StatusSent, assessment.StatusScheduled},
		{assessment.StatusScheduled, assessment.StatusScheduled},
	}
	for _, m := range illegal {
		err := assessment.CanTransition(m.from, m.to)
		if !errors.Is(err, assessment.ErrInvalidTransition) {
			t.Errorf("%s → %s: got %v, want ErrInvalidTransition", m.from, m.to, err)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status assessment.Status
		want   bool
	}{
		{assessment.StatusScheduled, false},
		{assessment.StatusSent, false},
		{assessment.StatusCompleted, true},
		{assessment.StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"scheduled", "sent", "completed", "cancelled"} {
		if _, err := assessment.ParseStatus(valid); err != nil {
			t.Errorf("ParseStatus(%q): %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "done", "SENT", "pending"} {
		if _, err := assessment.ParseStatus(invalid); err == nil {
			t.Errorf("ParseStatus(%q): expected error", invalid)
		}
	}
}
