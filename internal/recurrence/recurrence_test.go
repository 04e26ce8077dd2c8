package recurrence_test

import (
	"testing"
	"time"

	"github.com/unomed/psi-backend/internal/recurrence"
	"github.com/unomed/psi-backend/internal/scoring"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ─── NextDue ─────────────────────────────────────────────────────────────────

func TestNextDue(t *testing.T) {
	tests := []struct {
		name   string
		anchor time.Time
		unit   recurrence.Unit
		want   time.Time
	}{
		{"monthly plain", date(2025, time.March, 10), recurrence.UnitMonthly, date(2025, time.April, 10)},
		{"monthly clamps Jan 31 to Feb 28", date(2025, time.January, 31), recurrence.UnitMonthly, date(2025, time.February, 28)},
		{"monthly clamps to Feb 29 in leap year", date(2024, time.January, 31), recurrence.UnitMonthly, date(2024, time.February, 29)},
		{"monthly clamps Mar 31 to Apr 30", date(2025, time.March, 31), recurrence.UnitMonthly, date(2025, time.April, 30)},
		{"monthly across year boundary", date(2025, time.December, 15), recurrence.UnitMonthly, date(2026, time.January, 15)},
		{"semiannual", date(2025, time.January, 15), recurrence.UnitSemiannual, date(2025, time.July, 15)},
		{"semiannual clamps Aug 31 to Feb 28", date(2025, time.August, 31), recurrence.UnitSemiannual, date(2026, time.February, 28)},
		{"annual", date(2025, time.May, 15), recurrence.UnitAnnual, date(2026, time.May, 15)},
		{"annual clamps leap day", date(2024, time.February, 29), recurrence.UnitAnnual, date(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := recurrence.NextDue(tt.anchor, tt.unit)
			if !ok {
				t.Fatal("NextDue returned ok=false for a recurring unit")
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextDue(%s, %s) = %s, want %s",
					tt.anchor.Format("2006-01-02"), tt.unit,
					got.Format("2006-01-02"), tt.want.Format("2006-01-02"))
			}
		})
	}
}

func TestNextDue_NoneNeverProducesADate(t *testing.T) {
	if _, ok := recurrence.NextDue(date(2025, time.June, 1), recurrence.UnitNone); ok {
		t.Error("unit none must never produce a next-due date")
	}
}

func TestNextDue_PreservesTimeOfDay(t *testing.T) {
	anchor := time.Date(2025, time.March, 10, 14, 30, 0, 0, time.UTC)
	got, ok := recurrence.NextDue(anchor, recurrence.UnitMonthly)
	if !ok {
		t.Fatal("expected a date")
	}
	if got.Hour() != 14 || got.Minute() != 30 {
		t.Errorf("time of day not preserved: got %s", got)
	}
}

// ─── ParseUnit ───────────────────────────────────────────────────────────────

func TestParseUnit(t *testing.T) {
	for _, valid := range []string{"none", "monthly", "semiannual", "annual"} {
		if _, err := recurrence.ParseUnit(valid); err != nil {
			t.Errorf("ParseUnit(%q) unexpected error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "weekly", "MONTHLY", "quarterly"} {
		if _, err := recurrence.ParseUnit(invalid); err == nil {
			t.Errorf("ParseUnit(%q) expected error, got nil", invalid)
		}
	}
}

// ─── Policy ──────────────────────────────────────────────────────────────────

func TestPolicy_Resolve(t *testing.T) {
	p := recurrence.Policy{
		Default: recurrence.UnitAnnual,
		ByTier: map[scoring.RiskTier]recurrence.Unit{
			scoring.TierCritical: recurrence.UnitMonthly,
			scoring.TierHigh:     recurrence.UnitSemiannual,
		},
	}

	tests := []struct {
		tier scoring.RiskTier
		want recurrence.Unit
	}{
		{scoring.TierCritical, recurrence.UnitMonthly},
		{scoring.TierHigh, recurrence.UnitSemiannual},
		{scoring.TierMedium, recurrence.UnitAnnual}, // falls back to default
		{scoring.TierLow, recurrence.UnitAnnual},
	}
	for _, tt := range tests {
		if got := p.Resolve(tt.tier); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.tier, got, tt.want)
		}
	}
}

func TestPolicy_EmptyPolicyResolvesToNone(t *testing.T) {
	var p recurrence.Policy
	if got := p.Resolve(scoring.TierCritical); got != recurrence.UnitNone {
		t.Errorf("empty policy resolved to %q, want none", got)
	}
}

// End-to-end recurrence slice of the completion flow: a critical result with
// a {critical: monthly} policy anchored at 2025-03-10 is due 2025-04-10.
func TestNextDueForTier_CriticalMonthly(t *testing.T) {
	p := recurrence.Policy{
		ByTier: map[scoring.RiskTier]recurrence.Unit{
			scoring.TierCritical: recurrence.UnitMonthly,
		},
	}
	got, ok := recurrence.NextDueForTier(date(2025, time.March, 10), scoring.TierCritical, p)
	if !ok {
		t.Fatal("expected a next-due date")
	}
	if want := date(2025, time.April, 10); !got.Equal(want) {
		t.Errorf("got %s, want %s", got.Format("2006-01-02"), want.Format("2006-01-02"))
	}
}
