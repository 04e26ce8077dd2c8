// Package recurrence computes next-due dates for re-assessments from a risk
// tier and a periodicity policy. It performs calendar arithmetic only; it
// never schedules anything itself.
package recurrence

import (
	"fmt"
	"time"

	"github.com/unomed/psi-backend/internal/scoring"
)

// Unit is the recurrence interval vocabulary persisted in config and on
// assessment rows. String values match the Postgres enum.
type Unit string

const (
	UnitNone       Unit = "none"
	UnitMonthly    Unit = "monthly"
	UnitSemiannual Unit = "semiannual"
	UnitAnnual     Unit = "annual"
)

// ParseUnit validates a persisted/config recurrence value. Malformed values
// are rejected before any state mutation, never coerced.
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case UnitNone, UnitMonthly, UnitSemiannual, UnitAnnual:
		return Unit(s), nil
	}
	return "", fmt.Errorf("recurrence: unknown unit %q", s)
}

// months returns the interval length in calendar months, or 0 for none.
func (u Unit) months() int {
	switch u {
	case UnitMonthly:
		return 1
	case UnitSemiannual:
		return 6
	case UnitAnnual:
		return 12
	}
	return 0
}

// Policy maps risk tiers to recurrence units. ByTier entries take precedence
// over Default; a tier with no entry falls back to Default. The map is only
// ever used for lookup, never iterated.
type Policy struct {
	Default Unit
	ByTier  map[scoring.RiskTier]Unit
}

// Resolve returns the unit that applies to the given tier.
func (p Policy) Resolve(tier scoring.RiskTier) Unit {
	if u, ok := p.ByTier[tier]; ok && u != "" {
		return u
	}
	if p.Default != "" {
		return p.Default
	}
	return UnitNone
}

// NextDue computes the next due date from an anchor date (normally the
// completion date). The second return value is false when the resolved unit
// is none — such assessments never produce a next-due date.
//
// Month arithmetic preserves the day-of-month where valid and clamps to the
// last day of the target month on overflow: Jan 31 + 1 month is Feb 28 (or 29
// in a leap year), not Mar 3. time.AddDate rolls over instead of clamping,
// so the clamp is explicit here.
func NextDue(anchor time.Time, u Unit) (time.Time, bool) {
	m := u.months()
	if m == 0 {
		return time.Time{}, false
	}
	return addMonthsClamped(anchor, m), true
}

// NextDueForTier resolves the unit from the policy and computes the date in
// one call. Convenience wrapper used by the completion flow.
func NextDueForTier(anchor time.Time, tier scoring.RiskTier, p Policy) (time.Time, bool) {
	return NextDue(anchor, p.Resolve(tier))
}

// addMonthsClamped adds n calendar months to t, clamping the day to the last
// valid day of the resulting month. Time-of-day and location are preserved.
func addMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()

	// Normalize to a first-of-month anchor so month addition can't roll over.
	total := int(month) - 1 + n
	year += total / 12
	month = time.Month(total%12 + 1)
	if total < 0 {
		// Go's % truncates toward zero; re-normalize for negative offsets.
		year--
		month += 12
	}

	if last := daysIn(year, month); day > last {
		day = last
	}

	h, min, sec := t.Clock()
	return time.Date(year, month, day, h, min, sec, t.Nanosecond(), t.Location())
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
