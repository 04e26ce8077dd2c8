// Package assessment defines the AssessmentInstance lifecycle: the status
// vocabulary and the legal transitions between states. The store enforces
// these rules with conditional updates; handlers use them to return the right
// error before touching the database.
package assessment

import (
	"errors"
	"fmt"
)

// Status is the lifecycle state of an AssessmentInstance. String values match
// the Postgres enum.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ErrInvalidTransition is wrapped by CanTransition failures. Check with
// errors.Is.
var ErrInvalidTransition = errors.New("assessment: invalid status transition")

// ParseStatus validates a persisted status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusSent, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", fmt.Errorf("assessment: unknown status %q", s)
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from → to is a legal lifecycle move:
//
//	scheduled → sent, completed, cancelled
//	sent      → completed, cancelled
//
// The sent step is optional — a link may be redeemed without an explicit send
// notification, so scheduled → completed is valid. Completed and cancelled
// are terminal; a completed assessment can never be cancelled.
func CanTransition(from, to Status) error {
	allowed := false
	switch from {
	case StatusScheduled:
		allowed = to == StatusSent || to == StatusCompleted || to == StatusCancelled
	case StatusSent:
		allowed = to == StatusCompleted || to == StatusCancelled
	}
	if !allowed {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}
	return nil
}
