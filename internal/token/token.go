// Package token issues and checks the single-use access tokens that let an
// unauthenticated respondent open exactly one assessment. The token value is
// an opaque lookup key generated from a cryptographically secure source — it
// encodes nothing and can never be decoded back to employee data.
//
// The atomic single-redemption step (the compare-and-swap on redeemed_at)
// lives in the store; this package owns the value format, the TTL rules, and
// the binding/expiry checks that run before redemption.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultTTLDays is the link lifetime used when the caller does not specify
// one.
const DefaultTTLDays = 7

// tokenBytes is the raw entropy per token: 32 bytes, well above the 128-bit
// floor, rendered as 43 base64url characters.
const tokenBytes = 32

// ─── ERRORS ───────────────────────────────────────────────────────────────────

// The four validation failures are distinct so callers can present different
// user-facing messages for an expired link, a consumed link, and an invalid
// one. Never collapse them before logging.
var (
	ErrNotFound    = errors.New("token: not found")
	ErrMismatch    = errors.New("token: bound to a different assessment or employee")
	ErrExpired     = errors.New("token: expired")
	ErrAlreadyUsed = errors.New("token: already redeemed")
)

// ─── ISSUING ──────────────────────────────────────────────────────────────────

// Issued is a freshly generated token with its binding and expiry, ready to
// be persisted.
type Issued struct {
	Value        string
	AssessmentID uuid.UUID
	EmployeeID   uuid.UUID
	ExpiresAt    time.Time
}

// Issue generates a new opaque token bound to (assessmentID, employeeID) with
// an expiry of now + ttlDays. A non-positive ttlDays falls back to
// DefaultTTLDays.
func Issue(assessmentID, employeeID uuid.UUID, ttlDays int, now time.Time) (Issued, error) {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}

	value, err := generate()
	if err != nil {
		return Issued{}, err
	}

	return Issued{
		Value:        value,
		AssessmentID: assessmentID,
		EmployeeID:   employeeID,
		ExpiresAt:    now.AddDate(0, 0, ttlDays),
	}, nil
}

// generate returns a fresh random token value.
func generate() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token: generate: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ─── CHECKING ─────────────────────────────────────────────────────────────────

// Record is the persisted state of a token as loaded from storage. Local
// struct so this package does not import db.
type Record struct {
	AssessmentID uuid.UUID
	EmployeeID   uuid.UUID
	ExpiresAt    time.Time
	RedeemedAt   time.Time // zero when never redeemed
}

// Check verifies that a loaded token record is bound to exactly the given
// (assessment, employee) pair, has not expired, and has not been redeemed.
// Check never mutates anything — the store runs the atomic redemption only
// after Check passes inside the same transaction.
//
// Checks run in mismatch → expiry → redemption order so a respondent with a
// stale link for the right assessment sees "expired", not "already used".
func Check(rec Record, assessmentID, employeeID uuid.UUID, now time.Time) error {
	if rec.AssessmentID != assessmentID || rec.EmployeeID != employeeID {
		return ErrMismatch
	}
	if !now.Before(rec.ExpiresAt) {
		return ErrExpired
	}
	if !rec.RedeemedAt.IsZero() {
		return ErrAlreadyUsed
	}
	return nil
}
