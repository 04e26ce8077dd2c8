package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/token"
)

// ─── Issue ───────────────────────────────────────────────────────────────────

func TestIssue_DefaultTTL(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	assessmentID, employeeID := uuid.New(), uuid.New()

	issued, err := token.Issue(assessmentID, employeeID, 0, now)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if want := now.AddDate(0, 0, token.DefaultTTLDays); !issued.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %s, want %s", issued.ExpiresAt, want)
	}
	if issued.AssessmentID != assessmentID || issued.EmployeeID != employeeID {
		t.Error("binding not preserved")
	}
	// 32 bytes → 43 base64url chars, no padding.
	if len(issued.Value) != 43 {
		t.Errorf("token length = %d, want 43", len(issued.Value))
	}
}

func TestIssue_ValuesAreUnique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		issued, err := token.Issue(uuid.New(), uuid.New(), 7, now)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if _, dup := seen[issued.Value]; dup {
			t.Fatal("duplicate token value generated")
		}
		seen[issued.Value] = struct{}{}
	}
}

// ─── Check ───────────────────────────────────────────────────────────────────

func TestCheck(t *testing.T) {
	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	assessmentID, employeeID := uuid.New(), uuid.New()

	valid := token.Record{
		AssessmentID: assessmentID,
		EmployeeID:   employeeID,
		ExpiresAt:    now.AddDate(0, 0, 7),
	}

	tests := []struct {
		name         string
		rec          token.Record
		assessmentID uuid.UUID
		employeeID   uuid.UUID
		at           time.Time
		wantErr      error
	}{
		{"valid", valid, assessmentID, employeeID, now, nil},
		{"wrong assessment", valid, uuid.New(), employeeID, now, token.ErrMismatch},
		{"wrong employee", valid, assessmentID, uuid.New(), now, token.ErrMismatch},
		{"exactly at expiry", valid, assessmentID, employeeID, valid.ExpiresAt, token.ErrExpired},
		{"past expiry", valid, assessmentID, employeeID, valid.ExpiresAt.Add(time.Hour), token.ErrExpired},
		{
			"already redeemed",
			token.Record{
				AssessmentID: assessmentID,
				EmployeeID:   employeeID,
				ExpiresAt:    now.AddDate(0, 0, 7),
				RedeemedAt:   now.Add(-time.Hour),
			},
			assessmentID, employeeID, now, token.ErrAlreadyUsed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := token.Check(tt.rec, tt.assessmentID, tt.employeeID, tt.at)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// A mismatched pair on an expired, redeemed record still reports mismatch
// first — binding failures must not leak redemption state.
func TestCheck_MismatchWinsOverOtherFailures(t *testing.T) {
	now := time.Now()
	rec := token.Record{
		AssessmentID: uuid.New(),
		EmployeeID:   uuid.New(),
		ExpiresAt:    now.Add(-time.Hour),
		RedeemedAt:   now.Add(-2 * time.Hour),
	}
	err := token.Check(rec, uuid.New(), uuid.New(), now)
	if !errors.Is(err, token.ErrMismatch) {
		t.Errorf("got %v, want ErrMismatch", err)
	}
}
