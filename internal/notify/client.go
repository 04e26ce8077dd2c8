// Package notify defines the interface for the external notification channel
// and provides a Resend-backed implementation. The dispatcher and the send
// flow are the only callers.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Message is a rendered notification ready for delivery to one or more
// recipients.
type Message struct {
	To       []string
	Subject  string
	HTML     string
	Priority string // "high" | "medium" — used for the header tag only
}

// InviteParams holds the data for the assessment access-link email.
type InviteParams struct {
	To           string
	EmployeeName string
	PortalURL    string
	ExpiresAt    time.Time
}

// Sender is the interface the worker and the send flow use for delivery.
// Tests inject a stub that records calls without hitting the network.
type Sender interface {
	// SendNotification delivers a reminder/alert work item's content.
	SendNotification(ctx context.Context, m Message) error

	// SendInvite delivers the portal access link to a respondent. Called by
	// the send-assessment flow after the token is issued.
	SendInvite(ctx context.Context, p InviteParams) error
}

// PortalURL builds the respondent link. All four components are mandatory on
// the receiving side; the portal handler rejects a link with any of them
// missing before it ever looks the token up.
func PortalURL(baseURL string, templateID, employeeID, assessmentID uuid.UUID, tokenValue string) string {
	q := url.Values{}
	q.Set("employee", employeeID.String())
	q.Set("assessment", assessmentID.String())
	q.Set("token", tokenValue)
	return fmt.Sprintf("%s/portal/%s?%s", baseURL, templateID, q.Encode())
}
