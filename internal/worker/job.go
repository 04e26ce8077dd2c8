package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/unomed/psi-backend/internal/db"
	"github.com/unomed/psi-backend/internal/notify"
	"github.com/unomed/psi-backend/internal/retry"
)

// Job delivers a single claimed reminder work item. Claiming and delivery are
// separate methods so they can be tested independently and so Dispatch reads
// like a spec.
type Job struct {
	q      db.Querier
	sender notify.Sender
	policy retry.Policy
	logger *slog.Logger
}

// NewJob constructs a Job. The retry policy bounds delivery attempts for one
// item within one dispatch; after it is exhausted the item is terminally
// failed.
func NewJob(q db.Querier, sender notify.Sender, policy retry.Policy, logger *slog.Logger) *Job {
	return &Job{
		q:      q,
		sender: sender,
		policy: policy,
		logger: logger,
	}
}

// Dispatch processes one work item:
//
//  1. Claim it with the conditional scheduled → sent update. Losing the claim
//     (another dispatcher instance won, or the item is no longer scheduled)
//     is a silent no-op — at-most-once delivery depends on exactly one
//     claimant proceeding past this point.
//  2. Attempt delivery through the external channel, bounded by the retry
//     policy.
//  3. On delivery failure, downgrade the item to failed with the error detail
//     retained for operator review.
//
// A delivery failure is recorded on the item, not returned: one item's
// failure must never abort the rest of the cycle. A non-nil return means the
// failure could not even be recorded.
func (j *Job) Dispatch(ctx context.Context, itemID uuid.UUID) error {
	log := j.logger.With("work_item_id", itemID)

	// 1. Claim. The commit point comes before the external send, so a crash
	//    after this line loses at most one notification — it can never double
	//    deliver.
	item, err := j.q.ClaimReminderSent(ctx, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("dispatch: item already claimed or not pending")
		return nil
	}
	if err != nil {
		return fmt.Errorf("dispatch: claim item: %w", err)
	}

	// 2. Deliver.
	sendErr := retry.Do(ctx, j.policy, func(ctx context.Context) error {
		return j.sender.SendNotification(ctx, notify.Message{
			To:       item.Recipients,
			Subject:  item.Title,
			HTML:     item.Body,
			Priority: string(item.Priority),
		})
	})
	if sendErr == nil {
		log.Info("dispatch: delivered",
			"reminder_type", item.ReminderType,
			"entity_type", item.EntityType,
			"entity_id", item.EntityID,
			"recipients", len(item.Recipients),
		)
		return nil
	}

	// 3. Record the failure. The item stays terminally failed; operators see
	//    the error on the row.
	log.Error("dispatch: delivery failed", "error", sendErr)
	if _, err := j.q.MarkReminderFailed(ctx, db.MarkReminderFailedParams{
		ID:           item.ID,
		ErrorMessage: sql.NullString{String: sendErr.Error(), Valid: true},
	}); err != nil {
		return fmt.Errorf("dispatch: mark item failed: %w", err)
	}
	return nil
}
