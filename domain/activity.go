package domain

import "time"

// ActorSystem is the actor recorded for automated mutations (webhooks, jobs).
const ActorSystem = "system"

// Activity actions. One entry is appended per meaningful state mutation;
// createdAt ordering is the canonical audit order.
const (
	ActionProjectCreated        = "PROJECT_CREATED"
	ActionProjectUpdated        = "PROJECT_UPDATED"
	ActionStatusChanged         = "STATUS_CHANGED"
	ActionPaymentReceived       = "PAYMENT_RECEIVED"
	ActionPaymentFailed         = "PAYMENT_FAILED"
	ActionManualPaymentRecorded = "MANUAL_PAYMENT_RECORDED"
	ActionGracePeriodOverride   = "GRACE_PERIOD_OVERRIDE"
	ActionMissedPaymentsReset   = "MISSED_PAYMENTS_RESET"
	ActionHandoffStarted        = "HANDOFF_STARTED"
	ActionHandoffCompleted      = "HANDOFF_COMPLETED"
)

// ActivityLog is one append-only audit trail entry.
type ActivityLog struct {
	ID        string         `json:"id"`
	ProjectID string         `json:"project_id"`
	Action    string         `json:"action"`
	Actor     string         `json:"actor"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
