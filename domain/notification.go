package domain

import "time"

// Notification types surfaced to users.
const (
	NotificationPaymentReceived    = "PAYMENT_RECEIVED"
	NotificationPaymentMissed      = "PAYMENT_MISSED"
	NotificationStatusChange       = "STATUS_CHANGE"
	NotificationGracePeriodWarning = "GRACE_PERIOD_WARNING"
	NotificationHandoffReady       = "HANDOFF_READY"
)

// Notification is a user-facing message, optionally tied to a project.
// Only the read flag ever mutates after creation.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
