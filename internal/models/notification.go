package models

import "time"

// EventKind names the notification templates.
type EventKind string

const (
	EventStatusChanged  EventKind = "report_status_changed"
	EventTrialKeyIssued EventKind = "trial_key_issued"
	EventKeyPurchased   EventKind = "key_purchased"
)

// Event is a notification payload fanned out to delivery channels. It is also
// what gets published on the Redis notify channel, so other server instances
// can deliver to their own websocket clients.
type Event struct {
	UserID string    `json:"user_id"`
	Kind   EventKind `json:"kind"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`

	ReportID    string       `json:"report_id,omitempty"`
	ComplaintID string       `json:"complaint_id,omitempty"`
	OldStatus   ReportStatus `json:"old_status,omitempty"`
	NewStatus   ReportStatus `json:"new_status,omitempty"`
	Notes       string       `json:"notes,omitempty"`

	KeyID     string  `json:"key_id,omitempty"`
	KeyPrefix string  `json:"key_prefix,omitempty"`
	Plan      KeyPlan `json:"plan,omitempty"`

	// Secret carries the one-time plaintext key for the email channel only.
	// It is excluded from JSON so it never reaches Redis or a websocket.
	Secret string `json:"-"`

	At time.Time `json:"at"`
}
