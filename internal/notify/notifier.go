// Package notify delivers user notifications over websocket, Telegram and
// email. Delivery is fire-and-forget from the engines' perspective: a channel
// failure is logged and never propagated back into the operation that
// triggered it.
package notify

import (
	"log"
	"time"

	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"
)

// Notifier is what the engines see. All methods are best-effort.
type Notifier interface {
	StatusChanged(report *models.Report, old models.ReportStatus, notes string)
	TrialKeyIssued(key *models.APIKey, plaintext string)
	KeyPurchased(key *models.APIKey)
}

// Channel is one delivery mechanism (websocket broadcast, Telegram, SMTP).
type Channel interface {
	Name() string
	Deliver(user *models.User, ev models.Event) error
}

// Dispatcher resolves the recipient, renders the localized message and fans
// the event out to every configured channel.
type Dispatcher struct {
	Storage   storage.Storage
	Templates *TemplateStore
	Channels  []Channel
	Now       func() time.Time
}

func NewDispatcher(s storage.Storage, templates *TemplateStore, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		Storage:   s,
		Templates: templates,
		Channels:  channels,
		Now:       time.Now,
	}
}

func (d *Dispatcher) StatusChanged(report *models.Report, old models.ReportStatus, notes string) {
	user, ok := d.recipient(report.UserID)
	if !ok {
		return
	}
	ev := models.Event{
		UserID:      user.ID,
		Kind:        models.EventStatusChanged,
		Title:       d.Templates.Render(user.Language, "status_changed.title"),
		Body:        d.Templates.Render(user.Language, "status_changed.body", report.ComplaintID, old, report.Status),
		ReportID:    report.ID,
		ComplaintID: report.ComplaintID,
		OldStatus:   old,
		NewStatus:   report.Status,
		Notes:       notes,
		At:          d.Now(),
	}
	d.send(user, ev)
}

func (d *Dispatcher) TrialKeyIssued(key *models.APIKey, plaintext string) {
	user, ok := d.recipient(key.UserID)
	if !ok {
		return
	}
	ev := models.Event{
		UserID:    user.ID,
		Kind:      models.EventTrialKeyIssued,
		Title:     d.Templates.Render(user.Language, "trial_key.title"),
		Body:      d.Templates.Render(user.Language, "trial_key.body", key.Name, key.ExpiresAt.Format("02 Jan 2006")),
		KeyID:     key.ID,
		KeyPrefix: key.KeyPrefix,
		Plan:      key.Plan,
		Secret:    plaintext,
		At:        d.Now(),
	}
	d.send(user, ev)
}

func (d *Dispatcher) KeyPurchased(key *models.APIKey) {
	user, ok := d.recipient(key.UserID)
	if !ok {
		return
	}
	ev := models.Event{
		UserID:    user.ID,
		Kind:      models.EventKeyPurchased,
		Title:     d.Templates.Render(user.Language, "key_purchased.title"),
		Body:      d.Templates.Render(user.Language, "key_purchased.body", key.Name, key.Plan, key.ExpiresAt.Format("02 Jan 2006")),
		KeyID:     key.ID,
		KeyPrefix: key.KeyPrefix,
		Plan:      key.Plan,
		At:        d.Now(),
	}
	d.send(user, ev)
}

func (d *Dispatcher) recipient(userID string) (*models.User, bool) {
	user, err := d.Storage.GetUserByID(userID)
	if err != nil {
		log.Printf("ERROR: Notification recipient %s not found: %v", userID, err)
		return nil, false
	}
	return user, true
}

func (d *Dispatcher) send(user *models.User, ev models.Event) {
	for _, ch := range d.Channels {
		if err := ch.Deliver(user, ev); err != nil {
			log.Printf("ERROR: %s delivery to user %s failed: %v", ch.Name(), user.ID, err)
		}
	}
}

// BroadcastChannel publishes events to Redis Pub/Sub; each server's websocket
// hub subscribes and delivers to its own connected clients. The plaintext
// secret never crosses this channel (excluded from the JSON form).
type BroadcastChannel struct {
	Storage storage.Storage
}

func (b *BroadcastChannel) Name() string { return "websocket" }

func (b *BroadcastChannel) Deliver(user *models.User, ev models.Event) error {
	return b.Storage.PublishEvent(ev)
}
