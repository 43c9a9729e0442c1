package notify

import (
	"ecosakshi/backend/internal/models"

	"gopkg.in/gomail.v2"
)

// Mailer delivers notifications over SMTP. The trial-key mail is the single
// place the plaintext secret leaves the system.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailer(host string, port int, username, password, from string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (m *Mailer) Name() string { return "email" }

func (m *Mailer) Deliver(user *models.User, ev models.Event) error {
	if user.Email == "" {
		return nil
	}

	body := ev.Body
	if ev.Secret != "" {
		body += "\n\nAPI key: " + ev.Secret + "\n\nStore it safely. It cannot be retrieved again."
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", user.Email)
	msg.SetHeader("Subject", ev.Title)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}
