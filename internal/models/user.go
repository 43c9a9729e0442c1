package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role determines what a user is allowed to do. Citizens file reports,
// authorities triage them, NGOs consume the data API, admins do everything.
type Role string

const (
	RoleCitizen   Role = "citizen"
	RoleAuthority Role = "authority"
	RoleAdmin     Role = "admin"
	RoleNGO       Role = "ngo"
)

// User represents an account in the system. Authentication happens upstream;
// we only store the profile and the role used for authorization checks.
type User struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Name  string `json:"name"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Role  Role   `gorm:"type:text;not null;default:'citizen'" json:"role"`

	// TelegramChatID links the Telegram notification channel. Zero means not linked.
	TelegramChatID int64 `gorm:"index" json:"-"`
	// Language selects the notification template language (e.g. "en", "hi").
	Language string `gorm:"type:text;default:'en'" json:"language"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that generates a UUID if the ID is not set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// Actor is the acting user passed explicitly into every engine operation:
// the identity provider supplies it, the engines authorize against it.
type Actor struct {
	ID   string
	Role Role
}

// IsStaff reports whether the actor may transition report status.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAuthority || a.Role == RoleAdmin
}
