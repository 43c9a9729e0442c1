package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KeyPlan is a named pricing tier fixing an API key's rate limits and validity.
// Plans are immutable once set; upgrading means buying a new key.
type KeyPlan string

const (
	PlanFree       KeyPlan = "free"
	PlanBasic      KeyPlan = "basic"
	PlanPremium    KeyPlan = "premium"
	PlanEnterprise KeyPlan = "enterprise"
)

// Valid reports whether p is a member of the plan enumeration.
func (p KeyPlan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPremium, PlanEnterprise:
		return true
	}
	return false
}

// Paid reports whether issuing a key on this plan requires payment verification.
func (p KeyPlan) Paid() bool {
	return p.Valid() && p != PlanFree
}

// KeyStatus is monotonic: active keys become expired (time-based) or
// revoked (manual); neither terminal state is ever reactivated.
type KeyStatus string

const (
	KeyActive  KeyStatus = "active"
	KeyExpired KeyStatus = "expired"
	KeyRevoked KeyStatus = "revoked"
)

// Terminal reports whether the key can no longer be used.
func (s KeyStatus) Terminal() bool {
	return s == KeyExpired || s == KeyRevoked
}

// APIKey is an NGO's credential for the external data API. The plaintext
// secret is shown exactly once at issuance; only its hash and a display
// prefix are persisted.
type APIKey struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	Name   string `gorm:"type:text;not null" json:"name"`

	// KeyHash is the SHA-256 hex digest of the full secret. The unique index
	// doubles as the lookup path for data-API authentication.
	KeyHash string `gorm:"uniqueIndex;not null" json:"-"`
	// KeyPrefix is the masked display form, e.g. "esk_a1b2c3d4…".
	KeyPrefix string `gorm:"not null" json:"key"`

	Plan   KeyPlan   `gorm:"type:text;not null" json:"plan"`
	Status KeyStatus `gorm:"type:text;not null;default:'active'" json:"status"`

	// Rate limits are copied from the plan table at creation and never
	// mutated independently of the plan.
	RequestsPerMinute int `gorm:"not null" json:"requests_per_minute"`
	RequestsPerDay    int `gorm:"not null" json:"requests_per_day"`
	RequestsPerMonth  int `gorm:"not null" json:"requests_per_month"`

	TotalRequests     int64 `gorm:"not null;default:0" json:"total_requests"`
	RequestsToday     int64 `gorm:"not null;default:0" json:"requests_today"`
	RequestsThisMonth int64 `gorm:"not null;default:0" json:"requests_this_month"`

	// DayResetAt/MonthResetAt mark the start of the window the counters
	// cover; the lazy boundary reset compares them against now on use.
	DayResetAt   time.Time `gorm:"not null" json:"-"`
	MonthResetAt time.Time `gorm:"not null" json:"-"`

	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that generates a UUID if the ID is not set.
func (k *APIKey) BeforeCreate(tx *gorm.DB) (err error) {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return
}
