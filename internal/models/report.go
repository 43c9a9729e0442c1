package models

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ReportStatus is the report's lifecycle state. Transitions between states
// are governed by the lifecycle engine; everything else treats it as opaque.
type ReportStatus string

const (
	StatusPending     ReportStatus = "pending"
	StatusVerified    ReportStatus = "verified"
	StatusUnderReview ReportStatus = "under-review"
	StatusInProgress  ReportStatus = "in-progress"
	StatusResolved    ReportStatus = "resolved"
	StatusRejected    ReportStatus = "rejected"
)

// Valid reports whether s is a member of the status enumeration.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusUnderReview, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s ReportStatus) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Public reports whether a report in status s is visible to NGO/public consumers.
// Pending and rejected reports are never public.
func (s ReportStatus) Public() bool {
	return s == StatusVerified || s == StatusInProgress || s == StatusResolved
}

// ReportCategory classifies the kind of environmental violation.
type ReportCategory string

const (
	CategoryAirPollution        ReportCategory = "air-pollution"
	CategoryWaterPollution      ReportCategory = "water-pollution"
	CategoryWasteDumping        ReportCategory = "waste-dumping"
	CategoryNoisePollution      ReportCategory = "noise-pollution"
	CategoryIndustrialViolation ReportCategory = "industrial-violation"
	CategoryDeforestation       ReportCategory = "deforestation"
	CategoryOther               ReportCategory = "other"
)

// Valid reports whether c is a member of the category enumeration.
func (c ReportCategory) Valid() bool {
	switch c {
	case CategoryAirPollution, CategoryWaterPollution, CategoryWasteDumping,
		CategoryNoisePollution, CategoryIndustrialViolation, CategoryDeforestation, CategoryOther:
		return true
	}
	return false
}

// Severity is the reporter's assessment of how serious the violation is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a member of the severity enumeration.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Location is where the violation was observed. Set at creation, immutable.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	Pincode   string  `json:"pincode,omitempty"`
}

// AuthorityResponse is the formal resolution attached by an authority.
// RespondedAt == nil means no response has been attached.
type AuthorityResponse struct {
	Message     string     `json:"message,omitempty"`
	ActionTaken string     `json:"action_taken,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

// StatusChange is one entry in a report's append-only status history.
type StatusChange struct {
	ID        uint         `gorm:"primaryKey" json:"-"`
	ReportID  string       `gorm:"type:uuid;not null;index" json:"-"`
	Status    ReportStatus `gorm:"type:text;not null" json:"status"`
	Notes     string       `gorm:"type:text" json:"notes,omitempty"`
	ChangedBy string       `gorm:"type:text;not null" json:"changed_by"`
	ChangedAt time.Time    `gorm:"not null" json:"changed_at"`
}

// MediaAttachment is a reference to an externally hosted photo or video,
// fixed at submission time.
type MediaAttachment struct {
	ID        uint     `gorm:"primaryKey" json:"-"`
	ReportID  string   `gorm:"type:uuid;not null;index" json:"-"`
	URL       string   `gorm:"type:text;not null" json:"url"`
	Type      string   `gorm:"type:text;not null" json:"type"` // "image" or "video"
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Report is a citizen-filed environmental violation report.
type Report struct {
	ID string `gorm:"primaryKey" json:"id"`
	// ComplaintID is the human-readable tracking code (ECO-YEAR-RANDOM8)
	// used for anonymous lookup. Unique, assigned at creation.
	ComplaintID string `gorm:"uniqueIndex;not null" json:"complaint_id"`
	UserID      string `gorm:"type:uuid;not null;index" json:"user_id"`

	Title       string         `gorm:"type:text;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Category    ReportCategory `gorm:"type:text;not null" json:"category"`
	Severity    Severity       `gorm:"type:text;not null" json:"severity"`

	Status ReportStatus `gorm:"type:text;not null" json:"status"`
	// IsPublic is derived from Status on every transition, never set directly.
	IsPublic bool `gorm:"not null;index" json:"is_public"`

	Location Location          `gorm:"embedded" json:"location"`
	Response AuthorityResponse `gorm:"embedded;embeddedPrefix:response_" json:"authority_response"`

	// AssignedDepartments is an authority-managed routing hint.
	AssignedDepartments pq.StringArray `gorm:"type:text[]" json:"assigned_departments,omitempty"`

	ViewCount int64 `gorm:"not null;default:0" json:"view_count"`
	// Version is the optimistic-concurrency counter: every transition is
	// conditional on it, so concurrent writers to one report serialize.
	Version int64 `gorm:"not null;default:0" json:"-"`

	StatusHistory []StatusChange    `gorm:"foreignKey:ReportID" json:"status_history,omitempty"`
	Media         []MediaAttachment `gorm:"foreignKey:ReportID" json:"media,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that assigns the UUID and the public tracking
// code if they are not already set.
func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ComplaintID == "" {
		r.ComplaintID = NewComplaintID(time.Now())
	}
	return
}

// complaintAlphabet avoids 0/O and 1/I so codes survive being read aloud.
const complaintAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewComplaintID generates a tracking code of the form ECO-2026-K7KPQ2MN.
func NewComplaintID(now time.Time) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to uuid entropy.
		u := uuid.New()
		copy(buf, u[:])
	}
	for i, b := range buf {
		buf[i] = complaintAlphabet[int(b)%len(complaintAlphabet)]
	}
	return fmt.Sprintf("ECO-%d-%s", now.Year(), string(buf))
}
