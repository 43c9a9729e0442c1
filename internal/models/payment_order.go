package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus tracks a paid-plan purchase through its two phases.
type OrderStatus string

const (
	OrderCreated OrderStatus = "created"
	OrderPaid    OrderStatus = "paid"
	OrderFailed  OrderStatus = "failed"
)

// PaymentOrder is the pending-payment record created in phase one of a paid
// key purchase. A key is only issued once the order moves to paid, and a paid
// order never issues a second key.
type PaymentOrder struct {
	ID      string  `gorm:"primaryKey" json:"id"`
	UserID  string  `gorm:"type:uuid;not null;index" json:"user_id"`
	KeyName string  `gorm:"type:text;not null" json:"key_name"`
	Plan    KeyPlan `gorm:"type:text;not null" json:"plan"`

	AmountPaise int64  `gorm:"not null" json:"amount_paise"`
	Currency    string `gorm:"type:text;not null;default:'INR'" json:"currency"`

	// GatewayOrderID is the payment gateway's order reference returned to the
	// client in phase one and echoed back in the verification callback.
	GatewayOrderID string      `gorm:"uniqueIndex;not null" json:"gateway_order_id"`
	Status         OrderStatus `gorm:"type:text;not null;default:'created'" json:"status"`
	// PaymentID is the gateway's payment reference, set when the order is paid.
	PaymentID string `gorm:"type:text" json:"payment_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate is a GORM hook that generates a UUID if the ID is not set.
func (o *PaymentOrder) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return
}
