package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentOutcome is the durable classification of a finished payment attempt
type PaymentOutcome string

const (
	PaymentOutcomePaid   PaymentOutcome = "paid"
	PaymentOutcomeFailed PaymentOutcome = "failed"
	// PaymentOutcomeUnverified marks attempts whose polling budget ran out
	// while the gateway still reported in-progress; the reconciler sweeps
	// these and settles them to paid or failed.
	PaymentOutcomeUnverified PaymentOutcome = "unverified"
)

// PaymentRecord is the audit row written when a payment session reaches a
// terminal state. The in-flight session itself is never persisted.
type PaymentRecord struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PlanID        uint   `gorm:"index" json:"plan_id"`
	SubscriberUID string `gorm:"type:varchar(128);index" json:"subscriber_uid"`

	Reference        string `gorm:"type:varchar(100);uniqueIndex" json:"reference"`
	GatewayReference string `gorm:"type:varchar(100)" json:"gateway_reference"`
	Method           string `gorm:"type:varchar(50)" json:"method"`
	AmountMinor      int64  `json:"amount_minor"`
	Currency         string `gorm:"type:varchar(3)" json:"currency"`
	PhoneNumber      string `gorm:"type:varchar(20)" json:"phone_number"`

	Outcome    PaymentOutcome `gorm:"type:varchar(20);index" json:"outcome"`
	Message    string         `gorm:"type:text" json:"message"`
	VerifiedAt *time.Time     `json:"verified_at"`

	// Relationships
	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
