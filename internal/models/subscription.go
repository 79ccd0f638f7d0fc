package models

import (
	"time"

	"gorm.io/gorm"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive  SubscriptionStatus = "active"
	SubscriptionStatusExpired SubscriptionStatus = "expired"
)

// Subscription ties a subscriber to the plan they paid for
type Subscription struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PlanID        uint               `gorm:"index" json:"plan_id"`
	SubscriberUID string             `gorm:"type:varchar(128);index" json:"subscriber_uid"`
	Status        SubscriptionStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	StartedAt     time.Time          `json:"started_at"`
	RenewsAt      time.Time          `gorm:"index" json:"renews_at"`
	LastReference string             `gorm:"type:varchar(100)" json:"last_reference"`

	// Relationships
	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
