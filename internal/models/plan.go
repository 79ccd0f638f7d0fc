package models

import (
	"time"

	"github.com/teambition/rrule-go"
	"gorm.io/gorm"
)

// Plan represents one tier a subscriber can pay for
type Plan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name        string `gorm:"type:varchar(255)" json:"name"`
	Tier        string `gorm:"type:varchar(50);index" json:"tier"` // e.g. "basic", "standard", "premium"
	Description string `gorm:"type:text" json:"description"`
	PriceMinor  int64  `json:"price_minor"` // integral minor units, e.g. cents
	Currency    string `gorm:"type:varchar(3)" json:"currency"`

	BillingInterval *string `gorm:"type:text" json:"billing_interval"` // RFC 5545 RRULE string
	IsActive        bool    `gorm:"default:true" json:"is_active"`

	// Relationships
	Subscriptions []Subscription `gorm:"foreignKey:PlanID" json:"subscriptions,omitempty"`
}

// NextRenewal calculates when a subscription paid at `from` renews
func (p Plan) NextRenewal(from time.Time) time.Time {
	if p.BillingInterval != nil && *p.BillingInterval != "" {
		rule, err := rrule.StrToRRule(*p.BillingInterval)
		if err == nil {
			rule.DTStart(from)
			next := rule.After(from, false)
			if !next.IsZero() {
				return next
			}
		}
	}
	// Fallback to a calendar month if no rule is set or parsing fails
	return from.AddDate(0, 1, 0)
}
