package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lipaplan_app_echo/internal/models"
	"lipaplan_app_echo/internal/payment"
)

// SubscriptionService is the subscription-activation collaborator: it turns
// terminal payment outcomes into durable records and keeps the subscriber's
// subscription current. It implements payment.Activation.
type SubscriptionService struct {
	db *gorm.DB
}

func NewSubscriptionService(db *gorm.DB) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// PaymentSucceeded records the paid attempt and creates or extends the
// subscription. The session machine calls this exactly once per completion.
func (s *SubscriptionService) PaymentSucceeded(ctx context.Context, sess payment.Session) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		record := models.PaymentRecord{
			PlanID:           sess.PlanID,
			SubscriberUID:    sess.SubscriberUID,
			Reference:        sess.Reference,
			GatewayReference: sess.GatewayReference,
			Method:           string(sess.Method),
			AmountMinor:      sess.AmountMinor,
			Currency:         sess.Currency,
			PhoneNumber:      sess.PhoneNumber,
			Outcome:          models.PaymentOutcomePaid,
			Message:          sess.StatusMessage,
			VerifiedAt:       &now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("creating payment record: %w", err)
		}
		return s.activate(tx, sess.PlanID, sess.SubscriberUID, sess.Reference)
	})
}

// PaymentFailed records the failed attempt. A timed-out attempt is stored as
// unverified so the reconciler can settle it later.
func (s *SubscriptionService) PaymentFailed(ctx context.Context, sess payment.Session, timedOut bool) error {
	outcome := models.PaymentOutcomeFailed
	if timedOut {
		outcome = models.PaymentOutcomeUnverified
	}
	record := models.PaymentRecord{
		PlanID:           sess.PlanID,
		SubscriberUID:    sess.SubscriberUID,
		Reference:        sess.Reference,
		GatewayReference: sess.GatewayReference,
		Method:           string(sess.Method),
		AmountMinor:      sess.AmountMinor,
		Currency:         sess.Currency,
		PhoneNumber:      sess.PhoneNumber,
		Outcome:          outcome,
		Message:          sess.StatusMessage,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("creating payment record: %w", err)
	}
	return nil
}

// SettleUnverified resolves a swept record to its late-observed outcome.
// A successful settlement also activates the subscription.
func (s *SubscriptionService) SettleUnverified(ctx context.Context, record *models.PaymentRecord, succeeded bool, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		updates := map[string]interface{}{
			"outcome":     models.PaymentOutcomeFailed,
			"verified_at": &now,
		}
		if succeeded {
			updates["outcome"] = models.PaymentOutcomePaid
		} else if reason != "" {
			updates["message"] = reason
		}
		if err := tx.Model(record).Updates(updates).Error; err != nil {
			return fmt.Errorf("updating payment record: %w", err)
		}
		if succeeded {
			return s.activate(tx, record.PlanID, record.SubscriberUID, record.Reference)
		}
		return nil
	})
}

// activate creates the subscription on first payment, or pushes the renewal
// date forward on a repeat one. The renewal date comes from the plan's
// billing interval rule.
func (s *SubscriptionService) activate(tx *gorm.DB, planID uint, subscriberUID, reference string) error {
	var plan models.Plan
	if err := tx.First(&plan, planID).Error; err != nil {
		return fmt.Errorf("loading plan %d: %w", planID, err)
	}

	now := time.Now()
	var sub models.Subscription
	err := tx.Where("plan_id = ? AND subscriber_uid = ?", planID, subscriberUID).First(&sub).Error
	if err == gorm.ErrRecordNotFound {
		sub = models.Subscription{
			PlanID:        planID,
			SubscriberUID: subscriberUID,
			Status:        models.SubscriptionStatusActive,
			StartedAt:     now,
			RenewsAt:      plan.NextRenewal(now),
			LastReference: reference,
		}
		return tx.Create(&sub).Error
	}
	if err != nil {
		return fmt.Errorf("loading subscription: %w", err)
	}

	// Renew from the current period end when paying early, from now when
	// the subscription had already lapsed.
	base := now
	if sub.RenewsAt.After(now) {
		base = sub.RenewsAt
	}
	sub.Status = models.SubscriptionStatusActive
	sub.RenewsAt = plan.NextRenewal(base)
	sub.LastReference = reference
	return tx.Save(&sub).Error
}
