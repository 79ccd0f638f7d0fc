package services

import (
	"fmt"
	"log"

	"lipaplan_app_echo/internal/payment"
)

// TransitionLogger logs every session transition. It keeps the state machine
// free of logging concerns and gives operators a trail per reference.
type TransitionLogger struct{}

func (TransitionLogger) OnTransition(t payment.Transition) {
	if t.CloseDialog {
		log.Printf("[payment %s] dialog close signaled", t.Session.Reference)
		return
	}
	log.Printf("[payment %s] %s -> %s: %s", t.Session.Reference, t.From, t.To, t.Message)
}

// ReceiptNotifier emails the subscriber a receipt when their payment
// completes. Best effort: a mail failure is logged and never affects the
// payment outcome.
type ReceiptNotifier struct {
	email *EmailService
}

func NewReceiptNotifier(email *EmailService) *ReceiptNotifier {
	return &ReceiptNotifier{email: email}
}

func (n *ReceiptNotifier) OnTransition(t payment.Transition) {
	if t.To != payment.StatusCompleted || t.From == payment.StatusCompleted {
		return
	}
	if n.email == nil || t.Session.SubscriberEmail == "" {
		return
	}

	subject := fmt.Sprintf("Payment received for %s", t.Session.PlanName)
	body := fmt.Sprintf(
		"We received your payment of %d %s for the %s plan.\nTransaction reference: %s\n",
		t.Session.AmountMinor, t.Session.Currency, t.Session.PlanName, t.Session.Reference,
	)
	if err := n.email.SendEmail([]string{t.Session.SubscriberEmail}, subject, body); err != nil {
		log.Printf("[payment %s] receipt email failed: %v", t.Session.Reference, err)
	}
}
