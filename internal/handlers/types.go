package handlers

import (
	"github.com/labstack/echo/v4"

	"lipaplan_app_echo/internal/payment"
)

// SubmitPaymentRequest is the subscriber's payment submission
type SubmitPaymentRequest struct {
	PhoneNumber string `json:"phone_number"`
	Method      string `json:"method"`
}

// PaymentSessionResponse is the presentation layer's view of one session
type PaymentSessionResponse struct {
	SessionID     string   `json:"session_id"`
	PlanID        uint     `json:"plan_id"`
	PlanName      string   `json:"plan_name"`
	AmountMinor   int64    `json:"amount_minor"`
	Currency      string   `json:"currency"`
	Status        string   `json:"status"`
	StatusMessage string   `json:"status_message"`
	Reference     string   `json:"reference,omitempty"`
	RedirectURL   string   `json:"redirect_url,omitempty"`
	Method        string   `json:"method,omitempty"`
	AttemptsMade  int      `json:"attempts_made"`
	Methods       []string `json:"methods,omitempty"`
}

func newSessionResponse(s payment.Session, methods []payment.Method) PaymentSessionResponse {
	resp := PaymentSessionResponse{
		SessionID:     s.ID,
		PlanID:        s.PlanID,
		PlanName:      s.PlanName,
		AmountMinor:   s.AmountMinor,
		Currency:      s.Currency,
		Status:        string(s.Status),
		StatusMessage: s.StatusMessage,
		Reference:     s.Reference,
		RedirectURL:   s.RedirectURL,
		Method:        string(s.Method),
		AttemptsMade:  s.AttemptsMade,
	}
	for _, m := range methods {
		resp.Methods = append(resp.Methods, string(m))
	}
	return resp
}

func getStringFromContext(c echo.Context, key string) string {
	if val := c.Get(key); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
