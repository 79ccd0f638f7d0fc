package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"lipaplan_app_echo/internal/models"
	"lipaplan_app_echo/internal/payment"
	"lipaplan_app_echo/internal/services"
)

// PaymentHandler adapts subscriber actions (submit, retry, close) onto the
// payment session machine and renders session snapshots back as JSON.
type PaymentHandler struct {
	db      *gorm.DB
	cache   *services.RedisCache
	gateway payment.Gateway
	manager *payment.Manager
}

func NewPaymentHandler(db *gorm.DB, cache *services.RedisCache, gateway payment.Gateway, manager *payment.Manager) *PaymentHandler {
	return &PaymentHandler{db: db, cache: cache, gateway: gateway, manager: manager}
}

// ListMethods returns the gateway's currently advertised payment channels,
// cached briefly so the plan picker doesn't hammer the provider.
func (h *PaymentHandler) ListMethods(c echo.Context) error {
	methods, err := services.GetOrSet(h.cache, c.Request().Context(), "payment:methods", time.Minute, func() ([]payment.Method, error) {
		return h.gateway.Methods(c.Request().Context())
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Payment provider is unavailable")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"methods": methods})
}

// OpenSession starts a payment session for a plan: the payment dialog opened.
// Amount and currency are fixed here from the plan.
func (h *PaymentHandler) OpenSession(c echo.Context) error {
	planID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan ID")
	}

	var plan models.Plan
	if err := h.db.First(&plan, uint(planID)).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Plan not found")
	}
	if !plan.IsActive {
		return echo.NewHTTPError(http.StatusBadRequest, "Plan is no longer offered")
	}

	m, err := h.manager.Open(c.Request().Context(), payment.PlanInfo{
		ID:          plan.ID,
		Name:        plan.Name,
		AmountMinor: plan.PriceMinor,
		Currency:    plan.Currency,
	}, getStringFromContext(c, "subscriberUID"), getStringFromContext(c, "subscriberEmail"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "Payment provider is unavailable")
	}

	return c.JSON(http.StatusCreated, newSessionResponse(m.Snapshot(), m.Methods()))
}

// GetSession returns the current snapshot for the dialog to render
func (h *PaymentHandler) GetSession(c echo.Context) error {
	m, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSessionResponse(m.Snapshot(), nil))
}

// SubmitPayment validates the subscriber's input and initiates the payment.
// Validation problems come back as 400s; gateway outcomes are reflected in
// the session status instead.
func (h *PaymentHandler) SubmitPayment(c echo.Context) error {
	m, err := h.session(c)
	if err != nil {
		return err
	}

	var req SubmitPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}

	err = m.Submit(c.Request().Context(), req.PhoneNumber, payment.Method(req.Method))
	switch {
	case errors.Is(err, payment.ErrInvalidPhone):
		return echo.NewHTTPError(http.StatusBadRequest, "Please enter a valid phone number (8 to 15 digits)")
	case errors.Is(err, payment.ErrUnsupportedMethod):
		return echo.NewHTTPError(http.StatusBadRequest, "The chosen payment method is not available")
	case err != nil:
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}

	return c.JSON(http.StatusOK, newSessionResponse(m.Snapshot(), nil))
}

// RetryPayment resets a failed session back to the input form
func (h *PaymentHandler) RetryPayment(c echo.Context) error {
	m, err := h.session(c)
	if err != nil {
		return err
	}
	if err := m.Retry(); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.JSON(http.StatusOK, newSessionResponse(m.Snapshot(), nil))
}

// CloseSession abandons the session: the dialog was dismissed
func (h *PaymentHandler) CloseSession(c echo.Context) error {
	if _, err := h.session(c); err != nil {
		return err
	}
	h.manager.Close(c.Param("id"))
	return c.NoContent(http.StatusNoContent)
}

// session resolves the machine for the request and checks ownership, so one
// subscriber cannot drive another's dialog.
func (h *PaymentHandler) session(c echo.Context) (*payment.Machine, error) {
	m, ok := h.manager.Get(c.Param("id"))
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Payment session not found")
	}
	if uid := getStringFromContext(c, "subscriberUID"); uid != m.Snapshot().SubscriberUID {
		return nil, echo.NewHTTPError(http.StatusForbidden, "You can only manage your own payment session")
	}
	return m, nil
}
