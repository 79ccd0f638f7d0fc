package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lipaplan_app_echo/internal/payment"
)

type stubGateway struct {
	methods []payment.Method
}

func (g *stubGateway) Methods(ctx context.Context) ([]payment.Method, error) {
	return g.methods, nil
}

func (g *stubGateway) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
	return &payment.InitiateResult{Accepted: true, Message: "Prompt sent"}, nil
}

func (g *stubGateway) QueryStatus(ctx context.Context, method payment.Method, reference string) (*payment.StatusResult, error) {
	return &payment.StatusResult{State: payment.TxInProgress}, nil
}

func newTestHandler(t *testing.T) (*PaymentHandler, *payment.Manager) {
	t.Helper()
	gw := &stubGateway{methods: []payment.Method{"mpesa", "tigopesa"}}
	mg := payment.NewManager(payment.Config{}, gw, nil)
	return NewPaymentHandler(nil, nil, gw, mg), mg
}

func newSessionContext(e *echo.Echo, method, body, sessionID, uid string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(sessionID)
	c.Set("subscriberUID", uid)
	return c, rec
}

func openSession(t *testing.T, mg *payment.Manager, uid string) string {
	t.Helper()
	m, err := mg.Open(context.Background(), payment.PlanInfo{ID: 1, Name: "Basic", AmountMinor: 5000, Currency: "TZS"}, uid, "")
	require.NoError(t, err)
	return m.Snapshot().ID
}

func TestListMethodsWithoutCache(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	c, rec := newSessionContext(e, http.MethodGet, "", "", "")

	require.NoError(t, h.ListMethods(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"mpesa", "tigopesa"}, body["methods"])
}

func TestSubmitPaymentRejectsBadPhone(t *testing.T) {
	h, mg := newTestHandler(t)
	id := openSession(t, mg, "uid-1")
	e := echo.New()
	c, _ := newSessionContext(e, http.MethodPost, `{"phone_number":"123","method":"mpesa"}`, id, "uid-1")

	err := h.SubmitPayment(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSubmitPaymentRejectsUnknownMethod(t *testing.T) {
	h, mg := newTestHandler(t)
	id := openSession(t, mg, "uid-1")
	e := echo.New()
	c, _ := newSessionContext(e, http.MethodPost, `{"phone_number":"0712345678","method":"cash"}`, id, "uid-1")

	err := h.SubmitPayment(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestSessionOwnershipIsEnforced(t *testing.T) {
	h, mg := newTestHandler(t)
	id := openSession(t, mg, "uid-1")
	e := echo.New()
	c, _ := newSessionContext(e, http.MethodGet, "", id, "uid-2")

	err := h.GetSession(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestGetSessionUnknownID(t *testing.T) {
	h, _ := newTestHandler(t)
	e := echo.New()
	c, _ := newSessionContext(e, http.MethodGet, "", "nope", "uid-1")

	err := h.GetSession(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestCloseSessionRequiresOwnership(t *testing.T) {
	h, mg := newTestHandler(t)
	id := openSession(t, mg, "uid-1")
	e := echo.New()
	c, _ := newSessionContext(e, http.MethodDelete, "", id, "uid-2")

	err := h.CloseSession(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)

	_, ok := mg.Get(id)
	assert.True(t, ok, "another subscriber must not be able to abandon the session")
}

func TestCloseSessionRemovesIt(t *testing.T) {
	h, mg := newTestHandler(t)
	id := openSession(t, mg, "uid-1")
	e := echo.New()

	c, rec := newSessionContext(e, http.MethodDelete, "", id, "uid-1")
	require.NoError(t, h.CloseSession(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newSessionContext(e, http.MethodGet, "", id, "uid-1")
	err := h.GetSession(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
}
