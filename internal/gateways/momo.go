package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"lipaplan_app_echo/internal/payment"
)

// MomoGateway drives a mobile-money aggregator over its HTTP collections
// API: one endpoint to push a request-to-pay prompt to the subscriber's
// phone, one to query where the collection stands.
type MomoGateway struct {
	baseURL     string
	apiKey      string
	countryCode string
	client      *http.Client
}

// NewMomoGateway builds a client from MOMO_BASE_URL, MOMO_API_KEY and
// MOMO_COUNTRY_CODE.
func NewMomoGateway() *MomoGateway {
	base := os.Getenv("MOMO_BASE_URL")
	if base == "" {
		base = "http://momo:8000"
	}
	cc := os.Getenv("MOMO_COUNTRY_CODE")
	if cc == "" {
		cc = "255"
	}
	return &MomoGateway{
		baseURL:     base,
		apiKey:      os.Getenv("MOMO_API_KEY"),
		countryCode: cc,
		client:      &http.Client{Timeout: 20 * time.Second},
	}
}

func (g *MomoGateway) doRequest(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("%s%s", g.baseURL, endpoint), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Methods asks the aggregator which wallets are currently collectable.
func (g *MomoGateway) Methods(ctx context.Context) ([]payment.Method, error) {
	var resp struct {
		Methods []string `json:"methods"`
	}
	if err := g.doRequest(ctx, http.MethodGet, "/api/v1/methods", nil, &resp); err != nil {
		return nil, err
	}
	methods := make([]payment.Method, 0, len(resp.Methods))
	for _, m := range resp.Methods {
		methods = append(methods, payment.Method(m))
	}
	return methods, nil
}

// Initiate pushes a request-to-pay prompt to the subscriber's handset.
func (g *MomoGateway) Initiate(ctx context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
	body := map[string]interface{}{
		"method":       string(req.Method),
		"amount":       req.AmountMinor,
		"currency":     req.Currency,
		"msisdn":       NormalizeMSISDN(req.PhoneNumber, g.countryCode),
		"reference":    req.Reference,
		"callback_url": req.CallbackURL,
		"return_url":   req.ReturnURL,
	}

	var resp struct {
		Accepted    bool   `json:"accepted"`
		Message     string `json:"message"`
		RedirectURL string `json:"redirect_url"`
		ProviderRef string `json:"provider_ref"`
	}
	if err := g.doRequest(ctx, http.MethodPost, "/api/v1/collections", body, &resp); err != nil {
		return nil, err
	}

	return &payment.InitiateResult{
		Accepted:         resp.Accepted,
		Message:          resp.Message,
		RedirectURL:      resp.RedirectURL,
		GatewayReference: resp.ProviderRef,
	}, nil
}

// QueryStatus reports where the collection behind reference stands.
func (g *MomoGateway) QueryStatus(ctx context.Context, method payment.Method, reference string) (*payment.StatusResult, error) {
	var resp struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	endpoint := fmt.Sprintf("/api/v1/collections/%s/status?method=%s", url.PathEscape(reference), url.QueryEscape(string(method)))
	if err := g.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	switch strings.ToUpper(resp.Status) {
	case "SUCCESSFUL", "COMPLETED":
		return &payment.StatusResult{State: payment.TxCompleted}, nil
	case "FAILED", "REJECTED", "EXPIRED":
		return &payment.StatusResult{State: payment.TxFailed, FailureReason: resp.Reason}, nil
	default:
		return &payment.StatusResult{State: payment.TxInProgress}, nil
	}
}

// NormalizeMSISDN standardizes a subscriber phone number for the aggregator:
// separators and a leading "+" are stripped, and a local leading "0" is
// replaced with the configured country code.
func NormalizeMSISDN(msisdn, countryCode string) string {
	msisdn = strings.TrimSpace(msisdn)
	msisdn = strings.TrimPrefix(msisdn, "+")

	var b strings.Builder
	for _, r := range msisdn {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	msisdn = b.String()

	if strings.HasPrefix(msisdn, "0") {
		msisdn = countryCode + strings.TrimPrefix(msisdn, "0")
	}
	return msisdn
}
