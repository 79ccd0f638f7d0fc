package gateways

import (
	"context"
	"fmt"
	"os"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"

	"lipaplan_app_echo/internal/payment"
)

// MidtransGateway drives e-wallet charges (GoPay, QRIS, ShopeePay) through
// the Midtrans Core API. The subscriber approves the push prompt or scans
// the QR code in their wallet app; we learn the outcome by polling
// CheckTransaction with our own reference as the order ID.
type MidtransGateway struct {
	core coreapi.Client
}

// NewMidtransGateway builds a client from MIDTRANS_SERVER_KEY,
// MIDTRANS_CLIENT_KEY and MIDTRANS_IS_PRODUCTION.
func NewMidtransGateway() *MidtransGateway {
	serverKey := os.Getenv("MIDTRANS_SERVER_KEY")
	clientKey := os.Getenv("MIDTRANS_CLIENT_KEY")

	env := midtrans.Sandbox
	if os.Getenv("MIDTRANS_IS_PRODUCTION") == "true" {
		env = midtrans.Production
	}

	var c coreapi.Client
	c.New(serverKey, env)

	midtrans.ServerKey = serverKey
	midtrans.ClientKey = clientKey
	midtrans.Environment = env

	return &MidtransGateway{core: c}
}

// Methods lists the wallet channels this driver can charge.
func (g *MidtransGateway) Methods(_ context.Context) ([]payment.Method, error) {
	return []payment.Method{"gopay", "qris", "shopeepay"}, nil
}

// Initiate creates a charge with our reference as the order ID. The redirect
// URL, when the wallet supplies one, comes from the charge response actions.
func (g *MidtransGateway) Initiate(_ context.Context, req payment.InitiateRequest) (*payment.InitiateResult, error) {
	chargeReq := &coreapi.ChargeReq{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.Reference,
			GrossAmt: req.AmountMinor,
		},
		CustomerDetails: &midtrans.CustomerDetails{
			Phone: req.PhoneNumber,
		},
	}

	switch req.Method {
	case "gopay":
		chargeReq.PaymentType = coreapi.PaymentTypeGopay
		chargeReq.Gopay = &coreapi.GopayDetails{
			EnableCallback: true,
			CallbackUrl:    req.ReturnURL,
		}
	case "qris":
		chargeReq.PaymentType = coreapi.PaymentTypeQris
		chargeReq.Qris = &coreapi.QrisDetails{Acquirer: "gojek"}
	case "shopeepay":
		chargeReq.PaymentType = coreapi.PaymentTypeShopeepay
		chargeReq.ShopeePay = &coreapi.ShopeePayDetails{CallbackUrl: req.ReturnURL}
	default:
		return nil, fmt.Errorf("midtrans: unsupported method %q", req.Method)
	}

	resp, mErr := g.core.ChargeTransaction(chargeReq)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans charge error: %w", mErr)
	}

	if resp.TransactionStatus == "deny" {
		return &payment.InitiateResult{Accepted: false, Message: resp.StatusMessage}, nil
	}

	return &payment.InitiateResult{
		Accepted:         true,
		Message:          resp.StatusMessage,
		RedirectURL:      redirectURLFromActions(resp.Actions),
		GatewayReference: resp.TransactionID,
	}, nil
}

// QueryStatus maps Midtrans transaction statuses onto the core's three
// states: settlement/capture are completed; deny, expire, cancel and failure
// are definitive failures; everything else is still in progress.
func (g *MidtransGateway) QueryStatus(_ context.Context, _ payment.Method, reference string) (*payment.StatusResult, error) {
	resp, mErr := g.core.CheckTransaction(reference)
	if mErr != nil {
		return nil, fmt.Errorf("midtrans check transaction error: %w", mErr)
	}

	switch resp.TransactionStatus {
	case "settlement", "capture":
		return &payment.StatusResult{State: payment.TxCompleted}, nil
	case "deny", "expire", "cancel", "failure":
		return &payment.StatusResult{
			State:         payment.TxFailed,
			FailureReason: resp.StatusMessage,
		}, nil
	default:
		return &payment.StatusResult{State: payment.TxInProgress}, nil
	}
}

func redirectURLFromActions(actions []coreapi.Action) string {
	for _, a := range actions {
		if a.Name == "deeplink-redirect" {
			return a.URL
		}
	}
	for _, a := range actions {
		if a.Name == "generate-qr-code" {
			return a.URL
		}
	}
	return ""
}
