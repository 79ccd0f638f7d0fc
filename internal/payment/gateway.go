package payment

import "context"

// Method is a payment channel offered by a gateway, e.g. "mpesa" or "gopay".
// The set of valid methods is whatever the gateway currently advertises.
type Method string

// TxState is the gateway-side view of a transaction.
type TxState string

const (
	TxInProgress TxState = "in_progress"
	TxCompleted  TxState = "completed"
	TxFailed     TxState = "failed"
)

// InitiateRequest asks the gateway to push a payment prompt to the subscriber.
type InitiateRequest struct {
	Method      Method
	AmountMinor int64
	Currency    string
	PhoneNumber string
	Reference   string
	CallbackURL string
	ReturnURL   string
}

// InitiateResult is the gateway's answer to an initiation attempt.
// Accepted=false means the gateway refused at submission time.
type InitiateResult struct {
	Accepted         bool
	Message          string
	RedirectURL      string
	GatewayReference string
}

// StatusResult is the gateway's answer to a status query.
type StatusResult struct {
	State         TxState
	FailureReason string
}

// Gateway abstracts a mobile-money provider. Implementations live in
// internal/gateways; the session machine only ever talks to this interface.
type Gateway interface {
	// Methods returns the payment channels the provider currently offers.
	Methods(ctx context.Context) ([]Method, error)

	// Initiate starts an out-of-band payment identified by the request's
	// reference. The reference doubles as the idempotency key for every
	// later call about this attempt.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)

	// QueryStatus reports where the transaction behind reference stands.
	QueryStatus(ctx context.Context, method Method, reference string) (*StatusResult, error)
}
