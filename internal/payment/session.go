package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Status is where one payment attempt stands.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusPending   Status = "pending"
	StatusChecking  Status = "checking"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Subscriber-facing status messages. The gateway's own message wins whenever
// it supplies one; a definitive failure reason is surfaced verbatim.
const (
	msgContacting     = "Contacting payment provider..."
	msgPromptSent     = "Payment request sent. Approve the prompt on your phone."
	msgChecking       = "Confirming your payment..."
	msgCompleted      = "Payment received. Your subscription is now active."
	msgInitiateFailed = "Payment could not be initiated. Please try again."
	msgFailed         = "Payment failed. Please try again."
	msgTimeout        = "We could not confirm your payment in time. If you approved the prompt, it will be verified manually."
)

// Session is one attempt to pay for one plan. Amount and currency are fixed
// at creation from the chosen plan; the reference is minted fresh on every
// submission and never reused, even on retry.
type Session struct {
	ID               string
	PlanID           uint
	PlanName         string
	SubscriberUID    string
	SubscriberEmail  string
	AmountMinor      int64
	Currency         string
	Method           Method
	PhoneNumber      string
	Reference        string
	GatewayReference string
	RedirectURL      string
	Status           Status
	StatusMessage    string
	AttemptsMade     int
}

// Transition is the pure result of a state change: the machine emits these,
// listeners render or alert on them. CloseDialog marks the post-completion
// signal that tells the presentation layer to dismiss the payment dialog.
type Transition struct {
	Session     Session
	From        Status
	To          Status
	Message     string
	CloseDialog bool
}

// Listener observes transitions. Implementations must not call back into the
// machine.
type Listener interface {
	OnTransition(t Transition)
}

// Activation receives terminal outcomes. PaymentSucceeded is invoked exactly
// once per completed session. timedOut distinguishes an exhausted attempt
// budget from a failure the gateway reported as definitive.
type Activation interface {
	PaymentSucceeded(ctx context.Context, s Session) error
	PaymentFailed(ctx context.Context, s Session, timedOut bool) error
}

// Config carries the polling envelope. The defaults encode the product
// decision of a fixed cadence with a hard cap: first check 3s after
// initiation, then every 30s, at most 20 checks (~10 minutes end to end).
type Config struct {
	InitialDelay time.Duration
	PollInterval time.Duration
	CloseGrace   time.Duration
	QueryTimeout time.Duration
	MaxAttempts  int
	CallbackURL  string
	ReturnURL    string
}

func (c Config) withDefaults() Config {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 3 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 30 * time.Second
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = 3 * time.Second
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 15 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 20
	}
	return c
}

// Machine drives a single payment session from idle to a terminal state.
// It owns the reconciliation loop: it is the only component that calls
// QueryStatus, at most one tick is outstanding at a time, and every
// scheduled tick carries the generation it was scheduled under so a tick
// belonging to an abandoned attempt is a no-op when it fires.
type Machine struct {
	mu         sync.Mutex
	cfg        Config
	gateway    Gateway
	refs       *ReferenceGenerator
	sched      Scheduler
	activation Activation
	listeners  []Listener
	methods    []Method

	s          Session
	gen        uint64
	cancelTick CancelFunc
	closed     bool
}

func newMachine(cfg Config, gw Gateway, refs *ReferenceGenerator, sched Scheduler, act Activation, methods []Method, seed Session, listeners ...Listener) *Machine {
	seed.Status = StatusIdle
	return &Machine{
		cfg:        cfg.withDefaults(),
		gateway:    gw,
		refs:       refs,
		sched:      sched,
		activation: act,
		listeners:  listeners,
		methods:    methods,
		s:          seed,
	}
}

// Snapshot returns a copy of the session for rendering.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

// Methods returns the payment channels advertised when the session opened.
func (m *Machine) Methods() []Method {
	out := make([]Method, len(m.methods))
	copy(out, m.methods)
	return out
}

func (m *Machine) supports(method Method) bool {
	for _, mm := range m.methods {
		if mm == method {
			return true
		}
	}
	return false
}

// Submit validates the subscriber's input and, if valid, mints a fresh
// reference and asks the gateway to initiate the payment. Validation
// failures are returned synchronously and cause no state change and no
// gateway call. Initiation rejections and errors move the session to failed.
func (m *Machine) Submit(ctx context.Context, phone string, method Method) error {
	digits, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	if !m.supports(method) {
		return fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errors.New("session is closed")
	}
	if m.s.Status != StatusIdle {
		m.mu.Unlock()
		return fmt.Errorf("submission is only allowed from idle, session is %s", m.s.Status)
	}
	m.stopTickLocked()
	m.gen++
	gen := m.gen
	m.s.PhoneNumber = digits
	m.s.Method = method
	m.s.Reference = m.refs.Next()
	ev := m.transitionLocked(StatusPending, msgContacting, false)
	req := InitiateRequest{
		Method:      method,
		AmountMinor: m.s.AmountMinor,
		Currency:    m.s.Currency,
		PhoneNumber: digits,
		Reference:   m.s.Reference,
		CallbackURL: m.cfg.CallbackURL,
		ReturnURL:   m.cfg.ReturnURL,
	}
	m.mu.Unlock()
	m.emit(ev)

	res, initErr := m.gateway.Initiate(ctx, req)

	m.mu.Lock()
	if gen != m.gen || m.s.Status != StatusPending {
		// Session was abandoned or superseded while the gateway call was
		// in flight; the result no longer belongs to anyone.
		m.mu.Unlock()
		return nil
	}

	if initErr != nil || !res.Accepted {
		msg := msgInitiateFailed
		if initErr == nil && res.Message != "" {
			msg = res.Message
		}
		if initErr != nil {
			log.Printf("payment %s: initiation error: %v", m.s.Reference, initErr)
		}
		ev := m.transitionLocked(StatusFailed, msg, false)
		snap := m.s
		m.mu.Unlock()
		m.emit(ev)
		m.notifyFailed(snap, false)
		return nil
	}

	m.s.RedirectURL = res.RedirectURL
	m.s.GatewayReference = res.GatewayReference
	msg := msgPromptSent
	if res.Message != "" {
		msg = res.Message
	}
	m.s.StatusMessage = msg
	ev = Transition{Session: m.s, From: StatusPending, To: StatusPending, Message: msg}
	// Give the gateway time to register the transaction before the first poll.
	m.cancelTick = m.sched.AfterFunc(m.cfg.InitialDelay, func() { m.tick(gen) })
	m.mu.Unlock()
	m.emit(ev)
	return nil
}

// tick is one scheduled unit of the reconciliation loop: a single status
// query whose outcome either ends the session or schedules the next tick.
func (m *Machine) tick(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || (m.s.Status != StatusPending && m.s.Status != StatusChecking) {
		m.mu.Unlock()
		return
	}
	var entered []Transition
	if m.s.Status == StatusPending {
		entered = append(entered, m.transitionLocked(StatusChecking, msgChecking, false))
	}
	method, ref := m.s.Method, m.s.Reference
	m.mu.Unlock()
	m.emit(entered...)

	qctx, cancel := context.WithTimeout(context.Background(), m.cfg.QueryTimeout)
	res, err := m.gateway.QueryStatus(qctx, method, ref)
	cancel()

	m.mu.Lock()
	if gen != m.gen || m.s.Status != StatusChecking {
		m.mu.Unlock()
		return
	}

	switch {
	case err == nil && res.State == TxCompleted:
		ev := m.transitionLocked(StatusCompleted, msgCompleted, false)
		snap := m.s
		// Let the subscriber read the confirmation before the dialog closes.
		m.cancelTick = m.sched.AfterFunc(m.cfg.CloseGrace, func() { m.signalClose(gen) })
		m.mu.Unlock()
		m.emit(ev)
		m.notifySucceeded(snap)

	case err == nil && res.State == TxFailed:
		msg := res.FailureReason
		if msg == "" {
			msg = msgFailed
		}
		ev := m.transitionLocked(StatusFailed, msg, false)
		snap := m.s
		m.mu.Unlock()
		m.emit(ev)
		m.notifyFailed(snap, false)

	default:
		// A flaky gateway's dominant failure mode is a temporary timeout,
		// so a query error is treated like an in-progress answer and
		// retried against the same attempt budget.
		if err != nil {
			log.Printf("payment %s: status query error on attempt %d: %v", ref, m.s.AttemptsMade+1, err)
		}
		m.s.AttemptsMade++
		if m.s.AttemptsMade >= m.cfg.MaxAttempts {
			ev := m.transitionLocked(StatusFailed, msgTimeout, false)
			snap := m.s
			m.mu.Unlock()
			m.emit(ev)
			m.notifyFailed(snap, true)
			return
		}
		m.cancelTick = m.sched.AfterFunc(m.cfg.PollInterval, func() { m.tick(gen) })
		m.mu.Unlock()
	}
}

// signalClose emits the dialog-close signal scheduled after completion.
func (m *Machine) signalClose(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.s.Status != StatusCompleted {
		m.mu.Unlock()
		return
	}
	ev := Transition{Session: m.s, From: StatusCompleted, To: StatusCompleted, Message: m.s.StatusMessage, CloseDialog: true}
	m.mu.Unlock()
	m.emit(ev)
}

// Retry resets a failed session back to the input form. The abandoned
// reference is never reused; the next submission mints a new one.
func (m *Machine) Retry() error {
	m.mu.Lock()
	if m.s.Status != StatusFailed {
		m.mu.Unlock()
		return fmt.Errorf("retry is only allowed from failed, session is %s", m.s.Status)
	}
	m.stopTickLocked()
	m.gen++
	m.s.Reference = ""
	m.s.GatewayReference = ""
	m.s.RedirectURL = ""
	m.s.PhoneNumber = ""
	m.s.Method = ""
	m.s.AttemptsMade = 0
	ev := m.transitionLocked(StatusIdle, "", false)
	m.mu.Unlock()
	m.emit(ev)
	return nil
}

// Close abandons the session. Any scheduled tick is revoked and a tick
// already past its revocation check finds the generation bumped and gives up.
func (m *Machine) Close() {
	m.mu.Lock()
	m.closed = true
	m.gen++
	m.stopTickLocked()
	m.mu.Unlock()
}

func (m *Machine) stopTickLocked() {
	if m.cancelTick != nil {
		m.cancelTick()
		m.cancelTick = nil
	}
}

// transitionLocked mutates status and message and returns the event to emit
// after the lock is released. Callers hold mu.
func (m *Machine) transitionLocked(to Status, msg string, closeDialog bool) Transition {
	from := m.s.Status
	m.s.Status = to
	m.s.StatusMessage = msg
	return Transition{Session: m.s, From: from, To: to, Message: msg, CloseDialog: closeDialog}
}

func (m *Machine) emit(events ...Transition) {
	for _, ev := range events {
		for _, l := range m.listeners {
			l.OnTransition(ev)
		}
	}
}

func (m *Machine) notifySucceeded(s Session) {
	if m.activation == nil {
		return
	}
	if err := m.activation.PaymentSucceeded(context.Background(), s); err != nil {
		log.Printf("payment %s: activation failed: %v", s.Reference, err)
	}
}

func (m *Machine) notifyFailed(s Session, timedOut bool) {
	if m.activation == nil {
		return
	}
	if err := m.activation.PaymentFailed(context.Background(), s, timedOut); err != nil {
		log.Printf("payment %s: failure recording failed: %v", s.Reference, err)
	}
}
