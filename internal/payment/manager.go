package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// PlanInfo is the slice of a plan the payment core needs: what to charge.
type PlanInfo struct {
	ID          uint
	Name        string
	AmountMinor int64
	Currency    string
}

// Manager tracks the active payment sessions, one per open payment dialog.
// Opening a session for a subscriber who already has one supersedes the old
// session: its pending tick is revoked before the new machine is handed out.
type Manager struct {
	cfg        Config
	gateway    Gateway
	refs       *ReferenceGenerator
	sched      Scheduler
	activation Activation
	listeners  []Listener

	mu           sync.Mutex
	sessions     map[string]*Machine
	bySubscriber map[string]string
}

// NewManager wires a session manager over the given gateway. Activation may
// be nil when no subscription store is attached (the gateway probe does this).
func NewManager(cfg Config, gw Gateway, act Activation, listeners ...Listener) *Manager {
	return &Manager{
		cfg:          cfg.withDefaults(),
		gateway:      gw,
		refs:         NewReferenceGenerator(),
		sched:        NewTimerScheduler(),
		activation:   act,
		listeners:    listeners,
		sessions:     make(map[string]*Machine),
		bySubscriber: make(map[string]string),
	}
}

// Open creates a fresh idle session for the plan, fixing amount and currency
// and capturing the gateway's currently advertised methods for validation.
func (mg *Manager) Open(ctx context.Context, plan PlanInfo, subscriberUID, subscriberEmail string) (*Machine, error) {
	methods, err := mg.gateway.Methods(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing gateway methods: %w", err)
	}
	seed := Session{
		ID:              uuid.NewString(),
		PlanID:          plan.ID,
		PlanName:        plan.Name,
		SubscriberUID:   subscriberUID,
		SubscriberEmail: subscriberEmail,
		AmountMinor:     plan.AmountMinor,
		Currency:        plan.Currency,
	}
	m := newMachine(mg.cfg, mg.gateway, mg.refs, mg.sched, mg.activation, methods, seed, mg.listeners...)

	mg.mu.Lock()
	if oldID, ok := mg.bySubscriber[subscriberUID]; ok {
		if prev, ok := mg.sessions[oldID]; ok {
			prev.Close()
			delete(mg.sessions, oldID)
		}
	}
	mg.sessions[seed.ID] = m
	mg.bySubscriber[subscriberUID] = seed.ID
	mg.mu.Unlock()
	return m, nil
}

// Get returns the machine for a session ID.
func (mg *Manager) Get(id string) (*Machine, bool) {
	mg.mu.Lock()
	defer mg.mu.Unlock()
	m, ok := mg.sessions[id]
	return m, ok
}

// Close abandons and discards a session. Returns false if it was not open.
func (mg *Manager) Close(id string) bool {
	mg.mu.Lock()
	m, ok := mg.sessions[id]
	if ok {
		delete(mg.sessions, id)
		uid := m.Snapshot().SubscriberUID
		if mg.bySubscriber[uid] == id {
			delete(mg.bySubscriber, uid)
		}
	}
	mg.mu.Unlock()
	if ok {
		m.Close()
	}
	return ok
}
