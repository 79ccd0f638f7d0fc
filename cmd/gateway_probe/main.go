package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"lipaplan_app_echo/internal/gateways"
	"lipaplan_app_echo/internal/payment"
	"lipaplan_app_echo/internal/services"
)

// gateway_probe pushes a small test charge through the configured gateway
// and drives it to a terminal state with the same session machine the server
// uses. Handy for checking provider credentials before a deploy.
func main() {
	phone := flag.String("phone", "", "Subscriber phone number (mandatory)")
	method := flag.String("method", "", "Payment method; defaults to the first one the gateway offers")
	amount := flag.Int64("amount", 1000, "Charge amount in minor units")
	currency := flag.String("currency", "TZS", "Currency code")
	flag.Parse()

	if *phone == "" {
		log.Fatal("Please provide a phone number using -phone flag")
	}

	// Load envs
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found")
	}

	gateway := gateways.FromEnv()
	manager := payment.NewManager(payment.Config{}, gateway, nil, services.TransitionLogger{})

	ctx := context.Background()
	m, err := manager.Open(ctx, payment.PlanInfo{
		Name:        "gateway probe",
		AmountMinor: *amount,
		Currency:    *currency,
	}, "gateway-probe", "")
	if err != nil {
		log.Fatalf("Failed to open probe session: %v", err)
	}

	chosen := payment.Method(*method)
	if *method == "" {
		methods := m.Methods()
		if len(methods) == 0 {
			log.Fatal("Gateway advertises no payment methods")
		}
		chosen = methods[0]
	}

	log.Printf("Probing with method %s, amount %d %s", chosen, *amount, *currency)

	if err := m.Submit(ctx, *phone, chosen); err != nil {
		log.Fatalf("Submission rejected: %v", err)
	}

	// The machine polls on its own cadence; wait for a terminal state.
	deadline := time.Now().Add(12 * time.Minute)
	for time.Now().Before(deadline) {
		snap := m.Snapshot()
		if snap.Status == payment.StatusCompleted || snap.Status == payment.StatusFailed {
			log.Printf("Probe finished: %s (%s)", snap.Status, snap.StatusMessage)
			return
		}
		time.Sleep(time.Second)
	}
	log.Fatal("Probe did not reach a terminal state within 12 minutes")
}
