package gateways

import (
	"log"
	"os"

	"lipaplan_app_echo/internal/payment"
)

// FromEnv selects the gateway driver named by PAYMENT_GATEWAY. The momo
// aggregator is the default; "midtrans" switches to the e-wallet driver.
func FromEnv() payment.Gateway {
	switch provider := os.Getenv("PAYMENT_GATEWAY"); provider {
	case "midtrans":
		return NewMidtransGateway()
	case "momo", "":
		return NewMomoGateway()
	default:
		log.Printf("Unknown PAYMENT_GATEWAY %q, falling back to momo", provider)
		return NewMomoGateway()
	}
}
