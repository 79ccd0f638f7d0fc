package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"lipaplan_app_echo/internal/gateways"
	"lipaplan_app_echo/internal/models"
	"lipaplan_app_echo/internal/payment"
	"lipaplan_app_echo/internal/services"
)

// The reconciler settles payment attempts whose in-dialog polling budget ran
// out: records the server stored as "unverified". It re-queries the gateway
// on a slow cadence and promotes each record to paid or failed once the
// gateway finally answers with a terminal status.

const (
	sweepInterval = 5 * time.Minute
	sweepWindow   = 48 * time.Hour
	sweepLockTTL  = 4 * time.Minute
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis lock keeps two reconciler instances from sweeping the same rows
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}

	gateway := gateways.FromEnv()
	subscriptions := services.NewSubscriptionService(db)

	log.Println("Reconciler started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down reconciler...")
		cancel()
	}()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	// Run once on start so a restart doesn't delay settlement by a full tick
	sweepUnverified(ctx, db, cache, gateway, subscriptions)

	for {
		select {
		case <-ticker.C:
			sweepUnverified(ctx, db, cache, gateway, subscriptions)
		case <-ctx.Done():
			return
		}
	}
}

func sweepUnverified(ctx context.Context, db *gorm.DB, cache *services.RedisCache, gateway payment.Gateway, subscriptions *services.SubscriptionService) {
	if cache != nil {
		ok, err := cache.AcquireLock(ctx, "reconciler:sweep", sweepLockTTL)
		if err != nil {
			log.Printf("Error acquiring sweep lock: %v", err)
			return
		}
		if !ok {
			log.Println("Another reconciler holds the sweep lock, skipping tick.")
			return
		}
	}

	log.Println("Checking for unverified payments...")

	var records []models.PaymentRecord
	cutoff := time.Now().Add(-sweepWindow)
	err := db.Where("outcome = ? AND created_at >= ?", models.PaymentOutcomeUnverified, cutoff).
		Order("created_at asc").Find(&records).Error
	if err != nil {
		log.Printf("Error fetching unverified payments: %v", err)
		return
	}

	if len(records) == 0 {
		log.Println("No unverified payments found.")
		return
	}

	log.Printf("Found %d unverified payments.", len(records))

	for i := range records {
		// Check context cancellation
		if ctx.Err() != nil {
			return
		}
		settleRecord(ctx, gateway, subscriptions, &records[i])
	}
}

func settleRecord(ctx context.Context, gateway payment.Gateway, subscriptions *services.SubscriptionService, record *models.PaymentRecord) {
	log.Printf("Settling payment: %s (ID: %d)", record.Reference, record.ID)

	qctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	res, err := gateway.QueryStatus(qctx, payment.Method(record.Method), record.Reference)
	if err != nil {
		// Leave the record for the next sweep
		log.Printf("Payment %s: status query failed: %v", record.Reference, err)
		return
	}

	switch res.State {
	case payment.TxCompleted:
		if err := subscriptions.SettleUnverified(ctx, record, true, ""); err != nil {
			log.Printf("Payment %s: settlement failed: %v", record.Reference, err)
			return
		}
		log.Printf("Payment %s settled as paid, subscription activated.", record.Reference)
	case payment.TxFailed:
		if err := subscriptions.SettleUnverified(ctx, record, false, res.FailureReason); err != nil {
			log.Printf("Payment %s: settlement failed: %v", record.Reference, err)
			return
		}
		log.Printf("Payment %s settled as failed: %s", record.Reference, res.FailureReason)
	default:
		log.Printf("Payment %s still in progress at the gateway, keeping for next sweep.", record.Reference)
	}
}
