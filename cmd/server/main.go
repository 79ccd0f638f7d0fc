package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"lipaplan_app_echo/internal/gateways"
	"lipaplan_app_echo/internal/handlers"
	authMiddleware "lipaplan_app_echo/internal/middleware"
	"lipaplan_app_echo/internal/payment"
	"lipaplan_app_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase. An empty FIREBASE_CREDENTIALS_PATH means
	// application default credentials.
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")

	authClient, err := services.NewAuthClient(context.Background(), credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
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
	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Redis is optional; without it method/plan lookups go straight through
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, caching disabled")
	}

	// Payment wiring: gateway driver, subscription activation, session manager
	gateway := gateways.FromEnv()
	subscriptions := services.NewSubscriptionService(db)
	receipts := services.NewReceiptNotifier(services.NewEmailService())

	manager := payment.NewManager(payment.Config{
		CallbackURL: os.Getenv("PAYMENT_CALLBACK_URL"),
		ReturnURL:   os.Getenv("PAYMENT_RETURN_URL"),
	}, gateway, subscriptions, services.TransitionLogger{}, receipts)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler

	// Initialize handlers
	planHandler := handlers.NewPlanHandler(db, cache)
	paymentHandler := handlers.NewPaymentHandler(db, cache, gateway, manager)

	// Public routes
	e.GET("/api/plans", planHandler.ListPlans)
	e.GET("/api/plans/:id", planHandler.GetPlan)
	e.GET("/api/payment/methods", paymentHandler.ListMethods)

	// Protected routes
	protected := e.Group("/api")
	protected.Use(authMiddleware.RequireAuth(authClient))
	protected.POST("/plans/:id/payment-session", paymentHandler.OpenSession)
	protected.GET("/payment-sessions/:id", paymentHandler.GetSession)
	protected.POST("/payment-sessions/:id/submit", paymentHandler.SubmitPayment)
	protected.POST("/payment-sessions/:id/retry", paymentHandler.RetryPayment)
	protected.DELETE("/payment-sessions/:id", paymentHandler.CloseSession)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
