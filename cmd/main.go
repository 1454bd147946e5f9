package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"calls-tracker/internal/auth"
	"calls-tracker/internal/config"
	"calls-tracker/internal/database"
	"calls-tracker/internal/handlers"
	"calls-tracker/internal/jobs"
	"calls-tracker/internal/ledger"
	"calls-tracker/internal/parser"
	"calls-tracker/internal/reputation"
	"calls-tracker/internal/review"
	"calls-tracker/internal/services"
	"calls-tracker/internal/timing"
	"calls-tracker/internal/validation"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Pipeline components
	predParser := parser.New(cfg.Pipeline.DefaultCloseBufferHours, cfg.Pipeline.DefaultWindowDays)
	classifier := timing.New(cfg.Pipeline.MinHoursBeforeEvent)

	var reviewer validation.Reviewer
	if cfg.Review.ValidateURL != "" {
		reviewer = review.NewClient(review.Options{ValidateURL: cfg.Review.ValidateURL})
		log.Printf("External review enabled: %s", cfg.Review.ValidateURL)
	}

	validatorCfg := validation.DefaultConfig()
	validatorCfg.MinHoursUntilClose = float64(cfg.Pipeline.MinHoursBeforeEvent)
	validatorCfg.MaxDaysUntilClose = float64(cfg.Pipeline.MaxDaysUntilClose)
	validatorCfg.EventBufferHours = float64(cfg.Pipeline.MinHoursBeforeEvent)
	validator := validation.New(validatorCfg, reviewer)

	// Settlement ledger: dry-run unless a wallet is configured
	var settler ledger.Settler = ledger.DryRunSettler{}
	if cfg.Solana.WalletPrivateKey != "" {
		solanaSettler, err := ledger.NewSolanaSettler(cfg.Solana.RPCEndpoint, cfg.Solana.WalletPrivateKey)
		if err != nil {
			log.Fatalf("Failed to initialize Solana settler: %v", err)
		}
		settler = solanaSettler
	}

	repCfg := reputation.Config{
		MinCallsForRanking: cfg.Pipeline.MinCallsForRanking,
		DecayFactor:        cfg.Pipeline.ConfidenceDecayFactor,
	}

	defaultBet, err := decimal.NewFromString(cfg.Pipeline.DefaultBetAmount)
	if err != nil {
		log.Fatalf("Invalid DEFAULT_BET_AMOUNT: %v", err)
	}

	// Initialize services
	dedupService := services.NewDedupService(database.GetDB())
	callService := services.NewCallService(
		database.GetDB(),
		predParser,
		classifier,
		validator,
		dedupService,
		settler,
		repCfg,
		defaultBet,
	)
	callerService := services.NewCallerService(database.GetDB())

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(callerService)
	callHandler := handlers.NewCallHandler(callService)
	callerHandler := handlers.NewCallerHandler(callService)

	// Start settlement sweeper (voids calls left unresolved a week past close)
	sweeper := jobs.NewSettlementSweeper(database.GetDB(), callService, 7*24*time.Hour)
	sweeper.Start(1 * time.Hour)
	log.Println("Settlement sweeper started")

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	allowedOrigins := []string{
		"http://localhost:3000",
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	// Add additional frontend URL from environment if provided
	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Authentication routes (public)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/wallet", authHandler.WalletLogin)
	}

	// Authenticated /auth/me route
	authProtected := router.Group("/auth")
	authProtected.Use(auth.AuthMiddleware())
	{
		authProtected.GET("/me", authHandler.GetMe)
	}

	// Public read routes
	router.GET("/api/calls", callHandler.ListCalls)
	router.GET("/api/calls/:id", callHandler.GetCall)
	router.GET("/api/callers/:id", callerHandler.GetCaller)
	router.GET("/api/leaderboard", callerHandler.Leaderboard)
	router.GET("/api/stats", callerHandler.Stats)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.POST("/calls", callHandler.CreateCall)
		api.POST("/calls/:id/resolve", callHandler.ResolveCall)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		log.Printf("Health check: http://localhost:%s/health", cfg.Server.Port)
		log.Printf("Wallet auth: POST http://localhost:%s/auth/wallet", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
