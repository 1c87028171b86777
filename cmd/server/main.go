package main

import (
	"context"   // context package is needed for Redis operations
	"log"       // log package is needed for logging
	"net/http"  // HTTP server
	"os"        // OS signals
	"os/signal" // Signal notification
	"syscall"   // Signal constants
	"time"      // Timeouts and intervals

	"blockchain_api/internal/api"        // Custom package for API handlers
	"blockchain_api/internal/chain"      // Custom package for chain access
	"blockchain_api/internal/config"     // Custom package for configuration
	"blockchain_api/internal/db"         // Custom package for database access
	"blockchain_api/internal/middleware" // Custom package for middleware
	"blockchain_api/internal/wallet"     // Custom package for key derivation
	"blockchain_api/internal/worker"     // Custom package for receipt polling

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Prometheus HTTP handler
	"github.com/redis/go-redis/v9"                            // Redis client
	"github.com/sirupsen/logrus"                              // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// The mnemonic must be valid before any key derivation happens
	if !wallet.ValidateMnemonic(cfg.Mnemonic) {
		logrus.Fatal("invalid or missing MNEMONIC")
	}

	// Resolve the configured network
	network, err := chain.LookupNetwork(cfg.Network)
	if err != nil {
		logrus.Fatalf("failed to resolve network: %v", err)
	}

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Connect to the JSON-RPC node
	rpcURL := cfg.RPCURL
	if rpcURL == "" {
		rpcURL = network.AlchemyURL(cfg.AlchemyAPIKey) // Default to Alchemy
	}
	client, err := chain.Dial(rpcURL)
	if err != nil {
		logrus.Fatalf("failed to connect to RPC node: %v", err)
	}

	// Select the deposit detector
	var detector chain.Detector
	switch cfg.Detector {
	case "alchemy":
		detector = chain.NewAlchemyDetector(client, client.RPC(), network)
	default:
		detector = chain.NewLogDetector(client, network)
	}

	// Start the receipt processor for pending withdrawals
	processor := worker.NewReceiptProcessor(gdb, redisClient, client, network,
		time.Duration(cfg.ReceiptInterval)*time.Second)
	processor.Start()

	// Wallet factory deriving the signing key for an address index
	walletFor := func(index uint32) (api.Transferer, error) {
		kp, err := wallet.DeriveKeypair(cfg.Mnemonic, index)
		if err != nil {
			return nil, err
		}
		return wallet.New(kp, client, network), nil
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Public routes
	r.GET("/health", api.HealthHandler(network))                     // Health endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))                 // Prometheus metrics endpoint
	r.GET("/addresses", api.ListAddressesHandler(gdb, redisClient))  // List addresses endpoint
	r.GET("/history", api.HistoryHandler(gdb, redisClient, network)) // Transaction history endpoint

	// Write routes (protected by JWT when API auth is configured)
	writeGroup := r.Group("")
	if cfg.JWTSecret != "" && cfg.APIKeyHash != "" {
		r.POST("/auth/token", api.TokenHandler(cfg.APIKeyHash, cfg.JWTSecret)) // Token endpoint
		writeGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	}
	writeGroup.POST("/addresses", api.GenerateAddressesHandler(gdb, redisClient, cfg.Mnemonic))                 // Generate addresses endpoint
	writeGroup.POST("/process-transaction", api.ProcessTransactionHandler(gdb, redisClient, detector, network)) // Deposit detection endpoint
	writeGroup.POST("/withdraw", api.WithdrawHandler(gdb, redisClient, walletFor, processor, network))          // Withdrawal endpoint

	// Start the server
	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server error: %v", err)
		}
	}()
	log.Println("Server running on " + cfg.AppPort) // Log server start

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down")

	// Stop accepting requests, then stop the background worker
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown: %v", err)
	}
	processor.Stop()
	client.Close()
}
