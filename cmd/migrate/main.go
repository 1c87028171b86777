package main

import (
	"blockchain_api/internal/config" // Custom import path (Config)
	"blockchain_api/internal/db"     // Custom import path (Database)

	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Connect to the database
	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Create or update the schema
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("failed to run migrations: %v", err)
	}
	logrus.Info("Migrations applied")
}
