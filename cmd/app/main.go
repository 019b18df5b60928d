package main

import (
	"github.com/joho/godotenv"
	"gitlab.com/ignitionrobotics/billing/cashier/internal/server"
	"go.uber.org/zap"
	"log"
)

// main prepares the config and runs the cashier HTTP server.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalln("Failed to initialize logger:", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Values already present in the environment take precedence over the .env file.
	_ = godotenv.Load()

	// Prepare the config
	cfg, err := server.Setup(logger)
	if err != nil {
		logger.Fatal("Failed to initialize server configuration", zap.Error(err))
	}

	// Run the HTTP server with the given config
	if err = server.Run(cfg, logger); err != nil {
		logger.Fatal("Failed to run HTTP server", zap.Error(err))
	}

	logger.Info("Shutting HTTP server down...")
}
