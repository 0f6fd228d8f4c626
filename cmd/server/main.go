// Package main provides the HTTP entry point for the PharmaGuard server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmaguard-server/internal/api"
	"github.com/pharmaguard-server/internal/bootstrap"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/logging"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.New(cfg.Logging)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Assemble the analysis pipeline
	analysis, closeServices, err := bootstrap.Build(ctx, configManager, logger)
	if err != nil {
		log.Fatalf("Failed to assemble analysis pipeline: %v", err)
	}
	defer closeServices()

	server := api.NewServer(configManager, analysis, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		closeServices()
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
