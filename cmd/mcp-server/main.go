// Package main provides the MCP entry point for the PharmaGuard server.
// The server speaks the Model Context Protocol over stdio, so all logging
// goes to stderr.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmaguard-server/internal/bootstrap"
	"github.com/pharmaguard-server/internal/config"
	"github.com/pharmaguard-server/internal/logging"
	"github.com/pharmaguard-server/internal/mcp"
	"github.com/pharmaguard-server/internal/setup"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI()
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

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

	// Stdout carries the protocol framing
	loggingCfg := cfg.Logging
	loggingCfg.Output = "stderr"
	logger := logging.New(loggingCfg)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Assemble the analysis pipeline
	analysis, closeServices, err := bootstrap.Build(ctx, configManager, logger)
	if err != nil {
		log.Fatalf("Failed to assemble analysis pipeline: %v", err)
	}
	defer closeServices()

	server := mcp.NewServer(cfg.MCP, analysis, logger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down MCP server...")
		cancel()
	}()

	// Start MCP server
	if err := server.Run(ctx); err != nil {
		logger.WithError(err).Error("MCP server failed")
		closeServices()
		os.Exit(1)
	}

	logger.Info("MCP server stopped")
}
