package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-swap-go/internal/api"
	"asset-swap-go/internal/config"
	"asset-swap-go/internal/database"
	"asset-swap-go/internal/logger"
	"asset-swap-go/internal/pricing"
	"asset-swap-go/internal/swap"

	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start the price updater against the market-data feed
	feed := pricing.NewFeedClient(&cfg.PriceFeed, log)
	updater := pricing.NewUpdater(feed, time.Duration(cfg.PriceFeed.RefreshInterval)*time.Second, log)
	go updater.Run(ctx)

	// Wire the settlement engine and the HTTP API
	engine := swap.NewEngine(log, db, swap.NewLedger(db), updater, cfg.Swap)
	server := api.NewServer(cfg.Server.Port, engine, db, log)
	server.Start()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}

	log.Info("Service has been shut down.")
}
