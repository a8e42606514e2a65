package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pe-tracker/src/config"
	"pe-tracker/src/data_source/yahoo"
	"pe-tracker/src/helpers"
	"pe-tracker/src/interfaces"
	"pe-tracker/src/logger"
	"pe-tracker/src/models"
	"pe-tracker/src/network"
	"pe-tracker/src/server"
	"pe-tracker/src/service"
	"pe-tracker/src/storage"
	"pe-tracker/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Setup Storage
	var store interfaces.IStockStore

	switch cfg.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		store, err = storage.NewSQLiteStore(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init store: %v", err)
	}
	// Retry in case the database is still coming up.
	if _, err := helpers.RetryWithBackoff("store init", 3, 2*time.Second, func() (interface{}, error) {
		return nil, store.Initialize()
	}); err != nil {
		appLogger.Critical("Failed to migrate store: %v", err)
	}
	defer store.Close()

	// 3. Setup Provider + Core Service
	var netMgr interfaces.INetworkManager = network.NewNetworkManager(cfg.MConfig, appLogger)
	var provider interfaces.IQuoteProvider = yahoo.NewYahooQuoteSource(cfg.MConfig, netMgr)

	limiter := helpers.NewRateLimiter(time.Duration(cfg.Tracker.RateLimitIntervalMs) * time.Millisecond)
	svc := service.NewStockService(cfg.MConfig, store, provider, limiter)

	// 4. Seed the browse universe (lazy registration, no fetches)
	if cfg.Tracker.SeedUniverse {
		if _, err := svc.SeedUniverse(); err != nil {
			appLogger.Warning("Universe seeding failed: %v", err)
		}
	}

	// 5. Start Server
	var exchanger interfaces.IDataExchanger = server.NewAPIServer(cfg.MConfig, svc, appLogger)
	go func() {
		if err := exchanger.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()
	defer exchanger.Stop()

	// 6. Scheduled batch loop: update tracked tickers, broadcast the result,
	// pause while every tracked market is closed.
	scheduler := utils.NewMarketScheduler(cfg.Tracker.Tickers, logger.NewLogger(cfg.LogLevel, "MarketScheduler"))
	ticker := time.NewTicker(time.Duration(cfg.Tracker.UpdateIntervalSeconds) * time.Second)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting tracked-ticker update loop...")

	runBatch := func() {
		saved := svc.UpdateTracked(cfg.Tracker.Tickers, cfg.Tracker.PEThreshold)
		appLogger.Info("Batch update complete: %d/%d stocks saved", len(saved), len(cfg.Tracker.Tickers))

		update := &models.MTrackerUpdate{
			Type:      "UPDATE",
			Stocks:    make(map[string]models.MHistoricalRecord, len(saved)),
			Threshold: cfg.Tracker.PEThreshold,
			Updated:   len(saved),
			Timestamp: time.Now().UTC().Unix(),
		}
		for _, record := range saved {
			update.Stocks[record.Ticker] = record
		}
		exchanger.Broadcast(update)
	}

	// First run at startup
	runBatch()

	for {
		select {
		case <-ticker.C:
			if !scheduler.AnyMarketOpen() {
				appLogger.Info("All tracked markets are closed, skipping batch run")
				continue
			}
			runBatch()

		case <-quit:
			appLogger.Info("Shutting down...")
			return
		}
	}
}
