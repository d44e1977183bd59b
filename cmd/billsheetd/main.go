package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"billsheet/internal/api"
	"billsheet/internal/api/handlers"
	"billsheet/internal/repository"
	"billsheet/internal/service"
	"billsheet/pkg/config"
	"billsheet/pkg/logger"
	"billsheet/pkg/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting billsheet service")

	if cfg.Gemini.APIKey == "" {
		// Not fatal at boot: the CRUD and export surfaces still work, and
		// every scan request reports the missing key as its sole event.
		appLogger.Warn("GEMINI_API_KEY is not set; scan requests will fail with a configuration error")
	}

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	billRepo := repository.NewBillRepository(db, appLogger)

	// Initialize services
	validator := service.NewImageValidator(cfg.Upload)
	gemini := service.NewGeminiClient(&cfg.Gemini, appLogger)
	processor := service.NewBatchProcessor(validator, gemini, billRepo, appLogger)
	billService := service.NewBillService(billRepo, appLogger)
	exportService := service.NewExportService(billRepo, appLogger)

	// Initialize handlers
	scanHandler := handlers.NewScanHandler(processor, appLogger)
	billHandler := handlers.NewBillHandler(billService, appLogger)
	exportHandler := handlers.NewExportHandler(exportService, appLogger)
	healthHandler := handlers.NewHealthHandler(db, appLogger)

	// Setup router
	app := api.SetupRouter(scanHandler, billHandler, exportHandler, healthHandler, cfg.Server, cfg.Upload, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
