package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"invoice-extractor/internal/api"
	"invoice-extractor/internal/api/handlers"
	"invoice-extractor/internal/service"
	"invoice-extractor/pkg/config"
	"invoice-extractor/pkg/logger"

	"go.uber.org/zap"
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
	appLogger.Info("Starting invoice extraction service")

	if cfg.OpenAI.APIKey == "" {
		appLogger.Warn("OPENAI_API_KEY environment variable is not set")
	}

	// Initialize services
	fileService := service.NewFileService(appLogger)
	llmService := service.NewLLMService(&cfg.OpenAI, appLogger)
	invoiceService := service.NewInvoiceService(fileService, llmService, appLogger)

	// Initialize handler and router
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, appLogger)
	app := api.SetupRouter(invoiceHandler, appLogger)

	// Start server
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
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
