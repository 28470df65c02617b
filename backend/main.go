package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	"vidyasetu/backend/config"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/routes"
	"vidyasetu/backend/services"
	"vidyasetu/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		logger.Fatal("Error initializing database", "error", err)
	}

	// External collaborators
	var store services.FileStore
	if cfg.NotesBucket != "" {
		store, err = services.NewGCSFileStore(context.Background(), cfg, logger)
		if err != nil {
			logger.Fatal("Error initializing object storage", "error", err)
		}
	} else {
		logger.Warn("NOTES_GCS_BUCKET is not set, multipart note uploads are disabled")
	}
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set, SAQ evaluation will score every answer as failed")
	}

	app := routes.NewApp(routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Log:      logger,
		Scorer:   services.NewGeminiScorer(cfg, logger),
		Calendar: services.NewGoogleCalendar(cfg, logger),
		Store:    store,
		Metrics:  middleware.NewMetrics(),
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Server shutdown failed", "error", err)
		}
	}()

	// Start server
	logger.Info("Server starting", "port", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logger.Fatal("Server stopped", "error", err)
	}
}
