package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/llm_client"
	"backend/internal/ml_models"
	"backend/internal/prediction"
	"backend/internal/repository"
	"backend/internal/server"
	"backend/internal/weather_client"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	// Load configuration
	cfgPath := "configs/config.yml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Model registry with lazy loading; the report client is built on first
	// acquisition alongside the local model artifacts.
	registry := ml_models.NewRegistry(cfg.Models.Dir, func(ctx context.Context) (ml_models.ReportGenerator, error) {
		client, err := llm_client.NewClient(ctx, llm_client.Config{
			APIKey:    cfg.Gemini.APIKey,
			ModelName: cfg.Gemini.Model,
		}, logger)
		if err != nil {
			return nil, err
		}
		return client, nil
	}, logger)
	defer registry.Reset()

	// Weather / geocoding client
	weatherClient := weather_client.NewClient(cfg.Weather.BaseURL, cfg.Weather.APIKey, logger)

	// Prediction pipeline
	predictionRepo := repository.NewPredictionRepository(db, logger)
	predictionService := prediction.NewService(registry, weatherClient, predictionRepo, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize and run the server
	srv := server.NewServer(db, cfg, predictionService, logger)
	go srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
