package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/career-sequence-game/internal/catalog"
	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/game"
	"github.com/career-sequence-game/internal/handler"
	"github.com/career-sequence-game/internal/kafka"
	"github.com/career-sequence-game/internal/ratelimit"
	"github.com/career-sequence-game/internal/store"
	"github.com/career-sequence-game/internal/websocket"
	"github.com/career-sequence-game/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL catalog
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	cat, err := catalog.NewPostgres(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer cat.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := cat.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize session store
	var sessions store.SessionStore
	switch cfg.Session.Backend {
	case "redis":
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		sessions, err = store.NewRedisStore(&cfg.Redis, cfg.Session.TTL, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to Redis")
	default:
		sessions = store.NewMemoryStore()
	}
	defer sessions.Close()

	// Initialize guess rate limiter
	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize game engine
	engine := game.NewEngine(cat, sessions, limiter, &cfg.Game, logger)
	engine.SetHub(wsHub)

	// Initialize session sweeper
	sweeper := worker.NewSweeper(sessions, limiter, &cfg.Session, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("failed to start sweeper", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer for transfer-record ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, cat, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(engine, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop sweeper
	if err := sweeper.Stop(); err != nil {
		logger.Error("failed to stop sweeper", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
