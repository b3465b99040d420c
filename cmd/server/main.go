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

	"github.com/nirajbawa/match-pair-game/internal/config"
	"github.com/nirajbawa/match-pair-game/internal/events"
	"github.com/nirajbawa/match-pair-game/internal/game"
	"github.com/nirajbawa/match-pair-game/internal/handler"
	"github.com/nirajbawa/match-pair-game/internal/service"
	"github.com/nirajbawa/match-pair-game/internal/session"
	"github.com/nirajbawa/match-pair-game/internal/store"
	"github.com/nirajbawa/match-pair-game/internal/websocket"
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

	// Initialize PostgreSQL
	logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	repo, err := store.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to PostgreSQL")

	// Run database migrations
	if err := repo.RunMigrations(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize Redis session store
	logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
	sessions, err := session.NewRedisStore(&cfg.Redis, cfg.Session.TTL, logger)
	if err != nil {
		logger.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer sessions.Close()
	logger.Info("connected to Redis")

	// The live collection fans out player writes to leaderboard subscribers
	collection := store.NewCollection(repo, logger)

	// Load the canonical question pairs
	pairs, err := game.LoadPairs(cfg.Game.PairsFile)
	if err != nil {
		logger.Error("failed to load game pairs", "error", err, "file", cfg.Game.PairsFile)
		os.Exit(1)
	}
	logger.Info("loaded game pairs", "count", len(pairs))

	// Initialize game session manager
	games := game.NewManager(pairs, nil, cfg.Game.SessionTimeout, logger)
	games.Start(ctx)

	// Initialize Kafka publisher for score events
	var publisher events.Publisher
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka publisher",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		kafkaPublisher, err := events.NewKafkaPublisher(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka publisher, continuing without Kafka", "error", err)
		} else {
			publisher = kafkaPublisher
			logger.Info("Kafka publisher started successfully")
		}
	}

	// Initialize WebSocket hub over the live collection
	wsHub := websocket.NewHub(collection, logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize services
	gameService := service.NewGameService(collection, sessions, games, publisher, logger)

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(gameService, collection, wsHub, logger)

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

	// Stop game session manager
	games.Stop()

	// Stop Kafka publisher
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("failed to stop Kafka publisher", "error", err)
		}
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
