package main

// @title           SynergySphere Collaboration API
// @version         1.0
// @description     Project collaboration service with realtime presence, rooms and direct messages
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab-service/internal/adapters/kafka"
	"collab-service/internal/api/routes"
	"collab-service/internal/config"
	"collab-service/internal/database"
	"collab-service/internal/realtime"
	"collab-service/internal/repositories/postgres"
	"collab-service/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting collaboration server")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(cfg.Redis.URL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize object storage
	storage, err := database.NewMinIOClient(
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.Bucket,
		cfg.MinIO.UseSSL,
	)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	redisService := services.NewRedisService(redisClient)

	// Optional activity stream for auditing project-room broadcasts. The
	// dispatcher treats a nil publisher as disabled.
	var stream realtime.ActivityPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewActivityProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		stream = producer
	}

	// Assemble the realtime layer
	membershipRepo := postgres.NewMembershipRepository(db)
	messageRepo := postgres.NewMessageRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	logger := slog.Default()
	presence := realtime.NewPresenceRegistry()
	rooms := realtime.NewRoomRouter(membershipRepo, logger)
	dispatcher := realtime.NewEventDispatcher(presence, rooms, notificationRepo, activityRepo, stream, logger)
	directMessages := realtime.NewDirectMessageChannel(dispatcher, presence, messageRepo)
	hub := realtime.NewHub(presence, rooms, dispatcher, directMessages, redisService, logger)
	go hub.Run()

	// Initialize router with all dependencies
	router := routes.NewRouter(
		hub,
		redisService,
		db,
		storage,
		cfg.JWT.Secret,
		cfg.JWT.Expire,
	)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the realtime hub before the HTTP listener so connected clients
	// are unregistered cleanly.
	hub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
