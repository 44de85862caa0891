package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Rrens/workspace-sync/internal/api"
	"github.com/Rrens/workspace-sync/internal/collab"
	"github.com/Rrens/workspace-sync/internal/config"
	"github.com/Rrens/workspace-sync/internal/logging"
	"github.com/Rrens/workspace-sync/internal/repository/redis"
	"github.com/Rrens/workspace-sync/internal/repository/sqlite"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer logCloser.Close()

	if cfg.Device.ID == "" {
		cfg.Device.ID = uuid.NewString()
		log.Warn().Str("device_id", cfg.Device.ID).Msg("No device id configured, generated one for this run")
	}

	log.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("data_dir", cfg.Storage.DataDir).
		Msg("Starting workspace sync server")

	// Initialize database
	if err := sqlite.RunMigrations(cfg.Storage.Path()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	db, err := sqlite.NewDB(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	// Initialize Redis
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisClient.Close()
	}

	collabs := collab.NewRegistry(cfg.Storage, cfg.Collab.Secret)
	defer collabs.CloseAll()

	// Initialize router
	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:      db,
		Redis:   redisClient,
		Collabs: collabs,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build router")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Refreshes write to the cache, so they finish before the stores close
	router.Wait()

	log.Info().Msg("Server stopped")
}
