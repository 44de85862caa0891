package api

import (
	"fmt"
	"net/http"

	"github.com/Rrens/workspace-sync/internal/api/handler"
	customMiddleware "github.com/Rrens/workspace-sync/internal/api/middleware"
	"github.com/Rrens/workspace-sync/internal/cloud"
	"github.com/Rrens/workspace-sync/internal/collab"
	"github.com/Rrens/workspace-sync/internal/config"
	"github.com/Rrens/workspace-sync/internal/domain"
	"github.com/Rrens/workspace-sync/internal/legacy"
	"github.com/Rrens/workspace-sync/internal/notification"
	"github.com/Rrens/workspace-sync/internal/repository/redis"
	"github.com/Rrens/workspace-sync/internal/repository/sqlite"
	"github.com/Rrens/workspace-sync/internal/security"
	"github.com/Rrens/workspace-sync/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// Dependencies are the long-lived resources the router wires services onto.
// Redis is optional.
type Dependencies struct {
	DB      *sqlite.DB
	Redis   *redis.Client
	Collabs *collab.Registry
}

// Router is the HTTP handler of the server together with the services that
// outlive a single request
type Router struct {
	http.Handler
	workspaces *service.UserWorkspaceService
}

// Wait blocks until background workspace refreshes have finished. No new
// refresh starts afterwards, so it belongs to shutdown.
func (r *Router) Wait() {
	r.workspaces.Wait()
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, deps Dependencies) (*Router, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	sessionEncryptor, err := security.NewEncryptorFromSecret(cfg.Collab.Secret, "session")
	if err != nil {
		return nil, fmt.Errorf("failed to derive session key: %w", err)
	}

	// Initialize repositories
	sessionRepo := sqlite.NewSessionRepository(deps.DB, sessionEncryptor)
	userRepo := sqlite.NewUserRepository(deps.DB)
	workspaceRepo := sqlite.NewWorkspaceRepository(deps.DB)

	cloudClient := cloud.NewClient(cfg.Cloud.BaseURL, sessionRepo, cfg.Cloud.Timeout)

	// Notifications go through Redis when several processes share the data dir
	var (
		notifier   domain.Notifier
		subscriber domain.NotificationSubscriber
	)
	if deps.Redis != nil {
		bus := redis.NewNotificationBus(deps.Redis)
		notifier, subscriber = bus, bus
	} else {
		hub := notification.NewHub()
		notifier, subscriber = hub, hub
	}

	// Initialize services
	statusCallback := service.NewSessionStatusCallback(sessionRepo, userRepo)
	workspaceService := service.NewUserWorkspaceService(
		workspaceRepo,
		cloudClient,
		sessionRepo,
		notifier,
		statusCallback,
		cfg.Device.ID,
		cfg.Cloud.RefreshTimeout,
	)
	importService := service.NewImportService(
		sessionRepo,
		userRepo,
		legacy.NewExtractor(),
		cloudClient,
		cloudClient,
		deps.Collabs,
	)
	sessionService := service.NewSessionService(
		sessionRepo,
		userRepo,
		importService,
		deps.Collabs,
		jwtManager,
		cfg.Device.ID,
	)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(sessionService)
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService)
	importHandler := handler.NewImportHandler(importService)
	notificationHandler := handler.NewNotificationHandler(subscriber)

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager, sessionRepo)

	pingers := []handler.Pinger{deps.DB}
	if deps.Redis != nil {
		pingers = append(pingers, deps.Redis)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(pingers...))

		r.Post("/session", sessionHandler.SignIn)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/notifications", notificationHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

				r.Get("/session", sessionHandler.Current)
				r.Delete("/session", sessionHandler.SignOut)

				r.Route("/workspaces", func(r chi.Router) {
					r.Get("/", workspaceHandler.List)

					r.Route("/{workspaceID}", func(r chi.Router) {
						r.Use(customMiddleware.WorkspaceContext)

						r.Get("/", workspaceHandler.Get)
						r.Post("/open", workspaceHandler.Open)
						r.Post("/reset", workspaceHandler.Reset)

						r.Get("/members", workspaceHandler.ListMembers)
						r.Post("/members", workspaceHandler.AddMember)
						r.Patch("/members", workspaceHandler.UpdateMember)
						r.Delete("/members", workspaceHandler.RemoveMember)
					})
				})

				r.Group(func(r chi.Router) {
					if deps.Redis != nil {
						rateLimiter := redis.NewRateLimiter(
							deps.Redis,
							cfg.RateLimit.RequestsPerMinute,
							cfg.RateLimit.Burst,
						)
						r.Use(customMiddleware.NewRateLimitMiddleware(rateLimiter, "import").Limit)
					} else {
						log.Info().Msg("Redis disabled, import requests are not rate limited")
					}

					r.Post("/import", importHandler.Import)
				})
			})
		})
	})

	return &Router{Handler: r, workspaces: workspaceService}, nil
}
