package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cropcare/fieldsync/internal/config"
	"github.com/cropcare/fieldsync/internal/gateway"
	"github.com/cropcare/fieldsync/internal/handlers"
	custommw "github.com/cropcare/fieldsync/internal/middleware"
	"github.com/cropcare/fieldsync/internal/models"
	"github.com/cropcare/fieldsync/internal/observability"
	"github.com/cropcare/fieldsync/internal/repository"
	"github.com/cropcare/fieldsync/internal/services"
)

const serviceVersion = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize telemetry
	telemetryCtx, telemetryCancel := context.WithTimeout(context.Background(), 30*time.Second)
	telemetry, err := observability.Initialize(telemetryCtx, observability.NewConfig("fieldsync-agent", serviceVersion))
	telemetryCancel()
	if err != nil {
		log.Printf("Warning: telemetry initialization failed: %v", err)
	}

	// Initialize database and repositories
	db, err := repository.NewSQLiteDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	sessionRepo := repository.NewSessionRepository(db)
	resultRepo := repository.NewResultRepository(db)
	zoneRepo := repository.NewZoneRepository(db)

	// Backend gateway and device identity
	gw := gateway.NewScannerClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout())
	syncCtx := models.SyncContext{
		CompanyID:  cfg.Identity.CompanyID,
		WorkerID:   cfg.Identity.WorkerID,
		WorkerName: cfg.Identity.WorkerName,
	}

	// Services
	sessionService := services.NewSessionService(sessionRepo, resultRepo, zoneRepo, gw, syncCtx)
	syncService := services.NewSyncService(sessionRepo, resultRepo, zoneRepo, gw, syncCtx)
	scheduler := services.NewSchedulerService(syncService, gw, cfg.Sync.Interval())

	if syncMetrics, err := observability.NewSyncMetrics(); err != nil {
		log.Printf("Warning: sync metrics unavailable: %v", err)
	} else {
		syncService.SetMetrics(syncMetrics)
	}

	// WebSocket hub for UI sync progress
	hub := services.NewWebSocketHub()
	go hub.Run()
	syncService.SetNotifier(hub)

	// Warm the local caches; offline start is fine, they just stay stale
	if cfg.Sync.RefreshZones {
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 2*cfg.Backend.Timeout())
		if err := syncService.RefreshZones(warmCtx); err != nil {
			log.Printf("Zone cache refresh skipped: %v", err)
		}
		if err := syncService.RefreshSessions(warmCtx); err != nil {
			log.Printf("Session pull skipped: %v", err)
		}
		warmCancel()
	}

	if cfg.Sync.AutoStart {
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	syncHandler := handlers.NewSyncHandler(syncService, scheduler)
	zoneHandler := handlers.NewZoneHandler(zoneRepo, syncService)
	healthHandler := handlers.NewHealthHandler()
	wsHandler := handlers.NewWebSocketHandler(hub)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.TracingMiddleware("fieldsync-agent"))
	if httpMetrics, err := observability.NewHTTPMetrics(); err == nil {
		r.Use(observability.MetricsMiddleware(httpMetrics))
	}
	if cfg.Security.APIKey != "" {
		r.Use(custommw.APIKeyAuth(cfg.Security.APIKey, cfg.Security.APIKeyHeader))
	}

	// Routes
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/api/health", healthHandler.HealthCheck)
	r.Get("/ws", wsHandler.HandleWebSocket)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", sessionHandler.Start)
		r.Get("/", sessionHandler.List)
		r.Get("/active", sessionHandler.Active)
		r.Get("/{sessionId}", sessionHandler.Get)
		r.Post("/{sessionId}/finish", sessionHandler.Finish)
		r.Post("/{sessionId}/cancel", sessionHandler.Cancel)
		r.Post("/{sessionId}/results", sessionHandler.RecordResult)
		r.Get("/{sessionId}/results", sessionHandler.ListResults)
		r.Post("/refresh", syncHandler.RefreshSessions)
	})

	r.Post("/api/results/{resultId}/report", sessionHandler.LinkReport)

	r.Route("/api/sync", func(r chi.Router) {
		r.Get("/status", syncHandler.Status)
		r.Post("/now", syncHandler.TriggerNow)
	})

	r.Route("/api/zones", func(r chi.Router) {
		r.Get("/", zoneHandler.List)
		r.Get("/{zoneId}/crops", zoneHandler.ListCrops)
		r.Post("/refresh", zoneHandler.Refresh)
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("FieldSync agent starting on %s", cfg.ServerAddress)
		log.Printf("Database path: %s", cfg.DatabasePath)
		log.Printf("Backend: %s", cfg.Backend.BaseURL)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down agent...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(ctx); err != nil {
			log.Printf("Telemetry shutdown error: %v", err)
		}
	}

	log.Println("Agent stopped")
}
