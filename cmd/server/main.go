package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Blokmap/backend/internal/cache"
	"github.com/Blokmap/backend/internal/config"
	"github.com/Blokmap/backend/internal/database"
	"github.com/Blokmap/backend/internal/handlers"
	"github.com/Blokmap/backend/internal/metrics"
	"github.com/Blokmap/backend/internal/middleware"
	"github.com/Blokmap/backend/internal/repository"
	"github.com/Blokmap/backend/internal/services"
	"github.com/Blokmap/backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize logger
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting booking backend")

	// Connect to database
	dbConfig := database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		LogLevel: cfg.Database.LogLevel,
	}

	if err := database.Connect(dbConfig); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	// Initialize permission-mask cache
	var maskCache cache.MaskCache
	if cfg.Cache.Enabled {
		if cfg.Cache.Type == "redis" {
			addr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			maskCache, err = cache.NewRedisCache(addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to connect to Redis")
			}
			log.Info().Msg("Redis cache initialized")
		} else {
			maskCache = cache.NewMemoryCache()
			log.Info().Msg("Memory cache initialized")
		}
	} else {
		maskCache = cache.NewMemoryCache() // Fallback
		log.Info().Msg("Cache disabled, using memory cache as fallback")
	}
	defer maskCache.Close()

	// Initialize metrics
	if cfg.Metrics.Enabled {
		metrics.Init()
	}

	// Initialize repositories
	roleRepo := repository.NewRoleRepository()
	membershipRepo := repository.NewMembershipRepository()
	locationRepo := repository.NewLocationRepository()
	reservationRepo := repository.NewReservationRepository()
	auditRepo := repository.NewAuditRepository()

	// Initialize services
	resolver := services.NewResolver(roleRepo, membershipRepo, locationRepo, maskCache, cfg.Cache.TTL, auditRepo)
	ledger := services.NewLedger(reservationRepo, cfg.Booking.AdmissionTimeout)
	bookingService := services.NewBookingService(locationRepo, reservationRepo, ledger, resolver, auditRepo)
	locationService := services.NewLocationService(locationRepo, resolver)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	locationsHandler := handlers.NewLocationsHandler(locationService)
	rolesHandler := handlers.NewRolesHandler(resolver)
	reservationsHandler := handlers.NewReservationsHandler(bookingService)
	auditHandler := handlers.NewAuditHandler(auditRepo)

	// Setup router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Compress(5))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health endpoints (no authentication required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth.JWTSecret))

		// Permission catalogs (read-only)
		r.Get("/permissions/{scopeKind}", rolesHandler.GetCatalog)

		// Roles and memberships per scope
		r.Route("/scopes/{scopeKind}/{scopeID}", func(r chi.Router) {
			r.Post("/roles", rolesHandler.CreateRole)
			r.Get("/roles", rolesHandler.ListRoles)
			r.Post("/members", rolesHandler.AddMember)
		})
		r.Delete("/roles/{roleID}", rolesHandler.DeleteRole)

		// Audit trails
		r.Get("/audit/profiles/{profileID}", auditHandler.ListByProfile)
		r.Get("/audit/{resourceType}/{resourceID}", auditHandler.ListByResource)
		r.Post("/memberships/{membershipID}/roles", rolesHandler.AssignRole)
		r.Delete("/memberships/{membershipID}/roles/{roleID}", rolesHandler.UnassignRole)

		// Locations and opening times
		r.Post("/locations", locationsHandler.CreateLocation)
		r.Get("/locations", locationsHandler.ListLocations)
		r.Route("/locations/{locationID}", func(r chi.Router) {
			r.Get("/", locationsHandler.GetLocation)
			r.Post("/opening-times", locationsHandler.CreateOpeningTime)
			r.Get("/opening-times", locationsHandler.ListOpeningTimes)
			r.Get("/reservations", reservationsHandler.ListByLocation)

			// Reservations within one opening time
			r.Route("/opening-times/{openingTimeID}/reservations", func(r chi.Router) {
				r.Post("/", reservationsHandler.CreateReservation)
				r.Get("/", reservationsHandler.ListByOpeningTime)
				r.Delete("/{reservationID}", reservationsHandler.CancelReservation)
				r.Post("/{reservationID}/confirmation", reservationsHandler.ConfirmAttendance)
			})
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
