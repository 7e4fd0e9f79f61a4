package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/booklog/booklog/internal/api"
	"github.com/booklog/booklog/internal/auth"
	"github.com/booklog/booklog/internal/config"
	"github.com/booklog/booklog/internal/db"
	"github.com/booklog/booklog/internal/events"
	grpcserver "github.com/booklog/booklog/internal/grpc"
	"github.com/booklog/booklog/internal/jobs"
	"github.com/booklog/booklog/internal/metrics"
	"github.com/booklog/booklog/internal/repo"
	"github.com/booklog/booklog/pkg/logger"
	"go.uber.org/zap"
)

const limiterMaxIdle = 3 * time.Minute

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Booklog service starting")
	if cfg.UsesDefaultAuthSecret() {
		log.Warn("AUTH_SECRET not set, signing sessions with the development default")
	}

	// Connect to database
	log.Info("Connecting to database...")
	database, err := db.Connect(cfg.PGDSN, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	books := repo.NewBookRepository(database, log)
	authService := auth.NewService(database, cfg.AuthSecret, cfg.SessionTTL, log)

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	notifier := events.NewNotifier(publisher, cfg.EventWorkers, log)
	defer notifier.Close()

	m := metrics.New()

	app := api.New(api.Options{
		WebURL:      cfg.WebURL,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
	}, api.Deps{
		Books:       books,
		Notifier:    notifier,
		Resolver:    authService,
		AuthHandler: authService.Handler(strings.HasPrefix(cfg.WebURL, "https://")),
		Metrics:     m,
		Health:      healthChecks(database, publisher),
		Log:         log,
	})

	// Scheduled maintenance
	scheduler := jobs.NewScheduler(log)
	mustAdd(log, scheduler, "purge-sessions", cfg.SessionPurgeSchedule, jobs.PurgeSessions(authService, log))
	mustAdd(log, scheduler, "book-stats", cfg.StatsSchedule, jobs.RefreshBookStats(books, m))
	mustAdd(log, scheduler, "sweep-rate-limiter", "@every 1m", jobs.SweepLimiter(jobs.SweepFunc(app.SweepRateLimiter), limiterMaxIdle))
	scheduler.Start()

	// Start gRPC health server
	grpcServer := grpcserver.NewServer(grpcserver.NewHealthServer(database, publisher, log), log)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCHealthPort))
	if err != nil {
		log.Fatal("Failed to listen on gRPC port", zap.Error(err))
	}

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Fatal("Failed to serve gRPC", zap.Error(err))
		}
	}()

	// Start HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      app.Handler(),
		ErrorLog:     zap.NewStdLog(log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	grpcServer.GracefulStop()

	if err := scheduler.Stop(ctx); err != nil {
		log.Warn("Scheduled jobs did not finish in time", zap.Error(err))
	}

	log.Info("Server stopped")
}

// newPublisher connects to RabbitMQ when configured and falls back to
// dropping events otherwise.
func newPublisher(cfg *config.Config, log *zap.Logger) events.Publisher {
	if cfg.RabbitMQURL == "" {
		log.Warn("RABBITMQ_URL not set, book events will be dropped")
		return events.NewNopPublisher(log)
	}

	log.Info("Connecting to RabbitMQ")
	publisher, err := events.NewRabbitPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	return publisher
}

func healthChecks(database *db.DB, publisher events.Publisher) []api.HealthCheck {
	return []api.HealthCheck{
		func() error {
			if err := database.Ping(); err != nil {
				return errors.New("database connection failed")
			}
			return nil
		},
		func() error {
			if !publisher.IsHealthy() {
				return errors.New("rabbitmq connection failed")
			}
			return nil
		},
	}
}

func mustAdd(log *zap.Logger, s *jobs.Scheduler, name, spec string, job jobs.Job) {
	if err := s.Add(name, spec, job); err != nil {
		log.Fatal("Failed to schedule job", zap.String("job", name), zap.Error(err))
	}
}
