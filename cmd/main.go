package main

import (
	"context"
	_ "credit-loan-service/docs"
	"credit-loan-service/internal/api"
	"credit-loan-service/internal/batch"
	"credit-loan-service/internal/config"
	"credit-loan-service/internal/domain/loan"
	"credit-loan-service/internal/event"
	"credit-loan-service/internal/infrastructure/cache"
	"credit-loan-service/internal/infrastructure/database/postgres"
	"credit-loan-service/internal/infrastructure/logging"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// @title Credit Loan Service API
// @version 1.0
// @description CRUD, search and statistics over credit-card loan records, backed by PostgreSQL with a Redis read-through cache.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT
func main() {
	cfg, logger := initializeApp()

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	redisStore := initializeCache(cfg, logger)
	if redisStore != nil {
		defer redisStore.Close()
	}

	publisher, amqpConn := initializeEventPublisher(cfg, logger)
	if amqpConn != nil {
		defer amqpConn.Close()
	}

	loanService, cachedRepo := initializeServices(cfg, dbPool, redisStore, publisher, logger)

	warmupJob := batch.NewCacheWarmupJob(cachedRepo, logger)
	cronScheduler := startBatchJobs(cfg, logger, warmupJob)

	router := api.SetupRouter(loanService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

// initializeCache connects to Redis. An unreachable cache backend is not
// fatal: the repository stack degrades to store-only reads.
func initializeCache(cfg *config.Config, logger *slog.Logger) *cache.RedisStore {
	logger.Info("Initializing Redis cache...", "addr", cfg.Cache.Addr)
	store, err := cache.NewRedisStore(context.Background(), cfg.Cache, logger)
	if err != nil {
		logger.Warn("Cache unavailable at startup, continuing without cache", "error", err)
		return nil
	}
	return store
}

func initializeEventPublisher(cfg *config.Config, logger *slog.Logger) (event.EventPublisher, *amqp.Connection) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("Event publishing disabled.")
		return event.NoopPublisher{}, nil
	}

	logger.Info("Connecting to RabbitMQ...", "exchange", cfg.RabbitMQ.ExchangeName)
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Warn("Failed to connect to RabbitMQ, continuing without events", "error", err)
		return event.NoopPublisher{}, nil
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to initialize event publisher, continuing without events", "error", err)
		conn.Close()
		return event.NoopPublisher{}, nil
	}
	return publisher, conn
}

func initializeServices(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	redisStore *cache.RedisStore,
	publisher event.EventPublisher,
	logger *slog.Logger,
) (loan.LoanService, loan.Repository) {
	logger.Info("Initializing application components...")

	storeRepo := postgres.NewLoanRepository(dbPool, cfg.Search.CaseSensitive, logger)

	var repo loan.Repository = storeRepo
	if redisStore != nil {
		repo = cache.NewLoanRepository(storeRepo, redisStore, cfg.Cache, logger)
	}

	validator := loan.NewValidator(loan.BoundsFromConfig(cfg.Validation))
	return loan.NewLoanService(repo, validator, publisher, logger), repo
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, warmupJob *batch.CacheWarmupJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.CacheWarmupSchedule
	if scheduleSpec == "" {
		scheduleSpec = "*/5 * * * *"
		logger.Warn("Cache warmup schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.CacheWarmupTimeout
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "CacheWarmup")
		jobLogger.Info("Cron triggered: Running cache warmup job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := warmupJob.Run(ctx); runErr != nil {
			jobLogger.Error("Cache warmup job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Cache warmup job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule cache warmup job", "schedule", scheduleSpec, slog.Any("error", err))

	} else {
		logger.Info("Scheduled cache warmup job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}
	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}
