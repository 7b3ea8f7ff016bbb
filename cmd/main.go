package main

import (
	"context"
	_ "credit-application-system/docs"
	"credit-application-system/internal/api"
	"credit-application-system/internal/batch"
	"credit-application-system/internal/config"
	"credit-application-system/internal/domain/credit"
	"credit-application-system/internal/domain/customer"
	"credit-application-system/internal/event"
	"credit-application-system/internal/infrastructure/database/memory"
	"credit-application-system/internal/infrastructure/database/postgres"
	"credit-application-system/internal/infrastructure/logging"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// @title Credit Application System API
// @version 1.0
// @description Registers customers and their credit applications.

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	repos, closeDatabase, err := initializeDatabase(appCtx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer closeDatabase()

	publisher, closeBroker := initializePublisher(cfg.RabbitMQ, logger)
	defer closeBroker()

	redisClient := initializeRedis(cfg.Redis, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	services := initializeServices(repos, publisher, logger)
	snapshotJob := batch.NewPortfolioSnapshotJob(repos.credits, logger)

	cronScheduler := startBatchJobs(cfg, logger, snapshotJob)
	router := api.SetupRouter(appCtx, services, cfg, redisClient, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

type repositories struct {
	customers customer.CustomerRepository
	credits   credit.CreditRepository
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

// initializeDatabase returns the repositories for the configured driver and a
// function releasing whatever they hold.
func initializeDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("Using in-memory storage; data is lost on restart.")
		store := memory.NewStore(logger)
		return repositories{customers: store.Customers(), credits: store.Credits()}, func() {}, nil
	}
	if cfg.Database.Driver != config.DriverPostgres {
		return repositories{}, nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		return repositories{}, nil, err
	}
	if cfg.Database.Migrate {
		if err := postgres.Migrate(ctx, dbPool, logger); err != nil {
			dbPool.Close()
			return repositories{}, nil, err
		}
	}

	closeFn := func() {
		logger.Info("Closing database connection pool...")
		dbPool.Close()
	}
	return repositories{
		customers: postgres.NewCustomerRepository(dbPool, logger),
		credits:   postgres.NewCreditRepository(dbPool, logger),
	}, closeFn, nil
}

func initializePublisher(cfg config.RabbitMQConfig, logger *slog.Logger) (event.EventPublisher, func()) {
	if !cfg.Enabled {
		logger.Info("RabbitMQ disabled; domain events will not be published.")
		return event.NoopPublisher{}, func() {}
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ; continuing without events", "error", err)
		return event.NoopPublisher{}, func() {}
	}
	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to set up RabbitMQ publisher; continuing without events", "error", err)
		conn.Close()
		return event.NoopPublisher{}, func() {}
	}

	return publisher, func() {
		logger.Info("Closing RabbitMQ connection...")
		if err := conn.Close(); err != nil {
			logger.Warn("Error closing RabbitMQ connection", "error", err)
		}
	}
}

func initializeRedis(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable; rate limiting falls back to in-process buckets", "addr", cfg.Addr, "error", err)
		client.Close()
		return nil
	}
	logger.Info("Connected to Redis", "addr", cfg.Addr)
	return client
}

func initializeServices(repos repositories, publisher event.EventPublisher, logger *slog.Logger) api.Services {
	logger.Info("Initializing application components...")
	customerService := customer.NewCustomerService(repos.customers, publisher, logger)
	creditService := credit.NewCreditService(repos.credits, customerService, publisher, logger)
	return api.Services{Customers: customerService, Credits: creditService}
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
		logger.Info("Server listening", "addr", srv.Addr)
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

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
	}
	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, snapshotJob *batch.PortfolioSnapshotJob) *cron.Cron {
	c := cron.New()

	scheduleSpec := cfg.Batch.PortfolioSnapshotSchedule
	if scheduleSpec == "" {
		scheduleSpec = "*/15 * * * *"
		logger.Warn("Portfolio snapshot schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.PortfolioSnapshotTimeout
	if jobTimeout <= 0 {
		jobTimeout = 2 * time.Minute
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := snapshotJob.Run(ctx); runErr != nil {
			logger.Error("Portfolio snapshot job finished with error", slog.Any("error", runErr))
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule portfolio snapshot job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled portfolio snapshot job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}
