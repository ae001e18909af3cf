package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"envelope/internal/config"
	"envelope/internal/database"
	"envelope/internal/handlers"
	"envelope/internal/ledger"
	"envelope/internal/logger"
	"envelope/internal/notify"
	"envelope/internal/repository"
	"envelope/internal/scheduler"
	"envelope/internal/server"
	"envelope/internal/services"
	"envelope/internal/validator"

	_ "envelope/internal/docs" // Import swagger docs
)

// @title           Envelope API
// @version         1.0
// @description     Envelope budgeting ledger: accounts, category envelopes, targets and recurring planned transactions.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a JWT carrying a "scope" claim.

func main() {
	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Init(appConfig.Env, appConfig.LogLevel)
	defer logger.Sync()
	log := logger.Get()

	validator.Register()

	repo, closeRepo, err := openRepository(appConfig)
	if err != nil {
		return err
	}
	defer closeRepo()

	loc, err := appConfig.Location()
	if err != nil {
		return err
	}
	weekStart, err := appConfig.Weekday()
	if err != nil {
		return err
	}

	publisher := openPublisher(appConfig)
	defer publisher.Close()

	// Initialize services
	registry := ledger.NewRegistry(repo, ledger.Options{Location: loc, WeekStart: weekStart})
	sched := scheduler.New(registry, scheduler.Options{
		MaxCatchUp: appConfig.SchedulerMaxCatchUp,
		Publisher:  publisher,
	})
	plannedService := services.NewPlannedService(registry, repo, sched, logger.Named("planned"))

	// Initialize Gin router
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Services{
		Accounts:     services.NewAccountService(registry),
		Categories:   services.NewCategoryService(registry),
		Transactions: services.NewTransactionService(registry),
		Budget:       services.NewBudgetService(registry),
		Planned:      plannedService,
	}, server.Options{
		JWTSecret:      appConfig.JWTSecret,
		OperatorAPIKey: appConfig.SchedulerAPIKey,
		Calendar:       handlers.Calendar{Location: loc, Now: time.Now},
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Starting Envelope server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if appConfig.SchedulerInterval > 0 {
		g.Go(func() error {
			runScheduler(ctx, plannedService, appConfig.SchedulerInterval)
			return nil
		})
	}
	return g.Wait()
}

// openRepository selects the storage backend named by DB_DRIVER.
func openRepository(cfg *config.Config) (repository.Repository, func(), error) {
	if cfg.DBDriver == "memory" {
		logger.Get().Warn("Using in-memory storage; data is lost on restart")
		return repository.NewMemoryRepository(), func() {}, nil
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		_ = dbManager.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	closeFn := func() {
		if err := dbManager.Close(); err != nil {
			logger.Get().Warnf("database close error: %v", err)
		}
	}
	return repository.NewGormRepository(dbManager.DB()), closeFn, nil
}

// openPublisher connects to AMQP when configured and falls back to logging
// reminders.
func openPublisher(cfg *config.Config) notify.Publisher {
	log := logger.Named("notify")
	if cfg.AMQPURL == "" {
		log.Info("AMQP disabled; manual due reminders are logged")
		return notify.NewLogPublisher(log)
	}
	publisher, err := notify.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, log)
	if err != nil {
		log.Warnw("Failed to initialize AMQP publisher, logging reminders instead", "error", err)
		return notify.NewLogPublisher(log)
	}
	return publisher
}
