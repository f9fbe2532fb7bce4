package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"brokerdesk/configs"
	"brokerdesk/internal/adapter/email"
	"brokerdesk/internal/adapter/realtime"
	"brokerdesk/internal/database"
	httpdelivery "brokerdesk/internal/delivery/http"
	"brokerdesk/internal/domain"
	"brokerdesk/internal/infra"
	"brokerdesk/internal/middleware"
	"brokerdesk/internal/repository"
	"brokerdesk/internal/repository/memory"
	"brokerdesk/internal/service"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, syncLogger, err := infra.InitializeLogger(cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer syncLogger()

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()

	// Realtime hub and email sender
	hub := realtime.NewHub()
	defer hub.Close()

	sender, err := email.NewSender(email.Config{
		Host:          cfg.SMTP.Host,
		Port:          cfg.SMTP.Port,
		Username:      cfg.SMTP.Username,
		Password:      cfg.SMTP.Password,
		From:          cfg.SMTP.From,
		Platform:      cfg.SMTP.Platform,
		TemplatesFile: cfg.SMTP.TemplatesFile,
	})
	if err != nil {
		logger.Fatal("Failed to load email templates", zap.Error(err))
	}
	var mailer service.Mailer
	if sender.Enabled() {
		mailer = sender
	}

	// Services
	tokens := middleware.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	notifier := service.NewNotificationService(store.Notifications(), store.Users(), mailer, hub)
	accounts := service.NewAccountService(store, tokens, notifier)
	ledger := service.NewLedgerService(store, notifier)

	if err := accounts.EnsureDefaultAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}

	// Notification retention job
	scheduler := infra.NewScheduler(notifier, cfg.Notifications.Retention, cfg.Notifications.PurgeSchedule)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Public API
	e := echo.New()
	e.HideBanner = true
	e.Debug = cfg.Server.IsDevelopment()

	httpdelivery.SetupRoutes(e, &httpdelivery.RouterConfig{
		Tokens:              tokens,
		Store:               store,
		AuthHandler:         httpdelivery.NewAuthHandler(accounts, cfg.Auth.TokenTTL, !cfg.Server.IsDevelopment()),
		UserHandler:         httpdelivery.NewUserHandler(accounts),
		TransactionHandler:  httpdelivery.NewTransactionHandler(ledger),
		NotificationHandler: httpdelivery.NewNotificationHandler(notifier),
		AdminHandler:        httpdelivery.NewAdminHandler(accounts, ledger),
		WSHandler:           httpdelivery.NewWSHandler(hub, tokens),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Ops listener
	ops := infra.NewOpsServer(fmt.Sprintf(":%s", cfg.Server.OpsPort), store)

	go func() {
		logger.Info("BrokerDesk API starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("storage", cfg.Database.Driver),
			zap.Bool("email", sender.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Ops listener starting", zap.String("addr", ops.Addr))
		if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Ops listener failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ops listener forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}

// openStore selects the Postgres or in-memory store
func openStore(ctx context.Context, cfg configs.DatabaseConfig) (domain.Store, error) {
	if cfg.Driver == configs.DriverMemory {
		zap.L().Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	}

	db, err := infra.NewDatabase(ctx, cfg.URL, infra.PoolConfig{
		MaxConns: int32(cfg.MaxConns),
		MinConns: int32(cfg.MinConns),
	})
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return repository.NewPostgresStore(db), nil
}
