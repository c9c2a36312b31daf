package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"earnapp/api"
	"earnapp/bot"
	"earnapp/cache"
	"earnapp/config"
	"earnapp/database"
	"earnapp/events"
	"earnapp/jobs"
	"earnapp/repository"
	"earnapp/service"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.Info("Starting reward ledger service...")

	// Database
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrationsWithURL(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis, used for postback deduplication
	redisClient, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Event bus and unit of work factory
	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Services
	policy := service.PolicyFromConfig(cfg)
	var gate service.WatchGate
	if cfg.PlanGateEnabled {
		gate = service.PlanGate
	}
	userService := service.NewUserService(uowFactory)
	ledgerService := service.NewLedgerService(uowFactory, policy, gate)
	statsService := service.NewStatsService(uowFactory, cfg.DailyResetHour)

	// Telegram bot with the operator notifier
	tgBot, err := bot.NewBot(cfg, userService)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}
	notifier := bot.NewNotifier(tgBot.Instance(), cfg.AdminChannelID, cfg.NotifyTimeout)
	notifier.Register(eventBus)

	botErr := make(chan error, 1)
	go func() {
		botErr <- tgBot.Start(ctx)
	}()

	// HTTP server for the mini app and ad network postbacks
	server := api.NewServer(cfg, userService, ledgerService, redisClient)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Background jobs
	scheduler := jobs.NewScheduler(statsService, notifier, cfg.BaseURL, cfg.DailyResetHour)
	scheduler.Start()

	log.WithField("environment", cfg.Environment).Info("Service is running")

	select {
	case <-ctx.Done():
	case err := <-botErr:
		if err != nil {
			log.WithError(err).Error("Bot stopped unexpectedly")
		}
	case err := <-serverErr:
		log.WithError(err).Error("HTTP server stopped unexpectedly")
	}

	// Cleanup resources
	log.Info("Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := tgBot.Stop(); err != nil {
		log.WithError(err).Error("Error stopping bot")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error stopping HTTP server")
	}

	log.Info("Shutdown completed")
	return nil
}
