package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"family-assistant/internal/aggregate"
	"family-assistant/internal/bot"
	"family-assistant/internal/config"
	"family-assistant/internal/dispatch"
	"family-assistant/internal/intent"
	"family-assistant/internal/repository"
	"family-assistant/internal/scope"
	"family-assistant/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional .env; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	shoppingRepo := repository.NewShoppingRepository(db)
	eventRepo := repository.NewEventRepository(db)
	interactionRepo := repository.NewInteractionRepository(db)

	classifier, err := intent.NewGeminiClassifier(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	if err != nil {
		logger.Fatal("classifier", zap.Error(err))
	}

	resolver := scope.NewResolver(userRepo, groupRepo, logger)
	aggregator := aggregate.New(taskRepo, shoppingRepo, eventRepo, logger)
	dispatcher := dispatch.New(classifier, resolver, taskRepo, shoppingRepo, eventRepo, userRepo, interactionRepo, aggregator, logger)

	assistant, err := bot.New(cfg.TelegramToken, userRepo, groupRepo, interactionRepo, dispatcher, cfg.DefaultTimezone, cfg.DefaultLang, logger)
	if err != nil {
		logger.Fatal("bot", zap.Error(err))
	}

	notifier := service.NewNotifier(taskRepo, eventRepo, userRepo, groupRepo, assistant, cfg.NotifyLookahead, cfg.NotifyTolerance, cfg.DefaultLang, logger)

	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		loc = time.Local
	}
	scheduler := service.NewScheduler(loc, logger)
	if _, err := scheduler.ScheduleInterval(cfg.NotifyTick, func() {
		assistant.RunReminderTick(ctx, notifier.RunOnce)
	}); err != nil {
		logger.Fatal("schedule reminders", zap.Error(err))
	}
	if cfg.DigestTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			if err := notifier.DailyDigest(jobCtx, time.Now()); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("daily digest", zap.Error(err))
			}
		}); err != nil {
			logger.Fatal("schedule digest", zap.Error(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.Info("family assistant started")
	if err := assistant.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
