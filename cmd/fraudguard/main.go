package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jvmd/fraudguard/internal/pkg/config"
	"github.com/jvmd/fraudguard/internal/pkg/database"
	"github.com/jvmd/fraudguard/internal/pkg/health"
	"github.com/jvmd/fraudguard/internal/pkg/logger"
	"github.com/jvmd/fraudguard/internal/pkg/metrics"
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/jvmd/fraudguard/internal/pkg/retry"
	"github.com/jvmd/fraudguard/internal/pkg/server"
	"github.com/jvmd/fraudguard/services/fraud"
	"github.com/jvmd/fraudguard/services/fraud/engine"
	"github.com/jvmd/fraudguard/services/fraud/gateway"
	"github.com/jvmd/fraudguard/services/fraud/handler"
	"github.com/jvmd/fraudguard/services/fraud/notification"
	"github.com/jvmd/fraudguard/services/fraud/queue"
	"github.com/jvmd/fraudguard/services/fraud/repository"
	"github.com/jvmd/fraudguard/services/fraud/usecase"
	"github.com/jvmd/fraudguard/services/fraud/worker"
)

const appName = "fraudguard"

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	configs := config.InitConfig(configPath)

	zapLogger, err := logger.NewZapLogger(configs.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Close()
	logger.SetGlobalLogger(zapLogger)

	zapLogger.Info("Starting application",
		logger.String("app", appName),
		logger.String("version", configs.App.Version),
		logger.String("environment", configs.App.Environment))

	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer postgresClient.Close()

	redisClient, err := database.NewRedisClient(configs.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	defer redisClient.Close()

	db := postgresClient.GetDB()
	txRepo := repository.NewTransactionRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	notifRepo := repository.NewNotificationRepository(db)

	collector := metrics.NewCollector()

	scorer := gateway.NewScoringClient(configs.Scoring)
	ruleEngine := engine.NewEngine(ruleRepo, txRepo, scorer, configs.Engine, configs.Scoring, zapLogger)
	if err := ruleEngine.Reload(context.Background()); err != nil {
		zapLogger.Fatal("Failed to load initial rule set", logger.Err(err))
	}

	senders := map[models.NotificationChannel]fraud.ChannelSender{
		models.ChannelEmail:    gateway.NewEmailSender(configs.Notify),
		models.ChannelTelegram: gateway.NewTelegramSender(configs.Notify),
		models.ChannelWebhook:  gateway.NewWebhookSender(configs.Notify),
	}
	dispatcher := notification.NewDispatcher(notifRepo, senders, configs.Notify.DetailsBaseURL, collector, zapLogger)

	var alertPublisher fraud.AlertPublisher
	var nsqPublisher *gateway.AlertEventPublisher
	if configs.NSQ.Address != "" {
		nsqPublisher, err = gateway.NewAlertEventPublisher(configs.NSQ, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to connect to NSQ", logger.Err(err))
		}
		alertPublisher = nsqPublisher
	}

	processor := usecase.NewTransactionProcessor(txRepo, ruleEngine, dispatcher, alertPublisher, collector, zapLogger)

	workQueue := queue.NewWorkQueue(redisClient, configs.Queue, zapLogger)
	pool := worker.NewPool(workQueue, processor, configs.Queue, zapLogger)
	pool.Start()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	health.RegisterHealthEndpoints(e, appName)

	retrier := retry.New(retry.Config{
		MaxRetries: configs.Queue.MaxRetries,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
		RetryableFunc: func(error) bool {
			return true
		},
	}, zapLogger)

	adminHandler := handler.NewHandler(workQueue, ruleEngine, txRepo, collector, retrier, zapLogger)
	adminHandler.RegisterRoutes(e)

	shutdownManager := server.NewShutdownManager(zapLogger)
	grace := time.Duration(configs.Queue.ShutdownTimeoutSec) * time.Second
	shutdownManager.Register(func(context.Context) error {
		pool.Stop(grace)
		return nil
	})
	if nsqPublisher != nil {
		shutdownManager.Register(func(context.Context) error {
			nsqPublisher.Stop()
			return nil
		})
	}

	srv := server.NewGracefulServer(e, zapLogger, configs.Server.Port, grace)
	if err := srv.Start(); err != nil {
		zapLogger.Error("Server shutdown error", logger.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := shutdownManager.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Component shutdown error", logger.Err(err))
	}
}
