package config

import (
	"github.com/jvmd/fraudguard/internal/pkg/models"
	"github.com/spf13/viper"
)

// InitConfig builds application configuration from environment variables,
// optionally seeded from an env file for local development.
func InitConfig(configPath string) *models.Config {
	v := viper.New()
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		// Missing local config file is fine; env vars still apply
		_ = v.ReadInConfig()
	}

	setDefaults(v)
	return loadConfig(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "fraudguard")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("APP_DEBUG", true)
	v.SetDefault("APP_VERSION", "development")

	v.SetDefault("SERVER_HOST", "")
	v.SetDefault("SERVER_PORT", 9980)
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USERNAME", "fraudguard")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_DATABASE", "fraudguard")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_IDLE_CONNS", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("NSQ_ADDRESS", "")
	v.SetDefault("NSQ_ALERT_TOPIC", "fraud.alerts")

	v.SetDefault("QUEUE_MAX_RETRIES", 3)
	v.SetDefault("QUEUE_WORKERS", 5)
	v.SetDefault("QUEUE_POLL_INTERVAL_MS", 100)
	v.SetDefault("QUEUE_INFLIGHT_TTL_MINUTES", 60)
	v.SetDefault("QUEUE_SHUTDOWN_TIMEOUT_SEC", 30)

	v.SetDefault("ENGINE_SHORT_CIRCUIT_SEVERITY", 4)

	v.SetDefault("SCORING_URL", "")
	v.SetDefault("SCORING_TIMEOUT_SEC", 5)
	v.SetDefault("SCORING_DEFAULT_THRESHOLD", 0.7)

	v.SetDefault("NOTIFY_SMTP_HOST", "")
	v.SetDefault("NOTIFY_SMTP_PORT", 587)
	v.SetDefault("NOTIFY_SMTP_USERNAME", "")
	v.SetDefault("NOTIFY_SMTP_PASSWORD", "")
	v.SetDefault("NOTIFY_SMTP_FROM", "alerts@fraudguard.local")
	v.SetDefault("NOTIFY_TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("NOTIFY_TELEGRAM_ENABLED", false)
	v.SetDefault("NOTIFY_HTTP_TIMEOUT_SEC", 10)
	v.SetDefault("NOTIFY_DETAILS_BASE_URL", "http://localhost:9980/admin/transactions")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_PATH", "")
}

func loadConfig(v *viper.Viper) *models.Config {
	configs := &models.Config{}

	configs.App.Name = v.GetString("APP_NAME")
	configs.App.Environment = v.GetString("APP_ENV")
	configs.App.Debug = v.GetBool("APP_DEBUG")
	configs.App.Version = v.GetString("APP_VERSION")

	configs.Server.Host = v.GetString("SERVER_HOST")
	configs.Server.Port = v.GetInt("SERVER_PORT")
	configs.Server.ReadTimeout = v.GetInt("SERVER_READ_TIMEOUT")
	configs.Server.WriteTimeout = v.GetInt("SERVER_WRITE_TIMEOUT")
	configs.Server.ShutdownTimeout = v.GetInt("SERVER_SHUTDOWN_TIMEOUT")

	configs.Database.Host = v.GetString("DB_HOST")
	configs.Database.Port = v.GetInt("DB_PORT")
	configs.Database.Username = v.GetString("DB_USERNAME")
	configs.Database.Password = v.GetString("DB_PASSWORD")
	configs.Database.Database = v.GetString("DB_DATABASE")
	configs.Database.SSLMode = v.GetString("DB_SSL_MODE")
	configs.Database.MaxConns = v.GetInt("DB_MAX_CONNS")
	configs.Database.IdleConns = v.GetInt("DB_IDLE_CONNS")

	configs.Redis.Host = v.GetString("REDIS_HOST")
	configs.Redis.Port = v.GetInt("REDIS_PORT")
	configs.Redis.Password = v.GetString("REDIS_PASSWORD")
	configs.Redis.DB = v.GetInt("REDIS_DB")
	configs.Redis.PoolSize = v.GetInt("REDIS_POOL_SIZE")

	configs.NSQ.Address = v.GetString("NSQ_ADDRESS")
	configs.NSQ.AlertTopic = v.GetString("NSQ_ALERT_TOPIC")

	configs.Queue.MaxRetries = v.GetInt("QUEUE_MAX_RETRIES")
	configs.Queue.Workers = v.GetInt("QUEUE_WORKERS")
	configs.Queue.PollIntervalMs = v.GetInt("QUEUE_POLL_INTERVAL_MS")
	configs.Queue.InFlightTTLMinutes = v.GetInt("QUEUE_INFLIGHT_TTL_MINUTES")
	configs.Queue.ShutdownTimeoutSec = v.GetInt("QUEUE_SHUTDOWN_TIMEOUT_SEC")

	configs.Engine.ShortCircuitSeverity = v.GetInt("ENGINE_SHORT_CIRCUIT_SEVERITY")

	configs.Scoring.URL = v.GetString("SCORING_URL")
	configs.Scoring.TimeoutSec = v.GetInt("SCORING_TIMEOUT_SEC")
	configs.Scoring.DefaultThreshold = v.GetFloat64("SCORING_DEFAULT_THRESHOLD")

	configs.Notify.SMTPHost = v.GetString("NOTIFY_SMTP_HOST")
	configs.Notify.SMTPPort = v.GetInt("NOTIFY_SMTP_PORT")
	configs.Notify.SMTPUsername = v.GetString("NOTIFY_SMTP_USERNAME")
	configs.Notify.SMTPPassword = v.GetString("NOTIFY_SMTP_PASSWORD")
	configs.Notify.SMTPFrom = v.GetString("NOTIFY_SMTP_FROM")
	configs.Notify.TelegramBotToken = v.GetString("NOTIFY_TELEGRAM_BOT_TOKEN")
	configs.Notify.TelegramEnabled = v.GetBool("NOTIFY_TELEGRAM_ENABLED")
	configs.Notify.HTTPTimeoutSec = v.GetInt("NOTIFY_HTTP_TIMEOUT_SEC")
	configs.Notify.DetailsBaseURL = v.GetString("NOTIFY_DETAILS_BASE_URL")

	configs.Logger.Level = v.GetString("LOG_LEVEL")
	configs.Logger.FilePath = v.GetString("LOG_FILE_PATH")

	return configs
}
