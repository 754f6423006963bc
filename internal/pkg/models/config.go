package models

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NSQ      NSQConfig
	Queue    QueueConfig
	Engine   EngineConfig
	Scoring  ScoringConfig
	Notify   NotifyConfig
	Logger   LoggerConfig
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NSQConfig contains NSQ producer configuration. An empty address disables
// alert event publishing.
type NSQConfig struct {
	Address    string
	AlertTopic string
}

// QueueConfig contains work queue and worker pool configuration
type QueueConfig struct {
	MaxRetries         int
	Workers            int
	PollIntervalMs     int
	InFlightTTLMinutes int
	ShutdownTimeoutSec int
}

// EngineConfig contains rule engine configuration
type EngineConfig struct {
	ShortCircuitSeverity int
}

// ScoringConfig contains external model scoring configuration. An empty URL
// means the model is not deployed; model-scored rules then never trigger.
type ScoringConfig struct {
	URL              string
	TimeoutSec       int
	DefaultThreshold float64
}

// NotifyConfig contains notification channel transport configuration
type NotifyConfig struct {
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string
	TelegramBotToken string
	TelegramEnabled  bool
	HTTPTimeoutSec   int
	DetailsBaseURL   string
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}
