// Package config defines the process configuration for floodwatch. It is
// loaded once at startup and treated as immutable afterwards.
//
// Values resolve from the OS environment first and a .env file second.
// A missing required value or an invalid format fails startup.
package config

import (
	"time"

	"floodwatch/internal/types"
)

// SecretString is the redacted secret type used for credentials.
type SecretString = types.SecretString

// Email provider names accepted by EMAIL_PROVIDER.
const (
	EmailProviderResend   = "resend"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderLog      = "log"
)

// Config is the top-level configuration. Components receive only the
// sub-struct they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"floodwatch"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Email     EmailConfig
	Gemini    GeminiConfig
	Telegram  TelegramConfig
	Scheduler SchedulerConfig
	Catalog   CatalogConfig
	AWS       AWSConfig
	Metrics   MetricsConfig

	// Injected via ldflags, not the environment.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// RateLimitMax is requests per client IP per window; negative disables.
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"300"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseConfig holds the connection string and pool tuning.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns          int32         `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// RedisConfig configures the scheduler tick guard. An empty address turns
// the guard off.
type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password SecretString  `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	GuardTTL time.Duration `envconfig:"REDIS_TICK_GUARD_TTL" default:"1m"`
}

// EmailConfig selects and configures the email provider.
type EmailConfig struct {
	Provider       string        `envconfig:"EMAIL_PROVIDER" default:"resend" validate:"oneof=resend sendgrid log"`
	ResendAPIKey   SecretString  `envconfig:"RESEND_API_KEY" validate:"required_if=Provider resend"`
	SendGridAPIKey SecretString  `envconfig:"SENDGRID_API_KEY" validate:"required_if=Provider sendgrid"`
	BaseURL        string        `envconfig:"EMAIL_API_BASE_URL" validate:"omitempty,url"`
	FromAddress    string        `envconfig:"EMAIL_FROM_ADDRESS" default:"alerts@floodwatch.vn" validate:"required,email"`
	FromName       string        `envconfig:"EMAIL_FROM_NAME" default:"Hệ thống Cảnh báo Ngập lụt"`
	Timeout        time.Duration `envconfig:"EMAIL_TIMEOUT" default:"10s"`
	AppURL         string        `envconfig:"APP_URL" default:"http://localhost:5173" validate:"omitempty,url"`
}

// GeminiConfig configures the alert content generator. Without an API key
// alerts use the static fallback content.
type GeminiConfig struct {
	APIKey  SecretString  `envconfig:"GEMINI_API_KEY"`
	Model   string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BaseURL string        `envconfig:"GEMINI_BASE_URL" validate:"omitempty,url"`
	Timeout time.Duration `envconfig:"GEMINI_TIMEOUT" default:"30s"`
}

// TelegramConfig configures alert delivery and the bot listener. Without a
// token the Telegram channel is skipped.
type TelegramConfig struct {
	BotToken        SecretString  `envconfig:"TELEGRAM_BOT_TOKEN"`
	APIEndpoint     string        `envconfig:"TELEGRAM_API_ENDPOINT"`
	SendTimeout     time.Duration `envconfig:"TELEGRAM_SEND_TIMEOUT" default:"10s"`
	ListenerEnabled bool          `envconfig:"TELEGRAM_LISTENER_ENABLED" default:"true"`
	PollTimeout     int           `envconfig:"TELEGRAM_POLL_TIMEOUT" default:"60" validate:"min=0,max=600"`
}

// SchedulerConfig configures the in-process recurring scheduler.
type SchedulerConfig struct {
	Enabled         bool          `envconfig:"SCHEDULER_ENABLED" default:"true"`
	DefaultInterval time.Duration `envconfig:"SCHEDULER_DEFAULT_INTERVAL" default:"15m" validate:"min=1s"`
	CycleTimeout    time.Duration `envconfig:"SCHEDULER_CYCLE_TIMEOUT" default:"2m"`
}

// CatalogConfig points at the static flood-prone area catalog.
type CatalogConfig struct {
	Path string `envconfig:"FLOOD_PRONE_CATALOG_PATH" default:"configs/flood_prone_areas.json"`
}

// AWSConfig holds the resources used by the Lambda fan-out mode.
type AWSConfig struct {
	Region        string `envconfig:"AWS_REGION" default:"ap-southeast-1"`
	CheckQueueURL string `envconfig:"SQS_CHECK_QUEUE" validate:"omitempty,url"`
	EndpointURL   string `envconfig:"AWS_ENDPOINT_URL"`
}

// MetricsConfig controls delivery metrics.
type MetricsConfig struct {
	Namespace string `envconfig:"METRIC_NAMESPACE" default:"FloodWatch"`
	// CloudWatch switches delivery metrics from Prometheus to CloudWatch.
	CloudWatch bool `envconfig:"METRICS_CLOUDWATCH" default:"false"`
}

// BuildInfo holds build-time metadata.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	ErrParsing    ConfigErrorType = "PARSING_FAILED"
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
)
