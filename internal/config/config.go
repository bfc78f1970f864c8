package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide configuration. Provider credentials and all
// resource budgets (worker pool size, send timeout) live here, never
// hard-coded at call sites.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`

	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBHost     string `env:"DB_HOST"` // empty means run with the in-memory store
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBName     string `env:"DB_NAME" envDefault:"rengage"`

	AMQPURL         string `env:"AMQP_URL"`
	EventsQueueName string `env:"EVENTS_QUEUE_NAME" envDefault:"campaign_events"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string `env:"TWILIO_FROM_NUMBER"`

	ThresholdDays     int           `env:"SEGMENT_THRESHOLD_DAYS" envDefault:"30"`
	DispatchWorkers   int           `env:"DISPATCH_WORKERS" envDefault:"10"`
	SendTimeout       time.Duration `env:"SEND_TIMEOUT" envDefault:"10s"`
	PerMessageCost    float64       `env:"PER_MESSAGE_COST" envDefault:"0.5"`
	IdempotencyWindow time.Duration `env:"IDEMPOTENCY_WINDOW" envDefault:"10m"`
	PreviewSampleSize int           `env:"PREVIEW_SAMPLE_SIZE" envDefault:"5"`
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}
