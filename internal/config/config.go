package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	// Empty DB_HOST selects the in-memory stores, useful for local runs.
	DBHost            string        `env:"DB_HOST"`
	DBPort            int           `env:"DB_PORT,default=5432"`
	DBUser            string        `env:"DB_USER,default=alertflow"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME,default=alertflow"`
	DBSSLMode         string        `env:"DB_SSLMODE,default=disable"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=10"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`

	FeedWSURL         string        `env:"FEED_WS_URL"`
	FeedSymbols       []string      `env:"FEED_SYMBOLS"`
	FeedReadTimeout   time.Duration `env:"FEED_WS_READ_TIMEOUT,default=0s"`
	FeedReconnectWait time.Duration `env:"FEED_RECONNECT_WAIT,default=1s"`

	QueueMaxAttempts int           `env:"QUEUE_MAX_ATTEMPTS,default=5"`
	QueueBackoff     time.Duration `env:"QUEUE_BACKOFF,default=2s"`
	QueueMaxBackoff  time.Duration `env:"QUEUE_MAX_BACKOFF,default=5m"`

	Workers         int           `env:"WORKERS,default=4"`
	LeaseDuration   time.Duration `env:"LEASE_DURATION,default=30s"`
	PollInterval    time.Duration `env:"POLL_INTERVAL,default=250ms"`
	DispatchTimeout time.Duration `env:"DISPATCH_TIMEOUT,default=10s"`
	WebhookTimeout  time.Duration `env:"WEBHOOK_TIMEOUT,default=10s"`

	RefireCooldown    time.Duration `env:"REFIRE_COOLDOWN,default=5m"`
	MinEdgeWeight     float64       `env:"MIN_EDGE_WEIGHT,default=0.1"`
	ReconcileAfter    time.Duration `env:"RECONCILE_AFTER,default=5m"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL,default=1m"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
