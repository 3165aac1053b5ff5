package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMemory   = "memory"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"

	NotifierInProcess = "inprocess"
	NotifierRedis     = "redis"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	StoreBackend     string        `env:"STORE_BACKEND,     default=memory"`
	Notifier         string        `env:"NOTIFIER,          default=inprocess"`
	SeedDir          string        `env:"SEED_DIR,          default=data/characters"`
	CORSOrigins      []string      `env:"CORS_ORIGINS,      default=http://localhost:5173"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT,  default=10s"`
	SubscriberBuffer int           `env:"SUBSCRIBER_BUFFER, default=64"`

	Mongo    MongoConfig
	Redis    RedisConfig
	Postgres PostgresConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hitpoints"`
}

// RedisConfig is only required when NOTIFIER=redis. Without it idempotency
// keys are ignored.
type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR"`
	DB       int           `env:"REDIS_DB,      default=0"`
	Channel  string        `env:"REDIS_CHANNEL, default=hitpoints:character-changes"`
	DedupTTL time.Duration `env:"DEDUP_TTL,     default=1h"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

// Load reads configuration from environment variables using go-envconfig.
// A nil lookuper reads the process environment.
func Load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	if lookuper == nil {
		lookuper = envconfig.OsLookuper()
	}

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown backends and backends missing their settings.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreMongo:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for STORE_BACKEND=%s", StorePostgres)
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Notifier {
	case NotifierInProcess:
	case NotifierRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for NOTIFIER=%s", NotifierRedis)
		}
	default:
		return fmt.Errorf("config: unknown NOTIFIER %q", c.Notifier)
	}

	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("config: SUBSCRIBER_BUFFER must be positive")
	}
	return nil
}

// Durable reports whether characters live outside the process.
func (c *Config) Durable() bool {
	return c.StoreBackend != StoreMemory
}
