package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config - настройки процесса. Читаются из переменных окружения с префиксом BOARD.
type Config struct {
	Addr     string `envconfig:"ADDR" default:":3000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Storage         string        `envconfig:"STORAGE" default:"memory"`
	DatabaseURL     string        `envconfig:"DATABASE_URL"`
	SQLitePath      string        `envconfig:"SQLITE_PATH" default:"data/noticeboard.db"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"30m"`

	CommentsRequirePost bool   `envconfig:"COMMENTS_REQUIRE_POST" default:"true"`
	PasswordScheme      string `envconfig:"PASSWORD_SCHEME" default:"plain"`

	NATSURL     string `envconfig:"NATS_URL"`
	NATSSubject string `envconfig:"NATS_SUBJECT" default:"noticeboard"`

	SeedDemoData bool `envconfig:"SEED_DEMO_DATA" default:"false"`
}

// Load читает конфигурацию из окружения и проверяет ее.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("board", cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL must be set for postgres storage", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalidConfig, c.Storage)
	}

	switch c.PasswordScheme {
	case "plain", "bcrypt":
	default:
		return fmt.Errorf("%w: unknown password scheme %q", ErrInvalidConfig, c.PasswordScheme)
	}
	return nil
}
