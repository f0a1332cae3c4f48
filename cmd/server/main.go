package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/UkralStul/noticeboard/internal/api"
	"github.com/UkralStul/noticeboard/internal/auth"
	"github.com/UkralStul/noticeboard/internal/board"
	"github.com/UkralStul/noticeboard/internal/config"
	"github.com/UkralStul/noticeboard/internal/events"
	"github.com/UkralStul/noticeboard/internal/logging"
	"github.com/UkralStul/noticeboard/internal/storage"
	"github.com/UkralStul/noticeboard/internal/storage/inmemory"
	"github.com/UkralStul/noticeboard/internal/storage/relational"
)

const version = "0.1.0"

type configKey struct{}

var logLevelFlag = &cli.StringFlag{
	Name:    "log-level",
	Aliases: []string{"l"},
	Usage:   "The level of the logs",
	Validator: func(value string) error {
		if !slices.Contains(logging.ValidLevels, value) {
			return fmt.Errorf("invalid log level: %s, allowed values are: %s", value, logging.ValidLevels)
		}
		return nil
	},
}

var addrFlag = &cli.StringFlag{
	Name:    "addr",
	Aliases: []string{"a"},
	Usage:   "The address the HTTP server listens on",
}

var cmd = &cli.Command{
	Name:    "noticeboard",
	Usage:   "Noticeboard backend: posts, comments and likes",
	Version: version,
	Flags:   []cli.Flag{logLevelFlag, addrFlag},
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		// Флаги имеют приоритет над переменными окружения BOARD_*.
		cfg, err := config.Load()
		if err != nil {
			return ctx, err
		}
		if c.IsSet(logLevelFlag.Name) {
			cfg.LogLevel = c.String(logLevelFlag.Name)
		}
		if c.IsSet(addrFlag.Name) {
			cfg.Addr = c.String(addrFlag.Name)
		}
		if _, err := logging.Init(cfg.LogLevel); err != nil {
			return ctx, err
		}
		return context.WithValue(ctx, configKey{}, cfg), nil
	},
	Action: serve,
	Commands: []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP server",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "Create or update the database schema and exit",
			Action: migrate,
		},
	},
}

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stderr))
}

// run выполняет команду и возвращает код выхода. Ошибка пишется в stderr.
func run(ctx context.Context, args []string, stderr io.Writer) int {
	if err := cmd.Run(ctx, args); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func configFrom(ctx context.Context) *config.Config {
	return ctx.Value(configKey{}).(*config.Config)
}

func serve(ctx context.Context, _ *cli.Command) error {
	cfg := configFrom(ctx)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server", "storage", cfg.Storage)
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg.PasswordScheme)
	if err != nil {
		return err
	}

	observer := events.NewObserver()
	var publisher events.Publisher = observer
	if cfg.NATSURL != "" {
		broker, err := events.ConnectNATS(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := broker.Close(); err != nil {
				logger.Error("failed to drain NATS connection", "error", err)
			}
		}()
		publisher = events.Multi{observer, broker}
		logger.Info("publishing events to NATS", "subject", cfg.NATSSubject)
	}

	b := board.New(store, logger, publisher, board.Options{
		CommentsRequirePost: cfg.CommentsRequirePost,
		Verifier:            verifier,
	})

	if cfg.SeedDemoData {
		if err := board.Seed(ctx, b); err != nil {
			return err
		}
	}

	return api.New(b, store, observer, logger).Run(ctx, cfg.Addr)
}

func migrate(ctx context.Context, _ *cli.Command) error {
	cfg := configFrom(ctx)
	if cfg.Storage == config.StorageMemory {
		return fmt.Errorf("%w: migrate needs postgres or sqlite storage", config.ErrInvalidConfig)
	}

	store, err := openRelational(cfg)
	if err != nil {
		return err
	}
	slog.Info("schema is up to date", "storage", cfg.Storage)
	return store.Close()
}

func openStore(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage == config.StorageMemory {
		return inmemory.New(), nil
	}
	return openRelational(cfg)
}

func openRelational(cfg *config.Config) (*relational.Store, error) {
	opts := relational.Options{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		Debug:           cfg.LogLevel == "debug",
	}

	switch cfg.Storage {
	case config.StoragePostgres:
		return relational.New(relational.Postgres(cfg.DatabaseURL), opts)
	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		return relational.New(relational.SQLite(cfg.SQLitePath), opts)
	default:
		return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
	}
}
