// Command admin is the operator CLI for the barangay backend: account
// seeding, system log review and complaint maintenance.
package main

import (
	"context"
	"fmt"
	"os"

	"barangay/backend/internal/auditlog"
	"barangay/backend/internal/config"
	"barangay/backend/internal/logging"
	"barangay/backend/internal/models"
	"barangay/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// cliActor is the actor recorded for every change made from this CLI.
const cliActor = "admin-cli"

// deps are opened lazily so --help works without a database.
type deps struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *storage.Service
	audit  *auditlog.Sink
}

func openDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if cfg.StorageDriver != config.DriverPostgres {
		return nil, fmt.Errorf("admin CLI needs the %s storage driver, got %q", config.DriverPostgres, cfg.StorageDriver)
	}
	logger := logging.New(logging.Options{
		Level:       cfg.LogLevel,
		Format:      "console",
		ServiceName: "barangay-admin",
		Environment: cfg.Environment,
		Output:      os.Stderr,
	})

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting database: %w", err)
	}

	// Redis is optional here; with it, running servers refresh their
	// dashboards after CLI changes.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Debug().Err(err).Msg("redis unavailable, running servers will not be told about changes")
			_ = rdb.Close()
			rdb = nil
		}
	}

	store := storage.NewStorageService(db, rdb, logger)
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &deps{
		cfg:    cfg,
		logger: logger,
		store:  store,
		audit:  auditlog.NewSink(store, logger, nil),
	}, nil
}

func (d *deps) close() {
	if d.store.Redis != nil {
		_ = d.store.Redis.Close()
	}
	if sqlDB, err := d.store.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// withDeps wraps a command body with dependency setup and teardown.
func withDeps(run func(ctx context.Context, d *deps, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer d.close()
		return run(cmd.Context(), d, args)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator tools for the barangay backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newSeedAdminCommand(),
		newCreateUserCommand(),
		newLogsCommand(),
		newReanalyzeCommand(),
		newSeedDemoCommand(),
	)
	return root
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cliUser is the identity the CLI acts as when it calls the pipeline.
func cliUser() *models.User {
	return &models.User{Username: cliActor, FullName: cliActor, Role: models.RoleSuperAdmin}
}
