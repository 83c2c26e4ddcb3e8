package cli

import (
	"context"
	"database/sql"

	"quiz-attempt-service/internal/config"
	pgmigrations "quiz-attempt-service/internal/infra/postgres/migrations"
	"quiz-attempt-service/internal/infra/sqlite"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// NewMigrateCmd applies database migrations for the configured store driver.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			switch cfg.StoreDriver() {
			case config.DriverPostgres:
				return runMigrationsWithConfig(cmd.Context(), cfg)
			case config.DriverSQLite:
				db, err := sqlite.Open(cfg.SQLite.Path)
				if err != nil {
					return err
				}
				if err := sqlite.AutoMigrate(db); err != nil {
					return errors.Wrap(err, "sqlite automigrate")
				}
				glog.Infof("sqlite schema ready at %s", cfg.SQLite.Path)
				return nil
			default:
				glog.Infof("store driver %q has no schema", cfg.StoreDriver())
				return nil
			}
		},
	}
}

func openBun(url string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(url)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return errors.New("postgres url not configured")
	}

	db := openBun(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return errors.Wrap(err, "init migrations")
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return errors.Wrap(err, "apply migrations")
	}
	if group.IsZero() {
		glog.Infof("database schema up to date")
		return nil
	}
	glog.Infof("migrated to %s", group)
	return nil
}
