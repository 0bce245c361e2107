package migration

import (
	"context"
	"strings"

	"github.com/andreymarc/magnex-billing/internal/config"
	"github.com/pressly/goose/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Run applies the embedded schema migrations at startup, before any
// component takes traffic.
func Run(db *gorm.DB, cfg config.Config, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	goose.SetBaseFS(embeddedMigrations)
	goose.SetLogger(goose.NopLogger())

	dialect := "postgres"
	if strings.HasPrefix(cfg.DatabaseURL, "sqlite://") {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	if err := goose.UpContext(context.Background(), sqlDB, migrationsDir); err != nil {
		return err
	}

	log.Named("migration").Info("schema migrations applied", zap.String("dialect", dialect))
	return nil
}

var Module = fx.Module("migration",
	fx.Invoke(Run),
)
