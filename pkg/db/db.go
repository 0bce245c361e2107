package db

import (
	"context"
	"strings"

	"github.com/andreymarc/magnex-billing/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the database named by DATABASE_URL. Postgres is the
// production dialect; a sqlite URL is accepted for local development.
func Open(cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var dialector gorm.Dialector
	if dsn, ok := strings.CutPrefix(cfg.DatabaseURL, "sqlite://"); ok {
		dialector = sqlite.Open(dsn)
	} else {
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, err
	}

	log.Info("database connected", zap.String("dialect", dialector.Name()))
	return conn, nil
}

func registerLifecycle(lc fx.Lifecycle, conn *gorm.DB, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})
}

var Module = fx.Module("db",
	fx.Provide(Open),
	fx.Invoke(registerLifecycle),
)
