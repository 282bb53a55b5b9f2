package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"user-service/internal/adapter/db/postgres"
	"user-service/internal/config"
	"user-service/pkg/logger"
)

// NewDatabase opens the relational store selected by DB_DRIVER, configures
// the pool and applies migrations when DB_AUTO_MIGRATE is set.
func NewDatabase(ctx context.Context, cfg *config.Config, l *zap.Logger) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		dialect   string
	)
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		dialector, dialect = pgdriver.Open(cfg.DB.URL), "postgres"
	case config.DriverSQLite:
		dialector, dialect = sqlite.Open(cfg.DB.URL), "sqlite3"
	default:
		return nil, fmt.Errorf("driver %q is not a relational database", cfg.DB.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(l, cfg.Logger.SlowQuerySeconds, cfg.Logger.Level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pool configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DB.ConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DB.ConnMaxIdleTimeSeconds) * time.Second)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, db, dialect); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		l.Info("database migrations applied", zap.String("dialect", dialect))
	}

	l.Info("database connected successfully",
		zap.String("driver", cfg.DB.Driver),
		zap.Int("max_open_conns", cfg.DB.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.DB.MaxIdleConns),
		zap.Int("conn_max_lifetime_seconds", cfg.DB.ConnMaxLifetimeSeconds),
		zap.Int("conn_max_idle_time_seconds", cfg.DB.ConnMaxIdleTimeSeconds),
	)

	return db, nil
}

// PingDatabase reports whether the pool can reach the database.
func PingDatabase(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// CloseDatabase closes the database connection
func CloseDatabase(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
