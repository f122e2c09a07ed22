package db

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/fatflowers/gymdesk/internal/models"
	"github.com/fatflowers/gymdesk/internal/platform/changefeed"
	"github.com/fatflowers/gymdesk/internal/platform/store"
	"github.com/fatflowers/gymdesk/internal/platform/store/gormstore"
	"github.com/fatflowers/gymdesk/internal/platform/store/memstore"
	cfgpkg "github.com/fatflowers/gymdesk/pkg/config"
	gormzap "github.com/fatflowers/gymdesk/pkg/gormlog"
)

// NewDB opens postgres. With the memory driver it returns a nil *gorm.DB
// and every consumer falls back to its in-process implementation.
func NewDB(l *zap.SugaredLogger, cfg *cfgpkg.Config) (*gorm.DB, error) {
	if cfg.Database.Driver == cfgpkg.DBDriverMemory {
		l.Warnw("database driver is memory, records are lost on restart")
		return nil, nil
	}
	if cfg.Database.DSN == "" {
		l.Error("database DSN is empty")
		return nil, gorm.ErrInvalidDB
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{Logger: gormzap.New(l, cfg.Env == cfgpkg.EnvDev)})
	if err != nil {
		l.Errorf("failed to connect database: %v", err)
		return nil, err
	}
	l.Infow("connected to postgres via DSN")
	return db, nil
}

// NewStore backs the record store by postgres when a database is open.
func NewStore(l *zap.SugaredLogger, cfg *cfgpkg.Config, db *gorm.DB, feed changefeed.Publisher) store.Store {
	if db == nil {
		return memstore.New(memstore.Options{Feed: feed, MaxAttempts: cfg.Database.MaxTxAttempts, Logger: l})
	}
	return gormstore.New(db, feed, cfg.Database.MaxTxAttempts, l)
}

var Module = fx.Options(
	fx.Provide(NewDB),
	fx.Provide(NewStore),
	fx.Invoke(AutoMigrate),
	fx.Invoke(registerDBClose),
)

// AutoMigrate runs GORM migrations on startup
func AutoMigrate(l *zap.SugaredLogger, db *gorm.DB) error {
	if db == nil {
		return nil
	}
	if err := db.AutoMigrate(
		&models.Subscriber{},
		&models.Payment{},
		&models.Product{},
		&models.Sale{},
		&models.Administrator{},
		&models.Credential{},
		&models.ActivityLog{},
	); err != nil {
		l.Errorf("automigrate failed: %v", err)
		return err
	}
	l.Infow("automigrate completed")
	return nil
}

// registerDBClose ensures the underlying *sql.DB is closed on shutdown
func registerDBClose(lc fx.Lifecycle, l *zap.SugaredLogger, gdb *gorm.DB) {
	if gdb == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				l.Warnw("gorm: get sql.DB failed", "err", err)
				return nil
			}
			l.Infow("closing postgres connection pool")
			return sqlDB.Close()
		},
	})
}
