package db

import (
	"fmt"
	"time"

	"github.com/diewo77/gst-ledger/internal/config"
	"github.com/diewo77/gst-ledger/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// connectAttempts and retryDelay give Postgres time to come up in compose setups.
const (
	connectAttempts = 10
	retryDelay      = 2 * time.Second
)

// Connect opens the configured database, retrying while it is unreachable.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	log := logger.WithComponent("db")

	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}
	gcfg := &gorm.Config{Logger: gormlogger.Default.LogMode(logLevel), TranslateError: true}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dsn := NormalizeDSN(cfg.DSN())
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is empty, check DATABASE_DSN or DB_* settings")
		}
		log.Info().Str("dsn", MaskDSN(dsn)).Msg("connecting to database")
		dialector = postgres.Open(dsn)
	}

	var (
		dbConn *gorm.DB
		err    error
	)
	for i := 1; i <= connectAttempts; i++ {
		dbConn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i).Msg("database not reachable, retrying")
		time.Sleep(retryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := dbConn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	return dbConn, nil
}

// OpenMemory opens a named in-memory sqlite database with every table
// migrated. All connections share one handle so concurrent transactions
// queue instead of failing with SQLITE_BUSY.
func OpenMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	dbConn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := dbConn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(dbConn); err != nil {
		return nil, err
	}
	return dbConn, nil
}
