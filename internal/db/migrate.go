package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// DefaultMigrationsDir is where the versioned SQL migrations live.
const DefaultMigrationsDir = "migrations"

// coreTables must exist after any migration path.
var coreTables = []string{"organizations", "invoices", "payment_entries", "sequence_counters"}

// partialIndexes are the indexes gorm tags cannot express. They mirror the
// versioned SQL migrations.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_payment_entries_one_primary
		ON payment_entries (invoice_id) WHERE is_primary AND deleted_at IS NULL`,
}

// Migrate runs AutoMigrate for all models.
// Used for sqlite, tests and local development.
func Migrate(dbConn *gorm.DB) error {
	for _, m := range models.All() {
		if err := dbConn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	for _, stmt := range partialIndexes {
		if err := dbConn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create partial index: %w", err)
		}
	}
	return checkTables(dbConn)
}

// MigrateSQL applies the versioned SQL migrations in dir with golang-migrate.
func MigrateSQL(dbConn *gorm.DB, dsn, dir string) error {
	if dir == "" {
		dir = DefaultMigrationsDir
	}
	m, err := migrate.New("file://"+dir, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return fmt.Errorf("init sql migrations: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	version, dirty, _ := m.Version()
	log := logger.WithComponent("db")
	log.Info().
		Uint("version", version).
		Bool("dirty", dirty).
		Msg("sql migrations applied")
	return checkTables(dbConn)
}

func checkTables(dbConn *gorm.DB) error {
	for _, table := range coreTables {
		if !dbConn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}
