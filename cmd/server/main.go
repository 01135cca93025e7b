// Command server runs the GST billing ledger: the JSON API, migrations,
// demo seeding and the overdue sweep.
package main

import (
	"fmt"
	"os"

	"github.com/diewo77/gst-ledger/internal/config"
	"github.com/diewo77/gst-ledger/internal/db"
	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var version = "0.1.0"

// dev-mode fallbacks when secrets are not configured
const (
	devJWTSecret     = "dev-jwt-secret"
	devGatewaySecret = "dev-gateway-secret"
)

var rootCmd = &cobra.Command{
	Use:           "gst-ledger",
	Short:         "Multi-tenant GST invoice and payment ledger",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load environment variables from .env file
		_ = godotenv.Load()
		cfg = config.Load()
		return logger.Setup(cfg.Log)
	},
}

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connect opens the database and applies migrations when MIGRATIONS is set.
func connect() (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dbConn, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.App.Migrations {
		if err := migrateDB(dbConn, ""); err != nil {
			return nil, err
		}
	}
	return dbConn, nil
}

// migrateDB uses the versioned SQL migrations on postgres and AutoMigrate
// on sqlite.
func migrateDB(dbConn *gorm.DB, dir string) error {
	if cfg.Database.Driver == "sqlite" {
		return db.Migrate(dbConn)
	}
	return db.MigrateSQL(dbConn, cfg.Database.DSN(), dir)
}

func secretOr(value, fallback, name string) string {
	if value != "" {
		return value
	}
	log := logger.WithComponent("cmd")
	log.Warn().Str("setting", name).Msg("secret not configured, using dev default")
	return fallback
}
