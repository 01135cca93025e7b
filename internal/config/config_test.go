package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DATABASE_DSN", "MIGRATIONS", "OVERDUE_SWEEP_CRON"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.App.Migrations {
		t.Error("Migrations should default to false")
	}
	if cfg.Ledger.OverdueSweepCron != "15 0 * * *" {
		t.Errorf("OverdueSweepCron = %q", cfg.Ledger.OverdueSweepCron)
	}
	if want := "host=localhost port=5432 user=ledger password=ledger123 dbname=ledger sslmode=disable"; cfg.Database.DSN() != want {
		t.Errorf("DSN() = %q, want %q", cfg.Database.DSN(), want)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_DSN", "postgres://u:p@db:5432/x?sslmode=require")
	t.Setenv("MIGRATIONS", "yes")
	t.Setenv("SERVER_READ_TIMEOUT", "notanint")
	cfg := Load()
	if cfg.Server.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Database.DSN() != "postgres://u:p@db:5432/x?sslmode=require" {
		t.Errorf("DSN() should prefer DATABASE_DSN, got %q", cfg.Database.DSN())
	}
	if !cfg.App.Migrations {
		t.Error("Migrations should be true")
	}
	if cfg.Server.ReadTimeout != 15 {
		t.Errorf("ReadTimeout = %d, want fallback 15", cfg.Server.ReadTimeout)
	}
}

func TestValidate(t *testing.T) {
	t.Setenv("DEV", "0")
	t.Setenv("JWT_SECRET", "")
	cfg := Load()
	if err := cfg.Validate(); err == nil {
		t.Error("expected error without JWT_SECRET outside dev mode")
	}
	cfg.Auth.JWTSecret = "s"
	cfg.Gateway.KeySecret = "g"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.Database.Driver = "mysql"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestLedgerLocation(t *testing.T) {
	loc := LedgerConfig{Timezone: "Nowhere/Invalid"}.Location()
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 19800 {
		t.Errorf("fallback offset = %d, want 19800", offset)
	}
}
