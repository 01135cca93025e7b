package db

import (
	"strings"
	"testing"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/tax"
	"github.com/shopspring/decimal"
)

func TestSeedIdempotent(t *testing.T) {
	d, err := OpenMemory(t.Name())
	if err != nil {
		t.Fatal(err)
	}
	if err := Seed(d); err != nil {
		t.Fatal(err)
	}
	if err := Seed(d); err != nil {
		t.Fatal(err)
	}

	var orgs, profiles, clients int64
	d.Model(&models.Organization{}).Count(&orgs)
	d.Model(&models.GstinProfile{}).Count(&profiles)
	d.Model(&models.Client{}).Count(&clients)
	if orgs != 1 || profiles != 2 || clients != 4 {
		t.Fatalf("seed duplicated or missing rows: orgs=%d profiles=%d clients=%d", orgs, profiles, clients)
	}

	var gstins []models.GstinProfile
	d.Find(&gstins)
	for _, g := range gstins {
		if !tax.ValidGSTIN(g.GSTIN) {
			t.Errorf("seeded gstin %s is not valid", g.GSTIN)
		}
	}
	var cs []models.Client
	d.Where("gstin <> ''").Find(&cs)
	for _, c := range cs {
		if !tax.ValidGSTIN(c.GSTIN) {
			t.Errorf("seeded client gstin %s is not valid", c.GSTIN)
		}
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{`"postgres://u:p@h:5432/db"`, "postgres://u:p@h:5432/db"},
		{"host=h   user=u dbname=d", "host=h user=u dbname=d sslmode=disable"},
		{"host=h user=u dbname=d sslmode=require", "host=h user=u dbname=d sslmode=require"},
		{"not a dsn", "not a dsn"},
	}
	for _, tt := range tests {
		if got := NormalizeDSN(tt.in); got != tt.want {
			t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToURLDSN(t *testing.T) {
	got := ToURLDSN("host=db port=5432 user=ledger password=secret dbname=ledger sslmode=disable")
	want := "postgres://ledger:secret@db:5432/ledger?sslmode=disable"
	if got != want {
		t.Errorf("ToURLDSN = %q, want %q", got, want)
	}
	if got := ToURLDSN("host=db"); got != "host=db" {
		t.Errorf("incomplete DSN should be returned unchanged, got %q", got)
	}
}

func TestMaskDSN(t *testing.T) {
	if got := MaskDSN("host=h password=hunter2 dbname=d"); got != "host=h password=*** dbname=d" {
		t.Errorf("MaskDSN kv = %q", got)
	}
	if got := MaskDSN("postgres://u:hunter2@h/db"); strings.Contains(got, "hunter2") || !strings.HasPrefix(got, "postgres://u:") {
		t.Errorf("MaskDSN url = %q", got)
	}
}

func TestMigrateEnforcesPaymentConstraints(t *testing.T) {
	d, err := OpenMemory(t.Name())
	if err != nil {
		t.Fatal(err)
	}
	// Migrate must be safe to run on an already migrated database.
	if err := Migrate(d); err != nil {
		t.Fatal(err)
	}

	entry := func(mode models.PaymentMode, primary bool, gatewayID *string) *models.PaymentEntry {
		return &models.PaymentEntry{
			InvoiceID:        1,
			OrganizationID:   1,
			Amount:           decimal.NewFromInt(100),
			PaymentDate:      time.Now(),
			Mode:             mode,
			IsPrimary:        primary,
			GatewayPaymentID: gatewayID,
		}
	}

	first := entry(models.PaymentModeCash, true, nil)
	if err := d.Create(first).Error; err != nil {
		t.Fatal(err)
	}
	if err := d.Create(entry(models.PaymentModeUPI, true, nil)).Error; err == nil {
		t.Fatal("second live primary entry was accepted")
	}
	if err := d.Create(entry(models.PaymentModeUPI, false, nil)).Error; err != nil {
		t.Fatalf("non-primary entry rejected: %v", err)
	}

	// a reversed primary no longer counts
	if err := d.Delete(first).Error; err != nil {
		t.Fatal(err)
	}
	if err := d.Create(entry(models.PaymentModeUPI, true, nil)).Error; err != nil {
		t.Fatalf("primary after reversal rejected: %v", err)
	}

	if err := d.Create(entry(models.PaymentModeOnline, false, nil)).Error; err == nil {
		t.Fatal("online entry without gateway payment id was accepted")
	}
	gatewayID := "pay_1"
	if err := d.Create(entry(models.PaymentModeCash, false, &gatewayID)).Error; err == nil {
		t.Fatal("manual entry with gateway payment id was accepted")
	}
	if err := d.Create(entry(models.PaymentModeOnline, false, &gatewayID)).Error; err != nil {
		t.Fatalf("gateway entry rejected: %v", err)
	}
}
