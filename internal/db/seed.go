package db

import (
	"errors"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/tax"
	"gorm.io/gorm"
)

// Seed creates a demo organization with two GST registrations and a few
// clients covering the main tax treatments. It is idempotent.
func Seed(dbConn *gorm.DB) error {
	return dbConn.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{
			Name:                 "Acme Traders",
			GSTIN:                "27AAACA1234A1Z5",
			StateCode:            "27",
			FiscalYearStartMonth: 4,
			NumberingMode:        models.NumberingAuto,
			InvoicePrefix:        models.DefaultInvoicePrefix,
			NumberFormat:         models.DefaultNumberFormat,
			SequenceStart:        1,
			SequencePadding:      models.DefaultSequencePadding,
		}
		if err := tx.Where("name = ?", org.Name).FirstOrCreate(&org).Error; err != nil {
			return err
		}

		profiles := []models.GstinProfile{
			{GSTIN: "27AAACA1234A1Z5", StateCode: "27", InvoicePrefix: "MH", IsDefault: true},
			{GSTIN: "29AAACA1234A1Z3", StateCode: "29", InvoicePrefix: "KA"},
		}
		for _, p := range profiles {
			p.OrganizationID = org.ID
			p.StateName = tax.StateName(p.StateCode)
			var existing models.GstinProfile
			err := tx.Where("gstin = ?", p.GSTIN).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if err := tx.Create(&p).Error; err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
		}

		clients := []models.Client{
			{Name: "Pune Retail LLP", GSTIN: "27AABCP5678B1Z2", GSTTreatment: tax.TreatmentRegular},
			{Name: "Bengaluru Systems Pvt Ltd", GSTIN: "29AABCB9012C1Z8", GSTTreatment: tax.TreatmentRegular},
			{Name: "Walk-in Customer", BillingStateCode: "27", GSTTreatment: tax.TreatmentUnregistered},
			{Name: "Globex Inc (USA)", GSTTreatment: tax.TreatmentExport},
		}
		for _, c := range clients {
			c.OrganizationID = org.ID
			if err := tx.Where("organization_id = ? AND name = ?", org.ID, c.Name).FirstOrCreate(&c).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
