package models

import (
	"time"

	"github.com/diewo77/gst-ledger/internal/tax"
)

// NumberingMode selects how final invoice numbers are produced.
type NumberingMode string

const (
	NumberingAuto   NumberingMode = "AUTO"
	NumberingManual NumberingMode = "MANUAL"
)

// Default numbering settings applied when an organization leaves them blank.
const (
	DefaultFiscalYearStartMonth = 4
	DefaultInvoicePrefix        = "INV"
	DefaultNumberFormat         = "{PREFIX}-{FY}-{SEQ}"
	DefaultSequencePadding      = 5
)

// Organization is a tenant issuing invoices.
type Organization struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name string `gorm:"size:255;not null" json:"name"`

	// GSTIN is the legacy single registration, used when no GstinProfile is selected.
	GSTIN     string `gorm:"size:15" json:"gstin,omitempty"`
	StateCode string `gorm:"size:2;not null" json:"state_code"`

	FiscalYearStartMonth int           `gorm:"not null;default:4" json:"fiscal_year_start_month"`
	NumberingMode        NumberingMode `gorm:"size:10;not null;default:'AUTO'" json:"numbering_mode"`
	InvoicePrefix        string        `gorm:"size:20;not null;default:'INV'" json:"invoice_prefix"`
	NumberFormat         string        `gorm:"size:100;not null;default:'{PREFIX}-{FY}-{SEQ}'" json:"number_format"`
	SequenceStart        int64         `gorm:"not null;default:1" json:"sequence_start"`
	SequencePadding      int           `gorm:"not null;default:5" json:"sequence_padding"`
	RoundOff             bool          `gorm:"not null;default:false" json:"round_off"`

	GstinProfiles []GstinProfile `gorm:"foreignKey:OrganizationID" json:"gstin_profiles,omitempty"`
}

// FiscalStartMonth returns the configured month, falling back to April.
func (o *Organization) FiscalStartMonth() time.Month {
	if o.FiscalYearStartMonth < 1 || o.FiscalYearStartMonth > 12 {
		return time.Month(DefaultFiscalYearStartMonth)
	}
	return time.Month(o.FiscalYearStartMonth)
}

// Prefix returns the invoice prefix or the default.
func (o *Organization) Prefix() string {
	if o.InvoicePrefix == "" {
		return DefaultInvoicePrefix
	}
	return o.InvoicePrefix
}

// Format returns the number template or the default.
func (o *Organization) Format() string {
	if o.NumberFormat == "" {
		return DefaultNumberFormat
	}
	return o.NumberFormat
}

// Start returns the first sequence number handed out per counter.
func (o *Organization) Start() int64 {
	if o.SequenceStart < 1 {
		return 1
	}
	return o.SequenceStart
}

// Padding returns the zero-pad width of {SEQ}.
func (o *Organization) Padding() int {
	if o.SequencePadding <= 0 {
		return DefaultSequencePadding
	}
	return o.SequencePadding
}

// GstinProfile is one of the organization's GST registrations.
type GstinProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID uint `gorm:"index;not null" json:"organization_id"`

	GSTIN                string `gorm:"size:15;uniqueIndex;not null" json:"gstin"`
	StateCode            string `gorm:"size:2;not null" json:"state_code"`
	StateName            string `gorm:"size:100" json:"state_name"`
	InvoicePrefix        string `gorm:"size:20" json:"invoice_prefix,omitempty"`
	NumberFormatTemplate string `gorm:"size:100" json:"number_format_template,omitempty"`
	IsDefault            bool   `gorm:"not null;default:false" json:"is_default"`
}

// GetOrganizationID implements the Tenanted interface.
func (g *GstinProfile) GetOrganizationID() uint {
	return g.OrganizationID
}

// Client is the recipient of an invoice. Only the tax-relevant fields are kept.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID uint `gorm:"index;not null" json:"organization_id"`

	Name             string        `gorm:"size:255;not null" json:"name"`
	Email            string        `gorm:"size:255" json:"email,omitempty"`
	GSTIN            string        `gorm:"size:15;index" json:"gstin,omitempty"`
	BillingStateCode string        `gorm:"size:2" json:"billing_state_code,omitempty"`
	GSTTreatment     tax.Treatment `gorm:"size:20" json:"gst_treatment,omitempty"`
}

// GetOrganizationID implements the Tenanted interface.
func (c *Client) GetOrganizationID() uint {
	return c.OrganizationID
}

// Destination returns the client as a tax destination.
func (c *Client) Destination() tax.Destination {
	return tax.Destination{
		GSTIN:            c.GSTIN,
		Treatment:        c.GSTTreatment,
		BillingStateCode: c.BillingStateCode,
	}
}
