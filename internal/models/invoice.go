package models

import (
	"time"

	"github.com/diewo77/gst-ledger/internal/tax"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "DRAFT"
	InvoiceStatusPending       InvoiceStatus = "PENDING"
	InvoiceStatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusPaid          InvoiceStatus = "PAID"
	InvoiceStatusOverdue       InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled     InvoiceStatus = "CANCELLED"
)

// InvoiceType classifies the document.
type InvoiceType string

const (
	InvoiceTypeProforma        InvoiceType = "PROFORMA"
	InvoiceTypeTaxInvoice      InvoiceType = "TAX_INVOICE"
	InvoiceTypeCreditNote      InvoiceType = "CREDIT_NOTE"
	InvoiceTypeDebitNote       InvoiceType = "DEBIT_NOTE"
	InvoiceTypeDeliveryChallan InvoiceType = "DELIVERY_CHALLAN"
)

// Valid reports whether t is a known invoice type.
func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeProforma, InvoiceTypeTaxInvoice, InvoiceTypeCreditNote,
		InvoiceTypeDebitNote, InvoiceTypeDeliveryChallan:
		return true
	}
	return false
}

// Invoice holds the document, its computed aggregates and its ledger state.
// Every amount is derived; callers never set them directly.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// OrganizationID is the owning tenant.
	OrganizationID uint `gorm:"not null;index;uniqueIndex:idx_invoice_org_number,priority:1" json:"organization_id"`

	// InvoiceNumber stays NULL until finalization.
	InvoiceNumber *string     `gorm:"size:64;uniqueIndex:idx_invoice_org_number,priority:2" json:"invoice_number,omitempty"`
	DraftNumber   string      `gorm:"size:64;not null;uniqueIndex" json:"draft_number"`
	InvoiceType   InvoiceType `gorm:"size:20;not null;default:'TAX_INVOICE'" json:"invoice_type"`

	ClientID       uint          `gorm:"index;not null" json:"client_id"`
	Client         *Client       `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	GstinProfileID *uint         `gorm:"index" json:"gstin_profile_id,omitempty"`
	GstinProfile   *GstinProfile `gorm:"foreignKey:GstinProfileID" json:"gstin_profile,omitempty"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"items,omitempty"`

	// Aggregates
	Subtotal       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount_amount"`
	TaxableAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"taxable_amount"`
	CGST           decimal.Decimal `gorm:"column:cgst;type:decimal(14,2);not null;default:0" json:"cgst"`
	SGST           decimal.Decimal `gorm:"column:sgst;type:decimal(14,2);not null;default:0" json:"sgst"`
	IGST           decimal.Decimal `gorm:"column:igst;type:decimal(14,2);not null;default:0" json:"igst"`
	TotalTax       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_tax"`
	TDSRate        decimal.Decimal `gorm:"column:tds_rate;type:decimal(5,2);not null;default:0" json:"tds_rate"`
	TDSAmount      decimal.Decimal `gorm:"column:tds_amount;type:decimal(14,2);not null;default:0" json:"tds_amount"`
	TCSRate        decimal.Decimal `gorm:"column:tcs_rate;type:decimal(5,2);not null;default:0" json:"tcs_rate"`
	TCSAmount      decimal.Decimal `gorm:"column:tcs_amount;type:decimal(14,2);not null;default:0" json:"tcs_amount"`
	RoundOff       decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"round_off"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"total_amount"`

	// Ledger state: BalanceAmount = TotalAmount - PaidAmount.
	PaidAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"paid_amount"`
	BalanceAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"balance_amount"`
	Status        InvoiceStatus   `gorm:"size:20;not null;default:'DRAFT';index" json:"status"`

	InvoiceDate time.Time `gorm:"not null" json:"invoice_date"`
	DueDate     time.Time `gorm:"not null;index" json:"due_date"`

	// Tax snapshot, fixed when items are computed.
	OriginStateCode      string              `gorm:"size:2" json:"origin_state_code"`
	DestinationStateCode string              `gorm:"size:2" json:"destination_state_code"`
	PlaceOfSupply        string              `gorm:"size:100" json:"place_of_supply"`
	TransactionType      tax.TransactionType `gorm:"size:20" json:"transaction_type"`
	ReverseCharge        bool                `gorm:"not null;default:false" json:"reverse_charge"`
	ZeroRated            bool                `gorm:"not null;default:false" json:"zero_rated"`
	TaxComputedAt        time.Time           `json:"tax_computed_at"`

	Notes       string     `gorm:"type:text" json:"notes,omitempty"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// Version is bumped on every ledger mutation.
	Version int64 `gorm:"not null;default:1" json:"version"`
}

// GetOrganizationID implements the Tenanted interface.
func (i *Invoice) GetOrganizationID() uint {
	return i.OrganizationID
}

// TaxClassification rebuilds the classification the invoice was last
// priced under from its tax snapshot.
func (i *Invoice) TaxClassification() tax.Classification {
	return tax.Classification{
		TransactionType:      i.TransactionType,
		OriginStateCode:      i.OriginStateCode,
		DestinationStateCode: i.DestinationStateCode,
		IsInterstate:         i.ZeroRated || i.TransactionType.Interstate() || i.OriginStateCode != i.DestinationStateCode,
		ZeroRated:            i.ZeroRated,
		ReverseCharge:        i.ReverseCharge,
	}
}

// IsDraft returns true if the invoice has not been finalized.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsCancelled returns true once the invoice is cancelled.
func (i *Invoice) IsCancelled() bool {
	return i.Status == InvoiceStatusCancelled
}

// AcceptsPayments returns true for finalized, non-cancelled invoices.
func (i *Invoice) AcceptsPayments() bool {
	return !i.IsDraft() && !i.IsCancelled()
}

// Number returns the final number, or the draft number before finalization.
func (i *Invoice) Number() string {
	if i.InvoiceNumber != nil {
		return *i.InvoiceNumber
	}
	return i.DraftNumber
}

// InvoiceItem is one computed line of an invoice.
type InvoiceItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
	Position  int  `gorm:"not null;default:0" json:"position"`

	Description string          `gorm:"size:500;not null" json:"description"`
	HSNCode     string          `gorm:"column:hsn_code;size:10" json:"hsn_code,omitempty"`
	Quantity    decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	Rate        decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"rate"`
	Discount    decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"discount"`
	TaxRate     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"tax_rate"`

	BaseAmount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"base_amount"`
	TaxableAmount decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"taxable_amount"`
	CGST          decimal.Decimal `gorm:"column:cgst;type:decimal(14,2);not null" json:"cgst"`
	SGST          decimal.Decimal `gorm:"column:sgst;type:decimal(14,2);not null" json:"sgst"`
	IGST          decimal.Decimal `gorm:"column:igst;type:decimal(14,2);not null" json:"igst"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"tax_amount"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"total_amount"`
}

// NewInvoiceItem copies a computed line into a persistable item.
func NewInvoiceItem(position int, l tax.Line) InvoiceItem {
	return InvoiceItem{
		Position:      position,
		Description:   l.Description,
		HSNCode:       l.HSNCode,
		Quantity:      l.Quantity,
		Rate:          l.Rate,
		Discount:      l.Discount,
		TaxRate:       l.TaxRate,
		BaseAmount:    l.BaseAmount,
		TaxableAmount: l.TaxableAmount,
		CGST:          l.CGST,
		SGST:          l.SGST,
		IGST:          l.IGST,
		TaxAmount:     l.TaxAmount,
		TotalAmount:   l.TotalAmount,
	}
}
