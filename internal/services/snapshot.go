package services

import (
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/tax"
	"github.com/shopspring/decimal"
)

// Snapshot is the read-only view of an invoice's ledger state.
type Snapshot struct {
	InvoiceID      uint                 `json:"invoice_id"`
	OrganizationID uint                 `json:"organization_id"`
	InvoiceNumber  string               `json:"invoice_number,omitempty"`
	DraftNumber    string               `json:"draft_number"`
	InvoiceType    models.InvoiceType   `json:"invoice_type"`
	Status         models.InvoiceStatus `json:"status"`
	ClientID       uint                 `json:"client_id"`
	InvoiceDate    time.Time            `json:"invoice_date"`
	DueDate        time.Time            `json:"due_date"`
	DaysOverdue    int                  `json:"days_overdue,omitempty"`

	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	TotalTax       decimal.Decimal `json:"total_tax"`
	TDSAmount      decimal.Decimal `json:"tds_amount"`
	TCSAmount      decimal.Decimal `json:"tcs_amount"`
	RoundOff       decimal.Decimal `json:"round_off"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	BalanceAmount  decimal.Decimal `json:"balance_amount"`

	TransactionType      tax.TransactionType `json:"transaction_type"`
	OriginStateCode      string              `json:"origin_state_code"`
	DestinationStateCode string              `json:"destination_state_code"`
	PlaceOfSupply        string              `json:"place_of_supply"`
	ReverseCharge        bool                `json:"reverse_charge"`
	ZeroRated            bool                `json:"zero_rated"`
	TaxComputedAt        time.Time           `json:"tax_computed_at"`

	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	Version     int64      `json:"version"`
}

// NewSnapshot copies the ledger state of inv as of now.
func NewSnapshot(inv *models.Invoice, now time.Time) *Snapshot {
	s := &Snapshot{
		InvoiceID:            inv.ID,
		OrganizationID:       inv.OrganizationID,
		DraftNumber:          inv.DraftNumber,
		InvoiceType:          inv.InvoiceType,
		Status:               inv.Status,
		ClientID:             inv.ClientID,
		InvoiceDate:          inv.InvoiceDate,
		DueDate:              inv.DueDate,
		Subtotal:             inv.Subtotal,
		DiscountAmount:       inv.DiscountAmount,
		TaxableAmount:        inv.TaxableAmount,
		CGST:                 inv.CGST,
		SGST:                 inv.SGST,
		IGST:                 inv.IGST,
		TotalTax:             inv.TotalTax,
		TDSAmount:            inv.TDSAmount,
		TCSAmount:            inv.TCSAmount,
		RoundOff:             inv.RoundOff,
		TotalAmount:          inv.TotalAmount,
		PaidAmount:           inv.PaidAmount,
		BalanceAmount:        inv.BalanceAmount,
		TransactionType:      inv.TransactionType,
		OriginStateCode:      inv.OriginStateCode,
		DestinationStateCode: inv.DestinationStateCode,
		PlaceOfSupply:        inv.PlaceOfSupply,
		ReverseCharge:        inv.ReverseCharge,
		ZeroRated:            inv.ZeroRated,
		TaxComputedAt:        inv.TaxComputedAt,
		FinalizedAt:          inv.FinalizedAt,
		CancelledAt:          inv.CancelledAt,
		Version:              inv.Version,
	}
	if inv.InvoiceNumber != nil {
		s.InvoiceNumber = *inv.InvoiceNumber
	}
	if inv.AcceptsPayments() && inv.BalanceAmount.IsPositive() {
		s.DaysOverdue = DaysOverdue(inv.DueDate, now)
	}
	return s
}
