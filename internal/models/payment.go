package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentMode is how a payment was made.
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "CASH"
	PaymentModeCheque       PaymentMode = "CHEQUE"
	PaymentModeBankTransfer PaymentMode = "BANK_TRANSFER"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeCard         PaymentMode = "CARD"
	PaymentModeOnline       PaymentMode = "ONLINE"
	PaymentModeOther        PaymentMode = "OTHER"
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCheque, PaymentModeBankTransfer, PaymentModeUPI,
		PaymentModeCard, PaymentModeOnline, PaymentModeOther:
		return true
	}
	return false
}

// PaymentEntry is one money movement applied to an invoice. Reversal is a
// soft delete: reversed entries stay for audit but are no longer live.
type PaymentEntry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	InvoiceID      uint `gorm:"index;not null" json:"invoice_id"`
	OrganizationID uint `gorm:"index;not null" json:"organization_id"`

	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Mode        PaymentMode     `gorm:"size:20;not null" json:"mode"`
	Reference   string          `gorm:"size:100" json:"reference,omitempty"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`

	// Gateway identifiers are set iff Mode is ONLINE.
	GatewayOrderID   *string `gorm:"size:100" json:"gateway_order_id,omitempty"`
	GatewayPaymentID *string `gorm:"size:100;uniqueIndex;check:chk_payment_entries_gateway_mode,(mode = 'ONLINE') = (gateway_payment_id IS NOT NULL)" json:"gateway_payment_id,omitempty"`
	GatewaySignature *string `gorm:"size:128" json:"-"`

	IsPrimary  bool       `gorm:"not null;default:false" json:"is_primary"`
	ReversedAt *time.Time `json:"reversed_at,omitempty"`
}

// GetOrganizationID implements the Tenanted interface.
func (p *PaymentEntry) GetOrganizationID() uint {
	return p.OrganizationID
}

// IsGateway reports whether the entry was settled through a payment gateway.
// Such entries can be neither edited nor reversed.
func (p *PaymentEntry) IsGateway() bool {
	return p.GatewayPaymentID != nil || p.GatewayOrderID != nil || p.GatewaySignature != nil
}

// PaymentsChronological orders entries by payment date, then creation order.
func PaymentsChronological(db *gorm.DB) *gorm.DB {
	return db.Order("payment_date ASC").Order("id ASC")
}
