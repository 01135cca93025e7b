// Package services holds the invoice ledger: draft and final invoices, the
// payment entries applied to them and the status they derive.
//
// Every mutation of an invoice runs in one database transaction that locks
// the invoice row, checks its version and writes the outbox events, so a
// rejected operation leaves no trace.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Option configures the ledger services.
type Option func(*ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *ledger) { l.now = now }
}

// WithLocation sets the location used for day boundaries and fiscal years.
func WithLocation(loc *time.Location) Option {
	return func(l *ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// ledger is shared by the invoice and payment services.
type ledger struct {
	db  *gorm.DB
	dir *Directory
	now func() time.Time
	loc *time.Location
}

func newLedger(db *gorm.DB, dir *Directory, opts []Option) ledger {
	if dir == nil {
		dir = NewDirectory(db, 0)
	}
	l := ledger{db: db, dir: dir, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

func (l *ledger) clock() time.Time {
	return l.now().In(l.loc)
}

// lockInvoice loads an invoice of the organization for update.
func (l *ledger) lockInvoice(tx *gorm.DB, organizationID, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ?", organizationID).
		Take(&inv, invoiceID).Error
	if err != nil {
		return nil, notFound("invoice", invoiceID, err)
	}
	return &inv, nil
}

// save writes the ledger columns of inv if nobody changed it since it was
// read, and bumps its version.
func (l *ledger) save(tx *gorm.DB, inv *models.Invoice, now time.Time) error {
	cols := ledgerColumns(inv)
	cols["version"] = inv.Version + 1
	cols["updated_at"] = now
	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version).
		Updates(cols)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateInvoiceNumber
		}
		return fmt.Errorf("save invoice %d: %w", inv.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentModification
	}
	inv.Version++
	inv.UpdatedAt = now
	return nil
}

// refold recomputes the paid amount from the live entries of inv, then its
// balance and status.
func (l *ledger) refold(tx *gorm.DB, inv *models.Invoice, now time.Time) error {
	var amounts []decimal.Decimal
	err := tx.Model(&models.PaymentEntry{}).
		Where("invoice_id = ?", inv.ID).
		Pluck("amount", &amounts).Error
	if err != nil {
		return fmt.Errorf("sum payments of invoice %d: %w", inv.ID, err)
	}
	paid := decimal.Zero
	for _, a := range amounts {
		paid = paid.Add(a)
	}
	if paid.GreaterThan(inv.TotalAmount) {
		return fmt.Errorf("%w: paid %s exceeds total %s", ErrOverpayment, paid.StringFixed(2), inv.TotalAmount.StringFixed(2))
	}
	inv.PaidAmount = paid
	inv.BalanceAmount = inv.TotalAmount.Sub(paid)
	inv.Status = NextStatus(inv.Status, inv.BalanceAmount, inv.PaidAmount, inv.DueDate, now)
	return nil
}

// current loads the authoritative snapshot of an invoice outside any
// transaction, or nil.
func (l *ledger) current(ctx context.Context, organizationID, invoiceID uint) *Snapshot {
	if invoiceID == 0 {
		return nil
	}
	var inv models.Invoice
	err := l.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Take(&inv, invoiceID).Error
	if err != nil {
		return nil
	}
	return NewSnapshot(&inv, l.clock())
}

// reject wraps err with the current snapshot of the invoice.
func (l *ledger) reject(ctx context.Context, op string, organizationID, invoiceID uint, err error) error {
	if err == nil {
		return nil
	}
	return wrapLedgerError(op, err, l.current(ctx, organizationID, invoiceID))
}

func ledgerColumns(inv *models.Invoice) map[string]any {
	return map[string]any{
		"invoice_number":         inv.InvoiceNumber,
		"subtotal":               inv.Subtotal,
		"discount_amount":        inv.DiscountAmount,
		"taxable_amount":         inv.TaxableAmount,
		"cgst":                   inv.CGST,
		"sgst":                   inv.SGST,
		"igst":                   inv.IGST,
		"total_tax":              inv.TotalTax,
		"tds_rate":               inv.TDSRate,
		"tds_amount":             inv.TDSAmount,
		"tcs_rate":               inv.TCSRate,
		"tcs_amount":             inv.TCSAmount,
		"round_off":              inv.RoundOff,
		"total_amount":           inv.TotalAmount,
		"paid_amount":            inv.PaidAmount,
		"balance_amount":         inv.BalanceAmount,
		"status":                 inv.Status,
		"origin_state_code":      inv.OriginStateCode,
		"destination_state_code": inv.DestinationStateCode,
		"place_of_supply":        inv.PlaceOfSupply,
		"transaction_type":       inv.TransactionType,
		"reverse_charge":         inv.ReverseCharge,
		"zero_rated":             inv.ZeroRated,
		"tax_computed_at":        inv.TaxComputedAt,
		"finalized_at":           inv.FinalizedAt,
		"cancelled_at":           inv.CancelledAt,
	}
}
