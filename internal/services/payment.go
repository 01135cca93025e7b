package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentInput records a manual payment.
type PaymentInput struct {
	Amount      decimal.Decimal    `json:"amount"`
	PaymentDate time.Time          `json:"payment_date"`
	Mode        models.PaymentMode `json:"mode"`
	Reference   string             `json:"reference,omitempty"`
	Notes       string             `json:"notes,omitempty"`
}

// GatewayPaymentInput records a payment settled through the payment gateway.
type GatewayPaymentInput struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate time.Time       `json:"payment_date"`
	OrderID     string          `json:"order_id"`
	PaymentID   string          `json:"payment_id"`
	Signature   string          `json:"signature"`
	Notes       string          `json:"notes,omitempty"`
}

// PaymentEdit changes a manual entry. Nil fields are left as they are.
type PaymentEdit struct {
	Amount      *decimal.Decimal    `json:"amount,omitempty"`
	PaymentDate *time.Time          `json:"payment_date,omitempty"`
	Mode        *models.PaymentMode `json:"mode,omitempty"`
	Reference   *string             `json:"reference,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
}

// PaymentResult is the outcome of a payment operation.
type PaymentResult struct {
	Entry   *models.PaymentEntry `json:"entry"`
	Invoice *Snapshot            `json:"invoice"`
	// Replayed is set when a gateway payment had already been recorded.
	Replayed bool `json:"replayed,omitempty"`
}

// PaymentRecorder applies payment entries to invoices. The paid amount of an
// invoice is always the sum of its live entries.
type PaymentRecorder struct {
	ledger
	verifier GatewayVerifier
}

// NewPaymentRecorder creates a PaymentRecorder. verifier may be nil when
// gateway payments are not accepted.
func NewPaymentRecorder(db *gorm.DB, dir *Directory, verifier GatewayVerifier, opts ...Option) *PaymentRecorder {
	return &PaymentRecorder{ledger: newLedger(db, dir, opts), verifier: verifier}
}

// Record applies a manual payment. The amount must be positive and no more
// than the invoice balance. The first live entry of an invoice is primary.
func (r *PaymentRecorder) Record(ctx context.Context, organizationID, invoiceID uint, in PaymentInput) (*PaymentResult, error) {
	const op = "RecordPayment"
	if err := checkAmount(in.Amount); err != nil {
		return nil, r.reject(ctx, op, organizationID, invoiceID, err)
	}
	if !in.Mode.Valid() {
		return nil, r.reject(ctx, op, organizationID, invoiceID, fmt.Errorf("%w: unknown mode %q", ErrInvalidPayment, in.Mode))
	}
	if in.Mode == models.PaymentModeOnline {
		return nil, r.reject(ctx, op, organizationID, invoiceID, fmt.Errorf("%w: online payments go through the gateway", ErrInvalidPayment))
	}

	now := r.clock()
	entry := &models.PaymentEntry{
		InvoiceID:      invoiceID,
		OrganizationID: organizationID,
		Amount:         in.Amount,
		PaymentDate:    paymentDate(in.PaymentDate, now),
		Mode:           in.Mode,
		Reference:      strings.TrimSpace(in.Reference),
		Notes:          strings.TrimSpace(in.Notes),
	}

	var inv *models.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = r.apply(tx, entry, now)
		return err
	})
	if err != nil {
		return nil, r.reject(ctx, op, organizationID, invoiceID, err)
	}

	log := logger.WithOrganization("payments", organizationID)
	log.Info().
		Uint("invoice_id", invoiceID).
		Uint("payment_id", entry.ID).
		Str("amount", entry.Amount.StringFixed(2)).
		Str("mode", string(entry.Mode)).
		Str("status", string(inv.Status)).
		Msg("payment recorded")
	return &PaymentResult{Entry: entry, Invoice: NewSnapshot(inv, now)}, nil
}

// RecordGatewayPayment applies a payment confirmed by the gateway. The
// signature is checked before the invoice is touched. Recording the same
// gateway payment again returns the existing entry; a replay that disagrees
// with it on amount or order is rejected.
func (r *PaymentRecorder) RecordGatewayPayment(ctx context.Context, organizationID, invoiceID uint, in GatewayPaymentInput) (*PaymentResult, error) {
	const op = "RecordGatewayPayment"
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, r.reject(ctx, op, organizationID, invoiceID, fmt.Errorf("%w: order id, payment id and signature are required", ErrInvalidPayment))
	}
	if err := checkAmount(in.Amount); err != nil {
		return nil, r.reject(ctx, op, organizationID, invoiceID, err)
	}
	if r.verifier == nil || !r.verifier.Verify(in.OrderID, in.PaymentID, in.Signature) {
		log := logger.WithOrganization("payments", organizationID)
		log.Warn().
			Bool("fraud_review", true).
			Uint("invoice_id", invoiceID).
			Str("gateway_order_id", in.OrderID).
			Str("gateway_payment_id", in.PaymentID).
			Msg("gateway signature mismatch")
		return nil, r.reject(ctx, op, organizationID, invoiceID, ErrSignatureMismatch)
	}

	now := r.clock()
	signature := strings.TrimSpace(in.Signature)
	entry := &models.PaymentEntry{
		InvoiceID:        invoiceID,
		OrganizationID:   organizationID,
		Amount:           in.Amount,
		PaymentDate:      paymentDate(in.PaymentDate, now),
		Mode:             models.PaymentModeOnline,
		Reference:        in.PaymentID,
		Notes:            strings.TrimSpace(in.Notes),
		GatewayOrderID:   &in.OrderID,
		GatewayPaymentID: &in.PaymentID,
		GatewaySignature: &signature,
	}

	var (
		inv      *models.Invoice
		replayed bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.PaymentEntry
		err := tx.Unscoped().Where("gateway_payment_id = ?", in.PaymentID).Take(&existing).Error
		switch {
		case err == nil:
			if existing.InvoiceID != invoiceID || existing.OrganizationID != organizationID {
				return fmt.Errorf("%w: gateway payment %s belongs to another invoice", ErrInvalidPayment, in.PaymentID)
			}
			if !existing.Amount.Equal(in.Amount) || existing.GatewayOrderID == nil || *existing.GatewayOrderID != in.OrderID {
				return fmt.Errorf("%w: gateway payment %s was recorded with a different amount or order", ErrInvalidPayment, in.PaymentID)
			}
			entry = &existing
			replayed = true
			inv, err = r.lockInvoice(tx, organizationID, invoiceID)
			return err
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}
		inv, err = r.apply(tx, entry, now)
		return err
	})
	if err != nil {
		return nil, r.reject(ctx, op, organizationID, invoiceID, err)
	}

	log := logger.WithOrganization("payments", organizationID)
	log.Info().
		Uint("invoice_id", invoiceID).
		Uint("payment_id", entry.ID).
		Str("gateway_payment_id", in.PaymentID).
		Bool("replayed", replayed).
		Str("status", string(inv.Status)).
		Msg("gateway payment recorded")
	return &PaymentResult{Entry: entry, Invoice: NewSnapshot(inv, now), Replayed: replayed}, nil
}

// apply inserts entry under the invoice lock and refolds the invoice.
func (r *PaymentRecorder) apply(tx *gorm.DB, entry *models.PaymentEntry, now time.Time) (*models.Invoice, error) {
	inv, err := r.lockInvoice(tx, entry.OrganizationID, entry.InvoiceID)
	if err != nil {
		return nil, err
	}
	if !inv.AcceptsPayments() {
		return nil, fmt.Errorf("%w: invoice is %s", ErrInvoiceNotPayable, inv.Status)
	}
	if entry.Amount.GreaterThan(inv.BalanceAmount) {
		return nil, fmt.Errorf("%w: amount %s, balance %s", ErrOverpayment, entry.Amount.StringFixed(2), inv.BalanceAmount.StringFixed(2))
	}

	var live int64
	if err := tx.Model(&models.PaymentEntry{}).Where("invoice_id = ?", inv.ID).Count(&live).Error; err != nil {
		return nil, err
	}
	entry.IsPrimary = live == 0
	if err := tx.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: duplicate gateway payment", ErrInvalidPayment)
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	from := inv.Status
	if err := r.refold(tx, inv, now); err != nil {
		return nil, err
	}
	if err := r.save(tx, inv, now); err != nil {
		return nil, err
	}
	if err := emit(tx, inv, models.EventPaymentRecorded, PaymentRecorded{
		PaymentID:     entry.ID,
		Amount:        entry.Amount,
		Mode:          entry.Mode,
		PaidAmount:    inv.PaidAmount,
		BalanceAmount: inv.BalanceAmount,
	}, now); err != nil {
		return nil, err
	}
	if err := emitStatusChange(tx, inv, from, now); err != nil {
		return nil, err
	}
	return inv, nil
}

// Edit changes a live manual entry. The invoice is refolded; an edit that
// would take the paid amount past the total is rejected.
func (r *PaymentRecorder) Edit(ctx context.Context, organizationID, paymentID uint, e PaymentEdit) (*PaymentResult, error) {
	const op = "EditPayment"
	now := r.clock()
	var (
		inv       *models.Invoice
		entry     *models.PaymentEntry
		invoiceID uint
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, entry, err = r.lockEntry(tx, organizationID, paymentID)
		if inv != nil {
			invoiceID = inv.ID
		}
		if err != nil {
			return err
		}
		if entry.IsGateway() {
			return ErrImmutableEntry
		}
		if !inv.AcceptsPayments() {
			return fmt.Errorf("%w: invoice is %s", ErrInvoiceNotPayable, inv.Status)
		}

		if e.Amount != nil {
			if err := checkAmount(*e.Amount); err != nil {
				return err
			}
			entry.Amount = *e.Amount
		}
		if e.Mode != nil {
			if !e.Mode.Valid() || *e.Mode == models.PaymentModeOnline {
				return fmt.Errorf("%w: mode %q", ErrInvalidPayment, *e.Mode)
			}
			entry.Mode = *e.Mode
		}
		if e.PaymentDate != nil && !e.PaymentDate.IsZero() {
			entry.PaymentDate = *e.PaymentDate
		}
		if e.Reference != nil {
			entry.Reference = strings.TrimSpace(*e.Reference)
		}
		if e.Notes != nil {
			entry.Notes = strings.TrimSpace(*e.Notes)
		}
		err = tx.Model(entry).Updates(map[string]any{
			"amount":       entry.Amount,
			"mode":         entry.Mode,
			"payment_date": entry.PaymentDate,
			"reference":    entry.Reference,
			"notes":        entry.Notes,
		}).Error
		if err != nil {
			return fmt.Errorf("update payment %d: %w", entry.ID, err)
		}

		from := inv.Status
		if err := r.refold(tx, inv, now); err != nil {
			return err
		}
		if err := r.save(tx, inv, now); err != nil {
			return err
		}
		return emitStatusChange(tx, inv, from, now)
	})
	if err != nil {
		return nil, r.reject(ctx, op, organizationID, invoiceID, err)
	}
	return &PaymentResult{Entry: entry, Invoice: NewSnapshot(inv, now)}, nil
}

// Reverse removes a live manual entry from the invoice. The entry is kept
// for audit. Reversing the primary entry promotes the chronologically
// earliest remaining entry.
func (r *PaymentRecorder) Reverse(ctx context.Context, organizationID, paymentID uint) (*PaymentResult, error) {
	const op = "ReversePayment"
	now := r.clock()
	var (
		inv       *models.Invoice
		entry     *models.PaymentEntry
		invoiceID uint
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, entry, err = r.lockEntry(tx, organizationID, paymentID)
		if inv != nil {
			invoiceID = inv.ID
		}
		if err != nil {
			return err
		}
		if entry.IsGateway() {
			return ErrImmutableEntry
		}

		entry.ReversedAt = &now
		err = tx.Model(entry).Updates(map[string]any{
			"reversed_at": now,
			"deleted_at":  now,
		}).Error
		if err != nil {
			return fmt.Errorf("reverse payment %d: %w", entry.ID, err)
		}
		entry.DeletedAt = gorm.DeletedAt{Time: now, Valid: true}

		var promoted uint
		if entry.IsPrimary {
			var next models.PaymentEntry
			err := models.PaymentsChronological(tx.Where("invoice_id = ?", inv.ID)).Take(&next).Error
			switch {
			case err == nil:
				if err := tx.Model(&next).Update("is_primary", true).Error; err != nil {
					return fmt.Errorf("promote payment %d: %w", next.ID, err)
				}
				promoted = next.ID
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return err
			}
		}

		from := inv.Status
		if err := r.refold(tx, inv, now); err != nil {
			return err
		}
		if err := r.save(tx, inv, now); err != nil {
			return err
		}
		if err := emit(tx, inv, models.EventPaymentReversed, PaymentReversed{
			PaymentID:     entry.ID,
			Amount:        entry.Amount,
			PromotedID:    promoted,
			PaidAmount:    inv.PaidAmount,
			BalanceAmount: inv.BalanceAmount,
		}, now); err != nil {
			return err
		}
		return emitStatusChange(tx, inv, from, now)
	})
	if err != nil {
		return nil, r.reject(ctx, op, organizationID, invoiceID, err)
	}

	log := logger.WithOrganization("payments", organizationID)
	log.Info().
		Uint("invoice_id", inv.ID).
		Uint("payment_id", entry.ID).
		Str("status", string(inv.Status)).
		Msg("payment reversed")
	return &PaymentResult{Entry: entry, Invoice: NewSnapshot(inv, now)}, nil
}

// lockEntry finds a live entry of the organization, locks its invoice and
// re-reads the entry under that lock. The invoice is returned even when the
// entry check fails afterwards.
func (r *PaymentRecorder) lockEntry(tx *gorm.DB, organizationID, paymentID uint) (*models.Invoice, *models.PaymentEntry, error) {
	var probe models.PaymentEntry
	err := tx.Where("organization_id = ?", organizationID).Take(&probe, paymentID).Error
	if err != nil {
		return nil, nil, notFound("payment", paymentID, err)
	}
	inv, err := r.lockInvoice(tx, organizationID, probe.InvoiceID)
	if err != nil {
		return nil, nil, err
	}
	var entry models.PaymentEntry
	if err := tx.Take(&entry, paymentID).Error; err != nil {
		return inv, nil, notFound("payment", paymentID, err)
	}
	return inv, &entry, nil
}

// Entry returns one entry of the organization, reversed or not.
func (r *PaymentRecorder) Entry(ctx context.Context, organizationID, paymentID uint) (*models.PaymentEntry, error) {
	var entry models.PaymentEntry
	err := r.db.WithContext(ctx).Unscoped().
		Where("organization_id = ?", organizationID).
		Take(&entry, paymentID).Error
	if err != nil {
		return nil, notFound("payment", paymentID, err)
	}
	return &entry, nil
}

// Entries lists the entries of an invoice in chronological order. Reversed
// entries are included only when asked for.
func (r *PaymentRecorder) Entries(ctx context.Context, organizationID, invoiceID uint, includeReversed bool) ([]models.PaymentEntry, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("organization_id = ? AND id = ?", organizationID, invoiceID).
		Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: invoice %d", ErrNotFound, invoiceID)
	}

	q := r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID)
	if includeReversed {
		q = q.Unscoped()
	}
	var entries []models.PaymentEntry
	if err := models.PaymentsChronological(q).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidPayment)
	}
	if !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("%w: amount has more than two decimals", ErrInvalidPayment)
	}
	return nil
}

func paymentDate(d, now time.Time) time.Time {
	if d.IsZero() {
		return now
	}
	return d
}
