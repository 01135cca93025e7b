package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/diewo77/gst-ledger/internal/sequence"
	"github.com/diewo77/gst-ledger/internal/tax"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// DraftInput describes a new draft invoice.
type DraftInput struct {
	ClientID       uint               `json:"client_id"`
	GstinProfileID *uint              `json:"gstin_profile_id,omitempty"`
	InvoiceType    models.InvoiceType `json:"invoice_type,omitempty"`
	InvoiceDate    time.Time          `json:"invoice_date"`
	DueDate        time.Time          `json:"due_date"`
	Notes          string             `json:"notes,omitempty"`
	Pricing
}

// Pricing is the part of an invoice its amounts are computed from.
type Pricing struct {
	Items         []tax.LineInput `json:"items"`
	ReverseCharge bool            `json:"reverse_charge"`
	TDSRate       decimal.Decimal `json:"tds_rate"`
	TCSRate       decimal.Decimal `json:"tcs_rate"`
}

// ListFilter narrows List.
type ListFilter struct {
	Status   models.InvoiceStatus
	ClientID uint
	Limit    int
	Offset   int
}

// InvoiceService manages the invoice lifecycle: drafts, item edits,
// finalization and cancellation.
type InvoiceService struct {
	ledger
}

// NewInvoiceService creates an InvoiceService.
func NewInvoiceService(db *gorm.DB, dir *Directory, opts ...Option) *InvoiceService {
	return &InvoiceService{ledger: newLedger(db, dir, opts)}
}

// CreateDraft prices the items and stores a DRAFT invoice under a fresh
// draft number.
func (s *InvoiceService) CreateDraft(ctx context.Context, organizationID uint, in DraftInput) (*models.Invoice, error) {
	const op = "CreateDraft"
	now := s.clock()

	if in.InvoiceType == "" {
		in.InvoiceType = models.InvoiceTypeTaxInvoice
	}
	if !in.InvoiceType.Valid() {
		return nil, wrapLedgerError(op, fmt.Errorf("%w: unknown invoice type %q", ErrInvalidInvoice, in.InvoiceType), nil)
	}
	if in.InvoiceDate.IsZero() {
		in.InvoiceDate = now
	}
	if in.DueDate.IsZero() {
		in.DueDate = in.InvoiceDate
	}
	if in.DueDate.Before(beginningOfDay(in.InvoiceDate)) {
		return nil, wrapLedgerError(op, fmt.Errorf("%w: due date before invoice date", ErrInvalidInvoice), nil)
	}

	dir := s.dir.with(s.db)
	org, err := dir.Organization(ctx, organizationID)
	if err != nil {
		return nil, wrapLedgerError(op, err, nil)
	}
	client, err := dir.Client(ctx, organizationID, in.ClientID)
	if err != nil {
		return nil, wrapLedgerError(op, err, nil)
	}
	profile, err := dir.Profile(ctx, organizationID, in.GstinProfileID)
	if err != nil {
		return nil, wrapLedgerError(op, err, nil)
	}

	inv := &models.Invoice{
		OrganizationID: organizationID,
		InvoiceType:    in.InvoiceType,
		ClientID:       client.ID,
		InvoiceDate:    in.InvoiceDate,
		DueDate:        in.DueDate,
		Notes:          strings.TrimSpace(in.Notes),
		Status:         models.InvoiceStatusDraft,
		Version:        1,
	}
	if profile != nil {
		inv.GstinProfileID = &profile.ID
	}
	cls, err := classify(org, profile, client, in.ReverseCharge)
	if err != nil {
		return nil, wrapLedgerError(op, err, nil)
	}
	if err := price(inv, org, cls, in.Pricing, now); err != nil {
		return nil, wrapLedgerError(op, err, nil)
	}
	inv.BalanceAmount = inv.TotalAmount

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		alloc := sequence.New(sequence.NewGormStore(tx), nil)
		draft, err := alloc.AllocateDraft(ctx, organizationID)
		if err != nil {
			return err
		}
		inv.DraftNumber = draft
		return tx.Create(inv).Error
	})
	if err != nil {
		return nil, wrapLedgerError(op, err, nil)
	}

	log := logger.WithOrganization("invoices", organizationID)
	log.Info().
		Uint("invoice_id", inv.ID).
		Str("draft_number", inv.DraftNumber).
		Str("total", inv.TotalAmount.StringFixed(2)).
		Msg("draft created")
	return inv, nil
}

// UpdateItems replaces the items of a non-cancelled invoice and recomputes
// its amounts. The new total may not fall below what has already been paid.
// A draft is reclassified against the current client and profile; an issued
// invoice keeps the classification it was finalized with, and reverse
// charge can no longer be switched on.
func (s *InvoiceService) UpdateItems(ctx context.Context, organizationID, invoiceID uint, p Pricing) (*models.Invoice, error) {
	const op = "UpdateItems"
	now := s.clock()
	var inv *models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.lockInvoice(tx, organizationID, invoiceID)
		if err != nil {
			return err
		}
		if inv.IsCancelled() {
			return fmt.Errorf("%w: cancelled invoices cannot be edited", ErrInvalidTransition)
		}

		dir := s.dir.with(tx)
		org, err := dir.Organization(ctx, organizationID)
		if err != nil {
			return err
		}
		cls := inv.TaxClassification()
		if inv.IsDraft() {
			client, err := dir.Client(ctx, organizationID, inv.ClientID)
			if err != nil {
				return err
			}
			var profile *models.GstinProfile
			if inv.GstinProfileID != nil {
				if profile, err = dir.Profile(ctx, organizationID, inv.GstinProfileID); err != nil {
					return err
				}
			}
			if cls, err = classify(org, profile, client, p.ReverseCharge); err != nil {
				return err
			}
		} else if p.ReverseCharge && !cls.ReverseCharge {
			return fmt.Errorf("%w: reverse charge cannot be applied to an issued invoice", ErrInvalidInvoice)
		}

		from := inv.Status
		if err := price(inv, org, cls, p, now); err != nil {
			return err
		}
		if err := s.refold(tx, inv, now); err != nil {
			return err
		}

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		for i := range inv.Items {
			inv.Items[i].InvoiceID = inv.ID
		}
		if err := tx.Create(&inv.Items).Error; err != nil {
			return fmt.Errorf("create items: %w", err)
		}
		if err := s.save(tx, inv, now); err != nil {
			return err
		}
		return emitStatusChange(tx, inv, from, now)
	})
	if err != nil {
		return nil, s.reject(ctx, op, organizationID, invoiceID, err)
	}
	return inv, nil
}

// Finalize moves a DRAFT invoice to PENDING and gives it its final number.
// In AUTO numbering mode the number comes from the counter of the invoice's
// GSTIN and financial year; in MANUAL mode manualNumber is required and must
// be unused within the organization. A failure leaves the counter untouched.
func (s *InvoiceService) Finalize(ctx context.Context, organizationID, invoiceID uint, manualNumber string) (*models.Invoice, error) {
	const op = "Finalize"
	now := s.clock()
	var inv *models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.lockInvoice(tx, organizationID, invoiceID)
		if err != nil {
			return err
		}
		if err := checkTransition(inv.Status, models.InvoiceStatusPending); err != nil {
			return err
		}
		var items int64
		if err := tx.Model(&models.InvoiceItem{}).Where("invoice_id = ?", inv.ID).Count(&items).Error; err != nil {
			return err
		}
		if items == 0 {
			return fmt.Errorf("%w: invoice has no items", ErrInvalidInvoice)
		}

		dir := s.dir.with(tx)
		org, err := dir.Organization(ctx, organizationID)
		if err != nil {
			return err
		}
		store := sequence.NewGormStore(tx)
		alloc := sequence.New(store, store)

		var number string
		switch org.NumberingMode {
		case models.NumberingManual:
			if number, err = alloc.CheckManual(ctx, organizationID, manualNumber); err != nil {
				return err
			}
		default:
			var profile *models.GstinProfile
			if inv.GstinProfileID != nil {
				if profile, err = dir.Profile(ctx, organizationID, inv.GstinProfileID); err != nil {
					return err
				}
			}
			n, err := alloc.AllocateFinal(ctx, numberingScheme(org, profile), inv.InvoiceDate.In(s.loc))
			if err != nil {
				return err
			}
			number = n.Text
		}

		from := inv.Status
		inv.InvoiceNumber = &number
		inv.FinalizedAt = &now
		inv.Status = models.InvoiceStatusPending
		if err := s.refold(tx, inv, now); err != nil {
			return err
		}
		if err := s.save(tx, inv, now); err != nil {
			return err
		}
		if err := emit(tx, inv, models.EventInvoiceFinalized, InvoiceFinalized{
			InvoiceNumber: number,
			DraftNumber:   inv.DraftNumber,
			TotalAmount:   inv.TotalAmount,
			FinalizedAt:   now,
		}, now); err != nil {
			return err
		}
		return emitStatusChange(tx, inv, from, now)
	})
	if err != nil {
		return nil, s.reject(ctx, op, organizationID, invoiceID, err)
	}

	log := logger.WithOrganization("invoices", organizationID)
	log.Info().
		Uint("invoice_id", inv.ID).
		Str("invoice_number", inv.Number()).
		Str("status", string(inv.Status)).
		Msg("invoice finalized")
	return inv, nil
}

// Cancel moves an invoice to CANCELLED. Invoices with live payments are
// rejected; those payments must be reversed first, which rules out
// invoices settled through a gateway. A cancelled number is never reused.
func (s *InvoiceService) Cancel(ctx context.Context, organizationID, invoiceID uint) (*models.Invoice, error) {
	const op = "Cancel"
	now := s.clock()
	var inv *models.Invoice

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inv, err = s.lockInvoice(tx, organizationID, invoiceID)
		if err != nil {
			return err
		}
		if err := checkTransition(inv.Status, models.InvoiceStatusCancelled); err != nil {
			return err
		}
		var live int64
		if err := tx.Model(&models.PaymentEntry{}).Where("invoice_id = ?", inv.ID).Count(&live).Error; err != nil {
			return err
		}
		if live > 0 {
			return fmt.Errorf("%w: invoice has %d live payments", ErrInvalidTransition, live)
		}

		from := inv.Status
		inv.Status = models.InvoiceStatusCancelled
		inv.CancelledAt = &now
		if err := s.save(tx, inv, now); err != nil {
			return err
		}
		return emitStatusChange(tx, inv, from, now)
	})
	if err != nil {
		return nil, s.reject(ctx, op, organizationID, invoiceID, err)
	}

	log := logger.WithOrganization("invoices", organizationID)
	log.Info().
		Uint("invoice_id", inv.ID).
		Str("invoice_number", inv.Number()).
		Msg("invoice cancelled")
	return inv, nil
}

// Get returns an invoice with its items.
func (s *InvoiceService) Get(ctx context.Context, organizationID, invoiceID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("organization_id = ?", organizationID).
		Take(&inv, invoiceID).Error
	if err != nil {
		return nil, notFound("invoice", invoiceID, err)
	}
	return &inv, nil
}

// Snapshot returns the ledger snapshot of an invoice.
func (s *InvoiceService) Snapshot(ctx context.Context, organizationID, invoiceID uint) (*Snapshot, error) {
	inv, err := s.Get(ctx, organizationID, invoiceID)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(inv, s.clock()), nil
}

// View snapshots an invoice already loaded by the caller.
func (s *InvoiceService) View(inv *models.Invoice) *Snapshot {
	return NewSnapshot(inv, s.clock())
}

// List returns the organization's invoice snapshots, newest first.
func (s *InvoiceService) List(ctx context.Context, organizationID uint, f ListFilter) ([]*Snapshot, error) {
	q := s.db.WithContext(ctx).Where("organization_id = ?", organizationID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var invoices []models.Invoice
	if err := q.Order("id DESC").Limit(f.Limit).Offset(f.Offset).Find(&invoices).Error; err != nil {
		return nil, err
	}
	now := s.clock()
	out := make([]*Snapshot, 0, len(invoices))
	for i := range invoices {
		out = append(out, NewSnapshot(&invoices[i], now))
	}
	return out, nil
}

// numberingScheme resolves the final numbering settings: the profile's
// prefix and template override the organization's.
func numberingScheme(org *models.Organization, profile *models.GstinProfile) sequence.Scheme {
	s := sequence.Scheme{
		OrganizationID:   org.ID,
		GSTINKey:         sequence.GSTINKey("", org.GSTIN),
		Prefix:           org.Prefix(),
		Template:         org.Format(),
		Start:            org.Start(),
		Width:            org.Padding(),
		FiscalStartMonth: org.FiscalStartMonth(),
	}
	if profile != nil {
		s.GSTINKey = sequence.GSTINKey(profile.GSTIN, org.GSTIN)
		if profile.InvoicePrefix != "" {
			s.Prefix = profile.InvoicePrefix
		}
		if profile.NumberFormatTemplate != "" {
			s.Template = profile.NumberFormatTemplate
		}
	}
	return s
}

// classify resolves the supply classification from the current master
// data. The profile's state wins over the organization's.
func classify(org *models.Organization, profile *models.GstinProfile, client *models.Client, reverseCharge bool) (tax.Classification, error) {
	origin := org.StateCode
	if profile != nil {
		origin = profile.StateCode
	}
	return tax.Classify(origin, client.Destination(), reverseCharge)
}

// price computes the items, aggregates and tax snapshot of inv under cls.
// Items are replaced, ledger fields are left alone.
func price(inv *models.Invoice, org *models.Organization, cls tax.Classification, p Pricing, now time.Time) error {
	if len(p.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInvoice)
	}
	if err := checkPercent("tds rate", p.TDSRate); err != nil {
		return err
	}
	if err := checkPercent("tcs rate", p.TCSRate); err != nil {
		return err
	}

	items := make([]models.InvoiceItem, 0, len(p.Items))
	var subtotal, discount, taxable, cgst, sgst, igst decimal.Decimal
	for i, in := range p.Items {
		line, err := cls.ComputeLine(in)
		if err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
		items = append(items, models.NewInvoiceItem(i+1, line))
		subtotal = subtotal.Add(line.BaseAmount)
		discount = discount.Add(line.Discount)
		taxable = taxable.Add(line.TaxableAmount)
		cgst = cgst.Add(line.CGST)
		sgst = sgst.Add(line.SGST)
		igst = igst.Add(line.IGST)
	}
	if !cls.IsInterstate {
		// line halves are for display; the invoice split is taken once
		cgst, sgst = tax.Halves(cgst.Add(sgst))
	}
	totalTax := cgst.Add(sgst).Add(igst)
	tds := taxable.Mul(p.TDSRate).Div(hundred).Round(2)
	tcs := taxable.Mul(p.TCSRate).Div(hundred).Round(2)
	total := taxable.Add(totalTax).Add(tcs).Sub(tds)

	roundOff := decimal.Zero
	if org.RoundOff {
		rounded := total.Round(0)
		roundOff = rounded.Sub(total)
		total = rounded
	}

	inv.Items = items
	inv.Subtotal = subtotal
	inv.DiscountAmount = discount
	inv.TaxableAmount = taxable
	inv.CGST = cgst
	inv.SGST = sgst
	inv.IGST = igst
	inv.TotalTax = totalTax
	inv.TDSRate = p.TDSRate
	inv.TDSAmount = tds
	inv.TCSRate = p.TCSRate
	inv.TCSAmount = tcs
	inv.RoundOff = roundOff
	inv.TotalAmount = total

	inv.OriginStateCode = cls.OriginStateCode
	inv.DestinationStateCode = cls.DestinationStateCode
	inv.PlaceOfSupply = placeOfSupply(cls)
	inv.TransactionType = cls.TransactionType
	inv.ReverseCharge = cls.ReverseCharge
	inv.ZeroRated = cls.ZeroRated
	inv.TaxComputedAt = now
	return nil
}

func placeOfSupply(c tax.Classification) string {
	if c.DestinationStateCode == "" {
		return "Outside India"
	}
	if name := tax.StateName(c.DestinationStateCode); name != "" {
		return c.DestinationStateCode + "-" + name
	}
	return c.DestinationStateCode
}

func checkPercent(field string, v decimal.Decimal) error {
	if v.IsNegative() || v.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidInvoice, field)
	}
	return nil
}

// IsNotFound reports whether err means the record does not exist for the
// caller's organization.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
