package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceFinalized is the payload of models.EventInvoiceFinalized.
type InvoiceFinalized struct {
	InvoiceNumber string          `json:"invoice_number"`
	DraftNumber   string          `json:"draft_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	FinalizedAt   time.Time       `json:"finalized_at"`
}

// PaymentRecorded is the payload of models.EventPaymentRecorded.
type PaymentRecorded struct {
	PaymentID     uint               `json:"payment_id"`
	Amount        decimal.Decimal    `json:"amount"`
	Mode          models.PaymentMode `json:"mode"`
	PaidAmount    decimal.Decimal    `json:"paid_amount"`
	BalanceAmount decimal.Decimal    `json:"balance_amount"`
}

// PaymentReversed is the payload of models.EventPaymentReversed.
type PaymentReversed struct {
	PaymentID     uint            `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	PromotedID    uint            `json:"promoted_id,omitempty"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
}

// InvoiceStatusChanged is the payload of models.EventInvoiceStatusChanged.
type InvoiceStatusChanged struct {
	From models.InvoiceStatus `json:"from"`
	To   models.InvoiceStatus `json:"to"`
}

// emit appends an event to the outbox inside tx.
func emit(tx *gorm.DB, inv *models.Invoice, eventType string, payload any, at time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	ev := models.LedgerEvent{
		OrganizationID: inv.OrganizationID,
		InvoiceID:      inv.ID,
		Type:           eventType,
		Payload:        string(body),
		OccurredAt:     at,
	}
	if err := tx.Create(&ev).Error; err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}

// emitStatusChange writes InvoiceStatusChanged when the status moved.
func emitStatusChange(tx *gorm.DB, inv *models.Invoice, from models.InvoiceStatus, at time.Time) error {
	if from == inv.Status {
		return nil
	}
	return emit(tx, inv, models.EventInvoiceStatusChanged, InvoiceStatusChanged{From: from, To: inv.Status}, at)
}

// Outbox reads and acknowledges ledger events for relays.
type Outbox struct {
	db *gorm.DB
}

// NewOutbox creates an Outbox.
func NewOutbox(db *gorm.DB) *Outbox {
	return &Outbox{db: db}
}

// ForInvoice lists the events of one invoice in order of occurrence.
func (o *Outbox) ForInvoice(ctx context.Context, organizationID, invoiceID uint) ([]models.LedgerEvent, error) {
	var events []models.LedgerEvent
	err := o.db.WithContext(ctx).
		Where("organization_id = ? AND invoice_id = ?", organizationID, invoiceID).
		Order("occurred_at ASC").
		Find(&events).Error
	return events, err
}

// Pending returns up to limit unpublished events, oldest first.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]models.LedgerEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.LedgerEvent
	err := o.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("occurred_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// MarkPublished stamps the given events as relayed.
func (o *Outbox) MarkPublished(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return o.db.WithContext(ctx).Model(&models.LedgerEvent{}).
		Where("id IN ?", ids).
		Update("published_at", time.Now()).Error
}
