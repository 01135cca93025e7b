package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SequenceKind separates the draft counter from the final-number counter.
type SequenceKind string

const (
	SequenceDraft SequenceKind = "draft"
	SequenceFinal SequenceKind = "final"
)

// SequenceCounter holds the next number for one numbering key. It is only
// ever incremented, never decremented or reset.
type SequenceCounter struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID uint         `gorm:"not null;uniqueIndex:idx_sequence_key,priority:1" json:"organization_id"`
	Kind           SequenceKind `gorm:"size:10;not null;uniqueIndex:idx_sequence_key,priority:2" json:"kind"`
	GSTINKey       string       `gorm:"column:gstin_key;size:15;not null;uniqueIndex:idx_sequence_key,priority:3" json:"gstin_key"`
	FinancialYear  string       `gorm:"size:10;not null;uniqueIndex:idx_sequence_key,priority:4" json:"financial_year"`

	NextNumber int64 `gorm:"not null" json:"next_number"`
}

// Ledger event types.
const (
	EventInvoiceFinalized     = "InvoiceFinalized"
	EventPaymentRecorded      = "PaymentRecorded"
	EventPaymentReversed      = "PaymentReversed"
	EventInvoiceStatusChanged = "InvoiceStatusChanged"
)

// LedgerEvent is an outbox row written in the same transaction as the
// mutation it describes. PublishedAt is set by whoever relays it.
type LedgerEvent struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uint       `gorm:"index;not null" json:"organization_id"`
	InvoiceID      uint       `gorm:"index;not null" json:"invoice_id"`
	Type           string     `gorm:"size:50;not null;index" json:"type"`
	Payload        string     `gorm:"type:text;not null" json:"payload"`
	OccurredAt     time.Time  `gorm:"not null" json:"occurred_at"`
	PublishedAt    *time.Time `gorm:"index" json:"published_at,omitempty"`
}

// BeforeCreate assigns a random id when none is set.
func (e *LedgerEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// All returns every model managed by AutoMigrate, parents first.
func All() []any {
	return []any{
		&Organization{},
		&GstinProfile{},
		&Client{},
		&Invoice{},
		&InvoiceItem{},
		&PaymentEntry{},
		&SequenceCounter{},
		&LedgerEvent{},
	}
}
