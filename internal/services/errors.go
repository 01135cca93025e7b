package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/gst-ledger/internal/sequence"
	"github.com/diewo77/gst-ledger/internal/tax"
)

// Error kinds returned by the ledger. Callers match them with errors.Is.
var (
	ErrInvalidTaxInput        = tax.ErrInvalidTaxInput
	ErrDuplicateInvoiceNumber = sequence.ErrDuplicateInvoiceNumber
	ErrSequenceExhausted      = sequence.ErrSequenceExhausted

	ErrOverpayment            = errors.New("payment exceeds invoice balance")
	ErrImmutableEntry         = errors.New("gateway payment entries cannot be edited or reversed")
	ErrSignatureMismatch      = errors.New("gateway signature mismatch")
	ErrNotFound               = errors.New("not found")
	ErrInvoiceNotPayable      = errors.New("invoice does not accept payments")
	ErrInvalidPayment         = errors.New("invalid payment")
	ErrInvalidInvoice         = errors.New("invalid invoice")
	ErrInvalidTransition      = errors.New("invalid invoice status transition")
	ErrConcurrentModification = errors.New("invoice was modified concurrently")
)

// LedgerError wraps a rejected ledger operation. Snapshot is the invoice
// state after the rejection, which is the state before the attempt since
// nothing was applied.
type LedgerError struct {
	// Op is the operation that failed (e.g. "RecordPayment").
	Op string

	// Err is the underlying error kind.
	Err error

	// Snapshot is nil when the invoice could not be loaded.
	Snapshot *Snapshot
}

// Error implements the error interface.
func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *LedgerError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// SnapshotOf extracts the snapshot carried by a ledger rejection, if any.
func SnapshotOf(err error) *Snapshot {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Snapshot
	}
	return nil
}

func wrapLedgerError(op string, err error, snap *Snapshot) error {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		if le.Snapshot == nil {
			le.Snapshot = snap
		}
		return err
	}
	return &LedgerError{Op: op, Err: err, Snapshot: snap}
}
