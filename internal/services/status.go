package services

import (
	"fmt"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// NextStatus derives the status of an invoice from its ledger state.
// DRAFT and CANCELLED are never left by a recomputation; leaving DRAFT takes
// an explicit finalize and CANCELLED is terminal.
//
// Due dates have day granularity: an invoice becomes OVERDUE on the day after
// its due date, in the location of now. A partly paid invoice stays
// PARTIALLY_PAID after its due date.
func NextStatus(current models.InvoiceStatus, balance, paid decimal.Decimal, due, now time.Time) models.InvoiceStatus {
	switch {
	case current == models.InvoiceStatusDraft, current == models.InvoiceStatusCancelled:
		return current
	case !balance.IsPositive():
		return models.InvoiceStatusPaid
	case paid.IsPositive():
		return models.InvoiceStatusPartiallyPaid
	case pastDue(due, now):
		return models.InvoiceStatusOverdue
	default:
		return models.InvoiceStatusPending
	}
}

func pastDue(due, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	return beginningOfDay(now).After(beginningOfDay(due.In(now.Location())))
}

// DaysOverdue is the number of whole days since the due date, or 0.
func DaysOverdue(due, now time.Time) int {
	if !pastDue(due, now) {
		return 0
	}
	start := beginningOfDay(due.In(now.Location()))
	return int(beginningOfDay(now).Sub(start).Hours() / 24)
}

func beginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// checkTransition rejects explicit moves the state machine forbids.
func checkTransition(from, to models.InvoiceStatus) error {
	switch to {
	case models.InvoiceStatusPending:
		if from == models.InvoiceStatusDraft {
			return nil
		}
	case models.InvoiceStatusCancelled:
		if from != models.InvoiceStatusCancelled {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}
