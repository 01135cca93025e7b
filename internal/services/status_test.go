package services

import (
	"context"
	"testing"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	due := time.Date(2024, 6, 25, 0, 0, 0, 0, ist)
	before := time.Date(2024, 6, 25, 23, 59, 0, 0, ist)
	after := time.Date(2024, 6, 26, 0, 1, 0, 0, ist)

	tests := []struct {
		name    string
		current models.InvoiceStatus
		balance string
		paid    string
		now     time.Time
		want    models.InvoiceStatus
	}{
		{"draft is sticky", models.InvoiceStatusDraft, "0", "100", after, models.InvoiceStatusDraft},
		{"cancelled is sticky", models.InvoiceStatusCancelled, "100", "0", after, models.InvoiceStatusCancelled},
		{"zero balance is paid", models.InvoiceStatusPending, "0", "100", after, models.InvoiceStatusPaid},
		{"negative balance is paid", models.InvoiceStatusPartiallyPaid, "-0.01", "100.01", before, models.InvoiceStatusPaid},
		{"partly paid before due", models.InvoiceStatusPending, "50", "50", before, models.InvoiceStatusPartiallyPaid},
		{"partly paid wins over overdue", models.InvoiceStatusOverdue, "50", "50", after, models.InvoiceStatusPartiallyPaid},
		{"unpaid on due date", models.InvoiceStatusPending, "100", "0", before, models.InvoiceStatusPending},
		{"unpaid after due date", models.InvoiceStatusPending, "100", "0", after, models.InvoiceStatusOverdue},
		{"overdue back to pending when due moves", models.InvoiceStatusOverdue, "100", "0", due.AddDate(0, 0, -1), models.InvoiceStatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextStatus(tt.current, dec(tt.balance), dec(tt.paid), due, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatusUsesLedgerDay(t *testing.T) {
	due := time.Date(2024, 6, 25, 0, 0, 0, 0, ist)
	lateEvening := time.Date(2024, 6, 25, 17, 0, 0, 0, time.UTC) // 22:30 on the 25th in India
	pastMidnight := time.Date(2024, 6, 25, 20, 0, 0, 0, time.UTC) // 01:30 on the 26th in India

	assert.Equal(t, models.InvoiceStatusPending, NextStatus(models.InvoiceStatusPending, dec("1"), dec("0"), due, lateEvening.In(ist)))
	assert.Equal(t, models.InvoiceStatusOverdue, NextStatus(models.InvoiceStatusPending, dec("1"), dec("0"), due, pastMidnight.In(ist)))
}

func TestDaysOverdue(t *testing.T) {
	due := time.Date(2024, 6, 25, 0, 0, 0, 0, ist)
	assert.Equal(t, 0, DaysOverdue(due, due.Add(23*time.Hour)))
	assert.Equal(t, 1, DaysOverdue(due, due.AddDate(0, 0, 1)))
	assert.Equal(t, 10, DaysOverdue(due, due.AddDate(0, 0, 10).Add(5*time.Hour)))
	assert.Equal(t, 0, DaysOverdue(time.Time{}, due))
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, checkTransition(models.InvoiceStatusDraft, models.InvoiceStatusPending))
	assert.ErrorIs(t, checkTransition(models.InvoiceStatusPending, models.InvoiceStatusPending), ErrInvalidTransition)
	assert.NoError(t, checkTransition(models.InvoiceStatusDraft, models.InvoiceStatusCancelled))
	assert.NoError(t, checkTransition(models.InvoiceStatusPaid, models.InvoiceStatusCancelled))
	assert.ErrorIs(t, checkTransition(models.InvoiceStatusCancelled, models.InvoiceStatusCancelled), ErrInvalidTransition)
	assert.ErrorIs(t, checkTransition(models.InvoiceStatusPending, models.InvoiceStatusPaid), ErrInvalidTransition)
}

func TestOverdueSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := f.finalized(t)
	partly := f.finalized(t)
	f.pay(t, partly, "100", 11)
	paid := f.finalized(t)
	f.pay(t, paid, "11800", 11)

	sweeper := NewOverdueSweeper(f.db, WithClock(func() time.Time { return f.now }), WithLocation(ist))

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is due yet")

	f.now = time.Date(2024, 7, 1, 9, 0, 0, 0, ist)
	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.InvoiceStatusOverdue, f.reload(t, due.ID).Status)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, f.reload(t, partly.ID).Status)
	assert.Equal(t, models.InvoiceStatusPaid, f.reload(t, paid.ID).Status)
	assert.Equal(t, 2, f.eventTypes(t, due.ID)[models.EventInvoiceStatusChanged])

	n, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "sweeping twice changes nothing")

	// a payment on an overdue invoice takes it out of OVERDUE
	res := f.pay(t, due, "100", 30)
	assert.Equal(t, models.InvoiceStatusPartiallyPaid, res.Invoice.Status)
}

func TestOverdueSweepSchedule(t *testing.T) {
	f := newFixture(t)
	sweeper := NewOverdueSweeper(f.db)
	c := cron.New()
	id, err := sweeper.Schedule(c, "15 0 * * *")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = sweeper.Schedule(c, "not a spec")
	assert.Error(t, err)
}
