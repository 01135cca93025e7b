package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/gst-ledger/internal/logger"
	"github.com/diewo77/gst-ledger/internal/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// OverdueSweeper re-evaluates PENDING invoices whose due date has passed.
// Status is otherwise only derived when an invoice is mutated.
type OverdueSweeper struct {
	ledger
}

// NewOverdueSweeper creates an OverdueSweeper.
func NewOverdueSweeper(db *gorm.DB, opts ...Option) *OverdueSweeper {
	return &OverdueSweeper{ledger: newLedger(db, nil, opts)}
}

// Sweep marks every PENDING invoice past its due date as OVERDUE and
// returns how many changed. Each invoice is updated in its own transaction.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	log := logger.WithComponent("overdue-sweep")
	now := s.clock()

	var candidates []models.Invoice
	err := s.db.WithContext(ctx).
		Select("id", "organization_id", "due_date").
		Where("status = ?", models.InvoiceStatusPending).
		Find(&candidates).Error
	if err != nil {
		return 0, fmt.Errorf("find overdue candidates: %w", err)
	}

	changed := 0
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if !pastDue(c.DueDate, now) {
			continue
		}
		moved := false
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			inv, err := s.lockInvoice(tx, c.OrganizationID, c.ID)
			if err != nil {
				return err
			}
			from := inv.Status
			inv.Status = NextStatus(inv.Status, inv.BalanceAmount, inv.PaidAmount, inv.DueDate, now)
			if inv.Status == from {
				return nil
			}
			if err := s.save(tx, inv, now); err != nil {
				return err
			}
			moved = true
			return emitStatusChange(tx, inv, from, now)
		})
		if errors.Is(err, ErrConcurrentModification) {
			continue
		}
		if err != nil {
			log.Error().Err(err).Uint("invoice_id", c.ID).Msg("overdue sweep failed for invoice")
			continue
		}
		if moved {
			changed++
		}
	}

	log.Info().Int("candidates", len(candidates)).Int("changed", changed).Msg("overdue sweep done")
	return changed, nil
}

// Schedule registers the sweep on c with a standard five-field spec.
func (s *OverdueSweeper) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			log := logger.WithComponent("overdue-sweep")
			log.Error().Err(err).Msg("scheduled overdue sweep failed")
		}
	})
}
