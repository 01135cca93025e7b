package sequence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/diewo77/gst-ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMax is the largest number a counter hands out.
const DefaultMax int64 = math.MaxInt32

// GormStore keeps counters in the sequence_counters table. Pass a transaction
// handle to make allocation part of a larger unit of work: a rollback then
// returns the number to the counter, keeping the sequence gap-free.
type GormStore struct {
	db      *gorm.DB
	ceiling int64
}

// NewGormStore creates a store over db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, ceiling: DefaultMax}
}

// WithMax returns a copy of the store with a different ceiling.
func (s *GormStore) WithMax(ceiling int64) *GormStore {
	return &GormStore{db: s.db, ceiling: ceiling}
}

// Next creates the counter at start if missing, then increments it with a
// single conditional UPDATE and reads back the consumed value.
func (s *GormStore) Next(ctx context.Context, key Key, start int64) (int64, error) {
	var consumed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.SequenceCounter{
			OrganizationID: key.OrganizationID,
			Kind:           key.Kind,
			GSTINKey:       key.GSTINKey,
			FinancialYear:  key.FinancialYear,
			NextNumber:     start,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return fmt.Errorf("seed counter %s: %w", key, err)
		}

		res := tx.Model(&models.SequenceCounter{}).
			Where(keyWhere(key)).
			Where("next_number <= ?", s.ceiling).
			Updates(map[string]any{
				"next_number": gorm.Expr("next_number + 1"),
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("increment counter %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrSequenceExhausted, key)
		}

		var c models.SequenceCounter
		if err := tx.Where(keyWhere(key)).Take(&c).Error; err != nil {
			return fmt.Errorf("read counter %s: %w", key, err)
		}
		consumed = c.NextNumber - 1
		return nil
	})
	if err != nil {
		return 0, err
	}
	return consumed, nil
}

// NumberTaken reports whether the organization already issued number.
func (s *GormStore) NumberTaken(ctx context.Context, organizationID uint, number string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("organization_id = ? AND invoice_number = ?", organizationID, number).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func keyWhere(key Key) map[string]any {
	return map[string]any{
		"organization_id": key.OrganizationID,
		"kind":            key.Kind,
		"gstin_key":       key.GSTINKey,
		"financial_year":  key.FinancialYear,
	}
}
