package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// HistoryStore persists realized-PnL records, one per (owner, ticket).
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// UpsertMasterClose records a master's own closed trade. Bridges occasionally
// report a close before the fill price settles, so a record persisted with a
// zero close price may be healed exactly once when a later event for the same
// ticket carries a real price; only close_price and net_profit change. Any
// other existing record is left untouched.
func (s *HistoryStore) UpsertMasterClose(ctx context.Context, rec domain.TradeHistoryRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.TradeHistoryRecord
		err := tx.Where("owner_id = ? AND ticket = ?", rec.OwnerID, rec.Ticket).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A concurrent router racing on the same ticket loses on the
			// unique index; the signal is redelivered and lands in the heal
			// branch next time.
			return tx.Create(&rec).Error
		}
		if err != nil {
			return err
		}
		if existing.ClosePrice == 0 && rec.ClosePrice != 0 {
			return tx.Model(&domain.TradeHistoryRecord{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"close_price": rec.ClosePrice,
					"net_profit":  rec.NetProfit,
				}).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert master history %s/%s: %w", rec.OwnerID, rec.Ticket, err)
	}
	return nil
}

// CreateFollower records a follower's closed trade from an execution report.
// Follower records are written once and never healed; a duplicate insert maps
// to ErrDuplicateWork.
func (s *HistoryStore) CreateFollower(ctx context.Context, rec domain.TradeHistoryRecord) error {
	err := s.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateWork
	}
	if err != nil {
		return fmt.Errorf("create follower history %s/%s: %w", rec.OwnerID, rec.Ticket, err)
	}
	return nil
}

// ByOwner returns an owner's realized trades, newest close first.
func (s *HistoryStore) ByOwner(ctx context.Context, ownerID string) ([]domain.TradeHistoryRecord, error) {
	var recs []domain.TradeHistoryRecord
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("close_time DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", ownerID, err)
	}
	return recs, nil
}
