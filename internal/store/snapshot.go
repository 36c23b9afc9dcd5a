package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// SnapshotStore holds the latest bridge-reported balance/equity per account.
type SnapshotStore struct {
	db *gorm.DB
}

func NewSnapshotStore(db *gorm.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Upsert replaces the account's snapshot with the latest report.
func (s *SnapshotStore) Upsert(ctx context.Context, snap domain.BrokerSnapshot) error {
	snap.UpdatedAt = time.Now().UTC()
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "equity", "updated_at"}),
	}).Create(&snap).Error
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", snap.UserID, err)
	}
	return nil
}

// Get returns the account's snapshot, or ErrNotFound when the bridge has
// never reported for it.
func (s *SnapshotStore) Get(ctx context.Context, userID string) (domain.BrokerSnapshot, error) {
	var snap domain.BrokerSnapshot
	err := s.db.WithContext(ctx).First(&snap, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.BrokerSnapshot{}, ErrNotFound
	}
	if err != nil {
		return domain.BrokerSnapshot{}, fmt.Errorf("load snapshot %s: %w", userID, err)
	}
	return snap, nil
}
