package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// WorkQueueStore is the persisted per-follower execution queue. Rows are
// created PENDING by the smart router and resolved exactly once through the
// ack protocol; the unique index on (follower_id, ticket, action) is the
// idempotency barrier against redelivered signals.
type WorkQueueStore struct {
	db *gorm.DB
}

func NewWorkQueueStore(db *gorm.DB) *WorkQueueStore {
	return &WorkQueueStore{db: db}
}

// Exists reports whether a work item already holds the idempotency key.
func (s *WorkQueueStore) Exists(ctx context.Context, followerID, ticket, action string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&domain.WorkItem{}).
		Where("follower_id = ? AND ticket = ? AND action = ?", followerID, ticket, action).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count work items: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new PENDING item. A collision on the idempotency key maps
// to ErrDuplicateWork so callers can skip silently: two routers racing on a
// redelivered signal both believe they won, and only one row exists.
func (s *WorkQueueStore) Create(ctx context.Context, item *domain.WorkItem) error {
	item.Status = domain.StatusPending
	err := s.db.WithContext(ctx).Create(item).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateWork
	}
	if err != nil {
		return fmt.Errorf("create work item %s/%s/%s: %w", item.FollowerID, item.Ticket, item.Action, err)
	}
	return nil
}

// PendingByFollower returns the follower's PENDING items oldest first, so an
// agent always sees an OPEN before the CLOSE of the same ticket.
func (s *WorkQueueStore) PendingByFollower(ctx context.Context, followerID string) ([]domain.WorkItem, error) {
	var items []domain.WorkItem
	err := s.db.WithContext(ctx).
		Where("follower_id = ? AND status = ?", followerID, domain.StatusPending).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load pending work for %s: %w", followerID, err)
	}
	return items, nil
}
