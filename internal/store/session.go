package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// SessionStore reads and mutates copy sessions. Session creation and
// cancellation belong to the web application; the core only routes against
// active sessions, accrues shadow equity, and flips the expiry flag.
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

// ActiveByMaster returns every active session subscribed to the master.
// Duplicate (follower, master) sessions are returned as-is; the work queue's
// idempotency key collapses their output.
func (s *SessionStore) ActiveByMaster(ctx context.Context, masterID string) ([]domain.CopySession, error) {
	var sessions []domain.CopySession
	err := s.db.WithContext(ctx).
		Where("master_id = ? AND is_active = ?", masterID, true).
		Order("id ASC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load sessions for master %s: %w", masterID, err)
	}
	return sessions, nil
}

// DeactivateExpired flips every active, non-renewing session past its expiry
// and returns the sessions it deactivated so the caller can notify followers.
func (s *SessionStore) DeactivateExpired(ctx context.Context, now time.Time) ([]domain.CopySession, error) {
	var expired []domain.CopySession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("is_active = ? AND auto_renew = ? AND expiry > ? AND expiry <= ?", true, false, time.Time{}, now).
			Find(&expired).Error; err != nil {
			return err
		}
		if len(expired) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(expired))
		for _, sess := range expired {
			ids = append(ids, sess.ID)
		}
		return tx.Model(&domain.CopySession{}).
			Where("id IN ?", ids).
			Update("is_active", false).Error
	})
	if err != nil {
		return nil, fmt.Errorf("deactivate expired sessions: %w", err)
	}
	return expired, nil
}
