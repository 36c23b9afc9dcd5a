package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// HistoryDecision inspects the resolved work item and returns the follower
// history record to persist, or nil when the ack carries no realized PnL
// (non-CLOSE actions, failures, synthetic already-closed markers). The rule
// itself lives in the service layer; this package only makes it atomic.
type HistoryDecision func(item domain.WorkItem) *domain.TradeHistoryRecord

// AckStore commits an execution report in one transaction: the terminal-
// guarded status flip, the optional follower history record, and the shadow
// equity increment on the owning session. Either all of it lands or none of
// it does; a request that dies mid-ack leaves the item PENDING for re-poll.
type AckStore struct {
	db *gorm.DB
}

func NewAckStore(db *gorm.DB) *AckStore {
	return &AckStore{db: db}
}

// Apply resolves the work item and applies the decided history/equity
// effects. ErrTerminal when the item was already resolved, ErrNotFound when
// it does not exist.
func (s *AckStore) Apply(ctx context.Context, id uint64, status, executedTicket, message string, decide HistoryDecision) (domain.WorkItem, error) {
	var item domain.WorkItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.WorkItem{}).
			Where("id = ? AND status = ?", id, domain.StatusPending).
			Updates(map[string]any{
				"status":          status,
				"executed_ticket": executedTicket,
				"error_message":   message,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&domain.WorkItem{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return ErrNotFound
			}
			return ErrTerminal
		}
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			return err
		}

		rec := decide(item)
		if rec == nil {
			return nil
		}
		// Existence check rather than catching the unique violation: a failed
		// insert would abort the Postgres transaction and take the status
		// flip down with it.
		var booked int64
		if err := tx.Model(&domain.TradeHistoryRecord{}).
			Where("owner_id = ? AND ticket = ?", rec.OwnerID, rec.Ticket).
			Count(&booked).Error; err != nil {
			return err
		}
		if booked > 0 {
			return nil
		}
		if err := tx.Create(rec).Error; err != nil {
			return err
		}
		// Shadow equity ledger: one atomic increment on the active session.
		// Zero matched rows means the session expired between open and close;
		// realized PnL is not attributed retroactively.
		return tx.Model(&domain.CopySession{}).
			Where("follower_id = ? AND master_id = ? AND is_active = ?", item.FollowerID, item.MasterID, true).
			UpdateColumn("current_equity", gorm.Expr("current_equity + ?", rec.NetProfit)).Error
	})
	if err != nil {
		if errors.Is(err, ErrTerminal) || errors.Is(err, ErrNotFound) {
			return domain.WorkItem{}, err
		}
		return domain.WorkItem{}, fmt.Errorf("apply ack for work item %d: %w", id, err)
	}
	return item, nil
}
