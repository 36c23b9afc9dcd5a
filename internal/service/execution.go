package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
)

// ExecutionService is the poll/ack boundary execution agents talk to. Poll is
// read-only, so a crashed agent simply re-polls the same PENDING items; Ack
// commits the terminal transition together with any realized-PnL bookkeeping.
type ExecutionService struct {
	queue  WorkQueue
	acker  AckApplier
	events EventPublisher
	logger zerolog.Logger
}

func NewExecutionService(queue WorkQueue, acker AckApplier, events EventPublisher, logger zerolog.Logger) *ExecutionService {
	return &ExecutionService{
		queue:  queue,
		acker:  acker,
		events: events,
		logger: logger.With().Str("component", "execution").Logger(),
	}
}

// Poll returns the follower's pending work, oldest first.
func (s *ExecutionService) Poll(ctx context.Context, followerID string) ([]domain.WorkItem, error) {
	if followerID == "" {
		return nil, fmt.Errorf("followerId is required")
	}
	return s.queue.PendingByFollower(ctx, followerID)
}

// Ack applies one execution report. An ack against an already-terminal item
// is a no-op: the agent retried a report we already committed, nothing flips
// and nothing is double-counted.
func (s *ExecutionService) Ack(ctx context.Context, report domain.ExecutionReport) error {
	if report.WorkItemID == 0 {
		return fmt.Errorf("workItemId is required")
	}
	if report.Status != domain.StatusExecuted && report.Status != domain.StatusFailed {
		return fmt.Errorf("invalid status %q", report.Status)
	}

	item, err := s.acker.Apply(ctx, report.WorkItemID, report.Status, report.Ticket, report.Message, func(item domain.WorkItem) *domain.TradeHistoryRecord {
		return followerHistoryFromReport(item, report)
	})
	if errors.Is(err, store.ErrTerminal) {
		s.logger.Info().Uint64("workItem", report.WorkItemID).Msg("ack for terminal work item ignored")
		return nil
	}
	if err != nil {
		return err
	}

	s.publishAckEvents(ctx, item, report)
	return nil
}

// followerHistoryFromReport decides whether the ack carries realized PnL. Only
// a genuine CLOSE fill books history: the synthetic already-closed marker
// means the position was gone before the copier could act and must not touch
// history or shadow equity.
func followerHistoryFromReport(item domain.WorkItem, report domain.ExecutionReport) *domain.TradeHistoryRecord {
	if item.Action != domain.ActionClose || report.Status != domain.StatusExecuted {
		return nil
	}
	if report.Ticket == "" || report.Ticket == domain.AlreadyClosedTicket {
		return nil
	}
	return &domain.TradeHistoryRecord{
		OwnerID:    item.FollowerID,
		Ticket:     report.Ticket,
		Symbol:     item.Symbol,
		Type:       report.Type,
		Volume:     report.Volume,
		OpenPrice:  report.OpenPrice,
		ClosePrice: report.ClosePrice,
		OpenTime:   report.OpenTime,
		CloseTime:  report.CloseTime,
		Profit:     report.Profit,
		Commission: report.Commission,
		Swap:       report.Swap,
		NetProfit:  report.Profit + report.Commission + report.Swap,
	}
}

// publishAckEvents pushes the state change to the follower's dashboard and,
// for realized PnL, to the master's. Best effort: a dropped event costs a
// dashboard refresh, never correctness.
func (s *ExecutionService) publishAckEvents(ctx context.Context, item domain.WorkItem, report domain.ExecutionReport) {
	now := time.Now().UnixMilli()
	ev := domain.Event{
		Type:       domain.EventPositionsUpdate,
		UserID:     item.FollowerID,
		MasterID:   item.MasterID,
		Ticket:     item.Ticket,
		Symbol:     item.Symbol,
		Action:     item.Action,
		Volume:     item.Volume,
		Status:     item.Status,
		OccurredAt: now,
	}
	if err := s.events.Publish(ctx, bus.EventChannel(item.FollowerID), ev); err != nil {
		s.logger.Warn().Err(err).Str("follower", item.FollowerID).Msg("publish positions update failed")
	}

	if rec := followerHistoryFromReport(item, report); rec != nil {
		pnl := domain.Event{
			Type:       domain.EventMasterPnl,
			UserID:     item.FollowerID,
			MasterID:   item.MasterID,
			Ticket:     item.Ticket,
			Symbol:     item.Symbol,
			Profit:     rec.Profit,
			NetProfit:  rec.NetProfit,
			OccurredAt: now,
		}
		if err := s.events.Publish(ctx, bus.EventChannel(item.MasterID), pnl); err != nil {
			s.logger.Warn().Err(err).Str("master", item.MasterID).Msg("publish pnl update failed")
		}
	}
}
