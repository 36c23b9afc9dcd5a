package domain

import "time"

// Trade actions as reported by the bridge.
const (
	ActionOpen   = "OPEN"
	ActionModify = "MODIFY"
	ActionClose  = "CLOSE"
)

// WorkItem lifecycle states. PENDING is initial, the other two are terminal.
const (
	StatusPending  = "PENDING"
	StatusExecuted = "EXECUTED"
	StatusFailed   = "FAILED"
)

// AlreadyClosedTicket is the synthetic executed-ticket marker an agent reports
// when it finds the position already closed by other means. It acknowledges the
// work item but must never produce a history record or equity change.
const AlreadyClosedTicket = "ALREADY_CLOSED"

// RawSignal is one trade event emitted by the master's bridge. Immutable once
// appended to the ingestion log.
type RawSignal struct {
	MasterID string `json:"masterId"`
	Ticket   string `json:"ticket"`
	Symbol   string `json:"symbol"`
	Action   string `json:"action"`
	Type     string `json:"type,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	SL       float64 `json:"sl,omitempty"`
	TP       float64 `json:"tp,omitempty"`

	// CLOSE-only fields.
	OpenPrice  float64 `json:"openPrice,omitempty"`
	OpenTime   int64   `json:"openTime,omitempty"`
	Profit     float64 `json:"profit,omitempty"`
	Swap       float64 `json:"swap,omitempty"`
	Commission float64 `json:"commission,omitempty"`
	CloseTime  int64   `json:"closeTime,omitempty"`
}

// CopySession binds one follower to one master. Lifecycle (create, cancel) is
// owned by the web application; the core reads sessions for routing and
// mutates only CurrentEquity and expiry deactivation.
type CopySession struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FollowerID    string    `gorm:"index:idx_sessions_follower" json:"followerId"`
	MasterID      string    `gorm:"index:idx_sessions_master,priority:1" json:"masterId"`
	Allocation    float64   `json:"allocation"`
	RiskFactor    float64   `json:"riskFactor"`
	IsActive      bool      `gorm:"index:idx_sessions_master,priority:2" json:"isActive"`
	InvertCopy    bool      `json:"invertCopy"`
	AutoRenew     bool      `json:"autoRenew"`
	Expiry        time.Time `json:"expiry"`
	CurrentEquity float64   `json:"currentEquity"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// WorkItem is one queued per-follower action awaiting execution by an agent.
// (FollowerID, Ticket, Action) is the idempotency key.
type WorkItem struct {
	ID         uint64 `gorm:"primaryKey" json:"id"`
	FollowerID string `gorm:"uniqueIndex:ux_work_dedupe,priority:1;index:idx_work_poll,priority:1" json:"followerId"`
	MasterID   string `json:"masterId"`
	Ticket     string `gorm:"uniqueIndex:ux_work_dedupe,priority:2" json:"ticket"`
	Symbol     string `json:"symbol"`
	Action     string `gorm:"uniqueIndex:ux_work_dedupe,priority:3" json:"action"`
	Type       string `json:"type"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	SL         float64 `json:"sl"`
	TP         float64 `json:"tp"`

	Status         string    `gorm:"index:idx_work_poll,priority:2" json:"status"`
	ExecutedTicket string    `json:"executedTicket,omitempty"`
	ErrorMessage   string    `json:"errorMessage,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Terminal reports whether the item has reached a final state.
func (w WorkItem) Terminal() bool {
	return w.Status == StatusExecuted || w.Status == StatusFailed
}

// TradeHistoryRecord is a realized-PnL record. A master's own closed trade is
// stored self-referentially (OwnerID = master id); a follower's closed trade
// is created from the agent's execution report.
type TradeHistoryRecord struct {
	ID         uint64  `gorm:"primaryKey" json:"id"`
	OwnerID    string  `gorm:"uniqueIndex:ux_history_owner_ticket,priority:1" json:"ownerId"`
	Ticket     string  `gorm:"uniqueIndex:ux_history_owner_ticket,priority:2" json:"ticket"`
	Symbol     string  `json:"symbol"`
	Type       string  `json:"type"`
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"openPrice"`
	ClosePrice float64 `json:"closePrice"`
	OpenTime   int64   `json:"openTime"`
	CloseTime  int64   `json:"closeTime"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	NetProfit  float64 `json:"netProfit"`

	CreatedAt time.Time `json:"createdAt"`
}

// BrokerSnapshot is the latest known balance/equity per account, pushed by the
// bridge. Sizing input only.
type BrokerSnapshot struct {
	UserID    string    `gorm:"primaryKey" json:"userId"`
	Balance   float64   `json:"balance"`
	Equity    float64   `json:"equity"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExecutionReport is the ack body an agent submits after attempting a work
// item. Ticket values travel as strings end to end; broker tickets overflow
// float64-safe integers.
type ExecutionReport struct {
	WorkItemID   uint64  `json:"workItemId"`
	FollowerID   string  `json:"followerId"`
	MasterID     string  `json:"masterId"`
	MasterTicket string  `json:"masterTicket"`
	Ticket       string  `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Type         string  `json:"type"`
	Action       string  `json:"action"`
	Volume       float64 `json:"volume"`
	Price        float64 `json:"price"`
	Profit       float64 `json:"profit"`
	Commission   float64 `json:"commission"`
	Swap         float64 `json:"swap"`
	OpenPrice    float64 `json:"openPrice"`
	OpenTime     int64   `json:"openTime"`
	ClosePrice   float64 `json:"closePrice"`
	CloseTime    int64   `json:"closeTime"`
	Status       string  `json:"status"`
	Message      string  `json:"message,omitempty"`
}
