package domain

// Realtime event types pushed to dashboard channels. Delivery is best effort:
// a subscriber that connects late reconciles by polling, not by replay.
const (
	EventPositionsUpdate = "POSITIONS_UPDATE"
	EventMasterPnl       = "MASTER_PNL_UPDATE"
	EventSessionExpired  = "SESSION_EXPIRED"
	EventKill            = "KILL"
)

// Event is the newline-delimited JSON envelope written to dashboard streams.
// Type is always set; the remaining fields are populated per event type.
type Event struct {
	Type       string  `json:"type"`
	UserID     string  `json:"userId,omitempty"`
	MasterID   string  `json:"masterId,omitempty"`
	SessionID  uint    `json:"sessionId,omitempty"`
	Ticket     string  `json:"ticket,omitempty"`
	Symbol     string  `json:"symbol,omitempty"`
	Action     string  `json:"action,omitempty"`
	Volume     float64 `json:"volume,omitempty"`
	Price      float64 `json:"price,omitempty"`
	Profit     float64 `json:"profit,omitempty"`
	NetProfit  float64 `json:"netProfit,omitempty"`
	Balance    float64 `json:"balance,omitempty"`
	Equity     float64 `json:"equity,omitempty"`
	Status     string  `json:"status,omitempty"`
	OccurredAt int64   `json:"occurredAt,omitempty"`
}
