package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/numbers"
)

// SignalAppender is the ingestion log surface the intake needs.
type SignalAppender interface {
	Append(ctx context.Context, sig domain.RawSignal) (string, error)
}

// SnapshotWriter persists bridge equity reports.
type SnapshotWriter interface {
	Upsert(ctx context.Context, snap domain.BrokerSnapshot) error
}

// BridgeController terminates the broker-bridge endpoints: trade signals and
// equity snapshots. The intake response acknowledges durable receipt only;
// routing happens downstream of the log.
type BridgeController struct {
	log    SignalAppender
	snaps  SnapshotWriter
	events EventPublisher
	logger zerolog.Logger
}

func NewBridgeController(log SignalAppender, snaps SnapshotWriter, events EventPublisher, logger zerolog.Logger) *BridgeController {
	return &BridgeController{
		log:    log,
		snaps:  snaps,
		events: events,
		logger: logger.With().Str("component", "bridge-api").Logger(),
	}
}

func (c *BridgeController) RegisterRoutes(rg *gin.RouterGroup, secret string) {
	auth := rg.Group("/bridge", sharedSecret(secret))
	auth.POST("/signal", c.handleSignal)
	auth.POST("/equity", c.handleEquity)
}

// signalRequest mirrors the bridge wire format. Scalars are decoded as
// json.Number so large tickets survive and string-encoded numerics are
// tolerated.
type signalRequest struct {
	MasterID string `json:"masterId"`
	Ticket   any    `json:"ticket"`
	Symbol   string `json:"symbol"`
	Action   string `json:"action"`
	Type     string `json:"type"`
	Price    any    `json:"price"`
	Volume   any    `json:"volume"`
	SL       any    `json:"sl"`
	TP       any    `json:"tp"`

	OpenPrice  any `json:"openPrice"`
	OpenTime   any `json:"openTime"`
	Profit     any `json:"profit"`
	Swap       any `json:"swap"`
	Commission any `json:"commission"`
	CloseTime  any `json:"closeTime"`
}

func (c *BridgeController) handleSignal(ctx *gin.Context) {
	dec := json.NewDecoder(ctx.Request.Body)
	dec.UseNumber()
	var req signalRequest
	if err := dec.Decode(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sig, err := req.toSignal()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	id, err := c.log.Append(reqCtx, sig)
	if err != nil {
		c.logger.Error().Err(err).Str("master", sig.MasterID).Str("ticket", sig.Ticket).Msg("append signal failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "signal not accepted"})
		return
	}

	// Receipt only; downstream routing outcome is not part of this response.
	ctx.JSON(http.StatusOK, gin.H{"accepted": true, "entryId": id})
}

func (r signalRequest) toSignal() (domain.RawSignal, error) {
	var missing []string
	if r.MasterID == "" {
		missing = append(missing, "masterId")
	}
	if r.Symbol == "" {
		missing = append(missing, "symbol")
	}
	switch r.Action {
	case domain.ActionOpen, domain.ActionModify, domain.ActionClose:
	default:
		missing = append(missing, "action")
	}
	ticket, err := numbers.ExtractTicket(r.Ticket)
	if err != nil {
		missing = append(missing, "ticket")
	}
	if len(missing) > 0 {
		return domain.RawSignal{}, &validationError{fields: missing}
	}

	sig := domain.RawSignal{
		MasterID: r.MasterID,
		Ticket:   ticket,
		Symbol:   r.Symbol,
		Action:   r.Action,
		Type:     r.Type,
	}
	sig.Price, _ = numbers.ExtractFloat(r.Price)
	sig.Volume, _ = numbers.ExtractFloat(r.Volume)
	sig.SL, _ = numbers.ExtractFloat(r.SL)
	sig.TP, _ = numbers.ExtractFloat(r.TP)
	sig.OpenPrice, _ = numbers.ExtractFloat(r.OpenPrice)
	sig.OpenTime, _ = numbers.ExtractInt(r.OpenTime)
	sig.Profit, _ = numbers.ExtractFloat(r.Profit)
	sig.Swap, _ = numbers.ExtractFloat(r.Swap)
	sig.Commission, _ = numbers.ExtractFloat(r.Commission)
	sig.CloseTime, _ = numbers.ExtractInt(r.CloseTime)
	return sig, nil
}

type validationError struct {
	fields []string
}

func (e *validationError) Error() string {
	msg := "missing or invalid fields:"
	for _, f := range e.fields {
		msg += " " + f
	}
	return msg
}

type equityRequest struct {
	UserID  string `json:"userId"`
	Balance any    `json:"balance"`
	Equity  any    `json:"equity"`
}

func (c *BridgeController) handleEquity(ctx *gin.Context) {
	dec := json.NewDecoder(ctx.Request.Body)
	dec.UseNumber()
	var req equityRequest
	if err := dec.Decode(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.UserID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	balance, err := numbers.ExtractFloat(req.Balance)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "balance is required"})
		return
	}
	equity, _ := numbers.ExtractFloat(req.Equity)

	snap := domain.BrokerSnapshot{UserID: req.UserID, Balance: balance, Equity: equity}
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	if err := c.snaps.Upsert(reqCtx, snap); err != nil {
		c.logger.Error().Err(err).Str("user", req.UserID).Msg("upsert snapshot failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot not accepted"})
		return
	}

	// Dashboards track balance changes without polling.
	ev := domain.Event{
		Type:       domain.EventPositionsUpdate,
		UserID:     req.UserID,
		Balance:    balance,
		Equity:     equity,
		OccurredAt: time.Now().UnixMilli(),
	}
	if err := c.events.Publish(reqCtx, bus.EventChannel(req.UserID), ev); err != nil {
		c.logger.Warn().Err(err).Str("user", req.UserID).Msg("publish equity update failed")
	}

	ctx.Status(http.StatusNoContent)
}
