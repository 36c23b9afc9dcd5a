package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/numbers"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/store"
)

// ExecutionAPI is the poll/ack service surface.
type ExecutionAPI interface {
	Poll(ctx context.Context, followerID string) ([]domain.WorkItem, error)
	Ack(ctx context.Context, report domain.ExecutionReport) error
}

// AgentController terminates the execution-agent endpoints.
type AgentController struct {
	exec   ExecutionAPI
	logger zerolog.Logger
}

func NewAgentController(exec ExecutionAPI, logger zerolog.Logger) *AgentController {
	return &AgentController{
		exec:   exec,
		logger: logger.With().Str("component", "agent-api").Logger(),
	}
}

func (c *AgentController) RegisterRoutes(rg *gin.RouterGroup, secret string) {
	auth := rg.Group("/agent", sharedSecret(secret))
	auth.GET("/work", c.handlePoll)
	auth.POST("/report", c.handleReport)
}

// workItemResponse serializes tickets as strings; broker tickets overflow
// what dashboard and agent JSON parsers keep exact in a number.
type workItemResponse struct {
	ID         string  `json:"id"`
	FollowerID string  `json:"followerId"`
	MasterID   string  `json:"masterId"`
	Ticket     string  `json:"ticket"`
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Type       string  `json:"type"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	SL         float64 `json:"sl"`
	TP         float64 `json:"tp"`
	Status     string  `json:"status"`
	CreatedAt  int64   `json:"createdAt"`
}

func (c *AgentController) handlePoll(ctx *gin.Context) {
	followerID := ctx.Query("followerId")
	if followerID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "followerId is required"})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	items, err := c.exec.Poll(reqCtx, followerID)
	if err != nil {
		c.logger.Error().Err(err).Str("follower", followerID).Msg("poll failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "poll failed"})
		return
	}

	out := make([]workItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, workItemResponse{
			ID:         strconv.FormatUint(item.ID, 10),
			FollowerID: item.FollowerID,
			MasterID:   item.MasterID,
			Ticket:     item.Ticket,
			Symbol:     item.Symbol,
			Action:     item.Action,
			Type:       item.Type,
			Volume:     item.Volume,
			Price:      item.Price,
			SL:         item.SL,
			TP:         item.TP,
			Status:     item.Status,
			CreatedAt:  item.CreatedAt.UnixMilli(),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"items": out})
}

// reportRequest is the ack wire format. Ticket-ish fields tolerate number or
// string encoding; workItemId is the string id handed out by the poll.
type reportRequest struct {
	WorkItemID   any    `json:"workItemId"`
	FollowerID   string `json:"followerId"`
	MasterID     string `json:"masterId"`
	MasterTicket any    `json:"masterTicket"`
	Ticket       any    `json:"ticket"`
	Symbol       string `json:"symbol"`
	Type         string `json:"type"`
	Action       string `json:"action"`
	Volume       any    `json:"volume"`
	Price        any    `json:"price"`
	Profit       any    `json:"profit"`
	Commission   any    `json:"commission"`
	Swap         any    `json:"swap"`
	OpenPrice    any    `json:"openPrice"`
	OpenTime     any    `json:"openTime"`
	ClosePrice   any    `json:"closePrice"`
	CloseTime    any    `json:"closeTime"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

func (c *AgentController) handleReport(ctx *gin.Context) {
	dec := json.NewDecoder(ctx.Request.Body)
	dec.UseNumber()
	var req reportRequest
	if err := dec.Decode(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := numbers.ExtractInt(req.WorkItemID)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "workItemId is required"})
		return
	}
	if req.Status != domain.StatusExecuted && req.Status != domain.StatusFailed {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "status must be EXECUTED or FAILED"})
		return
	}

	report := domain.ExecutionReport{
		WorkItemID: uint64(id),
		FollowerID: req.FollowerID,
		MasterID:   req.MasterID,
		Symbol:     req.Symbol,
		Type:       req.Type,
		Action:     req.Action,
		Status:     req.Status,
		Message:    req.Message,
	}
	report.MasterTicket, _ = numbers.ExtractTicket(req.MasterTicket)
	report.Ticket, _ = numbers.ExtractTicket(req.Ticket)
	report.Volume, _ = numbers.ExtractFloat(req.Volume)
	report.Price, _ = numbers.ExtractFloat(req.Price)
	report.Profit, _ = numbers.ExtractFloat(req.Profit)
	report.Commission, _ = numbers.ExtractFloat(req.Commission)
	report.Swap, _ = numbers.ExtractFloat(req.Swap)
	report.OpenPrice, _ = numbers.ExtractFloat(req.OpenPrice)
	report.OpenTime, _ = numbers.ExtractInt(req.OpenTime)
	report.ClosePrice, _ = numbers.ExtractFloat(req.ClosePrice)
	report.CloseTime, _ = numbers.ExtractInt(req.CloseTime)

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 10*time.Second)
	defer cancel()
	if err := c.exec.Ack(reqCtx, report); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "work item not found"})
			return
		}
		c.logger.Error().Err(err).Uint64("workItem", report.WorkItemID).Msg("ack failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "ack failed"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"acknowledged": true})
}
