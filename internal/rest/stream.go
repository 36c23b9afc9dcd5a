package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/bus"
	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// EventPublisher pushes envelopes onto a channel.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, ev domain.Event) error
}

// EventSubscriber opens a live subscription on a channel.
type EventSubscriber interface {
	Subscribe(ctx context.Context, channel string) *bus.Subscription
}

// StreamController serves the dashboard event stream and the emergency-stop
// command. One connection per authenticated user, subscribed to that user's
// channel; messages are newline-delimited JSON envelopes.
type StreamController struct {
	events EventPublisher
	subs   EventSubscriber
	logger zerolog.Logger
}

func NewStreamController(events EventPublisher, subs EventSubscriber, logger zerolog.Logger) *StreamController {
	return &StreamController{
		events: events,
		subs:   subs,
		logger: logger.With().Str("component", "stream-api").Logger(),
	}
}

func (c *StreamController) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/stream", userIdentity())
	auth.GET("", c.handleStream)
	auth.POST("/kill", c.handleKill)
}

// handleStream pumps the user's channel to the connection until either side
// disconnects. No replay: events published before the subscription existed
// are gone, and clients reconcile by polling.
func (c *StreamController) handleStream(ctx *gin.Context) {
	userID := ctx.GetString("userID")

	sub := c.subs.Subscribe(ctx.Request.Context(), bus.EventChannel(userID))
	defer sub.Close()

	ctx.Header("Content-Type", "application/x-ndjson")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Status(http.StatusOK)

	msgs := sub.Messages()
	done := ctx.Request.Context().Done()
	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-done:
			return false
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			if _, err := w.Write(append([]byte(msg.Payload), '\n')); err != nil {
				return false
			}
			return true
		}
	})
}

type killRequest struct {
	FollowerID string `json:"followerId"`
}

// handleKill publishes a KILL command to the follower's control channel. The
// execution agent consumes it; the core itself takes no action.
func (c *StreamController) handleKill(ctx *gin.Context) {
	var req killRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.FollowerID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "followerId is required"})
		return
	}

	ev := domain.Event{
		Type:       domain.EventKill,
		UserID:     req.FollowerID,
		OccurredAt: time.Now().UnixMilli(),
	}
	if err := c.events.Publish(ctx.Request.Context(), bus.ControlChannel(req.FollowerID), ev); err != nil {
		c.logger.Error().Err(err).Str("follower", req.FollowerID).Msg("publish kill failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "kill not delivered"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sent": true})
}
