package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yousefmohseen/chatroom/internal/core"
	"github.com/yousefmohseen/chatroom/internal/proto"
)

// APIHandlers provides read-only HTTP endpoints over the room.
type APIHandlers struct {
	hub core.Hub
	log *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(hub core.Hub, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{hub: hub, log: logger}
}

// StateResponse mirrors the init push a joining client receives.
type StateResponse struct {
	Protocol int             `json:"protocol"`
	Online   []string        `json:"online"`
	Messages []proto.Message `json:"messages"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// State returns who is online and the recent history.
// GET /api/state
func (h *APIHandlers) State(c *gin.Context) {
	snap, err := h.hub.Snapshot(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to snapshot room")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "room unavailable"})
		return
	}
	c.JSON(http.StatusOK, StateResponse{
		Protocol: proto.ProtocolVersion,
		Online:   nonNil(snap.Online),
		Messages: toProtoMessages(snap.Messages),
	})
}

// Health reports liveness.
// GET /health
func (h *APIHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
