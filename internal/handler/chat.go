package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/healthlens/healthlens/internal/service"
	"go.uber.org/zap"
)

// ChatHandler exposes the conversation endpoints for the active record.
type ChatHandler struct {
	app    *service.App
	logger *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(app *service.App, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		app:    app,
		logger: logger,
	}
}

// PostOpen starts or resumes the conversation for the active record.
func (h *ChatHandler) PostOpen(c *gin.Context) {
	transcript, err := h.app.OpenChat(c.Request.Context())
	if err != nil {
		if errors.Is(err, service.ErrTurnInFlight) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    "TURN_IN_FLIGHT",
				Message: "A chat turn is already being processed",
			})
			return
		}
		c.JSON(http.StatusConflict, ErrorResponse{
			Code:    "NO_ACTIVE_CONTEXT",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": transcript})
}

// PostMessage sends one user turn and returns the model reply.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Invalid request body",
			Details: stringPtr(err.Error()),
		})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Message text must not be empty",
		})
		return
	}

	reply, err := h.app.SendChat(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, service.ErrTurnInFlight) {
			c.JSON(http.StatusConflict, ErrorResponse{
				Code:    "TURN_IN_FLIGHT",
				Message: "A chat turn is already being processed",
			})
			return
		}
		h.logger.Error("chat turn failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to process message",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
