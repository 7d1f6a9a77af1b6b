package api

import (
	"net/http"

	"lume-companion/backend/internal/service"
	apperrors "lume-companion/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	roster *service.Roster
	chat   *service.Chat
}

func NewMessageHandler(roster *service.Roster, chat *service.Chat) *MessageHandler {
	return &MessageHandler{roster: roster, chat: chat}
}

// RegisterRoutes mounts the message routes on the given group.
func (h *MessageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	messages := rg.Group("/characters/:id/messages")
	{
		messages.GET("", h.GetMessages)
		messages.POST("", h.PostMessage)
		messages.DELETE("/pending", h.CancelGeneration)
	}
}

func (h *MessageHandler) GetMessages(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.roster.Character(id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.roster.Conversation(id))
}

// PostMessage commits the user message and starts the generation round-trip.
// The response carries only the committed user message; the character's
// reply arrives over the websocket once the reveal completes.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var body struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	msg, err := h.chat.Submit(c.Param("id"), body.Content)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, msg)
}

// CancelGeneration abandons the round-trip in flight, if any.
func (h *MessageHandler) CancelGeneration(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.roster.Character(id); err != nil {
		c.Error(err)
		return
	}
	h.chat.Cancel(id)
	c.Status(http.StatusNoContent)
}
