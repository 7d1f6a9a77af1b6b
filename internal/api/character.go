// Package api exposes the REST surface over the roster and the chat
// orchestrator. Handlers push domain errors into the gin error chain; the
// error middleware maps them to status codes.
package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"lume-companion/backend/ai"
	"lume-companion/backend/internal/models"
	"lume-companion/backend/internal/service"
	apperrors "lume-companion/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

type CharacterHandler struct {
	roster *service.Roster
	chat   *service.Chat
	images *ai.ImageClient
}

func NewCharacterHandler(roster *service.Roster, chat *service.Chat, images *ai.ImageClient) *CharacterHandler {
	return &CharacterHandler{roster: roster, chat: chat, images: images}
}

// RegisterRoutes mounts the character routes on the given group.
func (h *CharacterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	characters := rg.Group("/characters")
	{
		characters.GET("", h.ListCharacters)
		characters.POST("", h.CreateCharacter)
		characters.GET("/:id", h.GetCharacter)
		characters.PUT("/:id", h.UpdateCharacter)
		characters.DELETE("/:id", h.DeleteCharacter)
		characters.POST("/:id/favorite", h.ToggleFavorite)
		characters.POST("/:id/portrait", h.GeneratePortrait)
	}
	rg.GET("/active-character", h.GetActiveCharacter)
	rg.PUT("/active-character", h.SetActiveCharacter)
}

func (h *CharacterHandler) ListCharacters(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.Characters())
}

func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	character, err := h.roster.Character(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) CreateCharacter(c *gin.Context) {
	var draft models.CharacterDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	character, err := h.roster.CreateCharacter(draft)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, character)
}

func (h *CharacterHandler) UpdateCharacter(c *gin.Context) {
	var draft models.CharacterDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	character, err := h.roster.UpdateCharacter(c.Param("id"), draft)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}

func (h *CharacterHandler) DeleteCharacter(c *gin.Context) {
	id := c.Param("id")

	// Abandon any reveal in flight before the history goes away.
	h.chat.Cancel(id)

	if err := h.roster.DeleteCharacter(id); err != nil {
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CharacterHandler) ToggleFavorite(c *gin.Context) {
	character, err := h.roster.ToggleFavorite(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}

// GeneratePortrait renders a portrait for the character from a prompt and
// stores the resulting data URI on the character record.
func (h *CharacterHandler) GeneratePortrait(c *gin.Context) {
	character, err := h.roster.Character(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	// The prompt body is optional; an empty body falls back to a prompt
	// built from the character itself.
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		prompt = "Portrait of " + character.Name + ". " + character.Description
	}

	imageGen := h.roster.Settings().ImageGen
	h.images.Configure(imageGen.Endpoint, imageGen.Name, imageGen.APIKey)

	uri, err := h.images.GenerateImage(c.Request.Context(), prompt)
	if err != nil {
		c.Error(apperrors.NewBadRequestError("PORTRAIT_FAILED", err.Error()))
		return
	}

	updated, err := h.roster.UpdateCharacter(character.ID, models.CharacterDraft{ImageURL: &uri})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CharacterHandler) GetActiveCharacter(c *gin.Context) {
	character, ok := h.roster.ActiveCharacter()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"active": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": character})
}

func (h *CharacterHandler) SetActiveCharacter(c *gin.Context) {
	var body struct {
		ID string `json:"id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	character, err := h.roster.SetActiveCharacter(body.ID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, character)
}
