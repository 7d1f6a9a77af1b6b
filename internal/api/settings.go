package api

import (
	"net/http"

	"lume-companion/backend/ai"
	"lume-companion/backend/internal/models"
	"lume-companion/backend/internal/service"
	"lume-companion/backend/pkg/cache"
	apperrors "lume-companion/backend/pkg/errors"

	"github.com/gin-gonic/gin"
)

const modelListCacheKey = "ollama:models"

type SettingsHandler struct {
	roster *service.Roster
	client *ai.Client
	cache  *cache.Cache
}

func NewSettingsHandler(roster *service.Roster, client *ai.Client, modelCache *cache.Cache) *SettingsHandler {
	return &SettingsHandler{roster: roster, client: client, cache: modelCache}
}

// RegisterRoutes mounts the settings routes on the given group.
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	settings := rg.Group("/settings")
	{
		settings.GET("", h.GetSettings)
		settings.PUT("/models/:kind", h.UpdateModelConfig)
		settings.PUT("/card-size", h.SetCardSize)
	}
	rg.GET("/models", h.ListModels)
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.roster.Settings())
}

// UpdateModelConfig patches the "llm" or "imageGen" backend configuration.
func (h *SettingsHandler) UpdateModelConfig(c *gin.Context) {
	var patch models.ModelConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	settings, err := h.roster.UpdateModelConfig(c.Param("kind"), patch)
	if err != nil {
		c.Error(err)
		return
	}

	// A backend change invalidates the cached model list.
	h.cache.Delete(modelListCacheKey)

	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) SetCardSize(c *gin.Context) {
	var body struct {
		CardSize string `json:"cardSize" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.Error(apperrors.NewBadRequestError("INVALID_BODY", err.Error()))
		return
	}

	if err := h.roster.SetCardSize(body.CardSize); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.roster.Settings())
}

// ListModels reports the models the text backend has available. Results are
// cached briefly so the settings screen can poll without hammering Ollama.
func (h *SettingsHandler) ListModels(c *gin.Context) {
	if cached, ok := h.cache.Get(modelListCacheKey); ok {
		c.JSON(http.StatusOK, gin.H{"models": cached})
		return
	}

	llm := h.roster.Settings().LLM
	h.client.SetEndpoint(llm.Endpoint)

	names, err := h.client.ListModels(c.Request.Context())
	if err != nil {
		c.Error(apperrors.NewBadRequestError("MODEL_LIST_FAILED", err.Error()))
		return
	}

	h.cache.Set(modelListCacheKey, names)
	c.JSON(http.StatusOK, gin.H{"models": names})
}
