package api

import (
	"net/http"

	"lume-companion/backend/pkg/health"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// RegisterRoutes mounts the health route on the given group.
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	overall := "ok"
	if !h.checker.IsSystemHealthy() {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"components": h.checker.GetStatus(),
	})
}
