package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires up all API v1 routes. Everything under /incidents
// requires a resolved actor; the health check stays open.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/system/health", h.healthCheck)

	incidents := api.Group("/incidents")
	incidents.Use(ActorAuthMiddleware(h.identity, h.cfg, h.logger))
	{
		incidents.POST("", h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/stats", h.getStats)
		incidents.GET("/:id", h.getIncident)
		incidents.POST("/:id/accept", h.acceptIncident)
		incidents.POST("/:id/update-status", h.updateStatus)
		incidents.POST("/:id/complete", h.completeIncident)
		incidents.POST("/:id/cancel", h.cancelIncident)
	}
}
