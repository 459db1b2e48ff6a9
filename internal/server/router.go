package server

import "github.com/gin-gonic/gin"

// NewRouter wires the API routes.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.Default()

	api := router.Group("/v1")
	{
		api.POST("/backfill", h.CreateBackfill)
		api.GET("/backfill/:id", h.GetBackfill)
		api.GET("/backfill", h.ListBackfills)
		api.GET("/zones", h.GetZones)
		api.GET("/price", h.GetPrice)
		api.GET("/trades/latest", h.GetLatestTrades)
	}

	return router
}
