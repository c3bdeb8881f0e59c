package server

import (
	"github.com/corvid-labs/magpie/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Ingestion routes
	apiRoutes.POST("/ingest", routes.IngestHandler)
	apiRoutes.POST("/ingest/batch", routes.IngestBatchHandler)

	// Ledger routes
	apiRoutes.GET("/records/:id", routes.GetRecordHandler)
	apiRoutes.GET("/stats", routes.GetStatsHandler)
}
