package routes

import (
	"net/http"

	"github.com/corvid-labs/magpie/internal/server/middleware"
	"github.com/corvid-labs/magpie/pkg/common"

	"github.com/labstack/echo/v4"
)

// GetStatsHandler aggregates ledger outcomes over a timeframe, grouped by
// source type. The timeframe query parameter accepts "<N> hour|day|week"
// and defaults to 24 hours.
func GetStatsHandler(c echo.Context) error {
	type getStatsResponse struct {
		Message string        `json:"message"`
		Stats   *common.Stats `json:"stats,omitempty"`
	}

	timeframe := c.QueryParam("timeframe")

	app := c.(*middleware.AppContext).App
	stats, err := app.Pipeline.Stats(c.Request().Context(), timeframe)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, getStatsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getStatsResponse{
		Message: "Stats aggregated",
		Stats:   &stats,
	})
}
