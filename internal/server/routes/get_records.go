package routes

import (
	"errors"
	"net/http"

	"github.com/corvid-labs/magpie/internal/server/middleware"
	"github.com/corvid-labs/magpie/pkg/common"

	_ "github.com/go-playground/validator"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"
)

// GetRecordHandler fetches one processing record by processing ID.
func GetRecordHandler(c echo.Context) error {
	type getRecordParams struct {
		ProcessingID string `param:"id" validate:"required"`
	}

	type getRecordResponse struct {
		Message string                   `json:"message"`
		Record  *common.ProcessingRecord `json:"record,omitempty"`
	}

	params := new(getRecordParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRecordResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getRecordResponse{
			Message: "Invalid request params",
		})
	}

	app := c.(*middleware.AppContext).App
	record, err := app.Ledger.GetRecord(c.Request().Context(), params.ProcessingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(http.StatusNotFound, getRecordResponse{
				Message: "Processing record not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, getRecordResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getRecordResponse{
		Message: "Processing record found",
		Record:  &record,
	})
}
