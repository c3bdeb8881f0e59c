package routes

import (
	"net/http"

	"github.com/corvid-labs/magpie/internal/server/middleware"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/pipeline"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// IngestBatchHandler processes a batch of content units sequentially. A
// failing unit never aborts the batch; per-unit outcomes are reported in
// the result.
func IngestBatchHandler(c echo.Context) error {
	type batchUnitBody struct {
		Content  string         `json:"content" validate:"required"`
		Metadata map[string]any `json:"metadata" validate:"required"`
	}

	type ingestBatchBody struct {
		Units []batchUnitBody `json:"units" validate:"required,min=1,dive"`
	}

	type ingestBatchResponse struct {
		Message string                `json:"message"`
		Result  *pipeline.BatchResult `json:"result,omitempty"`
	}

	data := new(ingestBatchBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestBatchResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestBatchResponse{
			Message: "Invalid request body",
		})
	}

	units := make([]common.ContentUnit, 0, len(data.Units))
	for _, u := range data.Units {
		units = append(units, common.ContentUnit{
			Content:  u.Content,
			Metadata: u.Metadata,
		})
	}

	app := c.(*middleware.AppContext).App
	result := app.Pipeline.ProcessBatch(c.Request().Context(), units)

	return c.JSON(http.StatusOK, ingestBatchResponse{
		Message: "Batch processed",
		Result:  &result,
	})
}
