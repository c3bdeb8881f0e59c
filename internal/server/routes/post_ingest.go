package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corvid-labs/magpie/internal/queue"
	"github.com/corvid-labs/magpie/internal/server/middleware"
	"github.com/corvid-labs/magpie/internal/storage"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/normalize"
	"github.com/corvid-labs/magpie/pkg/pipeline"

	gonanoid "github.com/matoous/go-nanoid/v2"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// Payloads above this size are staged in the object store instead of being
// inlined into the queue message.
const inlinePayloadLimit = 128 * 1024

// IngestHandler processes one content unit. With async set, the unit is
// queued for the worker instead of being processed in the request.
func IngestHandler(c echo.Context) error {
	type ingestBody struct {
		Content  string         `json:"content" validate:"required"`
		Metadata map[string]any `json:"metadata" validate:"required"`
		Async    bool           `json:"async"`
	}

	type ingestResponse struct {
		Message string           `json:"message"`
		Queued  bool             `json:"queued,omitempty"`
		Result  *pipeline.Result `json:"result,omitempty"`
	}

	data := new(ingestBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, ingestResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()
	unit := common.ContentUnit{
		Content:  data.Content,
		Metadata: data.Metadata,
	}

	if data.Async {
		if err := queueUnit(c, unit); err != nil {
			app.Log.Error("[Server] Failed to queue unit", "err", err)
			return c.JSON(http.StatusInternalServerError, ingestResponse{
				Message: "Failed to queue content unit",
			})
		}
		return c.JSON(http.StatusAccepted, ingestResponse{
			Message: "Content unit queued for processing",
			Queued:  true,
		})
	}

	result, err := app.Pipeline.Process(ctx, unit)
	if err != nil {
		var normErr *normalize.NormalizationError
		if errors.As(err, &normErr) {
			return c.JSON(http.StatusUnprocessableEntity, ingestResponse{
				Message: normErr.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, ingestResponse{
			Message: "Failed to process content unit",
		})
	}

	return c.JSON(http.StatusOK, ingestResponse{
		Message: "Content unit processed successfully",
		Result:  result,
	})
}

// queueUnit publishes the unit to the ingest queue, staging the payload in
// the object store when it exceeds the inline limit.
func queueUnit(c echo.Context, unit common.ContentUnit) error {
	app := c.(*middleware.AppContext).App
	ctx := c.Request().Context()

	msg := queue.IngestMessage{Unit: &unit}
	if len(unit.Content) > inlinePayloadLimit && app.S3 != nil {
		key, err := gonanoid.New()
		if err != nil {
			return err
		}
		storedKey, err := storage.PutFile(
			ctx, app.S3, "staged", "payload.txt", key,
			bytes.NewReader([]byte(unit.Content)),
		)
		if err != nil {
			return err
		}
		msg = queue.IngestMessage{
			ContentKey: storedKey,
			Metadata:   unit.Metadata,
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return queue.Publish(app.Queue, queue.IngestQueue, body)
}
