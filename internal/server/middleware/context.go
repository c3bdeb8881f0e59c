package middleware

import (
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/pipeline"
	storepgx "github.com/corvid-labs/magpie/pkg/store/pgx"
)

// App holds the shared server dependencies handed to every request.
type App struct {
	DBConn   *pgxpool.Pool
	Queue    *amqp091.Channel
	S3       *s3.Client
	Pipeline *pipeline.Pipeline
	Ledger   *storepgx.LedgerDBStorage
	Log      logger.Logger
}

// AppContext wraps the echo context with the shared app dependencies.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware injects the app dependencies into every request
// context.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
