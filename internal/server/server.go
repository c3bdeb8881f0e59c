package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvid-labs/magpie/internal/queue"
	mid "github.com/corvid-labs/magpie/internal/server/middleware"
	"github.com/corvid-labs/magpie/internal/storage"
	"github.com/corvid-labs/magpie/internal/util"
	"github.com/corvid-labs/magpie/pkg/ai/openai"
	"github.com/corvid-labs/magpie/pkg/chunker"
	"github.com/corvid-labs/magpie/pkg/extract"
	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/normalize"
	"github.com/corvid-labs/magpie/pkg/normalize/docextract"
	"github.com/corvid-labs/magpie/pkg/pipeline"
	"github.com/corvid-labs/magpie/pkg/store"
	storepgx "github.com/corvid-labs/magpie/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

func Init(log logger.Logger) {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(); err != nil {
		log.Fatal("[Server] Failed to run migrations", "err", err)
	}

	poolConfig, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		log.Fatal("[Server] Invalid database URL", "err", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	conn, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("[Server] Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que, err := queue.Init()
	if err != nil {
		log.Fatal("[Server] Failed to connect to RabbitMQ", "err", err)
	}
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		log.Fatal("[Server] Failed to open channel", "err", err)
	}
	defer ch.Close()
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		log.Fatal("[Server] Failed to set up queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)

	pipe, ledger := buildPipeline(conn, log)

	app := &mid.App{
		DBConn:   conn,
		Queue:    ch,
		S3:       s3,
		Pipeline: pipe,
		Ledger:   ledger,
		Log:      log,
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("256M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		log.Info("[Server] Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatal("[Server] Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("[Server] Failed to shutdown server", "err", err)
	}
}

// runMigrations applies pending schema migrations. An up-to-date schema is
// not an error.
func runMigrations() error {
	m, err := migrate.New("file://migrations", util.GetEnv("DATABASE_URL"))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// buildPipeline assembles the ingestion pipeline on the shared connection
// pool. Embeddings are enabled only when an embedding endpoint is
// configured.
func buildPipeline(conn *pgxpool.Pool, log logger.Logger) (*pipeline.Pipeline, *storepgx.LedgerDBStorage) {
	embedder := openai.NewEmbeddingClient(openai.NewEmbeddingClientParams{
		Model:         util.GetEnv("AI_EMBED_MODEL"),
		BaseURL:       util.GetEnv("AI_EMBED_URL"),
		APIKey:        util.GetEnv("AI_EMBED_KEY"),
		Dimensions:    int(util.GetEnvNumeric("AI_EMBED_DIMENSIONS", 1536)),
		MaxConcurrent: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
	})

	flat := storepgx.NewFlatDBStorage(storepgx.NewFlatDBStorageParams{
		Conn:   conn,
		Logger: log,
	})
	graph := storepgx.NewGraphDBStorage(storepgx.NewGraphDBStorageParams{
		Pool:   conn,
		Logger: log,
	})
	ledger := storepgx.NewLedgerDBStorage(storepgx.NewLedgerDBStorageParams{
		Conn:   conn,
		Logger: log,
	})

	writer := store.NewWriter(store.NewWriterParams{
		Flat:             flat,
		Graph:            graph,
		Embedder:         embedder,
		EnableEmbeddings: embedder.Enabled(),
		Logger:           log,
	})

	pipe := pipeline.NewPipeline(pipeline.NewPipelineParams{
		Normalizer: normalize.NewNormalizer(normalize.NewNormalizerParams{
			Extractor: docextract.NewExtractor(),
			Logger:    log,
		}),
		Chunker:               chunker.NewChunker(chunker.NewChunkerParams{Logger: log}),
		EntityExtractor:       extract.NewEntityExtractor(extract.NewEntityExtractorParams{Logger: log}),
		RelationshipExtractor: extract.NewRelationshipExtractor(extract.NewRelationshipExtractorParams{Logger: log}),
		Writer:                writer,
		Ledger:                ledger,
		Logger:                log,

		MaxChunkSize: int(util.GetEnvNumeric("CHUNK_SIZE", 1000)),
		OverlapSize:  int(util.GetEnvNumeric("CHUNK_OVERLAP", 200)),
		Domain:       util.GetEnv("EXTRACTION_DOMAIN"),
	})

	return pipe, ledger
}
