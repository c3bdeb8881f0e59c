package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corvid-labs/magpie/internal/queue"
	"github.com/corvid-labs/magpie/internal/storage"
	"github.com/corvid-labs/magpie/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/corvid-labs/magpie/pkg/ai/openai"
	"github.com/corvid-labs/magpie/pkg/chunker"
	"github.com/corvid-labs/magpie/pkg/extract"
	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/logger/console"
	"github.com/corvid-labs/magpie/pkg/normalize"
	"github.com/corvid-labs/magpie/pkg/normalize/docextract"
	"github.com/corvid-labs/magpie/pkg/pipeline"
	"github.com/corvid-labs/magpie/pkg/store"
	storepgx "github.com/corvid-labs/magpie/pkg/store/pgx"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	log := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})

	// Init s3 client
	s3Client := storage.NewS3Client(ctx)

	// Embedding client
	embedder := openai.NewEmbeddingClient(openai.NewEmbeddingClientParams{
		Model:         util.GetEnv("AI_EMBED_MODEL"),
		BaseURL:       util.GetEnv("AI_EMBED_URL"),
		APIKey:        util.GetEnv("AI_EMBED_KEY"),
		Dimensions:    int(util.GetEnvNumeric("AI_EMBED_DIMENSIONS", 1536)),
		MaxConcurrent: int(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
	})

	// Init pgx client
	poolConfig, err := pgxpool.ParseConfig(util.GetEnv("DATABASE_URL"))
	if err != nil {
		log.Fatal("Invalid database URL", "err", err)
	}
	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pgConn, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()

	pipe := buildPipeline(pgConn, embedder, log)

	// Init rabbitmq
	conn, err := queue.Init()
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", "err", err)
	}
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		log.Fatal("Failed to set up queues", "err", err)
	}

	log.Info("Listening for messages")

	// Single consumer channel with prefetch=1 so only one message is in
	// flight at a time across all queues.
	consumerCh, err := conn.Channel()
	if err != nil {
		log.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		log.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queue.Queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				log.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					log.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						log.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				log.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				log.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.IngestQueue:
					processingErr = queue.ProcessIngestMessage(ctx, s3Client, pipe, log, qm.msg.Body)
				}

				// Failed messages go to retry or dead-letter, everything
				// else is acked.
				if processingErr != nil {
					log.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					queue.HandleProcessingError(consumerCh, log, qm.msg, qm.queueName, processingErr)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						log.Error("Failed to ack message", "err", err)
					}
					log.Info("Message processed successfully", "queue", qm.queueName)
				}

				if embedder.Enabled() {
					metrics := embedder.Metrics()
					embedDuration := time.Duration(metrics.DurationMs) * time.Millisecond
					log.Info(
						"Embedding metrics",
						"input_tokens", metrics.InputTokens,
						"total_tokens", metrics.TotalTokens,
						"requests", metrics.Requests,
						"duration", embedDuration.Round(time.Millisecond).String(),
					)
					embedder.ResetMetrics()
				}

				log.Info("Processing time", "duration", time.Since(startTime).Round(time.Millisecond).String())
				log.Info("Waiting for next message")
			}
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received, exiting...")
}

func buildPipeline(pgConn *pgxpool.Pool, embedder *openai.EmbeddingClient, log logger.Logger) *pipeline.Pipeline {
	flat := storepgx.NewFlatDBStorage(storepgx.NewFlatDBStorageParams{
		Conn:   pgConn,
		Logger: log,
	})
	graph := storepgx.NewGraphDBStorage(storepgx.NewGraphDBStorageParams{
		Pool:   pgConn,
		Logger: log,
	})
	ledger := storepgx.NewLedgerDBStorage(storepgx.NewLedgerDBStorageParams{
		Conn:   pgConn,
		Logger: log,
	})

	writer := store.NewWriter(store.NewWriterParams{
		Flat:             flat,
		Graph:            graph,
		Embedder:         embedder,
		EnableEmbeddings: embedder.Enabled(),
		Logger:           log,
	})

	return pipeline.NewPipeline(pipeline.NewPipelineParams{
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
}
