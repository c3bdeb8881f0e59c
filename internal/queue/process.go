package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/corvid-labs/magpie/internal/storage"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/pipeline"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// IngestMessage is one queued ingestion job. Small payloads inline the
// unit content; large ones reference a staged S3 object by key, with the
// metadata carried in the message.
type IngestMessage struct {
	Unit       *common.ContentUnit `json:"unit,omitempty"`
	ContentKey string              `json:"content_key,omitempty"`
	Metadata   map[string]any      `json:"metadata,omitempty"`
}

// ProcessIngestMessage resolves the message payload and runs it through
// the pipeline. Pipeline failures propagate so the worker can retry or
// dead-letter the message.
func ProcessIngestMessage(
	ctx context.Context,
	s3Client *s3.Client,
	pipe *pipeline.Pipeline,
	log logger.Logger,
	body []byte,
) error {
	var msg IngestMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal ingest message: %w", err)
	}

	unit, err := resolveUnit(ctx, s3Client, msg)
	if err != nil {
		return err
	}

	result, err := pipe.Process(ctx, unit)
	if err != nil {
		return err
	}

	log.Info("[Queue] Unit ingested",
		"processing_id", result.ProcessingID,
		"source_type", result.SourceType,
		"chunks", len(result.Chunks))

	if msg.ContentKey != "" {
		if err := storage.DeleteFile(ctx, s3Client, msg.ContentKey); err != nil {
			log.Warn("[Queue] Failed to delete staged payload", "key", msg.ContentKey, "err", err)
		}
	}
	return nil
}

func resolveUnit(ctx context.Context, s3Client *s3.Client, msg IngestMessage) (common.ContentUnit, error) {
	if msg.ContentKey == "" {
		if msg.Unit == nil {
			return common.ContentUnit{}, fmt.Errorf("ingest message carries neither unit nor content key")
		}
		return *msg.Unit, nil
	}

	if s3Client == nil {
		return common.ContentUnit{}, fmt.Errorf("ingest message references %q but no object store is configured", msg.ContentKey)
	}
	payload, err := storage.GetFile(ctx, s3Client, msg.ContentKey)
	if err != nil {
		return common.ContentUnit{}, fmt.Errorf("fetch staged payload %q: %w", msg.ContentKey, err)
	}

	return common.ContentUnit{
		Content:  string(payload),
		Metadata: msg.Metadata,
	}, nil
}
