// Package pipeline orchestrates ingestion of one ContentUnit: normalize,
// chunk, extract entities and relationships, dual-persist, and record the
// outcome in the processing ledger. Single-unit processing is strictly
// sequential; batches iterate units sequentially and never abort on a
// single item's failure.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/corvid-labs/magpie/pkg/chunker"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/extract"
	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/normalize"
	"github.com/corvid-labs/magpie/pkg/store"
)

// Writer is the dual-persistence stage consumed by the pipeline.
type Writer interface {
	Store(ctx context.Context, in store.StoreInput) error
}

// Pipeline wires the ingestion stages together. All stage components are
// injected; the pipeline holds no per-unit state and can process any
// number of units.
type Pipeline struct {
	normalizer    *normalize.Normalizer
	chunker       *chunker.Chunker
	entities      *extract.EntityExtractor
	relationships *extract.RelationshipExtractor
	writer        Writer
	ledger        store.Ledger
	log           logger.Logger

	maxChunkSize int
	overlapSize  int
	domain       string
}

// NewPipelineParams defines the configuration for creating a Pipeline.
// MaxChunkSize and OverlapSize fall back to the chunker's defaults when
// zero. Domain optionally selects a domain term dictionary for entity
// extraction.
type NewPipelineParams struct {
	Normalizer            *normalize.Normalizer
	Chunker               *chunker.Chunker
	EntityExtractor       *extract.EntityExtractor
	RelationshipExtractor *extract.RelationshipExtractor
	Writer                Writer
	Ledger                store.Ledger
	Logger                logger.Logger

	MaxChunkSize int
	OverlapSize  int
	Domain       string
}

// NewPipeline creates a Pipeline.
func NewPipeline(params NewPipelineParams) *Pipeline {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &Pipeline{
		normalizer:    params.Normalizer,
		chunker:       params.Chunker,
		entities:      params.EntityExtractor,
		relationships: params.RelationshipExtractor,
		writer:        params.Writer,
		ledger:        params.Ledger,
		log:           l,
		maxChunkSize:  params.MaxChunkSize,
		overlapSize:   params.OverlapSize,
		domain:        params.Domain,
	}
}

// Result is the outcome of processing one ContentUnit.
type Result struct {
	ProcessingID  string                `json:"processing_id"`
	SourceType    string                `json:"source_type"`
	Chunks        []common.Chunk        `json:"chunks"`
	Entities      []common.Entity       `json:"entities"`
	Relationships []common.Relationship `json:"relationships"`
}

// Process runs one unit through all stages. Exactly one ledger record is
// written, success or failure; the record write itself is best-effort. Any
// fatal stage error is returned to the caller after being recorded.
func (p *Pipeline) Process(ctx context.Context, unit common.ContentUnit) (*Result, error) {
	processingID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate processing id: %w", err)
	}
	sourceType := unit.SourceType()

	p.log.Info("[Pipeline] Processing unit",
		"processing_id", processingID, "source_type", sourceType,
		"content_length", len(unit.Content))

	result, err := p.run(ctx, processingID, unit)

	record := common.ProcessingRecord{
		ProcessingID:  processingID,
		ContentLength: len(unit.Content),
		SourceType:    sourceType,
		Metadata:      unit.Metadata,
		Status:        common.StatusCompleted,
	}
	if err != nil {
		record.Status = common.StatusFailed
		record.Error = err.Error()
	} else {
		record.ChunksProcessed = len(result.Chunks)
		record.EntitiesExtracted = len(result.Entities)
		record.RelationshipsFound = len(result.Relationships)
		record.Metadata = withTokenCount(unit.Metadata, result.Chunks)
	}
	p.recordOutcome(ctx, record)

	if err != nil {
		p.log.Error("[Pipeline] Unit failed",
			"processing_id", processingID, "err", err)
		return nil, err
	}

	p.log.Info("[Pipeline] Unit completed",
		"processing_id", processingID,
		"chunks", len(result.Chunks),
		"entities", len(result.Entities),
		"relationships", len(result.Relationships))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, processingID string, unit common.ContentUnit) (*Result, error) {
	sourceType := unit.SourceType()

	text, err := p.normalizer.Normalize(ctx, []byte(unit.Content), sourceType, unit.Metadata)
	if err != nil {
		return nil, err
	}

	chunks := p.chunker.Chunk(text, chunker.Options{
		MaxChunkSize: p.maxChunkSize,
		OverlapSize:  p.overlapSize,
		ContentType:  chunkContentType(sourceType),
	})

	var rawEntities []common.Entity
	for _, chunk := range chunks {
		rawEntities = append(rawEntities,
			p.entities.Extract(chunk.Text, extract.EntityOptions{Domain: p.domain})...)
	}
	entities := extract.DedupeEntities(rawEntities)

	var rawRelationships []common.Relationship
	for _, chunk := range chunks {
		rawRelationships = append(rawRelationships,
			p.relationships.Extract(chunk.Text, entities)...)
	}
	relationships := extract.DedupeRelationships(rawRelationships)

	err = p.writer.Store(ctx, store.StoreInput{
		ProcessingID:  processingID,
		Unit:          unit,
		Chunks:        chunks,
		Entities:      entities,
		Relationships: relationships,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		ProcessingID:  processingID,
		SourceType:    sourceType,
		Chunks:        chunks,
		Entities:      entities,
		Relationships: relationships,
	}, nil
}

// recordOutcome appends the ledger record. Best-effort: a ledger failure
// is logged, never re-raised, so it cannot mask the pipeline outcome.
func (p *Pipeline) recordOutcome(ctx context.Context, record common.ProcessingRecord) {
	if p.ledger == nil {
		return
	}
	if err := p.ledger.Record(ctx, record); err != nil {
		p.log.Warn("[Pipeline] Ledger write failed",
			"processing_id", record.ProcessingID, "err", err)
	}
}

// Stats exposes the ledger aggregation to callers.
func (p *Pipeline) Stats(ctx context.Context, timeframe string) (common.Stats, error) {
	if p.ledger == nil {
		return common.Stats{}, fmt.Errorf("no ledger configured")
	}
	return p.ledger.Stats(ctx, timeframe)
}

// withTokenCount copies the unit metadata and adds the unit's total token
// count for the ledger record.
func withTokenCount(metadata map[string]any, chunks []common.Chunk) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	tokens := 0
	for _, chunk := range chunks {
		tokens += store.TokenCount(chunk.Text)
	}
	out["token_count"] = tokens
	return out
}

// chunkContentType maps a declared source type onto a chunking strategy
// tag. Types with no text representation map to the unsupported strategy,
// which emits the metadata block as a single chunk.
func chunkContentType(sourceType string) string {
	switch strings.ToLower(sourceType) {
	case "email":
		return chunker.ContentTypeEmail
	case "md", "markdown":
		return chunker.ContentTypeMarkdown
	case "code":
		return chunker.ContentTypeCode
	case "pdf", "doc", "docx", "word", "txt", "text", "plain", "html", "document":
		return chunker.ContentTypeDocument
	case "json", "csv", "xml":
		return chunker.ContentTypeGeneric
	default:
		return chunker.ContentTypeUnsupported
	}
}
