package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/corvid-labs/magpie/pkg/ai"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"

	"github.com/pkoukk/tiktoken-go"
)

// EntityTypeContentChunk tags every flat-store row written by the pipeline.
const EntityTypeContentChunk = "content_chunk"

// Writer dual-persists one ContentUnit: chunk rows into the flat store,
// then the document/chunk/entity/relationship graph into the graph store.
// Both writes fail fast; a failure aborts the remaining writes for the
// unit. The graph session is released on every exit path.
type Writer struct {
	flat       FlatStorage
	graph      GraphStorage
	embedder   ai.Embedder
	embeddings bool
	log        logger.Logger
}

// NewWriterParams defines the configuration for creating a Writer.
// EnableEmbeddings requires a non-nil Embedder; chunk rows carry a null
// embedding otherwise.
type NewWriterParams struct {
	Flat             FlatStorage
	Graph            GraphStorage
	Embedder         ai.Embedder
	EnableEmbeddings bool
	Logger           logger.Logger
}

// NewWriter creates a Writer.
func NewWriter(params NewWriterParams) *Writer {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &Writer{
		flat:       params.Flat,
		graph:      params.Graph,
		embedder:   params.Embedder,
		embeddings: params.EnableEmbeddings && params.Embedder != nil,
		log:        l,
	}
}

// StoreInput carries everything the dual write needs for one unit.
type StoreInput struct {
	ProcessingID  string
	Unit          common.ContentUnit
	Chunks        []common.Chunk
	Entities      []common.Entity
	Relationships []common.Relationship
}

// Store persists the unit. Flat rows are written one at a time in chunk
// order; the first failure aborts the unit with a StoreWriteError. Graph
// writes follow in one session; the first failure aborts the remaining
// writes with a GraphWriteError without rolling back committed ones.
func (w *Writer) Store(ctx context.Context, in StoreInput) error {
	embeddings, err := w.chunkEmbeddings(ctx, in.Chunks)
	if err != nil {
		return &StoreWriteError{ExternalID: in.ProcessingID, Err: fmt.Errorf("generate embeddings: %w", err)}
	}

	if err := w.storeFlat(ctx, in, embeddings); err != nil {
		return err
	}
	return w.storeGraph(ctx, in)
}

func (w *Writer) chunkEmbeddings(ctx context.Context, chunks []common.Chunk) ([][]float32, error) {
	if !w.embeddings || len(chunks) == 0 {
		return nil, nil
	}
	inputs := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		inputs[i] = []byte(chunk.Text)
	}
	return w.embedder.GenerateEmbeddings(ctx, inputs)
}

func (w *Writer) storeFlat(ctx context.Context, in StoreInput, embeddings [][]float32) error {
	sourceType := in.Unit.SourceType()

	for i, chunk := range in.Chunks {
		externalID := ChunkExternalID(in.ProcessingID, chunk.Index)
		row := FlatChunkRow{
			ExternalID:     externalID,
			Content:        chunk.Text,
			EntityType:     EntityTypeContentChunk,
			SourceType:     sourceType,
			SourceMetadata: chunkMetadata(in.Unit, chunk, entityNamesIn(chunk, in.Entities)),
		}
		if embeddings != nil {
			row.Embedding = embeddings[i]
		}

		if err := w.flat.SaveChunk(ctx, row); err != nil {
			w.log.Error("[Writer] Flat store write failed, aborting unit",
				"external_id", externalID, "err", err)
			return &StoreWriteError{ExternalID: externalID, Err: err}
		}
	}

	w.log.Debug("[Writer] Flat store write completed",
		"processing_id", in.ProcessingID, "chunks", len(in.Chunks))
	return nil
}

func (w *Writer) storeGraph(ctx context.Context, in StoreInput) error {
	session, err := w.graph.Session(ctx)
	if err != nil {
		return &GraphWriteError{Op: "open session", Err: err}
	}
	defer session.Release()

	doc := DocumentNode{
		ID:            in.ProcessingID,
		SourceType:    in.Unit.SourceType(),
		Metadata:      in.Unit.Metadata,
		ChunksCount:   len(in.Chunks),
		EntitiesCount: len(in.Entities),
	}
	if err := session.CreateDocument(ctx, doc); err != nil {
		return &GraphWriteError{Op: "create document", Err: err}
	}

	for _, chunk := range in.Chunks {
		node := ChunkNode{
			ExternalID:    ChunkExternalID(in.ProcessingID, chunk.Index),
			Content:       chunk.Text,
			Index:         chunk.Index,
			Type:          chunk.Type,
			EntitiesCount: len(entityNamesIn(chunk, in.Entities)),
		}
		if err := session.CreateChunk(ctx, in.ProcessingID, node); err != nil {
			return &GraphWriteError{Op: "create chunk", Err: err}
		}
	}

	for _, entity := range in.Entities {
		if err := session.MergeEntity(ctx, in.ProcessingID, entity); err != nil {
			return &GraphWriteError{Op: "merge entity", Err: err}
		}
	}

	for _, rel := range in.Relationships {
		if err := session.MergeRelationship(ctx, rel); err != nil {
			return &GraphWriteError{Op: "merge relationship", Err: err}
		}
	}

	w.log.Debug("[Writer] Graph write completed",
		"processing_id", in.ProcessingID,
		"entities", len(in.Entities), "relationships", len(in.Relationships))
	return nil
}

// ChunkExternalID derives the flat-store external id for one chunk.
func ChunkExternalID(processingID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", processingID, index)
}

// chunkMetadata merges the unit's original metadata with the chunk's
// position, type, token count and the names of entities appearing in it.
func chunkMetadata(unit common.ContentUnit, chunk common.Chunk, entityNames []string) map[string]any {
	metadata := make(map[string]any, len(unit.Metadata)+6)
	for k, v := range unit.Metadata {
		metadata[k] = v
	}
	metadata["chunk_index"] = chunk.Index
	metadata["chunk_type"] = chunk.Type
	metadata["chunk_start"] = chunk.Start
	metadata["chunk_end"] = chunk.End
	metadata["token_count"] = TokenCount(chunk.Text)
	metadata["entities"] = entityNames
	return metadata
}

// entityNamesIn lists the names of entities whose name occurs in the chunk
// text, case-insensitive.
func entityNamesIn(chunk common.Chunk, entities []common.Entity) []string {
	lower := strings.ToLower(chunk.Text)
	names := make([]string, 0, len(entities))
	for _, entity := range entities {
		if strings.Contains(lower, strings.ToLower(entity.Name)) {
			names = append(names, entity.Name)
		}
	}
	return names
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// TokenCount counts tokens with the o200k_base encoding. Returns 0 when
// the encoding data is unavailable.
func TokenCount(text string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("o200k_base")
		if err != nil {
			return
		}
		encoding = enc
	})
	if encoding == nil {
		return 0
	}
	return len(encoding.Encode(text, nil, nil))
}
