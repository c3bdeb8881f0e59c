package pgx

import (
	"context"
	"fmt"

	"github.com/corvid-labs/magpie/internal/util"
	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/store"

	"github.com/pgvector/pgvector-go"
)

// FlatDBStorage implements store.FlatStorage on a PostgreSQL table with a
// pgvector embedding column.
type FlatDBStorage struct {
	conn pgxIConn
	log  logger.Logger
}

// NewFlatDBStorageParams defines the configuration for creating a
// FlatDBStorage. Conn is typically a pgxpool.Pool with pgvector types
// registered.
type NewFlatDBStorageParams struct {
	Conn   pgxIConn
	Logger logger.Logger
}

// NewFlatDBStorage creates a FlatDBStorage.
func NewFlatDBStorage(params NewFlatDBStorageParams) *FlatDBStorage {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &FlatDBStorage{conn: params.Conn, log: l}
}

const saveChunkSQL = `
INSERT INTO flat_chunks (external_id, content, entity_type, embedding, source_type, source_metadata)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (external_id) DO UPDATE
SET content         = EXCLUDED.content,
    entity_type     = EXCLUDED.entity_type,
    embedding       = EXCLUDED.embedding,
    source_type     = EXCLUDED.source_type,
    source_metadata = EXCLUDED.source_metadata`

// SaveChunk upserts one chunk row keyed by external id. Text is sanitized
// for Postgres before the write; a nil embedding stores NULL.
func (s *FlatDBStorage) SaveChunk(ctx context.Context, row store.FlatChunkRow) error {
	metadata, err := metadataJSON(row.SourceMetadata)
	if err != nil {
		return fmt.Errorf("marshal source metadata: %w", err)
	}

	var embedding any
	if row.Embedding != nil {
		embedding = pgvector.NewVector(row.Embedding)
	}

	_, err = s.conn.Exec(ctx, saveChunkSQL,
		row.ExternalID,
		util.SanitizePostgresText(row.Content),
		row.EntityType,
		embedding,
		row.SourceType,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert flat chunk %q: %w", row.ExternalID, err)
	}

	s.log.Debug("[FlatStore] Chunk saved", "external_id", row.ExternalID)
	return nil
}
