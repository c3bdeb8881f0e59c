package pgx

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvid-labs/magpie/internal/util"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"
	"github.com/corvid-labs/magpie/pkg/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphDBStorage implements store.GraphStorage on PostgreSQL node/edge
// tables. Entity nodes are graph-wide singletons merged by (name, type);
// RELATED_TO edges are merged by (source, type, target) with the
// confidence ratcheted upward only.
type GraphDBStorage struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewGraphDBStorageParams defines the configuration for creating a
// GraphDBStorage.
type NewGraphDBStorageParams struct {
	Pool   *pgxpool.Pool
	Logger logger.Logger
}

// NewGraphDBStorage creates a GraphDBStorage.
func NewGraphDBStorage(params NewGraphDBStorageParams) *GraphDBStorage {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &GraphDBStorage{pool: params.Pool, log: l}
}

// Session acquires one pooled connection scoped to a single unit's graph
// writes. The caller must Release it on every exit path.
func (s *GraphDBStorage) Session(ctx context.Context) (store.GraphSession, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire graph session: %w", err)
	}
	return &graphSession{conn: conn, log: s.log}, nil
}

type graphSession struct {
	conn *pgxpool.Conn
	log  logger.Logger
}

func (g *graphSession) Release() {
	if g.conn != nil {
		g.conn.Release()
		g.conn = nil
	}
}

const createDocumentSQL = `
INSERT INTO kg_documents (id, source_type, metadata, chunks_count, entities_count, created_at)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (id) DO UPDATE
SET metadata       = EXCLUDED.metadata,
    chunks_count   = EXCLUDED.chunks_count,
    entities_count = EXCLUDED.entities_count`

func (g *graphSession) CreateDocument(ctx context.Context, doc store.DocumentNode) error {
	metadata, err := metadataJSON(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}

	_, err = g.conn.Exec(ctx, createDocumentSQL,
		doc.ID, doc.SourceType, metadata, doc.ChunksCount, doc.EntitiesCount)
	if err != nil {
		return fmt.Errorf("create document %q: %w", doc.ID, err)
	}
	return nil
}

const createChunkSQL = `
INSERT INTO kg_chunks (external_id, document_id, content, chunk_index, chunk_type, entities_count)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (external_id) DO UPDATE
SET content        = EXCLUDED.content,
    chunk_index    = EXCLUDED.chunk_index,
    chunk_type     = EXCLUDED.chunk_type,
    entities_count = EXCLUDED.entities_count`

// CreateChunk writes the Chunk node; the HAS_CHUNK edge is the
// document_id/chunk_index pair on the row.
func (g *graphSession) CreateChunk(ctx context.Context, documentID string, chunk store.ChunkNode) error {
	_, err := g.conn.Exec(ctx, createChunkSQL,
		chunk.ExternalID, documentID,
		util.SanitizePostgresText(chunk.Content),
		chunk.Index, chunk.Type, chunk.EntitiesCount)
	if err != nil {
		return fmt.Errorf("create chunk %q: %w", chunk.ExternalID, err)
	}
	return nil
}

const mergeEntitySQL = `
INSERT INTO kg_entities (name, type, confidence, created_at, last_seen)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (name, type) DO UPDATE
SET last_seen = now()
RETURNING id`

const mergeMentionSQL = `
INSERT INTO kg_mentions (document_id, entity_id, confidence, context)
VALUES ($1, $2, $3, $4)
ON CONFLICT (document_id, entity_id) DO UPDATE
SET confidence = EXCLUDED.confidence,
    context    = EXCLUDED.context`

// MergeEntity upserts the Entity node by (name, type) and links it to the
// document with a MENTIONS edge.
func (g *graphSession) MergeEntity(ctx context.Context, documentID string, entity common.Entity) error {
	var entityID int64
	err := g.conn.QueryRow(ctx, mergeEntitySQL,
		entity.Name, entity.Type, entity.Confidence).Scan(&entityID)
	if err != nil {
		return fmt.Errorf("merge entity %q: %w", entity.Name, err)
	}

	_, err = g.conn.Exec(ctx, mergeMentionSQL,
		documentID, entityID, entity.Confidence,
		util.SanitizePostgresText(entity.Context))
	if err != nil {
		return fmt.Errorf("merge mention of %q: %w", entity.Name, err)
	}
	return nil
}

const findEntityByNameSQL = `
SELECT id FROM kg_entities
WHERE lower(name) = lower($1)
ORDER BY last_seen DESC
LIMIT 1`

const mergeRelationshipSQL = `
INSERT INTO kg_relationships (source_entity_id, target_entity_id, type, confidence, context, created_at, last_seen)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (source_entity_id, type, target_entity_id) DO UPDATE
SET confidence = GREATEST(kg_relationships.confidence, EXCLUDED.confidence),
    last_seen  = now()`

// MergeRelationship upserts the RELATED_TO edge between the two entity
// nodes. Endpoints named by the relationship but absent from the entity
// table are created as untyped nodes first.
func (g *graphSession) MergeRelationship(ctx context.Context, rel common.Relationship) error {
	sourceID, err := g.ensureEntity(ctx, rel.Source, rel.Confidence)
	if err != nil {
		return err
	}
	targetID, err := g.ensureEntity(ctx, rel.Target, rel.Confidence)
	if err != nil {
		return err
	}

	_, err = g.conn.Exec(ctx, mergeRelationshipSQL,
		sourceID, targetID, rel.Type, rel.Confidence,
		util.SanitizePostgresText(rel.Context))
	if err != nil {
		return fmt.Errorf("merge relationship %s(%q, %q): %w", rel.Type, rel.Source, rel.Target, err)
	}
	return nil
}

// entityTypeUnknown tags nodes created from a relationship endpoint that
// no extraction layer typed.
const entityTypeUnknown = "UNKNOWN"

func (g *graphSession) ensureEntity(ctx context.Context, name string, confidence float64) (int64, error) {
	name = strings.TrimSpace(name)

	var id int64
	err := g.conn.QueryRow(ctx, findEntityByNameSQL, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return 0, fmt.Errorf("find entity %q: %w", name, err)
	}

	err = g.conn.QueryRow(ctx, mergeEntitySQL, name, entityTypeUnknown, confidence).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create entity %q: %w", name, err)
	}
	return id, nil
}
