// Package store defines the persistence contracts of the ingestion
// pipeline: a flat similarity-searchable chunk store, a property graph
// store, and the append-only processing ledger. The Writer in this package
// drives the dual write; concrete drivers live in subpackages.
package store

import (
	"context"

	"github.com/corvid-labs/magpie/pkg/common"
)

// FlatChunkRow is one row of the flat similarity store. EntityType is
// always "content_chunk" for pipeline-written rows; Embedding is nil when
// embeddings are disabled.
type FlatChunkRow struct {
	ExternalID     string
	Content        string
	EntityType     string
	Embedding      []float32
	SourceType     string
	SourceMetadata map[string]any
}

// FlatStorage persists chunk rows for similarity search.
type FlatStorage interface {
	SaveChunk(ctx context.Context, row FlatChunkRow) error
}

// DocumentNode is the graph node describing one ingested ContentUnit.
type DocumentNode struct {
	ID            string
	SourceType    string
	Metadata      map[string]any
	ChunksCount   int
	EntitiesCount int
}

// ChunkNode is the graph node for one chunk, linked to its document via a
// HAS_CHUNK edge carrying the chunk index.
type ChunkNode struct {
	ExternalID    string
	Content       string
	Index         int
	Type          string
	EntitiesCount int
}

// GraphSession is a scoped handle for the graph writes of one ContentUnit.
// Release must be called on every exit path; writes already committed in
// the session are not rolled back by a later failure.
type GraphSession interface {
	// CreateDocument creates the Document node for the unit.
	CreateDocument(ctx context.Context, doc DocumentNode) error

	// CreateChunk creates a Chunk node and its HAS_CHUNK edge.
	CreateChunk(ctx context.Context, documentID string, chunk ChunkNode) error

	// MergeEntity merges an Entity node by (name, type) and creates a
	// MENTIONS edge from the document. First write sets created_at and
	// confidence; later writes bump last_seen.
	MergeEntity(ctx context.Context, documentID string, entity common.Entity) error

	// MergeRelationship merges a RELATED_TO edge by (source, type, target).
	// Confidence is ratcheted upward only; last_seen is refreshed on every
	// observation.
	MergeRelationship(ctx context.Context, rel common.Relationship) error

	// Release returns the session's resources. Safe to call exactly once.
	Release()
}

// GraphStorage opens graph sessions, one per ContentUnit.
type GraphStorage interface {
	Session(ctx context.Context) (GraphSession, error)
}

// Ledger is the append-only record of ingestion outcomes.
type Ledger interface {
	// Record appends one outcome record. Callers treat failures as
	// best-effort: a ledger write error is logged, never re-raised.
	Record(ctx context.Context, record common.ProcessingRecord) error

	// Stats aggregates outcomes grouped by source type over a timeframe
	// string of the form "<N> hour|day|week"; unparseable input defaults
	// to 24 hours.
	Stats(ctx context.Context, timeframe string) (common.Stats, error)
}
