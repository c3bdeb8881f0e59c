// Package pgx implements the store contracts on PostgreSQL: the flat
// similarity store on a pgvector column, the property graph on relational
// node/edge tables with upsert-based merge semantics, and the processing
// ledger as an append-only table.
package pgx

import (
	"context"
	"encoding/json"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
}

// metadataJSON renders a metadata map for a JSONB column; nil maps become
// empty objects so the column stays non-null.
func metadataJSON(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return json.Marshal(metadata)
}
