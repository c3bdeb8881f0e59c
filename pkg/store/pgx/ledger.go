package pgx

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/corvid-labs/magpie/internal/util"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"
)

// defaultTimeframe is used when the timeframe string cannot be parsed.
const defaultTimeframe = 24 * time.Hour

// LedgerDBStorage implements store.Ledger on an append-only PostgreSQL
// table. Records are inserted once and never updated.
type LedgerDBStorage struct {
	conn pgxIConn
	log  logger.Logger
}

// NewLedgerDBStorageParams defines the configuration for creating a
// LedgerDBStorage.
type NewLedgerDBStorageParams struct {
	Conn   pgxIConn
	Logger logger.Logger
}

// NewLedgerDBStorage creates a LedgerDBStorage.
func NewLedgerDBStorage(params NewLedgerDBStorageParams) *LedgerDBStorage {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &LedgerDBStorage{conn: params.Conn, log: l}
}

const recordSQL = `
INSERT INTO processing_records
	(processing_id, content_length, chunks_processed, entities_extracted,
	 relationships_found, source_type, metadata, status, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Record appends one processing record.
func (s *LedgerDBStorage) Record(ctx context.Context, record common.ProcessingRecord) error {
	metadata, err := metadataJSON(record.Metadata)
	if err != nil {
		return fmt.Errorf("marshal record metadata: %w", err)
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.conn.Exec(ctx, recordSQL,
		record.ProcessingID,
		record.ContentLength,
		record.ChunksProcessed,
		record.EntitiesExtracted,
		record.RelationshipsFound,
		record.SourceType,
		metadata,
		record.Status,
		util.SanitizePostgresText(record.Error),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert processing record %q: %w", record.ProcessingID, err)
	}

	s.log.Debug("[Ledger] Record written",
		"processing_id", record.ProcessingID, "status", record.Status)
	return nil
}

const statsSQL = `
SELECT source_type,
	COUNT(*),
	COUNT(*) FILTER (WHERE status = 'completed'),
	COUNT(*) FILTER (WHERE status = 'failed'),
	COALESCE(SUM(chunks_processed), 0),
	COALESCE(SUM(entities_extracted), 0),
	COALESCE(SUM(relationships_found), 0)
FROM processing_records
WHERE created_at >= $1
GROUP BY source_type`

// Stats aggregates ledger outcomes grouped by source type over the given
// timeframe.
func (s *LedgerDBStorage) Stats(ctx context.Context, timeframe string) (common.Stats, error) {
	duration := ParseTimeframe(timeframe)
	since := time.Now().Add(-duration)

	rows, err := s.conn.Query(ctx, statsSQL, since)
	if err != nil {
		return common.Stats{}, fmt.Errorf("query ledger stats: %w", err)
	}
	defer rows.Close()

	stats := common.Stats{
		Timeframe:    duration.String(),
		BySourceType: make(map[string]common.SourceTypeStats),
	}
	for rows.Next() {
		var sourceType string
		var st common.SourceTypeStats
		err := rows.Scan(&sourceType, &st.Count, &st.Successful, &st.Failed,
			&st.TotalChunks, &st.TotalEntities, &st.TotalRelationships)
		if err != nil {
			return common.Stats{}, fmt.Errorf("scan ledger stats: %w", err)
		}
		stats.BySourceType[sourceType] = st
	}
	if err := rows.Err(); err != nil {
		return common.Stats{}, fmt.Errorf("read ledger stats: %w", err)
	}
	return stats, nil
}

const getRecordSQL = `
SELECT processing_id, content_length, chunks_processed, entities_extracted,
	relationships_found, source_type, metadata, status, error, created_at
FROM processing_records
WHERE processing_id = $1`

// GetRecord fetches one processing record by its processing ID. Returns
// pgx.ErrNoRows when no record exists.
func (s *LedgerDBStorage) GetRecord(ctx context.Context, processingID string) (common.ProcessingRecord, error) {
	var record common.ProcessingRecord
	var metadata []byte
	err := s.conn.QueryRow(ctx, getRecordSQL, processingID).Scan(
		&record.ProcessingID,
		&record.ContentLength,
		&record.ChunksProcessed,
		&record.EntitiesExtracted,
		&record.RelationshipsFound,
		&record.SourceType,
		&metadata,
		&record.Status,
		&record.Error,
		&record.CreatedAt,
	)
	if err != nil {
		return common.ProcessingRecord{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
			return common.ProcessingRecord{}, fmt.Errorf("unmarshal record metadata: %w", err)
		}
	}
	return record, nil
}

var timeframeRe = regexp.MustCompile(`^\s*(\d+)\s*(hour|day|week)s?\s*$`)

// ParseTimeframe parses "<N> hour|day|week" strings. Anything unparseable
// falls back to 24 hours.
func ParseTimeframe(timeframe string) time.Duration {
	m := timeframeRe.FindStringSubmatch(timeframe)
	if m == nil {
		return defaultTimeframe
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return defaultTimeframe
	}
	switch m[2] {
	case "hour":
		return time.Duration(n) * time.Hour
	case "day":
		return time.Duration(n) * 24 * time.Hour
	case "week":
		return time.Duration(n) * 7 * 24 * time.Hour
	}
	return defaultTimeframe
}
