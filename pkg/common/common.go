package common

import "time"

// ContentUnit is one discrete item submitted for ingestion: a document, an
// email, or an attachment. It carries the raw content plus a metadata map
// that must at least include "source_type". A ContentUnit is created once
// per ingestion call and never mutated afterwards.
type ContentUnit struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// SourceType returns the declared source type of the unit, or "unknown"
// when the metadata does not carry one.
func (u ContentUnit) SourceType() string {
	if u.Metadata == nil {
		return "unknown"
	}
	if st, ok := u.Metadata["source_type"].(string); ok && st != "" {
		return st
	}
	return "unknown"
}

// Attachment describes a file attached to an email or message. Content is
// the raw payload; ContentType is the declared MIME type, never sniffed.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     []byte `json:"content"`
	Inline      bool   `json:"inline,omitempty"`
	ContentID   string `json:"content_id,omitempty"`
}

// Chunk is a bounded subdivision of a ContentUnit's normalized text. Start
// and End are character offsets into the normalized text; Type tags the
// chunking strategy that produced it (e.g. "email_header",
// "document_section", "code_block"). Chunks are owned exclusively by the
// unit that produced them and are never shared.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Type  string `json:"type"`
}

// Entity is a recognized named concept. Identity is (lowercase(Name), Type);
// entities recognized across chunks of the same unit are deduplicated at the
// unit level keeping the maximum confidence observed. Context holds the text
// surrounding the first occurrence. Occurrences is only set by layers that
// count repeats (dictionary lookups).
type Entity struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Confidence  float64 `json:"confidence"`
	Context     string  `json:"context"`
	Occurrences int     `json:"occurrences,omitempty"`
}

// Relationship is a typed directed association between two entity names.
// Identity is (lowercase(Source), Type, lowercase(Target)); duplicates keep
// the maximum confidence. ExtractionMethod names the pass that produced it.
type Relationship struct {
	Source           string  `json:"source"`
	Target           string  `json:"target"`
	Type             string  `json:"type"`
	Confidence       float64 `json:"confidence"`
	Context          string  `json:"context"`
	ExtractionMethod string  `json:"extraction_method"`
}

// Processing record statuses. A record is written exactly once per
// ContentUnit and never mutated afterwards.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProcessingRecord is one row of the append-only processing ledger.
type ProcessingRecord struct {
	ProcessingID       string         `json:"processing_id"`
	ContentLength      int            `json:"content_length"`
	ChunksProcessed    int            `json:"chunks_processed"`
	EntitiesExtracted  int            `json:"entities_extracted"`
	RelationshipsFound int            `json:"relationships_found"`
	SourceType         string         `json:"source_type"`
	Metadata           map[string]any `json:"metadata"`
	Status             string         `json:"status"`
	Error              string         `json:"error,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
}

// SourceTypeStats aggregates ledger outcomes for one source type.
type SourceTypeStats struct {
	Count              int `json:"count"`
	Successful         int `json:"successful"`
	Failed             int `json:"failed"`
	TotalChunks        int `json:"total_chunks"`
	TotalEntities      int `json:"total_entities"`
	TotalRelationships int `json:"total_relationships"`
}

// Stats is the ledger aggregation over a timeframe, grouped by source type.
type Stats struct {
	Timeframe    string                     `json:"timeframe"`
	BySourceType map[string]SourceTypeStats `json:"by_source_type"`
}
