// Package chunker splits normalized text into overlapping, type-aware
// chunks. Strategy selection is a declarative lookup by content type; every
// strategy shares the same overlap-tail construction so neighbouring chunks
// carry context across the boundary.
package chunker

import (
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"
)

// Content types understood by the chunker. Unknown types fall back to the
// generic strategy.
const (
	ContentTypeEmail       = "email"
	ContentTypeDocument    = "document"
	ContentTypeCode        = "code"
	ContentTypeMarkdown    = "markdown"
	ContentTypeGeneric     = "generic"
	ContentTypeUnsupported = "unsupported"
)

// Chunk type tags carried on emitted chunks.
const (
	ChunkTypeEmailHeader     = "email_header"
	ChunkTypeEmailBody       = "email_body"
	ChunkTypeDocumentSection = "document_section"
	ChunkTypeCodeBlock       = "code_block"
	ChunkTypeMarkdownSection = "markdown_section"
	ChunkTypeText            = "text_chunk"
	ChunkTypeUnsupported     = "unsupported"
)

const (
	defaultMaxChunkSize = 1000
	defaultOverlapSize  = 200
)

// Options control a single chunking call.
type Options struct {
	MaxChunkSize int
	OverlapSize  int
	ContentType  string
}

func (o Options) withDefaults() Options {
	if o.MaxChunkSize <= 0 {
		o.MaxChunkSize = defaultMaxChunkSize
	}
	if o.OverlapSize <= 0 {
		o.OverlapSize = defaultOverlapSize
	}
	if o.OverlapSize >= o.MaxChunkSize {
		o.OverlapSize = o.MaxChunkSize / 4
	}
	if o.ContentType == "" {
		o.ContentType = ContentTypeGeneric
	}
	return o
}

type strategyFunc func(c *Chunker, text string, opts Options) []common.Chunk

// strategies maps content type tags to their chunking functions. New
// strategies are added here without touching dispatch control flow.
var strategies = map[string]strategyFunc{
	ContentTypeEmail:       (*Chunker).chunkEmail,
	ContentTypeDocument:    (*Chunker).chunkDocument,
	ContentTypeCode:        (*Chunker).chunkCode,
	ContentTypeMarkdown:    (*Chunker).chunkMarkdown,
	ContentTypeGeneric:     (*Chunker).chunkGeneric,
	ContentTypeUnsupported: (*Chunker).chunkUnsupported,
}

// Chunker holds the injected logger; it carries no per-call state, so one
// instance can serve any number of units.
type Chunker struct {
	log logger.Logger
}

// NewChunkerParams defines the configuration for creating a Chunker.
type NewChunkerParams struct {
	Logger logger.Logger
}

// NewChunker creates a Chunker.
func NewChunker(params NewChunkerParams) *Chunker {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &Chunker{log: l}
}

// Chunk splits text into contiguous, order-preserving chunks using the
// strategy selected by opts.ContentType. Chunking never fails: non-empty
// input always yields at least one chunk, and an atomic unit larger than
// MaxChunkSize is emitted whole rather than truncated.
func (c *Chunker) Chunk(text string, opts Options) []common.Chunk {
	opts = opts.withDefaults()
	if strings.TrimSpace(text) == "" {
		return nil
	}

	strategy, ok := strategies[strings.ToLower(opts.ContentType)]
	if !ok {
		c.log.Debug("[Chunker] Unknown content type, using generic strategy", "content_type", opts.ContentType)
		strategy = (*Chunker).chunkGeneric
	}

	chunks := strategy(c, text, opts)

	// Reindex after strategies may have dropped empty candidates.
	out := chunks[:0]
	for _, chunk := range chunks {
		if strings.TrimSpace(chunk.Text) == "" {
			continue
		}
		chunk.Index = len(out)
		out = append(out, chunk)
	}
	return out
}

func (c *Chunker) chunkUnsupported(text string, opts Options) []common.Chunk {
	return []common.Chunk{{
		Index: 0,
		Text:  strings.TrimSpace(text),
		Start: 0,
		End:   len(text),
		Type:  ChunkTypeUnsupported,
	}}
}

// overlapTail derives the overlap seed carried into the next chunk: the
// trailing overlapSize characters of closed, preferring the text after a
// sentence boundary, then after a word boundary, then the raw tail.
func overlapTail(closed string, overlapSize int) string {
	if overlapSize <= 0 || closed == "" {
		return ""
	}
	if len(closed) <= overlapSize {
		return closed
	}
	tail := closed[len(closed)-overlapSize:]

	if idx := firstSentenceBoundary(tail); idx >= 0 {
		after := strings.TrimSpace(tail[idx:])
		if after != "" {
			return after
		}
	}
	if idx := strings.IndexAny(tail, " \t\n"); idx >= 0 {
		after := strings.TrimSpace(tail[idx:])
		if after != "" {
			return after
		}
	}
	return tail
}

func firstSentenceBoundary(s string) int {
	for i := 0; i < len(s)-1; i++ {
		if (s[i] == '.' || s[i] == '!' || s[i] == '?') &&
			(s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t') {
			return i + 1
		}
	}
	return -1
}
