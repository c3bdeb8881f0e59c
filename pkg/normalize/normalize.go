package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvid-labs/magpie/pkg/logger"
)

// TextExtractor is the binary-to-text collaborator used for source types
// that carry no inline text representation (PDF, Word). Implementations
// live outside the normalizer; see the docextract subpackage.
type TextExtractor interface {
	ExtractText(ctx context.Context, content []byte, sourceType string) ([]byte, error)
}

// NormalizationError reports that a payload produced no extractable text.
// It is the single hard stop before chunking: a unit that fails
// normalization is recorded as failed and never reaches the chunker.
type NormalizationError struct {
	SourceType string
	Reason     string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalization failed for source type %q: %s", e.SourceType, e.Reason)
}

// Normalizer converts a source-typed payload into plain text plus enough
// structure for the chunker. Dispatch is by the declared source type, never
// by content sniffing.
type Normalizer struct {
	extractor TextExtractor
	log       logger.Logger
}

// NewNormalizerParams defines the configuration for creating a Normalizer.
type NewNormalizerParams struct {
	Extractor TextExtractor
	Logger    logger.Logger
}

// NewNormalizer creates a Normalizer. The extractor may be nil when no
// binary source types are expected; normalizing a PDF/Word payload without
// one yields a NormalizationError.
func NewNormalizer(params NewNormalizerParams) *Normalizer {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &Normalizer{
		extractor: params.Extractor,
		log:       l,
	}
}

// Normalize converts payload into plain text according to sourceType.
// Metadata supplies filename/size/content type for binary fallbacks. The
// returned text is non-empty after trimming, or a NormalizationError is
// returned.
func (n *Normalizer) Normalize(ctx context.Context, payload []byte, sourceType string, metadata map[string]any) (string, error) {
	var text string
	var err error

	switch strings.ToLower(sourceType) {
	case "pdf", "doc", "docx", "word":
		text, err = n.extractBinary(ctx, payload, sourceType)
	case "txt", "text", "plain", "md", "markdown", "email", "code":
		text = string(payload)
	case "html":
		text = normalizeHTML(string(payload))
	case "csv":
		text, err = summarizeCSV(string(payload))
	case "json":
		text, err = summarizeJSON(payload)
	case "xml":
		text = stripXMLTags(string(payload))
	default:
		// Images and other binary types have no text representation; emit a
		// metadata-only block so the pipeline never receives zero content
		// unless the source truly has none.
		text = metadataFallback(payload, sourceType, metadata)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(text) == "" {
		n.log.Debug("[Normalize] No extractable text", "source_type", sourceType)
		return "", &NormalizationError{
			SourceType: sourceType,
			Reason:     "extracted text is empty",
		}
	}

	return text, nil
}

func (n *Normalizer) extractBinary(ctx context.Context, payload []byte, sourceType string) (string, error) {
	if n.extractor == nil {
		return "", &NormalizationError{
			SourceType: sourceType,
			Reason:     "no text extractor configured",
		}
	}
	out, err := n.extractor.ExtractText(ctx, payload, sourceType)
	if err != nil {
		return "", &NormalizationError{
			SourceType: sourceType,
			Reason:     fmt.Sprintf("text extraction failed: %v", err),
		}
	}
	return string(out), nil
}

func metadataFallback(payload []byte, sourceType string, metadata map[string]any) string {
	filename := "unknown"
	contentType := sourceType
	if metadata != nil {
		if v, ok := metadata["filename"].(string); ok && v != "" {
			filename = v
		}
		if v, ok := metadata["content_type"].(string); ok && v != "" {
			contentType = v
		}
	}

	var sb strings.Builder
	sb.WriteString("Unsupported content\n")
	fmt.Fprintf(&sb, "Filename: %s\n", filename)
	fmt.Fprintf(&sb, "Size: %d bytes\n", len(payload))
	fmt.Fprintf(&sb, "Content type: %s\n", contentType)
	return sb.String()
}
