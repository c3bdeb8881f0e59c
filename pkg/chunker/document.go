package chunker

import (
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
)

// chunkDocument accumulates whole paragraphs (blank-line delimited) until
// adding the next paragraph would exceed the size limit, then closes the
// chunk and seeds the next with an overlap tail. A paragraph larger than
// the limit is emitted whole; the chunker never truncates mid-paragraph.
func (c *Chunker) chunkDocument(text string, opts Options) []common.Chunk {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []common.Chunk
	var sb strings.Builder
	seedLen := 0
	pos := 0

	flush := func() {
		chunkText := strings.TrimSpace(sb.String())
		if chunkText == "" {
			return
		}
		start := pos - seedLen
		chunks = append(chunks, common.Chunk{
			Index: len(chunks),
			Text:  chunkText,
			Start: start,
			End:   start + len(chunkText),
			Type:  ChunkTypeDocumentSection,
		})

		seed := overlapTail(chunkText, opts.OverlapSize)
		pos = start + len(chunkText)
		seedLen = len(seed)
		sb.Reset()
		sb.WriteString(seed)
	}

	for _, paragraph := range paragraphs {
		if sb.Len() > 0 && sb.Len()+2+len(paragraph) > opts.MaxChunkSize {
			flush()
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(paragraph)
	}

	chunkText := strings.TrimSpace(sb.String())
	if chunkText != "" && (len(chunks) == 0 || chunkText != overlapTail(chunks[len(chunks)-1].Text, opts.OverlapSize)) {
		start := pos - seedLen
		chunks = append(chunks, common.Chunk{
			Index: len(chunks),
			Text:  chunkText,
			Start: start,
			End:   start + len(chunkText),
			Type:  ChunkTypeDocumentSection,
		})
	}

	return chunks
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
