package chunker

import (
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
)

// chunkEmail splits the header block (lines up to the first blank line
// following a "Subject:" line) into one header chunk and generic-chunks the
// remaining body. Text without a recognizable header block is chunked as a
// plain body.
func (c *Chunker) chunkEmail(text string, opts Options) []common.Chunk {
	headerEnd := emailHeaderEnd(text)
	if headerEnd <= 0 {
		return c.genericChunks(text, opts, ChunkTypeEmailBody, 0)
	}

	header := strings.TrimSpace(text[:headerEnd])
	body := text[headerEnd:]

	chunks := []common.Chunk{{
		Index: 0,
		Text:  header,
		Start: 0,
		End:   headerEnd,
		Type:  ChunkTypeEmailHeader,
	}}

	bodyChunks := c.genericChunks(body, opts, ChunkTypeEmailBody, headerEnd)
	for _, chunk := range bodyChunks {
		chunk.Index = len(chunks)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// emailHeaderEnd returns the offset just past the header block, or -1 when
// the text carries no "Subject:" header line.
func emailHeaderEnd(text string) int {
	lines := strings.Split(text, "\n")
	subjectSeen := false
	offset := 0

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "Subject:") {
			subjectSeen = true
		}
		if subjectSeen && trimmed == "" {
			return offset
		}
		offset += len(line) + 1
	}

	if subjectSeen {
		// Header-only email with no body.
		return len(text)
	}
	return -1
}
