package chunker

import (
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
)

// chunkCode accumulates lines while tracking brace depth. It breaks at a
// blank line when the depth is zero (never mid-function), or immediately
// once the accumulated size exceeds the limit. Code blocks carry no overlap
// seed; a repeated trailing fragment would not be valid code context.
func (c *Chunker) chunkCode(text string, opts Options) []common.Chunk {
	lines := strings.Split(text, "\n")

	var chunks []common.Chunk
	var sb strings.Builder
	depth := 0
	start := 0
	pos := 0

	flush := func(end int) {
		chunkText := strings.Trim(sb.String(), "\n")
		if strings.TrimSpace(chunkText) != "" {
			chunks = append(chunks, common.Chunk{
				Index: len(chunks),
				Text:  chunkText,
				Start: start,
				End:   end,
				Type:  ChunkTypeCodeBlock,
			})
		}
		sb.Reset()
		start = end
	}

	for _, line := range lines {
		lineEnd := pos + len(line) + 1
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth < 0 {
			depth = 0
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" && depth == 0 && sb.Len() > 0 {
			flush(pos)
			start = lineEnd
			pos = lineEnd
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(line)
		pos = lineEnd

		if sb.Len() > opts.MaxChunkSize && depth == 0 {
			flush(pos)
		}
	}
	flush(pos)

	return chunks
}
