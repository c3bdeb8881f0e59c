package chunker

import (
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
)

func (c *Chunker) chunkGeneric(text string, opts Options) []common.Chunk {
	return c.genericChunks(text, opts, ChunkTypeText, 0)
}

// genericChunks accumulates sentences until the size limit, then closes the
// chunk and seeds the next one with an overlap tail. Offsets are tracked as
// a running position so chunks stay contiguous: each chunk starts where its
// overlap seed begins inside the previous chunk. A single sentence larger
// than the limit is emitted whole.
func (c *Chunker) genericChunks(text string, opts Options, chunkType string, offset int) []common.Chunk {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []common.Chunk
	var sb strings.Builder
	seedLen := 0
	pos := offset

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
			Type:  chunkType,
		})

		seed := overlapTail(chunkText, opts.OverlapSize)
		pos = start + len(chunkText)
		seedLen = len(seed)
		sb.Reset()
		sb.WriteString(seed)
	}

	for _, sentence := range sentences {
		if sb.Len() > 0 && sb.Len()+1+len(sentence) > opts.MaxChunkSize {
			flush()
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(sentence)
	}

	// Final flush without seeding another chunk.
	chunkText := strings.TrimSpace(sb.String())
	if chunkText != "" && (len(chunks) == 0 || chunkText != overlapTail(chunks[len(chunks)-1].Text, opts.OverlapSize)) {
		start := pos - seedLen
		chunks = append(chunks, common.Chunk{
			Index: len(chunks),
			Text:  chunkText,
			Start: start,
			End:   start + len(chunkText),
			Type:  chunkType,
		})
	}

	return chunks
}
