package chunker

import (
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
)

// chunkMarkdown splits on heading boundaries first, then generic-chunks
// each section independently. Sections use 80% of the configured maximum to
// leave room for heading context carried at the top of each section.
func (c *Chunker) chunkMarkdown(text string, opts Options) []common.Chunk {
	sections := splitMarkdownSections(text)
	if len(sections) == 0 {
		return nil
	}

	sectionOpts := opts
	sectionOpts.MaxChunkSize = opts.MaxChunkSize * 80 / 100
	if sectionOpts.MaxChunkSize <= 0 {
		sectionOpts.MaxChunkSize = opts.MaxChunkSize
	}
	if sectionOpts.OverlapSize >= sectionOpts.MaxChunkSize {
		sectionOpts.OverlapSize = sectionOpts.MaxChunkSize / 4
	}

	var chunks []common.Chunk
	offset := 0
	for _, section := range sections {
		sectionChunks := c.genericChunks(section, sectionOpts, ChunkTypeMarkdownSection, offset)
		for _, chunk := range sectionChunks {
			chunk.Index = len(chunks)
			chunks = append(chunks, chunk)
		}
		offset += len(section) + 1
	}
	return chunks
}

func splitMarkdownSections(text string) []string {
	lines := strings.Split(text, "\n")
	var sections []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sections = append(sections, s)
		}
		current.Reset()
	}

	for _, line := range lines {
		if isMarkdownHeading(line) && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	return sections
}

func isMarkdownHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	return level <= 6 && level < len(trimmed) && trimmed[level] == ' '
}
