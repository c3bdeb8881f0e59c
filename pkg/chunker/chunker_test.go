package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/corvid-labs/magpie/pkg/common"
)

func newTestChunker() *Chunker {
	return NewChunker(NewChunkerParams{})
}

func TestChunkGenericDocument(t *testing.T) {
	// Build a plain document of roughly 5,000 characters from distinct
	// sentences so content preservation can be checked per sentence.
	var sb strings.Builder
	var wantSentences []string
	for i := 0; sb.Len() < 5000; i++ {
		s := fmt.Sprintf("Sentence number %03d talks about a different topic entirely.", i)
		wantSentences = append(wantSentences, s)
		sb.WriteString(s)
		sb.WriteString(" ")
	}
	text := strings.TrimSpace(sb.String())

	opts := Options{MaxChunkSize: 1000, OverlapSize: 200, ContentType: ContentTypeGeneric}
	chunks := newTestChunker().Chunk(text, opts)

	if len(chunks) < 5 {
		t.Fatalf("expected at least 5 chunks for a 5000 char document, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
		if strings.TrimSpace(chunk.Text) == "" {
			t.Errorf("chunk %d is empty", i)
		}
		if len(chunk.Text) > opts.MaxChunkSize {
			t.Errorf("chunk %d is %d chars, exceeds max %d", i, len(chunk.Text), opts.MaxChunkSize)
		}
		if chunk.End-chunk.Start != len(chunk.Text) {
			t.Errorf("chunk %d offsets span %d chars but text is %d", i, chunk.End-chunk.Start, len(chunk.Text))
		}
	}

	// Each chunk after the first starts with the overlap tail of its
	// predecessor, so context carries across the boundary.
	for i := 1; i < len(chunks); i++ {
		seed := overlapTail(chunks[i-1].Text, opts.OverlapSize)
		if !strings.HasPrefix(chunks[i].Text, seed) {
			t.Errorf("chunk %d does not start with the previous chunk's overlap tail\nseed: %q\ngot:  %q",
				i, seed, chunks[i].Text[:min(len(chunks[i].Text), len(seed))])
		}
	}

	// No sentence is lost.
	all := strings.Join(chunkTexts(chunks), " ")
	for _, s := range wantSentences {
		if !strings.Contains(all, s) {
			t.Errorf("sentence missing from chunks: %q", s)
		}
	}
}

func TestChunkEmail(t *testing.T) {
	email := "From: alice@example.com\nTo: bob@example.com\nSubject: Quarterly report\n\n" +
		"Hi Bob. The quarterly numbers look strong. Revenue is up twelve percent over last quarter. " +
		"Let me know if you want the full breakdown before the board meeting."

	chunks := newTestChunker().Chunk(email, Options{ContentType: ContentTypeEmail})

	if len(chunks) < 2 {
		t.Fatalf("expected header and body chunks, got %d", len(chunks))
	}
	if chunks[0].Type != ChunkTypeEmailHeader {
		t.Errorf("first chunk type = %q, want %q", chunks[0].Type, ChunkTypeEmailHeader)
	}
	if !strings.Contains(chunks[0].Text, "Subject: Quarterly report") {
		t.Errorf("header chunk missing subject line: %q", chunks[0].Text)
	}
	for _, chunk := range chunks[1:] {
		if chunk.Type != ChunkTypeEmailBody {
			t.Errorf("body chunk type = %q, want %q", chunk.Type, ChunkTypeEmailBody)
		}
	}
	if !strings.Contains(strings.Join(chunkTexts(chunks[1:]), " "), "Revenue is up twelve percent") {
		t.Error("body content missing from body chunks")
	}
}

func TestChunkEmailWithoutHeaders(t *testing.T) {
	chunks := newTestChunker().Chunk("Just a short reply with no header block at all.", Options{ContentType: ContentTypeEmail})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Type != ChunkTypeEmailBody {
		t.Errorf("chunk type = %q, want %q", chunks[0].Type, ChunkTypeEmailBody)
	}
}

func TestChunkCode(t *testing.T) {
	code := `func add(a, b int) int {
	return a + b
}

func sub(a, b int) int {
	return a - b
}`

	chunks := newTestChunker().Chunk(code, Options{MaxChunkSize: 40, OverlapSize: 10, ContentType: ContentTypeCode})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Type != ChunkTypeCodeBlock {
			t.Errorf("chunk %d type = %q, want %q", i, chunk.Type, ChunkTypeCodeBlock)
		}
		open := strings.Count(chunk.Text, "{")
		closed := strings.Count(chunk.Text, "}")
		if open != closed {
			t.Errorf("chunk %d splits mid block: %d opening vs %d closing braces", i, open, closed)
		}
	}
	if !strings.Contains(chunks[0].Text, "func add") || !strings.Contains(chunks[1].Text, "func sub") {
		t.Errorf("functions not split at block boundaries: %q / %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestChunkMarkdown(t *testing.T) {
	md := "# Introduction\n\nThis section explains the background of the project.\n\n" +
		"## Details\n\nThe details section covers configuration and deployment steps.\n\n" +
		"## Summary\n\nA short closing summary."

	chunks := newTestChunker().Chunk(md, Options{ContentType: ContentTypeMarkdown})

	if len(chunks) != 3 {
		t.Fatalf("expected 3 section chunks, got %d", len(chunks))
	}
	wantHeadings := []string{"# Introduction", "## Details", "## Summary"}
	for i, chunk := range chunks {
		if chunk.Type != ChunkTypeMarkdownSection {
			t.Errorf("chunk %d type = %q, want %q", i, chunk.Type, ChunkTypeMarkdownSection)
		}
		if !strings.HasPrefix(chunk.Text, wantHeadings[i]) {
			t.Errorf("chunk %d does not start with heading %q: %q", i, wantHeadings[i], chunk.Text)
		}
	}
}

func TestChunkUnsupported(t *testing.T) {
	text := strings.Repeat("opaque payload summary. ", 100)
	chunks := newTestChunker().Chunk(text, Options{MaxChunkSize: 100, ContentType: ContentTypeUnsupported})

	if len(chunks) != 1 {
		t.Fatalf("unsupported content must yield exactly one chunk, got %d", len(chunks))
	}
	if chunks[0].Type != ChunkTypeUnsupported {
		t.Errorf("chunk type = %q, want %q", chunks[0].Type, ChunkTypeUnsupported)
	}
}

func TestChunkOversizedSentence(t *testing.T) {
	// A single sentence larger than the limit is emitted whole rather than
	// truncated.
	sentence := "word " + strings.Repeat("verylongtoken ", 100) + "end."
	chunks := newTestChunker().Chunk(sentence, Options{MaxChunkSize: 200, OverlapSize: 50})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if len(chunks[0].Text) <= 200 {
		t.Errorf("oversized sentence appears truncated: %d chars", len(chunks[0].Text))
	}
}

func TestChunkEmptyInput(t *testing.T) {
	for _, tc := range []string{"", "   ", "\n\n\t"} {
		if chunks := newTestChunker().Chunk(tc, Options{}); len(chunks) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", tc, len(chunks))
		}
	}
}

func TestChunkUnknownContentTypeFallsBack(t *testing.T) {
	chunks := newTestChunker().Chunk("A sentence of plain text.", Options{ContentType: "spreadsheet"})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Type != ChunkTypeText {
		t.Errorf("chunk type = %q, want %q", chunks[0].Type, ChunkTypeText)
	}
}

func TestChunkDocumentParagraphs(t *testing.T) {
	var paragraphs []string
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, fmt.Sprintf(
			"Paragraph %02d holds a few sentences. It stays together as one unit. The chunker never splits inside it.", i))
	}
	text := strings.Join(paragraphs, "\n\n")

	chunks := newTestChunker().Chunk(text, Options{MaxChunkSize: 400, OverlapSize: 80, ContentType: ContentTypeDocument})

	if len(chunks) < 3 {
		t.Fatalf("expected multiple section chunks, got %d", len(chunks))
	}
	all := strings.Join(chunkTexts(chunks), "\n\n")
	for i := range paragraphs {
		marker := fmt.Sprintf("Paragraph %02d holds", i)
		if !strings.Contains(all, marker) {
			t.Errorf("paragraph %d missing from chunks", i)
		}
	}
	for i, chunk := range chunks {
		if chunk.Type != ChunkTypeDocumentSection {
			t.Errorf("chunk %d type = %q, want %q", i, chunk.Type, ChunkTypeDocumentSection)
		}
	}
}

func TestOverlapTail(t *testing.T) {
	tests := []struct {
		name    string
		closed  string
		overlap int
		want    string
	}{
		{
			name:    "shorter than overlap returns whole text",
			closed:  "short text",
			overlap: 200,
			want:    "short text",
		},
		{
			name:    "prefers sentence boundary inside tail",
			closed:  "Some earlier content sits here. The final sentence is this one.",
			overlap: 40,
			want:    "The final sentence is this one.",
		},
		{
			name:    "falls back to word boundary",
			closed:  "alpha beta gamma delta epsilon zeta eta theta",
			overlap: 20,
			want:    "zeta eta theta",
		},
		{
			name:    "zero overlap yields empty seed",
			closed:  "anything at all",
			overlap: 0,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlapTail(tt.closed, tt.overlap); got != tt.want {
				t.Errorf("overlapTail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain sentences",
			text: "First one. Second one! Third one?",
			want: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name: "line break inside sentence joins",
			text: "A sentence split\nacross lines.",
			want: []string{"A sentence split across lines."},
		},
		{
			name: "numeric listing stays together",
			text: "1. First item and more words here",
			want: []string{"1. First item and more words here"},
		},
		{
			name: "closing quote stays attached",
			text: `She said "stop." Then she left.`,
			want: []string{`She said "stop."`, "Then she left."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("splitSentences() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func chunkTexts(chunks []common.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
