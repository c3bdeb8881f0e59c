package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/corvid-labs/magpie/pkg/chunker"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/extract"
	"github.com/corvid-labs/magpie/pkg/normalize"
	"github.com/corvid-labs/magpie/pkg/store"
)

// In-memory store fakes. The graph fake mirrors the merge semantics of the
// real driver: entity nodes are singletons per (name, type), relationship
// confidence only ratchets upward.

type memFlat struct {
	mu        sync.Mutex
	rows      []store.FlatChunkRow
	failAfter int // fail on the nth write, 0 disables
}

func (m *memFlat) SaveChunk(_ context.Context, row store.FlatChunkRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter > 0 && len(m.rows)+1 >= m.failAfter {
		return errors.New("disk full")
	}
	m.rows = append(m.rows, row)
	return nil
}

type memEntityNode struct {
	confidence float64
	seen       int
}

type memRelEdge struct {
	confidence float64
	seen       int
}

type memGraph struct {
	mu        sync.Mutex
	documents map[string]store.DocumentNode
	chunks    []store.ChunkNode
	entities  map[string]*memEntityNode // key: name|type
	relations map[string]*memRelEdge    // key: source|type|target
	sessions  int
	released  int
	failDoc   bool
}

func newMemGraph() *memGraph {
	return &memGraph{
		documents: make(map[string]store.DocumentNode),
		entities:  make(map[string]*memEntityNode),
		relations: make(map[string]*memRelEdge),
	}
}

func (m *memGraph) Session(context.Context) (store.GraphSession, error) {
	m.mu.Lock()
	m.sessions++
	m.mu.Unlock()
	return &memGraphSession{graph: m}, nil
}

type memGraphSession struct {
	graph *memGraph
}

func (s *memGraphSession) CreateDocument(_ context.Context, doc store.DocumentNode) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	if s.graph.failDoc {
		return errors.New("node store unavailable")
	}
	s.graph.documents[doc.ID] = doc
	return nil
}

func (s *memGraphSession) CreateChunk(_ context.Context, _ string, chunk store.ChunkNode) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	s.graph.chunks = append(s.graph.chunks, chunk)
	return nil
}

func (s *memGraphSession) MergeEntity(_ context.Context, _ string, entity common.Entity) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	key := entity.Name + "|" + entity.Type
	node, ok := s.graph.entities[key]
	if !ok {
		s.graph.entities[key] = &memEntityNode{confidence: entity.Confidence, seen: 1}
		return nil
	}
	node.seen++
	return nil
}

func (s *memGraphSession) MergeRelationship(_ context.Context, rel common.Relationship) error {
	s.graph.mu.Lock()
	defer s.graph.mu.Unlock()
	key := rel.Source + "|" + rel.Type + "|" + rel.Target
	edge, ok := s.graph.relations[key]
	if !ok {
		s.graph.relations[key] = &memRelEdge{confidence: rel.Confidence, seen: 1}
		return nil
	}
	edge.seen++
	if rel.Confidence > edge.confidence {
		edge.confidence = rel.Confidence
	}
	return nil
}

func (s *memGraphSession) Release() {
	s.graph.mu.Lock()
	s.graph.released++
	s.graph.mu.Unlock()
}

type memLedger struct {
	mu      sync.Mutex
	records []common.ProcessingRecord
	fail    bool
}

func (m *memLedger) Record(_ context.Context, record common.ProcessingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("ledger down")
	}
	m.records = append(m.records, record)
	return nil
}

func (m *memLedger) Stats(context.Context, string) (common.Stats, error) {
	return common.Stats{}, nil
}

type testEnv struct {
	pipeline *Pipeline
	flat     *memFlat
	graph    *memGraph
	ledger   *memLedger
}

func newTestEnv() *testEnv {
	flat := &memFlat{}
	graph := newMemGraph()
	ledger := &memLedger{}

	writer := store.NewWriter(store.NewWriterParams{
		Flat:  flat,
		Graph: graph,
	})

	p := NewPipeline(NewPipelineParams{
		Normalizer:            normalize.NewNormalizer(normalize.NewNormalizerParams{}),
		Chunker:               chunker.NewChunker(chunker.NewChunkerParams{}),
		EntityExtractor:       extract.NewEntityExtractor(extract.NewEntityExtractorParams{}),
		RelationshipExtractor: extract.NewRelationshipExtractor(extract.NewRelationshipExtractorParams{}),
		Writer:                writer,
		Ledger:                ledger,
	})

	return &testEnv{pipeline: p, flat: flat, graph: graph, ledger: ledger}
}

const scenarioEmail = "Subject: Meeting\nFrom: a@x.com\nTo: b@x.com\n\nJohn works for Acme Corp in New York on 2024-01-05."

func emailUnit() common.ContentUnit {
	return common.ContentUnit{
		Content:  scenarioEmail,
		Metadata: map[string]any{"source_type": "email"},
	}
}

func TestProcessEmail(t *testing.T) {
	env := newTestEnv()

	result, err := env.pipeline.Process(context.Background(), emailUnit())
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	// One header chunk plus at least one body chunk.
	if len(result.Chunks) < 2 {
		t.Fatalf("expected header and body chunks, got %d", len(result.Chunks))
	}
	if result.Chunks[0].Type != chunker.ChunkTypeEmailHeader {
		t.Errorf("first chunk type = %q, want %q", result.Chunks[0].Type, chunker.ChunkTypeEmailHeader)
	}

	wantEntities := []struct {
		name string
		typ  string
	}{
		{"John", "PERSON"},
		{"Acme Corp", "ORGANIZATION"},
		{"New York", "LOCATION"},
		{"2024-01-05", "DATE"},
		{"a@x.com", "EMAIL"},
		{"b@x.com", "EMAIL"},
	}
	for _, w := range wantEntities {
		found := false
		for _, entity := range result.Entities {
			if strings.EqualFold(entity.Name, w.name) && entity.Type == w.typ {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing entity %s %q in %v", w.typ, w.name, result.Entities)
		}
	}

	worksFor := false
	for _, rel := range result.Relationships {
		if strings.EqualFold(rel.Source, "John") && rel.Type == "WORKS_FOR" &&
			strings.EqualFold(rel.Target, "Acme Corp") && rel.Confidence >= 0.7 {
			worksFor = true
		}
	}
	if !worksFor {
		t.Errorf("missing WORKS_FOR(John, Acme Corp) >= 0.7 in %v", result.Relationships)
	}

	// One flat row per chunk, external ids derived from the processing id.
	if len(env.flat.rows) != len(result.Chunks) {
		t.Errorf("flat rows = %d, want %d", len(env.flat.rows), len(result.Chunks))
	}
	for i, row := range env.flat.rows {
		want := fmt.Sprintf("%s_chunk_%d", result.ProcessingID, i)
		if row.ExternalID != want {
			t.Errorf("row %d external id = %q, want %q", i, row.ExternalID, want)
		}
		if row.EntityType != store.EntityTypeContentChunk {
			t.Errorf("row %d entity type = %q", i, row.EntityType)
		}
	}

	// Graph session opened and released once.
	if env.graph.sessions != 1 || env.graph.released != 1 {
		t.Errorf("sessions = %d released = %d, want 1/1", env.graph.sessions, env.graph.released)
	}
	if _, ok := env.graph.documents[result.ProcessingID]; !ok {
		t.Error("document node missing from graph")
	}

	// Exactly one completed ledger record.
	if len(env.ledger.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(env.ledger.records))
	}
	record := env.ledger.records[0]
	if record.Status != common.StatusCompleted {
		t.Errorf("record status = %q, want %q", record.Status, common.StatusCompleted)
	}
	if record.ChunksProcessed != len(result.Chunks) ||
		record.EntitiesExtracted != len(result.Entities) ||
		record.RelationshipsFound != len(result.Relationships) {
		t.Errorf("record counts %+v do not match result", record)
	}
}

func TestProcessUnsupportedContentType(t *testing.T) {
	env := newTestEnv()

	unit := common.ContentUnit{
		Content: string([]byte{0x1f, 0x8b, 0x08, 0x00}),
		Metadata: map[string]any{
			"source_type":  "application/octet-stream",
			"filename":     "payload.bin",
			"content_type": "application/octet-stream",
		},
	}

	result, err := env.pipeline.Process(context.Background(), unit)
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("expected one metadata-only chunk, got %d", len(result.Chunks))
	}
	if result.Chunks[0].Type != chunker.ChunkTypeUnsupported {
		t.Errorf("chunk type = %q, want %q", result.Chunks[0].Type, chunker.ChunkTypeUnsupported)
	}
	if !strings.Contains(result.Chunks[0].Text, "payload.bin") {
		t.Errorf("metadata chunk missing filename: %q", result.Chunks[0].Text)
	}
}

func TestProcessNormalizationFailure(t *testing.T) {
	env := newTestEnv()

	unit := common.ContentUnit{
		Content:  "   ",
		Metadata: map[string]any{"source_type": "txt"},
	}

	_, err := env.pipeline.Process(context.Background(), unit)
	var normErr *normalize.NormalizationError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizationError, got %v", err)
	}

	// Failure still yields exactly one ledger record.
	if len(env.ledger.records) != 1 {
		t.Fatalf("ledger records = %d, want 1", len(env.ledger.records))
	}
	record := env.ledger.records[0]
	if record.Status != common.StatusFailed || record.Error == "" {
		t.Errorf("record = %+v, want failed with error message", record)
	}
	if len(env.flat.rows) != 0 {
		t.Errorf("flat rows written for a failed unit: %d", len(env.flat.rows))
	}
}

func TestProcessFlatStoreFailureAbortsUnit(t *testing.T) {
	env := newTestEnv()
	env.flat.failAfter = 1

	_, err := env.pipeline.Process(context.Background(), emailUnit())
	var storeErr *store.StoreWriteError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreWriteError, got %v", err)
	}

	if env.graph.sessions != 0 {
		t.Error("graph session opened despite flat store failure")
	}
	if len(env.ledger.records) != 1 || env.ledger.records[0].Status != common.StatusFailed {
		t.Errorf("expected one failed ledger record, got %+v", env.ledger.records)
	}
}

func TestProcessGraphFailureReleasesSession(t *testing.T) {
	env := newTestEnv()
	env.graph.failDoc = true

	_, err := env.pipeline.Process(context.Background(), emailUnit())
	var graphErr *store.GraphWriteError
	if !errors.As(err, &graphErr) {
		t.Fatalf("expected GraphWriteError, got %v", err)
	}
	if env.graph.sessions != 1 || env.graph.released != 1 {
		t.Errorf("sessions = %d released = %d, want session released on failure",
			env.graph.sessions, env.graph.released)
	}
}

func TestProcessLedgerFailureIsBestEffort(t *testing.T) {
	env := newTestEnv()
	env.ledger.fail = true

	if _, err := env.pipeline.Process(context.Background(), emailUnit()); err != nil {
		t.Fatalf("ledger failure must not fail the unit: %v", err)
	}
}

func TestProcessTwiceMergesEntities(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.pipeline.Process(ctx, emailUnit()); err != nil {
		t.Fatal(err)
	}
	if _, err := env.pipeline.Process(ctx, emailUnit()); err != nil {
		t.Fatal(err)
	}

	node, ok := env.graph.entities["John|PERSON"]
	if !ok {
		t.Fatal("entity node John|PERSON missing")
	}
	if node.seen != 2 {
		t.Errorf("entity node seen = %d, want 2 (merged, not duplicated)", node.seen)
	}
}

func TestProcessBatchPartialFailure(t *testing.T) {
	env := newTestEnv()

	units := []common.ContentUnit{
		{Content: "First unit has plain text content.", Metadata: map[string]any{"source_type": "txt"}},
		{Content: "  ", Metadata: map[string]any{"source_type": "txt"}},
		{Content: "Third unit also has plain text content.", Metadata: map[string]any{"source_type": "txt"}},
	}

	result := env.pipeline.ProcessBatch(context.Background(), units)

	if len(result.Successful) != 2 {
		t.Errorf("successful = %d, want 2", len(result.Successful))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("failed = %d, want 1", len(result.Failed))
	}
	if result.Failed[0].Index != 1 || result.Failed[0].Error == "" {
		t.Errorf("failed item = %+v, want index 1 with error", result.Failed[0])
	}
	if result.Summary.Total != 3 || result.Summary.SuccessfulCount != 2 || result.Summary.FailedCount != 1 {
		t.Errorf("summary = %+v", result.Summary)
	}

	// One ledger record per unit, success or failure.
	if len(env.ledger.records) != 3 {
		t.Errorf("ledger records = %d, want 3", len(env.ledger.records))
	}
}
