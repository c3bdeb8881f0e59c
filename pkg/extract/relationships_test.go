package extract

import (
	"strings"
	"testing"

	"github.com/corvid-labs/magpie/pkg/common"
)

func findRelationship(rels []common.Relationship, source, relType, target string) (common.Relationship, bool) {
	for _, r := range rels {
		if strings.EqualFold(r.Source, source) && r.Type == relType && strings.EqualFold(r.Target, target) {
			return r, true
		}
	}
	return common.Relationship{}, false
}

func TestExtractRelationshipsWorksFor(t *testing.T) {
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})

	text := "John works for Acme Corp in New York on 2024-01-05."
	entities := []common.Entity{
		{Name: "John", Type: EntityTypePerson, Confidence: 0.8},
		{Name: "Acme Corp", Type: EntityTypeOrganization, Confidence: 0.7},
		{Name: "New York", Type: EntityTypeLocation, Confidence: 0.7},
		{Name: "2024-01-05", Type: EntityTypeDate, Confidence: 0.9},
	}

	rels := extractor.Extract(text, entities)

	rel, ok := findRelationship(rels, "John", "WORKS_FOR", "Acme Corp")
	if !ok {
		t.Fatalf("missing WORKS_FOR(John, Acme Corp) in %v", rels)
	}
	if rel.Confidence < 0.7 {
		t.Errorf("WORKS_FOR confidence = %.2f, want >= 0.7", rel.Confidence)
	}
	if rel.Context == "" {
		t.Error("relationship has empty context")
	}
}

func TestExtractRelationshipsPatternTable(t *testing.T) {
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})

	tests := []struct {
		name    string
		text    string
		source  string
		relType string
		target  string
	}{
		{"is a", "Magpie is a Pipeline for ingestion.", "Magpie", "IS_A", "Pipeline"},
		{"acquired", "Initech acquired Hooli last spring.", "Initech", "ACQUIRED", "Hooli"},
		{"depends on", "Frontend depends on Gateway for routing.", "Frontend", "DEPENDS_ON", "Gateway"},
		{"reports to", "Alice reports to Bob on Mondays.", "Alice", "REPORTS_TO", "Bob"},
		{"integrates with", "Billing integrates with Ledger via events.", "Billing", "INTEGRATES_WITH", "Ledger"},
		{"partners with", "Initech partners with Globex in Europe.", "Initech", "PARTNERS_WITH", "Globex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rels := extractor.Extract(tt.text, nil)
			rel, ok := findRelationship(rels, tt.source, tt.relType, tt.target)
			if !ok {
				t.Fatalf("missing %s(%s, %s) in %v", tt.relType, tt.source, tt.target, rels)
			}
			if rel.Confidence != patternConfidence {
				t.Errorf("confidence = %.2f, want %.2f", rel.Confidence, patternConfidence)
			}
			if rel.ExtractionMethod != MethodPattern {
				t.Errorf("extraction method = %q, want %q", rel.ExtractionMethod, MethodPattern)
			}
		})
	}
}

func TestExtractRelationshipsPairFallback(t *testing.T) {
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})

	text := "Maria and Initech appeared in the same filing."
	entities := []common.Entity{
		{Name: "Maria", Type: EntityTypePerson, Confidence: 0.8},
		{Name: "Initech", Type: EntityTypeOrganization, Confidence: 0.7},
	}

	rels := extractor.Extract(text, entities)
	rel, ok := findRelationship(rels, "Maria", pairFallbackType, "Initech")
	if !ok {
		// Direction of the fallback association is not defined.
		rel, ok = findRelationship(rels, "Initech", pairFallbackType, "Maria")
	}
	if !ok {
		t.Fatalf("missing %s between Maria and Initech in %v", pairFallbackType, rels)
	}
	if rel.Confidence != pairFallbackConfidence {
		t.Errorf("confidence = %.2f, want %.2f", rel.Confidence, pairFallbackConfidence)
	}
}

func TestExtractRelationshipsConfidenceFloor(t *testing.T) {
	// Blanket co-occurrences are produced at 0.4 and must never survive the
	// 0.5 filter.
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})

	text := "Maria visited Initech and Globex across Europe during 2024."
	entities := []common.Entity{
		{Name: "Maria", Type: EntityTypePerson, Confidence: 0.8},
		{Name: "Initech", Type: EntityTypeOrganization, Confidence: 0.7},
		{Name: "Globex", Type: EntityTypeOrganization, Confidence: 0.7},
	}

	for _, rel := range extractor.Extract(text, entities) {
		if rel.Confidence < minRelationshipConfidence {
			t.Errorf("relationship %s(%s, %s) passed filter with confidence %.2f",
				rel.Type, rel.Source, rel.Target, rel.Confidence)
		}
		if rel.Type == coOccurrenceType {
			t.Errorf("co-occurrence relationship survived the confidence filter: %+v", rel)
		}
	}

	raw := extractor.extractCoOccurrences(text, entities)
	if len(raw) == 0 {
		t.Error("co-occurrence pass produced no raw candidates")
	}
	for _, rel := range raw {
		if rel.Confidence != coOccurrenceConfidence {
			t.Errorf("raw co-occurrence confidence = %.2f, want %.2f", rel.Confidence, coOccurrenceConfidence)
		}
	}
}

func TestExtractRelationshipsSVO(t *testing.T) {
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})

	rels := extractor.extractSVO("Gateway sends Payload downstream.", nil)
	rel, ok := findRelationship(rels, "Gateway", "SENDS", "Payload")
	if !ok {
		t.Fatalf("missing SENDS(Gateway, Payload) in %v", rels)
	}
	if rel.Confidence != svoConfidence {
		t.Errorf("confidence = %.2f, want %.2f", rel.Confidence, svoConfidence)
	}
	if rel.ExtractionMethod != MethodSemanticSVO {
		t.Errorf("extraction method = %q, want %q", rel.ExtractionMethod, MethodSemanticSVO)
	}
}

func TestDedupeRelationships(t *testing.T) {
	raw := []common.Relationship{
		{Source: "John", Type: "WORKS_FOR", Target: "Acme Corp", Confidence: 0.7, ExtractionMethod: MethodPairInference},
		{Source: "john", Type: "WORKS_FOR", Target: "acme corp", Confidence: 0.8, ExtractionMethod: MethodPattern},
		{Source: "Acme Corp", Type: "WORKS_FOR", Target: "John", Confidence: 0.6},
	}

	out := DedupeRelationships(raw)
	if len(out) != 2 {
		t.Fatalf("expected 2 relationships after dedup (key is directional), got %d", len(out))
	}
	if out[0].Confidence != 0.8 {
		t.Errorf("merged confidence = %.2f, want max 0.8", out[0].Confidence)
	}
	if out[0].ExtractionMethod != MethodPattern {
		t.Errorf("winning extraction method = %q, want %q", out[0].ExtractionMethod, MethodPattern)
	}
}

func TestExtractRelationshipsPassPanicDegrades(t *testing.T) {
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})
	broken := relationshipPass{
		name: "broken",
		run: func(*RelationshipExtractor, string, []common.Entity) []common.Relationship {
			panic("pass blew up")
		},
	}
	if got := extractor.runPass(broken, "some text", nil); got != nil {
		t.Errorf("panicking pass contributed %v, want nil", got)
	}
}

func TestExtractRelationshipsEmptyInput(t *testing.T) {
	extractor := NewRelationshipExtractor(NewRelationshipExtractorParams{})
	if got := extractor.Extract("  ", nil); len(got) != 0 {
		t.Errorf("expected no relationships for blank input, got %v", got)
	}
}
