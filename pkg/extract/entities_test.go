package extract

import (
	"strings"
	"testing"

	"github.com/corvid-labs/magpie/pkg/common"
)

func findEntity(entities []common.Entity, name, entityType string) (common.Entity, bool) {
	for _, e := range entities {
		if strings.EqualFold(e.Name, name) && e.Type == entityType {
			return e, true
		}
	}
	return common.Entity{}, false
}

func TestExtractEntities(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})

	text := "From: a@x.com To: b@x.com\nJohn works for Acme Corp in New York on 2024-01-05."
	entities := extractor.Extract(text, EntityOptions{})

	want := []struct {
		name string
		typ  string
	}{
		{"John", EntityTypePerson},
		{"Acme Corp", EntityTypeOrganization},
		{"New York", EntityTypeLocation},
		{"2024-01-05", EntityTypeDate},
		{"a@x.com", EntityTypeEmail},
		{"b@x.com", EntityTypeEmail},
	}
	for _, w := range want {
		entity, ok := findEntity(entities, w.name, w.typ)
		if !ok {
			t.Errorf("missing entity %s %q in %v", w.typ, w.name, entities)
			continue
		}
		if entity.Confidence < minEntityConfidence {
			t.Errorf("%s %q confidence %.2f below threshold", w.typ, w.name, entity.Confidence)
		}
		if entity.Context == "" {
			t.Errorf("%s %q has empty context", w.typ, w.name)
		}
	}
}

func TestExtractEntityTypes(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})

	tests := []struct {
		name string
		text string
		want struct {
			name string
			typ  string
		}
	}{
		{
			name: "person with title",
			text: "The report was reviewed by Dr. Miller before release.",
			want: struct{ name, typ string }{"Miller", EntityTypePerson},
		},
		{
			name: "money amount",
			text: "The deal closed at $4.5 million after negotiation.",
			want: struct{ name, typ string }{"$4.5 million", EntityTypeMoney},
		},
		{
			name: "technology term with display casing",
			text: "We migrated the cache from redis to a managed service.",
			want: struct{ name, typ string }{"Redis", EntityTypeTechnology},
		},
		{
			name: "version with prefix",
			text: "Upgrade to v2.3 is planned for next sprint.",
			want: struct{ name, typ string }{"v2.3", EntityTypeVersion},
		},
		{
			name: "three component version",
			text: "The bug appeared in 1.12.4 and was fixed later.",
			want: struct{ name, typ string }{"1.12.4", EntityTypeVersion},
		},
		{
			name: "bare two component version",
			text: "The service was migrated to Python 3.10 last month.",
			want: struct{ name, typ string }{"3.10", EntityTypeVersion},
		},
		{
			name: "german date",
			text: "Der Vertrag wurde am 15. März 2024 unterzeichnet.",
			want: struct{ name, typ string }{"15. März 2024", EntityTypeDate},
		},
		{
			name: "url without trailing punctuation",
			text: "Docs live at https://docs.example.com/guide.",
			want: struct{ name, typ string }{"https://docs.example.com/guide", EntityTypeURL},
		},
		{
			name: "written month date",
			text: "The contract was signed on January 5, 2024 in person.",
			want: struct{ name, typ string }{"January 5, 2024", EntityTypeDate},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities := extractor.Extract(tt.text, EntityOptions{})
			if _, ok := findEntity(entities, tt.want.name, tt.want.typ); !ok {
				t.Errorf("missing entity %s %q in %v", tt.want.typ, tt.want.name, entities)
			}
		})
	}
}

func TestExtractEntitiesInvalidDateRejected(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})
	entities := extractor.Extract("The code 2024-99-99 is a reference number, not a date.", EntityOptions{})
	if _, ok := findEntity(entities, "2024-99-99", EntityTypeDate); ok {
		t.Error("invalid calendar date was extracted as DATE")
	}

	entities = extractor.Extract("Die Nummer 99. Januar 2024 ist kein Datum.", EntityOptions{})
	if _, ok := findEntity(entities, "99. Januar 2024", EntityTypeDate); ok {
		t.Error("out of range day was extracted as DATE")
	}
}

func TestExtractEntitiesOccurrenceCount(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})
	entities := extractor.Extract("Docker here, docker there, and Docker again.", EntityOptions{})

	entity, ok := findEntity(entities, "Docker", EntityTypeTechnology)
	if !ok {
		t.Fatalf("missing TECHNOLOGY entity Docker in %v", entities)
	}
	if entity.Occurrences != 3 {
		t.Errorf("occurrences = %d, want 3", entity.Occurrences)
	}
}

func TestExtractEntitiesDomainDictionary(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})
	text := "The stakeholder review covered revenue and the fiscal year outlook."

	withDomain := extractor.Extract(text, EntityOptions{Domain: "business"})
	if _, ok := findEntity(withDomain, "Stakeholder", "BUSINESS_TERM"); !ok {
		t.Errorf("missing BUSINESS_TERM Stakeholder in %v", withDomain)
	}

	withoutDomain := extractor.Extract(text, EntityOptions{})
	if _, ok := findEntity(withoutDomain, "Stakeholder", "BUSINESS_TERM"); ok {
		t.Error("domain term extracted without a domain option")
	}
}

func TestExtractEntitiesConfidenceFloor(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})
	text := "Dr. Smith from Acme Inc pushed v1.2.3 to https://git.example.com on 2024-03-01 for $500."
	for _, entity := range extractor.Extract(text, EntityOptions{}) {
		if entity.Confidence < minEntityConfidence {
			t.Errorf("entity %s %q passed filter with confidence %.2f", entity.Type, entity.Name, entity.Confidence)
		}
	}
}

func TestDedupeEntities(t *testing.T) {
	raw := []common.Entity{
		{Name: "Acme Corp", Type: EntityTypeOrganization, Confidence: 0.7, Occurrences: 1, Context: "first"},
		{Name: "acme corp", Type: EntityTypeOrganization, Confidence: 0.9, Occurrences: 2},
		{Name: "Acme Corp", Type: EntityTypeTechnology, Confidence: 0.8, Occurrences: 1},
	}

	out := DedupeEntities(raw)
	if len(out) != 2 {
		t.Fatalf("expected 2 entities after dedup, got %d", len(out))
	}
	merged := out[0]
	if merged.Confidence != 0.9 {
		t.Errorf("merged confidence = %.2f, want max 0.9", merged.Confidence)
	}
	if merged.Occurrences != 3 {
		t.Errorf("merged occurrences = %d, want 3", merged.Occurrences)
	}
	if merged.Name != "Acme Corp" || merged.Context != "first" {
		t.Errorf("first observation should win name and context, got %+v", merged)
	}
}

func TestExtractEntitiesLayerPanicDegrades(t *testing.T) {
	// A failing layer contributes nothing; the call itself never aborts.
	extractor := NewEntityExtractor(NewEntityExtractorParams{})
	broken := entityLayer{
		name: "broken",
		run: func(*EntityExtractor, string, EntityOptions) []common.Entity {
			panic("layer blew up")
		},
	}
	if got := extractor.runLayer(broken, "some text", EntityOptions{}); got != nil {
		t.Errorf("panicking layer contributed %v, want nil", got)
	}
}

func TestExtractEntitiesEmptyInput(t *testing.T) {
	extractor := NewEntityExtractor(NewEntityExtractorParams{})
	if got := extractor.Extract("   \n ", EntityOptions{}); len(got) != 0 {
		t.Errorf("expected no entities for blank input, got %v", got)
	}
}
