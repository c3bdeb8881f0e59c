// Package extract recognizes typed entities and typed directed
// relationships in normalized text. Both extractors are layered: every
// layer produces raw candidates with fixed confidence constants, the
// candidates are deduplicated keeping the maximum confidence, and a final
// filter drops low-confidence results. A failing layer degrades to an empty
// contribution; extraction never aborts the unit.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"
)

// Entity types produced by the extraction layers.
const (
	EntityTypePerson       = "PERSON"
	EntityTypeOrganization = "ORGANIZATION"
	EntityTypeLocation     = "LOCATION"
	EntityTypeDate         = "DATE"
	EntityTypeMoney        = "MONEY"
	EntityTypeTechnology   = "TECHNOLOGY"
	EntityTypeVersion      = "VERSION"
	EntityTypeEmail        = "EMAIL"
	EntityTypeURL          = "URL"
)

// Confidence constants per extraction layer. Tunable defaults, not derived
// values.
const (
	confidencePerson       = 0.8
	confidenceOrganization = 0.7
	confidenceLocation     = 0.7
	confidenceDate         = 0.9
	confidenceMoney        = 0.8
	confidenceTechnology   = 0.8
	confidenceVersion      = 0.7
	confidenceEmail        = 0.95
	confidenceURL          = 0.9
	confidenceDomainTerm   = 0.7

	minEntityConfidence = 0.6

	contextWindowSize = 50
)

// ExtractionError reports a failed extraction layer. It is logged and
// swallowed, never propagated: the layer contributes an empty set instead.
type ExtractionError struct {
	Layer  string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction layer %q failed: %s", e.Layer, e.Reason)
}

// EntityOptions control a single extraction call. Domain selects an
// optional domain-specific term dictionary (software, business, academic,
// legal); empty skips the domain layer.
type EntityOptions struct {
	Domain string
}

// EntityExtractor recognizes typed entities via layered heuristics. It is
// stateless apart from the injected logger.
type EntityExtractor struct {
	log logger.Logger
}

// NewEntityExtractorParams defines the configuration for creating an
// EntityExtractor.
type NewEntityExtractorParams struct {
	Logger logger.Logger
}

// NewEntityExtractor creates an EntityExtractor.
func NewEntityExtractor(params NewEntityExtractorParams) *EntityExtractor {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &EntityExtractor{log: l}
}

type entityLayer struct {
	name string
	run  func(e *EntityExtractor, text string, opts EntityOptions) []common.Entity
}

// entityLayers is the ordered set of extraction layers. New layers are
// added here without touching dispatch control flow.
var entityLayers = []entityLayer{
	{"linguistic", (*EntityExtractor).extractLinguistic},
	{"technology", (*EntityExtractor).extractTechnology},
	{"version", (*EntityExtractor).extractVersions},
	{"email", (*EntityExtractor).extractEmails},
	{"url", (*EntityExtractor).extractURLs},
	{"domain", (*EntityExtractor).extractDomainTerms},
}

// Extract recognizes entities in text. The result is deduplicated by
// (lowercase name, type) keeping the maximum confidence, and filtered to
// confidence >= 0.6.
func (e *EntityExtractor) Extract(text string, opts EntityOptions) []common.Entity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var raw []common.Entity
	for _, layer := range entityLayers {
		raw = append(raw, e.runLayer(layer, text, opts)...)
	}

	entities := filterEntities(dedupeEntities(raw), minEntityConfidence)
	sortEntities(entities)
	e.log.Debug("[EntityExtractor] Extraction finished",
		"raw", len(raw), "kept", len(entities))
	return entities
}

// runLayer isolates a single layer: a panic inside it is recovered and the
// layer contributes nothing.
func (e *EntityExtractor) runLayer(layer entityLayer, text string, opts EntityOptions) (entities []common.Entity) {
	defer func() {
		if r := recover(); r != nil {
			err := &ExtractionError{Layer: layer.name, Reason: fmt.Sprint(r)}
			e.log.Warn("[EntityExtractor] Layer failed, continuing without it", "err", err)
			entities = nil
		}
	}()
	return layer.run(e, text, opts)
}

// Linguistic-parse layer: person, organization, location, date and money
// patterns over surface syntax.

var (
	capitalizedName = `[A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2}`

	// A capitalized name followed by a verb people perform, or preceded by a
	// personal title.
	personVerbRe  = regexp.MustCompile(`\b(` + capitalizedName + `)\s+(?:works?|worked|said|says|wrote|writes|met|meets|joined|joins|leads?|led|manages?|managed|reports?|reported|founded|presented|presents)\b`)
	personTitleRe = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Dr|Prof)\.?\s+(` + capitalizedName + `)`)

	// Capitalized phrase ending in a corporate suffix.
	organizationRe = regexp.MustCompile(`\b((?:[A-Z][A-Za-z&]+\s+)+(?:Corp|Corporation|Inc|LLC|Ltd|GmbH|AG|Company|Group|Technologies|Labs|Systems|Solutions|Partners|Holdings)\b\.?)`)

	// Capitalized phrase after a locational preposition.
	locationRe = regexp.MustCompile(`\b(?:in|at|from|near|to)\s+(` + capitalizedName + `)\b`)

	dateRes = []dateFormat{
		{regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`), parseableDate},
		{regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`), parseableDate},
		{regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`), parseableDate},
		// dateparse knows no German month names; only the day needs checking.
		{regexp.MustCompile(`\b\d{1,2}\.\s*(?:Januar|Februar|März|April|Mai|Juni|Juli|August|September|Oktober|November|Dezember)\s+\d{4}\b`), germanDayInRange},
	}

	moneyRes = []*regexp.Regexp{
		regexp.MustCompile(`[$€£]\s?\d[\d,.]*(?:\s?(?:million|billion|thousand|[MBK]))?`),
		regexp.MustCompile(`\b\d[\d,.]*\s?(?:dollars|euros|pounds|USD|EUR|GBP)\b`),
	}
)

// dateFormat pairs a date pattern with the validation its candidates go
// through before becoming DATE entities.
type dateFormat struct {
	re    *regexp.Regexp
	valid func(string) bool
}

func parseableDate(candidate string) bool {
	_, err := dateparse.ParseAny(candidate)
	return err == nil
}

func germanDayInRange(candidate string) bool {
	dot := strings.IndexByte(candidate, '.')
	if dot < 0 {
		return false
	}
	day, err := strconv.Atoi(candidate[:dot])
	if err != nil {
		return false
	}
	return day >= 1 && day <= 31
}

func (e *EntityExtractor) extractLinguistic(text string, _ EntityOptions) []common.Entity {
	var entities []common.Entity

	for _, re := range []*regexp.Regexp{personVerbRe, personTitleRe} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			entities = append(entities, common.Entity{
				Name:        name,
				Type:        EntityTypePerson,
				Confidence:  confidencePerson,
				Context:     contextWindow(text, m[2], len(name)),
				Occurrences: 1,
			})
		}
	}

	for _, m := range organizationRe.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimSuffix(text[m[2]:m[3]], ".")
		entities = append(entities, common.Entity{
			Name:        name,
			Type:        EntityTypeOrganization,
			Confidence:  confidenceOrganization,
			Context:     contextWindow(text, m[2], len(name)),
			Occurrences: 1,
		})
	}

	for _, m := range locationRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		// Corporate suffixes already claimed by the organization pattern.
		if organizationRe.MatchString(name) {
			continue
		}
		entities = append(entities, common.Entity{
			Name:        name,
			Type:        EntityTypeLocation,
			Confidence:  confidenceLocation,
			Context:     contextWindow(text, m[2], len(name)),
			Occurrences: 1,
		})
	}

	for _, format := range dateRes {
		for _, m := range format.re.FindAllStringIndex(text, -1) {
			candidate := text[m[0]:m[1]]
			if !format.valid(candidate) {
				continue
			}
			entities = append(entities, common.Entity{
				Name:        candidate,
				Type:        EntityTypeDate,
				Confidence:  confidenceDate,
				Context:     contextWindow(text, m[0], len(candidate)),
				Occurrences: 1,
			})
		}
	}

	for _, re := range moneyRes {
		for _, m := range re.FindAllStringIndex(text, -1) {
			candidate := text[m[0]:m[1]]
			entities = append(entities, common.Entity{
				Name:        candidate,
				Type:        EntityTypeMoney,
				Confidence:  confidenceMoney,
				Context:     contextWindow(text, m[0], len(candidate)),
				Occurrences: 1,
			})
		}
	}

	return entities
}

func (e *EntityExtractor) extractTechnology(text string, _ EntityOptions) []common.Entity {
	return dictionaryEntities(text, technologyTerms, EntityTypeTechnology, confidenceTechnology)
}

var versionRe = regexp.MustCompile(`\bv?\d+\.\d+(?:\.\d+)?\b`)

func (e *EntityExtractor) extractVersions(text string, _ EntityOptions) []common.Entity {
	var entities []common.Entity
	for _, m := range versionRe.FindAllStringIndex(text, -1) {
		candidate := text[m[0]:m[1]]
		entities = append(entities, common.Entity{
			Name:        candidate,
			Type:        EntityTypeVersion,
			Confidence:  confidenceVersion,
			Context:     contextWindow(text, m[0], len(candidate)),
			Occurrences: 1,
		})
	}
	return entities
}

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

func (e *EntityExtractor) extractEmails(text string, _ EntityOptions) []common.Entity {
	var entities []common.Entity
	for _, m := range emailRe.FindAllStringIndex(text, -1) {
		candidate := text[m[0]:m[1]]
		entities = append(entities, common.Entity{
			Name:        candidate,
			Type:        EntityTypeEmail,
			Confidence:  confidenceEmail,
			Context:     contextWindow(text, m[0], len(candidate)),
			Occurrences: 1,
		})
	}
	return entities
}

var urlRe = regexp.MustCompile(`\bhttps?://[^\s<>"')\]]+`)

func (e *EntityExtractor) extractURLs(text string, _ EntityOptions) []common.Entity {
	var entities []common.Entity
	for _, m := range urlRe.FindAllStringIndex(text, -1) {
		candidate := strings.TrimRight(text[m[0]:m[1]], ".,;")
		entities = append(entities, common.Entity{
			Name:        candidate,
			Type:        EntityTypeURL,
			Confidence:  confidenceURL,
			Context:     contextWindow(text, m[0], len(candidate)),
			Occurrences: 1,
		})
	}
	return entities
}

func (e *EntityExtractor) extractDomainTerms(text string, opts EntityOptions) []common.Entity {
	if opts.Domain == "" {
		return nil
	}
	dict, ok := domainDictionaries[strings.ToLower(opts.Domain)]
	if !ok {
		e.log.Debug("[EntityExtractor] Unknown domain, skipping dictionary layer", "domain", opts.Domain)
		return nil
	}
	entityType := strings.ToUpper(opts.Domain) + "_TERM"
	return dictionaryEntities(text, dict, entityType, confidenceDomainTerm)
}

// dictionaryEntities finds whole-word, case-insensitive occurrences of
// dictionary terms and reports each term once with its occurrence count.
func dictionaryEntities(text string, dict map[string]string, entityType string, confidence float64) []common.Entity {
	lower := strings.ToLower(text)

	var entities []common.Entity
	for term, display := range dict {
		first := -1
		count := 0
		for idx := 0; ; {
			pos := strings.Index(lower[idx:], term)
			if pos < 0 {
				break
			}
			pos += idx
			if isWholeWord(lower, pos, len(term)) {
				count++
				if first < 0 {
					first = pos
				}
			}
			idx = pos + len(term)
		}
		if count == 0 {
			continue
		}
		entities = append(entities, common.Entity{
			Name:        display,
			Type:        entityType,
			Confidence:  confidence,
			Context:     contextWindow(text, first, len(term)),
			Occurrences: count,
		})
	}
	return entities
}

func isWholeWord(s string, start, length int) bool {
	if start > 0 && isWordByte(s[start-1]) {
		return false
	}
	end := start + length
	if end < len(s) && isWordByte(s[end]) {
		return false
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// contextWindow returns the text surrounding [start, start+length) within
// the fixed window size on each side.
func contextWindow(text string, start, length int) string {
	lo := start - contextWindowSize
	if lo < 0 {
		lo = 0
	}
	hi := start + length + contextWindowSize
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
