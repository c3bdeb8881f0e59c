package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/corvid-labs/magpie/pkg/common"
	"github.com/corvid-labs/magpie/pkg/logger"
)

// Extraction method tags carried on relationships.
const (
	MethodPattern       = "pattern"
	MethodPairInference = "entity_pair_inference"
	MethodCoOccurrence  = "co_occurrence"
	MethodSemanticSVO   = "semantic_svo"
)

const (
	patternConfidence = 0.8
	patternContext    = 100

	minRelationshipConfidence = 0.5
)

// RelationshipExtractor infers typed directed relationships between
// recognized entities. Four independent passes run over the text; their
// candidates are concatenated, deduplicated by (lowercase source, type,
// lowercase target) keeping the maximum confidence, and filtered to
// confidence >= 0.5.
type RelationshipExtractor struct {
	log logger.Logger
}

// NewRelationshipExtractorParams defines the configuration for creating a
// RelationshipExtractor.
type NewRelationshipExtractorParams struct {
	Logger logger.Logger
}

// NewRelationshipExtractor creates a RelationshipExtractor.
func NewRelationshipExtractor(params NewRelationshipExtractorParams) *RelationshipExtractor {
	l := params.Logger
	if l == nil {
		l = logger.Nop{}
	}
	return &RelationshipExtractor{log: l}
}

type relationshipPass struct {
	name string
	run  func(r *RelationshipExtractor, text string, entities []common.Entity) []common.Relationship
}

var relationshipPasses = []relationshipPass{
	{"pattern", (*RelationshipExtractor).extractByPattern},
	{"entity_pair", (*RelationshipExtractor).extractByEntityPairs},
	{"co_occurrence", (*RelationshipExtractor).extractCoOccurrences},
	{"semantic_svo", (*RelationshipExtractor).extractSVO},
}

// Extract infers relationships in text among the given entities.
func (r *RelationshipExtractor) Extract(text string, entities []common.Entity) []common.Relationship {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var raw []common.Relationship
	for _, pass := range relationshipPasses {
		raw = append(raw, r.runPass(pass, text, entities)...)
	}

	relationships := filterRelationships(dedupeRelationships(raw), minRelationshipConfidence)
	r.log.Debug("[RelationshipExtractor] Extraction finished",
		"raw", len(raw), "kept", len(relationships))
	return relationships
}

// runPass isolates a single pass; a panic inside it is recovered and the
// pass contributes nothing.
func (r *RelationshipExtractor) runPass(pass relationshipPass, text string, entities []common.Entity) (relationships []common.Relationship) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &ExtractionError{Layer: pass.name, Reason: fmt.Sprint(rec)}
			r.log.Warn("[RelationshipExtractor] Pass failed, continuing without it", "err", err)
			relationships = nil
		}
	}()
	return pass.run(r, text, entities)
}

// Pass 1: the ordered pattern table. Each match yields a fixed-confidence
// relationship with a context window around the match.
func (r *RelationshipExtractor) extractByPattern(text string, _ []common.Entity) []common.Relationship {
	var relationships []common.Relationship
	for _, pattern := range relationPatterns {
		for _, m := range pattern.re.FindAllStringSubmatchIndex(text, -1) {
			source := strings.TrimSpace(text[m[2]:m[3]])
			target := strings.TrimSpace(text[m[4]:m[5]])
			if source == "" || target == "" || strings.EqualFold(source, target) {
				continue
			}
			relationships = append(relationships, common.Relationship{
				Source:           source,
				Target:           target,
				Type:             pattern.relType,
				Confidence:       patternConfidence,
				Context:          windowAround(text, m[0], m[1], patternContext),
				ExtractionMethod: MethodPattern,
			})
		}
	}
	return relationships
}

// Pass 2: for every pair of known entities sharing a sentence, infer a
// relation type from the entity-type combination plus keyword cues in that
// sentence; fall back to a generic association.
func (r *RelationshipExtractor) extractByEntityPairs(text string, entities []common.Entity) []common.Relationship {
	var relationships []common.Relationship
	for _, sentence := range sentencesOf(text) {
		present := entitiesInSentence(sentence, entities)
		lower := strings.ToLower(sentence)

		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				a, b := present[i], present[j]
				if strings.EqualFold(a.Name, b.Name) {
					continue
				}
				rel, ok := inferPairRelation(a, b, lower)
				if !ok {
					rel = common.Relationship{
						Source:     a.Name,
						Target:     b.Name,
						Type:       pairFallbackType,
						Confidence: pairFallbackConfidence,
					}
				}
				rel.Context = sentence
				rel.ExtractionMethod = MethodPairInference
				relationships = append(relationships, rel)
			}
		}
	}
	return relationships
}

// inferPairRelation checks the pair rules in both orientations; the first
// matching rule wins.
func inferPairRelation(a, b common.Entity, lowerSentence string) (common.Relationship, bool) {
	for _, rule := range pairRules {
		for _, pair := range [][2]common.Entity{{a, b}, {b, a}} {
			src, tgt := pair[0], pair[1]
			if src.Type != rule.sourceType || tgt.Type != rule.targetType {
				continue
			}
			for _, cue := range rule.cues {
				if strings.Contains(lowerSentence, cue) {
					return common.Relationship{
						Source:     src.Name,
						Target:     tgt.Name,
						Type:       rule.relType,
						Confidence: rule.confidence,
					}, true
				}
			}
		}
	}
	return common.Relationship{}, false
}

// Pass 3: every entity pair sharing a sentence also yields a blanket
// co-occurrence relationship, independent of pass 2.
func (r *RelationshipExtractor) extractCoOccurrences(text string, entities []common.Entity) []common.Relationship {
	var relationships []common.Relationship
	for _, sentence := range sentencesOf(text) {
		present := entitiesInSentence(sentence, entities)
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				if strings.EqualFold(present[i].Name, present[j].Name) {
					continue
				}
				relationships = append(relationships, common.Relationship{
					Source:           present[i].Name,
					Target:           present[j].Name,
					Type:             coOccurrenceType,
					Confidence:       coOccurrenceConfidence,
					Context:          sentence,
					ExtractionMethod: MethodCoOccurrence,
				})
			}
		}
	}
	return relationships
}

// Pass 4: shallow subject-verb-object tagging. Noun phrases are runs of
// capitalized tokens; verbs resolve through the stem lookup, with
// recognized but unmapped verbs defaulting to a generic relation.
func (r *RelationshipExtractor) extractSVO(text string, _ []common.Entity) []common.Relationship {
	var relationships []common.Relationship
	for _, sentence := range sentencesOf(text) {
		tokens := tokenize(sentence)

		type nounPhrase struct {
			text string
			pos  int
		}
		var phrases []nounPhrase
		type verbToken struct {
			relType string
			pos     int
		}
		var verbs []verbToken

		for i := 0; i < len(tokens); i++ {
			if relType, ok := verbRelation(tokens[i]); ok {
				verbs = append(verbs, verbToken{relType, i})
				continue
			}
			if isCapitalized(tokens[i]) {
				start := i
				phrase := tokens[i]
				for i+1 < len(tokens) && isCapitalized(tokens[i+1]) {
					i++
					phrase += " " + tokens[i]
				}
				phrases = append(phrases, nounPhrase{phrase, start})
			}
		}

		for _, verb := range verbs {
			for _, subject := range phrases {
				if subject.pos >= verb.pos {
					continue
				}
				for _, object := range phrases {
					if object.pos <= verb.pos || strings.EqualFold(subject.text, object.text) {
						continue
					}
					relationships = append(relationships, common.Relationship{
						Source:           subject.text,
						Target:           object.text,
						Type:             verb.relType,
						Confidence:       svoConfidence,
						Context:          sentence,
						ExtractionMethod: MethodSemanticSVO,
					})
				}
			}
		}
	}
	return relationships
}

func verbRelation(token string) (string, bool) {
	lower := strings.ToLower(token)
	for stem, relType := range svoVerbs {
		if strings.HasPrefix(lower, stem) {
			return relType, true
		}
	}
	if svoAuxVerbs[lower] {
		return svoDefaultType, true
	}
	return "", false
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// sentencesOf splits text on terminator-plus-whitespace boundaries. This is
// deliberately cruder than the chunker's splitter; relationship inference
// only needs co-occurrence scope, not exact sentence text.
func sentencesOf(text string) []string {
	parts := sentenceEndRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func entitiesInSentence(sentence string, entities []common.Entity) []common.Entity {
	lower := strings.ToLower(sentence)
	var present []common.Entity
	for _, entity := range entities {
		if strings.Contains(lower, strings.ToLower(entity.Name)) {
			present = append(present, entity)
		}
	}
	return present
}

func tokenize(sentence string) []string {
	return strings.FieldsFunc(sentence, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
}

func isCapitalized(token string) bool {
	r := []rune(token)
	return len(r) > 0 && unicode.IsUpper(r[0]) && (len(r) == 1 || !unicode.IsUpper(r[1]))
}

// windowAround returns the text surrounding [start, end) within the given
// window size on each side.
func windowAround(text string, start, end, size int) string {
	lo := start - size
	if lo < 0 {
		lo = 0
	}
	hi := end + size
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
