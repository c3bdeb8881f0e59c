package extract

import (
	"sort"
	"strings"

	"github.com/corvid-labs/magpie/pkg/common"
)

// DedupeEntities collapses entities sharing (lowercase name, type), keeping
// the maximum confidence and summing occurrence counts. The first observed
// context wins. Order follows first observation.
func DedupeEntities(entities []common.Entity) []common.Entity {
	return dedupeEntities(entities)
}

func dedupeEntities(entities []common.Entity) []common.Entity {
	type key struct {
		name string
		typ  string
	}
	index := make(map[key]int, len(entities))
	var out []common.Entity

	for _, entity := range entities {
		k := key{strings.ToLower(entity.Name), entity.Type}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, entity)
			continue
		}
		out[i].Occurrences += entity.Occurrences
		if entity.Confidence > out[i].Confidence {
			out[i].Confidence = entity.Confidence
		}
	}
	return out
}

func filterEntities(entities []common.Entity, min float64) []common.Entity {
	out := entities[:0]
	for _, entity := range entities {
		if entity.Confidence >= min {
			out = append(out, entity)
		}
	}
	return out
}

// DedupeRelationships collapses relationships sharing the directional key
// (lowercase source, type, lowercase target), keeping the maximum
// confidence.
func DedupeRelationships(relationships []common.Relationship) []common.Relationship {
	return dedupeRelationships(relationships)
}

func dedupeRelationships(relationships []common.Relationship) []common.Relationship {
	type key struct {
		source string
		typ    string
		target string
	}
	index := make(map[key]int, len(relationships))
	var out []common.Relationship

	for _, rel := range relationships {
		k := key{strings.ToLower(rel.Source), rel.Type, strings.ToLower(rel.Target)}
		i, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, rel)
			continue
		}
		if rel.Confidence > out[i].Confidence {
			out[i].Confidence = rel.Confidence
			out[i].Context = rel.Context
			out[i].ExtractionMethod = rel.ExtractionMethod
		}
	}
	return out
}

func filterRelationships(relationships []common.Relationship, min float64) []common.Relationship {
	out := relationships[:0]
	for _, rel := range relationships {
		if rel.Confidence >= min {
			out = append(out, rel)
		}
	}
	return out
}

// sortEntities orders entities by confidence descending, then name, for
// stable presentation in logs and API responses.
func sortEntities(entities []common.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Confidence != entities[j].Confidence {
			return entities[i].Confidence > entities[j].Confidence
		}
		return entities[i].Name < entities[j].Name
	})
}
