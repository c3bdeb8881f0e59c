package extract

import "regexp"

// relationPattern maps a surface pattern to a relation type. Each regex
// captures exactly two groups: source phrase, then target phrase.
type relationPattern struct {
	relType string
	re      *regexp.Regexp
}

// Capitalized noun phrase, up to four words.
const np = `([A-Z][A-Za-z0-9&.]*(?:\s+[A-Z][A-Za-z0-9&.]*){0,3})`

func rel(relType, verb string) relationPattern {
	return relationPattern{relType, regexp.MustCompile(`\b` + np + `\s+` + verb + `\s+` + np)}
}

// relationPatterns is the ordered pattern table. Every match yields
// confidence 0.8 with a ±100 character context window. Grouped generic,
// technical, business.
var relationPatterns = []relationPattern{
	// Generic.
	rel("IS_A", `is\s+an?`),
	rel("HAS", `has`),
	rel("OWNS", `owns`),
	rel("WORKS_FOR", `works?\s+(?:for|at)`),
	rel("MANAGES", `manages`),
	rel("REPORTS_TO", `reports?\s+to`),
	rel("CREATED", `created`),
	rel("DEVELOPED", `developed`),
	rel("USES", `uses`),
	rel("DEPENDS_ON", `depends\s+on`),
	rel("IMPLEMENTS", `implements`),
	rel("EXTENDS", `extends`),
	rel("INHERITS_FROM", `inherits\s+from`),
	rel("CONNECTS_TO", `connects\s+to`),
	rel("COMMUNICATES_WITH", `communicates\s+with`),
	rel("SENDS_TO", `sends\s+(?:\w+\s+)?to`),
	rel("RECEIVES_FROM", `receives\s+(?:\w+\s+)?from`),

	// Technical.
	rel("API_CALL", `calls`),
	rel("INTEGRATES_WITH", `integrates\s+with`),
	rel("STORES", `stores`),
	rel("RETURNS", `returns`),
	rel("EXPORTS", `exports`),
	rel("IMPORTS", `imports`),

	// Business.
	rel("ACQUIRED", `acquired`),
	rel("PARTNERS_WITH", `partners\s+with`),
	rel("COMPETES_WITH", `competes\s+with`),
	rel("SUPPLIES_TO", `supplies\s+(?:\w+\s+)?to`),
	rel("INVESTS_IN", `invests\s+in`),
	rel("SPONSORS", `sponsors`),
}

// pairRule infers a relation type for two entities co-occurring in one
// sentence, from their type combination plus keyword cues in the sentence.
type pairRule struct {
	sourceType string
	targetType string
	cues       []string
	relType    string
	confidence float64
}

var pairRules = []pairRule{
	{EntityTypePerson, EntityTypeOrganization, []string{"found", "start"}, "FOUNDED", 0.8},
	{EntityTypePerson, EntityTypeOrganization, []string{"work", "employ", "join"}, "WORKS_FOR", 0.7},
	{EntityTypePerson, EntityTypeOrganization, []string{"lead", "manage", "run"}, "MANAGES", 0.7},
	{EntityTypePerson, EntityTypePerson, []string{"report"}, "REPORTS_TO", 0.7},
	{EntityTypePerson, EntityTypePerson, []string{"manage", "supervise"}, "MANAGES", 0.7},
	{EntityTypePerson, EntityTypeLocation, []string{"live", "based", "locate", "move"}, "LOCATED_IN", 0.7},
	{EntityTypeOrganization, EntityTypeLocation, []string{"based", "headquarter", "locate", "office"}, "LOCATED_IN", 0.7},
	{EntityTypeOrganization, EntityTypeOrganization, []string{"acquire", "bought", "buy"}, "ACQUIRED", 0.8},
	{EntityTypeOrganization, EntityTypeOrganization, []string{"partner", "collaborat"}, "PARTNERS_WITH", 0.7},
	{EntityTypeOrganization, EntityTypeOrganization, []string{"compete"}, "COMPETES_WITH", 0.7},
	{EntityTypeOrganization, EntityTypeTechnology, []string{"use", "adopt", "deploy", "run"}, "USES", 0.7},
	{EntityTypePerson, EntityTypeTechnology, []string{"use", "develop", "write", "program"}, "USES", 0.7},
	{EntityTypeTechnology, EntityTypeTechnology, []string{"depend", "require", "need"}, "DEPENDS_ON", 0.7},
	{EntityTypeTechnology, EntityTypeTechnology, []string{"use", "built", "based"}, "USES", 0.7},
}

const (
	pairFallbackType       = "ASSOCIATED_WITH"
	pairFallbackConfidence = 0.5

	coOccurrenceType       = "CO_OCCURS_WITH"
	coOccurrenceConfidence = 0.4
)

// svoVerbs maps verb stems observed between two nouns to relation types.
// Stems are matched as prefixes so inflected forms resolve too.
var svoVerbs = map[string]string{
	"create":    "CREATES",
	"make":      "CREATES",
	"build":     "CREATES",
	"develop":   "DEVELOPS",
	"use":       "USES",
	"utilize":   "USES",
	"manage":    "MANAGES",
	"control":   "CONTROLS",
	"own":       "OWNS",
	"have":      "HAS",
	"has":       "HAS",
	"contain":   "CONTAINS",
	"include":   "INCLUDES",
	"send":      "SENDS",
	"receive":   "RECEIVES",
	"connect":   "CONNECTS_TO",
	"link":      "LINKS_TO",
	"relate":    "RELATES_TO",
	"associate": "ASSOCIATES_WITH",
}

// svoAuxVerbs are recognized as verbs but carry no specific relation; they
// map to the default RELATES_TO.
var svoAuxVerbs = map[string]bool{
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"does": true, "did": true, "do": true, "runs": true, "ran": true,
	"works": true, "worked": true, "provides": true, "supports": true,
	"handles": true, "processes": true, "offers": true,
}

const (
	svoDefaultType = "RELATES_TO"
	svoConfidence  = 0.6
)
