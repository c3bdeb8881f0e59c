package normalize

import (
	"regexp"
	"strings"
)

var (
	reScriptBlock = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	reStyleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	reTag         = regexp.MustCompile(`(?s)<[^>]*>`)
	reBlankRuns   = regexp.MustCompile(`\n{3,}`)
	reSpaceRuns   = regexp.MustCompile(`[ \t]{2,}`)
)

// htmlEntities are the five common entities unescaped during HTML
// normalization. Anything more exotic is left verbatim.
var htmlEntities = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
}

// normalizeHTML strips script and style blocks, removes all remaining tags
// and unescapes the common entities. Line structure is kept so downstream
// paragraph chunking still sees blank-line boundaries.
func normalizeHTML(input string) string {
	text := reScriptBlock.ReplaceAllString(input, " ")
	text = reStyleBlock.ReplaceAllString(text, " ")
	text = reTag.ReplaceAllString(text, " ")

	for _, pair := range htmlEntities {
		text = strings.ReplaceAll(text, pair[0], pair[1])
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(reSpaceRuns.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = reBlankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// stripXMLTags removes all tags and collapses whitespace into single spaces.
func stripXMLTags(input string) string {
	text := reTag.ReplaceAllString(input, " ")
	return strings.Join(strings.Fields(text), " ")
}
