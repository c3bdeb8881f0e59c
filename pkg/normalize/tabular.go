package normalize

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

const (
	csvSampleRows = 10
	jsonKeyLimit  = 20
)

// summarizeCSV renders CSV content as a structured text block (header list,
// row and column counts, first rows verbatim) instead of emitting it
// row-by-row. Malformed rows are tolerated; a payload the CSV reader cannot
// parse at all is summarized as raw lines.
func summarizeCSV(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	reader := csv.NewReader(strings.NewReader(trimmed))
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			records = nil
			break
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		// Fall back to raw lines so the unit still yields content.
		lines := strings.Split(trimmed, "\n")
		records = make([][]string, 0, len(lines))
		for _, line := range lines {
			records = append(records, []string{line})
		}
	}

	header := records[0]
	dataRows := records[1:]

	var sb strings.Builder
	sb.WriteString("CSV data\n")
	fmt.Fprintf(&sb, "Columns (%d): %s\n", len(header), strings.Join(header, ", "))
	fmt.Fprintf(&sb, "Rows: %d\n", len(dataRows))

	sample := min(csvSampleRows, len(dataRows))
	if sample > 0 {
		fmt.Fprintf(&sb, "First %d rows:\n", sample)
		for i := 0; i < sample; i++ {
			sb.WriteString(strings.Join(dataRows[i], ", "))
			sb.WriteString("\n")
		}
	}

	return sb.String(), nil
}

// summarizeJSON produces a short structural summary (type, key count, first
// keys, element types) followed by a pretty-printed dump of the full value.
func summarizeJSON(payload []byte) (string, error) {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return "", &NormalizationError{
			SourceType: "json",
			Reason:     fmt.Sprintf("invalid JSON: %v", err),
		}
	}

	var sb strings.Builder
	sb.WriteString("JSON data\n")

	switch v := value.(type) {
	case map[string]any:
		sb.WriteString("Type: Object\n")
		fmt.Fprintf(&sb, "Keys: %d\n", len(v))
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > jsonKeyLimit {
			keys = keys[:jsonKeyLimit]
		}
		fmt.Fprintf(&sb, "Key names: %s\n", strings.Join(keys, ", "))
	case []any:
		sb.WriteString("Type: Array\n")
		fmt.Fprintf(&sb, "Elements: %d\n", len(v))
		fmt.Fprintf(&sb, "Element types: %s\n", strings.Join(jsonElementTypes(v), ", "))
	default:
		fmt.Fprintf(&sb, "Type: %s\n", jsonTypeName(value))
	}

	pretty, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", err
	}
	sb.WriteString("Content:\n")
	sb.Write(bytes.TrimSpace(pretty))
	sb.WriteString("\n")

	return sb.String(), nil
}

func jsonElementTypes(values []any) []string {
	seen := make(map[string]struct{})
	var types []string
	for _, v := range values {
		name := jsonTypeName(v)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return "unknown"
	}
}
