package bulk

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

// ── Row sources ─────────────────────────────────────────────
// Bulk imports accept flat records either as a JSON array of objects
// or as CSV text with a header row. The format is sniffed from the
// payload: a leading '[' means JSON, anything else is parsed as CSV.

// Row is one flat source record with its zero-based position in the
// input, kept for error reporting.
type Row struct {
	Index  int
	Fields map[string]any
}

// ParseRows sniffs the payload format and parses it.
func ParseRows(data string) ([]Row, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return nil, notion.NewError(notion.KindValidation, "no data provided for import")
	}
	if strings.HasPrefix(trimmed, "[") {
		return ParseJSONRows(trimmed)
	}
	return ParseCSVRows(trimmed, ',')
}

// ParseJSONRows parses a JSON array of flat objects. Nested objects
// and arrays are re-serialized to JSON strings, matching the flat
// record model.
func ParseJSONRows(data string) ([]Row, error) {
	var items []map[string]any
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, notion.NewError(notion.KindValidation, "malformed JSON rows: %v", err)
	}
	rows := make([]Row, 0, len(items))
	for i, item := range items {
		rows = append(rows, Row{Index: i, Fields: flatten(item)})
	}
	return rows, nil
}

// ParseCSVRows parses CSV text. The first row is the header; values
// are inferred as numbers or booleans where they parse cleanly.
func ParseCSVRows(data string, delimiter rune) ([]Row, error) {
	reader := csv.NewReader(strings.NewReader(data))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, notion.NewError(notion.KindValidation, "malformed CSV: %v", err)
	}
	if len(records) < 1 {
		return nil, notion.NewError(notion.KindValidation, "CSV input is empty")
	}
	if len(records) < 2 {
		return nil, notion.NewError(notion.KindValidation, "CSV input has a header but no data rows")
	}

	headers := records[0]
	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		fields := make(map[string]any, len(headers))
		for j, h := range headers {
			if j < len(record) {
				fields[h] = inferScalar(record[j])
			}
		}
		rows = append(rows, Row{Index: i, Fields: fields})
	}
	return rows, nil
}

// flatten keeps scalars as-is and serializes nested values to JSON
// strings.
func flatten(m map[string]any) map[string]any {
	flat := make(map[string]any, len(m))
	for k, v := range m {
		switch v.(type) {
		case string, float64, bool, nil, []any:
			flat[k] = v
		default:
			b, _ := json.Marshal(v)
			flat[k] = string(b)
		}
	}
	return flat
}

// inferScalar tries number and bool before falling back to string.
func inferScalar(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true", "yes":
		return true
	case "false", "no":
		return false
	}
	return s
}
