package bulk

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strings"

	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

// ── Export ─────────────────────────────────────────────────
// The inverse of import: decoded records become flat rows. CSV joins
// multi-valued properties with "; " inside a single cell (the csv
// writer quotes cells, so delimiter collisions are escaped, never
// truncated); JSON keeps arrays as arrays.

// Format selects the export serialization.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat validates a caller-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON, "":
		return FormatJSON, nil
	default:
		return "", notion.NewError(notion.KindValidation,
			"unknown export format %q: use %q or %q", s, FormatCSV, FormatJSON)
	}
}

// listSeparator joins multi-valued cells in CSV exports.
const listSeparator = "; "

// ExportRecords serializes decoded records. Column order follows the
// columns argument; when nil, the union of property names is used in
// sorted order.
func ExportRecords(records []map[string]schema.Value, format Format, columns []string) ([]byte, error) {
	if len(columns) == 0 {
		columns = collectColumns(records)
	}
	switch format {
	case FormatCSV:
		return exportCSV(records, columns)
	case FormatJSON:
		return exportJSON(records, columns)
	default:
		return nil, notion.NewError(notion.KindValidation, "unknown export format %q", format)
	}
}

func collectColumns(records []map[string]schema.Value) []string {
	seen := make(map[string]bool)
	for _, rec := range records {
		for name := range rec {
			seen[name] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for name := range seen {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}

func exportCSV(records []map[string]schema.Value, columns []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, notion.NewError(notion.KindValidation, "write CSV header: %v", err)
	}
	row := make([]string, len(columns))
	for _, rec := range records {
		for i, col := range columns {
			row[i] = cellString(rec[col])
		}
		if err := w.Write(row); err != nil {
			return nil, notion.NewError(notion.KindValidation, "write CSV row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, notion.NewError(notion.KindValidation, "flush CSV: %v", err)
	}
	return buf.Bytes(), nil
}

// cellString flattens a value for a CSV cell.
func cellString(v schema.Value) string {
	switch v.Kind {
	case schema.KindMultiSelect:
		return strings.Join(v.Choices, listSeparator)
	case schema.KindRelation:
		return strings.Join(v.Relations, listSeparator)
	case schema.KindPeople:
		return strings.Join(v.People, listSeparator)
	case schema.KindFiles:
		urls := make([]string, 0, len(v.Files))
		for _, f := range v.Files {
			urls = append(urls, f.URL)
		}
		return strings.Join(urls, listSeparator)
	case schema.KindFormula, schema.KindRollup:
		if v.Computed == nil {
			return ""
		}
		b, _ := json.Marshal(v.Computed)
		return strings.Trim(string(b), `"`)
	default:
		return v.String()
	}
}

func exportJSON(records []map[string]schema.Value, columns []string) ([]byte, error) {
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		row := make(map[string]any, len(columns))
		for _, col := range columns {
			v, ok := rec[col]
			if !ok {
				continue
			}
			row[col] = cellJSON(v)
		}
		out = append(out, row)
	}
	return json.MarshalIndent(out, "", "  ")
}

// cellJSON keeps multi-valued properties as arrays and numbers as
// numbers; everything else flattens to its string form.
func cellJSON(v schema.Value) any {
	switch v.Kind {
	case schema.KindNumber:
		if v.Number == nil {
			return nil
		}
		return *v.Number
	case schema.KindCheckbox:
		return v.Checkbox
	case schema.KindMultiSelect:
		return v.Choices
	case schema.KindRelation:
		return v.Relations
	case schema.KindPeople:
		return v.People
	case schema.KindFiles:
		urls := make([]string, 0, len(v.Files))
		for _, f := range v.Files {
			urls = append(urls, f.URL)
		}
		return urls
	case schema.KindFormula, schema.KindRollup:
		return v.Computed
	case schema.KindSelect, schema.KindStatus:
		return v.Choice
	case schema.KindDate:
		if v.Date == nil {
			return nil
		}
		if v.Date.End != "" {
			return map[string]string{"start": v.Date.Start, "end": v.Date.End}
		}
		return v.Date.Start
	default:
		return v.Text
	}
}
