package query

import (
	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

// ── Query builder ──────────────────────────────────────────
// Assembles the body for a database query: rendered filter, sorts,
// pagination cursor and page size. All schema validation happens
// here; the transport only ever sees well-formed bodies.

// Sort orders results by a property or by a page timestamp. When
// Timestamp is set, Property is ignored and no schema lookup is
// needed. Ties between equal sort keys keep whatever order the
// remote returns; no implicit secondary key is added.
type Sort struct {
	Property   string `mapstructure:"property"`
	Timestamp  string `mapstructure:"timestamp"` // "created_time" | "last_edited_time"
	Descending bool   `mapstructure:"descending"`
}

// Query describes one page of a database query.
type Query struct {
	Filter   Filter
	Sorts    []Sort
	Cursor   string
	PageSize int
}

// Build validates the query against the schema and renders the
// request body for the query endpoint.
func (q Query) Build(s *schema.RecordSchema) (notion.Object, error) {
	body := notion.Object{
		"page_size": notion.ClampPageSize(q.PageSize),
	}

	if q.Filter != nil {
		filterBody, err := q.Filter.render(s, false)
		if err != nil {
			return nil, err
		}
		body["filter"] = filterBody
	}

	if len(q.Sorts) > 0 {
		sorts, err := buildSorts(q.Sorts, s)
		if err != nil {
			return nil, err
		}
		body["sorts"] = sorts
	}

	if q.Cursor != "" {
		body["start_cursor"] = q.Cursor
	}
	return body, nil
}

func buildSorts(sorts []Sort, s *schema.RecordSchema) ([]notion.Object, error) {
	out := make([]notion.Object, 0, len(sorts))
	for _, sort := range sorts {
		direction := "ascending"
		if sort.Descending {
			direction = "descending"
		}
		switch {
		case sort.Timestamp != "":
			if sort.Timestamp != "created_time" && sort.Timestamp != "last_edited_time" {
				return nil, notion.NewError(notion.KindValidation,
					"sort timestamp must be created_time or last_edited_time, got %q", sort.Timestamp)
			}
			out = append(out, notion.Object{"timestamp": sort.Timestamp, "direction": direction})
		case sort.Property != "":
			if _, ok := s.Lookup(sort.Property); !ok {
				return nil, notion.NewError(notion.KindValidation,
					"sort references property %q which does not exist in the database schema", sort.Property)
			}
			out = append(out, notion.Object{"property": sort.Property, "direction": direction})
		default:
			return nil, notion.NewError(notion.KindValidation, "sort entry needs a property or timestamp")
		}
	}
	return out, nil
}

// ParseSorts converts the caller-facing JSON array form. Entries are
// either bare property names (ascending) or objects
// {"property": ..., "descending": bool} / {"timestamp": ...}.
func ParseSorts(raw []any) ([]Sort, error) {
	sorts := make([]Sort, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			sorts = append(sorts, Sort{Property: v})
		case map[string]any:
			s := Sort{}
			s.Property, _ = v["property"].(string)
			s.Timestamp, _ = v["timestamp"].(string)
			s.Descending, _ = v["descending"].(bool)
			if dir, ok := v["direction"].(string); ok {
				s.Descending = dir == "descending"
			}
			sorts = append(sorts, s)
		default:
			return nil, notion.NewError(notion.KindValidation,
				"sort entries must be property names or objects")
		}
	}
	return sorts, nil
}
