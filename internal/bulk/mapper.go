package bulk

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-multierror"

	"github.com/sandraschi/notion-mcp/internal/notion"
	"github.com/sandraschi/notion-mcp/internal/schema"
)

// ── Bulk Mapper ────────────────────────────────────────────
// Translates flat source rows into schema-conformant property maps
// using a caller-supplied field mapping, and validates every value
// through the codec before anything touches the network. Pure: no
// I/O happens here.

// Strategy selects how row failures are handled. There is no default:
// callers choose explicitly so data is never dropped silently.
type Strategy string

const (
	// Strict aborts the whole batch on the first bad row.
	Strict Strategy = "strict"
	// BestEffort skips bad rows and reports them all.
	BestEffort Strategy = "best_effort"
)

// ParseStrategy validates a caller-supplied strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Strict, BestEffort:
		return Strategy(s), nil
	case "":
		return "", notion.NewError(notion.KindValidation,
			"merge_strategy is required: %q or %q", Strict, BestEffort)
	default:
		return "", notion.NewError(notion.KindValidation,
			"unknown merge_strategy %q: use %q or %q", s, Strict, BestEffort)
	}
}

// RowError is a single bad source row.
type RowError struct {
	Row   int // zero-based source row index
	Field string
	Err   error
}

func (e *RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d, field %q: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Record is one successfully mapped row: the internal values plus the
// ready-to-send property payload.
type Record struct {
	Index      int
	Values     map[string]schema.Value
	Properties notion.Object
}

// Result is the outcome of an import pass.
type Result struct {
	Records []Record
	Failed  []*RowError
}

// Err aggregates all row failures, or nil when every row mapped.
func (r *Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	var agg *multierror.Error
	for _, re := range r.Failed {
		agg = multierror.Append(agg, re)
	}
	return agg.ErrorOrNil()
}

// Mapper holds the target schema and import options.
type Mapper struct {
	Schema          *schema.RecordSchema
	AllowNewOptions bool
}

// ImportRecords maps source rows onto the target schema.
//
// The field mapping is source-field → target-property. Source fields
// absent from the mapping are dropped (partial mapping is allowed by
// design); mapping targets absent from the schema fail the whole
// import before any row is touched. An empty mapping maps identically
// named fields.
func (m Mapper) ImportRecords(rows []Row, mapping map[string]string, strategy Strategy) (*Result, error) {
	if m.Schema == nil {
		return nil, notion.NewError(notion.KindValidation, "a target schema is required for import")
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}

	mapping = m.effectiveMapping(rows, mapping)
	if err := m.validateMapping(mapping); err != nil {
		return nil, err
	}

	encoder := schema.Encoder{Schema: m.Schema, AllowNewOptions: m.AllowNewOptions}
	result := &Result{}

	for _, row := range rows {
		record, rowErr := m.mapRow(row, mapping, encoder)
		if rowErr != nil {
			if strategy == Strict {
				return nil, rowErr
			}
			result.Failed = append(result.Failed, rowErr)
			continue
		}
		result.Records = append(result.Records, record)
	}
	return result, nil
}

// effectiveMapping defaults to identity over fields that exist as
// schema properties when the caller supplies no mapping.
func (m Mapper) effectiveMapping(rows []Row, mapping map[string]string) map[string]string {
	if len(mapping) > 0 {
		return mapping
	}
	identity := make(map[string]string)
	for _, row := range rows {
		for field := range row.Fields {
			if _, ok := m.Schema.Lookup(field); ok {
				identity[field] = field
			}
		}
	}
	return identity
}

// validateMapping is the all-or-nothing pre-flight pass: every target
// must exist and be writable.
func (m Mapper) validateMapping(mapping map[string]string) error {
	if len(mapping) == 0 {
		return notion.NewError(notion.KindValidation,
			"field mapping is empty and no source fields match schema properties")
	}
	for source, target := range mapping {
		def, ok := m.Schema.Lookup(target)
		if !ok {
			return notion.NewError(notion.KindValidation,
				"mapping target %q (from source field %q) does not exist in the database schema", target, source)
		}
		if def.Kind.IsComputed() {
			return notion.NewError(notion.KindValidation,
				"mapping target %q has computed type %q and cannot be written", target, def.Kind)
		}
	}
	return nil
}

func (m Mapper) mapRow(row Row, mapping map[string]string, encoder schema.Encoder) (Record, *RowError) {
	record := Record{
		Index:      row.Index,
		Values:     make(map[string]schema.Value),
		Properties: notion.Object{},
	}
	for source, target := range mapping {
		raw, ok := row.Fields[source]
		if !ok || raw == nil || raw == "" {
			continue
		}
		def, _ := m.Schema.Lookup(target)
		value, err := coerce(def, raw)
		if err != nil {
			return Record{}, &RowError{Row: row.Index, Field: source, Err: err}
		}
		payload, err := encoder.Encode(target, value)
		if err != nil {
			return Record{}, &RowError{Row: row.Index, Field: source, Err: err}
		}
		record.Values[target] = value
		record.Properties[target] = payload
	}
	if len(record.Values) == 0 {
		return Record{}, &RowError{Row: row.Index, Err: fmt.Errorf("no mapped fields with values")}
	}
	return record, nil
}

// ── Coercion ───────────────────────────────────────────────
// Converts a loosely typed source value to the declared property
// kind. Dates accept anything dateparse understands; list-valued
// kinds accept JSON arrays or delimited strings.

// Coerce converts a loose source value to the declared kind. Exported
// for callers that build single records outside a bulk batch.
func Coerce(def schema.PropertyDef, raw any) (schema.Value, error) {
	return coerce(def, raw)
}

func coerce(def schema.PropertyDef, raw any) (schema.Value, error) {
	switch def.Kind {
	case schema.KindTitle:
		return schema.Title(stringify(raw)), nil
	case schema.KindRichText:
		return schema.Text(stringify(raw)), nil
	case schema.KindURL:
		return schema.URL(stringify(raw)), nil
	case schema.KindEmail:
		return schema.Email(stringify(raw)), nil
	case schema.KindPhoneNumber:
		return schema.Phone(stringify(raw)), nil
	case schema.KindSelect:
		return schema.Select(stringify(raw)), nil
	case schema.KindStatus:
		return schema.Status(stringify(raw)), nil
	case schema.KindNumber:
		n, err := toNumber(raw)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Number(n), nil
	case schema.KindCheckbox:
		return schema.Checkbox(toBool(raw)), nil
	case schema.KindDate:
		start, err := toISODate(raw)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Date(start, ""), nil
	case schema.KindMultiSelect:
		return schema.MultiSelect(toList(raw)...), nil
	case schema.KindRelation:
		ids, err := toIDList(raw)
		if err != nil {
			return schema.Value{}, err
		}
		return schema.Relation(ids...), nil
	case schema.KindPeople:
		return schema.People(toList(raw)...), nil
	case schema.KindFiles:
		v := schema.Value{Kind: schema.KindFiles}
		for _, u := range toList(raw) {
			v.Files = append(v.Files, schema.FileRef{URL: u})
		}
		return v, nil
	default:
		return schema.Value{}, fmt.Errorf("cannot import into property type %q", def.Kind)
	}
}

func stringify(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func toNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not a number", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("value %v is not a number", raw)
	}
}

func toBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "x", "✓":
			return true
		}
	}
	return false
}

// toISODate parses a date in any common format and renders the
// ISO-8601 form the remote service expects. Date-only inputs stay
// date-only; inputs with a time component keep it.
func toISODate(raw any) (string, error) {
	s := strings.TrimSpace(stringify(raw))
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", fmt.Errorf("%q is not a recognizable date", s)
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format("2006-01-02"), nil
	}
	return t.Format(time.RFC3339), nil
}

// toList accepts JSON arrays and ";" or "," delimited strings.
func toList(raw any) []string {
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(stringify(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		sep := ","
		if strings.Contains(v, ";") {
			sep = ";"
		}
		parts := strings.Split(v, sep)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(stringify(raw)); s != "" {
			return []string{s}
		}
		return nil
	}
}

func toIDList(raw any) ([]string, error) {
	items := toList(raw)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, err := notion.NormalizeID(item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
