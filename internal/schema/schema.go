package schema

import (
	"sort"

	"github.com/mitchellh/mapstructure"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

// ── RecordSchema ───────────────────────────────────────────
// Declared shape of a database: property name → type, plus the
// enumerated option labels for choice types. Used to validate writes,
// filters, and bulk-import mappings before any network call.

// PropertyDef declares one property of a database.
type PropertyDef struct {
	Name    string
	Kind    Kind
	Options []string // choice kinds only; label order as declared remotely
}

// HasOption reports whether label is an allowed option.
func (d PropertyDef) HasOption(label string) bool {
	for _, o := range d.Options {
		if o == label {
			return true
		}
	}
	return false
}

// RecordSchema maps case-sensitive property names to definitions.
type RecordSchema struct {
	props map[string]PropertyDef
}

// NewRecordSchema builds a schema from explicit definitions (tests,
// local validation without a fetch).
func NewRecordSchema(defs ...PropertyDef) *RecordSchema {
	s := &RecordSchema{props: make(map[string]PropertyDef, len(defs))}
	for _, d := range defs {
		s.props[d.Name] = d
	}
	return s
}

// Lookup returns the definition for a property name.
func (s *RecordSchema) Lookup(name string) (PropertyDef, bool) {
	d, ok := s.props[name]
	return d, ok
}

// Names returns all property names in sorted order.
func (s *RecordSchema) Names() []string {
	names := make([]string, 0, len(s.props))
	for n := range s.props {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of declared properties.
func (s *RecordSchema) Len() int { return len(s.props) }

// ParseRecordSchema extracts a RecordSchema from a raw database
// object as returned by the databases endpoint.
func ParseRecordSchema(database notion.Object) (*RecordSchema, error) {
	rawProps, ok := database["properties"].(map[string]any)
	if !ok {
		return nil, notion.NewError(notion.KindSchema, "database object has no properties map")
	}

	s := &RecordSchema{props: make(map[string]PropertyDef, len(rawProps))}
	for name, rawDef := range rawProps {
		def, ok := rawDef.(map[string]any)
		if !ok {
			return nil, notion.NewError(notion.KindSchema, "property %q has a malformed definition", name)
		}
		typ, _ := def["type"].(string)
		kind := Kind(typ)
		if _, known := codecTable[kind]; !known {
			return nil, notion.NewError(notion.KindSchema, "property %q has unsupported type %q", name, typ)
		}
		pd := PropertyDef{Name: name, Kind: kind}
		if kind.IsChoice() {
			pd.Options = optionLabels(def, typ)
		}
		s.props[name] = pd
	}
	return s, nil
}

// optionLabels pulls option names out of a select/multi_select/status
// definition, preserving declared order.
func optionLabels(def map[string]any, typ string) []string {
	cfg, _ := def[typ].(map[string]any)
	rawOpts, _ := cfg["options"].([]any)
	labels := make([]string, 0, len(rawOpts))
	for _, ro := range rawOpts {
		opt, _ := ro.(map[string]any)
		if name, ok := opt["name"].(string); ok {
			labels = append(labels, name)
		}
	}
	return labels
}

// ── Property-definition builder ────────────────────────────
// Translates a simplified caller-facing schema spec into remote
// property definitions for database create/update. A spec entry is
// either a bare type name ("text", "number", "date", ...) or a
// detailed object for choice/relation/formula/rollup types.

// PropertySpec is the detailed form of one schema-spec entry.
type PropertySpec struct {
	Type             string   `mapstructure:"type"`
	Options          []string `mapstructure:"options"`
	DatabaseID       string   `mapstructure:"database_id"`
	Expression       string   `mapstructure:"expression"`
	RelationProperty string   `mapstructure:"relation_property"`
	RollupProperty   string   `mapstructure:"rollup_property"`
	Function         string   `mapstructure:"function"`
	NumberFormat     string   `mapstructure:"format"`
}

// BuildPropertyDefinitions converts a spec map into the remote
// property-definition shape. Exactly one title property is enforced:
// if the spec declares none, a "Title" property is added.
func BuildPropertyDefinitions(spec map[string]any) (notion.Object, error) {
	defs := make(notion.Object, len(spec)+1)
	haveTitle := false

	for name, raw := range spec {
		var ps PropertySpec
		switch v := raw.(type) {
		case string:
			ps.Type = v
		case map[string]any:
			if err := mapstructure.Decode(v, &ps); err != nil {
				return nil, notion.NewError(notion.KindValidation, "property %q: malformed spec: %v", name, err)
			}
		default:
			return nil, notion.NewError(notion.KindValidation, "property %q: spec must be a type name or an object", name)
		}

		def, err := buildDefinition(name, ps)
		if err != nil {
			return nil, err
		}
		if _, ok := def["title"]; ok {
			haveTitle = true
		}
		defs[name] = def
	}

	if !haveTitle {
		defs["Title"] = notion.Object{"title": notion.Object{}}
	}
	return defs, nil
}

func buildDefinition(name string, ps PropertySpec) (notion.Object, error) {
	switch ps.Type {
	case "title":
		return notion.Object{"title": notion.Object{}}, nil
	case "text", "rich_text", "":
		return notion.Object{"rich_text": notion.Object{}}, nil
	case "number":
		format := ps.NumberFormat
		if format == "" {
			format = "number"
		}
		return notion.Object{"number": notion.Object{"format": format}}, nil
	case "checkbox":
		return notion.Object{"checkbox": notion.Object{}}, nil
	case "date":
		return notion.Object{"date": notion.Object{}}, nil
	case "url":
		return notion.Object{"url": notion.Object{}}, nil
	case "email":
		return notion.Object{"email": notion.Object{}}, nil
	case "phone", "phone_number":
		return notion.Object{"phone_number": notion.Object{}}, nil
	case "people":
		return notion.Object{"people": notion.Object{}}, nil
	case "files":
		return notion.Object{"files": notion.Object{}}, nil
	case "select", "multi_select", "status":
		opts := make([]notion.Object, 0, len(ps.Options))
		for _, label := range ps.Options {
			opts = append(opts, notion.Object{"name": label, "color": "default"})
		}
		return notion.Object{ps.Type: notion.Object{"options": opts}}, nil
	case "relation":
		if ps.DatabaseID == "" {
			return nil, notion.NewError(notion.KindValidation, "property %q: relation requires database_id", name)
		}
		id, err := notion.NormalizeID(ps.DatabaseID)
		if err != nil {
			return nil, err
		}
		return notion.Object{"relation": notion.Object{"database_id": id}}, nil
	case "formula":
		if ps.Expression == "" {
			return nil, notion.NewError(notion.KindValidation, "property %q: formula requires expression", name)
		}
		return notion.Object{"formula": notion.Object{"expression": ps.Expression}}, nil
	case "rollup":
		if ps.RelationProperty == "" || ps.RollupProperty == "" {
			return nil, notion.NewError(notion.KindValidation,
				"property %q: rollup requires relation_property and rollup_property", name)
		}
		fn := ps.Function
		if fn == "" {
			fn = "count"
		}
		return notion.Object{"rollup": notion.Object{
			"relation_property_name": ps.RelationProperty,
			"rollup_property_name":   ps.RollupProperty,
			"function":               fn,
		}}, nil
	default:
		return nil, notion.NewError(notion.KindValidation, "property %q: unknown type %q", name, ps.Type)
	}
}
