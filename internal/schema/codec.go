package schema

import (
	"fmt"
	"strconv"

	"github.com/sandraschi/notion-mcp/internal/notion"
)

// ── Codec ──────────────────────────────────────────────────
// Bidirectional mapping between remote property JSON and the Value
// union. The mapping is a closed table: each supported kind has
// exactly one decode/encode pair, and adding a remote type means
// adding a table entry, nothing else. Decoding a type absent from
// the table is a schema error naming the type, never a silent drop.

type codecEntry struct {
	// decode converts the type-specific payload (raw[type]) to a Value.
	decode func(payload any) (Value, error)
	// encode converts a Value back to the payload. Nil marks the kind
	// read-only on the remote side.
	encode func(v Value) (any, error)
}

var codecTable = map[Kind]codecEntry{
	KindTitle:          {decode: decodeRichText(KindTitle), encode: encodeRichText},
	KindRichText:       {decode: decodeRichText(KindRichText), encode: encodeRichText},
	KindNumber:         {decode: decodeNumber, encode: encodeNumber},
	KindCheckbox:       {decode: decodeCheckbox, encode: encodeCheckbox},
	KindSelect:         {decode: decodeChoice(KindSelect), encode: encodeChoice},
	KindStatus:         {decode: decodeChoice(KindStatus), encode: encodeChoice},
	KindMultiSelect:    {decode: decodeMultiSelect, encode: encodeMultiSelect},
	KindDate:           {decode: decodeDate, encode: encodeDate},
	KindPeople:         {decode: decodeIDList(KindPeople), encode: encodePeople},
	KindRelation:       {decode: decodeIDList(KindRelation), encode: encodeRelation},
	KindURL:            {decode: decodeString(KindURL), encode: encodeString},
	KindEmail:          {decode: decodeString(KindEmail), encode: encodeString},
	KindPhoneNumber:    {decode: decodeString(KindPhoneNumber), encode: encodeString},
	KindFiles:          {decode: decodeFiles, encode: encodeFiles},
	KindFormula:        {decode: decodeComputed(KindFormula)},
	KindRollup:         {decode: decodeComputed(KindRollup)},
	KindCreatedTime:    {decode: decodeTimestamp(KindCreatedTime)},
	KindLastEditedTime: {decode: decodeTimestamp(KindLastEditedTime)},
}

// SupportedKinds returns every kind in the codec table.
func SupportedKinds() []Kind {
	kinds := make([]Kind, 0, len(codecTable))
	for k := range codecTable {
		kinds = append(kinds, k)
	}
	return kinds
}

// Decode converts a raw property object (as returned inside a page's
// "properties" map) into a Value using its embedded type tag.
func Decode(raw notion.Object) (Value, error) {
	typ, _ := raw["type"].(string)
	return DecodeAs(raw, Kind(typ))
}

// DecodeAs decodes with an explicitly declared kind, e.g. when the
// caller already holds the database schema.
func DecodeAs(raw notion.Object, declared Kind) (Value, error) {
	entry, ok := codecTable[declared]
	if !ok {
		return Value{}, notion.NewError(notion.KindSchema, "unsupported property type %q", string(declared))
	}
	return entry.decode(raw[string(declared)])
}

// Encoder validates and encodes Values for a write. When Schema is
// set, choice values are checked against the declared option set;
// AllowNewOptions opts in to the remote service auto-creating options
// (off by default — unknown options fail instead).
type Encoder struct {
	Schema          *RecordSchema
	AllowNewOptions bool
}

// Encode converts a Value to its raw property object. The property
// name is used for schema lookups and error messages; it may be empty
// when no schema is set.
func (e Encoder) Encode(property string, v Value) (notion.Object, error) {
	entry, ok := codecTable[v.Kind]
	if !ok {
		return nil, notion.NewError(notion.KindSchema, "unsupported property type %q", string(v.Kind))
	}
	if entry.encode == nil {
		return nil, notion.NewError(notion.KindValidation,
			"property %q has computed type %q and cannot be written", property, v.Kind)
	}

	if e.Schema != nil && property != "" {
		def, ok := e.Schema.Lookup(property)
		if !ok {
			return nil, notion.NewError(notion.KindValidation, "property %q does not exist in the database schema", property)
		}
		if def.Kind != v.Kind {
			return nil, notion.NewError(notion.KindValidation,
				"property %q is declared as %q, got a %q value", property, def.Kind, v.Kind)
		}
		if def.Kind.IsChoice() && !e.AllowNewOptions {
			if err := e.checkOptions(property, def, v); err != nil {
				return nil, err
			}
		}
	}

	payload, err := entry.encode(v)
	if err != nil {
		return nil, err
	}
	return notion.Object{string(v.Kind): payload}, nil
}

// Encode is the schema-free form; no option validation is possible.
func Encode(v Value) (notion.Object, error) {
	return Encoder{}.Encode("", v)
}

func (e Encoder) checkOptions(property string, def PropertyDef, v Value) error {
	check := func(label string) error {
		if label != "" && !def.HasOption(label) {
			return notion.NewError(notion.KindValidation,
				"property %q has no option %q (allowed: %v); pass allow_new_options to create it",
				property, label, def.Options)
		}
		return nil
	}
	if v.Kind == KindMultiSelect {
		for _, label := range v.Choices {
			if err := check(label); err != nil {
				return err
			}
		}
		return nil
	}
	return check(v.Choice)
}

// ── Decoders ───────────────────────────────────────────────

// decodeRichText concatenates the plain text of a rich-text array.
// Annotations (bold, color, links) are documented lossy.
func decodeRichText(kind Kind) func(any) (Value, error) {
	return func(payload any) (Value, error) {
		spans, _ := payload.([]any)
		text := ""
		for _, s := range spans {
			span, _ := s.(map[string]any)
			if pt, ok := span["plain_text"].(string); ok {
				text += pt
				continue
			}
			if inner, ok := span["text"].(map[string]any); ok {
				if content, ok := inner["content"].(string); ok {
					text += content
				}
			}
		}
		return Value{Kind: kind, Text: text}, nil
	}
}

func decodeNumber(payload any) (Value, error) {
	v := Value{Kind: KindNumber}
	if n, ok := payload.(float64); ok {
		v.Number = &n
	}
	return v, nil
}

func decodeCheckbox(payload any) (Value, error) {
	b, _ := payload.(bool)
	return Value{Kind: KindCheckbox, Checkbox: b}, nil
}

// decodeChoice reads {name, color}; the color is documented lossy.
func decodeChoice(kind Kind) func(any) (Value, error) {
	return func(payload any) (Value, error) {
		v := Value{Kind: kind}
		if opt, ok := payload.(map[string]any); ok {
			v.Choice, _ = opt["name"].(string)
		}
		return v, nil
	}
}

func decodeMultiSelect(payload any) (Value, error) {
	opts, _ := payload.([]any)
	v := Value{Kind: KindMultiSelect}
	for _, o := range opts {
		opt, _ := o.(map[string]any)
		if name, ok := opt["name"].(string); ok {
			v.Choices = append(v.Choices, name)
		}
	}
	return v, nil
}

func decodeDate(payload any) (Value, error) {
	v := Value{Kind: KindDate}
	if d, ok := payload.(map[string]any); ok {
		dr := &DateRange{}
		dr.Start, _ = d["start"].(string)
		dr.End, _ = d["end"].(string)
		v.Date = dr
	}
	return v, nil
}

func decodeIDList(kind Kind) func(any) (Value, error) {
	return func(payload any) (Value, error) {
		items, _ := payload.([]any)
		ids := make([]string, 0, len(items))
		for _, it := range items {
			obj, _ := it.(map[string]any)
			if id, ok := obj["id"].(string); ok {
				ids = append(ids, id)
			}
		}
		v := Value{Kind: kind}
		if kind == KindPeople {
			v.People = ids
		} else {
			v.Relations = ids
		}
		return v, nil
	}
}

func decodeString(kind Kind) func(any) (Value, error) {
	return func(payload any) (Value, error) {
		s, _ := payload.(string)
		return Value{Kind: kind, Text: s}, nil
	}
}

func decodeFiles(payload any) (Value, error) {
	items, _ := payload.([]any)
	v := Value{Kind: KindFiles}
	for _, it := range items {
		obj, _ := it.(map[string]any)
		ref := FileRef{}
		ref.Name, _ = obj["name"].(string)
		if ext, ok := obj["external"].(map[string]any); ok {
			ref.URL, _ = ext["url"].(string)
		} else if file, ok := obj["file"].(map[string]any); ok {
			ref.URL, _ = file["url"].(string)
		}
		v.Files = append(v.Files, ref)
	}
	return v, nil
}

// decodeComputed unwraps formula/rollup payloads to their scalar
// result. These kinds never encode.
func decodeComputed(kind Kind) func(any) (Value, error) {
	return func(payload any) (Value, error) {
		v := Value{Kind: kind}
		obj, ok := payload.(map[string]any)
		if !ok {
			return v, nil
		}
		typ, _ := obj["type"].(string)
		v.Computed = obj[typ]
		return v, nil
	}
}

func decodeTimestamp(kind Kind) func(any) (Value, error) {
	return func(payload any) (Value, error) {
		s, _ := payload.(string)
		return Value{Kind: kind, Text: s}, nil
	}
}

// ── Encoders ───────────────────────────────────────────────

func encodeRichText(v Value) (any, error) {
	if v.Text == "" {
		return []any{}, nil
	}
	return []any{
		map[string]any{"type": "text", "text": map[string]any{"content": v.Text}},
	}, nil
}

func encodeNumber(v Value) (any, error) {
	if v.Number == nil {
		return nil, nil
	}
	return *v.Number, nil
}

func encodeCheckbox(v Value) (any, error) { return v.Checkbox, nil }

func encodeChoice(v Value) (any, error) {
	if v.Choice == "" {
		return nil, nil
	}
	return map[string]any{"name": v.Choice}, nil
}

func encodeMultiSelect(v Value) (any, error) {
	out := make([]any, 0, len(v.Choices))
	for _, name := range dedupe(v.Choices) {
		out = append(out, map[string]any{"name": name})
	}
	return out, nil
}

func encodeDate(v Value) (any, error) {
	if v.Date == nil || v.Date.Start == "" {
		return nil, nil
	}
	d := map[string]any{"start": v.Date.Start}
	if v.Date.End != "" {
		d["end"] = v.Date.End
	}
	return d, nil
}

func encodePeople(v Value) (any, error)   { return encodeIDList(v.People), nil }
func encodeRelation(v Value) (any, error) { return encodeIDList(v.Relations), nil }

func encodeIDList(ids []string) []any {
	out := make([]any, 0, len(ids))
	for _, id := range dedupe(ids) {
		out = append(out, map[string]any{"id": id})
	}
	return out
}

func encodeString(v Value) (any, error) {
	if v.Text == "" {
		return nil, nil
	}
	return v.Text, nil
}

func encodeFiles(v Value) (any, error) {
	seen := make(map[string]bool, len(v.Files))
	out := make([]any, 0, len(v.Files))
	for _, f := range v.Files {
		if f.URL == "" || seen[f.URL] {
			continue
		}
		seen[f.URL] = true
		name := f.Name
		if name == "" {
			name = f.URL
		}
		out = append(out, map[string]any{
			"type":     "external",
			"name":     name,
			"external": map[string]any{"url": f.URL},
		})
	}
	return out, nil
}

// dedupe drops repeated values, keeping first-seen order.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// String implements fmt.Stringer for log-friendly value rendering.
func (v Value) String() string {
	switch v.Kind {
	case KindTitle, KindRichText, KindURL, KindEmail, KindPhoneNumber,
		KindCreatedTime, KindLastEditedTime:
		return v.Text
	case KindNumber:
		if v.Number == nil {
			return ""
		}
		return strconv.FormatFloat(*v.Number, 'g', -1, 64)
	case KindCheckbox:
		return fmt.Sprintf("%t", v.Checkbox)
	case KindSelect, KindStatus:
		return v.Choice
	case KindDate:
		if v.Date == nil {
			return ""
		}
		if v.Date.End != "" {
			return v.Date.Start + " → " + v.Date.End
		}
		return v.Date.Start
	default:
		return fmt.Sprintf("%v", v.Kind)
	}
}
